//go:build !amd64

package oracle

import (
	"github.com/sarchlab/evset/addrset"
)

// TimingOracle is unavailable on this platform.
type TimingOracle struct {
	Repeats int
}

// NewTimingOracle reports that timing is not supported here.
func NewTimingOracle(int) (*TimingOracle, error) {
	return nil, ErrTimingUnsupported
}

// Test never reports an eviction.
func (o *TimingOracle) Test(*addrset.AddressSet, *TestContext) bool {
	return false
}
