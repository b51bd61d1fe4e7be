package oracle

import (
	"github.com/sarchlab/evset/addrset"
)

// CoreOracle is a noise-free monotone oracle. A set evicts when it contains
// at least Threshold of the designated core addresses.
type CoreOracle struct {
	core      map[uintptr]struct{}
	Threshold int
}

// NewCoreOracle creates an oracle that requires every core address.
func NewCoreOracle(core []uintptr) *CoreOracle {
	o := &CoreOracle{
		core:      make(map[uintptr]struct{}, len(core)),
		Threshold: len(core),
	}

	for _, a := range core {
		o.core[a] = struct{}{}
	}

	return o
}

// WithThreshold sets how many core addresses make a set evict.
func (o *CoreOracle) WithThreshold(n int) *CoreOracle {
	o.Threshold = n
	return o
}

// IsCore returns true if addr is a designated core address.
func (o *CoreOracle) IsCore(addr uintptr) bool {
	_, ok := o.core[addr]
	return ok
}

// Test counts the distinct core members of set.
func (o *CoreOracle) Test(set *addrset.AddressSet, _ *TestContext) bool {
	if o.Threshold <= 0 {
		return false
	}

	seen := make(map[uintptr]struct{}, o.Threshold)

	for _, a := range set.Addresses() {
		if _, ok := o.core[a]; ok {
			seen[a] = struct{}{}
		}
	}

	return len(seen) >= o.Threshold
}
