//go:build amd64

package oracle

import (
	"log"
	"unsafe"

	"github.com/dterei/gotsc"
	"github.com/sarchlab/evset/addrset"
)

// TimingOracle measures real reloads of the target with the time stamp
// counter. Addresses handed to it must point to mapped memory.
type TimingOracle struct {
	// Repeats is the number of measurements voting on each answer.
	Repeats int

	overhead uint64
	sink     byte
}

// NewTimingOracle creates a timing oracle that votes over repeats
// measurements.
func NewTimingOracle(repeats int) (*TimingOracle, error) {
	if repeats <= 0 {
		repeats = 1
	}

	return &TimingOracle{
		Repeats:  repeats,
		overhead: gotsc.TSCOverhead(),
	}, nil
}

// Test times the target reload after walking the set. A context without a
// calibration never reports an eviction.
func (o *TimingOracle) Test(set *addrset.AddressSet, ctx *TestContext) bool {
	calib, err := CalibrationFrom(ctx)
	if err != nil {
		log.Printf("timing oracle: %v", err)
		return false
	}

	latencies := make([]uint64, o.Repeats)
	for i := range latencies {
		latencies[i] = o.measure(set, ctx.Target)
	}

	return calib.Classify(latencies)
}

func (o *TimingOracle) measure(set *addrset.AddressSet, target uintptr) uint64 {
	o.load(target)

	for _, a := range set.Addresses() {
		o.load(a)
	}

	start := gotsc.BenchStart()
	o.load(target)
	end := gotsc.BenchEnd()

	if end-start < o.overhead {
		return 0
	}

	return end - start - o.overhead
}

func (o *TimingOracle) load(addr uintptr) {
	o.sink += *(*byte)(unsafe.Pointer(addr))
}
