package oracle

import (
	"errors"
	"fmt"
)

// ErrTimingUnsupported is returned when the platform has no cycle counter
// that the timing oracle can read.
var ErrTimingUnsupported = errors.New("timing oracle not supported on this platform")

// ErrNoCalibration is returned when a test context does not carry a
// *Calibration.
var ErrNoCalibration = errors.New("test context has no timing calibration")

// Calibration holds the threshold separating cached from evicted reloads.
// Producing it is left to the caller.
type Calibration struct {
	// MissThreshold is the smallest reload latency, in cycles, that counts
	// as an eviction.
	MissThreshold uint64
}

// CalibrationFrom extracts the timing calibration of ctx.
func CalibrationFrom(ctx *TestContext) (*Calibration, error) {
	c, ok := ctx.Calibration.(*Calibration)
	if !ok || c == nil {
		return nil, fmt.Errorf("%w: got %T", ErrNoCalibration, ctx.Calibration)
	}

	return c, nil
}

// Classify decides by majority over repeated reload latencies whether the
// target was evicted.
func (c *Calibration) Classify(latencies []uint64) bool {
	misses := 0

	for _, l := range latencies {
		if l >= c.MissThreshold {
			misses++
		}
	}

	return misses*2 > len(latencies)
}
