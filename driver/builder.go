package driver

import (
	"time"

	"github.com/sarchlab/evset/candidate"
	"github.com/sarchlab/evset/config"
	"github.com/sarchlab/evset/hooking"
	"github.com/sarchlab/evset/oracle"
	"github.com/sarchlab/evset/reduction"
)

// Builder can build drivers.
type Builder struct {
	run         config.Run
	oracle      oracle.Oracle
	calibration any
	allocator   candidate.Allocator
	sleep       func(time.Duration)
}

// MakeBuilder creates a builder with the default run parameters.
func MakeBuilder() Builder {
	return Builder{
		run:       config.DefaultRun(),
		allocator: candidate.DefaultAllocator(),
		sleep:     time.Sleep,
	}
}

// WithRun sets the run parameters.
func (b Builder) WithRun(run config.Run) Builder {
	b.run = run
	return b
}

// WithOracle sets the oracle probed at every stage.
func (b Builder) WithOracle(o oracle.Oracle) Builder {
	b.oracle = o
	return b
}

// WithCalibration sets the calibration passed to the oracle with every probe.
func (b Builder) WithCalibration(c any) Builder {
	b.calibration = c
	return b
}

// WithAllocator sets where the candidate pools are allocated.
func (b Builder) WithAllocator(a candidate.Allocator) Builder {
	b.allocator = a
	return b
}

// WithSleepFunc replaces time.Sleep for the reducer settling delay.
func (b Builder) WithSleepFunc(sleep func(time.Duration)) Builder {
	b.sleep = sleep
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.oracle == nil {
		panic("oracle is not set")
	}

	if err := b.run.Validate(); err != nil {
		panic(err)
	}
}

// Build creates a driver.
func (b Builder) Build() *Driver {
	b.parametersMustBeValid()

	generator := candidate.MakeBuilder().
		WithCacheConfig(b.run.Cache).
		WithSeed(b.run.Seed).
		WithAllocator(b.allocator).
		Build()

	rb := reduction.MakeBuilder().
		WithCacheConfig(b.run.Cache).
		WithOracle(b.oracle).
		WithRetryPolicy(b.run.Retry).
		WithSleepFunc(b.sleep)

	return &Driver{
		HookableBase: hooking.NewHookableBase(),
		generator:    generator,
		reducer:      rb.Build(),
		verifier:     rb.BuildVerifier(),
		oracle:       b.oracle,
		pool:         b.run.Pool,
		calibration:  b.calibration,
	}
}
