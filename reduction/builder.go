package reduction

import (
	"time"

	"github.com/sarchlab/evset/config"
	"github.com/sarchlab/evset/hooking"
	"github.com/sarchlab/evset/oracle"
)

// Builder can build reducers and verifiers.
type Builder struct {
	cfg    config.CacheConfig
	oracle oracle.Oracle
	retry  config.RetryPolicy
	sleep  func(time.Duration)
}

// MakeBuilder creates a builder with the default geometry and retry policy.
func MakeBuilder() Builder {
	return Builder{
		cfg:   config.DefaultCacheConfig(),
		retry: config.DefaultRetryPolicy(),
		sleep: time.Sleep,
	}
}

// WithCacheConfig sets the geometry whose associativity is the target size.
func (b Builder) WithCacheConfig(cfg config.CacheConfig) Builder {
	b.cfg = cfg
	return b
}

// WithOracle sets the oracle that is probed.
func (b Builder) WithOracle(o oracle.Oracle) Builder {
	b.oracle = o
	return b
}

// WithRetryPolicy sets how passes that remove nothing are repeated.
func (b Builder) WithRetryPolicy(p config.RetryPolicy) Builder {
	b.retry = p
	return b
}

// WithSleepFunc replaces time.Sleep for the settling delay.
func (b Builder) WithSleepFunc(sleep func(time.Duration)) Builder {
	b.sleep = sleep
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.oracle == nil {
		panic("oracle is not set")
	}

	if b.cfg.Associativity == 0 {
		panic("associativity must be positive")
	}

	if b.retry.MaxAttempts < 0 {
		panic("retry attempts cannot be negative")
	}

	if b.sleep == nil {
		panic("sleep function is not set")
	}
}

// Build creates a reducer.
func (b Builder) Build() *Reducer {
	b.parametersMustBeValid()

	return &Reducer{
		HookableBase: hooking.NewHookableBase(),
		cfg:          b.cfg,
		oracle:       b.oracle,
		retry:        b.retry,
		sleep:        b.sleep,
	}
}

// BuildVerifier creates a verifier probing the same oracle.
func (b Builder) BuildVerifier() *Verifier {
	if b.oracle == nil {
		panic("oracle is not set")
	}

	return &Verifier{
		HookableBase: hooking.NewHookableBase(),
		oracle:       b.oracle,
	}
}
