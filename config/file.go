package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// A Run gathers every parameter of one eviction set construction run.
type Run struct {
	Seed        int64
	Cache       CacheConfig
	Retry       RetryPolicy
	Pool        PoolPolicy
	Levels      []Level
	TestedLevel int
}

// DefaultRun returns the parameters used when no configuration file is given.
func DefaultRun() Run {
	return Run{
		Seed:        DefaultSeed,
		Cache:       DefaultCacheConfig(),
		Retry:       DefaultRetryPolicy(),
		Pool:        DefaultPoolPolicy(),
		Levels:      DefaultLevels(),
		TestedLevel: DefaultTestedLevel,
	}
}

// Validate checks every part of the run configuration.
func (r Run) Validate() error {
	if err := r.Cache.Validate(); err != nil {
		return err
	}

	if r.Retry.MaxAttempts < 0 || r.Retry.Backoff < 0 {
		return fmt.Errorf("%w: negative retry policy", ErrInvalidCacheConfig)
	}

	if r.Pool.InitialCandidates <= int(r.Cache.Associativity) {
		return fmt.Errorf("%w: %d initial candidates must exceed associativity %d",
			ErrInvalidCacheConfig, r.Pool.InitialCandidates, r.Cache.Associativity)
	}

	if r.Pool.OuterAttempts <= 0 {
		return fmt.Errorf("%w: outer attempts must be positive", ErrInvalidCacheConfig)
	}

	for _, l := range r.Levels {
		if err := l.Validate(); err != nil {
			return err
		}
	}

	if r.TestedLevel < 1 || r.TestedLevel > len(r.Levels) {
		return fmt.Errorf("%w: tested level %d outside of %d levels",
			ErrInvalidCacheConfig, r.TestedLevel, len(r.Levels))
	}

	return nil
}

type runFile struct {
	Seed        int64       `toml:"seed"`
	TestedLevel int         `toml:"tested_level"`
	Cache       CacheConfig `toml:"cache"`
	Pool        PoolPolicy  `toml:"pool"`
	Retry       retryFile   `toml:"retry"`
	Levels      []Level     `toml:"levels"`
}

type retryFile struct {
	MaxAttempts int    `toml:"max_attempts"`
	Backoff     string `toml:"backoff"`
}

// LoadFile reads a TOML run configuration. Keys missing from the file keep
// their default values.
//
//	seed = 12345
//	tested_level = 2
//
//	[cache]
//	associativity = 8
//	line_size = 64
//	page_size = 4096
//	size = 262144
//
//	[retry]
//	max_attempts = 3
//	backoff = "50ms"
//
//	[[levels]]
//	name = "L1"
//	size = 32768
//	associativity = 8
//	line_size = 64
func LoadFile(path string) (Run, error) {
	run := DefaultRun()

	f := runFile{
		Seed:        run.Seed,
		TestedLevel: run.TestedLevel,
		Cache:       run.Cache,
		Pool:        run.Pool,
		Retry: retryFile{
			MaxAttempts: run.Retry.MaxAttempts,
			Backoff:     run.Retry.Backoff.String(),
		},
	}

	if _, err := toml.DecodeFile(path, &f); err != nil {
		return Run{}, fmt.Errorf("loading %s: %w", path, err)
	}

	backoff, err := time.ParseDuration(f.Retry.Backoff)
	if err != nil {
		return Run{}, fmt.Errorf("loading %s: retry backoff: %w", path, err)
	}

	run.Seed = f.Seed
	run.TestedLevel = f.TestedLevel
	run.Cache = f.Cache
	run.Pool = f.Pool
	run.Retry = RetryPolicy{MaxAttempts: f.Retry.MaxAttempts, Backoff: backoff}

	if len(f.Levels) > 0 {
		run.Levels = f.Levels
	}

	return run, nil
}
