// Package config defines the cache geometry and the retry policies that drive
// eviction set construction.
package config

import (
	"errors"
	"fmt"
	"math/bits"
	"time"
)

// ErrInvalidCacheConfig is returned when a cache geometry cannot describe a
// set-associative cache.
var ErrInvalidCacheConfig = errors.New("invalid cache config")

// A CacheConfig describes the cache level that an eviction set targets.
type CacheConfig struct {
	// Associativity is the number of ways per set. It is also the size of a
	// minimal eviction set.
	Associativity uint64 `toml:"associativity"`

	// LineSize is the cache line size in bytes.
	LineSize uint64 `toml:"line_size"`

	// PageSize is the page size in bytes.
	PageSize uint64 `toml:"page_size"`

	// Size is the capacity of the targeted cache level in bytes.
	Size uint64 `toml:"size"`
}

// NumSets returns the number of sets in the cache.
func (c CacheConfig) NumSets() uint64 {
	return c.Size / (c.LineSize * c.Associativity)
}

// Stride returns the distance between two consecutive addresses that map to
// the same set.
func (c CacheConfig) Stride() uint64 {
	return c.NumSets() * c.LineSize
}

// SetIndex returns the set that an address maps to.
func (c CacheConfig) SetIndex(addr uintptr) uint64 {
	return uint64(addr) / c.LineSize % c.NumSets()
}

// Validate checks that the geometry is usable for candidate generation.
func (c CacheConfig) Validate() error {
	switch {
	case c.Associativity == 0:
		return fmt.Errorf("%w: associativity must be positive", ErrInvalidCacheConfig)
	case c.LineSize == 0 || !isPowerOfTwo(c.LineSize):
		return fmt.Errorf("%w: line size %d is not a power of two",
			ErrInvalidCacheConfig, c.LineSize)
	case c.PageSize == 0:
		return fmt.Errorf("%w: page size must be positive", ErrInvalidCacheConfig)
	case c.Size == 0 || c.Size%(c.LineSize*c.Associativity) != 0:
		return fmt.Errorf("%w: size %d is not a multiple of %d",
			ErrInvalidCacheConfig, c.Size, c.LineSize*c.Associativity)
	case !isPowerOfTwo(c.NumSets()):
		return fmt.Errorf("%w: number of sets %d is not a power of two",
			ErrInvalidCacheConfig, c.NumSets())
	}

	return nil
}

func isPowerOfTwo(v uint64) bool {
	return v != 0 && bits.OnesCount64(v) == 1
}

// A RetryPolicy bounds how often the reducer repeats a pass that removed
// nothing, and how long it waits between the attempts.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// NoDelay returns a copy of the policy that does not sleep between attempts.
func (p RetryPolicy) NoDelay() RetryPolicy {
	p.Backoff = 0
	return p
}

// A PoolPolicy controls how the driver grows the candidate pool when the pool
// does not evict the target.
type PoolPolicy struct {
	InitialCandidates int `toml:"initial_candidates"`
	OuterAttempts     int `toml:"outer_attempts"`
}

// A Level describes one level of a simulated cache hierarchy.
type Level struct {
	Name          string `toml:"name"`
	Size          uint64 `toml:"size"`
	Associativity uint64 `toml:"associativity"`
	LineSize      uint64 `toml:"line_size"`
}

// NumSets returns the number of sets in the level.
func (l Level) NumSets() uint64 {
	return l.Size / (l.LineSize * l.Associativity)
}

// Validate checks that the level describes a set-associative cache.
func (l Level) Validate() error {
	if l.Associativity == 0 || l.LineSize == 0 || l.Size == 0 ||
		l.Size%(l.LineSize*l.Associativity) != 0 {
		return fmt.Errorf("%w: level %q has size %d, %d ways, %d byte lines",
			ErrInvalidCacheConfig, l.Name, l.Size, l.Associativity, l.LineSize)
	}

	return nil
}

// Defaults matches an 8-way 256KiB second level cache with 64 byte lines.
const (
	DefaultAssociativity     = 8
	DefaultLineSize          = 64
	DefaultPageSize          = 4096
	DefaultCacheSize         = 256 * 1024
	DefaultMaxAttempts       = 3
	DefaultBackoff           = 50 * time.Millisecond
	DefaultInitialCandidates = 128
	DefaultOuterAttempts     = 5
	DefaultSeed              = 12345
	DefaultTestedLevel       = 2
)

// DefaultCacheConfig returns the geometry used when nothing else is given.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Associativity: DefaultAssociativity,
		LineSize:      DefaultLineSize,
		PageSize:      DefaultPageSize,
		Size:          DefaultCacheSize,
	}
}

// DefaultRetryPolicy retries a stuck pass three times, 50ms apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultBackoff,
	}
}

// DefaultPoolPolicy starts from 128 candidates and doubles up to 5 times.
func DefaultPoolPolicy() PoolPolicy {
	return PoolPolicy{
		InitialCandidates: DefaultInitialCandidates,
		OuterAttempts:     DefaultOuterAttempts,
	}
}

// DefaultLevels returns a two level hierarchy whose second level matches
// DefaultCacheConfig.
func DefaultLevels() []Level {
	return []Level{
		{Name: "L1", Size: 32 * 1024, Associativity: 8, LineSize: 64},
		{Name: "L2", Size: DefaultCacheSize, Associativity: 8, LineSize: 64},
	}
}
