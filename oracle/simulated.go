package oracle

import (
	"fmt"

	"github.com/sarchlab/evset/addrset"
	"github.com/sarchlab/evset/config"
	"github.com/sarchlab/evset/oracle/internal/tagging"
)

// SimulatedOracle answers from a modelled cache hierarchy instead of timing
// real accesses, the way a simulator reports the level that served the last
// load. A target is evicted when its reload is served from beyond the tested
// level.
type SimulatedOracle struct {
	hierarchy    *tagging.Hierarchy
	testedLevel  int
	lastHitLevel int
}

// NewSimulatedOracle models the given levels, L1 first. testedLevel counts
// from 1.
func NewSimulatedOracle(levels []config.Level, testedLevel int) (*SimulatedOracle, error) {
	if testedLevel < 1 || testedLevel > len(levels) {
		return nil, fmt.Errorf("%w: tested level %d outside of %d levels",
			config.ErrInvalidCacheConfig, testedLevel, len(levels))
	}

	h := &tagging.Hierarchy{}

	for _, l := range levels {
		if err := l.Validate(); err != nil {
			return nil, err
		}

		h.Levels = append(h.Levels, &tagging.Level{
			Name: l.Name,
			Tags: tagging.NewArray(
				int(l.NumSets()), int(l.Associativity), l.LineSize),
			VictimFinder: tagging.LRUVictimFinder{},
		})
	}

	return &SimulatedOracle{
		hierarchy:   h,
		testedLevel: testedLevel,
	}, nil
}

// Test primes the target, walks the set, and reloads the target.
func (o *SimulatedOracle) Test(set *addrset.AddressSet, ctx *TestContext) bool {
	o.hierarchy.Access(uint64(ctx.Target))

	for _, a := range set.Addresses() {
		o.hierarchy.Access(uint64(a))
	}

	o.lastHitLevel = o.hierarchy.Access(uint64(ctx.Target))

	return o.lastHitLevel > o.testedLevel
}

// LastHitLevel returns the level that served the last target reload,
// counting from 1. Memory is one past the last cache level.
func (o *SimulatedOracle) LastHitLevel() int {
	return o.lastHitLevel
}

// TestedLevel returns the level whose eviction is reported.
func (o *SimulatedOracle) TestedLevel() int {
	return o.testedLevel
}

// Reset empties the modelled caches.
func (o *SimulatedOracle) Reset() {
	o.hierarchy.Reset()
	o.lastHitLevel = 0
}
