package oracle

import (
	"math/rand"

	"github.com/sarchlab/evset/addrset"
)

// NoisyOracle flips the answers of another oracle at random. It models
// residual caching (false negatives) and unrelated interference (false
// positives). Empty sets are never reported as evicting.
type NoisyOracle struct {
	Oracle            Oracle
	FalseNegativeRate float64
	FalsePositiveRate float64

	rng *rand.Rand
}

// NewNoisyOracle wraps o, drawing noise from rng.
func NewNoisyOracle(o Oracle, rng *rand.Rand) *NoisyOracle {
	return &NoisyOracle{
		Oracle: o,
		rng:    rng,
	}
}

// WithFalseNegativeRate sets the probability of hiding an eviction.
func (n *NoisyOracle) WithFalseNegativeRate(p float64) *NoisyOracle {
	n.FalseNegativeRate = p
	return n
}

// WithFalsePositiveRate sets the probability of reporting a spurious
// eviction.
func (n *NoisyOracle) WithFalsePositiveRate(p float64) *NoisyOracle {
	n.FalsePositiveRate = p
	return n
}

// Test probes the wrapped oracle and perturbs its answer.
func (n *NoisyOracle) Test(set *addrset.AddressSet, ctx *TestContext) bool {
	evicted := n.Oracle.Test(set, ctx)
	if set.Len() == 0 {
		return false
	}

	if evicted {
		return n.rng.Float64() >= n.FalseNegativeRate
	}

	return n.rng.Float64() < n.FalsePositiveRate
}
