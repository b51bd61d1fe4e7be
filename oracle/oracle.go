// Package oracle defines the probe that tells whether an address set evicts
// a target, together with the implementations shipped with evset.
//
// Every oracle follows the same observable sequence: load the target once,
// load every address of the set in order, then reload the target and report
// whether it was evicted from the tested cache level. An empty set never
// evicts.
package oracle

import (
	"github.com/sarchlab/evset/addrset"
)

// A TestContext carries the target address under test and calibration data
// that only the oracle interprets.
type TestContext struct {
	Target      uintptr
	Calibration any
}

// An Oracle answers whether accessing a set evicts the target of ctx.
//
// Oracles may be noisy. They are expected to be monotone in the common case:
// adding addresses to an evicting set keeps it evicting.
type Oracle interface {
	Test(set *addrset.AddressSet, ctx *TestContext) bool
}

// Func adapts a plain function to the Oracle interface.
type Func func(set *addrset.AddressSet, ctx *TestContext) bool

// Test calls f.
func (f Func) Test(set *addrset.AddressSet, ctx *TestContext) bool {
	return f(set, ctx)
}

// Counting wraps an oracle and counts how often it has been probed.
type Counting struct {
	Oracle Oracle

	Probes    int
	Evictions int
}

// NewCounting wraps o.
func NewCounting(o Oracle) *Counting {
	return &Counting{Oracle: o}
}

// Test forwards the probe and counts it.
func (c *Counting) Test(set *addrset.AddressSet, ctx *TestContext) bool {
	c.Probes++

	evicted := c.Oracle.Test(set, ctx)
	if evicted {
		c.Evictions++
	}

	return evicted
}
