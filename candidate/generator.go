// Package candidate builds oversized pools of addresses that are congruent to
// a target address.
package candidate

import (
	"fmt"
	"math/rand"

	"github.com/sarchlab/evset/addrset"
	"github.com/sarchlab/evset/config"
	"github.com/sarchlab/evset/hooking"
)

// Byte patterns written into freshly allocated memory so that its pages are
// resident and not shared zero pages.
const (
	PoolSentinel   byte = 0xA5
	TargetSentinel byte = 0xAB
)

// HookPosPoolGenerated marks that a candidate pool has been generated. The
// hook item is the pool.
var HookPosPoolGenerated = &hooking.HookPos{Name: "PoolGenerated"}

// PoolDetail describes where a generated pool lives.
type PoolDetail struct {
	Target uintptr
	Base   uintptr
	Stride uint64
	Bytes  int
}

// A Generator produces candidate pools.
type Generator struct {
	*hooking.HookableBase

	cfg       config.CacheConfig
	rng       *rand.Rand
	allocator Allocator
}

// Generate returns an owning set of n addresses that share the cache set
// index bits of target. The addresses are one stride apart in a new memory
// region owned by the set, in random order.
func (g *Generator) Generate(target uintptr, n int) (*addrset.AddressSet, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d candidates requested", ErrAllocation, n)
	}

	stride := g.cfg.Stride()

	// One extra stride leaves room to align the first candidate.
	region, err := g.allocator.Allocate((n+1)*int(stride), uintptr(g.cfg.LineSize))
	if err != nil {
		return nil, err
	}

	region.Fill(PoolSentinel)

	mask := uintptr(stride - 1)
	first := (region.Base()+mask)&^mask | target&mask

	pool := addrset.New(n)
	pool.AttachBacking(region)

	for i := 0; i < n; i++ {
		_ = pool.Append(first + uintptr(i)*uintptr(stride))
	}

	g.shuffle(pool)

	g.InvokeHook(hooking.HookCtx{
		Domain: g,
		Pos:    HookPosPoolGenerated,
		Item:   pool,
		Detail: PoolDetail{
			Target: target,
			Base:   region.Base(),
			Stride: stride,
			Bytes:  region.Len(),
		},
	})

	return pool, nil
}

// shuffle applies a Fisher-Yates permutation so that partitions do not follow
// the memory layout.
func (g *Generator) shuffle(s *addrset.AddressSet) {
	for i := s.Len() - 1; i > 0; i-- {
		j := g.rng.Intn(i + 1)
		s.Swap(i, j)
	}
}

// AllocateTarget returns one cache line of memory to be used as the target
// address. The caller must release the region.
func (g *Generator) AllocateTarget() (*Region, error) {
	region, err := g.allocator.Allocate(int(g.cfg.LineSize), uintptr(g.cfg.LineSize))
	if err != nil {
		return nil, err
	}

	region.Fill(TargetSentinel)

	return region, nil
}

// CacheConfig returns the geometry the generator lays pools out for.
func (g *Generator) CacheConfig() config.CacheConfig {
	return g.cfg
}
