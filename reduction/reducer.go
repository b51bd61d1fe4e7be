// Package reduction shrinks candidate pools into minimal eviction sets with
// threshold group testing, and audits the results.
//
// The reducer assumes that a minimal eviction set of an a-way set-associative
// cache has exactly a members. Skewed or partitioned caches break this
// assumption and are not handled.
package reduction

import (
	"time"

	"github.com/sarchlab/evset/addrset"
	"github.com/sarchlab/evset/config"
	"github.com/sarchlab/evset/hooking"
	"github.com/sarchlab/evset/oracle"
)

// Hook positions raised by the reducer.
var (
	// HookPosReduceStart is raised before the first pass. Item is the
	// candidate set.
	HookPosReduceStart = &hooking.HookPos{Name: "ReduceStart"}

	// HookPosProbe is raised after each oracle probe. Item is the probed set
	// and Detail a ProbeDetail.
	HookPosProbe = &hooking.HookPos{Name: "Probe"}

	// HookPosGroupRemoved is raised when a group has been dropped. Item is
	// the new working set and Detail a StepDetail.
	HookPosGroupRemoved = &hooking.HookPos{Name: "GroupRemoved"}

	// HookPosRetry is raised when a pass removed nothing and will be
	// repeated. Detail is a RetryDetail.
	HookPosRetry = &hooking.HookPos{Name: "Retry"}

	// HookPosReduceEnd is raised once the reduction stops. Item is the
	// Result.
	HookPosReduceEnd = &hooking.HookPos{Name: "ReduceEnd"}
)

// ProbeDetail describes one oracle probe of a pass.
type ProbeDetail struct {
	Pass        int
	Group       int
	CurrentSize int
	ProbedSize  int
	Evicted     bool
}

// StepDetail describes a successful reduction step.
type StepDetail struct {
	Step     int
	Group    int
	FromSize int
	ToSize   int
}

// RetryDetail describes a repeated pass.
type RetryDetail struct {
	Size        int
	Attempt     int
	MaxAttempts int
}

// A Result is the outcome of a reduction.
type Result struct {
	// Set is a fresh owning copy of the final working set.
	Set *addrset.AddressSet

	// Minimal is true when Set has exactly as many addresses as the cache
	// has ways. Otherwise the reduction gave up early and Set is the best
	// set reached.
	Minimal bool

	InitialSize int
	Reductions  int
	Passes      int
	Retries     int
	Probes      int
}

// A Reducer runs threshold group testing against an oracle.
type Reducer struct {
	*hooking.HookableBase

	cfg    config.CacheConfig
	oracle oracle.Oracle
	retry  config.RetryPolicy
	sleep  func(time.Duration)
}

// Reduce shrinks candidates until it holds as many addresses as the cache
// associativity, or until a pass keeps removing nothing after every retry.
//
// The caller must make sure that candidates evicts the target. The
// candidates are not modified.
func (r *Reducer) Reduce(
	candidates *addrset.AddressSet,
	ctx *oracle.TestContext,
) *Result {
	a := int(r.cfg.Associativity)
	res := &Result{InitialSize: candidates.Len()}

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosReduceStart,
		Item:   candidates,
	})

	s := candidates.Clone()
	retry := 0

	for s.Len() > a {
		res.Passes++

		next, group := r.pass(s, a, ctx, res)
		if next != nil {
			step := StepDetail{
				Step:     res.Reductions + 1,
				Group:    group,
				FromSize: s.Len(),
				ToSize:   next.Len(),
			}

			_ = s.Release()
			s = next
			res.Reductions++
			retry = 0

			r.InvokeHook(hooking.HookCtx{
				Domain: r,
				Pos:    HookPosGroupRemoved,
				Item:   s,
				Detail: step,
			})

			continue
		}

		if retry >= r.retry.MaxAttempts {
			break
		}

		retry++
		res.Retries++

		r.InvokeHook(hooking.HookCtx{
			Domain: r,
			Pos:    HookPosRetry,
			Item:   s,
			Detail: RetryDetail{
				Size:        s.Len(),
				Attempt:     retry,
				MaxAttempts: r.retry.MaxAttempts,
			},
		})

		if r.retry.Backoff > 0 {
			r.sleep(r.retry.Backoff)
		}
	}

	res.Set = s.Clone()
	res.Minimal = res.Set.Len() == a
	_ = s.Release()

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    HookPosReduceEnd,
		Item:   res,
	})

	return res
}

// pass partitions s into a+1 groups and returns s without the first group
// whose removal still evicts, or nil.
func (r *Reducer) pass(
	s *addrset.AddressSet,
	a int,
	ctx *oracle.TestContext,
	res *Result,
) (*addrset.AddressSet, int) {
	groups := s.Partition(a + 1)

	for j := range groups {
		candidate := addrset.WithoutGroup(groups, j)
		evicted := r.oracle.Test(candidate, ctx)
		res.Probes++

		r.InvokeHook(hooking.HookCtx{
			Domain: r,
			Pos:    HookPosProbe,
			Item:   candidate,
			Detail: ProbeDetail{
				Pass:        res.Passes,
				Group:       j,
				CurrentSize: s.Len(),
				ProbedSize:  candidate.Len(),
				Evicted:     evicted,
			},
		})

		if evicted {
			return candidate, j
		}

		_ = candidate.Release()
	}

	return nil, -1
}

// CacheConfig returns the geometry whose associativity the reducer aims at.
func (r *Reducer) CacheConfig() config.CacheConfig {
	return r.cfg
}

// RetryPolicy returns the policy applied to passes that remove nothing.
func (r *Reducer) RetryPolicy() config.RetryPolicy {
	return r.retry
}
