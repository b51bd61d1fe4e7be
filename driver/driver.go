// Package driver runs the whole eviction set construction: it checks the
// oracle, grows candidate pools until one evicts the target, reduces that
// pool and audits the result.
package driver

import (
	"errors"
	"fmt"

	"github.com/sarchlab/evset/addrset"
	"github.com/sarchlab/evset/candidate"
	"github.com/sarchlab/evset/config"
	"github.com/sarchlab/evset/dump"
	"github.com/sarchlab/evset/hooking"
	"github.com/sarchlab/evset/oracle"
	"github.com/sarchlab/evset/reduction"
)

// ErrNoInitialEvictionSet is returned when no candidate pool evicts the
// target, before any reduction is attempted.
var ErrNoInitialEvictionSet = errors.New("no initial eviction set found")

// Hook positions raised by the driver.
var (
	// HookPosEmptySetEvicts is raised when the target is reported evicted
	// without accessing anything. The oracle is likely miscalibrated.
	HookPosEmptySetEvicts = &hooking.HookPos{Name: "EmptySetEvicts"}

	// HookPosPoolRejected is raised when a pool does not evict the target.
	// Item is the pool and Detail a PoolAttempt.
	HookPosPoolRejected = &hooking.HookPos{Name: "PoolRejected"}

	// HookPosPoolAccepted is raised when a pool evicts the target. Item is
	// the pool and Detail a PoolAttempt.
	HookPosPoolAccepted = &hooking.HookPos{Name: "PoolAccepted"}

	// HookPosRunEnd is raised after verification. Item is the Report.
	HookPosRunEnd = &hooking.HookPos{Name: "RunEnd"}
)

// PoolAttempt describes one pool generation.
type PoolAttempt struct {
	Attempt     int
	MaxAttempts int
	Size        int
}

// A Report gathers what a run produced. The pool and the reduced set stay
// alive until Release is called, since the set points into the pool memory.
type Report struct {
	Target         uintptr
	EmptySetEvicts bool
	PoolAttempts   int

	Pool      *addrset.AddressSet
	PoolBase  uintptr
	PoolBytes int

	Result       *reduction.Result
	Verification reduction.Verification
}

// Minimal returns true if the reduction reached the associativity and the
// verifier found no redundant element.
func (r *Report) Minimal() bool {
	return r.Result.Minimal && r.Verification.Minimal()
}

// Release returns the pool memory to the system.
func (r *Report) Release() error {
	if r.Result != nil && r.Result.Set != nil {
		_ = r.Result.Set.Release()
	}

	if r.Pool == nil {
		return nil
	}

	return r.Pool.Release()
}

// Dump converts the report into the dump file content.
func (r *Report) Dump(seed int64, cfg config.CacheConfig) *dump.Dump {
	d := &dump.Dump{
		Seed:              seed,
		CacheSize:         cfg.Size,
		Associativity:     cfg.Associativity,
		CacheLine:         cfg.LineSize,
		PageSize:          cfg.PageSize,
		Stride:            cfg.Stride(),
		CandidatePoolSize: uint64(r.Pool.Len()),
		PoolSize:          uint64(r.PoolBytes),
	}

	d.AddAddresses(r.PoolBase, r.Result.Set.Addresses())

	return d
}

// A Driver runs eviction set constructions.
type Driver struct {
	*hooking.HookableBase

	generator *candidate.Generator
	reducer   *reduction.Reducer
	verifier  *reduction.Verifier
	oracle    oracle.Oracle

	pool        config.PoolPolicy
	calibration any
}

// AcceptHook registers the hook with the driver and with every stage it runs.
func (d *Driver) AcceptHook(hook hooking.Hook) {
	d.HookableBase.AcceptHook(hook)
	d.generator.AcceptHook(hook)
	d.reducer.AcceptHook(hook)
	d.verifier.AcceptHook(hook)
}

// AllocateTarget returns a fresh cache line to be used as target.
func (d *Driver) AllocateTarget() (*candidate.Region, error) {
	return d.generator.AllocateTarget()
}

// Run builds a minimal eviction set for target.
//
// Allocation failures and the absence of any evicting pool are returned as
// errors. A reduction that stops early is not an error; the report tells it.
func (d *Driver) Run(target uintptr) (*Report, error) {
	ctx := &oracle.TestContext{
		Target:      target,
		Calibration: d.calibration,
	}

	report := &Report{Target: target}

	empty := addrset.New(0)
	if d.oracle.Test(empty, ctx) {
		report.EmptySetEvicts = true

		d.InvokeHook(hooking.HookCtx{
			Domain: d,
			Pos:    HookPosEmptySetEvicts,
			Item:   empty,
		})
	}

	pool, err := d.findPool(ctx, report)
	if err != nil {
		return nil, err
	}

	report.Pool = pool
	report.PoolBase = pool.Backing().Base()
	report.PoolBytes = pool.Backing().Len()

	report.Result = d.reducer.Reduce(pool, ctx)
	report.Verification = d.verifier.Verify(report.Result.Set, ctx)

	d.InvokeHook(hooking.HookCtx{
		Domain: d,
		Pos:    HookPosRunEnd,
		Item:   report,
	})

	return report, nil
}

// findPool doubles the pool size until a pool evicts the target.
func (d *Driver) findPool(
	ctx *oracle.TestContext,
	report *Report,
) (*addrset.AddressSet, error) {
	n := d.pool.InitialCandidates

	for attempt := 1; attempt <= d.pool.OuterAttempts; attempt++ {
		pool, err := d.generator.Generate(ctx.Target, n)
		if err != nil {
			return nil, err
		}

		report.PoolAttempts = attempt
		detail := PoolAttempt{
			Attempt:     attempt,
			MaxAttempts: d.pool.OuterAttempts,
			Size:        n,
		}

		if d.oracle.Test(pool, ctx) {
			d.InvokeHook(hooking.HookCtx{
				Domain: d,
				Pos:    HookPosPoolAccepted,
				Item:   pool,
				Detail: detail,
			})

			return pool, nil
		}

		d.InvokeHook(hooking.HookCtx{
			Domain: d,
			Pos:    HookPosPoolRejected,
			Item:   pool,
			Detail: detail,
		})

		if err := pool.Release(); err != nil {
			return nil, err
		}

		n *= 2
	}

	return nil, fmt.Errorf("%w: %d pools tried, last with %d candidates",
		ErrNoInitialEvictionSet, d.pool.OuterAttempts, n/2)
}
