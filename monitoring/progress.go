package monitoring

import (
	"time"

	"github.com/sarchlab/evset/addrset"
	"github.com/sarchlab/evset/candidate"
	"github.com/sarchlab/evset/hooking"
	"github.com/sarchlab/evset/reduction"
)

// Phases of a run.
const (
	PhaseIdle     = "idle"
	PhaseGenerate = "generate"
	PhaseReduce   = "reduce"
	PhaseVerify   = "verify"
	PhaseDone     = "done"
)

// Progress is a snapshot of a run.
type Progress struct {
	RunID         string    `json:"run_id"`
	Phase         string    `json:"phase"`
	Target        uint64    `json:"target"`
	Associativity int       `json:"associativity"`
	Pools         int       `json:"pools"`
	InitialSize   int       `json:"initial_size"`
	CurrentSize   int       `json:"current_size"`
	Reductions    int       `json:"reductions"`
	Retries       int       `json:"retries"`
	Probes        int       `json:"probes"`
	Anomalies     int       `json:"anomalies"`
	ProbeInterval float64   `json:"probe_interval_us"`
	StartTime     time.Time `json:"start_time"`
	UpdateTime    time.Time `json:"update_time"`
}

// Func updates the progress from generator, reducer and verifier hooks.
func (m *Monitor) Func(ctx hooking.HookCtx) {
	m.progressLock.Lock()
	defer m.progressLock.Unlock()

	p := &m.progress
	p.UpdateTime = time.Now()

	switch ctx.Pos {
	case candidate.HookPosPoolGenerated:
		p.Phase = PhaseGenerate
		p.Pools++

		if detail, ok := ctx.Detail.(candidate.PoolDetail); ok {
			p.Target = uint64(detail.Target)
		}
	case reduction.HookPosReduceStart:
		p.Phase = PhaseReduce

		if s, ok := ctx.Item.(*addrset.AddressSet); ok {
			p.InitialSize = s.Len()
			p.CurrentSize = s.Len()
		}
	case reduction.HookPosProbe:
		p.Probes++

		if !m.lastProbe.IsZero() {
			m.probeInterval.Add(float64(p.UpdateTime.Sub(m.lastProbe).Microseconds()))
			p.ProbeInterval = m.probeInterval.Value()
		}

		m.lastProbe = p.UpdateTime
	case reduction.HookPosGroupRemoved:
		p.Reductions++

		if detail, ok := ctx.Detail.(reduction.StepDetail); ok {
			p.CurrentSize = detail.ToSize
		}
	case reduction.HookPosRetry:
		p.Retries++
	case reduction.HookPosReduceEnd:
		p.Phase = PhaseVerify

		if res, ok := ctx.Item.(*reduction.Result); ok {
			p.CurrentSize = res.Set.Len()
		}
	case reduction.HookPosAnomaly:
		p.Anomalies++
	}
}

// SetPhase overrides the phase shown by the monitor.
func (m *Monitor) SetPhase(phase string) {
	m.progressLock.Lock()
	defer m.progressLock.Unlock()

	m.progress.Phase = phase
	m.progress.UpdateTime = time.Now()
}

// Progress returns a copy of the current progress.
func (m *Monitor) Progress() Progress {
	m.progressLock.Lock()
	defer m.progressLock.Unlock()

	return m.progress
}
