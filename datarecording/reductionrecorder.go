package datarecording

import (
	"github.com/sarchlab/evset/candidate"
	"github.com/sarchlab/evset/hooking"
	"github.com/sarchlab/evset/reduction"
)

// Table names used by the ReductionRecorder.
const (
	ProbeTable   = "probe"
	StepTable    = "step"
	RetryTable   = "retry"
	AnomalyTable = "anomaly"
	PoolTable    = "pool"
)

// ProbeEntry is a row of the probe table.
type ProbeEntry struct {
	RunID       string
	Seq         int
	Pass        int
	Group       int
	CurrentSize int
	ProbedSize  int
	Evicted     bool
}

// StepEntry is a row of the step table.
type StepEntry struct {
	RunID    string
	Step     int
	Group    int
	FromSize int
	ToSize   int
}

// RetryEntry is a row of the retry table.
type RetryEntry struct {
	RunID       string
	Size        int
	Attempt     int
	MaxAttempts int
}

// AnomalyEntry is a row of the anomaly table.
type AnomalyEntry struct {
	RunID   string
	Index   int
	Address uint64
}

// PoolEntry is a row of the pool table.
type PoolEntry struct {
	RunID  string
	Target uint64
	Base   uint64
	Stride uint64
	Bytes  int
	Size   int
}

// A ReductionRecorder is a hook that stores what generators, reducers and
// verifiers report.
type ReductionRecorder struct {
	runID    string
	recorder DataRecorder
	probes   int
}

// NewReductionRecorder creates the tables of the recorder.
func NewReductionRecorder(recorder DataRecorder, runID string) *ReductionRecorder {
	recorder.CreateTable(ProbeTable, ProbeEntry{})
	recorder.CreateTable(StepTable, StepEntry{})
	recorder.CreateTable(RetryTable, RetryEntry{})
	recorder.CreateTable(AnomalyTable, AnomalyEntry{})
	recorder.CreateTable(PoolTable, PoolEntry{})

	return &ReductionRecorder{
		runID:    runID,
		recorder: recorder,
	}
}

// Func records the hook context.
func (r *ReductionRecorder) Func(ctx hooking.HookCtx) {
	switch detail := ctx.Detail.(type) {
	case reduction.ProbeDetail:
		r.probes++
		r.recorder.InsertData(ProbeTable, ProbeEntry{
			RunID:       r.runID,
			Seq:         r.probes,
			Pass:        detail.Pass,
			Group:       detail.Group,
			CurrentSize: detail.CurrentSize,
			ProbedSize:  detail.ProbedSize,
			Evicted:     detail.Evicted,
		})
	case reduction.StepDetail:
		r.recorder.InsertData(StepTable, StepEntry{
			RunID:    r.runID,
			Step:     detail.Step,
			Group:    detail.Group,
			FromSize: detail.FromSize,
			ToSize:   detail.ToSize,
		})
	case reduction.RetryDetail:
		r.recorder.InsertData(RetryTable, RetryEntry{
			RunID:       r.runID,
			Size:        detail.Size,
			Attempt:     detail.Attempt,
			MaxAttempts: detail.MaxAttempts,
		})
	case reduction.Anomaly:
		r.recorder.InsertData(AnomalyTable, AnomalyEntry{
			RunID:   r.runID,
			Index:   detail.Index,
			Address: uint64(detail.Address),
		})
	case candidate.PoolDetail:
		size := 0
		if s, ok := ctx.Item.(interface{ Len() int }); ok {
			size = s.Len()
		}

		r.recorder.InsertData(PoolTable, PoolEntry{
			RunID:  r.runID,
			Target: uint64(detail.Target),
			Base:   uint64(detail.Base),
			Stride: detail.Stride,
			Bytes:  detail.Bytes,
			Size:   size,
		})
	}
}
