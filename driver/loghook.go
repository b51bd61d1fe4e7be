package driver

import (
	"log"

	"github.com/sarchlab/evset/addrset"
	"github.com/sarchlab/evset/candidate"
	"github.com/sarchlab/evset/hooking"
	"github.com/sarchlab/evset/reduction"
)

// LogHook prints the progress of a run into a logger.
type LogHook struct {
	*log.Logger

	// Verbose also prints every oracle probe.
	Verbose bool
}

// NewLogHook returns a LogHook that writes into logger.
func NewLogHook(logger *log.Logger) *LogHook {
	return &LogHook{Logger: logger}
}

// Func writes the hook information into the logger.
func (h *LogHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case HookPosEmptySetEvicts:
		h.Print("Warning: the target is evicted without accessing any " +
			"address, the oracle may be miscalibrated")
	case candidate.HookPosPoolGenerated:
		detail := ctx.Detail.(candidate.PoolDetail)
		h.Printf("Generated %d candidates with stride 0x%x in %d bytes at 0x%x",
			ctx.Item.(*addrset.AddressSet).Len(),
			detail.Stride, detail.Bytes, detail.Base)
	case HookPosPoolRejected:
		detail := ctx.Detail.(PoolAttempt)
		h.Printf("Pool of %d candidates does not evict the target (attempt %d/%d)",
			detail.Size, detail.Attempt, detail.MaxAttempts)
	case HookPosPoolAccepted:
		h.Printf("Initial eviction set of %d candidates found",
			ctx.Detail.(PoolAttempt).Size)
	case reduction.HookPosProbe:
		if h.Verbose {
			detail := ctx.Detail.(reduction.ProbeDetail)
			h.Printf("Probe without subset %d of %d elements: evicted=%t",
				detail.Group, detail.CurrentSize, detail.Evicted)
		}
	case reduction.HookPosGroupRemoved:
		detail := ctx.Detail.(reduction.StepDetail)
		h.Printf("Reducing from %d to %d elements (removed subset %d)",
			detail.FromSize, detail.ToSize, detail.Group)
	case reduction.HookPosRetry:
		detail := ctx.Detail.(reduction.RetryDetail)
		h.Printf("No subset removable at %d elements, retrying (%d/%d)",
			detail.Size, detail.Attempt, detail.MaxAttempts)
	case reduction.HookPosReduceEnd:
		res := ctx.Item.(*reduction.Result)
		if res.Minimal {
			h.Printf("Minimal eviction set of %d elements found "+
				"after %d reductions and %d probes",
				res.Set.Len(), res.Reductions, res.Probes)
		} else {
			h.Printf("Reduction stopped at %d elements after %d retries",
				res.Set.Len(), res.Retries)
		}
	case reduction.HookPosAnomaly:
		anomaly := ctx.Detail.(reduction.Anomaly)
		h.Printf("Warning: element %d (0x%x) is not needed for the eviction",
			anomaly.Index, anomaly.Address)
	case HookPosRunEnd:
		report := ctx.Item.(*Report)
		if !report.Verification.StillEvicts {
			h.Print("Warning: the reduced set no longer evicts the target")
		}
	}
}
