package reduction

import (
	"github.com/sarchlab/evset/addrset"
	"github.com/sarchlab/evset/hooking"
	"github.com/sarchlab/evset/oracle"
)

// HookPosAnomaly is raised for every address whose removal does not stop the
// eviction. Item is the audited set and Detail an Anomaly.
var HookPosAnomaly = &hooking.HookPos{Name: "Anomaly"}

// An Anomaly is an element of a supposedly minimal set that could be
// dropped without losing the eviction. Either the set is not minimal or the
// oracle produced a false positive.
type Anomaly struct {
	Index   int
	Address uintptr
}

// A Verification is the audit of a reduced set.
type Verification struct {
	StillEvicts bool
	Anomalies   []Anomaly
}

// Minimal returns true when the set evicts and no element is redundant.
func (v Verification) Minimal() bool {
	return v.StillEvicts && len(v.Anomalies) == 0
}

// A Verifier audits reduction results with leave-one-out probes.
type Verifier struct {
	*hooking.HookableBase

	oracle oracle.Oracle
}

// Verify checks that set evicts and that removing any single element stops
// the eviction. The set is not modified.
func (v *Verifier) Verify(
	set *addrset.AddressSet,
	ctx *oracle.TestContext,
) Verification {
	res := Verification{
		StillEvicts: v.oracle.Test(set, ctx),
	}

	for k := 0; k < set.Len(); k++ {
		without := set.Without(k)

		if v.oracle.Test(without, ctx) {
			anomaly := Anomaly{Index: k, Address: set.At(k)}
			res.Anomalies = append(res.Anomalies, anomaly)

			v.InvokeHook(hooking.HookCtx{
				Domain: v,
				Pos:    HookPosAnomaly,
				Item:   set,
				Detail: anomaly,
			})
		}

		_ = without.Release()
	}

	return res
}
