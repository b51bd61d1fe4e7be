package driver_test

import (
	"bytes"
	"fmt"
	"log"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/evset/addrset"
	"github.com/sarchlab/evset/candidate"
	"github.com/sarchlab/evset/config"
	"github.com/sarchlab/evset/driver"
	"github.com/sarchlab/evset/hooking"
	"github.com/sarchlab/evset/oracle"
)

type failingAllocator struct{}

func (failingAllocator) Allocate(int, uintptr) (*candidate.Region, error) {
	return nil, fmt.Errorf("%w: out of memory", candidate.ErrAllocation)
}

func smallRun() config.Run {
	run := config.DefaultRun()
	run.Cache.Size = 64 * 1024
	run.Levels = []config.Level{
		{Name: "L1", Size: 8 * 1024, Associativity: 8, LineSize: 64},
		{Name: "L2", Size: 64 * 1024, Associativity: 8, LineSize: 64},
	}
	run.Pool.OuterAttempts = 3

	return run
}

var _ = Describe("Driver", func() {
	var (
		builder driver.Builder
		target  uintptr
	)

	BeforeEach(func() {
		builder = driver.MakeBuilder().
			WithAllocator(candidate.HeapAllocator{}).
			WithSleepFunc(func(time.Duration) {})
		target = 0x7f0000001040
	})

	It("should panic without an oracle", func() {
		Expect(func() { builder.Build() }).To(Panic())
	})

	It("should panic on an invalid run", func() {
		run := smallRun()
		run.Pool.InitialCandidates = 4

		Expect(func() {
			builder.WithRun(run).WithOracle(oracle.Func(
				func(*addrset.AddressSet, *oracle.TestContext) bool { return true },
			)).Build()
		}).To(Panic())
	})

	It("should stop before reducing when no pool evicts", func() {
		var sizes []int

		d := builder.
			WithRun(smallRun()).
			WithOracle(oracle.Func(
				func(*addrset.AddressSet, *oracle.TestContext) bool { return false },
			)).
			Build()
		d.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			switch ctx.Pos {
			case driver.HookPosPoolRejected:
				sizes = append(sizes, ctx.Detail.(driver.PoolAttempt).Size)
			case driver.HookPosRunEnd:
				Fail("the run should not end normally")
			}
		}))

		report, err := d.Run(target)

		Expect(err).To(MatchError(driver.ErrNoInitialEvictionSet))
		Expect(report).To(BeNil())
		Expect(sizes).To(Equal([]int{128, 256, 512}))
	})

	It("should double the pool until it evicts", func() {
		d := builder.
			WithRun(smallRun()).
			WithOracle(oracle.Func(
				func(s *addrset.AddressSet, _ *oracle.TestContext) bool {
					return s.Len() >= 300
				},
			)).
			Build()

		report, err := d.Run(target)
		Expect(err).NotTo(HaveOccurred())

		defer report.Release()

		Expect(report.PoolAttempts).To(Equal(3))
		Expect(report.Pool.Len()).To(Equal(512))
		Expect(report.Result.Minimal).To(BeFalse())
		Expect(report.Result.Set.Len()).To(BeNumerically(">=", 300))
		Expect(report.Minimal()).To(BeFalse())
	})

	It("should warn when the empty set evicts", func() {
		warned := false

		d := builder.
			WithRun(smallRun()).
			WithOracle(oracle.Func(
				func(*addrset.AddressSet, *oracle.TestContext) bool { return true },
			)).
			Build()
		d.AcceptHook(hooking.OnPos(func(hooking.HookCtx) {
			warned = true
		}, driver.HookPosEmptySetEvicts))

		report, err := d.Run(target)
		Expect(err).NotTo(HaveOccurred())

		defer report.Release()

		Expect(warned).To(BeTrue())
		Expect(report.EmptySetEvicts).To(BeTrue())
		Expect(report.Result.Set.Len()).To(Equal(8))
		Expect(report.Verification.Anomalies).To(HaveLen(8))
		Expect(report.Minimal()).To(BeFalse())
	})

	It("should return allocation failures", func() {
		d := builder.
			WithAllocator(failingAllocator{}).
			WithOracle(oracle.Func(
				func(*addrset.AddressSet, *oracle.TestContext) bool { return true },
			)).
			Build()

		_, err := d.Run(target)

		Expect(err).To(MatchError(candidate.ErrAllocation))
	})

	Context("with a simulated cache", func() {
		var (
			run config.Run
			d   *driver.Driver
			out *bytes.Buffer
		)

		BeforeEach(func() {
			run = config.DefaultRun()

			sim, err := oracle.NewSimulatedOracle(run.Levels, run.TestedLevel)
			Expect(err).NotTo(HaveOccurred())

			d = builder.WithRun(run).WithOracle(sim).Build()

			out = new(bytes.Buffer)
			d.AcceptHook(driver.NewLogHook(log.New(out, "", 0)))
		})

		It("should find a minimal eviction set from 128 candidates", func() {
			region, err := d.AllocateTarget()
			Expect(err).NotTo(HaveOccurred())

			defer region.Release()

			report, err := d.Run(region.Base())
			Expect(err).NotTo(HaveOccurred())

			defer report.Release()

			Expect(report.EmptySetEvicts).To(BeFalse())
			Expect(report.PoolAttempts).To(Equal(1))
			Expect(report.Pool.Len()).To(Equal(128))
			Expect(report.Minimal()).To(BeTrue())
			Expect(report.Result.Set.Len()).To(Equal(8))

			targetSet := run.Cache.SetIndex(region.Base())
			for _, a := range report.Result.Set.Addresses() {
				Expect(run.Cache.SetIndex(a)).To(Equal(targetSet))
				Expect(report.Pool.Contains(a)).To(BeTrue())
			}

			Expect(out.String()).To(ContainSubstring("Initial eviction set of 128 candidates found"))
			Expect(out.String()).To(ContainSubstring("Reducing from 128 to"))
			Expect(out.String()).To(ContainSubstring("Minimal eviction set of 8 elements found"))
			Expect(out.String()).NotTo(ContainSubstring("Warning"))
		})

		It("should describe the set in a dump", func() {
			report, err := d.Run(target)
			Expect(err).NotTo(HaveOccurred())

			defer report.Release()

			dmp := report.Dump(run.Seed, run.Cache)

			Expect(dmp.MinimalCount()).To(Equal(8))
			Expect(dmp.Stride).To(Equal(uint64(32 * 1024)))
			Expect(dmp.CandidatePoolSize).To(Equal(uint64(128)))
			Expect(dmp.PoolSize).To(Equal(uint64(report.PoolBytes)))

			for i, e := range dmp.Entries {
				Expect(e.HasOffset).To(BeTrue())
				Expect(e.Address).To(Equal(uint64(report.Result.Set.At(i))))
				Expect(e.Address % dmp.Stride).To(Equal(uint64(target) % dmp.Stride))
				Expect(e.Offset).To(BeNumerically("<", dmp.PoolSize))
			}
		})
	})
})
