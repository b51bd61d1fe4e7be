package candidate_test

import (
	"errors"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/evset/addrset"
	"github.com/sarchlab/evset/candidate"
	"github.com/sarchlab/evset/config"
	"github.com/sarchlab/evset/hooking"
)

type failingAllocator struct{}

func (failingAllocator) Allocate(int, uintptr) (*candidate.Region, error) {
	return nil, errors.Join(candidate.ErrAllocation, errors.New("out of memory"))
}

func sortedAddresses(s *addrset.AddressSet) []uintptr {
	addrs := append([]uintptr(nil), s.Addresses()...)
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	return addrs
}

var _ = Describe("Generator", func() {
	var (
		cfg    config.CacheConfig
		gen    *candidate.Generator
		target *candidate.Region
	)

	BeforeEach(func() {
		cfg = config.DefaultCacheConfig()
		gen = candidate.MakeBuilder().
			WithCacheConfig(cfg).
			WithAllocator(candidate.HeapAllocator{}).
			WithSeed(1).
			Build()

		var err error
		target, err = gen.AllocateTarget()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(target.Release()).To(Succeed())
	})

	It("should fill the target line", func() {
		Expect(target.Len()).To(Equal(64))
		Expect(target.Base() % 64).To(BeZero())
		Expect(target.Bytes()).To(HaveEach(candidate.TargetSentinel))
	})

	It("should generate congruent candidates one stride apart", func() {
		pool, err := gen.Generate(target.Base(), 128)
		Expect(err).NotTo(HaveOccurred())
		defer pool.Release()

		Expect(pool.Len()).To(Equal(128))
		Expect(pool.Ownership()).To(Equal(addrset.Owning))

		sorted := sortedAddresses(pool)
		for i, addr := range sorted {
			Expect(cfg.SetIndex(addr)).To(Equal(cfg.SetIndex(target.Base())))
			Expect(uint64(addr) % cfg.LineSize).To(BeZero())

			if i > 0 {
				Expect(uint64(addr - sorted[i-1])).To(Equal(cfg.Stride()))
			}
		}
	})

	It("should keep every candidate inside the pool", func() {
		pool, err := gen.Generate(target.Base(), 64)
		Expect(err).NotTo(HaveOccurred())
		defer pool.Release()

		region := pool.Backing()
		Expect(region).NotTo(BeNil())

		for _, addr := range pool.Addresses() {
			Expect(addr).To(BeNumerically(">=", region.Base()))
			Expect(addr).To(BeNumerically("<", region.Base()+uintptr(region.Len())))
		}
	})

	It("should fill the pool with the sentinel", func() {
		pool, err := gen.Generate(target.Base(), 16)
		Expect(err).NotTo(HaveOccurred())
		defer pool.Release()

		region := pool.Backing().(*candidate.Region)
		Expect(region.Bytes()).To(HaveEach(candidate.PoolSentinel))
	})

	It("should shuffle reproducibly for a seed", func() {
		other := candidate.MakeBuilder().
			WithCacheConfig(cfg).
			WithAllocator(candidate.HeapAllocator{}).
			WithSeed(1).
			Build()

		a, err := gen.Generate(target.Base(), 32)
		Expect(err).NotTo(HaveOccurred())
		defer a.Release()

		b, err := other.Generate(target.Base(), 32)
		Expect(err).NotTo(HaveOccurred())
		defer b.Release()

		base := a.Backing().Base()
		offsetsA := []uintptr{}
		for _, addr := range a.Addresses() {
			offsetsA = append(offsetsA, addr-base)
		}

		base = b.Backing().Base()
		offsetsB := []uintptr{}
		for _, addr := range b.Addresses() {
			offsetsB = append(offsetsB, addr-base)
		}

		Expect(offsetsA).To(Equal(offsetsB))
		Expect(a.Addresses()).NotTo(Equal(sortedAddresses(a)))
	})

	It("should raise a hook for each pool", func() {
		var detail candidate.PoolDetail
		gen.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			Expect(ctx.Pos).To(BeIdenticalTo(candidate.HookPosPoolGenerated))
			detail = ctx.Detail.(candidate.PoolDetail)
		}))

		pool, err := gen.Generate(target.Base(), 8)
		Expect(err).NotTo(HaveOccurred())
		defer pool.Release()

		Expect(detail.Target).To(Equal(target.Base()))
		Expect(detail.Stride).To(Equal(cfg.Stride()))
		Expect(detail.Bytes).To(Equal(9 * int(cfg.Stride())))
	})

	It("should report allocation failures", func() {
		failing := candidate.MakeBuilder().
			WithAllocator(failingAllocator{}).
			Build()

		_, err := failing.Generate(target.Base(), 8)

		Expect(errors.Is(err, candidate.ErrAllocation)).To(BeTrue())
	})

	It("should reject empty pools", func() {
		_, err := gen.Generate(target.Base(), 0)

		Expect(errors.Is(err, candidate.ErrAllocation)).To(BeTrue())
	})

	It("should panic on an invalid geometry", func() {
		cfg.Associativity = 0

		Expect(func() {
			candidate.MakeBuilder().WithCacheConfig(cfg).Build()
		}).To(Panic())
	})
})
