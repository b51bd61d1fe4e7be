package addrset_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/evset/addrset"
)

type fakeBacking struct {
	base     uintptr
	released int
	err      error
}

func (b *fakeBacking) Base() uintptr { return b.base }
func (b *fakeBacking) Len() int { return 4096 }

func (b *fakeBacking) Release() error {
	b.released++
	return b.err
}

func sequence(n int) []uintptr {
	addrs := make([]uintptr, n)
	for i := range addrs {
		addrs[i] = uintptr(0x1000 + i*0x40)
	}

	return addrs
}

var _ = Describe("AddressSet", func() {
	It("should start empty and owning", func() {
		s := addrset.New(4)

		Expect(s.Len()).To(Equal(0))
		Expect(s.Cap()).To(Equal(4))
		Expect(s.Ownership()).To(Equal(addrset.Owning))
		Expect(s.IsView()).To(BeFalse())
	})

	It("should not grow beyond its capacity", func() {
		s := addrset.New(2)

		Expect(s.Append(0x40)).To(Succeed())
		Expect(s.Append(0x80)).To(Succeed())
		Expect(s.Append(0xc0)).To(MatchError(addrset.ErrCapacityExceeded))
		Expect(s.Len()).To(Equal(2))
	})

	It("should copy addresses on construction", func() {
		addrs := sequence(3)
		s := addrset.FromAddresses(addrs)
		addrs[0] = 0

		Expect(s.At(0)).To(Equal(uintptr(0x1000)))
		Expect(s.Contains(0x1040)).To(BeTrue())
		Expect(s.Contains(0x2000)).To(BeFalse())
	})

	It("should remove one element", func() {
		s := addrset.FromAddresses(sequence(4))

		w := s.Without(1)

		Expect(w.Addresses()).To(Equal([]uintptr{0x1000, 0x1080, 0x10c0}))
		Expect(s.Len()).To(Equal(4))
	})

	It("should release the backing region exactly once", func() {
		b := &fakeBacking{base: 0x1000}
		s := addrset.FromAddresses(sequence(2))
		s.AttachBacking(b)

		Expect(s.Backing()).To(BeIdenticalTo(b))
		Expect(s.Release()).To(Succeed())
		Expect(s.Release()).To(Succeed())
		Expect(b.released).To(Equal(1))
		Expect(s.Released()).To(BeTrue())
		Expect(s.Len()).To(Equal(0))
	})

	It("should report backing release errors", func() {
		b := &fakeBacking{err: errors.New("munmap failed")}
		s := addrset.New(1)
		s.AttachBacking(b)

		Expect(s.Release()).To(MatchError("munmap failed"))
	})

	It("should not let a clone own the backing region", func() {
		b := &fakeBacking{}
		s := addrset.FromAddresses(sequence(2))
		s.AttachBacking(b)

		c := s.Clone()

		Expect(c.Backing()).To(BeNil())
		Expect(c.Release()).To(Succeed())
		Expect(b.released).To(Equal(0))
	})

	It("should panic when attaching two backing regions", func() {
		s := addrset.New(1)
		s.AttachBacking(&fakeBacking{})

		Expect(func() { s.AttachBacking(&fakeBacking{}) }).To(Panic())
	})

	It("should print the addresses", func() {
		s := addrset.FromAddresses([]uintptr{0x40, 0x80})

		Expect(s.String()).To(Equal("owning set size=2 capacity=2 [0x40 0x80]"))
	})
})

var _ = Describe("Partition", func() {
	It("should split evenly with the remainder in the first groups", func() {
		s := addrset.FromAddresses(sequence(10))

		groups := s.Partition(4)

		Expect(groups).To(HaveLen(4))
		Expect(groups[0].Len()).To(Equal(3))
		Expect(groups[1].Len()).To(Equal(3))
		Expect(groups[2].Len()).To(Equal(2))
		Expect(groups[3].Len()).To(Equal(2))
		Expect(groups[0].At(0)).To(Equal(s.At(0)))
		Expect(groups[2].At(0)).To(Equal(s.At(6)))
	})

	DescribeTable("should be fair for any size",
		func(n, groupCount int) {
			s := addrset.FromAddresses(sequence(n))

			total := 0
			for _, g := range s.Partition(groupCount) {
				Expect(g.Len()).To(BeElementOf(n/groupCount, n/groupCount+1))
				Expect(g.IsView()).To(BeTrue())
				total += g.Len()
			}

			Expect(total).To(Equal(n))
		},
		Entry("128 into 9", 128, 9),
		Entry("9 into 9", 9, 9),
		Entry("5 into 9", 5, 9),
		Entry("1000 into 17", 1000, 17),
		Entry("0 into 3", 0, 3),
	)

	It("should not let views be released", func() {
		s := addrset.FromAddresses(sequence(4))
		groups := s.Partition(2)

		Expect(groups[0].Release()).To(MatchError(addrset.ErrReleaseView))
		Expect(s.Len()).To(Equal(4))
	})

	It("should not let views grow into the next group", func() {
		s := addrset.FromAddresses(sequence(4))
		groups := s.Partition(2)

		Expect(func() { _ = groups[0].Append(0x0) }).To(Panic())
		Expect(s.At(2)).To(Equal(uintptr(0x1080)))
	})

	It("should build the set without one group", func() {
		s := addrset.FromAddresses(sequence(7))
		groups := s.Partition(3)

		out := addrset.WithoutGroup(groups, 1)

		Expect(out.Ownership()).To(Equal(addrset.Owning))
		Expect(out.Addresses()).To(Equal([]uintptr{
			0x1000, 0x1040, 0x1040 + 0x40,
			0x1000 + 5*0x40, 0x1000 + 6*0x40,
		}))
	})

	It("should invalidate views when the parent is released", func() {
		s := addrset.FromAddresses(sequence(4))
		groups := s.Partition(2)

		Expect(groups[0].Valid()).To(BeTrue())
		Expect(s.Release()).To(Succeed())
		Expect(groups[0].Valid()).To(BeFalse())
		Expect(func() { addrset.WithoutGroup(groups, 0) }).To(Panic())
	})
})
