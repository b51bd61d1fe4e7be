//go:build amd64

package oracle_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/evset/addrset"
	"github.com/sarchlab/evset/candidate"
	"github.com/sarchlab/evset/oracle"
)

var _ = Describe("TimingOracle", func() {
	var (
		o      *oracle.TimingOracle
		target *candidate.Region
	)

	BeforeEach(func() {
		var err error

		o, err = oracle.NewTimingOracle(3)
		Expect(err).NotTo(HaveOccurred())

		target, err = candidate.HeapAllocator{}.Allocate(64, 64)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(target.Release()).To(Succeed())
	})

	It("should not evict without a calibration", func() {
		ctx := &oracle.TestContext{Target: target.Base()}

		Expect(o.Test(addrset.New(0), ctx)).To(BeFalse())
	})

	It("should classify every reload as a miss with a zero threshold", func() {
		ctx := &oracle.TestContext{
			Target:      target.Base(),
			Calibration: &oracle.Calibration{MissThreshold: 0},
		}

		Expect(o.Test(addrset.New(0), ctx)).To(BeTrue())
	})

	It("should classify every reload as a hit with an unreachable threshold", func() {
		ctx := &oracle.TestContext{
			Target:      target.Base(),
			Calibration: &oracle.Calibration{MissThreshold: ^uint64(0)},
		}

		Expect(o.Test(addrset.New(0), ctx)).To(BeFalse())
	})
})
