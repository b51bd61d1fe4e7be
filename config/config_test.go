package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/evset/config"
)

var _ = Describe("CacheConfig", func() {
	It("should derive the stride of the default geometry", func() {
		cfg := config.DefaultCacheConfig()

		Expect(cfg.Validate()).To(Succeed())
		Expect(cfg.NumSets()).To(Equal(uint64(512)))
		Expect(cfg.Stride()).To(Equal(uint64(32 * 1024)))
	})

	It("should map congruent addresses to the same set", func() {
		cfg := config.DefaultCacheConfig()
		stride := uintptr(cfg.Stride())

		Expect(cfg.SetIndex(0x1040)).To(Equal(uint64(0x41)))
		Expect(cfg.SetIndex(0x1040 + 3*stride)).To(Equal(cfg.SetIndex(0x1040)))
		Expect(cfg.SetIndex(0x1080)).NotTo(Equal(cfg.SetIndex(0x1040)))
	})

	DescribeTable("should reject unusable geometries",
		func(mutate func(*config.CacheConfig)) {
			cfg := config.DefaultCacheConfig()
			mutate(&cfg)

			Expect(cfg.Validate()).To(MatchError(config.ErrInvalidCacheConfig))
		},
		Entry("zero associativity", func(c *config.CacheConfig) { c.Associativity = 0 }),
		Entry("odd line size", func(c *config.CacheConfig) { c.LineSize = 48 }),
		Entry("zero page size", func(c *config.CacheConfig) { c.PageSize = 0 }),
		Entry("size not a multiple of a way", func(c *config.CacheConfig) { c.Size = 1000 }),
		Entry("set count not a power of two", func(c *config.CacheConfig) { c.Size = 3 * 64 * 8 }),
	)

	It("should drop the backoff on request", func() {
		p := config.DefaultRetryPolicy().NoDelay()

		Expect(p.MaxAttempts).To(Equal(3))
		Expect(p.Backoff).To(BeZero())
	})
})

var _ = Describe("Run", func() {
	It("should accept the defaults", func() {
		Expect(config.DefaultRun().Validate()).To(Succeed())
	})

	DescribeTable("should reject inconsistent runs",
		func(mutate func(*config.Run)) {
			run := config.DefaultRun()
			mutate(&run)

			Expect(run.Validate()).To(MatchError(config.ErrInvalidCacheConfig))
		},
		Entry("negative retries", func(r *config.Run) { r.Retry.MaxAttempts = -1 }),
		Entry("pool not above associativity", func(r *config.Run) { r.Pool.InitialCandidates = 8 }),
		Entry("no outer attempts", func(r *config.Run) { r.Pool.OuterAttempts = 0 }),
		Entry("tested level out of range", func(r *config.Run) { r.TestedLevel = 3 }),
		Entry("broken level", func(r *config.Run) { r.Levels[0].Size = 100 }),
	)

	It("should explain that the pool must exceed the associativity", func() {
		run := config.DefaultRun()
		run.Pool.InitialCandidates = 8

		Expect(run.Validate()).To(MatchError(
			ContainSubstring("8 initial candidates must exceed associativity 8")))
	})

	Context("when loading a file", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		write := func(content string) string {
			path := filepath.Join(dir, "run.toml")
			Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())

			return path
		}

		It("should keep defaults for missing keys", func() {
			run, err := config.LoadFile(write(`
[retry]
max_attempts = 5
backoff = "10ms"
`))

			Expect(err).NotTo(HaveOccurred())
			Expect(run.Retry).To(Equal(config.RetryPolicy{
				MaxAttempts: 5,
				Backoff:     10 * time.Millisecond,
			}))
			Expect(run.Cache).To(Equal(config.DefaultCacheConfig()))
			Expect(run.Levels).To(Equal(config.DefaultLevels()))
			Expect(run.Seed).To(Equal(int64(config.DefaultSeed)))
		})

		It("should replace the levels", func() {
			run, err := config.LoadFile(write(`
tested_level = 1

[[levels]]
name = "LLC"
size = 1048576
associativity = 16
line_size = 64
`))

			Expect(err).NotTo(HaveOccurred())
			Expect(run.TestedLevel).To(Equal(1))
			Expect(run.Levels).To(HaveLen(1))
			Expect(run.Levels[0].NumSets()).To(Equal(uint64(1024)))
		})

		It("should report malformed durations", func() {
			_, err := config.LoadFile(write(`
[retry]
backoff = "later"
`))

			Expect(err).To(MatchError(ContainSubstring("retry backoff")))
		})

		It("should report missing files", func() {
			_, err := config.LoadFile(filepath.Join(dir, "missing.toml"))

			Expect(err).To(MatchError(os.ErrNotExist))
		})
	})
})
