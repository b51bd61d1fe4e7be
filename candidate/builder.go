package candidate

import (
	"math/rand"

	"github.com/sarchlab/evset/config"
	"github.com/sarchlab/evset/hooking"
)

// Builder can build candidate generators.
type Builder struct {
	cfg       config.CacheConfig
	rng       *rand.Rand
	allocator Allocator
}

// MakeBuilder creates a builder with the default cache geometry and a
// generator seeded with the default seed.
func MakeBuilder() Builder {
	return Builder{
		cfg:       config.DefaultCacheConfig(),
		allocator: DefaultAllocator(),
	}
}

// WithCacheConfig sets the cache geometry that determines the stride.
func (b Builder) WithCacheConfig(cfg config.CacheConfig) Builder {
	b.cfg = cfg
	return b
}

// WithRand sets the random source used to shuffle the candidates.
func (b Builder) WithRand(rng *rand.Rand) Builder {
	b.rng = rng
	return b
}

// WithSeed seeds a new random source used to shuffle the candidates.
func (b Builder) WithSeed(seed int64) Builder {
	b.rng = rand.New(rand.NewSource(seed))
	return b
}

// WithAllocator sets where pool memory comes from.
func (b Builder) WithAllocator(a Allocator) Builder {
	b.allocator = a
	return b
}

func (b Builder) parametersMustBeValid() {
	if err := b.cfg.Validate(); err != nil {
		panic(err)
	}

	if b.allocator == nil {
		panic("allocator is not set")
	}
}

// Build creates the generator.
func (b Builder) Build() *Generator {
	b.parametersMustBeValid()

	rng := b.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(config.DefaultSeed))
	}

	return &Generator{
		HookableBase: hooking.NewHookableBase(),
		cfg:          b.cfg,
		rng:          rng,
		allocator:    b.allocator,
	}
}
