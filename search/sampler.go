package search

import (
	"math"
	"math/rand/v2"
	"sync"
)

// Sampler proposes the internal value of one parameter given the trials
// finished so far.
type Sampler interface {
	Sample(history []FrozenTrial, name string, dist Distribution) float64
}

// RandomSampler draws every parameter independently and uniformly (in log
// space for log distributions).
type RandomSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSampler returns a sampler seeded with seed.
func NewRandomSampler(seed int64) *RandomSampler {
	return &RandomSampler{rng: newRNG(seed)}
}

func newRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

// Sample implements Sampler.
func (s *RandomSampler) Sample(_ []FrozenTrial, _ string, dist Distribution) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sampleUniform(s.rng, dist)
}

func sampleUniform(rng *rand.Rand, dist Distribution) float64 {
	switch d := dist.(type) {
	case FloatDistribution:
		if d.Low == d.High {
			return d.Low
		}
		if d.Log {
			lo, hi := math.Log(d.Low), math.Log(d.High)
			return math.Exp(lo + rng.Float64()*(hi-lo))
		}
		return d.Low + rng.Float64()*(d.High-d.Low)
	case IntDistribution:
		return float64(d.Low + rng.IntN(d.High-d.Low+1))
	case CategoricalDistribution:
		return float64(rng.IntN(len(d.Choices)))
	}
	panic("search: unsupported distribution")
}
