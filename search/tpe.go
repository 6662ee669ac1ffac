package search

import (
	"math"
	"math/rand/v2"
	"sort"
	"sync"
)

// TPE defaults, matching Optuna.
const (
	DefaultStartupTrials = 10
	DefaultEICandidates  = 24
)

// TPEOption configures a TPESampler.
type TPEOption func(*TPESampler)

// WithStartupTrials sets how many trials are sampled at random before the
// Parzen estimators are used.
func WithStartupTrials(n int) TPEOption {
	return func(s *TPESampler) { s.startupTrials = n }
}

// WithEICandidates sets how many candidates are drawn from l(x) per
// parameter.
func WithEICandidates(n int) TPEOption {
	return func(s *TPESampler) { s.eiCandidates = n }
}

// TPESampler is the independent Tree-structured Parzen Estimator. For each
// parameter, finished trials containing it are split by value into a good
// group (the best γ(n) = min(⌈0.1n⌉, 25)) and the rest. Candidates drawn from
// the good group's density l(x) are ranked by l(x)/g(x).
type TPESampler struct {
	mu            sync.Mutex
	rng           *rand.Rand
	startupTrials int
	eiCandidates  int
}

// NewTPESampler returns a TPE sampler seeded with seed.
func NewTPESampler(seed int64, opts ...TPEOption) *TPESampler {
	s := &TPESampler{
		rng:           newRNG(seed),
		startupTrials: DefaultStartupTrials,
		eiCandidates:  DefaultEICandidates,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func tpeGamma(n int) int {
	return min(int(math.Ceil(0.1*float64(n))), 25)
}

type observation struct {
	number int
	value  float64
	param  float64
}

// Sample implements Sampler.
func (s *TPESampler) Sample(history []FrozenTrial, name string, dist Distribution) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	finished := 0
	var obs []observation
	for _, ft := range history {
		if ft.State != TrialComplete && ft.State != TrialFail {
			continue
		}
		finished++
		v, ok := ft.internal[name]
		if !ok || !sameDistribution(ft.Distributions[name], dist) {
			continue
		}
		obs = append(obs, observation{number: ft.Number, value: ft.Value, param: v})
	}
	if finished < s.startupTrials || len(obs) == 0 {
		return sampleUniform(s.rng, dist)
	}

	below, above := splitObservations(obs)

	switch d := dist.(type) {
	case CategoricalDistribution:
		l := newCategoricalParzen(below, len(d.Choices))
		g := newCategoricalParzen(above, len(d.Choices))
		return s.bestCandidate(l.sample, l.logPDF, g.logPDF)
	case FloatDistribution:
		if d.Low == d.High {
			return d.Low
		}
		low, high := d.Low, d.High
		transform := func(x float64) float64 { return x }
		inverse := transform
		if d.Log {
			low, high = math.Log(low), math.Log(high)
			transform, inverse = math.Log, math.Exp
		}
		l := newNumericParzen(mapSlice(below, transform), low, high)
		g := newNumericParzen(mapSlice(above, transform), low, high)
		return clamp(inverse(s.bestCandidate(l.sample, l.logPDF, g.logPDF)), d.Low, d.High)
	case IntDistribution:
		if d.Low == d.High {
			return float64(d.Low)
		}
		low, high := float64(d.Low)-0.5, float64(d.High)+0.5
		l := newNumericParzen(below, low, high)
		g := newNumericParzen(above, low, high)
		x := math.Round(s.bestCandidate(l.sample, l.logPDF, g.logPDF))
		return clamp(x, float64(d.Low), float64(d.High))
	}
	return sampleUniform(s.rng, dist)
}

func (s *TPESampler) bestCandidate(sample func(*rand.Rand) float64, logL, logG func(float64) float64) float64 {
	best := math.NaN()
	bestScore := math.Inf(-1)
	for i := 0; i < s.eiCandidates; i++ {
		x := sample(s.rng)
		score := logL(x) - logG(x)
		if math.IsNaN(best) || score > bestScore {
			best, bestScore = x, score
		}
	}
	return best
}

// splitObservations returns the parameter values of the γ(n) best and the
// remaining observations, each in trial order.
func splitObservations(obs []observation) (below, above []float64) {
	byValue := append([]observation(nil), obs...)
	sort.SliceStable(byValue, func(i, j int) bool {
		if byValue[i].value != byValue[j].value {
			return byValue[i].value < byValue[j].value
		}
		return byValue[i].number < byValue[j].number
	})
	nBelow := tpeGamma(len(obs))
	good := byValue[:nBelow]
	rest := byValue[nBelow:]
	byNumber := func(o []observation) []float64 {
		sort.SliceStable(o, func(i, j int) bool { return o[i].number < o[j].number })
		out := make([]float64, len(o))
		for i, x := range o {
			out[i] = x.param
		}
		return out
	}
	return byNumber(good), byNumber(rest)
}

func mapSlice(v []float64, f func(float64) float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = f(x)
	}
	return out
}
