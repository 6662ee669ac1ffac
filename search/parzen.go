package search

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

const priorWeight = 1.0

// tpeWeights gives recent observations more weight once there are more
// than 25 of them. obs must be in trial order.
func tpeWeights(n int) []float64 {
	w := make([]float64, n)
	if n < 25 {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	ramp := n - 25
	for i := 0; i < ramp; i++ {
		if ramp == 1 {
			w[i] = 1 / float64(n)
		} else {
			w[i] = 1/float64(n) + float64(i)*(1-1/float64(n))/float64(ramp-1)
		}
	}
	for i := ramp; i < n; i++ {
		w[i] = 1
	}
	return w
}

// numericParzen is a truncated Gaussian mixture over [low, high] with one
// component per observation plus a wide prior component.
type numericParzen struct {
	low, high float64
	weights   []float64
	mus       []float64
	sigmas    []float64
}

func newNumericParzen(obs []float64, low, high float64) *numericParzen {
	mus := append(append([]float64(nil), obs...), 0.5*(low+high))
	n := len(mus)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return mus[order[a]] < mus[order[b]] })

	sorted := make([]float64, n+2)
	sorted[0], sorted[n+1] = low, high
	for i, idx := range order {
		sorted[i+1] = mus[idx]
	}
	sigmaSorted := make([]float64, n)
	for i := 0; i < n; i++ {
		sigmaSorted[i] = math.Max(sorted[i+1]-sorted[i], sorted[i+2]-sorted[i+1])
	}
	// endpoints are not treated as neighbours
	if n >= 2 {
		sigmaSorted[0] = sorted[2] - sorted[1]
		sigmaSorted[n-1] = sorted[n] - sorted[n-1]
	}

	maxSigma := high - low
	minSigma := maxSigma / math.Min(100, 1+float64(n))
	sigmas := make([]float64, n)
	for i, idx := range order {
		sigmas[idx] = clamp(sigmaSorted[i], minSigma, maxSigma)
	}
	sigmas[n-1] = maxSigma

	weights := append(tpeWeights(len(obs)), priorWeight)
	floats.Scale(1/floats.Sum(weights), weights)

	return &numericParzen{low: low, high: high, weights: weights, mus: mus, sigmas: sigmas}
}

func pickComponent(rng *rand.Rand, weights []float64) int {
	u := rng.Float64()
	var acc float64
	for i, w := range weights {
		acc += w
		if u < acc {
			return i
		}
	}
	return len(weights) - 1
}

func (p *numericParzen) sample(rng *rand.Rand) float64 {
	k := pickComponent(rng, p.weights)
	mu, sigma := p.mus[k], p.sigmas[k]
	if sigma <= 0 {
		return clamp(mu, p.low, p.high)
	}
	a := distuv.UnitNormal.CDF((p.low - mu) / sigma)
	b := distuv.UnitNormal.CDF((p.high - mu) / sigma)
	if b-a < 1e-300 {
		return clamp(mu, p.low, p.high)
	}
	u := a + rng.Float64()*(b-a)
	return clamp(mu+sigma*distuv.UnitNormal.Quantile(u), p.low, p.high)
}

func (p *numericParzen) logPDF(x float64) float64 {
	terms := make([]float64, 0, len(p.mus))
	for k, mu := range p.mus {
		sigma := p.sigmas[k]
		if sigma <= 0 || p.weights[k] == 0 {
			continue
		}
		mass := distuv.UnitNormal.CDF((p.high-mu)/sigma) - distuv.UnitNormal.CDF((p.low-mu)/sigma)
		if mass <= 0 {
			continue
		}
		z := (x - mu) / sigma
		terms = append(terms, math.Log(p.weights[k])-0.5*z*z-math.Log(sigma*math.Sqrt(2*math.Pi))-math.Log(mass))
	}
	if len(terms) == 0 {
		return math.Inf(-1)
	}
	return floats.LogSumExp(terms)
}

// categoricalParzen is a mixture of smoothed one-hot distributions plus a
// uniform prior, collapsed into one probability vector.
type categoricalParzen struct {
	probs []float64
}

func newCategoricalParzen(obs []float64, nChoices int) *categoricalParzen {
	weights := append(tpeWeights(len(obs)), priorWeight)
	floats.Scale(1/floats.Sum(weights), weights)

	probs := make([]float64, nChoices)
	base := priorWeight / float64(nChoices)
	for i, o := range obs {
		rowSum := priorWeight + 1
		for c := range probs {
			v := base
			if c == int(o) {
				v++
			}
			probs[c] += weights[i] * v / rowSum
		}
	}
	prior := weights[len(weights)-1]
	for c := range probs {
		probs[c] += prior / float64(nChoices)
	}
	return &categoricalParzen{probs: probs}
}

func (p *categoricalParzen) sample(rng *rand.Rand) float64 {
	return float64(pickComponent(rng, p.probs))
}

func (p *categoricalParzen) logPDF(x float64) float64 {
	return math.Log(p.probs[int(x)])
}
