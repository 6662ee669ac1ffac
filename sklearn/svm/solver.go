package svm

import (
	"math"
)

const tau = 1e-12

// smoSolver solves the epsilon-SVR dual in the 2l-variable form used by
// LIBSVM: minimize ½αᵀQα + pᵀα subject to yᵀα = 0 and 0 ≤ α ≤ C, with
// second-order working set selection.
type smoSolver struct {
	l     int
	c     float64
	tol   float64
	cache *kernelCache

	sign  []float64 // +1 for t < l, −1 otherwise
	alpha []float64
	grad  []float64
}

func newSMOSolver(cache *kernelCache, target []float64, c, epsilon, tol float64) *smoSolver {
	l := len(target)
	s := &smoSolver{
		l:     l,
		c:     c,
		tol:   tol,
		cache: cache,
		sign:  make([]float64, 2*l),
		alpha: make([]float64, 2*l),
		grad:  make([]float64, 2*l),
	}
	for i := 0; i < l; i++ {
		s.sign[i] = 1
		s.sign[i+l] = -1
		s.grad[i] = epsilon - target[i]
		s.grad[i+l] = epsilon + target[i]
	}
	return s
}

func (s *smoSolver) atUpper(t int) bool { return s.alpha[t] >= s.c }
func (s *smoSolver) atLower(t int) bool { return s.alpha[t] <= 0 }

// selectWorkingSet returns (-1, -1) once the KKT gap is below tol.
func (s *smoSolver) selectWorkingSet() (int, int) {
	gmax, gmax2 := math.Inf(-1), math.Inf(-1)
	i := -1
	for t := range s.alpha {
		if s.sign[t] > 0 {
			if !s.atUpper(t) && -s.grad[t] >= gmax {
				gmax, i = -s.grad[t], t
			}
		} else if !s.atLower(t) && s.grad[t] >= gmax {
			gmax, i = s.grad[t], t
		}
	}
	if i < 0 {
		return -1, -1
	}

	ki := s.cache.row(i % s.l)
	qdi := s.cache.diag[i%s.l]
	j := -1
	objMin := math.Inf(1)
	for t := range s.alpha {
		var gradDiff float64
		if s.sign[t] > 0 {
			if s.atLower(t) {
				continue
			}
			gradDiff = gmax + s.grad[t]
			if s.grad[t] >= gmax2 {
				gmax2 = s.grad[t]
			}
		} else {
			if s.atUpper(t) {
				continue
			}
			gradDiff = gmax - s.grad[t]
			if -s.grad[t] >= gmax2 {
				gmax2 = -s.grad[t]
			}
		}
		if gradDiff <= 0 {
			continue
		}
		quad := qdi + s.cache.diag[t%s.l] - 2*ki[t%s.l]
		if quad <= 0 {
			quad = tau
		}
		if obj := -(gradDiff * gradDiff) / quad; obj <= objMin {
			j, objMin = t, obj
		}
	}
	if gmax+gmax2 < s.tol || j < 0 {
		return -1, -1
	}
	return i, j
}

// q returns Q[t][u] = y_t·y_u·K(t mod l, u mod l) using a cached row of u.
func (s *smoSolver) q(row []float64, t, u int) float64 {
	return s.sign[t] * s.sign[u] * row[t%s.l]
}

func (s *smoSolver) update(i, j int) {
	ki := s.cache.row(i % s.l)
	kj := s.cache.row(j % s.l)
	qii := s.cache.diag[i%s.l]
	qjj := s.cache.diag[j%s.l]
	qij := s.q(ki, j, i)
	c := s.c
	oldI, oldJ := s.alpha[i], s.alpha[j]
	ai, aj := oldI, oldJ

	if s.sign[i] != s.sign[j] {
		quad := qii + qjj + 2*qij
		if quad <= 0 {
			quad = tau
		}
		delta := (-s.grad[i] - s.grad[j]) / quad
		diff := ai - aj
		ai += delta
		aj += delta
		if diff > 0 {
			if aj < 0 {
				aj, ai = 0, diff
			}
			if ai > c {
				ai, aj = c, c-diff
			}
		} else {
			if ai < 0 {
				ai, aj = 0, -diff
			}
			if aj > c {
				aj, ai = c, c+diff
			}
		}
	} else {
		quad := qii + qjj - 2*qij
		if quad <= 0 {
			quad = tau
		}
		delta := (s.grad[i] - s.grad[j]) / quad
		sum := ai + aj
		ai -= delta
		aj += delta
		if sum > c {
			if ai > c {
				ai, aj = c, sum-c
			}
			if aj > c {
				aj, ai = c, sum-c
			}
		} else {
			if aj < 0 {
				aj, ai = 0, sum
			}
			if ai < 0 {
				ai, aj = 0, sum
			}
		}
	}

	s.alpha[i], s.alpha[j] = ai, aj
	dI, dJ := ai-oldI, aj-oldJ
	for t := range s.grad {
		s.grad[t] += s.q(ki, t, i)*dI + s.q(kj, t, j)*dJ
	}
}

// solve iterates until convergence or maxIter updates. It reports the
// number of updates and whether the tolerance was met.
func (s *smoSolver) solve(maxIter int) (int, bool) {
	for it := 0; it < maxIter; it++ {
		i, j := s.selectWorkingSet()
		if i < 0 {
			return it, true
		}
		s.update(i, j)
	}
	return maxIter, false
}

// rho is the offset b = −rho of the decision function.
func (s *smoSolver) rho() float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var sumFree float64
	nFree := 0
	for t := range s.alpha {
		yG := s.sign[t] * s.grad[t]
		switch {
		case s.atUpper(t):
			if s.sign[t] < 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		case s.atLower(t):
			if s.sign[t] > 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		default:
			nFree++
			sumFree += yG
		}
	}
	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}

// coefficients returns α_i − α*_i per training sample.
func (s *smoSolver) coefficients() []float64 {
	out := make([]float64, s.l)
	for i := range out {
		out[i] = s.alpha[i] - s.alpha[i+s.l]
	}
	return out
}
