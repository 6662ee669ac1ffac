package svm

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/core/parallel"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
)

// Option configures an SVR.
type Option func(*SVR)

// WithC sets the regularization parameter.
func WithC(c float64) Option {
	return func(s *SVR) { s.C = c }
}

// WithEpsilon sets the width of the insensitive tube.
func WithEpsilon(eps float64) Option {
	return func(s *SVR) { s.Epsilon = eps }
}

// WithKernel selects "linear" or "rbf".
func WithKernel(kernel string) Option {
	return func(s *SVR) { s.Kernel = kernel }
}

// WithGamma fixes the RBF coefficient. Zero selects 1/(p·Var(X)).
func WithGamma(gamma float64) Option {
	return func(s *SVR) { s.Gamma = gamma }
}

// WithTol sets the KKT stopping tolerance.
func WithTol(tol float64) Option {
	return func(s *SVR) { s.Tol = tol }
}

// WithMaxIter caps SMO updates. Zero picks max(1e6, 100·n).
func WithMaxIter(n int) Option {
	return func(s *SVR) { s.MaxIter = n }
}

// SVR is epsilon-insensitive support vector regression.
type SVR struct {
	C       float64
	Epsilon float64
	Kernel  string
	Gamma   float64
	Tol     float64
	MaxIter int

	SupportVectors [][]float64
	DualCoef       []float64
	Intercept      float64
	FittedGamma    float64
	NIter          int
	State          *model.StateManager
}

// NewSVR returns an SVR with scikit-learn's defaults (C=1, epsilon=0.1,
// rbf kernel, gamma="scale", tol=1e-3).
func NewSVR(opts ...Option) *SVR {
	s := &SVR{
		C:       1.0,
		Epsilon: 0.1,
		Kernel:  KernelRBF,
		Tol:     1e-3,
		State:   model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SVR) validate() error {
	switch {
	case !(s.C > 0):
		return errors.NewValidationError("C", "must be positive", s.C)
	case s.Epsilon < 0 || math.IsNaN(s.Epsilon):
		return errors.NewValidationError("epsilon", "must be non-negative", s.Epsilon)
	case s.Kernel != KernelLinear && s.Kernel != KernelRBF:
		return errors.NewValidationError("kernel", "must be linear or rbf", s.Kernel)
	case s.Gamma < 0:
		return errors.NewValidationError("gamma", "must be non-negative", s.Gamma)
	case !(s.Tol > 0):
		return errors.NewValidationError("tol", "must be positive", s.Tol)
	case s.MaxIter < 0:
		return errors.NewValidationError("max_iter", "must be non-negative", s.MaxIter)
	}
	return nil
}

// scaleGamma is 1/(p·Var(X)) over all entries, or 1 for constant X.
func scaleGamma(rows [][]float64, p int) float64 {
	all := make([]float64, 0, len(rows)*p)
	for _, r := range rows {
		all = append(all, r...)
	}
	_, variance := stat.PopMeanVariance(all, nil)
	if variance == 0 {
		return 1
	}
	return 1 / (float64(p) * variance)
}

// Fit solves the dual problem with SMO. Hitting MaxIter emits a
// ConvergenceWarning and keeps the current solution.
func (s *SVR) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "SVR.Fit")

	if err := s.validate(); err != nil {
		return err
	}
	yVec, err := model.CheckXY("SVR.Fit", X, y)
	if err != nil {
		return err
	}
	if s.State == nil {
		s.State = model.NewStateManager()
	}
	s.State.Reset()

	n, p := X.Dims()
	rows := make([][]float64, n)
	target := make([]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, X)
		target[i] = yVec.AtVec(i)
	}

	s.FittedGamma = s.Gamma
	if s.Kernel == KernelRBF && s.FittedGamma == 0 {
		s.FittedGamma = scaleGamma(rows, p)
	}

	maxIter := s.MaxIter
	if maxIter == 0 {
		maxIter = max(1_000_000, 100*n)
	}

	solver := newSMOSolver(newKernelCache(rows, newKernel(s.Kernel, s.FittedGamma)), target, s.C, s.Epsilon, s.Tol)
	nIter, converged := solver.solve(maxIter)
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("SVR", nIter, "SMO stopped before the KKT gap reached tol"))
	}

	s.SupportVectors = s.SupportVectors[:0]
	s.DualCoef = s.DualCoef[:0]
	for i, c := range solver.coefficients() {
		if c != 0 {
			s.SupportVectors = append(s.SupportVectors, rows[i])
			s.DualCoef = append(s.DualCoef, c)
		}
	}
	s.Intercept = -solver.rho()
	s.NIter = nIter
	s.State.SetDimensions(p, n)
	s.State.SetFitted()

	log.GetLoggerWithName("svm.svr").Debug("fit complete",
		log.ModelNameKey, "SVR",
		"kernel", s.Kernel,
		"n_support", len(s.DualCoef),
		log.IterationKey, nIter,
		log.SamplesKey, n,
		log.FeaturesKey, p,
	)
	return nil
}

// Predict evaluates Σ coef_i·K(sv_i, x) + intercept.
func (s *SVR) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := s.State.CheckPredictInput("SVR", X); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	k := newKernel(s.Kernel, s.FittedGamma)
	out := mat.NewDense(rows, 1, nil)
	err := parallel.ParallelizeWithThreshold(rows, 256, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			sum := s.Intercept
			for j, sv := range s.SupportVectors {
				sum += s.DualCoef[j] * k(sv, row)
			}
			out.Set(i, 0, sum)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PrimalCoef returns primal weights. Only the linear kernel has them.
func (s *SVR) PrimalCoef() []float64 {
	if s.Kernel != KernelLinear || !s.State.IsFitted() {
		return nil
	}
	nFeatures, _ := s.State.GetDimensions()
	w := make([]float64, nFeatures)
	for j, sv := range s.SupportVectors {
		for k, v := range sv {
			w[k] += s.DualCoef[j] * v
		}
	}
	return w
}

// GetParams returns the hyperparameters.
func (s *SVR) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"C":        s.C,
		"epsilon":  s.Epsilon,
		"kernel":   s.Kernel,
		"gamma":    s.Gamma,
		"tol":      s.Tol,
		"max_iter": s.MaxIter,
	}
}
