package svm

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/metrics"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

func linearData(n int, seed uint64) (*mat.Dense, *mat.VecDense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		a, b := rng.Float64()*2-1, rng.Float64()*2-1
		X.Set(i, 0, a)
		X.Set(i, 1, b)
		y.SetVec(i, 2*a-b+0.5+0.02*rng.NormFloat64())
	}
	return X, y
}

func TestSVRLinearKernelRecoversWeights(t *testing.T) {
	X, y := linearData(120, 1)
	m := NewSVR(WithKernel(KernelLinear), WithC(10), WithEpsilon(0.01))
	require.NoError(t, m.Fit(X, y))

	w := m.PrimalCoef()
	require.Len(t, w, 2)
	assert.InDelta(t, 2.0, w[0], 0.1)
	assert.InDelta(t, -1.0, w[1], 0.1)
	assert.InDelta(t, 0.5, m.Intercept, 0.1)
}

func TestSVRDualFeasibility(t *testing.T) {
	X, y := linearData(80, 2)
	const c = 0.5
	m := NewSVR(WithC(c))
	require.NoError(t, m.Fit(X, y))

	assert.InDelta(t, 0.0, floats.Sum(m.DualCoef), 1e-9)
	for _, v := range m.DualCoef {
		assert.LessOrEqual(t, math.Abs(v), c+1e-12)
	}
}

func TestSVRRBFFitsSine(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	n := 150
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x := rng.Float64() * 6
		X.Set(i, 0, x)
		y.SetVec(i, math.Sin(x))
	}
	m := NewSVR(WithC(10), WithEpsilon(0.05))
	require.NoError(t, m.Fit(X, y))
	assert.Greater(t, m.FittedGamma, 0.0)
	assert.Nil(t, m.PrimalCoef())

	pred, err := m.Predict(X)
	require.NoError(t, err)
	mae, err := metrics.Matrix(metrics.MAE)(y, pred)
	require.NoError(t, err)
	assert.Less(t, mae, 0.1)
}

func TestSVRValidation(t *testing.T) {
	X, y := linearData(10, 4)
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero C", WithC(0)},
		{"negative epsilon", WithEpsilon(-1)},
		{"unknown kernel", WithKernel("poly")},
		{"negative gamma", WithGamma(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSVR(tt.opt).Fit(X, y)
			var valErr *errors.ValidationError
			assert.True(t, errors.As(err, &valErr), "got %v", err)
		})
	}
}

func TestSVRPredictBeforeFit(t *testing.T) {
	_, err := NewSVR().Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestSVRMaxIterWarns(t *testing.T) {
	var warned []error
	errors.SetZerologWarnFunc(func(w error) { warned = append(warned, w) })
	defer errors.SetZerologWarnFunc(nil)

	X, y := linearData(60, 5)
	require.NoError(t, NewSVR(WithMaxIter(1)).Fit(X, y))
	require.Len(t, warned, 1)
	var cw *errors.ConvergenceWarning
	assert.True(t, errors.As(warned[0], &cw))
}
