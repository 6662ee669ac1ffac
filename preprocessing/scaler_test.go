package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})
	s := NewStandardScaler(true, true)
	Xs, err := s.FitTransform(X)
	require.NoError(t, err)

	col := mat.Col(nil, 0, Xs)
	mean, variance := stat.PopMeanVariance(col, nil)
	assert.InDelta(t, 0, mean, 1e-12)
	assert.InDelta(t, 1, variance, 1e-12)
	// constant column: centred, scale 1
	assert.Equal(t, []float64{0, 0, 0, 0}, mat.Col(nil, 1, Xs))

	back, err := s.InverseTransform(Xs)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
}

func TestStandardScalerErrors(t *testing.T) {
	s := NewStandardScaler(true, true)
	_, err := s.Transform(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	require.NoError(t, s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = s.Transform(mat.NewDense(1, 3, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	assert.Error(t, s.Fit(mat.NewDense(1, 1, []float64{math.NaN()})))
}

func TestSimpleImputerMedian(t *testing.T) {
	nan := math.NaN()
	X := mat.NewDense(4, 2, []float64{
		1, nan,
		nan, 4,
		3, 6,
		5, 8,
	})
	im := NewSimpleImputer()
	require.NoError(t, im.Fit(X))
	assert.Equal(t, []float64{3, 6}, im.Statistics)

	out, err := im.Transform(X)
	require.NoError(t, err)
	assert.Equal(t, 3.0, out.At(1, 0))
	assert.Equal(t, 6.0, out.At(0, 1))
	assert.Equal(t, 5.0, out.At(3, 0))

	empty := mat.NewDense(2, 1, []float64{nan, nan})
	assert.Error(t, NewSimpleImputer().Fit(empty))
}

func TestPipelineReplaysTrainingStatistics(t *testing.T) {
	nan := math.NaN()
	train := mat.NewDense(3, 1, []float64{0, 2, 4})
	p := NewPipeline()
	_, err := p.FitTransform(train)
	require.NoError(t, err)

	out, err := p.Transform(mat.NewDense(2, 1, []float64{nan, 4}))
	require.NoError(t, err)
	sd := math.Sqrt(8.0 / 3.0)
	assert.InDelta(t, 0, out.At(0, 0), 1e-12)
	assert.InDelta(t, 2/sd, out.At(1, 0), 1e-12)
}
