package tree

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"pgregory.net/rapid"
)

func TestBinMapperFewDistinctValues(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{3, 1, 2, 3, 1, 2})
	bm := NewBinMapper(X, 255)

	require.Equal(t, 3, bm.NumBins(0))
	assert.Equal(t, []float64{1.5, 2.5}, bm.UpperBounds[0][:2])
	assert.True(t, math.IsInf(bm.UpperBounds[0][2], 1))

	assert.Equal(t, uint8(0), bm.Bin(0, 1))
	assert.Equal(t, uint8(1), bm.Bin(0, 2))
	assert.Equal(t, uint8(2), bm.Bin(0, 3))
	assert.Equal(t, uint8(2), bm.Bin(0, 100))
}

func TestBinMapperCapsBins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 400).Draw(t, "n")
		maxBins := rapid.IntRange(2, 255).Draw(t, "maxBins")
		data := make([]float64, n)
		for i := range data {
			data[i] = rapid.Float64Range(-100, 100).Draw(t, "v")
		}
		bm := NewBinMapper(mat.NewDense(n, 1, data), maxBins)
		bounds := bm.UpperBounds[0]
		if len(bounds) > maxBins {
			t.Fatalf("%d bins > max %d", len(bounds), maxBins)
		}
		for i := 1; i < len(bounds); i++ {
			if bounds[i] <= bounds[i-1] {
				t.Fatalf("bounds not increasing: %v", bounds)
			}
		}
		// binning must agree with the thresholds
		for _, v := range data {
			b := bm.Bin(0, v)
			if v > bm.Threshold(0, b) {
				t.Fatalf("value %v above its bin edge %v", v, bm.Threshold(0, b))
			}
			if b > 0 && v <= bm.Threshold(0, b-1) {
				t.Fatalf("value %v belongs to a lower bin", v)
			}
		}
	})
}

func TestDecisionTreeFitsStepFunction(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{0, 1, 2, 3, 10, 11, 12, 13})
	y := mat.NewVecDense(8, []float64{1, 1, 1, 1, 5, 5, 5, 5})

	dt := NewDecisionTreeRegressor(WithMaxDepth(1))
	require.NoError(t, dt.Fit(X, y))

	assert.Equal(t, 2, dt.Tree.NumLeaves())
	assert.Equal(t, 1, dt.Tree.MaxDepth())
	assert.InDelta(t, 6.5, dt.Tree.Nodes[0].Threshold, 1e-12)

	pred, err := dt.Predict(mat.NewDense(2, 1, []float64{2.5, 20}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pred.At(0, 0), 1e-12)
	assert.InDelta(t, 5.0, pred.At(1, 0), 1e-12)
}

func TestDecisionTreeUnlimitedDepthInterpolatesTraining(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	n := 50
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, rng.Float64())
		y.SetVec(i, rng.NormFloat64())
	}

	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))
	pred, err := dt.Predict(X)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		assert.InDelta(t, y.AtVec(i), pred.At(i, 0), 1e-9)
	}
}

func TestDecisionTreeImportances(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 2))
	n := 200
	X := mat.NewDense(n, 3, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			X.Set(i, j, rng.Float64())
		}
		y.SetVec(i, 10*X.At(i, 1))
	}

	dt := NewDecisionTreeRegressor(WithMaxDepth(4))
	require.NoError(t, dt.Fit(X, y))
	imp, err := dt.FeatureImportances()
	require.NoError(t, err)

	assert.InDelta(t, 1.0, imp[0]+imp[1]+imp[2], 1e-9)
	assert.Greater(t, imp[1], 0.99)
}

func TestLeafWiseRespectsMaxLeaves(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	n := 300
	X := mat.NewDense(n, 2, nil)
	grad := make([]float64, n)
	hess := make([]float64, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, rng.Float64())
		X.Set(i, 1, rng.Float64())
		grad[i] = -math.Sin(6*X.At(i, 0)) - X.At(i, 1)
		hess[i] = 1
	}
	mapper := NewBinMapper(X, 255)
	binned := mapper.Transform(X)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	grower := NewGrower(GrowerConfig{
		Policy:    LeafWise,
		MaxLeaves: 7,
		Split:     SplitParams{MinSamplesLeaf: 5, MinChildWeight: 1e-3},
	}, mapper, binned)
	leafOf := make([]int, n)
	tr := grower.Grow(indices, grad, hess, leafOf)

	assert.Equal(t, 7, tr.NumLeaves())
	row := make([]float64, 2)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		assert.Equal(t, tr.Leaf(row), leafOf[i], "sample %d", i)
	}
}

func TestDecisionTreeErrors(t *testing.T) {
	dt := NewDecisionTreeRegressor()
	_, err := dt.Predict(mat.NewDense(1, 1, nil))
	assert.Error(t, err)

	err = NewDecisionTreeRegressor(WithMinSamplesLeaf(0)).Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewVecDense(2, []float64{1, 2}))
	assert.Error(t, err)
}
