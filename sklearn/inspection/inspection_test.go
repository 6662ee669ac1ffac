package inspection

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/linear"
	"github.com/YuminosukeSato/modelsearch/sklearn/ensemble"
	"github.com/YuminosukeSato/modelsearch/sklearn/svm"
)

// y depends strongly on x0, weakly on x1 and not at all on x2.
func weightedData(n int) (*mat.Dense, *mat.VecDense) {
	rng := rand.New(rand.NewPCG(7, 7))
	X := mat.NewDense(n, 3, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			X.Set(i, j, rng.Float64()*2-1)
		}
		y.SetVec(i, 5*X.At(i, 0)+X.At(i, 1))
	}
	return X, y
}

func TestFeatureImportanceDispatch(t *testing.T) {
	X, y := weightedData(120)
	names := []string{"distance", "traffic", "noise"}

	en := linear.NewElasticNet(linear.WithAlpha(1e-3))
	require.NoError(t, en.Fit(X, y))
	rf := ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(20), ensemble.WithRandomState(42))
	require.NoError(t, rf.Fit(X, y))
	sv := svm.NewSVR(svm.WithKernel(svm.KernelLinear))
	require.NoError(t, sv.Fit(X, y))

	tests := []struct {
		name   string
		model  interface{ Predict(mat.Matrix) (mat.Matrix, error) }
		method string
	}{
		{"linear uses coefficients", en, MethodCoef},
		{"forest uses impurity", rf, MethodImpurity},
		{"svr uses permutation", sv, MethodPermutation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := FeatureImportance(context.Background(), tt.model, X, y, names)
			require.NoError(t, err)
			assert.Equal(t, tt.method, rep.Method)
			require.Len(t, rep.Scores, 3)
			assert.Equal(t, "distance", rep.Scores[0].Feature)
			for i := 1; i < len(rep.Scores); i++ {
				assert.GreaterOrEqual(t, rep.Scores[i-1].Importance, rep.Scores[i].Importance)
			}
			assert.Len(t, rep.Top(2), 2)
		})
	}
}

func TestPermutationImportanceDeterministic(t *testing.T) {
	X, y := weightedData(80)
	en := linear.NewElasticNet(linear.WithAlpha(1e-3))
	require.NoError(t, en.Fit(X, y))

	a, err := PermutationImportance(context.Background(), en, X, y, 5, 42)
	require.NoError(t, err)
	b, err := PermutationImportance(context.Background(), en, X, y, 5, 42)
	require.NoError(t, err)
	assert.Equal(t, a.ImportancesMean, b.ImportancesMean)
	assert.Len(t, a.Importances[0], 5)
	assert.Greater(t, a.ImportancesMean[0], a.ImportancesMean[1])
	assert.InDelta(t, 0.0, a.ImportancesMean[2], 0.05)
}

func TestFeatureImportanceNameMismatch(t *testing.T) {
	X, y := weightedData(20)
	en := linear.NewElasticNet()
	require.NoError(t, en.Fit(X, y))
	_, err := FeatureImportance(context.Background(), en, X, y, []string{"a"})
	assert.Error(t, err)
}
