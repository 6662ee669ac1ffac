package automl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/datasets"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

func TestPredictBatchedMatchesPredict(t *testing.T) {
	X, y, _ := datasets.MakeLinearRegression(103, 3, 0.1, 2)
	a, err := BuildFinal(context.Background(), nil, RandomForest,
		Params{"rf_n_estimators": 5, "rf_max_depth": 4}, X, y)
	require.NoError(t, err)

	want, err := a.Predict(X)
	require.NoError(t, err)

	for _, tc := range []struct {
		name        string
		batch, jobs int
	}{
		{"single batch", 0, 0},
		{"uneven batches", 10, 3},
		{"one row per batch", 1, 4},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := a.PredictBatched(context.Background(), X, tc.batch, tc.jobs)
			require.NoError(t, err)
			require.Equal(t, 103, got.Len())
			assert.True(t, mat.EqualApprox(want, got, 1e-12))
		})
	}
}

func TestPredictBatchedErrors(t *testing.T) {
	var empty *ModelArtifact
	_, err := empty.PredictBatched(context.Background(), mat.NewDense(1, 1, nil), 0, 0)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	X, y, _ := datasets.MakeLinearRegression(20, 2, 0.1, 2)
	a, err := BuildFinal(context.Background(), nil, ElasticNet, Params{"alpha": 0.01, "l1_ratio": 0.5}, X, y)
	require.NoError(t, err)
	_, err = a.PredictBatched(context.Background(), mat.NewDense(2, 3, nil), 0, 0)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}
