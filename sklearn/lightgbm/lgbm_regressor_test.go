package lightgbm

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/metrics"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
	"github.com/YuminosukeSato/modelsearch/sklearn/tree"
)

func friedmanLike(n int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, 4, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 4; j++ {
			X.Set(i, j, rng.Float64())
		}
		v := 10*math.Sin(math.Pi*X.At(i, 0)*X.At(i, 1)) + 5*X.At(i, 2)
		y.Set(i, 0, v+0.1*rng.NormFloat64())
	}
	return X, y
}

func TestLGBMRegressorFitPredict(t *testing.T) {
	X, y := friedmanLike(400, 1)
	reg := NewLGBMRegressor().WithNumIterations(200).WithLearningRate(0.1)
	require.NoError(t, reg.Fit(X, y))
	assert.True(t, reg.State.IsFitted())

	Xt, yt := friedmanLike(200, 2)
	pred, err := reg.Predict(Xt)
	require.NoError(t, err)
	rows, cols := pred.Dims()
	assert.Equal(t, 200, rows)
	assert.Equal(t, 1, cols)

	mae, err := metrics.Matrix(metrics.MAE)(yt, pred)
	require.NoError(t, err)
	assert.Less(t, mae, 1.0)
}

func TestTrainerCachedScoresMatchModel(t *testing.T) {
	X, y := friedmanLike(150, 3)
	var history = map[string][]float64{}
	trainer := NewTrainer(TrainingParams{NumIterations: 20, MinDataInLeaf: 5}).
		WithCallbacks(RecordEvaluation(history))
	require.NoError(t, trainer.Fit(context.Background(), X, y))

	pred, err := trainer.GetModel().Predict(X)
	require.NoError(t, err)
	var mse float64
	for i := 0; i < 150; i++ {
		r := pred.At(i, 0) - y.At(i, 0)
		mse += r * r
	}
	mse /= 150

	losses := history["training_l2"]
	require.Len(t, losses, 20)
	assert.InDelta(t, mse, losses[len(losses)-1], 1e-9)
	for i := 1; i < len(losses); i++ {
		assert.LessOrEqual(t, losses[i], losses[i-1]+1e-12)
	}
}

func TestTrainerRespectsNumLeaves(t *testing.T) {
	X, y := friedmanLike(300, 4)
	trainer := NewTrainer(TrainingParams{NumIterations: 5, NumLeaves: 7, MinDataInLeaf: 1})
	require.NoError(t, trainer.Fit(context.Background(), X, y))
	for _, tr := range trainer.GetModel().Trees {
		assert.LessOrEqual(t, tr.NumLeaves(), 7)
	}
}

func TestTrainerInitScoreIsMean(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})
	trainer := NewTrainer(TrainingParams{NumIterations: 1, MinDataInLeaf: 1})
	require.NoError(t, trainer.Fit(context.Background(), X, y))
	assert.InDelta(t, 5.0, trainer.GetModel().InitScore, 1e-12)
}

func TestTrainerStopsWithoutSplits(t *testing.T) {
	X := mat.NewDense(10, 1, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, 1)
		y.Set(i, 0, float64(i))
	}
	trainer := NewTrainer(TrainingParams{NumIterations: 50})
	require.NoError(t, trainer.Fit(context.Background(), X, y))
	assert.Equal(t, 1, trainer.GetModel().NumIterations())
}

func TestTrainerRejectsUnsupportedObjective(t *testing.T) {
	X, y := friedmanLike(20, 5)
	err := NewTrainer(TrainingParams{Objective: "huber"}).Fit(context.Background(), X, y)
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
}

func TestTrainerHonoursCancellation(t *testing.T) {
	X, y := friedmanLike(50, 6)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewTrainer(TrainingParams{}).Fit(ctx, X, y)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEarlyStopOnPlateau(t *testing.T) {
	X, y := friedmanLike(100, 7)
	stop := func(env *CallbackEnv) error {
		if env.Iteration == 4 {
			env.StopTraining = true
		}
		return nil
	}
	trainer := NewTrainer(TrainingParams{NumIterations: 100, MinDataInLeaf: 5}).WithCallbacks(stop)
	require.NoError(t, trainer.Fit(context.Background(), X, y))
	assert.Equal(t, 5, trainer.GetModel().NumIterations())

	cb := EarlyStopOnPlateau("l2", 2, 0)
	env := &CallbackEnv{EvalResults: map[string]float64{"l2": 1}}
	for i := 0; i < 3; i++ {
		require.NoError(t, cb(env))
	}
	assert.True(t, env.StopTraining)
}

func TestLGBMFeatureImportance(t *testing.T) {
	X, y := friedmanLike(300, 8)
	reg := NewLGBMRegressor().WithNumIterations(50)
	_, err := reg.FeatureImportances()
	require.Error(t, err)

	require.NoError(t, reg.Fit(X, y))
	split, err := reg.FeatureImportances()
	require.NoError(t, err)
	require.Len(t, split, 4)
	gain := reg.GetFeatureImportance(tree.ImportanceGain)
	// feature 3 carries no signal
	assert.Less(t, gain[3], gain[0])
	assert.Less(t, gain[3], gain[2])
	assert.Greater(t, split[0], 0.0)
}

func TestLGBMPredictDimensionMismatch(t *testing.T) {
	X, y := friedmanLike(60, 9)
	reg := NewLGBMRegressor().WithNumIterations(5).WithMinChildSamples(5)
	require.NoError(t, reg.Fit(X, y))
	_, err := reg.Predict(mat.NewDense(2, 3, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestVerboseFitLogsProgressAtDebug(t *testing.T) {
	X, y := friedmanLike(120, 5)

	tl := log.NewTestLogger(log.LevelDebug)
	reg := NewLGBMRegressor().WithNumIterations(25).WithVerbosity(1).WithLogger(tl)
	require.NoError(t, reg.Fit(X, y))
	assert.True(t, tl.ContainsMessage("boosting progress"))
	assert.True(t, tl.ContainsField(log.IterationKey, float64(20)))

	quiet := log.NewTestLogger(log.LevelDebug)
	reg = NewLGBMRegressor().WithNumIterations(25).WithLogger(quiet)
	require.NoError(t, reg.Fit(X, y))
	assert.Empty(t, quiet.String())
}
