package automl

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/datasets"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
	"github.com/YuminosukeSato/modelsearch/search"
	"github.com/YuminosukeSato/modelsearch/storage"
)

func quickOpts(extra ...Option) []Option {
	return append([]Option{
		WithLogger(log.Nop()),
		WithFamilies(ElasticNet, SVM),
		WithTrials(12),
		WithStartupTrials(6),
	}, extra...)
}

func smallProblem() (*mat.Dense, *mat.VecDense) {
	X, y, _ := datasets.MakeLinearRegression(80, 3, 0.3, 11)
	return X, y
}

func TestRunStudyProducesConsistentOutcome(t *testing.T) {
	X, y := smallProblem()
	out, err := NewRunner(quickOpts()...).Run(context.Background(), X, y)
	require.NoError(t, err)

	require.Len(t, out.Trials, 12)
	completed := map[Family]bool{}
	for _, ft := range out.Trials {
		require.Equal(t, search.TrialComplete, ft.State, "trial %d: %v", ft.Number, ft.Err)
		assert.GreaterOrEqual(t, ft.Value, 0.0)
		fam, err := ParseFamily(ft.UserAttrs[UserAttrFamily].(string))
		require.NoError(t, err)
		completed[fam] = true
	}

	// one metrics row per family that completed a trial, sorted by MAE
	require.Len(t, out.Metrics, len(completed))
	assert.GreaterOrEqual(t, len(out.Metrics), 1)
	assert.LessOrEqual(t, len(out.Metrics), 5)
	for i, row := range out.Metrics {
		assert.True(t, completed[row.Family])
		assert.GreaterOrEqual(t, row.RMSE, row.MAE-1e-12)
		if i > 0 {
			assert.LessOrEqual(t, out.Metrics[i-1].MAE, row.MAE)
		}
	}

	// the global best is the minimum over the history, first seen on ties
	minIdx := 0
	for i, ft := range out.Trials {
		if ft.Value < out.Trials[minIdx].Value {
			minIdx = i
		}
	}
	assert.Equal(t, out.Trials[minIdx].Number, out.BestTrial.Number)
	assert.Equal(t, out.BestTrial.Value, out.Artifact.Score)

	// the tracker's best for the winner equals the global best
	for _, b := range out.Bests {
		if b.Family == out.BestFamily {
			assert.Equal(t, out.BestTrial.Value, b.Score)
		}
	}

	// per family, the recorded best never increases
	last := map[Family]float64{}
	for _, ev := range out.Events {
		prev, ok := last[ev.Family]
		if !ok {
			prev = math.Inf(1)
		}
		cur := prev
		if ev.Improved {
			cur = ev.Score
		}
		assert.LessOrEqual(t, cur, prev)
		last[ev.Family] = cur
	}

	pred, err := out.Artifact.Predict(X)
	require.NoError(t, err)
	r, _ := pred.Dims()
	assert.Equal(t, 80, r)
	assert.Equal(t, []string{"x0", "x1", "x2"}, out.Artifact.FeatureNames)
}

func TestRunStudyIsDeterministic(t *testing.T) {
	X, y := smallProblem()
	a, err := NewRunner(quickOpts()...).Run(context.Background(), X, y)
	require.NoError(t, err)
	b, err := NewRunner(quickOpts()...).Run(context.Background(), X, y)
	require.NoError(t, err)

	assert.Equal(t, a.BestFamily, b.BestFamily)
	assert.Equal(t, a.BestTrial.Params, b.BestTrial.Params)
	assert.Equal(t, a.BestTrial.Value, b.BestTrial.Value)
	require.Equal(t, len(a.Trials), len(b.Trials))
	for i := range a.Trials {
		assert.Equal(t, a.Trials[i].Params, b.Trials[i].Params)
		assert.Equal(t, a.Trials[i].Value, b.Trials[i].Value)
	}
	assert.Equal(t, a.Metrics, b.Metrics)
	assert.NotEqual(t, a.StudyID, b.StudyID)
}

func TestArtifactRoundTrip(t *testing.T) {
	X, y := smallProblem()
	store := storage.NewLocalStore(t.TempDir())
	out, err := NewRunner(quickOpts(WithStore(store))...).Run(context.Background(), X, y)
	require.NoError(t, err)

	want, err := out.Artifact.Predict(X)
	require.NoError(t, err)

	// rebuilding the tracked best and refitting reproduces the predictions
	var best FamilyBest
	for _, b := range out.Bests {
		if b.Family == out.BestFamily {
			best = b
		}
	}
	est, err := Build(best.Family, best.Params)
	require.NoError(t, err)
	require.NoError(t, est.Fit(X, y))
	got, err := est.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-9))

	// so does the persisted artifact
	loaded, err := LoadArtifact(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, out.BestFamily, loaded.Family)
	assert.Equal(t, out.StudyID, loaded.StudyID)
	assert.Equal(t, out.Artifact.Params, loaded.Params)
	got, err = loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}

func TestEveryFamilyArtifactSurvivesGob(t *testing.T) {
	X, y, _ := datasets.MakeLinearRegression(40, 2, 0.1, 5)
	params := map[Family]Params{
		ElasticNet:   {"alpha": 0.01, "l1_ratio": 0.5},
		RandomForest: {"rf_n_estimators": 5, "rf_max_depth": 3},
		SVM:          {"svm_C": 10.0, "svm_epsilon": 0.1, "svm_kernel": "rbf"},
		LightGBM:     {"lgb_n_estimators": 5, "lgb_max_depth": 3, "lgb_lr": 0.1},
		XGBoost:      {"xgb_n_estimators": 5, "xgb_max_depth": 3, "xgb_lr": 0.1},
	}
	for _, f := range Families() {
		t.Run(f.String(), func(t *testing.T) {
			a, err := BuildFinal(context.Background(), nil, f, params[f], X, y)
			require.NoError(t, err)
			store := storage.NewLocalStore(t.TempDir())
			require.NoError(t, SaveArtifact(context.Background(), store, a))
			loaded, err := LoadArtifact(context.Background(), store)
			require.NoError(t, err)

			want, err := a.Predict(X)
			require.NoError(t, err)
			got, err := loaded.Predict(X)
			require.NoError(t, err)
			assert.True(t, mat.EqualApprox(want, got, 1e-12))
		})
	}
}

type flakyRegressor struct {
	model.Regressor
	fail *atomic.Bool
}

func (f *flakyRegressor) Fit(X, y mat.Matrix) error {
	if f.fail.CompareAndSwap(true, false) {
		panic("injected fit failure")
	}
	return f.Regressor.Fit(X, y)
}

// Scenario C: one failing fit costs exactly one trial.
func TestFailedTrialScoresPenaltyAndStudyContinues(t *testing.T) {
	X, y := smallProblem()
	var fail atomic.Bool
	fail.Store(true)
	build := func(f Family, p Params) (model.Regressor, error) {
		est, err := Build(f, p)
		if err != nil {
			return nil, err
		}
		return &flakyRegressor{Regressor: est, fail: &fail}, nil
	}

	out, err := NewRunner(
		WithLogger(log.Nop()),
		WithFamilies(ElasticNet),
		WithTrials(50),
		WithBuildFunc(build),
	).Run(context.Background(), X, y)
	require.NoError(t, err)

	require.Len(t, out.Trials, 50)
	var failed []search.FrozenTrial
	for _, ft := range out.Trials {
		if ft.State == search.TrialFail {
			failed = append(failed, ft)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, 0, failed[0].Number)
	assert.Equal(t, PenaltyScore, failed[0].Value)
	var te *errors.TrialEvaluationError
	require.True(t, errors.As(failed[0].Err, &te))
	assert.Equal(t, "elasticnet", te.Family)
	var pe *errors.PanicError
	assert.True(t, errors.As(failed[0].Err, &pe))

	for _, ev := range out.Events {
		assert.NotEqual(t, 0, ev.Trial, "failed trial must not reach the tracker")
	}
	assert.NotEqual(t, 0, out.BestTrial.Number)
}

func TestEvaluatorTurnsInvalidFamilyIntoFailedTrial(t *testing.T) {
	X, y := smallProblem()
	build := func(Family, Params) (model.Regressor, error) {
		return nil, errors.NewInvalidFamilyError("knn", FamilyNames(Families()))
	}
	_, err := NewRunner(
		WithLogger(log.Nop()),
		WithFamilies(ElasticNet),
		WithTrials(3),
		WithBuildFunc(build),
	).Run(context.Background(), X, y)

	// every trial failed, so there is nothing to refit
	stage, ok := errors.StageOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.StageSampling, stage)
	assert.True(t, errors.Is(err, search.ErrNoCompletedTrials))
}

func TestRunStudyValidation(t *testing.T) {
	X, y := smallProblem()
	bad := mat.DenseCopyOf(X)
	bad.Set(3, 1, math.NaN())

	tests := []struct {
		name string
		X    *mat.Dense
		y    *mat.VecDense
		opts []Option
	}{
		{"nan feature", bad, y, nil},
		{"row mismatch", X, mat.NewVecDense(10, nil), nil},
		{"fewer rows than folds", mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewVecDense(3, []float64{1, 2, 3}), nil},
		{"no trials", X, y, []Option{WithTrials(0)}},
		{"no families", X, y, []Option{WithFamilies()}},
		{"invalid family", X, y, []Option{WithFamilies(Family(12))}},
		{"feature names mismatch", X, y, []Option{WithFeatureNames("a")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := RunStudy(context.Background(), tt.X, tt.y, append(quickOpts(), tt.opts...)...)
			require.Error(t, err)
			stage, ok := errors.StageOf(err)
			require.True(t, ok)
			assert.Equal(t, errors.StageValidation, stage)
		})
	}
}

func TestRunStudyCancelled(t *testing.T) {
	X, y := smallProblem()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := RunStudy(ctx, X, y, quickOpts()...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	stage, _ := errors.StageOf(err)
	assert.Equal(t, errors.StageSampling, stage)
}

func TestReporterReceivesStudy(t *testing.T) {
	X, y := smallProblem()
	var got *StudyReport
	rep := ReporterFunc(func(_ context.Context, r *StudyReport) error {
		got = r
		return nil
	})
	out, err := NewRunner(quickOpts(WithReporter(rep), WithFeatureNames("a", "b", "c"))...).Run(context.Background(), X, y)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, out.StudyID, got.StudyID)
	assert.Equal(t, out.Metrics, got.Metrics)
	assert.Equal(t, []string{"a", "b", "c"}, got.FeatureNames)
	assert.Same(t, X, got.X)

	failing := ReporterFunc(func(context.Context, *StudyReport) error { return errors.New("disk full") })
	_, err = NewRunner(quickOpts(WithReporter(failing))...).Run(context.Background(), X, y)
	stage, _ := errors.StageOf(err)
	assert.Equal(t, errors.StageReporting, stage)
}

func TestRunStudyProgressAndCallbacks(t *testing.T) {
	X, y := smallProblem()
	progress := make(chan search.ProgressUpdate, 64)
	var calls int
	cb := search.CallbackFunc(func(*search.Study, search.FrozenTrial) { calls++ })
	_, _, err := RunStudy(context.Background(), X, y, quickOpts(WithProgress(progress), WithCallbacks(cb))...)
	require.NoError(t, err)
	close(progress)

	assert.Equal(t, 12, calls)
	var updates []search.ProgressUpdate
	for u := range progress {
		updates = append(updates, u)
	}
	require.Len(t, updates, 12)
	assert.Equal(t, search.PhaseStartup, updates[0].Phase)
	assert.Equal(t, search.PhaseOptimize, updates[11].Phase)
}

// Scenario A: the full default study on a linear problem with bounded
// noise gets close to the noise floor.
func TestScenarioFullStudy(t *testing.T) {
	if testing.Short() {
		t.Skip("full study is slow")
	}
	X, y, _ := datasets.MakeLinearRegression(500, 5, 0.5, 42)
	out, err := NewRunner(WithLogger(log.Nop())).Run(context.Background(), X, y)
	require.NoError(t, err)

	assert.Len(t, out.Trials, DefaultTrials)
	// uniform noise on [-0.5, 0.5] has a mean absolute value of 0.25
	assert.Less(t, out.BestTrial.Value, 0.5)
	assert.GreaterOrEqual(t, len(out.Metrics), 1)
	assert.LessOrEqual(t, len(out.Metrics), 5)
	assert.Equal(t, out.Metrics[0].MAE, minMAE(out.Metrics))

	// the default study is reproducible end to end
	again, err := NewRunner(WithLogger(log.Nop())).Run(context.Background(), X, y)
	require.NoError(t, err)
	assert.Equal(t, out.BestFamily, again.BestFamily)
	assert.Equal(t, out.BestTrial.Number, again.BestTrial.Number)
	assert.Equal(t, out.BestTrial.Params, again.BestTrial.Params)
	assert.Equal(t, out.BestTrial.Value, again.BestTrial.Value)
	assert.Equal(t, out.Metrics, again.Metrics)
}

func minMAE(rows []MetricsRow) float64 {
	m := math.Inf(1)
	for _, r := range rows {
		m = math.Min(m, r.MAE)
	}
	return m
}
