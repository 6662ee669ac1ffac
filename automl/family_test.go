package automl

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
	"github.com/YuminosukeSato/modelsearch/search"
	"github.com/YuminosukeSato/modelsearch/sklearn/lightgbm"
	"github.com/YuminosukeSato/modelsearch/sklearn/xgboost"
)

func TestParseFamily(t *testing.T) {
	for _, f := range Families() {
		got, err := ParseFamily(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFamily("knn")
	var inv *errors.InvalidFamilyError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, "knn", inv.Family)
}

func TestFamilyJSON(t *testing.T) {
	b, err := json.Marshal(MetricsRow{Family: LightGBM, MAE: 1})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"model":"lgbm"`)

	var row MetricsRow
	require.NoError(t, json.Unmarshal(b, &row))
	assert.Equal(t, LightGBM, row.Family)

	_, err = Family(17).MarshalText()
	assert.Error(t, err)
}

func TestSpaceFor(t *testing.T) {
	want := map[Family][]string{
		ElasticNet:   {"alpha", "l1_ratio"},
		RandomForest: {"rf_n_estimators", "rf_max_depth"},
		SVM:          {"svm_C", "svm_epsilon", "svm_kernel"},
		LightGBM:     {"lgb_n_estimators", "lgb_max_depth", "lgb_lr"},
		XGBoost:      {"xgb_n_estimators", "xgb_max_depth", "xgb_lr"},
	}
	for f, names := range want {
		space, err := SpaceFor(f)
		require.NoError(t, err, f.String())
		got := make([]string, len(space))
		for i, s := range space {
			got[i] = s.Name
		}
		assert.Equal(t, names, got, f.String())
	}

	space, _ := SpaceFor(ElasticNet)
	space[0].Name = "mutated"
	again, _ := SpaceFor(ElasticNet)
	assert.Equal(t, "alpha", again[0].Name)

	_, err := SpaceFor(Family(-1))
	var inv *errors.InvalidFamilyError
	assert.True(t, errors.As(err, &inv))
}

func TestBuildEveryFamily(t *testing.T) {
	params := map[Family]Params{
		ElasticNet:   {"alpha": 0.1, "l1_ratio": 0.5},
		RandomForest: {"rf_n_estimators": 10, "rf_max_depth": 3},
		SVM:          {"svm_C": 1.0, "svm_epsilon": 0.1, "svm_kernel": "rbf"},
		LightGBM:     {"lgb_n_estimators": 10, "lgb_max_depth": 3, "lgb_lr": 0.1},
		XGBoost:      {"xgb_n_estimators": 10, "xgb_max_depth": 3, "xgb_lr": 0.1},
	}
	for f, p := range params {
		est, err := Build(f, p)
		require.NoError(t, err, f.String())
		assert.NotNil(t, est)
	}
}

func TestBuildSilencesBoosters(t *testing.T) {
	est, err := Build(XGBoost, Params{"xgb_n_estimators": 10, "xgb_max_depth": 3, "xgb_lr": 0.1})
	require.NoError(t, err)
	assert.Equal(t, 0, est.(*xgboost.XGBRegressor).Verbosity)

	est, err = Build(LightGBM, Params{"lgb_n_estimators": 10, "lgb_max_depth": 3, "lgb_lr": 0.1})
	require.NoError(t, err)
	assert.Less(t, est.(*lightgbm.LGBMRegressor).Verbosity, 0)
}

// Scenario B: an unknown family reaching the builder fails loudly.
func TestBuildUnknownFamily(t *testing.T) {
	_, err := Build(Family(99), Params{})
	var inv *errors.InvalidFamilyError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, "unknown", inv.Family)
}

func TestBuildRejectsBadParams(t *testing.T) {
	tests := []struct {
		name string
		f    Family
		p    Params
	}{
		{"missing", ElasticNet, Params{"alpha": 0.1}},
		{"string for float", ElasticNet, Params{"alpha": "big", "l1_ratio": 0.5}},
		{"fractional int", RandomForest, Params{"rf_n_estimators": 10.5, "rf_max_depth": 3}},
		{"number for kernel", SVM, Params{"svm_C": 1.0, "svm_epsilon": 0.1, "svm_kernel": 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.f, tt.p)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
}

func TestSampleConfigStaysInSpace(t *testing.T) {
	st := search.NewStudy(search.WithSampler(search.NewRandomSampler(3)), search.WithLogger(log.Nop()))
	seen := map[Family]bool{}
	err := st.Optimize(context.Background(), func(ctx context.Context, trial *search.Trial) (float64, error) {
		fam, p, err := SampleConfig(ctx, trial, Families())
		if err != nil {
			return 0, err
		}
		seen[fam] = true
		space, _ := SpaceFor(fam)
		for _, s := range space {
			v, ok := p[s.Name]
			if !assert.True(t, ok, s.Name) {
				continue
			}
			switch s.Kind {
			case Integer:
				n := v.(int)
				assert.GreaterOrEqual(t, float64(n), s.Low)
				assert.LessOrEqual(t, float64(n), s.High)
			case Continuous, LogContinuous:
				x := v.(float64)
				assert.GreaterOrEqual(t, x, s.Low)
				assert.LessOrEqual(t, x, s.High)
			case Categorical:
				assert.Contains(t, s.Choices, v.(string))
			}
		}
		_, err = Build(fam, p)
		return 0, err
	}, 60)
	require.NoError(t, err)
	assert.Len(t, seen, 5)
	for _, ft := range st.Trials() {
		assert.Equal(t, search.TrialComplete, ft.State)
	}
}

func TestTrackerKeepsFirstOnTie(t *testing.T) {
	tr := NewTracker()
	_, ok := tr.Best(SVM)
	assert.False(t, ok)

	assert.True(t, tr.Update(0, SVM, 2, Params{"svm_C": 1.0}))
	assert.False(t, tr.Update(1, SVM, 2, Params{"svm_C": 5.0}))
	assert.False(t, tr.Update(2, SVM, 3, Params{"svm_C": 9.0}))
	assert.True(t, tr.Update(3, ElasticNet, 4, Params{"alpha": 1.0}))

	b, ok := tr.Best(SVM)
	require.True(t, ok)
	assert.Equal(t, 2.0, b.Score)
	assert.Equal(t, 1.0, b.Params["svm_C"])

	snap := tr.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, SVM, snap[0].Family)
	assert.Equal(t, ElasticNet, snap[1].Family)
	assert.Len(t, tr.Events(), 4)

	// NaN never replaces a record.
	assert.False(t, tr.Update(4, SVM, math.NaN(), nil))
}

func TestTrackerMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tr := NewTracker()
		n := rapid.IntRange(1, 80).Draw(t, "n")
		minSoFar := map[Family]float64{}
		firstAt := map[Family]int{}
		for i := 0; i < n; i++ {
			f := Family(rapid.IntRange(0, 4).Draw(t, "family"))
			score := float64(rapid.IntRange(0, 20).Draw(t, "score"))
			before, _ := tr.Best(f)
			tr.Update(i, f, score, Params{"trial": i})
			after, ok := tr.Best(f)
			if !ok {
				t.Fatalf("family %s missing after update", f)
			}
			if after.Score > before.Score {
				t.Fatalf("score rose from %v to %v", before.Score, after.Score)
			}
			if m, seen := minSoFar[f]; !seen || score < m {
				minSoFar[f] = score
				firstAt[f] = i
			}
			if after.Score != minSoFar[f] || after.Params["trial"] != firstAt[f] {
				t.Fatalf("best of %s is %v from trial %v, want %v from trial %d",
					f, after.Score, after.Params["trial"], minSoFar[f], firstAt[f])
			}
		}
		if tr.Len() != len(minSoFar) {
			t.Fatalf("tracked %d families, want %d", tr.Len(), len(minSoFar))
		}
	})
}
