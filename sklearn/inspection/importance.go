package inspection

import (
	"context"
	"math"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

// Importance methods reported alongside the scores.
const (
	MethodCoef        = "coef"
	MethodImpurity    = "feature_importances"
	MethodPermutation = "permutation"
)

// Defaults for the permutation fallback.
const (
	DefaultRepeats = 10
	DefaultSeed    = 42
)

// FeatureScore is one row of an importance table.
type FeatureScore struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Report is an importance table sorted by descending importance.
type Report struct {
	Method string         `json:"method"`
	Scores []FeatureScore `json:"scores"`
}

// Top returns at most n rows.
func (r *Report) Top(n int) []FeatureScore {
	if n >= len(r.Scores) {
		return r.Scores
	}
	return r.Scores[:n]
}

// FeatureImportance picks the importance a model exposes: absolute
// coefficients for linear models, the model's own importances for trees and
// permutation importance otherwise. names may be nil, in which case
// features are called x0, x1, ...
func FeatureImportance(ctx context.Context, m model.Predictor, X, y mat.Matrix, names []string) (*Report, error) {
	_, p := X.Dims()
	if names != nil && len(names) != p {
		return nil, errors.NewDimensionError("FeatureImportance", p, len(names), 1)
	}

	var (
		values []float64
		method string
	)
	switch v := m.(type) {
	case model.FeatureImportanceProvider:
		imp, err := v.FeatureImportances()
		if err != nil {
			return nil, err
		}
		values, method = imp, MethodImpurity
	case model.CoefProvider:
		if coef := v.Coef(); coef != nil {
			values = make([]float64, len(coef))
			for i, c := range coef {
				values[i] = math.Abs(c)
			}
			method = MethodCoef
		}
	}
	if values == nil {
		res, err := PermutationImportance(ctx, m, X, y, DefaultRepeats, DefaultSeed)
		if err != nil {
			return nil, err
		}
		values, method = res.ImportancesMean, MethodPermutation
	}
	if len(values) != p {
		return nil, errors.NewDimensionError("FeatureImportance", p, len(values), 1)
	}

	scores := make([]FeatureScore, p)
	for j := range scores {
		name := "x" + strconv.Itoa(j)
		if names != nil {
			name = names[j]
		}
		scores[j] = FeatureScore{Feature: name, Importance: values[j]}
	}
	slices.SortStableFunc(scores, func(a, b FeatureScore) int {
		switch {
		case a.Importance > b.Importance:
			return -1
		case a.Importance < b.Importance:
			return 1
		}
		return 0
	})
	return &Report{Method: method, Scores: scores}, nil
}
