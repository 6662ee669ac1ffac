// Package inspection computes feature importances for fitted regressors.
package inspection

import (
	"context"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/core/parallel"
	"github.com/YuminosukeSato/modelsearch/metrics"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

// PermutationResult holds the R² drop of every repeat per feature.
type PermutationResult struct {
	Baseline        float64
	ImportancesMean []float64
	ImportancesStd  []float64
	Importances     [][]float64
}

// PermutationImportance measures how much the R² of m on (X, y) drops when
// a single column is shuffled. Every feature is shuffled with a generator
// seeded from seed, so results are reproducible and independent of the
// number of workers.
func PermutationImportance(ctx context.Context, m model.Predictor, X, y mat.Matrix, repeats int, seed int64) (*PermutationResult, error) {
	if repeats <= 0 {
		return nil, errors.NewValidationError("n_repeats", "must be positive", repeats)
	}
	yVec, err := model.CheckXY("PermutationImportance", X, y)
	if err != nil {
		return nil, err
	}
	score := func(Xs mat.Matrix) (float64, error) {
		pred, err := m.Predict(Xs)
		if err != nil {
			return 0, err
		}
		return metrics.R2Score(yVec, model.AsVector(pred))
	}

	base := model.AsDense(X)
	baseline, err := score(base)
	if err != nil {
		return nil, err
	}

	n, p := base.Dims()
	res := &PermutationResult{
		Baseline:        baseline,
		ImportancesMean: make([]float64, p),
		ImportancesStd:  make([]float64, p),
		Importances:     make([][]float64, p),
	}
	err = parallel.ForEach(ctx, p, 0, func(_ context.Context, j int) error {
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
		shuffled := mat.DenseCopyOf(base)
		col := mat.Col(nil, j, base)
		perm := make([]int, n)
		for i := range perm {
			perm[i] = i
		}
		drops := make([]float64, repeats)
		for r := range drops {
			rng.Shuffle(n, func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
			for i, src := range perm {
				shuffled.Set(i, j, col[src])
			}
			s, err := score(shuffled)
			if err != nil {
				return errors.Wrapf(err, "feature %d repeat %d", j, r)
			}
			drops[r] = baseline - s
		}
		res.Importances[j] = drops
		res.ImportancesMean[j], res.ImportancesStd[j] = stat.PopMeanStdDev(drops, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
