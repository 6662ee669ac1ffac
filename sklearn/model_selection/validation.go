package model_selection

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/core/parallel"
	"github.com/YuminosukeSato/modelsearch/metrics"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
)

// Scorer names a metric. Lower is better for every scorer used here.
type Scorer struct {
	Name string
	Fn   metrics.Func
}

// Factory builds a fresh unfitted estimator for every fold.
type Factory func() (model.Regressor, error)

// CVResult holds per-fold scores, in fold order, for each scorer.
type CVResult struct {
	Scores map[string][]float64
	Folds  int
}

// Mean returns the mean score of the named scorer, or NaN if unknown.
func (r *CVResult) Mean(name string) float64 {
	s, ok := r.Scores[name]
	if !ok || len(s) == 0 {
		return math.NaN()
	}
	return stat.Mean(s, nil)
}

// Std returns the sample standard deviation of the named scorer.
func (r *CVResult) Std(name string) float64 {
	s := r.Scores[name]
	if len(s) <= 1 {
		return 0
	}
	return stat.StdDev(s, nil)
}

// Subset copies the given rows of X and y.
func Subset(X mat.Matrix, y *mat.VecDense, indices []int) (*mat.Dense, *mat.VecDense) {
	_, cols := X.Dims()
	xs := mat.NewDense(len(indices), cols, nil)
	ys := mat.NewVecDense(len(indices), nil)
	row := make([]float64, cols)
	for i, idx := range indices {
		mat.Row(row, idx, X)
		xs.SetRow(i, row)
		ys.SetVec(i, y.AtVec(idx))
	}
	return xs, ys
}

// CVOption configures CrossValidate.
type CVOption func(*cvConfig)

type cvConfig struct {
	parallelism int
}

// WithParallelism bounds how many folds are fitted at once. Zero or less
// means GOMAXPROCS.
func WithParallelism(n int) CVOption {
	return func(c *cvConfig) { c.parallelism = n }
}

// CrossValidate fits a fresh estimator on every fold's training rows and
// scores it on the held-out rows. Folds run concurrently; results are
// stored by fold index, so the outcome does not depend on scheduling. The
// first failing fold cancels the rest and its error is returned.
func CrossValidate(ctx context.Context, factory Factory, X, y mat.Matrix, folds []Fold, scorers []Scorer, opts ...CVOption) (*CVResult, error) {
	var cfg cvConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(folds) == 0 {
		return nil, errors.NewValueError("CrossValidate", "no folds")
	}
	if len(scorers) == 0 {
		return nil, errors.NewValueError("CrossValidate", "no scorers")
	}
	yVec, err := model.CheckXY("CrossValidate", X, y)
	if err != nil {
		return nil, err
	}

	perFold := make([][]float64, len(folds))
	err = parallel.ForEach(ctx, len(folds), cfg.parallelism, func(ctx context.Context, i int) error {
		return errors.SafeExecute("CrossValidate.fold", func() error {
			return scoreFold(ctx, factory, X, yVec, folds[i], i, scorers, perFold)
		})
	})
	if err != nil {
		return nil, err
	}

	res := &CVResult{Scores: make(map[string][]float64, len(scorers)), Folds: len(folds)}
	for k, sc := range scorers {
		vals := make([]float64, len(folds))
		for i := range folds {
			vals[i] = perFold[i][k]
		}
		res.Scores[sc.Name] = vals
	}
	return res, nil
}

func scoreFold(ctx context.Context, factory Factory, X mat.Matrix, yVec *mat.VecDense, fold Fold, i int, scorers []Scorer, perFold [][]float64) error {
	est, err := factory()
	if err != nil {
		return err
	}
	xTrain, yTrain := Subset(X, yVec, fold.TrainIndices)
	xTest, yTest := Subset(X, yVec, fold.TestIndices)

	if err := model.FitWithContext(ctx, est, xTrain, yTrain); err != nil {
		return errors.Wrapf(err, "fold %d", i)
	}
	pred, err := est.Predict(xTest)
	if err != nil {
		return errors.Wrapf(err, "fold %d", i)
	}
	predVec := model.AsVector(pred)

	scores := make([]float64, len(scorers))
	for k, sc := range scorers {
		v, err := sc.Fn(yTest, predVec)
		if err != nil {
			return errors.Wrapf(err, "fold %d: scoring %s", i, sc.Name)
		}
		scores[k] = v
	}
	if err := errors.CheckValues("CrossValidate.fold", scores, i); err != nil {
		return errors.Wrapf(err, "fold %d", i)
	}
	perFold[i] = scores

	log.GetLoggerWithName("model_selection").Debug("fold scored",
		log.FoldKey, i,
		scorers[0].Name, scores[0],
	)
	return nil
}
