// Package ensemble implements bagged tree ensembles.
package ensemble

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/core/parallel"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
	"github.com/YuminosukeSato/modelsearch/sklearn/tree"
)

// Option configures a RandomForestRegressor.
type Option func(*RandomForestRegressor)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(rf *RandomForestRegressor) { rf.NEstimators = n }
}

// WithMaxDepth limits each tree's depth; 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestRegressor) { rf.MaxDepth = depth }
}

// WithMinSamplesSplit sets the minimum node size that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(rf *RandomForestRegressor) { rf.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples per leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestRegressor) { rf.MinSamplesLeaf = n }
}

// WithBootstrap toggles sampling rows with replacement per tree.
func WithBootstrap(b bool) Option {
	return func(rf *RandomForestRegressor) { rf.Bootstrap = b }
}

// WithRandomState seeds the bootstrap draws.
func WithRandomState(seed int64) Option {
	return func(rf *RandomForestRegressor) { rf.RandomState = seed }
}

// RandomForestRegressor averages CART trees grown on bootstrap samples.
type RandomForestRegressor struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxBins         int
	Bootstrap       bool
	RandomState     int64

	Trees       []*tree.Tree
	Importances []float64
	State       *model.StateManager
}

// NewRandomForestRegressor returns a forest with scikit-learn's defaults
// (100 trees, unlimited depth, bootstrap on, all features per split).
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxBins:         255,
		Bootstrap:       true,
		State:           model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// Fit grows NEstimators trees in parallel. Bootstrap samples are drawn from
// one seeded generator before any tree is grown, so the result does not
// depend on scheduling.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")

	if rf.NEstimators <= 0 {
		return errors.NewValidationError("n_estimators", "must be positive", rf.NEstimators)
	}
	if rf.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative", rf.MaxDepth)
	}
	yVec, err := model.CheckXY("RandomForestRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if rf.State == nil {
		rf.State = model.NewStateManager()
	}
	rf.State.Reset()

	n, p := X.Dims()
	mapper := tree.NewBinMapper(X, rf.MaxBins)
	binned := mapper.Transform(X)
	grad, hess := tree.CARTGradients(yVec)

	rng := rand.New(rand.NewPCG(uint64(rf.RandomState), uint64(rf.RandomState)))
	samples := make([][]int, rf.NEstimators)
	for t := range samples {
		idx := make([]int, n)
		for i := range idx {
			if rf.Bootstrap {
				idx[i] = rng.IntN(n)
			} else {
				idx[i] = i
			}
		}
		samples[t] = idx
	}

	cfg := tree.CARTConfig(rf.MaxDepth, rf.MinSamplesSplit, rf.MinSamplesLeaf)
	trees := make([]*tree.Tree, rf.NEstimators)
	perTree := make([][]float64, rf.NEstimators)
	err = parallel.Parallelize(rf.NEstimators, func(start, end int) {
		grower := tree.NewGrower(cfg, mapper, binned)
		for t := start; t < end; t++ {
			trees[t] = grower.Grow(samples[t], grad, hess, nil)
			imp := make([]float64, p)
			trees[t].AccumulateImportance(imp, tree.ImportanceGain)
			perTree[t] = tree.Normalize(imp)
		}
	})
	if err != nil {
		return errors.Wrap(err, "grow trees")
	}

	// scikit-learn averages per-tree normalized importances
	rf.Importances = make([]float64, p)
	for _, imp := range perTree {
		for j, v := range imp {
			rf.Importances[j] += v
		}
	}
	tree.Normalize(rf.Importances)
	rf.Trees = trees

	rf.State.SetDimensions(p, n)
	rf.State.SetFitted()

	log.GetLoggerWithName("ensemble.forest").Debug("fit complete",
		log.ModelNameKey, "RandomForestRegressor",
		"n_estimators", rf.NEstimators,
		log.SamplesKey, n,
		log.FeaturesKey, p,
	)
	return nil
}

// Predict averages the trees' predictions.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.State.CheckPredictInput("RandomForestRegressor", X); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	err := parallel.ParallelizeWithThreshold(rows, 256, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			var sum float64
			for _, t := range rf.Trees {
				sum += t.PredictRow(row)
			}
			out.Set(i, 0, sum/float64(len(rf.Trees)))
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FeatureImportances returns the mean impurity-decrease importances.
func (rf *RandomForestRegressor) FeatureImportances() ([]float64, error) {
	if err := rf.State.RequireFitted("RandomForestRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), rf.Importances...), nil
}

// GetParams returns the hyperparameters.
func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.NEstimators,
		"max_depth":         rf.MaxDepth,
		"min_samples_split": rf.MinSamplesSplit,
		"min_samples_leaf":  rf.MinSamplesLeaf,
		"bootstrap":         rf.Bootstrap,
		"random_state":      rf.RandomState,
	}
}
