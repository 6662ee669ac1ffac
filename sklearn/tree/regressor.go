package tree

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth limits tree depth; 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MaxDepth = depth }
}

// WithMinSamplesSplit sets the minimum node size that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples per leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MinSamplesLeaf = n }
}

// WithMaxBins sets the number of histogram bins per feature.
func WithMaxBins(n int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MaxBins = n }
}

// DecisionTreeRegressor is a CART regression tree using the squared error
// criterion on histogram-binned features.
type DecisionTreeRegressor struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxBins         int

	Tree        *Tree
	Importances []float64
	State       *model.StateManager
}

// NewDecisionTreeRegressor returns a tree with scikit-learn's defaults
// (unlimited depth, min_samples_split=2, min_samples_leaf=1).
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxBins:         255,
		State:           model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// CARTConfig returns the grower settings that make gradient statistics
// reproduce squared-error CART: with grad = −y and hess = 1, leaf values are
// means and gains are half the impurity decrease.
func CARTConfig(maxDepth, minSamplesSplit, minSamplesLeaf int) GrowerConfig {
	return GrowerConfig{
		Policy:          DepthWise,
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
		Split: SplitParams{
			MinSamplesLeaf: minSamplesLeaf,
		},
	}
}

// CARTGradients returns grad = −y and hess = 1 for CART growth.
func CARTGradients(y *mat.VecDense) (grad, hess []float64) {
	n := y.Len()
	grad = make([]float64, n)
	hess = make([]float64, n)
	for i := 0; i < n; i++ {
		grad[i] = -y.AtVec(i)
		hess[i] = 1
	}
	return grad, hess
}

// Fit grows the tree on all rows of X.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")

	if dt.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative", dt.MaxDepth)
	}
	if dt.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.MinSamplesLeaf)
	}
	yVec, err := model.CheckXY("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if dt.State == nil {
		dt.State = model.NewStateManager()
	}
	dt.State.Reset()

	n, p := X.Dims()
	mapper := NewBinMapper(X, dt.MaxBins)
	binned := mapper.Transform(X)
	grad, hess := CARTGradients(yVec)

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	grower := NewGrower(CARTConfig(dt.MaxDepth, dt.MinSamplesSplit, dt.MinSamplesLeaf), mapper, binned)
	dt.Tree = grower.Grow(indices, grad, hess, nil)

	dt.Importances = make([]float64, p)
	dt.Tree.AccumulateImportance(dt.Importances, ImportanceGain)
	Normalize(dt.Importances)

	dt.State.SetDimensions(p, n)
	dt.State.SetFitted()
	return nil
}

// Predict returns the leaf mean for each row of X.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.State.CheckPredictInput("DecisionTreeRegressor", X); err != nil {
		return nil, err
	}
	return dt.Tree.Predict(X), nil
}

// FeatureImportances returns normalized impurity-decrease importances.
func (dt *DecisionTreeRegressor) FeatureImportances() ([]float64, error) {
	if err := dt.State.RequireFitted("DecisionTreeRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), dt.Importances...), nil
}
