package lightgbm

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
	"github.com/YuminosukeSato/modelsearch/sklearn/tree"
)

// LGBMRegressor is a LightGBM-style regressor with a scikit-learn API.
type LGBMRegressor struct {
	NumLeaves       int     // Maximum leaves per tree
	MaxDepth        int     // Maximum tree depth, -1 for no limit
	LearningRate    float64 // Shrinkage applied to every tree
	NumIterations   int     // Number of boosting rounds
	MinChildSamples int     // Minimum samples in a leaf
	MinChildWeight  float64 // Minimum hessian sum in a leaf
	RegLambda       float64 // L2 regularization on leaf values
	MinSplitGain    float64 // Minimum gain to make a split
	MaxBin          int     // Histogram bins per feature
	RandomState     int     // Recorded for parity; training is deterministic
	Objective       string  // Only "regression" is supported
	ImportanceType  string  // "split" or "gain"
	Verbosity       int     // <0 silent, >0 logs progress every 10 rounds

	Model *Model
	State *model.StateManager

	callbacks []Callback
	logger    log.Logger
}

// NewLGBMRegressor returns a regressor with LightGBM's defaults.
func NewLGBMRegressor() *LGBMRegressor {
	return &LGBMRegressor{
		NumLeaves:       31,
		MaxDepth:        -1,
		LearningRate:    0.1,
		NumIterations:   100,
		MinChildSamples: 20,
		MinChildWeight:  1e-3,
		MaxBin:          255,
		RandomState:     42,
		Objective:       "regression",
		ImportanceType:  tree.ImportanceSplit,
		Verbosity:       -1,
		State:           model.NewStateManager(),
	}
}

// WithNumLeaves sets the number of leaves
func (lgb *LGBMRegressor) WithNumLeaves(n int) *LGBMRegressor {
	lgb.NumLeaves = n
	return lgb
}

// WithMaxDepth sets the maximum depth
func (lgb *LGBMRegressor) WithMaxDepth(d int) *LGBMRegressor {
	lgb.MaxDepth = d
	return lgb
}

// WithLearningRate sets the learning rate
func (lgb *LGBMRegressor) WithLearningRate(lr float64) *LGBMRegressor {
	lgb.LearningRate = lr
	return lgb
}

// WithNumIterations sets the number of boosting rounds
func (lgb *LGBMRegressor) WithNumIterations(n int) *LGBMRegressor {
	lgb.NumIterations = n
	return lgb
}

// WithMinChildSamples sets the minimum leaf size
func (lgb *LGBMRegressor) WithMinChildSamples(n int) *LGBMRegressor {
	lgb.MinChildSamples = n
	return lgb
}

// WithRandomState sets the random seed
func (lgb *LGBMRegressor) WithRandomState(seed int) *LGBMRegressor {
	lgb.RandomState = seed
	return lgb
}

// WithObjective sets the objective function
func (lgb *LGBMRegressor) WithObjective(obj string) *LGBMRegressor {
	lgb.Objective = obj
	return lgb
}

// WithVerbosity sets the verbosity level
func (lgb *LGBMRegressor) WithVerbosity(v int) *LGBMRegressor {
	lgb.Verbosity = v
	return lgb
}

// WithCallbacks registers training callbacks
func (lgb *LGBMRegressor) WithCallbacks(cbs ...Callback) *LGBMRegressor {
	lgb.callbacks = append(lgb.callbacks, cbs...)
	return lgb
}

// WithLogger sets the logger used for fit and progress messages.
func (lgb *LGBMRegressor) WithLogger(l log.Logger) *LGBMRegressor {
	lgb.logger = l
	return lgb
}

func (lgb *LGBMRegressor) getLogger() log.Logger {
	if lgb.logger == nil {
		return log.GetLoggerWithName("lightgbm.regressor")
	}
	return lgb.logger
}

func (lgb *LGBMRegressor) trainingParams() TrainingParams {
	return TrainingParams{
		NumIterations:       lgb.NumIterations,
		LearningRate:        lgb.LearningRate,
		NumLeaves:           lgb.NumLeaves,
		MaxDepth:            lgb.MaxDepth,
		MinDataInLeaf:       lgb.MinChildSamples,
		MinSumHessianInLeaf: lgb.MinChildWeight,
		Lambda:              lgb.RegLambda,
		MinGainToSplit:      lgb.MinSplitGain,
		MaxBin:              lgb.MaxBin,
		Objective:           lgb.Objective,
		Policy:              tree.LeafWise,
		Verbosity:           lgb.Verbosity,
	}
}

// Fit trains the regressor.
func (lgb *LGBMRegressor) Fit(X, y mat.Matrix) error {
	return lgb.FitContext(context.Background(), X, y)
}

// FitContext trains the regressor, stopping early if ctx is cancelled.
func (lgb *LGBMRegressor) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LGBMRegressor.Fit")

	if lgb.NumIterations <= 0 {
		return errors.NewValidationError("n_estimators", "must be positive", lgb.NumIterations)
	}
	if lgb.State == nil {
		lgb.State = model.NewStateManager()
	}
	lgb.State.Reset()

	cbs := lgb.callbacks[:len(lgb.callbacks):len(lgb.callbacks)]
	if lgb.Verbosity > 0 {
		cbs = append(cbs, LogEvaluation(lgb.getLogger(), 10))
	}
	trainer := NewTrainer(lgb.trainingParams()).WithCallbacks(cbs...)
	if err := trainer.Fit(ctx, X, y); err != nil {
		return err
	}
	lgb.Model = trainer.GetModel()

	rows, cols := X.Dims()
	lgb.State.SetDimensions(cols, rows)
	lgb.State.SetFitted()

	if lgb.Verbosity >= 0 {
		lgb.getLogger().Info("fit complete",
			log.ModelNameKey, "LGBMRegressor",
			"num_trees", lgb.Model.NumIterations(),
			log.SamplesKey, rows,
			log.FeaturesKey, cols,
		)
	}
	return nil
}

// Predict returns predictions for X.
func (lgb *LGBMRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lgb.State.CheckPredictInput("LGBMRegressor", X); err != nil {
		return nil, err
	}
	return lgb.Model.Predict(X)
}

// GetFeatureImportance returns "split" or "gain" importances.
func (lgb *LGBMRegressor) GetFeatureImportance(importanceType string) []float64 {
	if lgb.Model == nil {
		return nil
	}
	return lgb.Model.GetFeatureImportance(importanceType)
}

// FeatureImportances returns importances of ImportanceType.
func (lgb *LGBMRegressor) FeatureImportances() ([]float64, error) {
	if err := lgb.State.RequireFitted("LGBMRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}
	return lgb.GetFeatureImportance(lgb.ImportanceType), nil
}

// GetParams returns the hyperparameters using LightGBM's sklearn names.
func (lgb *LGBMRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"num_leaves":        lgb.NumLeaves,
		"max_depth":         lgb.MaxDepth,
		"learning_rate":     lgb.LearningRate,
		"n_estimators":      lgb.NumIterations,
		"min_child_samples": lgb.MinChildSamples,
		"min_child_weight":  lgb.MinChildWeight,
		"reg_lambda":        lgb.RegLambda,
		"min_split_gain":    lgb.MinSplitGain,
		"max_bin":           lgb.MaxBin,
		"random_state":      lgb.RandomState,
		"objective":         lgb.Objective,
		"importance_type":   lgb.ImportanceType,
	}
}
