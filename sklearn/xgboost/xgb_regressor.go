// Package xgboost provides an XGBoost-style depth-wise gradient boosted
// regressor built on the histogram trainer of package lightgbm.
package xgboost

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
	"github.com/YuminosukeSato/modelsearch/sklearn/lightgbm"
	"github.com/YuminosukeSato/modelsearch/sklearn/tree"
)

// ObjectiveSquaredError is the only supported objective.
const ObjectiveSquaredError = "reg:squarederror"

// Option configures an XGBRegressor.
type Option func(*XGBRegressor)

// WithNEstimators sets the number of boosting rounds.
func WithNEstimators(n int) Option {
	return func(x *XGBRegressor) { x.NEstimators = n }
}

// WithMaxDepth sets the maximum tree depth.
func WithMaxDepth(d int) Option {
	return func(x *XGBRegressor) { x.MaxDepth = d }
}

// WithLearningRate sets eta.
func WithLearningRate(lr float64) Option {
	return func(x *XGBRegressor) { x.LearningRate = lr }
}

// WithRegLambda sets the L2 penalty on leaf weights.
func WithRegLambda(l float64) Option {
	return func(x *XGBRegressor) { x.RegLambda = l }
}

// WithGamma sets the minimum loss reduction required to split.
func WithGamma(g float64) Option {
	return func(x *XGBRegressor) { x.Gamma = g }
}

// WithMinChildWeight sets the minimum hessian sum in a child.
func WithMinChildWeight(w float64) Option {
	return func(x *XGBRegressor) { x.MinChildWeight = w }
}

// WithObjective sets the learning objective.
func WithObjective(obj string) Option {
	return func(x *XGBRegressor) { x.Objective = obj }
}

// WithBaseScore fixes the initial prediction instead of mean(y).
func WithBaseScore(s float64) Option {
	return func(x *XGBRegressor) { x.BaseScore = &s }
}

// WithVerbosity sets the XGBoost verbosity: 0 silent, 1 warnings,
// 2 adds a fit summary, 3 adds progress every 10 rounds.
func WithVerbosity(v int) Option {
	return func(x *XGBRegressor) { x.Verbosity = v }
}

// WithLogger sets the logger used when Verbosity > 0.
func WithLogger(l log.Logger) Option {
	return func(x *XGBRegressor) { x.logger = l }
}

// WithRandomState sets the seed.
func WithRandomState(seed int64) Option {
	return func(x *XGBRegressor) { x.RandomState = seed }
}

// XGBRegressor grows trees level by level with the hist method.
type XGBRegressor struct {
	NEstimators    int
	MaxDepth       int
	LearningRate   float64
	RegLambda      float64
	Gamma          float64
	MinChildWeight float64
	MaxBin         int
	Objective      string
	BaseScore      *float64
	RandomState    int64
	Verbosity      int

	Booster *lightgbm.Model
	State   *model.StateManager

	logger log.Logger
}

// NewXGBRegressor returns a regressor with XGBoost's defaults
// (100 rounds, depth 6, eta 0.3, lambda 1, gamma 0, min_child_weight 1).
func NewXGBRegressor(opts ...Option) *XGBRegressor {
	x := &XGBRegressor{
		NEstimators:    100,
		MaxDepth:       6,
		LearningRate:   0.3,
		RegLambda:      1,
		MinChildWeight: 1,
		MaxBin:         256,
		Objective:      ObjectiveSquaredError,
		Verbosity:      1,
		State:          model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func (x *XGBRegressor) validate() error {
	switch {
	case x.Objective != ObjectiveSquaredError:
		return errors.NewValidationError("objective", "only reg:squarederror is supported", x.Objective)
	case x.NEstimators <= 0:
		return errors.NewValidationError("n_estimators", "must be positive", x.NEstimators)
	case x.MaxDepth < 0:
		return errors.NewValidationError("max_depth", "must be non-negative", x.MaxDepth)
	case x.Gamma < 0:
		return errors.NewValidationError("gamma", "must be non-negative", x.Gamma)
	case x.MinChildWeight < 0:
		return errors.NewValidationError("min_child_weight", "must be non-negative", x.MinChildWeight)
	case x.Verbosity < 0 || x.Verbosity > 3:
		return errors.NewValidationError("verbosity", "must be in [0, 3]", x.Verbosity)
	}
	return nil
}

// Fit trains the booster.
func (x *XGBRegressor) Fit(X, y mat.Matrix) error {
	return x.FitContext(context.Background(), X, y)
}

// FitContext trains the booster, checking ctx between rounds.
func (x *XGBRegressor) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "XGBRegressor.Fit")

	if err := x.validate(); err != nil {
		return err
	}
	if x.State == nil {
		x.State = model.NewStateManager()
	}
	x.State.Reset()

	logger := x.logger
	if logger == nil {
		logger = log.GetLoggerWithName("xgboost")
	}
	trainerVerbosity := -1
	if x.Verbosity > 0 {
		trainerVerbosity = 0
	}

	// gains are computed with a ½ factor, so gamma is halved to match
	// XGBoost's loss_chg > gamma rule
	trainer := lightgbm.NewTrainer(lightgbm.TrainingParams{
		NumIterations:       x.NEstimators,
		LearningRate:        x.LearningRate,
		MaxDepth:            x.MaxDepth,
		MinSumHessianInLeaf: x.MinChildWeight,
		Lambda:              x.RegLambda,
		MinGainToSplit:      x.Gamma / 2,
		MaxBin:              x.MaxBin,
		Objective:           x.Objective,
		BaseScore:           x.BaseScore,
		Policy:              tree.DepthWise,
		Verbosity:           trainerVerbosity,
	})
	if x.Verbosity >= 3 {
		trainer.WithCallbacks(lightgbm.LogEvaluation(logger, 10))
	}
	if err := trainer.Fit(ctx, X, y); err != nil {
		return err
	}
	x.Booster = trainer.GetModel()

	rows, cols := X.Dims()
	x.State.SetDimensions(cols, rows)
	x.State.SetFitted()

	if x.Verbosity >= 2 {
		logger.Info("fit complete",
			log.ModelNameKey, "XGBRegressor",
			"num_trees", x.Booster.NumIterations(),
			log.SamplesKey, rows,
			log.FeaturesKey, cols,
		)
	}
	return nil
}

// Predict returns predictions for X.
func (x *XGBRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := x.State.CheckPredictInput("XGBRegressor", X); err != nil {
		return nil, err
	}
	return x.Booster.Predict(X)
}

// FeatureImportances returns the normalized average gain per split of
// each feature.
func (x *XGBRegressor) FeatureImportances() ([]float64, error) {
	if err := x.State.RequireFitted("XGBRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}
	gain := x.Booster.GetFeatureImportance(tree.ImportanceGain)
	splits := x.Booster.GetFeatureImportance(tree.ImportanceSplit)
	for j := range gain {
		if splits[j] > 0 {
			gain[j] /= splits[j]
		}
	}
	return tree.Normalize(gain), nil
}

// GetParams returns the hyperparameters.
func (x *XGBRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     x.NEstimators,
		"max_depth":        x.MaxDepth,
		"learning_rate":    x.LearningRate,
		"reg_lambda":       x.RegLambda,
		"gamma":            x.Gamma,
		"min_child_weight": x.MinChildWeight,
		"max_bin":          x.MaxBin,
		"objective":        x.Objective,
		"random_state":     x.RandomState,
		"verbosity":        x.Verbosity,
	}
}
