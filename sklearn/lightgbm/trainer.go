package lightgbm

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
	"github.com/YuminosukeSato/modelsearch/sklearn/tree"
)

// Objective names accepted by the trainer. Only squared error is supported.
var l2Objectives = map[string]bool{
	"":                 true,
	"regression":       true,
	"l2":               true,
	"mse":              true,
	"reg:squarederror": true,
}

// TrainingParams contains the boosting hyperparameters.
type TrainingParams struct {
	NumIterations int     `json:"num_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	NumLeaves     int     `json:"num_leaves"`
	// MaxDepth <= 0 means unlimited.
	MaxDepth            int     `json:"max_depth"`
	MinDataInLeaf       int     `json:"min_data_in_leaf"`
	MinSumHessianInLeaf float64 `json:"min_sum_hessian_in_leaf"`

	Lambda         float64 `json:"lambda_l2"`
	MinGainToSplit float64 `json:"min_gain_to_split"`

	MaxBin int `json:"max_bin"`

	Objective string `json:"objective"`
	// BaseScore overrides the boost-from-average initial score when set.
	BaseScore *float64 `json:"base_score,omitempty"`

	// Policy selects leaf-wise (default) or depth-wise growth.
	Policy tree.GrowPolicy `json:"-"`

	Verbosity int `json:"verbosity"`
}

// Trainer boosts trees on a squared-error objective.
type Trainer struct {
	params    TrainingParams
	callbacks []Callback
	model     *Model
}

// NewTrainer fills LightGBM defaults for unset fields.
func NewTrainer(params TrainingParams) *Trainer {
	if params.NumIterations == 0 {
		params.NumIterations = 100
	}
	if params.LearningRate == 0 {
		params.LearningRate = 0.1
	}
	if params.NumLeaves == 0 && params.Policy == tree.LeafWise {
		params.NumLeaves = 31
	}
	if params.MaxBin == 0 {
		params.MaxBin = 255
	}
	return &Trainer{params: params}
}

// WithCallbacks registers training callbacks.
func (t *Trainer) WithCallbacks(callbacks ...Callback) *Trainer {
	t.callbacks = append(t.callbacks, callbacks...)
	return t
}

func (t *Trainer) validate() error {
	p := t.params
	switch {
	case !l2Objectives[p.Objective]:
		return errors.NewValidationError("objective", "only squared error regression is supported", p.Objective)
	case p.NumIterations < 0:
		return errors.NewValidationError("num_iterations", "must be positive", p.NumIterations)
	case !(p.LearningRate > 0):
		return errors.NewValidationError("learning_rate", "must be positive", p.LearningRate)
	case p.Policy == tree.LeafWise && p.NumLeaves < 2:
		return errors.NewValidationError("num_leaves", "must be at least 2", p.NumLeaves)
	case p.Lambda < 0:
		return errors.NewValidationError("lambda_l2", "must be non-negative", p.Lambda)
	case p.MaxBin < 2 || p.MaxBin > tree.MaxBins:
		return errors.NewValidationError("max_bin", "must be in [2, 256]", p.MaxBin)
	}
	return nil
}

// Fit trains a model. The context is checked between iterations.
func (t *Trainer) Fit(ctx context.Context, X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "lightgbm.Trainer.Fit")

	if err := t.validate(); err != nil {
		return err
	}
	yVec, err := model.CheckXY("lightgbm.Trainer.Fit", X, y)
	if err != nil {
		return err
	}
	n, p := X.Dims()
	params := t.params

	mapper := tree.NewBinMapper(X, params.MaxBin)
	binned := mapper.Transform(X)
	grower := tree.NewGrower(tree.GrowerConfig{
		Policy:          params.Policy,
		MaxDepth:        params.MaxDepth,
		MaxLeaves:       params.NumLeaves,
		MinSamplesSplit: 2 * max(params.MinDataInLeaf, 1),
		Split: tree.SplitParams{
			Lambda:         params.Lambda,
			MinSamplesLeaf: params.MinDataInLeaf,
			MinChildWeight: params.MinSumHessianInLeaf,
			MinGainToSplit: params.MinGainToSplit,
		},
	}, mapper, binned)

	target := make([]float64, n)
	var mean float64
	for i := range target {
		target[i] = yVec.AtVec(i)
		mean += target[i]
	}
	mean /= float64(n)
	init := mean
	if params.BaseScore != nil {
		init = *params.BaseScore
	}

	t.model = &Model{
		InitScore:    init,
		LearningRate: params.LearningRate,
		NumFeatures:  p,
		Objective:    "regression",
	}

	score := make([]float64, n)
	for i := range score {
		score[i] = init
	}
	grad := make([]float64, n)
	hess := make([]float64, n)
	for i := range hess {
		hess[i] = 1
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	leafOf := make([]int, n)

	logger := log.GetLoggerWithName("lightgbm.trainer")
	start := time.Now()
	for iter := 0; iter < params.NumIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range grad {
			grad[i] = score[i] - target[i]
		}

		tr := grower.Grow(indices, grad, hess, leafOf)
		tr.Shrink(params.LearningRate)
		t.model.Trees = append(t.model.Trees, tr)

		var loss float64
		for i := range score {
			score[i] += tr.Nodes[leafOf[i]].Value
			r := score[i] - target[i]
			loss += r * r
		}
		loss /= float64(n)

		if len(t.callbacks) > 0 {
			env := &CallbackEnv{
				Model:       t.model,
				Iteration:   iter,
				Elapsed:     time.Since(start),
				EvalResults: map[string]float64{"training_l2": loss},
			}
			for _, cb := range t.callbacks {
				if err := cb(env); err != nil {
					return errors.Wrapf(err, "callback failed at iteration %d", iter)
				}
			}
			if env.StopTraining {
				if params.Verbosity > 0 {
					logger.Info("training stopped by callback", log.IterationKey, iter)
				}
				break
			}
		}

		if len(tr.Nodes) == 1 {
			if params.Verbosity >= 0 {
				logger.Debug("stopped training: no split has positive gain", log.IterationKey, iter)
			}
			break
		}
	}
	return nil
}

// GetModel returns the trained model, or nil before Fit.
func (t *Trainer) GetModel() *Model {
	return t.model
}
