package automl

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/metrics"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
	"github.com/YuminosukeSato/modelsearch/search"
	"github.com/YuminosukeSato/modelsearch/sklearn/model_selection"
)

// PenaltyScore is recorded for a trial whose evaluation failed.
const PenaltyScore = math.MaxFloat64

// UserAttrFamily is the user attribute holding the sampled family name.
const UserAttrFamily = "family"

// Scorer names used for cross-validation.
const (
	ScoreMAE = "mae"
	ScoreMSE = "mse"
	ScoreR2  = "r2"
)

var (
	maeScorer = model_selection.Scorer{Name: ScoreMAE, Fn: metrics.MAE}
	mseScorer = model_selection.Scorer{Name: ScoreMSE, Fn: metrics.MSE}
	r2Scorer  = model_selection.Scorer{Name: ScoreR2, Fn: metrics.R2Score}
)

// Evaluator is the objective of a study: one call samples a configuration,
// cross-validates it on fixed folds and returns the mean MAE.
type Evaluator struct {
	X        *mat.Dense
	y        *mat.VecDense
	folds    []model_selection.Fold
	families []Family
	tracker  *Tracker
	build    BuildFunc
	logger   log.Logger

	// Parallelism bounds concurrent fold fits; zero means GOMAXPROCS.
	Parallelism int
}

// NewEvaluator wires the data, the shared folds and the tracker. A nil
// build uses Build.
func NewEvaluator(X *mat.Dense, y *mat.VecDense, folds []model_selection.Fold, families []Family, tracker *Tracker, build BuildFunc) *Evaluator {
	if build == nil {
		build = Build
	}
	return &Evaluator{
		X:        X,
		y:        y,
		folds:    folds,
		families: families,
		tracker:  tracker,
		build:    build,
		logger:   log.GetLoggerWithName("automl.evaluator"),
	}
}

// WithLogger returns e with a different logger.
func (e *Evaluator) WithLogger(l log.Logger) *Evaluator {
	e.logger = l
	return e
}

// Objective implements search.Objective.
func (e *Evaluator) Objective(ctx context.Context, trial *search.Trial) (float64, error) {
	fam, params, err := SampleConfig(ctx, trial, e.families)
	if err != nil {
		return PenaltyScore, errors.NewTrialEvaluationError(trial.Number(), "", err)
	}
	trial.SetUserAttr(UserAttrFamily, fam.String())

	res, err := e.CrossValidate(ctx, fam, params, maeScorer)
	if err != nil {
		if ctx.Err() != nil {
			return PenaltyScore, ctx.Err()
		}
		return PenaltyScore, errors.NewTrialEvaluationError(trial.Number(), fam.String(), err)
	}
	score := res.Mean(ScoreMAE)

	improved := e.tracker.Update(trial.Number(), fam, score, params)
	e.logger.Debug("trial scored",
		log.TrialNumberKey, trial.Number(),
		log.FamilyKey, fam.String(),
		log.CVScoreKey, score,
		"improved", improved,
	)
	return score, nil
}

// CrossValidate builds (fam, params) fresh for every fold and scores it on
// the evaluator's folds. Panics inside a fit are returned as errors.
func (e *Evaluator) CrossValidate(ctx context.Context, fam Family, params Params, scorers ...model_selection.Scorer) (*model_selection.CVResult, error) {
	// Surface configuration errors once, before any fold starts.
	if _, err := e.build(fam, params); err != nil {
		return nil, err
	}
	factory := func() (model.Regressor, error) { return e.build(fam, params) }

	var res *model_selection.CVResult
	err := errors.SafeExecute("automl.CrossValidate", func() error {
		var err error
		res, err = model_selection.CrossValidate(ctx, factory, e.X, e.y, e.folds, scorers,
			model_selection.WithParallelism(e.Parallelism))
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
