package automl

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

// ModelArtifact is the fitted winner of a study. It is gob-encodable; every
// concrete estimator Build can return is registered with encoding/gob.
type ModelArtifact struct {
	StudyID      string
	Family       Family
	Params       Params
	Score        float64
	Model        model.Regressor
	FeatureNames []string
	NFeatures    int
	CreatedAt    time.Time
}

// Predict delegates to the fitted model.
func (a *ModelArtifact) Predict(X mat.Matrix) (mat.Matrix, error) {
	if a == nil || a.Model == nil {
		return nil, errors.NewNotFittedError("ModelArtifact", "Predict")
	}
	return a.Model.Predict(X)
}

// BuildFinal rebuilds (fam, params) and fits it once on all of X and y.
func BuildFinal(ctx context.Context, build BuildFunc, fam Family, params Params, X *mat.Dense, y *mat.VecDense) (*ModelArtifact, error) {
	if build == nil {
		build = Build
	}
	est, err := build(fam, params)
	if err != nil {
		return nil, err
	}
	err = errors.SafeExecute("automl.BuildFinal", func() error {
		return model.FitWithContext(ctx, est, X, y)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fit final %s", fam)
	}
	_, cols := X.Dims()
	return &ModelArtifact{
		Family:    fam,
		Params:    params.Clone(),
		Model:     est,
		NFeatures: cols,
		CreatedAt: time.Now().UTC(),
	}, nil
}
