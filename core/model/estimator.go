// Package model defines the estimator contracts shared by every model family
// together with fitted-state bookkeeping, input validation and gob persistence.
package model

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Fitter is a model that learns from training data.
type Fitter interface {
	// Fit trains on X (n×p) and y (n×1 or a vector of length n).
	Fit(X, y mat.Matrix) error
}

// Predictor is a model that produces predictions.
type Predictor interface {
	// Predict returns an n×1 matrix of predictions.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor is the capability every model family implements.
type Regressor interface {
	Fitter
	Predictor
}

// ParameterGetter exposes an estimator's hyperparameters.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// CoefProvider is implemented by linear models.
type CoefProvider interface {
	// Coef returns the learned weights, one per feature.
	Coef() []float64
}

// FeatureImportanceProvider is implemented by tree ensembles.
type FeatureImportanceProvider interface {
	// FeatureImportances returns normalized per-feature importances.
	FeatureImportances() ([]float64, error)
}

// ContextFitter is implemented by estimators whose training loop can be
// cancelled.
type ContextFitter interface {
	FitContext(ctx context.Context, X, y mat.Matrix) error
}

// FitWithContext calls FitContext when m supports it and Fit otherwise.
func FitWithContext(ctx context.Context, m Fitter, X, y mat.Matrix) error {
	if cf, ok := m.(ContextFitter); ok {
		return cf.FitContext(ctx, X, y)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Fit(X, y)
}
