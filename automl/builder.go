package automl

import (
	"encoding/gob"
	"maps"
	"math"
	"slices"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/linear"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/sklearn/ensemble"
	"github.com/YuminosukeSato/modelsearch/sklearn/lightgbm"
	"github.com/YuminosukeSato/modelsearch/sklearn/svm"
	"github.com/YuminosukeSato/modelsearch/sklearn/xgboost"
)

// Fixed settings applied by Build.
const (
	RandomSeed        = 42
	ElasticNetMaxIter = 5000
	xgbObjective      = xgboost.ObjectiveSquaredError
	lightgbmVerbosity = -1
	xgbVerbosity      = 0
)

func init() {
	gob.Register(&linear.ElasticNet{})
	gob.Register(&ensemble.RandomForestRegressor{})
	gob.Register(&svm.SVR{})
	gob.Register(&lightgbm.LGBMRegressor{})
	gob.Register(&xgboost.XGBRegressor{})
}

// BuildFunc turns a configuration into an unfitted estimator.
type BuildFunc func(Family, Params) (model.Regressor, error)

// Build returns an unfitted estimator for (f, p). It is pure: the same
// inputs always give an identically configured estimator.
func Build(f Family, p Params) (model.Regressor, error) {
	switch f {
	case ElasticNet:
		alpha, err := p.floatParam("alpha")
		if err != nil {
			return nil, err
		}
		ratio, err := p.floatParam("l1_ratio")
		if err != nil {
			return nil, err
		}
		return linear.NewElasticNet(
			linear.WithAlpha(alpha),
			linear.WithL1Ratio(ratio),
			linear.WithMaxIter(ElasticNetMaxIter),
			linear.WithRandomState(RandomSeed),
		), nil

	case RandomForest:
		n, err := p.intParam("rf_n_estimators")
		if err != nil {
			return nil, err
		}
		depth, err := p.intParam("rf_max_depth")
		if err != nil {
			return nil, err
		}
		return ensemble.NewRandomForestRegressor(
			ensemble.WithNEstimators(n),
			ensemble.WithMaxDepth(depth),
			ensemble.WithRandomState(RandomSeed),
		), nil

	case SVM:
		c, err := p.floatParam("svm_C")
		if err != nil {
			return nil, err
		}
		eps, err := p.floatParam("svm_epsilon")
		if err != nil {
			return nil, err
		}
		kernel, err := p.stringParam("svm_kernel")
		if err != nil {
			return nil, err
		}
		return svm.NewSVR(svm.WithC(c), svm.WithEpsilon(eps), svm.WithKernel(kernel)), nil

	case LightGBM:
		n, err := p.intParam("lgb_n_estimators")
		if err != nil {
			return nil, err
		}
		depth, err := p.intParam("lgb_max_depth")
		if err != nil {
			return nil, err
		}
		lr, err := p.floatParam("lgb_lr")
		if err != nil {
			return nil, err
		}
		return lightgbm.NewLGBMRegressor().
			WithNumIterations(n).
			WithMaxDepth(depth).
			WithLearningRate(lr).
			WithRandomState(RandomSeed).
			WithVerbosity(lightgbmVerbosity), nil

	case XGBoost:
		n, err := p.intParam("xgb_n_estimators")
		if err != nil {
			return nil, err
		}
		depth, err := p.intParam("xgb_max_depth")
		if err != nil {
			return nil, err
		}
		lr, err := p.floatParam("xgb_lr")
		if err != nil {
			return nil, err
		}
		return xgboost.NewXGBRegressor(
			xgboost.WithNEstimators(n),
			xgboost.WithMaxDepth(depth),
			xgboost.WithLearningRate(lr),
			xgboost.WithObjective(xgbObjective),
			xgboost.WithRandomState(RandomSeed),
			xgboost.WithVerbosity(xgbVerbosity),
		), nil

	default:
		return nil, errors.NewInvalidFamilyError(f.String(), familyNames[:])
	}
}

func (p Params) value(name string) (any, error) {
	v, ok := p[name]
	if !ok {
		return nil, errors.NewValidationError(name, "missing hyperparameter", nil)
	}
	return v, nil
}

func (p Params) floatParam(name string) (float64, error) {
	v, err := p.value(name)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	}
	return 0, errors.NewValidationError(name, "expected a number", v)
}

func (p Params) intParam(name string) (int, error) {
	v, err := p.value(name)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case float64:
		if x == math.Trunc(x) {
			return int(x), nil
		}
	}
	return 0, errors.NewValidationError(name, "expected an integer", v)
}

func (p Params) stringParam(name string) (string, error) {
	v, err := p.value(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(name, "expected a string", v)
	}
	return s, nil
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
