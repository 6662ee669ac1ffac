package automl

import (
	"context"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/search"
)

// FamilyParam is the categorical parameter that selects the family.
const FamilyParam = "model"

// ParamKind is how a hyperparameter is sampled.
type ParamKind int

const (
	Continuous ParamKind = iota
	LogContinuous
	Integer
	Categorical
)

// ParamSpec is one hyperparameter of a family's search space.
type ParamSpec struct {
	Name    string
	Kind    ParamKind
	Low     float64
	High    float64
	Choices []string
}

// Params holds concrete hyperparameter values: float64 for continuous
// kinds, int for integers and string for categoricals.
type Params map[string]any

var spaces = map[Family][]ParamSpec{
	ElasticNet: {
		{Name: "alpha", Kind: LogContinuous, Low: 1e-4, High: 10},
		{Name: "l1_ratio", Kind: Continuous, Low: 0, High: 1},
	},
	RandomForest: {
		{Name: "rf_n_estimators", Kind: Integer, Low: 100, High: 1000},
		{Name: "rf_max_depth", Kind: Integer, Low: 3, High: 30},
	},
	SVM: {
		{Name: "svm_C", Kind: LogContinuous, Low: 0.1, High: 100},
		{Name: "svm_epsilon", Kind: LogContinuous, Low: 0.01, High: 1},
		{Name: "svm_kernel", Kind: Categorical, Choices: []string{"linear", "rbf"}},
	},
	LightGBM: {
		{Name: "lgb_n_estimators", Kind: Integer, Low: 100, High: 1000},
		{Name: "lgb_max_depth", Kind: Integer, Low: 3, High: 30},
		{Name: "lgb_lr", Kind: Continuous, Low: 0.01, High: 0.3},
	},
	XGBoost: {
		{Name: "xgb_n_estimators", Kind: Integer, Low: 100, High: 1000},
		{Name: "xgb_max_depth", Kind: Integer, Low: 3, High: 30},
		{Name: "xgb_lr", Kind: Continuous, Low: 0.01, High: 0.3},
	},
}

// SpaceFor returns the ordered search space of f.
func SpaceFor(f Family) ([]ParamSpec, error) {
	space, ok := spaces[f]
	if !ok {
		return nil, errors.NewInvalidFamilyError(f.String(), familyNames[:])
	}
	return append([]ParamSpec(nil), space...), nil
}

// Sample draws every parameter of space from the trial oracle, in order.
func Sample(trial *search.Trial, space []ParamSpec) (Params, error) {
	p := make(Params, len(space))
	for _, s := range space {
		var (
			v   any
			err error
		)
		switch s.Kind {
		case Continuous:
			v, err = trial.SuggestFloat(s.Name, s.Low, s.High)
		case LogContinuous:
			v, err = trial.SuggestLogFloat(s.Name, s.Low, s.High)
		case Integer:
			v, err = trial.SuggestInt(s.Name, int(s.Low), int(s.High))
		case Categorical:
			v, err = trial.SuggestCategorical(s.Name, s.Choices)
		default:
			err = errors.NewValidationError(s.Name, "unknown parameter kind", s.Kind)
		}
		if err != nil {
			return nil, err
		}
		p[s.Name] = v
	}
	return p, nil
}

// SampleConfig picks a family among fams and then its hyperparameters.
func SampleConfig(_ context.Context, trial *search.Trial, fams []Family) (Family, Params, error) {
	name, err := trial.SuggestCategorical(FamilyParam, FamilyNames(fams))
	if err != nil {
		return 0, nil, err
	}
	fam, err := ParseFamily(name)
	if err != nil {
		return 0, nil, err
	}
	space, err := SpaceFor(fam)
	if err != nil {
		return 0, nil, err
	}
	params, err := Sample(trial, space)
	if err != nil {
		return 0, nil, err
	}
	return fam, params, nil
}
