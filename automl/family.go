// Package automl selects and tunes the best regression model for a
// numeric feature matrix.
//
// A study samples a model family and its hyperparameters per trial, scores
// each configuration by 5-fold cross-validated MAE, keeps the best
// configuration per family and finally refits the overall winner on all
// rows.
package automl

import (
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

// Family identifies a candidate model family.
type Family int

const (
	ElasticNet Family = iota
	RandomForest
	SVM
	LightGBM
	XGBoost
)

var familyNames = [...]string{
	ElasticNet:   "elasticnet",
	RandomForest: "random_forest",
	SVM:          "svm",
	LightGBM:     "lgbm",
	XGBoost:      "xgb",
}

// Families returns every family in enumeration order.
func Families() []Family {
	return []Family{ElasticNet, RandomForest, SVM, LightGBM, XGBoost}
}

// FamilyNames returns the identifiers of fams.
func FamilyNames(fams []Family) []string {
	out := make([]string, len(fams))
	for i, f := range fams {
		out[i] = f.String()
	}
	return out
}

// String returns the family identifier used in params and reports.
func (f Family) String() string {
	if f.valid() {
		return familyNames[f]
	}
	return "unknown"
}

func (f Family) valid() bool {
	return f >= ElasticNet && f <= XGBoost
}

// ParseFamily maps an identifier to its Family.
func ParseFamily(s string) (Family, error) {
	for i, name := range familyNames {
		if name == s {
			return Family(i), nil
		}
	}
	return 0, errors.NewInvalidFamilyError(s, familyNames[:])
}

// MarshalText implements encoding.TextMarshaler.
func (f Family) MarshalText() ([]byte, error) {
	if !f.valid() {
		return nil, errors.NewInvalidFamilyError(f.String(), familyNames[:])
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Family) UnmarshalText(text []byte) error {
	v, err := ParseFamily(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
