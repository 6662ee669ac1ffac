// Package preprocessing turns raw numeric columns into model-ready features.
//
// The study itself consumes an already numeric matrix. The CLI runs a
// Pipeline (median imputation, then standardisation) fitted on the training
// split and persists it next to the model so predict can replay it.
package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

// Transformer is fitted on training rows and applied to any rows with the
// same columns.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (*mat.Dense, error)
}

// StandardScaler rescales every column to zero mean and unit population
// variance. Constant columns keep a scale of 1.
type StandardScaler struct {
	Mean     []float64
	Scale    []float64
	WithMean bool
	WithStd  bool

	State *model.StateManager
}

// NewStandardScaler creates a StandardScaler.
//
// Parameters:
//   - withMean: subtract the column mean
//   - withStd: divide by the column standard deviation
//
// Example:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	Xs, err := scaler.FitTransform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{WithMean: withMean, WithStd: withStd, State: model.NewStateManager()}
}

// Fit computes the column statistics of X. NaN cells are not allowed; run
// a SimpleImputer first.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "StandardScaler.Fit")
	}
	if err := errors.CheckMatrix("StandardScaler.Fit", X); err != nil {
		return err
	}
	if s.State == nil {
		s.State = model.NewStateManager()
	}
	s.State.Reset()

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, variance := stat.PopMeanVariance(col, nil)
		if s.WithMean {
			s.Mean[j] = mean
		}
		s.Scale[j] = 1
		if s.WithStd {
			if sd := math.Sqrt(variance); sd > 1e-8 {
				s.Scale[j] = sd
			}
		}
	}

	s.State.SetDimensions(c, r)
	s.State.SetFitted()
	return nil
}

// Transform standardises X with the fitted statistics.
func (s *StandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.State.CheckPredictInput("StandardScaler", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return out, nil
}

// FitTransform fits on X and returns X standardised.
func (s *StandardScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform maps standardised values back to the original scale.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.State.CheckPredictInput("StandardScaler", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, X)
	return out, nil
}

// GetParams returns the scaler configuration.
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.WithMean,
		"with_std":  s.WithStd,
	}
}

func (s *StandardScaler) String() string {
	nFeatures, _ := s.State.GetDimensions()
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)", s.WithMean, s.WithStd, nFeatures)
}

// SimpleImputer replaces NaN cells with the column median of the training
// rows.
type SimpleImputer struct {
	Statistics []float64

	State *model.StateManager
}

// NewSimpleImputer returns a median imputer.
func NewSimpleImputer() *SimpleImputer {
	return &SimpleImputer{State: model.NewStateManager()}
}

// Fit records the median of the non-NaN values of every column. A column
// with no values at all is an error.
func (im *SimpleImputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "SimpleImputer.Fit")
	}
	if im.State == nil {
		im.State = model.NewStateManager()
	}
	im.State.Reset()

	im.Statistics = make([]float64, c)
	vals := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		vals = vals[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			return errors.NewValueError("SimpleImputer.Fit", fmt.Sprintf("column %d has no observed values", j))
		}
		sort.Float64s(vals)
		im.Statistics[j] = median(vals)
	}

	im.State.SetDimensions(c, r)
	im.State.SetFitted()
	return nil
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Transform fills NaN cells of X.
func (im *SimpleImputer) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := im.State.RequireFitted("SimpleImputer", "Transform"); err != nil {
		return nil, err
	}
	nFeatures, _ := im.State.GetDimensions()
	r, c := X.Dims()
	if c != nFeatures {
		return nil, errors.NewDimensionError("SimpleImputer.Transform", nFeatures, c, 1)
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		if math.IsNaN(v) {
			return im.Statistics[j]
		}
		return v
	}, X)
	return out, nil
}

// Pipeline applies its steps in order.
type Pipeline struct {
	Imputer *SimpleImputer
	Scaler  *StandardScaler
}

// NewPipeline returns median imputation followed by standardisation.
func NewPipeline() *Pipeline {
	return &Pipeline{Imputer: NewSimpleImputer(), Scaler: NewStandardScaler(true, true)}
}

// Fit fits every step on the output of the previous one.
func (p *Pipeline) Fit(X mat.Matrix) error {
	_, err := p.FitTransform(X)
	return err
}

// FitTransform fits the pipeline and returns the transformed X.
func (p *Pipeline) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := p.Imputer.Fit(X); err != nil {
		return nil, err
	}
	filled, err := p.Imputer.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.Scaler.FitTransform(filled)
}

// Transform runs every fitted step.
func (p *Pipeline) Transform(X mat.Matrix) (*mat.Dense, error) {
	filled, err := p.Imputer.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.Scaler.Transform(filled)
}
