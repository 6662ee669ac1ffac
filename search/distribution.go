package search

import (
	"math"
	"slices"

	"golang.org/x/exp/constraints"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

// Distribution describes the domain of one parameter. Samplers work on an
// internal float64 representation: the value itself for numeric
// distributions and the choice index for categorical ones.
type Distribution interface {
	// Validate reports an empty or inverted domain.
	Validate() error
	// ToExternal converts an internal value to the user-facing value.
	ToExternal(internal float64) any
	// ToInternal converts a user-facing value to its internal form.
	ToInternal(external any) (float64, error)
	// Contains reports whether internal lies in the domain.
	Contains(internal float64) bool
}

// FloatDistribution is a continuous range, optionally sampled in log space.
type FloatDistribution struct {
	Low  float64
	High float64
	Log  bool
}

// IntDistribution is an inclusive integer range.
type IntDistribution struct {
	Low  int
	High int
}

// CategoricalDistribution is an unordered set of choices.
type CategoricalDistribution struct {
	Choices []string
}

func clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func inRange[T constraints.Integer | constraints.Float](v, lo, hi T) bool {
	return v >= lo && v <= hi
}

func (d FloatDistribution) Validate() error {
	if math.IsNaN(d.Low) || math.IsNaN(d.High) || d.Low > d.High {
		return errors.NewValidationError("distribution", "low must not exceed high", [2]float64{d.Low, d.High})
	}
	if d.Log && d.Low <= 0 {
		return errors.NewValidationError("distribution", "log domain requires low > 0", d.Low)
	}
	return nil
}

func (d FloatDistribution) ToExternal(internal float64) any {
	return clamp(internal, d.Low, d.High)
}

func (d FloatDistribution) ToInternal(external any) (float64, error) {
	switch v := external.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return 0, errors.NewValidationError("param", "expected a float", external)
}

func (d FloatDistribution) Contains(internal float64) bool {
	return inRange(internal, d.Low, d.High)
}

func (d IntDistribution) Validate() error {
	if d.Low > d.High {
		return errors.NewValidationError("distribution", "low must not exceed high", [2]int{d.Low, d.High})
	}
	return nil
}

func (d IntDistribution) ToExternal(internal float64) any {
	return clamp(int(math.Round(internal)), d.Low, d.High)
}

func (d IntDistribution) ToInternal(external any) (float64, error) {
	if v, ok := external.(int); ok {
		return float64(v), nil
	}
	return 0, errors.NewValidationError("param", "expected an int", external)
}

func (d IntDistribution) Contains(internal float64) bool {
	return internal == math.Round(internal) && inRange(int(internal), d.Low, d.High)
}

func (d CategoricalDistribution) Validate() error {
	if len(d.Choices) == 0 {
		return errors.NewValidationError("distribution", "categorical needs at least one choice", d.Choices)
	}
	return nil
}

func (d CategoricalDistribution) ToExternal(internal float64) any {
	return d.Choices[clamp(int(internal), 0, len(d.Choices)-1)]
}

func (d CategoricalDistribution) ToInternal(external any) (float64, error) {
	s, ok := external.(string)
	if !ok {
		return 0, errors.NewValidationError("param", "expected a string choice", external)
	}
	i := slices.Index(d.Choices, s)
	if i < 0 {
		return 0, errors.NewValidationError("param", "not one of the choices", s)
	}
	return float64(i), nil
}

func (d CategoricalDistribution) Contains(internal float64) bool {
	return internal == math.Round(internal) && inRange(int(internal), 0, len(d.Choices)-1)
}

// sameDistribution reports whether a and b describe the same domain.
func sameDistribution(a, b Distribution) bool {
	switch x := a.(type) {
	case FloatDistribution:
		y, ok := b.(FloatDistribution)
		return ok && x == y
	case IntDistribution:
		y, ok := b.(IntDistribution)
		return ok && x == y
	case CategoricalDistribution:
		y, ok := b.(CategoricalDistribution)
		return ok && slices.Equal(x.Choices, y.Choices)
	}
	return false
}
