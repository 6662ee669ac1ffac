package search

import (
	"maps"
	"time"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

// TrialState is the lifecycle state of a trial.
type TrialState string

const (
	TrialRunning  TrialState = "RUNNING"
	TrialComplete TrialState = "COMPLETE"
	TrialFail     TrialState = "FAIL"
)

// FrozenTrial is the immutable record of a finished trial.
type FrozenTrial struct {
	Number        int
	State         TrialState
	Value         float64
	Params        map[string]any
	Distributions map[string]Distribution
	UserAttrs     map[string]any
	Err           error
	Start         time.Time
	End           time.Time

	internal map[string]float64
}

// Duration is End − Start.
func (ft FrozenTrial) Duration() time.Duration {
	return ft.End.Sub(ft.Start)
}

// Trial is the oracle handed to an objective. Parameters are sampled lazily
// the first time they are suggested; asking again for the same name returns
// the same value.
type Trial struct {
	number  int
	sampler Sampler
	history []FrozenTrial
	start   time.Time

	params    map[string]any
	internal  map[string]float64
	dists     map[string]Distribution
	userAttrs map[string]any
}

func newTrial(number int, sampler Sampler, history []FrozenTrial) *Trial {
	return &Trial{
		number:    number,
		sampler:   sampler,
		history:   history,
		start:     time.Now(),
		params:    make(map[string]any),
		internal:  make(map[string]float64),
		dists:     make(map[string]Distribution),
		userAttrs: make(map[string]any),
	}
}

// Number is the zero-based position of the trial in the study.
func (t *Trial) Number() int {
	return t.number
}

func (t *Trial) suggest(name string, dist Distribution) (any, error) {
	if v, ok := t.params[name]; ok {
		if !sameDistribution(t.dists[name], dist) {
			return nil, errors.NewValidationError(name, "suggested twice with different domains", dist)
		}
		return v, nil
	}
	if err := dist.Validate(); err != nil {
		return nil, errors.Wrapf(err, "parameter %q", name)
	}
	internal := t.sampler.Sample(t.history, name, dist)
	external := dist.ToExternal(internal)
	// re-derive so that rounding and clamping are reflected internally
	internal, _ = dist.ToInternal(external)

	t.params[name] = external
	t.internal[name] = internal
	t.dists[name] = dist
	return external, nil
}

// SuggestFloat samples a float from [low, high].
func (t *Trial) SuggestFloat(name string, low, high float64) (float64, error) {
	v, err := t.suggest(name, FloatDistribution{Low: low, High: high})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// SuggestLogFloat samples a float from [low, high] in log space.
func (t *Trial) SuggestLogFloat(name string, low, high float64) (float64, error) {
	v, err := t.suggest(name, FloatDistribution{Low: low, High: high, Log: true})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// SuggestInt samples an integer from the inclusive range [low, high].
func (t *Trial) SuggestInt(name string, low, high int) (int, error) {
	v, err := t.suggest(name, IntDistribution{Low: low, High: high})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// SuggestCategorical samples one of choices.
func (t *Trial) SuggestCategorical(name string, choices []string) (string, error) {
	v, err := t.suggest(name, CategoricalDistribution{Choices: cloneChoices(choices)})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// SetUserAttr attaches an arbitrary value to the trial record.
func (t *Trial) SetUserAttr(key string, value any) {
	t.userAttrs[key] = value
}

// Params returns a copy of the parameters sampled so far.
func (t *Trial) Params() map[string]any {
	return maps.Clone(t.params)
}

func (t *Trial) freeze(state TrialState, value float64, err error) FrozenTrial {
	return FrozenTrial{
		Number:        t.number,
		State:         state,
		Value:         value,
		Params:        maps.Clone(t.params),
		Distributions: maps.Clone(t.dists),
		UserAttrs:     maps.Clone(t.userAttrs),
		Err:           err,
		Start:         t.start,
		End:           time.Now(),
		internal:      maps.Clone(t.internal),
	}
}

func cloneChoices(s []string) []string {
	return append([]string(nil), s...)
}
