package lightgbm

import (
	"time"

	"github.com/YuminosukeSato/modelsearch/pkg/log"
)

// CallbackEnv is passed to callbacks after every boosting iteration.
type CallbackEnv struct {
	Model        *Model
	Iteration    int
	Elapsed      time.Duration
	EvalResults  map[string]float64
	StopTraining bool
}

// Callback observes training. Setting env.StopTraining ends boosting after
// the current iteration; a returned error aborts Fit.
type Callback func(env *CallbackEnv) error

// RecordEvaluation appends every evaluation result to history.
func RecordEvaluation(history map[string][]float64) Callback {
	return func(env *CallbackEnv) error {
		for name, value := range env.EvalResults {
			history[name] = append(history[name], value)
		}
		return nil
	}
}

// LogEvaluation logs the evaluation results at debug level every period
// iterations. LGBMRegressor installs it when Verbosity > 0.
func LogEvaluation(logger log.Logger, period int) Callback {
	if period <= 0 {
		period = 1
	}
	return func(env *CallbackEnv) error {
		if env.Iteration%period != 0 {
			return nil
		}
		fields := []interface{}{log.IterationKey, env.Iteration}
		for name, value := range env.EvalResults {
			fields = append(fields, name, value)
		}
		logger.Debug("boosting progress", fields...)
		return nil
	}
}

// EarlyStopOnPlateau stops once the named metric has not improved by more
// than minDelta for rounds consecutive iterations.
func EarlyStopOnPlateau(metric string, rounds int, minDelta float64) Callback {
	best := 0.0
	seen := false
	stale := 0
	return func(env *CallbackEnv) error {
		v, ok := env.EvalResults[metric]
		if !ok {
			return nil
		}
		if !seen || v < best-minDelta {
			best, seen, stale = v, true, 0
			return nil
		}
		stale++
		if stale >= rounds {
			env.StopTraining = true
		}
		return nil
	}
}
