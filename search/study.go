// Package search runs sequential model-based hyperparameter optimisation.
//
// An objective receives a *Trial and asks it for parameter values; the
// study's Sampler proposes them from the history of finished trials. The
// study proposes trial i+1 only after trial i has been recorded.
package search

import (
	"context"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
)

// ErrNoCompletedTrials is returned by BestTrial before any trial completes.
var ErrNoCompletedTrials = errors.New("search: no completed trials")

// Objective evaluates one trial and returns the value to minimise. A
// returned error marks the trial FAIL and the study moves on, unless the
// error is a context cancellation, which ends the study.
type Objective func(ctx context.Context, trial *Trial) (float64, error)

// Callback observes every finished trial.
type Callback interface {
	OnTrialComplete(study *Study, trial FrozenTrial)
}

// CallbackFunc adapts a function to Callback.
type CallbackFunc func(study *Study, trial FrozenTrial)

// OnTrialComplete implements Callback.
func (f CallbackFunc) OnTrialComplete(study *Study, trial FrozenTrial) { f(study, trial) }

// Progress phases.
const (
	PhaseStartup  = "InitialSampling"
	PhaseOptimize = "Optimization"
)

// ProgressUpdate reports the state of the study after each trial.
type ProgressUpdate struct {
	Phase             string
	CurrentIteration  int
	TotalIterations   int
	CurrentParams     map[string]any
	CurrentBestParams map[string]any
	CurrentBestValue  float64
	LastValue         float64
	LastState         TrialState
}

// StudyOption configures a Study.
type StudyOption func(*Study)

// WithSampler replaces the default TPE sampler.
func WithSampler(s Sampler) StudyOption {
	return func(st *Study) { st.sampler = s }
}

// WithFailValue sets the value recorded for failed trials.
func WithFailValue(v float64) StudyOption {
	return func(st *Study) { st.failValue = v }
}

// WithProgress sends a ProgressUpdate after every trial. Updates are
// dropped when the channel is not ready.
func WithProgress(ch chan<- ProgressUpdate) StudyOption {
	return func(st *Study) { st.progress = ch }
}

// WithStartupPhase tells progress reporting how long the random phase
// lasts.
func WithStartupPhase(n int) StudyOption {
	return func(st *Study) { st.startupTrials = n }
}

// WithLogger sets the study logger.
func WithLogger(l log.Logger) StudyOption {
	return func(st *Study) { st.logger = l }
}

// Study holds the trial history of one optimisation run.
type Study struct {
	ID string

	sampler       Sampler
	failValue     float64
	progress      chan<- ProgressUpdate
	startupTrials int
	logger        log.Logger

	mu     sync.RWMutex
	trials []FrozenTrial
	best   int
}

// NewStudy creates an empty study minimising its objective.
func NewStudy(opts ...StudyOption) *Study {
	st := &Study{
		ID:            uuid.NewString(),
		failValue:     math.MaxFloat64,
		startupTrials: DefaultStartupTrials,
		best:          -1,
	}
	for _, opt := range opts {
		opt(st)
	}
	if st.sampler == nil {
		st.sampler = NewTPESampler(0)
	}
	if st.logger == nil {
		st.logger = log.GetLoggerWithName("search")
	}
	st.logger = st.logger.With(log.StudyIDKey, st.ID)
	return st
}

type trialResult struct {
	trial *Trial
	value float64
	err   error
}

// Optimize runs nTrials trials. A search actor proposes one trial at a time
// and an evaluator actor runs the objective on it; they exchange exactly one
// trial and one result per step over unbuffered channels. The context is
// checked before every proposal.
func (st *Study) Optimize(ctx context.Context, objective Objective, nTrials int, callbacks ...Callback) error {
	if nTrials <= 0 {
		return errors.NewValidationError("n_trials", "must be positive", nTrials)
	}

	proposals := make(chan *Trial)
	results := make(chan trialResult)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for t := range proposals {
			v, err := objective(ctx, t)
			results <- trialResult{trial: t, value: v, err: err}
		}
	}()
	defer wg.Wait()
	defer close(proposals)

	for i := 0; i < nTrials; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		number := st.nextNumber()
		proposals <- newTrial(number, st.sampler, st.Trials())
		res := <-results

		if res.err != nil && isCancellation(res.err) && ctx.Err() != nil {
			return ctx.Err()
		}
		ft := st.record(res)
		for _, cb := range callbacks {
			cb.OnTrialComplete(st, ft)
		}
		st.sendProgress(ft, nTrials)
	}
	return nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (st *Study) nextNumber() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.trials)
}

func (st *Study) record(res trialResult) FrozenTrial {
	var ft FrozenTrial
	switch {
	case res.err != nil:
		ft = res.trial.freeze(TrialFail, st.failValue, res.err)
		st.logger.Error("trial failed", res.err, log.TrialNumberKey, ft.Number, log.TrialStateKey, string(ft.State))
	case math.IsNaN(res.value):
		ft = res.trial.freeze(TrialFail, st.failValue, errors.New("objective returned NaN"))
		st.logger.Warn("trial returned NaN", log.TrialNumberKey, ft.Number)
	default:
		ft = res.trial.freeze(TrialComplete, res.value, nil)
		st.logger.Info("trial finished",
			log.TrialNumberKey, ft.Number,
			log.TrialStateKey, string(ft.State),
			log.CVScoreKey, ft.Value,
		)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.trials = append(st.trials, ft)
	if ft.State == TrialComplete && (st.best < 0 || ft.Value < st.trials[st.best].Value) {
		st.best = len(st.trials) - 1
	}
	return ft
}

func (st *Study) sendProgress(ft FrozenTrial, total int) {
	if st.progress == nil {
		return
	}
	phase := PhaseOptimize
	if ft.Number < st.startupTrials {
		phase = PhaseStartup
	}
	update := ProgressUpdate{
		Phase:            phase,
		CurrentIteration: ft.Number + 1,
		TotalIterations:  total,
		CurrentParams:    ft.Params,
		CurrentBestValue: math.Inf(1),
		LastValue:        ft.Value,
		LastState:        ft.State,
	}
	if best, err := st.BestTrial(); err == nil {
		update.CurrentBestParams = best.Params
		update.CurrentBestValue = best.Value
	}
	select {
	case st.progress <- update:
	default:
	}
}

// Trials returns a copy of the history in trial order.
func (st *Study) Trials() []FrozenTrial {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return append([]FrozenTrial(nil), st.trials...)
}

// BestTrial returns the completed trial with the lowest value. Among equal
// values the earliest trial wins.
func (st *Study) BestTrial() (FrozenTrial, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.best < 0 {
		return FrozenTrial{}, ErrNoCompletedTrials
	}
	return st.trials[st.best], nil
}
