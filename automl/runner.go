package automl

import (
	"context"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/core/model"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
	"github.com/YuminosukeSato/modelsearch/search"
	"github.com/YuminosukeSato/modelsearch/sklearn/model_selection"
	"github.com/YuminosukeSato/modelsearch/storage"
)

// Study defaults.
const (
	DefaultTrials = 50
	DefaultFolds  = 5
	DefaultSeed   = 42
)

// Option configures a Runner.
type Option func(*Runner)

// WithTrials sets the number of search trials.
func WithTrials(n int) Option {
	return func(r *Runner) { r.trials = n }
}

// WithFolds sets the number of cross-validation folds.
func WithFolds(k int) Option {
	return func(r *Runner) { r.folds = k }
}

// WithSeed seeds both the fold shuffle and the sampler.
func WithSeed(seed int64) Option {
	return func(r *Runner) { r.seed = seed }
}

// WithFamilies restricts the candidate families.
func WithFamilies(fams ...Family) Option {
	return func(r *Runner) { r.families = append([]Family(nil), fams...) }
}

// WithStartupTrials sets how many trials are sampled at random before TPE
// takes over.
func WithStartupTrials(n int) Option {
	return func(r *Runner) { r.startupTrials = n }
}

// WithEICandidates sets how many candidates TPE scores per parameter.
func WithEICandidates(n int) Option {
	return func(r *Runner) { r.eiCandidates = n }
}

// WithSampler replaces the TPE sampler.
func WithSampler(s search.Sampler) Option {
	return func(r *Runner) { r.sampler = s }
}

// WithStore persists the artifact to store.
func WithStore(store storage.BlobStore) Option {
	return func(r *Runner) { r.store = store }
}

// WithReporter hands the finished study to rep.
func WithReporter(rep Reporter) Option {
	return func(r *Runner) { r.reporter = rep }
}

// WithCallbacks registers trial callbacks.
func WithCallbacks(cbs ...search.Callback) Option {
	return func(r *Runner) { r.callbacks = append(r.callbacks, cbs...) }
}

// WithProgress forwards study progress updates to ch.
func WithProgress(ch chan<- search.ProgressUpdate) Option {
	return func(r *Runner) { r.progress = ch }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithBuildFunc replaces Build for trials, comparison and the final fit.
func WithBuildFunc(fn BuildFunc) Option {
	return func(r *Runner) { r.build = fn }
}

// WithParallelFolds bounds how many folds are fitted at once.
func WithParallelFolds(n int) Option {
	return func(r *Runner) { r.parallelFolds = n }
}

// WithFeatureNames names the columns of X in the artifact and reports.
func WithFeatureNames(names ...string) Option {
	return func(r *Runner) { r.featureNames = append([]string(nil), names...) }
}

// Runner runs one study end to end.
type Runner struct {
	trials        int
	folds         int
	seed          int64
	families      []Family
	startupTrials int
	eiCandidates  int
	sampler       search.Sampler
	store         storage.BlobStore
	reporter      Reporter
	callbacks     []search.Callback
	progress      chan<- search.ProgressUpdate
	logger        log.Logger
	build         BuildFunc
	featureNames  []string
	parallelFolds int
}

// NewRunner returns a Runner with the default study settings.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		trials:        DefaultTrials,
		folds:         DefaultFolds,
		seed:          DefaultSeed,
		families:      Families(),
		startupTrials: search.DefaultStartupTrials,
		eiCandidates:  search.DefaultEICandidates,
		build:         Build,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.GetLoggerWithName("automl")
	}
	return r
}

// Outcome is the full result of a study.
type Outcome struct {
	StudyID    string
	Artifact   *ModelArtifact
	BestFamily Family
	BestTrial  search.FrozenTrial
	Trials     []search.FrozenTrial
	Bests      []FamilyBest
	Events     []TrackerEvent
	Metrics    []MetricsRow
	Folds      []model_selection.Fold
	Elapsed    time.Duration
}

// Run searches, fits the winner, compares families, persists the artifact
// and reports. Any error ends the study and carries the failing stage.
func (r *Runner) Run(ctx context.Context, X *mat.Dense, y *mat.VecDense) (*Outcome, error) {
	start := time.Now()

	folds, err := r.validate(X, y)
	if err != nil {
		return nil, errors.NewStageError(errors.StageValidation, err)
	}

	tracker := NewTracker()
	sampler := r.sampler
	if sampler == nil {
		sampler = search.NewTPESampler(r.seed,
			search.WithStartupTrials(r.startupTrials),
			search.WithEICandidates(r.eiCandidates),
		)
	}
	studyOpts := []search.StudyOption{
		search.WithSampler(sampler),
		search.WithFailValue(PenaltyScore),
		search.WithStartupPhase(r.startupTrials),
		search.WithLogger(r.logger),
	}
	if r.progress != nil {
		studyOpts = append(studyOpts, search.WithProgress(r.progress))
	}
	study := search.NewStudy(studyOpts...)
	logger := r.logger.With(log.StudyIDKey, study.ID)
	evaluator := NewEvaluator(X, y, folds, r.families, tracker, r.build).WithLogger(logger)
	evaluator.Parallelism = r.parallelFolds

	rows, cols := X.Dims()
	logger.Info("study started",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"trials", r.trials,
		"families", FamilyNames(r.families),
		log.RandomSeedKey, r.seed,
	)

	// sampling
	if err := study.Optimize(ctx, evaluator.Objective, r.trials, r.callbacks...); err != nil {
		return nil, errors.NewStageError(errors.StageSampling, err)
	}
	best, err := study.BestTrial()
	if err != nil {
		return nil, errors.NewStageError(errors.StageSampling, err)
	}
	fam, params, err := configOf(best)
	if err != nil {
		return nil, errors.NewStageError(errors.StageSampling, err)
	}
	logger.Info("search finished",
		log.TrialNumberKey, best.Number,
		log.FamilyKey, fam.String(),
		log.BestScoreKey, best.Value,
	)

	// fitting
	artifact, err := BuildFinal(ctx, r.build, fam, params, X, y)
	if err != nil {
		return nil, errors.NewStageError(errors.StageFitting, err)
	}
	artifact.StudyID = study.ID
	artifact.Score = best.Value
	artifact.FeatureNames = r.names(cols)

	// evaluation
	bests := tracker.Snapshot()
	table, err := Compare(ctx, evaluator, bests)
	if err != nil {
		return nil, errors.NewStageError(errors.StageEvaluation, err)
	}

	if r.store != nil {
		if err := SaveArtifact(ctx, r.store, artifact); err != nil {
			return nil, errors.NewStageError(errors.StagePersistence, err)
		}
		logger.Info("artifact saved", log.StorageKeyKey, ArtifactKey)
	}

	out := &Outcome{
		StudyID:    study.ID,
		Artifact:   artifact,
		BestFamily: fam,
		BestTrial:  best,
		Trials:     study.Trials(),
		Bests:      bests,
		Events:     tracker.Events(),
		Metrics:    table,
		Folds:      folds,
	}

	if r.reporter != nil {
		rep := &StudyReport{
			StudyID:      study.ID,
			BestFamily:   fam,
			Artifact:     artifact,
			Metrics:      table,
			Trials:       out.Trials,
			X:            X,
			Y:            y,
			FeatureNames: artifact.FeatureNames,
		}
		if err := r.reporter.Report(ctx, rep); err != nil {
			return nil, errors.NewStageError(errors.StageReporting, err)
		}
	}

	out.Elapsed = time.Since(start)
	logger.Info("study finished",
		log.FamilyKey, fam.String(),
		log.CVScoreKey, best.Value,
		log.DurationMsKey, out.Elapsed.Milliseconds(),
	)
	return out, nil
}

func (r *Runner) validate(X *mat.Dense, y *mat.VecDense) ([]model_selection.Fold, error) {
	if X == nil || y == nil {
		return nil, errors.Wrap(errors.ErrEmptyData, "RunStudy: nil input")
	}
	if r.trials <= 0 {
		return nil, errors.NewValidationError("trials", "must be positive", r.trials)
	}
	if len(r.families) == 0 {
		return nil, errors.NewValidationError("families", "at least one family is required", r.families)
	}
	for _, f := range r.families {
		if !f.valid() {
			return nil, errors.NewInvalidFamilyError(f.String(), FamilyNames(Families()))
		}
	}
	if _, err := model.CheckXY("RunStudy", X, y); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if r.featureNames != nil && len(r.featureNames) != cols {
		return nil, errors.NewDimensionError("RunStudy", cols, len(r.featureNames), 1)
	}
	return model_selection.NewKFold(r.folds, true, r.seed).Split(rows)
}

func (r *Runner) names(cols int) []string {
	if r.featureNames != nil {
		return append([]string(nil), r.featureNames...)
	}
	names := make([]string, cols)
	for j := range names {
		names[j] = "x" + strconv.Itoa(j)
	}
	return names
}

// configOf splits a finished trial into its family and hyperparameters.
func configOf(ft search.FrozenTrial) (Family, Params, error) {
	name, ok := ft.Params[FamilyParam].(string)
	if !ok {
		return 0, nil, errors.NewValidationError(FamilyParam, "trial has no family", ft.Params[FamilyParam])
	}
	fam, err := ParseFamily(name)
	if err != nil {
		return 0, nil, err
	}
	params := make(Params, len(ft.Params)-1)
	for k, v := range ft.Params {
		if k != FamilyParam {
			params[k] = v
		}
	}
	return fam, params, nil
}

// RunStudy runs a default study on X and y and returns the fitted winner
// and its family.
func RunStudy(ctx context.Context, X *mat.Dense, y *mat.VecDense, opts ...Option) (*ModelArtifact, Family, error) {
	out, err := NewRunner(opts...).Run(ctx, X, y)
	if err != nil {
		return nil, 0, err
	}
	return out.Artifact, out.BestFamily, nil
}
