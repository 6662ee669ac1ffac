package log

// Model and operation context.
const (
	// ModelNameKey is the estimator type, e.g. "RandomForestRegressor".
	ModelNameKey = "model.name"

	// FamilyKey is the model family identifier, e.g. "lgbm".
	FamilyKey = "model.family"

	// OperationKey is the ML operation: fit, predict, score.
	OperationKey = "ml.operation"

	// ComponentKey names the package emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase: training, validation, inference.
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
)

// Performance and training progress.
const (
	// DurationMsKey is an operation's wall time in milliseconds.
	DurationMsKey = "perf.duration_ms"

	LossKey      = "metrics.loss"
	MAEKey       = "metrics.mae"
	RMSEKey      = "metrics.rmse"
	R2ScoreKey   = "metrics.r2_score"
	IterationKey = "training.iteration"
)

// Study and trial context.
const (
	// StudyIDKey identifies one search run.
	StudyIDKey = "study.id"

	// TrialNumberKey is the zero-based trial index within a study.
	TrialNumberKey = "trial.number"

	// TrialStateKey is COMPLETE or FAIL.
	TrialStateKey = "trial.state"

	// FoldKey is the zero-based cross-validation fold index.
	FoldKey = "cv.fold"

	// CVScoreKey is a cross-validated score.
	CVScoreKey = "cv.score"

	// BestScoreKey is the best score seen so far.
	BestScoreKey = "study.best_score"
)

// Configuration.
const (
	HyperParamsKey    = "model.hyperparams"
	LearningRateKey   = "hyperparams.learning_rate"
	RandomSeedKey     = "config.random_seed"
	StorageBackendKey = "storage.backend"
	StorageKeyKey     = "storage.key"
)

// Error context.
const (
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"
)
