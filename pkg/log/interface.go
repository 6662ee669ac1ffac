// Package log provides the structured logging interface used across modelsearch.
//
// The interface is slog-shaped (alternating key/value fields) and backed by
// zerolog. Attribute keys for model, data, trial and study context live in
// attributes.go so that log lines from every estimator and from the search
// driver share a vocabulary.
//
//	logger := log.GetLoggerWithName("automl").With(log.StudyIDKey, id)
//	logger.Info("trial finished",
//	    log.TrialNumberKey, 3,
//	    log.FamilyKey, "svm",
//	    log.CVScoreKey, 1.27,
//	)
package log

import (
	"context"
)

// Logger is a structured, leveled logger.
type Logger interface {
	// Debug logs diagnostic detail, usually disabled outside development.
	Debug(msg string, fields ...any)

	// Info logs normal operational progress.
	Info(msg string, fields ...any)

	// Warn logs recoverable problems, e.g. a failed trial.
	Warn(msg string, fields ...any)

	// Error logs failures. If the first field is an error it is attached
	// with its stack trace.
	//
	//	logger.Error("fit failed", err, log.FamilyKey, "svm")
	Error(msg string, fields ...any)

	// With returns a child logger that always includes fields.
	With(fields ...any) Logger

	// Enabled reports whether records at level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level with slog-compatible values.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
