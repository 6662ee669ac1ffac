package log

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

func TestTestLoggerLevels(t *testing.T) {
	logger := NewTestLogger(LevelInfo)

	logger.Debug("hidden")
	logger.Info("trial finished", TrialNumberKey, 3, FamilyKey, "svm")
	logger.Warn("trial failed", TrialStateKey, "FAIL")

	assert.False(t, logger.ContainsMessage("hidden"))
	assert.True(t, logger.ContainsMessage("trial finished"))
	assert.True(t, logger.ContainsField(TrialNumberKey, 3.0))
	assert.True(t, logger.ContainsField(FamilyKey, "svm"))
	assert.True(t, logger.ContainsField(TrialStateKey, "FAIL"))
}

func TestWithAddsFields(t *testing.T) {
	logger := NewTestLogger(LevelDebug)
	child := logger.With(StudyIDKey, "abc")

	child.Debug("sampling")

	entries, err := logger.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0][StudyIDKey])
	assert.Equal(t, "debug", entries[0]["level"])
}

func TestErrorAttachesStackAndDetail(t *testing.T) {
	logger := NewTestLogger(LevelDebug)

	err := errors.NewInvalidFamilyError("knn", []string{"svm"})
	logger.Error("build failed", err, FamilyKey, "knn")

	out := logger.String()
	assert.Contains(t, out, `"error":"modelsearch: invalid model family \"knn\"`)
	assert.Contains(t, out, `"type":"InvalidFamilyError"`)
	assert.Contains(t, out, StacktraceKey)
}

func TestEnabled(t *testing.T) {
	logger := NewTestLogger(LevelWarn)
	ctx := context.Background()

	assert.False(t, logger.Enabled(ctx, LevelInfo))
	assert.True(t, logger.Enabled(ctx, LevelWarn))
	assert.True(t, logger.Enabled(ctx, LevelError))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: "", want: LevelInfo},
		{in: "warning", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				var vErr *errors.ValidationError
				assert.True(t, errors.As(err, &vErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLoggerRoutesWarnings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupLogger(Config{Level: "debug", Format: "json", Output: &buf}))
	defer errors.SetZerologWarnFunc(nil)

	errors.Warn(errors.NewConvergenceWarning("SVR", 100, ""))

	out := buf.String()
	assert.Contains(t, out, "warning suppressed")
	assert.Contains(t, out, `"type":"ConvergenceWarning"`)

	GetLoggerWithName("search").Info("hello")
	assert.True(t, strings.Contains(buf.String(), `"ml.component":"search"`))
}

func TestSetupLoggerRejectsFormat(t *testing.T) {
	err := SetupLogger(Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
