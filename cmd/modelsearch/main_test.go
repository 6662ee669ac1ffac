package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/modelsearch/automl"
	"github.com/YuminosukeSato/modelsearch/datasets"
	"github.com/YuminosukeSato/modelsearch/report"
	"github.com/YuminosukeSato/modelsearch/storage"
)

func writeCSV(t *testing.T, dir string, n int) string {
	t.Helper()
	X, y, _ := datasets.MakeLinearRegression(n, 3, 0.1, 7)
	var b strings.Builder
	b.WriteString("id,a,b,c,target\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,%g,%g,%g,%g\n", i, X.At(i, 0), X.At(i, 1), X.At(i, 2), y.AtVec(i))
	}
	path := filepath.Join(dir, "train.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "modelsearch version")
}

func TestRunThenPredict(t *testing.T) {
	if testing.Short() {
		t.Skip("runs a study")
	}
	t.Setenv("MODELSEARCH_REPORT_CHARTS", "false")
	dir := t.TempDir()
	data := writeCSV(t, dir, 60)
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "run",
		"--data", data, "--target", "target", "--drop", "id",
		"--families", "elasticnet,svm", "--trials", "6",
		"--out", outDir, "--log-level", "error",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "best family:")
	assert.Contains(t, out, "holdout")

	store := storage.NewLocalStore(outDir)
	for _, key := range []string{automl.ArtifactKey, PreprocessorKey, report.MetricsCSVKey, report.TrialsCSVKey} {
		_, err := store.Get(t.Context(), key)
		assert.NoError(t, err, key)
	}

	predOut := filepath.Join(dir, "pred.csv")
	_, err = execute(t, "predict", "--data", data, "--out", outDir, "--output", predOut, "--log-level", "error")
	require.NoError(t, err)

	f, err := os.Open(predOut)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 61)
	assert.Equal(t, []string{"a", "b", "c", "prediction"}, records[0])
}

func TestRunRejectsUnknownFamily(t *testing.T) {
	dir := t.TempDir()
	data := writeCSV(t, dir, 20)
	_, err := execute(t, "run", "--data", data, "--families", "catboost", "--out", dir, "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catboost")
}

func TestRunMissingData(t *testing.T) {
	_, err := execute(t, "run", "--data", filepath.Join(t.TempDir(), "nope.csv"), "--log-level", "error")
	require.Error(t, err)
}
