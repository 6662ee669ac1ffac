// Package report renders a finished study into CSV, JSON and PNG files in
// a blob store.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strconv"

	"github.com/YuminosukeSato/modelsearch/automl"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
	"github.com/YuminosukeSato/modelsearch/search"
	"github.com/YuminosukeSato/modelsearch/sklearn/inspection"
	"github.com/YuminosukeSato/modelsearch/storage"
)

// Report keys, relative to the store root.
const (
	MetricsCSVKey        = "reports/metrics/model_comparison.csv"
	MetricsJSONKey       = "reports/metrics/model_comparison.json"
	TrialsCSVKey         = "reports/search/trials.csv"
	FeatureImportanceKey = "reports/explainability/feature_importance.csv"
	ComparisonChartKey   = "reports/plots/model_comparison.png"
	ImportanceChartKey   = "reports/plots/explainability/feature_importance.png"
)

// DefaultTopN is how many features the importance chart shows.
const DefaultTopN = 10

// FileReporter writes reports into a BlobStore. It implements
// automl.Reporter.
type FileReporter struct {
	Store storage.BlobStore
	// TopN limits the importance chart. Zero means DefaultTopN.
	TopN int
	// Charts enables PNG output.
	Charts bool
	// Importance enables the feature importance table.
	Importance bool

	logger log.Logger
}

// NewFileReporter returns a reporter writing every report to store.
func NewFileReporter(store storage.BlobStore) *FileReporter {
	return &FileReporter{
		Store:      store,
		TopN:       DefaultTopN,
		Charts:     true,
		Importance: true,
		logger:     log.GetLoggerWithName("report"),
	}
}

// Report implements automl.Reporter.
func (r *FileReporter) Report(ctx context.Context, rep *automl.StudyReport) error {
	if err := r.put(ctx, MetricsCSVKey, metricsCSV(rep.Metrics)); err != nil {
		return err
	}
	js, err := json.MarshalIndent(rep.Metrics, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode metrics")
	}
	if err := r.put(ctx, MetricsJSONKey, js); err != nil {
		return err
	}
	if err := r.put(ctx, TrialsCSVKey, trialsCSV(rep.Trials)); err != nil {
		return err
	}

	var imp *inspection.Report
	if r.Importance && rep.Artifact != nil && rep.X != nil && rep.Y != nil {
		imp, err = inspection.FeatureImportance(ctx, rep.Artifact.Model, rep.X, rep.Y, rep.FeatureNames)
		if err != nil {
			return errors.Wrap(err, "feature importance")
		}
		if err := r.put(ctx, FeatureImportanceKey, importanceCSV(imp)); err != nil {
			return err
		}
	}

	if !r.Charts {
		return nil
	}
	png, err := ComparisonChart(rep.Metrics)
	if err != nil {
		return err
	}
	if err := r.put(ctx, ComparisonChartKey, png); err != nil {
		return err
	}
	if imp != nil {
		topN := r.TopN
		if topN <= 0 {
			topN = DefaultTopN
		}
		png, err := ImportanceChart(rep.BestFamily.String(), imp, topN)
		if err != nil {
			return err
		}
		if err := r.put(ctx, ImportanceChartKey, png); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileReporter) put(ctx context.Context, key string, data []byte) error {
	if err := r.Store.Put(ctx, key, data); err != nil {
		return errors.Wrapf(err, "write %s", key)
	}
	if r.logger != nil {
		r.logger.Info("report saved", log.StorageKeyKey, key)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCSV(rows [][]string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// Writes to a bytes.Buffer cannot fail.
	_ = w.WriteAll(rows)
	return buf.Bytes()
}

func metricsCSV(rows []automl.MetricsRow) []byte {
	out := [][]string{{"model", "mae", "rmse", "r2"}}
	for _, r := range rows {
		out = append(out, []string{r.Family.String(), formatFloat(r.MAE), formatFloat(r.RMSE), formatFloat(r.R2)})
	}
	return writeCSV(out)
}

func trialsCSV(trials []search.FrozenTrial) []byte {
	out := [][]string{{"number", "state", "value", "duration_seconds", "params"}}
	for _, t := range trials {
		params, err := json.Marshal(t.Params)
		if err != nil {
			params = []byte("{}")
		}
		out = append(out, []string{
			strconv.Itoa(t.Number),
			string(t.State),
			formatFloat(t.Value),
			formatFloat(t.Duration().Seconds()),
			string(params),
		})
	}
	return writeCSV(out)
}

func importanceCSV(imp *inspection.Report) []byte {
	out := [][]string{{"feature", "importance"}}
	for _, s := range imp.Scores {
		out = append(out, []string{s.Feature, formatFloat(s.Importance)})
	}
	return writeCSV(out)
}
