package automl

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/search"
)

// StudyReport is everything a Reporter receives once a study has finished.
type StudyReport struct {
	StudyID      string
	BestFamily   Family
	Artifact     *ModelArtifact
	Metrics      []MetricsRow
	Trials       []search.FrozenTrial
	X            *mat.Dense
	Y            *mat.VecDense
	FeatureNames []string
}

// Reporter renders a finished study somewhere.
type Reporter interface {
	Report(ctx context.Context, r *StudyReport) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, r *StudyReport) error

// Report implements Reporter.
func (f ReporterFunc) Report(ctx context.Context, r *StudyReport) error { return f(ctx, r) }
