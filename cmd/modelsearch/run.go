package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelsearch/automl"
	"github.com/YuminosukeSato/modelsearch/config"
	"github.com/YuminosukeSato/modelsearch/datasets"
	"github.com/YuminosukeSato/modelsearch/metrics"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
	"github.com/YuminosukeSato/modelsearch/pkg/telemetry"
	"github.com/YuminosukeSato/modelsearch/preprocessing"
	"github.com/YuminosukeSato/modelsearch/report"
	"github.com/YuminosukeSato/modelsearch/storage"
)

type runOptions struct {
	data        string
	target      string
	drop        []string
	families    []string
	trials      int
	seed        int64
	out         string
	metricsAddr string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a study on a CSV file",
		Long: `Loads a numeric CSV, holds out a test split, imputes and standardises the
features, searches every configured family and writes the winning model,
the fitted preprocessor and the comparison reports to the store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runStudy(ctx, cfg, opts, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.data, "data", "", "training CSV with a header row (required)")
	f.StringVar(&opts.target, "target", "", "target column (default: last column)")
	f.StringSliceVar(&opts.drop, "drop", nil, "columns to ignore")
	f.StringSliceVar(&opts.families, "families", nil, "families to search")
	f.IntVar(&opts.trials, "trials", 0, "number of trials")
	f.Int64Var(&opts.seed, "seed", 0, "random seed")
	f.StringVarP(&opts.out, "out", "o", "", "local output directory")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

// apply lets explicit flags win over the config.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("families") {
		cfg.Study.Families = o.families
	}
	if f.Changed("trials") {
		cfg.Study.Trials = o.trials
	}
	if f.Changed("seed") {
		cfg.Study.Seed = o.seed
	}
	if f.Changed("out") {
		cfg.Storage.Backend = config.BackendLocal
		cfg.Storage.Root = o.out
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = o.metricsAddr
	}
}

func runStudy(ctx context.Context, cfg *config.Config, opts *runOptions, stdout io.Writer) error {
	logger := log.GetLoggerWithName("cmd.run")

	if cfg.Study.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Study.Timeout)
		defer cancel()
	}

	families := make([]automl.Family, 0, len(cfg.Study.Families))
	for _, name := range cfg.Study.Families {
		fam, err := automl.ParseFamily(name)
		if err != nil {
			return errors.NewStageError(errors.StageValidation, err)
		}
		families = append(families, fam)
	}

	ds, err := datasets.LoadCSVFile(opts.data, datasets.CSVOptions{Target: opts.target, Drop: opts.drop})
	if err != nil {
		return errors.NewStageError(errors.StageDataLoad, err)
	}

	split := &datasets.Split{XTrain: ds.X, YTrain: ds.Y}
	if cfg.Study.TestSize > 0 {
		split, err = datasets.TrainTestSplit(ds.X, ds.Y, cfg.Study.TestSize, cfg.Study.Seed)
		if err != nil {
			return errors.NewStageError(errors.StageDataLoad, err)
		}
	}

	pre := preprocessing.NewPipeline()
	XTrain, err := pre.FitTransform(split.XTrain)
	if err != nil {
		return errors.NewStageError(errors.StageDataLoad, err)
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return errors.NewStageError(errors.StagePersistence, err)
	}

	runnerOpts := []automl.Option{
		automl.WithTrials(cfg.Study.Trials),
		automl.WithFolds(cfg.Study.Folds),
		automl.WithSeed(cfg.Study.Seed),
		automl.WithFamilies(families...),
		automl.WithStartupTrials(cfg.Study.StartupTrials),
		automl.WithEICandidates(cfg.Study.EICandidates),
		automl.WithParallelFolds(cfg.Study.ParallelFolds),
		automl.WithFeatureNames(ds.FeatureNames...),
		automl.WithStore(store),
	}
	if cfg.Report.Enabled {
		rep := report.NewFileReporter(store)
		rep.TopN = cfg.Report.TopN
		rep.Charts = cfg.Report.Charts
		rep.Importance = cfg.Report.Importance
		runnerOpts = append(runnerOpts, automl.WithReporter(rep))
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		collector := telemetry.NewCollector(cfg.Metrics.Namespace, reg)
		runnerOpts = append(runnerOpts, automl.WithCallbacks(collector))
		shutdown := serveMetrics(cfg.Metrics.Addr, reg, logger)
		defer shutdown()
	}

	out, err := automl.NewRunner(runnerOpts...).Run(ctx, XTrain, split.YTrain)
	if err != nil {
		return err
	}

	if err := storage.PutGob(ctx, store, PreprocessorKey, pre); err != nil {
		return errors.NewStageError(errors.StagePersistence, err)
	}

	printOutcome(stdout, out)
	if split.XTest != nil {
		if err := printHoldout(stdout, out.Artifact, pre, split.XTest, split.YTest); err != nil {
			return errors.NewStageError(errors.StageEvaluation, err)
		}
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger log.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func printOutcome(w io.Writer, out *automl.Outcome) {
	fmt.Fprintf(w, "study %s finished in %s\n", out.StudyID, out.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "best family: %s (cv mae %.6g)\n", out.BestFamily, out.BestTrial.Value)
	fmt.Fprintf(w, "best params: %s\n\n", formatParams(out.Artifact.Params))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tMAE\tRMSE\tR2")
	for _, row := range out.Metrics {
		fmt.Fprintf(tw, "%s\t%.6g\t%.6g\t%.4f\n", row.Family, row.MAE, row.RMSE, row.R2)
	}
	_ = tw.Flush()
}

func formatParams(p automl.Params) string {
	parts := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return strings.Join(parts, " ")
}

func printHoldout(w io.Writer, a *automl.ModelArtifact, pre *preprocessing.Pipeline, X *mat.Dense, y *mat.VecDense) error {
	Xt, err := pre.Transform(X)
	if err != nil {
		return err
	}
	pred, err := a.Predict(Xt)
	if err != nil {
		return err
	}
	mae, err := metrics.Matrix(metrics.MAE)(y, pred)
	if err != nil {
		return err
	}
	r2, err := metrics.Matrix(metrics.R2Score)(y, pred)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nholdout (%d rows): mae %.6g  r2 %.4f\n", y.Len(), mae, r2)
	return nil
}
