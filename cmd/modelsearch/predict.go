package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/modelsearch/automl"
	"github.com/YuminosukeSato/modelsearch/config"
	"github.com/YuminosukeSato/modelsearch/datasets"
	"github.com/YuminosukeSato/modelsearch/pkg/errors"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
	"github.com/YuminosukeSato/modelsearch/preprocessing"
	"github.com/YuminosukeSato/modelsearch/storage"
)

type predictOptions struct {
	data   string
	out    string
	output string
}

func newPredictCmd(root *rootOptions) *cobra.Command {
	opts := &predictOptions{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict with a stored model",
		Long: `Reads the model and preprocessor written by "run" and appends a
prediction column to every row of the input CSV.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				cfg.Storage.Backend = config.BackendLocal
				cfg.Storage.Root = opts.out
			}
			w := cmd.OutOrStdout()
			if opts.output != "" {
				f, err := os.Create(opts.output)
				if err != nil {
					return errors.Wrap(err, "create output")
				}
				defer f.Close()
				w = f
			}
			return predict(cmd.Context(), cfg, opts.data, w)
		},
	}
	cmd.Flags().StringVar(&opts.data, "data", "", "CSV with the training feature columns (required)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "local directory a study was written to")
	cmd.Flags().StringVar(&opts.output, "output", "", "write predictions here instead of stdout")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func predict(ctx context.Context, cfg *config.Config, path string, w io.Writer) error {
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	artifact, err := automl.LoadArtifact(ctx, store)
	if err != nil {
		return err
	}
	pre := &preprocessing.Pipeline{}
	if err := storage.GetGob(ctx, store, PreprocessorKey, pre); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.NewDataLoadError(path, 0, err)
	}
	defer f.Close()
	X, err := datasets.ReadFeatures(f, path, artifact.FeatureNames)
	if err != nil {
		return err
	}
	Xt, err := pre.Transform(X)
	if err != nil {
		return err
	}
	pred, err := artifact.PredictBatched(ctx, Xt, automl.DefaultBatchSize, 0)
	if err != nil {
		return err
	}

	log.GetLoggerWithName("cmd.predict").Info("predicted",
		log.FamilyKey, artifact.Family.String(),
		log.SamplesKey, X.RawMatrix().Rows,
	)

	cw := csv.NewWriter(w)
	header := append(append([]string{}, artifact.FeatureNames...), "prediction")
	if err := cw.Write(header); err != nil {
		return err
	}
	rows, cols := X.Dims()
	record := make([]string, cols+1)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			record[j] = strconv.FormatFloat(X.At(i, j), 'g', -1, 64)
		}
		record[cols] = strconv.FormatFloat(pred.AtVec(i), 'g', -1, 64)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
