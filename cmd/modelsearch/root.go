package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/modelsearch/config"
	"github.com/YuminosukeSato/modelsearch/pkg/log"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "modelsearch",
		Short: "Hyperparameter and model family search for regression",
		Long: `modelsearch runs a TPE study over elasticnet, random_forest, svm, lgbm
and xgb, scores every trial by 5-fold cross-validated MAE, fits the winner
and writes the model and its reports to a local directory or MinIO bucket.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json, console)")

	cmd.AddCommand(newRunCmd(opts), newPredictCmd(opts), newVersionCmd())
	return cmd
}

// load reads the config and installs the global logger.
func (o *rootOptions) load() (*config.Config, error) {
	loader := config.NewLoader()
	if o.configPath != "" {
		loader = loader.WithConfigPath(o.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if err := log.SetupLogger(log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		return nil, err
	}
	return cfg, nil
}
