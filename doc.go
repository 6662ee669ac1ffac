// Package modelsearch finds a good regression model for a tabular dataset by
// searching over model families and their hyperparameters together.
//
// A study runs a fixed number of TPE trials. Each trial picks one of five
// families (elasticnet, random_forest, svm, lgbm, xgb), samples that
// family's hyperparameters, and scores the configuration by its mean
// absolute error over five shuffled folds. The best configuration of every
// family is tracked; the overall winner is refit on all of the data and the
// per-family bests are compared on MAE, RMSE and R².
//
// # Features
//
//   - Joint family and hyperparameter search with a TPE sampler
//   - Deterministic studies: the same seed gives the same trials and model
//   - Failed trials are logged and penalised, the study keeps going
//   - Gob + zstd model artifacts in a local directory or MinIO bucket
//   - CSV, JSON and PNG reports, Prometheus trial metrics
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/modelsearch/automl"
//	    "github.com/YuminosukeSato/modelsearch/datasets"
//	)
//
//	func main() {
//	    X, y, _ := datasets.MakeLinearRegression(200, 4, 0.5, 42)
//
//	    artifact, family, err := automl.RunStudy(context.Background(), X, y)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("winner:", family, artifact.Params)
//	}
//
// From the command line:
//
//	modelsearch run --data train.csv --target price --out ./study
//	modelsearch predict --data new.csv --out ./study
//
// # Packages
//
//   - automl: search space, trial evaluation, tracking, final model, comparison
//   - search: studies, trials and the TPE sampler
//   - linear, sklearn/...: the estimators each family builds
//   - sklearn/model_selection: KFold and cross-validation
//   - sklearn/inspection: permutation feature importance
//   - preprocessing, datasets: imputation, scaling, CSV loading
//   - storage, report: artifact persistence and report files
//   - config, pkg/log, pkg/errors, pkg/telemetry: ambient plumbing
package modelsearch
