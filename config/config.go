// Package config loads modelsearch settings.
//
// Precedence is defaults, then an optional YAML file, then environment
// variables named MODELSEARCH_<SECTION>_<FIELD>, for example
// MODELSEARCH_STUDY_TRIALS=100 or MODELSEARCH_STORAGE_MINIO_BUCKET=models.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("modelsearch.yaml").
//	    Load()
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/modelsearch/pkg/errors"
)

// DefaultEnvPrefix prefixes every environment override.
const DefaultEnvPrefix = "MODELSEARCH"

// Storage backends.
const (
	BackendLocal = "local"
	BackendMinIO = "minio"
)

// Config is the complete configuration.
type Config struct {
	Study   StudyConfig   `yaml:"study" env:"STUDY"`
	Storage StorageConfig `yaml:"storage" env:"STORAGE"`
	Report  ReportConfig  `yaml:"report" env:"REPORT"`
	Log     LogConfig     `yaml:"log" env:"LOG"`
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// StudyConfig controls the search.
type StudyConfig struct {
	Trials        int           `yaml:"trials" env:"TRIALS"`
	Folds         int           `yaml:"folds" env:"FOLDS"`
	Seed          int64         `yaml:"seed" env:"SEED"`
	StartupTrials int           `yaml:"startup_trials" env:"STARTUP_TRIALS"`
	EICandidates  int           `yaml:"ei_candidates" env:"EI_CANDIDATES"`
	ParallelFolds int           `yaml:"parallel_folds" env:"PARALLEL_FOLDS"`
	Families      []string      `yaml:"families" env:"FAMILIES"`
	TestSize      float64       `yaml:"test_size" env:"TEST_SIZE"`
	Timeout       time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// StorageConfig selects where artifacts and reports go.
type StorageConfig struct {
	Backend string      `yaml:"backend" env:"BACKEND"`
	Root    string      `yaml:"root" env:"ROOT"`
	MinIO   MinIOConfig `yaml:"minio" env:"MINIO"`
}

// MinIOConfig is an S3-compatible remote store.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"BUCKET"`
	Prefix    string `yaml:"prefix" env:"PREFIX"`
	Region    string `yaml:"region" env:"REGION"`
	UseSSL    bool   `yaml:"use_ssl" env:"USE_SSL"`
}

// ReportConfig controls the file reporter.
type ReportConfig struct {
	Enabled    bool `yaml:"enabled" env:"ENABLED"`
	TopN       int  `yaml:"top_n" env:"TOP_N"`
	Charts     bool `yaml:"charts" env:"CHARTS"`
	Importance bool `yaml:"importance" env:"IMPORTANCE"`
}

// LogConfig configures pkg/log.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	Addr      string `yaml:"addr" env:"ADDR"`
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		Study: StudyConfig{
			Trials:        50,
			Folds:         5,
			Seed:          42,
			StartupTrials: 10,
			EICandidates:  24,
			Families:      []string{"elasticnet", "random_forest", "svm", "lgbm", "xgb"},
			TestSize:      0.2,
		},
		Storage: StorageConfig{
			Backend: BackendLocal,
			Root:    ".",
		},
		Report: ReportConfig{
			Enabled:    true,
			TopN:       10,
			Charts:     true,
			Importance: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Namespace: "modelsearch",
			Addr:      ":9090",
		},
	}
}

// Loader builds a Config from its sources.
type Loader struct {
	configPath string
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader returns a loader reading MODELSEARCH_* variables.
func NewLoader() *Loader {
	return &Loader{envPrefix: DefaultEnvPrefix, lookupEnv: os.LookupEnv}
}

// WithConfigPath sets the YAML file. The file must exist.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix changes the environment prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithLookupEnv replaces os.LookupEnv.
func (l *Loader) WithLookupEnv(fn func(string) (string, bool)) *Loader {
	l.lookupEnv = fn
	return l
}

// Load applies defaults, the file and the environment, then validates.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", l.configPath)
		}
	}

	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, key); err != nil {
				return err
			}
			continue
		}

		value, ok := l.lookupEnv(key)
		if !ok || value == "" {
			continue
		}
		if err := setFieldValue(field, value); err != nil {
			return errors.Wrapf(err, "env %s", key)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return errors.Newf("unsupported slice type %s", field.Type())
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return errors.Newf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, param, reason string, value any) {
		if !ok {
			errs = append(errs, errors.NewValidationError(param, reason, value))
		}
	}

	s := c.Study
	check(s.Trials > 0, "study.trials", "must be positive", s.Trials)
	check(s.Folds >= 2, "study.folds", "must be at least 2", s.Folds)
	check(s.StartupTrials >= 0, "study.startup_trials", "must not be negative", s.StartupTrials)
	check(s.EICandidates > 0, "study.ei_candidates", "must be positive", s.EICandidates)
	check(s.ParallelFolds >= 0, "study.parallel_folds", "must not be negative", s.ParallelFolds)
	check(len(s.Families) > 0, "study.families", "must not be empty", s.Families)
	check(s.TestSize >= 0 && s.TestSize < 1, "study.test_size", "must be in [0, 1)", s.TestSize)
	check(s.Timeout >= 0, "study.timeout", "must not be negative", s.Timeout)

	switch c.Storage.Backend {
	case BackendLocal:
		check(c.Storage.Root != "", "storage.root", "must be set for the local backend", c.Storage.Root)
	case BackendMinIO:
		m := c.Storage.MinIO
		check(m.Endpoint != "", "storage.minio.endpoint", "must be set", m.Endpoint)
		check(m.Bucket != "", "storage.minio.bucket", "must be set", m.Bucket)
	default:
		check(false, "storage.backend", "must be local or minio", c.Storage.Backend)
	}

	check(c.Report.TopN > 0, "report.top_n", "must be positive", c.Report.TopN)

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		check(false, "log.level", "must be debug, info, warn or error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		check(false, "log.format", "must be json or console", c.Log.Format)
	}

	if c.Metrics.Enabled {
		check(c.Metrics.Addr != "", "metrics.addr", "must be set when metrics are enabled", c.Metrics.Addr)
	}
	return errors.Join(errs...)
}
