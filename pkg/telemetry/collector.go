// Package telemetry exports study progress as Prometheus metrics.
package telemetry

import (
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/YuminosukeSato/modelsearch/search"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "modelsearch"

// FamilyParam is the trial parameter that names the model family.
const FamilyParam = "model"

// Collector records one observation per finished trial. It implements
// search.Callback.
type Collector struct {
	trialsTotal   *prometheus.CounterVec
	trialDuration *prometheus.HistogramVec
	bestScore     *prometheus.GaugeVec
	studyBest     prometheus.Gauge

	mu   sync.Mutex
	best map[string]float64
}

// NewCollector registers the study metrics with reg. A nil reg uses the
// default registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		trialsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trials_total",
				Help:      "Finished search trials by family and state",
			},
			[]string{"family", "state"},
		),
		trialDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trial_duration_seconds",
				Help:      "Wall time of one trial including all cross-validation folds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"family"},
		),
		bestScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "best_score",
				Help:      "Best cross-validated MAE seen per family",
			},
			[]string{"family"},
		),
		studyBest: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "study_best_score",
				Help:      "Best cross-validated MAE over all families",
			},
		),
		best: make(map[string]float64),
	}
}

// OnTrialComplete implements search.Callback.
func (c *Collector) OnTrialComplete(study *search.Study, trial search.FrozenTrial) {
	family, _ := trial.Params[FamilyParam].(string)
	if family == "" {
		family = "unknown"
	}
	c.trialsTotal.WithLabelValues(family, string(trial.State)).Inc()
	c.trialDuration.WithLabelValues(family).Observe(trial.Duration().Seconds())

	if trial.State != search.TrialComplete {
		return
	}
	c.mu.Lock()
	prev, ok := c.best[family]
	if !ok || trial.Value < prev {
		c.best[family] = trial.Value
		c.bestScore.WithLabelValues(family).Set(trial.Value)
	}
	c.mu.Unlock()

	if study != nil {
		if best, err := study.BestTrial(); err == nil {
			c.studyBest.Set(best.Value)
		}
	}
}

// Best returns the lowest completed value recorded for family, or +Inf.
func (c *Collector) Best(family string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.best[family]; ok {
		return v
	}
	return math.Inf(1)
}
