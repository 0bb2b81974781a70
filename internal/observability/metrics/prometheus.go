package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/kanon/pkg/constants"
)

// PrometheusMetrics collects per-run anonymization metrics. A CLI run is a
// short batch job, so metrics are dumped to a node-exporter textfile instead
// of being served.
type PrometheusMetrics struct {
	logger   *logrus.Logger
	registry *prometheus.Registry
	config   *PrometheusConfig
	mu       sync.RWMutex

	runsTotal         *prometheus.CounterVec
	rowsIn            prometheus.Counter
	rowsOut           prometheus.Counter
	rowsSuppressed    prometheus.Counter
	unknownValues     *prometheus.CounterVec
	transformDuration *prometheus.HistogramVec
	stageDuration     *prometheus.HistogramVec
	kAnonymity        *prometheus.GaugeVec
	groupSizeMean     *prometheus.GaugeVec
	groupSizeMedian   *prometheus.GaugeVec
	errorsTotal       *prometheus.CounterVec
}

// PrometheusConfig configures metrics collection.
type PrometheusConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	Namespace    string `json:"namespace" mapstructure:"namespace"`
	Subsystem    string `json:"subsystem" mapstructure:"subsystem"`
	TextfilePath string `json:"textfile_path" mapstructure:"textfile_path"`
}

// NewPrometheusMetrics creates a new metrics instance with its own registry.
func NewPrometheusMetrics(config *PrometheusConfig, logger *logrus.Logger) (*PrometheusMetrics, error) {
	if config == nil {
		config = getDefaultPrometheusConfig()
	}

	if logger == nil {
		logger = logrus.New()
	}

	pm := &PrometheusMetrics{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		config:   config,
	}

	pm.initializeMetrics()

	if err := pm.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return pm, nil
}

// Run metrics
func (pm *PrometheusMetrics) RecordRun(status string) {
	pm.runsTotal.WithLabelValues(status).Inc()
}

func (pm *PrometheusMetrics) RecordRows(in, out, suppressed int) {
	pm.rowsIn.Add(float64(in))
	pm.rowsOut.Add(float64(out))
	pm.rowsSuppressed.Add(float64(suppressed))
}

// Transform metrics
func (pm *PrometheusMetrics) RecordTransform(transform, column string, unknown int, duration time.Duration) {
	pm.unknownValues.WithLabelValues(transform, column).Add(float64(unknown))
	pm.transformDuration.WithLabelValues(transform).Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) RecordStage(stage string, duration time.Duration) {
	pm.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// Privacy metrics
func (pm *PrometheusMetrics) SetGroupMetrics(metric string, k int, mean, median float64) {
	pm.kAnonymity.WithLabelValues(metric).Set(float64(k))
	pm.groupSizeMean.WithLabelValues(metric).Set(mean)
	pm.groupSizeMedian.WithLabelValues(metric).Set(median)
}

// Error metrics
func (pm *PrometheusMetrics) RecordError(errorType string) {
	pm.errorsTotal.WithLabelValues(errorType).Inc()
}

// WriteTextfile dumps the registry to the configured textfile. It does
// nothing when metrics are disabled or no path is set.
func (pm *PrometheusMetrics) WriteTextfile() error {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if !pm.config.Enabled || pm.config.TextfilePath == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(pm.config.TextfilePath, pm.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}

	pm.logger.WithFields(logrus.Fields{
		"path": pm.config.TextfilePath,
	}).Debug("Metrics written")
	return nil
}

func (pm *PrometheusMetrics) initializeMetrics() {
	namespace := pm.config.Namespace
	subsystem := pm.config.Subsystem

	pm.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "runs_total",
			Help:      "Total number of anonymization runs",
		},
		[]string{"status"},
	)

	pm.rowsIn = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rows_in_total",
			Help:      "Rows read from the input dataset",
		},
	)

	pm.rowsOut = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rows_out_total",
			Help:      "Rows written to the anonymized dataset",
		},
	)

	pm.rowsSuppressed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rows_suppressed_total",
			Help:      "Rows removed by suppression",
		},
	)

	pm.unknownValues = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "unknown_values_total",
			Help:      "Values replaced by the unknown sentinel",
		},
		[]string{"transform", "column"},
	)

	pm.transformDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transform_duration_seconds",
			Help:      "Column transform duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"transform"},
	)

	pm.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
		},
		[]string{"stage"},
	)

	pm.kAnonymity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "k_anonymity",
			Help:      "Smallest equivalence class size",
		},
		[]string{"metric"},
	)

	pm.groupSizeMean = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "group_size_mean",
			Help:      "Mean equivalence class size",
		},
		[]string{"metric"},
	)

	pm.groupSizeMedian = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "group_size_median",
			Help:      "Median equivalence class size",
		},
		[]string{"metric"},
	)

	pm.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Fatal run errors by type",
		},
		[]string{"type"},
	)
}

// registerMetrics registers all metrics with the Prometheus registry
func (pm *PrometheusMetrics) registerMetrics() error {
	metrics := []prometheus.Collector{
		pm.runsTotal,
		pm.rowsIn,
		pm.rowsOut,
		pm.rowsSuppressed,
		pm.unknownValues,
		pm.transformDuration,
		pm.stageDuration,
		pm.kAnonymity,
		pm.groupSizeMean,
		pm.groupSizeMedian,
		pm.errorsTotal,
	}

	for _, metric := range metrics {
		if err := pm.registry.Register(metric); err != nil {
			return fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return nil
}

// GetRegistry returns the Prometheus registry
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// GetConfig returns the configuration
func (pm *PrometheusMetrics) GetConfig() *PrometheusConfig {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.config
}

func getDefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Enabled:   true,
		Namespace: constants.AppName,
		Subsystem: "pipeline",
	}
}
