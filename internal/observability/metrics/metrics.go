// Package metrics provides Prometheus instrumentation for cdc-deploy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enabled  bool
	registry *prometheus.Registry

	// Explorer HTTP metrics
	explorerRequestsTotal *prometheus.CounterVec
	explorerDuration      *prometheus.HistogramVec

	// Deployment domain metrics
	deploymentTotal *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec

	// Verification domain metrics
	verificationTotal *prometheus.CounterVec
	verificationPolls *prometheus.CounterVec
)

// Init initializes the metrics system. Calling it again starts from a fresh registry.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag

	if !enabled {
		registry = nil
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)
	constLabels := prometheus.Labels{"service": svcName}

	// Explorer request counter
	explorerRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "explorer_requests_total",
			Help:        "Total number of block explorer API requests",
			ConstLabels: constLabels,
		},
		[]string{"method", "host", "status"},
	)

	// Explorer request duration histogram
	explorerDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "explorer_request_duration_seconds",
			Help:        "Block explorer API latency in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"method", "host"},
	)

	// Deployment run counter
	deploymentTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "deployment_total",
			Help:        "Total number of deployment runs by outcome",
			ConstLabels: constLabels,
		},
		[]string{"contract", "status"},
	)

	// Step duration histogram
	stepDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "deployment_step_duration_seconds",
			Help:        "Duration of each deployment step in seconds",
			Buckets:     []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			ConstLabels: constLabels,
		},
		[]string{"step"},
	)

	// Verification counter
	verificationTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "verification_total",
			Help:        "Total number of source verifications by result",
			ConstLabels: constLabels,
		},
		[]string{"result"},
	)

	// Verification status poll counter
	verificationPolls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "verification_status_polls_total",
			Help:        "Total number of verification status checks by reported status",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
}

// Gatherer returns the registry metrics are recorded in, or nil when disabled.
func Gatherer() prometheus.Gatherer {
	if registry == nil {
		return nil
	}
	return registry
}

// WriteTextfile writes all metrics to path in the text exposition format
// read by the node exporter textfile collector.
func WriteTextfile(path string) error {
	g := Gatherer()
	if g == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, g)
}
