// Package metrics defines the Prometheus collectors exposed at /metrics
// (A3). The collector names and label sets are carried over from
// original_source/services/inference/src/main.py's prometheus_client
// Counter/Histogram/Gauge definitions, translated to
// github.com/prometheus/client_golang/prometheus.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// InferenceRequestsTotal counts requests per endpoint and outcome.
	InferenceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nier_inference_requests_total",
			Help: "Total number of inference requests",
		},
		[]string{"endpoint", "status"},
	)

	// InferenceLatencySeconds observes end-to-end request latency.
	InferenceLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nier_inference_latency_seconds",
			Help:    "Inference request latency in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"endpoint"},
	)

	// DetectionsTotal counts individual detections by class name.
	DetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nier_detections_total",
			Help: "Total number of detections",
		},
		[]string{"class_name"},
	)

	// GPUMemoryUsedMB reports the device's resident model memory.
	GPUMemoryUsedMB = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nier_gpu_memory_used_mb",
			Help: "GPU memory used in MB",
		},
	)

	// QueueDepth reports the current batcher queue depth.
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nier_inference_queue_depth",
			Help: "Current inference queue depth",
		},
	)

	// ModelLoaded is 1 once the detector has a model resident, 0 otherwise.
	ModelLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nier_model_loaded",
			Help: "Whether the model is loaded (1) or not (0)",
		},
	)
)

// MustRegister registers every collector on reg. Called once at startup;
// a second registration of the same collectors (e.g. in a test that builds
// the router twice against the default registry) panics, so tests should
// pass a fresh prometheus.NewRegistry() rather than prometheus.DefaultRegisterer.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		InferenceRequestsTotal,
		InferenceLatencySeconds,
		DetectionsTotal,
		GPUMemoryUsedMB,
		QueueDepth,
		ModelLoaded,
	)
}

// ObserveRequest records the outcome and latency of one HTTP or RPC call.
func ObserveRequest(endpoint, status string, seconds float64) {
	InferenceRequestsTotal.WithLabelValues(endpoint, status).Inc()
	InferenceLatencySeconds.WithLabelValues(endpoint).Observe(seconds)
}

// ObserveDetections increments the per-class detection counter for every
// class name present in a single inference result.
func ObserveDetections(classNames []string) {
	for _, name := range classNames {
		DetectionsTotal.WithLabelValues(name).Inc()
	}
}
