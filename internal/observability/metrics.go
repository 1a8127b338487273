package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	admissionsTotal   *prometheus.CounterVec
	operationsTotal   *prometheus.CounterVec
	queueWaitDuration *prometheus.HistogramVec
	operationDuration *prometheus.HistogramVec

	activeOperations    prometheus.Gauge
	activeResourceQueues prometheus.Gauge

	pipelineActionsTotal *prometheus.CounterVec
	pipelineDuration     prometheus.Histogram
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			admissionsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "coordinator_admissions_total",
					Help: "Total operation admissions by lane and mode (parallel or serialized).",
				},
				[]string{"lane", "mode"},
			),
			operationsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "coordinator_operations_total",
					Help: "Total completed operations by lane and status.",
				},
				[]string{"lane", "status"},
			),
			queueWaitDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "coordinator_queue_wait_seconds",
					Help:    "Time operations spend waiting behind their lane predecessor.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"lane"},
			),
			operationDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "coordinator_operation_duration_seconds",
					Help:    "Callback execution duration by lane.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"lane"},
			),
			activeOperations: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "coordinator_active_operations",
					Help: "Operations currently between admission and completion.",
				},
			),
			activeResourceQueues: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "coordinator_active_resource_queues",
					Help: "Resource keys with in-flight or queued work.",
				},
			),
			pipelineActionsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pipeline_actions_total",
					Help: "Total actions dispatched through the pipeline by kind and status.",
				},
				[]string{"kind", "status"},
			),
			pipelineDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "pipeline_dispatch_duration_seconds",
					Help:    "End-to-end dispatch duration for one action batch.",
					Buckets: prometheus.DefBuckets,
				},
			),
		}

		prometheus.MustRegister(
			m.admissionsTotal,
			m.operationsTotal,
			m.queueWaitDuration,
			m.operationDuration,
			m.activeOperations,
			m.activeResourceQueues,
			m.pipelineActionsTotal,
			m.pipelineDuration,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordAdmission(lane string, parallel bool) {
	m := getMetrics()
	mode := "serialized"
	if parallel {
		mode = "parallel"
	}
	m.admissionsTotal.WithLabelValues(lane, mode).Inc()
}

func RecordQueueWait(lane string, wait time.Duration) {
	m := getMetrics()
	m.queueWaitDuration.WithLabelValues(lane).Observe(wait.Seconds())
}

func RecordOperation(lane string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.operationsTotal.WithLabelValues(lane, status).Inc()
	m.operationDuration.WithLabelValues(lane).Observe(duration.Seconds())
}

func SetActiveOperations(count int) {
	m := getMetrics()
	m.activeOperations.Set(float64(count))
}

func SetActiveResourceQueues(count int) {
	m := getMetrics()
	m.activeResourceQueues.Set(float64(count))
}

func RecordPipelineAction(kind string, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.pipelineActionsTotal.WithLabelValues(kind, status).Inc()
}

func RecordPipelineDispatch(duration time.Duration) {
	m := getMetrics()
	m.pipelineDuration.Observe(duration.Seconds())
}
