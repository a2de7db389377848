package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	runTotal         *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	runInFlight      prometheus.Gauge
	documentTotal    *prometheus.CounterVec
	documentDuration *prometheus.HistogramVec
	ocrFallbackTotal *prometheus.CounterVec
	queueLag         *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	runTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "omai",
			Subsystem: "worker",
			Name:      "run_process_total",
			Help:      "Total processed match runs by status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "omai",
			Subsystem: "worker",
			Name:      "run_process_duration_seconds",
			Help:      "Match run processing duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	runInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "omai",
			Subsystem: "worker",
			Name:      "run_process_in_flight",
			Help:      "Number of in-flight match runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	documentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "omai",
			Subsystem: "worker",
			Name:      "document_process_total",
			Help:      "Total matched documents by status.",
		},
		[]string{"service", "status"},
	)
	documentDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "omai",
			Subsystem: "worker",
			Name:      "document_process_duration_seconds",
			Help:      "Per-document matching duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	ocrFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "omai",
			Subsystem: "worker",
			Name:      "ocr_fallback_total",
			Help:      "Total documents whose text layers came up short and went to OCR.",
		},
		[]string{"service"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "omai",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between run submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(runTotal, runDuration, runInFlight, documentTotal, documentDuration, ocrFallbackTotal, queueLag)

	return &WorkerMetrics{
		registry:         registry,
		runTotal:         runTotal,
		runDuration:      runDuration,
		runInFlight:      runInFlight,
		documentTotal:    documentTotal,
		documentDuration: documentDuration,
		ocrFallbackTotal: ocrFallbackTotal,
		queueLag:         queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRun() {
	m.runInFlight.Inc()
}

func (m *WorkerMetrics) FinishRun(service string, duration time.Duration, err error) {
	m.runInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.runTotal.WithLabelValues(service, status).Inc()
	m.runDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveDocument(service string, duration time.Duration, failed bool) {
	status := "success"
	if failed {
		status = "error"
	}
	m.documentTotal.WithLabelValues(service, status).Inc()
	m.documentDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordOCRFallback(service string) {
	m.ocrFallbackTotal.WithLabelValues(service).Inc()
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
