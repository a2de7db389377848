package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	runSubmitTotal   *prometheus.CounterVec
	exportTotal      *prometheus.CounterVec
	confirmationsSet *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "omai",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "omai",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "omai",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	runSubmitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "omai",
			Subsystem: "runs",
			Name:      "submitted_total",
			Help:      "Total match run submissions accepted.",
		},
		[]string{"service"},
	)
	exportTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "omai",
			Subsystem: "runs",
			Name:      "exports_total",
			Help:      "Total result exports served by format.",
		},
		[]string{"service", "format"},
	)
	confirmationsSet := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "omai",
			Subsystem: "runs",
			Name:      "confirmations_total",
			Help:      "Total confirmation entries appended.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		runSubmitTotal,
		exportTotal,
		confirmationsSet,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		runSubmitTotal:   runSubmitTotal,
		exportTotal:      exportTotal,
		confirmationsSet: confirmationsSet,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps run IDs out of metric labels.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/runs/"):
		rest := strings.TrimPrefix(path, "/v1/runs/")
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			return "/v1/runs/{run_id}/" + rest[idx+1:]
		}
		return "/v1/runs/{run_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordRunSubmitted(service string) {
	m.runSubmitTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordExport(service, format string) {
	if format == "" {
		format = "unknown"
	}
	m.exportTotal.WithLabelValues(service, format).Inc()
}

func (m *HTTPServerMetrics) RecordConfirmations(service string, count int) {
	if count <= 0 {
		return
	}
	m.confirmationsSet.WithLabelValues(service).Add(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
