package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	pageDuration    *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docmd",
			Subsystem: "worker",
			Name:      "document_process_total",
			Help:      "Total processed documents by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docmd",
			Subsystem: "worker",
			Name:      "document_process_duration_seconds",
			Help:      "Document conversion duration in seconds by status.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docmd",
			Subsystem: "worker",
			Name:      "document_process_in_flight",
			Help:      "Number of in-flight document conversions.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	pageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docmd",
			Subsystem: "worker",
			Name:      "page_ocr_duration_seconds",
			Help:      "Per-page recognition duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	tokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docmd",
			Subsystem: "worker",
			Name:      "model_tokens_total",
			Help:      "Total tokens reported by the vision model.",
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, pageDuration, tokensTotal)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		pageDuration:    pageDuration,
		tokensTotal:     tokensTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObservePage(service string, duration time.Duration) {
	m.pageDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *WorkerMetrics) AddTokens(service string, tokens int) {
	if tokens <= 0 {
		return
	}
	m.tokensTotal.WithLabelValues(service).Add(float64(tokens))
}
