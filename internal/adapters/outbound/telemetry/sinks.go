// Package telemetry turns dispatch and cancellation events into log records
// and Prometheus metrics.
package telemetry

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pourline/pourline/internal/domain"
	"github.com/pourline/pourline/internal/platform/logging"
)

// LogSink writes every event as a structured log record.
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Nop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(e domain.Event) {
	log := s.logger.With(
		"event", string(e.Type),
		"kind", string(e.Kind),
		"session", e.SessionID,
		"product_id", e.ProductID,
		"quantity", e.Quantity,
	)
	if e.Code != "" {
		log = log.With("plu", e.Code)
	}
	if e.Message != "" {
		log = log.With("message", e.Message)
	}
	switch e.Type {
	case domain.EventDispatchFailed, domain.EventCancellationFailed:
		log.WithError(e.Err).Warn("dispenser event")
	case domain.EventDispatchAttempted, domain.EventCancellationAttempted:
		log.Debug("dispenser event")
	default:
		log.Info("dispenser event")
	}
}

// PromSink counts events and times middleware requests on a private registry.
type PromSink struct {
	registry          *prometheus.Registry
	dispatches        *prometheus.CounterVec
	cancellations     *prometheus.CounterVec
	middlewareLatency *prometheus.HistogramVec
}

// NewPromSink creates a PromSink with its own registry.
func NewPromSink() *PromSink {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())

	s := &PromSink{registry: registry}
	s.dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pourline",
			Name:      "dispatch_total",
			Help:      "Dispatch attempts by item kind and result",
		},
		[]string{"kind", "result"},
	)
	s.cancellations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pourline",
			Name:      "cancellation_total",
			Help:      "Credit cancellations by item kind and result",
		},
		[]string{"kind", "result"},
	)
	s.middlewareLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pourline",
			Name:      "middleware_request_duration_seconds",
			Help:      "Hart96 middleware request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"op", "result"},
	)
	registry.MustRegister(s.dispatches, s.cancellations, s.middlewareLatency)
	return s
}

func (s *PromSink) Emit(e domain.Event) {
	kind := string(e.Kind)
	switch e.Type {
	case domain.EventDispatchSucceeded:
		s.dispatches.WithLabelValues(kind, "success").Inc()
	case domain.EventDispatchFailed:
		s.dispatches.WithLabelValues(kind, "failure").Inc()
	case domain.EventCancellationSucceeded:
		s.cancellations.WithLabelValues(kind, "success").Inc()
	case domain.EventCancellationFailed:
		s.cancellations.WithLabelValues(kind, "failure").Inc()
	}
}

// ObserveMiddleware records one middleware request.
func (s *PromSink) ObserveMiddleware(op string, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	s.middlewareLatency.WithLabelValues(strings.ReplaceAll(op, "-", "_"), result).Observe(d.Seconds())
}

// Registry returns the sink's registry.
func (s *PromSink) Registry() *prometheus.Registry { return s.registry }

// Handler serves the registry in the Prometheus exposition format.
func (s *PromSink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Multi fans every event out to several sinks.
type Multi []domain.EventSink

func (m Multi) Emit(e domain.Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}
