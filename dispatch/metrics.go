package dispatch

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsSubsystem = "geemvc"

// Handler labels of requests that did not reach a handler.
const (
	LabelNotFound         = "<not_found>"
	LabelMethodNotAllowed = "<method_not_allowed>"
)

// Metrics are the Prometheus collectors of a dispatcher.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rejected *prometheus.CounterVec
}

// NewMetrics creates the dispatcher collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: metricsSubsystem,
				Name:      "requests_total",
				Help:      "Count of dispatched requests by handler, method and status code.",
			},
			[]string{"handler", "method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Subsystem: metricsSubsystem,
				Name:      "request_duration_seconds",
				Help:      "Time spent dispatching requests by handler.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"handler"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: metricsSubsystem,
				Name:      "rejected_total",
				Help:      "Count of requests rejected for binding or validation errors by handler.",
			},
			[]string{"handler"},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.requests, m.duration, m.rejected} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Collectors returns the collectors for custom registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requests, m.duration, m.rejected}
}

func (m *Metrics) observe(handler, method string, code int, d time.Duration) {
	m.requests.WithLabelValues(handler, method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(handler).Observe(d.Seconds())
}

func (m *Metrics) reject(handler string) {
	m.rejected.WithLabelValues(handler).Inc()
}

// statusRecorder captures the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.WriteHeader(http.StatusOK)
	}
	return s.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
