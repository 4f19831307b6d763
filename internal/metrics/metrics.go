package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	RequestCounter      *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	RequestsInFlight    prometheus.Gauge
	UnlockRequests      *prometheus.CounterVec
	UnlockVerifications *prometheus.CounterVec
	Submissions         *prometheus.CounterVec
	Notifications       *prometheus.CounterVec
	TokensPurged        prometheus.Counter
}

// New registers all collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid duplicate registration on the default registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		UnlockRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "unlock",
				Name:      "requests_total",
				Help:      "Unlock requests by result",
			},
			[]string{"result"},
		),
		UnlockVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "unlock",
				Name:      "verifications_total",
				Help:      "Token verifications by outcome",
			},
			[]string{"outcome"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "questionnaire",
				Name:      "submissions_total",
				Help:      "Questionnaire submissions by result",
			},
			[]string{"result"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notify",
				Name:      "messages_total",
				Help:      "Notification dispatch attempts by kind and result",
			},
			[]string{"kind", "result"},
		),
		TokensPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "unlock",
				Name:      "tokens_purged_total",
				Help:      "Expired unlock tokens removed by the janitor",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.RequestCounter,
			m.RequestDuration,
			m.RequestsInFlight,
			m.UnlockRequests,
			m.UnlockVerifications,
			m.Submissions,
			m.Notifications,
			m.TokensPurged,
		)
	}
	return m
}

// Nop returns unregistered collectors, for tests and tools.
func Nop() *Metrics { return New("test", nil) }
