package login

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what happens while signing in.
type Metrics struct {
	Starts           *prometheus.CounterVec
	Callbacks        *prometheus.CounterVec
	ExchangeDuration prometheus.Histogram
	Resets           prometheus.Counter
	BestEffortErrors *prometheus.CounterVec
}

// NewMetrics registers the sign-in metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Starts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "indielogin_starts_total",
			Help: "Sign-ins started, by how they continued",
		}, []string{"outcome"}),
		Callbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "indielogin_callbacks_total",
			Help: "Callbacks handled, by result",
		}, []string{"result"}),
		ExchangeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "indielogin_exchange_duration_seconds",
			Help:    "Duration of authorization code exchanges",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		Resets: factory.NewCounter(prometheus.CounterOpts{
			Name: "indielogin_resets_total",
			Help: "Credential resets",
		}),
		BestEffortErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "indielogin_best_effort_errors_total",
			Help: "Failed calls whose result was ignored, by call",
		}, []string{"call"}),
	}
}

func (m *Metrics) start(outcome string) {
	if m != nil {
		m.Starts.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) callback(result string) {
	if m != nil {
		m.Callbacks.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) observeExchange(start time.Time) {
	if m != nil {
		m.ExchangeDuration.Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) reset() {
	if m != nil {
		m.Resets.Inc()
	}
}

func (m *Metrics) bestEffortFailed(call string) {
	if m != nil {
		m.BestEffortErrors.WithLabelValues(call).Inc()
	}
}
