package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector groups the service's prometheus instruments.
type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	DispatchTotal       *prometheus.CounterVec
	AcknowledgmentTotal *prometheus.CounterVec
	OnboardingTotal     *prometheus.CounterVec
	TelegramCallsTotal  *prometheus.CounterVec
	BreakerState        *prometheus.GaugeVec
	SendAttempts        *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewCollector registers all instruments on reg. Tests pass a fresh
// prometheus.NewRegistry(); the server passes prometheus.DefaultRegisterer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)

	c := &Collector{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		DispatchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "dispatch_total",
			Help:      "Notification dispatch attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),

		AcknowledgmentTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "acknowledgments_total",
			Help:      "Inbound callback payloads by outcome.",
		}, []string{"outcome"}),

		OnboardingTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "onboarding_total",
			Help:      "Recipient /start and /stop commands by command and outcome.",
		}, []string{"command", "outcome"}),

		TelegramCallsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "api_calls_total",
			Help:      "Bot API calls by method and outcome.",
		}, []string{"method", "outcome"}),

		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "circuit_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"breaker"}),
		SendAttempts: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "send_attempts",
			Help:      "Dispatch attempts spent per notification send, by final outcome.",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}, []string{"outcome"}),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	}
	return c
}

// Handler serves the registry the collector was built on.
func (c *Collector) Handler() http.Handler {
	if c.gatherer == nil || c.gatherer == prometheus.DefaultGatherer {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveDispatch(kind, outcome string) {
	if c == nil {
		return
	}
	c.DispatchTotal.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) ObserveAcknowledgment(outcome string) {
	if c == nil {
		return
	}
	c.AcknowledgmentTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveOnboarding(command, outcome string) {
	if c == nil {
		return
	}
	c.OnboardingTotal.WithLabelValues(command, outcome).Inc()
}

func (c *Collector) ObserveTelegramCall(method, outcome string) {
	if c == nil {
		return
	}
	c.TelegramCallsTotal.WithLabelValues(method, outcome).Inc()
}

func (c *Collector) SetBreakerState(name string, state float64) {
	if c == nil {
		return
	}
	c.BreakerState.WithLabelValues(name).Set(state)
}

func (c *Collector) ObserveSend(outcome string, attempts int) {
	if c == nil {
		return
	}
	c.SendAttempts.WithLabelValues(outcome).Observe(float64(attempts))
}
