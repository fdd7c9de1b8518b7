package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. Each instance owns its registry so
// tests can build as many as they like.
type Metrics struct {
	Registry      *prometheus.Registry
	WebhookEvents *prometheus.CounterVec
	ViewIncrement prometheus.Counter
	Revalidations *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blogsync",
			Name:      "webhook_events_total",
			Help:      "Webhook deliveries by event, action and outcome.",
		}, []string{"event", "action", "outcome"}),
		ViewIncrement: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blogsync",
			Name:      "view_increments_total",
			Help:      "Successful view counter increments.",
		}),
		Revalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blogsync",
			Name:      "revalidations_total",
			Help:      "Revalidation notifications by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.WebhookEvents, m.ViewIncrement, m.Revalidations)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
