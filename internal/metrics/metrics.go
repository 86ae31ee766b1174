// Package metrics содержит Prometheus-метрики сервиса.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roomie"

// Metrics объединяет все метрики сервиса и реестр, в котором они зарегистрированы.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	BalanceWarnings     *prometheus.CounterVec
	SettlementResidual  prometheus.Counter
	InvitationsSent     prometheus.Counter
	InvitationsAccepted prometheus.Counter
	InvitationsExpired  prometheus.Counter
}

// New создаёт метрики в собственном реестре вместе со стандартными коллекторами процесса и Go runtime.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		BalanceWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "balance",
			Name:      "warnings_total",
			Help:      "Expenses skipped or flagged while computing balances, by kind.",
		}, []string{"kind"}),
		SettlementResidual: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "balance",
			Name:      "unmatched_plans_total",
			Help:      "Settlement plans whose unmatched remainder exceeded the rounding tolerance.",
		}),
		InvitationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invitations",
			Name:      "sent_total",
			Help:      "Invitation emails handed to the mail sender.",
		}),
		InvitationsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invitations",
			Name:      "accepted_total",
			Help:      "Invitations accepted, explicitly or at signup.",
		}),
		InvitationsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invitations",
			Name:      "expired_total",
			Help:      "Pending invitations marked expired by the sweeper.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.BalanceWarnings,
		m.SettlementResidual,
		m.InvitationsSent,
		m.InvitationsAccepted,
		m.InvitationsExpired,
	)

	return m
}

// Handler возвращает HTTP-обработчик для экспорта метрик.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry возвращает реестр метрик.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
