package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts authentication outcomes. A nil *Metrics records nothing.
type Metrics struct {
	logins    *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	resolves  *prometheus.CounterVec
	generated prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playlistify",
			Name:      "oauth_callbacks_total",
			Help:      "OAuth callbacks by result code.",
		}, []string{"result"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playlistify",
			Name:      "token_refreshes_total",
			Help:      "Access token refresh attempts by result.",
		}, []string{"result"}),
		resolves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playlistify",
			Name:      "session_resolves_total",
			Help:      "Session resolutions by outcome.",
		}, []string{"outcome"}),
		generated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "playlistify",
			Name:      "generated_tracks_total",
			Help:      "Tracks returned by playlist generation.",
		}),
	}
}

func (m *Metrics) login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) refresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) resolve(outcome string) {
	if m == nil {
		return
	}
	m.resolves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) tracksGenerated(n int) {
	if m == nil {
		return
	}
	m.generated.Add(float64(n))
}
