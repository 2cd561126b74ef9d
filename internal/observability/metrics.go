package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the roll engine's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Rolls counts committed rolls by source ("random" or "manual").
	Rolls *prometheus.CounterVec
	// Totals counts resolved rolls by total.
	Totals *prometheus.CounterVec
	// Specials counts resolved rolls whose rule is special.
	Specials prometheus.Counter
	// Fallbacks counts manual rolls that resolved to the all-ones default.
	Fallbacks prometheus.Counter
	// Ticks counts rolling sound cues.
	Ticks prometheus.Counter
	// Resets counts session resets.
	Resets prometheus.Counter
	// Dismissals counts dismissed rules.
	Dismissals prometheus.Counter
}

// NewMetrics creates and registers all collectors.
//
// Postcondition: Returns Metrics whose collectors are registered exactly once.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Rolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wichtel_rolls_total",
			Help: "Total number of committed rolls",
		}, []string{"source"}),
		Totals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wichtel_roll_totals_total",
			Help: "Resolved rolls by total",
		}, []string{"total"}),
		Specials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wichtel_special_outcomes_total",
			Help: "Resolved rolls whose rule is special",
		}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wichtel_manual_fallbacks_total",
			Help: "Manual rolls that fell back to all ones",
		}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wichtel_rolling_ticks_total",
			Help: "Rolling sound cues emitted",
		}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wichtel_session_resets_total",
			Help: "Session resets",
		}),
		Dismissals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wichtel_rule_dismissals_total",
			Help: "Rules dismissed",
		}),
	}
	m.registry.MustRegister(m.Rolls, m.Totals, m.Specials, m.Fallbacks, m.Ticks, m.Resets, m.Dismissals)
	return m
}

// Registry returns the private registry backing m.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns an http.Handler serving m in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
