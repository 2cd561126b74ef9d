// Package notify holds session listeners that carry events out of the core:
// structured logs and Prometheus metrics.
package notify

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/cory-johannsen/wichtel/internal/game/session"
	"github.com/cory-johannsen/wichtel/internal/observability"
)

// LogListener writes every session event to a zap logger.
// SpecialOutcome and SessionReset are logged at Info, everything else at Debug.
type LogListener struct {
	logger *zap.Logger
}

// NewLogListener creates a LogListener.
//
// Precondition: logger must be non-nil.
func NewLogListener(logger *zap.Logger) *LogListener {
	if logger == nil {
		panic("notify: NewLogListener precondition violated: logger must be non-nil")
	}
	return &LogListener{logger: logger}
}

// Notify implements session.Listener.
func (l *LogListener) Notify(e session.Event) {
	fields := []zap.Field{
		zap.String("event", e.Kind.String()),
		zap.String("session", e.Session),
		zap.Uint64("roll", e.Roll),
	}
	switch e.Kind {
	case session.RollingTick:
		fields = append(fields, zap.Int("tick", e.Tick))
	case session.RollCommitted:
		fields = append(fields,
			zap.Ints("dice", e.Outcome.Faces()),
			zap.Int("total", e.Total),
			zap.Bool("manual", e.Outcome.Manual),
		)
	case session.RollResolved, session.SpecialOutcome:
		fields = append(fields,
			zap.Int("total", e.Total),
			zap.String("rule", e.Rule),
			zap.Bool("special", e.Special),
		)
	case session.HistoryUpdated:
		fields = append(fields, zap.Ints("history", e.History))
	case session.SessionReset:
		fields = append(fields, zap.Int("dice_count", e.Outcome.Count()))
	}
	if e.Kind == session.SpecialOutcome || e.Kind == session.SessionReset {
		l.logger.Info("session event", fields...)
		return
	}
	l.logger.Debug("session event", fields...)
}

// MetricsListener records session events on Prometheus collectors.
type MetricsListener struct {
	metrics *observability.Metrics
}

// NewMetricsListener creates a MetricsListener.
//
// Precondition: m must be non-nil.
func NewMetricsListener(m *observability.Metrics) *MetricsListener {
	if m == nil {
		panic("notify: NewMetricsListener precondition violated: metrics must be non-nil")
	}
	return &MetricsListener{metrics: m}
}

// Notify implements session.Listener.
func (l *MetricsListener) Notify(e session.Event) {
	switch e.Kind {
	case session.RollCommitted:
		source := "random"
		if e.Outcome.Manual {
			source = "manual"
		}
		l.metrics.Rolls.WithLabelValues(source).Inc()
		if e.Outcome.Fallback {
			l.metrics.Fallbacks.Inc()
		}
	case session.RollingTick:
		l.metrics.Ticks.Inc()
	case session.RollResolved:
		l.metrics.Totals.WithLabelValues(strconv.Itoa(e.Total)).Inc()
	case session.SpecialOutcome:
		l.metrics.Specials.Inc()
	case session.RuleDismissed:
		l.metrics.Dismissals.Inc()
	case session.SessionReset:
		l.metrics.Resets.Inc()
	}
}
