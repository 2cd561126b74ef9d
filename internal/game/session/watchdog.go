package session

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Watchdog force-completes a roll whose presentation never reports back.
// It is opt-in: subscribe it to the Session it guards.
//
//	wd := session.NewWatchdog(s, 5*time.Second, logger)
//	s.Subscribe(wd)
//
// Events of an older roll never disarm the timer of a newer one.
type Watchdog struct {
	session *Session
	timeout time.Duration
	logger  *zap.Logger
	timer   *RollTimer
	fired   atomic.Int64
}

// NewWatchdog creates a Watchdog for s.
//
// Precondition: s and logger must be non-nil; timeout > 0.
func NewWatchdog(s *Session, timeout time.Duration, logger *zap.Logger) *Watchdog {
	if s == nil || logger == nil || timeout <= 0 {
		panic("session: NewWatchdog precondition violated")
	}
	w := &Watchdog{session: s, timeout: timeout, logger: logger}
	w.timer = NewRollTimer(w.force)
	return w
}

// Notify arms the timer on RollCommitted and disarms it when that roll leaves Rolling.
func (w *Watchdog) Notify(e Event) {
	switch e.Kind {
	case RollCommitted:
		if !w.timer.Arm(e.Roll, w.timeout) {
			w.logger.Debug("watchdog ignored stale commit", zap.Uint64("roll", e.Roll))
		}
	case RollResolved, SessionReset:
		w.timer.Disarm(e.Roll)
	}
}

func (w *Watchdog) force(roll uint64) {
	tr := w.session.NotifyPresentationCompleteFor(roll)
	if !tr.Accepted {
		return
	}
	w.logger.Warn("watchdog forced presentation complete",
		zap.String("session", w.session.ID()),
		zap.Uint64("roll", roll),
		zap.Duration("timeout", w.timeout),
	)
	w.fired.Add(1)
}

// Fired returns how many rolls the watchdog has force-completed.
func (w *Watchdog) Fired() int { return int(w.fired.Load()) }

// Stop disarms the watchdog.
func (w *Watchdog) Stop() { w.timer.Stop() }
