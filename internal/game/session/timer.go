package session

import (
	"sync"
	"time"
)

// RollTimer runs a callback for one roll after a delay. Arming it for a newer
// roll replaces the pending callback; requests naming an older roll than the
// armed one are ignored, so events delivered out of order cannot cancel or
// replace the timer of a later roll. It is safe for concurrent use.
type RollTimer struct {
	onFire func(roll uint64)

	mu    sync.Mutex
	timer *time.Timer
	roll  uint64
	gen   uint64
	armed bool
}

// NewRollTimer creates an unarmed RollTimer.
//
// Precondition: onFire must not be nil.
func NewRollTimer(onFire func(roll uint64)) *RollTimer {
	if onFire == nil {
		panic("session: NewRollTimer precondition violated: onFire must be non-nil")
	}
	return &RollTimer{onFire: onFire}
}

// Arm schedules onFire(roll) after d, replacing any pending callback.
//
// Precondition: d > 0.
// Postcondition: returns false and changes nothing when roll is older than the
// most recently armed roll.
func (t *RollTimer) Arm(roll uint64, d time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if roll < t.roll {
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.roll = roll
	t.armed = true
	t.timer = time.AfterFunc(d, func() { t.fire(gen) })
	return true
}

func (t *RollTimer) fire(gen uint64) {
	t.mu.Lock()
	if !t.armed || t.gen != gen {
		t.mu.Unlock()
		return
	}
	t.armed = false
	roll := t.roll
	t.mu.Unlock()
	t.onFire(roll)
}

// Disarm cancels the pending callback when roll is not older than the armed roll.
//
// Postcondition: returns true when a pending callback was cancelled.
func (t *RollTimer) Disarm(roll uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed || roll < t.roll {
		return false
	}
	t.stopLocked()
	return true
}

// Stop cancels any pending callback regardless of roll. Safe to call multiple times.
//
// Postcondition: onFire will not be started after Stop returns.
func (t *RollTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *RollTimer) stopLocked() {
	t.armed = false
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
	}
}

// Armed returns the armed roll and whether a callback is pending.
func (t *RollTimer) Armed() (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.roll, t.armed
}

// Ticker calls onTick every interval until stopped. Ticks are numbered from 1.
// It is safe for concurrent use.
type Ticker struct {
	mu       sync.Mutex
	timer    *time.Timer
	interval time.Duration
	onTick   func(n int)
	n        int
	stopped  bool
}

// NewTicker creates and starts a Ticker.
//
// Precondition: interval > 0; onTick must not be nil.
// Postcondition: the first tick fires after interval.
func NewTicker(interval time.Duration, onTick func(n int)) *Ticker {
	tk := &Ticker{interval: interval, onTick: onTick}
	tk.mu.Lock()
	tk.timer = time.AfterFunc(interval, tk.fire)
	tk.mu.Unlock()
	return tk
}

func (tk *Ticker) fire() {
	tk.mu.Lock()
	if tk.stopped {
		tk.mu.Unlock()
		return
	}
	tk.n++
	n := tk.n
	tk.mu.Unlock()

	tk.onTick(n)

	tk.mu.Lock()
	if !tk.stopped {
		tk.timer = time.AfterFunc(tk.interval, tk.fire)
	}
	tk.mu.Unlock()
}

// Stop prevents further ticks from being scheduled. Safe to call multiple times.
// A tick already running may still complete; callers that need a hard cut-off
// must re-check their own state inside onTick.
func (tk *Ticker) Stop() {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	tk.stopped = true
	tk.timer.Stop()
}
