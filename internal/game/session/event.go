package session

import "github.com/cory-johannsen/wichtel/internal/game/dice"

// EventKind identifies an outbound notification.
type EventKind int

const (
	// RollCommitted fires on entering Rolling so the renderer knows the target faces.
	RollCommitted EventKind = iota
	// RollingTick fires periodically while Rolling when sound is enabled.
	RollingTick
	// RollResolved fires on entering RuleShown with the total and rule text.
	RollResolved
	// SpecialOutcome fires on entering RuleShown when the mode policy matches.
	SpecialOutcome
	// HistoryUpdated fires whenever the history changes.
	HistoryUpdated
	// RuleDismissed fires on RuleShown → Idle.
	RuleDismissed
	// SessionReset fires when a dice-count or mode change resets the session.
	SessionReset
)

// String returns the snake_case event name.
func (k EventKind) String() string {
	switch k {
	case RollCommitted:
		return "roll_committed"
	case RollingTick:
		return "rolling_tick"
	case RollResolved:
		return "roll_resolved"
	case SpecialOutcome:
		return "special_outcome"
	case HistoryUpdated:
		return "history_updated"
	case RuleDismissed:
		return "rule_dismissed"
	case SessionReset:
		return "session_reset"
	default:
		return "unknown"
	}
}

// Event is one outbound notification. Fields not relevant to Kind are zero.
type Event struct {
	Kind    EventKind
	Session string
	// Roll is the sequence number of the roll the event belongs to; 0 before the first roll.
	Roll    uint64
	Outcome dice.Outcome
	Total   int
	Rule    string
	Special bool
	// Sound is true when the listener should play the sound cue for this event.
	Sound   bool
	Tick    int
	History []int
}

// Listener receives outbound notifications.
//
// RollingTick is delivered while the session lock is held, so a listener must
// not call back into the Session from a RollingTick. Every other event is
// delivered after the lock is released and may call back freely.
//
// Events raised by concurrent callers may reach a listener interleaved; Roll
// orders them. Listeners holding per-roll state must ignore events of an
// older roll than the one they track (see RollTimer).
type Listener interface {
	Notify(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// Notify calls f.
func (f ListenerFunc) Notify(e Event) { f(e) }
