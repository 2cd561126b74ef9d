// Package session implements the roll session state machine:
// Idle → Rolling → RuleShown → Idle.
//
// A Session owns the current outcome, the phase and the bounded roll history.
// Outcomes are committed instantly; the rule is revealed only after the
// presentation layer calls NotifyPresentationComplete. There is no timeout in
// the core; see Watchdog for an opt-in one.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/wichtel/internal/game/dice"
	"github.com/cory-johannsen/wichtel/internal/game/effect"
	"github.com/cory-johannsen/wichtel/internal/game/rules"
)

// HistoryLimit is the number of totals kept in the history.
const HistoryLimit = 5

// Options configures a new Session.
type Options struct {
	// DiceCount is 1 or 2.
	DiceCount int
	// Mode selects the default rule table and the special policy.
	Mode rules.Mode
	// SoundEnabled gates sound cues on outbound events.
	SoundEnabled bool
	// TickInterval is the RollingTick period; 0 disables ticks.
	TickInterval time.Duration
	// Roller generates outcomes. Required.
	Roller *dice.Roller
	// Catalog supplies default rule tables. nil uses the built-ins.
	Catalog *rules.Catalog
	// Effects supplies the special policy per mode. nil uses the default marker.
	Effects *effect.Registry
	// Logger is required.
	Logger *zap.Logger
}

// Resolution is the rule currently on display.
type Resolution struct {
	Total   int
	Rule    string
	Special bool
}

// State is a point-in-time copy of a Session.
type State struct {
	ID           string
	Phase        Phase
	Roll         uint64
	Outcome      dice.Outcome
	History      []int
	DiceCount    int
	Mode         rules.Mode
	Rules        rules.Table
	Shown        *Resolution
	SoundEnabled bool
}

// Session is the roll state machine. All methods are safe for concurrent use,
// but the design assumes one owning actor driving it.
type Session struct {
	id           string
	roller       *dice.Roller
	catalog      *rules.Catalog
	effects      *effect.Registry
	logger       *zap.Logger
	tickInterval time.Duration

	mu        sync.Mutex
	listeners []Listener
	phase     Phase
	roll      uint64
	current   dice.Outcome
	history   []int
	diceCount int
	mode      rules.Mode
	table     rules.Table
	policy    effect.Policy
	shown     *Resolution
	sound     bool
	ticker    *Ticker
}

// New creates a Session in Idle with the all-ones outcome and an empty history.
//
// Precondition: opts.Roller and opts.Logger must be non-nil.
// Postcondition: Returns a Session with the default table for (DiceCount, Mode),
// or an error when the dice count or mode is unknown.
func New(opts Options) (*Session, error) {
	if opts.Roller == nil || opts.Logger == nil {
		panic("session: New precondition violated: Roller and Logger must be non-nil")
	}
	if !dice.ValidCount(opts.DiceCount) {
		return nil, fmt.Errorf("%w: dice count %d must be 1 or 2", dice.ErrInvalidInput, opts.DiceCount)
	}
	if opts.Mode == "" {
		opts.Mode = rules.ModeClassic
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog, _ = rules.NewCatalog()
	}
	effects := opts.Effects
	if effects == nil {
		effects = effect.NewRegistry("")
	}
	table, err := catalog.DefaultsFor(opts.DiceCount, opts.Mode)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	id := uuid.NewString()
	return &Session{
		id:           id,
		roller:       opts.Roller,
		catalog:      catalog,
		effects:      effects,
		logger:       opts.Logger.With(zap.String("session", id)),
		tickInterval: opts.TickInterval,
		phase:        Idle,
		current:      dice.Default(opts.DiceCount),
		history:      []int{},
		diceCount:    opts.DiceCount,
		mode:         opts.Mode,
		table:        table,
		policy:       effects.For(opts.Mode),
		sound:        opts.SoundEnabled,
	}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Subscribe registers l for every subsequent event.
//
// Precondition: l must be non-nil.
func (s *Session) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// RequestRoll commits a random outcome and enters Rolling.
// Ignored while Rolling.
//
// Postcondition: on acceptance RollCommitted has been delivered.
func (s *Session) RequestRoll() (Transition, error) {
	return s.startRoll(func(count int) (dice.Outcome, error) {
		return s.roller.RollRandom(count)
	})
}

// RequestManualRoll commits an outcome whose faces sum to total and enters Rolling.
// Ignored while Rolling, even when total is invalid.
//
// Postcondition: returns an error wrapping dice.ErrInvalidInput when total is
// outside the active domain; the session is unchanged in that case.
func (s *Session) RequestManualRoll(total int) (Transition, error) {
	return s.startRoll(func(count int) (dice.Outcome, error) {
		return s.roller.RollFromTotal(count, total)
	})
}

func (s *Session) startRoll(gen func(count int) (dice.Outcome, error)) (Transition, error) {
	s.mu.Lock()
	from := s.phase
	if from == Rolling {
		s.mu.Unlock()
		s.logger.Debug("roll request ignored", zap.String("reason", ReasonRollInProgress))
		return ignored(from, ReasonRollInProgress), nil
	}
	outcome, err := gen(s.diceCount)
	if err != nil {
		s.mu.Unlock()
		return ignored(from, err.Error()), err
	}
	s.roll++
	s.current = outcome
	s.shown = nil
	s.phase = Rolling
	roll := s.roll
	events := []Event{{Kind: RollCommitted, Roll: roll, Outcome: outcome, Total: outcome.Total()}}
	s.mu.Unlock()

	s.logger.Debug("phase transition",
		zap.Stringer("from", from),
		zap.Stringer("to", Rolling),
		zap.Uint64("roll", roll),
		zap.Ints("dice", outcome.Faces()),
	)
	s.dispatch(events)
	s.startTicker(roll)
	return accepted(from, Rolling), nil
}

// startTicker begins RollingTick delivery for roll if it is still the active roll.
func (s *Session) startTicker(roll uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Rolling || s.roll != roll || !s.sound || s.tickInterval <= 0 {
		return
	}
	s.ticker = NewTicker(s.tickInterval, func(n int) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.phase != Rolling || s.roll != roll || !s.sound {
			return
		}
		e := Event{Kind: RollingTick, Session: s.id, Roll: roll, Tick: n, Sound: true}
		for _, l := range s.listeners {
			l.Notify(e)
		}
	})
}

// stopTicker must be called with s.mu held.
func (s *Session) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

// NotifyPresentationComplete reveals the rule for the current outcome.
// Only valid while Rolling; ignored otherwise.
//
// Postcondition: on acceptance the total is at the front of the history, the
// history holds at most HistoryLimit entries, and RollResolved,
// SpecialOutcome (when special) and HistoryUpdated have been delivered.
func (s *Session) NotifyPresentationComplete() Transition {
	s.mu.Lock()
	return s.complete(s.roll)
}

// NotifyPresentationCompleteFor is NotifyPresentationComplete restricted to a
// specific roll; it is ignored when roll is no longer the active roll.
func (s *Session) NotifyPresentationCompleteFor(roll uint64) Transition {
	s.mu.Lock()
	return s.complete(roll)
}

// complete must be called with s.mu held; it releases it.
func (s *Session) complete(roll uint64) Transition {
	from := s.phase
	if from != Rolling {
		s.mu.Unlock()
		s.logger.Debug("presentation complete ignored", zap.String("reason", ReasonNotRolling))
		return ignored(from, ReasonNotRolling)
	}
	if roll != s.roll {
		s.mu.Unlock()
		s.logger.Debug("presentation complete ignored",
			zap.String("reason", ReasonStaleRoll),
			zap.Uint64("roll", roll),
		)
		return ignored(from, ReasonStaleRoll)
	}
	s.stopTicker()

	total := s.current.Total()
	text := s.table.Lookup(total)
	special := s.policy.Special(total, text)

	s.history = append([]int{total}, s.history...)
	if len(s.history) > HistoryLimit {
		s.history = s.history[:HistoryLimit]
	}
	s.shown = &Resolution{Total: total, Rule: text, Special: special}
	s.phase = RuleShown

	events := []Event{{
		Kind:    RollResolved,
		Roll:    s.roll,
		Outcome: s.current,
		Total:   total,
		Rule:    text,
		Special: special,
		Sound:   s.sound,
	}}
	if special {
		events = append(events, Event{Kind: SpecialOutcome, Roll: s.roll, Total: total, Rule: text, Special: true, Sound: s.sound})
	}
	events = append(events, Event{Kind: HistoryUpdated, Roll: s.roll, History: copyInts(s.history)})
	s.mu.Unlock()

	s.logger.Debug("phase transition",
		zap.Stringer("from", Rolling),
		zap.Stringer("to", RuleShown),
		zap.Int("total", total),
		zap.Bool("special", special),
	)
	s.dispatch(events)
	return accepted(Rolling, RuleShown)
}

// DismissRule hides the shown rule and returns to Idle. Ignored outside RuleShown.
//
// Postcondition: current outcome and history are unchanged.
func (s *Session) DismissRule() Transition {
	s.mu.Lock()
	from := s.phase
	if from != RuleShown {
		s.mu.Unlock()
		s.logger.Debug("dismiss ignored", zap.String("reason", ReasonNoRuleShown))
		return ignored(from, ReasonNoRuleShown)
	}
	s.phase = Idle
	s.shown = nil
	events := []Event{{Kind: RuleDismissed, Roll: s.roll, Outcome: s.current, Total: s.current.Total()}}
	s.mu.Unlock()

	s.logger.Debug("phase transition", zap.Stringer("from", RuleShown), zap.Stringer("to", Idle))
	s.dispatch(events)
	return accepted(RuleShown, Idle)
}

// SetDiceConfiguration switches between one and two dice. A change resets
// the session. If the installed table does not fit the new total domain the
// defaults for the new count and the current mode are installed.
//
// Postcondition: returns an error wrapping dice.ErrInvalidInput for counts other than 1 or 2.
func (s *Session) SetDiceConfiguration(count int) error {
	if !dice.ValidCount(count) {
		return fmt.Errorf("%w: dice count %d must be 1 or 2", dice.ErrInvalidInput, count)
	}
	s.mu.Lock()
	if count == s.diceCount {
		s.mu.Unlock()
		return nil
	}
	table := s.table
	if table.CheckDomain(count) != nil {
		defaults, err := s.catalog.DefaultsFor(count, s.mode)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("switching to %d dice: %w", count, err)
		}
		table = defaults
	}
	s.diceCount = count
	s.table = table
	events := s.resetLocked()
	s.mu.Unlock()

	s.logger.Info("dice configuration changed", zap.Int("dice_count", count))
	s.dispatch(events)
	return nil
}

// SetGameMode installs the mode's default table and policy. A change resets the session.
//
// Postcondition: returns an error wrapping rules.ErrUnknownMode when the
// catalog has no table for the mode at the current dice count.
func (s *Session) SetGameMode(mode rules.Mode) error {
	s.mu.Lock()
	if mode == s.mode {
		s.mu.Unlock()
		return nil
	}
	table, err := s.catalog.DefaultsFor(s.diceCount, mode)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("switching to mode %q: %w", mode, err)
	}
	s.mode = mode
	s.table = table
	s.policy = s.effects.For(mode)
	events := s.resetLocked()
	s.mu.Unlock()

	s.logger.Info("game mode changed", zap.String("mode", string(mode)))
	s.dispatch(events)
	return nil
}

// resetLocked must be called with s.mu held.
func (s *Session) resetLocked() []Event {
	s.stopTicker()
	s.phase = Idle
	s.current = dice.Default(s.diceCount)
	s.history = []int{}
	s.shown = nil
	return []Event{
		{Kind: SessionReset, Roll: s.roll, Outcome: s.current},
		{Kind: HistoryUpdated, Roll: s.roll, History: []int{}},
	}
}

// SetRuleTable installs t. It does not reset the session.
//
// Postcondition: returns an error wrapping rules.ErrOutOfDomain when t holds
// totals the current dice configuration cannot produce.
func (s *Session) SetRuleTable(t rules.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := t.CheckDomain(s.diceCount); err != nil {
		return fmt.Errorf("setting rule table: %w", err)
	}
	s.table = t
	return nil
}

// SetRuleEntry overrides the rule for one total.
//
// Postcondition: returns an error wrapping rules.ErrOutOfDomain for totals outside the domain.
func (s *Session) SetRuleEntry(total int, text string) error {
	s.mu.Lock()
	next := s.table.SetEntry(total, text)
	s.mu.Unlock()
	return s.SetRuleTable(next)
}

// ResetRules restores the default table for the current dice count and mode.
func (s *Session) ResetRules() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.catalog.DefaultsFor(s.diceCount, s.mode)
	if err != nil {
		return fmt.Errorf("resetting rules: %w", err)
	}
	s.table = t
	return nil
}

// SetSoundEnabled toggles sound cues. Disabling stops any running RollingTick.
func (s *Session) SetSoundEnabled(on bool) {
	s.mu.Lock()
	s.sound = on
	if !on {
		s.stopTicker()
	}
	s.mu.Unlock()
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// History returns a copy of the history, newest first.
func (s *Session) History() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyInts(s.history)
}

// Current returns the most recently committed outcome.
func (s *Session) Current() dice.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Rules returns the installed rule table.
func (s *Session) Rules() rules.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// Snapshot returns a copy of the full session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	var shown *Resolution
	if s.shown != nil {
		r := *s.shown
		shown = &r
	}
	return State{
		ID:           s.id,
		Phase:        s.phase,
		Roll:         s.roll,
		Outcome:      s.current,
		History:      copyInts(s.history),
		DiceCount:    s.diceCount,
		Mode:         s.mode,
		Rules:        s.table,
		Shown:        shown,
		SoundEnabled: s.sound,
	}
}

// Close stops any running ticker. The Session remains usable.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTicker()
}

func (s *Session) dispatch(events []Event) {
	s.mu.Lock()
	ls := make([]Listener, len(s.listeners))
	copy(ls, s.listeners)
	s.mu.Unlock()
	for _, e := range events {
		e.Session = s.id
		for _, l := range ls {
			l.Notify(e)
		}
	}
}

func copyInts(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	return out
}
