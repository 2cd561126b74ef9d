package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/wichtel/internal/game/dice"
	"github.com/cory-johannsen/wichtel/internal/game/effect"
	"github.com/cory-johannsen/wichtel/internal/game/rules"
	"github.com/cory-johannsen/wichtel/internal/game/session"
)

// recorder collects every event delivered to it.
type recorder struct {
	mu     sync.Mutex
	events []session.Event
}

func (r *recorder) Notify(e session.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []session.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]session.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) kinds() []session.EventKind {
	var ks []session.EventKind
	for _, e := range r.all() {
		ks = append(ks, e.Kind)
	}
	return ks
}

func (r *recorder) count(k session.EventKind) int {
	n := 0
	for _, e := range r.all() {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func (r *recorder) last(k session.EventKind) (session.Event, bool) {
	evs := r.all()
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Kind == k {
			return evs[i], true
		}
	}
	return session.Event{}, false
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func newSession(t testing.TB, opts session.Options) (*session.Session, *recorder) {
	t.Helper()
	if opts.DiceCount == 0 {
		opts.DiceCount = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Roller == nil {
		opts.Roller = dice.NewLoggedRoller(dice.NewSeededSource(1), opts.Logger)
	}
	s, err := session.New(opts)
	require.NoError(t, err)
	rec := &recorder{}
	s.Subscribe(rec)
	t.Cleanup(s.Close)
	return s, rec
}

// cycle runs one full manual roll → complete → dismiss cycle.
func cycle(t testing.TB, s *session.Session, total int) {
	t.Helper()
	tr, err := s.RequestManualRoll(total)
	require.NoError(t, err)
	require.True(t, tr.Accepted)
	require.True(t, s.NotifyPresentationComplete().Accepted)
	require.True(t, s.DismissRule().Accepted)
}

func TestNew_InitialState(t *testing.T) {
	s, rec := newSession(t, session.Options{DiceCount: 2})
	st := s.Snapshot()
	assert.Equal(t, session.Idle, st.Phase)
	assert.Equal(t, []int{1, 1}, st.Outcome.Faces())
	assert.Empty(t, st.History)
	assert.Nil(t, st.Shown)
	assert.Equal(t, rules.ModeClassic, st.Mode)
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, "Nichts passiert (Glück gehabt!)", st.Rules.Lookup(7))
	assert.Empty(t, rec.all())
}

func TestNew_Errors(t *testing.T) {
	_, err := session.New(session.Options{DiceCount: 3, Roller: dice.NewLoggedRoller(dice.NewCryptoSource(), zap.NewNop()), Logger: zap.NewNop()})
	assert.ErrorIs(t, err, dice.ErrInvalidInput)
	_, err = session.New(session.Options{DiceCount: 1, Mode: "chess", Roller: dice.NewLoggedRoller(dice.NewCryptoSource(), zap.NewNop()), Logger: zap.NewNop()})
	assert.ErrorIs(t, err, rules.ErrUnknownMode)
	assert.Panics(t, func() { _, _ = session.New(session.Options{DiceCount: 1}) })
}

func TestRequestRoll_GuardWhileRolling(t *testing.T) {
	s, rec := newSession(t, session.Options{DiceCount: 2})

	tr, err := s.RequestRoll()
	require.NoError(t, err)
	assert.Equal(t, session.Transition{From: session.Idle, To: session.Rolling, Accepted: true}, tr)
	assert.Equal(t, session.Rolling, s.Phase())
	committed := s.Current()
	assert.Equal(t, 2, committed.Count())

	tr, err = s.RequestRoll()
	require.NoError(t, err)
	assert.False(t, tr.Accepted)
	assert.Equal(t, session.ReasonRollInProgress, tr.Reason)
	assert.Equal(t, session.Rolling, tr.To)
	assert.Equal(t, committed, s.Current(), "rejected roll must not change current")
	assert.Empty(t, s.History(), "rejected roll must not change history")
	assert.Equal(t, 1, rec.count(session.RollCommitted))

	tr, err = s.RequestManualRoll(99)
	require.NoError(t, err, "the guard wins over input validation")
	assert.False(t, tr.Accepted)
}

func TestRequestRoll_CommittedEventCarriesOutcome(t *testing.T) {
	s, rec := newSession(t, session.Options{DiceCount: 2})
	_, err := s.RequestManualRoll(9)
	require.NoError(t, err)
	e, ok := rec.last(session.RollCommitted)
	require.True(t, ok)
	assert.Equal(t, 9, e.Total)
	assert.Equal(t, 9, e.Outcome.Total())
	assert.Equal(t, s.ID(), e.Session)
	assert.Equal(t, uint64(1), e.Roll)
}

func TestNotifyPresentationComplete_RevealsRule(t *testing.T) {
	s, rec := newSession(t, session.Options{DiceCount: 1})
	_, err := s.RequestManualRoll(2)
	require.NoError(t, err)
	rec.reset()

	tr := s.NotifyPresentationComplete()
	assert.Equal(t, session.Transition{From: session.Rolling, To: session.RuleShown, Accepted: true}, tr)
	assert.Equal(t, []int{2}, s.History())

	st := s.Snapshot()
	require.NotNil(t, st.Shown)
	assert.Equal(t, "Tausche mit dem linken Nachbarn!", st.Shown.Rule)
	assert.False(t, st.Shown.Special)

	assert.Equal(t, []session.EventKind{session.RollResolved, session.HistoryUpdated}, rec.kinds())
	resolved, _ := rec.last(session.RollResolved)
	assert.Equal(t, 2, resolved.Total)
	assert.Equal(t, "Tausche mit dem linken Nachbarn!", resolved.Rule)
	hist, _ := rec.last(session.HistoryUpdated)
	assert.Equal(t, []int{2}, hist.History)
}

func TestNotifyPresentationComplete_IgnoredOutsideRolling(t *testing.T) {
	s, rec := newSession(t, session.Options{})
	tr := s.NotifyPresentationComplete()
	assert.False(t, tr.Accepted)
	assert.Equal(t, session.ReasonNotRolling, tr.Reason)
	assert.Equal(t, session.Idle, s.Phase())

	cycle(t, s, 3)
	s.RequestManualRoll(4)
	s.NotifyPresentationComplete()
	tr = s.NotifyPresentationComplete()
	assert.False(t, tr.Accepted)
	assert.Equal(t, session.RuleShown, tr.From)
	assert.Equal(t, []int{4, 3}, s.History(), "second completion must not append again")
	assert.Equal(t, 2, rec.count(session.RollResolved))
}

func TestDismissRule(t *testing.T) {
	s, rec := newSession(t, session.Options{})
	tr := s.DismissRule()
	assert.False(t, tr.Accepted)
	assert.Equal(t, session.ReasonNoRuleShown, tr.Reason)

	s.RequestManualRoll(5)
	assert.False(t, s.DismissRule().Accepted, "dismiss is ignored while rolling")
	s.NotifyPresentationComplete()
	before := s.Current()

	tr = s.DismissRule()
	assert.Equal(t, session.Transition{From: session.RuleShown, To: session.Idle, Accepted: true}, tr)
	assert.Equal(t, session.Idle, s.Phase())
	assert.Equal(t, before, s.Current())
	assert.Equal(t, []int{5}, s.History())
	assert.Nil(t, s.Snapshot().Shown)
	assert.Equal(t, 1, rec.count(session.RuleDismissed))
}

func TestRequestRoll_FromRuleShown(t *testing.T) {
	s, _ := newSession(t, session.Options{})
	s.RequestManualRoll(1)
	s.NotifyPresentationComplete()

	tr, err := s.RequestManualRoll(4)
	require.NoError(t, err)
	assert.Equal(t, session.Transition{From: session.RuleShown, To: session.Rolling, Accepted: true}, tr)
	assert.Nil(t, s.Snapshot().Shown, "new roll clears the shown rule")
	assert.Equal(t, []int{1}, s.History())
}

func TestRequestManualRoll_InvalidInput(t *testing.T) {
	s, rec := newSession(t, session.Options{DiceCount: 1})
	tr, err := s.RequestManualRoll(7)
	assert.ErrorIs(t, err, dice.ErrInvalidInput)
	assert.False(t, tr.Accepted)
	assert.Equal(t, session.Idle, s.Phase())
	assert.Empty(t, rec.all())

	require.NoError(t, s.SetDiceConfiguration(2))
	_, err = s.RequestManualRoll(1)
	assert.ErrorIs(t, err, dice.ErrInvalidInput)
	_, err = s.RequestManualRoll(13)
	assert.ErrorIs(t, err, dice.ErrInvalidInput)
}

func TestHistory_BoundedAfterSevenCycles(t *testing.T) {
	s, _ := newSession(t, session.Options{DiceCount: 1})
	for _, total := range []int{1, 2, 3, 4, 5, 6, 3} {
		cycle(t, s, total)
	}
	assert.Equal(t, []int{3, 6, 5, 4, 3}, s.History())
}

func TestHistory_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		totals := rapid.SliceOfN(rapid.IntRange(2, 12), 0, 20).Draw(rt, "totals")
		s, _ := newSession(t, session.Options{DiceCount: 2})
		for _, total := range totals {
			cycle(t, s, total)
		}
		want := []int{}
		for i := len(totals) - 1; i >= 0 && len(want) < session.HistoryLimit; i-- {
			want = append(want, totals[i])
		}
		assert.Equal(rt, want, s.History())
	})
}

func TestScenario_OneDieJoker(t *testing.T) {
	s, rec := newSession(t, session.Options{DiceCount: 1})
	require.NoError(t, s.SetRuleTable(rules.NewTable(map[int]string{6: "Joker! ..."})))

	_, err := s.RequestManualRoll(6)
	require.NoError(t, err)
	assert.Equal(t, []int{6}, s.Current().Faces())

	tr := s.NotifyPresentationComplete()
	assert.Equal(t, session.RuleShown, tr.To)

	resolved, ok := rec.last(session.RollResolved)
	require.True(t, ok)
	assert.Equal(t, 6, resolved.Total)
	assert.Equal(t, "Joker! ...", resolved.Rule)
	assert.True(t, resolved.Special)
	assert.Equal(t, 1, rec.count(session.SpecialOutcome))
	assert.Equal(t, []int{6}, s.History())
}

func TestScenario_TwoDiceManualSeven(t *testing.T) {
	valid := map[[2]int]bool{{1, 6}: true, {2, 5}: true, {3, 4}: true, {4, 3}: true, {5, 2}: true, {6, 1}: true}
	for seed := int64(0); seed < 20; seed++ {
		s, _ := newSession(t, session.Options{
			DiceCount: 2,
			Roller:    dice.NewLoggedRoller(dice.NewSeededSource(seed), zap.NewNop()),
		})
		_, err := s.RequestManualRoll(7)
		require.NoError(t, err)
		f := s.Current().Faces()
		require.Len(t, f, 2)
		assert.Equal(t, 7, f[0]+f[1])
		assert.True(t, valid[[2]int{f[0], f[1]}], "unexpected pair %v", f)
	}
}

func TestUnmappedTotal_UsesFallbackText(t *testing.T) {
	s, rec := newSession(t, session.Options{DiceCount: 1})
	require.NoError(t, s.SetRuleTable(rules.NewTable(map[int]string{6: "Joker!"})))
	s.RequestManualRoll(2)
	s.NotifyPresentationComplete()
	resolved, _ := rec.last(session.RollResolved)
	assert.Equal(t, rules.NoRule, resolved.Rule)
	assert.Equal(t, 0, rec.count(session.SpecialOutcome))
}

func TestSetDiceConfiguration_Resets(t *testing.T) {
	s, rec := newSession(t, session.Options{DiceCount: 1})
	cycle(t, s, 4)
	s.RequestManualRoll(6)
	rec.reset()

	require.NoError(t, s.SetDiceConfiguration(2))
	st := s.Snapshot()
	assert.Equal(t, session.Idle, st.Phase)
	assert.Equal(t, []int{1, 1}, st.Outcome.Faces())
	assert.Empty(t, st.History)
	assert.Equal(t, 2, st.DiceCount)
	assert.NoError(t, st.Rules.CheckDomain(2), "defaults for the new domain are installed")
	assert.Equal(t, []session.EventKind{session.SessionReset, session.HistoryUpdated}, rec.kinds())

	assert.False(t, s.NotifyPresentationComplete().Accepted, "the interrupted roll cannot complete")
}

func TestSetDiceConfiguration_KeepsFittingTable(t *testing.T) {
	s, _ := newSession(t, session.Options{DiceCount: 1})
	custom := rules.NewTable(map[int]string{2: "zwei", 6: "sechs"})
	require.NoError(t, s.SetRuleTable(custom))
	require.NoError(t, s.SetDiceConfiguration(2))
	assert.Equal(t, "zwei", s.Rules().Lookup(2))
	assert.False(t, s.Rules().Has(7))
}

func TestSetDiceConfiguration_SameCountIsNoOp(t *testing.T) {
	s, rec := newSession(t, session.Options{DiceCount: 1})
	cycle(t, s, 4)
	rec.reset()
	require.NoError(t, s.SetDiceConfiguration(1))
	assert.Equal(t, []int{4}, s.History())
	assert.Empty(t, rec.all())
}

func TestSetDiceConfiguration_Invalid(t *testing.T) {
	s, _ := newSession(t, session.Options{})
	assert.ErrorIs(t, s.SetDiceConfiguration(3), dice.ErrInvalidInput)
}

func TestSetGameMode(t *testing.T) {
	s, rec := newSession(t, session.Options{DiceCount: 1})
	cycle(t, s, 2)
	require.NoError(t, s.SetGameMode(rules.ModePig))
	assert.Empty(t, s.History())
	assert.Equal(t, rules.ModePig, s.Snapshot().Mode)

	rec.reset()
	cycle(t, s, 6)
	resolved, _ := rec.last(session.RollResolved)
	assert.Equal(t, "Nimm das nächste Geschenk aus der Spirale!", resolved.Rule)
	assert.True(t, resolved.Special, "pig mode treats a 6 as lucky regardless of text")
	assert.Equal(t, 1, rec.count(session.SpecialOutcome))

	assert.ErrorIs(t, s.SetGameMode("chess"), rules.ErrUnknownMode)
	assert.Equal(t, rules.ModePig, s.Snapshot().Mode)
}

func TestSetGameMode_CustomPolicy(t *testing.T) {
	cat, err := rules.NewCatalog(rules.TableFile{Mode: "office", DiceCount: 1, Rules: map[int]string{3: "Kaffee holen"}})
	require.NoError(t, err)
	reg := effect.NewRegistry("")
	reg.Register("office", effect.LuckyTotals{3})
	s, rec := newSession(t, session.Options{DiceCount: 1, Catalog: cat, Effects: reg})

	require.NoError(t, s.SetGameMode("office"))
	cycle(t, s, 3)
	assert.Equal(t, 1, rec.count(session.SpecialOutcome))
}

func TestSetRuleTable_OutOfDomain(t *testing.T) {
	s, _ := newSession(t, session.Options{DiceCount: 1})
	err := s.SetRuleTable(rules.NewTable(map[int]string{12: "zwölf"}))
	assert.ErrorIs(t, err, rules.ErrOutOfDomain)
	assert.ErrorIs(t, s.SetRuleEntry(0, "null"), rules.ErrOutOfDomain)
}

func TestSetRuleEntry_AndReset(t *testing.T) {
	s, _ := newSession(t, session.Options{DiceCount: 1})
	require.NoError(t, s.SetRuleEntry(3, "Singen!"))
	assert.Equal(t, "Singen!", s.Rules().Lookup(3))
	require.NoError(t, s.ResetRules())
	assert.Equal(t, "Tausche mit dem rechten Nachbarn!", s.Rules().Lookup(3))
}

func TestSetRuleTable_DoesNotReset(t *testing.T) {
	s, _ := newSession(t, session.Options{DiceCount: 1})
	cycle(t, s, 5)
	require.NoError(t, s.SetRuleTable(rules.NewTable(map[int]string{5: "neu"})))
	assert.Equal(t, []int{5}, s.History())
}

func TestRollingTick_StopsOnTransition(t *testing.T) {
	s, rec := newSession(t, session.Options{DiceCount: 1, SoundEnabled: true, TickInterval: 2 * time.Millisecond})
	_, err := s.RequestRoll()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.count(session.RollingTick) >= 2 }, time.Second, time.Millisecond)

	require.True(t, s.NotifyPresentationComplete().Accepted)
	ticks := rec.count(session.RollingTick)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, ticks, rec.count(session.RollingTick), "no tick after leaving Rolling")

	seenResolved := false
	for _, e := range rec.all() {
		if e.Kind == session.RollResolved {
			seenResolved = true
		}
		if seenResolved {
			assert.NotEqual(t, session.RollingTick, e.Kind, "tick delivered after RollResolved")
		}
	}
}

func TestRollingTick_StopsOnReset(t *testing.T) {
	s, rec := newSession(t, session.Options{DiceCount: 1, SoundEnabled: true, TickInterval: 2 * time.Millisecond})
	s.RequestRoll()
	require.Eventually(t, func() bool { return rec.count(session.RollingTick) >= 1 }, time.Second, time.Millisecond)
	require.NoError(t, s.SetDiceConfiguration(2))
	ticks := rec.count(session.RollingTick)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, ticks, rec.count(session.RollingTick))
}

func TestRollingTick_DisabledWithoutSound(t *testing.T) {
	s, rec := newSession(t, session.Options{DiceCount: 1, SoundEnabled: false, TickInterval: 2 * time.Millisecond})
	s.RequestRoll()
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, rec.count(session.RollingTick))
}

func TestRollingTick_SoundToggledOff(t *testing.T) {
	s, rec := newSession(t, session.Options{DiceCount: 1, SoundEnabled: true, TickInterval: 2 * time.Millisecond})
	s.RequestRoll()
	require.Eventually(t, func() bool { return rec.count(session.RollingTick) >= 1 }, time.Second, time.Millisecond)
	s.SetSoundEnabled(false)
	ticks := rec.count(session.RollingTick)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, ticks, rec.count(session.RollingTick))
	assert.False(t, s.Snapshot().SoundEnabled)
}

func TestSoundFlagOnResolvedEvents(t *testing.T) {
	s, rec := newSession(t, session.Options{DiceCount: 1, SoundEnabled: true})
	cycle(t, s, 6)
	e, _ := rec.last(session.SpecialOutcome)
	assert.True(t, e.Sound)

	s.SetSoundEnabled(false)
	cycle(t, s, 6)
	e, _ = rec.last(session.SpecialOutcome)
	assert.False(t, e.Sound)
}

func TestNotifyPresentationCompleteFor_StaleRoll(t *testing.T) {
	s, _ := newSession(t, session.Options{DiceCount: 1})
	s.RequestManualRoll(1)
	s.NotifyPresentationComplete()
	s.RequestManualRoll(2)

	tr := s.NotifyPresentationCompleteFor(1)
	assert.False(t, tr.Accepted)
	assert.Equal(t, session.ReasonStaleRoll, tr.Reason)
	assert.Equal(t, session.Rolling, s.Phase())

	assert.True(t, s.NotifyPresentationCompleteFor(2).Accepted)
}

func TestListener_MayReenterSession(t *testing.T) {
	s, _ := newSession(t, session.Options{DiceCount: 1})
	s.Subscribe(session.ListenerFunc(func(e session.Event) {
		if e.Kind == session.RollCommitted {
			s.NotifyPresentationComplete()
		}
	}))
	_, err := s.RequestManualRoll(3)
	require.NoError(t, err)
	assert.Equal(t, session.RuleShown, s.Phase())
	assert.Equal(t, []int{3}, s.History())
}

func TestPhaseAndEventNames(t *testing.T) {
	assert.Equal(t, "idle", session.Idle.String())
	assert.Equal(t, "rolling", session.Rolling.String())
	assert.Equal(t, "rule_shown", session.RuleShown.String())
	assert.Equal(t, "special_outcome", session.SpecialOutcome.String())
	assert.Equal(t, "unknown", session.EventKind(99).String())
}
