package rules

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/wichtel/internal/game/dice"
)

// Mode names a game variant. Each mode owns a default table per dice count.
type Mode string

const (
	// ModeClassic is the plain swap-the-junk-gift game.
	ModeClassic Mode = "classic"
	// ModePig is "Schweinchen töten": a 6 takes the next gift from the spiral.
	ModePig Mode = "pig"
)

// ErrUnknownMode is returned when no default table exists for a mode and dice count.
var ErrUnknownMode = errors.New("rules: unknown game mode")

type tableKey struct {
	mode  Mode
	count int
}

var builtin = map[tableKey]map[int]string{
	{ModeClassic, 1}: {
		1: "Geschenk auspacken! (Oder behalten)",
		2: "Tausche mit dem linken Nachbarn!",
		3: "Tausche mit dem rechten Nachbarn!",
		4: "Tausche mit einem beliebigen Spieler!",
		5: "Alle geben ihr Geschenk nach links!",
		6: "Joker! Tausche mit wem du willst (oder nicht).",
	},
	{ModeClassic, 2}: {
		2:  "Jeder gibt sein Geschenk nach rechts",
		3:  "Tausche mit dem 3. Spieler zu deiner Linken",
		4:  "Alle Geschenke werden neu verteilt",
		5:  "Tausche mit einem Spieler deiner Wahl",
		6:  "Geschenk auspacken",
		7:  "Nichts passiert (Glück gehabt!)",
		8:  "Alle geben ihr Geschenk nach links",
		9:  "Tausche mit dem 3. Spieler zu deiner Rechten",
		10: "Du musst ein Weihnachtslied singen",
		11: "Tausche das Geschenk mit dem, der am weitesten weg sitzt",
		12: "Joker! Bestimme eine Regel für diese Runde",
	},
	{ModePig, 1}: {
		1: "Kein Glück, gib den Würfel weiter.",
		2: "Kein Glück, gib den Würfel weiter.",
		3: "Kein Glück, gib den Würfel weiter.",
		4: "Kein Glück, gib den Würfel weiter.",
		5: "Kein Glück, gib den Würfel weiter.",
		6: "Nimm das nächste Geschenk aus der Spirale!",
	},
	{ModePig, 2}: {
		2:  "Gib die Würfel weiter.",
		3:  "Gib die Würfel weiter.",
		4:  "Gib die Würfel weiter.",
		5:  "Gib die Würfel weiter.",
		6:  "Nimm das nächste Geschenk aus der Spirale!",
		7:  "Gib die Würfel weiter.",
		8:  "Gib die Würfel weiter.",
		9:  "Gib die Würfel weiter.",
		10: "Gib die Würfel weiter.",
		11: "Gib die Würfel weiter.",
		12: "Joker! Nimm zwei Geschenke aus der Spirale.",
	},
}

// DefaultsFor returns the built-in table for count dice in mode.
//
// Postcondition: the returned table maps every total in dice.TotalRange(count),
// or the error wraps ErrUnknownMode / dice.ErrInvalidInput.
func DefaultsFor(count int, mode Mode) (Table, error) {
	if !dice.ValidCount(count) {
		return Table{}, fmt.Errorf("%w: dice count %d", dice.ErrInvalidInput, count)
	}
	entries, ok := builtin[tableKey{mode, count}]
	if !ok {
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return NewTable(entries), nil
}

// BuiltinModes lists the modes that ship with default tables.
func BuiltinModes() []Mode {
	return []Mode{ModeClassic, ModePig}
}
