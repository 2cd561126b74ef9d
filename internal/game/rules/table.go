// Package rules maps roll totals to user-facing rule text.
//
// A Table is immutable: edits return a new Table so callers can keep the
// previous version around.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cory-johannsen/wichtel/internal/game/dice"
)

// NoRule is the text shown for a total without a mapped rule.
const NoRule = "Keine Regel definiert"

// DefaultMarker is the token that flags a rule as a special (joker) outcome.
const DefaultMarker = "Joker"

// ErrOutOfDomain is returned when a table holds totals the dice configuration cannot produce.
var ErrOutOfDomain = errors.New("rules: total outside dice domain")

// Table maps outcome totals to rule text.
//
// Invariant: entries is never mutated after construction.
type Table struct {
	entries map[int]string
}

// NewTable builds a Table from a total→text map. The map is copied.
func NewTable(entries map[int]string) Table {
	cp := make(map[int]string, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return Table{entries: cp}
}

// Lookup returns the rule text for total, or NoRule when total is unmapped.
func (t Table) Lookup(total int) string {
	if text, ok := t.entries[total]; ok {
		return text
	}
	return NoRule
}

// Has reports whether total has an explicit entry.
func (t Table) Has(total int) bool {
	_, ok := t.entries[total]
	return ok
}

// SetEntry returns a copy of t with total mapped to text. t is left untouched.
//
// Postcondition: result.Lookup(total) == text; t.Lookup(total) is unchanged.
func (t Table) SetEntry(total int, text string) Table {
	next := NewTable(t.entries)
	next.entries[total] = text
	return next
}

// Len returns the number of mapped totals.
func (t Table) Len() int { return len(t.entries) }

// Totals returns the mapped totals in ascending order.
func (t Table) Totals() []int {
	totals := make([]int, 0, len(t.entries))
	for k := range t.entries {
		totals = append(totals, k)
	}
	sort.Ints(totals)
	return totals
}

// Entries returns a copy of the underlying map.
func (t Table) Entries() map[int]string {
	return NewTable(t.entries).entries
}

// CheckDomain verifies every key lies inside the total range of count dice.
//
// Postcondition: Returns nil or an error wrapping ErrOutOfDomain.
func (t Table) CheckDomain(count int) error {
	if !dice.ValidCount(count) {
		return fmt.Errorf("%w: dice count %d", dice.ErrInvalidInput, count)
	}
	lo, hi := dice.TotalRange(count)
	for _, total := range t.Totals() {
		if total < lo || total > hi {
			return fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfDomain, total, lo, hi)
		}
	}
	return nil
}

// IsSpecial reports whether text contains DefaultMarker.
func IsSpecial(text string) bool {
	return ContainsMarker(text, DefaultMarker)
}

// ContainsMarker is a case-sensitive substring match. An empty marker never matches.
func ContainsMarker(text, marker string) bool {
	return marker != "" && strings.Contains(text, marker)
}
