// Package effect decides whether a resolved roll triggers the celebratory
// side effect. Detection is a pure predicate over (total, rule text); each
// game mode selects a Policy.
package effect

import (
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/wichtel/internal/game/rules"
	"github.com/cory-johannsen/wichtel/internal/scripting"
)

// Policy decides whether a resolution is special.
type Policy interface {
	Special(total int, text string) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(total int, text string) bool

// Special calls f.
func (f PolicyFunc) Special(total int, text string) bool { return f(total, text) }

// Marker matches rule text containing Token (case-sensitive substring).
type Marker struct {
	Token string
}

// Special reports whether text contains the marker token.
func (m Marker) Special(_ int, text string) bool {
	return rules.ContainsMarker(text, m.Token)
}

// LuckyTotals matches fixed totals regardless of rule text.
type LuckyTotals []int

// Special reports whether total is one of the lucky totals.
func (l LuckyTotals) Special(total int, _ string) bool {
	for _, t := range l {
		if t == total {
			return true
		}
	}
	return false
}

// AnyOf is special when at least one member policy is.
type AnyOf []Policy

// Special evaluates members in order and stops at the first match.
func (a AnyOf) Special(total int, text string) bool {
	for _, p := range a {
		if p.Special(total, text) {
			return true
		}
	}
	return false
}

// Script delegates to the is_special(total, text) hook of a Lua mode.
// Missing hooks and runtime errors count as not special.
type Script struct {
	Manager *scripting.Manager
	Mode    string
}

// Hook is the Lua global a scripted mode defines.
const Hook = "is_special"

// Special calls the mode's Lua hook and treats only a Lua true as special.
func (s Script) Special(total int, text string) bool {
	ret, err := s.Manager.CallHook(s.Mode, Hook, lua.LNumber(total), lua.LString(text))
	if err != nil {
		return false
	}
	return ret == lua.LTrue
}

// PigLuckyTotal is the roll that takes the next gift from the spiral.
const PigLuckyTotal = 6

// Registry maps game modes to policies. Unregistered modes fall back to
// the marker policy. All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	marker   Marker
	policies map[rules.Mode]Policy
}

// NewRegistry returns a Registry preloaded with the built-in modes.
// An empty marker selects rules.DefaultMarker.
//
// Postcondition: classic uses the marker only; pig adds PigLuckyTotal.
func NewRegistry(marker string) *Registry {
	if marker == "" {
		marker = rules.DefaultMarker
	}
	m := Marker{Token: marker}
	return &Registry{
		marker: m,
		policies: map[rules.Mode]Policy{
			rules.ModeClassic: m,
			rules.ModePig:     AnyOf{m, LuckyTotals{PigLuckyTotal}},
		},
	}
}

// Register installs p for mode, replacing any previous policy.
func (r *Registry) Register(mode rules.Mode, p Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[mode] = p
}

// RegisterScript installs a marker-or-script policy for a Lua-backed mode.
func (r *Registry) RegisterScript(mode rules.Mode, mgr *scripting.Manager) {
	r.Register(mode, AnyOf{r.marker, Script{Manager: mgr, Mode: string(mode)}})
}

// For returns the policy for mode.
func (r *Registry) For(mode rules.Mode) Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.policies[mode]; ok {
		return p
	}
	return r.marker
}

// Marker returns the configured marker token.
func (r *Registry) Marker() string { return r.marker.Token }
