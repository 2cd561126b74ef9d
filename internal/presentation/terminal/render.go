// Package terminal renders session events to a text terminal.
package terminal

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/cory-johannsen/wichtel/internal/game/dice"
	"github.com/cory-johannsen/wichtel/internal/game/rules"
)

var dieGlyphs = [...]string{"⚀", "⚁", "⚂", "⚃", "⚄", "⚅"}

// LockedWriter serialises writes from the presenter and the command loop.
type LockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLockedWriter wraps w.
func NewLockedWriter(w io.Writer) *LockedWriter { return &LockedWriter{w: w} }

// Write implements io.Writer.
func (l *LockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Renderer turns domain values into terminal text. It is safe for concurrent
// use; markdown rendering is serialised because a glamour TermRenderer is not.
type Renderer struct {
	profile termenv.Profile

	mu sync.Mutex
	md *glamour.TermRenderer
}

// NewRenderer builds a Renderer for the given glamour style ("auto", "dark",
// "light" or "notty") and colour profile.
func NewRenderer(style string, profile termenv.Profile) (*Renderer, error) {
	opt := glamour.WithStandardStyle(style)
	if style == "" || style == "auto" {
		opt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(72))
	if err != nil {
		return nil, fmt.Errorf("creating markdown renderer: %w", err)
	}
	return &Renderer{profile: profile, md: r}, nil
}

func (r *Renderer) markdown(in string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.md.Render(in)
}

// Faces renders an outcome as die glyphs followed by the total.
func (r *Renderer) Faces(o dice.Outcome) string {
	var parts []string
	for _, f := range o.Faces() {
		parts = append(parts, dieGlyphs[f-1]+" "+strconv.Itoa(f))
	}
	label := strings.Join(parts, "  ")
	if o.Count() > 1 {
		label += "  = " + strconv.Itoa(o.Total())
	}
	return r.profile.String(label).Bold().String()
}

// Rule renders the rule card for total as markdown.
func (r *Renderer) Rule(total int, text string, special bool) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "## Gewürfelt: %d\n\n", total)
	if special {
		b.WriteString("**Sonderregel!**\n\n")
	}
	b.WriteString(text)
	b.WriteString("\n")
	return r.markdown(b.String())
}

// Special renders the highlighted joker banner.
func (r *Renderer) Special() string {
	return r.profile.String("★ Sonderregel ★").Foreground(r.profile.Color("#f472b6")).Bold().String()
}

// History renders the history strip, newest first.
func (r *Renderer) History(h []int) string {
	if len(h) == 0 {
		return r.profile.String("Verlauf: –").Faint().String()
	}
	vals := make([]string, len(h))
	for i, v := range h {
		vals[i] = strconv.Itoa(v)
	}
	return "Verlauf: " + r.profile.String(vals[0]).Foreground(r.profile.Color("#818cf8")).Bold().String() +
		joinTail(vals[1:])
}

func joinTail(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return " · " + strings.Join(vals, " · ")
}

// Rules renders a rule table as a markdown table.
func (r *Renderer) Rules(t rules.Table, count int, mode rules.Mode) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "## Regeln (%s, %d Würfel)\n\n", mode, count)
	b.WriteString("| Zahl | Regel |\n|---:|---|\n")
	lo, hi := dice.TotalRange(count)
	for total := lo; total <= hi; total++ {
		text := strings.ReplaceAll(t.Lookup(total), "|", "\\|")
		fmt.Fprintf(&b, "| %d | %s |\n", total, text)
	}
	return r.markdown(b.String())
}

