// Package cli implements the interactive command loop that drives a session
// from a line-oriented terminal.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/wichtel/internal/game/command"
	"github.com/cory-johannsen/wichtel/internal/game/dice"
	"github.com/cory-johannsen/wichtel/internal/game/rules"
	"github.com/cory-johannsen/wichtel/internal/game/session"
	"github.com/cory-johannsen/wichtel/internal/presentation/terminal"
)

// Prompt is printed before each input line.
const Prompt = "> "

// Options configures a REPL.
type Options struct {
	Session  *session.Session
	Catalog  *rules.Catalog
	Renderer *terminal.Renderer
	In       io.Reader
	Out      io.Writer
	Logger   *zap.Logger
}

// REPL reads commands line by line and applies them to a session.
// It implements server.Service.
type REPL struct {
	session  *session.Session
	catalog  *rules.Catalog
	registry *command.Registry
	render   *terminal.Renderer
	in       io.Reader
	out      io.Writer
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a REPL.
//
// Precondition: every field of opts must be non-nil.
func New(opts Options) *REPL {
	if opts.Session == nil || opts.Catalog == nil || opts.Renderer == nil ||
		opts.In == nil || opts.Out == nil || opts.Logger == nil {
		panic("cli: New precondition violated")
	}
	return &REPL{
		session:  opts.Session,
		catalog:  opts.Catalog,
		registry: command.DefaultRegistry(),
		render:   opts.Renderer,
		in:       opts.In,
		out:      opts.Out,
		logger:   opts.Logger,
	}
}

// Start runs the loop until quit, end of input, or Stop.
//
// Postcondition: Returns nil unless reading the input failed.
func (r *REPL) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Stop ends a running Start. A read already blocked on input is abandoned.
func (r *REPL) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Run reads lines from the input until quit, end of input, or ctx is done.
//
// Postcondition: Returns nil on quit or end of input, ctx.Err() on cancellation,
// or the input's read error.
func (r *REPL) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	r.printf("Wichtelhelfer: Enter würfelt, \"help\" zeigt alle Befehle.\n%s", Prompt)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case line := <-lines:
			if r.Execute(line) {
				return nil
			}
			r.printf("%s", Prompt)
		}
	}
}

// Execute applies one input line. It returns true when the line asks to quit.
// Input errors are reported to the output, never returned.
func (r *REPL) Execute(line string) bool {
	parsed := command.Parse(line)
	if parsed.Command == "" {
		r.roll()
		return false
	}
	cmd, ok := r.registry.Resolve(parsed.Command)
	if !ok {
		r.printf("Unbekannter Befehl %q. \"help\" zeigt alle Befehle.\n", parsed.Command)
		return false
	}
	r.logger.Debug("command", zap.String("handler", cmd.Handler), zap.Strings("args", parsed.Args))

	switch cmd.Handler {
	case command.HandlerRoll:
		r.roll()
	case command.HandlerSet:
		r.manual(parsed)
	case command.HandlerDismiss:
		if tr := r.session.DismissRule(); !tr.Accepted {
			r.printf("Keine Regel angezeigt.\n")
		}
	case command.HandlerHistory:
		r.printf("%s\n", r.render.History(r.session.History()))
	case command.HandlerDice:
		r.dice(parsed)
	case command.HandlerMode:
		r.mode(parsed)
	case command.HandlerRule:
		r.rule(parsed)
	case command.HandlerResetRules:
		if err := r.session.ResetRules(); err != nil {
			r.printf("Fehler: %v\n", err)
			return false
		}
		r.printf("Standardregeln wiederhergestellt.\n")
	case command.HandlerSound:
		r.sound(parsed)
	case command.HandlerRules:
		r.rules()
	case command.HandlerStatus:
		r.status()
	case command.HandlerHelp:
		r.help()
	case command.HandlerQuit:
		r.printf("Tschüss!\n")
		return true
	}
	return false
}

func (r *REPL) roll() {
	tr, err := r.session.RequestRoll()
	if err != nil {
		r.printf("Fehler: %v\n", err)
		return
	}
	if !tr.Accepted {
		r.printf("Die Würfel rollen noch.\n")
	}
}

func (r *REPL) manual(p command.ParseResult) {
	count := r.session.Snapshot().DiceCount
	lo, hi := dice.TotalRange(count)
	total, err := p.IntArg(0)
	if err != nil {
		r.printf("Bitte eine Zahl von %d bis %d angeben: %v\n", lo, hi, err)
		return
	}
	tr, err := r.session.RequestManualRoll(total)
	if errors.Is(err, dice.ErrInvalidInput) {
		r.printf("Mit %d Würfel(n) sind nur %d bis %d möglich.\n", count, lo, hi)
		return
	}
	if err != nil {
		r.printf("Fehler: %v\n", err)
		return
	}
	if !tr.Accepted {
		r.printf("Die Würfel rollen noch.\n")
	}
}

func (r *REPL) dice(p command.ParseResult) {
	n, err := p.IntArg(0)
	if err != nil {
		r.printf("Verwendung: dice <1|2>\n")
		return
	}
	if err := r.session.SetDiceConfiguration(n); err != nil {
		r.printf("Fehler: %v\n", err)
		return
	}
	r.printf("Spiel mit %d Würfel(n).\n", n)
}

func (r *REPL) mode(p command.ParseResult) {
	if len(p.Args) == 0 {
		names := make([]string, 0)
		for _, m := range r.catalog.Modes() {
			names = append(names, string(m))
		}
		r.printf("Modus: %s (verfügbar: %s)\n", r.session.Snapshot().Mode, strings.Join(names, ", "))
		return
	}
	mode := rules.Mode(strings.ToLower(p.Args[0]))
	if err := r.session.SetGameMode(mode); err != nil {
		if errors.Is(err, rules.ErrUnknownMode) {
			r.printf("Unbekannter Modus %q.\n", mode)
			return
		}
		r.printf("Fehler: %v\n", err)
		return
	}
	r.printf("Modus %s aktiv.\n", mode)
}

func (r *REPL) rule(p command.ParseResult) {
	total, err := p.IntArg(0)
	text := p.TextAfter(1)
	if err != nil || text == "" {
		r.printf("Verwendung: rule <zahl> <text>\n")
		return
	}
	if err := r.session.SetRuleEntry(total, text); err != nil {
		if errors.Is(err, rules.ErrOutOfDomain) {
			lo, hi := dice.TotalRange(r.session.Snapshot().DiceCount)
			r.printf("Regeln gibt es nur für %d bis %d.\n", lo, hi)
			return
		}
		r.printf("Fehler: %v\n", err)
		return
	}
	r.printf("Regel für %d gespeichert.\n", total)
}

func (r *REPL) sound(p command.ParseResult) {
	switch strings.ToLower(strings.Join(p.Args, "")) {
	case "on", "an":
		r.session.SetSoundEnabled(true)
		r.printf("Töne an.\n")
	case "off", "aus":
		r.session.SetSoundEnabled(false)
		r.printf("Töne aus.\n")
	default:
		r.printf("Verwendung: sound <on|off>\n")
	}
}

func (r *REPL) rules() {
	st := r.session.Snapshot()
	out, err := r.render.Rules(st.Rules, st.DiceCount, st.Mode)
	if err != nil {
		r.printf("Fehler: %v\n", err)
		return
	}
	r.printf("%s", out)
}

func (r *REPL) status() {
	st := r.session.Snapshot()
	sound := "aus"
	if st.SoundEnabled {
		sound = "an"
	}
	r.printf("Phase: %s | Würfel: %d | Modus: %s | Töne: %s | Letzter Wurf: %s\n",
		st.Phase, st.DiceCount, st.Mode, sound, r.render.Faces(st.Outcome))
	r.printf("%s\n", r.render.History(st.History))
	if st.Shown != nil {
		r.printf("Aktuelle Regel (%d): %s\n", st.Shown.Total, st.Shown.Rule)
	}
}

func (r *REPL) help() {
	groups := r.registry.CommandsByCategory()
	cats := make([]string, 0, len(groups))
	for c := range groups {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		r.printf("[%s]\n", c)
		for _, cmd := range groups[c] {
			alias := ""
			if len(cmd.Aliases) > 0 {
				alias = " (" + strings.Join(cmd.Aliases, ", ") + ")"
			}
			r.printf("  %-22s %s%s\n", cmd.Usage, cmd.Help, alias)
		}
	}
}

func (r *REPL) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(r.out, format, args...); err != nil {
		r.logger.Warn("writing to terminal", zap.Error(err))
	}
}
