package terminal

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/wichtel/internal/game/session"
)

// Bell is the terminal bell used as the sound cue.
const Bell = "\a"

// Options configures a Presenter.
type Options struct {
	// Session is the session the presenter reports back to. Required.
	Session *session.Session
	// Queue delivers the session's events. Required.
	Queue *session.Queue
	// Out receives all output. Required.
	Out io.Writer
	// Renderer formats output. Required.
	Renderer *Renderer
	// Animation is how long a roll plays before the rule is revealed.
	Animation time.Duration
	// Logger is required.
	Logger *zap.Logger
}

// Presenter is the presentation layer of a session: it plays the roll
// animation, reports completion, and renders rules and history.
type Presenter struct {
	session   *session.Session
	queue     *session.Queue
	out       io.Writer
	render    *Renderer
	animation time.Duration
	logger    *zap.Logger
	pending   *session.RollTimer
}

// NewPresenter creates a Presenter.
//
// Precondition: Session, Queue, Out, Renderer and Logger must be non-nil; Animation >= 0.
func NewPresenter(opts Options) *Presenter {
	if opts.Session == nil || opts.Queue == nil || opts.Out == nil || opts.Renderer == nil || opts.Logger == nil {
		panic("terminal: NewPresenter precondition violated")
	}
	if opts.Animation < 0 {
		panic("terminal: NewPresenter precondition violated: negative animation")
	}
	p := &Presenter{
		session:   opts.Session,
		queue:     opts.Queue,
		out:       opts.Out,
		render:    opts.Renderer,
		animation: opts.Animation,
		logger:    opts.Logger,
	}
	p.pending = session.NewRollTimer(p.finish)
	return p
}

// Run consumes events until the queue is closed or ctx is done.
func (p *Presenter) Run(ctx context.Context) error {
	defer p.pending.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-p.queue.Events():
			if !ok {
				return nil
			}
			p.handle(e)
		}
	}
}

func (p *Presenter) handle(e session.Event) {
	switch e.Kind {
	case session.RollCommitted:
		p.printf("Die Würfel rollen …\n")
		p.animate(e.Roll)
	case session.RollingTick:
		if e.Sound {
			p.printf(Bell)
		}
	case session.RollResolved:
		p.printf("%s\n", p.render.Faces(e.Outcome))
		card, err := p.render.Rule(e.Total, e.Rule, e.Special)
		if err != nil {
			p.logger.Warn("rendering rule", zap.Error(err))
			card = e.Rule + "\n"
		}
		p.printf("%s", card)
		if e.Sound && !e.Special {
			p.printf(Bell)
		}
	case session.SpecialOutcome:
		p.printf("%s\n", p.render.Special())
		if e.Sound {
			p.printf(Bell + Bell)
		}
	case session.HistoryUpdated:
		p.printf("%s\n", p.render.History(e.History))
	case session.RuleDismissed:
		p.printf("Bereit zum Würfeln.\n")
	case session.SessionReset:
		p.pending.Disarm(e.Roll)
		p.printf("Neues Spiel: %s\n", p.render.Faces(e.Outcome))
	}
}

// animate schedules the completion report for roll.
func (p *Presenter) animate(roll uint64) {
	if p.animation == 0 {
		p.finish(roll)
		return
	}
	if !p.pending.Arm(roll, p.animation) {
		p.logger.Debug("animation skipped for stale roll", zap.Uint64("roll", roll))
	}
}

func (p *Presenter) finish(roll uint64) {
	tr := p.session.NotifyPresentationCompleteFor(roll)
	if !tr.Accepted {
		p.logger.Debug("animation finished for inactive roll",
			zap.Uint64("roll", roll),
			zap.String("reason", tr.Reason),
		)
	}
}

func (p *Presenter) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(p.out, format, args...); err != nil {
		p.logger.Warn("writing to terminal", zap.Error(err))
	}
}
