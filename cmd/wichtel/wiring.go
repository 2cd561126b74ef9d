package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/muesli/termenv"
	"go.uber.org/zap"

	"github.com/cory-johannsen/wichtel/internal/cli"
	"github.com/cory-johannsen/wichtel/internal/config"
	"github.com/cory-johannsen/wichtel/internal/game/dice"
	"github.com/cory-johannsen/wichtel/internal/game/effect"
	"github.com/cory-johannsen/wichtel/internal/game/rules"
	"github.com/cory-johannsen/wichtel/internal/game/session"
	"github.com/cory-johannsen/wichtel/internal/notify"
	"github.com/cory-johannsen/wichtel/internal/observability"
	"github.com/cory-johannsen/wichtel/internal/presentation/terminal"
	"github.com/cory-johannsen/wichtel/internal/scripting"
	"github.com/cory-johannsen/wichtel/internal/server"
)

// game holds every component of one interactive session.
type game struct {
	session   *session.Session
	catalog   *rules.Catalog
	queue     *session.Queue
	presenter *terminal.Presenter
	repl      *cli.REPL
	watchdog  *session.Watchdog
	metrics   *observability.Metrics
	scripts   *scripting.Manager
	logger    *zap.Logger
}

// loadCatalog layers the YAML tables in dir over the built-ins. An empty dir
// yields the built-ins only.
func loadCatalog(dir string, logger *zap.Logger) (*rules.Catalog, error) {
	if dir == "" {
		return rules.NewCatalog()
	}
	start := time.Now()
	files, err := rules.LoadTables(dir)
	if err != nil {
		return nil, fmt.Errorf("loading rule tables: %w", err)
	}
	catalog, err := rules.NewCatalog(files...)
	if err != nil {
		return nil, err
	}
	logger.Info("rule tables loaded",
		zap.String("dir", dir),
		zap.Int("count", len(files)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return catalog, nil
}

// newRenderer picks the colour profile: escape sequences only when styled output is wanted.
func newRenderer(style string) (*terminal.Renderer, error) {
	profile := termenv.ColorProfile()
	if style == "notty" {
		profile = termenv.Ascii
	}
	return terminal.NewRenderer(style, profile)
}

// buildGame wires a session and its listeners from cfg.
//
// Precondition: cfg must be valid; src, in, out and logger must be non-nil.
func buildGame(cfg config.Config, src dice.Source, in io.Reader, out io.Writer, logger *zap.Logger) (*game, error) {
	catalog, err := loadCatalog(cfg.Game.RulesDir, logger)
	if err != nil {
		return nil, err
	}

	effects := effect.NewRegistry(cfg.Game.SpecialMarker)
	var scripts *scripting.Manager
	if cfg.Game.ScriptsDir != "" {
		scripts = scripting.NewManager(cfg.Game.ScriptInstructionLimit, logger)
		modes, err := scripts.LoadDir(cfg.Game.ScriptsDir)
		if err != nil {
			scripts.Close()
			return nil, fmt.Errorf("loading scripts: %w", err)
		}
		for _, m := range modes {
			effects.RegisterScript(rules.Mode(m), scripts)
		}
		logger.Info("special-rule scripts loaded", zap.Strings("modes", modes))
	}

	s, err := session.New(session.Options{
		DiceCount:    cfg.Game.DiceCount,
		Mode:         rules.Mode(cfg.Game.Mode),
		SoundEnabled: cfg.Game.SoundEnabled,
		TickInterval: cfg.Presentation.TickInterval,
		Roller:       dice.NewLoggedRoller(src, logger),
		Catalog:      catalog,
		Effects:      effects,
		Logger:       logger,
	})
	if err != nil {
		if scripts != nil {
			scripts.Close()
		}
		return nil, err
	}

	render, err := newRenderer(cfg.Presentation.Style)
	if err != nil {
		return nil, err
	}

	w := terminal.NewLockedWriter(out)
	g := &game{
		session: s,
		catalog: catalog,
		queue:   session.NewQueue(0, logger),
		metrics: observability.NewMetrics(),
		scripts: scripts,
		logger:  logger,
	}
	g.presenter = terminal.NewPresenter(terminal.Options{
		Session:   s,
		Queue:     g.queue,
		Out:       w,
		Renderer:  render,
		Animation: cfg.Presentation.AnimationDuration,
		Logger:    logger,
	})
	g.repl = cli.New(cli.Options{
		Session:  s,
		Catalog:  catalog,
		Renderer: render,
		In:       in,
		Out:      w,
		Logger:   logger,
	})

	s.Subscribe(g.queue)
	s.Subscribe(notify.NewLogListener(logger))
	s.Subscribe(notify.NewMetricsListener(g.metrics))
	if cfg.Presentation.WatchdogTimeout > 0 {
		g.watchdog = session.NewWatchdog(s, cfg.Presentation.WatchdogTimeout, logger)
		s.Subscribe(g.watchdog)
	}
	return g, nil
}

// services returns the lifecycle services in start order.
func (g *game) services(metricsAddr string) []namedService {
	var out []namedService
	if metricsAddr != "" {
		out = append(out, namedService{"metrics", server.NewHTTPService(metricsAddr, "/metrics", g.metrics.Handler(), g.logger)})
	}
	pctx, cancel := context.WithCancel(context.Background())
	out = append(out,
		namedService{"presenter", &server.FuncService{
			StartFn: func() error {
				if err := g.presenter.Run(pctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			},
			StopFn: cancel,
		}},
		namedService{"repl", g.repl},
	)
	return out
}

type namedService struct {
	name string
	svc  server.Service
}

// close releases the session's timers and script VMs.
func (g *game) close() {
	if g.watchdog != nil {
		g.watchdog.Stop()
	}
	g.session.Close()
	_ = g.queue.Close()
	if g.scripts != nil {
		g.scripts.Close()
	}
}
