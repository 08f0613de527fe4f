package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/loregraph/internal/config"
	"github.com/yungbote/loregraph/internal/data/graph"
	"github.com/yungbote/loregraph/internal/data/journal"
	httpserver "github.com/yungbote/loregraph/internal/http"
	"github.com/yungbote/loregraph/internal/narrative/continuity"
	"github.com/yungbote/loregraph/internal/narrative/events"
	"github.com/yungbote/loregraph/internal/narrative/identity"
	"github.com/yungbote/loregraph/internal/narrative/store"
	"github.com/yungbote/loregraph/internal/observability"
	"github.com/yungbote/loregraph/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      *config.Config
	Backend  graph.Backend
	Store    *store.Store
	Sessions *continuity.Registry
	Journal  journal.Journal
	Server   *httpserver.Server

	clients Clients
	closers []func(context.Context) error
}

// New wires the process from cfg. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: config required")
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{Log: log, Cfg: cfg}
	wired := false
	defer func() {
		if !wired {
			a.Close(context.WithoutCancel(ctx))
		}
	}()

	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OTel.Enabled,
		ServiceName: cfg.OTel.ServiceName,
		Environment: cfg.Env,
		Version:     cfg.Version,
		Endpoint:    cfg.OTel.Endpoint,
		Headers:     cfg.OTel.Headers,
		Insecure:    cfg.OTel.Insecure,
		SampleRatio: cfg.OTel.SampleRatio,
	})
	a.closers = append(a.closers, shutdownOTel)

	log.Info("Wiring clients...", "graph_backend", cfg.Graph.Backend)
	a.clients, err = wireClients(ctx, cfg, log)
	a.closers = append(a.closers, a.clients.Close)
	if err != nil {
		return nil, err
	}
	a.Backend = a.clients.Graph
	a.Journal = a.clients.Journal

	var publisher events.Publisher = events.Nop{}
	var checkpoint continuity.Checkpointer
	if a.clients.EventBus != nil {
		publisher = a.clients.EventBus
	}
	if a.clients.Checkpoint != nil {
		checkpoint = a.clients.Checkpoint
	}

	a.Store, err = store.New(a.Backend, log,
		store.WithNamer(identity.New(identity.WithWorldAttempts(cfg.Graph.WorldIDAttempts))),
		store.WithJournal(a.Journal),
		store.WithPublisher(publisher),
		store.WithWriteTimeout(cfg.Graph.WriteTimeout.Duration),
	)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	a.Sessions = continuity.NewRegistry(checkpoint, log)
	a.Server = wireServer(cfg, log, a)

	wired = true
	log.Info("App wired", "addr", cfg.HTTP.Addr, "journal", cfg.Journal.Driver != "", "redis", cfg.Redis.Addr != "")
	return a, nil
}

// Run serves HTTP until ctx is cancelled. With an event bus configured it also
// tails the channel into the debug log.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Server.Run(gctx) })
	if a.clients.EventBus != nil {
		g.Go(func() error {
			tap := a.Log.With("component", "EventTap", "channel", a.clients.EventBus.Channel())
			if err := a.clients.EventBus.Subscribe(gctx, func(ev events.Event) {
				tap.Debug("narrative event", "type", ev.Type, "session_id", ev.SessionID, "entity_id", ev.EntityID)
			}); err != nil {
				tap.Warn("event tap disabled", "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close releases resources in reverse wiring order.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && a.Log != nil {
			a.Log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
	if a.Log != nil {
		a.Log.Sync()
	}
}
