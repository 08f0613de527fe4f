package app

import (
	"context"

	"github.com/yungbote/loregraph/internal/config"
	httpserver "github.com/yungbote/loregraph/internal/http"
	httpH "github.com/yungbote/loregraph/internal/http/handlers"
	"github.com/yungbote/loregraph/internal/narrative/events"
	"github.com/yungbote/loregraph/internal/platform/logger"
)

func wireServer(cfg *config.Config, log *logger.Logger, a *App) *httpserver.Server {
	checks := map[string]httpH.Check{}
	if a.clients.Neo4j != nil {
		checks["neo4j"] = a.clients.Neo4j.Ping
	}
	if a.clients.Redis != nil {
		rdb := a.clients.Redis
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	if a.clients.DB != nil {
		gdb := a.clients.DB
		checks["journal"] = func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}

	var sub events.Subscriber
	if a.clients.EventBus != nil {
		sub = a.clients.EventBus
	}

	serviceName := ""
	if cfg.OTel.Enabled {
		serviceName = cfg.OTel.ServiceName
	}

	return httpserver.NewServer(httpserver.ServerConfig{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
		ShutdownTimeout:   cfg.HTTP.ShutdownTimeout.Duration,
	}, httpserver.RouterConfig{
		Log:              log,
		ServiceName:      serviceName,
		CORSOrigins:      cfg.HTTP.CORSOrigins,
		MaxRequestBytes:  cfg.HTTP.MaxRequestBytes,
		NarrativeHandler: httpH.NewNarrativeHandler(a.Store, a.Sessions, a.Journal),
		RealtimeHandler:  httpH.NewRealtimeHandler(sub, log, 0),
		HealthHandler:    httpH.NewHealthHandler(checks),
	})
}
