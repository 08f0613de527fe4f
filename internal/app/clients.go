package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/loregraph/internal/clients/redis"
	"github.com/yungbote/loregraph/internal/config"
	"github.com/yungbote/loregraph/internal/data/db"
	"github.com/yungbote/loregraph/internal/data/graph"
	"github.com/yungbote/loregraph/internal/data/journal"
	"github.com/yungbote/loregraph/internal/platform/logger"
	"github.com/yungbote/loregraph/internal/platform/neo4jdb"
)

// Clients holds the external connections. Optional ones stay nil when unconfigured.
type Clients struct {
	Graph      graph.Backend
	Neo4j      *neo4jdb.Client
	Redis      *goredis.Client
	Checkpoint *redis.Checkpoint
	EventBus   *redis.EventBus
	DB         *gorm.DB
	Journal    journal.Journal
}

func wireClients(ctx context.Context, cfg *config.Config, log *logger.Logger) (c Clients, err error) {
	c.Journal = journal.Nop{}

	// Graph
	switch cfg.Graph.Backend {
	case config.GraphMemory:
		log.Warn("Using in-memory graph backend; story data is lost on exit")
		c.Graph = graph.NewMemoryBackend()
	default:
		c.Neo4j, err = neo4jdb.New(ctx, neo4jdb.Config{
			URI:         cfg.Neo4j.URI,
			User:        cfg.Neo4j.User,
			Password:    cfg.Neo4j.Password,
			Database:    cfg.Neo4j.Database,
			Timeout:     cfg.Neo4j.Timeout.Duration,
			MaxPoolSize: cfg.Neo4j.MaxPoolSize,
		}, log)
		if err != nil {
			return c, fmt.Errorf("init neo4j: %w", err)
		}
		backend, err := graph.NewNeo4jBackend(c.Neo4j, log)
		if err != nil {
			return c, fmt.Errorf("init neo4j backend: %w", err)
		}
		c.Graph = backend
	}
	if cfg.Graph.EnsureSchema {
		if err := c.Graph.EnsureSchema(ctx); err != nil {
			return c, fmt.Errorf("graph schema: %w", err)
		}
	}

	// Redis
	if cfg.Redis.Addr != "" {
		c.Redis, err = redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			return c, fmt.Errorf("init redis: %w", err)
		}
		if c.Checkpoint, err = redis.NewCheckpoint(c.Redis, cfg.Redis.CheckpointTTL.Duration, log); err != nil {
			return c, fmt.Errorf("init redis checkpoint: %w", err)
		}
		if c.EventBus, err = redis.NewEventBus(c.Redis, cfg.Redis.Channel, log); err != nil {
			return c, fmt.Errorf("init redis event bus: %w", err)
		}
	}

	// Journal
	if cfg.Journal.Driver != "" {
		c.DB, err = db.Open(db.Config{Driver: cfg.Journal.Driver, DSN: cfg.Journal.DSN}, log)
		if err != nil {
			return c, fmt.Errorf("init journal db: %w", err)
		}
		if err := db.AutoMigrateAll(c.DB); err != nil {
			return c, fmt.Errorf("journal automigrate: %w", err)
		}
		j, err := journal.New(c.DB, log)
		if err != nil {
			return c, fmt.Errorf("init journal: %w", err)
		}
		c.Journal = j
	}
	return c, nil
}

func (c Clients) Close(ctx context.Context) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			keep(sqlDB.Close())
		}
	}
	if c.Redis != nil {
		keep(c.Redis.Close())
	}
	if c.Graph != nil {
		keep(c.Graph.Close(ctx))
	}
	return firstErr
}
