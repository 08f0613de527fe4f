package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/loregraph/internal/platform/envutil"
)

const (
	GraphNeo4j  = "neo4j"
	GraphMemory = "memory"
)

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	s := strings.TrimSpace(node.Value)
	if s == "" || s == "null" || s == "~" {
		d.Duration = 0
		return nil
	}
	if dd, err := time.ParseDuration(s); err == nil {
		d.Duration = dd
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or whole seconds: %q", s)
	}
	d.Duration = time.Duration(n) * time.Second
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
			CORSOrigins:       []string{"http://localhost:3000"},
		},
		Graph: GraphConfig{
			Backend:         GraphNeo4j,
			WriteTimeout:    Duration{Duration: 10 * time.Second},
			WorldIDAttempts: 5,
			EnsureSchema:    true,
		},
		Neo4j: Neo4jConfig{
			User:        "neo4j",
			Timeout:     Duration{Duration: 10 * time.Second},
			MaxPoolSize: 50,
		},
		Redis: RedisConfig{
			Channel:       "loregraph.events",
			CheckpointTTL: Duration{Duration: 7 * 24 * time.Hour},
		},
		OTel: OTelConfig{
			ServiceName: "loregraph",
			SampleRatio: 0.1,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at
// LOREGRAPH_CONFIG_PATH (or ./config/loregraph.yaml when present), then the
// environment, and validates the result.
func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("LOREGRAPH_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "loregraph.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.Version = envutil.String("LOREGRAPH_VERSION", cfg.Version)
	cfg.HTTP.Addr = envutil.String("LOREGRAPH_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.CORSOrigins = envutil.List("LOREGRAPH_CORS_ORIGINS", cfg.HTTP.CORSOrigins)

	cfg.Graph.Backend = envutil.String("GRAPH_BACKEND", cfg.Graph.Backend)
	cfg.Graph.WriteTimeout.Duration = envutil.Duration("GRAPH_WRITE_TIMEOUT", cfg.Graph.WriteTimeout.Duration)

	cfg.Neo4j.URI = envutil.String("NEO4J_URI", cfg.Neo4j.URI)
	cfg.Neo4j.User = envutil.String("NEO4J_USER", cfg.Neo4j.User)
	cfg.Neo4j.Password = envutil.String("NEO4J_PASSWORD", cfg.Neo4j.Password)
	cfg.Neo4j.Database = envutil.String("NEO4J_DATABASE", cfg.Neo4j.Database)
	cfg.Neo4j.Timeout.Duration = envutil.Duration("NEO4J_TIMEOUT_SECONDS", cfg.Neo4j.Timeout.Duration)
	cfg.Neo4j.MaxPoolSize = envutil.Int("NEO4J_MAX_POOL_SIZE", cfg.Neo4j.MaxPoolSize)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)

	cfg.Journal.Driver = envutil.String("JOURNAL_DRIVER", cfg.Journal.Driver)
	cfg.Journal.DSN = envutil.String("JOURNAL_DSN", cfg.Journal.DSN)

	cfg.OTel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.OTel.Enabled)
	cfg.OTel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTel.Endpoint)
	cfg.OTel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.OTel.Headers)
	cfg.OTel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.OTel.Insecure)
	cfg.OTel.SampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", cfg.OTel.SampleRatio)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "development"
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.MaxRequestBytes <= 0 {
		c.HTTP.MaxRequestBytes = 1 << 20
	}

	c.Graph.Backend = strings.ToLower(strings.TrimSpace(c.Graph.Backend))
	switch c.Graph.Backend {
	case GraphMemory:
	case GraphNeo4j:
		if strings.TrimSpace(c.Neo4j.URI) == "" {
			return errors.New("graph backend neo4j requires neo4j.uri (NEO4J_URI)")
		}
	default:
		return fmt.Errorf("graph.backend must be %q or %q, got %q", GraphNeo4j, GraphMemory, c.Graph.Backend)
	}
	if c.Graph.WriteTimeout.Duration <= 0 {
		return errors.New("graph.write_timeout must be positive")
	}
	if c.Graph.WorldIDAttempts <= 0 {
		c.Graph.WorldIDAttempts = 5
	}

	c.Journal.Driver = strings.ToLower(strings.TrimSpace(c.Journal.Driver))
	switch c.Journal.Driver {
	case "":
	case "sqlite", "postgres":
		if strings.TrimSpace(c.Journal.DSN) == "" {
			return fmt.Errorf("journal driver %s requires journal.dsn (JOURNAL_DSN)", c.Journal.Driver)
		}
	default:
		return fmt.Errorf("journal.driver must be empty, sqlite or postgres, got %q", c.Journal.Driver)
	}
	return nil
}
