package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "loregraph.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadDefaultsWithMemoryBackend(t *testing.T) {
	t.Setenv("LOREGRAPH_CONFIG_PATH", "")
	t.Chdir(t.TempDir())
	t.Setenv("GRAPH_BACKEND", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Graph.Backend != GraphMemory || cfg.HTTP.Addr != ":8080" {
		t.Fatalf("defaults: got backend=%q addr=%q", cfg.Graph.Backend, cfg.HTTP.Addr)
	}
	if cfg.Graph.WriteTimeout.Duration != 10*time.Second {
		t.Fatalf("write timeout: want=%v got=%v", 10*time.Second, cfg.Graph.WriteTimeout.Duration)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	p := writeConfig(t, `
env: production
http:
  addr: ":9000"
  shutdown_timeout: 30s
graph:
  backend: neo4j
  write_timeout: 4s
neo4j:
  uri: bolt://graph:7687
  timeout: 7
journal:
  driver: sqlite
  dsn: file:journal.db
`)
	t.Setenv("LOREGRAPH_CONFIG_PATH", p)
	t.Setenv("GRAPH_WRITE_TIMEOUT", "2s")
	t.Setenv("NEO4J_PASSWORD", "hunter2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "production" || cfg.HTTP.Addr != ":9000" {
		t.Fatalf("file values: got env=%q addr=%q", cfg.Env, cfg.HTTP.Addr)
	}
	if cfg.HTTP.ShutdownTimeout.Duration != 30*time.Second || cfg.Neo4j.Timeout.Duration != 7*time.Second {
		t.Fatalf("durations: shutdown=%v neo4j=%v", cfg.HTTP.ShutdownTimeout.Duration, cfg.Neo4j.Timeout.Duration)
	}
	if cfg.Graph.WriteTimeout.Duration != 2*time.Second {
		t.Fatalf("env must override file: got=%v", cfg.Graph.WriteTimeout.Duration)
	}
	if cfg.Neo4j.Password != "hunter2" || cfg.Neo4j.User != "neo4j" {
		t.Fatalf("neo4j: got user=%q", cfg.Neo4j.User)
	}
	if cfg.Journal.Driver != "sqlite" {
		t.Fatalf("journal driver: got=%q", cfg.Journal.Driver)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"unknown backend": func(c *Config) { c.Graph.Backend = "dgraph" },
		"neo4j needs uri": func(c *Config) { c.Graph.Backend = GraphNeo4j; c.Neo4j.URI = "" },
		"zero timeout":    func(c *Config) { c.Graph.WriteTimeout = Duration{} },
		"journal driver":  func(c *Config) { c.Journal.Driver = "mysql" },
		"journal no dsn":  func(c *Config) { c.Journal.Driver = "postgres"; c.Journal.DSN = "" },
	}
	for name, mutate := range cases {
		cfg := defaultConfig()
		cfg.Graph.Backend = GraphMemory
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadBadDuration(t *testing.T) {
	p := writeConfig(t, "graph:\n  backend: memory\n  write_timeout: soon\n")
	t.Setenv("LOREGRAPH_CONFIG_PATH", p)
	if _, err := Load(); err == nil {
		t.Fatalf("Load: expected duration error")
	}
}
