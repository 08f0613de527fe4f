package config

import "time"

// Duration reads Go duration strings ("10s") from YAML.
type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `yaml:"addr"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	IdleTimeout       Duration `yaml:"idle_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `yaml:"max_request_bytes"`
	CORSOrigins       []string `yaml:"cors_origins"`
}

type GraphConfig struct {
	// Backend is "neo4j" or "memory".
	Backend         string   `yaml:"backend"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	WorldIDAttempts int      `yaml:"world_id_attempts"`
	EnsureSchema    bool     `yaml:"ensure_schema"`
}

type Neo4jConfig struct {
	URI         string   `yaml:"uri"`
	User        string   `yaml:"user"`
	Password    string   `yaml:"password"`
	Database    string   `yaml:"database"`
	Timeout     Duration `yaml:"timeout"`
	MaxPoolSize int      `yaml:"max_pool_size"`
}

// RedisConfig is optional; an empty Addr disables checkpoints and events.
type RedisConfig struct {
	Addr          string   `yaml:"addr"`
	Password      string   `yaml:"password"`
	DB            int      `yaml:"db"`
	Channel       string   `yaml:"channel"`
	CheckpointTTL Duration `yaml:"checkpoint_ttl"`
}

// JournalConfig is optional; an empty Driver disables the journal.
type JournalConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type OTelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type Config struct {
	Env     string        `yaml:"env"`
	Version string        `yaml:"version"`
	HTTP    HTTPConfig    `yaml:"http"`
	Graph   GraphConfig   `yaml:"graph"`
	Neo4j   Neo4jConfig   `yaml:"neo4j"`
	Redis   RedisConfig   `yaml:"redis"`
	Journal JournalConfig `yaml:"journal"`
	OTel    OTelConfig    `yaml:"otel"`
}
