// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Scan, Corpus, Postgres, Kafka, Redis, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Scan     ScanConfig     `yaml:"scan"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Watch    WatchConfig    `yaml:"watch"`
}

// ScanConfig controls the matching engine: n-gram size, similarity
// threshold, hash strategy, aggregation mode, and worker count.
type ScanConfig struct {
	NgramSize    int     `yaml:"ngramSize"`
	Threshold    float64 `yaml:"threshold"`
	Strategy     string  `yaml:"strategy"` // content, rolling, auto
	Mode         string  `yaml:"mode"`     // document, span
	Workers      int     `yaml:"workers"`
	TrackMatches bool    `yaml:"trackMatches"`
}

// CorpusConfig points the scanner at its inputs: a query file and either a
// directory of token-id files or a Postgres-backed corpus.
type CorpusConfig struct {
	QueryPath    string        `yaml:"queryPath"`
	SearchDir    string        `yaml:"searchDir"`
	Source       string        `yaml:"source"` // files, postgres
	StartFileIdx int           `yaml:"startFileIdx"`
	EndFileIdx   int           `yaml:"endFileIdx"`
	LoadTimeout  time.Duration `yaml:"loadTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. BatchSize and
// BatchTimeout bound how long a scan event may sit in the writer before it
// is flushed to the broker.
type KafkaConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	ConsumerGroup string        `yaml:"consumerGroup"`
	BatchSize     int           `yaml:"batchSize"`
	BatchTimeout  time.Duration `yaml:"batchTimeout"`
	Topics        KafkaTopics   `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ScanEvents string `yaml:"scanEvents"`
}

// RedisConfig holds Redis connection and result-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// WatchConfig holds the HTTP port for the live-stats binary and the
// optional Postgres snapshot interval (zero disables snapshotting).
type WatchConfig struct {
	Port             int           `yaml:"port"`
	RequestTimeout   time.Duration `yaml:"requestTimeout"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate checks the scan parameters that must hold before any scanning
// starts.
func (c *Config) Validate() error {
	if c.Scan.NgramSize < 1 {
		return fmt.Errorf("scan.ngramSize must be >= 1, got %d", c.Scan.NgramSize)
	}
	if c.Scan.Threshold < 0 || c.Scan.Threshold > 1 {
		return fmt.Errorf("scan.threshold must be in [0,1], got %g", c.Scan.Threshold)
	}
	switch c.Scan.Strategy {
	case "content", "rolling", "auto":
	default:
		return fmt.Errorf("scan.strategy must be content, rolling, or auto, got %q", c.Scan.Strategy)
	}
	switch c.Scan.Mode {
	case "document", "span":
	default:
		return fmt.Errorf("scan.mode must be document or span, got %q", c.Scan.Mode)
	}
	switch c.Corpus.Source {
	case "files", "postgres":
	default:
		return fmt.Errorf("corpus.source must be files or postgres, got %q", c.Corpus.Source)
	}
	return nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			NgramSize: 10,
			Threshold: 0.6,
			Strategy:  "auto",
			Mode:      "document",
			Workers:   0, // 0 means GOMAXPROCS
		},
		Corpus: CorpusConfig{
			QueryPath:    "data/query.jsonl",
			SearchDir:    "data/corpus",
			Source:       "files",
			StartFileIdx: 0,
			EndFileIdx:   142,
			LoadTimeout:  10 * time.Minute,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "neardup",
			User:            "neardup",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "neardup-group",
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			Topics: KafkaTopics{
				ScanEvents: "scan-events",
			},
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Watch: WatchConfig{
			Port:           8080,
			RequestTimeout: 10 * time.Second,
		},
	}
}

// applyEnvOverrides reads ND_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ND_SCAN_NGRAM_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scan.NgramSize = n
		}
	}
	if v := os.Getenv("ND_SCAN_THRESHOLD"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scan.Threshold = t
		}
	}
	if v := os.Getenv("ND_SCAN_STRATEGY"); v != "" {
		cfg.Scan.Strategy = v
	}
	if v := os.Getenv("ND_SCAN_MODE"); v != "" {
		cfg.Scan.Mode = v
	}
	if v := os.Getenv("ND_SCAN_WORKERS"); v != "" {
		if w, err := strconv.Atoi(v); err == nil {
			cfg.Scan.Workers = w
		}
	}
	if v := os.Getenv("ND_CORPUS_QUERY_PATH"); v != "" {
		cfg.Corpus.QueryPath = v
	}
	if v := os.Getenv("ND_CORPUS_SEARCH_DIR"); v != "" {
		cfg.Corpus.SearchDir = v
	}
	if v := os.Getenv("ND_CORPUS_SOURCE"); v != "" {
		cfg.Corpus.Source = v
	}
	if v := os.Getenv("ND_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("ND_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("ND_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("ND_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("ND_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("ND_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("ND_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("ND_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ND_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ND_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("ND_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := os.Getenv("ND_WATCH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Watch.Port = port
		}
	}
}
