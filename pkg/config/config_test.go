package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scan.NgramSize != 10 {
		t.Errorf("NgramSize = %d, want 10", cfg.Scan.NgramSize)
	}
	if cfg.Scan.Threshold != 0.6 {
		t.Errorf("Threshold = %g, want 0.6", cfg.Scan.Threshold)
	}
	if cfg.Scan.Strategy != "auto" {
		t.Errorf("Strategy = %q, want auto", cfg.Scan.Strategy)
	}
	if cfg.Scan.Mode != "document" {
		t.Errorf("Mode = %q, want document", cfg.Scan.Mode)
	}
	if cfg.Corpus.EndFileIdx != 142 {
		t.Errorf("EndFileIdx = %d, want 142", cfg.Corpus.EndFileIdx)
	}
	if cfg.Kafka.BatchSize != 100 {
		t.Errorf("Kafka.BatchSize = %d, want 100", cfg.Kafka.BatchSize)
	}
	if cfg.Kafka.BatchTimeout != 10*time.Millisecond {
		t.Errorf("Kafka.BatchTimeout = %v, want 10ms", cfg.Kafka.BatchTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
scan:
  ngramSize: 25
  threshold: 0.8
  strategy: rolling
corpus:
  queryPath: /data/q.jsonl
  startFileIdx: 5
  endFileIdx: 10
redis:
  enabled: true
  addr: cache:6379
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scan.NgramSize != 25 || cfg.Scan.Threshold != 0.8 || cfg.Scan.Strategy != "rolling" {
		t.Errorf("scan section not applied: %+v", cfg.Scan)
	}
	if cfg.Corpus.QueryPath != "/data/q.jsonl" || cfg.Corpus.StartFileIdx != 5 {
		t.Errorf("corpus section not applied: %+v", cfg.Corpus)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "cache:6379" {
		t.Errorf("redis section not applied: %+v", cfg.Redis)
	}
	// Untouched sections keep their defaults.
	if cfg.Scan.Mode != "document" {
		t.Errorf("Mode = %q, want default document", cfg.Scan.Mode)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ND_SCAN_NGRAM_SIZE", "7")
	t.Setenv("ND_SCAN_THRESHOLD", "0.75")
	t.Setenv("ND_SCAN_STRATEGY", "content")
	t.Setenv("ND_CORPUS_SEARCH_DIR", "/mnt/corpus")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scan.NgramSize != 7 {
		t.Errorf("NgramSize = %d, want 7", cfg.Scan.NgramSize)
	}
	if cfg.Scan.Threshold != 0.75 {
		t.Errorf("Threshold = %g, want 0.75", cfg.Scan.Threshold)
	}
	if cfg.Scan.Strategy != "content" {
		t.Errorf("Strategy = %q, want content", cfg.Scan.Strategy)
	}
	if cfg.Corpus.SearchDir != "/mnt/corpus" {
		t.Errorf("SearchDir = %q, want /mnt/corpus", cfg.Corpus.SearchDir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero ngram size", func(c *Config) { c.Scan.NgramSize = 0 }},
		{"threshold below zero", func(c *Config) { c.Scan.Threshold = -0.01 }},
		{"threshold above one", func(c *Config) { c.Scan.Threshold = 1.01 }},
		{"bad strategy", func(c *Config) { c.Scan.Strategy = "murmur" }},
		{"bad mode", func(c *Config) { c.Scan.Mode = "line" }},
		{"bad source", func(c *Config) { c.Corpus.Source = "s3" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted an invalid config")
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db", Port: 5433, Database: "neardup",
		User: "svc", Password: "secret", SSLMode: "disable",
	}
	want := "host=db port=5433 user=svc password=secret dbname=neardup sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
