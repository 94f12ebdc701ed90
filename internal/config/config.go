// Package config loads and validates Greylock's YAML configuration.
// Grounded on the teacher's service/pkg/config/{types.go,config.go}: a
// single Config struct decoded with goccy/go-yaml, custom scalar types
// for human-friendly durations and sizes, and a Validate pass that fills
// defaults and rejects malformed values (including the compaction cron
// expression, checked with adhocore/gronx exactly as the teacher checks
// its retention cron).
package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/adhocore/gronx"
	"github.com/goccy/go-yaml"
)

const (
	defaultTokensShardSize  = 4_000_000
	defaultMetadataFlush    = Duration(60_000_000_000)  // 60s, in time.Duration nanoseconds
	defaultDefaultMaxNumber = 20
	defaultMaxMaxNumber     = 1000
	defaultWorkerQueueCap   = 4096
	defaultWorkerBatchSize  = 256
	defaultWorkerFlush      = Duration(50_000_000) // 50ms
	defaultCompactionCron   = "0 3 * * *"
	defaultSlowThreshold    = Duration(200_000_000) // 200ms
)

// Config is Greylock's top-level configuration, per SPEC_FULL §10.1.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Index      IndexConfig      `yaml:"index"`
	Metadata   MetadataConfig   `yaml:"metadata"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Worker     WorkerConfig     `yaml:"worker"`
	Compaction CompactionConfig `yaml:"compaction"`
	Logging    LoggingConfig    `yaml:"logging"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

type ServerConfig struct {
	Address       string    `yaml:"address"`
	Port          int       `yaml:"port"`
	DocsDBPath    string    `yaml:"docs_db_path"`
	IndexesDBPath string    `yaml:"indexes_db_path"`
	BlockCache    SizeBytes `yaml:"block_cache"`
	TLS           TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type IndexConfig struct {
	TokensShardSize int64 `yaml:"tokens_shard_size"`
	NgramIndexSize  int   `yaml:"ngram_index_size"`
	DedupOnID       bool  `yaml:"dedup_on_id"`
}

type MetadataConfig struct {
	FlushInterval Duration `yaml:"flush_interval"`
}

type RetrievalConfig struct {
	DefaultMaxNumber int64 `yaml:"default_max_number"`
	MaxMaxNumber     int64 `yaml:"max_max_number"`
}

type WorkerConfig struct {
	Count         int      `yaml:"count"`
	QueueCapacity int      `yaml:"queue_capacity"`
	BatchSize     int      `yaml:"batch_size"`
	FlushInterval Duration `yaml:"flush_interval"`
}

type CompactionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Sink  string `yaml:"sink"`
}

type TelemetryConfig struct {
	SlowThreshold Duration `yaml:"slow_threshold"`
}

// Addr returns the HTTP listen address as host:port.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// LoadConfigFile reads and decodes a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Validate fills in defaults and rejects malformed values. Mutates the
// receiver, mirroring the teacher's ValidateConfig.
func (c *Config) Validate() error {
	if c.Index.TokensShardSize <= 0 {
		c.Index.TokensShardSize = defaultTokensShardSize
	}
	if c.Metadata.FlushInterval.Duration() == 0 {
		c.Metadata.FlushInterval = defaultMetadataFlush
	}
	if c.Retrieval.DefaultMaxNumber <= 0 {
		c.Retrieval.DefaultMaxNumber = defaultDefaultMaxNumber
	}
	if c.Retrieval.MaxMaxNumber <= 0 {
		c.Retrieval.MaxMaxNumber = defaultMaxMaxNumber
	}
	if c.Retrieval.DefaultMaxNumber > c.Retrieval.MaxMaxNumber {
		return fmt.Errorf("retrieval.default_max_number (%d) exceeds retrieval.max_max_number (%d)",
			c.Retrieval.DefaultMaxNumber, c.Retrieval.MaxMaxNumber)
	}

	if c.Worker.Count <= 0 {
		c.Worker.Count = runtime.NumCPU()
		if c.Worker.Count > 32 {
			c.Worker.Count = 32
		}
	}
	if c.Worker.QueueCapacity <= 0 {
		c.Worker.QueueCapacity = defaultWorkerQueueCap
	}
	if c.Worker.BatchSize <= 0 {
		c.Worker.BatchSize = defaultWorkerBatchSize
	}
	if c.Worker.FlushInterval.Duration() == 0 {
		c.Worker.FlushInterval = defaultWorkerFlush
	}

	if c.Compaction.Cron == "" {
		c.Compaction.Cron = defaultCompactionCron
	}
	if !gronx.IsValid(c.Compaction.Cron) {
		return fmt.Errorf("invalid compaction cron expression: %s", c.Compaction.Cron)
	}

	if c.Telemetry.SlowThreshold.Duration() == 0 {
		c.Telemetry.SlowThreshold = defaultSlowThreshold
	}

	if c.Server.DocsDBPath == "" || c.Server.IndexesDBPath == "" {
		return fmt.Errorf("server.docs_db_path and server.indexes_db_path are required")
	}

	return nil
}
