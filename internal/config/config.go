// Package config provides configuration types and defaults for kitties.
package config

import (
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all configuration options for kitties.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Server    ServerConfig    `mapstructure:"server"`
	Events    EventsConfig    `mapstructure:"events"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Log       LogConfig       `mapstructure:"log"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" (default) or "memory"
	Path   string `mapstructure:"path"`   // database file for the sqlite driver
}

// LedgerConfig holds ledger limits.
type LedgerConfig struct {
	// MaxKittyID caps how many kitties can ever exist. Creating or breeding
	// once the counter reaches it fails with an index overflow.
	MaxKittyID uint32 `mapstructure:"max_kitty_id"`
}

// ChainConfig configures the simulated block host.
type ChainConfig struct {
	GenesisSeed string `mapstructure:"genesis_seed"` // hex
	BlockSize   uint32 `mapstructure:"block_size"`   // operations per block
}

// Seed decodes the hex genesis seed.
func (c ChainConfig) Seed() ([]byte, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(c.GenesisSeed, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain.genesis_seed is not valid hex: %w", err)
	}
	return seed, nil
}

// ProcessorConfig tunes the command processor.
type ProcessorConfig struct {
	QueueCapacity int           `mapstructure:"queue_capacity"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

// CacheConfig tunes the query cache. A zero TTL disables caching.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// ServerConfig configures `kitties serve`.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// EventsConfig configures the optional Redis stream sink. The sink is off
// while RedisAddr is empty.
type EventsConfig struct {
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisStream string `mapstructure:"redis_stream"`
	RedisMaxLen int64  `mapstructure:"redis_max_len"` // approximate stream cap, 0 = unbounded
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the export backend: "none", "file", "stdout" or "otlp".
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for the "file" exporter.
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for the "otlp" exporter.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate is the fraction of traces to keep, 0.0 to 1.0.
	SampleRate float64 `mapstructure:"sample_rate"`

	ServiceName string `mapstructure:"service_name"`
}

// LogConfig sets the minimum level written to the debug log.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultStoragePath is the sqlite database used when none is configured.
const DefaultStoragePath = ".kitties/kitties.db"

// DefaultGenesisSeed is hex for "kitties".
const DefaultGenesisSeed = "6b697474696573"

// DefaultTracesFilePath returns ~/.config/kitties/traces/traces.jsonl, or an
// empty string if the home directory is unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "kitties", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   DefaultStoragePath,
		},
		Ledger: LedgerConfig{
			MaxKittyID: math.MaxUint32,
		},
		Chain: ChainConfig{
			GenesisSeed: DefaultGenesisSeed,
			BlockSize:   16,
		},
		Processor: ProcessorConfig{
			QueueCapacity: 1000,
			SlowThreshold: 100 * time.Millisecond,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8420",
			ShutdownTimeout: 10 * time.Second,
		},
		Events: EventsConfig{
			RedisStream: "kitties:events",
			RedisMaxLen: 100000,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // derived at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
			ServiceName:  "kitties",
		},
		Log: LogConfig{
			Level: "debug",
		},
	}
}

// Validate checks the whole configuration and returns the first problem.
func Validate(c Config) error {
	validators := []func(Config) error{
		func(c Config) error { return ValidateStorage(c.Storage) },
		func(c Config) error { return ValidateChain(c.Chain) },
		validateLimits,
		func(c Config) error { return ValidateEvents(c.Events) },
		func(c Config) error { return ValidateTracing(c.Tracing) },
		validateLog,
	}
	for _, v := range validators {
		if err := v(c); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStorage checks the storage section.
func ValidateStorage(s StorageConfig) error {
	switch s.Driver {
	case "sqlite":
		if s.Path == "" {
			return fmt.Errorf("storage.path is required when driver is \"sqlite\"")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be \"sqlite\" or \"memory\", got %q", s.Driver)
	}
	return nil
}

// ValidateChain checks the chain section.
func ValidateChain(c ChainConfig) error {
	if c.GenesisSeed == "" {
		return fmt.Errorf("chain.genesis_seed is required")
	}
	if _, err := c.Seed(); err != nil {
		return err
	}
	if c.BlockSize == 0 {
		return fmt.Errorf("chain.block_size must be positive")
	}
	return nil
}

func validateLimits(c Config) error {
	if c.Ledger.MaxKittyID == 0 {
		return fmt.Errorf("ledger.max_kitty_id must be positive")
	}
	if c.Processor.QueueCapacity <= 0 {
		return fmt.Errorf("processor.queue_capacity must be positive, got %d", c.Processor.QueueCapacity)
	}
	if c.Processor.SlowThreshold < 0 {
		return fmt.Errorf("processor.slow_threshold must not be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// ValidateEvents checks the events section.
func ValidateEvents(e EventsConfig) error {
	if e.RedisAddr != "" && e.RedisStream == "" {
		return fmt.Errorf("events.redis_stream is required when events.redis_addr is set")
	}
	if e.RedisMaxLen < 0 {
		return fmt.Errorf("events.redis_max_len must not be negative")
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Empty values use defaults.
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	if tracing.Enabled && tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}
	return nil
}

func validateLog(c Config) error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
}
