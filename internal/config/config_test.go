package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	require.NoError(t, Validate(d))
	require.Equal(t, "sqlite", d.Storage.Driver)
	require.Equal(t, uint32(16), d.Chain.BlockSize)
	require.Equal(t, 100*time.Millisecond, d.Processor.SlowThreshold)

	seed, err := d.Chain.Seed()
	require.NoError(t, err)
	require.Equal(t, []byte("kitties"), seed)
}

func TestChainConfig_SeedAcceptsPrefix(t *testing.T) {
	seed, err := ChainConfig{GenesisSeed: "0x0102"}.Seed()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, seed)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "memory driver needs no path", mutate: func(c *Config) { c.Storage = StorageConfig{Driver: "memory"} }},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "postgres" }, wantErr: "storage.driver"},
		{name: "sqlite without path", mutate: func(c *Config) { c.Storage.Path = "" }, wantErr: "storage.path"},
		{name: "missing seed", mutate: func(c *Config) { c.Chain.GenesisSeed = "" }, wantErr: "chain.genesis_seed is required"},
		{name: "bad seed", mutate: func(c *Config) { c.Chain.GenesisSeed = "zz" }, wantErr: "not valid hex"},
		{name: "zero block size", mutate: func(c *Config) { c.Chain.BlockSize = 0 }, wantErr: "chain.block_size"},
		{name: "zero max id", mutate: func(c *Config) { c.Ledger.MaxKittyID = 0 }, wantErr: "ledger.max_kitty_id"},
		{name: "zero queue", mutate: func(c *Config) { c.Processor.QueueCapacity = 0 }, wantErr: "processor.queue_capacity"},
		{name: "negative threshold", mutate: func(c *Config) { c.Processor.SlowThreshold = -time.Second }, wantErr: "processor.slow_threshold"},
		{name: "negative ttl", mutate: func(c *Config) { c.Cache.TTL = -time.Second }, wantErr: "cache.ttl"},
		{name: "zero ttl disables cache", mutate: func(c *Config) { c.Cache.TTL = 0 }},
		{name: "missing addr", mutate: func(c *Config) { c.Server.Addr = "" }, wantErr: "server.addr"},
		{name: "redis without stream", mutate: func(c *Config) {
			c.Events.RedisAddr = "localhost:6379"
			c.Events.RedisStream = ""
		}, wantErr: "events.redis_stream"},
		{name: "negative max len", mutate: func(c *Config) { c.Events.RedisMaxLen = -1 }, wantErr: "events.redis_max_len"},
		{name: "sample rate too high", mutate: func(c *Config) { c.Tracing.SampleRate = 1.5 }, wantErr: "tracing.sample_rate"},
		{name: "bad exporter", mutate: func(c *Config) { c.Tracing.Exporter = "jaeger" }, wantErr: "tracing.exporter"},
		{name: "otlp without endpoint", mutate: func(c *Config) {
			c.Tracing = TracingConfig{Enabled: true, Exporter: "otlp", SampleRate: 1}
		}, wantErr: "tracing.otlp_endpoint"},
		{name: "disabled otlp without endpoint", mutate: func(c *Config) {
			c.Tracing = TracingConfig{Exporter: "otlp"}
		}},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(&c)
			err := Validate(c)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func loadWithViper(t *testing.T, path string) Config {
	t.Helper()
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return cfg
}

func TestWriteDefaultConfig_RoundTripsThroughViper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# Kitties Configuration")
	require.Contains(t, string(data), "# Simulated block host")
	require.Contains(t, string(data), "slow_threshold: 100ms")

	require.Equal(t, Defaults(), loadWithViper(t, path))
}

func TestSetValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	require.NoError(t, SetValue(path, "chain.block_size", "32"))
	require.NoError(t, SetValue(path, "events.redis_addr", "localhost:6379"))
	require.NoError(t, SetValue(path, "tracing.enabled", "true"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# Simulated block host", "comments survive edits")

	cfg := loadWithViper(t, path)
	require.Equal(t, uint32(32), cfg.Chain.BlockSize)
	require.Equal(t, "localhost:6379", cfg.Events.RedisAddr)
	require.True(t, cfg.Tracing.Enabled)
	require.Equal(t, Defaults().Storage, cfg.Storage)
}

func TestSetValue_NewFileAndSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, SetValue(path, "server.addr", "0.0.0.0:9000"))

	cfg := loadWithViper(t, path)
	require.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
}

func TestSetValue_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	require.ErrorContains(t, SetValue(path, "chain", "x"), "is a section")
	require.ErrorContains(t, SetValue(path, "chain.block_size.inner", "x"), "is not a section")
	require.ErrorContains(t, SetValue(path, "chain..block_size", "x"), "invalid config key")

	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o600))
	require.ErrorContains(t, SetValue(path, "a", "b"), "mapping")
}
