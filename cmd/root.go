package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/kitties/internal/config"
	"github.com/zjrosen/kitties/internal/log"
	"github.com/zjrosen/kitties/internal/render"
)

const (
	envPrefix         = "KITTIES"
	localConfigPath   = ".kitties/config.yaml"
	defaultDebugLog   = "debug.log"
	annotationNoCheck = "skip-validate"
)

var (
	version    = "dev"
	cfgFile    string
	debugFlag  bool
	cfg        config.Config
	logCleanup func()
)

var rootCmd = &cobra.Command{
	Use:   "kitties",
	Short: "A deterministic kitty registry",
	Long: `kitties keeps a registry of collectible kitties. Every kitty has an id, an
owner and a genome derived from block entropy. Kitties can be created,
transferred and bred; every change is journaled as an event.`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .kitties/config.yaml, then ~/.config/kitties/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write a debug log (also KITTIES_DEBUG, path from KITTIES_LOG)")
	rootCmd.PersistentFlags().String("db", "",
		"ledger database path (overrides storage.path)")
}

func initConfig() {
	// A missing .env is normal.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: ignoring .env: %v\n", err)
	}

	setDefaults(config.Defaults())
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlag("storage.path", rootCmd.PersistentFlags().Lookup("db"))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .kitties/config.yaml (current directory)
		// 2. ~/.config/kitties/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "kitties"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// No config anywhere: create the local default and read it back.
			if writeErr := config.WriteDefaultConfig(localConfigPath); writeErr == nil {
				viper.SetConfigFile(localConfigPath)
				_ = viper.ReadInConfig()
			}
		}
	}

	cfg = config.Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: config: %v\n", err)
		cfg = config.Defaults()
	}
}

// setDefaults registers every key so env overrides reach Unmarshal.
func setDefaults(d config.Config) {
	defaults := map[string]any{
		"storage.driver":           d.Storage.Driver,
		"storage.path":             d.Storage.Path,
		"ledger.max_kitty_id":      d.Ledger.MaxKittyID,
		"chain.genesis_seed":       d.Chain.GenesisSeed,
		"chain.block_size":         d.Chain.BlockSize,
		"processor.queue_capacity": d.Processor.QueueCapacity,
		"processor.slow_threshold": d.Processor.SlowThreshold,
		"cache.ttl":                d.Cache.TTL,
		"server.addr":              d.Server.Addr,
		"server.shutdown_timeout":  d.Server.ShutdownTimeout,
		"events.redis_addr":        d.Events.RedisAddr,
		"events.redis_stream":      d.Events.RedisStream,
		"events.redis_max_len":     d.Events.RedisMaxLen,
		"tracing.enabled":          d.Tracing.Enabled,
		"tracing.exporter":         d.Tracing.Exporter,
		"tracing.file_path":        d.Tracing.FilePath,
		"tracing.otlp_endpoint":    d.Tracing.OTLPEndpoint,
		"tracing.sample_rate":      d.Tracing.SampleRate,
		"tracing.service_name":     d.Tracing.ServiceName,
		"log.level":                d.Log.Level,
	}
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

// setup starts debug logging and validates the loaded configuration.
func setup(cmd *cobra.Command, _ []string) error {
	if err := initLogging(); err != nil {
		return err
	}
	if cmd.Annotations[annotationNoCheck] == "true" {
		return nil
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func initLogging() error {
	if !debugFlag && os.Getenv(envPrefix+"_DEBUG") == "" {
		return nil
	}
	logPath := os.Getenv(envPrefix + "_LOG")
	if logPath == "" {
		logPath = defaultDebugLog
	}

	cleanup, err := log.Init(logPath)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	logCleanup = cleanup

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log.SetMinLevel(level)
	log.Info(log.CatConfig, "kitties starting", "version", version,
		"config", viper.ConfigFileUsed(), "log_path", logPath)
	return nil
}

// Execute runs the root command and prints a failure line on error.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), render.Failure(err))
	}
	if logCleanup != nil {
		logCleanup()
		logCleanup = nil
	}
	return err
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
