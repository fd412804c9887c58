package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/kitties/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the kitties config file",
	// Config commands must work on a config that does not validate yet.
	Annotations: map[string]string{annotationNoCheck: "true"},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default config file",
	Long: `Write the default configuration to the --config path, or to
.kitties/config.yaml when none is given. An existing file is kept unless
--force is set.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoCheck: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath()
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return err
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one config value, keeping comments",
	Long: `Set a dotted key in the config file. The result is validated before it is
written.

Examples:
  kitties config set chain.block_size 32
  kitties config set events.redis_addr localhost:6379`,
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{annotationNoCheck: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if !viper.IsSet(key) {
			return fmt.Errorf("unknown config key %q", key)
		}

		// Validate the effective config with the new value before writing.
		viper.Set(key, value)
		var next config.Config
		if err := viper.Unmarshal(&next); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		if err := config.Validate(next); err != nil {
			return err
		}

		path := configPath()
		if err := config.SetValue(path, key, value); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (%s)\n", key, value, path)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the config file in use",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoCheck: "true"},
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := viper.ConfigFileUsed()
		if path == "" {
			return errors.New("no config file loaded")
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
		return err
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configSetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return localConfigPath
}
