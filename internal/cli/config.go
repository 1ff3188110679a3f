package cli

import (
	"fmt"

	"github.com/cn1tools/cn1update/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage user settings",
	Long: `Read and write settings stored at ~/.codenameone/config.yaml.

Keys: base_url, skin_base_url, catalog_url, user_agent, refresh_interval,
skin_refresh_interval, lock_stale_after, request_timeout, max_artifact_bytes,
manifest_retries, swap_attempts, swap_initial_delay, swap_max_delay,
swap_settle_delay, verbose. Every key can also be set through the
environment as CN1UPDATE_<KEY>.`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if !config.IsKnownKey(key) {
			return fmt.Errorf("unknown config key %q", key)
		}
		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("setting config key %q: %w", key, err)
		}
		fmt.Printf("Set %s = %s\n", key, value)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := config.Get(args[0])
		fmt.Println(value)
		return nil
	},
}
