// racehub coordinates multiplayer race sessions over websockets.
//
// Usage:
//
//	racehub serve            - Run the race coordinator and websocket server
//	racehub results          - Browse recorded races
//	racehub config           - Print the effective configuration
//
// Global flags:
//
//	--config <path>  - Configuration file (default: search ~/.racehub, ./configs)
//	--db <path>      - Override the results database path
//	--env <path>     - Environment file to load before applying overrides
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/racehub/internal/config"
)

var (
	// Global flags
	flagConfigPath string
	flagDBPath     string
	flagEnvFile    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "racehub",
	Short: "racehub - multiplayer race session server",
	Long: `racehub runs a single shared race session: players join a lobby over
websockets, the host picks the number of rounds and starts the race, and
everyone receives the standings when all racers have finished.

Available commands:
  serve    - Run the coordinator and websocket server
  results  - Browse recorded races and the leaderboard
  config   - Print the effective configuration

Examples:
  racehub serve
  racehub serve --addr :9000 --ssh :2222
  racehub results --plain
  racehub config --config ./configs/racehub.yaml`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to results database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env", ".env", "Environment file to load")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig resolves the effective configuration: file, then environment,
// then command-line overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadEnvFile(flagEnvFile); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	config.ApplyEnv(&cfg)

	if cmd.Flags().Changed("db") {
		cfg.Storage.DBPath = flagDBPath
	}
	return cfg, nil
}
