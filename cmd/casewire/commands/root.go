package commands

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/caseboard/casewire/internal/api"
	"github.com/caseboard/casewire/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "casewire",
	Short: "Client for the caseboard investigation backend",
	Long: `casewire is the data-plane client for the caseboard backend:
it uploads investigation snapshots (chunked when they exceed the
transport's payload ceiling), follows entity-similarity scan progress
streams, and filters exported records with boolean search queries.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config/casewire.toml", "Path to config file")

	rootCmd.AddCommand(NewSaveCmd())
	rootCmd.AddCommand(NewScanCmd())
	rootCmd.AddCommand(NewFilterCmd())
}

// loadConfig loads .env, the config file if present, and env overrides.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	return config.LoadOrDefault(cfgPath)
}

func newClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.API.BaseURL, cfg.API.Token, time.Duration(cfg.API.TimeoutSeconds)*time.Second)
}
