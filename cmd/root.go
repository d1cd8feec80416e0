package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vnrates/ratecrawl/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ratecrawl",
	Short: "Scheduled crawler for Vietnamese financial rate data",
	Long:  "Fetches FX rates, interbank offered rates, and stock margin room from public sources and upserts timestamped rows into Postgres or SQLite.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
