package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/briefops/comms-intel/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "comms-intel",
	Short: "Bulk communication intelligence aggregation",
	Long:  "Loads communication records, analyzes them in batches via Claude with a deterministic heuristic fallback, and emits one aggregated intelligence report.",
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
