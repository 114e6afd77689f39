package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyfield-labs/co2scan/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "co2scan",
	Short: "Satellite CO2 anomaly extraction pipeline",
	Long:  "Downloads satellite CO2 observation granules, bins soundings onto a per-file grid, ranks the highest-concentration cells globally, and serves the anomalies with LLM-generated explanations.",
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
