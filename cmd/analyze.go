package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyfield-labs/co2scan/internal/analyze"
)

var (
	analyzeDataDir string
	analyzeOutput  string
	analyzeStrict  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Extract the top CO2 anomalies from downloaded granules",
	Long:  "Bins every granule's soundings onto a 1° grid derived from that file's own extent, averages each cell, keeps each file's top cells, and merges them into the global top anomalies as GeoJSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		dataDir := cfg.Archive.DataDir
		if analyzeDataDir != "" {
			dataDir = analyzeDataDir
		}
		output := cfg.Analyze.Output
		if analyzeOutput != "" {
			output = analyzeOutput
		}

		res, err := analyze.Run(cmd.Context(), dataDir, analyze.Options{
			CellSize:    cfg.Grid.CellSize,
			TopN:        cfg.Grid.TopN,
			Concurrency: cfg.Analyze.Concurrency,
			Strict:      analyzeStrict,
		})
		if err != nil {
			return err
		}

		if err := analyze.WriteGeoJSON(res, output); err != nil {
			return err
		}

		zap.L().Info("analyze complete",
			zap.String("output", output),
			zap.Int("files", res.Files),
			zap.Int("skipped", res.Skipped),
			zap.Int("anomalies", len(res.Candidates)),
		)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeDataDir, "data-dir", "", "granule directory (default from config)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "output GeoJSON path (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeStrict, "strict", false, "abort on the first unreadable granule instead of skipping it")
	rootCmd.AddCommand(analyzeCmd)
}
