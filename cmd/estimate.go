package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/briefops/comms-intel/internal/cost"
	"github.com/briefops/comms-intel/internal/ingest"
)

var (
	estimateInput     string
	estimateBatchSize int
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate model spend for an input file without calling the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := ingest.LoadRecords(estimateInput)
		if err != nil {
			return err
		}

		batchSize := cfg.Pipeline.BatchSize
		if estimateBatchSize > 0 {
			batchSize = estimateBatchSize
		}

		calc := cost.NewCalculator(cost.DefaultRates())
		est := calc.EstimateRun(records, batchSize, cfg.Anthropic.Model)
		if est.USD == 0 && est.Records > 0 {
			zap.L().Warn("no rate on file for model, cost reported as zero",
				zap.String("model", cfg.Anthropic.Model))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(est)
	},
}

func init() {
	estimateCmd.Flags().StringVar(&estimateInput, "input", "", "records file, .json or .xlsx (required)")
	estimateCmd.Flags().IntVar(&estimateBatchSize, "batch-size", 0, "records per analysis batch (default from config)")
	_ = estimateCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(estimateCmd)
}
