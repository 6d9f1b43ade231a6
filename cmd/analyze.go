package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/briefops/comms-intel/internal/ingest"
	"github.com/briefops/comms-intel/internal/model"
	"github.com/briefops/comms-intel/internal/pipeline"
	anthropicpkg "github.com/briefops/comms-intel/pkg/anthropic"
)

var (
	analyzeInput        string
	analyzeInstanceID   int64
	analyzeInstanceName string
	analyzePeriod       string
	analyzeAgent        string
	analyzeBatchSize    int
	analyzeNoLLM        bool
	analyzeFormat       string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a communications export and emit an intelligence report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeFormat != "json" && analyzeFormat != "markdown" {
			return eris.Errorf("unknown format %q (want json or markdown)", analyzeFormat)
		}

		records, err := ingest.LoadRecords(analyzeInput)
		if err != nil {
			return err
		}
		zap.L().Info("records loaded",
			zap.String("input", analyzeInput),
			zap.Int("records", len(records)),
		)

		if analyzeBatchSize > 0 {
			cfg.Pipeline.BatchSize = analyzeBatchSize
		}
		if analyzeNoLLM {
			cfg.Pipeline.DisableLLM = true
		}

		var client anthropicpkg.Client
		if !cfg.Pipeline.DisableLLM {
			if cfg.Anthropic.Key == "" {
				zap.L().Warn("no anthropic key configured, falling back to heuristic analysis")
				cfg.Pipeline.DisableLLM = true
			} else {
				client = anthropicpkg.NewClient(cfg.Anthropic.Key)
			}
		}

		actx := model.AnalysisContext{
			InstanceID:   analyzeInstanceID,
			InstanceName: analyzeInstanceName,
			Period:       analyzePeriod,
			AgentID:      analyzeAgent,
		}

		p := pipeline.New(cfg, client)
		report := p.Run(cmd.Context(), records, actx)

		if analyzeFormat == "markdown" {
			_, err := os.Stdout.WriteString(pipeline.FormatReport(report, actx))
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "records file, .json or .xlsx (required)")
	analyzeCmd.Flags().Int64Var(&analyzeInstanceID, "instance-id", 0, "workspace instance ID")
	analyzeCmd.Flags().StringVar(&analyzeInstanceName, "instance-name", "", "workspace instance name")
	analyzeCmd.Flags().StringVar(&analyzePeriod, "period", "", "reporting period label, e.g. 7d")
	analyzeCmd.Flags().StringVar(&analyzeAgent, "agent", "", "agent identifier for the run")
	analyzeCmd.Flags().IntVar(&analyzeBatchSize, "batch-size", 0, "records per analysis batch (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeNoLLM, "no-llm", false, "skip the model and use heuristic analysis only")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "output format: json or markdown")
	_ = analyzeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(analyzeCmd)
}
