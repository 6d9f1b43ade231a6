// Package pipeline turns raw communication records into an aggregated
// intelligence report. Records are split into batches, each batch is
// analyzed by the language model with a deterministic heuristic standing
// in on any failure, and the per-batch results are merged into one report.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/briefops/comms-intel/internal/config"
	"github.com/briefops/comms-intel/internal/model"
	"github.com/briefops/comms-intel/pkg/anthropic"
)

// Pipeline runs the full batch-analyze-aggregate flow.
type Pipeline struct {
	cfg      *config.Config
	analyzer *BatchAnalyzer
}

// New wires a pipeline from configuration. client may be nil, in which
// case every batch uses the heuristic analyzer.
func New(cfg *config.Config, client anthropic.Client) *Pipeline {
	fallback := NewFallbackAnalyzer(cfg.Fallback.PositiveRatio, cfg.Fallback.NegativeRatio)
	return &Pipeline{
		cfg:      cfg,
		analyzer: NewBatchAnalyzer(client, cfg.Anthropic, cfg.Pipeline, fallback),
	}
}

// Run analyzes all records and returns the final report. It never returns
// an error: failed batches degrade to heuristic analysis, so the report
// always covers every input record. Batches run sequentially unless
// pipeline.max_concurrent_batches is raised; either way results join by
// batch index, so the report is identical for a given set of batch
// outcomes.
func (p *Pipeline) Run(ctx context.Context, records []model.Record, actx model.AnalysisContext) *model.AnalysisReport {
	start := time.Now()
	log := zap.L().With(
		zap.String("run_id", uuid.NewString()),
		zap.String("instance", actx.InstanceName),
		zap.String("period", actx.Period),
	)

	if len(records) == 0 {
		log.Info("pipeline: no records to analyze")
		return BuildEmptyReport()
	}

	batches := SplitBatches(records, p.cfg.Pipeline.BatchSize)
	log.Info("pipeline: starting analysis",
		zap.Int("records", len(records)),
		zap.Int("batches", len(batches)),
		zap.Int("batch_size", p.cfg.Pipeline.BatchSize),
	)

	outcomes := make([]AnalyzedBatch, len(batches))
	if workers := p.cfg.Pipeline.MaxConcurrentBatches; workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, batch := range batches {
			i, batch := i, batch
			g.Go(func() error {
				outcomes[i] = p.analyzer.Analyze(gctx, i, batch, actx)
				return nil
			})
		}
		// Workers never return errors; failures become heuristic results.
		_ = g.Wait()
	} else {
		for i, batch := range batches {
			outcomes[i] = p.analyzer.Analyze(ctx, i, batch, actx)
		}
	}

	results := make([]model.BatchResult, len(outcomes))
	var usage model.TokenUsage
	fallbackBatches := 0
	for i, out := range outcomes {
		results[i] = out.Result
		usage.Add(out.Usage)
		if out.Fallback {
			fallbackBatches++
		}
	}

	report := Aggregate(results, records)

	log.Info("pipeline: run complete",
		zap.Int("batches", len(batches)),
		zap.Int("fallback_batches", fallbackBatches),
		zap.Int("insights", len(report.Insights)),
		zap.Int("trending_topics", len(report.TrendingTopics)),
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
		zap.Float64("cost_usd", usage.Cost),
		zap.Duration("duration", time.Since(start)),
	)
	return report
}
