package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefops/comms-intel/internal/config"
	"github.com/briefops/comms-intel/internal/model"
	"github.com/briefops/comms-intel/pkg/anthropic"
)

func testPipelineConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			Model:       "claude-haiku-4-5-20251001",
			MaxTokens:   1500,
			Temperature: 0.2,
		},
		Pipeline: config.PipelineConfig{
			BatchSize:        10,
			RetryAttempts:    1,
			BreakerThreshold: 5,
		},
		Fallback: config.FallbackConfig{PositiveRatio: 0.4, NegativeRatio: 0.1},
	}
}

func TestPipelineRun_EmptyInput(t *testing.T) {
	client := &mockClient{fn: func(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		t.Fatal("no model calls expected for empty input")
		return nil, nil
	}}
	p := New(testPipelineConfig(), client)

	report := p.Run(context.Background(), nil, model.AnalysisContext{})
	require.NotNil(t, report)
	assert.Equal(t, "No data available for intelligence analysis", report.ExecutiveSummary)
	assert.Equal(t, 0, client.callCount())
}

func TestPipelineRun_BatchesByConfiguredSize(t *testing.T) {
	client := &mockClient{fn: func(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse(validAnalysisJSON, 100, 50), nil
	}}
	p := New(testPipelineConfig(), client)

	report := p.Run(context.Background(), makeRecords(12), model.AnalysisContext{InstanceName: "acme"})

	assert.Equal(t, 2, client.callCount(), "12 records at size 10 is two batches")
	assert.Equal(t, 12, report.Metrics.EmailVolume)
	require.NotEmpty(t, report.TrendingTopics)
	assert.Equal(t, "Support", report.TrendingTopics[0].Topic)
	assert.Equal(t, 6, report.TrendingTopics[0].Frequency, "per-batch topics merge by summing")
}

func TestPipelineRun_PartialFailureLosesNothing(t *testing.T) {
	client := &mockClient{}
	client.fn = func(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		if client.callCount() == 2 {
			return nil, eris.New("api blew up mid-run")
		}
		return textResponse(validAnalysisJSON, 100, 50), nil
	}
	p := New(testPipelineConfig(), client)

	records := makeRecords(12)
	for i := range records {
		records[i].Sender = fmt.Sprintf("sender%d@x", i)
	}
	report := p.Run(context.Background(), records, model.AnalysisContext{})

	require.NotNil(t, report)
	assert.Equal(t, 12, report.Metrics.EmailVolume)
	total := 0
	for _, n := range report.SourceBreakdown {
		total += n
	}
	assert.Equal(t, 12, total, "the failed batch is covered by the heuristic")
	assert.Equal(t, 12, report.Metrics.ParticipationRate)
}

func TestPipelineRun_ConcurrentJoinsByBatchIndex(t *testing.T) {
	// Each response names the first record of its batch so the final topic
	// order proves results joined by batch index, not completion order.
	client := &mockClient{fn: func(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		first := "unknown"
		for _, id := range []string{`"id":"r0"`, `"id":"r10"`, `"id":"r20"`} {
			if strings.Contains(req.Messages[0].Content, id) {
				first = strings.Trim(strings.TrimPrefix(id, `"id":`), `"`)
				break
			}
		}
		body := fmt.Sprintf(`{"insights":[],"trendingTopics":[{"topic":"Chunk-%s","frequency":1,"urgency":"low","sentiment":"neutral","description":"d"}],"keyFindings":["finding %s"],"sentimentBreakdown":{"positive":0,"negative":0,"neutral":1}}`, first, first)
		return textResponse(body, 10, 10), nil
	}}

	cfg := testPipelineConfig()
	cfg.Pipeline.MaxConcurrentBatches = 3
	p := New(cfg, client)

	report := p.Run(context.Background(), makeRecords(30), model.AnalysisContext{})

	assert.Equal(t, 3, client.callCount())
	require.Len(t, report.TrendingTopics, 3)
	assert.Equal(t, "Chunk-r0", report.TrendingTopics[0].Topic)
	assert.Equal(t, "Chunk-r10", report.TrendingTopics[1].Topic)
	assert.Equal(t, "Chunk-r20", report.TrendingTopics[2].Topic)
}

func TestPipelineRun_DisableLLM(t *testing.T) {
	client := &mockClient{fn: func(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		t.Fatal("model disabled")
		return nil, nil
	}}
	cfg := testPipelineConfig()
	cfg.Pipeline.DisableLLM = true
	p := New(cfg, client)

	records := deadlineBatch(5)
	report := p.Run(context.Background(), records, model.AnalysisContext{})

	assert.Equal(t, 0, client.callCount())
	require.NotEmpty(t, report.TrendingTopics)
	assert.Equal(t, "Deadline", report.TrendingTopics[0].Topic)
	assert.Equal(t, 5, report.TrendingTopics[0].Frequency)
	assert.Equal(t, model.UrgencyHigh, report.TrendingTopics[0].Urgency)
}
