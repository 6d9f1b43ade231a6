package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/briefops/comms-intel/internal/config"
	"github.com/briefops/comms-intel/internal/model"
	"github.com/briefops/comms-intel/internal/resilience"
	"github.com/briefops/comms-intel/pkg/anthropic"
)

const analysisSystemPrompt = `You are a communications intelligence analyst. You receive a batch of workplace communications (emails and project updates) as JSON and extract structured insights.

Respond with a single valid JSON object, no prose and no markdown fences, in exactly this shape:
{
  "insights": [{"id": "<string>", "topic": "<string>", "description": "<string>", "urgency": "high|medium|low", "priority": "high|medium|low", "frequency": <int>, "sentiment": "positive|negative|neutral", "confidence": <0-100>}],
  "trendingTopics": [{"topic": "<string>", "frequency": <int>, "urgency": "high|medium|low", "sentiment": "positive|negative|neutral", "description": "<string>"}],
  "keyFindings": ["<string>"],
  "executiveSummary": "<string>",
  "sentimentBreakdown": {"positive": <int>, "negative": <int>, "neutral": <int>}
}

Rules:
- Identify up to 5 insights and up to 5 trending topics actually supported by the batch.
- frequency counts how many communications in this batch support the item.
- sentimentBreakdown classifies every communication in the batch exactly once.
- Do not invent facts absent from the batch.`

const analysisUserPrompt = `Analysis context:
%s

Communications batch (%d records):
%s`

// maxBodyChars bounds how much body text each record contributes to the
// prompt.
const maxBodyChars = 500

// recordPayload is the wire projection of one Record for the model prompt.
type recordPayload struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Body    string `json:"body,omitempty"`
	Source  string `json:"source"`
	Agent   string `json:"agent,omitempty"`
	Date    string `json:"date,omitempty"`
	Status  string `json:"status,omitempty"`
}

// AnalyzedBatch pairs one batch's result with its position and provenance.
// Index is the batch's position in the original split; aggregation joins
// on it so concurrent analysis cannot reorder output.
type AnalyzedBatch struct {
	Index    int
	Result   model.BatchResult
	Usage    model.TokenUsage
	Fallback bool
}

// BatchAnalyzer analyzes one batch of records at a time. It tries the
// language model first and degrades to the heuristic analyzer on any
// failure: transport errors, an open circuit, malformed responses, or
// responses that fail validation. Analyze never returns an error.
type BatchAnalyzer struct {
	client   anthropic.Client
	cfg      config.AnthropicConfig
	limiter  *rate.Limiter
	breaker  *resilience.CircuitBreaker
	retry    resilience.RetryConfig
	fallback *FallbackAnalyzer
	disabled bool
	system   []anthropic.SystemBlock
}

// NewBatchAnalyzer wires an analyzer from configuration. A nil client or
// pipeline.disable_llm sends every batch straight to the heuristic path.
func NewBatchAnalyzer(client anthropic.Client, aiCfg config.AnthropicConfig, pipeCfg config.PipelineConfig, fallback *FallbackAnalyzer) *BatchAnalyzer {
	var limiter *rate.Limiter
	if pipeCfg.RateLimitPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(pipeCfg.RateLimitPerSec), 1)
	}

	breakerCfg := resilience.DefaultCircuitBreakerConfig()
	if pipeCfg.BreakerThreshold > 0 {
		breakerCfg.FailureThreshold = pipeCfg.BreakerThreshold
	}
	breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("pipeline: analysis circuit state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	retryCfg := resilience.DefaultRetryConfig()
	if pipeCfg.RetryAttempts > 0 {
		retryCfg.MaxAttempts = pipeCfg.RetryAttempts
	}
	retryCfg.ShouldRetry = shouldRetryAnalysis
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", "analyze_batch")

	return &BatchAnalyzer{
		client:   client,
		cfg:      aiCfg,
		limiter:  limiter,
		breaker:  resilience.NewCircuitBreaker(breakerCfg),
		retry:    retryCfg,
		fallback: fallback,
		disabled: pipeCfg.DisableLLM || client == nil,
		system:   anthropic.BuildCachedSystemBlocks(analysisSystemPrompt),
	}
}

// shouldRetryAnalysis retries on transient transport failures and on the
// retryable HTTP statuses the API reports (429, 5xx). Validation and
// parse failures are not retried; they fall through to the heuristic.
func shouldRetryAnalysis(err error) bool {
	if code, ok := anthropic.StatusCode(err); ok {
		return resilience.IsTransientHTTPStatus(code)
	}
	return resilience.IsTransient(err)
}

// Analyze produces a BatchResult for one batch. The result always covers
// the full batch: if the model path fails for any reason the heuristic
// analyzer covers the same records instead.
func (b *BatchAnalyzer) Analyze(ctx context.Context, index int, batch []model.Record, actx model.AnalysisContext) AnalyzedBatch {
	if b.disabled {
		return AnalyzedBatch{Index: index, Result: b.fallback.Analyze(batch), Fallback: true}
	}

	result, usage, err := b.analyzeModel(ctx, batch, actx)
	if err != nil {
		zap.L().Warn("pipeline: batch degraded to heuristic analysis",
			zap.Int("batch", index),
			zap.Int("records", len(batch)),
			zap.Error(err),
		)
		return AnalyzedBatch{
			Index:    index,
			Result:   b.fallback.Analyze(batch),
			Usage:    usage,
			Fallback: true,
		}
	}
	return AnalyzedBatch{Index: index, Result: result, Usage: usage}
}

func (b *BatchAnalyzer) analyzeModel(ctx context.Context, batch []model.Record, actx model.AnalysisContext) (model.BatchResult, model.TokenUsage, error) {
	var zero model.BatchResult
	var usage model.TokenUsage

	prompt, err := buildAnalysisPrompt(batch, actx)
	if err != nil {
		return zero, usage, err
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return zero, usage, eris.Wrap(err, "pipeline: rate limiter wait")
		}
	}

	temp := b.cfg.Temperature
	req := anthropic.MessageRequest{
		Model:       b.cfg.Model,
		MaxTokens:   int64(b.cfg.MaxTokens),
		System:      b.system,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	}

	resp, err := resilience.ExecuteVal(ctx, b.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.DoVal(ctx, b.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return b.client.CreateMessage(ctx, req)
		})
	})
	if err != nil {
		return zero, usage, eris.Wrap(err, "pipeline: create message")
	}

	usage = usageFromResponse(resp, b.cfg.Model)

	raw := cleanJSON(extractText(resp))
	var payload batchResultPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return zero, usage, eris.Wrap(err, "pipeline: parse analysis response")
	}

	result, err := payload.toBatchResult(len(batch))
	if err != nil {
		return zero, usage, err
	}
	return result, usage, nil
}

func buildAnalysisPrompt(batch []model.Record, actx model.AnalysisContext) (string, error) {
	payloads := make([]recordPayload, 0, len(batch))
	for _, r := range batch {
		body := r.BodyText()
		if len(body) > maxBodyChars {
			body = body[:maxBodyChars]
		}
		p := recordPayload{
			ID:      r.ID,
			Subject: r.DisplayTitle(),
			Sender:  r.SenderID(),
			Body:    body,
			Source:  string(r.Source),
			Agent:   r.Agent,
			Status:  r.Status,
		}
		if r.Date != nil {
			p.Date = r.Date.Format("2006-01-02")
		}
		payloads = append(payloads, p)
	}

	records, err := json.Marshal(payloads)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: marshal batch payload")
	}
	contextJSON, err := json.Marshal(actx)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: marshal analysis context")
	}
	return fmt.Sprintf(analysisUserPrompt, contextJSON, len(batch), records), nil
}

// batchResultPayload mirrors the expected response JSON with loose enum
// strings, validated and normalized before becoming a BatchResult.
type batchResultPayload struct {
	Insights []struct {
		ID          string `json:"id"`
		Topic       string `json:"topic"`
		Description string `json:"description"`
		Urgency     string `json:"urgency"`
		Priority    string `json:"priority"`
		Frequency   int    `json:"frequency"`
		Sentiment   string `json:"sentiment"`
		Confidence  int    `json:"confidence"`
	} `json:"insights"`
	TrendingTopics []struct {
		Topic       string `json:"topic"`
		Frequency   int    `json:"frequency"`
		Urgency     string `json:"urgency"`
		Sentiment   string `json:"sentiment"`
		Description string `json:"description"`
	} `json:"trendingTopics"`
	KeyFindings []string `json:"keyFindings"`
	// ExecutiveSummary arrives per batch but the aggregator derives the
	// report-level summary itself, so it is accepted and dropped.
	ExecutiveSummary   string `json:"executiveSummary"`
	SentimentBreakdown struct {
		Positive int `json:"positive"`
		Negative int `json:"negative"`
		Neutral  int `json:"neutral"`
	} `json:"sentimentBreakdown"`
}

func (p batchResultPayload) toBatchResult(batchSize int) (model.BatchResult, error) {
	var zero model.BatchResult

	if len(p.Insights) == 0 && len(p.TrendingTopics) == 0 && len(p.KeyFindings) == 0 {
		return zero, eris.New("pipeline: analysis response carries no content")
	}
	if p.SentimentBreakdown.Positive < 0 || p.SentimentBreakdown.Negative < 0 || p.SentimentBreakdown.Neutral < 0 {
		return zero, eris.New("pipeline: negative sentiment count in analysis response")
	}
	total := p.SentimentBreakdown.Positive + p.SentimentBreakdown.Negative + p.SentimentBreakdown.Neutral
	if total > batchSize {
		return zero, eris.Errorf("pipeline: sentiment breakdown covers %d records, batch has %d", total, batchSize)
	}

	result := model.BatchResult{
		SentimentBreakdown: model.SentimentBreakdown{
			Positive: p.SentimentBreakdown.Positive,
			Negative: p.SentimentBreakdown.Negative,
			Neutral:  p.SentimentBreakdown.Neutral,
		},
	}

	for i, in := range p.Insights {
		if strings.TrimSpace(in.Topic) == "" {
			return zero, eris.Errorf("pipeline: insight %d has no topic", i)
		}
		if in.Frequency < 0 {
			return zero, eris.Errorf("pipeline: insight %d has negative frequency", i)
		}
		if in.Confidence < 0 || in.Confidence > 100 {
			return zero, eris.Errorf("pipeline: insight %d confidence %d out of range", i, in.Confidence)
		}
		id := strings.TrimSpace(in.ID)
		if id == "" {
			id = fmt.Sprintf("insight-%d", i+1)
		}
		result.Insights = append(result.Insights, model.Insight{
			ID:          id,
			Topic:       strings.TrimSpace(in.Topic),
			Description: strings.TrimSpace(in.Description),
			Urgency:     model.ParseUrgency(in.Urgency),
			Priority:    model.ParsePriority(in.Priority),
			Frequency:   in.Frequency,
			Sentiment:   model.ParseSentiment(in.Sentiment),
			Confidence:  in.Confidence,
		})
	}

	for i, tp := range p.TrendingTopics {
		if strings.TrimSpace(tp.Topic) == "" {
			return zero, eris.Errorf("pipeline: trending topic %d has no name", i)
		}
		if tp.Frequency < 0 {
			return zero, eris.Errorf("pipeline: trending topic %d has negative frequency", i)
		}
		result.TrendingTopics = append(result.TrendingTopics, model.TrendingTopic{
			Topic:       strings.TrimSpace(tp.Topic),
			Frequency:   tp.Frequency,
			Urgency:     model.ParseUrgency(tp.Urgency),
			Sentiment:   model.ParseSentiment(tp.Sentiment),
			Description: strings.TrimSpace(tp.Description),
		})
	}

	for _, f := range p.KeyFindings {
		if f = strings.TrimSpace(f); f != "" {
			result.KeyFindings = append(result.KeyFindings, f)
		}
	}

	return result, nil
}

func usageFromResponse(resp *anthropic.MessageResponse, modelID string) model.TokenUsage {
	if resp == nil {
		return model.TokenUsage{}
	}
	return model.TokenUsage{
		InputTokens:         int(resp.Usage.InputTokens),
		OutputTokens:        int(resp.Usage.OutputTokens),
		CacheCreationTokens: int(resp.Usage.CacheCreationInputTokens),
		CacheReadTokens:     int(resp.Usage.CacheReadInputTokens),
		Cost:                resp.Usage.EstimateCost(modelID),
	}
}

// extractText concatenates text content blocks from a response.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
