// Package cost predicts what an analysis run will spend before any model
// call is made. Estimates are intentionally rough: token counts come from
// a bytes-per-token heuristic, not a real tokenizer.
package cost

import (
	"github.com/briefops/comms-intel/internal/model"
	"github.com/briefops/comms-intel/internal/pipeline"
)

// ModelRate holds per-model token pricing in dollars per million tokens.
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Rates maps model IDs to their pricing.
type Rates map[string]ModelRate

// DefaultRates returns the published pricing for the models the pipeline
// is configured with.
func DefaultRates() Rates {
	return Rates{
		"claude-haiku-4-5-20251001": {
			Input: 0.80, Output: 4.00,
			CacheWriteMul: 1.25, CacheReadMul: 0.1,
		},
		"claude-sonnet-4-5-20250929": {
			Input: 3.00, Output: 15.00,
			CacheWriteMul: 1.25, CacheReadMul: 0.1,
		},
		"claude-opus-4-6": {
			Input: 15.00, Output: 75.00,
			CacheWriteMul: 1.25, CacheReadMul: 0.1,
		},
	}
}

// Heuristic sizing constants.
const (
	// bytesPerToken approximates English prose tokenization.
	bytesPerToken = 4

	// systemPromptTokens approximates the shared analysis instructions.
	// The first batch writes them to cache; later batches read them.
	systemPromptTokens = 450

	// recordOverheadTokens covers the JSON envelope around each record.
	recordOverheadTokens = 20

	// outputTokensPerBatch approximates a structured batch result.
	outputTokensPerBatch = 600
)

// Estimate is the predicted spend for one run.
type Estimate struct {
	Model        string  `json:"model"`
	Records      int     `json:"records"`
	Batches      int     `json:"batches"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CacheWrite   int     `json:"cache_write_tokens"`
	CacheRead    int     `json:"cache_read_tokens"`
	USD          float64 `json:"usd"`
}

// Calculator prices runs against a rate table.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost of one call in dollars. Unknown models price
// at zero so callers can surface "no rate on file" instead of a guess.
func (c *Calculator) Claude(modelID string, input, output, cacheWrite, cacheRead int) float64 {
	rate, ok := c.rates[modelID]
	if !ok {
		return 0
	}
	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	cwCost := (float64(cacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(cacheRead) / 1e6) * rate.Input * rate.CacheReadMul
	return inCost + outCost + cwCost + crCost
}

// EstimateRun predicts the spend for analyzing records at the given batch
// size with the given model, assuming every batch reaches the model (no
// heuristic fallbacks and no failures).
func (c *Calculator) EstimateRun(records []model.Record, batchSize int, modelID string) Estimate {
	batches := pipeline.SplitBatches(records, batchSize)

	inputTokens := 0
	for _, batch := range batches {
		for _, r := range batch {
			inputTokens += len(r.DisplayTitle())/bytesPerToken + recordOverheadTokens
			body := r.BodyText()
			if len(body) > 500 {
				body = body[:500]
			}
			inputTokens += len(body) / bytesPerToken
		}
	}

	est := Estimate{
		Model:        modelID,
		Records:      len(records),
		Batches:      len(batches),
		InputTokens:  inputTokens,
		OutputTokens: outputTokensPerBatch * len(batches),
	}
	if len(batches) > 0 {
		est.CacheWrite = systemPromptTokens
		est.CacheRead = systemPromptTokens * (len(batches) - 1)
	}
	est.USD = c.Claude(modelID, est.InputTokens, est.OutputTokens, est.CacheWrite, est.CacheRead)
	return est
}
