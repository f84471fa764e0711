package pipeline

import (
	"time"

	"github.com/teranos/htsmatch/ai/anthropic"
)

// Per-product assumptions used by Estimate.
const (
	EstimatedInputTokens  = 400
	EstimatedOutputTokens = 150
	EstimatedCallTime     = 500 * time.Millisecond
)

// Estimation is the projected cost and wall time of classifying Products.
type Estimation struct {
	Products     int
	Model        string
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
	Duration     time.Duration
}

// Estimate projects a run of n products with cfg's pacing.
func Estimate(n int, model string, cfg Config) Estimation {
	if n < 0 {
		n = 0
	}
	size := max(cfg.BatchSize, 1)
	pauses := max(batchCount(n, size)-1, 0)

	return Estimation{
		Products:     n,
		Model:        model,
		InputTokens:  int64(n) * EstimatedInputTokens,
		OutputTokens: int64(n) * EstimatedOutputTokens,
		CostUSD:      float64(n) * anthropic.CalculateCost(model, EstimatedInputTokens, EstimatedOutputTokens),
		Duration:     time.Duration(n)*(cfg.ItemDelay+EstimatedCallTime) + time.Duration(pauses)*cfg.BatchDelay,
	}
}
