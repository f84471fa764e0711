package anthropic

// Pricing is USD per million tokens.
type Pricing struct {
	Input  float64
	Output float64
}

// Source: https://www.anthropic.com/pricing
var modelPricing = map[string]Pricing{
	"claude-sonnet-4-20250514":   {Input: 3.00, Output: 15.00},
	"claude-opus-4-20250514":     {Input: 15.00, Output: 75.00},
	"claude-3-7-sonnet-20250219": {Input: 3.00, Output: 15.00},
	"claude-3-5-sonnet-20241022": {Input: 3.00, Output: 15.00},
	"claude-3-5-sonnet-latest":   {Input: 3.00, Output: 15.00},
	"claude-3-5-haiku-20241022":  {Input: 0.80, Output: 4.00},
	"claude-3-5-haiku-latest":    {Input: 0.80, Output: 4.00},
	"claude-3-opus-20240229":     {Input: 15.00, Output: 75.00},
	"claude-3-haiku-20240307":    {Input: 0.25, Output: 1.25},
}

// UnknownModelCost is charged per request when the model has no price entry.
const UnknownModelCost = 0.01

// GetPricing returns the price entry for model.
func GetPricing(model string) (Pricing, bool) {
	p, ok := modelPricing[model]
	return p, ok
}

// CalculateCost returns the USD cost of one request.
func CalculateCost(model string, inputTokens, outputTokens int64) float64 {
	p, ok := modelPricing[model]
	if !ok {
		return UnknownModelCost
	}
	return float64(inputTokens)/1e6*p.Input + float64(outputTokens)/1e6*p.Output
}
