package app

// ModelPricing gives USD per 1,000,000 tokens for each token category.
// Reasoning tokens are already included in the output count upstream and
// carry no separate price.
type ModelPricing struct {
	Input  float64
	Output float64
	Cached float64
}

// Pricing maps a reasoning-tier label to its price row and the upstream
// provider model it resolves to.
type Pricing struct {
	rows     map[string]ModelPricing
	models   map[string]string
	fallback string
}

// DefaultPricing returns the shipped pricing table. Labels are reasoning
// tiers, not literal provider model ids.
func DefaultPricing() *Pricing {
	return &Pricing{
		rows: map[string]ModelPricing{
			"low":    {Input: 0.05, Output: 0.40, Cached: 0.005},
			"medium": {Input: 0.25, Output: 2.00, Cached: 0.025},
			"high":   {Input: 1.25, Output: 10.00, Cached: 0.125},
		},
		models: map[string]string{
			"low":    "gpt-4.1-nano",
			"medium": "gpt-4.1-mini",
			"high":   "o4-mini",
		},
		fallback: "low",
	}
}

// Row returns the price row for a label, falling back to the lowest tier so
// metering never blocks on a pricing-table miss.
func (p *Pricing) Row(model string) ModelPricing {
	if row, ok := p.rows[model]; ok {
		return row
	}
	return p.rows[p.fallback]
}

// UpstreamModel maps a reasoning label to the provider model id sent to the
// gateway. Unknown labels resolve like Row does.
func (p *Pricing) UpstreamModel(label string) string {
	if m, ok := p.models[label]; ok {
		return m
	}
	return p.models[p.fallback]
}

// ComputeCost prices a token-usage breakdown. Cached tokens are a discounted
// subset of input tokens; the regular-input count is clamped at zero in case
// the caller omitted the cached count.
func (p *Pricing) ComputeCost(model string, inputTokens, outputTokens, cachedTokens int) float64 {
	row := p.Row(model)

	regularInput := inputTokens - cachedTokens
	if regularInput < 0 {
		regularInput = 0
	}

	return float64(regularInput)*row.Input/1e6 +
		float64(cachedTokens)*row.Cached/1e6 +
		float64(outputTokens)*row.Output/1e6
}
