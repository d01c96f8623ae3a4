// Package llm provides centralized LLM configuration and client abstractions.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for cheap high-volume calls: free-tier match scoring
	TierLite ModelTier = "lite"
	// TierStandard is for fuller reasoning: premium-tier match scoring
	TierStandard ModelTier = "standard"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	Models   map[ModelTier]string

	// CostPerCallUSD is the estimated cost per scoring call by tier,
	// recorded into match provenance. Estimates, not billing data.
	CostPerCallUSD map[ModelTier]float64
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
		},
		CostPerCallUSD: map[ModelTier]float64{
			TierLite:     0.0004,
			TierStandard: 0.0021,
		},
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// CostForTier returns the estimated per-call cost for a tier.
func (c *Config) CostForTier(tier ModelTier) float64 {
	return c.CostPerCallUSD[tier]
}
