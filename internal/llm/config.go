// Package llm provides the language-model client used for chapter drafting
// and quality review, behind a provider-neutral interface.
package llm

// ModelTier selects a model by the kind of work a stage needs.
type ModelTier string

const (
	// TierDrafting is for long-form creative generation (chapter drafts,
	// revisions). Runs at a high temperature.
	TierDrafting ModelTier = "drafting"
	// TierReview is for structured judgment: quality verdicts, feedback.
	// Runs at a low temperature for consistent output.
	TierReview ModelTier = "review"
)

// Provider identifies an LLM provider.
type Provider string

const (
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini Provider = "gemini"
)

// Config holds the model configuration for the pipeline.
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
}

// DefaultConfig returns the default Gemini configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierDrafting: "gemini-2.5-pro",
			TierReview:   "gemini-2.5-flash",
		},
	}
}

// GetModel returns the model name for a tier, falling back to the review
// model when a tier is unconfigured.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierReview]; ok {
		return model
	}
	return ""
}

// temperature returns the sampling temperature for a tier.
func temperature(tier ModelTier) float32 {
	if tier == TierDrafting {
		return 0.9
	}
	return 0.1
}
