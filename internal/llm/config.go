// Package llm provides the generative-inference client abstraction used by
// the model gateway. It supports tier-based model selection so cheap
// classification work and deliberate judging work can run on different models.
package llm

import (
	"context"
	"time"
)

// ModelTier represents the capability level requested for a model call.
type ModelTier string

const (
	// TierFast is for cheap, high-volume calls: clarification analysis,
	// freelancer task execution, self-critique.
	TierFast ModelTier = "fast"
	// TierDeliberate is for calls where judgment quality matters: goal
	// decomposition, winner selection, contract reformulation.
	TierDeliberate ModelTier = "deliberate"
	// TierImage is for image generation.
	TierImage ModelTier = "image"
)

// Config maps model tiers to concrete provider model names and bounds each
// backend call.
type Config struct {
	Models map[ModelTier]string
	// Timeout caps each backend call. Zero leaves the call unbounded.
	Timeout time.Duration
}

// DefaultConfig returns the default Gemini model mapping.
func DefaultConfig() *Config {
	return &Config{
		Models: map[ModelTier]string{
			TierFast:       "gemini-2.5-flash-lite",
			TierDeliberate: "gemini-2.5-pro",
			TierImage:      "gemini-2.0-flash-preview-image-generation",
		},
	}
}

// boundContext applies the configured call timeout to a backend call.
func (c *Config) boundContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.Timeout)
}

// Model returns the model name configured for a tier, falling back to the
// fast tier when the requested tier has no mapping.
func (c *Config) Model(tier ModelTier) string {
	if name, ok := c.Models[tier]; ok {
		return name
	}
	if name, ok := c.Models[TierFast]; ok {
		return name
	}
	return ""
}
