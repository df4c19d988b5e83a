// Package gateway wraps the generative-inference client with a deterministic
// fingerprint-keyed cache. Identical prompt text always yields the same
// fingerprint and, while the entry is unexpired, the same response. That is
// what makes repeatable operations (contract reformulation, winner selection
// over an unchanged submission set) safe to re-invoke after redelivery
// without burning cost or producing a different outcome.
package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mykola/agora/internal/llm"
)

// DefaultTTL is how long a cached model response stays valid.
const DefaultTTL = 24 * time.Hour

// Cache stores model responses keyed by prompt fingerprint. Entries are
// read-only until expiry.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// MalformedOutputError reports that the backend returned output with no
// parseable structure. Malformed output is never cached; callers decide
// whether to retry with a modified prompt or fall back to a degraded default.
type MalformedOutputError struct {
	Message string
	Raw     string
	Cause   error
}

func (e *MalformedOutputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed model output: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("malformed model output: %s", e.Message)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Cause
}

// Invoker is the capability the marketplace components consume. *Gateway is
// the production implementation; tests substitute scripted fakes.
type Invoker interface {
	InvokeObject(ctx context.Context, prompt string, tier llm.ModelTier, out any) error
	InvokeText(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

// Gateway is the caching wrapper around the generative backend.
type Gateway struct {
	client llm.Client
	cache  Cache
	ttl    time.Duration
}

// New creates a gateway over the given client and cache.
func New(client llm.Client, cache Cache) *Gateway {
	return &Gateway{client: client, cache: cache, ttl: DefaultTTL}
}

// Fingerprint returns the deterministic cache key for exact prompt text.
func Fingerprint(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// InvokeObject calls the backend with the prompt and parses the first JSON
// object out of the response into out. Cache hits skip the backend entirely;
// the cached value is the extracted JSON text, so replays decode to the same
// structure.
func (g *Gateway) InvokeObject(ctx context.Context, prompt string, tier llm.ModelTier, out any) error {
	key := Fingerprint(prompt)

	if cached, ok, err := g.cache.Get(ctx, key); err == nil && ok {
		if err := json.Unmarshal([]byte(cached), out); err == nil {
			return nil
		}
		// A corrupt cache entry falls through to a fresh backend call.
	} else if err != nil {
		fmt.Printf("Warning: cache read failed for %s: %v\n", key[:12], err)
	}

	raw, err := g.client.Generate(ctx, prompt, tier)
	if err != nil {
		return fmt.Errorf("backend call failed: %w", err)
	}

	jsonText, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return &MalformedOutputError{Message: "no JSON object in response", Raw: raw, Cause: err}
	}
	if err := json.Unmarshal([]byte(jsonText), out); err != nil {
		return &MalformedOutputError{Message: "response object does not parse", Raw: raw, Cause: err}
	}

	// Re-marshal so the cache holds exactly what was accepted, commentary
	// and trailing text stripped.
	canonical, err := json.Marshal(out)
	if err == nil {
		if err := g.cache.Set(ctx, key, string(canonical), g.ttl); err != nil {
			fmt.Printf("Warning: cache write failed for %s: %v\n", key[:12], err)
		}
	}
	return nil
}

// InvokeText calls the backend with the prompt and returns the raw text
// response, cached by fingerprint. Used where the answer is free text, such
// as a reformulated contract description.
func (g *Gateway) InvokeText(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	key := Fingerprint(prompt)

	if cached, ok, err := g.cache.Get(ctx, key); err == nil && ok {
		return cached, nil
	} else if err != nil {
		fmt.Printf("Warning: cache read failed for %s: %v\n", key[:12], err)
	}

	raw, err := g.client.Generate(ctx, prompt, tier)
	if err != nil {
		return "", fmt.Errorf("backend call failed: %w", err)
	}
	if err := g.cache.Set(ctx, key, raw, g.ttl); err != nil {
		fmt.Printf("Warning: cache write failed for %s: %v\n", key[:12], err)
	}
	return raw, nil
}
