// Package llm provides the swappable text-generation provider abstraction:
// six interchangeable backends behind one Generate interface, selected and
// hot-switched by numeric variant.
package llm

import "context"

// Variant is the numeric provider selector. The numbering is part of the
// configuration surface and must stay stable.
type Variant int

const (
	VariantLocalAPI    Variant = 1 // llama.cpp-compatible HTTP server
	VariantLocalDirect Variant = 2 // local Ollama daemon
	VariantOpenAI      Variant = 3
	VariantAnthropic   Variant = 4
	VariantGoogle      Variant = 5
	VariantRuleBased   Variant = 6 // deterministic, no model
)

// Valid reports whether v names a known provider variant.
func (v Variant) Valid() bool { return v >= VariantLocalAPI && v <= VariantRuleBased }

// String returns the provider label for logs and diagnostics.
func (v Variant) String() string {
	switch v {
	case VariantLocalAPI:
		return "local_api"
	case VariantLocalDirect:
		return "local_direct"
	case VariantOpenAI:
		return "openai"
	case VariantAnthropic:
		return "anthropic"
	case VariantGoogle:
		return "google"
	case VariantRuleBased:
		return "rule_based"
	default:
		return "unknown"
	}
}

// Options carries per-request generation parameters.
type Options struct {
	// MaxTokens caps the generated output length. 0 means provider default.
	MaxTokens int
	// Temperature is the sampling temperature in [0, 2].
	Temperature float64
}

// Provider generates narrative text from an assembled prompt.
//
// Generate returns the raw model output, or an error wrapping *Error with
// the failure classified for the caller's retry policy. Implementations must
// honor ctx cancellation; an abandoned request returns a KindTimeout error.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}
