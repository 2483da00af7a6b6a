package llm

import (
	"context"
	"errors"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"

	"github.com/oakmund/fable/internal/config"
)

var (
	errNoChoices       = errors.New("response contained no choices")
	errEmptyCompletion = errors.New("response contained no text")
)

// LocalDirect generates text through a local Ollama daemon.
type LocalDirect struct {
	backend anyllmlib.Provider
	model   string
}

// NewLocalDirect creates a provider backed by the Ollama daemon at
// cfg.BaseURL. An empty BaseURL uses the Ollama default.
//
// Precondition: cfg.Model must name a model Ollama has pulled.
func NewLocalDirect(cfg config.ProviderConfig) (*LocalDirect, error) {
	name := VariantLocalDirect.String()
	if cfg.Model == "" {
		return nil, &ConfigError{Provider: name, Field: "model", Reason: "must not be empty"}
	}

	var opts []anyllmlib.Option
	if cfg.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}
	backend, err := ollama.New(opts...)
	if err != nil {
		return nil, &ConfigError{Provider: name, Field: "base_url", Reason: err.Error()}
	}
	return &LocalDirect{backend: backend, model: cfg.Model}, nil
}

// Name implements Provider.
func (p *LocalDirect) Name() string { return VariantLocalDirect.String() }

// Generate implements Provider.
func (p *LocalDirect) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return anyllmGenerate(ctx, p.Name(), p.backend, p.model, prompt, opts)
}
