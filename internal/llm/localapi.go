package llm

import (
	"context"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"

	"github.com/oakmund/fable/internal/config"
)

// LocalAPI generates text against a llama.cpp-compatible HTTP server.
type LocalAPI struct {
	backend anyllmlib.Provider
	model   string
}

// NewLocalAPI creates a provider backed by a running llama.cpp server.
//
// Precondition: cfg.BaseURL must name the server endpoint; cfg.Model must
// name a model the server has loaded.
func NewLocalAPI(cfg config.ProviderConfig) (*LocalAPI, error) {
	name := VariantLocalAPI.String()
	if cfg.BaseURL == "" {
		return nil, &ConfigError{Provider: name, Field: "base_url", Reason: "must not be empty"}
	}
	if cfg.Model == "" {
		return nil, &ConfigError{Provider: name, Field: "model", Reason: "must not be empty"}
	}

	opts := []anyllmlib.Option{anyllmlib.WithBaseURL(cfg.BaseURL)}
	if cfg.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
	}
	backend, err := llamacpp.New(opts...)
	if err != nil {
		return nil, &ConfigError{Provider: name, Field: "base_url", Reason: err.Error()}
	}
	return &LocalAPI{backend: backend, model: cfg.Model}, nil
}

// Name implements Provider.
func (p *LocalAPI) Name() string { return VariantLocalAPI.String() }

// Generate implements Provider.
func (p *LocalAPI) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return anyllmGenerate(ctx, p.Name(), p.backend, p.model, prompt, opts)
}

// anyllmGenerate runs one completion against an any-llm-go backend and
// classifies failures. Shared by the llama.cpp and Ollama providers.
func anyllmGenerate(ctx context.Context, name string, backend anyllmlib.Provider, model, prompt string, opts Options) (string, error) {
	params := anyllmlib.CompletionParams{
		Model: model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleUser, Content: prompt},
		},
	}
	if opts.Temperature != 0 {
		t := opts.Temperature
		params.Temperature = &t
	}
	if opts.MaxTokens > 0 {
		mt := opts.MaxTokens
		params.MaxTokens = &mt
	}

	resp, err := backend.Completion(ctx, params)
	if err != nil {
		return "", classifyTransport(name, err)
	}
	if len(resp.Choices) == 0 {
		return "", NewError(KindMalformedOutput, name, errNoChoices)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if text == "" {
		return "", NewError(KindMalformedOutput, name, errEmptyCompletion)
	}
	return text, nil
}
