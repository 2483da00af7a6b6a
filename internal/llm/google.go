package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/oakmund/fable/internal/config"
)

// Google generates text through the Gemini API.
type Google struct {
	client *genai.Client
	model  string
}

// NewGoogle creates a Gemini-backed provider. The client holds a connection
// and must be released with Close when the provider is retired.
//
// Precondition: cfg.APIKey and cfg.Model must be non-empty.
func NewGoogle(ctx context.Context, cfg config.ProviderConfig) (*Google, error) {
	name := VariantGoogle.String()
	if cfg.APIKey == "" {
		return nil, &ConfigError{Provider: name, Field: "api_key", Reason: "must not be empty"}
	}
	if cfg.Model == "" {
		return nil, &ConfigError{Provider: name, Field: "model", Reason: "must not be empty"}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, &ConfigError{Provider: name, Field: "api_key", Reason: err.Error()}
	}
	return &Google{client: client, model: cfg.Model}, nil
}

// Name implements Provider.
func (p *Google) Name() string { return VariantGoogle.String() }

// Generate implements Provider.
func (p *Google) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	model := p.client.GenerativeModel(p.model)
	if opts.Temperature != 0 {
		model.SetTemperature(float32(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", p.classify(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", NewError(KindMalformedOutput, p.Name(), errNoChoices)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", NewError(KindMalformedOutput, p.Name(), errEmptyCompletion)
	}
	return text, nil
}

// Close releases the underlying API client.
func (p *Google) Close() error { return p.client.Close() }

func (p *Google) classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return NewError(classifyStatus(apiErr.Code), p.Name(), err)
	}
	return classifyTransport(p.Name(), err)
}
