package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/oakmund/fable/internal/config"
)

// defaultAnthropicMaxTokens is used when the caller leaves Options.MaxTokens
// unset. The messages API requires an explicit cap.
const defaultAnthropicMaxTokens = 1024

// Anthropic generates text through the Anthropic messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates an Anthropic-backed provider.
//
// Precondition: cfg.APIKey and cfg.Model must be non-empty.
func NewAnthropic(cfg config.ProviderConfig) (*Anthropic, error) {
	name := VariantAnthropic.String()
	if cfg.APIKey == "" {
		return nil, &ConfigError{Provider: name, Field: "api_key", Reason: "must not be empty"}
	}
	if cfg.Model == "" {
		return nil, &ConfigError{Provider: name, Field: "model", Reason: "must not be empty"}
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Anthropic{client: anthropic.NewClient(reqOpts...), model: cfg.Model}, nil
}

// Name implements Provider.
func (p *Anthropic) Name() string { return VariantAnthropic.String() }

// Generate implements Provider.
func (p *Anthropic) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if opts.Temperature != 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", p.classify(err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", NewError(KindMalformedOutput, p.Name(), errEmptyCompletion)
	}
	return text, nil
}

func (p *Anthropic) classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return NewError(classifyStatus(apiErr.StatusCode), p.Name(), err)
	}
	return classifyTransport(p.Name(), err)
}
