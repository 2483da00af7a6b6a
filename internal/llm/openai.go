package llm

import (
	"context"
	"errors"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/oakmund/fable/internal/config"
)

// OpenAI generates text through the OpenAI chat completions API.
type OpenAI struct {
	client oai.Client
	model  string
}

// NewOpenAI creates an OpenAI-backed provider.
//
// Precondition: cfg.APIKey and cfg.Model must be non-empty.
func NewOpenAI(cfg config.ProviderConfig) (*OpenAI, error) {
	name := VariantOpenAI.String()
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
	return &OpenAI{client: oai.NewClient(reqOpts...), model: cfg.Model}, nil
}

// Name implements Provider.
func (p *OpenAI) Name() string { return VariantOpenAI.String() }

// Generate implements Provider.
func (p *OpenAI) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(prompt),
		},
	}
	if opts.Temperature != 0 {
		params.Temperature = param.NewOpt(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(opts.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", p.classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", NewError(KindMalformedOutput, p.Name(), errNoChoices)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", NewError(KindMalformedOutput, p.Name(), errEmptyCompletion)
	}
	return text, nil
}

func (p *OpenAI) classify(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return NewError(classifyStatus(apiErr.StatusCode), p.Name(), err)
	}
	return classifyTransport(p.Name(), err)
}
