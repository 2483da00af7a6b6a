package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oakmund/fable/internal/config"
)

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		Provider:    int(VariantRuleBased),
		Timeout:     5 * time.Second,
		MaxTokens:   200,
		Temperature: 0.7,
	}
}

func newTestManager(t *testing.T, cfg config.LLMConfig) *Manager {
	t.Helper()
	m, err := NewManager(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	return m
}

// failing is a provider stub that always returns the configured error.
type failing struct {
	kind  Kind
	calls int
}

func (f *failing) Name() string { return "failing" }

func (f *failing) Generate(context.Context, string, Options) (string, error) {
	f.calls++
	return "", NewError(f.kind, f.Name(), errors.New("stub failure"))
}

func TestManagerStartsOnConfiguredProvider(t *testing.T) {
	m := newTestManager(t, testLLMConfig())
	v, name := m.Active()
	assert.Equal(t, VariantRuleBased, v)
	assert.Equal(t, "rule_based", name)
}

func TestManagerFallsBackWhenInitialProviderUnconfigured(t *testing.T) {
	cfg := testLLMConfig()
	cfg.Provider = int(VariantOpenAI) // no api key configured
	m := newTestManager(t, cfg)

	v, _ := m.Active()
	assert.Equal(t, VariantRuleBased, v)
}

func TestManagerSwitchRejectsUnconfiguredProvider(t *testing.T) {
	m := newTestManager(t, testLLMConfig())

	err := m.Switch(context.Background(), VariantAnthropic)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "api_key", cfgErr.Field)

	// The previous provider stays active after a failed switch.
	v, _ := m.Active()
	assert.Equal(t, VariantRuleBased, v)
}

func TestManagerSwitchToConfiguredProvider(t *testing.T) {
	cfg := testLLMConfig()
	cfg.OpenAI = config.ProviderConfig{APIKey: "sk-test", Model: "gpt-4o-mini"}
	m := newTestManager(t, cfg)

	require.NoError(t, m.Switch(context.Background(), VariantOpenAI))
	v, name := m.Active()
	assert.Equal(t, VariantOpenAI, v)
	assert.Equal(t, "openai", name)
}

func TestManagerSwitchRejectsUnknownVariant(t *testing.T) {
	m := newTestManager(t, testLLMConfig())
	assert.Error(t, m.Switch(context.Background(), Variant(0)))
	assert.Error(t, m.Switch(context.Background(), Variant(7)))
}

func TestManagerSwitchNoopOnSameVariant(t *testing.T) {
	m := newTestManager(t, testLLMConfig())
	assert.NoError(t, m.Switch(context.Background(), VariantRuleBased))
}

func TestManagerGenerateOnRuleBased(t *testing.T) {
	m := newTestManager(t, testLLMConfig())

	text, err := m.Generate(context.Background(), samplePrompt)
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestManagerGenerateSurfacesClassifiedFailure(t *testing.T) {
	m := newTestManager(t, testLLMConfig())
	stub := &failing{kind: KindUnavailable}
	m.active = stub
	m.variant = VariantOpenAI

	_, err := m.Generate(context.Background(), samplePrompt)
	require.Error(t, err)
	assert.True(t, Retryable(err))
	assert.Equal(t, 1, stub.calls)
}

func TestManagerGenerateRecordsLatency(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m, err := NewManager(context.Background(), testLLMConfig(), zap.New(core))
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), samplePrompt)
	require.NoError(t, err)

	entries := logs.FilterMessage("generation complete").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "rule_based", fields["provider"])
	assert.Contains(t, fields, "latency")
}

func TestManagerFallbackNeverFails(t *testing.T) {
	m := newTestManager(t, testLLMConfig())
	text, err := m.Fallback().Generate(context.Background(), samplePrompt, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestNewManagerRejectsInvalidVariant(t *testing.T) {
	cfg := testLLMConfig()
	cfg.Provider = 9
	_, err := NewManager(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
