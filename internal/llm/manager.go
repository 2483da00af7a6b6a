package llm

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oakmund/fable/internal/config"
)

// Manager owns the active provider. It applies the configured per-request
// deadline and generation options; retry and fallback decisions belong to
// the caller, which can reach the rule-based provider through Fallback.
type Manager struct {
	mu       sync.RWMutex
	cfg      config.LLMConfig
	active   Provider
	variant  Variant
	fallback *RuleBased
	logger   *zap.Logger
}

// NewManager creates a Manager with the provider selected by cfg.Provider
// active. If that provider cannot be constructed, the manager starts on the
// rule-based provider instead and logs the reason.
//
// Precondition: cfg must have passed config validation; logger must be non-nil.
func NewManager(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		cfg:      cfg,
		fallback: NewRuleBased(),
		logger:   logger,
	}

	v := Variant(cfg.Provider)
	if !v.Valid() {
		return nil, &ConfigError{Provider: "manager", Field: "provider", Reason: "unknown variant"}
	}

	p, err := m.build(ctx, v)
	if err != nil {
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			return nil, err
		}
		logger.Warn("configured provider unavailable, starting on rule-based fallback",
			zap.String("provider", v.String()),
			zap.Error(err))
		m.active = m.fallback
		m.variant = VariantRuleBased
		return m, nil
	}

	m.active = p
	m.variant = v
	logger.Info("llm provider active", zap.String("provider", v.String()))
	return m, nil
}

// Active returns the currently active variant and its provider name.
func (m *Manager) Active() (Variant, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.variant, m.active.Name()
}

// Switch activates the provider named by v. On failure the previous provider
// stays active and the error describes why the new one could not be built.
//
// Postcondition: On error, Active() is unchanged.
func (m *Manager) Switch(ctx context.Context, v Variant) error {
	if !v.Valid() {
		return &ConfigError{Provider: "manager", Field: "provider", Reason: "unknown variant"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if v == m.variant {
		return nil
	}

	p, err := m.build(ctx, v)
	if err != nil {
		m.logger.Warn("provider switch failed, keeping current provider",
			zap.String("requested", v.String()),
			zap.String("active", m.variant.String()),
			zap.Error(err))
		return err
	}

	if closer, ok := m.active.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			m.logger.Warn("closing retired provider", zap.String("provider", m.active.Name()), zap.Error(err))
		}
	}

	m.active = p
	m.variant = v
	m.logger.Info("llm provider active", zap.String("provider", v.String()))
	return nil
}

// Generate runs the prompt through the active provider under the configured
// deadline, with the configured generation options. Latency is measured per
// call and recorded in the logs. A failure is returned classified; the
// caller owns retry and fallback decisions.
func (m *Manager) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.RLock()
	p := m.active
	m.mu.RUnlock()

	opts := Options{MaxTokens: m.cfg.MaxTokens, Temperature: m.cfg.Temperature}

	genCtx := ctx
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := p.Generate(genCtx, prompt, opts)
	latency := time.Since(start)
	if err != nil {
		m.logger.Warn("generation failed",
			zap.String("provider", p.Name()),
			zap.Duration("latency", latency),
			zap.Error(err))
		return "", err
	}
	m.logger.Debug("generation complete",
		zap.String("provider", p.Name()),
		zap.Duration("latency", latency),
		zap.Int("chars", len(text)))
	return text, nil
}

// Fallback returns the always-available rule-based provider for callers
// whose policy substitutes deterministic output after generation failures.
func (m *Manager) Fallback() *RuleBased { return m.fallback }

func (m *Manager) build(ctx context.Context, v Variant) (Provider, error) {
	switch v {
	case VariantLocalAPI:
		return NewLocalAPI(m.cfg.LocalAPI)
	case VariantLocalDirect:
		return NewLocalDirect(m.cfg.LocalDirect)
	case VariantOpenAI:
		return NewOpenAI(m.cfg.OpenAI)
	case VariantAnthropic:
		return NewAnthropic(m.cfg.Anthropic)
	case VariantGoogle:
		return NewGoogle(ctx, m.cfg.Google)
	case VariantRuleBased:
		return m.fallback, nil
	default:
		return nil, &ConfigError{Provider: "manager", Field: "provider", Reason: "unknown variant"}
	}
}
