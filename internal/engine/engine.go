package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/oakmund/fable/internal/game/state"
	"github.com/oakmund/fable/internal/llm"
)

// Styles tag narrative segments for the presentation layer.
const (
	StyleNormal   = "normal"
	StyleLocation = "location"
	StyleCombat   = "combat"
)

// defaultRetryBackoff is the pause before the single retry of a transient
// generation failure.
const defaultRetryBackoff = 500 * time.Millisecond

// Generator dispatches a prompt to the active text-generation provider.
// *llm.Manager satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Segment is one styled block of narrative output.
type Segment struct {
	Style string `json:"style"`
	Text  string `json:"text"`
}

// Metadata summarizes the post-turn state for the caller.
type Metadata struct {
	PlayerLocation string `json:"player_location"`
	InventoryCount int    `json:"inventory_count"`
	CombatActive   bool   `json:"combat_active"`
}

// NarrativeResult is the output of one processed turn.
type NarrativeResult struct {
	Segments []Segment `json:"segments"`
	Metadata Metadata  `json:"metadata"`
	// FellBack reports that the rule-based provider produced the prose.
	FellBack bool `json:"fell_back,omitempty"`
}

// Text joins all segments into one block of prose.
func (r *NarrativeResult) Text() string {
	var parts []string
	for _, s := range r.Segments {
		parts = append(parts, s.Text)
	}
	return joinNonEmpty(parts)
}

// Engine runs the narrative turn loop. It owns the retry-and-fallback policy
// around the provider: one retry after a transient failure, then the
// rule-based provider, so a turn always yields narrative text.
type Engine struct {
	retriever *Retriever
	gen       Generator
	fallback  llm.Provider
	backoff   time.Duration
	logger    *zap.Logger
}

// Option adjusts Engine construction.
type Option func(*Engine)

// WithRetryBackoff overrides the pause before the retry attempt. Tests use
// a zero backoff.
func WithRetryBackoff(d time.Duration) Option {
	return func(e *Engine) { e.backoff = d }
}

// New creates an Engine.
//
// Precondition: retriever, gen, fallback, and logger must be non-nil.
func New(retriever *Retriever, gen Generator, fallback llm.Provider, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		retriever: retriever,
		gen:       gen,
		fallback:  fallback,
		backoff:   defaultRetryBackoff,
		logger:    logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ProcessTurn runs one narrative turn: retrieve context, assemble the
// prompt, generate, parse directives, and apply them through the state's
// mutation operations. State is touched only after the output is fully
// parsed. ProcessTurn always returns a result with non-empty prose, even
// with an empty knowledge store and an unavailable provider.
func (e *Engine) ProcessTurn(ctx context.Context, st *state.GameState, command string) *NarrativeResult {
	rc := e.retriever.Retrieve(ctx, st, command)
	prompt := BuildPrompt(st, rc, command)

	raw, fellBack := e.generate(ctx, prompt)
	narrative, directives := ParseNarrative(raw)
	if narrative == "" {
		narrative = "Nothing happens."
	}

	prevLocation := st.PlayerLocation
	applied := applyDirectives(st, directives, e.logger)
	st.RecordAction(command)
	st.AdvanceTurn()

	result := &NarrativeResult{FellBack: fellBack}
	if st.PlayerLocation != prevLocation {
		if area, err := st.CurrentArea(); err == nil {
			result.Segments = append(result.Segments, Segment{
				Style: StyleLocation,
				Text:  area.Name + ". " + area.Description,
			})
		}
	}
	result.Segments = append(result.Segments, Segment{Style: StyleNormal, Text: narrative})
	result.Metadata = Snapshot(st)

	e.logger.Debug("turn processed",
		zap.String("session", st.SessionID),
		zap.Int("chunks", len(rc.Chunks)),
		zap.Int("directives_applied", len(applied)),
		zap.Bool("fell_back", fellBack))
	return result
}

// generate runs the provider with the engine's retry policy: one retry with
// backoff on a retryable failure, then the rule-based fallback.
func (e *Engine) generate(ctx context.Context, prompt string) (string, bool) {
	raw, err := e.gen.Generate(ctx, prompt)
	if err != nil && llm.Retryable(err) {
		e.logger.Debug("retrying generation after transient failure", zap.Error(err))
		select {
		case <-time.After(e.backoff):
		case <-ctx.Done():
		}
		raw, err = e.gen.Generate(ctx, prompt)
	}
	if err == nil {
		return raw, false
	}

	e.logger.Warn("generation failed, using rule-based fallback", zap.Error(err))
	raw, fbErr := e.fallback.Generate(ctx, prompt, llm.Options{})
	if fbErr != nil {
		return "Nothing happens.", true
	}
	return raw, true
}

// Snapshot builds the per-turn metadata summary from the current state.
func Snapshot(st *state.GameState) Metadata {
	return Metadata{
		PlayerLocation: st.PlayerLocation,
		InventoryCount: st.InventoryCount(),
		CombatActive:   st.CombatActive,
	}
}

func joinNonEmpty(parts []string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return ""
	case 1:
		return out[0]
	}
	joined := out[0]
	for _, p := range out[1:] {
		joined += "\n\n" + p
	}
	return joined
}
