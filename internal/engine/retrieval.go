// Package engine implements the retrieval-augmented narration loop: knowledge
// lookup, prompt assembly, provider dispatch with fallback, and the parsing of
// model output into game-state directives.
package engine

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/oakmund/fable/internal/game/state"
	"github.com/oakmund/fable/internal/knowledge"
)

// DefaultChunkLimit bounds the chunks retrieved per turn so the assembled
// prompt stays small.
const DefaultChunkLimit = 5

// Retriever selects the knowledge-store context relevant to one turn.
type Retriever struct {
	store  knowledge.Store
	limit  int
	logger *zap.Logger
}

// NewRetriever creates a Retriever with the given per-turn chunk limit.
//
// Precondition: store and logger must be non-nil; limit <= 0 uses
// DefaultChunkLimit.
func NewRetriever(store knowledge.Store, limit int, logger *zap.Logger) *Retriever {
	if limit <= 0 {
		limit = DefaultChunkLimit
	}
	return &Retriever{store: store, limit: limit, logger: logger}
}

// Retrieve queries the knowledge store with entities drawn from the current
// area and the command text. An under-specified command falls back to
// area-only context; a store failure yields an empty context. Retrieval
// never fails the turn.
//
// Postcondition: Returns a non-nil RetrievalContext.
func (r *Retriever) Retrieve(ctx context.Context, st *state.GameState, command string) *knowledge.RetrievalContext {
	entities := r.stateEntities(st)
	entities = append(entities, commandEntities(command)...)
	entities = dedupe(entities)

	keywords := knowledge.NormalizeTerms(strings.Fields(command))

	rc, err := r.store.Query(ctx, entities, keywords, r.limit)
	if err != nil {
		r.logger.Warn("knowledge query failed, narrating without context",
			zap.Strings("entities", entities),
			zap.Error(err))
		return &knowledge.RetrievalContext{}
	}
	return rc
}

// stateEntities derives query entities from the player's current area: the
// area itself plus every NPC and item present.
func (r *Retriever) stateEntities(st *state.GameState) []string {
	area, err := st.CurrentArea()
	if err != nil {
		r.logger.Warn("current area unavailable for retrieval", zap.Error(err))
		return nil
	}

	entities := []string{area.ID}
	for _, npc := range area.NPCs {
		entities = append(entities, entityID(npc))
	}
	for _, item := range area.Items {
		entities = append(entities, entityID(item))
	}
	return entities
}

// commandEntities extracts proper nouns from the command text: capitalized
// words past the leading verb.
func commandEntities(command string) []string {
	words := strings.Fields(command)
	var entities []string
	for i, w := range words {
		if i == 0 {
			continue
		}
		runes := []rune(strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		if len(runes) == 0 || !unicode.IsUpper(runes[0]) {
			continue
		}
		entities = append(entities, entityID(string(runes)))
	}
	return entities
}

// entityID normalizes a display name to the id form used by the knowledge
// graph: lowercase with underscores.
func entityID(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
