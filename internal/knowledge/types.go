// Package knowledge defines the knowledge store interface used for
// retrieval-augmented narration: an entity/relationship graph plus indexed
// document chunks, queryable by entity and keyword.
package knowledge

import "context"

// EntityType classifies a graph entity for retrieval boosting.
type EntityType string

const (
	EntityLocation  EntityType = "location"
	EntityCharacter EntityType = "character"
	EntityItem      EntityType = "item"
	EntityFaction   EntityType = "faction"
	EntityOther     EntityType = "other"
)

// Entity is one node in the knowledge graph.
type Entity struct {
	ID    string     `json:"id"`
	Label string     `json:"label"`
	Type  EntityType `json:"type"`
}

// Relation is one directed edge in the knowledge graph.
type Relation struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// Chunk is one indexed document fragment with its relevance score for the
// query that produced it.
type Chunk struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// GraphNode is one graph neighbor related to a query entity.
type GraphNode struct {
	EntityID string `json:"entity_id"`
	Relation string `json:"relation"`
	// Distance is the hop count from the query entity.
	Distance int `json:"distance"`
}

// RetrievalContext is the ephemeral per-turn result of a store query:
// relevance-ranked chunks plus the graph neighborhood of the query entities.
// It is never persisted.
type RetrievalContext struct {
	Chunks []Chunk     `json:"chunks"`
	Nodes  []GraphNode `json:"nodes"`
}

// Empty reports whether the context carries no chunks and no nodes.
func (rc *RetrievalContext) Empty() bool {
	return len(rc.Chunks) == 0 && len(rc.Nodes) == 0
}

// Store is the queryable knowledge base.
//
// Query must be deterministic for identical inputs against an unchanged
// store: chunks are ordered by descending relevance score with ties broken
// by ascending chunk ID. An empty store or unknown entities yield an empty
// RetrievalContext, not an error; errors are reserved for backend failures
// such as a lost database connection.
type Store interface {
	Query(ctx context.Context, entities []string, keywords []string, limit int) (*RetrievalContext, error)
}
