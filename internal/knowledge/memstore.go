package knowledge

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory knowledge store. It serves as the default backend
// and as the reference implementation of the Store query semantics.
type MemStore struct {
	mu        sync.RWMutex
	entities  map[string]Entity
	neighbors map[string][]Relation
	chunks    []Chunk
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		entities:  make(map[string]Entity),
		neighbors: make(map[string][]Relation),
	}
}

// AddEntity registers or replaces a graph entity.
func (m *MemStore) AddEntity(e Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[e.ID] = e
}

// AddRelation registers a directed edge. Both endpoints index it, so a
// neighbor lookup from either side finds the edge.
func (m *MemStore) AddRelation(r Relation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.neighbors[r.Subject] = append(m.neighbors[r.Subject], r)
	m.neighbors[r.Object] = append(m.neighbors[r.Object], r)
}

// AddChunk indexes a document chunk.
//
// Precondition: id must be unique across the store.
func (m *MemStore) AddChunk(id, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, Chunk{ID: id, Text: text})
}

// ChunkCount returns the number of indexed chunks.
func (m *MemStore) ChunkCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// Query implements Store. Search terms are the keywords plus the labels and
// IDs of each query entity's graph neighbors; chunks are scored by term
// containment with multi-term and location/character boosts.
//
// Postcondition: Returns a non-nil RetrievalContext, empty when nothing
// matches. Never returns an error.
func (m *MemStore) Query(_ context.Context, entities []string, keywords []string, limit int) (*RetrievalContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	terms := keywords
	var boostEntities []Entity
	var nodes []GraphNode

	for _, id := range entities {
		id = strings.ToLower(strings.TrimSpace(id))
		if e, ok := m.entities[id]; ok {
			boostEntities = append(boostEntities, e)
			terms = append(terms, e.Label)
		}
		for _, rel := range m.neighbors[id] {
			other := rel.Object
			if other == id {
				other = rel.Subject
			}
			nodes = append(nodes, GraphNode{EntityID: other, Relation: rel.Predicate, Distance: 1})
			terms = append(terms, other)
			if e, ok := m.entities[other]; ok {
				terms = append(terms, e.Label)
			}
		}
	}
	terms = NormalizeTerms(terms)

	var scored []Chunk
	for _, c := range m.chunks {
		if score := ScoreChunk(c.Text, terms, boostEntities); score > 0 {
			scored = append(scored, Chunk{ID: c.ID, Text: c.Text, Score: score})
		}
	}

	nodes = dedupeNodes(nodes)
	if len(nodes) > limit && limit >= 0 {
		nodes = nodes[:limit]
	}

	return &RetrievalContext{
		Chunks: RankChunks(scored, limit),
		Nodes:  nodes,
	}, nil
}

// dedupeNodes drops duplicate (entity, relation) pairs and sorts the rest
// for deterministic output.
func dedupeNodes(nodes []GraphNode) []GraphNode {
	seen := make(map[GraphNode]struct{}, len(nodes))
	out := make([]GraphNode, 0, len(nodes))
	for _, n := range nodes {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].Relation < out[j].Relation
	})
	return out
}
