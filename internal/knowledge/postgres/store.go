// Package postgres provides a PostgreSQL-backed knowledge store. Chunk
// relevance scoring matches the in-memory backend exactly; the database adds
// durable storage, a candidate-narrowing text scan, and optional
// vector-similarity lookup through pgvector.
//
// The schema is managed by the migrate command; see the migrations directory.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/oakmund/fable/internal/knowledge"
)

var _ knowledge.Store = (*Store)(nil)

// Store is a PostgreSQL-backed knowledge store.
//
// All operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the database at dsn and registers
// pgvector types on every connection.
//
// Precondition: the schema migrations must already have been applied.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("knowledge store: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// AddEntity upserts a graph entity.
func (s *Store) AddEntity(ctx context.Context, e knowledge.Entity) error {
	const q = `
		INSERT INTO kg_entities (id, label, type)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
		    label = EXCLUDED.label,
		    type  = EXCLUDED.type`
	if _, err := s.pool.Exec(ctx, q, e.ID, e.Label, string(e.Type)); err != nil {
		return fmt.Errorf("knowledge store: add entity: %w", err)
	}
	return nil
}

// AddRelation inserts a directed edge. Duplicate edges are ignored.
func (s *Store) AddRelation(ctx context.Context, r knowledge.Relation) error {
	const q = `
		INSERT INTO kg_relations (subject, predicate, object)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`
	if _, err := s.pool.Exec(ctx, q, r.Subject, r.Predicate, r.Object); err != nil {
		return fmt.Errorf("knowledge store: add relation: %w", err)
	}
	return nil
}

// AddChunk indexes a document chunk. The embedding may be nil when no
// embedding model is configured.
func (s *Store) AddChunk(ctx context.Context, id, text string, embedding []float32) error {
	const q = `
		INSERT INTO kg_chunks (id, text, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
		    text      = EXCLUDED.text,
		    embedding = EXCLUDED.embedding`
	var vec any
	if embedding != nil {
		vec = pgvector.NewVector(embedding)
	}
	if _, err := s.pool.Exec(ctx, q, id, text, vec); err != nil {
		return fmt.Errorf("knowledge store: add chunk: %w", err)
	}
	return nil
}

// Query implements knowledge.Store with the same scoring and ordering as the
// in-memory backend. The database narrows the candidate set with a
// case-insensitive containment scan; final scoring runs on the candidates.
//
// Postcondition: Returns a non-nil RetrievalContext, empty when nothing
// matches or the store is empty.
func (s *Store) Query(ctx context.Context, entities []string, keywords []string, limit int) (*knowledge.RetrievalContext, error) {
	terms := keywords
	boostEntities, err := s.loadEntities(ctx, entities)
	if err != nil {
		return nil, err
	}
	for _, e := range boostEntities {
		terms = append(terms, e.Label)
	}

	nodes, neighborTerms, err := s.loadNeighbors(ctx, entities)
	if err != nil {
		return nil, err
	}
	terms = append(terms, neighborTerms...)
	terms = knowledge.NormalizeTerms(terms)

	empty := &knowledge.RetrievalContext{Chunks: []knowledge.Chunk{}}
	if len(terms) == 0 && len(boostEntities) == 0 {
		return empty, nil
	}

	candidates, err := s.candidateChunks(ctx, terms, boostEntities)
	if err != nil {
		return nil, err
	}

	var scored []knowledge.Chunk
	for _, c := range candidates {
		if score := knowledge.ScoreChunk(c.Text, terms, boostEntities); score > 0 {
			scored = append(scored, knowledge.Chunk{ID: c.ID, Text: c.Text, Score: score})
		}
	}

	if len(nodes) > limit && limit >= 0 {
		nodes = nodes[:limit]
	}
	return &knowledge.RetrievalContext{
		Chunks: knowledge.RankChunks(scored, limit),
		Nodes:  nodes,
	}, nil
}

// SimilarChunks returns the chunks nearest to embedding by L2 distance,
// closest first. Chunks without embeddings are skipped.
func (s *Store) SimilarChunks(ctx context.Context, embedding []float32, limit int) ([]knowledge.Chunk, error) {
	const q = `
		SELECT id, text, embedding <-> $1 AS distance
		FROM   kg_chunks
		WHERE  embedding IS NOT NULL
		ORDER  BY distance, id
		LIMIT  $2`
	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: similar chunks: %w", err)
	}
	defer rows.Close()

	chunks := []knowledge.Chunk{}
	for rows.Next() {
		var c knowledge.Chunk
		if err := rows.Scan(&c.ID, &c.Text, &c.Score); err != nil {
			return nil, fmt.Errorf("knowledge store: similar chunks: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge store: similar chunks: %w", err)
	}
	return chunks, nil
}

// ChunkCount returns the number of indexed chunks.
func (s *Store) ChunkCount(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM kg_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("knowledge store: chunk count: %w", err)
	}
	return n, nil
}

func (s *Store) loadEntities(ctx context.Context, ids []string) ([]knowledge.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	normalized := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.ToLower(strings.TrimSpace(id)); id != "" {
			normalized = append(normalized, id)
		}
	}
	const q = `
		SELECT id, label, type
		FROM   kg_entities
		WHERE  id = ANY($1)
		ORDER  BY id`
	rows, err := s.pool.Query(ctx, q, normalized)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: load entities: %w", err)
	}
	defer rows.Close()

	var out []knowledge.Entity
	for rows.Next() {
		var e knowledge.Entity
		var typ string
		if err := rows.Scan(&e.ID, &e.Label, &typ); err != nil {
			return nil, fmt.Errorf("knowledge store: load entities: %w", err)
		}
		e.Type = knowledge.EntityType(typ)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge store: load entities: %w", err)
	}
	return out, nil
}

// loadNeighbors returns deduplicated one-hop graph nodes for the query
// entities plus the neighbor IDs and labels as extra search terms.
func (s *Store) loadNeighbors(ctx context.Context, ids []string) ([]knowledge.GraphNode, []string, error) {
	if len(ids) == 0 {
		return []knowledge.GraphNode{}, nil, nil
	}
	const q = `
		SELECT DISTINCT
		       CASE WHEN r.subject = ANY($1) THEN r.object ELSE r.subject END AS neighbor,
		       r.predicate,
		       COALESCE(e.label, '') AS label
		FROM   kg_relations r
		LEFT   JOIN kg_entities e
		       ON e.id = CASE WHEN r.subject = ANY($1) THEN r.object ELSE r.subject END
		WHERE  r.subject = ANY($1) OR r.object = ANY($1)
		ORDER  BY neighbor, predicate`
	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("knowledge store: load neighbors: %w", err)
	}
	defer rows.Close()

	nodes := []knowledge.GraphNode{}
	var terms []string
	for rows.Next() {
		var neighbor, predicate, label string
		if err := rows.Scan(&neighbor, &predicate, &label); err != nil {
			return nil, nil, fmt.Errorf("knowledge store: load neighbors: %w", err)
		}
		nodes = append(nodes, knowledge.GraphNode{EntityID: neighbor, Relation: predicate, Distance: 1})
		terms = append(terms, neighbor)
		if label != "" {
			terms = append(terms, label)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("knowledge store: load neighbors: %w", err)
	}
	return nodes, terms, nil
}

// candidateChunks returns every chunk whose text contains at least one search
// term or boost entity label, case-insensitively.
func (s *Store) candidateChunks(ctx context.Context, terms []string, boostEntities []knowledge.Entity) ([]knowledge.Chunk, error) {
	patterns := make([]string, 0, len(terms)+len(boostEntities))
	for _, t := range terms {
		patterns = append(patterns, "%"+escapeLike(t)+"%")
	}
	for _, e := range boostEntities {
		if label := strings.ToLower(e.Label); label != "" {
			patterns = append(patterns, "%"+escapeLike(label)+"%")
		}
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	const q = `
		SELECT id, text
		FROM   kg_chunks
		WHERE  lower(text) LIKE ANY($1)
		ORDER  BY id`
	rows, err := s.pool.Query(ctx, q, patterns)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: candidate chunks: %w", err)
	}
	defer rows.Close()

	var chunks []knowledge.Chunk
	for rows.Next() {
		var c knowledge.Chunk
		if err := rows.Scan(&c.ID, &c.Text); err != nil {
			return nil, fmt.Errorf("knowledge store: candidate chunks: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge store: candidate chunks: %w", err)
	}
	return chunks, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
