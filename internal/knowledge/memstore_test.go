package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func populatedStore() *MemStore {
	m := NewMemStore()
	m.AddEntity(Entity{ID: "village_square", Label: "Village Square", Type: EntityLocation})
	m.AddEntity(Entity{ID: "elder", Label: "Elder Maren", Type: EntityCharacter})
	m.AddEntity(Entity{ID: "iron_key", Label: "Iron Key", Type: EntityItem})
	m.AddRelation(Relation{Subject: "elder", Predicate: "guards", Object: "village_square"})
	m.AddRelation(Relation{Subject: "iron_key", Predicate: "opens", Object: "vault"})

	m.AddChunk("c1", "The Elder Maren has watched over the Village Square since the old wars.")
	m.AddChunk("c2", "An Iron Key rumored to open the sealed vault below the hill.")
	m.AddChunk("c3", "Recipes for mushroom stew, as told by the miller's wife.")
	return m
}

func TestQueryScoresAndBoosts(t *testing.T) {
	m := populatedStore()

	rc, err := m.Query(context.Background(), []string{"village_square"}, []string{"wars"}, 5)
	require.NoError(t, err)

	// Four term matches (*1.5) plus the location-mention boost.
	require.Len(t, rc.Chunks, 1)
	assert.Equal(t, "c1", rc.Chunks[0].ID)
	assert.InDelta(t, 8.0, rc.Chunks[0].Score, 1e-9)

	require.Len(t, rc.Nodes, 1)
	assert.Equal(t, GraphNode{EntityID: "elder", Relation: "guards", Distance: 1}, rc.Nodes[0])
}

func TestQueryCharacterBoost(t *testing.T) {
	m := populatedStore()

	rc, err := m.Query(context.Background(), []string{"elder"}, nil, 5)
	require.NoError(t, err)

	require.Len(t, rc.Chunks, 1)
	assert.Equal(t, "c1", rc.Chunks[0].ID)
	// Two term matches (*1.5) plus the character-mention boost.
	assert.InDelta(t, 4.5, rc.Chunks[0].Score, 1e-9)
}

func TestQueryTiesBreakByChunkID(t *testing.T) {
	m := NewMemStore()
	m.AddChunk("b", "the elder speaks slowly.")
	m.AddChunk("a", "the elder speaks slowly.")

	rc, err := m.Query(context.Background(), nil, []string{"elder"}, 5)
	require.NoError(t, err)

	require.Len(t, rc.Chunks, 2)
	assert.Equal(t, "a", rc.Chunks[0].ID)
	assert.Equal(t, "b", rc.Chunks[1].ID)
	assert.Equal(t, rc.Chunks[0].Score, rc.Chunks[1].Score)
}

func TestQueryLimitTruncates(t *testing.T) {
	m := populatedStore()

	rc, err := m.Query(context.Background(), nil, []string{"the"}, 2)
	require.NoError(t, err)
	assert.Len(t, rc.Chunks, 2)

	rc, err = m.Query(context.Background(), nil, []string{"the"}, 0)
	require.NoError(t, err)
	assert.Empty(t, rc.Chunks)
}

func TestQueryEmptyStoreAndUnknownEntities(t *testing.T) {
	empty := NewMemStore()
	rc, err := empty.Query(context.Background(), []string{"village_square"}, []string{"wars"}, 5)
	require.NoError(t, err)
	assert.True(t, rc.Empty())
	assert.NotNil(t, rc.Chunks)

	m := populatedStore()
	rc, err = m.Query(context.Background(), []string{"the_moon"}, nil, 5)
	require.NoError(t, err)
	assert.True(t, rc.Empty())
}

func TestQueryIsDeterministic(t *testing.T) {
	m := populatedStore()

	first, err := m.Query(context.Background(), []string{"village_square", "elder"}, []string{"vault", "key"}, 10)
	require.NoError(t, err)
	second, err := m.Query(context.Background(), []string{"village_square", "elder"}, []string{"vault", "key"}, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestQueryKeywordNormalization(t *testing.T) {
	m := populatedStore()

	rapid.Check(t, func(t *rapid.T) {
		// Duplicate, padded, and differently-cased keywords must not change scores.
		base := []string{"wars", "vault"}
		noisy := []string{" WARS ", "wars", "Vault", "", "vault "}
		limit := rapid.IntRange(1, 10).Draw(t, "limit")

		want, err := m.Query(context.Background(), nil, base, limit)
		require.NoError(t, err)
		got, err := m.Query(context.Background(), nil, noisy, limit)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}
