package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("entities.json", `[{"id":"elder","label":"Elder Maren","type":"character"}]`)
	write("relations.json", `[{"subject":"elder","predicate":"guards","object":"village_square"}]`)
	write("chunks.json", `[{"id":"c1","text":"The Elder Maren guards the square."}]`)

	m, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, m.ChunkCount())

	rc, err := m.Query(context.Background(), []string{"elder"}, nil, 5)
	require.NoError(t, err)
	require.Len(t, rc.Chunks, 1)
	assert.Equal(t, "c1", rc.Chunks[0].ID)
	require.Len(t, rc.Nodes, 1)
	assert.Equal(t, "village_square", rc.Nodes[0].EntityID)
}

func TestLoadDirToleratesMissingFiles(t *testing.T) {
	m, err := LoadDir(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, m.ChunkCount())
}

func TestLoadDirRejectsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chunks.json"), []byte("{nope"), 0o644))
	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}
