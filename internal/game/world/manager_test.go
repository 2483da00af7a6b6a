package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManagerWorld(t *testing.T) *Manager {
	t.Helper()
	square := testArea("village_square")
	square.IsRegionEntrance = true
	square.AddExit(North, "old_mill")
	mill := testArea("old_mill")
	mill.AddExit(South, "village_square")
	// Asymmetric: the mill loft has no return exit to the mill.
	mill.AddExit(Up, "mill_loft")
	loft := testArea("mill_loft")
	loft.Region = "uplands"

	w := &World{
		Name:          "testworld",
		CurrentAreaID: "village_square",
		Areas: map[string]*Area{
			"village_square": square,
			"old_mill":       mill,
			"mill_loft":      loft,
		},
	}
	m, err := NewManager(w)
	require.NoError(t, err)
	return m
}

func TestNewManagerRejectsInvalidWorld(t *testing.T) {
	_, err := NewManager(&World{Name: "empty"})
	assert.Error(t, err)
}

func TestManagerNavigate(t *testing.T) {
	m := testManagerWorld(t)

	dest, err := m.Navigate("village_square", North)
	require.NoError(t, err)
	assert.Equal(t, "old_mill", dest.ID)

	back, err := m.Navigate("old_mill", South)
	require.NoError(t, err)
	assert.Equal(t, "village_square", back.ID)

	// Asymmetric exits navigate fine in the declared direction.
	loft, err := m.Navigate("old_mill", Up)
	require.NoError(t, err)
	assert.Equal(t, "mill_loft", loft.ID)
	_, err = m.Navigate("mill_loft", Down)
	assert.Error(t, err)

	_, err = m.Navigate("village_square", West)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no exit")

	_, err = m.Navigate("nowhere", North)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestManagerDanglingExits(t *testing.T) {
	m := testManagerWorld(t)
	assert.Empty(t, m.DanglingExits())

	mill, ok := m.GetArea("old_mill")
	require.True(t, ok)
	mill.AddExit(East, "ghost_area")

	dangling := m.DanglingExits()
	require.Len(t, dangling, 1)
	assert.Equal(t, "old_mill/east -> ghost_area", dangling[0])

	_, err := m.Navigate("old_mill", East)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown area")
}

func TestManagerLookups(t *testing.T) {
	m := testManagerWorld(t)

	assert.Equal(t, 3, m.AreaCount())
	assert.Equal(t, "testworld", m.WorldName())
	assert.Equal(t, "village_square", m.StartArea().ID)

	assert.Equal(t, []string{"old_mill", "village_square"}, m.AreasInRegion("testregion"))
	assert.Equal(t, []string{"mill_loft"}, m.AreasInRegion("uplands"))
	assert.Empty(t, m.AreasInRegion("void"))

	entrance, ok := m.RegionEntrance("testregion")
	require.True(t, ok)
	assert.Equal(t, "village_square", entrance.ID)

	_, ok = m.RegionEntrance("uplands")
	assert.False(t, ok)
}
