package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/oakmund/fable/internal/game/combat"
	"github.com/oakmund/fable/internal/game/world"
)

func testWorld(t *testing.T) *world.Manager {
	t.Helper()
	square := &world.Area{
		ID: "village_square", Name: "Village Square", Region: "village",
		Description: "A cobbled square.",
		Exits:       map[world.Direction]string{world.North: "old_mill", world.East: "vault"},
		Items:       []string{"notice"},
		NPCs:        []string{"elder"},
	}
	mill := &world.Area{
		ID: "old_mill", Name: "Old Mill", Region: "village",
		Description: "The wheel creaks.",
		Exits:       map[world.Direction]string{world.South: "village_square", world.Down: "flooded_cellar"},
	}
	vault := &world.Area{
		ID: "vault", Name: "Sealed Vault", Region: "village",
		Description:  "A heavy iron door.",
		Exits:        map[world.Direction]string{world.West: "village_square"},
		RequiresItem: "iron key",
	}
	m, err := world.NewManager(&world.World{
		Name:          "testworld",
		CurrentAreaID: "village_square",
		Areas: map[string]*world.Area{
			"village_square": square,
			"old_mill":       mill,
			"vault":          vault,
		},
	})
	require.NoError(t, err)
	return m
}

func newTestState(t *testing.T) *GameState {
	t.Helper()
	return New("sess-1", testWorld(t))
}

func TestNewStartsAtStartArea(t *testing.T) {
	s := newTestState(t)
	assert.Equal(t, "village_square", s.PlayerLocation)
	assert.True(t, s.HasVisited("village_square"))

	area, err := s.CurrentArea()
	require.NoError(t, err)
	assert.True(t, area.Visited)
	assert.Zero(t, s.Turn)
}

func TestMoveTo(t *testing.T) {
	s := newTestState(t)

	require.NoError(t, s.MoveTo("old_mill"))
	assert.Equal(t, "old_mill", s.PlayerLocation)
	assert.True(t, s.HasVisited("old_mill"))

	// Not an exit of the current area.
	err := s.MoveTo("vault")
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, "old_mill", s.PlayerLocation)

	// Dangling exit target.
	err = s.MoveTo("flooded_cellar")
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Equal(t, "old_mill", s.PlayerLocation)
}

func TestMoveToRequiresItemGate(t *testing.T) {
	s := newTestState(t)

	err := s.MoveTo("vault")
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "iron key")
	assert.Equal(t, "village_square", s.PlayerLocation)

	s.AddItem("iron key")
	require.NoError(t, s.MoveTo("vault"))
	assert.Equal(t, "vault", s.PlayerLocation)
}

func TestMoveBlockedDuringCombat(t *testing.T) {
	s := newTestState(t)
	require.NoError(t, s.EnterCombat(&combat.Session{Status: combat.StatusActive}))

	err := s.MoveTo("old_mill")
	require.ErrorIs(t, err, ErrInvalidTransition)
	err = s.MoveDirection(world.North)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, "village_square", s.PlayerLocation)
}

func TestMoveDirection(t *testing.T) {
	s := newTestState(t)

	require.NoError(t, s.MoveDirection(world.North))
	assert.Equal(t, "old_mill", s.PlayerLocation)

	err := s.MoveDirection(world.West)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, "old_mill", s.PlayerLocation)
}

func TestInventory(t *testing.T) {
	s := newTestState(t)

	assert.False(t, s.HasItem("apple"))
	require.ErrorIs(t, s.RemoveItem("apple"), ErrItemNotFound)

	s.AddItem("apple")
	s.AddItem("apple")
	s.AddItem("dagger")
	assert.True(t, s.HasItem("apple"))
	assert.Equal(t, 3, s.InventoryCount())
	assert.Equal(t, []string{"apple", "dagger"}, s.ItemNames())

	require.NoError(t, s.RemoveItem("apple"))
	assert.Equal(t, 1, s.Inventory["apple"].Count)
	require.NoError(t, s.RemoveItem("apple"))
	assert.False(t, s.HasItem("apple"))
	require.ErrorIs(t, s.RemoveItem("apple"), ErrItemNotFound)
}

func TestItemMetadata(t *testing.T) {
	s := newTestState(t)
	require.ErrorIs(t, s.SetItemMetadata("dagger", "origin", "goblin"), ErrItemNotFound)

	s.AddItem("dagger")
	require.NoError(t, s.SetItemMetadata("dagger", "origin", "goblin"))
	assert.Equal(t, "goblin", s.Inventory["dagger"].Metadata["origin"])
}

func TestNPCDisposition(t *testing.T) {
	s := newTestState(t)

	assert.Equal(t, 50, s.NPCDisposition("elder"))
	assert.Equal(t, 65, s.UpdateNPCDisposition("elder", 15))
	assert.Equal(t, 100, s.UpdateNPCDisposition("elder", 200))
	assert.Equal(t, 0, s.UpdateNPCDisposition("elder", -500))
}

func TestNPCDispositionStaysClamped(t *testing.T) {
	w := testWorld(t)
	rapid.Check(t, func(t *rapid.T) {
		s := New("sess-prop", w)
		deltas := rapid.SliceOf(rapid.IntRange(-300, 300)).Draw(t, "deltas")
		for _, d := range deltas {
			got := s.UpdateNPCDisposition("elder", d)
			if got < 0 || got > 100 {
				t.Fatalf("disposition out of range: %d", got)
			}
		}
	})
}

func TestNPCFlags(t *testing.T) {
	s := newTestState(t)

	assert.False(t, s.HasNPCFlag("elder", "met"))
	s.SetNPCFlag("elder", "met")
	s.SetNPCFlag("elder", "met")
	assert.True(t, s.HasNPCFlag("elder", "met"))
	assert.Equal(t, []string{"met"}, s.NPCStates["elder"].Flags)
	assert.Equal(t, 50, s.NPCStates["elder"].Disposition)
}

func TestFactionStanding(t *testing.T) {
	s := newTestState(t)

	assert.Equal(t, -30, s.UpdateFactionStanding("thieves", -30))
	assert.Equal(t, -100, s.UpdateFactionStanding("thieves", -200))
	assert.Equal(t, 100, s.UpdateFactionStanding("thieves", 500))
}

func TestRecordEventSequences(t *testing.T) {
	s := newTestState(t)

	first := s.RecordEvent("player", "entered the square")
	second := s.RecordEvent("elder", "greeted the player")
	assert.Equal(t, uint64(1), first.Sequence)
	assert.Equal(t, uint64(2), second.Sequence)
	require.Len(t, s.WorldEvents, 2)
	assert.Equal(t, "elder", s.WorldEvents[1].Actor)
}

func TestCombatTransitions(t *testing.T) {
	s := newTestState(t)

	_, err := s.ExitCombat()
	require.ErrorIs(t, err, ErrInvalidTransition)

	session := &combat.Session{Status: combat.StatusActive}
	require.NoError(t, s.EnterCombat(session))
	assert.True(t, s.CombatActive)

	err = s.EnterCombat(&combat.Session{})
	require.ErrorIs(t, err, ErrInvalidTransition)

	got, err := s.ExitCombat()
	require.NoError(t, err)
	assert.Same(t, session, got)
	assert.False(t, s.CombatActive)
	assert.Nil(t, s.Combat)
}

func TestRecentActionsBounded(t *testing.T) {
	s := newTestState(t)
	for i := 0; i < 25; i++ {
		s.RecordAction("action")
	}
	assert.Len(t, s.RecentActions, 10)
}

func TestAdvanceTurn(t *testing.T) {
	s := newTestState(t)
	assert.Equal(t, 1, s.AdvanceTurn())
	assert.Equal(t, 2, s.AdvanceTurn())
}

func TestDispositionTier(t *testing.T) {
	assert.Equal(t, "hostile", DispositionTier(0))
	assert.Equal(t, "hostile", DispositionTier(19))
	assert.Equal(t, "suspicious", DispositionTier(20))
	assert.Equal(t, "neutral", DispositionTier(50))
	assert.Equal(t, "friendly", DispositionTier(60))
	assert.Equal(t, "very friendly", DispositionTier(80))
	assert.Equal(t, "very friendly", DispositionTier(100))
}

func TestStandingTier(t *testing.T) {
	assert.Equal(t, "hated", StandingTier(-100))
	assert.Equal(t, "hated", StandingTier(-51))
	assert.Equal(t, "disliked", StandingTier(-50))
	assert.Equal(t, "disliked", StandingTier(-21))
	assert.Equal(t, "neutral", StandingTier(0))
	assert.Equal(t, "liked", StandingTier(20))
	assert.Equal(t, "revered", StandingTier(50))
	assert.Equal(t, "revered", StandingTier(100))
}

func TestStandingPhrase(t *testing.T) {
	assert.Equal(t, "hated by", StandingPhrase(-60))
	assert.Equal(t, "neutral with", StandingPhrase(0))
	assert.Equal(t, "liked by", StandingPhrase(30))
	assert.Equal(t, "revered by", StandingPhrase(80))
}
