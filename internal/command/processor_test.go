package command

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oakmund/fable/internal/engine"
	"github.com/oakmund/fable/internal/game/combat"
	"github.com/oakmund/fable/internal/game/dice"
	"github.com/oakmund/fable/internal/game/state"
	"github.com/oakmund/fable/internal/game/world"
	"github.com/oakmund/fable/internal/knowledge"
	"github.com/oakmund/fable/internal/llm"
)

// scriptSource replays a fixed value sequence so combat outcomes are exact.
type scriptSource struct {
	vals []int
	i    int
}

func (s *scriptSource) Intn(n int) int {
	if s.i >= len(s.vals) {
		panic(fmt.Sprintf("script exhausted after %d rolls", s.i))
	}
	v := s.vals[s.i] % n
	s.i++
	return v
}

// echoGenerator returns fixed prose with no directives.
type echoGenerator struct{ text string }

func (g echoGenerator) Generate(context.Context, string) (string, error) {
	return g.text, nil
}

func testWorld(t *testing.T) *world.Manager {
	t.Helper()
	square := &world.Area{
		ID: "village_square", Name: "Village Square", Region: "village",
		Description: "A cobbled square ringed by timber stalls.",
		Exits:       map[world.Direction]string{world.North: "old_mill"},
		Items:       []string{"lantern"},
		NPCs:        []string{"Elder Maren"},
	}
	mill := &world.Area{
		ID: "old_mill", Name: "Old Mill", Region: "village",
		Description: "The wheel creaks over dark water.",
		Exits:       map[world.Direction]string{world.South: "village_square"},
		NPCs:        []string{"Marsh Goblin"},
		DangerLevel: 1,
	}
	m, err := world.NewManager(&world.World{
		Name:          "testworld",
		CurrentAreaID: "village_square",
		Areas:         map[string]*world.Area{"village_square": square, "old_mill": mill},
	})
	require.NoError(t, err)
	return m
}

func newTestProcessor(t *testing.T, w *world.Manager, rng dice.Source) (*Processor, *state.GameState) {
	t.Helper()
	logger := zap.NewNop()

	retriever := engine.NewRetriever(knowledge.NewMemStore(), 5, logger)
	gen := echoGenerator{text: "The moment passes quietly."}
	narrative := engine.New(retriever, gen, llm.NewRuleBased(), logger, engine.WithRetryBackoff(0))

	saves, err := state.NewFileStore(t.TempDir())
	require.NoError(t, err)

	if rng == nil {
		rng = dice.NewSeededSource(1)
	}
	p := NewProcessor(narrative, combat.NewEngine(rng), saves, w, nil, nil, logger)
	return p, state.New("sess-cmd", w)
}

func execute(t *testing.T, p *Processor, st *state.GameState, input string) *Result {
	t.Helper()
	result, err := p.Execute(context.Background(), st, input)
	require.NoError(t, err)
	require.NotNil(t, result.Narrative)
	require.NotEmpty(t, result.Narrative.Text())
	return result
}

func TestClassify(t *testing.T) {
	cases := []struct {
		input string
		kind  Kind
		verb  string
		rest  string
	}{
		{"go north", KindMovement, "go", "north"},
		{"north", KindMovement, "go", "north"},
		{"n", KindMovement, "go", "north"},
		{"Take Lantern", KindInventory, "take", "lantern"},
		{"pick up lantern", KindInventory, "pick", "lantern"},
		{"attack goblin", KindCombat, "attack", "goblin"},
		{"talk elder", KindInteraction, "talk", "elder"},
		{"save", KindSystem, "save", ""},
		{"dance wildly", KindNarrative, "dance", "wildly"},
		{"", KindNarrative, "", ""},
	}
	for _, tc := range cases {
		kind, verb, rest := Classify(tc.input)
		assert.Equal(t, tc.kind, kind, tc.input)
		assert.Equal(t, tc.verb, verb, tc.input)
		assert.Equal(t, tc.rest, rest, tc.input)
	}
}

func TestGoNorthMovesAndDescribes(t *testing.T) {
	w := testWorld(t)
	p, st := newTestProcessor(t, w, nil)

	result := execute(t, p, st, "go north")

	assert.Equal(t, "old_mill", st.PlayerLocation)
	assert.True(t, st.HasVisited("old_mill"))
	assert.Contains(t, result.Narrative.Text(), "The wheel creaks over dark water.")
	assert.Equal(t, "old_mill", result.Narrative.Metadata.PlayerLocation)
}

func TestMoveByAreaName(t *testing.T) {
	p, st := newTestProcessor(t, testWorld(t), nil)

	execute(t, p, st, "go old mill")
	assert.Equal(t, "old_mill", st.PlayerLocation)
}

func TestMoveRefusalLeavesStateUntouched(t *testing.T) {
	p, st := newTestProcessor(t, testWorld(t), nil)

	result := execute(t, p, st, "go south")
	assert.Contains(t, result.Narrative.Text(), "can't go that way")
	assert.Equal(t, "village_square", st.PlayerLocation)
	assert.Zero(t, st.Turn)
}

func TestLookIsIdempotent(t *testing.T) {
	p, st := newTestProcessor(t, testWorld(t), nil)

	for i := 0; i < 3; i++ {
		result := execute(t, p, st, "look")
		assert.Contains(t, result.Narrative.Text(), "Village Square")
		assert.Contains(t, result.Narrative.Text(), "Exits: north")
	}
	assert.Equal(t, "village_square", st.PlayerLocation)
	assert.Zero(t, st.InventoryCount())
	assert.False(t, st.CombatActive)
	assert.Zero(t, st.Turn)
}

func TestTakeAndDropItem(t *testing.T) {
	w := testWorld(t)
	p, st := newTestProcessor(t, w, nil)

	execute(t, p, st, "take lantern")
	assert.True(t, st.HasItem("lantern"))
	area, err := st.CurrentArea()
	require.NoError(t, err)
	assert.False(t, area.HasItem("lantern"))

	result := execute(t, p, st, "take lantern")
	assert.Contains(t, result.Narrative.Text(), "no lantern here")

	execute(t, p, st, "drop lantern")
	assert.False(t, st.HasItem("lantern"))
	assert.True(t, area.HasItem("lantern"))
}

func TestInventoryListing(t *testing.T) {
	p, st := newTestProcessor(t, testWorld(t), nil)

	result := execute(t, p, st, "inventory")
	assert.Contains(t, result.Narrative.Text(), "aren't carrying")

	execute(t, p, st, "take lantern")
	result = execute(t, p, st, "inventory")
	assert.Contains(t, result.Narrative.Text(), "lantern")
}

func TestTalkToUnknownNPC(t *testing.T) {
	p, st := newTestProcessor(t, testWorld(t), nil)

	result := execute(t, p, st, "talk ghost")
	assert.Contains(t, result.Narrative.Text(), "no one called")
}

func TestTalkMarksNPCMet(t *testing.T) {
	p, st := newTestProcessor(t, testWorld(t), nil)

	execute(t, p, st, "talk elder maren")
	assert.True(t, st.HasNPCFlag("elder_maren", "met"))
}

func TestAttackMissingNPCRefuses(t *testing.T) {
	p, st := newTestProcessor(t, testWorld(t), nil)

	result := execute(t, p, st, "attack goblin")
	assert.Contains(t, result.Narrative.Text(), "no goblin here")
	assert.False(t, st.CombatActive)
}

func TestEnemyForVenomAtHighDanger(t *testing.T) {
	tame := enemyFor("Marsh Goblin", 1)
	assert.Empty(t, tame.AttackEffect)

	wretch := enemyFor("Bog Wretch", 2)
	assert.Equal(t, combat.EffectPoisoned, wretch.AttackEffect)
	assert.Equal(t, 2, wretch.AttackEffectTurns)
}

func TestCombatVictoryFoldsBack(t *testing.T) {
	w := testWorld(t)
	// Rolls: hit (50 < 75), damage die 1, no crit (99). 15 damage downs the
	// 12-health goblin in one strike.
	p, st := newTestProcessor(t, w, &scriptSource{vals: []int{50, 0, 99}})

	require.NoError(t, st.MoveTo("old_mill"))
	start := execute(t, p, st, "attack marsh goblin")
	assert.True(t, st.CombatActive)
	assert.Contains(t, start.Narrative.Text(), "Combat with Marsh Goblin has begun!")

	result := execute(t, p, st, "attack")
	assert.False(t, st.CombatActive)
	assert.Nil(t, st.Combat)
	assert.Contains(t, result.Narrative.Text(), "Marsh Goblin falls!")
	assert.Contains(t, result.Narrative.Text(), "You gain 10 experience.")

	area, err := st.CurrentArea()
	require.NoError(t, err)
	assert.False(t, area.HasNPC("Marsh Goblin"))
}

func TestCombatFlee(t *testing.T) {
	// Flee chance 80: roll 10 succeeds.
	p, st := newTestProcessor(t, testWorld(t), &scriptSource{vals: []int{10}})

	require.NoError(t, st.MoveTo("old_mill"))
	execute(t, p, st, "attack marsh goblin")
	result := execute(t, p, st, "flee")

	assert.False(t, st.CombatActive)
	assert.Contains(t, result.Narrative.Text(), "slip away")
}

func TestNonCombatCommandsBlockedDuringCombat(t *testing.T) {
	p, st := newTestProcessor(t, testWorld(t), dice.NewSeededSource(7))

	require.NoError(t, st.MoveTo("old_mill"))
	execute(t, p, st, "attack marsh goblin")

	result := execute(t, p, st, "go south")
	assert.Contains(t, result.Narrative.Text(), "locked in combat")
	assert.Equal(t, "old_mill", st.PlayerLocation)
}

func TestSaveAndLoad(t *testing.T) {
	w := testWorld(t)
	p, st := newTestProcessor(t, w, nil)

	execute(t, p, st, "take lantern")
	execute(t, p, st, "save")

	execute(t, p, st, "go north")
	assert.Equal(t, "old_mill", st.PlayerLocation)

	result := execute(t, p, st, "load")
	require.NotNil(t, result.Loaded)
	assert.Equal(t, "village_square", result.Loaded.PlayerLocation)
	assert.True(t, result.Loaded.HasItem("lantern"))
}

func TestLoadWithoutSaveFails(t *testing.T) {
	p, st := newTestProcessor(t, testWorld(t), nil)

	_, err := p.Execute(context.Background(), st, "load")
	assert.ErrorIs(t, err, state.ErrSaveNotFound)
}

func TestHelp(t *testing.T) {
	p, st := newTestProcessor(t, testWorld(t), nil)
	result := execute(t, p, st, "help")
	assert.Contains(t, result.Narrative.Text(), "Commands:")
}

func TestUnknownCommandRoutesToNarrative(t *testing.T) {
	p, st := newTestProcessor(t, testWorld(t), nil)

	result := execute(t, p, st, "whistle a marching tune")
	assert.Equal(t, "The moment passes quietly.", result.Narrative.Text())
	assert.Equal(t, 1, st.Turn)
}

func TestProviderSwitchWithoutManager(t *testing.T) {
	p, st := newTestProcessor(t, testWorld(t), nil)
	result := execute(t, p, st, "provider 3")
	assert.Contains(t, result.Narrative.Text(), "not available")
}
