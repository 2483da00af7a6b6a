package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePrompt = `# Game World Context
[1] The village square bustles with traders.

# Current Game State
You are in Village Square. A cobbled plaza ringed by timber stalls.
Characters present: Elder Maren (friendly, you have met before), Tomas (neutral)
Items here: iron key, lantern
Inventory: bread, waterskin
Game turn: 4

# Player Command
look

# Task
Describe what happens next.`

func prompt(command string) string {
	return `You are in Village Square. The plaza is quiet.
Characters present: Elder Maren (friendly, you have met before)
Items here: lantern
Inventory: Nothing

# Player Command
` + command + `

# Task
Describe what happens next.`
}

func generate(t *testing.T, p string) string {
	t.Helper()
	out, err := NewRuleBased().Generate(context.Background(), p, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	return out
}

func TestRuleBasedLook(t *testing.T) {
	out := generate(t, samplePrompt)
	assert.Contains(t, out, "Village Square")
	assert.Contains(t, out, "Elder Maren")
	assert.Contains(t, out, "Tomas")
	assert.Contains(t, out, "iron key, lantern")
}

func TestRuleBasedTalk(t *testing.T) {
	out := generate(t, prompt("talk elder maren"))
	assert.Contains(t, out, "begin a conversation")

	out = generate(t, prompt("talk ghost"))
	assert.Contains(t, out, "anyone named ghost")
}

func TestRuleBasedTake(t *testing.T) {
	out := generate(t, prompt("take lantern"))
	assert.Contains(t, out, "pick up the lantern")

	out = generate(t, prompt("take sword"))
	assert.Contains(t, out, "don't see a sword")
}

func TestRuleBasedMove(t *testing.T) {
	out := generate(t, prompt("go old mill"))
	assert.Equal(t, "You make your way to old mill.", out)

	out = generate(t, prompt("go"))
	assert.Equal(t, "Where do you want to go?", out)
}

func TestRuleBasedInventory(t *testing.T) {
	out := generate(t, prompt("inventory"))
	assert.Equal(t, "You aren't carrying anything.", out)

	out = generate(t, `Inventory: bread, waterskin

# Player Command
inventory`)
	assert.Equal(t, "You are carrying: bread, waterskin.", out)
}

func TestRuleBasedHelp(t *testing.T) {
	out := generate(t, prompt("help"))
	assert.Contains(t, out, "Available commands")
	assert.Contains(t, out, "- look:")
}

func TestRuleBasedUnknownVerb(t *testing.T) {
	out := generate(t, prompt("juggle torches"))
	assert.Equal(t, "You juggle torches in Village Square. Nothing particularly interesting happens.", out)
}

func TestRuleBasedNoCommandSection(t *testing.T) {
	out := generate(t, "You are in Village Square.\nlook")
	assert.Contains(t, out, "Village Square")
}

func TestRuleBasedDeterministic(t *testing.T) {
	first := generate(t, samplePrompt)
	second := generate(t, samplePrompt)
	assert.Equal(t, first, second)
}
