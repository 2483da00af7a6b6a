package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oakmund/fable/internal/game/state"
	"github.com/oakmund/fable/internal/knowledge"
)

// Prompt assembly limits. Recent actions and world events are truncated so
// the state section stays a summary, not a transcript.
const (
	promptRecentActions = 5
	promptWorldEvents   = 3
)

// metFlag marks an NPC the player has talked to before.
const metFlag = "met"

// BuildPrompt assembles the provider-agnostic prompt for one turn: retrieved
// world context, a serialized slice of the game state, the player's literal
// command, and the narration task.
//
// Postcondition: The output is a pure function of its inputs; identical
// state and context produce identical prompts.
func BuildPrompt(st *state.GameState, rc *knowledge.RetrievalContext, command string) string {
	var b strings.Builder

	b.WriteString("# Game World Context\n")
	if len(rc.Chunks) == 0 {
		b.WriteString("No recorded lore is relevant to this moment.\n")
	}
	for i, chunk := range rc.Chunks {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(chunk.Text))
	}
	if len(rc.Nodes) > 0 {
		b.WriteString("Related: ")
		parts := make([]string, 0, len(rc.Nodes))
		for _, n := range rc.Nodes {
			parts = append(parts, fmt.Sprintf("%s (%s)", n.EntityID, n.Relation))
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("\n")
	}

	b.WriteString("\n# Current Game State\n")
	writeStateSection(&b, st)

	b.WriteString("\n# Player Command\n")
	b.WriteString(strings.TrimSpace(command))
	b.WriteString("\n")

	b.WriteString("\n# Task\n")
	b.WriteString(taskInstructions)

	return b.String()
}

func writeStateSection(b *strings.Builder, st *state.GameState) {
	area, err := st.CurrentArea()
	if err != nil {
		fmt.Fprintf(b, "You are in %s.\n", st.PlayerLocation)
	} else {
		fmt.Fprintf(b, "You are in %s. %s\n", area.Name, strings.TrimSpace(area.Description))

		if len(area.NPCs) > 0 {
			descs := make([]string, 0, len(area.NPCs))
			for _, npc := range area.NPCs {
				descs = append(descs, describeNPC(st, npc))
			}
			fmt.Fprintf(b, "Characters present: %s\n", strings.Join(descs, ", "))
		}
		if len(area.Items) > 0 {
			fmt.Fprintf(b, "Items here: %s\n", strings.Join(area.Items, ", "))
		}
	}

	if names := st.ItemNames(); len(names) > 0 {
		fmt.Fprintf(b, "Inventory: %s\n", strings.Join(names, ", "))
	} else {
		b.WriteString("Inventory: Nothing\n")
	}

	if len(st.FactionStandings) > 0 {
		factions := make([]string, 0, len(st.FactionStandings))
		for f := range st.FactionStandings {
			factions = append(factions, f)
		}
		sort.Strings(factions)
		standings := make([]string, 0, len(factions))
		for _, f := range factions {
			standings = append(standings, fmt.Sprintf("%s the %s",
				state.StandingPhrase(st.FactionStandings[f]), f))
		}
		fmt.Fprintf(b, "Faction relations: You are %s.\n", strings.Join(standings, "; "))
	}

	if len(st.RecentActions) > 0 {
		actions := st.RecentActions
		if len(actions) > promptRecentActions {
			actions = actions[len(actions)-promptRecentActions:]
		}
		fmt.Fprintf(b, "Recent actions: %s\n", strings.Join(actions, "; "))
	}

	if len(st.WorldEvents) > 0 {
		events := st.WorldEvents
		if len(events) > promptWorldEvents {
			events = events[len(events)-promptWorldEvents:]
		}
		b.WriteString("Recent events:\n")
		for _, ev := range events {
			fmt.Fprintf(b, "- %s\n", ev.Description)
		}
	}

	fmt.Fprintf(b, "Game turn: %d\n", st.Turn)
}

// describeNPC renders one NPC with their disposition tier and whether the
// player has met them, in the form the rule-based provider also parses.
func describeNPC(st *state.GameState, npc string) string {
	id := entityID(npc)
	tier := state.DispositionTier(st.NPCDisposition(id))
	met := "you have not met"
	if st.HasNPCFlag(id, metFlag) {
		met = "you have met before"
	}
	return fmt.Sprintf("%s (%s, %s)", npc, tier, met)
}

const taskInstructions = `Narrate the outcome of the player's command in second person, grounded in the world context and game state above. Write 2-3 short paragraphs of atmospheric prose. Stay consistent with established facts; do not invent exits, characters, or items that contradict the state. No meta-commentary, no headings, no questions to the player.

If the command changes the world, append a fenced json block after the prose listing the changes, for example:
` + "```json" + `
[{"type": "move", "target": "old_mill"}, {"type": "disposition", "target": "elder_maren", "delta": 5}]
` + "```" + `
Directive types: move, add_item, remove_item, disposition, faction, event. Omit the block when nothing changes.`
