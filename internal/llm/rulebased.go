package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Prompt markers the rule-based provider understands. They match the prompt
// layout the engine assembles, so the fallback can answer from the same
// input every other provider receives.
var (
	locationPattern  = regexp.MustCompile(`You are in ([^.]+)`)
	npcPattern       = regexp.MustCompile(`(?m)Characters present: (.+)$`)
	inventoryPattern = regexp.MustCompile(`(?m)Inventory: (.+)$`)
	itemsPattern     = regexp.MustCompile(`(?m)Items here: (.+)$`)
	commandPattern   = regexp.MustCompile(`# Player Command\n(.+)`)
)

const helpText = `Available commands:
- look: Examine your surroundings
- go [location]: Move to a different location
- talk [character]: Talk to a character
- take [item]: Pick up an item
- inventory: Check what you're carrying
- use [item]: Use an item from your inventory
- help: Display this help message`

// RuleBased is the deterministic fallback provider. It parses the game-state
// markers out of the prompt and answers common commands without a model. It
// never fails, which is what makes it a safe last resort.
type RuleBased struct{}

// NewRuleBased creates the deterministic fallback provider.
func NewRuleBased() *RuleBased { return &RuleBased{} }

// Name implements Provider.
func (r *RuleBased) Name() string { return "rule_based" }

// promptState is the game state recovered from prompt markers.
type promptState struct {
	location  string
	npcs      []string
	items     []string
	inventory []string
}

// Generate implements Provider. Options are ignored; output is a pure
// function of the prompt.
func (r *RuleBased) Generate(_ context.Context, prompt string, _ Options) (string, error) {
	st := extractState(prompt)
	action, target := extractCommand(prompt)
	return respond(action, target, st), nil
}

func extractState(prompt string) promptState {
	st := promptState{location: "Unknown"}

	if m := locationPattern.FindStringSubmatch(prompt); m != nil {
		st.location = strings.TrimSpace(m[1])
	}
	if m := npcPattern.FindStringSubmatch(prompt); m != nil {
		for _, npc := range strings.Split(m[1], ", ") {
			// Drop the "(friendly, you have met before)" annotation.
			name, _, _ := strings.Cut(npc, " (")
			st.npcs = append(st.npcs, name)
		}
	}
	if m := itemsPattern.FindStringSubmatch(prompt); m != nil {
		st.items = strings.Split(m[1], ", ")
	}
	if m := inventoryPattern.FindStringSubmatch(prompt); m != nil {
		if !strings.EqualFold(strings.TrimSpace(m[1]), "nothing") {
			st.inventory = strings.Split(m[1], ", ")
		}
	}
	return st
}

func extractCommand(prompt string) (action, target string) {
	var commandText string
	if m := commandPattern.FindStringSubmatch(prompt); m != nil {
		commandText = strings.ToLower(strings.TrimSpace(m[1]))
	} else {
		// No command section; treat a short final line as the command.
		lines := strings.Split(strings.TrimSpace(prompt), "\n")
		last := strings.ToLower(strings.TrimSpace(lines[len(lines)-1]))
		if len(strings.Fields(last)) <= 5 && !strings.HasSuffix(last, "?") {
			commandText = last
		}
	}

	parts := strings.Fields(commandText)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func respond(action, target string, st promptState) string {
	switch action {
	case "look", "examine", "inspect":
		var b strings.Builder
		fmt.Fprintf(&b, "You take a moment to examine your surroundings in %s. ", st.location)
		if len(st.npcs) > 0 {
			fmt.Fprintf(&b, "You see %s. ", strings.Join(st.npcs, ", "))
		}
		if len(st.items) > 0 {
			fmt.Fprintf(&b, "There are several items here: %s. ", strings.Join(st.items, ", "))
		} else {
			b.WriteString("You don't see any notable items. ")
		}
		b.WriteString("You can see pathways leading to other areas.")
		return b.String()

	case "go", "move", "travel", "walk":
		if target == "" {
			return "Where do you want to go?"
		}
		return fmt.Sprintf("You make your way to %s.", target)

	case "talk", "speak", "ask":
		if target == "" {
			return "Who do you want to talk to?"
		}
		for _, npc := range st.npcs {
			if strings.EqualFold(npc, target) {
				return fmt.Sprintf("You approach %s and begin a conversation. They respond cautiously but seem willing to talk.", target)
			}
		}
		return fmt.Sprintf("There doesn't seem to be anyone named %s here.", target)

	case "take", "get", "pick":
		if target == "" {
			return "What do you want to take?"
		}
		for _, item := range st.items {
			if strings.EqualFold(item, target) {
				return fmt.Sprintf("You pick up the %s and add it to your inventory.", target)
			}
		}
		return fmt.Sprintf("You don't see a %s here that you can take.", target)

	case "inventory", "items", "i":
		if len(st.inventory) > 0 {
			return fmt.Sprintf("You are carrying: %s.", strings.Join(st.inventory, ", "))
		}
		return "You aren't carrying anything."

	case "help", "commands", "?":
		return helpText

	case "":
		return "I'm not sure what you want to do. You could try 'look' to examine your surroundings, or 'help' to see available commands."

	default:
		return fmt.Sprintf("You %s %s in %s. Nothing particularly interesting happens.", action, target, st.location)
	}
}
