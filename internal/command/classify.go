// Package command classifies raw player input and routes it to the
// narrative engine, the combat system, or direct state operations.
package command

import "strings"

// Kind is the routing class of a parsed command.
type Kind int

const (
	// KindNarrative is the fallback: free-form input handled by the
	// narrative engine rather than rejected.
	KindNarrative Kind = iota
	KindMovement
	KindInteraction
	KindInventory
	KindCombat
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindMovement:
		return "movement"
	case KindInteraction:
		return "interaction"
	case KindInventory:
		return "inventory"
	case KindCombat:
		return "combat"
	case KindSystem:
		return "system"
	default:
		return "narrative"
	}
}

var verbKinds = map[string]Kind{
	"go":     KindMovement,
	"move":   KindMovement,
	"walk":   KindMovement,
	"travel": KindMovement,
	"head":   KindMovement,

	"look":    KindInteraction,
	"l":       KindInteraction,
	"examine": KindInteraction,
	"inspect": KindInteraction,
	"talk":    KindInteraction,
	"speak":   KindInteraction,
	"ask":     KindInteraction,

	"take":      KindInventory,
	"get":       KindInventory,
	"pick":      KindInventory,
	"drop":      KindInventory,
	"inventory": KindInventory,
	"items":     KindInventory,
	"i":         KindInventory,

	"attack": KindCombat,
	"fight":  KindCombat,
	"hit":    KindCombat,
	"kill":   KindCombat,
	"defend": KindCombat,
	"block":  KindCombat,
	"flee":   KindCombat,

	"save":     KindSystem,
	"load":     KindSystem,
	"provider": KindSystem,
	"help":     KindSystem,
}

// directionWords maps bare direction input, long and short form, onto the
// canonical direction name.
var directionWords = map[string]string{
	"north": "north", "n": "north",
	"south": "south", "s": "south",
	"east": "east", "e": "east",
	"west": "west", "w": "west",
	"up": "up", "u": "up",
	"down": "down", "d": "down",
}

// Classify splits input into a routing kind, the leading verb, and the rest
// of the line. Classification is best-effort keyword matching; anything
// unrecognized is KindNarrative.
func Classify(input string) (Kind, string, string) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(input)))
	if len(fields) == 0 {
		return KindNarrative, "", ""
	}

	verb := fields[0]
	rest := strings.Join(fields[1:], " ")

	// A bare direction is movement ("north" == "go north").
	if dir, ok := directionWords[verb]; ok {
		return KindMovement, "go", dir
	}

	kind, ok := verbKinds[verb]
	if !ok {
		return KindNarrative, verb, rest
	}

	// "pick up X" reads more naturally than "pick X".
	if verb == "pick" {
		rest = strings.TrimPrefix(rest, "up ")
	}
	return kind, verb, rest
}
