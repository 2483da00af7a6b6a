package engine

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/oakmund/fable/internal/game/state"
)

// Directive is one structured state change extracted from model output. The
// model appends them as a trailing fenced json array; each maps onto one
// game-state mutation operation.
type Directive struct {
	// Type is one of: move, add_item, remove_item, disposition, faction, event.
	Type string `json:"type"`
	// Target names the subject: an area id, item id, npc id, or faction id.
	Target string `json:"target"`
	// Delta adjusts disposition or faction standing.
	Delta int `json:"delta,omitempty"`
	// Text is the description for event directives.
	Text string `json:"text,omitempty"`
}

var directiveBlock = regexp.MustCompile("(?s)```json\\s*(\\[.*?\\])\\s*```\\s*$")

// ParseNarrative splits raw model output into prose and directives. The
// trailing fenced json block, if any, is stripped from the prose. Parsing is
// tolerant: a malformed block yields no directives, and malformed entries
// within a valid block are dropped individually. Parsing never fails.
func ParseNarrative(raw string) (string, []Directive) {
	raw = strings.TrimSpace(raw)

	m := directiveBlock.FindStringSubmatchIndex(raw)
	if m == nil {
		return raw, nil
	}

	narrative := strings.TrimSpace(raw[:m[0]])
	block := raw[m[2]:m[3]]

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(block), &entries); err != nil {
		return narrative, nil
	}

	var directives []Directive
	for _, entry := range entries {
		var d Directive
		if err := json.Unmarshal(entry, &d); err != nil {
			continue
		}
		if !d.valid() {
			continue
		}
		directives = append(directives, d)
	}
	return narrative, directives
}

func (d Directive) valid() bool {
	switch d.Type {
	case "move", "add_item", "remove_item":
		return d.Target != ""
	case "disposition", "faction":
		return d.Target != "" && d.Delta != 0
	case "event":
		return d.Text != ""
	default:
		return false
	}
}

// applyDirectives runs each directive through the state's own mutation
// operations. A directive the state rejects is skipped and logged; the rest
// still apply. Returns the directives that took effect.
func applyDirectives(st *state.GameState, directives []Directive, logger *zap.Logger) []Directive {
	var applied []Directive
	for _, d := range directives {
		if err := applyOne(st, d); err != nil {
			logger.Debug("dropping rejected directive",
				zap.String("type", d.Type),
				zap.String("target", d.Target),
				zap.Error(err))
			continue
		}
		applied = append(applied, d)
	}
	return applied
}

func applyOne(st *state.GameState, d Directive) error {
	switch d.Type {
	case "move":
		return st.MoveTo(d.Target)
	case "add_item":
		st.AddItem(d.Target)
		return nil
	case "remove_item":
		return st.RemoveItem(d.Target)
	case "disposition":
		st.UpdateNPCDisposition(d.Target, d.Delta)
		return nil
	case "faction":
		st.UpdateFactionStanding(d.Target, d.Delta)
		return nil
	case "event":
		actor := d.Target
		if actor == "" {
			actor = "narrator"
		}
		st.RecordEvent(actor, d.Text)
		return nil
	default:
		return nil
	}
}
