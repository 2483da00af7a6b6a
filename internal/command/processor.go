package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/oakmund/fable/internal/engine"
	"github.com/oakmund/fable/internal/game/combat"
	"github.com/oakmund/fable/internal/game/state"
	"github.com/oakmund/fable/internal/game/world"
	"github.com/oakmund/fable/internal/llm"
	"github.com/oakmund/fable/internal/scripting"
)

// Baseline player combat statistics. The player enters every encounter at
// full health; persistent wounds are out of scope for the combat fold-back.
const (
	playerHealth  = 30
	playerAttack  = 10
	playerDefense = 5
	playerSpeed   = 10

	// venomousDangerLevel is the danger level at and above which enemies
	// poison on hit.
	venomousDangerLevel = 2
)

const helpText = `Commands:
  look                     examine your surroundings
  go <direction|place>     move (north/south/east/west/up/down)
  talk <character>         speak with someone present
  take <item> / drop <item>
  inventory                list what you carry
  attack <target>          start combat; defend / flee during combat
  save / load              snapshot or restore this session
  provider <1-6>           switch the narration backend
Anything else is treated as a free-form action.`

// ProviderSwitcher hot-switches the narration backend. *llm.Manager
// satisfies it.
type ProviderSwitcher interface {
	Switch(ctx context.Context, v llm.Variant) error
	Active() (llm.Variant, string)
}

// Result is the outcome of one executed command.
type Result struct {
	Narrative *engine.NarrativeResult
	// Loaded is the restored state after a successful load command; the
	// session owner must adopt it.
	Loaded *state.GameState
}

// Processor routes classified player input to the narrative engine, the
// combat system, or direct state operations.
type Processor struct {
	narrative *engine.Engine
	combat    *combat.Engine
	saves     *state.FileStore
	world     *world.Manager
	// scripts may be nil; hooks then dispatch nothing.
	scripts   *scripting.Runner
	providers ProviderSwitcher
	logger    *zap.Logger
}

// NewProcessor creates a Processor.
//
// Precondition: narrative, combatEngine, saves, worldMgr, and logger must be
// non-nil; scripts and providers may be nil.
func NewProcessor(
	narrative *engine.Engine,
	combatEngine *combat.Engine,
	saves *state.FileStore,
	worldMgr *world.Manager,
	scripts *scripting.Runner,
	providers ProviderSwitcher,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		narrative: narrative,
		combat:    combatEngine,
		saves:     saves,
		world:     worldMgr,
		scripts:   scripts,
		providers: providers,
		logger:    logger,
	}
}

// Execute processes one line of player input against st. State-mutation
// refusals come back as refusal narrative, not errors; errors are reserved
// for save/load failures the caller must handle.
//
// Postcondition: On success the result carries non-empty narrative text.
func (p *Processor) Execute(ctx context.Context, st *state.GameState, input string) (*Result, error) {
	kind, verb, rest := Classify(input)
	p.logger.Debug("command classified",
		zap.String("session", st.SessionID),
		zap.String("kind", kind.String()),
		zap.String("verb", verb))

	if st.CombatActive && kind != KindSystem {
		return p.executeCombatTurn(st, verb, rest)
	}

	switch kind {
	case KindMovement:
		return p.executeMove(st, rest), nil
	case KindInteraction:
		return p.executeInteraction(ctx, st, verb, rest)
	case KindInventory:
		return p.executeInventory(st, verb, rest), nil
	case KindCombat:
		return p.executeCombatStart(st, verb, rest)
	case KindSystem:
		return p.executeSystem(ctx, st, verb, rest)
	default:
		return &Result{Narrative: p.narrative.ProcessTurn(ctx, st, input)}, nil
	}
}

// refusal builds a non-mutating refusal response.
func refusal(st *state.GameState, text string) *Result {
	return &Result{Narrative: &engine.NarrativeResult{
		Segments: []engine.Segment{{Style: engine.StyleNormal, Text: text}},
		Metadata: engine.Snapshot(st),
	}}
}

func (p *Processor) executeMove(st *state.GameState, rest string) *Result {
	if rest == "" {
		return refusal(st, "Where do you want to go?")
	}

	var err error
	if dirName, ok := directionWords[rest]; ok {
		err = st.MoveDirection(world.Direction(dirName))
	} else {
		err = p.moveToNamed(st, rest)
	}
	if err != nil {
		p.logger.Debug("movement refused", zap.String("target", rest), zap.Error(err))
		return refusal(st, "You can't go that way.")
	}

	st.RecordAction("went to " + rest)
	st.AdvanceTurn()

	area, areaErr := st.CurrentArea()
	if areaErr != nil {
		return refusal(st, "You can't go that way.")
	}

	result := &Result{Narrative: &engine.NarrativeResult{
		Segments: []engine.Segment{{Style: engine.StyleLocation, Text: describeArea(area)}},
	}}
	if flavor := p.scripts.OnEnterArea(area.ID); flavor != "" {
		result.Narrative.Segments = append(result.Narrative.Segments,
			engine.Segment{Style: engine.StyleNormal, Text: flavor})
	}
	result.Narrative.Metadata = engine.Snapshot(st)
	return result
}

// moveToNamed resolves a destination given by name rather than direction:
// an exit target whose id or display name matches.
func (p *Processor) moveToNamed(st *state.GameState, name string) error {
	area, err := st.CurrentArea()
	if err != nil {
		return err
	}

	want := normalizeID(name)
	for _, dir := range area.ExitDirections() {
		targetID, _ := area.ExitTo(dir)
		if targetID == "" {
			continue
		}
		if targetID == want {
			return st.MoveTo(targetID)
		}
		if target, ok := p.world.GetArea(targetID); ok && normalizeID(target.Name) == want {
			return st.MoveTo(targetID)
		}
	}
	return st.MoveTo(want)
}

func (p *Processor) executeInteraction(ctx context.Context, st *state.GameState, verb, rest string) (*Result, error) {
	switch verb {
	case "look", "l":
		area, err := st.CurrentArea()
		if err != nil {
			return refusal(st, "You see nothing of note."), nil
		}
		return &Result{Narrative: &engine.NarrativeResult{
			Segments: []engine.Segment{{Style: engine.StyleLocation, Text: describeArea(area)}},
			Metadata: engine.Snapshot(st),
		}}, nil

	case "talk", "speak", "ask":
		if rest == "" {
			return refusal(st, "Who do you want to talk to?"), nil
		}
		area, err := st.CurrentArea()
		if err != nil {
			return refusal(st, "There is no one here."), nil
		}
		npc, ok := matchName(area.NPCs, rest)
		if !ok {
			return refusal(st, fmt.Sprintf("There is no one called %q here.", rest)), nil
		}
		st.SetNPCFlag(normalizeID(npc), "met")
		return &Result{Narrative: p.narrative.ProcessTurn(ctx, st, "talk to "+npc)}, nil

	default: // examine, inspect
		return &Result{Narrative: p.narrative.ProcessTurn(ctx, st, verb+" "+rest)}, nil
	}
}

func (p *Processor) executeInventory(st *state.GameState, verb, rest string) *Result {
	switch verb {
	case "inventory", "items", "i":
		names := st.ItemNames()
		if len(names) == 0 {
			return refusal(st, "You aren't carrying anything.")
		}
		return refusal(st, "You are carrying: "+strings.Join(names, ", ")+".")

	case "take", "get", "pick":
		if rest == "" {
			return refusal(st, "What do you want to take?")
		}
		area, err := st.CurrentArea()
		if err != nil {
			return refusal(st, "There is nothing here to take.")
		}
		item, ok := matchName(area.Items, rest)
		if !ok {
			return refusal(st, fmt.Sprintf("There is no %s here.", rest))
		}
		area.RemoveItem(item)
		st.AddItem(item)
		st.RecordAction("took " + item)
		st.AdvanceTurn()

		text := fmt.Sprintf("You pick up the %s.", item)
		if flavor := p.scripts.OnTakeItem(area.ID, item); flavor != "" {
			text += " " + flavor
		}
		return refusal(st, text)

	case "drop":
		if rest == "" {
			return refusal(st, "What do you want to drop?")
		}
		item, ok := matchName(st.ItemNames(), rest)
		if !ok {
			return refusal(st, fmt.Sprintf("You aren't carrying a %s.", rest))
		}
		if err := st.RemoveItem(item); err != nil {
			return refusal(st, fmt.Sprintf("You aren't carrying a %s.", rest))
		}
		if area, err := st.CurrentArea(); err == nil {
			area.AddItem(item)
		}
		st.RecordAction("dropped " + item)
		st.AdvanceTurn()
		return refusal(st, fmt.Sprintf("You set down the %s.", item))

	default:
		return refusal(st, "You fumble with your pack to no effect.")
	}
}

func (p *Processor) executeCombatStart(st *state.GameState, verb, rest string) (*Result, error) {
	switch verb {
	case "attack", "fight", "hit", "kill":
	default:
		// defend/flee outside combat
		return refusal(st, "You are not in combat."), nil
	}
	if rest == "" {
		return refusal(st, "Attack what?"), nil
	}

	area, err := st.CurrentArea()
	if err != nil {
		return refusal(st, "There is nothing here to fight."), nil
	}
	npc, ok := matchName(area.NPCs, rest)
	if !ok {
		return refusal(st, fmt.Sprintf("There is no %s here to attack.", rest)), nil
	}

	session, err := combat.NewSession(newPlayerCombatant(), enemyFor(npc, area.DangerLevel))
	if err != nil {
		return nil, fmt.Errorf("starting combat: %w", err)
	}
	if err := st.EnterCombat(session); err != nil {
		return refusal(st, "You are already fighting."), nil
	}
	st.RecordAction("attacked " + npc)
	st.AdvanceTurn()

	result := &Result{Narrative: &engine.NarrativeResult{
		Segments: combatSegments(session.Log),
	}}
	result.Narrative.Segments = append(result.Narrative.Segments, engine.Segment{
		Style: engine.StyleCombat,
		Text:  "What do you do? (attack, defend, flee)",
	})
	result.Narrative.Metadata = engine.Snapshot(st)
	return result, nil
}

func (p *Processor) executeCombatTurn(st *state.GameState, verb, rest string) (*Result, error) {
	session := st.Combat
	if session == nil {
		return refusal(st, "The fight is already over."), nil
	}

	var (
		entries []combat.LogEntry
		err     error
	)
	switch verb {
	case "attack", "fight", "hit", "kill":
		targetID := normalizeID(rest)
		if targetID == "" {
			if living := session.LivingEnemies(); len(living) > 0 {
				targetID = living[0].ID
			}
		}
		entries, err = p.combat.PlayerAttack(session, targetID)
	case "defend", "block":
		entries, err = p.combat.PlayerDefend(session)
	case "flee":
		entries, err = p.combat.PlayerFlee(session)
	default:
		return refusal(st, "You are locked in combat! (attack, defend, flee)"), nil
	}
	if err != nil {
		return refusal(st, "You can't do that right now."), nil
	}

	st.AdvanceTurn()
	result := &Result{Narrative: &engine.NarrativeResult{Segments: combatSegments(entries)}}

	if session.Over() {
		segments, foldErr := p.foldBackCombat(st, session)
		if foldErr != nil {
			return nil, foldErr
		}
		result.Narrative.Segments = append(result.Narrative.Segments, segments...)
	}

	result.Narrative.Metadata = engine.Snapshot(st)
	return result, nil
}

// foldBackCombat applies a finished encounter to game state: loot and
// experience on victory, defeated NPCs removed from the area, the combat
// flag lowered.
func (p *Processor) foldBackCombat(st *state.GameState, session *combat.Session) ([]engine.Segment, error) {
	outcome, err := p.combat.Finish(session)
	if err != nil {
		return nil, fmt.Errorf("resolving combat: %w", err)
	}
	if _, err := st.ExitCombat(); err != nil {
		return nil, fmt.Errorf("resolving combat: %w", err)
	}

	var segments []engine.Segment
	switch outcome.Status {
	case combat.StatusPlayerVictory:
		area, areaErr := st.CurrentArea()
		for _, npcID := range outcome.DefeatedNPCs {
			if areaErr == nil {
				if name, ok := matchName(area.NPCs, strings.ReplaceAll(npcID, "_", " ")); ok {
					area.RemoveNPC(name)
				}
			}
			st.RecordEvent("player", "defeated "+npcID)
		}
		for _, item := range outcome.Loot {
			st.AddItem(item)
		}
		text := "The fight is won."
		if len(outcome.Loot) > 0 {
			text += " You claim: " + strings.Join(outcome.Loot, ", ") + "."
		}
		if outcome.Experience > 0 {
			text += fmt.Sprintf(" You gain %d experience.", outcome.Experience)
		}
		segments = append(segments, engine.Segment{Style: engine.StyleCombat, Text: text})

	case combat.StatusPlayerDefeated:
		st.RecordEvent("player", "was defeated in combat")
		segments = append(segments, engine.Segment{
			Style: engine.StyleCombat,
			Text:  "You are beaten down and barely escape with your life.",
		})

	case combat.StatusPlayerFled:
		st.RecordEvent("player", "fled from combat")
		segments = append(segments, engine.Segment{
			Style: engine.StyleCombat,
			Text:  "You slip away from the fight.",
		})
	}
	return segments, nil
}

func (p *Processor) executeSystem(ctx context.Context, st *state.GameState, verb, rest string) (*Result, error) {
	switch verb {
	case "save":
		if err := p.saves.Save(st); err != nil {
			return nil, err
		}
		return refusal(st, "Game saved."), nil

	case "load":
		loaded, err := p.saves.Load(st.SessionID, p.world)
		if err != nil {
			return nil, err
		}
		result := refusal(loaded, "Game loaded.")
		result.Loaded = loaded
		return result, nil

	case "provider":
		return p.executeProviderSwitch(ctx, st, rest), nil

	default: // help
		return refusal(st, helpText), nil
	}
}

func (p *Processor) executeProviderSwitch(ctx context.Context, st *state.GameState, rest string) *Result {
	if p.providers == nil {
		return refusal(st, "Provider switching is not available.")
	}

	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || !llm.Variant(n).Valid() {
		_, name := p.providers.Active()
		return refusal(st, fmt.Sprintf("Usage: provider <1-6>. Current provider: %s.", name))
	}

	if err := p.providers.Switch(ctx, llm.Variant(n)); err != nil {
		_, name := p.providers.Active()
		return refusal(st, fmt.Sprintf("Cannot switch provider: %v. Still using %s.", err, name))
	}
	_, name := p.providers.Active()
	return refusal(st, "Narration provider switched to "+name+".")
}

// describeArea renders the location block shown on look and arrival.
func describeArea(a *world.Area) string {
	var b strings.Builder
	b.WriteString(a.Name)
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(a.Description))
	if len(a.NPCs) > 0 {
		b.WriteString("\nCharacters present: ")
		b.WriteString(strings.Join(a.NPCs, ", "))
	}
	if len(a.Items) > 0 {
		b.WriteString("\nItems here: ")
		b.WriteString(strings.Join(a.Items, ", "))
	}
	if dirs := a.ExitDirections(); len(dirs) > 0 {
		names := make([]string, 0, len(dirs))
		for _, d := range dirs {
			names = append(names, string(d))
		}
		b.WriteString("\nExits: ")
		b.WriteString(strings.Join(names, ", "))
	}
	return b.String()
}

func combatSegments(entries []combat.LogEntry) []engine.Segment {
	segments := make([]engine.Segment, 0, len(entries))
	for _, e := range entries {
		segments = append(segments, engine.Segment{Style: engine.StyleCombat, Text: e.Text})
	}
	return segments
}

func newPlayerCombatant() *combat.Combatant {
	return &combat.Combatant{
		ID:   "player",
		Kind: combat.KindPlayer,
		Name: "You",
		Stats: combat.Stats{
			Health:    playerHealth,
			MaxHealth: playerHealth,
			Attack:    playerAttack,
			Defense:   playerDefense,
			Speed:     playerSpeed,
		},
	}
}

// enemyFor derives an NPC's combat statistics from the area's danger level.
// Creatures of danger 2 and above fight with venomous attacks.
func enemyFor(name string, danger int) *combat.Combatant {
	if danger < 1 {
		danger = 1
	}
	c := &combat.Combatant{
		ID:   normalizeID(name),
		Kind: combat.KindNPC,
		Name: name,
		Stats: combat.Stats{
			Health:    8 + danger*4,
			MaxHealth: 8 + danger*4,
			Attack:    4 + danger,
			Defense:   1 + danger/2,
			Speed:     4 + danger/2,
		},
		ExperienceValue: 10 * danger,
	}
	if danger >= venomousDangerLevel {
		c.AttackEffect = combat.EffectPoisoned
		c.AttackEffectTurns = 2
	}
	return c
}

// matchName finds the entry in names matching want, case-insensitively,
// by full name or substring.
func matchName(names []string, want string) (string, bool) {
	want = strings.ToLower(strings.TrimSpace(want))
	for _, n := range names {
		if strings.ToLower(n) == want {
			return n, true
		}
	}
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), want) {
			return n, true
		}
	}
	return "", false
}

func normalizeID(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
