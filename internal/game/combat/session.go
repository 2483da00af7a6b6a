// Package combat implements the turn-based combat system for Fable.
package combat

import "fmt"

// Kind distinguishes the player combatant from NPC combatants.
type Kind int

const (
	KindPlayer Kind = iota
	KindNPC
)

// Status is the overall outcome state of a combat encounter.
type Status string

const (
	StatusActive         Status = "active"
	StatusPlayerVictory  Status = "player_victory"
	StatusPlayerDefeated Status = "player_defeated"
	StatusPlayerFled     Status = "player_fled"
)

// Phase tracks where the encounter is in its turn cycle.
type Phase string

const (
	PhaseNotStarted    Phase = "not_started"
	PhasePlayerTurn    Phase = "player_turn"
	PhaseResolveAction Phase = "resolve_action"
	PhaseEnemyTurn     Phase = "enemy_turn"
	PhaseVictory       Phase = "victory"
	PhaseDefeat        Phase = "defeat"
	PhaseFled          Phase = "fled"
)

// EffectType names a status effect applied during combat.
type EffectType string

const (
	EffectPoisoned  EffectType = "poisoned"
	EffectStunned   EffectType = "stunned"
	EffectWeakened  EffectType = "weakened"
	EffectProtected EffectType = "protected"
)

// Effect is an active status effect with a remaining-turn counter.
type Effect struct {
	Type EffectType `json:"type"`
	// RemainingTurns counts down at the end of the afflicted combatant's turn.
	// The effect expires when it reaches zero.
	RemainingTurns int `json:"remaining_turns"`
}

// Stats holds a combatant's core combat statistics.
type Stats struct {
	Health    int `json:"health"`
	MaxHealth int `json:"max_health"`
	Attack    int `json:"attack"`
	Defense   int `json:"defense"`
	Speed     int `json:"speed"`
}

// Combatant represents one participant in a combat encounter.
type Combatant struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Name  string `json:"name"`
	Stats Stats  `json:"stats"`
	// Weapon and Armor are equipped item IDs; empty means unarmed/unarmored.
	Weapon string `json:"weapon,omitempty"`
	Armor  string `json:"armor,omitempty"`
	// WeaponBonus and ArmorBonus are the flat stat bonuses the equipment grants.
	WeaponBonus int      `json:"weapon_bonus,omitempty"`
	ArmorBonus  int      `json:"armor_bonus,omitempty"`
	Effects     []Effect `json:"effects,omitempty"`
	// AttackEffect, when set, afflicts the defender on every successful hit
	// for AttackEffectTurns turns (venomous bites, numbing blows).
	AttackEffect      EffectType `json:"attack_effect,omitempty"`
	AttackEffectTurns int        `json:"attack_effect_turns,omitempty"`
	// Loot and ExperienceValue are folded back into game state on defeat.
	Loot            []string `json:"loot,omitempty"`
	ExperienceValue int      `json:"experience_value,omitempty"`
}

// IsPlayer reports whether this combatant is the player.
func (c *Combatant) IsPlayer() bool { return c.Kind == KindPlayer }

// IsDown reports whether this combatant's health has reached zero.
func (c *Combatant) IsDown() bool { return c.Stats.Health <= 0 }

// ApplyDamage reduces health by amount, flooring at zero.
//
// Precondition: amount must be >= 0.
// Postcondition: Health >= 0.
func (c *Combatant) ApplyDamage(amount int) {
	c.Stats.Health -= amount
	if c.Stats.Health < 0 {
		c.Stats.Health = 0
	}
}

// HasEffect reports whether an effect of the given type is active.
func (c *Combatant) HasEffect(t EffectType) bool {
	for _, e := range c.Effects {
		if e.Type == t && e.RemainingTurns > 0 {
			return true
		}
	}
	return false
}

// AddEffect applies a status effect, refreshing the duration if the same
// effect is already active.
//
// Precondition: turns must be > 0.
func (c *Combatant) AddEffect(t EffectType, turns int) {
	for i := range c.Effects {
		if c.Effects[i].Type == t {
			if c.Effects[i].RemainingTurns < turns {
				c.Effects[i].RemainingTurns = turns
			}
			return
		}
	}
	c.Effects = append(c.Effects, Effect{Type: t, RemainingTurns: turns})
}

// TickEffects decrements all effect durations by one turn and drops expired
// effects. Poison damage is applied here.
//
// Postcondition: Returns the poison damage applied this tick (0 if none).
func (c *Combatant) TickEffects() int {
	poison := 0
	kept := c.Effects[:0]
	for _, e := range c.Effects {
		if e.Type == EffectPoisoned {
			poison += poisonDamagePerTurn
		}
		e.RemainingTurns--
		if e.RemainingTurns > 0 {
			kept = append(kept, e)
		}
	}
	c.Effects = kept
	if len(c.Effects) == 0 {
		c.Effects = nil
	}
	if poison > 0 {
		c.ApplyDamage(poison)
	}
	return poison
}

// EffectiveAttack returns the attack stat with equipment and status effects applied.
//
// Postcondition: Returns >= 0. A weakened combatant attacks at half strength.
func (c *Combatant) EffectiveAttack() int {
	atk := c.Stats.Attack + c.WeaponBonus
	if c.HasEffect(EffectWeakened) {
		atk /= 2
	}
	if atk < 0 {
		atk = 0
	}
	return atk
}

// EffectiveDefense returns the defense stat with equipment and status effects applied.
//
// Postcondition: Returns >= 0.
func (c *Combatant) EffectiveDefense() int {
	def := c.Stats.Defense + c.ArmorBonus
	if c.HasEffect(EffectProtected) {
		def += protectedDefenseBonus
	}
	if def < 0 {
		def = 0
	}
	return def
}

// LogEntry is one recorded turn outcome in a combat session.
type LogEntry struct {
	Turn   int    `json:"turn"`
	Actor  string `json:"actor"`
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
	Damage int    `json:"damage,omitempty"`
	Text   string `json:"text"`
}

// Session holds the live state of a single combat encounter. It is owned by
// the game state while combat is active and serializes with it.
type Session struct {
	// Participants is ordered by descending speed, ties broken by insertion order.
	Participants []*Combatant `json:"participants"`
	// TurnIndex counts resolved participant actions across the encounter,
	// advancing after each action's formulas are applied.
	TurnIndex int `json:"turn_index"`
	// Round counts completed player/enemy cycles, starting at 1.
	Round  int        `json:"round"`
	Status Status     `json:"status"`
	Phase  Phase      `json:"phase"`
	Log    []LogEntry `json:"log"`
}

// NewSession creates a combat session from the player and at least one enemy.
//
// Precondition: player must be non-nil; enemies must be non-empty.
// Postcondition: Returns an active session in PhasePlayerTurn with
// participants ordered by descending speed (stable).
func NewSession(player *Combatant, enemies ...*Combatant) (*Session, error) {
	if player == nil {
		return nil, fmt.Errorf("combat requires a player combatant")
	}
	if len(enemies) == 0 {
		return nil, fmt.Errorf("combat requires at least one enemy")
	}
	participants := make([]*Combatant, 0, len(enemies)+1)
	participants = append(participants, player)
	participants = append(participants, enemies...)

	// Stable insertion sort keeps equal-speed combatants in given order.
	for i := 1; i < len(participants); i++ {
		for j := i; j > 0 && participants[j].Stats.Speed > participants[j-1].Stats.Speed; j-- {
			participants[j], participants[j-1] = participants[j-1], participants[j]
		}
	}

	s := &Session{
		Participants: participants,
		Round:        1,
		Status:       StatusActive,
		Phase:        PhasePlayerTurn,
	}
	s.record(player.Name, "engage", "", 0, fmt.Sprintf("Combat with %s has begun!", enemies[0].Name))
	return s, nil
}

// Player returns the player combatant.
//
// Postcondition: Returns non-nil for any session built by NewSession.
func (s *Session) Player() *Combatant {
	for _, c := range s.Participants {
		if c.IsPlayer() {
			return c
		}
	}
	return nil
}

// Enemy returns the enemy combatant with the given ID.
//
// Postcondition: Returns (combatant, true) if a living or downed enemy with
// that ID participates, or (nil, false) otherwise.
func (s *Session) Enemy(id string) (*Combatant, bool) {
	for _, c := range s.Participants {
		if !c.IsPlayer() && c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// LivingEnemies returns all enemy combatants with health above zero.
func (s *Session) LivingEnemies() []*Combatant {
	var alive []*Combatant
	for _, c := range s.Participants {
		if !c.IsPlayer() && !c.IsDown() {
			alive = append(alive, c)
		}
	}
	return alive
}

// Over reports whether the encounter has reached a terminal status.
func (s *Session) Over() bool { return s.Status != StatusActive }

func (s *Session) record(actor, action, target string, damage int, text string) {
	s.Log = append(s.Log, LogEntry{
		Turn:   len(s.Log),
		Actor:  actor,
		Action: action,
		Target: target,
		Damage: damage,
		Text:   text,
	})
}
