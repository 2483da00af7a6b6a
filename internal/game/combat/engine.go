package combat

import (
	"fmt"

	"github.com/oakmund/fable/internal/game/dice"
)

// Damage and effect tuning constants.
const (
	baseHitChance         = 70
	baseDamage            = 5
	critChance            = 5
	poisonDamagePerTurn   = 2
	protectedDefenseBonus = 5
	// defaultAttackEffectTurns applies when a combatant's AttackEffect has no
	// explicit duration.
	defaultAttackEffectTurns = 2
	blockDefenseBonus     = 5
	baseFleeChance        = 50
	fleeSpeedWeight       = 5
	minFleeChance         = 10
	maxFleeChance         = 90
)

// Outcome summarizes a finished encounter for folding back into game state.
type Outcome struct {
	Status     Status
	Loot       []string
	Experience int
	// DefeatedNPCs lists enemy IDs whose health reached zero.
	DefeatedNPCs []string
}

// Engine resolves combat actions against a Session using an injected
// randomness source, so full encounters replay deterministically under a
// seeded source.
type Engine struct {
	rng dice.Source
}

// NewEngine creates a combat engine.
//
// Precondition: rng must be non-nil.
func NewEngine(rng dice.Source) *Engine {
	return &Engine{rng: rng}
}

// PlayerAttack resolves the player's attack against the named enemy, then
// runs the enemy turn if combat continues.
//
// Precondition: s must be active and in PhasePlayerTurn.
// Postcondition: Returns the log entries appended this cycle, or an error if
// the session is not awaiting a player action or the target is unknown.
func (e *Engine) PlayerAttack(s *Session, targetID string) ([]LogEntry, error) {
	if err := e.ensurePlayerTurn(s); err != nil {
		return nil, err
	}
	target, ok := s.Enemy(targetID)
	if !ok {
		return nil, fmt.Errorf("no such combatant %q", targetID)
	}
	if target.IsDown() {
		return nil, fmt.Errorf("%s is already defeated", target.Name)
	}

	mark := len(s.Log)
	s.Phase = PhaseResolveAction
	player := s.Player()

	if player.HasEffect(EffectStunned) {
		s.record(player.Name, "stunned", "", 0, "You are stunned and cannot act!")
	} else {
		e.resolveAttack(s, player, target)
	}

	e.endActorTurn(s, player)
	if e.checkStatus(s) {
		return s.Log[mark:], nil
	}
	e.runEnemyTurn(s)
	return s.Log[mark:], nil
}

// PlayerDefend resolves a defensive stance: the player gains the protected
// effect for the coming enemy turn, then the enemy turn runs.
//
// Precondition: s must be active and in PhasePlayerTurn.
// Postcondition: Returns the log entries appended this cycle.
func (e *Engine) PlayerDefend(s *Session) ([]LogEntry, error) {
	if err := e.ensurePlayerTurn(s); err != nil {
		return nil, err
	}
	mark := len(s.Log)
	s.Phase = PhaseResolveAction
	player := s.Player()

	if player.HasEffect(EffectStunned) {
		s.record(player.Name, "stunned", "", 0, "You are stunned and cannot act!")
	} else {
		player.AddEffect(EffectProtected, 2)
		s.record(player.Name, "defend", "", 0,
			fmt.Sprintf("You assume a defensive stance, increasing your defense by %d.", blockDefenseBonus))
	}

	e.endActorTurn(s, player)
	if e.checkStatus(s) {
		return s.Log[mark:], nil
	}
	e.runEnemyTurn(s)
	return s.Log[mark:], nil
}

// PlayerFlee attempts to escape the encounter. The chance improves with the
// player's speed advantage over the fastest living enemy and is clamped to
// [10%, 90%]. On failure the enemy turn runs.
//
// Precondition: s must be active and in PhasePlayerTurn.
// Postcondition: On success the session status is StatusPlayerFled.
func (e *Engine) PlayerFlee(s *Session) ([]LogEntry, error) {
	if err := e.ensurePlayerTurn(s); err != nil {
		return nil, err
	}
	mark := len(s.Log)
	s.Phase = PhaseResolveAction
	player := s.Player()

	if player.HasEffect(EffectStunned) {
		s.record(player.Name, "stunned", "", 0, "You are stunned and cannot flee!")
		e.endActorTurn(s, player)
		e.runEnemyTurn(s)
		return s.Log[mark:], nil
	}

	fastest := 0
	for _, enemy := range s.LivingEnemies() {
		if enemy.Stats.Speed > fastest {
			fastest = enemy.Stats.Speed
		}
	}
	chance := baseFleeChance + (player.Stats.Speed-fastest)*fleeSpeedWeight
	if chance < minFleeChance {
		chance = minFleeChance
	}
	if chance > maxFleeChance {
		chance = maxFleeChance
	}

	if dice.Percent(chance, e.rng) {
		s.record(player.Name, "flee", "", 0, "You break away and escape!")
		s.TurnIndex++
		s.Status = StatusPlayerFled
		s.Phase = PhaseFled
		return s.Log[mark:], nil
	}

	s.record(player.Name, "flee", "", 0, "You try to flee but cannot escape!")
	e.endActorTurn(s, player)
	e.runEnemyTurn(s)
	return s.Log[mark:], nil
}

// Finish summarizes a terminal session into an Outcome.
//
// Precondition: s.Over() must be true.
// Postcondition: Returns loot, experience, and defeated enemy IDs on victory;
// zero values for defeat and flight.
func (e *Engine) Finish(s *Session) (Outcome, error) {
	if !s.Over() {
		return Outcome{}, fmt.Errorf("combat is still active")
	}
	out := Outcome{Status: s.Status}
	if s.Status != StatusPlayerVictory {
		return out, nil
	}
	for _, c := range s.Participants {
		if c.IsPlayer() || !c.IsDown() {
			continue
		}
		out.DefeatedNPCs = append(out.DefeatedNPCs, c.ID)
		out.Loot = append(out.Loot, c.Loot...)
		out.Experience += c.ExperienceValue
	}
	return out, nil
}

func (e *Engine) ensurePlayerTurn(s *Session) error {
	if s.Over() {
		return fmt.Errorf("combat already resolved with status %q", s.Status)
	}
	if s.Phase != PhasePlayerTurn {
		return fmt.Errorf("not the player's turn (phase %q)", s.Phase)
	}
	return nil
}

// resolveAttack applies a single hit-roll/damage-roll exchange.
func (e *Engine) resolveAttack(s *Session, attacker, defender *Combatant) {
	hitChance := baseHitChance + attacker.Stats.Speed - defender.Stats.Speed
	if !dice.Percent(hitChance, e.rng) {
		s.record(attacker.Name, "attack", defender.ID, 0,
			fmt.Sprintf("%s's attack misses %s.", attacker.Name, defender.Name))
		return
	}

	damage := baseDamage + attacker.EffectiveAttack() + dice.Roll(4, e.rng) - defender.EffectiveDefense()
	if damage < 1 {
		damage = 1
	}
	text := fmt.Sprintf("%s hits %s for %d damage.", attacker.Name, defender.Name, damage)
	if dice.Percent(critChance, e.rng) {
		damage *= 2
		text = fmt.Sprintf("Critical hit! %s strikes %s for %d damage.", attacker.Name, defender.Name, damage)
	}
	defender.ApplyDamage(damage)
	s.record(attacker.Name, "attack", defender.ID, damage, text)

	if defender.IsDown() {
		s.record(attacker.Name, "defeat", defender.ID, 0, fmt.Sprintf("%s falls!", defender.Name))
		return
	}

	if attacker.AttackEffect != "" {
		turns := attacker.AttackEffectTurns
		if turns <= 0 {
			turns = defaultAttackEffectTurns
		}
		defender.AddEffect(attacker.AttackEffect, turns)
		s.record(attacker.Name, string(attacker.AttackEffect), defender.ID, 0,
			fmt.Sprintf("%s is %s!", defender.Name, attacker.AttackEffect))
	}
}

// endActorTurn ticks the actor's status effects, logs poison damage, and
// advances the turn index past the resolved action.
func (e *Engine) endActorTurn(s *Session, actor *Combatant) {
	if poison := actor.TickEffects(); poison > 0 {
		s.record(actor.Name, "poison", "", poison,
			fmt.Sprintf("%s suffers %d poison damage.", actor.Name, poison))
	}
	s.TurnIndex++
}

// runEnemyTurn lets every living enemy act, then checks for a terminal
// status and returns the cycle to the player.
func (e *Engine) runEnemyTurn(s *Session) {
	s.Phase = PhaseEnemyTurn
	player := s.Player()
	for _, enemy := range s.LivingEnemies() {
		if player.IsDown() {
			break
		}
		if enemy.HasEffect(EffectStunned) {
			s.record(enemy.Name, "stunned", "", 0, fmt.Sprintf("%s is stunned and cannot act!", enemy.Name))
		} else {
			e.resolveAttack(s, enemy, player)
		}
		e.endActorTurn(s, enemy)
	}
	if e.checkStatus(s) {
		return
	}
	s.Round++
	s.Phase = PhasePlayerTurn
}

// checkStatus transitions the session to a terminal phase when one side is
// out of the fight.
//
// Postcondition: Returns true iff the session is now terminal.
func (e *Engine) checkStatus(s *Session) bool {
	if s.Player().IsDown() {
		s.Status = StatusPlayerDefeated
		s.Phase = PhaseDefeat
		s.record(s.Player().Name, "defeated", "", 0, "You collapse, defeated.")
		return true
	}
	if len(s.LivingEnemies()) == 0 {
		s.Status = StatusPlayerVictory
		s.Phase = PhaseVictory
		s.record(s.Player().Name, "victory", "", 0, "You are victorious!")
		return true
	}
	return s.Over()
}
