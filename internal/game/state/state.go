// Package state holds the authoritative game state for a session and the
// mutation operations that are the only way to change it.
package state

import (
	"fmt"
	"sort"
	"time"

	"github.com/oakmund/fable/internal/game/combat"
	"github.com/oakmund/fable/internal/game/world"
)

const (
	// maxRecentActions bounds the rolling action history kept for prompts.
	maxRecentActions = 10

	// defaultDisposition is the starting attitude of an unmet NPC.
	defaultDisposition = 50

	minDisposition = 0
	maxDisposition = 100
	minStanding    = -100
	maxStanding    = 100
)

// InventoryItem is one inventory entry: a count plus free-form metadata.
type InventoryItem struct {
	Count    int               `json:"count"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NPCState tracks the player-facing state of one NPC.
type NPCState struct {
	// Disposition is the NPC's attitude toward the player, 0 to 100.
	Disposition int `json:"disposition"`
	// Flags holds arbitrary markers (met, quest_given, defeated).
	Flags []string `json:"flags,omitempty"`
}

// AreaOverlay captures the mutable fields of one area so that changes made
// during play (taken items, defeated NPCs, visited flags) ride along with
// the snapshot instead of living only in the in-memory world.
type AreaOverlay struct {
	Items   []string `json:"items"`
	NPCs    []string `json:"npcs"`
	Visited bool     `json:"visited,omitempty"`
}

// Event is one record in the append-only world event log.
type Event struct {
	Sequence    uint64    `json:"sequence"`
	Timestamp   time.Time `json:"timestamp"`
	Actor       string    `json:"actor"`
	Description string    `json:"description"`
}

// GameState is the single source of truth for one game session. The engine
// and combat system receive a handle and mutate it through the operations
// below; they never hold parallel copies.
//
// A GameState is owned by exactly one session and is not safe for concurrent
// use; sessions serialize their own turns.
type GameState struct {
	SessionID        string                    `json:"session_id"`
	PlayerLocation   string                    `json:"player_location"`
	Inventory        map[string]*InventoryItem `json:"inventory"`
	NPCStates        map[string]*NPCState      `json:"npc_states"`
	FactionStandings map[string]int            `json:"faction_standings"`
	WorldEvents      []Event                   `json:"world_events"`
	VisitedAreas     []string                  `json:"visited_areas"`
	RecentActions    []string                  `json:"recent_actions"`
	Turn             int                       `json:"turn"`
	CombatActive     bool                      `json:"combat_active"`
	Combat           *combat.Session           `json:"combat,omitempty"`
	AreaOverlays     map[string]*AreaOverlay   `json:"area_overlays,omitempty"`

	world *world.Manager
}

// New creates a fresh game state positioned at the world's start area.
//
// Precondition: w must be a constructed world manager.
// Postcondition: Returns a state with the start area visited and empty
// inventory, NPC, faction, and event collections.
func New(sessionID string, w *world.Manager) *GameState {
	start := w.StartArea()
	s := &GameState{
		SessionID:        sessionID,
		PlayerLocation:   start.ID,
		Inventory:        make(map[string]*InventoryItem),
		NPCStates:        make(map[string]*NPCState),
		FactionStandings: make(map[string]int),
		world:            w,
	}
	s.markVisited(start)
	return s
}

// AttachWorld reattaches the world manager after deserialization and
// replays the snapshot's area overlays onto it, so a freshly loaded world
// document picks up the items, NPCs, and visited flags as they were at save
// time. Overlays naming areas absent from w are skipped; world data is
// allowed to drift between saves.
//
// Precondition: w must contain the area named by PlayerLocation.
func (s *GameState) AttachWorld(w *world.Manager) error {
	if _, ok := w.GetArea(s.PlayerLocation); !ok {
		return fmt.Errorf("player location %q not found in world", s.PlayerLocation)
	}
	for id, overlay := range s.AreaOverlays {
		a, ok := w.GetArea(id)
		if !ok {
			continue
		}
		a.Items = append([]string(nil), overlay.Items...)
		a.NPCs = append([]string(nil), overlay.NPCs...)
		if overlay.Visited {
			a.MarkVisited()
		}
	}
	s.world = w
	return nil
}

// CaptureWorld snapshots the mutable fields of every area into the state's
// overlays. Called before serialization so world changes survive a save into
// a process that reloads the world document from disk.
//
// Postcondition: AreaOverlays holds one entry per area; a nil world is a
// no-op.
func (s *GameState) CaptureWorld() {
	if s.world == nil {
		return
	}
	s.AreaOverlays = make(map[string]*AreaOverlay)
	for _, id := range s.world.AreaIDs() {
		a, ok := s.world.GetArea(id)
		if !ok {
			continue
		}
		s.AreaOverlays[id] = &AreaOverlay{
			Items:   append([]string(nil), a.Items...),
			NPCs:    append([]string(nil), a.NPCs...),
			Visited: a.Visited,
		}
	}
}

// CurrentArea returns the area the player is in.
//
// Postcondition: Returns a non-nil area for any state built by New and kept
// consistent through MoveTo.
func (s *GameState) CurrentArea() (*world.Area, error) {
	a, ok := s.world.GetArea(s.PlayerLocation)
	if !ok {
		return nil, fmt.Errorf("player location %q not found in world", s.PlayerLocation)
	}
	return a, nil
}

// MoveTo transitions the player to areaID.
//
// Precondition: areaID must be an exit target of the current area; any
// requires_item gate must be satisfied; combat must not be active.
// Postcondition: On success the player location is areaID and the area is
// marked visited. On failure the state is unchanged and the error wraps
// ErrInvalidTransition.
func (s *GameState) MoveTo(areaID string) error {
	if s.CombatActive {
		return fmt.Errorf("%w: cannot travel while combat is active", ErrInvalidTransition)
	}
	current, err := s.CurrentArea()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}

	connected := false
	for _, target := range current.Exits {
		if target == areaID {
			connected = true
			break
		}
	}
	if !connected {
		return fmt.Errorf("%w: no exit from %q leads to %q", ErrInvalidTransition, current.ID, areaID)
	}

	target, ok := s.world.GetArea(areaID)
	if !ok {
		return fmt.Errorf("%w: area %q does not exist", ErrInvalidTransition, areaID)
	}
	if target.RequiresItem != "" && !s.HasItem(target.RequiresItem) {
		return fmt.Errorf("%w: entry to %q requires %q", ErrInvalidTransition, areaID, target.RequiresItem)
	}

	s.PlayerLocation = areaID
	s.markVisited(target)
	return nil
}

// MoveDirection resolves a direction from the current area and transitions
// to the destination.
//
// Postcondition: On failure the state is unchanged and the error wraps
// ErrInvalidTransition.
func (s *GameState) MoveDirection(dir world.Direction) error {
	if s.CombatActive {
		return fmt.Errorf("%w: cannot travel while combat is active", ErrInvalidTransition)
	}
	dest, err := s.world.Navigate(s.PlayerLocation, dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	return s.MoveTo(dest.ID)
}

// AddItem adds one of itemID to the inventory.
func (s *GameState) AddItem(itemID string) {
	if entry, ok := s.Inventory[itemID]; ok {
		entry.Count++
		return
	}
	s.Inventory[itemID] = &InventoryItem{Count: 1}
}

// SetItemMetadata attaches a metadata key to an inventory item.
//
// Postcondition: Returns ErrItemNotFound if the item is absent.
func (s *GameState) SetItemMetadata(itemID, key, value string) error {
	entry, ok := s.Inventory[itemID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	if entry.Metadata == nil {
		entry.Metadata = make(map[string]string)
	}
	entry.Metadata[key] = value
	return nil
}

// RemoveItem removes one of itemID from the inventory.
//
// Postcondition: Returns ErrItemNotFound if the item is absent; otherwise
// the count is decremented and the entry dropped at zero.
func (s *GameState) RemoveItem(itemID string) error {
	entry, ok := s.Inventory[itemID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	entry.Count--
	if entry.Count <= 0 {
		delete(s.Inventory, itemID)
	}
	return nil
}

// HasItem reports whether at least one of itemID is held.
func (s *GameState) HasItem(itemID string) bool {
	entry, ok := s.Inventory[itemID]
	return ok && entry.Count > 0
}

// InventoryCount returns the total number of held items, counting duplicates.
func (s *GameState) InventoryCount() int {
	total := 0
	for _, entry := range s.Inventory {
		total += entry.Count
	}
	return total
}

// ItemNames returns the held item IDs in ascending order.
//
// Postcondition: Returns a non-nil sorted slice.
func (s *GameState) ItemNames() []string {
	names := make([]string, 0, len(s.Inventory))
	for id := range s.Inventory {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}

// UpdateNPCDisposition shifts an NPC's disposition by delta, clamped to
// [0, 100]. Unmet NPCs start at 50.
//
// Postcondition: Returns the new disposition value.
func (s *GameState) UpdateNPCDisposition(npcID string, delta int) int {
	npc, ok := s.NPCStates[npcID]
	if !ok {
		npc = &NPCState{Disposition: defaultDisposition}
		s.NPCStates[npcID] = npc
	}
	npc.Disposition = clamp(npc.Disposition+delta, minDisposition, maxDisposition)
	return npc.Disposition
}

// NPCDisposition returns an NPC's disposition, defaulting to 50 when unmet.
func (s *GameState) NPCDisposition(npcID string) int {
	if npc, ok := s.NPCStates[npcID]; ok {
		return npc.Disposition
	}
	return defaultDisposition
}

// SetNPCFlag records a marker on an NPC, creating the NPC state if needed.
func (s *GameState) SetNPCFlag(npcID, flag string) {
	npc, ok := s.NPCStates[npcID]
	if !ok {
		npc = &NPCState{Disposition: defaultDisposition}
		s.NPCStates[npcID] = npc
	}
	for _, have := range npc.Flags {
		if have == flag {
			return
		}
	}
	npc.Flags = append(npc.Flags, flag)
}

// HasNPCFlag reports whether an NPC carries the given marker.
func (s *GameState) HasNPCFlag(npcID, flag string) bool {
	npc, ok := s.NPCStates[npcID]
	if !ok {
		return false
	}
	for _, have := range npc.Flags {
		if have == flag {
			return true
		}
	}
	return false
}

// UpdateFactionStanding shifts a faction standing by delta, clamped to
// [-100, 100]. Unknown factions start at 0.
//
// Postcondition: Returns the new standing value.
func (s *GameState) UpdateFactionStanding(factionID string, delta int) int {
	s.FactionStandings[factionID] = clamp(s.FactionStandings[factionID]+delta, minStanding, maxStanding)
	return s.FactionStandings[factionID]
}

// RecordEvent appends an event to the world event log.
//
// Postcondition: The event carries a sequence number strictly greater than
// every earlier event's.
func (s *GameState) RecordEvent(actor, description string) Event {
	var seq uint64 = 1
	if n := len(s.WorldEvents); n > 0 {
		seq = s.WorldEvents[n-1].Sequence + 1
	}
	ev := Event{
		Sequence:    seq,
		Timestamp:   time.Now().UTC(),
		Actor:       actor,
		Description: description,
	}
	s.WorldEvents = append(s.WorldEvents, ev)
	return ev
}

// EnterCombat attaches a combat session and raises the combat flag.
//
// Precondition: No combat may be active.
// Postcondition: On failure the error wraps ErrInvalidTransition and state
// is unchanged.
func (s *GameState) EnterCombat(session *combat.Session) error {
	if s.CombatActive {
		return fmt.Errorf("%w: combat is already active", ErrInvalidTransition)
	}
	s.CombatActive = true
	s.Combat = session
	return nil
}

// ExitCombat detaches the combat session and lowers the combat flag.
//
// Precondition: Combat must be active.
// Postcondition: Returns the detached session for outcome fold-back.
func (s *GameState) ExitCombat() (*combat.Session, error) {
	if !s.CombatActive {
		return nil, fmt.Errorf("%w: no combat is active", ErrInvalidTransition)
	}
	session := s.Combat
	s.CombatActive = false
	s.Combat = nil
	return session, nil
}

// AdvanceTurn increments the turn counter.
//
// Postcondition: Returns the new turn number, starting from 1.
func (s *GameState) AdvanceTurn() int {
	s.Turn++
	return s.Turn
}

// RecordAction appends a player action to the bounded recent-action history.
func (s *GameState) RecordAction(text string) {
	s.RecentActions = append(s.RecentActions, text)
	if len(s.RecentActions) > maxRecentActions {
		s.RecentActions = s.RecentActions[len(s.RecentActions)-maxRecentActions:]
	}
}

// HasVisited reports whether the player has ever entered the area.
func (s *GameState) HasVisited(areaID string) bool {
	for _, id := range s.VisitedAreas {
		if id == areaID {
			return true
		}
	}
	return false
}

func (s *GameState) markVisited(a *world.Area) {
	a.MarkVisited()
	if !s.HasVisited(a.ID) {
		s.VisitedAreas = append(s.VisitedAreas, a.ID)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
