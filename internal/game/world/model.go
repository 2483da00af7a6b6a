// Package world provides the game world model: areas, regions, exits, and
// the indexed world manager.
package world

import (
	"fmt"
	"sort"
)

// Direction represents a compass direction or named exit.
type Direction string

// Standard compass directions and vertical movements.
const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
	Up    Direction = "up"
	Down  Direction = "down"
)

// StandardDirections contains all standard compass and vertical directions.
var StandardDirections = []Direction{North, South, East, West, Up, Down}

// IsStandard reports whether d is one of the six standard directions.
func (d Direction) IsStandard() bool {
	for _, sd := range StandardDirections {
		if d == sd {
			return true
		}
	}
	return false
}

// Opposite returns the opposite of a standard direction.
// For custom directions, it returns an empty string.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case Up:
		return Down
	case Down:
		return Up
	default:
		return ""
	}
}

// Coordinates is the (x, y, level) position of an area, used for spatial
// layout sanity checks rather than physics.
type Coordinates [3]int

// Area represents a discrete location node in the game world graph.
type Area struct {
	// ID uniquely identifies this area within the world.
	ID string
	// Name is the display name of the area.
	Name string
	// Region is the broader geographic location (city, mountain, castle).
	Region string
	// SubRegion is an optional district or floor within the region.
	SubRegion string
	// ParentAreaID is the owning area when this is a nested sub-area. Empty = top level.
	ParentAreaID string
	// IsRegionEntrance marks the main entrance area of a region.
	IsRegionEntrance bool
	// Coordinates is the (x, y, level) position of the area.
	Coordinates Coordinates
	// Description is the multi-line area description shown to players.
	Description string
	// Attributes holds environment tags (underground, dark, magical, ...).
	Attributes []string
	// Exits maps a direction to the neighboring area ID. An empty target marks
	// a visible but unconnected passage.
	//
	// Exits are symmetric in spirit but not enforced bidirectionally: an area
	// may list an exit whose target does not list a return exit. World data
	// with asymmetric exits is accepted as-is.
	Exits map[Direction]string
	// Items is the ordered list of item names present in this area.
	Items []string
	// NPCs is the ordered list of NPC names present in this area.
	NPCs []string
	// Visited flips permanently to true the first time the player enters.
	Visited bool
	// DangerLevel indicates how dangerous this area is (0-10).
	DangerLevel int
	// RequiresItem optionally gates entry on an inventory item.
	RequiresItem string
}

// ExitTo returns the target area ID of the exit in the given direction.
//
// Postcondition: Returns (target, true) if a connected exit exists, or ("", false)
// when the direction has no exit or the exit is unconnected.
func (a *Area) ExitTo(dir Direction) (string, bool) {
	target, ok := a.Exits[dir]
	if !ok || target == "" {
		return "", false
	}
	return target, true
}

// ExitDirections returns the directions of all exits, sorted for stable output.
//
// Postcondition: Returns a non-nil slice in ascending lexical order.
func (a *Area) ExitDirections() []Direction {
	dirs := make([]Direction, 0, len(a.Exits))
	for d := range a.Exits {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i] < dirs[j] })
	return dirs
}

// AddExit adds or replaces an exit from this area.
func (a *Area) AddExit(dir Direction, targetID string) {
	if a.Exits == nil {
		a.Exits = make(map[Direction]string)
	}
	a.Exits[dir] = targetID
}

// RemoveExit removes an exit from this area.
//
// Postcondition: Returns true if the exit existed and was removed.
func (a *Area) RemoveExit(dir Direction) bool {
	if _, ok := a.Exits[dir]; !ok {
		return false
	}
	delete(a.Exits, dir)
	return true
}

// HasAttribute reports whether this area carries the given environment tag.
func (a *Area) HasAttribute(attr string) bool {
	for _, have := range a.Attributes {
		if have == attr {
			return true
		}
	}
	return false
}

// AddAttribute adds an environment tag if not already present.
func (a *Area) AddAttribute(attr string) {
	if !a.HasAttribute(attr) {
		a.Attributes = append(a.Attributes, attr)
	}
}

// HasItem reports whether the named item is present in this area.
func (a *Area) HasItem(item string) bool {
	for _, have := range a.Items {
		if have == item {
			return true
		}
	}
	return false
}

// AddItem places an item in this area if not already present.
func (a *Area) AddItem(item string) {
	if !a.HasItem(item) {
		a.Items = append(a.Items, item)
	}
}

// RemoveItem removes an item from this area.
//
// Postcondition: Returns true if the item was present and removed.
func (a *Area) RemoveItem(item string) bool {
	for i, have := range a.Items {
		if have == item {
			a.Items = append(a.Items[:i], a.Items[i+1:]...)
			return true
		}
	}
	return false
}

// HasNPC reports whether the named NPC is present in this area.
func (a *Area) HasNPC(npc string) bool {
	for _, have := range a.NPCs {
		if have == npc {
			return true
		}
	}
	return false
}

// AddNPC places an NPC in this area if not already present.
func (a *Area) AddNPC(npc string) {
	if !a.HasNPC(npc) {
		a.NPCs = append(a.NPCs, npc)
	}
}

// RemoveNPC removes an NPC from this area.
//
// Postcondition: Returns true if the NPC was present and removed.
func (a *Area) RemoveNPC(npc string) bool {
	for i, have := range a.NPCs {
		if have == npc {
			a.NPCs = append(a.NPCs[:i], a.NPCs[i+1:]...)
			return true
		}
	}
	return false
}

// MarkVisited records that the player has entered this area.
//
// Postcondition: Visited is true and never reverts.
func (a *Area) MarkVisited() {
	a.Visited = true
}

// Validate checks area invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
// Exit targets are deliberately not resolved here; see Manager.DanglingExits.
func (a *Area) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("area ID must not be empty")
	}
	if a.Name == "" {
		return fmt.Errorf("area %q: name must not be empty", a.ID)
	}
	if a.DangerLevel < 0 || a.DangerLevel > 10 {
		return fmt.Errorf("area %q: danger_level must be 0-10, got %d", a.ID, a.DangerLevel)
	}
	for dir := range a.Exits {
		if dir == "" {
			return fmt.Errorf("area %q: exit direction must not be empty", a.ID)
		}
	}
	return nil
}

// World is a complete loaded world document: all areas plus the starting
// area pointer.
type World struct {
	// Name is the display name of the world.
	Name string
	// CurrentAreaID is the area a new session starts in.
	CurrentAreaID string
	// Areas contains all areas, keyed by area ID.
	Areas map[string]*Area
}

// Validate checks world invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (w *World) Validate() error {
	if len(w.Areas) == 0 {
		return fmt.Errorf("world %q: must contain at least one area", w.Name)
	}
	if w.CurrentAreaID == "" {
		return fmt.Errorf("world %q: current_area_id must not be empty", w.Name)
	}
	if _, ok := w.Areas[w.CurrentAreaID]; !ok {
		return fmt.Errorf("world %q: current_area_id %q not found in areas", w.Name, w.CurrentAreaID)
	}
	for id, area := range w.Areas {
		if area.ID != id {
			return fmt.Errorf("world %q: area key %q does not match area ID %q", w.Name, id, area.ID)
		}
		if err := area.Validate(); err != nil {
			return fmt.Errorf("world %q: %w", w.Name, err)
		}
	}
	return nil
}
