package world

import (
	"fmt"
	"sort"
	"sync"
)

// Manager provides thread-safe access to the loaded world.
// It indexes areas for O(1) lookup by area ID and by region.
type Manager struct {
	mu        sync.RWMutex
	world     *World
	byRegion  map[string][]string
	startArea string
}

// NewManager creates a Manager from a validated world.
//
// Precondition: w must pass World.Validate.
// Postcondition: Returns a Manager with areas indexed by ID and region.
func NewManager(w *World) (*Manager, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		world:     w,
		byRegion:  make(map[string][]string),
		startArea: w.CurrentAreaID,
	}
	for id, area := range w.Areas {
		if area.Region != "" {
			m.byRegion[area.Region] = append(m.byRegion[area.Region], id)
		}
	}
	for region := range m.byRegion {
		sort.Strings(m.byRegion[region])
	}
	return m, nil
}

// DanglingExits returns every exit whose target does not resolve to a known
// area. Asymmetric and dangling exits are not load errors; callers may log
// the result as a warning.
//
// Postcondition: Returns a non-nil slice of "area/direction -> target"
// descriptions, empty when all exits resolve.
func (m *Manager) DanglingExits() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var dangling []string
	for _, area := range m.world.Areas {
		for dir, target := range area.Exits {
			if target == "" {
				continue
			}
			if _, ok := m.world.Areas[target]; !ok {
				dangling = append(dangling, fmt.Sprintf("%s/%s -> %s", area.ID, dir, target))
			}
		}
	}
	sort.Strings(dangling)
	if dangling == nil {
		dangling = []string{}
	}
	return dangling
}

// GetArea returns the area with the given ID.
//
// Postcondition: Returns (area, true) if found, or (nil, false) otherwise.
func (m *Manager) GetArea(id string) (*Area, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.world.Areas[id]
	return a, ok
}

// Navigate resolves movement from an area in a direction.
//
// Precondition: fromAreaID must exist in the world.
// Postcondition: Returns the destination area, or an error if the exit
// doesn't exist, is unconnected, or the target area is missing.
func (m *Manager) Navigate(fromAreaID string, dir Direction) (*Area, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from, ok := m.world.Areas[fromAreaID]
	if !ok {
		return nil, fmt.Errorf("area %q not found", fromAreaID)
	}

	target, ok := from.ExitTo(dir)
	if !ok {
		return nil, fmt.Errorf("no exit %q from %q", dir, fromAreaID)
	}

	dest, ok := m.world.Areas[target]
	if !ok {
		return nil, fmt.Errorf("exit %q from %q targets unknown area %q", dir, fromAreaID, target)
	}

	return dest, nil
}

// StartArea returns the area new sessions begin in.
//
// Postcondition: Returns a non-nil area; the start area is validated at load.
func (m *Manager) StartArea() *Area {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.world.Areas[m.startArea]
}

// AreasInRegion returns the IDs of all areas in the given region, sorted.
//
// Postcondition: Returns a non-nil slice; may be empty.
func (m *Manager) AreasInRegion(region string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byRegion[region]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// RegionEntrance returns the entrance area of the given region.
//
// Postcondition: Returns (area, true) if the region has a marked entrance,
// or (nil, false) otherwise.
func (m *Manager) RegionEntrance(region string) (*Area, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.byRegion[region] {
		if a := m.world.Areas[id]; a.IsRegionEntrance {
			return a, true
		}
	}
	return nil, false
}

// AreaIDs returns the IDs of every area in the world, sorted.
//
// Postcondition: Returns a non-nil slice.
func (m *Manager) AreaIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.world.Areas))
	for id := range m.world.Areas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AreaCount returns the total number of areas in the world.
func (m *Manager) AreaCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.world.Areas)
}

// WorldName returns the display name of the loaded world.
func (m *Manager) WorldName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.world.Name
}
