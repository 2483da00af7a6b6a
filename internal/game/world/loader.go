package world

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// areaDoc is the serialized form of an Area in world documents.
type areaDoc struct {
	Name             string            `json:"name" yaml:"name"`
	Region           string            `json:"region" yaml:"region"`
	SubRegion        string            `json:"sub_region,omitempty" yaml:"sub_region,omitempty"`
	ParentAreaID     string            `json:"parent_area_id,omitempty" yaml:"parent_area_id,omitempty"`
	IsRegionEntrance bool              `json:"is_region_entrance,omitempty" yaml:"is_region_entrance,omitempty"`
	Coordinates      []int             `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
	Description      string            `json:"description" yaml:"description"`
	Attributes       []string          `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Exits            map[string]string `json:"exits,omitempty" yaml:"exits,omitempty"`
	Items            []string          `json:"items,omitempty" yaml:"items,omitempty"`
	NPCs             []string          `json:"npcs,omitempty" yaml:"npcs,omitempty"`
	Visited          bool              `json:"visited,omitempty" yaml:"visited,omitempty"`
	DangerLevel      int               `json:"danger_level,omitempty" yaml:"danger_level,omitempty"`
	RequiresItem     string            `json:"requires_item,omitempty" yaml:"requires_item,omitempty"`
}

// worldDoc is the serialized form of a World document.
type worldDoc struct {
	Name          string             `json:"name" yaml:"name"`
	CurrentAreaID string             `json:"current_area_id" yaml:"current_area_id"`
	Areas         map[string]areaDoc `json:"areas" yaml:"areas"`
}

func (d *areaDoc) toArea(id string) (*Area, error) {
	area := &Area{
		ID:               id,
		Name:             d.Name,
		Region:           d.Region,
		SubRegion:        d.SubRegion,
		ParentAreaID:     d.ParentAreaID,
		IsRegionEntrance: d.IsRegionEntrance,
		Description:      d.Description,
		Attributes:       d.Attributes,
		Items:            d.Items,
		NPCs:             d.NPCs,
		Visited:          d.Visited,
		DangerLevel:      d.DangerLevel,
		RequiresItem:     d.RequiresItem,
	}
	if len(d.Coordinates) > 0 {
		if len(d.Coordinates) != 3 {
			return nil, fmt.Errorf("area %q: coordinates must have 3 elements, got %d", id, len(d.Coordinates))
		}
		copy(area.Coordinates[:], d.Coordinates)
	}
	if len(d.Exits) > 0 {
		area.Exits = make(map[Direction]string, len(d.Exits))
		for dir, target := range d.Exits {
			area.Exits[Direction(strings.ToLower(strings.TrimSpace(dir)))] = target
		}
	}
	return area, nil
}

// LoadWorld loads and validates a world document from a JSON or YAML file.
// The format is chosen by file extension: .json for JSON, .yaml or .yml
// for YAML.
//
// Precondition: path references a readable world document.
// Postcondition: Returns a validated World, or an error if the file cannot
// be read, parsed, or fails validation.
func LoadWorld(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file %s: %w", path, err)
	}

	var doc worldDoc
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse world file %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse world file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported world file extension %q (want .json, .yaml, or .yml)", ext)
	}

	world := &World{
		Name:          doc.Name,
		CurrentAreaID: doc.CurrentAreaID,
		Areas:         make(map[string]*Area, len(doc.Areas)),
	}
	for id, ad := range doc.Areas {
		area, err := ad.toArea(id)
		if err != nil {
			return nil, fmt.Errorf("world file %s: %w", path, err)
		}
		world.Areas[id] = area
	}
	if err := world.Validate(); err != nil {
		return nil, fmt.Errorf("world file %s: %w", path, err)
	}
	return world, nil
}

// LoadWorldDir loads the first world document found in dir, preferring
// world.json, then world.yaml, then world.yml.
//
// Postcondition: Returns the loaded World, or an error if no world document
// exists in dir.
func LoadWorldDir(dir string) (*World, error) {
	for _, name := range []string{"world.json", "world.yaml", "world.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadWorld(path)
		}
	}
	return nil, fmt.Errorf("no world document found in %s", dir)
}
