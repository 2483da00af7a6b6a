package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// chunkDoc is the serialized form of an indexed chunk.
type chunkDoc struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// LoadDir builds a MemStore from the JSON documents in dir: entities.json,
// relations.json, and chunks.json. A missing file is tolerated and leaves
// that part of the store empty.
//
// Postcondition: Returns a store with whatever the present files contained,
// or an error when a present file cannot be parsed.
func LoadDir(dir string) (*MemStore, error) {
	m := NewMemStore()

	var entities []Entity
	if err := readJSON(filepath.Join(dir, "entities.json"), &entities); err != nil {
		return nil, err
	}
	for _, e := range entities {
		m.AddEntity(e)
	}

	var relations []Relation
	if err := readJSON(filepath.Join(dir, "relations.json"), &relations); err != nil {
		return nil, err
	}
	for _, r := range relations {
		m.AddRelation(r)
	}

	var chunks []chunkDoc
	if err := readJSON(filepath.Join(dir, "chunks.json"), &chunks); err != nil {
		return nil, err
	}
	for _, c := range chunks {
		m.AddChunk(c.ID, c.Text)
	}
	return m, nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
