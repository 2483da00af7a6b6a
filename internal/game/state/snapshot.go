package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oakmund/fable/internal/game/world"
)

// FileStore persists game state snapshots as JSON files keyed by session ID.
type FileStore struct {
	dir string
}

// NewFileStore creates a snapshot store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes a snapshot of s keyed by its session ID, including an overlay
// of every area's mutable state so world changes travel with the save. The
// write is atomic: a partially written file never replaces an existing
// snapshot.
//
// Precondition: s.SessionID must be a valid key (non-empty, no separators).
func (fs *FileStore) Save(s *GameState) error {
	path, err := fs.pathFor(s.SessionID)
	if err != nil {
		return err
	}
	s.CaptureWorld()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for session %q: %w", s.SessionID, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot for session %q: %w", s.SessionID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit snapshot for session %q: %w", s.SessionID, err)
	}
	return nil
}

// Load reconstructs the game state saved under sessionID and reattaches the
// world manager. The caller's in-memory state is never touched.
//
// Postcondition: Returns ErrSaveNotFound if no snapshot exists, or
// ErrSaveCorrupted if the snapshot cannot be decoded or fails validation.
func (fs *FileStore) Load(sessionID string, w *world.Manager) (*GameState, error) {
	path, err := fs.pathFor(sessionID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: session %q", ErrSaveNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to read snapshot for session %q: %w", sessionID, err)
	}

	var s GameState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: session %q: %v", ErrSaveCorrupted, sessionID, err)
	}
	if s.SessionID == "" || s.PlayerLocation == "" {
		return nil, fmt.Errorf("%w: session %q: snapshot missing required fields", ErrSaveCorrupted, sessionID)
	}
	if s.Inventory == nil {
		s.Inventory = make(map[string]*InventoryItem)
	}
	if s.NPCStates == nil {
		s.NPCStates = make(map[string]*NPCState)
	}
	if s.FactionStandings == nil {
		s.FactionStandings = make(map[string]int)
	}
	if s.CombatActive != (s.Combat != nil) {
		return nil, fmt.Errorf("%w: session %q: combat flag and session disagree", ErrSaveCorrupted, sessionID)
	}
	if err := s.AttachWorld(w); err != nil {
		return nil, fmt.Errorf("%w: session %q: %v", ErrSaveCorrupted, sessionID, err)
	}
	return &s, nil
}

// Delete removes the snapshot for sessionID.
//
// Postcondition: Returns ErrSaveNotFound if no snapshot exists.
func (fs *FileStore) Delete(sessionID string) error {
	path, err := fs.pathFor(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: session %q", ErrSaveNotFound, sessionID)
		}
		return fmt.Errorf("failed to delete snapshot for session %q: %w", sessionID, err)
	}
	return nil
}

// List returns the session IDs with saved snapshots, sorted.
//
// Postcondition: Returns a non-nil slice.
func (fs *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list save directory %s: %w", fs.dir, err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (fs *FileStore) pathFor(sessionID string) (string, error) {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) || sessionID != filepath.Base(sessionID) {
		return "", fmt.Errorf("invalid session ID %q", sessionID)
	}
	return filepath.Join(fs.dir, sessionID+".json"), nil
}
