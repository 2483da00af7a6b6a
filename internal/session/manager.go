// Package session keys game state by session id and serializes the turns of
// each session. Sessions are independent: no state object is ever shared
// across session keys, so separate sessions may run concurrently.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakmund/fable/internal/command"
	"github.com/oakmund/fable/internal/engine"
	"github.com/oakmund/fable/internal/game/state"
	"github.com/oakmund/fable/internal/game/world"
)

// ErrSessionNotFound reports an unknown session id.
var ErrSessionNotFound = fmt.Errorf("session not found")

// session pairs a game state with the mutex that serializes its turns.
type session struct {
	mu sync.Mutex
	st *state.GameState
}

// Manager owns all live sessions.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	world     *world.Manager
	processor *command.Processor
	logger    *zap.Logger
}

// NewManager creates a session manager.
//
// Precondition: worldMgr, processor, and logger must be non-nil.
func NewManager(worldMgr *world.Manager, processor *command.Processor, logger *zap.Logger) *Manager {
	return &Manager{
		sessions:  make(map[string]*session),
		world:     worldMgr,
		processor: processor,
		logger:    logger,
	}
}

// Create starts a new session at the world's start area and returns its id.
func (m *Manager) Create() string {
	id := uuid.NewString()
	st := state.New(id, m.world)

	m.mu.Lock()
	m.sessions[id] = &session{st: st}
	m.mu.Unlock()

	m.logger.Info("session created",
		zap.String("session", id),
		zap.String("start_area", st.PlayerLocation))
	return id
}

// Resume registers a previously saved state under its own session id,
// replacing any live session with that id.
func (m *Manager) Resume(st *state.GameState) {
	m.mu.Lock()
	m.sessions[st.SessionID] = &session{st: st}
	m.mu.Unlock()
}

// Handle processes one line of player input for the session. Turns within a
// session run strictly one at a time; a second Handle for the same id blocks
// until the first completes.
func (m *Manager) Handle(ctx context.Context, sessionID, input string) (*engine.NarrativeResult, error) {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	result, err := m.processor.Execute(ctx, sess.st, input)
	if err != nil {
		return nil, err
	}
	if result.Loaded != nil {
		sess.st = result.Loaded
	}
	return result.Narrative, nil
}

// State returns the live state for a session id.
func (m *Manager) State(sessionID string) (*state.GameState, error) {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sess.st, nil
}

// End discards a session.
func (m *Manager) End(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
