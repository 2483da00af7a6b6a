package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Hook names world scripts may define as global Lua functions.
const (
	HookOnEnter = "on_enter"
	HookOnTake  = "on_take"
)

// Runner owns one sandboxed LState for world hook scripts and dispatches
// area lifecycle hooks into it. A nil Runner is valid and dispatches nothing.
//
// Runner serializes hook calls; the Lua VM is single-threaded.
type Runner struct {
	mu     sync.Mutex
	state  *lua.LState
	budget *atomic.Int64
	cancel context.CancelFunc
	limit  int64
	logger *zap.Logger

	// RecordEvent, when set, is exposed to scripts as game.record_event.
	RecordEvent func(actor, description string)
}

// NewRunner creates a Runner and executes every *.lua file under scriptDir
// in lexicographic order to register hook functions.
//
// Precondition: scriptDir must be a readable directory; logger must be
// non-nil; instLimit >= 0 (0 uses DefaultInstructionLimit).
func NewRunner(scriptDir string, instLimit int, logger *zap.Logger) (*Runner, error) {
	L, budget, cancel := newSandboxedState(instLimit)

	limit := int64(instLimit)
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	r := &Runner{state: L, budget: budget, cancel: cancel, limit: limit, logger: logger}
	r.registerModules()

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return nil, fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return nil, fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}
	return r, nil
}

// Close releases the Lua VM.
func (r *Runner) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancel()
	r.state.Close()
}

// OnEnterArea fires the on_enter hook for an area the player just moved
// into. Returns the hook's flavor text, or "" when the hook is missing,
// returns nothing, or fails.
func (r *Runner) OnEnterArea(areaID string) string {
	return r.callHook(HookOnEnter, lua.LString(areaID))
}

// OnTakeItem fires the on_take hook after the player picks up an item.
func (r *Runner) OnTakeItem(areaID, item string) string {
	return r.callHook(HookOnTake, lua.LString(areaID), lua.LString(item))
}

// callHook calls the named global Lua function. Missing hooks are a no-op;
// Lua runtime errors are logged at Warn level and never propagated.
func (r *Runner) callHook(hook string, args ...lua.LValue) string {
	if r == nil {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	fn := r.state.GetGlobal(hook)
	if fn == lua.LNil {
		return ""
	}

	// Refill the opcode budget so the limit applies per execution.
	r.budget.Store(r.limit)

	if err := r.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		r.logger.Warn("lua hook failed",
			zap.String("hook", hook),
			zap.Error(err))
		return ""
	}

	ret := r.state.Get(-1)
	r.state.Pop(1)
	if s, ok := ret.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// registerModules exposes the game.* table to scripts.
func (r *Runner) registerModules() {
	game := r.state.NewTable()

	r.state.SetField(game, "log", r.state.NewFunction(func(L *lua.LState) int {
		r.logger.Info("script", zap.String("message", L.CheckString(1)))
		return 0
	}))

	r.state.SetField(game, "record_event", r.state.NewFunction(func(L *lua.LState) int {
		actor := L.CheckString(1)
		description := L.CheckString(2)
		if r.RecordEvent != nil {
			r.RecordEvent(actor, description)
		}
		return 0
	}))

	r.state.SetGlobal("game", game)
}
