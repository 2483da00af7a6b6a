// Package scripting provides a sandboxed GopherLua environment for world
// hook scripts. It has no dependency on game domain packages; all game
// interactions are injected via Runner callback fields.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the maximum number of Lua opcodes allowed per
// hook execution when no override is configured.
const DefaultInstructionLimit = 100_000

// countingContext is a context.Context that cancels itself after Done() has
// been called limit times. GopherLua's main loop calls Done() once per
// opcode, making this an exact instruction-count limit.
type countingContext struct {
	context.Context
	cancel    context.CancelFunc
	remaining *atomic.Int64
}

func (c *countingContext) Done() <-chan struct{} {
	if c.remaining.Add(-1) <= 0 {
		c.cancel()
	}
	return c.Context.Done()
}

// newSandboxedState creates a GopherLua LState with:
//   - Only safe stdlib loaded: base, table, string, math
//   - Dangerous globals removed: dofile, loadfile, load, collectgarbage, require
//   - Execution limited to at most instLimit Lua opcodes per budget refill
//
// The returned budget counter is refilled by the caller before each hook
// call, making the limit per-execution. A script that exhausts a single
// budget cancels the VM permanently.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: The caller owns the LState and must call cancel() and
// L.Close() when done.
func newSandboxedState(instLimit int) (*lua.LState, *atomic.Int64, context.CancelFunc) {
	limit := instLimit
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	base, cancel := context.WithCancel(context.Background())
	budget := &atomic.Int64{}
	budget.Store(int64(limit))
	L.SetContext(&countingContext{Context: base, cancel: cancel, remaining: budget})

	return L, budget, cancel
}
