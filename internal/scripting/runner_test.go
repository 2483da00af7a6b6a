package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func newTestRunner(t *testing.T, body string, instLimit int) *Runner {
	t.Helper()
	dir := t.TempDir()
	writeScript(t, dir, "hooks.lua", body)
	r, err := NewRunner(dir, instLimit, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestOnEnterAreaReturnsFlavorText(t *testing.T) {
	r := newTestRunner(t, `
function on_enter(area_id)
  if area_id == "old_mill" then
    return "The millstone grinds on with no hand to turn it."
  end
end
`, 0)

	assert.Equal(t, "The millstone grinds on with no hand to turn it.", r.OnEnterArea("old_mill"))
	assert.Equal(t, "", r.OnEnterArea("village_square"))
}

func TestOnTakeItemReceivesBothArguments(t *testing.T) {
	r := newTestRunner(t, `
function on_take(area_id, item)
  return "Taking " .. item .. " in " .. area_id
end
`, 0)

	assert.Equal(t, "Taking lantern in village_square", r.OnTakeItem("village_square", "lantern"))
}

func TestMissingHookIsNoop(t *testing.T) {
	r := newTestRunner(t, `-- no hooks defined`, 0)
	assert.Equal(t, "", r.OnEnterArea("anywhere"))
}

func TestNilRunnerIsSafe(t *testing.T) {
	var r *Runner
	assert.Equal(t, "", r.OnEnterArea("anywhere"))
	r.Close()
}

func TestRecordEventCallback(t *testing.T) {
	r := newTestRunner(t, `
function on_enter(area_id)
  game.record_event("warden", "The gate creaks open.")
end
`, 0)

	var gotActor, gotDescription string
	r.RecordEvent = func(actor, description string) {
		gotActor, gotDescription = actor, description
	}

	r.OnEnterArea("gatehouse")
	assert.Equal(t, "warden", gotActor)
	assert.Equal(t, "The gate creaks open.", gotDescription)
}

func TestSandboxStripsDangerousGlobals(t *testing.T) {
	r := newTestRunner(t, `
function on_enter(area_id)
  if dofile == nil and loadfile == nil and load == nil and require == nil then
    return "sandboxed"
  end
  return "leaky"
end
`, 0)

	assert.Equal(t, "sandboxed", r.OnEnterArea("anywhere"))
}

func TestInstructionLimitStopsRunawayScript(t *testing.T) {
	r := newTestRunner(t, `
function on_enter(area_id)
  local n = 0
  while true do n = n + 1 end
end
`, 1000)

	// The runaway loop is cancelled; the hook yields no text instead of hanging.
	assert.Equal(t, "", r.OnEnterArea("anywhere"))
}

func TestScriptLoadErrorSurfaces(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "broken.lua", `function on_enter( -- unterminated`)
	_, err := NewRunner(dir, 0, zap.NewNop())
	assert.Error(t, err)
}

func TestMissingDirectorySurfaces(t *testing.T) {
	_, err := NewRunner(filepath.Join(t.TempDir(), "absent"), 0, zap.NewNop())
	assert.Error(t, err)
}
