package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ErrNoForceLaw is returned when no compute_forces global was loaded.
var ErrNoForceLaw = errors.New("lua function compute_forces not found")

// Engine wraps a single gopher-lua VM for user-defined force laws.
// The VM is not goroutine-safe; calls are serialized by mu so the pipeline
// goroutine and tests can share one engine.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

func newVM() *lua.LState {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return vm
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory. The forces/ subdirectory is loaded after the top level so it can
// build on shared helpers.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := &Engine{vm: newVM(), log: log}

	for _, dir := range []string{scriptsDir, filepath.Join(scriptsDir, "forces")} {
		if err := e.loadDir(dir); err != nil {
			e.vm.Close()
			return nil, fmt.Errorf("load scripts %s: %w", dir, err)
		}
	}
	return e, nil
}

// NewEngineSource creates an engine from inline Lua source.
func NewEngineSource(src string, log *zap.Logger) (*Engine, error) {
	e := &Engine{vm: newVM(), log: log}
	if err := e.vm.DoString(src); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load inline script: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Close releases the VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}

// Body is one row handed to compute_forces.
type Body struct {
	Mass float64
	X, Y float64
}

// Force is one row returned by compute_forces.
type Force struct {
	DVX, DVY float64
	FX, FY   float64
}

// ComputeForces calls the Lua compute_forces(bodies, dt) function. bodies is
// a 1-based array of {mass, x, y}; the function must return an array of the
// same length whose entries carry dvx, dvy and optionally fx, fy. Missing
// entries count as zero force.
func (e *Engine) ComputeForces(bodies []Body, dt float64) ([]Force, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("compute_forces")
	if fn == lua.LNil {
		return nil, ErrNoForceLaw
	}

	t := e.vm.CreateTable(len(bodies), 0)
	for i, b := range bodies {
		row := e.vm.CreateTable(0, 3)
		row.RawSetString("mass", lua.LNumber(b.Mass))
		row.RawSetString("x", lua.LNumber(b.X))
		row.RawSetString("y", lua.LNumber(b.Y))
		t.RawSetInt(i+1, row)
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t, lua.LNumber(dt)); err != nil {
		return nil, fmt.Errorf("lua compute_forces: %w", err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("lua compute_forces returned %s, want table", result.Type())
	}

	out := make([]Force, len(bodies))
	for i := range out {
		row, ok := rt.RawGetInt(i + 1).(*lua.LTable)
		if !ok {
			continue
		}
		out[i] = Force{
			DVX: float64(lua.LVAsNumber(row.RawGetString("dvx"))),
			DVY: float64(lua.LVAsNumber(row.RawGetString("dvy"))),
			FX:  float64(lua.LVAsNumber(row.RawGetString("fx"))),
			FY:  float64(lua.LVAsNumber(row.RawGetString("fy"))),
		}
	}
	return out, nil
}
