package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Manager owns one sandboxed LState per scripted game mode and exposes hook dispatch.
//
// All methods are safe for concurrent use. LStates are single-threaded, so
// every hook call is serialized through mu.
type Manager struct {
	mu        sync.Mutex
	states    map[string]*lua.LState
	instLimit int
	logger    *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: logger must be non-nil; instLimit <= 0 selects DefaultInstructionLimit.
// Postcondition: Returns a non-nil Manager with no modes loaded.
func NewManager(instLimit int, logger *zap.Logger) *Manager {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	return &Manager{
		states:    make(map[string]*lua.LState),
		instLimit: instLimit,
		logger:    logger,
	}
}

// LoadDir loads every *.lua file in dir as its own mode; the mode name is the
// file name without extension.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns the loaded mode names in lexicographic order, or the first load error.
func (m *Manager) LoadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	modes := make([]string, 0, len(files))
	for _, name := range files {
		mode := strings.TrimSuffix(name, ".lua")
		if err := m.LoadMode(mode, filepath.Join(dir, name)); err != nil {
			return nil, err
		}
		modes = append(modes, mode)
	}
	return modes, nil
}

// LoadMode creates a sandboxed VM for mode and executes the script at path in it.
// A previously loaded VM for the same mode is replaced.
//
// Precondition: mode must be non-empty; path must be a readable Lua file.
func (m *Manager) LoadMode(mode, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("scripting: reading %q: %w", path, err)
	}
	return m.LoadString(mode, string(src))
}

// LoadString is LoadMode for in-memory source.
func (m *Manager) LoadString(mode, src string) error {
	L := NewSandboxedState()
	m.RegisterModules(L)

	ctx, cancel := newCountingContext(m.instLimit)
	L.SetContext(ctx)
	err := L.DoString(src)
	cancel()
	L.RemoveContext()
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: loading mode %q: %w", mode, err)
	}

	m.mu.Lock()
	if old, ok := m.states[mode]; ok {
		old.Close()
	}
	m.states[mode] = L
	m.mu.Unlock()
	return nil
}

// Has reports whether a VM is loaded for mode.
func (m *Manager) Has(mode string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.states[mode]
	return ok
}

// CallHook calls the named Lua global function in mode's VM. Returns (LNil, nil)
// if the hook is not defined or no VM exists. Lua runtime errors, including an
// exhausted instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(mode, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	L, ok := m.states[mode]
	if !ok {
		m.logger.Info("scripting: no VM for mode",
			zap.String("mode", mode),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	ctx, cancel := newCountingContext(m.instLimit)
	L.SetContext(ctx)
	defer func() {
		cancel()
		L.RemoveContext()
	}()

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("mode", mode),
			zap.String("hook", hook),
			zap.Error(err),
		)
		L.SetTop(0)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close releases every VM. The Manager must not be used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for mode, L := range m.states {
		L.Close()
		delete(m.states, mode)
	}
}
