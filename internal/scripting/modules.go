package scripting

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// RegisterModules registers the engine.* Lua table into L.
//
//	engine.contains(text, token) -> bool   case-sensitive substring match
//	engine.faces                  -> number of faces per die
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "contains", L.NewFunction(luaContains))
	L.SetField(engine, "faces", lua.LNumber(6))
	L.SetGlobal("engine", engine)
}

func luaContains(L *lua.LState) int {
	text := L.CheckString(1)
	token := L.CheckString(2)
	L.Push(lua.LBool(token != "" && strings.Contains(text, token)))
	return 1
}
