package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/extkit/security"
	"github.com/dshills/extkit/textkit"
)

// TextModule implements the ext.text API module: case conversion and
// width-aware wrapping. It touches no host state, so any extension may
// use it.
type TextModule struct{}

// NewTextModule creates the text module.
func NewTextModule() *TextModule {
	return &TextModule{}
}

// Name returns the module name.
func (m *TextModule) Name() string {
	return "text"
}

// RequiredCapability returns the capability required for this module.
// The text module requires none.
func (m *TextModule) RequiredCapability() security.Capability {
	return ""
}

// Register registers the module into the Lua state.
func (m *TextModule) Register(L *lua.LState) error {
	mod := L.NewTable()

	L.SetField(mod, "upper", stringFn(L, textkit.Upper))
	L.SetField(mod, "lower", stringFn(L, textkit.Lower))
	L.SetField(mod, "title", stringFn(L, textkit.Title))
	L.SetField(mod, "camel", stringFn(L, textkit.Camel))
	L.SetField(mod, "pascal", stringFn(L, textkit.Pascal))
	L.SetField(mod, "snake", stringFn(L, textkit.Snake))
	L.SetField(mod, "kebab", stringFn(L, textkit.Kebab))
	L.SetField(mod, "constant", stringFn(L, textkit.Constant))
	L.SetField(mod, "wrap", L.NewFunction(wrap))
	L.SetField(mod, "width", L.NewFunction(width))

	L.SetGlobal("_ext_text", mod)
	return nil
}

// stringFn lifts a string -> string conversion into a Lua function.
func stringFn(L *lua.LState, fn func(string) string) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(fn(L.CheckString(1))))
		return 1
	})
}

// wrap(s, width) -> string
// Wraps s to the given display width.
func wrap(L *lua.LState) int {
	s := L.CheckString(1)
	w := L.CheckInt(2)
	L.Push(lua.LString(textkit.Wrap(s, w)))
	return 1
}

// width(s) -> number
// Returns the display width of s in terminal cells.
func width(L *lua.LState) int {
	s := L.CheckString(1)
	L.Push(lua.LNumber(textkit.Width(s)))
	return 1
}
