package api

import (
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/extkit/host"
	extlua "github.com/dshills/extkit/lua"
	"github.com/dshills/extkit/security"
)

// SettingsModule implements the ext.settings API module. Watch
// callbacks are delivered through the Poster so they always run on the
// goroutine that owns the Lua state; with a nil Poster they run inline
// on the mutating goroutine.
type SettingsModule struct {
	ctx  *host.Context
	post Poster
	L    *lua.LState

	mu      sync.Mutex
	watches map[string]bool
}

// NewSettingsModule creates the settings module.
func NewSettingsModule(ctx *host.Context, post Poster) *SettingsModule {
	return &SettingsModule{
		ctx:     ctx,
		post:    post,
		watches: make(map[string]bool),
	}
}

// Name returns the module name.
func (m *SettingsModule) Name() string {
	return "settings"
}

// RequiredCapability returns the capability required for this module.
func (m *SettingsModule) RequiredCapability() security.Capability {
	return security.CapabilitySettings
}

// Register registers the module into the Lua state.
func (m *SettingsModule) Register(L *lua.LState) error {
	m.L = L

	mod := L.NewTable()

	L.SetField(mod, "get", L.NewFunction(m.get))
	L.SetField(mod, "set", L.NewFunction(m.set))
	L.SetField(mod, "has", L.NewFunction(m.has))
	L.SetField(mod, "keys", L.NewFunction(m.keys))
	L.SetField(mod, "watch", L.NewFunction(m.watch))
	L.SetField(mod, "unwatch", L.NewFunction(m.unwatch))

	L.SetGlobal("_ext_settings", mod)
	return nil
}

// Cleanup removes every live watch this extension registered.
func (m *SettingsModule) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx.Settings != nil {
		for id := range m.watches {
			m.ctx.Settings.Unwatch(id)
		}
	}
	m.watches = make(map[string]bool)
}

// get(key, default?) -> value
// Returns the setting value, or the default when the key is absent.
func (m *SettingsModule) get(L *lua.LState) int {
	key := L.CheckString(1)
	def := L.Get(2)

	if m.ctx.Settings == nil {
		L.Push(def)
		return 1
	}

	v, ok := m.ctx.Settings.Get(key)
	if !ok {
		L.Push(def)
		return 1
	}
	L.Push(extlua.NewBridge(L).ToLua(v))
	return 1
}

// set(key, value)
func (m *SettingsModule) set(L *lua.LState) int {
	key := L.CheckString(1)
	value := L.CheckAny(2)

	if m.ctx.Settings == nil {
		L.RaiseError("set: no settings provider")
		return 0
	}
	if err := m.ctx.Settings.Set(key, extlua.NewBridge(L).FromLua(value)); err != nil {
		L.RaiseError("set: %v", err)
	}
	return 0
}

// has(key) -> bool
func (m *SettingsModule) has(L *lua.LState) int {
	key := L.CheckString(1)

	if m.ctx.Settings == nil {
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LBool(m.ctx.Settings.Has(key)))
	return 1
}

// keys(pattern?) -> array of strings
// Lists leaf keys matching the pattern; an empty pattern matches all.
func (m *SettingsModule) keys(L *lua.LState) int {
	pattern := L.OptString(1, "")

	result := L.NewTable()
	if m.ctx.Settings == nil {
		L.Push(result)
		return 1
	}
	for _, k := range m.ctx.Settings.Keys(pattern) {
		result.Append(lua.LString(k))
	}
	L.Push(result)
	return 1
}

// watch(pattern, fn) -> id
// Registers a change callback. fn receives (key, old_value, new_value).
func (m *SettingsModule) watch(L *lua.LState) int {
	pattern := L.CheckString(1)
	fn := L.CheckFunction(2)

	if m.ctx.Settings == nil {
		L.RaiseError("watch: no settings provider")
		return 0
	}

	id := m.ctx.Settings.Watch(pattern, func(key string, oldValue, newValue any) {
		deliver := func(L *lua.LState) error {
			bridge := extlua.NewBridge(L)
			return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true},
				lua.LString(key), bridge.ToLua(oldValue), bridge.ToLua(newValue))
		}
		if m.post != nil {
			_ = m.post(deliver)
			return
		}
		_ = deliver(L)
	})

	m.mu.Lock()
	m.watches[id] = true
	m.mu.Unlock()

	L.Push(lua.LString(id))
	return 1
}

// unwatch(id) -> bool
func (m *SettingsModule) unwatch(L *lua.LState) int {
	id := L.CheckString(1)

	if m.ctx.Settings == nil {
		L.Push(lua.LFalse)
		return 1
	}

	m.mu.Lock()
	delete(m.watches, id)
	m.mu.Unlock()

	L.Push(lua.LBool(m.ctx.Settings.Unwatch(id)))
	return 1
}
