package api

import (
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/extkit/host"
	extlua "github.com/dshills/extkit/lua"
	"github.com/dshills/extkit/security"
)

// CommandModule implements the ext.command API module. Commands an
// extension registers are tagged with an "extension:<name>" source so
// Cleanup can remove exactly that extension's commands.
//
// The host executes registered commands from arbitrary goroutines, so
// handler invocations are delivered through the Poster onto the
// goroutine that owns the Lua state. With a nil Poster they run inline
// on the calling goroutine.
type CommandModule struct {
	ctx           *host.Context
	extensionName string
	post          Poster
	L             *lua.LState

	mu         sync.Mutex
	registered map[string]bool
	handlerKey string
	handlerTbl *lua.LTable
}

// NewCommandModule creates the command module.
func NewCommandModule(ctx *host.Context, extensionName string, post Poster) *CommandModule {
	return &CommandModule{
		ctx:           ctx,
		extensionName: extensionName,
		post:          post,
		registered:    make(map[string]bool),
		handlerKey:    "_ext_cmd_handlers_" + extensionName,
	}
}

// Name returns the module name.
func (m *CommandModule) Name() string {
	return "command"
}

// RequiredCapability returns the capability required for this module.
func (m *CommandModule) RequiredCapability() security.Capability {
	return security.CapabilityCommand
}

// Source returns the command source tag for this extension.
func (m *CommandModule) Source() string {
	return "extension:" + m.extensionName
}

// Register registers the module into the Lua state.
func (m *CommandModule) Register(L *lua.LState) error {
	m.L = L

	mod := L.NewTable()

	L.SetField(mod, "register", L.NewFunction(m.register))
	L.SetField(mod, "unregister", L.NewFunction(m.unregister))
	L.SetField(mod, "execute", L.NewFunction(m.execute))
	L.SetField(mod, "list", L.NewFunction(m.list))
	L.SetField(mod, "exists", L.NewFunction(m.exists))

	L.SetGlobal("_ext_command", mod)

	// Handler functions live in a dedicated global table so references
	// survive Lua GC for as long as the command stays registered.
	m.handlerTbl = L.NewTable()
	L.SetGlobal(m.handlerKey, m.handlerTbl)
	return nil
}

// Cleanup unregisters every command this extension registered and
// releases the handler references. It touches the Lua state, so it must
// run on the goroutine that owns it.
func (m *CommandModule) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx.Commands != nil {
		m.ctx.Commands.UnregisterBySource(m.Source())
	}
	m.registered = make(map[string]bool)

	if m.L != nil {
		m.L.SetGlobal(m.handlerKey, lua.LNil)
		m.handlerTbl = nil
	}
}

// register(id, title, handler, opts?)
// Registers a command. opts table keys: description, category. The
// handler receives the execution args as a table.
func (m *CommandModule) register(L *lua.LState) int {
	id := L.CheckString(1)
	title := L.CheckString(2)
	handler := L.CheckFunction(3)

	if m.ctx.Commands == nil {
		L.RaiseError("register: no command provider")
		return 0
	}

	description := ""
	category := ""
	if L.GetTop() >= 4 {
		t := L.CheckTable(4)
		if v, ok := extlua.TableString(t, "description"); ok {
			description = v
		}
		if v, ok := extlua.TableString(t, "category"); ok {
			category = v
		}
	}

	m.mu.Lock()
	if m.handlerTbl != nil {
		m.handlerTbl.RawSetString(id, handler)
	}
	m.mu.Unlock()

	run := func(L *lua.LState, args map[string]any) error {
		var argsTable lua.LValue = L.NewTable()
		if args != nil {
			argsTable = extlua.NewBridge(L).ToLua(args)
		}
		return L.CallByParam(lua.P{Fn: handler, NRet: 0, Protect: true}, argsTable)
	}
	cmd := &host.Command{
		ID:          id,
		Title:       title,
		Description: description,
		Category:    category,
		Source:      m.Source(),
		Handler: func(args map[string]any) error {
			if m.post == nil {
				return run(L, args)
			}
			// Queued delivery cannot surface the handler's error to
			// the executing caller; log it instead.
			return m.post(func(L *lua.LState) error {
				if err := run(L, args); err != nil {
					m.ctx.Logger().Warn("command handler failed",
						"command", id, "error", err)
				}
				return nil
			})
		},
	}

	if err := m.ctx.Commands.Register(cmd); err != nil {
		m.mu.Lock()
		if m.handlerTbl != nil {
			m.handlerTbl.RawSetString(id, lua.LNil)
		}
		m.mu.Unlock()
		L.RaiseError("register: %v", err)
		return 0
	}

	m.mu.Lock()
	m.registered[id] = true
	m.mu.Unlock()
	return 0
}

// unregister(id) -> bool
// Removes a command this extension registered.
func (m *CommandModule) unregister(L *lua.LState) int {
	id := L.CheckString(1)

	if m.ctx.Commands == nil {
		L.Push(lua.LFalse)
		return 1
	}

	m.mu.Lock()
	owned := m.registered[id]
	if owned {
		delete(m.registered, id)
		if m.handlerTbl != nil {
			m.handlerTbl.RawSetString(id, lua.LNil)
		}
	}
	m.mu.Unlock()

	if !owned {
		L.Push(lua.LFalse)
		return 1
	}

	L.Push(lua.LBool(m.ctx.Commands.Unregister(id)))
	return 1
}

// execute(id, args?)
// Executes a command by ID. args is an optional table.
func (m *CommandModule) execute(L *lua.LState) int {
	id := L.CheckString(1)

	if m.ctx.Commands == nil {
		L.RaiseError("execute: no command provider")
		return 0
	}

	var args map[string]any
	if L.GetTop() >= 2 {
		t := L.CheckTable(2)
		if v, ok := extlua.NewBridge(L).FromLua(t).(map[string]any); ok {
			args = v
		}
	}

	if err := m.ctx.Commands.Execute(id, args); err != nil {
		L.RaiseError("execute: %v", err)
	}
	return 0
}

// list() -> array of {id, title, description, category, source}
func (m *CommandModule) list(L *lua.LState) int {
	result := L.NewTable()
	if m.ctx.Commands == nil {
		L.Push(result)
		return 1
	}

	for _, cmd := range m.ctx.Commands.All() {
		t := L.NewTable()
		L.SetField(t, "id", lua.LString(cmd.ID))
		L.SetField(t, "title", lua.LString(cmd.Title))
		L.SetField(t, "description", lua.LString(cmd.Description))
		L.SetField(t, "category", lua.LString(cmd.Category))
		L.SetField(t, "source", lua.LString(cmd.Source))
		result.Append(t)
	}
	L.Push(result)
	return 1
}

// exists(id) -> bool
func (m *CommandModule) exists(L *lua.LState) int {
	id := L.CheckString(1)

	if m.ctx.Commands == nil {
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LBool(m.ctx.Commands.Has(id)))
	return 1
}
