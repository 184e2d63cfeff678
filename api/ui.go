package api

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/extkit/host"
	extlua "github.com/dshills/extkit/lua"
	"github.com/dshills/extkit/pick"
	"github.com/dshills/extkit/progress"
	"github.com/dshills/extkit/security"
)

// UIModule implements the ext.ui API module: notifications, prompts,
// quick picks, status text, and the timed progress simulation.
type UIModule struct {
	ctx    *host.Context
	facade *host.Facade
}

// NewUIModule creates the UI module.
func NewUIModule(ctx *host.Context) *UIModule {
	return &UIModule{
		ctx:    ctx,
		facade: host.NewFacade(ctx),
	}
}

// Name returns the module name.
func (m *UIModule) Name() string {
	return "ui"
}

// RequiredCapability returns the capability required for this module.
func (m *UIModule) RequiredCapability() security.Capability {
	return security.CapabilityUI
}

// Register registers the module into the Lua state.
func (m *UIModule) Register(L *lua.LState) error {
	mod := L.NewTable()

	L.SetField(mod, "info", L.NewFunction(m.info))
	L.SetField(mod, "warn", L.NewFunction(m.warn))
	L.SetField(mod, "error", L.NewFunction(m.errorFn))
	L.SetField(mod, "notify", L.NewFunction(m.notify))
	L.SetField(mod, "input", L.NewFunction(m.input))
	L.SetField(mod, "confirm", L.NewFunction(m.confirm))
	L.SetField(mod, "pick", L.NewFunction(m.pick))
	L.SetField(mod, "pick_parse", L.NewFunction(m.pickParse))
	L.SetField(mod, "separator", L.NewFunction(m.separator))
	L.SetField(mod, "status", L.NewFunction(m.status))
	L.SetField(mod, "clear_status", L.NewFunction(m.clearStatus))
	L.SetField(mod, "timed", L.NewFunction(m.timed))

	L.SetField(mod, "INFO", lua.LString(host.NotifyInfo))
	L.SetField(mod, "WARNING", lua.LString(host.NotifyWarning))
	L.SetField(mod, "ERROR", lua.LString(host.NotifyError))
	L.SetField(mod, "SUCCESS", lua.LString(host.NotifySuccess))

	L.SetGlobal("_ext_ui", mod)
	return nil
}

// info(msg)
func (m *UIModule) info(L *lua.LState) int {
	return m.notifyLevel(L, host.NotifyInfo)
}

// warn(msg)
func (m *UIModule) warn(L *lua.LState) int {
	return m.notifyLevel(L, host.NotifyWarning)
}

// error(msg)
func (m *UIModule) errorFn(L *lua.LState) int {
	return m.notifyLevel(L, host.NotifyError)
}

func (m *UIModule) notifyLevel(L *lua.LState, level host.NotifyLevel) int {
	message := L.CheckString(1)

	if m.ctx.UI == nil {
		return 0
	}
	if err := m.ctx.UI.Notify(message, level); err != nil {
		L.RaiseError("notify: %v", err)
	}
	return 0
}

// notify(level, msg)
// Shows a notification at an explicit severity.
func (m *UIModule) notify(L *lua.LState) int {
	levelStr := L.CheckString(1)
	message := L.CheckString(2)

	if m.ctx.UI == nil {
		return 0
	}
	if err := m.ctx.UI.Notify(message, host.ParseNotifyLevel(levelStr)); err != nil {
		L.RaiseError("notify: %v", err)
	}
	return 0
}

// input(prompt, opts?) -> string or nil
// Prompts for text. opts table keys: placeholder, value. Returns nil
// when the prompt is cancelled.
func (m *UIModule) input(L *lua.LState) int {
	prompt := L.CheckString(1)

	if m.ctx.UI == nil {
		L.Push(lua.LNil)
		return 1
	}

	opts := host.InputOptions{Prompt: prompt}
	if L.GetTop() >= 2 {
		t := L.CheckTable(2)
		if v, ok := extlua.TableString(t, "placeholder"); ok {
			opts.Placeholder = v
		}
		if v, ok := extlua.TableString(t, "value"); ok {
			opts.Value = v
		}
	}

	result, err := m.ctx.UI.Input(opts)
	if err != nil || result == "" {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(result))
	return 1
}

// confirm(msg) -> bool
func (m *UIModule) confirm(L *lua.LState) int {
	message := L.CheckString(1)

	if m.ctx.UI == nil {
		L.Push(lua.LFalse)
		return 1
	}

	ok, err := m.ctx.UI.Confirm(message)
	if err != nil {
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LBool(ok))
	return 1
}

// pick(items, opts?) -> entry-table or nil
// Shows a quick pick. String items are parsed with the "::" / "??"
// delimiters; table items take label/description/detail/separator keys.
// opts table keys: title, placeholder, match_on_description,
// match_on_detail. Returns nil when cancelled.
func (m *UIModule) pick(L *lua.LState) int {
	itemsTable := L.CheckTable(1)

	if m.ctx.UI == nil {
		L.Push(lua.LNil)
		return 1
	}

	var entries []pick.Entry
	itemsTable.ForEach(func(_, value lua.LValue) {
		switch v := value.(type) {
		case lua.LString:
			entries = append(entries, pick.Parse(string(v)))
		case *lua.LTable:
			entries = append(entries, entryFromTable(v))
		}
	})

	if len(entries) == 0 {
		L.Push(lua.LNil)
		return 1
	}

	opts := host.PickOptions{}
	if L.GetTop() >= 2 {
		t := L.CheckTable(2)
		if v, ok := extlua.TableString(t, "title"); ok {
			opts.Title = v
		}
		if v, ok := extlua.TableString(t, "placeholder"); ok {
			opts.Placeholder = v
		}
		if v, ok := extlua.TableBool(t, "match_on_description"); ok {
			opts.MatchOnDescription = v
		}
		if v, ok := extlua.TableBool(t, "match_on_detail"); ok {
			opts.MatchOnDetail = v
		}
	}

	idx, err := m.ctx.UI.Pick(entries, opts)
	if err != nil {
		L.RaiseError("pick: %v", err)
		return 0
	}
	if idx < 0 || idx >= len(entries) {
		L.Push(lua.LNil)
		return 1
	}

	t := entryToTable(L, entries[idx])
	L.SetField(t, "index", lua.LNumber(idx+1))
	L.Push(t)
	return 1
}

// pick_parse(s) -> entry-table
// Parses a pick string without showing any UI.
func (m *UIModule) pickParse(L *lua.LState) int {
	s := L.CheckString(1)
	L.Push(entryToTable(L, pick.Parse(s)))
	return 1
}

// separator(label?) -> entry-table
func (m *UIModule) separator(L *lua.LState) int {
	label := L.OptString(1, "")
	L.Push(entryToTable(L, pick.NewSeparator(label)))
	return 1
}

// status(text)
func (m *UIModule) status(L *lua.LState) int {
	text := L.CheckString(1)

	if m.ctx.UI == nil {
		return 0
	}
	if err := m.ctx.UI.SetStatus(text); err != nil {
		L.RaiseError("status: %v", err)
	}
	return 0
}

// clear_status()
func (m *UIModule) clearStatus(L *lua.LState) int {
	if m.ctx.UI == nil {
		return 0
	}
	if err := m.ctx.UI.ClearStatus(); err != nil {
		L.RaiseError("clear_status: %v", err)
	}
	return 0
}

// timed(msg, duration_ms, opts?)
// Runs the timed progress simulation, blocking until it resolves. opts
// table keys: ticks, end_length_ms, cancellable, update (a function
// receiving {tick, percent, elapsed_ms, remaining_ms} and returning the
// tick message).
func (m *UIModule) timed(L *lua.LState) int {
	message := L.CheckString(1)
	durationMS := L.CheckInt(2)

	if m.ctx.UI == nil {
		return 0
	}

	var opts []progress.Option
	cancellable := false
	if L.GetTop() >= 3 {
		t := L.CheckTable(3)
		if v, ok := extlua.TableInt(t, "ticks"); ok {
			opts = append(opts, progress.WithTicks(v))
		}
		if v, ok := extlua.TableInt(t, "end_length_ms"); ok {
			opts = append(opts, progress.WithEndLength(time.Duration(v)*time.Millisecond))
		}
		if v, ok := extlua.TableBool(t, "cancellable"); ok {
			cancellable = v
			opts = append(opts, progress.WithCancellable(v))
		}
		if fn, ok := extlua.TableFunc(t, "update"); ok {
			// Run is synchronous, so the callback fires on the Lua
			// goroutine and may call back into L.
			opts = append(opts, progress.WithUpdateMessage(func(u progress.Update) string {
				snap := L.NewTable()
				L.SetField(snap, "tick", lua.LNumber(u.Tick))
				L.SetField(snap, "percent", lua.LNumber(u.Percent))
				L.SetField(snap, "elapsed_ms", lua.LNumber(u.Elapsed.Milliseconds()))
				L.SetField(snap, "remaining_ms", lua.LNumber(u.Remaining.Milliseconds()))

				if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, snap); err != nil {
					return ""
				}
				ret := L.Get(-1)
				L.Pop(1)
				if s, ok := ret.(lua.LString); ok {
					return string(s)
				}
				return ""
			}))
		}
	}

	task, err := m.ctx.UI.Progress(host.ProgressOptions{Title: message, Cancellable: cancellable})
	if err != nil {
		L.RaiseError("timed: %v", err)
		return 0
	}
	defer task.Done()

	o := progress.NewOptions(opts...)
	if err := progress.Run(context.Background(), task, time.Duration(durationMS)*time.Millisecond, o); err != nil {
		L.RaiseError("timed: %v", err)
	}
	return 0
}

// entryFromTable reads a pick entry from a Lua table.
func entryFromTable(t *lua.LTable) pick.Entry {
	e := pick.Entry{}
	if v, ok := extlua.TableString(t, "label"); ok {
		e.Label = v
	}
	if v, ok := extlua.TableString(t, "description"); ok {
		e.Description = v
	}
	if v, ok := extlua.TableString(t, "detail"); ok {
		e.Detail = v
	}
	if v, ok := extlua.TableBool(t, "separator"); ok {
		e.Separator = v
	}
	return e
}

// entryToTable converts a pick entry to a Lua table.
func entryToTable(L *lua.LState, e pick.Entry) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "label", lua.LString(e.Label))
	L.SetField(t, "description", lua.LString(e.Description))
	L.SetField(t, "detail", lua.LString(e.Detail))
	L.SetField(t, "separator", lua.LBool(e.Separator))
	return t
}
