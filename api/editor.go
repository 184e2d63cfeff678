package api

import (
	"errors"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/extkit/host"
	"github.com/dshills/extkit/security"
)

// EditorModule implements the ext.editor API module: document text,
// cursor position, and selection state.
type EditorModule struct {
	ctx    *host.Context
	facade *host.Facade
}

// NewEditorModule creates the editor module.
func NewEditorModule(ctx *host.Context) *EditorModule {
	return &EditorModule{
		ctx:    ctx,
		facade: host.NewFacade(ctx),
	}
}

// Name returns the module name.
func (m *EditorModule) Name() string {
	return "editor"
}

// RequiredCapability returns the capability required for this module.
func (m *EditorModule) RequiredCapability() security.Capability {
	return security.CapabilityEditor
}

// Register registers the module into the Lua state.
func (m *EditorModule) Register(L *lua.LState) error {
	mod := L.NewTable()

	L.SetField(mod, "offset", L.NewFunction(m.offset))
	L.SetField(mod, "line", L.NewFunction(m.line))
	L.SetField(mod, "column", L.NewFunction(m.column))
	L.SetField(mod, "position", L.NewFunction(m.position))
	L.SetField(mod, "selection", L.NewFunction(m.selection))
	L.SetField(mod, "set_selection", L.NewFunction(m.setSelection))
	L.SetField(mod, "move", L.NewFunction(m.move))
	L.SetField(mod, "move_to", L.NewFunction(m.moveTo))
	L.SetField(mod, "line_text", L.NewFunction(m.lineText))
	L.SetField(mod, "line_count", L.NewFunction(m.lineCount))
	L.SetField(mod, "text", L.NewFunction(m.text))
	L.SetField(mod, "path", L.NewFunction(m.path))
	L.SetField(mod, "modified", L.NewFunction(m.modified))
	L.SetField(mod, "indentation", L.NewFunction(m.indentation))

	L.SetGlobal("_ext_editor", mod)
	return nil
}

// offset() -> number or nil
// Returns the primary cursor byte offset.
func (m *EditorModule) offset(L *lua.LState) int {
	off, err := m.facade.CursorOffset()
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(off))
	return 1
}

// line() -> number or nil
// Returns the cursor's 1-indexed line number.
func (m *EditorModule) line(L *lua.LState) int {
	line, err := m.facade.CursorLine()
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(line))
	return 1
}

// column() -> number or nil
// Returns the cursor's 1-indexed column number.
func (m *EditorModule) column(L *lua.LState) int {
	col, err := m.facade.CursorColumn()
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(col))
	return 1
}

// position() -> {line, column, offset} or nil
func (m *EditorModule) position(L *lua.LState) int {
	if m.ctx.Editor == nil {
		L.Push(lua.LNil)
		return 1
	}

	line, col := m.ctx.Editor.LineCol()
	pos := L.NewTable()
	L.SetField(pos, "line", lua.LNumber(line))
	L.SetField(pos, "column", lua.LNumber(col))
	L.SetField(pos, "offset", lua.LNumber(m.ctx.Editor.Offset()))
	L.Push(pos)
	return 1
}

// selection() -> {start, end, text} or nil
// Returns nil when nothing is selected.
func (m *EditorModule) selection(L *lua.LState) int {
	start, end, err := m.facade.Selection()
	if err != nil {
		if !errors.Is(err, host.ErrNoSelection) && !errors.Is(err, host.ErrNoEditor) {
			L.RaiseError("selection: %v", err)
		}
		L.Push(lua.LNil)
		return 1
	}

	text, err := m.facade.SelectedText()
	if err != nil {
		text = ""
	}

	sel := L.NewTable()
	L.SetField(sel, "start", lua.LNumber(start))
	L.SetField(sel, "end", lua.LNumber(end))
	L.SetField(sel, "text", lua.LString(text))
	L.Push(sel)
	return 1
}

// set_selection(start, end)
func (m *EditorModule) setSelection(L *lua.LState) int {
	start := L.CheckInt(1)
	end := L.CheckInt(2)

	if m.ctx.Editor == nil {
		return 0
	}
	if err := m.ctx.Editor.SetSelection(start, end); err != nil {
		L.RaiseError("set_selection: %v", err)
	}
	return 0
}

// move(delta)
// Moves the cursor by delta bytes, clamped to the document bounds.
func (m *EditorModule) move(L *lua.LState) int {
	delta := L.CheckInt(1)

	if err := m.facade.MoveCursor(delta); err != nil && !errors.Is(err, host.ErrNoEditor) {
		L.RaiseError("move: %v", err)
	}
	return 0
}

// move_to(line, col)
// Moves the cursor to a 1-indexed line and column.
func (m *EditorModule) moveTo(L *lua.LState) int {
	line := L.CheckInt(1)
	col := L.CheckInt(2)

	if err := m.facade.MoveCursorTo(line, col); err != nil && !errors.Is(err, host.ErrNoEditor) {
		L.RaiseError("move_to: %v", err)
	}
	return 0
}

// line_text(n?) -> string or nil
// Returns the text of line n, defaulting to the cursor line.
func (m *EditorModule) lineText(L *lua.LState) int {
	if m.ctx.Editor == nil {
		L.Push(lua.LNil)
		return 1
	}

	n := L.OptInt(1, 0)
	if n == 0 {
		n, _ = m.ctx.Editor.LineCol()
	}

	text, err := m.ctx.Editor.Line(n)
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(text))
	return 1
}

// line_count() -> number
func (m *EditorModule) lineCount(L *lua.LState) int {
	if m.ctx.Editor == nil {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(m.ctx.Editor.LineCount()))
	return 1
}

// text() -> string
// Returns the full document text.
func (m *EditorModule) text(L *lua.LState) int {
	if m.ctx.Editor == nil {
		L.Push(lua.LString(""))
		return 1
	}
	L.Push(lua.LString(m.ctx.Editor.Text()))
	return 1
}

// path() -> string
// Returns the document's file path, or "" when unsaved.
func (m *EditorModule) path(L *lua.LState) int {
	if m.ctx.Editor == nil {
		L.Push(lua.LString(""))
		return 1
	}
	L.Push(lua.LString(m.ctx.Editor.Path()))
	return 1
}

// modified() -> bool
func (m *EditorModule) modified(L *lua.LState) int {
	if m.ctx.Editor == nil {
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LBool(m.ctx.Editor.Modified()))
	return 1
}

// indentation() -> {use_spaces, size, unit} or nil
func (m *EditorModule) indentation(L *lua.LState) int {
	indent, err := m.facade.Indentation()
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}

	t := L.NewTable()
	L.SetField(t, "use_spaces", lua.LBool(indent.UseSpaces))
	L.SetField(t, "size", lua.LNumber(indent.Size))
	L.SetField(t, "unit", lua.LString(indent.Unit()))
	L.Push(t)
	return 1
}
