package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/extkit/host"
	"github.com/dshills/extkit/security"
)

// WorkspaceModule implements the ext.workspace API module: path
// resolution and document opening.
type WorkspaceModule struct {
	ctx *host.Context
}

// NewWorkspaceModule creates the workspace module.
func NewWorkspaceModule(ctx *host.Context) *WorkspaceModule {
	return &WorkspaceModule{ctx: ctx}
}

// Name returns the module name.
func (m *WorkspaceModule) Name() string {
	return "workspace"
}

// RequiredCapability returns the capability required for this module.
func (m *WorkspaceModule) RequiredCapability() security.Capability {
	return security.CapabilityWorkspace
}

// Register registers the module into the Lua state.
func (m *WorkspaceModule) Register(L *lua.LState) error {
	mod := L.NewTable()

	L.SetField(mod, "root", L.NewFunction(m.root))
	L.SetField(mod, "resolve", L.NewFunction(m.resolve))
	L.SetField(mod, "open", L.NewFunction(m.open))
	L.SetField(mod, "preview", L.NewFunction(m.preview))

	L.SetGlobal("_ext_workspace", mod)
	return nil
}

// root() -> string or nil
func (m *WorkspaceModule) root(L *lua.LState) int {
	if m.ctx.Workspace == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(m.ctx.Workspace.Root()))
	return 1
}

// resolve(rel) -> string
// Turns a workspace-relative path into an absolute one.
func (m *WorkspaceModule) resolve(L *lua.LState) int {
	rel := L.CheckString(1)

	if m.ctx.Workspace == nil {
		L.Push(lua.LString(rel))
		return 1
	}
	L.Push(lua.LString(m.ctx.Workspace.Resolve(rel)))
	return 1
}

// open(path)
func (m *WorkspaceModule) open(L *lua.LState) int {
	path := L.CheckString(1)

	if m.ctx.Workspace == nil {
		L.RaiseError("open: no workspace provider")
		return 0
	}
	if err := m.ctx.Workspace.Open(m.ctx.Workspace.Resolve(path)); err != nil {
		L.RaiseError("open: %v", err)
	}
	return 0
}

// preview(path)
func (m *WorkspaceModule) preview(L *lua.LState) int {
	path := L.CheckString(1)

	if m.ctx.Workspace == nil {
		L.RaiseError("preview: no workspace provider")
		return 0
	}
	if err := m.ctx.Workspace.Preview(m.ctx.Workspace.Resolve(path)); err != nil {
		L.RaiseError("preview: %v", err)
	}
	return 0
}
