package lua

import (
	"os"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/extkit/security"
)

// Sandbox restricts what extension code can reach from Lua. Loader
// functions are stripped, require is replaced with a whitelist, and the
// io/os/debug libraries are gated behind the extension's capabilities.
type Sandbox struct {
	L       *lua.LState
	checker *security.PermissionChecker

	instrBudget int64
	instrCount  int64
}

// extNamespace is the module namespace served to extensions.
const extNamespace = "ext"

// NewSandbox creates a sandbox for the Lua state. A nil checker denies
// every capability-gated module.
func NewSandbox(L *lua.LState, checker *security.PermissionChecker, instrBudget int64) *Sandbox {
	return &Sandbox{L: L, checker: checker, instrBudget: instrBudget}
}

// Checker returns the permission checker backing this sandbox.
func (s *Sandbox) Checker() *security.PermissionChecker { return s.checker }

// Install applies the sandbox restrictions to the state.
func (s *Sandbox) Install() {
	// Chunk loaders can bypass every other restriction.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installRequire()
	s.injectGatedOS()
}

// installRequire replaces require with a whitelist: built-in safe
// modules, the ext namespace (served via PreloadModule), and
// capability-gated io/debug.
func (s *Sandbox) installRequire() {
	// Kill disk-based module resolution.
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	safe := map[string]bool{
		"string": true,
		"table":  true,
		"math":   true,
	}

	original := s.L.GetGlobal("require")
	passThrough := func(L *lua.LState, name string) int {
		L.Push(original)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		return 1
	}

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)

		if safe[name] {
			return passThrough(L, name)
		}
		if name == extNamespace || hasModulePrefix(name, extNamespace) {
			return passThrough(L, name)
		}

		switch name {
		case "io":
			if !s.hasCapability(security.CapabilityFileRead) && !s.hasCapability(security.CapabilityFileWrite) {
				L.RaiseError("module 'io' requires a filesystem capability")
			}
			return passThrough(L, name)
		case "os":
			if !s.hasCapability(security.CapabilityProcess) {
				L.RaiseError("module 'os' requires the process.spawn capability")
			}
			return passThrough(L, name)
		case "debug":
			if !s.hasCapability(security.CapabilityUnsafe) {
				L.RaiseError("module 'debug' requires the unsafe capability")
			}
			return passThrough(L, name)
		}

		L.RaiseError("module %q is not available", name)
		return 0 // unreachable after RaiseError
	}))
}

// injectGatedOS installs capability-dependent library subsets, both as
// globals and under package.loaded so require serves the same tables.
func (s *Sandbox) injectGatedOS() {
	if s.hasCapability(security.CapabilityUnsafe) {
		lua.OpenIo(s.L)
		lua.OpenOs(s.L)
		lua.OpenDebug(s.L)
		return
	}
	if s.hasCapability(security.CapabilityFileRead) || s.hasCapability(security.CapabilityFileWrite) {
		s.injectIO()
	}
	if s.hasCapability(security.CapabilityProcess) {
		s.injectOS()
	}
}

// injectIO installs a reduced io table: read-only unless filesystem.write
// is granted, with path access checked against the permission checker.
func (s *Sandbox) injectIO() {
	canWrite := s.hasCapability(security.CapabilityFileWrite)

	ioMod := s.L.NewTable()
	s.L.SetField(ioMod, "open", s.L.NewFunction(func(L *lua.LState) int {
		filename := L.CheckString(1)
		mode := L.OptString(2, "r")

		var flag int
		switch mode {
		case "r", "rb":
			flag = os.O_RDONLY
			if s.checker != nil {
				if err := s.checker.CheckFileRead(filename); err != nil {
					L.Push(lua.LNil)
					L.Push(lua.LString(err.Error()))
					return 2
				}
			}
		case "w", "wb", "a", "ab":
			if !canWrite {
				L.ArgError(2, "write modes require the filesystem.write capability")
				return 0
			}
			if s.checker != nil {
				if err := s.checker.CheckFileWrite(filename); err != nil {
					L.Push(lua.LNil)
					L.Push(lua.LString(err.Error()))
					return 2
				}
			}
			flag = os.O_WRONLY | os.O_CREATE
			if mode == "w" || mode == "wb" {
				flag |= os.O_TRUNC
			} else {
				flag |= os.O_APPEND
			}
		default:
			L.ArgError(2, "unsupported mode")
			return 0
		}

		file, err := os.OpenFile(filename, flag, 0o644)
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}

		ud := L.NewUserData()
		ud.Value = file
		L.SetMetatable(ud, s.fileMetatable(canWrite))
		L.Push(ud)
		return 1
	}))

	s.L.SetGlobal("io", ioMod)
	s.setLoaded("io", ioMod)
}

// fileMetatable returns the metatable for sandboxed file handles.
func (s *Sandbox) fileMetatable(writable bool) *lua.LTable {
	mt := s.L.NewTable()
	index := s.L.NewTable()

	s.L.SetField(index, "read", s.L.NewFunction(func(L *lua.LState) int {
		file := checkFile(L)
		if file == nil {
			return 0
		}
		format := L.OptString(2, "*a")
		switch format {
		case "*a", "*all":
			content, err := os.ReadFile(file.Name())
			if err != nil {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LString(content))
			return 1
		default:
			L.Push(lua.LNil)
			return 1
		}
	}))

	s.L.SetField(index, "close", s.L.NewFunction(func(L *lua.LState) int {
		file := checkFile(L)
		if file == nil {
			return 0
		}
		if err := file.Close(); err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LTrue)
		return 1
	}))

	if writable {
		s.L.SetField(index, "write", s.L.NewFunction(func(L *lua.LState) int {
			file := checkFile(L)
			if file == nil {
				return 0
			}
			for i := 2; i <= L.GetTop(); i++ {
				if _, err := file.WriteString(L.CheckString(i)); err != nil {
					L.Push(lua.LNil)
					L.Push(lua.LString(err.Error()))
					return 2
				}
			}
			L.Push(L.Get(1))
			return 1
		}))
	}

	s.L.SetField(mt, "__index", index)
	return mt
}

func checkFile(L *lua.LState) *os.File {
	ud := L.CheckUserData(1)
	file, ok := ud.Value.(*os.File)
	if !ok {
		L.ArgError(1, "expected file")
		return nil
	}
	return file
}

// injectOS installs a reduced os table: environment and clock access,
// no execute.
func (s *Sandbox) injectOS() {
	osMod := s.L.NewTable()

	s.L.SetField(osMod, "getenv", s.L.NewFunction(func(L *lua.LState) int {
		value := os.Getenv(L.CheckString(1))
		if value == "" {
			L.Push(lua.LNil)
		} else {
			L.Push(lua.LString(value))
		}
		return 1
	}))

	s.L.SetField(osMod, "execute", s.L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("os.execute is not available to extensions")
		return 0
	}))

	s.L.SetGlobal("os", osMod)
	s.setLoaded("os", osMod)
}

// setLoaded records mod under package.loaded so require(name) returns
// the gated table instead of consulting the disk loaders.
func (s *Sandbox) setLoaded(name string, mod lua.LValue) {
	pkg, ok := s.L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return
	}
	loaded, ok := s.L.GetField(pkg, "loaded").(*lua.LTable)
	if !ok {
		return
	}
	loaded.RawSetString(name, mod)
}

func (s *Sandbox) hasCapability(cap security.Capability) bool {
	return s.checker != nil && s.checker.HasCapability(cap)
}

// ResetInstrCount resets the instruction counter.
func (s *Sandbox) ResetInstrCount() {
	atomic.StoreInt64(&s.instrCount, 0)
}

// InstrCount returns the instructions counted since the last reset.
func (s *Sandbox) InstrCount() int64 {
	return atomic.LoadInt64(&s.instrCount)
}

// AddInstrs adds to the counter and reports whether the budget is
// exceeded. A non-positive budget never trips.
func (s *Sandbox) AddInstrs(n int64) bool {
	if s.instrBudget <= 0 {
		return false
	}
	return atomic.AddInt64(&s.instrCount, n) > s.instrBudget
}

// hasModulePrefix reports whether name is under ns (e.g. "ext.ui").
func hasModulePrefix(name, ns string) bool {
	return len(name) > len(ns)+1 && name[:len(ns)] == ns && name[len(ns)] == '.'
}
