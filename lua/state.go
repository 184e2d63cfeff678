// Package lua wraps gopher-lua with the sandboxing, value bridging, and
// single-goroutine serialization the extension host needs.
package lua

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/extkit/security"
)

// Default limits for a sandboxed state.
const (
	DefaultInstrBudget  = 10_000_000      // VM instructions per execution
	DefaultCallTimeout  = 5 * time.Second // wall-clock limit per execution
	DefaultRegistrySize = 1024 * 20
)

// State wraps a gopher-lua LState with a sandbox and panic recovery.
//
// LState is not goroutine-safe. A State must be driven from a single
// goroutine; use a Serializer to marshal work from other goroutines.
type State struct {
	L *lua.LState

	sandbox *Sandbox

	instrBudget  int64
	callTimeout  time.Duration
	registrySize int

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithInstrBudget sets the per-execution instruction budget. The VM
// polls the state's context before every instruction; each poll charges
// the budget, and exceeding it aborts the chunk with ErrInstrBudget.
// A non-positive budget disables the cap.
func WithInstrBudget(n int64) StateOption {
	return func(s *State) { s.instrBudget = n }
}

// WithCallTimeout sets the wall-clock limit for one chunk or call.
// Running past it aborts the execution with ErrCallTimeout. A
// non-positive duration disables the limit.
func WithCallTimeout(d time.Duration) StateOption {
	return func(s *State) { s.callTimeout = d }
}

// WithRegistrySize sets the initial LState registry size.
func WithRegistrySize(n int) StateOption {
	return func(s *State) { s.registrySize = n }
}

// NewState creates a sandboxed Lua state opening the package, base,
// table, string, and math libraries. The package library backs require
// and module preloading; the sandbox scrubs its disk loaders.
// Capability-gated libraries are served by the sandbox's require.
func NewState(checker *security.PermissionChecker, opts ...StateOption) (*State, error) {
	s := &State{
		instrBudget:  DefaultInstrBudget,
		callTimeout:  DefaultCallTimeout,
		registrySize: DefaultRegistrySize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
		RegistrySize: s.registrySize,
	})
	s.L = L

	// Package first: it owns the loaded-modules table the later opens
	// register into, and require must exist before the sandbox wraps it.
	lua.OpenPackage(L)
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	s.sandbox = NewSandbox(L, checker, s.instrBudget)
	s.sandbox.Install()

	return s, nil
}

// Sandbox returns the state's sandbox.
func (s *State) Sandbox() *Sandbox { return s.sandbox }

// LuaState returns the underlying LState. Direct access bypasses the
// panic recovery and closed checks; the caller owns the consequences.
func (s *State) LuaState() *lua.LState { return s.L }

// DoString executes a Lua chunk.
func (s *State) DoString(code string) error {
	if s.closed {
		return ErrStateClosed
	}
	return s.exec(func() error { return s.L.DoString(code) })
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	if s.closed {
		return ErrStateClosed
	}
	return s.exec(func() error { return s.L.DoFile(path) })
}

// Call invokes a global Lua function with the given arguments and
// returns its results. A missing global is reported as ErrNotFunction.
func (s *State) Call(fn string, args ...lua.LValue) ([]lua.LValue, error) {
	if s.closed {
		return nil, ErrStateClosed
	}

	fnVal := s.L.GetGlobal(fn)
	if fnVal.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %q is %s", ErrNotFunction, fn, fnVal.Type())
	}

	top := s.L.GetTop()
	s.L.Push(fnVal)
	for _, arg := range args {
		s.L.Push(arg)
	}

	err := s.exec(func() error {
		return s.L.PCall(len(args), lua.MultRet, nil)
	})
	if err != nil {
		return nil, err
	}

	nret := s.L.GetTop() - top
	if nret <= 0 {
		return []lua.LValue{}, nil
	}
	results := make([]lua.LValue, nret)
	for i := 0; i < nret; i++ {
		results[i] = s.L.Get(top + i + 1)
	}
	s.L.Pop(nret)
	return results, nil
}

// HasGlobal returns true if the named global is a function.
func (s *State) HasGlobal(name string) bool {
	if s.closed {
		return false
	}
	return s.L.GetGlobal(name).Type() == lua.LTFunction
}

// GetGlobal returns a global value, or LNil on a closed state.
func (s *State) GetGlobal(name string) lua.LValue {
	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global value.
func (s *State) SetGlobal(name string, value lua.LValue) {
	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// Closed returns true once Close has been called.
func (s *State) Closed() bool { return s.closed }

// Close releases the Lua state. Further operations return ErrStateClosed.
func (s *State) Close() error {
	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}

// exec runs one chunk or call with the state's limits applied. The
// instruction budget and call timeout ride the LState context: the VM
// polls it before every instruction, so tripping either limit aborts
// the execution even when the code never yields back into Go.
func (s *State) exec(fn func() error) error {
	s.sandbox.ResetInstrCount()

	if s.instrBudget <= 0 && s.callTimeout <= 0 {
		return s.withRecovery(fn)
	}

	parent := context.Background()
	cancel := context.CancelFunc(func() {})
	if s.callTimeout > 0 {
		parent, cancel = context.WithTimeout(parent, s.callTimeout)
	}

	limits := newLimitCtx(parent, s.sandbox)
	s.L.SetContext(limits)

	err := s.withRecovery(fn)

	s.L.RemoveContext()
	limits.stop()
	cancel()

	if err != nil {
		if lerr := limits.limitErr(); lerr != nil {
			return lerr
		}
	}
	return err
}

// withRecovery converts a Lua panic into an error.
func (s *State) withRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}
