// Package api exposes the host convenience layer to sandboxed Lua
// extensions as the `ext` namespace.
//
// Each module registers its functions under a `_ext_<name>` global.
// InjectAll then aggregates those globals into one `ext` table, preloads
// it so `require("ext")` works, and publishes it as the `ext` global.
// Modules whose required capability the extension was not granted are
// skipped, so an ungranted surface is simply absent rather than erroring.
package api

import (
	"fmt"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/extkit/host"
	"github.com/dshills/extkit/security"
)

const (
	// Version is the version string published on the ext table.
	Version = "1.0.0"

	// APIVersion is the integer API revision published on the ext table.
	APIVersion = 1
)

// Poster schedules work onto the goroutine that owns the extension's Lua
// state. Modules that receive callbacks from other goroutines (settings
// watches) use it to deliver them safely. lua.Serializer.Post satisfies
// it; a nil Poster means callbacks run inline on the mutating goroutine.
type Poster func(fn func(L *lua.LState) error) error

// Module is one named chunk of the ext namespace.
type Module interface {
	// Name returns the module name (e.g. "editor", "ui").
	Name() string

	// RequiredCapability returns the capability an extension needs for
	// this module to be injected. Empty means always injected.
	RequiredCapability() security.Capability

	// Register installs the module's functions into the Lua state under
	// the _ext_<name> global.
	Register(L *lua.LState) error
}

// Cleaner is implemented by modules that hold per-extension resources
// (registered commands, settings watches) needing release on deactivate.
type Cleaner interface {
	Cleanup()
}

// Registry manages API modules and their injection into Lua states.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
	log     host.Logger
}

// NewRegistry creates an empty registry. A nil logger discards the skip
// diagnostics InjectAll emits.
func NewRegistry(log host.Logger) *Registry {
	return &Registry{
		modules: make(map[string]Module),
		log:     log,
	}
}

// Register adds a module to the registry.
func (r *Registry) Register(mod Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[mod.Name()]; exists {
		return fmt.Errorf("module %q already registered", mod.Name())
	}

	r.modules[mod.Name()] = mod
	return nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mod, ok := r.modules[name]
	return mod, ok
}

// List returns all registered module names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InjectAll registers every module the checker permits and installs the
// ext loader. Modules requiring a capability the extension lacks are
// skipped with a debug log. A nil checker injects only capability-free
// modules.
func (r *Registry) InjectAll(L *lua.LState, checker *security.PermissionChecker) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, mod := range r.modules {
		reqCap := mod.RequiredCapability()
		if reqCap != "" {
			if checker == nil || !checker.HasCapability(reqCap) {
				if r.log != nil {
					r.log.Debug("skipping ext module: capability not granted",
						"module", name, "capability", string(reqCap))
				}
				continue
			}
		}

		if err := mod.Register(L); err != nil {
			return fmt.Errorf("register module %q: %w", name, err)
		}
	}

	return installExtLoader(L, r.sortedNames())
}

// Inject registers the named modules. Unlike InjectAll, a missing
// capability is an error rather than a skip.
func (r *Registry) Inject(L *lua.LState, checker *security.PermissionChecker, moduleNames ...string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range moduleNames {
		mod, ok := r.modules[name]
		if !ok {
			return fmt.Errorf("module %q not found", name)
		}

		reqCap := mod.RequiredCapability()
		if reqCap != "" {
			if checker == nil || !checker.HasCapability(reqCap) {
				return fmt.Errorf("extension lacks capability %q for module %q", reqCap, name)
			}
		}

		if err := mod.Register(L); err != nil {
			return fmt.Errorf("register module %q: %w", name, err)
		}
	}

	return installExtLoader(L, moduleNames)
}

// Cleanup releases per-extension resources held by modules. Module
// cleanups may touch the Lua state, so Cleanup must run on the
// goroutine that owns it.
func (r *Registry) Cleanup() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, mod := range r.modules {
		if c, ok := mod.(Cleaner); ok {
			c.Cleanup()
		}
	}
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// installExtLoader collects the _ext_* globals the registered modules
// left behind into a single ext table, removes the intermediate globals,
// preloads the table for require("ext"), and sets it as the ext global.
func installExtLoader(L *lua.LState, moduleNames []string) error {
	extModule := L.NewTable()

	for _, name := range moduleNames {
		globalName := "_ext_" + name
		val := L.GetGlobal(globalName)
		if val != lua.LNil {
			L.SetField(extModule, name, val)
			L.SetGlobal(globalName, lua.LNil)
		}
	}

	L.SetField(extModule, "version", lua.LString(Version))
	L.SetField(extModule, "api_version", lua.LNumber(APIVersion))

	L.PreloadModule("ext", func(L *lua.LState) int {
		L.Push(extModule)
		return 1
	})
	L.SetGlobal("ext", extModule)

	return nil
}

// DefaultRegistry creates a registry with every standard module. The
// extension name scopes command registrations, and post delivers
// command executions and settings-watch callbacks onto the extension's
// Lua goroutine.
func DefaultRegistry(ctx *host.Context, extensionName string, post Poster) (*Registry, error) {
	r := NewRegistry(ctx.Logger())

	modules := []Module{
		NewEditorModule(ctx),
		NewUIModule(ctx),
		NewCommandModule(ctx, extensionName, post),
		NewWorkspaceModule(ctx),
		NewSettingsModule(ctx, post),
		NewTextModule(),
	}

	for _, mod := range modules {
		if err := r.Register(mod); err != nil {
			return nil, fmt.Errorf("register module %q: %w", mod.Name(), err)
		}
	}

	return r, nil
}
