package extkit

import (
	"context"
	"fmt"
	"sync"
	"time"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/extkit/api"
	"github.com/dshills/extkit/host"
	"github.com/dshills/extkit/lua"
	"github.com/dshills/extkit/security"
)

// Extension manages a single loaded extension: one sandboxed Lua state,
// one serializer goroutine that owns it, and the lifecycle around them.
type Extension struct {
	mu sync.RWMutex

	manifest *Manifest
	hostCtx  *host.Context
	log      host.Logger

	state      *lua.State
	serializer *lua.Serializer
	registry   *api.Registry
	runCancel  context.CancelFunc

	extState State
	err      error

	instrBudget int64
	callTimeout time.Duration
}

// ExtensionOption configures an Extension.
type ExtensionOption func(*Extension)

// WithLogger sets the extension's diagnostics logger.
func WithLogger(log host.Logger) ExtensionOption {
	return func(e *Extension) { e.log = log }
}

// WithInstrBudget caps the Lua instructions one chunk or call may spend.
func WithInstrBudget(n int64) ExtensionOption {
	return func(e *Extension) { e.instrBudget = n }
}

// WithCallTimeout bounds each Lua call.
func WithCallTimeout(d time.Duration) ExtensionOption {
	return func(e *Extension) { e.callTimeout = d }
}

// WithAPIRegistry replaces the default API module set.
func WithAPIRegistry(r *api.Registry) ExtensionOption {
	return func(e *Extension) { e.registry = r }
}

// NewExtension creates an extension host for the given manifest. The
// host context supplies the providers its API modules talk to.
func NewExtension(manifest *Manifest, hostCtx *host.Context, opts ...ExtensionOption) (*Extension, error) {
	if manifest == nil {
		return nil, ErrNilManifest
	}
	if hostCtx == nil {
		hostCtx = &host.Context{}
	}

	e := &Extension{
		manifest:    manifest,
		hostCtx:     hostCtx,
		extState:    StateUnloaded,
		instrBudget: lua.DefaultInstrBudget,
		callTimeout: lua.DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = hostCtx.Logger()
	}
	return e, nil
}

// Name returns the extension name.
func (e *Extension) Name() string {
	return e.manifest.Name
}

// Manifest returns the extension manifest.
func (e *Extension) Manifest() *Manifest {
	return e.manifest
}

// State returns the current lifecycle state.
func (e *Extension) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.extState
}

// Err returns the error that moved the extension to StateFailed, if any.
func (e *Extension) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.err
}

// Load creates the sandboxed state, grants the manifest's capabilities,
// injects the API modules, writes the manifest's settings defaults, and
// runs the main chunk.
func (e *Extension) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.extState != StateUnloaded {
		return ErrAlreadyLoaded
	}

	checker := security.NewPermissionChecker(e.manifest.Name)
	checker.GrantAll(e.manifest.Capabilities)
	if e.hostCtx.Workspace != nil {
		checker.SetWorkspacePath(e.hostCtx.Workspace.Root())
	}

	state, err := lua.NewState(checker,
		lua.WithInstrBudget(e.instrBudget),
		lua.WithCallTimeout(e.callTimeout),
	)
	if err != nil {
		return e.fail(fmt.Errorf("create state: %w", err))
	}

	serializer := lua.NewSerializer(state, 0)
	runCtx, cancel := context.WithCancel(context.Background())
	go serializer.Run(runCtx)

	e.state = state
	e.serializer = serializer
	e.runCancel = cancel

	registry := e.registry
	if registry == nil {
		registry, err = api.DefaultRegistry(e.hostCtx, e.manifest.Name, serializer.Post)
		if err != nil {
			e.teardown()
			return e.fail(fmt.Errorf("build api registry: %w", err))
		}
	}
	e.registry = registry

	injectErr := serializer.Do(ctx, func(L *glua.LState) error {
		return registry.InjectAll(L, checker)
	})
	if injectErr != nil {
		e.teardown()
		return e.fail(fmt.Errorf("inject api: %w", injectErr))
	}

	e.applySettingsDefaults()

	mainPath := e.manifest.MainPath()
	loadErr := serializer.Do(ctx, func(*glua.LState) error {
		return state.DoFile(mainPath)
	})
	if loadErr != nil {
		e.teardown()
		return e.fail(fmt.Errorf("load %s: %w", e.manifest.Main, loadErr))
	}

	e.extState = StateLoaded
	e.err = nil
	e.log.Debug("extension loaded", "extension", e.manifest.Name, "version", e.manifest.Version)
	return nil
}

// Activate calls the extension's optional setup(config) and activate()
// globals.
func (e *Extension) Activate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.extState != StateLoaded {
		return fmt.Errorf("%w: cannot activate from %s", ErrInvalidState, e.extState)
	}
	e.extState = StateActivating

	config := e.currentConfig()
	err := e.serializer.Do(ctx, func(L *glua.LState) error {
		if err := e.callOptional(L, "setup", lua.NewBridge(L).ToLua(config)); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
		if err := e.callOptional(L, "activate"); err != nil {
			return fmt.Errorf("activate: %w", err)
		}
		return nil
	})
	if err != nil {
		return e.fail(err)
	}

	e.extState = StateActive
	e.log.Info("extension activated", "extension", e.manifest.Name)
	return nil
}

// Deactivate calls the extension's optional deactivate() global and
// releases module resources (commands, settings watches). The extension
// returns to StateLoaded.
func (e *Extension) Deactivate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.extState != StateActive {
		return fmt.Errorf("%w: cannot deactivate from %s", ErrInvalidState, e.extState)
	}
	e.extState = StateDeactivating

	// Module cleanup touches the Lua state, so it runs on the state's
	// goroutine right after deactivate(), even when deactivate errors.
	err := e.serializer.Do(ctx, func(L *glua.LState) error {
		derr := e.callOptional(L, "deactivate")
		e.registry.Cleanup()
		return derr
	})

	e.extState = StateLoaded

	if err != nil {
		e.log.Warn("deactivate error", "extension", e.manifest.Name, "error", err)
		return fmt.Errorf("deactivate: %w", err)
	}
	e.log.Info("extension deactivated", "extension", e.manifest.Name)
	return nil
}

// Unload tears down the Lua state. An active extension is deactivated
// first.
func (e *Extension) Unload(ctx context.Context) error {
	if e.State() == StateActive {
		if err := e.Deactivate(ctx); err != nil {
			e.log.Warn("deactivate before unload failed", "extension", e.manifest.Name, "error", err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.extState == StateUnloaded {
		return nil
	}
	e.teardown()
	e.extState = StateUnloaded
	e.err = nil
	return nil
}

// Call invokes a global function in the extension's Lua state, bridging
// arguments and results. Multiple Lua results collapse to a slice.
func (e *Extension) Call(ctx context.Context, fn string, args ...any) (any, error) {
	e.mu.RLock()
	serializer := e.serializer
	usable := e.extState.IsUsable()
	e.mu.RUnlock()

	if !usable || serializer == nil {
		return nil, ErrNotLoaded
	}

	var result any
	err := serializer.Do(ctx, func(L *glua.LState) error {
		bridge := lua.NewBridge(L)

		lvArgs := make([]glua.LValue, len(args))
		for i, a := range args {
			lvArgs[i] = bridge.ToLua(a)
		}

		results, err := e.state.Call(fn, lvArgs...)
		if err != nil {
			return err
		}

		switch len(results) {
		case 0:
		case 1:
			result = bridge.FromLua(results[0])
		default:
			vals := make([]any, len(results))
			for i, r := range results {
				vals[i] = bridge.FromLua(r)
			}
			result = vals
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Post schedules work onto the extension's Lua goroutine without
// waiting for it.
func (e *Extension) Post(fn func(L *glua.LState) error) error {
	e.mu.RLock()
	serializer := e.serializer
	e.mu.RUnlock()

	if serializer == nil {
		return ErrNotLoaded
	}
	return serializer.Post(fn)
}

// callOptional calls a global if it exists and is a function. Missing
// or non-function globals are skipped.
func (e *Extension) callOptional(L *glua.LState, name string, args ...glua.LValue) error {
	fn := L.GetGlobal(name)
	if fn.Type() != glua.LTFunction {
		return nil
	}
	_, err := e.state.Call(name, args...)
	return err
}

// applySettingsDefaults writes the manifest's settings defaults under
// extensions.<name>. into the host's settings store. Existing keys win.
func (e *Extension) applySettingsDefaults() {
	if e.hostCtx.Settings == nil || len(e.manifest.Settings) == 0 {
		return
	}

	prefix := e.manifest.SettingsPrefix()
	for key, value := range e.manifest.Settings {
		full := prefix + key
		if e.hostCtx.Settings.Has(full) {
			continue
		}
		if err := e.hostCtx.Settings.Set(full, value); err != nil {
			e.log.Warn("settings default not applied", "key", full, "error", err)
		}
	}
}

// currentConfig builds the table passed to setup(): the manifest's
// settings keys resolved against the live store.
func (e *Extension) currentConfig() map[string]any {
	config := make(map[string]any, len(e.manifest.Settings))
	prefix := e.manifest.SettingsPrefix()
	for key, def := range e.manifest.Settings {
		config[key] = def
		if e.hostCtx.Settings != nil {
			if v, ok := e.hostCtx.Settings.Get(prefix + key); ok {
				config[key] = v
			}
		}
	}
	return config
}

// fail records err and moves to StateFailed. Callers must hold the lock.
func (e *Extension) fail(err error) error {
	e.extState = StateFailed
	e.err = err
	e.log.Error("extension failed", "extension", e.manifest.Name, "error", err)
	return err
}

// teardown closes the serializer and state. Callers must hold the lock.
func (e *Extension) teardown() {
	if e.serializer != nil {
		e.serializer.Close()
		e.serializer = nil
	}
	if e.runCancel != nil {
		e.runCancel()
		e.runCancel = nil
	}
	if e.state != nil {
		_ = e.state.Close()
		e.state = nil
	}
}
