package extkit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// EventType is the kind of a manager event.
type EventType int

const (
	// EventLoaded is emitted when an extension is loaded.
	EventLoaded EventType = iota
	// EventActivated is emitted when an extension is activated.
	EventActivated
	// EventDeactivated is emitted when an extension is deactivated.
	EventDeactivated
	// EventRemoved is emitted when an extension is removed.
	EventRemoved
	// EventFailed is emitted when a lifecycle step fails.
	EventFailed
)

// String returns a string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventLoaded:
		return "loaded"
	case EventActivated:
		return "activated"
	case EventDeactivated:
		return "deactivated"
	case EventRemoved:
		return "removed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event describes a lifecycle transition the manager performed.
type Event struct {
	Type      EventType
	Extension string
	Err       error
}

// EventHandler receives manager events. Handlers run synchronously on
// the goroutine performing the transition.
type EventHandler func(Event)

// Manager coordinates a set of extensions: registration, dependency
// ordered activation, and shutdown.
type Manager struct {
	mu         sync.RWMutex
	extensions map[string]*Extension
	handlers   []EventHandler
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		extensions: make(map[string]*Extension),
	}
}

// OnEvent registers an event handler.
func (m *Manager) OnEvent(fn EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
}

func (m *Manager) emit(event Event) {
	m.mu.RLock()
	handlers := make([]EventHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.RUnlock()

	for _, fn := range handlers {
		fn(event)
	}
}

// Add loads an extension and registers it under its manifest name.
func (m *Manager) Add(ctx context.Context, ext *Extension) error {
	name := ext.Name()

	m.mu.Lock()
	if _, exists := m.extensions[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, name)
	}
	m.extensions[name] = ext
	m.mu.Unlock()

	if ext.State() == StateUnloaded {
		if err := ext.Load(ctx); err != nil {
			m.mu.Lock()
			delete(m.extensions, name)
			m.mu.Unlock()
			m.emit(Event{Type: EventFailed, Extension: name, Err: err})
			return err
		}
	}

	m.emit(Event{Type: EventLoaded, Extension: name})
	return nil
}

// Get returns a registered extension by name.
func (m *Manager) Get(name string) (*Extension, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ext, ok := m.extensions[name]
	return ext, ok
}

// List returns all registered extensions sorted by name.
func (m *Manager) List() []*Extension {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exts := make([]*Extension, 0, len(m.extensions))
	for _, ext := range m.extensions {
		exts = append(exts, ext)
	}
	sort.Slice(exts, func(i, j int) bool {
		return exts[i].Name() < exts[j].Name()
	})
	return exts
}

// Activate activates an extension, activating its dependencies first.
// Dependency version constraints are presence-checked only.
func (m *Manager) Activate(ctx context.Context, name string) error {
	return m.activate(ctx, name, map[string]bool{})
}

func (m *Manager) activate(ctx context.Context, name string, visiting map[string]bool) error {
	if visiting[name] {
		return fmt.Errorf("%w: %s", ErrCyclicDependency, name)
	}
	visiting[name] = true
	defer delete(visiting, name)

	ext, ok := m.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrExtensionNotFound, name)
	}
	if ext.State() == StateActive {
		return nil
	}

	deps := make([]string, 0, len(ext.Manifest().Dependencies))
	for dep := range ext.Manifest().Dependencies {
		deps = append(deps, dep)
	}
	sort.Strings(deps)

	for _, dep := range deps {
		if _, ok := m.Get(dep); !ok {
			err := fmt.Errorf("%w: %s requires %s", ErrDependencyNotFound, name, dep)
			m.emit(Event{Type: EventFailed, Extension: name, Err: err})
			return err
		}
		if err := m.activate(ctx, dep, visiting); err != nil {
			return err
		}
	}

	if err := ext.Activate(ctx); err != nil {
		m.emit(Event{Type: EventFailed, Extension: name, Err: err})
		return err
	}
	m.emit(Event{Type: EventActivated, Extension: name})
	return nil
}

// ActivateAll activates every registered extension in dependency order.
// It keeps going past failures and joins the errors.
func (m *Manager) ActivateAll(ctx context.Context) error {
	var errs []error
	for _, ext := range m.List() {
		if ext.State() == StateActive {
			continue
		}
		if err := m.Activate(ctx, ext.Name()); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ext.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Deactivate deactivates an extension.
func (m *Manager) Deactivate(ctx context.Context, name string) error {
	ext, ok := m.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrExtensionNotFound, name)
	}

	if err := ext.Deactivate(ctx); err != nil {
		m.emit(Event{Type: EventFailed, Extension: name, Err: err})
		return err
	}
	m.emit(Event{Type: EventDeactivated, Extension: name})
	return nil
}

// Remove unloads an extension and drops it from the manager.
func (m *Manager) Remove(ctx context.Context, name string) error {
	m.mu.Lock()
	ext, ok := m.extensions[name]
	delete(m.extensions, name)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrExtensionNotFound, name)
	}

	err := ext.Unload(ctx)
	m.emit(Event{Type: EventRemoved, Extension: name})
	return err
}

// Shutdown unloads every extension, aggregating errors with
// errors.Join. The manager is empty afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	exts := m.List()

	m.mu.Lock()
	m.extensions = make(map[string]*Extension)
	m.mu.Unlock()

	var errs []error
	for _, ext := range exts {
		if err := ext.Unload(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ext.Name(), err))
		}
		m.emit(Event{Type: EventRemoved, Extension: ext.Name()})
	}
	return errors.Join(errs...)
}
