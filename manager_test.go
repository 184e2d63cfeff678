package extkit

import (
	"context"
	"errors"
	"sync"
	"testing"
)

const trivialMain = `function activate() end`

func newManagedExtension(t *testing.T, name, manifestJSON string) *Extension {
	t.Helper()
	dir := writeExtension(t, name, manifestJSON, trivialMain)

	manifest, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	hostCtx, _ := testHostContext()
	ext, err := NewExtension(manifest, hostCtx)
	if err != nil {
		t.Fatalf("NewExtension() error = %v", err)
	}
	return ext
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) names(typ EventType) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for _, e := range r.events {
		if e.Type == typ {
			names = append(names, e.Extension)
		}
	}
	return names
}

func TestManagerAddAndGet(t *testing.T) {
	m := NewManager()
	ctx := context.Background()
	defer func() { _ = m.Shutdown(ctx) }()

	ext := newManagedExtension(t, "solo", `{"name": "solo", "version": "1.0.0"}`)
	if err := m.Add(ctx, ext); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, ok := m.Get("solo")
	if !ok || got != ext {
		t.Error("Get() did not return the added extension")
	}
	if got.State() != StateLoaded {
		t.Errorf("State() = %v, want loaded", got.State())
	}

	dup := newManagedExtension(t, "solo", `{"name": "solo", "version": "2.0.0"}`)
	if err := m.Add(ctx, dup); !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("duplicate Add() error = %v, want ErrAlreadyLoaded", err)
	}
}

func TestManagerDependencyOrderActivation(t *testing.T) {
	m := NewManager()
	ctx := context.Background()
	defer func() { _ = m.Shutdown(ctx) }()

	rec := &eventRecorder{}
	m.OnEvent(rec.record)

	lib := newManagedExtension(t, "lib", `{"name": "lib", "version": "1.0.0"}`)
	app := newManagedExtension(t, "app", `{
		"name": "app",
		"version": "1.0.0",
		"dependencies": {"lib": "^1.0.0"}
	}`)

	if err := m.Add(ctx, app); err != nil {
		t.Fatalf("Add(app) error = %v", err)
	}
	if err := m.Add(ctx, lib); err != nil {
		t.Fatalf("Add(lib) error = %v", err)
	}

	if err := m.Activate(ctx, "app"); err != nil {
		t.Fatalf("Activate(app) error = %v", err)
	}

	if lib.State() != StateActive {
		t.Error("dependency was not activated")
	}

	order := rec.names(EventActivated)
	if len(order) != 2 || order[0] != "lib" || order[1] != "app" {
		t.Errorf("activation order = %v, want [lib app]", order)
	}
}

func TestManagerMissingDependency(t *testing.T) {
	m := NewManager()
	ctx := context.Background()
	defer func() { _ = m.Shutdown(ctx) }()

	app := newManagedExtension(t, "app", `{
		"name": "app",
		"version": "1.0.0",
		"dependencies": {"ghost": "*"}
	}`)
	if err := m.Add(ctx, app); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := m.Activate(ctx, "app"); !errors.Is(err, ErrDependencyNotFound) {
		t.Errorf("Activate() error = %v, want ErrDependencyNotFound", err)
	}
}

func TestManagerCyclicDependency(t *testing.T) {
	m := NewManager()
	ctx := context.Background()
	defer func() { _ = m.Shutdown(ctx) }()

	a := newManagedExtension(t, "aa", `{
		"name": "aa", "version": "1.0.0", "dependencies": {"bb": "*"}
	}`)
	b := newManagedExtension(t, "bb", `{
		"name": "bb", "version": "1.0.0", "dependencies": {"aa": "*"}
	}`)

	if err := m.Add(ctx, a); err != nil {
		t.Fatalf("Add(aa) error = %v", err)
	}
	if err := m.Add(ctx, b); err != nil {
		t.Fatalf("Add(bb) error = %v", err)
	}

	if err := m.Activate(ctx, "aa"); !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("Activate() error = %v, want ErrCyclicDependency", err)
	}
}

func TestManagerDeactivateAndRemove(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	rec := &eventRecorder{}
	m.OnEvent(rec.record)

	ext := newManagedExtension(t, "solo", `{"name": "solo", "version": "1.0.0"}`)
	if err := m.Add(ctx, ext); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := m.Activate(ctx, "solo"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	if err := m.Deactivate(ctx, "solo"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if ext.State() != StateLoaded {
		t.Errorf("State() = %v, want loaded", ext.State())
	}

	if err := m.Remove(ctx, "solo"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok := m.Get("solo"); ok {
		t.Error("extension still present after Remove")
	}
	if ext.State() != StateUnloaded {
		t.Errorf("State() = %v, want unloaded", ext.State())
	}

	if got := rec.names(EventRemoved); len(got) != 1 || got[0] != "solo" {
		t.Errorf("removed events = %v, want [solo]", got)
	}
}

func TestManagerShutdown(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	for _, name := range []string{"one", "two"} {
		ext := newManagedExtension(t, name, `{"name": "`+name+`", "version": "1.0.0"}`)
		if err := m.Add(ctx, ext); err != nil {
			t.Fatalf("Add(%s) error = %v", name, err)
		}
	}
	if err := m.ActivateAll(ctx); err != nil {
		t.Fatalf("ActivateAll() error = %v", err)
	}

	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if len(m.List()) != 0 {
		t.Error("manager not empty after Shutdown")
	}
}
