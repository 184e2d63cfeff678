package api

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/dshills/extkit/host"
	extlua "github.com/dshills/extkit/lua"
	"github.com/dshills/extkit/pick"
	"github.com/dshills/extkit/security"
)

// mockEditor is an in-memory EditorProvider for tests.
type mockEditor struct {
	mu       sync.Mutex
	text     string
	offset   int
	selStart int
	selEnd   int
	path     string
	modified bool
	indent   host.Indent
}

func newMockEditor(text string) *mockEditor {
	return &mockEditor{
		text:     text,
		selStart: -1,
		selEnd:   -1,
		indent:   host.Indent{UseSpaces: true, Size: 4},
	}
}

func (e *mockEditor) Text() string { return e.text }

func (e *mockEditor) Line(lineNum int) (string, error) {
	lines := strings.Split(e.text, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return "", fmt.Errorf("line %d out of range", lineNum)
	}
	return lines[lineNum-1], nil
}

func (e *mockEditor) LineCount() int { return strings.Count(e.text, "\n") + 1 }

func (e *mockEditor) Offset() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offset
}

func (e *mockEditor) SetOffset(offset int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if offset < 0 || offset > len(e.text) {
		return fmt.Errorf("offset %d out of range", offset)
	}
	e.offset = offset
	return nil
}

func (e *mockEditor) LineCol() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	line, col := 1, 1
	for i := 0; i < e.offset && i < len(e.text); i++ {
		if e.text[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

func (e *mockEditor) Selection() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selStart, e.selEnd
}

func (e *mockEditor) SetSelection(start, end int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selStart, e.selEnd = start, end
	return nil
}

func (e *mockEditor) Path() string             { return e.path }
func (e *mockEditor) Modified() bool           { return e.modified }
func (e *mockEditor) Indentation() host.Indent { return e.indent }

// mockUI serves scripted answers and records everything shown to it.
type mockUI struct {
	mu            sync.Mutex
	notifications []string
	statuses      []string
	inputResult   string
	confirmResult bool
	pickIndex     int
	pickedEntries []pick.Entry
	reports       []float64
	doneCount     int
}

func (u *mockUI) Notify(message string, level host.NotifyLevel) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.notifications = append(u.notifications, string(level)+":"+message)
	return nil
}

func (u *mockUI) Input(opts host.InputOptions) (string, error) {
	return u.inputResult, nil
}

func (u *mockUI) Pick(entries []pick.Entry, opts host.PickOptions) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pickedEntries = entries
	return u.pickIndex, nil
}

func (u *mockUI) Confirm(message string) (bool, error) {
	return u.confirmResult, nil
}

func (u *mockUI) SetStatus(text string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.statuses = append(u.statuses, text)
	return nil
}

func (u *mockUI) ClearStatus() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.statuses = append(u.statuses, "")
	return nil
}

func (u *mockUI) Progress(opts host.ProgressOptions) (host.ProgressTask, error) {
	return &mockTask{ui: u}, nil
}

func (u *mockUI) lastNotification() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.notifications) == 0 {
		return ""
	}
	return u.notifications[len(u.notifications)-1]
}

type mockTask struct {
	ui *mockUI
}

func (t *mockTask) Report(increment float64, message string) {
	t.ui.mu.Lock()
	defer t.ui.mu.Unlock()
	t.ui.reports = append(t.ui.reports, increment)
}

func (t *mockTask) Done() {
	t.ui.mu.Lock()
	defer t.ui.mu.Unlock()
	t.ui.doneCount++
}

func (t *mockTask) ID() string { return "task-1" }

// mockWorkspace records opens and previews under a fixed root.
type mockWorkspace struct {
	mu       sync.Mutex
	root     string
	opened   []string
	previews []string
}

func (w *mockWorkspace) Root() string { return w.root }

func (w *mockWorkspace) Resolve(rel string) string {
	if strings.HasPrefix(rel, "/") {
		return rel
	}
	return w.root + "/" + rel
}

func (w *mockWorkspace) Open(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opened = append(w.opened, path)
	return nil
}

func (w *mockWorkspace) Preview(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.previews = append(w.previews, path)
	return nil
}

// mockSettings is a flat map-backed SettingsProvider with watches.
type mockSettings struct {
	mu      sync.Mutex
	values  map[string]any
	watches map[string]settingsWatch
	nextID  int
}

type settingsWatch struct {
	pattern string
	fn      func(key string, oldValue, newValue any)
}

func newMockSettings() *mockSettings {
	return &mockSettings{
		values:  make(map[string]any),
		watches: make(map[string]settingsWatch),
	}
}

func (s *mockSettings) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *mockSettings) Set(key string, value any) error {
	s.mu.Lock()
	old := s.values[key]
	s.values[key] = value
	watches := make([]settingsWatch, 0, len(s.watches))
	for _, w := range s.watches {
		if matchPattern(w.pattern, key) {
			watches = append(watches, w)
		}
	}
	s.mu.Unlock()

	for _, w := range watches {
		w.fn(key, old, value)
	}
	return nil
}

func (s *mockSettings) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

func (s *mockSettings) Keys(pattern string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.values {
		if pattern == "" || matchPattern(pattern, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *mockSettings) Watch(pattern string, fn func(key string, oldValue, newValue any)) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("watch-%d", s.nextID)
	s.watches[id] = settingsWatch{pattern: pattern, fn: fn}
	return id
}

func (s *mockSettings) Unwatch(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watches[id]
	delete(s.watches, id)
	return ok
}

func matchPattern(pattern, key string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(key, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == key
}

// fixture wires a full context, state, and injected registry for tests.
type fixture struct {
	ctx       *host.Context
	editor    *mockEditor
	ui        *mockUI
	commands  *host.Commands
	workspace *mockWorkspace
	settings  *mockSettings
	state     *extlua.State
}

func allCaps() []security.Capability {
	return []security.Capability{
		security.CapabilityEditor,
		security.CapabilityUI,
		security.CapabilityCommand,
		security.CapabilityWorkspace,
		security.CapabilitySettings,
	}
}

func newFixture(t *testing.T, caps ...security.Capability) *fixture {
	t.Helper()

	f := &fixture{
		editor:    newMockEditor("first line\nsecond line\nthird"),
		ui:        &mockUI{pickIndex: -1},
		commands:  host.NewCommands(),
		workspace: &mockWorkspace{root: "/workspace"},
		settings:  newMockSettings(),
	}
	f.ctx = &host.Context{
		Editor:    f.editor,
		UI:        f.ui,
		Commands:  f.commands,
		Workspace: f.workspace,
		Settings:  f.settings,
	}

	checker := security.NewPermissionChecker("test-ext")
	checker.GrantAll(caps)

	state, err := extlua.NewState(checker)
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	t.Cleanup(func() { _ = state.Close() })
	f.state = state

	reg, err := DefaultRegistry(f.ctx, "test-ext", nil)
	if err != nil {
		t.Fatalf("DefaultRegistry() error = %v", err)
	}
	if err := reg.InjectAll(state.LuaState(), checker); err != nil {
		t.Fatalf("InjectAll() error = %v", err)
	}
	t.Cleanup(reg.Cleanup)

	return f
}

// do runs a chunk and fails the test on error.
func (f *fixture) do(t *testing.T, code string) {
	t.Helper()
	if err := f.state.DoString(code); err != nil {
		t.Fatalf("DoString(%q) error = %v", code, err)
	}
}

// globalString fetches a global set by a test chunk.
func (f *fixture) globalString(t *testing.T, name string) string {
	t.Helper()
	return f.state.GetGlobal(name).String()
}
