package host

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/extkit/pick"
	"github.com/dshills/extkit/progress"
)

// mockEditor is an in-memory EditorProvider for facade tests.
type mockEditor struct {
	text     string
	offset   int
	selStart int
	selEnd   int
	path     string
	modified bool
	indent   Indent
}

func newMockEditor(text string) *mockEditor {
	return &mockEditor{text: text, selStart: -1, selEnd: -1, indent: Indent{UseSpaces: true, Size: 4}}
}

func (m *mockEditor) Text() string { return m.text }

func (m *mockEditor) Line(n int) (string, error) {
	lines := strings.Split(m.text, "\n")
	if n < 1 || n > len(lines) {
		return "", errors.New("line out of range")
	}
	return lines[n-1], nil
}

func (m *mockEditor) LineCount() int { return strings.Count(m.text, "\n") + 1 }
func (m *mockEditor) Offset() int    { return m.offset }

func (m *mockEditor) SetOffset(offset int) error {
	if offset < 0 || offset > len(m.text) {
		return errors.New("offset out of range")
	}
	m.offset = offset
	return nil
}

func (m *mockEditor) LineCol() (int, int) {
	line := 1
	col := 1
	for _, r := range m.text[:m.offset] {
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

func (m *mockEditor) Selection() (int, int) { return m.selStart, m.selEnd }

func (m *mockEditor) SetSelection(start, end int) error {
	m.selStart, m.selEnd = start, end
	return nil
}

func (m *mockEditor) Path() string        { return m.path }
func (m *mockEditor) Modified() bool      { return m.modified }
func (m *mockEditor) Indentation() Indent { return m.indent }

// mockUI is a scripted UIProvider for facade tests.
type mockUI struct {
	mu sync.Mutex

	notifications []string
	inputResult   string
	pickIndex     int
	pickEntries   []pick.Entry
	confirmResult bool
	status        string

	progressReports []float64
	progressDone    bool
}

func (m *mockUI) Notify(message string, level NotifyLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, string(level)+":"+message)
	return nil
}

func (m *mockUI) Input(opts InputOptions) (string, error) {
	if m.inputResult == "" && opts.Value != "" {
		return opts.Value, nil
	}
	return m.inputResult, nil
}

func (m *mockUI) Pick(entries []pick.Entry, opts PickOptions) (int, error) {
	m.pickEntries = entries
	return m.pickIndex, nil
}

func (m *mockUI) Confirm(message string) (bool, error) { return m.confirmResult, nil }

func (m *mockUI) SetStatus(text string) error {
	m.status = text
	return nil
}

func (m *mockUI) ClearStatus() error {
	m.status = ""
	return nil
}

func (m *mockUI) Progress(opts ProgressOptions) (ProgressTask, error) {
	return &mockProgressTask{ui: m}, nil
}

type mockProgressTask struct{ ui *mockUI }

func (t *mockProgressTask) Report(increment float64, message string) {
	t.ui.mu.Lock()
	defer t.ui.mu.Unlock()
	t.ui.progressReports = append(t.ui.progressReports, increment)
}

func (t *mockProgressTask) Done() {
	t.ui.mu.Lock()
	defer t.ui.mu.Unlock()
	t.ui.progressDone = true
}

func (t *mockProgressTask) ID() string { return "mock-task" }

// mockWorkspace records open/preview calls.
type mockWorkspace struct {
	root     string
	opened   []string
	previews []string
}

func (m *mockWorkspace) Root() string { return m.root }

func (m *mockWorkspace) Resolve(rel string) string {
	if strings.HasPrefix(rel, "/") {
		return rel
	}
	return m.root + "/" + rel
}

func (m *mockWorkspace) Open(path string) error {
	m.opened = append(m.opened, path)
	return nil
}

func (m *mockWorkspace) Preview(path string) error {
	m.previews = append(m.previews, path)
	return nil
}

// mockSettings is a flat map SettingsProvider.
type mockSettings struct {
	values map[string]any
}

func (m *mockSettings) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *mockSettings) Set(key string, value any) error {
	m.values[key] = value
	return nil
}

func (m *mockSettings) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

func (m *mockSettings) Keys(pattern string) []string {
	var keys []string
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.values {
		if pattern == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (m *mockSettings) Watch(pattern string, fn func(key string, oldValue, newValue any)) string {
	return "watch-1"
}

func (m *mockSettings) Unwatch(id string) bool { return false }

func newTestFacade(t *testing.T) (*Facade, *mockEditor, *mockUI, *mockWorkspace, *mockSettings) {
	t.Helper()
	ed := newMockEditor("first line\nsecond line\nthird")
	ui := &mockUI{pickIndex: -1}
	ws := &mockWorkspace{root: "/workspace"}
	st := &mockSettings{values: make(map[string]any)}
	f := NewFacade(&Context{
		Editor:    ed,
		UI:        ui,
		Commands:  NewCommands(),
		Workspace: ws,
		Settings:  st,
	})
	return f, ed, ui, ws, st
}

func TestFacadeNilProviders(t *testing.T) {
	f := NewFacade(&Context{})

	if _, err := f.Editor(); !errors.Is(err, ErrNoEditor) {
		t.Errorf("Editor() error = %v, want ErrNoEditor", err)
	}
	if err := f.Info("hi"); !errors.Is(err, ErrNoUI) {
		t.Errorf("Info() error = %v, want ErrNoUI", err)
	}
	if _, _, err := f.QuickPick([]string{"a"}); !errors.Is(err, ErrNoUI) {
		t.Errorf("QuickPick() error = %v, want ErrNoUI", err)
	}
	if err := f.OpenFile("x"); !errors.Is(err, ErrNoWorkspace) {
		t.Errorf("OpenFile() error = %v, want ErrNoWorkspace", err)
	}
	if err := f.ExecuteCommand("x", nil); !errors.Is(err, ErrNoCommands) {
		t.Errorf("ExecuteCommand() error = %v, want ErrNoCommands", err)
	}
	if err := f.TimedMessage(context.Background(), "m", time.Millisecond); !errors.Is(err, ErrNoUI) {
		t.Errorf("TimedMessage() error = %v, want ErrNoUI", err)
	}
}

func TestFacadeCursorAccessors(t *testing.T) {
	f, ed, _, _, _ := newTestFacade(t)
	if err := ed.SetOffset(13); err != nil { // "se|cond line"
		t.Fatalf("SetOffset() error = %v", err)
	}

	if got, _ := f.CursorOffset(); got != 13 {
		t.Errorf("CursorOffset() = %d, want 13", got)
	}
	if got, _ := f.CursorLine(); got != 2 {
		t.Errorf("CursorLine() = %d, want 2", got)
	}
	if got, _ := f.CursorColumn(); got != 3 {
		t.Errorf("CursorColumn() = %d, want 3", got)
	}
}

func TestFacadeSelectedText(t *testing.T) {
	f, ed, _, _, _ := newTestFacade(t)

	got, err := f.SelectedText()
	if err != nil {
		t.Fatalf("SelectedText() error = %v", err)
	}
	if got != "" {
		t.Errorf("SelectedText() with no selection = %q, want empty", got)
	}

	_ = ed.SetSelection(0, 5)
	got, err = f.SelectedText()
	if err != nil {
		t.Fatalf("SelectedText() error = %v", err)
	}
	if got != "first" {
		t.Errorf("SelectedText() = %q, want %q", got, "first")
	}
}

func TestFacadeSelectionNone(t *testing.T) {
	f, _, _, _, _ := newTestFacade(t)
	if _, _, err := f.Selection(); !errors.Is(err, ErrNoSelection) {
		t.Errorf("Selection() error = %v, want ErrNoSelection", err)
	}
}

func TestFacadeMessages(t *testing.T) {
	f, _, ui, _, _ := newTestFacade(t)

	_ = f.Info("a")
	_ = f.Warn("b")
	_ = f.Error("c")

	want := []string{"info:a", "warning:b", "error:c"}
	if len(ui.notifications) != len(want) {
		t.Fatalf("got %d notifications, want %d", len(ui.notifications), len(want))
	}
	for i, n := range ui.notifications {
		if n != want[i] {
			t.Errorf("notification[%d] = %q, want %q", i, n, want[i])
		}
	}
}

func TestFacadeQuickPick(t *testing.T) {
	f, _, ui, _, _ := newTestFacade(t)
	ui.pickIndex = 1

	entry, ok, err := f.QuickPick([]string{"----- Files", "Open::Opens a file", "Close"})
	if err != nil {
		t.Fatalf("QuickPick() error = %v", err)
	}
	if !ok {
		t.Fatal("QuickPick() ok = false, want true")
	}
	if entry.Label != "Open" || entry.Description != "Opens a file" {
		t.Errorf("QuickPick() entry = %+v, want Open/Opens a file", entry)
	}

	// First entry reached the provider as a separator.
	if !ui.pickEntries[0].Separator {
		t.Error("first entry not coerced to separator")
	}
}

func TestFacadeQuickPickCancelled(t *testing.T) {
	f, _, ui, _, _ := newTestFacade(t)
	ui.pickIndex = -1

	_, ok, err := f.QuickPick([]string{"a", "b"})
	if err != nil {
		t.Fatalf("QuickPick() error = %v", err)
	}
	if ok {
		t.Error("QuickPick() ok = true for cancelled pick, want false")
	}
}

func TestFacadeMoveCursorClamped(t *testing.T) {
	f, ed, _, _, _ := newTestFacade(t)

	if err := f.MoveCursor(-5); err != nil {
		t.Fatalf("MoveCursor() error = %v", err)
	}
	if ed.offset != 0 {
		t.Errorf("offset = %d, want 0 after clamped negative move", ed.offset)
	}

	if err := f.MoveCursor(10_000); err != nil {
		t.Fatalf("MoveCursor() error = %v", err)
	}
	if ed.offset != len(ed.text) {
		t.Errorf("offset = %d, want %d after clamped forward move", ed.offset, len(ed.text))
	}
}

func TestFacadeMoveCursorTo(t *testing.T) {
	f, ed, _, _, _ := newTestFacade(t)

	tests := []struct {
		name       string
		line, col  int
		wantOffset int
	}{
		{"start", 1, 1, 0},
		{"second line", 2, 1, 11},
		{"mid second line", 2, 4, 14},
		{"column clamped to line end", 1, 99, 10},
		{"line clamped to document end", 99, 1, len(ed.text)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := f.MoveCursorTo(tt.line, tt.col); err != nil {
				t.Fatalf("MoveCursorTo(%d, %d) error = %v", tt.line, tt.col, err)
			}
			if ed.offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", ed.offset, tt.wantOffset)
			}
		})
	}
}

func TestLineColToOffsetMultibyte(t *testing.T) {
	// é is two bytes; column 3 is one rune past it.
	got := lineColToOffset("aé b", 1, 3)
	if got != 3 {
		t.Errorf("lineColToOffset() = %d, want 3", got)
	}
}

func TestFacadeFiles(t *testing.T) {
	f, _, _, ws, _ := newTestFacade(t)

	if err := f.OpenFile("src/main.go"); err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if err := f.PreviewFile("/abs/path.txt"); err != nil {
		t.Fatalf("PreviewFile() error = %v", err)
	}

	if got := ws.opened[0]; got != "/workspace/src/main.go" {
		t.Errorf("opened path = %q, want workspace-resolved path", got)
	}
	if got := ws.previews[0]; got != "/abs/path.txt" {
		t.Errorf("preview path = %q, absolute path should pass through", got)
	}
}

func TestFacadeTimedMessage(t *testing.T) {
	f, _, ui, _, _ := newTestFacade(t)

	start := time.Now()
	err := f.TimedMessage(context.Background(), "working", 50*time.Millisecond,
		progress.WithTicks(5), progress.WithEndLength(0))
	if err != nil {
		t.Fatalf("TimedMessage() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("TimedMessage() returned after %v, want >= 50ms", elapsed)
	}

	ui.mu.Lock()
	defer ui.mu.Unlock()
	if !ui.progressDone {
		t.Error("progress task was not dismissed")
	}
	var sum float64
	for _, inc := range ui.progressReports {
		sum += inc
	}
	if sum != 100 {
		t.Errorf("increments sum = %v, want 100", sum)
	}
}

func TestFacadeTypedSettings(t *testing.T) {
	f, _, _, _, st := newTestFacade(t)
	st.values["editor.tabSize"] = float64(2)
	st.values["editor.theme"] = "dark"
	st.values["editor.wrap"] = true
	st.values["ui.scale"] = 1.5

	if got := f.SettingInt("editor.tabSize", 4); got != 2 {
		t.Errorf("SettingInt() = %d, want 2", got)
	}
	if got := f.SettingInt("missing", 4); got != 4 {
		t.Errorf("SettingInt() default = %d, want 4", got)
	}
	if got := f.SettingString("editor.theme", "light"); got != "dark" {
		t.Errorf("SettingString() = %q, want dark", got)
	}
	if got := f.SettingBool("editor.wrap", false); !got {
		t.Error("SettingBool() = false, want true")
	}
	if got := f.SettingFloat("ui.scale", 1.0); got != 1.5 {
		t.Errorf("SettingFloat() = %v, want 1.5", got)
	}
	// Wrong type falls back to the default.
	if got := f.SettingBool("editor.theme", true); !got {
		t.Error("SettingBool() with wrong type = false, want default true")
	}
}
