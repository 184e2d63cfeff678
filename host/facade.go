package host

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dshills/extkit/pick"
	"github.com/dshills/extkit/progress"
)

// Facade wraps a Context with the shorthand accessors and ergonomic
// defaults extension code actually wants: one-call message dialogs, input
// boxes, quick picks with string coercion, clamped cursor movement, file
// preview, and timed progress messages.
//
// Every method checks its provider and returns the matching sentinel
// error when the host left it nil; the facade never panics on a partial
// Context.
type Facade struct {
	ctx *Context
}

// NewFacade creates a facade over the given context.
func NewFacade(ctx *Context) *Facade {
	if ctx == nil {
		ctx = &Context{}
	}
	return &Facade{ctx: ctx}
}

// Context returns the underlying provider context.
func (f *Facade) Context() *Context { return f.ctx }

// Editor returns the editor provider, or ErrNoEditor.
func (f *Facade) Editor() (EditorProvider, error) {
	if f.ctx.Editor == nil {
		return nil, ErrNoEditor
	}
	return f.ctx.Editor, nil
}

// CursorOffset returns the primary cursor byte offset.
func (f *Facade) CursorOffset() (int, error) {
	ed, err := f.Editor()
	if err != nil {
		return 0, err
	}
	return ed.Offset(), nil
}

// CursorLine returns the 1-indexed cursor line.
func (f *Facade) CursorLine() (int, error) {
	ed, err := f.Editor()
	if err != nil {
		return 0, err
	}
	line, _ := ed.LineCol()
	return line, nil
}

// CursorColumn returns the 1-indexed cursor column.
func (f *Facade) CursorColumn() (int, error) {
	ed, err := f.Editor()
	if err != nil {
		return 0, err
	}
	_, col := ed.LineCol()
	return col, nil
}

// Selection returns the selection byte range, or ErrNoSelection.
func (f *Facade) Selection() (start, end int, err error) {
	ed, err := f.Editor()
	if err != nil {
		return 0, 0, err
	}
	start, end = ed.Selection()
	if start < 0 || end < 0 {
		return 0, 0, ErrNoSelection
	}
	return start, end, nil
}

// SelectedText returns the selected document text, or "" when nothing is
// selected.
func (f *Facade) SelectedText() (string, error) {
	ed, err := f.Editor()
	if err != nil {
		return "", err
	}
	start, end := ed.Selection()
	if start < 0 || end < 0 {
		return "", nil
	}
	text := ed.Text()
	if start > end {
		start, end = end, start
	}
	if start > len(text) {
		start = len(text)
	}
	if end > len(text) {
		end = len(text)
	}
	return text[start:end], nil
}

// Indentation returns the document indentation descriptor.
func (f *Facade) Indentation() (Indent, error) {
	ed, err := f.Editor()
	if err != nil {
		return Indent{}, err
	}
	return ed.Indentation(), nil
}

// Info shows an informational message.
func (f *Facade) Info(message string) error { return f.notify(message, NotifyInfo) }

// Warn shows a warning message.
func (f *Facade) Warn(message string) error { return f.notify(message, NotifyWarning) }

// Error shows an error message.
func (f *Facade) Error(message string) error { return f.notify(message, NotifyError) }

func (f *Facade) notify(message string, level NotifyLevel) error {
	if f.ctx.UI == nil {
		return ErrNoUI
	}
	return f.ctx.UI.Notify(message, level)
}

// InputOption customizes an input box.
type InputOption func(*InputOptions)

// WithPlaceholder sets the ghost text shown while the field is empty.
func WithPlaceholder(s string) InputOption {
	return func(o *InputOptions) { o.Placeholder = s }
}

// WithValue pre-fills the input field.
func WithValue(s string) InputOption {
	return func(o *InputOptions) { o.Value = s }
}

// InputBox prompts the user for text. Returns "" when the user cancels.
func (f *Facade) InputBox(prompt string, opts ...InputOption) (string, error) {
	if f.ctx.UI == nil {
		return "", ErrNoUI
	}
	o := InputOptions{Prompt: prompt}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return f.ctx.UI.Input(o)
}

// Confirm shows a yes/no dialog.
func (f *Facade) Confirm(message string) (bool, error) {
	if f.ctx.UI == nil {
		return false, ErrNoUI
	}
	return f.ctx.UI.Confirm(message)
}

// PickOption customizes a quick pick.
type PickOption func(*PickOptions)

// WithPickTitle sets the list title.
func WithPickTitle(s string) PickOption {
	return func(o *PickOptions) { o.Title = s }
}

// WithPickPlaceholder sets the filter field placeholder.
func WithPickPlaceholder(s string) PickOption {
	return func(o *PickOptions) { o.Placeholder = s }
}

// WithMatchOnDescription includes descriptions in filtering.
func WithMatchOnDescription() PickOption {
	return func(o *PickOptions) { o.MatchOnDescription = true }
}

// WithMatchOnDetail includes details in filtering.
func WithMatchOnDetail() PickOption {
	return func(o *PickOptions) { o.MatchOnDetail = true }
}

// QuickPick shows a selection list built from shorthand strings. Each
// item is coerced through pick.Parse, so "Label::Desc??Detail" and
// "----- Section" annotations work. Returns ok=false when cancelled.
func (f *Facade) QuickPick(items []string, opts ...PickOption) (pick.Entry, bool, error) {
	return f.QuickPickEntries(pick.ParseAll(items), opts...)
}

// QuickPickEntries shows a selection list of pre-built entries.
// Returns ok=false when the user cancels.
func (f *Facade) QuickPickEntries(entries []pick.Entry, opts ...PickOption) (pick.Entry, bool, error) {
	if f.ctx.UI == nil {
		return pick.Entry{}, false, ErrNoUI
	}
	o := PickOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	idx, err := f.ctx.UI.Pick(entries, o)
	if err != nil {
		return pick.Entry{}, false, err
	}
	if idx < 0 || idx >= len(entries) {
		return pick.Entry{}, false, nil
	}
	return entries[idx], true, nil
}

// SetStatus sets the host's status segment text.
func (f *Facade) SetStatus(text string) error {
	if f.ctx.UI == nil {
		return ErrNoUI
	}
	return f.ctx.UI.SetStatus(text)
}

// ClearStatus clears the host's status segment.
func (f *Facade) ClearStatus() error {
	if f.ctx.UI == nil {
		return ErrNoUI
	}
	return f.ctx.UI.ClearStatus()
}

// MoveCursor moves the cursor by delta bytes, clamped to the document.
func (f *Facade) MoveCursor(delta int) error {
	ed, err := f.Editor()
	if err != nil {
		return err
	}
	offset := ed.Offset() + delta
	if offset < 0 {
		offset = 0
	}
	if max := len(ed.Text()); offset > max {
		offset = max
	}
	return ed.SetOffset(offset)
}

// MoveCursorTo moves the cursor to a 1-indexed line and column. The line
// is clamped to the document and the column into the line; columns count
// runes, not bytes.
func (f *Facade) MoveCursorTo(line, col int) error {
	ed, err := f.Editor()
	if err != nil {
		return err
	}
	return ed.SetOffset(lineColToOffset(ed.Text(), line, col))
}

// lineColToOffset converts a 1-indexed line and rune column to a byte
// offset, clamping both into the document.
func lineColToOffset(text string, line, col int) int {
	if text == "" {
		return 0
	}
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}

	offset := 0
	rest := text
	for line > 1 {
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			// Past the last line: clamp to end of document.
			return len(text)
		}
		offset += nl + 1
		rest = rest[nl+1:]
		line--
	}

	lineText := rest
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		lineText = rest[:nl]
	}

	// Walk col-1 runes into the line, clamping at its end.
	for i := 1; i < col && len(lineText) > 0; i++ {
		_, size := utf8.DecodeRuneInString(lineText)
		offset += size
		lineText = lineText[size:]
	}
	return offset
}

// OpenFile opens a document, resolving relative paths against the
// workspace root.
func (f *Facade) OpenFile(path string) error {
	if f.ctx.Workspace == nil {
		return ErrNoWorkspace
	}
	return f.ctx.Workspace.Open(f.ctx.Workspace.Resolve(path))
}

// PreviewFile opens a document transiently, without taking focus.
func (f *Facade) PreviewFile(path string) error {
	if f.ctx.Workspace == nil {
		return ErrNoWorkspace
	}
	return f.ctx.Workspace.Preview(f.ctx.Workspace.Resolve(path))
}

// WorkspaceRoot returns the workspace root directory.
func (f *Facade) WorkspaceRoot() (string, error) {
	if f.ctx.Workspace == nil {
		return "", ErrNoWorkspace
	}
	return f.ctx.Workspace.Root(), nil
}

// ExecuteCommand runs a registered command.
func (f *Facade) ExecuteCommand(id string, args map[string]any) error {
	if f.ctx.Commands == nil {
		return ErrNoCommands
	}
	return f.ctx.Commands.Execute(id, args)
}

// TimedMessage shows a self-dismissing notification with a determinate
// progress indicator that fills over duration. It blocks until the full
// duration has elapsed and always dismisses the host task, even when the
// simulation fails.
func (f *Facade) TimedMessage(ctx context.Context, message string, duration time.Duration, opts ...progress.Option) error {
	if f.ctx.UI == nil {
		return ErrNoUI
	}
	o := progress.NewOptions(opts...)

	task, err := f.ctx.UI.Progress(ProgressOptions{
		Title:       message,
		Cancellable: o.Cancellable,
	})
	if err != nil {
		return fmt.Errorf("timed message: %w", err)
	}
	defer task.Done()

	return progress.Run(ctx, task, duration, o)
}

// SettingString returns a string setting, or def when missing or not a
// string.
func (f *Facade) SettingString(key, def string) string {
	v, ok := f.setting(key)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// SettingInt returns an integer setting, or def.
func (f *Facade) SettingInt(key string, def int) int {
	v, ok := f.setting(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

// SettingBool returns a boolean setting, or def.
func (f *Facade) SettingBool(key string, def bool) bool {
	v, ok := f.setting(key)
	if !ok {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// SettingFloat returns a float setting, or def.
func (f *Facade) SettingFloat(key string, def float64) float64 {
	v, ok := f.setting(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

func (f *Facade) setting(key string) (any, bool) {
	if f.ctx.Settings == nil {
		return nil, false
	}
	return f.ctx.Settings.Get(key)
}
