// Package host defines the provider contracts an embedding application
// implements and the convenience facade extensions and Go callers use on
// top of them.
//
// A host hands extkit a Context holding whichever providers it supports:
// editor state, UI prompts, commands, workspace paths, and settings.
// Missing providers degrade gracefully; facade calls return sentinel
// errors and Lua modules for the capability are simply not injected.
package host

import (
	"strings"

	"github.com/dshills/extkit/pick"
)

// NotifyLevel represents the severity of a notification.
type NotifyLevel string

const (
	// NotifyInfo is an informational notification.
	NotifyInfo NotifyLevel = "info"
	// NotifyWarning is a warning notification.
	NotifyWarning NotifyLevel = "warning"
	// NotifyError is an error notification.
	NotifyError NotifyLevel = "error"
	// NotifySuccess is a success notification.
	NotifySuccess NotifyLevel = "success"
)

// ParseNotifyLevel normalizes a level string, defaulting to info.
func ParseNotifyLevel(s string) NotifyLevel {
	switch strings.ToLower(s) {
	case "warning", "warn":
		return NotifyWarning
	case "error":
		return NotifyError
	case "success":
		return NotifySuccess
	default:
		return NotifyInfo
	}
}

// Indent describes a document's indentation style.
type Indent struct {
	// UseSpaces is true when indentation is spaces rather than tabs.
	UseSpaces bool

	// Size is the number of columns one indent level occupies.
	Size int
}

// Unit returns the literal string for one indent level: a tab, or Size
// spaces (four when Size is unset).
func (i Indent) Unit() string {
	if !i.UseSpaces {
		return "\t"
	}
	size := i.Size
	if size <= 0 {
		size = 4
	}
	return strings.Repeat(" ", size)
}

// EditorProvider defines the interface for document and cursor state.
type EditorProvider interface {
	// Text returns the full document text.
	Text() string

	// Line returns the text of a specific line (1-indexed).
	Line(lineNum int) (string, error)

	// LineCount returns the total number of lines.
	LineCount() int

	// Offset returns the primary cursor byte offset.
	Offset() int

	// SetOffset moves the primary cursor to a byte offset.
	SetOffset(offset int) error

	// LineCol returns the cursor position as 1-indexed line and column.
	LineCol() (line, col int)

	// Selection returns the selection byte range, or (-1, -1) when
	// nothing is selected.
	Selection() (start, end int)

	// SetSelection sets the selection byte range.
	SetSelection(start, end int) error

	// Path returns the file path of the document, or "" when unsaved.
	Path() string

	// Modified returns true if the document has unsaved changes.
	Modified() bool

	// Indentation returns the document's indentation style.
	Indentation() Indent
}

// InputOptions configures a text input prompt.
type InputOptions struct {
	// Prompt is the question shown to the user.
	Prompt string

	// Placeholder is ghost text shown while the field is empty.
	Placeholder string

	// Value pre-fills the field.
	Value string
}

// PickOptions configures a selection list.
type PickOptions struct {
	// Title is shown above the list.
	Title string

	// Placeholder is shown in the filter field while it is empty.
	Placeholder string

	// MatchOnDescription includes entry descriptions in filtering.
	MatchOnDescription bool

	// MatchOnDetail includes entry details in filtering.
	MatchOnDetail bool
}

// ProgressOptions configures a progress notification.
type ProgressOptions struct {
	// Title is the primary message of the notification.
	Title string

	// Cancellable asks the host to offer a cancel affordance.
	Cancellable bool
}

// ProgressTask is a live progress notification handle.
type ProgressTask interface {
	// Report advances the indicator by increment percentage points and
	// replaces the secondary message.
	Report(increment float64, message string)

	// Done dismisses the notification.
	Done()

	// ID identifies the task to the host.
	ID() string
}

// UIProvider defines the interface for UI operations.
type UIProvider interface {
	// Notify shows a notification to the user.
	Notify(message string, level NotifyLevel) error

	// Input prompts the user for text input.
	// Returns the entered text, or the empty string if cancelled.
	Input(opts InputOptions) (string, error)

	// Pick shows a selection list.
	// Returns the selected index (0-based), or -1 if cancelled.
	// Separator entries are display-only and never selected.
	Pick(entries []pick.Entry, opts PickOptions) (int, error)

	// Confirm shows a yes/no confirmation dialog.
	Confirm(message string) (bool, error)

	// SetStatus sets the host's status segment text.
	SetStatus(text string) error

	// ClearStatus clears the host's status segment.
	ClearStatus() error

	// Progress opens a determinate progress notification.
	Progress(opts ProgressOptions) (ProgressTask, error)
}

// WorkspaceProvider defines workspace path and document operations.
type WorkspaceProvider interface {
	// Root returns the workspace root directory.
	Root() string

	// Resolve turns a workspace-relative path into an absolute one.
	// Absolute paths pass through unchanged.
	Resolve(rel string) string

	// Open opens a document in the editor.
	Open(path string) error

	// Preview opens a document transiently, without taking focus.
	Preview(path string) error
}

// SettingsProvider defines configuration access.
type SettingsProvider interface {
	// Get returns a setting value by dot-separated key.
	Get(key string) (any, bool)

	// Set writes a setting value.
	Set(key string, value any) error

	// Has returns true if the key exists.
	Has(key string) bool

	// Keys returns the leaf keys matching a pattern. A trailing ".*"
	// matches any suffix; the empty pattern matches every key.
	Keys(pattern string) []string

	// Watch registers a callback for changes to keys matching pattern.
	// Returns a watch ID for Unwatch. Callbacks run on the goroutine
	// that performs the mutation.
	Watch(pattern string, fn func(key string, oldValue, newValue any)) string

	// Unwatch removes a watch registration.
	Unwatch(id string) bool
}

// Logger is the minimal logging surface the facade and Lua modules use.
// The root extkit package ships a concrete implementation.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Context carries the provider set for one embedding host.
type Context struct {
	// Editor provides document, cursor, and selection state.
	Editor EditorProvider

	// UI provides notifications, prompts, and selection lists.
	UI UIProvider

	// Commands provides command registration and execution.
	Commands CommandProvider

	// Workspace provides path resolution and document opening.
	Workspace WorkspaceProvider

	// Settings provides configuration access.
	Settings SettingsProvider

	// Log receives diagnostics from the facade and Lua modules.
	// A nil Log discards everything.
	Log Logger
}

// Logger returns the context's logger, or a discard logger when unset.
func (c *Context) Logger() Logger {
	if c == nil || c.Log == nil {
		return discardLogger{}
	}
	return c.Log
}

// NopLogger discards every message. It is the logger Context.Logger
// falls back to, exported for components that take an optional Logger.
var NopLogger Logger = discardLogger{}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}
