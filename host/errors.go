package host

import "errors"

// Facade errors. Each missing provider has its own sentinel so callers
// can distinguish "host does not support this" from operation failures.
var (
	// ErrNoEditor is returned when the host supplies no editor provider.
	ErrNoEditor = errors.New("host: no editor provider")

	// ErrNoUI is returned when the host supplies no UI provider.
	ErrNoUI = errors.New("host: no UI provider")

	// ErrNoCommands is returned when the host supplies no command provider.
	ErrNoCommands = errors.New("host: no command provider")

	// ErrNoWorkspace is returned when the host supplies no workspace provider.
	ErrNoWorkspace = errors.New("host: no workspace provider")

	// ErrNoSettings is returned when the host supplies no settings provider.
	ErrNoSettings = errors.New("host: no settings provider")

	// ErrNoSelection is returned when a selection is requested but nothing
	// is selected.
	ErrNoSelection = errors.New("host: no selection")

	// ErrCommandNotFound is returned when executing an unknown command.
	ErrCommandNotFound = errors.New("host: command not found")

	// ErrDuplicateCommand is returned when registering an ID that exists.
	ErrDuplicateCommand = errors.New("host: command already registered")

	// ErrNilCommand is returned when registering a nil command or a
	// command without an ID or handler.
	ErrNilCommand = errors.New("host: invalid command")
)
