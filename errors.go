package extkit

import "errors"

// Extension system errors.
var (
	// ErrExtensionNotFound is returned when an extension cannot be located.
	ErrExtensionNotFound = errors.New("extension not found")

	// ErrNilManifest is returned when a nil manifest is provided.
	ErrNilManifest = errors.New("manifest is nil")

	// ErrAlreadyLoaded is returned when loading an already loaded extension.
	ErrAlreadyLoaded = errors.New("extension is already loaded")

	// ErrNotLoaded is returned when using an unloaded extension.
	ErrNotLoaded = errors.New("extension is not loaded")

	// ErrInvalidState is returned for a disallowed lifecycle transition.
	ErrInvalidState = errors.New("invalid extension state transition")

	// ErrDependencyNotFound is returned when a required extension is missing.
	ErrDependencyNotFound = errors.New("extension dependency not found")

	// ErrCyclicDependency is returned when extensions depend on each other.
	ErrCyclicDependency = errors.New("cyclic extension dependency detected")
)
