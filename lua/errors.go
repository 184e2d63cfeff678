package lua

import "errors"

// Runtime errors.
var (
	// ErrStateClosed is returned when using a closed State.
	ErrStateClosed = errors.New("lua: state is closed")

	// ErrSerializerClosed is returned when submitting work to a closed
	// Serializer.
	ErrSerializerClosed = errors.New("lua: serializer is closed")

	// ErrSerializerFull is returned when the serializer queue is full and
	// a non-blocking submit is dropped.
	ErrSerializerFull = errors.New("lua: serializer queue full")

	// ErrNotFunction is returned when calling a global that is not a
	// function.
	ErrNotFunction = errors.New("lua: not a function")

	// ErrInstrBudget is returned when a chunk or call spends more VM
	// instructions than the state's budget allows.
	ErrInstrBudget = errors.New("lua: instruction budget exceeded")

	// ErrCallTimeout is returned when a chunk or call runs past the
	// state's call timeout.
	ErrCallTimeout = errors.New("lua: call timeout exceeded")
)
