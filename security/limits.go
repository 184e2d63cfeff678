package security

import "time"

// Limits defines per-extension resource limits enforced by the Lua
// runtime.
type Limits struct {
	// MemoryLimit in bytes. Advisory only: gopher-lua does not enforce
	// hard memory caps, but hosts can surface the figure to users.
	MemoryLimit int64

	// ExecutionTimeout bounds a single call into the extension.
	ExecutionTimeout time.Duration

	// InstructionLimit bounds Lua VM instructions per execution.
	InstructionLimit int64
}

// DefaultLimits returns sensible limits for ordinary extensions.
func DefaultLimits() Limits {
	return Limits{
		MemoryLimit:      10 * 1024 * 1024,
		ExecutionTimeout: 5 * time.Second,
		InstructionLimit: 10_000_000,
	}
}

// StrictLimits returns tighter limits for untrusted extensions.
func StrictLimits() Limits {
	return Limits{
		MemoryLimit:      5 * 1024 * 1024,
		ExecutionTimeout: 2 * time.Second,
		InstructionLimit: 1_000_000,
	}
}

// RelaxedLimits returns looser limits for trusted extensions.
func RelaxedLimits() Limits {
	return Limits{
		MemoryLimit:      50 * 1024 * 1024,
		ExecutionTimeout: 30 * time.Second,
		InstructionLimit: 100_000_000,
	}
}
