package host

import (
	"fmt"
	"sort"
	"sync"
)

// Command is an invokable operation exposed to extensions and pickers.
type Command struct {
	// ID is the unique command identifier (e.g., "files.openRecent").
	ID string

	// Title is the display name shown in selection lists.
	Title string

	// Description explains what the command does.
	Description string

	// Category groups related commands.
	Category string

	// Source identifies who registered the command (e.g.,
	// "extension:git-lens"). Used for bulk removal on unload.
	Source string

	// Handler executes the command.
	Handler func(args map[string]any) error
}

// Execute runs the command's handler.
func (c *Command) Execute(args map[string]any) error {
	if c.Handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrNilCommand, c.ID)
	}
	return c.Handler(args)
}

// String returns a display representation of the command.
func (c *Command) String() string {
	if c.Category != "" {
		return c.Category + ": " + c.Title
	}
	return c.Title
}

// CommandProvider defines command registration and execution.
type CommandProvider interface {
	// Register adds a command.
	Register(cmd *Command) error

	// Unregister removes a command by ID. Returns true if it existed.
	Unregister(id string) bool

	// UnregisterBySource removes all commands from a source.
	// Returns the number removed.
	UnregisterBySource(source string) int

	// Execute runs a command by ID with arguments.
	Execute(id string, args map[string]any) error

	// Has checks whether a command exists.
	Has(id string) bool

	// Get retrieves a command by ID, or nil.
	Get(id string) *Command

	// All returns every registered command sorted by title.
	All() []*Command
}

// Commands is a thread-safe in-memory CommandProvider. Hosts that have no
// command system of their own can embed it directly.
type Commands struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

// NewCommands creates an empty command registry.
func NewCommands() *Commands {
	return &Commands{commands: make(map[string]*Command)}
}

// Register adds a command. The ID must be unique and the handler non-nil.
func (r *Commands) Register(cmd *Command) error {
	if cmd == nil || cmd.ID == "" || cmd.Handler == nil {
		return ErrNilCommand
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[cmd.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, cmd.ID)
	}
	r.commands[cmd.ID] = cmd
	return nil
}

// Unregister removes a command by ID.
func (r *Commands) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[id]; !exists {
		return false
	}
	delete(r.commands, id)
	return true
}

// UnregisterBySource removes every command registered by a source.
func (r *Commands) UnregisterBySource(source string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, cmd := range r.commands {
		if cmd.Source == source {
			delete(r.commands, id)
			removed++
		}
	}
	return removed
}

// Execute runs a command by ID.
func (r *Commands) Execute(id string, args map[string]any) error {
	r.mu.RLock()
	cmd, exists := r.commands[id]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, id)
	}
	return cmd.Execute(args)
}

// Has checks whether a command exists.
func (r *Commands) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.commands[id]
	return exists
}

// Get retrieves a command by ID, or nil.
func (r *Commands) Get(id string) *Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[id]
}

// All returns every registered command sorted by title.
func (r *Commands) All() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		result = append(result, cmd)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Title < result[j].Title
	})
	return result
}

// Count returns the number of registered commands.
func (r *Commands) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}
