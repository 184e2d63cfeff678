package replay

import (
	"fmt"
	"os"

	"github.com/dshills/extkit/host"
	"github.com/dshills/extkit/settings"
)

// Context bundles the providers built for one replay run, with the
// concrete types still reachable for inspection.
type Context struct {
	Host      *Host
	Editor    *Editor
	Workspace *Workspace
	Settings  *settings.Store
}

// NewContext builds a full provider set from a script. A nil script
// yields an empty editor, defaults-only UI, and the process working
// directory as the workspace root.
func NewContext(script *Script) (*Context, error) {
	if script == nil {
		script = &Script{}
	}

	editor := NewEditor(script.Buffer, script.IndentStyle())
	if script.Path != "" {
		editor.SetPath(script.Path)
	}

	root := script.Workspace
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving workspace root: %w", err)
		}
		root = wd
	}

	store := settings.New()
	for key, value := range script.Settings {
		if err := store.Set(key, value); err != nil {
			return nil, fmt.Errorf("seeding setting %q: %w", key, err)
		}
	}

	return &Context{
		Host:      NewHost(script),
		Editor:    editor,
		Workspace: NewWorkspace(root),
		Settings:  store,
	}, nil
}

// HostContext assembles the host.Context extensions run against.
func (c *Context) HostContext(log host.Logger) *host.Context {
	return &host.Context{
		Editor:    c.Editor,
		UI:        c.Host,
		Commands:  host.NewCommands(),
		Workspace: c.Workspace,
		Settings:  c.Settings,
		Log:       log,
	}
}
