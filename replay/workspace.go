package replay

import (
	"path/filepath"
	"sync"
)

// Workspace is a recording host.WorkspaceProvider rooted at a
// directory. Open and Preview succeed unconditionally and are
// remembered for inspection.
type Workspace struct {
	mu       sync.Mutex
	root     string
	opened   []string
	previews []string
}

// NewWorkspace creates a workspace over root.
func NewWorkspace(root string) *Workspace {
	return &Workspace{root: root}
}

func (w *Workspace) Root() string {
	return w.root
}

func (w *Workspace) Resolve(rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(w.root, rel)
}

func (w *Workspace) Open(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opened = append(w.opened, path)
	return nil
}

func (w *Workspace) Preview(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.previews = append(w.previews, path)
	return nil
}

// Opened returns the paths passed to Open, in order.
func (w *Workspace) Opened() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.opened))
	copy(out, w.opened)
	return out
}

// Previewed returns the paths passed to Preview, in order.
func (w *Workspace) Previewed() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.previews))
	copy(out, w.previews)
	return out
}
