package extkit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/extkit/host"
	"github.com/dshills/extkit/security"
)

// Loader discovers extensions on the filesystem.
type Loader struct {
	paths      []string
	hostCtx    *host.Context
	discovered map[string]*ExtensionInfo
}

// ExtensionInfo contains discovery information about an extension.
type ExtensionInfo struct {
	Name     string
	Path     string
	Manifest *Manifest
	Error    error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithSearchPath appends an extension search path.
func WithSearchPath(path string) LoaderOption {
	return func(l *Loader) {
		l.paths = append(l.paths, path)
	}
}

// WithSearchPaths replaces the search paths entirely.
func WithSearchPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a loader. The host context is handed to every
// extension the loader constructs.
func NewLoader(hostCtx *host.Context, opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:      DefaultSearchPaths(),
		hostCtx:    hostCtx,
		discovered: make(map[string]*ExtensionInfo),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultSearchPaths returns the standard extension directories:
// $XDG_CONFIG_HOME/extkit/extensions, falling back to
// ~/.config/extkit/extensions.
func DefaultSearchPaths() []string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return []string{filepath.Join(xdg, "extkit", "extensions")}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return []string{filepath.Join(home, ".config", "extkit", "extensions")}
	}
	return nil
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// Discover scans the search paths and returns what it finds, sorted by
// name. Directories holding an extension.json become full extensions;
// bare <name>.lua files become single-file extensions with the default
// editor and editor.ui capabilities. The first path to claim a name
// wins.
func (l *Loader) Discover() ([]*ExtensionInfo, error) {
	l.discovered = make(map[string]*ExtensionInfo)

	for _, basePath := range l.paths {
		l.discoverInPath(basePath)
	}

	infos := make([]*ExtensionInfo, 0, len(l.discovered))
	for _, info := range l.discovered {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

func (l *Loader) discoverInPath(basePath string) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		// Missing search paths are not errors.
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			if filepath.Ext(entry.Name()) == ".lua" {
				name := strings.TrimSuffix(entry.Name(), ".lua")
				l.addSingleFile(name, filepath.Join(basePath, entry.Name()))
			}
			continue
		}

		dir := filepath.Join(basePath, entry.Name())
		info := l.inspect(entry.Name(), dir)
		if _, exists := l.discovered[info.Name]; !exists {
			l.discovered[info.Name] = info
		}
	}
}

// addSingleFile registers a bare <name>.lua file as an extension with a
// synthetic manifest.
func (l *Loader) addSingleFile(name, luaPath string) {
	if _, exists := l.discovered[name]; exists {
		return
	}

	manifest := &Manifest{
		Name:    name,
		Version: "0.0.0",
		Main:    filepath.Base(luaPath),
		Capabilities: []security.Capability{
			security.CapabilityEditor,
			security.CapabilityUI,
		},
		path: filepath.Dir(luaPath),
	}

	info := &ExtensionInfo{
		Name:     name,
		Path:     filepath.Dir(luaPath),
		Manifest: manifest,
	}
	if err := manifest.Validate(); err != nil {
		info.Error = err
		info.Manifest = nil
	}
	l.discovered[name] = info
}

func (l *Loader) inspect(name, dir string) *ExtensionInfo {
	info := &ExtensionInfo{Name: name, Path: dir}

	if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err != nil {
		info.Error = fmt.Errorf("extension %q: no %s", name, ManifestFile)
		return info
	}

	manifest, err := LoadManifest(dir)
	if err != nil {
		info.Error = err
		return info
	}

	info.Manifest = manifest
	info.Name = manifest.Name
	return info
}

// Get returns discovery info for an extension by name.
func (l *Loader) Get(name string) (*ExtensionInfo, bool) {
	info, ok := l.discovered[name]
	return info, ok
}

// Names returns the discovered extension names, sorted.
func (l *Loader) Names() []string {
	names := make([]string, 0, len(l.discovered))
	for name := range l.discovered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load constructs an Extension for a discovered name. Discover must
// have run first. The returned extension is not yet loaded.
func (l *Loader) Load(name string, opts ...ExtensionOption) (*Extension, error) {
	info, ok := l.discovered[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExtensionNotFound, name)
	}
	if info.Error != nil {
		return nil, info.Error
	}
	return NewExtension(info.Manifest, l.hostCtx, opts...)
}

// LoadDir constructs an Extension directly from a directory containing
// an extension.json, bypassing discovery.
func (l *Loader) LoadDir(dir string, opts ...ExtensionOption) (*Extension, error) {
	manifest, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}
	return NewExtension(manifest, l.hostCtx, opts...)
}
