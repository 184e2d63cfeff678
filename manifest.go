// Package extkit loads, sandboxes, and manages Lua extensions for an
// embedding editor host. Extensions declare themselves with an
// extension.json manifest, run inside a capability-gated Lua state, and
// reach the host through the ext namespace from the api package.
package extkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/dshills/extkit/security"
)

// ManifestFile is the manifest filename inside an extension directory.
const ManifestFile = "extension.json"

// DefaultMain is the entry point used when a manifest omits main.
const DefaultMain = "main.lua"

// Manifest describes an extension's metadata and requirements.
type Manifest struct {
	// Name is the unique identifier (e.g. "word-count").
	Name string `json:"name"`

	// Version is the extension's semver version.
	Version string `json:"version"`

	// DisplayName is the human-readable name.
	DisplayName string `json:"displayName"`

	// Description is a short description.
	Description string `json:"description"`

	// Main is the relative path to the entry Lua file.
	Main string `json:"main"`

	// Capabilities are the host capabilities the extension requests.
	Capabilities []security.Capability `json:"capabilities"`

	// Dependencies maps required extension names to semver constraints.
	// Presence is checked at activation; constraint matching is not.
	Dependencies map[string]string `json:"dependencies"`

	// Commands declares palette entries the extension provides.
	Commands []CommandContribution `json:"commands"`

	// Settings are default values written under extensions.<name>. on
	// load. Existing keys win.
	Settings map[string]any `json:"settings"`

	// path is the extension directory.
	path string
}

// CommandContribution declares a command the extension provides.
type CommandContribution struct {
	// ID is the command identifier (e.g. "wordcount.show").
	ID string `json:"id"`

	// Title is the display title.
	Title string `json:"title"`

	// Description is a longer description.
	Description string `json:"description"`

	// Category groups the command in a palette.
	Category string `json:"category"`
}

// Validation errors.
var (
	ErrMissingName        = errors.New("manifest: name is required")
	ErrInvalidName        = errors.New("manifest: name must be lowercase alphanumeric with hyphens")
	ErrMissingVersion     = errors.New("manifest: version is required")
	ErrInvalidVersion     = errors.New("manifest: version must be valid semver")
	ErrInvalidMain        = errors.New("manifest: main must be a .lua file")
	ErrInvalidCapability  = errors.New("manifest: invalid capability")
	ErrMissingCommandID   = errors.New("manifest: command id is required")
	ErrMissingCommandName = errors.New("manifest: command title is required")
)

// namePattern validates extension names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// ParseManifest parses and validates manifest JSON.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifest loads extension.json from an extension directory.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("manifest: read: %w", err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	m.path = dir
	return m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = DefaultMain
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks that the manifest is well-formed.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}

	if m.Version == "" {
		return ErrMissingVersion
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}

	if filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}

	for _, cap := range m.Capabilities {
		if !security.IsValidCapability(cap) {
			return fmt.Errorf("%w: %s", ErrInvalidCapability, cap)
		}
	}

	for i, cmd := range m.Commands {
		if cmd.ID == "" {
			return fmt.Errorf("%w at index %d", ErrMissingCommandID, i)
		}
		if cmd.Title == "" {
			return fmt.Errorf("%w at index %d (id: %s)", ErrMissingCommandName, i, cmd.ID)
		}
	}

	return nil
}

// Path returns the extension directory.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the full path to the entry Lua file.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.path, m.Main)
}

// HasCapability returns true if the extension requests the capability.
func (m *Manifest) HasCapability(cap security.Capability) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// SettingsPrefix returns the dot-path prefix the extension's default
// settings are written under.
func (m *Manifest) SettingsPrefix() string {
	return "extensions." + m.Name + "."
}
