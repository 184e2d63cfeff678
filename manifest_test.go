package extkit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/extkit/security"
)

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`{
		"name": "word-count",
		"version": "1.2.0",
		"displayName": "Word Count",
		"capabilities": ["editor", "editor.ui"],
		"dependencies": {"base-lib": "^1.0.0"},
		"commands": [{"id": "wordcount.show", "title": "Show Word Count"}],
		"settings": {"enabled": true}
	}`))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}

	if m.Name != "word-count" {
		t.Errorf("Name = %q", m.Name)
	}
	if m.Main != DefaultMain {
		t.Errorf("Main = %q, want default %q", m.Main, DefaultMain)
	}
	if !m.HasCapability(security.CapabilityUI) {
		t.Error("HasCapability(ui) = false")
	}
	if m.HasCapability(security.CapabilityProcess) {
		t.Error("HasCapability(process) = true, want false")
	}
	if m.Dependencies["base-lib"] != "^1.0.0" {
		t.Errorf("Dependencies = %v", m.Dependencies)
	}
	if got := m.SettingsPrefix(); got != "extensions.word-count." {
		t.Errorf("SettingsPrefix() = %q", got)
	}
}

func TestManifestValidation(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"missing name", `{"version": "1.0.0"}`, ErrMissingName},
		{"bad name", `{"name": "Bad Name", "version": "1.0.0"}`, ErrInvalidName},
		{"bad version", `{"name": "ok", "version": "not-semver"}`, ErrInvalidVersion},
		{"bad main", `{"name": "ok", "version": "1.0.0", "main": "main.js"}`, ErrInvalidMain},
		{"bad capability", `{"name": "ok", "version": "1.0.0", "capabilities": ["nope"]}`, ErrInvalidCapability},
		{"command without id", `{"name": "ok", "version": "1.0.0", "commands": [{"title": "T"}]}`, ErrMissingCommandID},
		{"command without title", `{"name": "ok", "version": "1.0.0", "commands": [{"id": "x"}]}`, ErrMissingCommandName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.json))
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseManifest() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestManifestVersionForms(t *testing.T) {
	for _, v := range []string{"1.0.0", "0.0.1", "2.1.0-rc.1", "1.0.0+build.5"} {
		if _, err := ParseManifest([]byte(`{"name": "ok", "version": "` + v + `"}`)); err != nil {
			t.Errorf("version %q rejected: %v", v, err)
		}
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	content := `{"name": "demo", "version": "1.0.0"}`
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	m, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if m.Path() != dir {
		t.Errorf("Path() = %q, want %q", m.Path(), dir)
	}
	if want := filepath.Join(dir, "main.lua"); m.MainPath() != want {
		t.Errorf("MainPath() = %q, want %q", m.MainPath(), want)
	}
}

func TestLoadManifestMissing(t *testing.T) {
	if _, err := LoadManifest(t.TempDir()); err == nil {
		t.Error("LoadManifest() of empty dir should fail")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUnloaded, "unloaded"},
		{StateLoaded, "loaded"},
		{StateActivating, "activating"},
		{StateActive, "active"},
		{StateDeactivating, "deactivating"},
		{StateFailed, "failed"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestStateIsUsable(t *testing.T) {
	if !StateLoaded.IsUsable() || !StateActive.IsUsable() {
		t.Error("loaded and active states should be usable")
	}
	if StateUnloaded.IsUsable() || StateFailed.IsUsable() {
		t.Error("unloaded and failed states should not be usable")
	}
}
