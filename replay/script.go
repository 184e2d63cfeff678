// Package replay provides a scripted, headless implementation of the
// host provider set. A YAML script seeds an in-memory editor and
// supplies canned answers to UI prompts; the host records a transcript
// of everything an extension asked for. It exists for CI runs and the
// extrun binary.
package replay

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/extkit/host"
)

// Response kinds a script may contain.
const (
	KindInput   = "input"
	KindPick    = "pick"
	KindConfirm = "confirm"
)

// Response is one canned answer. Responses are consumed in order: the
// first unconsumed response whose kind matches and whose prompt is a
// substring of the shown prompt wins. An empty prompt matches anything.
type Response struct {
	Kind   string `yaml:"kind"`
	Prompt string `yaml:"prompt"`

	// Value is the text for input responses, or the entry label for
	// pick responses.
	Value string `yaml:"value"`

	// Index answers a pick by position (0-based) instead of label.
	Index *int `yaml:"index"`

	// Answer answers a confirm.
	Answer bool `yaml:"answer"`
}

// Defaults answer prompts no response matched.
type Defaults struct {
	Input   string `yaml:"input"`
	Confirm bool   `yaml:"confirm"`

	// Pick is the default pick index; nil cancels unmatched picks.
	Pick *int `yaml:"pick"`
}

// Script drives a replay run.
type Script struct {
	// Buffer seeds the in-memory editor text.
	Buffer string `yaml:"buffer"`

	// Path is the editor's reported file path.
	Path string `yaml:"path"`

	// Indent is "tabs" or "spaces:<n>"; empty means tabs.
	Indent string `yaml:"indent"`

	// Workspace is the workspace root. Defaults to the process working
	// directory when empty.
	Workspace string `yaml:"workspace"`

	// Settings seed the settings store with dot-separated keys.
	Settings map[string]any `yaml:"settings"`

	Responses []Response `yaml:"responses"`
	Defaults  Defaults   `yaml:"defaults"`
}

// LoadScript reads and parses a YAML script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript parses YAML script data.
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	for i, r := range script.Responses {
		switch r.Kind {
		case KindInput, KindPick, KindConfirm:
		default:
			return nil, fmt.Errorf("parsing script: response %d has unknown kind %q", i, r.Kind)
		}
	}
	return &script, nil
}

// IndentStyle converts the script's indent shorthand into host.Indent.
func (s *Script) IndentStyle() host.Indent {
	spec := strings.TrimSpace(s.Indent)
	if !strings.HasPrefix(spec, "spaces") {
		return host.Indent{}
	}
	size := 4
	if _, num, ok := strings.Cut(spec, ":"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(num)); err == nil && n > 0 {
			size = n
		}
	}
	return host.Indent{UseSpaces: true, Size: size}
}
