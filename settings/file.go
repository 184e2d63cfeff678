package settings

import (
	"encoding/json"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// LoadTOML reads a TOML settings file into a new store. A missing file
// is not an error; it yields an empty store.
func LoadTOML(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	}

	doc, err := tomlToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("settings: parse %s: %w", path, err)
	}
	return FromJSON(doc)
}

// LoadJSON reads a JSON settings file into a new store. A missing file
// is not an error; it yields an empty store.
func LoadJSON(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	}
	return FromJSON(data)
}

// MergeTOML layers a TOML file's leaf values onto an existing store.
// Missing files are ignored. Each merged leaf fires matching watches.
func MergeTOML(s *Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("settings: read %s: %w", path, err)
	}

	doc, err := tomlToJSON(data)
	if err != nil {
		return fmt.Errorf("settings: parse %s: %w", path, err)
	}

	layer, err := FromJSON(doc)
	if err != nil {
		return err
	}
	for _, key := range layer.Keys("") {
		v, _ := layer.Get(key)
		if err := s.Set(key, v); err != nil {
			return err
		}
	}
	return nil
}

// tomlToJSON converts a TOML document to JSON through a generic map.
func tomlToJSON(data []byte) ([]byte, error) {
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}
