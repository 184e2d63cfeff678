// Package settings provides a dot-path configuration store backed by a
// JSON document, with change watches, TOML/JSON file loading, and a
// debounced file watcher for live reload.
package settings

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Store is a thread-safe dot-path settings store. It satisfies
// host.SettingsProvider.
type Store struct {
	mu      sync.RWMutex
	doc     []byte
	watches map[string]watch
}

type watch struct {
	pattern string
	fn      func(key string, oldValue, newValue any)
}

// New creates an empty store.
func New() *Store {
	return &Store{
		doc:     []byte("{}"),
		watches: make(map[string]watch),
	}
}

// FromJSON creates a store from a JSON document.
func FromJSON(data []byte) (*Store, error) {
	if len(data) == 0 {
		return New(), nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("settings: invalid JSON document")
	}
	s := New()
	s.doc = append([]byte(nil), data...)
	return s, nil
}

// Get returns the value at a dot-separated key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := gjson.GetBytes(s.doc, key)
	if !r.Exists() {
		return nil, false
	}
	return r.Value(), true
}

// GetString returns a string setting, or def when absent or mistyped.
func (s *Store) GetString(key, def string) string {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	if str, ok := v.(string); ok {
		return str
	}
	return def
}

// GetInt returns an integer setting, or def when absent or mistyped.
func (s *Store) GetInt(key string, def int) int {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return def
}

// GetFloat returns a float setting, or def when absent or mistyped.
func (s *Store) GetFloat(key string, def float64) float64 {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	if f, ok := v.(float64); ok {
		return f
	}
	return def
}

// GetBool returns a boolean setting, or def when absent or mistyped.
func (s *Store) GetBool(key string, def bool) bool {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// Set writes a value at a dot-separated path, creating intermediate
// objects as needed, and fires matching watches.
func (s *Store) Set(path string, value any) error {
	s.mu.Lock()
	old := gjson.GetBytes(s.doc, path).Value()

	doc, err := sjson.SetBytes(s.doc, path, value)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("settings: set %q: %w", path, err)
	}
	s.doc = doc
	newValue := gjson.GetBytes(s.doc, path).Value()
	fns := s.matchingWatches(path)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(path, old, newValue)
	}
	return nil
}

// Delete removes a key and fires matching watches with a nil new value.
func (s *Store) Delete(path string) error {
	s.mu.Lock()
	r := gjson.GetBytes(s.doc, path)
	if !r.Exists() {
		s.mu.Unlock()
		return nil
	}
	old := r.Value()

	doc, err := sjson.DeleteBytes(s.doc, path)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("settings: delete %q: %w", path, err)
	}
	s.doc = doc
	fns := s.matchingWatches(path)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(path, old, nil)
	}
	return nil
}

// Has returns true when the key exists.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return gjson.GetBytes(s.doc, key).Exists()
}

// Keys returns the leaf dot-paths matching pattern. A trailing "*"
// matches any suffix; the empty pattern matches every key.
func (s *Store) Keys(pattern string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	walkLeaves(gjson.ParseBytes(s.doc), "", func(path string, _ gjson.Result) {
		if matchKey(pattern, path) {
			keys = append(keys, path)
		}
	})
	return keys
}

// Watch registers a change callback for keys matching pattern and
// returns its ID. Callbacks run on the goroutine performing the
// mutation.
func (s *Store) Watch(pattern string, fn func(key string, oldValue, newValue any)) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.watches[id] = watch{pattern: pattern, fn: fn}
	return id
}

// Unwatch removes a watch registration.
func (s *Store) Unwatch(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.watches[id]
	delete(s.watches, id)
	return ok
}

// JSON returns a copy of the underlying document.
func (s *Store) JSON() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.doc...)
}

// Replace swaps in a whole new document, firing watches for every leaf
// whose value changed, appeared, or disappeared.
func (s *Store) Replace(data []byte) error {
	if len(data) == 0 {
		data = []byte("{}")
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("settings: invalid JSON document")
	}

	s.mu.Lock()
	oldLeaves := map[string]any{}
	walkLeaves(gjson.ParseBytes(s.doc), "", func(path string, r gjson.Result) {
		oldLeaves[path] = r.Value()
	})
	newLeaves := map[string]any{}
	walkLeaves(gjson.ParseBytes(data), "", func(path string, r gjson.Result) {
		newLeaves[path] = r.Value()
	})

	s.doc = append([]byte(nil), data...)

	type change struct {
		key      string
		old, new any
	}
	var changes []change
	for key, old := range oldLeaves {
		newValue, ok := newLeaves[key]
		if !ok {
			changes = append(changes, change{key, old, nil})
			continue
		}
		if !reflect.DeepEqual(old, newValue) {
			changes = append(changes, change{key, old, newValue})
		}
	}
	for key, newValue := range newLeaves {
		if _, ok := oldLeaves[key]; !ok {
			changes = append(changes, change{key, nil, newValue})
		}
	}

	type firing struct {
		fn  func(key string, oldValue, newValue any)
		chg change
	}
	var firings []firing
	for _, chg := range changes {
		for _, w := range s.watches {
			if matchKey(w.pattern, chg.key) {
				firings = append(firings, firing{w.fn, chg})
			}
		}
	}
	s.mu.Unlock()

	for _, f := range firings {
		f.fn(f.chg.key, f.chg.old, f.chg.new)
	}
	return nil
}

// matchingWatches returns the callbacks registered for key. Callers
// must hold the lock.
func (s *Store) matchingWatches(key string) []func(string, any, any) {
	var fns []func(string, any, any)
	for _, w := range s.watches {
		if matchKey(w.pattern, key) {
			fns = append(fns, w.fn)
		}
	}
	return fns
}

// walkLeaves visits every leaf value with its dot-path. Arrays count as
// leaves; only objects are descended into.
func walkLeaves(r gjson.Result, prefix string, visit func(path string, r gjson.Result)) {
	if !r.IsObject() {
		if prefix != "" {
			visit(prefix, r)
		}
		return
	}
	r.ForEach(func(key, value gjson.Result) bool {
		path := key.String()
		if prefix != "" {
			path = prefix + "." + path
		}
		walkLeaves(value, path, visit)
		return true
	})
}

// matchKey reports whether key matches pattern. A trailing "*" matches
// any suffix; the empty pattern matches everything.
func matchKey(pattern, key string) bool {
	if pattern == "" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(key, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == key
}
