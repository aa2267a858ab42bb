// Package config implements the admin configuration store.
//
// The configuration is a single JSON document. Defaults are merged under
// any stored overrides at load time (missing keys inherit defaults; present
// keys override, with one level of nested-map merge for grouped settings
// like ollama_model_options). Callers read immutable snapshots or typed
// values by dotted path; all mutations go through Set + Persist.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store owns the admin configuration document.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  map[string]any
}

// DefaultPath returns the default config file path (~/.wassist/config.json).
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wassist", "config.json")
}

// Load reads the configuration document from path. A missing file yields
// defaults (written back to disk); a corrupt file yields defaults and is
// rewritten, matching best-effort persistence semantics.
func Load(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the document from disk and re-merges defaults under it.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[Config] %s not found, creating with defaults", s.path)
			s.doc = Defaults()
			return s.persistLocked()
		}
		return err
	}

	var loaded map[string]any
	if err := json.Unmarshal(data, &loaded); err != nil {
		log.Printf("[Config] error decoding %s: %v, using defaults", s.path, err)
		s.doc = Defaults()
		return s.persistLocked()
	}

	s.doc = mergeDefaults(Defaults(), loaded)
	return nil
}

// Persist writes the current document to disk, creating parent dirs.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// mergeDefaults layers overrides on top of defaults. Nested maps present in
// both are merged key-by-key (one level); everything else is replaced.
func mergeDefaults(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		dm, defIsMap := merged[k].(map[string]any)
		om, ovIsMap := v.(map[string]any)
		if defIsMap && ovIsMap {
			sub := make(map[string]any, len(dm))
			for sk, sv := range dm {
				sub[sk] = sv
			}
			for sk, sv := range om {
				sub[sk] = sv
			}
			merged[k] = sub
			continue
		}
		merged[k] = v
	}
	return merged
}

// Snapshot returns a deep copy of the whole document.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopy(s.doc).(map[string]any)
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = deepCopy(e)
		}
		return m
	case []any:
		l := make([]any, len(t))
		for i, e := range t {
			l[i] = deepCopy(e)
		}
		return l
	default:
		return v
	}
}

// Get resolves a dotted key path ("outreach_settings.approval_mode").
// Returned containers are copies; mutating them does not affect the store.
func (s *Store) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cur any = s.doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return deepCopy(cur), true
}

// Set writes value at a dotted key path, creating intermediate maps.
// It fails if an intermediate segment exists and is not a map.
func (s *Store) Set(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := strings.Split(path, ".")
	cur := s.doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			if _, exists := cur[part]; exists {
				return fmt.Errorf("config path %q: segment %q is not a map", path, part)
			}
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
	return nil
}

// Str returns the string at path, or def when absent or mistyped.
func (s *Store) Str(path, def string) string {
	if v, ok := s.Get(path); ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return def
}

// Float returns the float64 at path, or def. Integers stored directly
// (rather than decoded from JSON) are converted.
func (s *Store) Float(path string, def float64) float64 {
	if v, ok := s.Get(path); ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

// Int returns the value at path as an int, or def.
func (s *Store) Int(path string, def int) int {
	if v, ok := s.Get(path); ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Bool returns the bool at path, or def.
func (s *Store) Bool(path string, def bool) bool {
	if v, ok := s.Get(path); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// StrMap returns the map at path with string values; non-string entries
// are skipped.
func (s *Store) StrMap(path string) map[string]string {
	out := map[string]string{}
	v, ok := s.Get(path)
	if !ok {
		return out
	}
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for k, e := range m {
		if str, ok := e.(string); ok {
			out[k] = str
		}
	}
	return out
}

// StrList returns the list at path as strings; non-string entries are skipped.
func (s *Store) StrList(path string) []string {
	v, ok := s.Get(path)
	if !ok {
		return nil
	}
	l, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, e := range l {
		if str, ok := e.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// ChatEndpoint returns the Ollama chat endpoint derived from the base URL.
// Derived, never stored.
func (s *Store) ChatEndpoint() string {
	base := strings.TrimRight(s.Str("ollama_api_base_url", "http://localhost:11434"), "/")
	return base + "/api/chat"
}

// TagsEndpoint returns the Ollama model listing endpoint derived from the
// base URL.
func (s *Store) TagsEndpoint() string {
	base := strings.TrimRight(s.Str("ollama_api_base_url", "http://localhost:11434"), "/")
	return base + "/api/tags"
}

// AdminID returns the configured admin identity for a platform ("" if none).
func (s *Store) AdminID(platform string) string {
	return s.StrMap("admin_ids")[platform]
}

// IsAdmin reports whether chatID is the configured admin for platform.
func (s *Store) IsAdmin(platform, chatID string) bool {
	id := s.AdminID(platform)
	return id != "" && id == chatID
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }
