// Package prompts manages the named outreach prompt library and the
// composition of the reactive system prompt.
package prompts

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Library is a named collection of outreach system prompts, persisted
// as a flat JSON object of name -> prompt text.
type Library struct {
	mu      sync.Mutex
	path    string
	prompts map[string]string
}

// NewLibrary creates a library backed by path. An empty path keeps the
// library memory-only.
func NewLibrary(path string) *Library {
	return &Library{path: path, prompts: make(map[string]string)}
}

// Load reads the library file. A missing file leaves the library empty;
// a corrupt file is reported and the library left unchanged.
func (l *Library) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.path == "" {
		return nil
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read prompt library: %w", err)
	}
	var loaded map[string]string
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("decode prompt library %s: %w", l.path, err)
	}
	l.prompts = loaded
	log.Printf("[Prompts] loaded %d outreach prompts from %s", len(loaded), l.path)
	return nil
}

func (l *Library) saveLocked() error {
	if l.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(l.prompts, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0644)
}

// Add stores a prompt under name and persists the library.
func (l *Library) Add(name, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts[name] = text
	return l.saveLocked()
}

// Get returns the prompt stored under name.
func (l *Library) Get(name string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	text, ok := l.prompts[name]
	return text, ok
}

// Delete removes the prompt stored under name and persists the library.
func (l *Library) Delete(name string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.prompts[name]; !ok {
		return false, nil
	}
	delete(l.prompts, name)
	return true, l.saveLocked()
}

// Names returns the stored prompt names, sorted for stable listings.
func (l *Library) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.prompts))
	for name := range l.prompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored prompts.
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prompts)
}
