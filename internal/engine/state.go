package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// stateVersion is the current state file schema version.
	stateVersion = 1

	// StateFilename is the engine state file under the base directory.
	StateFilename = "engine-state.json"
)

// engineState persists the alias table and registered templates next to the
// physical indices. Alias updates rewrite the whole file, so a multi-action
// alias change is observed either entirely or not at all.
type engineState struct {
	Version   int                       `json:"version"`
	Aliases   map[string]string         `json:"aliases"`
	Templates map[string]map[string]any `json:"templates"`
	Mappings  map[string]map[string]any `json:"mappings"`
	mu        sync.RWMutex              `json:"-"`
	path      string                    `json:"-"`
}

// loadState reads the state file, or starts empty if it does not exist.
func loadState(path string) (*engineState, error) {
	s := &engineState{
		Version:   stateVersion,
		Aliases:   make(map[string]string),
		Templates: make(map[string]map[string]any),
		Mappings:  make(map[string]map[string]any),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read engine state: %w", err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse engine state: %w", err)
	}
	if s.Aliases == nil {
		s.Aliases = make(map[string]string)
	}
	if s.Templates == nil {
		s.Templates = make(map[string]map[string]any)
	}
	if s.Mappings == nil {
		s.Mappings = make(map[string]map[string]any)
	}
	s.path = path
	return s, nil
}

// save writes the state file atomically via write-to-temp + rename.
func (s *engineState) save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal engine state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write engine state temp file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename engine state file: %w", err)
	}
	return nil
}

// aliasTarget resolves an alias under the read lock.
func (s *engineState) aliasTarget(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target, ok := s.Aliases[name]
	return target, ok
}

// applyAliasActions applies all actions under one lock and one save, so the
// change is atomic from the perspective of other readers of the state file.
func (s *engineState) applyAliasActions(actions []AliasAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range actions {
		switch {
		case a.Add != nil:
			s.Aliases[a.Add.Alias] = a.Add.Index
		case a.Remove != nil:
			if s.Aliases[a.Remove.Alias] == a.Remove.Index {
				delete(s.Aliases, a.Remove.Alias)
			}
		}
	}
	return s.save()
}

// putTemplate stores a template body under its name.
func (s *engineState) putTemplate(name string, body map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Templates[name] = body
	return s.save()
}

// putMapping records an index's mapping; live indexes pick it up at the next
// rebuild.
func (s *engineState) putMapping(index string, body map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Mappings[index] = body
	return s.save()
}

// forgetIndex removes every alias pointing at a deleted index along with its
// recorded mapping.
func (s *engineState) forgetIndex(index string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for alias, target := range s.Aliases {
		if target == index {
			delete(s.Aliases, alias)
			changed = true
		}
	}
	if _, ok := s.Mappings[index]; ok {
		delete(s.Mappings, index)
		changed = true
	}
	if !changed {
		return nil
	}
	return s.save()
}
