// Package state persists the small pieces of trading state that must
// survive process restarts. The kill switch is the important one: once an
// operator (or the risk manager) trips it, every later session must see it
// until it is explicitly cleared.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// KillSwitch is the persisted kill-switch record.
type KillSwitch struct {
	Active    bool      `json:"active"`
	Reason    string    `json:"reason"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KillSwitchStore loads and saves the kill-switch record.
type KillSwitchStore interface {
	Load() (KillSwitch, error)
	Save(ks KillSwitch) error
}

// FileKillSwitchStore keeps the kill switch in a JSON file. Writes go to a
// temp file first and are renamed into place so a crash mid-write cannot
// leave a truncated record.
type FileKillSwitchStore struct {
	path string
}

// NewFileKillSwitchStore creates a store backed by the given file path.
func NewFileKillSwitchStore(path string) *FileKillSwitchStore {
	return &FileKillSwitchStore{path: path}
}

// Load reads the kill-switch record. A missing file means the switch has
// never been tripped and loads as inactive.
func (s *FileKillSwitchStore) Load() (KillSwitch, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return KillSwitch{}, nil
		}
		return KillSwitch{}, fmt.Errorf("failed to read kill switch file: %w", err)
	}

	var ks KillSwitch
	if err := json.Unmarshal(data, &ks); err != nil {
		// A corrupt record must not silently disarm the switch.
		return KillSwitch{}, fmt.Errorf("failed to parse kill switch file: %w", err)
	}
	return ks, nil
}

// Save writes the kill-switch record atomically.
func (s *FileKillSwitchStore) Save(ks KillSwitch) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal kill switch: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write kill switch temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace kill switch file: %w", err)
	}
	return nil
}

// MemoryKillSwitchStore keeps the record in memory. Backtests use it so runs
// never touch the live kill-switch file.
type MemoryKillSwitchStore struct {
	ks KillSwitch
}

// NewMemoryKillSwitchStore creates an in-memory store.
func NewMemoryKillSwitchStore() *MemoryKillSwitchStore {
	return &MemoryKillSwitchStore{}
}

// Load returns the current in-memory record.
func (s *MemoryKillSwitchStore) Load() (KillSwitch, error) {
	return s.ks, nil
}

// Save replaces the in-memory record.
func (s *MemoryKillSwitchStore) Save(ks KillSwitch) error {
	s.ks = ks
	return nil
}
