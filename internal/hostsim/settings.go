// Package hostsim is a reference implementation of the driver.Host
// capability set: an in-memory settings store, a tracked-pose world with
// synthetic or scripted headset motion, and a host that registers devices
// and fans submitted poses out to subscribers. It stands in for a real VR
// runtime in the simulator daemon and in tests.
package hostsim

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// SettingsStore is a mutable section/key settings table implementing
// driver.Settings. Values may be changed while device loops are reading
// them; the loops pick changes up on their next cycle.
type SettingsStore struct {
	mu       sync.RWMutex
	sections map[string]map[string]interface{}
}

// NewSettingsStore returns an empty store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{sections: make(map[string]map[string]interface{})}
}

// LoadSettings reads a store from a JSON file shaped as
// {"Section": {"key": value}}. The file must have a .json extension and be
// at most 1MB.
func LoadSettings(path string) (*SettingsStore, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("settings file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat settings file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("settings file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	sections := make(map[string]map[string]interface{})
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("failed to parse settings JSON: %w", err)
	}

	s := NewSettingsStore()
	for name, kv := range sections {
		if kv == nil {
			continue
		}
		s.sections[name] = kv
	}
	return s, nil
}

// Int32 reads an integer setting. JSON numbers are accepted when integral;
// anything else reads as absent.
func (s *SettingsStore) Int32(section, key string) (int32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.sections[section][key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int32:
		return n, true
	case int:
		return int32(n), true
	case int64:
		return int32(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int32(n), true
	default:
		return 0, false
	}
}

// String reads a string setting.
func (s *SettingsStore) String(section, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.sections[section][key]
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// SetInt32 stores an integer setting, creating the section if needed.
func (s *SettingsStore) SetInt32(section, key string, v int32) {
	s.set(section, key, v)
}

// SetString stores a string setting, creating the section if needed.
func (s *SettingsStore) SetString(section, key, v string) {
	s.set(section, key, v)
}

func (s *SettingsStore) set(section, key string, v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kv, ok := s.sections[section]
	if !ok {
		kv = make(map[string]interface{})
		s.sections[section] = kv
	}
	kv[key] = v
}

// Delete removes a setting. Missing keys are ignored.
func (s *SettingsStore) Delete(section, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sections[section], key)
}

// Snapshot returns a deep copy of every section, for diagnostics.
func (s *SettingsStore) Snapshot() map[string]map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]interface{}, len(s.sections))
	for name, kv := range s.sections {
		copied := make(map[string]interface{}, len(kv))
		for k, v := range kv {
			copied[k] = v
		}
		out[name] = copied
	}
	return out
}
