package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StoreVersion is the current version of the settings file format.
const StoreVersion = 1

// Well-known setting keys.
const (
	// KeyAttachEnabled is the per-subscription user attach-enabled flag
	// ("true" or "false").
	KeyAttachEnabled = "satellite_attach_enabled"

	// KeySatelliteMode is the device-level satellite mode flag, persisted
	// under DeviceSubID.
	KeySatelliteMode = "satellite_mode_enabled"
)

// DeviceSubID keys device-level settings that are not tied to a
// subscription.
const DeviceSubID int64 = -1

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("setting not found")

// Store provides fallible per-subscription key/value settings.
// Implementations must be thread-safe.
type Store interface {
	// Get returns the value for (subID, key), or ErrNotFound.
	Get(subID int64, key string) (string, error)

	// Set writes the value for (subID, key). The write must be durable
	// before Set returns.
	Set(subID int64, key, value string) error
}

// settingsFile is the on-disk document.
type settingsFile struct {
	// Version is the settings file format version.
	Version int `json:"version"`

	// SavedAt is when the settings were last saved.
	SavedAt time.Time `json:"saved_at"`

	// Subscriptions maps a subscription ID (decimal string, JSON object
	// keys must be strings) to its key/value settings.
	Subscriptions map[string]map[string]string `json:"subscriptions,omitempty"`
}

// FileStore persists settings to a JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a new file-backed settings store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get returns the value for (subID, key), or ErrNotFound.
func (s *FileStore) Get(subID int64, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", err
	}
	sub, ok := doc.Subscriptions[subKey(subID)]
	if !ok {
		return "", ErrNotFound
	}
	value, ok := sub[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set writes the value for (subID, key), rewriting the whole file.
func (s *FileStore) Set(subID int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if doc.Subscriptions == nil {
		doc.Subscriptions = make(map[string]map[string]string)
	}
	sub := doc.Subscriptions[subKey(subID)]
	if sub == nil {
		sub = make(map[string]string)
		doc.Subscriptions[subKey(subID)] = sub
	}
	sub[key] = value

	doc.Version = StoreVersion
	doc.SavedAt = time.Now()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	// Write-then-rename so a crash mid-write never leaves a torn file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) load() (*settingsFile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &settingsFile{}, nil
	}
	if err != nil {
		return nil, err
	}
	doc := &settingsFile{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func subKey(subID int64) string {
	return fmt.Sprintf("%d", subID)
}

// Memory is an in-memory store for tests. The zero value is not usable;
// create it with NewMemory.
type Memory struct {
	mu     sync.Mutex
	values map[string]string

	// FailSets makes every Set return an error when true, for testing
	// persistence-failure paths.
	FailSets bool
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get returns the value for (subID, key), or ErrNotFound.
func (m *Memory) Get(subID int64, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[subKey(subID)+"/"+key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set writes the value for (subID, key).
func (m *Memory) Set(subID int64, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSets {
		return errors.New("persistence failure injected")
	}
	m.values[subKey(subID)+"/"+key] = value
	return nil
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*Memory)(nil)
)
