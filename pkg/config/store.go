package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store provides persistence for configuration data.
type Store interface {
	// Load loads the configuration from disk
	Load() error

	// Save saves the configuration to disk
	Save() error

	// GetSection retrieves configuration data for a specific section
	GetSection(sectionID string) (map[string]interface{}, error)

	// SetSection stores configuration data for a specific section
	SetSection(sectionID string, data map[string]interface{}) error

	// GetAll retrieves all configuration data
	GetAll() (map[string]map[string]interface{}, error)
}

// Format is the on-disk encoding of a FileStore.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// formatForPath picks the encoding from the file extension; anything other
// than .yaml or .yml is JSON.
func formatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// document is the file layout shared by both encodings.
type document struct {
	Version  string                            `json:"version" yaml:"version"`
	Sections map[string]map[string]interface{} `json:"sections" yaml:"sections"`
}

// FileStore implements Store using a JSON or YAML file.
type FileStore struct {
	path     string
	format   Format
	data     map[string]map[string]interface{}
	mu       sync.RWMutex
	version  string
	modified bool
}

// DefaultPath returns ~/.browserkit/config.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".browserkit", "config.json"), nil
}

// NewFileStore creates a file-based configuration store and loads it if the
// file exists. If path is empty, DefaultPath is used.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	store := &FileStore{
		path:    path,
		format:  formatForPath(path),
		data:    make(map[string]map[string]interface{}),
		version: "1.0",
	}
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return store, nil
}

// Load loads the configuration from disk. A missing file yields an empty
// configuration.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = make(map[string]map[string]interface{})
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var doc document
	if len(bytes.TrimSpace(raw)) > 0 {
		switch s.format {
		case FormatYAML:
			err = yaml.Unmarshal(raw, &doc)
		default:
			err = json.Unmarshal(raw, &doc)
		}
		if err != nil {
			return fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if doc.Version != "" {
		s.version = doc.Version
	}
	s.data = doc.Sections
	if s.data == nil {
		s.data = make(map[string]map[string]interface{})
	}
	s.modified = false
	return nil
}

// Save writes the configuration atomically through a temp file.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	doc := document{Version: s.version, Sections: s.data}
	var (
		raw []byte
		err error
	)
	switch s.format {
	case FormatYAML:
		raw, err = yaml.Marshal(doc)
	default:
		raw, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, raw, 0600); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.modified = false
	return nil
}

// GetSection returns a copy of a section's data; a missing section yields an
// empty map.
func (s *FileStore) GetSection(sectionID string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySection(s.data[sectionID]), nil
}

// SetSection stores a copy of a section's data.
func (s *FileStore) SetSection(sectionID string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sectionID] = copySection(data)
	s.modified = true
	return nil
}

// GetAll returns a deep copy of all sections.
func (s *FileStore) GetAll() (map[string]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make(map[string]map[string]interface{}, len(s.data))
	for id, data := range s.data {
		all[id] = copySection(data)
	}
	return all, nil
}

func copySection(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// IsModified returns true if the store has unsaved changes.
func (s *FileStore) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}

// Format returns the file encoding.
func (s *FileStore) Format() Format {
	return s.format
}
