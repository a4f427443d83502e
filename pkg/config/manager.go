// Package config provides sectioned, file-backed configuration for browserkit.
//
// Each concern (browser limits, navigation policy) is a Section that knows how
// to convert itself to and from a generic map. A Manager binds sections to a
// Store, which persists all sections in a single JSON or YAML document.
package config

import (
	"fmt"
	"sync"
)

// Section is one independently validated block of configuration.
type Section interface {
	// ID returns the key the section is stored under
	ID() string

	// Title returns a short human-readable name
	Title() string

	// Description explains what the section configures
	Description() string

	// Data returns the section as a generic map
	Data() map[string]interface{}

	// SetData updates the section from a generic map. Unknown keys are ignored.
	SetData(data map[string]interface{}) error

	// Validate checks the current values
	Validate() error

	// Reset restores defaults
	Reset()
}

// Manager coordinates sections and their store.
type Manager struct {
	store    Store
	sections map[string]Section
	order    []string
	mu       sync.RWMutex
}

// NewManager creates a manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		sections: make(map[string]Section),
	}
}

// RegisterSection adds a section. Section IDs must be unique.
func (m *Manager) RegisterSection(section Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := section.ID()
	if _, exists := m.sections[id]; exists {
		return fmt.Errorf("section %q is already registered", id)
	}
	m.sections[id] = section
	m.order = append(m.order, id)
	return nil
}

// GetSection returns a registered section.
func (m *Manager) GetSection(id string) (Section, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	section, ok := m.sections[id]
	return section, ok
}

// GetSections returns all sections in registration order.
func (m *Manager) GetSections() []Section {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sections := make([]Section, 0, len(m.order))
	for _, id := range m.order {
		sections = append(sections, m.sections[id])
	}
	return sections
}

// LoadAll reloads the store and applies its data to every section, then
// validates each section.
func (m *Manager) LoadAll() error {
	if err := m.store.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, section := range m.GetSections() {
		data, err := m.store.GetSection(section.ID())
		if err != nil {
			return fmt.Errorf("failed to read section %s: %w", section.ID(), err)
		}
		if len(data) == 0 {
			continue
		}
		if err := section.SetData(data); err != nil {
			return fmt.Errorf("invalid section %s: %w", section.ID(), err)
		}
		if err := section.Validate(); err != nil {
			return fmt.Errorf("invalid section %s: %w", section.ID(), err)
		}
	}
	return nil
}

// SaveAll validates every section and writes them to the store.
func (m *Manager) SaveAll() error {
	sections := m.GetSections()
	for _, section := range sections {
		if err := section.Validate(); err != nil {
			return fmt.Errorf("invalid section %s: %w", section.ID(), err)
		}
	}

	for _, section := range sections {
		if err := m.store.SetSection(section.ID(), section.Data()); err != nil {
			return fmt.Errorf("failed to store section %s: %w", section.ID(), err)
		}
	}
	return m.store.Save()
}

// ResetAll restores defaults on every section.
func (m *Manager) ResetAll() {
	for _, section := range m.GetSections() {
		section.Reset()
	}
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}
