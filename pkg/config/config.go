package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// Load creates a manager for the file at path with the default sections
// registered and loaded. An empty path uses DefaultPath.
func Load(path string) (*Manager, error) {
	store, err := NewFileStore(path)
	if err != nil {
		return nil, err
	}

	manager := NewManager(store)
	if err := manager.RegisterSection(NewBrowserSection()); err != nil {
		return nil, err
	}
	if err := manager.RegisterSection(NewNavigationPolicySection()); err != nil {
		return nil, err
	}

	if err := manager.LoadAll(); err != nil {
		return nil, err
	}
	return manager, nil
}

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	manager, err := Load(configPath)
	if err != nil {
		return err
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}
	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// Browser returns the browser section of m, or nil if it is not registered.
func (m *Manager) Browser() *BrowserSection {
	section, ok := m.GetSection(SectionIDBrowser)
	if !ok {
		return nil
	}
	browser, _ := section.(*BrowserSection)
	return browser
}

// NavigationPolicy returns the navigation section of m, or nil if it is not
// registered.
func (m *Manager) NavigationPolicy() *NavigationPolicySection {
	section, ok := m.GetSection(SectionIDNavigation)
	if !ok {
		return nil
	}
	policy, _ := section.(*NavigationPolicySection)
	return policy
}

// GetBrowser returns the browser section from global config.
// Returns nil if config is not initialized.
func GetBrowser() *BrowserSection {
	if !IsInitialized() {
		return nil
	}
	return Global().Browser()
}

// GetNavigationPolicy returns the navigation policy section from global config.
// Returns nil if config is not initialized.
func GetNavigationPolicy() *NavigationPolicySection {
	if !IsInitialized() {
		return nil
	}
	return Global().NavigationPolicy()
}
