package tools

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the tools served by a process, keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds tools in order. A name that is already registered is
// rejected and nothing after it is added.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tool := range tools {
		name := tool.Name()
		if name == "" {
			return fmt.Errorf("tool name cannot be empty")
		}
		if _, exists := r.tools[name]; exists {
			return fmt.Errorf("tool %q is already registered", name)
		}
		r.tools[name] = tool
		r.order = append(r.order, name)
	}
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.tools[name])
	}
	return list
}

// Names returns the registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}
