package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// SectionIDNavigation is the identifier for the navigation policy section
const SectionIDNavigation = "navigation_policy"

// NavigationPolicySection lists URL patterns pages may or may not visit.
//
// Patterns are globs. Host patterns ("*.example.com") match the host name;
// patterns containing "://" match the whole URL. Blocked patterns win over
// allowed ones, and an empty allow list permits every host not blocked.
type NavigationPolicySection struct {
	allowed []string
	blocked []string
	mu      sync.RWMutex
}

// NewNavigationPolicySection creates a policy section. By default nothing is
// restricted beyond local network metadata endpoints.
func NewNavigationPolicySection() *NavigationPolicySection {
	s := &NavigationPolicySection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *NavigationPolicySection) ID() string {
	return SectionIDNavigation
}

// Title returns the section title.
func (s *NavigationPolicySection) Title() string {
	return "Navigation Policy"
}

// Description returns the section description.
func (s *NavigationPolicySection) Description() string {
	return "URL patterns browser pages are allowed or forbidden to navigate to"
}

// Data returns the current configuration data.
func (s *NavigationPolicySection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"allowed": toInterfaces(s.allowed),
		"blocked": toInterfaces(s.blocked),
	}
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// SetData updates the configuration from the provided data. A missing key
// keeps the current list.
func (s *NavigationPolicySection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	allowed, blocked := s.allowed, s.blocked
	if value, ok := data["allowed"]; ok {
		list, err := stringSliceValue("allowed", value)
		if err != nil {
			return err
		}
		allowed = list
	}
	if value, ok := data["blocked"]; ok {
		list, err := stringSliceValue("blocked", value)
		if err != nil {
			return err
		}
		blocked = list
	}

	s.allowed, s.blocked = allowed, blocked
	return nil
}

// Validate checks that every pattern is a non-empty, compilable glob.
func (s *NavigationPolicySection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for name, list := range map[string][]string{"allowed": s.allowed, "blocked": s.blocked} {
		for i, pattern := range list {
			if strings.TrimSpace(pattern) == "" {
				return fmt.Errorf("%s pattern at index %d is empty", name, i)
			}
			if _, err := glob.Compile(pattern); err != nil {
				return fmt.Errorf("%s pattern '%s' is invalid: %w", name, pattern, err)
			}
		}
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *NavigationPolicySection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowed = nil
	s.blocked = []string{"169.254.169.254", "metadata.google.internal"}
}

// Allowed returns a copy of the allowed patterns.
func (s *NavigationPolicySection) Allowed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.allowed...)
}

// Blocked returns a copy of the blocked patterns.
func (s *NavigationPolicySection) Blocked() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.blocked...)
}

// AddPattern appends a pattern to the allowed list, or to the blocked list
// when block is set.
func (s *NavigationPolicySection) AddPattern(pattern string, block bool) error {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return fmt.Errorf("pattern cannot be empty")
	}
	if _, err := glob.Compile(pattern); err != nil {
		return fmt.Errorf("pattern '%s' is invalid: %w", pattern, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := &s.allowed
	if block {
		list = &s.blocked
	}
	for _, existing := range *list {
		if existing == pattern {
			return fmt.Errorf("pattern '%s' already exists", pattern)
		}
	}
	*list = append(*list, pattern)
	return nil
}

// RemovePattern removes a pattern from whichever list holds it and reports
// whether it was found.
func (s *NavigationPolicySection) RemovePattern(pattern string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, list := range []*[]string{&s.allowed, &s.blocked} {
		for i, existing := range *list {
			if existing == pattern {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return true
			}
		}
	}
	return false
}
