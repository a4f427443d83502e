package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SectionIDBrowser is the identifier for the browser settings section
	SectionIDBrowser = "browser"

	defaultMaxConcurrentSessions = 5
	defaultMaxSessionsPerMinute  = 10
	defaultIdleTimeout           = 5 * time.Minute
	defaultCleanupInterval       = time.Minute
	defaultHeadless              = true
	defaultBrowserType           = "chromium"
	defaultActionTimeout         = 30 * time.Second
	defaultConsoleBufferSize     = 200
)

// BrowserSection holds session limits and launch defaults.
type BrowserSection struct {
	MaxConcurrentSessions int           `json:"max_concurrent_sessions"`
	MaxSessionsPerMinute  int           `json:"max_sessions_per_minute"`
	IdleTimeout           time.Duration `json:"idle_timeout"`
	CleanupInterval       time.Duration `json:"cleanup_interval"`
	Headless              bool          `json:"headless"`
	BrowserType           string        `json:"browser_type"`
	DefaultTimeout        time.Duration `json:"default_timeout"`
	ConsoleBufferSize     int           `json:"console_buffer_size"`
	ScreenshotDir         string        `json:"screenshot_dir"`
	mu                    sync.RWMutex
}

// NewBrowserSection creates a browser section with default settings.
func NewBrowserSection() *BrowserSection {
	s := &BrowserSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

// Title returns the section title.
func (s *BrowserSection) Title() string {
	return "Browser Sessions"
}

// Description returns the section description.
func (s *BrowserSection) Description() string {
	return "Concurrency cap, launch rate limit, idle reclamation and launch defaults for browser sessions."
}

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"max_concurrent_sessions": s.MaxConcurrentSessions,
		"max_sessions_per_minute": s.MaxSessionsPerMinute,
		"idle_timeout":            s.IdleTimeout.String(),
		"cleanup_interval":        s.CleanupInterval.String(),
		"headless":                s.Headless,
		"browser_type":            s.BrowserType,
		"default_timeout":         s.DefaultTimeout.String(),
		"console_buffer_size":     s.ConsoleBufferSize,
		"screenshot_dir":          s.ScreenshotDir,
	}
}

// SetData updates the configuration from the provided data. On error the
// section is left unchanged.
func (s *BrowserSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.values()
	for key, value := range data {
		var err error
		switch key {
		case "max_concurrent_sessions":
			next.MaxConcurrentSessions, err = intValue(key, value)
		case "max_sessions_per_minute":
			next.MaxSessionsPerMinute, err = intValue(key, value)
		case "idle_timeout":
			next.IdleTimeout, err = durationValue(key, value)
		case "cleanup_interval":
			next.CleanupInterval, err = durationValue(key, value)
		case "headless":
			next.Headless, err = boolValue(key, value)
		case "browser_type":
			next.BrowserType, err = stringValue(key, value)
		case "default_timeout":
			next.DefaultTimeout, err = durationValue(key, value)
		case "console_buffer_size":
			next.ConsoleBufferSize, err = intValue(key, value)
		case "screenshot_dir":
			next.ScreenshotDir, err = stringValue(key, value)
		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
		if err != nil {
			return err
		}
	}

	s.apply(next)
	return nil
}

// BrowserSettings is a lock-free copy of a BrowserSection.
type BrowserSettings struct {
	MaxConcurrentSessions int
	MaxSessionsPerMinute  int
	IdleTimeout           time.Duration
	CleanupInterval       time.Duration
	Headless              bool
	BrowserType           string
	DefaultTimeout        time.Duration
	ConsoleBufferSize     int
	ScreenshotDir         string
}

// Settings returns a snapshot of the current values.
func (s *BrowserSection) Settings() BrowserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values()
}

func (s *BrowserSection) values() BrowserSettings {
	return BrowserSettings{
		MaxConcurrentSessions: s.MaxConcurrentSessions,
		MaxSessionsPerMinute:  s.MaxSessionsPerMinute,
		IdleTimeout:           s.IdleTimeout,
		CleanupInterval:       s.CleanupInterval,
		Headless:              s.Headless,
		BrowserType:           s.BrowserType,
		DefaultTimeout:        s.DefaultTimeout,
		ConsoleBufferSize:     s.ConsoleBufferSize,
		ScreenshotDir:         s.ScreenshotDir,
	}
}

func (s *BrowserSection) apply(v BrowserSettings) {
	s.MaxConcurrentSessions = v.MaxConcurrentSessions
	s.MaxSessionsPerMinute = v.MaxSessionsPerMinute
	s.IdleTimeout = v.IdleTimeout
	s.CleanupInterval = v.CleanupInterval
	s.Headless = v.Headless
	s.BrowserType = v.BrowserType
	s.DefaultTimeout = v.DefaultTimeout
	s.ConsoleBufferSize = v.ConsoleBufferSize
	s.ScreenshotDir = v.ScreenshotDir
}

// Validate validates the current configuration.
func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.MaxConcurrentSessions < 1 {
		return fmt.Errorf("max_concurrent_sessions must be at least 1, got %d", s.MaxConcurrentSessions)
	}
	if s.MaxSessionsPerMinute < 1 {
		return fmt.Errorf("max_sessions_per_minute must be at least 1, got %d", s.MaxSessionsPerMinute)
	}
	if s.IdleTimeout < time.Second {
		return fmt.Errorf("idle_timeout must be at least 1s, got %v", s.IdleTimeout)
	}
	if s.CleanupInterval < time.Second {
		return fmt.Errorf("cleanup_interval must be at least 1s, got %v", s.CleanupInterval)
	}
	if s.DefaultTimeout <= 0 {
		return fmt.Errorf("default_timeout must be positive, got %v", s.DefaultTimeout)
	}
	if s.ConsoleBufferSize < 0 {
		return fmt.Errorf("console_buffer_size must not be negative, got %d", s.ConsoleBufferSize)
	}
	switch s.BrowserType {
	case "chromium", "firefox", "webkit":
	default:
		return fmt.Errorf("browser_type must be chromium, firefox or webkit, got %q", s.BrowserType)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(BrowserSettings{
		MaxConcurrentSessions: defaultMaxConcurrentSessions,
		MaxSessionsPerMinute:  defaultMaxSessionsPerMinute,
		IdleTimeout:           defaultIdleTimeout,
		CleanupInterval:       defaultCleanupInterval,
		Headless:              defaultHeadless,
		BrowserType:           defaultBrowserType,
		DefaultTimeout:        defaultActionTimeout,
		ConsoleBufferSize:     defaultConsoleBufferSize,
	})
}
