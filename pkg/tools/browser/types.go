package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// BrowserType identifies the engine variant a session runs on.
type BrowserType string

const (
	Chromium BrowserType = "chromium"
	Firefox  BrowserType = "firefox"
	WebKit   BrowserType = "webkit"
)

// ParseBrowserType validates a browser type name. An empty name means Chromium.
func ParseBrowserType(name string) (BrowserType, error) {
	switch BrowserType(name) {
	case "":
		return Chromium, nil
	case Chromium, Firefox, WebKit:
		return BrowserType(name), nil
	default:
		return "", fmt.Errorf("unsupported browser type %q (expected chromium, firefox or webkit)", name)
	}
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// LaunchOptions configures a new browser session.
type LaunchOptions struct {
	// BrowserType selects the engine (default chromium)
	BrowserType BrowserType

	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport overrides the default viewport size
	Viewport *Viewport

	// UserAgent overrides the engine's user agent
	UserAgent string

	// Timeout sets the default timeout for page operations (in milliseconds)
	Timeout float64
}

// LaunchResult holds the handles produced by a Launcher. Ownership passes to
// the session created from it.
type LaunchResult struct {
	Browser playwright.Browser
	Context playwright.BrowserContext
}

// ManagerConfig configures a SessionManager.
type ManagerConfig struct {
	// MaxConcurrentSessions bounds the number of live sessions
	MaxConcurrentSessions int

	// MaxSessionsPerMinute bounds session launches in a trailing minute
	MaxSessionsPerMinute int

	// IdleTimeout is the inactivity after which a session may be reclaimed
	IdleTimeout time.Duration

	// CleanupInterval is the period of the background sweep
	CleanupInterval time.Duration

	// DefaultTimeout is applied to new pages (in milliseconds)
	DefaultTimeout float64
}

// withDefaults fills zero values.
func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.MaxConcurrentSessions <= 0 {
		c.MaxConcurrentSessions = DefaultMaxSessions
	}
	if c.MaxSessionsPerMinute <= 0 {
		c.MaxSessionsPerMinute = DefaultMaxSessionsPerMinute
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	return c
}

// SessionInfo is a read-only snapshot of a session.
type SessionInfo struct {
	ID           string      `json:"id"`
	BrowserType  BrowserType `json:"browser_type"`
	Headless     bool        `json:"headless"`
	UserAgent    string      `json:"user_agent,omitempty"`
	Viewport     *Viewport   `json:"viewport,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	LastActivity time.Time   `json:"last_activity"`
	ActivePageID string      `json:"active_page_id,omitempty"`
	PageCount    int         `json:"page_count"`
}

// SessionStatus extends SessionInfo with the idle duration at call time.
type SessionStatus struct {
	SessionInfo
	IdleMs int64 `json:"idle_ms"`
}

// Status is a point-in-time view of the manager. Utilization is
// ActiveSessions / MaxConcurrentSessions.
type Status struct {
	Sessions              []SessionStatus `json:"sessions"`
	ActiveSessions        int             `json:"active_sessions"`
	MaxConcurrentSessions int             `json:"max_concurrent_sessions"`
	Utilization           float64         `json:"utilization"`
	RateRemaining         int             `json:"rate_remaining"`
	RateResetMs           int64           `json:"rate_reset_ms"`
	PendingLaunches       int             `json:"pending_launches"`
	Cleaning              int             `json:"cleaning"`
	IdleTimeoutMs         int64           `json:"idle_timeout_ms"`
}

// CleanupResult reports the outcome of one sweep.
type CleanupResult struct {
	Cleaned int `json:"cleaned"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// CleanupFunc runs before a session's engine handles are closed.
type CleanupFunc func(ctx context.Context, sessionID string) error

// PageSummary describes one page for reporting. URL and Title fall back to
// placeholders when the page can no longer be read.
type PageSummary struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle", "commit"
	WaitUntil string

	// Timeout in milliseconds (0 means default)
	Timeout float64
}

// ExtractFormat specifies the format for content extraction.
type ExtractFormat string

const (
	// FormatMarkdown extracts content as Markdown (default)
	FormatMarkdown ExtractFormat = "markdown"

	// FormatText extracts plain text only
	FormatText ExtractFormat = "text"

	// FormatStructured extracts content as structured JSON
	FormatStructured ExtractFormat = "structured"

	// FormatHTML extracts sanitized HTML
	FormatHTML ExtractFormat = "html"
)

// ExtractOptions configures content extraction.
type ExtractOptions struct {
	Format    ExtractFormat
	Selector  string
	MaxLength int
}

// StructuredContent represents content extracted in structured format.
type StructuredContent struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Headings []string `json:"headings"`
	Links    []Link   `json:"links"`
	Body     string   `json:"body"`
}

// Link represents a hyperlink with text and URL.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// ClickOptions configures element clicking behavior.
type ClickOptions struct {
	Selector   string
	Button     string
	ClickCount int
	Timeout    float64
}

// FillOptions configures form input filling.
type FillOptions struct {
	Selector string
	Value    string
	Timeout  float64
}

// WaitOptions configures waiting behavior.
type WaitOptions struct {
	// Selector to wait for
	Selector string

	// State to wait for: "attached", "detached", "visible", "hidden"
	State string

	// Timeout in milliseconds
	Timeout float64
}

// Default values for various operations
const (
	DefaultTimeout              = 30000.0 // 30 seconds in milliseconds
	DefaultMaxLength            = 10000   // 10,000 characters
	DefaultViewportWidth        = 1280
	DefaultViewportHeight       = 720
	DefaultMaxSessions          = 5
	DefaultMaxSessionsPerMinute = 10
	DefaultIdleTimeout          = 5 * time.Minute
	DefaultCleanupInterval      = time.Minute

	placeholderURL   = "about:blank"
	placeholderTitle = "(unavailable)"
)
