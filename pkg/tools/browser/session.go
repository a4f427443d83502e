package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session is one live browser process plus its default browsing context.
//
// The engine handles are owned by the session and never change after
// creation. Page bookkeeping and the activity timestamp are mutable and only
// touched under the SessionManager lock; read them through the manager.
type Session struct {
	// ID is the unique identifier for this session, never reused
	ID string

	// BrowserType is the engine variant
	BrowserType BrowserType

	// Browser is the Playwright browser instance
	Browser playwright.Browser

	// Context is the browser context (isolated session)
	Context playwright.BrowserContext

	// Headless indicates if the browser is running in headless mode
	Headless bool

	// UserAgent and Viewport record the overrides used at launch
	UserAgent string
	Viewport  *Viewport

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time

	// Timeout is the default timeout applied to the session's pages (ms)
	Timeout float64

	lastActivity time.Time
	pages        *PageRegistry
}

func newSession(id string, result *LaunchResult, opts LaunchOptions, now time.Time) *Session {
	return &Session{
		ID:           id,
		BrowserType:  opts.BrowserType,
		Browser:      result.Browser,
		Context:      result.Context,
		Headless:     opts.Headless,
		UserAgent:    opts.UserAgent,
		Viewport:     opts.Viewport,
		CreatedAt:    now,
		Timeout:      opts.Timeout,
		lastActivity: now,
		pages:        NewPageRegistry(),
	}
}

// info snapshots the session. Caller holds the manager lock.
func (s *Session) info() SessionInfo {
	return SessionInfo{
		ID:           s.ID,
		BrowserType:  s.BrowserType,
		Headless:     s.Headless,
		UserAgent:    s.UserAgent,
		Viewport:     s.Viewport,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.lastActivity,
		ActivePageID: s.pages.ActiveID(),
		PageCount:    s.pages.Len(),
	}
}

// close releases the engine resources. Closing the context closes its pages;
// the browser is closed even if the context close fails.
func (s *Session) close() error {
	var errs []error
	if s.Context != nil {
		if err := s.Context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
	}
	if s.Browser != nil {
		if err := s.Browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	return errors.Join(errs...)
}
