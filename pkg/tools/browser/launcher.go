package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Launcher starts browser engines. Launching is expensive, so admission
// checks always run before Launch is called.
type Launcher interface {
	// Launch starts a browser and its default context
	Launch(ctx context.Context, opts LaunchOptions) (*LaunchResult, error)

	// Stop releases the engine driver
	Stop() error
}

// PlaywrightLauncher launches browsers through the Playwright driver. The
// driver is installed and started on first use.
type PlaywrightLauncher struct {
	mu         sync.Mutex
	playwright *playwright.Playwright
	install    bool
}

// NewPlaywrightLauncher creates a launcher. When install is true the driver
// and browsers are downloaded if missing.
func NewPlaywrightLauncher(install bool) *PlaywrightLauncher {
	return &PlaywrightLauncher{install: install}
}

// start initializes the Playwright instance. Caller holds l.mu.
func (l *PlaywrightLauncher) start() error {
	if l.playwright != nil {
		return nil
	}

	// Keep driver output off stdout, which carries tool results
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if l.install {
		if err := playwright.Install(opts); err != nil {
			return fmt.Errorf("could not install driver: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	l.playwright = pw
	return nil
}

// Launch starts a browser of the requested type and opens its context.
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (*LaunchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	if err := l.start(); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	pw := l.playwright
	l.mu.Unlock()

	var browserType playwright.BrowserType
	switch opts.BrowserType {
	case Firefox:
		browserType = pw.Firefox
	case WebKit:
		browserType = pw.WebKit
	default:
		browserType = pw.Chromium
	}

	headless := opts.Headless
	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", opts.BrowserType, err)
	}

	contextOpts := playwright.BrowserNewContextOptions{}
	if opts.Viewport != nil {
		contextOpts.Viewport = &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		}
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}

	browserContext, err := browser.NewContext(contextOpts)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	return &LaunchResult{Browser: browser, Context: browserContext}, nil
}

// Stop shuts the Playwright driver down. It is a no-op if nothing was started.
func (l *PlaywrightLauncher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.playwright == nil {
		return nil
	}
	err := l.playwright.Stop()
	l.playwright = nil
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
