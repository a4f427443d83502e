package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// fakePage implements the parts of playwright.Page the manager and tools use.
// Calling any other method panics through the nil embedded interface.
type fakePage struct {
	playwright.Page

	mu          sync.Mutex
	url         string
	title       string
	titleErr    error
	panicOnRead bool
	closed      bool
	closeErr    error
	timeout     float64
	onClose     []func(playwright.Page)
	onConsole   []func(playwright.ConsoleMessage)
	evalResult  interface{}
	evalErr     error
	gotoErr     error
}

func newFakePage(url, title string) *fakePage {
	return &fakePage{url: url, title: title}
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panicOnRead {
		panic("page torn down")
	}
	return p.url
}

func (p *fakePage) Title() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panicOnRead {
		panic("page torn down")
	}
	return p.title, p.titleErr
}

func (p *fakePage) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePage) SetDefaultTimeout(timeout float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = timeout
}

func (p *fakePage) Close(options ...playwright.PageCloseOptions) error {
	p.mu.Lock()
	if p.closeErr != nil {
		p.mu.Unlock()
		return p.closeErr
	}
	p.closed = true
	handlers := append([]func(playwright.Page){}, p.onClose...)
	p.mu.Unlock()

	for _, fn := range handlers {
		fn(p)
	}
	return nil
}

func (p *fakePage) OnClose(fn func(playwright.Page)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClose = append(p.onClose, fn)
}

func (p *fakePage) OnConsole(fn func(playwright.ConsoleMessage)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onConsole = append(p.onConsole, fn)
}

func (p *fakePage) Evaluate(expression string, arg ...interface{}) (interface{}, error) {
	return p.evalResult, p.evalErr
}

func (p *fakePage) Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error) {
	if p.gotoErr != nil {
		return nil, p.gotoErr
	}
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
	return nil, nil
}

func (p *fakePage) Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error) {
	return []byte("\x89PNG fake"), nil
}

// emitConsole delivers a console message to registered handlers.
func (p *fakePage) emitConsole(typ, text string) {
	p.mu.Lock()
	handlers := append([]func(playwright.ConsoleMessage){}, p.onConsole...)
	p.mu.Unlock()
	for _, fn := range handlers {
		fn(&fakeConsoleMessage{typ: typ, text: text})
	}
}

type fakeConsoleMessage struct {
	playwright.ConsoleMessage
	typ  string
	text string
}

func (m *fakeConsoleMessage) Type() string { return m.typ }
func (m *fakeConsoleMessage) Text() string { return m.text }

// fakeContext hands out fakePages and can be made to fail on close.
type fakeContext struct {
	playwright.BrowserContext

	mu         sync.Mutex
	pages      []*fakePage
	newPageErr error
	closeErr   error
	closed     int
}

func (c *fakeContext) NewPage() (playwright.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.newPageErr != nil {
		return nil, c.newPageErr
	}
	page := newFakePage("about:blank", "")
	c.pages = append(c.pages, page)
	return page, nil
}

func (c *fakeContext) Close(options ...playwright.BrowserContextCloseOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return c.closeErr
}

func (c *fakeContext) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeBrowser struct {
	playwright.Browser

	mu       sync.Mutex
	closeErr error
	closed   int
}

func (b *fakeBrowser) Close(options ...playwright.BrowserCloseOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return b.closeErr
}

func (b *fakeBrowser) closeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// fakeLauncher launches fake browsers. delay holds each launch open so
// concurrent starts overlap.
type fakeLauncher struct {
	mu        sync.Mutex
	delay     time.Duration
	launchErr error
	launched  []*LaunchResult
	stopped   bool
}

func (l *fakeLauncher) Launch(ctx context.Context, opts LaunchOptions) (*LaunchResult, error) {
	if l.delay > 0 {
		select {
		case <-time.After(l.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	result := &LaunchResult{Browser: &fakeBrowser{}, Context: &fakeContext{}}
	l.launched = append(l.launched, result)
	return result, nil
}

func (l *fakeLauncher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	return nil
}

// launcherFunc adapts a function to Launcher.
type launcherFunc func(ctx context.Context, opts LaunchOptions) (*LaunchResult, error)

func (f launcherFunc) Launch(ctx context.Context, opts LaunchOptions) (*LaunchResult, error) {
	return f(ctx, opts)
}

func (f launcherFunc) Stop() error { return nil }

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestManager returns a manager on a fake clock with a fake launcher.
func newTestManager(cfg ManagerConfig) (*SessionManager, *fakeLauncher, *fakeClock) {
	launcher := &fakeLauncher{}
	clock := newFakeClock()
	manager := NewSessionManager(cfg, launcher, nil)
	manager.SetClock(clock.Now)
	return manager, launcher, clock
}

// addFakeSession registers a session backed by fake handles.
func addFakeSession(manager *SessionManager) (string, *fakeBrowser, *fakeContext) {
	browser := &fakeBrowser{}
	bctx := &fakeContext{}
	id := manager.CreateSession(&LaunchResult{Browser: browser, Context: bctx}, LaunchOptions{Headless: true})
	return id, browser, bctx
}

var errEngine = errors.New("engine exploded")
