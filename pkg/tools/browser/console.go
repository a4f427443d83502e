package browser

import (
	"context"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// DefaultConsoleBufferSize is the number of console entries kept per page.
const DefaultConsoleBufferSize = 200

// ConsoleEntry is one console message emitted by a page.
type ConsoleEntry struct {
	Type string    `json:"type"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

type pageKey struct {
	sessionID string
	pageID    string
}

// consoleBuffer is a fixed-size ring of entries.
type consoleBuffer struct {
	entries []ConsoleEntry
	start   int
	dropped int
}

func (b *consoleBuffer) push(entry ConsoleEntry, limit int) {
	if len(b.entries) < limit {
		b.entries = append(b.entries, entry)
		return
	}
	b.entries[b.start] = entry
	b.start = (b.start + 1) % limit
	b.dropped++
}

func (b *consoleBuffer) list() []ConsoleEntry {
	out := make([]ConsoleEntry, 0, len(b.entries))
	out = append(out, b.entries[b.start:]...)
	out = append(out, b.entries[:b.start]...)
	return out
}

// ConsoleCapture records console output of pages. One instance is created at
// process start and attached to the SessionManager through a page hook.
// Capture for a page stops when the page closes; capture for a whole session
// stops when the session is released.
type ConsoleCapture struct {
	mu      sync.Mutex
	limit   int
	buffers map[pageKey]*consoleBuffer
	now     func() time.Time
}

// NewConsoleCapture creates a capture service keeping up to limit entries
// per page. A non-positive limit uses DefaultConsoleBufferSize.
func NewConsoleCapture(limit int) *ConsoleCapture {
	if limit <= 0 {
		limit = DefaultConsoleBufferSize
	}
	return &ConsoleCapture{
		limit:   limit,
		buffers: make(map[pageKey]*consoleBuffer),
		now:     time.Now,
	}
}

// Attach starts capturing a page's console. It has the PageHook signature.
func (c *ConsoleCapture) Attach(sessionID, pageID string, page playwright.Page) {
	key := pageKey{sessionID, pageID}

	c.mu.Lock()
	c.buffers[key] = &consoleBuffer{}
	c.mu.Unlock()

	page.OnConsole(func(msg playwright.ConsoleMessage) {
		c.Record(sessionID, pageID, msg.Type(), msg.Text())
	})
	page.OnClose(func(playwright.Page) {
		c.DetachPage(sessionID, pageID)
	})
}

// Record stores one entry. Entries for pages that are not attached are
// dropped.
func (c *ConsoleCapture) Record(sessionID, pageID, typ, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, ok := c.buffers[pageKey{sessionID, pageID}]
	if !ok {
		return
	}
	buf.push(ConsoleEntry{Type: typ, Text: text, Time: c.now()}, c.limit)
}

// Entries returns a page's captured entries, oldest first, and the number of
// entries dropped because the buffer was full. With clear set the buffer is
// emptied afterwards.
func (c *ConsoleCapture) Entries(sessionID, pageID string, clear bool) ([]ConsoleEntry, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, ok := c.buffers[pageKey{sessionID, pageID}]
	if !ok {
		return nil, 0
	}
	entries, dropped := buf.list(), buf.dropped
	if clear {
		*buf = consoleBuffer{}
	}
	return entries, dropped
}

// DetachPage stops capture for one page and discards its entries.
func (c *ConsoleCapture) DetachPage(sessionID, pageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.buffers, pageKey{sessionID, pageID})
}

// DetachSession stops capture for every page of a session. It has the
// CloseHook signature.
func (c *ConsoleCapture) DetachSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.buffers {
		if key.sessionID == sessionID {
			delete(c.buffers, key)
		}
	}
}

// ReleaseSession is DetachSession with the CleanupFunc signature, for use as
// the cleanup sweep callback.
func (c *ConsoleCapture) ReleaseSession(ctx context.Context, sessionID string) error {
	c.DetachSession(sessionID)
	return nil
}

// Attached returns the number of pages being captured.
func (c *ConsoleCapture) Attached() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffers)
}
