package browser

import (
	"container/list"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/browserkit/pkg/errors"
)

// pageEntry is one page owned by a session.
type pageEntry struct {
	id        string
	page      playwright.Page
	createdAt time.Time
	elem      *list.Element
}

// PageRegistry maps page identifiers to page handles within one session and
// tracks which page is active.
//
// Lookup, insertion and removal are O(1); order is kept in a linked list
// whose elements are indexed by the page map.
//
// PageRegistry has no locking of its own. The owning SessionManager guards
// every access.
type PageRegistry struct {
	pages  map[string]*pageEntry
	order  *list.List
	active string
	nextID int
	now    func() time.Time
}

// NewPageRegistry creates an empty registry.
func NewPageRegistry() *PageRegistry {
	return &PageRegistry{
		pages: make(map[string]*pageEntry),
		order: list.New(),
		now:   time.Now,
	}
}

// NextID returns a fresh page identifier ("page-1", "page-2", ...). Identifiers
// are never reused within a registry.
func (r *PageRegistry) NextID() string {
	for {
		r.nextID++
		id := fmt.Sprintf("page-%d", r.nextID)
		if _, taken := r.pages[id]; !taken {
			return id
		}
	}
}

// Add inserts a page. If setActive is true the page becomes active even when
// other pages exist. Re-adding an id replaces its handle in place.
func (r *PageRegistry) Add(id string, page playwright.Page, setActive bool) {
	if entry, exists := r.pages[id]; exists {
		entry.page = page
	} else {
		r.pages[id] = &pageEntry{id: id, page: page, createdAt: r.now(), elem: r.order.PushBack(id)}
	}
	if setActive || r.active == "" {
		r.active = id
	}
}

// Get returns the page handle for id.
func (r *PageRegistry) Get(id string) (playwright.Page, error) {
	entry, ok := r.pages[id]
	if !ok {
		return nil, errors.PageNotFound(id)
	}
	return entry.page, nil
}

// Has reports whether id is registered.
func (r *PageRegistry) Has(id string) bool {
	_, ok := r.pages[id]
	return ok
}

// Remove deletes a page and reports whether it existed. Removing the active
// page promotes the first remaining page in insertion order, or clears the
// active page when none remain.
func (r *PageRegistry) Remove(id string) bool {
	entry, ok := r.pages[id]
	if !ok {
		return false
	}
	delete(r.pages, id)
	r.order.Remove(entry.elem)

	if r.active == id {
		r.active = ""
		if front := r.order.Front(); front != nil {
			r.active = front.Value.(string)
		}
	}
	return true
}

// SetActive makes id the active page.
func (r *PageRegistry) SetActive(id string) error {
	if _, ok := r.pages[id]; !ok {
		return errors.PageNotFound(id)
	}
	r.active = id
	return nil
}

// ActiveID returns the active page id, or "" when the registry is empty.
func (r *PageRegistry) ActiveID() string {
	return r.active
}

// IDs returns page identifiers in insertion order.
func (r *PageRegistry) IDs() []string {
	ids := make([]string, 0, r.order.Len())
	for e := r.order.Front(); e != nil; e = e.Next() {
		ids = append(ids, e.Value.(string))
	}
	return ids
}

// Len returns the number of pages.
func (r *PageRegistry) Len() int {
	return r.order.Len()
}

// Summaries reads the URL and title of every page. A page that cannot be read
// is still reported, with placeholder values.
func (r *PageRegistry) Summaries() []PageSummary {
	return summarize(r.snapshot(), r.active)
}

// snapshot copies the entries in insertion order so they can be read without
// holding the manager lock.
func (r *PageRegistry) snapshot() []pageEntry {
	entries := make([]pageEntry, 0, r.order.Len())
	for e := r.order.Front(); e != nil; e = e.Next() {
		entries = append(entries, *r.pages[e.Value.(string)])
	}
	return entries
}

func summarize(entries []pageEntry, activeID string) []PageSummary {
	summaries := make([]PageSummary, 0, len(entries))
	for _, entry := range entries {
		summaries = append(summaries, summarizePage(entry, entry.id == activeID))
	}
	return summaries
}

// summarizePage never fails. Engine handles torn down concurrently may error
// or panic on access; either way the placeholders are kept.
func summarizePage(entry pageEntry, active bool) (summary PageSummary) {
	summary = PageSummary{
		ID:        entry.id,
		URL:       placeholderURL,
		Title:     placeholderTitle,
		Active:    active,
		CreatedAt: entry.createdAt,
	}
	defer func() {
		if recover() != nil {
			summary.URL = placeholderURL
			summary.Title = placeholderTitle
		}
	}()

	if entry.page == nil || entry.page.IsClosed() {
		return summary
	}
	if url := entry.page.URL(); url != "" {
		summary.URL = url
	}
	if title, err := entry.page.Title(); err == nil {
		summary.Title = title
	}
	return summary
}
