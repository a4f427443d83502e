package browser

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/errgroup"

	"github.com/entrhq/browserkit/pkg/errors"
	"github.com/entrhq/browserkit/pkg/logging"
	"github.com/entrhq/browserkit/pkg/ratelimit"
)

// PageHook is called after a page is opened by the manager.
type PageHook func(sessionID, pageID string, page playwright.Page)

// CloseHook is called after a session has been closed and removed.
type CloseHook func(sessionID string)

// SessionManager is the authoritative registry of live browser sessions. It
// enforces capacity and launch-rate admission, delegates page bookkeeping to
// each session's PageRegistry and reclaims idle sessions.
//
// One lock guards the session table, every page registry, the launch
// reservations and the set of sessions being cleaned. Engine I/O never runs
// under the lock, so a slow close of one session does not block operations on
// another.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cleaning map[string]struct{}
	pending  int

	config     ManagerConfig
	limiter    *ratelimit.Limiter
	launcher   Launcher
	classifier *errors.Classifier
	logger     *logging.Logger
	metrics    *Metrics
	now        func() time.Time
	newID      func() string

	pageHooks  []PageHook
	closeHooks []CloseHook
}

// NewSessionManager creates a session manager. launcher may be nil when
// sessions are only ever created from existing handles via CreateSession.
func NewSessionManager(cfg ManagerConfig, launcher Launcher, logger *logging.Logger) *SessionManager {
	cfg = cfg.withDefaults()
	return &SessionManager{
		sessions: make(map[string]*Session),
		cleaning: make(map[string]struct{}),
		config:   cfg,
		limiter: ratelimit.New(ratelimit.Config{
			MaxRequests: cfg.MaxSessionsPerMinute,
			Window:      time.Minute,
		}),
		launcher:   launcher,
		classifier: NewClassifier(),
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SetMetrics attaches a metrics recorder. It may be called while the manager
// is in use.
func (m *SessionManager) SetMetrics(metrics *Metrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = metrics
	m.metrics.setActive(len(m.sessions))
}

// recorder returns the current metrics recorder, possibly nil.
func (m *SessionManager) recorder() *Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics
}

// SetClock replaces the time source of the manager and its rate limiter.
func (m *SessionManager) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
	m.limiter.SetClock(now)
}

// Config returns the effective configuration.
func (m *SessionManager) Config() ManagerConfig {
	return m.config
}

// Classify maps an engine failure onto the error taxonomy.
func (m *SessionManager) Classify(err error) *errors.Error {
	return m.classifier.Classify(err)
}

// AddPageHook registers a hook run for every page opened through OpenPage or
// StartSession.
func (m *SessionManager) AddPageHook(hook PageHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageHooks = append(m.pageHooks, hook)
}

// AddCloseHook registers a hook run after a session is closed and removed.
func (m *SessionManager) AddCloseHook(hook CloseHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeHooks = append(m.closeHooks, hook)
}

// CheckRateLimit consumes one launch slot from the rate limiter.
func (m *SessionManager) CheckRateLimit() error {
	if err := m.limiter.CheckLimit(); err != nil {
		m.recorder().recordRejection(reasonRateLimit)
		return err
	}
	return nil
}

// CheckCapacity fails when live sessions plus launches in flight have
// reached MaxConcurrentSessions.
func (m *SessionManager) CheckCapacity() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checkCapacityLocked()
}

func (m *SessionManager) checkCapacityLocked() error {
	current := len(m.sessions) + m.pending
	if current >= m.config.MaxConcurrentSessions {
		m.metrics.recordRejection(reasonCapacity)
		return errors.CapacityExceeded(current, m.config.MaxConcurrentSessions)
	}
	return nil
}

// CreateSession registers a session for already-launched engine handles and
// returns its identifier. It performs no admission checks: callers run
// CheckRateLimit and CheckCapacity before launching.
func (m *SessionManager) CreateSession(result *LaunchResult, opts LaunchOptions) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createSessionLocked(result, opts)
}

func (m *SessionManager) createSessionLocked(result *LaunchResult, opts LaunchOptions) string {
	if opts.BrowserType == "" {
		opts.BrowserType = Chromium
	}
	if opts.Timeout <= 0 {
		opts.Timeout = m.config.DefaultTimeout
	}

	id := m.newID()
	for m.sessions[id] != nil {
		id = m.newID()
	}

	m.sessions[id] = newSession(id, result, opts, m.now())
	m.metrics.recordCreated()
	m.metrics.setActive(len(m.sessions))
	m.logger.Infof("session %s created (browser=%s headless=%t, %d/%d active)",
		id, opts.BrowserType, opts.Headless, len(m.sessions), m.config.MaxConcurrentSessions)
	return id
}

// StartSession checks admission, launches a browser, registers the session
// and opens its first page.
func (m *SessionManager) StartSession(ctx context.Context, opts LaunchOptions) (string, error) {
	if m.launcher == nil {
		return "", errors.New(errors.CodeInternal, "no browser launcher configured")
	}
	if err := m.CheckRateLimit(); err != nil {
		return "", err
	}

	// Reserve a slot so concurrent starts cannot overshoot capacity while
	// the launch is in flight.
	m.mu.Lock()
	if err := m.checkCapacityLocked(); err != nil {
		m.mu.Unlock()
		return "", err
	}
	m.pending++
	m.mu.Unlock()

	start := m.now()
	result, err := m.launcher.Launch(ctx, opts)

	m.mu.Lock()
	m.pending--
	if err != nil {
		m.mu.Unlock()
		classified := m.Classify(err)
		if classified.Code == errors.CodeInternal {
			classified = errors.Wrap(err, errors.CodeBrowserLaunchFailed, err.Error())
		}
		m.logger.Errorf("browser launch failed: %v", classified)
		return "", classified
	}
	id := m.createSessionLocked(result, opts)
	m.mu.Unlock()

	if _, err := m.OpenPage(ctx, id); err != nil {
		m.logger.Errorf("session %s: failed to open first page: %v", id, err)
		_ = m.CloseSession(ctx, id)
		return "", err
	}

	m.logger.Infof("session %s ready in %s", id, m.now().Sub(start).Round(time.Millisecond))
	return id, nil
}

// GetSession returns the session for id.
func (m *SessionManager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getSessionLocked(id)
}

func (m *SessionManager) getSessionLocked(id string) (*Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, errors.SessionNotFound(id)
	}
	return session, nil
}

// HasSession reports whether id is registered.
func (m *SessionManager) HasSession(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[id]
	return ok
}

// UpdateActivity bumps the last-activity timestamp. Unknown ids are ignored.
func (m *SessionManager) UpdateActivity(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[id]; ok {
		if now := m.now(); now.After(session.lastActivity) {
			session.lastActivity = now
		}
	}
}

// DeleteSession removes a session from the table without closing its engine
// handles, and reports whether it was present.
func (m *SessionManager) DeleteSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteSessionLocked(id)
}

func (m *SessionManager) deleteSessionLocked(id string) bool {
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	m.metrics.setActive(len(m.sessions))
	return true
}

// AddPage registers a page with a session.
func (m *SessionManager) AddPage(sessionID, pageID string, page playwright.Page, setActive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, err := m.getSessionLocked(sessionID)
	if err != nil {
		return err
	}
	session.pages.Add(pageID, page, setActive)
	return nil
}

// GetPage returns a page handle. An empty pageID selects the active page.
func (m *SessionManager) GetPage(sessionID, pageID string) (playwright.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, err := m.getSessionLocked(sessionID)
	if err != nil {
		return nil, err
	}
	if pageID == "" {
		pageID = session.pages.ActiveID()
		if pageID == "" {
			return nil, errors.Newf(errors.CodePageNotFound, "session %q has no open pages", sessionID).
				WithDetail("session_id", sessionID)
		}
	}
	return session.pages.Get(pageID)
}

// ResolvePage is GetPage that also returns the resolved page id.
func (m *SessionManager) ResolvePage(sessionID, pageID string) (string, playwright.Page, error) {
	m.mu.RLock()
	if pageID == "" {
		if session, ok := m.sessions[sessionID]; ok {
			pageID = session.pages.ActiveID()
		}
	}
	m.mu.RUnlock()

	page, err := m.GetPage(sessionID, pageID)
	if err != nil {
		return "", nil, err
	}
	return pageID, page, nil
}

// RemovePage removes a page from a session's registry without closing it.
func (m *SessionManager) RemovePage(sessionID, pageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, err := m.getSessionLocked(sessionID)
	if err != nil {
		return false, err
	}
	return session.pages.Remove(pageID), nil
}

// PageIDs lists a session's pages in the order they were opened.
func (m *SessionManager) PageIDs(sessionID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, err := m.getSessionLocked(sessionID)
	if err != nil {
		return nil, err
	}
	return session.pages.IDs(), nil
}

// SetActivePage makes pageID the session's active page.
func (m *SessionManager) SetActivePage(sessionID, pageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, err := m.getSessionLocked(sessionID)
	if err != nil {
		return err
	}
	return session.pages.SetActive(pageID)
}

// ActivePageID returns the session's active page id ("" if it has no pages).
func (m *SessionManager) ActivePageID(sessionID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, err := m.getSessionLocked(sessionID)
	if err != nil {
		return "", err
	}
	return session.pages.ActiveID(), nil
}

// PageSummaries reports URL and title for each page. Pages are read outside
// the lock; an unreadable page is reported with placeholders.
func (m *SessionManager) PageSummaries(sessionID string) ([]PageSummary, error) {
	m.mu.RLock()
	session, err := m.getSessionLocked(sessionID)
	if err != nil {
		m.mu.RUnlock()
		return nil, err
	}
	entries := session.pages.snapshot()
	active := session.pages.ActiveID()
	m.mu.RUnlock()

	return summarize(entries, active), nil
}

// OpenPage opens a new page in the session's context and makes it active.
func (m *SessionManager) OpenPage(ctx context.Context, sessionID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	session, err := m.GetSession(sessionID)
	if err != nil {
		return "", err
	}

	page, err := session.Context.NewPage()
	if err != nil {
		return "", m.Classify(err)
	}
	page.SetDefaultTimeout(session.Timeout)

	m.mu.Lock()
	if current, ok := m.sessions[sessionID]; !ok || current != session {
		m.mu.Unlock()
		_ = page.Close()
		return "", errors.SessionNotFound(sessionID)
	}
	pageID := session.pages.NextID()
	session.pages.Add(pageID, page, true)
	if now := m.now(); now.After(session.lastActivity) {
		session.lastActivity = now
	}
	hooks := append([]PageHook(nil), m.pageHooks...)
	m.mu.Unlock()

	page.OnClose(func(playwright.Page) {
		m.forgetPage(session, pageID, page)
	})
	for _, hook := range hooks {
		hook(sessionID, pageID, page)
	}

	m.logger.Debugf("session %s: opened %s", sessionID, pageID)
	return pageID, nil
}

// forgetPage drops a page that closed on its own, unless the id has since
// been bound to another handle.
func (m *SessionManager) forgetPage(session *Session, pageID string, page playwright.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, err := session.pages.Get(pageID); err == nil && current == page {
		session.pages.Remove(pageID)
		m.logger.Debugf("session %s: %s closed", session.ID, pageID)
	}
}

// ClosePage closes a page and removes it from the session. An empty pageID
// closes the active page. It returns the session's active page id afterwards.
func (m *SessionManager) ClosePage(ctx context.Context, sessionID, pageID string) (string, error) {
	pageID, page, err := m.ResolvePage(sessionID, pageID)
	if err != nil {
		return "", err
	}
	if err := page.Close(); err != nil {
		return "", m.Classify(err)
	}
	if _, err := m.RemovePage(sessionID, pageID); err != nil {
		return "", err
	}
	return m.ActivePageID(sessionID)
}

// ListSessions returns snapshots of all sessions, oldest first.
func (m *SessionManager) ListSessions() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, session := range m.sessions {
		infos = append(infos, session.info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Status computes per-session idle time and capacity utilization now.
func (m *SessionManager) Status() Status {
	infos := m.ListSessions()
	rate := m.limiter.Status()

	m.mu.RLock()
	now := m.now()
	status := Status{
		Sessions:              make([]SessionStatus, 0, len(infos)),
		ActiveSessions:        len(infos),
		MaxConcurrentSessions: m.config.MaxConcurrentSessions,
		RateRemaining:         rate.Remaining,
		RateResetMs:           rate.ResetMs,
		PendingLaunches:       m.pending,
		Cleaning:              len(m.cleaning),
		IdleTimeoutMs:         m.config.IdleTimeout.Milliseconds(),
	}
	m.mu.RUnlock()

	status.Utilization = float64(status.ActiveSessions) / float64(status.MaxConcurrentSessions)
	for _, info := range infos {
		idle := now.Sub(info.LastActivity)
		if idle < 0 {
			idle = 0
		}
		status.Sessions = append(status.Sessions, SessionStatus{SessionInfo: info, IdleMs: idle.Milliseconds()})
	}
	return status
}

// CloseSession closes a session's engine handles and removes it. A session
// already being closed by another caller yields SESSION_BUSY.
//
// The session is removed even if the engine close fails; the close error is
// returned.
func (m *SessionManager) CloseSession(ctx context.Context, id string) error {
	m.mu.Lock()
	session, err := m.getSessionLocked(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if _, busy := m.cleaning[id]; busy {
		m.mu.Unlock()
		return errors.SessionBusy(id)
	}
	m.cleaning[id] = struct{}{}
	m.mu.Unlock()

	closeErr := session.close()

	m.mu.Lock()
	delete(m.cleaning, id)
	if m.sessions[id] == session {
		m.deleteSessionLocked(id)
	}
	m.mu.Unlock()

	m.runCloseHooks(id)

	if closeErr != nil {
		m.logger.Warnf("session %s: close reported errors: %v", id, closeErr)
		return m.Classify(closeErr)
	}
	m.logger.Infof("session %s closed (lifetime %s)", id, m.now().Sub(session.CreatedAt).Round(time.Second))
	return nil
}

func (m *SessionManager) runCloseHooks(id string) {
	m.mu.RLock()
	hooks := append([]CloseHook(nil), m.closeHooks...)
	m.mu.RUnlock()
	for _, hook := range hooks {
		hook(id)
	}
}

// CleanupExpiredSessions reclaims sessions idle for longer than maxAge.
//
// Sessions already being cleaned by another caller are skipped and left for
// a later sweep. onCleanup, if set, runs before the engine handles are
// closed; if it fails the session is left registered and its handles are not
// touched. A failure on one session never stops the sweep, and all failures
// are joined into the returned error.
func (m *SessionManager) CleanupExpiredSessions(ctx context.Context, maxAge time.Duration, onCleanup CleanupFunc) (CleanupResult, error) {
	var result CleanupResult

	m.mu.Lock()
	now := m.now()
	var expired []*Session
	for id, session := range m.sessions {
		if now.Sub(session.lastActivity) <= maxAge {
			continue
		}
		if _, busy := m.cleaning[id]; busy {
			result.Skipped++
			continue
		}
		m.cleaning[id] = struct{}{}
		expired = append(expired, session)
	}
	m.mu.Unlock()

	sort.Slice(expired, func(i, j int) bool { return expired[i].ID < expired[j].ID })

	var errs []error
	for i, session := range expired {
		if err := ctx.Err(); err != nil {
			m.releaseAll(expired[i:])
			errs = append(errs, err)
			break
		}
		if err := m.reclaim(ctx, session, onCleanup); err != nil {
			result.Failed++
			m.recorder().recordCleanupFailure()
			m.logger.Errorf("session %s: cleanup failed: %v", session.ID, err)
			errs = append(errs, fmt.Errorf("session %s: %w", session.ID, err))
			continue
		}
		result.Cleaned++
		m.recorder().recordCleaned()
		m.logger.Infof("session %s reclaimed (idle longer than %s)", session.ID, maxAge)
	}

	if result.Cleaned > 0 || result.Failed > 0 {
		m.logger.Infof("cleanup sweep: cleaned=%d failed=%d skipped=%d", result.Cleaned, result.Failed, result.Skipped)
	}
	return result, stderrors.Join(errs...)
}

// reclaim cleans one session that the caller has marked as being cleaned.
// The mark is always released.
func (m *SessionManager) reclaim(ctx context.Context, session *Session, onCleanup CleanupFunc) error {
	defer m.release(session.ID)

	if onCleanup != nil {
		if err := onCleanup(ctx, session.ID); err != nil {
			return fmt.Errorf("cleanup callback: %w", err)
		}
	}
	if err := session.close(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.sessions[session.ID] == session {
		m.deleteSessionLocked(session.ID)
	}
	m.mu.Unlock()

	m.runCloseHooks(session.ID)
	return nil
}

func (m *SessionManager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cleaning, id)
}

func (m *SessionManager) releaseAll(sessions []*Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range sessions {
		delete(m.cleaning, session.ID)
	}
}

// Shutdown closes every session in parallel and stops the launcher.
// Sessions already being cleaned elsewhere are left to that caller. It
// returns the first close error.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	var sessions []*Session
	for id, session := range m.sessions {
		if _, busy := m.cleaning[id]; busy {
			continue
		}
		m.cleaning[id] = struct{}{}
		sessions = append(sessions, session)
	}
	m.mu.Unlock()

	var g errgroup.Group
	for _, s := range sessions {
		session := s
		g.Go(func() error {
			defer m.release(session.ID)

			err := session.close()
			m.mu.Lock()
			if m.sessions[session.ID] == session {
				m.deleteSessionLocked(session.ID)
			}
			m.mu.Unlock()
			m.runCloseHooks(session.ID)

			if err != nil {
				m.logger.Warnf("session %s: close during shutdown failed: %v", session.ID, err)
				return fmt.Errorf("session %s: %w", session.ID, err)
			}
			return nil
		})
	}
	err := g.Wait()

	if m.launcher != nil {
		if stopErr := m.launcher.Stop(); stopErr != nil {
			err = stderrors.Join(err, stopErr)
		}
	}
	m.logger.Infof("shutdown complete: %d sessions closed", len(sessions))
	return err
}
