// Package browser manages the lifecycle of browser automation sessions driven
// through Playwright.
//
// The package is built around four core pieces:
//
// 1. Session: a launched browser with its context and the pages opened in it
// 2. SessionManager: the registry of live sessions, enforcing a concurrency cap and a launch rate limit
// 3. CleanupScheduler: a periodic sweep that reclaims idle sessions and disables itself after repeated failures
// 4. Tools: XML-invoked operations (navigate, click, extract, ...) that act on a session's pages
//
// # Session Lifecycle
//
// Sessions follow this lifecycle:
//
//  1. Admit: StartSession checks the rate limit and then the capacity cap
//  2. Launch: the Launcher starts a browser and context outside the manager lock
//  3. Use: page tools resolve a page (the active one by default) and record activity
//  4. Close: CloseSession or an idle sweep closes the context, then the browser
//
// A session is removed from the registry even when its browser fails to
// close, so a crashed engine never holds a capacity slot. During an idle
// sweep a failing cleanup callback keeps the session registered so the next
// sweep retries it.
//
// # Pages
//
// Each session keeps a PageRegistry. Exactly one page is active while any
// page exists; removing the active page promotes the oldest remaining one.
// Pages closed by the engine itself are dropped via their close event.
//
// # Errors
//
// Engine failures are classified into the codes of package errors
// (TIMEOUT, NAVIGATION_FAILED, ...) so callers can decide whether to retry.
//
// # Example Usage
//
//	manager := browser.NewSessionManager(browser.ManagerConfig{
//	    MaxConcurrentSessions: 5,
//	    MaxSessionsPerMinute:  10,
//	}, browser.NewPlaywrightLauncher(false), logger)
//	defer manager.Shutdown(context.Background())
//
//	id, err := manager.StartSession(ctx, browser.LaunchOptions{Headless: true})
//	if err != nil {
//	    return err
//	}
//	_, page, err := manager.ResolvePage(id, "")
//	if err != nil {
//	    return err
//	}
//	_, err = page.Goto("https://example.com")
package browser
