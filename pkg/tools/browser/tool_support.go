package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/browserkit/pkg/errors"
	"github.com/entrhq/browserkit/pkg/tools"
)

// parseArgs unmarshals tool arguments, reporting malformed XML as a
// validation failure.
func parseArgs(argsXML []byte, v interface{}) error {
	if err := tools.UnmarshalXMLWithFallback(argsXML, v); err != nil {
		return errors.ValidationFailed(fmt.Sprintf("invalid parameters: %v", err))
	}
	return nil
}

// requireArg fails with VALIDATION_FAILED when value is empty.
func requireArg(field, value string) error {
	if value == "" {
		return errors.ValidationFailed(fmt.Sprintf("%s is required", field)).WithDetail("field", field)
	}
	return nil
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "ID of the browser session (returned by start_browser_session)",
	}
}

func pageProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "ID of the page to act on. Default: the session's active page",
	}
}

func timeoutProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": "Timeout in milliseconds. Default: the session's default timeout (30000)",
	}
}

// pageTarget is a resolved page.
type pageTarget struct {
	sessionID string
	pageID    string
	page      playwright.Page
}

// resolvePage looks up a session's page; an empty pageID selects the active
// page.
func resolvePage(manager *SessionManager, sessionID, pageID string) (*pageTarget, error) {
	if err := requireArg("session", sessionID); err != nil {
		return nil, err
	}
	resolvedID, page, err := manager.ResolvePage(sessionID, pageID)
	if err != nil {
		return nil, err
	}
	return &pageTarget{sessionID: sessionID, pageID: resolvedID, page: page}, nil
}

// done records activity for a successful page operation.
func (t *pageTarget) done(manager *SessionManager) {
	manager.UpdateActivity(t.sessionID)
}

// fail classifies an engine failure and tags it with the target.
func (t *pageTarget) fail(manager *SessionManager, operation string, err error) error {
	return manager.Classify(err).
		WithDetail("operation", operation).
		WithDetail("session_id", t.sessionID).
		WithDetail("page_id", t.pageID)
}

func (t *pageTarget) metadata() map[string]interface{} {
	return map[string]interface{}{
		"session_id": t.sessionID,
		"page_id":    t.pageID,
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
