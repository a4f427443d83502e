package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/browserkit/pkg/tools"
)

// ListSessionsTool lists all active browser sessions.
type ListSessionsTool struct {
	manager *SessionManager
}

// NewListSessionsTool creates a new list sessions tool.
func NewListSessionsTool(manager *SessionManager) *ListSessionsTool {
	return &ListSessionsTool{
		manager: manager,
	}
}

// Name returns the tool name.
func (t *ListSessionsTool) Name() string {
	return "list_browser_sessions"
}

// Description returns the tool description.
func (t *ListSessionsTool) Description() string {
	return "List all active browser sessions with their current state and metadata."
}

// Schema returns the tool's JSON schema.
func (t *ListSessionsTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

// Execute lists all sessions.
func (t *ListSessionsTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	sessions := t.manager.ListSessions()
	if len(sessions) == 0 {
		return "No active browser sessions.\n\nUse start_browser_session to create a new session.", nil, nil
	}

	now := time.Now()
	var result strings.Builder
	fmt.Fprintf(&result, "Active Browser Sessions: %d\n\n", len(sessions))

	ids := make([]string, 0, len(sessions))
	for i, session := range sessions {
		mode := "headed"
		if session.Headless {
			mode = "headless"
		}
		fmt.Fprintf(&result, `%d. %s
   Browser: %s (%s)
   Pages: %d (active: %s)
   Age: %s
   Last Used: %s ago

`,
			i+1,
			session.ID,
			session.BrowserType, mode,
			session.PageCount, session.ActivePageID,
			formatDuration(now.Sub(session.CreatedAt)),
			formatDuration(now.Sub(session.LastActivity)),
		)
		ids = append(ids, session.ID)
	}

	result.WriteString("Use close_browser_session to close a session when finished.")
	return result.String(), map[string]interface{}{"session_ids": ids}, nil
}
