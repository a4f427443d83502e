package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/browserkit/pkg/tools"
)

// CloseSessionTool closes a browser session.
type CloseSessionTool struct {
	manager *SessionManager
}

// NewCloseSessionTool creates a new close session tool.
func NewCloseSessionTool(manager *SessionManager) *CloseSessionTool {
	return &CloseSessionTool{
		manager: manager,
	}
}

// Name returns the tool name.
func (t *CloseSessionTool) Name() string {
	return "close_browser_session"
}

// Description returns the tool description.
func (t *CloseSessionTool) Description() string {
	return "Close a browser session and release its browser process. The session ID cannot be used afterwards."
}

// Schema returns the tool's JSON schema.
func (t *CloseSessionTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"session": sessionProperty(),
		},
		[]string{"session"},
	)
}

// CloseSessionInput defines the input parameters for closing a session.
type CloseSessionInput struct {
	XMLName xml.Name `xml:"arguments"`
	Session string   `xml:"session"`
}

// Execute closes the session.
func (t *CloseSessionTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input CloseSessionInput
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}
	if err := requireArg("session", input.Session); err != nil {
		return "", nil, err
	}

	if err := t.manager.CloseSession(ctx, input.Session); err != nil {
		return "", nil, err
	}

	remaining := len(t.manager.ListSessions())
	return fmt.Sprintf("Browser session %s closed.\n\nActive sessions remaining: %d", input.Session, remaining),
		map[string]interface{}{"session_id": input.Session}, nil
}
