package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/browserkit/pkg/errors"
	"github.com/entrhq/browserkit/pkg/tools"
)

var validStates = map[string]bool{
	"attached": true,
	"detached": true,
	"visible":  true,
	"hidden":   true,
}

// WaitTool waits for an element to reach a state.
type WaitTool struct {
	manager *SessionManager
}

// NewWaitTool creates a new wait tool.
func NewWaitTool(manager *SessionManager) *WaitTool {
	return &WaitTool{
		manager: manager,
	}
}

// Name returns the tool name.
func (t *WaitTool) Name() string {
	return "browser_wait"
}

// Description returns the tool description.
func (t *WaitTool) Description() string {
	return "Wait for an element matching a CSS selector to become attached, detached, visible or hidden. Useful after actions that load content asynchronously."
}

// Schema returns the tool's JSON schema.
func (t *WaitTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"session": sessionProperty(),
			"page":    pageProperty(),
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "CSS selector to wait for",
			},
			"state": map[string]interface{}{
				"type":        "string",
				"description": "State to wait for: 'visible' (default), 'attached', 'detached' or 'hidden'",
			},
			"timeout": timeoutProperty(),
		},
		[]string{"session", "selector"},
	)
}

// WaitInput represents the parameters for waiting.
type WaitInput struct {
	XMLName  xml.Name `xml:"arguments"`
	Session  string   `xml:"session"`
	Page     string   `xml:"page"`
	Selector string   `xml:"selector"`
	State    string   `xml:"state"`
	Timeout  float64  `xml:"timeout"`
}

// Execute waits for the element.
func (t *WaitTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input WaitInput
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}
	if err := requireArg("selector", input.Selector); err != nil {
		return "", nil, err
	}
	if input.State == "" {
		input.State = "visible"
	}
	if !validStates[input.State] {
		return "", nil, errors.ValidationFailed(fmt.Sprintf("invalid state: %s", input.State))
	}

	target, err := resolvePage(t.manager, input.Session, input.Page)
	if err != nil {
		return "", nil, err
	}
	err = waitFor(target.page, WaitOptions{
		Selector: input.Selector,
		State:    input.State,
		Timeout:  input.Timeout,
	})
	if err != nil {
		return "", nil, target.fail(t.manager, "wait", err)
	}
	target.done(t.manager)

	return fmt.Sprintf("Element %s is %s\n\nSession: %s\nPage: %s",
		input.Selector, input.State, target.sessionID, target.pageID), target.metadata(), nil
}
