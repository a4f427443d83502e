package browser

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/entrhq/browserkit/pkg/tools"
)

// sessionPageInput is the argument shape of the page management tools.
type sessionPageInput struct {
	XMLName xml.Name `xml:"arguments"`
	Session string   `xml:"session"`
	Page    string   `xml:"page"`
}

// NewPageTool opens a new page (tab) in a session.
type NewPageTool struct {
	manager *SessionManager
}

// NewNewPageTool creates a new page tool.
func NewNewPageTool(manager *SessionManager) *NewPageTool {
	return &NewPageTool{manager: manager}
}

// Name returns the tool name.
func (t *NewPageTool) Name() string { return "browser_new_page" }

// Description returns the tool description.
func (t *NewPageTool) Description() string {
	return "Open a new page (tab) in a browser session. The new page becomes the active page."
}

// Schema returns the tool's JSON schema.
func (t *NewPageTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{"session": sessionProperty()},
		[]string{"session"},
	)
}

// Execute opens the page.
func (t *NewPageTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input sessionPageInput
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}
	if err := requireArg("session", input.Session); err != nil {
		return "", nil, err
	}

	pageID, err := t.manager.OpenPage(ctx, input.Session)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Opened page %s in session %s (now active).", pageID, input.Session),
		map[string]interface{}{"session_id": input.Session, "page_id": pageID}, nil
}

// ListPagesTool lists the pages of a session.
type ListPagesTool struct {
	manager *SessionManager
}

// NewListPagesTool creates a list pages tool.
func NewListPagesTool(manager *SessionManager) *ListPagesTool {
	return &ListPagesTool{manager: manager}
}

// Name returns the tool name.
func (t *ListPagesTool) Name() string { return "browser_list_pages" }

// Description returns the tool description.
func (t *ListPagesTool) Description() string {
	return "List the pages open in a browser session with their URL and title, marking the active page."
}

// Schema returns the tool's JSON schema.
func (t *ListPagesTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{"session": sessionProperty()},
		[]string{"session"},
	)
}

// Execute lists the pages.
func (t *ListPagesTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input sessionPageInput
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}
	if err := requireArg("session", input.Session); err != nil {
		return "", nil, err
	}

	summaries, err := t.manager.PageSummaries(input.Session)
	if err != nil {
		return "", nil, err
	}
	t.manager.UpdateActivity(input.Session)

	if len(summaries) == 0 {
		return fmt.Sprintf("Session %s has no open pages. Use browser_new_page to open one.", input.Session), nil, nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Pages in session %s: %d\n\n", input.Session, len(summaries))
	for _, summary := range summaries {
		marker := " "
		if summary.Active {
			marker = "*"
		}
		fmt.Fprintf(&result, "%s %s  %s\n    %s\n", marker, summary.ID, summary.Title, summary.URL)
	}
	result.WriteString("\n* marks the active page.")

	return result.String(), map[string]interface{}{"pages": summaries}, nil
}

// SwitchPageTool changes a session's active page.
type SwitchPageTool struct {
	manager *SessionManager
}

// NewSwitchPageTool creates a switch page tool.
func NewSwitchPageTool(manager *SessionManager) *SwitchPageTool {
	return &SwitchPageTool{manager: manager}
}

// Name returns the tool name.
func (t *SwitchPageTool) Name() string { return "browser_switch_page" }

// Description returns the tool description.
func (t *SwitchPageTool) Description() string {
	return "Make another page of a session the active page. Page tools called without a page ID act on the active page."
}

// Schema returns the tool's JSON schema.
func (t *SwitchPageTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"session": sessionProperty(),
			"page": map[string]interface{}{
				"type":        "string",
				"description": "ID of the page to activate",
			},
		},
		[]string{"session", "page"},
	)
}

// Execute switches the active page.
func (t *SwitchPageTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input sessionPageInput
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}
	if err := requireArg("session", input.Session); err != nil {
		return "", nil, err
	}
	if err := requireArg("page", input.Page); err != nil {
		return "", nil, err
	}

	if err := t.manager.SetActivePage(input.Session, input.Page); err != nil {
		return "", nil, err
	}
	t.manager.UpdateActivity(input.Session)

	return fmt.Sprintf("Page %s is now active in session %s.", input.Page, input.Session),
		map[string]interface{}{"session_id": input.Session, "page_id": input.Page}, nil
}

// ClosePageTool closes one page of a session.
type ClosePageTool struct {
	manager *SessionManager
}

// NewClosePageTool creates a close page tool.
func NewClosePageTool(manager *SessionManager) *ClosePageTool {
	return &ClosePageTool{manager: manager}
}

// Name returns the tool name.
func (t *ClosePageTool) Name() string { return "browser_close_page" }

// Description returns the tool description.
func (t *ClosePageTool) Description() string {
	return "Close a page of a browser session. If it was the active page, another open page becomes active. The session stays open."
}

// Schema returns the tool's JSON schema.
func (t *ClosePageTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"session": sessionProperty(),
			"page": map[string]interface{}{
				"type":        "string",
				"description": "ID of the page to close",
			},
		},
		[]string{"session", "page"},
	)
}

// Execute closes the page.
func (t *ClosePageTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input sessionPageInput
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}
	if err := requireArg("session", input.Session); err != nil {
		return "", nil, err
	}
	if err := requireArg("page", input.Page); err != nil {
		return "", nil, err
	}

	active, err := t.manager.ClosePage(ctx, input.Session, input.Page)
	if err != nil {
		return "", nil, err
	}
	t.manager.UpdateActivity(input.Session)

	activeDesc := active
	if activeDesc == "" {
		activeDesc = "none (session has no open pages)"
	}
	return fmt.Sprintf("Closed page %s in session %s.\nActive page: %s", input.Page, input.Session, activeDesc),
		map[string]interface{}{"session_id": input.Session, "active_page_id": active}, nil
}
