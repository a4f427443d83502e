package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/browserkit/pkg/errors"
	"github.com/entrhq/browserkit/pkg/tools"
)

var validButtons = map[string]bool{
	"left":   true,
	"right":  true,
	"middle": true,
}

// ClickTool clicks an element on a page.
type ClickTool struct {
	manager *SessionManager
}

// NewClickTool creates a new click tool.
func NewClickTool(manager *SessionManager) *ClickTool {
	return &ClickTool{
		manager: manager,
	}
}

// Name returns the tool name.
func (t *ClickTool) Name() string {
	return "browser_click"
}

// Description returns the tool description.
func (t *ClickTool) Description() string {
	return "Click an element on the page identified by a CSS selector. Waits for the element to be actionable first."
}

// Schema returns the tool's JSON schema.
func (t *ClickTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"session": sessionProperty(),
			"page":    pageProperty(),
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "CSS selector for the element to click (e.g., '#submit-button', '.nav-link')",
			},
			"button": map[string]interface{}{
				"type":        "string",
				"description": "Mouse button: 'left' (default), 'right', or 'middle'",
			},
			"click_count": map[string]interface{}{
				"type":        "integer",
				"description": "Number of clicks: 1 (default) for single click, 2 for double click",
			},
			"timeout": timeoutProperty(),
		},
		[]string{"session", "selector"},
	)
}

// ClickInput represents the parameters for clicking.
type ClickInput struct {
	XMLName    xml.Name `xml:"arguments"`
	Session    string   `xml:"session"`
	Page       string   `xml:"page"`
	Selector   string   `xml:"selector"`
	Button     string   `xml:"button"`
	ClickCount *int     `xml:"click_count"`
	Timeout    float64  `xml:"timeout"`
}

// Execute clicks an element.
func (t *ClickTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input ClickInput
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}
	if err := requireArg("selector", input.Selector); err != nil {
		return "", nil, err
	}

	opts := ClickOptions{
		Selector:   input.Selector,
		Button:     input.Button,
		ClickCount: 1,
		Timeout:    input.Timeout,
	}
	if input.ClickCount != nil {
		if *input.ClickCount < 1 || *input.ClickCount > 3 {
			return "", nil, errors.ValidationFailed("click_count must be between 1 and 3")
		}
		opts.ClickCount = *input.ClickCount
	}
	if opts.Button != "" && !validButtons[opts.Button] {
		return "", nil, errors.ValidationFailed(fmt.Sprintf("invalid button: %s (must be 'left', 'right', or 'middle')", opts.Button))
	}

	target, err := resolvePage(t.manager, input.Session, input.Page)
	if err != nil {
		return "", nil, err
	}
	if err := click(target.page, opts); err != nil {
		return "", nil, target.fail(t.manager, "click", err)
	}
	target.done(t.manager)

	clickType := "single click"
	switch opts.ClickCount {
	case 2:
		clickType = "double click"
	case 3:
		clickType = "triple click"
	}
	button := opts.Button
	if button == "" {
		button = "left"
	}

	meta := target.metadata()
	meta["url"] = target.page.URL()
	return fmt.Sprintf("Clicked %s (%s, %s button)\n\nSession: %s\nPage: %s\nCurrent URL: %s",
		input.Selector, clickType, button, target.sessionID, target.pageID, meta["url"]), meta, nil
}
