package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/browserkit/pkg/errors"
	"github.com/entrhq/browserkit/pkg/tools"
)

var validWaitUntil = map[string]bool{
	"load":             true,
	"domcontentloaded": true,
	"networkidle":      true,
	"commit":           true,
}

// NavigateTool navigates a page to a URL.
type NavigateTool struct {
	manager *SessionManager
	policy  *URLPolicy
}

// NewNavigateTool creates a new navigate tool. A nil policy only restricts
// URLs to http and https.
func NewNavigateTool(manager *SessionManager, policy *URLPolicy) *NavigateTool {
	return &NavigateTool{
		manager: manager,
		policy:  policy,
	}
}

// Name returns the tool name.
func (t *NavigateTool) Name() string {
	return "browser_navigate"
}

// Description returns the tool description.
func (t *NavigateTool) Description() string {
	return "Navigate a page of a browser session to a URL. The browser will load the page and wait for it to be ready."
}

// Schema returns the tool's JSON schema.
func (t *NavigateTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"session": sessionProperty(),
			"page":    pageProperty(),
			"url": map[string]interface{}{
				"type":        "string",
				"description": "URL to navigate to (must include protocol, e.g., https://example.com)",
			},
			"wait_until": map[string]interface{}{
				"type":        "string",
				"description": "When to consider navigation complete: 'load' (default), 'domcontentloaded', 'networkidle' or 'commit'",
			},
			"timeout": timeoutProperty(),
		},
		[]string{"session", "url"},
	)
}

// NavigateInput represents the parameters for navigation.
type NavigateInput struct {
	XMLName   xml.Name `xml:"arguments"`
	Session   string   `xml:"session"`
	Page      string   `xml:"page"`
	URL       string   `xml:"url"`
	WaitUntil string   `xml:"wait_until"`
	Timeout   float64  `xml:"timeout"`
}

// Execute navigates to a URL.
func (t *NavigateTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input NavigateInput
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}
	if err := requireArg("url", input.URL); err != nil {
		return "", nil, err
	}
	if input.WaitUntil != "" && !validWaitUntil[input.WaitUntil] {
		return "", nil, errors.ValidationFailed(fmt.Sprintf("invalid wait_until: %s", input.WaitUntil))
	}
	if err := t.policy.Check(input.URL); err != nil {
		return "", nil, err
	}

	target, err := resolvePage(t.manager, input.Session, input.Page)
	if err != nil {
		return "", nil, err
	}

	finalURL, err := navigate(target.page, input.URL, NavigateOptions{
		WaitUntil: input.WaitUntil,
		Timeout:   input.Timeout,
	})
	if err != nil {
		return "", nil, target.fail(t.manager, "navigate", err)
	}
	target.done(t.manager)

	title, _ := target.page.Title()
	meta := target.metadata()
	meta["url"] = finalURL
	meta["title"] = title

	return fmt.Sprintf(`Navigation successful

Session: %s
Page: %s
URL: %s
Title: %s`, target.sessionID, target.pageID, finalURL, title), meta, nil
}
