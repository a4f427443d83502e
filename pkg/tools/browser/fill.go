package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/browserkit/pkg/tools"
)

// FillTool fills a form input on a page.
type FillTool struct {
	manager *SessionManager
}

// NewFillTool creates a new fill tool.
func NewFillTool(manager *SessionManager) *FillTool {
	return &FillTool{
		manager: manager,
	}
}

// Name returns the tool name.
func (t *FillTool) Name() string {
	return "browser_fill"
}

// Description returns the tool description.
func (t *FillTool) Description() string {
	return "Fill an input, textarea or contenteditable element with text. Existing content is replaced."
}

// Schema returns the tool's JSON schema.
func (t *FillTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"session": sessionProperty(),
			"page":    pageProperty(),
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "CSS selector for the input element",
			},
			"value": map[string]interface{}{
				"type":        "string",
				"description": "Text to fill into the element (empty clears it)",
			},
			"timeout": timeoutProperty(),
		},
		[]string{"session", "selector", "value"},
	)
}

// FillInput represents the parameters for filling.
type FillInput struct {
	XMLName  xml.Name `xml:"arguments"`
	Session  string   `xml:"session"`
	Page     string   `xml:"page"`
	Selector string   `xml:"selector"`
	Value    string   `xml:"value"`
	Timeout  float64  `xml:"timeout"`
}

// Execute fills the element.
func (t *FillTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input FillInput
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}
	if err := requireArg("selector", input.Selector); err != nil {
		return "", nil, err
	}

	target, err := resolvePage(t.manager, input.Session, input.Page)
	if err != nil {
		return "", nil, err
	}
	err = fill(target.page, FillOptions{
		Selector: input.Selector,
		Value:    input.Value,
		Timeout:  input.Timeout,
	})
	if err != nil {
		return "", nil, target.fail(t.manager, "fill", err)
	}
	target.done(t.manager)

	return fmt.Sprintf("Filled %s with %d characters\n\nSession: %s\nPage: %s",
		input.Selector, len(input.Value), target.sessionID, target.pageID), target.metadata(), nil
}
