package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/browserkit/pkg/tools"
)

// EvaluateTool executes JavaScript in a page.
type EvaluateTool struct {
	manager *SessionManager
}

// NewEvaluateTool creates a new evaluate tool.
func NewEvaluateTool(manager *SessionManager) *EvaluateTool {
	return &EvaluateTool{
		manager: manager,
	}
}

// Name returns the tool name.
func (t *EvaluateTool) Name() string {
	return "browser_evaluate"
}

// Description returns the tool description.
func (t *EvaluateTool) Description() string {
	return "Execute JavaScript code in a page. Returns the JSON-encoded result of the expression. For complex operations, wrap the code in a function: () => { /* code */ }"
}

// Schema returns the tool's JSON schema.
func (t *EvaluateTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"session": sessionProperty(),
			"page":    pageProperty(),
			"code": map[string]interface{}{
				"type":        "string",
				"description": "JavaScript expression or function to execute",
			},
		},
		[]string{"session", "code"},
	)
}

// EvaluateInput defines the input parameters.
type EvaluateInput struct {
	XMLName xml.Name `xml:"arguments"`
	Session string   `xml:"session"`
	Page    string   `xml:"page"`
	Code    string   `xml:"code"`
}

// Execute executes JavaScript in the page.
func (t *EvaluateTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input EvaluateInput
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}
	if err := requireArg("code", input.Code); err != nil {
		return "", nil, err
	}

	target, err := resolvePage(t.manager, input.Session, input.Page)
	if err != nil {
		return "", nil, err
	}
	result, err := target.page.Evaluate(input.Code)
	if err != nil {
		return "", nil, target.fail(t.manager, "evaluate", err)
	}
	target.done(t.manager)

	return fmt.Sprintf(`JavaScript Execution Complete

Session: %s
Page: %s
URL: %s

Result:
%s`, target.sessionID, target.pageID, target.page.URL(), formatValue(result)), target.metadata(), nil
}
