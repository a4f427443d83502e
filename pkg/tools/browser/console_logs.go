package browser

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/entrhq/browserkit/pkg/tools"
)

// ConsoleLogsTool returns console output captured for a page.
type ConsoleLogsTool struct {
	manager *SessionManager
	capture *ConsoleCapture
}

// NewConsoleLogsTool creates a console logs tool.
func NewConsoleLogsTool(manager *SessionManager, capture *ConsoleCapture) *ConsoleLogsTool {
	return &ConsoleLogsTool{manager: manager, capture: capture}
}

// Name returns the tool name.
func (t *ConsoleLogsTool) Name() string {
	return "browser_console_logs"
}

// Description returns the tool description.
func (t *ConsoleLogsTool) Description() string {
	return "Return console messages (console.log, warnings, errors) captured for a page since it was opened or last cleared."
}

// Schema returns the tool's JSON schema.
func (t *ConsoleLogsTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"session": sessionProperty(),
			"page":    pageProperty(),
			"type": map[string]interface{}{
				"type":        "string",
				"description": "Only return messages of this type (e.g., 'error', 'warning', 'log')",
			},
			"clear": map[string]interface{}{
				"type":        "boolean",
				"description": "Clear the captured messages after returning them. Default: false",
			},
		},
		[]string{"session"},
	)
}

// ConsoleLogsInput represents the parameters.
type ConsoleLogsInput struct {
	XMLName xml.Name `xml:"arguments"`
	Session string   `xml:"session"`
	Page    string   `xml:"page"`
	Type    string   `xml:"type"`
	Clear   bool     `xml:"clear"`
}

// Execute returns the captured messages.
func (t *ConsoleLogsTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input ConsoleLogsInput
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	target, err := resolvePage(t.manager, input.Session, input.Page)
	if err != nil {
		return "", nil, err
	}
	entries, dropped := t.capture.Entries(target.sessionID, target.pageID, input.Clear)
	target.done(t.manager)

	var result strings.Builder
	shown := 0
	for _, entry := range entries {
		if input.Type != "" && !strings.EqualFold(entry.Type, input.Type) {
			continue
		}
		fmt.Fprintf(&result, "[%s] %s: %s\n", entry.Time.Format("15:04:05.000"), entry.Type, entry.Text)
		shown++
	}

	meta := target.metadata()
	meta["count"] = shown
	meta["dropped"] = dropped

	if shown == 0 {
		return fmt.Sprintf("No console messages captured for page %s in session %s.", target.pageID, target.sessionID), meta, nil
	}
	header := fmt.Sprintf("Console messages for page %s (%d):\n\n", target.pageID, shown)
	if dropped > 0 {
		header = fmt.Sprintf("Console messages for page %s (%d, %d older messages dropped):\n\n", target.pageID, shown, dropped)
	}
	return header + result.String(), meta, nil
}
