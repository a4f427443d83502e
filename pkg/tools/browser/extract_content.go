package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/browserkit/pkg/errors"
	"github.com/entrhq/browserkit/pkg/tools"
)

// ExtractContentTool extracts content from a page.
type ExtractContentTool struct {
	manager *SessionManager
}

// NewExtractContentTool creates a new extract content tool.
func NewExtractContentTool(manager *SessionManager) *ExtractContentTool {
	return &ExtractContentTool{
		manager: manager,
	}
}

// Name returns the tool name.
func (t *ExtractContentTool) Name() string {
	return "browser_extract_content"
}

// Description returns the tool description.
func (t *ExtractContentTool) Description() string {
	return "Extract content from the current page as markdown, plain text, structured JSON (title, headings, links, body) or sanitized HTML useful for choosing selectors."
}

// Schema returns the tool's JSON schema.
func (t *ExtractContentTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"session": sessionProperty(),
			"page":    pageProperty(),
			"format": map[string]interface{}{
				"type":        "string",
				"description": "Output format: 'markdown' (default), 'text', 'structured' or 'html'",
			},
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "Optional CSS selector to limit extraction to a specific element",
			},
			"max_length": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum characters to return. Default: 10000",
			},
		},
		[]string{"session"},
	)
}

// ExtractContentInput represents the parameters for content extraction.
type ExtractContentInput struct {
	XMLName   xml.Name `xml:"arguments"`
	Session   string   `xml:"session"`
	Page      string   `xml:"page"`
	Format    string   `xml:"format"`
	Selector  string   `xml:"selector"`
	MaxLength int      `xml:"max_length"`
}

// Execute extracts content.
func (t *ExtractContentTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input ExtractContentInput
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	format := ExtractFormat(input.Format)
	switch format {
	case "":
		format = FormatMarkdown
	case FormatMarkdown, FormatText, FormatStructured, FormatHTML:
	default:
		return "", nil, errors.ValidationFailed(fmt.Sprintf("invalid format: %s (must be 'markdown', 'text', 'structured' or 'html')", input.Format))
	}
	if input.MaxLength < 0 {
		return "", nil, errors.ValidationFailed("max_length must be positive")
	}

	target, err := resolvePage(t.manager, input.Session, input.Page)
	if err != nil {
		return "", nil, err
	}
	content, err := extractContent(target.page, ExtractOptions{
		Format:    format,
		Selector:  input.Selector,
		MaxLength: input.MaxLength,
	})
	if err != nil {
		return "", nil, target.fail(t.manager, "extract_content", err)
	}
	target.done(t.manager)

	meta := target.metadata()
	meta["format"] = string(format)
	meta["length"] = len(content)
	return content, meta, nil
}
