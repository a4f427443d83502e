package browser

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/browserkit/pkg/errors"
	"github.com/entrhq/browserkit/pkg/tools"
)

// ScreenshotTool captures a PNG screenshot of a page.
type ScreenshotTool struct {
	manager *SessionManager
	dir     string
}

// NewScreenshotTool creates a screenshot tool. When dir is set screenshots
// are written there; otherwise the image is returned base64-encoded in the
// result metadata.
func NewScreenshotTool(manager *SessionManager, dir string) *ScreenshotTool {
	return &ScreenshotTool{manager: manager, dir: dir}
}

// Name returns the tool name.
func (t *ScreenshotTool) Name() string {
	return "browser_screenshot"
}

// Description returns the tool description.
func (t *ScreenshotTool) Description() string {
	return "Capture a PNG screenshot of a page, either the visible viewport or the full scrollable page."
}

// Schema returns the tool's JSON schema.
func (t *ScreenshotTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"session": sessionProperty(),
			"page":    pageProperty(),
			"full_page": map[string]interface{}{
				"type":        "boolean",
				"description": "Capture the full scrollable page instead of the viewport. Default: false",
			},
			"name": map[string]interface{}{
				"type":        "string",
				"description": "File name for the screenshot when a screenshot directory is configured",
			},
		},
		[]string{"session"},
	)
}

// ScreenshotInput represents the parameters for a screenshot.
type ScreenshotInput struct {
	XMLName  xml.Name `xml:"arguments"`
	Session  string   `xml:"session"`
	Page     string   `xml:"page"`
	FullPage bool     `xml:"full_page"`
	Name     string   `xml:"name"`
}

// Execute captures the screenshot.
func (t *ScreenshotTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input ScreenshotInput
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	path, err := t.outputPath(input.Name)
	if err != nil {
		return "", nil, err
	}

	target, err := resolvePage(t.manager, input.Session, input.Page)
	if err != nil {
		return "", nil, err
	}

	fullPage := input.FullPage
	data, err := target.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: &fullPage,
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return "", nil, target.fail(t.manager, "screenshot", err)
	}
	target.done(t.manager)

	meta := target.metadata()
	meta["bytes"] = len(data)
	if path == "" {
		meta["image_base64"] = base64.StdEncoding.EncodeToString(data)
		return fmt.Sprintf("Captured screenshot (%d bytes, PNG) of page %s in session %s.",
			len(data), target.pageID, target.sessionID), meta, nil
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", nil, errors.Wrap(err, errors.CodeInternal, "failed to write screenshot")
	}
	meta["path"] = path
	return fmt.Sprintf("Saved screenshot (%d bytes, PNG) of page %s in session %s to %s.",
		len(data), target.pageID, target.sessionID, path), meta, nil
}

// outputPath confines screenshot files to the configured directory.
func (t *ScreenshotTool) outputPath(name string) (string, error) {
	if t.dir == "" {
		return "", nil
	}
	if name == "" {
		name = fmt.Sprintf("screenshot-%d.png", time.Now().UnixMilli())
	}
	if filepath.Base(name) != name || strings.HasPrefix(name, ".") {
		return "", errors.SecurityViolation(fmt.Sprintf("invalid screenshot name %q", name)).WithDetail("name", name)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".png") {
		name += ".png"
	}
	if err := os.MkdirAll(t.dir, 0750); err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to create screenshot directory")
	}
	return filepath.Join(t.dir, name), nil
}
