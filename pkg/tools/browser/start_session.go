package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/browserkit/pkg/errors"
	"github.com/entrhq/browserkit/pkg/tools"
)

// SessionDefaults are the launch settings used when a start request does not
// override them.
type SessionDefaults struct {
	BrowserType BrowserType
	Headless    bool
	Timeout     float64
}

// StartSessionTool creates a new browser session.
type StartSessionTool struct {
	manager  *SessionManager
	defaults SessionDefaults
}

// NewStartSessionTool creates a new start session tool.
func NewStartSessionTool(manager *SessionManager, defaults SessionDefaults) *StartSessionTool {
	if defaults.BrowserType == "" {
		defaults.BrowserType = Chromium
	}
	return &StartSessionTool{
		manager:  manager,
		defaults: defaults,
	}
}

// Name returns the tool name.
func (t *StartSessionTool) Name() string {
	return "start_browser_session"
}

// Description returns the tool description.
func (t *StartSessionTool) Description() string {
	return "Launch a new browser session and open its first page. Returns the session ID used by every other browser tool. Sessions idle longer than the configured timeout are closed automatically."
}

// Schema returns the tool's JSON schema.
func (t *StartSessionTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"browser": map[string]interface{}{
				"type":        "string",
				"description": "Browser engine: 'chromium' (default), 'firefox' or 'webkit'",
			},
			"headless": map[string]interface{}{
				"type":        "boolean",
				"description": "Run browser in headless mode (no visible window)",
			},
			"width": map[string]interface{}{
				"type":        "integer",
				"description": "Browser viewport width in pixels. Default: 1280",
			},
			"height": map[string]interface{}{
				"type":        "integer",
				"description": "Browser viewport height in pixels. Default: 720",
			},
			"user_agent": map[string]interface{}{
				"type":        "string",
				"description": "Override the browser's user agent string",
			},
		},
		nil,
	)
}

// StartSessionInput defines the input parameters for starting a browser session.
type StartSessionInput struct {
	XMLName   xml.Name `xml:"arguments"`
	Browser   string   `xml:"browser"`
	Headless  *bool    `xml:"headless"`
	Width     *int     `xml:"width"`
	Height    *int     `xml:"height"`
	UserAgent string   `xml:"user_agent"`
}

// Execute starts a new browser session.
func (t *StartSessionTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input StartSessionInput
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}

	opts, err := t.buildLaunchOptions(&input)
	if err != nil {
		return "", nil, err
	}

	id, err := t.manager.StartSession(ctx, opts)
	if err != nil {
		return "", nil, err
	}
	pageID, _ := t.manager.ActivePageID(id)

	mode := "headed"
	if opts.Headless {
		mode = "headless"
	}
	result := fmt.Sprintf(`Browser session started

Session Details:
- ID: %s
- Browser: %s
- Mode: %s
- Viewport: %dx%d pixels
- Active page: %s

Pass this session ID to the other browser tools. Close the session with close_browser_session when finished.`,
		id, opts.BrowserType, mode, opts.Viewport.Width, opts.Viewport.Height, pageID)

	return result, map[string]interface{}{
		"session_id": id,
		"page_id":    pageID,
	}, nil
}

// buildLaunchOptions applies request overrides to the defaults.
func (t *StartSessionTool) buildLaunchOptions(input *StartSessionInput) (LaunchOptions, error) {
	opts := LaunchOptions{
		BrowserType: t.defaults.BrowserType,
		Headless:    t.defaults.Headless,
		Viewport: &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
		UserAgent: input.UserAgent,
		Timeout:   t.defaults.Timeout,
	}

	if input.Browser != "" {
		browserType, err := ParseBrowserType(input.Browser)
		if err != nil {
			return opts, errors.ValidationFailed(err.Error())
		}
		opts.BrowserType = browserType
	}
	if input.Headless != nil {
		opts.Headless = *input.Headless
	}
	if input.Width != nil {
		opts.Viewport.Width = *input.Width
	}
	if input.Height != nil {
		opts.Viewport.Height = *input.Height
	}

	if err := validateViewport(opts.Viewport); err != nil {
		return opts, err
	}
	return opts, nil
}

// validateViewport validates viewport dimensions are within acceptable range.
func validateViewport(vp *Viewport) error {
	if vp.Width < 100 || vp.Width > 5000 {
		return errors.ValidationFailed("viewport width must be between 100 and 5000 pixels").WithDetail("width", vp.Width)
	}
	if vp.Height < 100 || vp.Height > 5000 {
		return errors.ValidationFailed("viewport height must be between 100 and 5000 pixels").WithDetail("height", vp.Height)
	}
	return nil
}
