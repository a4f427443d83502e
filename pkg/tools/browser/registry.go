package browser

import (
	"github.com/entrhq/browserkit/pkg/tools"
)

// ToolOptions carries the collaborators shared by the browser tools.
type ToolOptions struct {
	Defaults      SessionDefaults
	Policy        *URLPolicy
	Capture       *ConsoleCapture
	Scheduler     *CleanupScheduler
	ScreenshotDir string
}

// ToolRegistry builds the browser tool set for a session manager.
type ToolRegistry struct {
	manager *SessionManager
	opts    ToolOptions
	tools   []tools.Tool
}

// NewToolRegistry creates a new browser tool registry.
func NewToolRegistry(manager *SessionManager, opts ToolOptions) *ToolRegistry {
	return &ToolRegistry{
		manager: manager,
		opts:    opts,
		tools:   make([]tools.Tool, 0),
	}
}

// Tools creates the browser tools on first use and returns them.
// Console log retrieval is only offered when a capture is configured.
func (r *ToolRegistry) Tools() []tools.Tool {
	if len(r.tools) > 0 {
		return r.tools
	}

	// Session lifecycle
	r.tools = append(r.tools,
		NewStartSessionTool(r.manager, r.opts.Defaults),
		NewListSessionsTool(r.manager),
		NewCloseSessionTool(r.manager),
		NewStatusTool(r.manager, r.opts.Scheduler),
	)

	// Pages
	r.tools = append(r.tools,
		NewNewPageTool(r.manager),
		NewListPagesTool(r.manager),
		NewSwitchPageTool(r.manager),
		NewClosePageTool(r.manager),
	)

	// Page interaction
	r.tools = append(r.tools,
		NewNavigateTool(r.manager, r.opts.Policy),
		NewExtractContentTool(r.manager),
		NewClickTool(r.manager),
		NewFillTool(r.manager),
		NewWaitTool(r.manager),
		NewSearchTool(r.manager),
		NewEvaluateTool(r.manager),
		NewScreenshotTool(r.manager, r.opts.ScreenshotDir),
	)
	if r.opts.Capture != nil {
		r.tools = append(r.tools, NewConsoleLogsTool(r.manager, r.opts.Capture))
	}

	return r.tools
}

// Register adds every browser tool to reg.
func (r *ToolRegistry) Register(reg *tools.Registry) error {
	return reg.Register(r.Tools()...)
}

// Manager returns the underlying session manager.
func (r *ToolRegistry) Manager() *SessionManager {
	return r.manager
}
