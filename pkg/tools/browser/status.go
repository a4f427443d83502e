package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/browserkit/pkg/tools"
)

// StatusTool reports capacity, rate-limit headroom and per-session idle time.
type StatusTool struct {
	manager   *SessionManager
	scheduler *CleanupScheduler
}

// NewStatusTool creates a status tool. scheduler may be nil.
func NewStatusTool(manager *SessionManager, scheduler *CleanupScheduler) *StatusTool {
	return &StatusTool{manager: manager, scheduler: scheduler}
}

// Name returns the tool name.
func (t *StatusTool) Name() string {
	return "browser_status"
}

// Description returns the tool description.
func (t *StatusTool) Description() string {
	return "Report browser capacity usage, remaining session launches in the current rate window, the cleanup scheduler state and how long each session has been idle."
}

// Schema returns the tool's JSON schema.
func (t *StatusTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

type statusReport struct {
	Status
	CleanupState    string `json:"cleanup_state,omitempty"`
	CleanupFailures int    `json:"cleanup_failures"`
}

// Execute returns the status as JSON.
func (t *StatusTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	report := statusReport{Status: t.manager.Status()}
	if t.scheduler != nil {
		report.CleanupState = t.scheduler.State().String()
		report.CleanupFailures = t.scheduler.Failures()
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode status: %w", err)
	}
	return string(data), map[string]interface{}{
		"active_sessions": report.ActiveSessions,
		"utilization":     report.Utilization,
	}, nil
}
