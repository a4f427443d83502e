package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	bkerrors "github.com/entrhq/browserkit/pkg/errors"
	"github.com/entrhq/browserkit/pkg/logging"
	"github.com/entrhq/browserkit/pkg/tools"
)

const (
	toolCloseTag = "</tool>"
	maxPending   = 10 * 1024 * 1024
)

// response is the JSON object written for every tool call.
type response struct {
	Tool     string                 `json:"tool"`
	OK       bool                   `json:"ok"`
	Result   string                 `json:"result,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Error    *responseError         `json:"error,omitempty"`
}

type responseError struct {
	Code      bkerrors.ErrorCode `json:"code"`
	Message   string             `json:"message"`
	Retryable bool               `json:"retryable"`
	Details   map[string]any     `json:"details,omitempty"`
}

// dispatcher executes tool calls read from a stream.
type dispatcher struct {
	registry *tools.Registry
	classify func(error) *bkerrors.Error
	logger   *logging.Logger
}

func newDispatcher(registry *tools.Registry, classify func(error) *bkerrors.Error, logger *logging.Logger) *dispatcher {
	return &dispatcher{registry: registry, classify: classify, logger: logger}
}

// Serve reads tool calls from r until EOF or ctx is done. Calls may span
// several lines; each completed call produces one line of JSON on w.
func (d *dispatcher) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	encoder := json.NewEncoder(w)
	var pending strings.Builder
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to read tool calls: %w", err)
		case line := <-lines:
			pending.WriteString(line)
			rest, err := d.drain(ctx, pending.String(), encoder)
			if err != nil {
				return err
			}
			pending.Reset()
			if len(rest) > maxPending {
				d.logger.Warnf("discarding %d bytes of unterminated input", len(rest))
				if err := encoder.Encode(errorResponse("", bkerrors.ValidationFailed("tool call exceeds maximum size"))); err != nil {
					return err
				}
				rest = ""
			}
			pending.WriteString(rest)
		}
	}
}

// drain executes every complete tool call in text and returns the remainder.
func (d *dispatcher) drain(ctx context.Context, text string, encoder *json.Encoder) (string, error) {
	for tools.HasToolCall(text) {
		call, rest, err := tools.ParseToolCall(text)
		if err != nil {
			d.logger.Warnf("malformed tool call: %v", err)
			if encErr := encoder.Encode(errorResponse("", bkerrors.ValidationFailed(err.Error()))); encErr != nil {
				return "", encErr
			}
			idx := strings.Index(text, toolCloseTag)
			text = text[idx+len(toolCloseTag):]
			continue
		}
		if err := encoder.Encode(d.handle(ctx, call)); err != nil {
			return "", err
		}
		text = rest
	}
	return text, nil
}

func (d *dispatcher) handle(ctx context.Context, call *tools.ToolCall) response {
	tool, ok := d.registry.Get(call.ToolName)
	if !ok {
		return errorResponse(call.ToolName,
			bkerrors.ValidationFailed(fmt.Sprintf("unknown tool %q", call.ToolName)).
				WithDetail("available", d.registry.Names()))
	}

	result, metadata, err := tool.Execute(ctx, call.GetArgumentsXML())
	if err != nil {
		classified := d.classify(err)
		d.logger.Warnf("%s failed: %v", call.ToolName, classified)
		return errorResponse(call.ToolName, classified)
	}

	return response{
		Tool:     call.ToolName,
		OK:       true,
		Result:   result,
		Metadata: metadata,
	}
}

func errorResponse(tool string, err *bkerrors.Error) response {
	return response{
		Tool: tool,
		Error: &responseError{
			Code:      err.Code,
			Message:   err.Message,
			Retryable: err.Retryable,
			Details:   err.Details,
		},
	}
}
