package tools

import (
	"context"
	"encoding/xml"
	"strings"
	"testing"
)

type stubTool struct {
	name string
}

func (s stubTool) Name() string                   { return s.name }
func (s stubTool) Description() string            { return "stub" }
func (s stubTool) Schema() map[string]interface{} { return BaseToolSchema(nil, nil) }
func (s stubTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	return s.name, nil, nil
}

func TestBaseToolSchema(t *testing.T) {
	t.Run("with required fields", func(t *testing.T) {
		props := map[string]interface{}{
			"session": map[string]interface{}{"type": "string"},
		}
		schema := BaseToolSchema(props, []string{"session"})

		if schema["type"] != "object" {
			t.Errorf("Expected type 'object', got %v", schema["type"])
		}
		required, ok := schema["required"].([]string)
		if !ok || len(required) != 1 || required[0] != "session" {
			t.Errorf("Expected required [session], got %v", schema["required"])
		}
	})

	t.Run("without required fields", func(t *testing.T) {
		schema := BaseToolSchema(map[string]interface{}{}, nil)
		if _, ok := schema["required"]; ok {
			t.Error("Expected no required key")
		}
	})
}

func TestParseToolCall(t *testing.T) {
	t.Run("parses tool call and returns remaining text", func(t *testing.T) {
		text := `before <tool><tool_name>browser_navigate</tool_name><arguments><session>s1</session></arguments></tool> after`

		call, remaining, err := ParseToolCall(text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if call.ToolName != "browser_navigate" {
			t.Errorf("Expected tool name browser_navigate, got %q", call.ToolName)
		}
		if call.ServerName != "local" {
			t.Errorf("Expected default server name 'local', got %q", call.ServerName)
		}
		if remaining != "before  after" {
			t.Errorf("Unexpected remaining text %q", remaining)
		}

		var args struct {
			XMLName xml.Name `xml:"arguments"`
			Session string   `xml:"session"`
		}
		if err := UnmarshalXMLWithFallback(call.GetArgumentsXML(), &args); err != nil {
			t.Fatalf("failed to unmarshal arguments: %v", err)
		}
		if args.Session != "s1" {
			t.Errorf("Expected session s1, got %q", args.Session)
		}
	})

	t.Run("missing tool", func(t *testing.T) {
		if _, _, err := ParseToolCall("no tool here"); err == nil {
			t.Error("Expected error for text without a tool call")
		}
	})

	t.Run("missing tool name", func(t *testing.T) {
		_, _, err := ParseToolCall(`<tool><arguments></arguments></tool>`)
		if err == nil || !strings.Contains(err.Error(), "tool_name") {
			t.Errorf("Expected tool_name error, got %v", err)
		}
	})

	t.Run("bare ampersands in URL", func(t *testing.T) {
		text := `<tool><tool_name>browser_navigate</tool_name><arguments><url>https://example.com/?a=1&b=2&amp;c=3</url></arguments></tool>`
		call, _, err := ParseToolCall(text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var args struct {
			XMLName xml.Name `xml:"arguments"`
			URL     string   `xml:"url"`
		}
		if err := UnmarshalXMLWithFallback(call.GetArgumentsXML(), &args); err != nil {
			t.Fatalf("failed to unmarshal arguments: %v", err)
		}
		if args.URL != "https://example.com/?a=1&b=2&c=3" {
			t.Errorf("Unexpected URL %q", args.URL)
		}
	})
}

func TestHasToolCall(t *testing.T) {
	if !HasToolCall("<tool><tool_name>x</tool_name></tool>") {
		t.Error("Expected complete tool call to be detected")
	}
	if HasToolCall("<tool><tool_name>x</tool_name>") {
		t.Error("Expected incomplete tool call to be ignored")
	}
}

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register(stubTool{"b"}, stubTool{"a"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := r.Get("a"); !ok {
			t.Error("Expected tool a to be registered")
		}
		list := r.List()
		if len(list) != 2 || list[0].Name() != "b" {
			t.Errorf("Expected registration order preserved, got %v", r.Names())
		}
		names := r.Names()
		if names[0] != "a" || names[1] != "b" {
			t.Errorf("Expected sorted names, got %v", names)
		}
	})

	t.Run("duplicate rejected", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register(stubTool{"a"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		err := r.Register(stubTool{"a"})
		if err == nil || !strings.Contains(err.Error(), "already registered") {
			t.Errorf("Expected duplicate error, got %v", err)
		}
		if len(r.List()) != 1 {
			t.Errorf("Expected one tool, got %d", len(r.List()))
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		if err := NewRegistry().Register(stubTool{""}); err == nil {
			t.Error("Expected error for empty name")
		}
	})
}
