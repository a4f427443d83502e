package tools

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

const (
	defaultServerName = "local"
	maxXMLSize        = 10 * 1024 * 1024 // 10MB limit for XML tool calls
)

var toolRegex = regexp.MustCompile(`(?s)<tool>.*?</tool>`)

// ampersandEntityRegex matches ampersands that already start an XML entity
var ampersandEntityRegex = regexp.MustCompile(`&(?:amp|lt|gt|quot|apos|#\d+|#x[0-9a-fA-F]+);`)

// ParseToolCall extracts the first <tool> element from text.
// Returns the parsed ToolCall and the text with the tool call removed.
func ParseToolCall(text string) (*ToolCall, string, error) {
	if len(text) > maxXMLSize {
		return nil, text, fmt.Errorf("tool call XML exceeds maximum size of %d bytes", maxXMLSize)
	}

	match := toolRegex.FindString(text)
	if match == "" {
		return nil, text, fmt.Errorf("no tool call found in text")
	}
	toolXML := strings.TrimSpace(match)

	var toolCall ToolCall
	if err := UnmarshalXMLWithFallback([]byte(toolXML), &toolCall); err != nil {
		snippet := toolXML
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		return nil, text, fmt.Errorf("failed to unmarshal tool call XML: %w\nXML snippet: %s", err, snippet)
	}

	if toolCall.ToolName == "" {
		return nil, text, fmt.Errorf("tool_name is required in tool call")
	}
	if toolCall.ServerName == "" {
		toolCall.ServerName = defaultServerName
	}

	remaining := strings.TrimSpace(strings.Replace(text, match, "", 1))
	return &toolCall, remaining, nil
}

// HasToolCall checks if the text contains a complete tool call.
func HasToolCall(text string) bool {
	return toolRegex.MatchString(text)
}

// UnmarshalXMLWithFallback attempts to unmarshal XML, retrying once with bare
// ampersands escaped (URLs with query strings are the usual offender).
func UnmarshalXMLWithFallback(data []byte, v interface{}) error {
	err := xml.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	return xml.Unmarshal(escapeUnescapedAmpersands(data), v)
}

// escapeUnescapedAmpersands replaces bare & with &amp; while preserving
// existing entities
func escapeUnescapedAmpersands(data []byte) []byte {
	text := string(data)

	entityStarts := make(map[int]bool)
	for _, m := range ampersandEntityRegex.FindAllStringIndex(text, -1) {
		entityStarts[m[0]] = true
	}

	var result strings.Builder
	result.Grow(len(text) + 20)
	for i := 0; i < len(text); i++ {
		if text[i] == '&' && !entityStarts[i] {
			result.WriteString("&amp;")
		} else {
			result.WriteByte(text[i])
		}
	}
	return []byte(result.String())
}
