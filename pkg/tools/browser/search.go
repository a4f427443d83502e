package browser

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/browserkit/pkg/errors"
	"github.com/entrhq/browserkit/pkg/tools"
)

const (
	defaultSearchResults = 10
	maxSearchResults     = 100
	searchContextChars   = 60
)

// SearchMatch is one occurrence of a search pattern in page text.
type SearchMatch struct {
	Text    string
	Context string
	Offset  int
}

// searchPage finds occurrences of pattern in the page's body text.
func searchPage(page playwright.Page, pattern string, caseSensitive bool, maxResults int) ([]SearchMatch, error) {
	body, err := page.QuerySelector("body")
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}
	text, err := body.TextContent()
	if err != nil {
		return nil, err
	}
	return findMatches(text, pattern, caseSensitive, maxResults), nil
}

func findMatches(text, pattern string, caseSensitive bool, maxResults int) []SearchMatch {
	haystack, needle := text, pattern
	if !caseSensitive {
		haystack, needle = strings.ToLower(text), strings.ToLower(pattern)
	}
	if needle == "" || len(haystack) != len(text) {
		// Lowercasing changed byte lengths; fall back to exact offsets.
		haystack, needle = text, pattern
	}

	var matches []SearchMatch
	for start := 0; len(matches) < maxResults; {
		idx := strings.Index(haystack[start:], needle)
		if idx < 0 {
			break
		}
		pos := start + idx
		end := pos + len(needle)
		from := max(0, pos-searchContextChars)
		to := min(len(text), end+searchContextChars)
		matches = append(matches, SearchMatch{
			Text:    text[pos:end],
			Context: strings.Join(strings.Fields(text[from:to]), " "),
			Offset:  pos,
		})
		start = end
	}
	return matches
}

// SearchTool searches for text in a page.
type SearchTool struct {
	manager *SessionManager
}

// NewSearchTool creates a new search tool.
func NewSearchTool(manager *SessionManager) *SearchTool {
	return &SearchTool{
		manager: manager,
	}
}

// Name returns the tool name.
func (t *SearchTool) Name() string {
	return "browser_search"
}

// Description returns the tool description.
func (t *SearchTool) Description() string {
	return "Search for text patterns in the page content. Returns matching text with surrounding context."
}

// Schema returns the tool's JSON schema.
func (t *SearchTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"session": sessionProperty(),
			"page":    pageProperty(),
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Text pattern to search for in the page content",
			},
			"case_sensitive": map[string]interface{}{
				"type":        "boolean",
				"description": "Whether the search should be case-sensitive. Default: false",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of results to return. Default: 10",
			},
		},
		[]string{"session", "pattern"},
	)
}

// SearchInput represents the parameters for searching.
type SearchInput struct {
	XMLName       xml.Name `xml:"arguments"`
	Session       string   `xml:"session"`
	Page          string   `xml:"page"`
	Pattern       string   `xml:"pattern"`
	CaseSensitive bool     `xml:"case_sensitive"`
	MaxResults    *int     `xml:"max_results"`
}

// Execute searches the page.
func (t *SearchTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input SearchInput
	if err := parseArgs(argsXML, &input); err != nil {
		return "", nil, err
	}
	if err := requireArg("pattern", input.Pattern); err != nil {
		return "", nil, err
	}

	maxResults := defaultSearchResults
	if input.MaxResults != nil {
		if *input.MaxResults < 1 || *input.MaxResults > maxSearchResults {
			return "", nil, errors.ValidationFailed(fmt.Sprintf("max_results must be between 1 and %d", maxSearchResults))
		}
		maxResults = *input.MaxResults
	}

	target, err := resolvePage(t.manager, input.Session, input.Page)
	if err != nil {
		return "", nil, err
	}
	results, err := searchPage(target.page, input.Pattern, input.CaseSensitive, maxResults)
	if err != nil {
		return "", nil, target.fail(t.manager, "search", err)
	}
	target.done(t.manager)

	var resultText strings.Builder
	fmt.Fprintf(&resultText, `Search completed successfully

Search Details:
- Session: %s
- Page: %s
- Pattern: %q
- Case Sensitive: %v
- Results Found: %d

`, target.sessionID, target.pageID, input.Pattern, input.CaseSensitive, len(results))

	if len(results) == 0 {
		resultText.WriteString("No matches found for the search pattern.")
	} else {
		resultText.WriteString("Matches:\n\n")
		for i, result := range results {
			fmt.Fprintf(&resultText, "Match %d:\nText: %q\nContext: %s\n\n", i+1, result.Text, result.Context)
		}
		if len(results) == maxResults {
			fmt.Fprintf(&resultText, "[Limited to %d results. There may be more matches in the page.]", maxResults)
		}
	}

	meta := target.metadata()
	meta["matches"] = len(results)
	return resultText.String(), meta, nil
}
