package browser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// navigate loads url in page and returns the final URL after redirects.
func navigate(page playwright.Page, url string, opts NavigateOptions) (string, error) {
	gotoOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		gotoOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = &opts.Timeout
	}

	if _, err := page.Goto(url, gotoOpts); err != nil {
		return "", err
	}
	return page.URL(), nil
}

// click clicks the first element matching the selector.
func click(page playwright.Page, opts ClickOptions) error {
	clickOpts := playwright.PageClickOptions{}
	if opts.Button != "" {
		button := playwright.MouseButton(opts.Button)
		clickOpts.Button = &button
	}
	if opts.ClickCount > 0 {
		clickOpts.ClickCount = &opts.ClickCount
	}
	if opts.Timeout > 0 {
		clickOpts.Timeout = &opts.Timeout
	}
	return page.Click(opts.Selector, clickOpts)
}

// fill replaces the value of an input element.
func fill(page playwright.Page, opts FillOptions) error {
	fillOpts := playwright.PageFillOptions{}
	if opts.Timeout > 0 {
		fillOpts.Timeout = &opts.Timeout
	}
	return page.Fill(opts.Selector, opts.Value, fillOpts)
}

// waitFor blocks until the selector reaches the requested state.
func waitFor(page playwright.Page, opts WaitOptions) error {
	waitOpts := playwright.PageWaitForSelectorOptions{}
	if opts.State != "" {
		state := playwright.WaitForSelectorState(opts.State)
		waitOpts.State = &state
	}
	if opts.Timeout > 0 {
		waitOpts.Timeout = &opts.Timeout
	}
	_, err := page.WaitForSelector(opts.Selector, waitOpts)
	return err
}

// extractContent returns page content in the requested format.
func extractContent(page playwright.Page, opts ExtractOptions) (string, error) {
	if opts.Format == "" {
		opts.Format = FormatMarkdown
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}

	switch opts.Format {
	case FormatText:
		return extractText(page, opts)
	case FormatMarkdown:
		return extractMarkdown(page, opts)
	case FormatStructured:
		return extractStructured(page, opts)
	case FormatHTML:
		return extractHTML(page, opts)
	default:
		return "", fmt.Errorf("unsupported format: %s", opts.Format)
	}
}

// extractText returns the text content of the selector, or of the body.
func extractText(page playwright.Page, opts ExtractOptions) (string, error) {
	selector := opts.Selector
	if selector == "" {
		selector = "body"
	}

	element, err := page.QuerySelector(selector)
	if err != nil {
		return "", err
	}
	if element == nil {
		return "", fmt.Errorf("no element found matching selector: %s", selector)
	}
	content, err := element.TextContent()
	if err != nil {
		return "", err
	}

	content = collapseBlankLines(content)
	if len(content) > opts.MaxLength {
		return content[:opts.MaxLength] +
			fmt.Sprintf("\n\n[Content truncated: %d of %d characters shown]", opts.MaxLength, len(content)), nil
	}
	return content, nil
}

func extractMarkdown(page playwright.Page, opts ExtractOptions) (string, error) {
	text, err := extractText(page, opts)
	if err != nil {
		return "", err
	}
	if title, err := page.Title(); err == nil && title != "" {
		return fmt.Sprintf("# %s\n\n%s", title, text), nil
	}
	return text, nil
}

func extractStructured(page playwright.Page, opts ExtractOptions) (string, error) {
	structured := StructuredContent{URL: page.URL()}
	if title, err := page.Title(); err == nil {
		structured.Title = title
	}

	if headings, err := page.QuerySelectorAll("h1, h2, h3, h4, h5, h6"); err == nil {
		for _, heading := range headings {
			if text, err := heading.TextContent(); err == nil && strings.TrimSpace(text) != "" {
				structured.Headings = append(structured.Headings, strings.TrimSpace(text))
			}
		}
	}

	if links, err := page.QuerySelectorAll("a[href]"); err == nil {
		for _, link := range links {
			href, _ := link.GetAttribute("href")
			if href == "" {
				continue
			}
			text, _ := link.TextContent()
			structured.Links = append(structured.Links, Link{Text: strings.TrimSpace(text), Href: href})
		}
	}

	body, err := extractText(page, opts)
	if err != nil {
		return "", err
	}
	structured.Body = body

	data, err := json.MarshalIndent(structured, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode content: %w", err)
	}
	return string(data), nil
}

func extractHTML(page playwright.Page, opts ExtractOptions) (string, error) {
	var raw string
	if opts.Selector != "" {
		element, err := page.QuerySelector(opts.Selector)
		if err != nil {
			return "", err
		}
		if element == nil {
			return "", fmt.Errorf("no element found matching selector: %s", opts.Selector)
		}
		if raw, err = element.InnerHTML(); err != nil {
			return "", err
		}
	} else {
		var err error
		if raw, err = page.Content(); err != nil {
			return "", err
		}
	}

	cleaned, truncated, err := sanitizeHTML(raw, opts.MaxLength)
	if err != nil {
		return "", err
	}
	if truncated {
		cleaned += fmt.Sprintf("\n\n[HTML truncated at %d characters]", opts.MaxLength)
	}
	return cleaned, nil
}

// collapseBlankLines trims lines and removes runs of empty lines.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// formatValue renders an evaluation result.
func formatValue(v interface{}) string {
	if v == nil {
		return "undefined"
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
