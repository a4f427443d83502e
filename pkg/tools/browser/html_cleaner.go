package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// droppedElements are removed with their whole subtree.
var droppedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Embed:    true,
	atom.Object:   true,
	atom.Svg:      true,
	atom.Template: true,
}

// keptAttributes lists attributes useful for targeting elements with
// selectors. data-* and aria-* attributes are always kept.
var keptAttributes = map[string]bool{
	"id":          true,
	"class":       true,
	"role":        true,
	"name":        true,
	"type":        true,
	"href":        true,
	"src":         true,
	"alt":         true,
	"title":       true,
	"placeholder": true,
	"value":       true,
	"for":         true,
	"action":      true,
	"method":      true,
}

// sanitizer writes a reduced copy of a document within a byte budget.
type sanitizer struct {
	out       strings.Builder
	budget    int
	truncated bool
}

// sanitizeHTML strips scripts, styles, comments, event handlers and
// presentational attributes from rawHTML, returning at most roughly
// maxLength bytes of markup and whether the output was cut short.
func sanitizeHTML(rawHTML string, maxLength int) (string, bool, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", false, fmt.Errorf("failed to parse HTML: %w", err)
	}

	s := &sanitizer{budget: maxLength}
	if body := findElement(doc, atom.Body); body != nil {
		s.children(body)
	} else {
		s.children(doc)
	}
	return strings.TrimSpace(s.out.String()), s.truncated, nil
}

func (s *sanitizer) write(text string) bool {
	if s.truncated {
		return false
	}
	if len(text) > s.budget {
		s.out.WriteString(text[:s.budget])
		s.out.WriteString("...")
		s.budget = 0
		s.truncated = true
		return false
	}
	s.out.WriteString(text)
	s.budget -= len(text)
	return true
}

func (s *sanitizer) children(n *html.Node) {
	for c := n.FirstChild; c != nil && !s.truncated; c = c.NextSibling {
		s.node(c)
	}
}

func (s *sanitizer) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
			s.write(html.EscapeString(text))
		}
	case html.ElementNode:
		if droppedElements[n.DataAtom] {
			return
		}
		s.element(n)
	case html.DocumentNode:
		s.children(n)
	}
}

func (s *sanitizer) element(n *html.Node) {
	var open strings.Builder
	open.WriteString("<")
	open.WriteString(n.Data)
	for _, attr := range n.Attr {
		if !keepAttribute(attr) {
			continue
		}
		fmt.Fprintf(&open, ` %s="%s"`, attr.Key, html.EscapeString(attr.Val))
	}
	open.WriteString(">")
	if !s.write(open.String()) {
		return
	}

	s.children(n)

	if isVoid(n.DataAtom) {
		return
	}
	// Closing tags are written even past the budget to keep output well formed.
	s.out.WriteString("</" + n.Data + ">")
}

func keepAttribute(attr html.Attribute) bool {
	key := strings.ToLower(attr.Key)
	if strings.HasPrefix(key, "on") {
		return false
	}
	if key == "href" || key == "src" || key == "action" {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(attr.Val)), "javascript:") {
			return false
		}
	}
	return keptAttributes[key] || strings.HasPrefix(key, "data-") || strings.HasPrefix(key, "aria-")
}

func isVoid(a atom.Atom) bool {
	switch a {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Hr, atom.Img, atom.Input,
		atom.Link, atom.Meta, atom.Param, atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
