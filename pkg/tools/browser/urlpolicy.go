package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"

	"github.com/entrhq/browserkit/pkg/errors"
)

// URLPolicy decides which URLs pages may navigate to.
//
// Patterns are globs. A pattern containing "://" is matched against the whole
// URL; any other pattern is matched against the host name, where "*" does not
// cross a dot and "**" does. Blocked patterns take precedence; with no allowed
// patterns every http(s) URL that is not blocked is allowed.
type URLPolicy struct {
	allowed []urlPattern
	blocked []urlPattern
}

type urlPattern struct {
	source  string
	fullURL bool
	glob    glob.Glob
}

// NewURLPolicy compiles allow and block patterns.
func NewURLPolicy(allowed, blocked []string) (*URLPolicy, error) {
	p := &URLPolicy{}
	var err error
	if p.allowed, err = compileURLPatterns(allowed); err != nil {
		return nil, fmt.Errorf("invalid allowed pattern: %w", err)
	}
	if p.blocked, err = compileURLPatterns(blocked); err != nil {
		return nil, fmt.Errorf("invalid blocked pattern: %w", err)
	}
	return p, nil
}

func compileURLPatterns(patterns []string) ([]urlPattern, error) {
	compiled := make([]urlPattern, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		fullURL := strings.Contains(pattern, "://")
		var (
			g   glob.Glob
			err error
		)
		if fullURL {
			g, err = glob.Compile(pattern)
		} else {
			g, err = glob.Compile(strings.ToLower(pattern), '.')
		}
		if err != nil {
			return nil, fmt.Errorf("'%s': %w", pattern, err)
		}
		compiled = append(compiled, urlPattern{source: pattern, fullURL: fullURL, glob: g})
	}
	return compiled, nil
}

func (p urlPattern) match(u *url.URL, raw string) bool {
	if p.fullURL {
		return p.glob.Match(raw)
	}
	return p.glob.Match(strings.ToLower(u.Hostname()))
}

// Check returns a SECURITY_VIOLATION error if navigation to rawURL is not
// permitted, or VALIDATION_FAILED if it cannot be parsed. A nil policy only
// applies the scheme check.
func (p *URLPolicy) Check(rawURL string) error {
	if rawURL == "about:blank" {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.ValidationFailed(fmt.Sprintf("invalid URL %q: %v", rawURL, err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.SecurityViolation(fmt.Sprintf("scheme %q is not allowed (only http and https)", u.Scheme)).
			WithDetail("url", rawURL)
	}
	if u.Host == "" {
		return errors.ValidationFailed(fmt.Sprintf("URL %q has no host", rawURL))
	}
	if p == nil {
		return nil
	}

	for _, pattern := range p.blocked {
		if pattern.match(u, rawURL) {
			return errors.SecurityViolation(fmt.Sprintf("URL %q is blocked by pattern %q", rawURL, pattern.source)).
				WithDetail("url", rawURL).
				WithDetail("pattern", pattern.source)
		}
	}

	if len(p.allowed) == 0 {
		return nil
	}
	for _, pattern := range p.allowed {
		if pattern.match(u, rawURL) {
			return nil
		}
	}
	return errors.SecurityViolation(fmt.Sprintf("URL %q does not match any allowed pattern", rawURL)).
		WithDetail("url", rawURL)
}
