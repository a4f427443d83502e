package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// RuleKind tags how a Rule matches its input.
type RuleKind int

const (
	// RuleContains matches a case-sensitive substring.
	RuleContains RuleKind = iota
	// RuleRegexp matches a compiled regular expression.
	RuleRegexp
)

// Rule maps a message pattern to a code. Build rules with Contains or Match.
type Rule struct {
	Kind    RuleKind
	Pattern string
	Code    ErrorCode

	re *regexp.Regexp
}

// Contains builds a substring rule.
func Contains(substr string, code ErrorCode) Rule {
	return Rule{Kind: RuleContains, Pattern: substr, Code: code}
}

// Match builds a regular expression rule. It panics on an invalid pattern,
// like regexp.MustCompile, since rules are declared at init time.
func Match(pattern string, code ErrorCode) Rule {
	return Rule{Kind: RuleRegexp, Pattern: pattern, Code: code, re: regexp.MustCompile(pattern)}
}

func (r Rule) matches(text string) bool {
	switch r.Kind {
	case RuleContains:
		return strings.Contains(text, r.Pattern)
	case RuleRegexp:
		return r.re != nil && r.re.MatchString(text)
	default:
		return false
	}
}

// DefaultRules is the built-in rule list. Order encodes precedence: selector
// waits are reported as missing elements before the generic timeout rule sees
// them, and navigation timeouts are reported as navigation failures.
var DefaultRules = []Rule{
	Contains("waiting for selector", CodeElementNotFound),
	Contains("waiting for locator", CodeElementNotFound),
	Match(`(?i)no (element|node) found|element is not attached|failed to find element|strict mode violation`, CodeElementNotFound),
	Match(`(?i)target (page, context or browser )?(has been )?closed|browser has been closed|page has been closed|context has been closed|execution context was destroyed`, CodeTargetClosed),
	Match(`net::ERR_[A-Z_]+|NS_ERROR_[A-Z_]+`, CodeNavigationFailed),
	Match(`(?i)navigation (failed|timeout)|navigating to .* failed|frame was detached`, CodeNavigationFailed),
	Match(`(?i)executable doesn't exist|failed to launch|browsertype\.launch|could not install driver`, CodeBrowserLaunchFailed),
	Match(`(?i)timeout|timed out|deadline exceeded`, CodeTimeoutExceeded),
	Match(`(?i)evaluation failed|syntaxerror|referenceerror|typeerror`, CodeEvaluationFailed),
	Contains("Not allowed to load local resource", CodeSecurityViolation),
}

// NameFunc extracts an engine-specific error name (for example "TimeoutError").
type NameFunc func(err error) string

// Classifier maps arbitrary failures onto the taxonomy. Classify is
// deterministic: the same input always yields the same code.
type Classifier struct {
	rules []Rule
	name  NameFunc

	mu        sync.RWMutex
	retryable map[ErrorCode]bool
}

// NewClassifier creates a classifier. Custom rules are evaluated before the
// default rules.
func NewClassifier(rules ...Rule) *Classifier {
	all := make([]Rule, 0, len(rules)+len(DefaultRules))
	all = append(all, rules...)
	all = append(all, DefaultRules...)
	return &Classifier{
		rules:     all,
		retryable: make(map[ErrorCode]bool),
	}
}

// SetNameFunc installs the engine error-name extractor.
func (c *Classifier) SetNameFunc(fn NameFunc) {
	c.name = fn
}

// SetRetryable overrides the retryability of a code for this classifier.
// A code that is not retryable by default cannot be made retryable.
func (c *Classifier) SetRetryable(code ErrorCode, retryable bool) error {
	if retryable && !DefaultRetryable(code) {
		return fmt.Errorf("code %s is not retryable and cannot be overridden to retryable", code)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryable[code] = retryable
	return nil
}

func (c *Classifier) isRetryable(code ErrorCode) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.retryable[code]; ok {
		return v
	}
	return DefaultRetryable(code)
}

// Code returns the code of the first rule matching text, or CodeInternal.
func (c *Classifier) Code(text string) ErrorCode {
	for _, rule := range c.rules {
		if rule.matches(text) {
			return rule.Code
		}
	}
	return CodeInternal
}

// Classify converts err into a typed error. Errors that are already typed are
// returned unchanged so direct constructors are never re-parsed.
func (c *Classifier) Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if typed, ok := As(err); ok {
		return typed
	}

	message := err.Error()
	text := message
	if c.name != nil {
		if name := c.name(err); name != "" {
			text = name + ": " + message
		}
	}

	code := c.Code(text)
	classified := Wrap(err, code, message)
	classified.Retryable = c.isRetryable(code)
	return classified
}
