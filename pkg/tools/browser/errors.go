package browser

import (
	stderrors "errors"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/browserkit/pkg/errors"
)

// NewClassifier returns a classifier that understands Playwright error
// names (for example "TimeoutError") in addition to messages.
func NewClassifier(rules ...errors.Rule) *errors.Classifier {
	c := errors.NewClassifier(rules...)
	c.SetNameFunc(playwrightErrorName)
	return c
}

func playwrightErrorName(err error) string {
	var pwErr *playwright.Error
	if stderrors.As(err, &pwErr) {
		return pwErr.Name
	}
	return ""
}
