// Package preview derives short plain-text teasers from rendered markup
// for listing pages.
package preview

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Ellipsis is appended whenever a teaser had to be truncated.
const Ellipsis = "…"

var stripPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// Extract strips all markup from rendered HTML, collapses whitespace runs
// to single spaces, and truncates the result to at most maxChars
// characters, appending an ellipsis when truncation occurred. Truncation
// counts characters, not bytes, so multi-byte runes are never split.
func Extract(markup string, maxChars int) string {
	text := html.UnescapeString(stripPolicy.Sanitize(markup))
	text = strings.Join(strings.Fields(text), " ")

	if maxChars <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return strings.TrimRight(string(runes[:maxChars]), " ") + Ellipsis
}
