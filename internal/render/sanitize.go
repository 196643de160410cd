package render

import "github.com/microcosm-cc/bluemonday"

// sanitizePolicy admits exactly the element set the renderer can emit.
// The renderer's output is semi-trusted, but link and text payloads are
// free-form user input, so everything is re-checked before serving.
var sanitizePolicy = buildPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "h1", "h2", "blockquote",
		"ol", "ul", "li",
		"pre", "code",
		"a", "strong", "em", "u", "s", "span", "br",
	)

	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("rel").OnElements("a")
	p.RequireNoFollowOnLinks(false)

	p.AllowStyles("color", "font-family", "font-size", "font-weight").
		OnElements("span", "p")

	return p
}

// sanitize strips executable content and disallowed attributes from
// rendered markup.
func sanitize(markup string) string {
	return sanitizePolicy.Sanitize(markup)
}
