package preview

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExtractStripsMarkup(t *testing.T) {
	tests := []struct {
		name     string
		markup   string
		expected string
	}{
		{
			name:     "plain paragraph",
			markup:   "<p>hello world</p>",
			expected: "hello world",
		},
		{
			name:     "nested formatting",
			markup:   "<p><strong>bold</strong> and <em>italic</em></p>",
			expected: "bold and italic",
		},
		{
			name:     "adjacent blocks get a separator",
			markup:   "<h1>Title</h1><p>body</p>",
			expected: "Title body",
		},
		{
			name:     "entities decoded",
			markup:   "<p>a &lt; b &amp; c</p>",
			expected: "a < b & c",
		},
		{
			name:     "whitespace collapsed",
			markup:   "<p>a\n\n  b\t c</p>",
			expected: "a b c",
		},
		{
			name:     "empty",
			markup:   "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Extract(tt.markup, 400))
		})
	}
}

func TestExtractTruncates(t *testing.T) {
	markup := "<p>" + strings.Repeat("word ", 200) + "</p>"

	out := Extract(markup, 400)
	assert.True(t, strings.HasSuffix(out, Ellipsis))

	body := strings.TrimSuffix(out, Ellipsis)
	assert.LessOrEqual(t, utf8.RuneCountInString(body), 400)
}

func TestExtractNeverExceedsBound(t *testing.T) {
	for _, markup := range []string{
		"<p>" + strings.Repeat("é", 1000) + "</p>",
		"<p>" + strings.Repeat("世界", 500) + "</p>",
		"<p>" + strings.Repeat("🌍", 500) + "</p>",
		"<p>" + strings.Repeat("mixed é世🌍 ", 120) + "</p>",
	} {
		out := Extract(markup, 400)
		body := strings.TrimSuffix(out, Ellipsis)
		assert.LessOrEqual(t, utf8.RuneCountInString(body), 400)
		assert.True(t, utf8.ValidString(out), "truncation must not split a rune")
	}
}

func TestExtractShortInputUntouched(t *testing.T) {
	out := Extract("<p>short</p>", 400)
	assert.Equal(t, "short", out)
	assert.False(t, strings.HasSuffix(out, Ellipsis))
}

func TestExtractExactBound(t *testing.T) {
	text := strings.Repeat("a", 400)
	out := Extract("<p>"+text+"</p>", 400)
	assert.Equal(t, text, out, "content at the bound is not truncated")
}

func TestExtractZeroBound(t *testing.T) {
	assert.Equal(t, "", Extract("<p>anything</p>", 0))
}
