package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumehq/plume-backend/internal/document"
	"github.com/plumehq/plume-backend/internal/log"
)

func newTestRenderer() *Renderer {
	return NewRenderer(log.NewNop(), nil)
}

func encode(t *testing.T, doc document.Document) string {
	t.Helper()
	s, err := document.Encode(doc)
	require.NoError(t, err)
	return s
}

func TestRenderBlocks(t *testing.T) {
	r := newTestRenderer()
	ctx := context.Background()

	tests := []struct {
		name     string
		doc      document.Document
		expected string
	}{
		{
			name:     "paragraph",
			doc:      document.Document{Children: []document.Node{document.Paragraph(document.Text("hello"))}},
			expected: "<p>hello</p>",
		},
		{
			name: "headings",
			doc: document.Document{Children: []document.Node{
				document.Heading(1, document.Text("Title")),
				document.Heading(2, document.Text("Sub")),
			}},
			expected: "<h1>Title</h1><h2>Sub</h2>",
		},
		{
			name:     "quote",
			doc:      document.Document{Children: []document.Node{document.Quote(document.Text("said"))}},
			expected: "<blockquote>said</blockquote>",
		},
		{
			name: "ordered list",
			doc: document.Document{Children: []document.Node{
				document.List(true, document.Item(document.Text("one")), document.Item(document.Text("two"))),
			}},
			expected: "<ol><li>one</li><li>two</li></ol>",
		},
		{
			name: "unordered list",
			doc: document.Document{Children: []document.Node{
				document.List(false, document.Item(document.Text("only"))),
			}},
			expected: "<ul><li>only</li></ul>",
		},
		{
			name:     "code block",
			doc:      document.Document{Children: []document.Node{document.CodeBlock("x < y")}},
			expected: "<pre><code>x &lt; y</code></pre>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.Render(ctx, encode(t, tt.doc)))
		})
	}
}

func TestRenderFormats(t *testing.T) {
	r := newTestRenderer()
	ctx := context.Background()

	doc := document.Document{Children: []document.Node{
		document.Paragraph(
			document.FormattedText("b", document.FormatBold),
			document.FormattedText("i", document.FormatItalic),
			document.FormattedText("u", document.FormatUnderline),
			document.FormattedText("s", document.FormatStrikethrough),
			document.FormattedText("c", document.FormatCode),
		),
	}}

	out := r.Render(ctx, encode(t, doc))
	assert.Equal(t, "<p><strong>b</strong><em>i</em><u>u</u><s>s</s><code>c</code></p>", out)
}

func TestRenderCombinedFormatNesting(t *testing.T) {
	r := newTestRenderer()

	doc := document.Document{Children: []document.Node{
		document.Paragraph(
			document.FormattedText("both", document.FormatBold|document.FormatItalic),
		),
	}}

	out := r.Render(context.Background(), encode(t, doc))
	assert.Equal(t, "<p><strong><em>both</em></strong></p>", out)
}

func TestRenderStyleOverrides(t *testing.T) {
	r := newTestRenderer()

	doc := document.Document{Children: []document.Node{
		document.Paragraph(document.Node{
			Kind:  document.KindText,
			Text:  "styled",
			Style: &document.Style{FontFamily: "Georgia", FontSizePx: 18, Color: "#336699"},
		}),
	}}

	out := r.Render(context.Background(), encode(t, doc))
	assert.Contains(t, out, "font-family: Georgia")
	assert.Contains(t, out, "font-size: 18px")
	assert.Contains(t, out, "color: #336699")
	assert.Contains(t, out, "styled")
}

func TestRenderLink(t *testing.T) {
	r := newTestRenderer()

	doc := document.Document{Children: []document.Node{
		document.Paragraph(document.Link("https://example.com/a?b=1", document.Text("here"))),
	}}

	out := r.Render(context.Background(), encode(t, doc))
	assert.Contains(t, out, `href="https://example.com/a?b=1"`)
	assert.Contains(t, out, ">here</a>")
}

func TestRenderRejectsExecutableURLs(t *testing.T) {
	r := newTestRenderer()
	ctx := context.Background()

	for _, raw := range []string{
		"javascript:alert(1)",
		"JAVASCRIPT:alert(1)",
		"data:text/html,<script>alert(1)</script>",
		"vbscript:msgbox",
	} {
		doc := document.Document{Children: []document.Node{
			document.Paragraph(document.Link(raw, document.Text("click"))),
		}}
		out := r.Render(ctx, encode(t, doc))
		assert.NotContains(t, out, "javascript", "url %q must not survive", raw)
		assert.NotContains(t, out, "<a", "url %q must not produce an anchor", raw)
		assert.Contains(t, out, "click", "link text must survive without the anchor")
	}
}

func TestRenderEscapesInjectedMarkup(t *testing.T) {
	r := newTestRenderer()

	doc := document.Document{Children: []document.Node{
		document.Paragraph(document.Text(`<script>alert("xss")</script>`)),
	}}

	out := r.Render(context.Background(), encode(t, doc))
	assert.NotContains(t, out, "<script")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestRenderFallbackOnMalformedContent(t *testing.T) {
	r := newTestRenderer()
	ctx := context.Background()

	for _, content := range []string{
		"{{{",
		`{"children":[{"kind":"table"}]}`,
	} {
		assert.Equal(t, Fallback, r.Render(ctx, content))
	}
}

func TestRenderEmptyContent(t *testing.T) {
	r := newTestRenderer()
	assert.Equal(t, "<p></p>", r.Render(context.Background(), ""))
}

func TestRenderIdempotent(t *testing.T) {
	r := newTestRenderer()
	ctx := context.Background()

	doc := document.Document{Children: []document.Node{
		document.Heading(1, document.Text("Title")),
		document.Paragraph(
			document.Text("some "),
			document.FormattedText("bold", document.FormatBold),
			document.Link("https://example.com", document.Text(" link")),
		),
		document.List(true, document.Item(document.Text("item"))),
	}}
	content := encode(t, doc)

	first := r.Render(ctx, content)
	second := r.Render(ctx, content)
	assert.Equal(t, first, second)
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		raw string
		ok  bool
	}{
		{"https://example.com", true},
		{"http://example.com/path", true},
		{"mailto:someone@example.com", true},
		{"/relative/path", true},
		{"#anchor", true},
		{"javascript:alert(1)", false},
		{"data:text/html,x", false},
		{"vbscript:x", false},
	}

	for _, tt := range tests {
		_, ok := safeURL(tt.raw)
		assert.Equal(t, tt.ok, ok, "url %q", tt.raw)
	}
}
