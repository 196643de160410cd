// Package render converts a post's persisted document content into
// sanitized HTML without an interactive display surface.
//
// Render never fails: malformed content and internal faults degrade to a
// fixed fallback fragment and are logged for operator attention.
package render

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/plumehq/plume-backend/internal/document"
	"github.com/plumehq/plume-backend/internal/metrics"
)

// Fallback is the fragment served in place of content that cannot be
// rendered. Mirrors the inline-styled error paragraph readers already know.
const Fallback = `<p style="color: red; font-weight: bold;">This content could not be displayed.</p>`

type Renderer struct {
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewRenderer(logger *zap.SugaredLogger, m *metrics.Metrics) *Renderer {
	return &Renderer{logger: logger, metrics: m}
}

// Render decodes the persisted content and produces sanitized display
// markup. Rendering the same content twice yields byte-identical output.
func (r *Renderer) Render(ctx context.Context, content string) string {
	start := time.Now()
	defer func() {
		r.metrics.RecordRender(ctx, time.Since(start))
	}()

	doc, err := document.Decode(content)
	if err != nil {
		r.logger.Errorw("Stored document failed to decode, serving fallback",
			"error", err,
			"content_bytes", len(content),
		)
		r.metrics.RecordRenderFailure(ctx, "decode")
		return Fallback
	}

	markup, err := r.walk(doc)
	if err != nil {
		r.logger.Errorw("Render walk failed, serving fallback", "error", err)
		r.metrics.RecordRenderFailure(ctx, "walk")
		return Fallback
	}

	return sanitize(markup)
}

// walk runs the tree-to-markup conversion inside a recover boundary so a
// faulty tree can never take down the caller.
func (r *Renderer) walk(doc document.Document) (markup string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("render fault: %v", rec)
		}
	}()

	env := newEnvironment()
	for i := range doc.Children {
		renderNode(env, &doc.Children[i])
	}
	return env.markup(), nil
}

// renderNode dispatches on the closed node set. The codec guarantees no
// other kind can reach this switch; an escape would be a decode bug, so it
// panics into the walk boundary rather than emitting anything.
func renderNode(env *environment, n *document.Node) {
	switch n.Kind {
	case document.KindParagraph:
		renderContainer(env, "p", n)
	case document.KindHeading:
		tag := "h1"
		if n.Level == 2 {
			tag = "h2"
		}
		renderContainer(env, tag, n)
	case document.KindQuote:
		renderContainer(env, "blockquote", n)
	case document.KindList:
		tag := "ul"
		if n.Ordered {
			tag = "ol"
		}
		renderContainer(env, tag, n)
	case document.KindListItem:
		renderContainer(env, "li", n)
	case document.KindCodeBlock:
		env.openElement("pre", nil)
		env.openElement("code", nil)
		for i := range n.Children {
			env.text(n.Children[i].Text)
		}
		env.closeElement()
		env.closeElement()
	case document.KindLink:
		renderLink(env, n)
	case document.KindText:
		renderTextRun(env, n)
	default:
		panic(fmt.Sprintf("render: unhandled node kind %q", n.Kind))
	}
}

func renderContainer(env *environment, tag string, n *document.Node) {
	env.openElement(tag, nil)
	for i := range n.Children {
		renderNode(env, &n.Children[i])
	}
	env.closeElement()
}

// renderLink wraps its children in an anchor when the stored URL is safe to
// emit. Links with a disallowed scheme keep their text but lose the anchor.
func renderLink(env *environment, n *document.Node) {
	href, ok := safeURL(n.URL)
	if !ok {
		for i := range n.Children {
			renderNode(env, &n.Children[i])
		}
		return
	}
	env.openElement("a", map[string]string{
		"href": href,
		"rel":  "noopener noreferrer",
	})
	for i := range n.Children {
		renderNode(env, &n.Children[i])
	}
	env.closeElement()
}

// renderTextRun applies the format bitset as nested elements, innermost
// last, and style overrides as a span attribute.
func renderTextRun(env *environment, n *document.Node) {
	opened := 0
	openFmt := func(tag string) {
		env.openElement(tag, nil)
		opened++
	}

	if style := styleAttr(n.Style); style != "" {
		env.openElement("span", map[string]string{"style": style})
		opened++
	}
	if n.Format.Has(document.FormatBold) {
		openFmt("strong")
	}
	if n.Format.Has(document.FormatItalic) {
		openFmt("em")
	}
	if n.Format.Has(document.FormatUnderline) {
		openFmt("u")
	}
	if n.Format.Has(document.FormatStrikethrough) {
		openFmt("s")
	}
	if n.Format.Has(document.FormatCode) {
		openFmt("code")
	}

	env.text(n.Text)

	for ; opened > 0; opened-- {
		env.closeElement()
	}
}

func styleAttr(s *document.Style) string {
	if s == nil {
		return ""
	}
	var parts []string
	if s.FontFamily != "" {
		parts = append(parts, "font-family: "+s.FontFamily)
	}
	if s.FontSizePx > 0 {
		parts = append(parts, fmt.Sprintf("font-size: %dpx", s.FontSizePx))
	}
	if s.Color != "" {
		parts = append(parts, "color: "+s.Color)
	}
	return strings.Join(parts, "; ")
}

// safeURL validates a stored link target before emission. Only http,
// https, mailto, and scheme-relative targets are allowed; anything that
// could execute (javascript:, data:, vbscript:) is dropped.
func safeURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return u.String(), true
	case "":
		// Relative path or fragment.
		return u.String(), true
	default:
		return "", false
	}
}
