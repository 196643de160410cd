package render

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// environment is the markup construction surface a single render call works
// against. The tree-to-markup walk was designed against browser-style
// document primitives; this type stands in for them headlessly. Every call
// to Render builds its own instance, so concurrent renders never share
// state and there is nothing to install or tear down globally.
type environment struct {
	buf  strings.Builder
	open []string // element stack, for balanced close
}

func newEnvironment() *environment {
	return &environment{}
}

// openElement writes an opening tag and pushes it on the stack.
// Attribute values are entity-escaped.
func (e *environment) openElement(tag string, attrs map[string]string) {
	e.buf.WriteByte('<')
	e.buf.WriteString(tag)
	if len(attrs) > 0 {
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&e.buf, ` %s="%s"`, k, html.EscapeString(attrs[k]))
		}
	}
	e.buf.WriteByte('>')
	e.open = append(e.open, tag)
}

// closeElement closes the most recently opened tag. Closing an element
// that was never opened is a programming error and panics; the render
// boundary converts that into the safe fallback.
func (e *environment) closeElement() {
	if len(e.open) == 0 {
		panic("render: unbalanced element close")
	}
	tag := e.open[len(e.open)-1]
	e.open = e.open[:len(e.open)-1]
	e.buf.WriteString("</")
	e.buf.WriteString(tag)
	e.buf.WriteByte('>')
}

// text writes entity-escaped character data.
func (e *environment) text(s string) {
	e.buf.WriteString(html.EscapeString(s))
}

// markup returns the accumulated markup. It panics if any element is
// still open, which would mean the walk terminated mid-tree.
func (e *environment) markup() string {
	if len(e.open) != 0 {
		panic(fmt.Sprintf("render: %d elements left open", len(e.open)))
	}
	return e.buf.String()
}
