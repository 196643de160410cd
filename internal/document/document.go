// Package document models the rich-text body of a post as a tree of typed
// nodes and provides the persisted JSON codec for it.
//
// The node set is closed: paragraphs, headings (level 1 or 2), quotes,
// ordered/unordered lists, list items, code blocks, links, and text runs.
// Decoding rejects anything outside this set with a path-aware *DecodeError.
package document

import (
	"strings"
)

// Kind identifies a node type. The set is closed; consumers switch
// exhaustively over these values.
type Kind string

const (
	KindParagraph Kind = "paragraph"
	KindHeading   Kind = "heading"
	KindQuote     Kind = "quote"
	KindList      Kind = "list"
	KindListItem  Kind = "listitem"
	KindCodeBlock Kind = "codeblock"
	KindLink      Kind = "link"
	KindText      Kind = "text"
)

// Format is the bitset of inline text formats carried by a text run.
type Format uint8

const (
	FormatBold Format = 1 << iota
	FormatItalic
	FormatUnderline
	FormatStrikethrough
	FormatCode
)

// Has reports whether every bit in f is set in the format.
func (f Format) Has(flag Format) bool { return f&flag == flag }

// Style holds optional per-run presentation overrides.
type Style struct {
	FontFamily string `json:"fontFamily,omitempty"`
	FontSizePx int    `json:"fontSizePx,omitempty"`
	Color      string `json:"color,omitempty"`
}

// Node is one node of the document tree. Which fields are meaningful
// depends on Kind:
//
//	heading:  Level (1 or 2)
//	list:     Ordered
//	link:     URL
//	text:     Text, Format, Style; never has children
//
// all others carry only Children.
type Node struct {
	Kind     Kind   `json:"kind"`
	Level    int    `json:"level,omitempty"`
	Ordered  bool   `json:"ordered,omitempty"`
	URL      string `json:"url,omitempty"`
	Text     string `json:"text,omitempty"`
	Format   Format `json:"format,omitempty"`
	Style    *Style `json:"style,omitempty"`
	Children []Node `json:"children,omitempty"`
}

// Document is the rooted tree. The root always holds at least one
// block-level child; the canonical empty document is a single paragraph
// with no children.
type Document struct {
	Children []Node `json:"children"`
}

// Empty returns the canonical empty document.
func Empty() Document {
	return Document{Children: []Node{{Kind: KindParagraph}}}
}

// IsEmpty reports whether the document is the canonical empty document.
func (d Document) IsEmpty() bool {
	return len(d.Children) == 1 &&
		d.Children[0].Kind == KindParagraph &&
		len(d.Children[0].Children) == 0
}

// Walk visits every node depth-first in document order. It stops and
// returns the first error fn reports.
func (d Document) Walk(fn func(n *Node) error) error {
	for i := range d.Children {
		if err := walkNode(&d.Children[i], fn); err != nil {
			return err
		}
	}
	return nil
}

func walkNode(n *Node, fn func(n *Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for i := range n.Children {
		if err := walkNode(&n.Children[i], fn); err != nil {
			return err
		}
	}
	return nil
}

// PlainText concatenates the text runs of the document in order,
// separating block-level nodes with single spaces.
func (d Document) PlainText() string {
	var b strings.Builder
	for i := range d.Children {
		if i > 0 {
			b.WriteByte(' ')
		}
		collectText(&d.Children[i], &b)
	}
	return b.String()
}

func collectText(n *Node, b *strings.Builder) {
	if n.Kind == KindText {
		b.WriteString(n.Text)
		return
	}
	for i := range n.Children {
		collectText(&n.Children[i], b)
	}
}

// Helpers for building documents programmatically (tests, fixtures).

// Paragraph returns a paragraph node with the given inline children.
func Paragraph(children ...Node) Node {
	return Node{Kind: KindParagraph, Children: children}
}

// Heading returns a heading node of the given level (1 or 2).
func Heading(level int, children ...Node) Node {
	return Node{Kind: KindHeading, Level: level, Children: children}
}

// Quote returns a block quote node.
func Quote(children ...Node) Node {
	return Node{Kind: KindQuote, Children: children}
}

// List returns a list node holding the given items.
func List(ordered bool, items ...Node) Node {
	return Node{Kind: KindList, Ordered: ordered, Children: items}
}

// Item returns a list item node.
func Item(children ...Node) Node {
	return Node{Kind: KindListItem, Children: children}
}

// CodeBlock returns a code block holding a single unformatted text run.
func CodeBlock(code string) Node {
	return Node{Kind: KindCodeBlock, Children: []Node{{Kind: KindText, Text: code}}}
}

// Link returns a link node wrapping the given inline children.
func Link(url string, children ...Node) Node {
	return Node{Kind: KindLink, URL: url, Children: children}
}

// Text returns a plain text run.
func Text(s string) Node {
	return Node{Kind: KindText, Text: s}
}

// FormattedText returns a text run with the given format bitset.
func FormattedText(s string, format Format) Node {
	return Node{Kind: KindText, Text: s, Format: format}
}

func (k Kind) String() string { return string(k) }

// isBlock reports whether the kind may appear directly under the root.
func (k Kind) isBlock() bool {
	switch k {
	case KindParagraph, KindHeading, KindQuote, KindList, KindCodeBlock:
		return true
	}
	return false
}

// isInline reports whether the kind may appear inside a paragraph-like
// container.
func (k Kind) isInline() bool {
	return k == KindText || k == KindLink
}

// known reports whether the kind belongs to the closed node set.
func (k Kind) known() bool {
	switch k {
	case KindParagraph, KindHeading, KindQuote, KindList, KindListItem,
		KindCodeBlock, KindLink, KindText:
		return true
	}
	return false
}
