package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const maxFormat = FormatBold | FormatItalic | FormatUnderline | FormatStrikethrough | FormatCode

// DecodeError reports malformed persisted content. Path points at the
// offending node, e.g. "children[2].children[0]".
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode document: %v", e.Err)
	}
	return fmt.Sprintf("decode document at %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErrorf(path, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Path: path, Err: fmt.Errorf(format, args...)}
}

// Encode serializes the document to its persisted string form. Encoding is
// total over valid trees. The canonical empty document encodes to the empty
// string so that untouched posts cost nothing to store.
func Encode(d Document) (string, error) {
	if d.IsEmpty() {
		return "", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	// Encoder appends a trailing newline; the stored form has none.
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Decode parses the persisted string form back into a document and
// validates it against the closed node set and its structural rules.
// Malformed input yields a *DecodeError, never a panic.
func Decode(s string) (Document, error) {
	if s == "" {
		return Empty(), nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.DisallowUnknownFields()

	var d Document
	if err := dec.Decode(&d); err != nil {
		return Document{}, &DecodeError{Err: err}
	}
	// Reject trailing garbage after the document object.
	if dec.More() {
		return Document{}, decodeErrorf("", "trailing data after document")
	}

	if err := validate(d); err != nil {
		return Document{}, err
	}
	return d, nil
}

// validate enforces the structural invariants of the tree:
//
//   - the root holds at least one child, all block-level
//   - heading levels are 1 or 2
//   - lists contain only list items; list items contain inline nodes or
//     nested lists
//   - code blocks contain only unformatted text runs
//   - links contain only text runs and carry a URL
//   - text runs are leaves with a well-formed format bitset
func validate(d Document) error {
	if len(d.Children) == 0 {
		return decodeErrorf("children", "document has no block nodes")
	}
	for i := range d.Children {
		path := fmt.Sprintf("children[%d]", i)
		n := &d.Children[i]
		if !n.Kind.known() {
			return decodeErrorf(path, "unknown node kind %q", n.Kind)
		}
		if !n.Kind.isBlock() {
			return decodeErrorf(path, "%s node is not allowed at the root", n.Kind)
		}
		if err := validateNode(n, path); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(n *Node, path string) error {
	if !n.Kind.known() {
		return decodeErrorf(path, "unknown node kind %q", n.Kind)
	}

	// Field constraints per kind.
	switch n.Kind {
	case KindHeading:
		if n.Level != 1 && n.Level != 2 {
			return decodeErrorf(path, "heading level must be 1 or 2, got %d", n.Level)
		}
	case KindLink:
		if n.URL == "" {
			return decodeErrorf(path, "link node has no url")
		}
	case KindText:
		if len(n.Children) != 0 {
			return decodeErrorf(path, "text run must be a leaf")
		}
		if n.Format&^maxFormat != 0 {
			return decodeErrorf(path, "unknown format bits 0x%x", uint8(n.Format&^maxFormat))
		}
	}

	// Stray fields on kinds they do not belong to.
	if n.Kind != KindHeading && n.Level != 0 {
		return decodeErrorf(path, "%s node must not carry a heading level", n.Kind)
	}
	if n.Kind != KindLink && n.URL != "" {
		return decodeErrorf(path, "%s node must not carry a url", n.Kind)
	}
	if n.Kind != KindText && (n.Text != "" || n.Format != 0 || n.Style != nil) {
		return decodeErrorf(path, "%s node must not carry text run fields", n.Kind)
	}

	for i := range n.Children {
		child := &n.Children[i]
		childPath := fmt.Sprintf("%s.children[%d]", path, i)
		if !child.Kind.known() {
			return decodeErrorf(childPath, "unknown node kind %q", child.Kind)
		}
		if !childAllowed(n.Kind, child.Kind) {
			return decodeErrorf(childPath, "%s node is not allowed inside %s", child.Kind, n.Kind)
		}
		if n.Kind == KindCodeBlock && child.Format != 0 {
			return decodeErrorf(childPath, "code block text must be unformatted")
		}
		if err := validateNode(child, childPath); err != nil {
			return err
		}
	}
	return nil
}

func childAllowed(parent, child Kind) bool {
	switch parent {
	case KindParagraph, KindHeading, KindQuote:
		return child.isInline()
	case KindList:
		return child == KindListItem
	case KindListItem:
		return child.isInline() || child == KindList
	case KindCodeBlock:
		return child == KindText
	case KindLink:
		return child == KindText
	}
	return false
}
