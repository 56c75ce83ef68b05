// Package xmltree reads XML documents into a navigable element tree.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyDocument is returned when the input holds no root element.
var ErrEmptyDocument = errors.New("xml document has no root element")

// Node is a single XML element with its attributes, child elements and
// character data.
type Node struct {
	Name     string
	Attrs    map[string]string
	Children []*Node
	text     bytes.Buffer
}

// Parse reads a whole XML document and returns its root element.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	// Unknown entities such as &eacute; are kept verbatim so callers can
	// decode them with HTML rules.
	dec.Strict = false

	var root *Node
	var stack []*Node

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local, Attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				n.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}
	return root, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string) (*Node, error) {
	return Parse(strings.NewReader(s))
}

// Child returns the first child element with the given name, or nil.
func (n *Node) Child(name string) *Node {
	return n.ChildAt(name, 0)
}

// ChildAt returns the index-th child element (0-based) with the given name,
// or nil when there are fewer matches.
func (n *Node) ChildAt(name string, index int) *Node {
	if n == nil {
		return nil
	}
	seen := 0
	for _, c := range n.Children {
		if c.Name != name {
			continue
		}
		if seen == index {
			return c
		}
		seen++
	}
	return nil
}

// ChildrenNamed returns every child element with the given name in document order.
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Attr returns the value of the named attribute, or "" if it is absent.
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	return n.Attrs[name]
}

// Value returns the element's own character data with surrounding
// whitespace removed. Text of nested elements is not included.
func (n *Node) Value() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.text.String())
}

// ChildValue returns the value of the first child with the given name.
// The boolean reports whether such a child exists.
func (n *Node) ChildValue(name string) (string, bool) {
	c := n.Child(name)
	if c == nil {
		return "", false
	}
	return c.Value(), true
}
