// Package dom provides small helpers over golang.org/x/net/html node trees.
//
// The layout engine keeps its grid as a live HTML tree. These helpers cover
// the handful of operations it needs: creating elements, reading and writing
// attributes, iterating element children, detaching nodes and XPath lookup
// (via github.com/antchfx/htmlquery).
package dom

import (
	"bytes"
	"io"
	"slices"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element creates a detached element. attrs are key/value pairs; a trailing
// key without a value is ignored.
func Element(tag string, attrs ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		SetAttr(n, attrs[i], attrs[i+1])
	}
	return n
}

// Text creates a detached text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Attr returns the value of the attribute key and whether it is present.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces the attribute key.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes the attribute key if present.
func RemoveAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

// HasClass reports whether the class attribute contains class.
func HasClass(n *html.Node, class string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	return slices.Contains(strings.Fields(v), class)
}

// Children returns the element children of n in document order.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// ChildrenWhere returns the element children of n that satisfy keep.
func ChildrenWhere(n *html.Node, keep func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Detach removes n from its parent. It is a no-op for detached nodes.
func Detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Contains reports whether n is ancestor or a descendant of ancestor.
func Contains(ancestor, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Render writes the HTML serialization of n to w.
func Render(w io.Writer, n *html.Node) error {
	return html.Render(w, n)
}

// String returns the HTML serialization of n, or "" if rendering fails.
func String(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// Parse parses a full HTML document.
func Parse(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// ParseFragment parses an HTML snippet in the context of a div element.
func ParseFragment(s string) ([]*html.Node, error) {
	return html.ParseFragment(strings.NewReader(s), Element("div"))
}

// FindOne returns the first node under top matching the XPath expression,
// or nil when nothing matches.
func FindOne(top *html.Node, expr string) (*html.Node, error) {
	return htmlquery.Query(top, expr)
}

// InnerText returns the concatenated text content of n.
func InnerText(n *html.Node) string {
	return htmlquery.InnerText(n)
}

// Literal quotes s as an XPath string literal. Values holding both quote
// characters are spelled with concat().
func Literal(s string) string {
	switch {
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	case !strings.Contains(s, `'`):
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	args := make([]string, 0, 2*len(parts)-1)
	for i, p := range parts {
		if i > 0 {
			args = append(args, `'"'`)
		}
		if p != "" {
			args = append(args, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}
