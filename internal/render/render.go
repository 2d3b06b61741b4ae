// Package render expands track templates and mounts the result into an
// HTML document next to an anchor element.
package render

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MarkerAttr tags top-level nodes inserted by a Renderer. Its value is the
// anchor id, so renders from earlier runs can be found and replaced.
const MarkerAttr = "data-nowplaying"

// ErrAnchorNotFound is returned when the document has no element with the
// configured anchor id.
var ErrAnchorNotFound = errors.New("anchor element not found")

// Renderer mounts fragments after one anchor element.
type Renderer struct {
	anchorID string
	mounted  []*html.Node
}

// New creates a Renderer for the element with the given id.
func New(anchorID string) *Renderer {
	return &Renderer{anchorID: anchorID}
}

// AnchorID returns the id of the anchor element.
func (r *Renderer) AnchorID() string {
	return r.anchorID
}

// TemplateSource returns the anchor element's inner content. Raw text
// containers such as <script> yield their text unescaped.
func (r *Renderer) TemplateSource(doc *html.Node) (string, error) {
	anchor := FindByID(doc, r.anchorID)
	if anchor == nil {
		return "", fmt.Errorf("%w: #%s", ErrAnchorNotFound, r.anchorID)
	}

	var b strings.Builder
	for c := anchor.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && isRawText(anchor) {
			b.WriteString(c.Data)
			continue
		}
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("render template source: %w", err)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// Mount replaces any earlier render with fragment, inserted immediately
// after the anchor. Images left without a source are dropped.
func (r *Renderer) Mount(doc *html.Node, fragment string) error {
	anchor := FindByID(doc, r.anchorID)
	if anchor == nil || anchor.Parent == nil {
		return fmt.Errorf("%w: #%s", ErrAnchorNotFound, r.anchorID)
	}
	parent := anchor.Parent

	nodes, err := html.ParseFragment(strings.NewReader(fragment), fragmentContext(parent))
	if err != nil {
		return fmt.Errorf("parse fragment: %w", err)
	}

	r.unmount(parent)

	next := anchor.NextSibling
	for _, n := range nodes {
		switch n.Type {
		case html.ElementNode:
		case html.TextNode:
			if strings.TrimSpace(n.Data) == "" {
				continue
			}
			n = wrapText(n)
		default:
			continue
		}
		setAttr(n, MarkerAttr, r.anchorID)
		parent.InsertBefore(n, next)
		r.mounted = append(r.mounted, n)
	}

	r.dropEmptyImages()
	return nil
}

// Mounted returns the top-level nodes of the current render.
func (r *Renderer) Mounted() []*html.Node {
	return append([]*html.Node(nil), r.mounted...)
}

// unmount removes the previous render, including marked siblings left by
// another Renderer for the same anchor.
func (r *Renderer) unmount(parent *html.Node) {
	for _, n := range r.mounted {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	r.mounted = r.mounted[:0]

	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && attr(c, MarkerAttr) == r.anchorID {
			parent.RemoveChild(c)
		}
		c = next
	}
}

func (r *Renderer) dropEmptyImages() {
	kept := r.mounted[:0]
	for _, n := range r.mounted {
		if isEmptyImage(n) {
			n.Parent.RemoveChild(n)
			continue
		}
		removeEmptyImages(n)
		kept = append(kept, n)
	}
	r.mounted = kept
}

func removeEmptyImages(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if isEmptyImage(c) {
			n.RemoveChild(c)
		} else {
			removeEmptyImages(c)
		}
		c = next
	}
}

func isEmptyImage(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Img && strings.TrimSpace(attr(n, "src")) == ""
}

// FindByID returns the first element in document order with the given id.
func FindByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FindByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func fragmentContext(parent *html.Node) *html.Node {
	if parent.Type == html.ElementNode {
		return parent
	}
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

func wrapText(n *html.Node) *html.Node {
	span := &html.Node{Type: html.ElementNode, Data: "span", DataAtom: atom.Span}
	span.AppendChild(n)
	return span
}

func isRawText(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Textarea, atom.Xmp, atom.Noscript:
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
