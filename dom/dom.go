// Package dom is a small mutable HTML document used to assemble pages on the
// server. Views produce markup, controllers query and change the resulting
// tree through stable data-testid and id attributes, and the server writes it
// out once the request has been handled.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const TestIDAttr = "data-testid"

type Document struct {
	root *html.Node
}

// Parse builds a document out of a full HTML page.
func Parse(markup string) (*Document, error) {
	n, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return &Document{root: n}, nil
}

// MustParse is Parse for markup known to be well formed.
func MustParse(markup string) *Document {
	d, err := Parse(markup)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Document) Body() *Element {
	return d.find(func(n *html.Node) bool { return n.DataAtom == atom.Body })
}

// ByID returns the first element with the given id, or nil.
func (d *Document) ByID(id string) *Element {
	if id == "" {
		return nil
	}
	return d.find(func(n *html.Node) bool { return attr(n, "id") == id })
}

// ByTestID returns the first element carrying data-testid=id, or nil.
func (d *Document) ByTestID(id string) *Element {
	if id == "" {
		return nil
	}
	return d.find(func(n *html.Node) bool { return attr(n, TestIDAttr) == id })
}

func (d *Document) AllByTestID(id string) []*Element {
	return d.findAll(func(n *html.Node) bool { return attr(n, TestIDAttr) == id })
}

// AllWithAttr returns every element that carries key, whatever its value.
func (d *Document) AllWithAttr(key string) []*Element {
	return d.findAll(func(n *html.Node) bool { return hasAttr(n, key) })
}

func (d *Document) AllByTag(tag string) []*Element {
	a := atom.Lookup([]byte(tag))
	return d.findAll(func(n *html.Node) bool { return n.DataAtom == a && a != 0 })
}

// Text is the concatenated text content of the whole document.
func (d *Document) Text() string {
	return textOf(d.root)
}

func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func (d *Document) find(match func(*html.Node) bool) *Element {
	return (&Element{n: d.root}).find(match)
}

func (d *Document) findAll(match func(*html.Node) bool) []*Element {
	return (&Element{n: d.root}).findAll(match)
}

type Element struct {
	n *html.Node
}

func (e *Element) Tag() string {
	return e.n.Data
}

func (e *Element) Attr(key string) string {
	return attr(e.n, key)
}

func (e *Element) HasAttr(key string) bool {
	return hasAttr(e.n, key)
}

func (e *Element) SetAttr(key, value string) {
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == key {
			e.n.Attr[i].Val = value
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: key, Val: value})
}

func (e *Element) RemoveAttr(key string) {
	e.n.Attr = slices.DeleteFunc(e.n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

func (e *Element) Classes() []string {
	return strings.Fields(e.Attr("class"))
}

func (e *Element) HasClass(class string) bool {
	return slices.Contains(e.Classes(), class)
}

func (e *Element) AddClass(class string) {
	if e.HasClass(class) {
		return
	}
	e.SetAttr("class", strings.Join(append(e.Classes(), class), " "))
}

func (e *Element) RemoveClass(class string) {
	if !e.HasClass(class) {
		return
	}
	classes := slices.DeleteFunc(e.Classes(), func(c string) bool { return c == class })
	if len(classes) == 0 {
		e.RemoveAttr("class")
		return
	}
	e.SetAttr("class", strings.Join(classes, " "))
}

// Style returns the inline value of a CSS property, or "".
func (e *Element) Style(property string) string {
	for _, decl := range strings.Split(e.Attr("style"), ";") {
		name, value, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(name) == property {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// SetStyle sets one inline CSS property, keeping the others.
func (e *Element) SetStyle(property, value string) {
	decls := make([]string, 0)
	found := false
	for _, decl := range strings.Split(e.Attr("style"), ";") {
		name, _, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(name) == property {
			decl = property + ": " + value
			found = true
		}
		decls = append(decls, strings.TrimSpace(decl))
	}
	if !found {
		decls = append(decls, property+": "+value)
	}
	e.SetAttr("style", strings.Join(decls, "; "))
}

// Display is the element's inline display value.
func (e *Element) Display() string {
	return e.Style("display")
}

func (e *Element) SetDisplay(value string) {
	e.SetStyle("display", value)
}

func (e *Element) Text() string {
	return textOf(e.n)
}

// InnerHTML renders the element's children.
func (e *Element) InnerHTML() string {
	var buf bytes.Buffer
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

// SetInnerHTML replaces the element's children with parsed markup.
func (e *Element) SetInnerHTML(markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.n)
	if err != nil {
		return fmt.Errorf("parsing fragment: %w", err)
	}
	e.Clear()
	for _, n := range nodes {
		e.n.AppendChild(n)
	}
	return nil
}

// SetText replaces the element's children with one text node.
func (e *Element) SetText(text string) {
	e.Clear()
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Clear removes every child of the element.
func (e *Element) Clear() {
	for c := e.n.FirstChild; c != nil; c = e.n.FirstChild {
		e.n.RemoveChild(c)
	}
}

func (e *Element) ByTestID(id string) *Element {
	return e.find(func(n *html.Node) bool { return attr(n, TestIDAttr) == id })
}

// ByClass returns the first descendant carrying class, or nil.
func (e *Element) ByClass(class string) *Element {
	return e.find(func(n *html.Node) bool {
		return slices.Contains(strings.Fields(attr(n, "class")), class)
	})
}

func (e *Element) AllByTag(tag string) []*Element {
	a := atom.Lookup([]byte(tag))
	return e.findAll(func(n *html.Node) bool { return n.DataAtom == a && a != 0 })
}

func (e *Element) find(match func(*html.Node) bool) *Element {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil && found == nil; c = c.NextSibling {
			if c.Type == html.ElementNode && match(c) {
				found = c
				return
			}
			walk(c)
		}
	}
	walk(e.n)
	if found == nil {
		return nil
	}
	return &Element{n: found}
}

func (e *Element) findAll(match func(*html.Node) bool) []*Element {
	var out []*Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && match(c) {
				out = append(out, &Element{n: c})
			}
			walk(c)
		}
	}
	walk(e.n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
