package structural

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed page with read-only queries. It is built once per
// analysis and never modified.
type Document struct {
	raw  string
	doc  *goquery.Document
	tags map[string]bool
}

// Element is a read-only view of one element.
type Element struct {
	Name string
	node *html.Node
}

// Parse builds a Document from markup. Malformed markup is repaired by the
// HTML5 parsing rules rather than rejected.
func Parse(markup string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	tags, err := startTags(markup)
	if err != nil {
		return nil, fmt.Errorf("tokenize html: %w", err)
	}
	return &Document{raw: markup, doc: doc, tags: tags}, nil
}

// startTags records every start tag name in the raw token stream. Tree
// construction drops some elements (a <frame> outside a frameset, for
// instance), the tokenizer does not.
func startTags(markup string) (map[string]bool, error) {
	tags := make(map[string]bool)
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return tags, nil
			}
			return tags, z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tags[string(name)] = true
		}
	}
}

// Find returns the elements matching a CSS selector, in document order.
func (d *Document) Find(selector string) []Element {
	var out []Element
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if n := s.Get(0); n != nil {
			out = append(out, Element{Name: n.Data, node: n})
		}
	})
	return out
}

// HasTag reports whether a start tag with this name appears in the markup.
func (d *Document) HasTag(name string) bool {
	return d.tags[name]
}

// Contains is a raw, case-sensitive substring search over the markup.
func (d *Document) Contains(substr string) bool {
	return strings.Contains(d.raw, substr)
}

// Title returns the trimmed text of the first <title> element.
func (d *Document) Title() (string, bool) {
	sel := d.doc.Find("title").First()
	if sel.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(sel.Text()), true
}

// Attr returns the value of attribute key.
func (e Element) Attr(key string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasToken reports whether a space-separated attribute such as rel holds value.
func (e Element) HasToken(key, value string) bool {
	v, ok := e.Attr(key)
	if !ok {
		return false
	}
	for _, tok := range strings.Fields(v) {
		if strings.EqualFold(tok, value) {
			return true
		}
	}
	return false
}

// DescendantNames lists the tag names of every element below e.
func (e Element) DescendantNames() []string {
	var names []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				names = append(names, c.Data)
			}
			walk(c)
		}
	}
	walk(e.node)
	return names
}
