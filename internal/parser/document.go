package parser

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is a single element found in a Document.
type Node interface {
	Exists() bool
	Attr(name string) (string, bool)
	Text() string
}

// Document exposes the query surface the extractor needs. Find returns the
// first match in document order; a missing match is a Node whose Exists
// reports false.
type Document interface {
	Find(selector string) Node
	FindAll(selector string) []Node
}

type goqueryDocument struct {
	doc *goquery.Document
}

type goqueryNode struct {
	sel *goquery.Selection
}

// NewDocument parses an HTML string.
func NewDocument(html string) (Document, error) {
	return NewDocumentFromReader(strings.NewReader(html))
}

func NewDocumentFromReader(r io.Reader) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &goqueryDocument{doc: doc}, nil
}

func (d *goqueryDocument) Find(selector string) Node {
	return &goqueryNode{sel: d.doc.Find(selector).First()}
}

func (d *goqueryDocument) FindAll(selector string) []Node {
	var nodes []Node
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &goqueryNode{sel: s})
	})
	return nodes
}

func (n *goqueryNode) Exists() bool {
	return n.sel.Length() > 0
}

func (n *goqueryNode) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n *goqueryNode) Text() string {
	return n.sel.Text()
}

// emptyDocument matches nothing, so every strategy falls through to its
// URL-only fallback.
type emptyDocument struct{}

type missingNode struct{}

func (emptyDocument) Find(string) Node { return missingNode{} }

func (emptyDocument) FindAll(string) []Node { return nil }

func (missingNode) Exists() bool { return false }

func (missingNode) Attr(string) (string, bool) { return "", false }

func (missingNode) Text() string { return "" }
