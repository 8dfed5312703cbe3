package parser

// Extracted holds the product fields found on a page.
type Extracted struct {
	Title    *string
	Price    *float64
	Currency string
	ImageURL *string
	Merchant *string
}

type Parser interface {
	Parse(html string, sourceURL string) Extracted
	Extract(doc Document, sourceURL string) Extracted
}
