package parser

import (
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/maltedev/wishlist-tracker/internal/models"
)

var ErrInvalidURL = errors.New("invalid URL")

var (
	priceNoisePattern  = regexp.MustCompile(`[$€£¥₹,\s\p{Z}]`)
	priceNumberPattern = regexp.MustCompile(`\d+\.?\d*`)
	titleSuffixPattern = regexp.MustCompile(`\s+[|-]\s+.+$`)
	leadingWWWPattern  = regexp.MustCompile(`^www\.`)
)

var productPathMarkers = []string{"/product/", "/item/", "/p/", "/dp/", "/listing/"}

var genericPriceSelectors = []string{
	".price",
	`[class*="price"]`,
	`[id*="price"]`,
	`span[class*="Price"]`,
}

var knownMerchants = map[string]string{
	"amazon":  "Amazon",
	"ebay":    "eBay",
	"etsy":    "Etsy",
	"walmart": "Walmart",
	"target":  "Target",
	"bestbuy": "Best Buy",
}

// imageSource finds a candidate image element in a document.
type imageSource func(doc Document) Node

// ProductParser extracts product metadata from arbitrary merchant pages using
// ordered fallback strategies. The first strategy that yields a value wins.
type ProductParser struct {
	titleRules []func(doc Document) (string, bool)
	priceRules []func(doc Document) (*float64, bool)
	imageRules []func(doc Document) (string, bool)
	imageNodes []imageSource
}

func NewProductParser() *ProductParser {
	return &ProductParser{
		titleRules: []func(Document) (string, bool){
			metaContent(`meta[property="og:title"]`),
			metaContent(`meta[name="twitter:title"]`),
			pageTitle,
			firstHeading,
		},
		priceRules: []func(Document) (*float64, bool){
			openGraphPrice,
			schemaPrice,
			genericPrice,
		},
		imageRules: []func(Document) (string, bool){
			rawAttr(`meta[property="og:image"]`, "content"),
			rawAttr(`meta[name="twitter:image"]`, "content"),
			schemaImage,
		},
		imageNodes: []imageSource{
			first(".product-image img"),
			first(`[class*="product"] img`),
			imgWithAlt("product"),
			imgWithAlt("item"),
		},
	}
}

// Parse parses html and extracts product fields. HTML that cannot be parsed
// still yields URL-derived fields.
func (p *ProductParser) Parse(html string, sourceURL string) Extracted {
	doc, err := NewDocument(html)
	if err != nil {
		doc = emptyDocument{}
	}
	return p.Extract(doc, sourceURL)
}

func (p *ProductParser) Extract(doc Document, sourceURL string) Extracted {
	title := p.ExtractTitle(doc, sourceURL)
	return Extracted{
		Title:    &title,
		Price:    p.ExtractPrice(doc),
		Currency: ExtractCurrency(doc),
		ImageURL: p.ExtractImage(doc, sourceURL),
		Merchant: ExtractMerchant(sourceURL),
	}
}

// ExtractTitle never returns an empty string.
func (p *ProductParser) ExtractTitle(doc Document, sourceURL string) string {
	for _, rule := range p.titleRules {
		if title, ok := rule(doc); ok {
			return title
		}
	}

	u, err := ParseURL(sourceURL)
	if err != nil {
		return "Unknown Product"
	}
	return "Product from " + leadingWWWPattern.ReplaceAllString(u.Hostname(), "")
}

func (p *ProductParser) ExtractPrice(doc Document) *float64 {
	for _, rule := range p.priceRules {
		if price, ok := rule(doc); ok {
			return price
		}
	}
	return nil
}

func (p *ProductParser) ExtractImage(doc Document, sourceURL string) *string {
	for _, rule := range p.imageRules {
		if src, ok := rule(doc); ok {
			abs := MakeAbsoluteURL(src, sourceURL)
			return &abs
		}
	}

	for _, find := range p.imageNodes {
		node := find(doc)
		if node == nil || !node.Exists() {
			continue
		}
		src, _ := node.Attr("src")
		if src == "" {
			src, _ = node.Attr("data-src")
		}
		if src != "" {
			abs := MakeAbsoluteURL(src, sourceURL)
			return &abs
		}
	}

	return nil
}

// ExtractCurrency returns an upper-cased currency code, defaulting to USD.
func ExtractCurrency(doc Document) string {
	if v, ok := rawAttr(`meta[property="og:price:currency"]`, "content")(doc); ok {
		return strings.ToUpper(v)
	}
	if v, ok := rawAttr(`meta[property="product:price:currency"]`, "content")(doc); ok {
		return strings.ToUpper(v)
	}
	if v, ok := rawAttr(`[itemprop="priceCurrency"]`, "content")(doc); ok {
		return strings.ToUpper(v)
	}
	return models.DefaultCurrency
}

// ExtractMerchant derives a display name from the URL host. Returns nil when
// the URL cannot be parsed.
func ExtractMerchant(rawURL string) *string {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil
	}

	host := leadingWWWPattern.ReplaceAllString(u.Hostname(), "")
	domain := strings.SplitN(host, ".", 2)[0]
	if domain == "" {
		return nil
	}

	if name, ok := knownMerchants[strings.ToLower(domain)]; ok {
		return &name
	}

	r, size := utf8.DecodeRuneInString(domain)
	name := string(unicode.ToUpper(r)) + domain[size:]
	return &name
}

// ParsePrice handles formats such as "$123.45", "€123,45" and "123.45 USD".
// Currency symbols, commas and whitespace are removed before the first
// number is read.
func ParsePrice(text string) *float64 {
	cleaned := priceNoisePattern.ReplaceAllString(text, "")
	match := priceNumberPattern.FindString(cleaned)
	if match == "" {
		return nil
	}

	price, err := strconv.ParseFloat(strings.TrimSuffix(match, "."), 64)
	if err != nil {
		return nil
	}
	return &price
}

// IsLikelyProductURL reports whether a URL looks like a product page rather
// than a homepage or category. It is advisory and only gates auto-fill.
func IsLikelyProductURL(rawURL string) bool {
	u, err := ParseURL(rawURL)
	if err != nil {
		return false
	}

	path := strings.ToLower(u.EscapedPath())
	for _, marker := range productPathMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}

	segments := 0
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments++
		}
	}
	return segments >= 2
}

// MakeAbsoluteURL resolves ref against the origin of base. Absolute http(s)
// references and anything that fails to parse are returned unchanged.
func MakeAbsoluteURL(ref, base string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}

	b, err := ParseURL(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	origin := &url.URL{Scheme: b.Scheme, Host: b.Host, Path: "/"}
	return origin.ResolveReference(r).String()
}

// ParseURL accepts only absolute URLs with a scheme and host.
func ParseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, ErrInvalidURL
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidURL
	}
	return u, nil
}

func metaContent(selector string) func(Document) (string, bool) {
	return func(doc Document) (string, bool) {
		v, _ := doc.Find(selector).Attr("content")
		v = strings.TrimSpace(v)
		return v, v != ""
	}
}

func rawAttr(selector, attr string) func(Document) (string, bool) {
	return func(doc Document) (string, bool) {
		v, _ := doc.Find(selector).Attr(attr)
		return v, v != ""
	}
}

func pageTitle(doc Document) (string, bool) {
	title := strings.TrimSpace(doc.Find("title").Text())
	if title == "" {
		return "", false
	}
	// " | Amazon", " - eBay"
	return titleSuffixPattern.ReplaceAllString(title, ""), true
}

func firstHeading(doc Document) (string, bool) {
	h1 := strings.TrimSpace(doc.Find("h1").Text())
	return h1, h1 != ""
}

func openGraphPrice(doc Document) (*float64, bool) {
	v, ok := rawAttr(`meta[property="og:price:amount"]`, "content")(doc)
	if !ok {
		v, ok = rawAttr(`meta[property="product:price:amount"]`, "content")(doc)
	}
	if !ok {
		return nil, false
	}
	price := ParsePrice(v)
	return price, price != nil
}

func schemaPrice(doc Document) (*float64, bool) {
	node := doc.Find(`[itemprop="price"]`)
	if !node.Exists() {
		return nil, false
	}
	v, _ := node.Attr("content")
	if v == "" {
		v = node.Text()
	}
	if v == "" {
		return nil, false
	}
	price := ParsePrice(v)
	return price, price != nil
}

func genericPrice(doc Document) (*float64, bool) {
	for _, selector := range genericPriceSelectors {
		text := doc.Find(selector).Text()
		if text == "" {
			continue
		}
		if price := ParsePrice(text); price != nil {
			return price, true
		}
	}
	return nil, false
}

func schemaImage(doc Document) (string, bool) {
	node := doc.Find(`[itemprop="image"]`)
	if v, _ := node.Attr("content"); v != "" {
		return v, true
	}
	v, _ := node.Attr("src")
	return v, v != ""
}

func first(selector string) imageSource {
	return func(doc Document) Node {
		return doc.Find(selector)
	}
}

// imgWithAlt matches the first <img> whose alt text contains needle,
// ignoring case.
func imgWithAlt(needle string) imageSource {
	return func(doc Document) Node {
		for _, node := range doc.FindAll("img[alt]") {
			alt, _ := node.Attr("alt")
			if strings.Contains(strings.ToLower(alt), needle) {
				return node
			}
		}
		return nil
	}
}
