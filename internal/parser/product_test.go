package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *float64
	}{
		{"dollar with thousands separator", "$1,299.00", floatPtr(1299)},
		{"euro decimal comma is stripped", "€129,99", floatPtr(12999)},
		{"trailing currency code", "1200.50 USD", floatPtr(1200.5)},
		{"pound with spaces", "£ 45.50", floatPtr(45.5)},
		{"yen", "¥3000", floatPtr(3000)},
		{"rupee with nbsp", "₹ 2,499", floatPtr(2499)},
		{"narrow no-break space thousands", "1\u202F299 €", floatPtr(1299)},
		{"thin space thousands", "$1\u2009299.50", floatPtr(1299.5)},
		{"figure space before currency", "\u2007£89.00", floatPtr(89)},
		{"trailing dot", "19.", floatPtr(19)},
		{"text around number", "Now only 24.95!", floatPtr(24.95)},
		{"no numbers", "no numbers here", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParsePrice(tt.input)
			if tt.expected == nil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.InDelta(t, *tt.expected, *result, 0.0001)
		})
	}
}

func TestExtractPrice(t *testing.T) {
	p := NewProductParser()

	t.Run("open graph price wins over other selectors", func(t *testing.T) {
		html := `<html><head>
			<meta property="og:price:amount" content="249.99">
		</head><body>
			<span itemprop="price" content="10.00">$10.00</span>
			<div class="price">$5.00</div>
		</body></html>`

		result := p.Parse(html, "https://shop.example.com/product/1")
		require.NotNil(t, result.Price)
		assert.Equal(t, 249.99, *result.Price)
	})

	t.Run("product price meta when og missing", func(t *testing.T) {
		html := `<meta property="product:price:amount" content="$1,050.00">`

		result := p.Parse(html, "https://shop.example.com/product/1")
		require.NotNil(t, result.Price)
		assert.Equal(t, 1050.0, *result.Price)
	})

	t.Run("unparseable og price falls through to schema.org", func(t *testing.T) {
		html := `<meta property="og:price:amount" content="call us">
			<span itemprop="price">$89.00</span>`

		result := p.Parse(html, "https://shop.example.com/product/1")
		require.NotNil(t, result.Price)
		assert.Equal(t, 89.0, *result.Price)
	})

	t.Run("schema.org content attribute preferred over text", func(t *testing.T) {
		html := `<span itemprop="price" content="39.5">Sale! $29.99</span>`

		result := p.Parse(html, "https://shop.example.com/product/1")
		require.NotNil(t, result.Price)
		assert.Equal(t, 39.5, *result.Price)
	})

	t.Run("generic selectors in order", func(t *testing.T) {
		html := `<div id="main-price">$77.00</div><p class="product-price-label">$12.00</p>`

		result := p.Parse(html, "https://shop.example.com/product/1")
		require.NotNil(t, result.Price)
		assert.Equal(t, 12.0, *result.Price, "[class*=price] is tried before [id*=price]")
	})

	t.Run("first generic selector without a number is skipped", func(t *testing.T) {
		html := `<div class="price">Price on request</div><div id="price-box">€ 15</div>`

		result := p.Parse(html, "https://shop.example.com/product/1")
		require.NotNil(t, result.Price)
		assert.Equal(t, 15.0, *result.Price)
	})

	t.Run("no price anywhere", func(t *testing.T) {
		result := p.Parse(`<p>Nothing to see</p>`, "https://shop.example.com/product/1")
		assert.Nil(t, result.Price)
	})
}

func TestExtractTitle(t *testing.T) {
	p := NewProductParser()

	tests := []struct {
		name     string
		html     string
		url      string
		expected string
	}{
		{
			name:     "open graph title trimmed",
			html:     `<meta property="og:title" content="  Noise Cancelling Headphones  "><title>Ignored</title>`,
			url:      "https://www.example.com/p/1",
			expected: "Noise Cancelling Headphones",
		},
		{
			name:     "blank og title falls back to twitter",
			html:     `<meta property="og:title" content="   "><meta name="twitter:title" content="Desk Lamp">`,
			url:      "https://www.example.com/p/1",
			expected: "Desk Lamp",
		},
		{
			name:     "page title pipe suffix stripped",
			html:     `<title>Echo Dot (5th Gen) | Amazon.com</title>`,
			url:      "https://www.amazon.com/dp/B09B8V1LZ3",
			expected: "Echo Dot (5th Gen)",
		},
		{
			name:     "page title dash suffix stripped",
			html:     `<title>Vintage Camera - eBay</title>`,
			url:      "https://www.ebay.com/itm/1",
			expected: "Vintage Camera",
		},
		{
			name:     "hyphenated words are kept",
			html:     `<title>Wi-Fi Router</title>`,
			url:      "https://example.com/a/b",
			expected: "Wi-Fi Router",
		},
		{
			name:     "first h1",
			html:     `<body><h1> Standing Desk </h1><h1>Other</h1></body>`,
			url:      "https://example.com/a/b",
			expected: "Standing Desk",
		},
		{
			name:     "hostname fallback without www",
			html:     `<body><p>empty</p></body>`,
			url:      "https://www.store.example.com/a/b",
			expected: "Product from store.example.com",
		},
		{
			name:     "unparseable url",
			html:     ``,
			url:      "not a url",
			expected: "Unknown Product",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := p.Parse(tt.html, tt.url)
			require.NotNil(t, result.Title)
			assert.Equal(t, tt.expected, *result.Title)
		})
	}
}

func TestExtractCurrency(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{"og currency upper-cased", `<meta property="og:price:currency" content="eur">`, "EUR"},
		{"product currency", `<meta property="product:price:currency" content="GBP">`, "GBP"},
		{"schema.org currency", `<meta itemprop="priceCurrency" content="jpy">`, "JPY"},
		{"default", `<p>plain</p>`, "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewDocument(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ExtractCurrency(doc))
		})
	}
}

func TestExtractImage(t *testing.T) {
	p := NewProductParser()
	source := "https://shop.example.com/products/lamp?ref=home"

	tests := []struct {
		name     string
		html     string
		expected *string
	}{
		{
			name:     "absolute og image passes through",
			html:     `<meta property="og:image" content="https://cdn.example.com/lamp.jpg">`,
			expected: strPtr("https://cdn.example.com/lamp.jpg"),
		},
		{
			name:     "relative og image resolved against origin",
			html:     `<meta property="og:image" content="/images/lamp.jpg">`,
			expected: strPtr("https://shop.example.com/images/lamp.jpg"),
		},
		{
			name:     "path-relative image resolved against origin root",
			html:     `<meta name="twitter:image" content="images/lamp.jpg">`,
			expected: strPtr("https://shop.example.com/images/lamp.jpg"),
		},
		{
			name:     "schema.org image src",
			html:     `<img itemprop="image" src="/media/lamp.png">`,
			expected: strPtr("https://shop.example.com/media/lamp.png"),
		},
		{
			name:     "product image container",
			html:     `<div class="product-image"><img src="/a.jpg"></div>`,
			expected: strPtr("https://shop.example.com/a.jpg"),
		},
		{
			name:     "lazy image uses data-src",
			html:     `<div class="main-product-gallery"><img data-src="/lazy.jpg"></div>`,
			expected: strPtr("https://shop.example.com/lazy.jpg"),
		},
		{
			name:     "alt text match ignores case",
			html:     `<img src="/logo.png" alt="Logo"><img src="/hero.jpg" alt="Our PRODUCT shot">`,
			expected: strPtr("https://shop.example.com/hero.jpg"),
		},
		{
			name:     "no image",
			html:     `<p>text only</p>`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := p.Parse(tt.html, source)
			if tt.expected == nil {
				assert.Nil(t, result.ImageURL)
				return
			}
			require.NotNil(t, result.ImageURL)
			assert.Equal(t, *tt.expected, *result.ImageURL)
		})
	}
}

func TestMakeAbsoluteURL(t *testing.T) {
	assert.Equal(t, "http://a.com/x.png", MakeAbsoluteURL("http://a.com/x.png", "https://b.com/p"))
	assert.Equal(t, "https://b.com/x.png", MakeAbsoluteURL("/x.png", "https://b.com/deep/path"))
	assert.Equal(t, "https://cdn.b.com/x.png", MakeAbsoluteURL("//cdn.b.com/x.png", "https://b.com/"))
	assert.Equal(t, "/x.png", MakeAbsoluteURL("/x.png", "::not a base::"))
}

func TestExtractMerchant(t *testing.T) {
	tests := []struct {
		url      string
		expected *string
	}{
		{"https://www.amazon.com/dp/B000", strPtr("Amazon")},
		{"https://www.ebay.co.uk/itm/1", strPtr("eBay")},
		{"https://etsy.com/listing/1", strPtr("Etsy")},
		{"https://www.walmart.com/ip/1", strPtr("Walmart")},
		{"https://www.target.com/p/1", strPtr("Target")},
		{"https://www.bestbuy.com/site/1", strPtr("Best Buy")},
		{"https://www.ikea.com/us/en/p/lamp", strPtr("Ikea")},
		{"https://shop.example.com/a", strPtr("Shop")},
		{"not a url", nil},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			result := ExtractMerchant(tt.url)
			if tt.expected == nil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, *tt.expected, *result)
		})
	}
}

func TestIsLikelyProductURL(t *testing.T) {
	tests := []struct {
		url      string
		expected bool
	}{
		{"https://shop.example.com/product/123", true},
		{"https://shop.example.com/", false},
		{"https://shop.example.com/a/b", true},
		{"https://shop.example.com/category", false},
		{"https://www.amazon.com/DP/B000", true},
		{"https://example.com/p/42", true},
		{"https://example.com/listing/42", true},
		{"not a url", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsLikelyProductURL(tt.url))
		})
	}
}

func TestParseMalformedHTML(t *testing.T) {
	p := NewProductParser()

	result := p.Parse(`<html><head><title>Broken</title><body><div class="price">$9.99<span><b>`, "https://www.example.com/item/9")

	require.NotNil(t, result.Title)
	assert.Equal(t, "Broken", *result.Title)
	require.NotNil(t, result.Price)
	assert.Equal(t, 9.99, *result.Price)
	assert.Equal(t, "USD", result.Currency)
	require.NotNil(t, result.Merchant)
	assert.Equal(t, "Example", *result.Merchant)
}

func floatPtr(f float64) *float64 {
	return &f
}

func strPtr(s string) *string {
	return &s
}
