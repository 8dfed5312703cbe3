package models

const DefaultCurrency = "USD"

// ScrapedProduct is the result of scraping a single product URL.
// It is never persisted directly.
type ScrapedProduct struct {
	Title    *string  `json:"title"`
	Price    *float64 `json:"price"`
	Currency string   `json:"currency"`
	ImageURL *string  `json:"image_url"`
	Merchant *string  `json:"merchant"`
	Success  bool     `json:"success"`
	Error    string   `json:"error,omitempty"`
}

// NewFailedScrape returns a failure result. Merchant may be nil.
func NewFailedScrape(merchant *string, err error) *ScrapedProduct {
	msg := "Unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &ScrapedProduct{
		Currency: DefaultCurrency,
		Merchant: merchant,
		Success:  false,
		Error:    msg,
	}
}

// HasPrice reports whether the scrape succeeded and found a price.
func (p *ScrapedProduct) HasPrice() bool {
	return p != nil && p.Success && p.Price != nil
}
