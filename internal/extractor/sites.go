package extractor

import "fmt"

// Profile describes how one retail site is searched and scraped. SearchURL is
// a format string taking the product identifier. Card is the container for
// one search hit; price strategies run inside it before the detail page is
// fetched at all.
type Profile struct {
	Name       string
	BaseURL    string
	SearchURL  string
	Card       string
	Candidates []CandidateStrategy
	Prices     []PriceStrategy
	Names      []NameStrategy
}

var profiles = map[string]*Profile{
	"apodiscounter": {
		Name:      "apodiscounter",
		BaseURL:   "https://www.apodiscounter.de",
		SearchURL: "https://www.apodiscounter.de/search?query=%s",
		Card:      ".product-item",
		Candidates: []CandidateStrategy{
			{Name: "product-tile", Selector: "a.product-item__link"},
			{Name: "search-result", Selector: ".search-results a[href]"},
			{Name: "any-product-link", Selector: "a[href*='/p/'], a[href*='/product/']"},
		},
		Prices: []PriceStrategy{
			{Name: "schema-org", Selector: "meta[itemprop='price']", Attr: "content"},
			{Name: "detail-price", Selector: ".product-detail__price"},
			{Name: "price-amount", Selector: ".price__amount, .price--current"},
		},
		Names: []NameStrategy{
			{Name: "detail-title", Selector: "h1.product-detail__title"},
			{Name: "heading", Selector: "h1"},
		},
	},
	"medicaria": {
		Name:      "medicaria",
		BaseURL:   "https://www.medicaria.de",
		SearchURL: "https://www.medicaria.de/search?q=%s",
		Card:      ".product-card",
		Candidates: []CandidateStrategy{
			{Name: "product-card", Selector: "a.product-card__link"},
			{Name: "listing", Selector: ".product-listing a[href]"},
			{Name: "any-product-link", Selector: "a[href*='/artikel/'], a[href*='/p/']"},
		},
		Prices: []PriceStrategy{
			{Name: "schema-org", Selector: "meta[itemprop='price']", Attr: "content"},
			{Name: "offer-price", Selector: ".offer__price, .product-price"},
			{Name: "price-box", Selector: ".price-box .price"},
		},
		Names: []NameStrategy{
			{Name: "detail-title", Selector: "h1.product-title"},
			{Name: "heading", Selector: "h1"},
		},
	},
}

// ProfileFor returns the extraction profile for a configured site.
func ProfileFor(name string) (*Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("no extraction profile for site %q", name)
	}
	return p, nil
}

// Sites lists the names of all registered site profiles.
func Sites() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	return names
}
