package extractor

// CandidateStrategy locates product links on a search results page. Strategies
// are tried in order; the first one yielding a link that actually contains the
// searched identifier wins.
type CandidateStrategy struct {
	Name     string
	Selector string
}

// PriceStrategy locates the price on a product detail page. When Attr is set
// the value is read from that attribute instead of the element text, which is
// how schema.org markup exposes machine-readable prices.
type PriceStrategy struct {
	Name     string
	Selector string
	Attr     string
}

// NameStrategy locates the product display name on a detail page.
type NameStrategy struct {
	Name     string
	Selector string
}
