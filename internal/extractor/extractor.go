package extractor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricewatch/internal/logging"
	"pricewatch/pkg/utils"
)

// ErrNoCandidate is returned when the search results contain no product link
// carrying the searched identifier. A result page full of unrelated products
// must never be treated as a match.
var ErrNoCandidate = errors.New("no candidate link contains the identifier")

// Extractor applies a site profile's selector strategies to scraped HTML.
type Extractor struct {
	profile *Profile
	log     logging.Logger
}

func New(profile *Profile) *Extractor {
	return &Extractor{
		profile: profile,
		log:     logging.GetGlobalLogger(),
	}
}

// SearchURL builds the site's search URL for a product identifier.
func (e *Extractor) SearchURL(identifier string) string {
	return fmt.Sprintf(e.profile.SearchURL, identifier)
}

// Candidate is a validated search hit: the product link whose URL contained
// the identifier, plus whatever the result card itself already exposed.
type Candidate struct {
	URL   string
	Price *float64
	Name  string
}

// Search scans a search results page for a product link whose URL contains
// the identifier. Strategies run in profile order; within a strategy links
// are checked in document order. The identifier check is strict: a link
// without the identifier in it is skipped even if it is the only result.
// When a match is found the price strategies also run against the hit's card
// so a price shown in the listing saves the detail page fetch.
func (e *Extractor) Search(html, identifier string) (*Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	for _, strategy := range e.profile.Candidates {
		var cand *Candidate
		doc.Find(strategy.Selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, ok := sel.Attr("href")
			if !ok || href == "" {
				return true
			}
			if !strings.Contains(href, identifier) {
				return true
			}
			cand = &Candidate{URL: e.resolveURL(href)}
			if e.profile.Card != "" {
				if card := sel.Closest(e.profile.Card); card.Length() > 0 {
					cand.Price = e.priceFrom(card)
					if cand.Price != nil {
						cand.Name = utils.NormalizeWhitespace(sel.Text())
					}
				}
			}
			return false
		})
		if cand != nil {
			e.log.Debug("Candidate link located", map[string]interface{}{
				"site":       e.profile.Name,
				"strategy":   strategy.Name,
				"identifier": identifier,
				"card_price": cand.Price != nil,
			})
			return cand, nil
		}
	}

	return nil, ErrNoCandidate
}

// ExtractDetail pulls price and product name from a product detail page.
// A missing price is not an error; it comes back nil and the caller decides
// whether the URL alone is worth keeping.
func (e *Extractor) ExtractDetail(html string) (*float64, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse product page: %w", err)
	}

	price := e.priceFrom(doc.Selection)

	name := ""
	for _, strategy := range e.profile.Names {
		// card and heading markup tends to carry stray newlines and
		// indentation, so names get collapsed to single spaces
		if text := utils.NormalizeWhitespace(doc.Find(strategy.Selector).First().Text()); text != "" {
			name = text
			break
		}
	}

	return price, name, nil
}

// priceFrom runs the profile's price strategies, in order, scoped to the
// given selection and returns the first value that parses.
func (e *Extractor) priceFrom(scope *goquery.Selection) *float64 {
	for _, strategy := range e.profile.Prices {
		sel := scope.Find(strategy.Selector).First()
		if sel.Length() == 0 {
			continue
		}

		raw := ""
		if strategy.Attr != "" {
			raw, _ = sel.Attr(strategy.Attr)
		} else {
			raw = sel.Text()
		}

		if v, ok := ParsePrice(raw); ok {
			e.log.Debug("Price extracted", map[string]interface{}{
				"site":     e.profile.Name,
				"strategy": strategy.Name,
				"price":    v,
			})
			return &v
		}
		e.log.Debug("Price text did not parse", map[string]interface{}{
			"site":     e.profile.Name,
			"strategy": strategy.Name,
			"raw":      utils.TruncateForLog(raw, 80),
		})
	}
	return nil
}

// resolveURL absolutizes relative hrefs against the site's base URL.
func (e *Extractor) resolveURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return e.profile.BaseURL + "/" + strings.TrimPrefix(href, "/")
}
