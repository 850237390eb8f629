// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package candidate

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/fare-scout/internal/money"
	"github.com/pdiddy/fare-scout/pkg/types"
)

// Strategy is one structural query over a page snapshot. Extract returns
// the valid candidates and the number of elements it examined.
type Strategy struct {
	Name    string
	Extract func(doc *goquery.Document) ([]types.PriceRecord, int)
}

// DefaultStrategies returns the fallback strategies, most specific first.
func DefaultStrategies() []Strategy {
	return []Strategy{
		AttrStrategy("button-aria-label", `[role="button"][aria-label*="$"]`, "aria-label"),
		AttrStrategy("span-aria-label", `span[aria-label*="$"]`, "aria-label"),
		TextStrategy("flight-node-text", `[data-testid*="flight"] *`, func(text string) bool {
			return money.Contains(text) && len(text) < 50
		}),
		TextStrategy("result-node-text", `.pIav2d *, .yR1fYc *, [jsname="gGwBYd"] *`, money.Contains),
		AttrStrategy("data-value", `[data-value]`, "data-value"),
	}
}

// AttrStrategy reads the fare from an attribute of each selected element.
func AttrStrategy(name, selector, attr string) Strategy {
	return Strategy{
		Name: name,
		Extract: func(doc *goquery.Document) ([]types.PriceRecord, int) {
			var records []types.PriceRecord
			n := 0
			doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
				if i >= defaultMaxElements {
					return false
				}
				n++
				v, ok := s.Attr(attr)
				if !ok || v == "" {
					return true
				}
				if amount, ok := money.Parse(v); ok {
					records = append(records, types.PriceRecord{Amount: amount, SourceText: v, Strategy: name})
				}
				return true
			})
			return records, n
		},
	}
}

// TextStrategy reads the fare from the text of each selected element that
// passes keep.
func TextStrategy(name, selector string, keep func(string) bool) Strategy {
	return Strategy{
		Name: name,
		Extract: func(doc *goquery.Document) ([]types.PriceRecord, int) {
			var records []types.PriceRecord
			n := 0
			doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
				if i >= defaultMaxElements {
					return false
				}
				n++
				text := strings.TrimSpace(visibleText(s))
				if text == "" || !strings.Contains(text, "$") {
					return true
				}
				amount, ok := money.Parse(text)
				if !ok || (keep != nil && !keep(text)) {
					return true
				}
				records = append(records, types.PriceRecord{Amount: amount, SourceText: text, Strategy: name})
				return true
			})
			return records, n
		},
	}
}
