// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"net/url"
	"strings"

	"github.com/pdiddy/fare-scout/internal/signal"
	"github.com/pdiddy/fare-scout/pkg/types"
)

const (
	// DefaultAggregatorURL is the Google Flights search page.
	DefaultAggregatorURL = "https://www.google.com/travel/flights"

	deltaSearchURL = "https://www.delta.com/flight-search/book-a-flight"
)

// DefaultCarrierSites returns the carrier-direct search pages known out of
// the box.
func DefaultCarrierSites() map[string]string {
	return map[string]string{"DL": deltaSearchURL}
}

// CarrierURL builds a carrier-direct search URL for q on base.
func CarrierURL(base string, q types.ItineraryQuery) string {
	v := url.Values{}
	v.Set("tripType", "oneWay")
	v.Set("origin", q.Origin)
	v.Set("destination", q.Destination)
	v.Set("departureDate", q.OutboundDate)
	if q.RoundTrip() {
		v.Set("tripType", "roundTrip")
		v.Set("returnDate", q.ReturnDate)
	}
	v.Set("passengers", "1")
	return withQuery(base, v)
}

// AggregatorURL builds the natural-language aggregator search for q.
// airline is the display name used as the query prefix and may be empty.
func AggregatorURL(base string, q types.ItineraryQuery, airline string) string {
	var b strings.Builder
	if airline != "" {
		b.WriteString(airline + " ")
	}
	b.WriteString("Flights to " + q.Destination + " from " + q.Origin + " on " + q.OutboundDate)
	if q.RoundTrip() {
		b.WriteString(" round trip return " + q.ReturnDate)
	} else {
		b.WriteString(" oneway")
	}

	v := url.Values{}
	v.Set("hl", "en")
	v.Set("q", b.String())
	return withQuery(base, v)
}

// VerificationURLs returns links a human can open to cross-check a fare:
// an aggregator query and, when the carrier has a known site, the
// carrier-direct search. They depend only on query fields.
func VerificationURLs(q types.ItineraryQuery, cfg types.DiscoveryConfig) []string {
	q = q.Normalize()
	carrier := queryCarrier(q)

	terms := []string{q.Origin, "to", q.Destination, q.OutboundDate}
	if q.RoundTrip() {
		terms = append(terms, q.ReturnDate)
	}
	if name := DisplayName(carrier); name != "" {
		terms = append(terms, name)
	}
	v := url.Values{}
	v.Set("f", "0")
	v.Set("gl", "us")
	v.Set("hl", "en")
	v.Set("curr", "USD")
	v.Set("q", strings.Join(terms, " "))

	urls := []string{withQuery(aggregatorBase(cfg), v)}
	if site, ok := carrierSite(cfg, carrier); ok {
		urls = append(urls, CarrierURL(site, q))
	}
	return urls
}

// DisplayName returns the carrier's short name in title case ("Delta",
// "Sun Country"), or the bare code for unknown carriers.
func DisplayName(c signal.Carrier) string {
	if c.Short == "" {
		return c.Code
	}
	words := strings.Fields(c.Short)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// queryCarrier resolves the carrier from the airline code, else from the
// first flight number's prefix.
func queryCarrier(q types.ItineraryQuery) signal.Carrier {
	return signal.Compile(q).Carrier()
}

func carrierSite(cfg types.DiscoveryConfig, c signal.Carrier) (string, bool) {
	if c.Code == "" {
		return "", false
	}
	sites := cfg.CarrierSites
	if sites == nil {
		sites = DefaultCarrierSites()
	}
	// Config loaders may lower-case map keys.
	for code, site := range sites {
		if strings.EqualFold(code, c.Code) && site != "" {
			return site, true
		}
	}
	return "", false
}

func aggregatorBase(cfg types.DiscoveryConfig) string {
	if cfg.AggregatorURL != "" {
		return cfg.AggregatorURL
	}
	return DefaultAggregatorURL
}

func withQuery(base string, v url.Values) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + v.Encode()
}
