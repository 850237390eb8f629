// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package signal

import "strings"

// Carrier names a marketing carrier. Short is the word a results page uses
// next to a flight number ("Delta 1623").
type Carrier struct {
	Code  string
	Name  string
	Short string
}

var carriers = map[string]Carrier{
	"AA": {"AA", "American Airlines", "american"},
	"AS": {"AS", "Alaska Airlines", "alaska"},
	"B6": {"B6", "JetBlue", "jetblue"},
	"DL": {"DL", "Delta Air Lines", "delta"},
	"F9": {"F9", "Frontier Airlines", "frontier"},
	"G4": {"G4", "Allegiant Air", "allegiant"},
	"HA": {"HA", "Hawaiian Airlines", "hawaiian"},
	"NK": {"NK", "Spirit Airlines", "spirit"},
	"SY": {"SY", "Sun Country Airlines", "sun country"},
	"UA": {"UA", "United Airlines", "united"},
	"WN": {"WN", "Southwest Airlines", "southwest"},
	"AC": {"AC", "Air Canada", "air canada"},
}

// LookupCarrier returns the carrier for a two-character code. Unknown codes
// yield a Carrier with only Code set.
func LookupCarrier(code string) (Carrier, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	c, ok := carriers[code]
	if !ok {
		return Carrier{Code: code}, false
	}
	return c, true
}
