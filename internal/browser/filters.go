// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browser

import (
	"fmt"
	"strings"

	"github.com/pdiddy/fare-scout/internal/timewindow"
)

// filterStep is one best-effort interaction: click the first visible
// element matching any selector, then optionally narrow a time range and
// close the open panel.
type filterStep struct {
	Name      string
	Selectors []string
	Range     *timewindow.Window
}

// closeSelectors dismiss an open filter panel.
var closeSelectors = []string{
	`button[aria-label*="Close"]`,
	`button[aria-label*="Done"]`,
	`button[aria-label*="Apply"]`,
}

// filterPlan lists the interactions for f, in order.
func filterPlan(f Filters) []filterStep {
	var steps []filterStep

	if f.Airline != "" {
		code := strings.ToUpper(f.Airline)
		sels := []string{fmt.Sprintf(`[data-value="%s"]`, code)}
		if f.AirlineName != "" {
			name := f.AirlineName
			sels = append(sels,
				fmt.Sprintf(`button[aria-label*="%s"]`, name),
				fmt.Sprintf(`[aria-label*="%s"]`, name),
				fmt.Sprintf(`label[for*="%s"]`, strings.ToLower(name)),
			)
		}
		steps = append(steps, filterStep{Name: "airline", Selectors: sels})
	}

	if f.Cabin != "" {
		steps = append(steps, filterStep{Name: "cabin", Selectors: cabinSelectors(f.Cabin)})
	}

	if f.Outbound != nil {
		steps = append(steps, filterStep{
			Name: "outbound-time",
			Selectors: []string{
				`[aria-label*="Departure time"]`,
				`[data-testid*="departure-time"]`,
				`button[aria-label*="Times"]`,
				`[aria-label*="Outbound"]`,
				`button[aria-label*="Departure"]`,
			},
			Range: f.Outbound,
		})
	}
	if f.Return != nil {
		steps = append(steps, filterStep{
			Name: "return-time",
			Selectors: []string{
				`[aria-label*="Return time"]`,
				`[data-testid*="return-time"]`,
				`button[aria-label*="Return Times"]`,
				`[aria-label*="Return"]`,
			},
			Range: f.Return,
		})
	}
	return steps
}

func cabinSelectors(cabin string) []string {
	c := strings.ToLower(strings.TrimSpace(cabin))
	switch c {
	case "main", "economy", "coach":
		return []string{
			`[data-value="COACH"]`,
			`[aria-label*="Main"]`,
			`[aria-label*="Economy"]`,
			`button[aria-label*="Main"]`,
		}
	}
	title := strings.ToUpper(c[:1]) + c[1:]
	return []string{
		fmt.Sprintf(`[data-value="%s"]`, strings.ToUpper(c)),
		fmt.Sprintf(`[aria-label*="%s"]`, title),
	}
}
