// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package money recovers fare amounts from loosely formatted page text.
package money

import (
	"regexp"
	"strconv"
	"strings"
)

// Plausibility bounds for a fare, inclusive. Figures outside this range are
// loyalty-point counts, seat counts, or other unrelated numbers.
const (
	MinAmount = 50.0
	MaxAmount = 2000.0
)

var amountRe = regexp.MustCompile(`\$\s?(\d[\d,]*(?:\.\d{2})?)`)

// Parse returns the first currency-formatted amount in text. It reports
// false when text has no amount or the first amount falls outside
// [MinAmount, MaxAmount]; later amounts in the same text are not considered.
func Parse(text string) (float64, bool) {
	m := amountRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if !Plausible(v) {
		return 0, false
	}
	return v, true
}

// Plausible reports whether v lies within the fare bounds.
func Plausible(v float64) bool {
	return v >= MinAmount && v <= MaxAmount
}

// Contains reports whether text holds a short dollar figure of two to four
// digits, the shape of a fare rendered on its own.
func Contains(text string) bool {
	return shortAmountRe.MatchString(text)
}

var shortAmountRe = regexp.MustCompile(`\$\d{2,4}`)
