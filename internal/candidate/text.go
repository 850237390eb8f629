// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package candidate

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// visibleText joins the text nodes under s with single spaces. goquery's
// Text concatenates adjacent nodes, which would glue "1623" to "2663".
func visibleText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" || n.Data == "noscript" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// labels collects the aria-label values of s and its descendants. Results
// pages often spell out the whole itinerary there.
func labels(s *goquery.Selection) string {
	var parts []string
	collect := func(_ int, el *goquery.Selection) {
		if v, ok := el.Attr("aria-label"); ok && strings.TrimSpace(v) != "" {
			parts = append(parts, strings.TrimSpace(v))
		}
	}
	s.Each(collect)
	s.Find("[aria-label]").Each(collect)
	return strings.Join(parts, " | ")
}
