// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package candidate recovers priced itinerary candidates from a rendered
// results page. Extraction runs in two phases and the first non-empty phase
// wins: whole-result containers that carry both a fare and an itinerary
// signal, then an ordered list of generic strategies of decreasing
// specificity.
package candidate

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/pdiddy/fare-scout/internal/money"
	"github.com/pdiddy/fare-scout/internal/signal"
	"github.com/pdiddy/fare-scout/pkg/types"
)

// Phase names the extraction phase that produced a Result.
type Phase string

const (
	PhaseNone      Phase = "none"
	PhaseContainer Phase = "container"
	PhaseFallback  Phase = "fallback"
)

// ContainerStrategy tags records produced by the container phase.
const ContainerStrategy = "container"

const (
	defaultMaxContainers = 50
	defaultMaxElements   = 200
)

// ContainerSelector matches nodes that each hold one whole itinerary.
const ContainerSelector = `.pIav2d, .yR1fYc, [data-testid*="flight"], [data-testid*="result"], ` +
	`[data-testid*="itinerary"], [role="listitem"], [role="option"], .flight-card, .itinerary-card`

// Result is the outcome of one extraction pass.
type Result struct {
	Records  []types.PriceRecord
	Phase    Phase
	Strategy string

	// Tried records every strategy attempted with its candidate count.
	Tried []Attempt
}

// Attempt records how many candidates one strategy produced.
type Attempt struct {
	Strategy   string
	Elements   int
	Candidates int
}

// Empty reports whether no candidate was found. This is a normal outcome,
// distinct from a page that failed to load.
func (r Result) Empty() bool { return len(r.Records) == 0 }

// Pipeline runs both extraction phases over a page snapshot.
type Pipeline struct {
	matcher       signal.Matcher
	strategies    []Strategy
	maxContainers int
	logger        *log.Logger
}

// NewPipeline returns a pipeline using the default fallback strategies.
// The matcher decides which containers carry an itinerary signal.
func NewPipeline(m signal.Matcher, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Pipeline{
		matcher:       m,
		strategies:    DefaultStrategies(),
		maxContainers: defaultMaxContainers,
		logger:        logger.WithPrefix("candidate"),
	}
}

// WithStrategies replaces the fallback strategy list.
func (p *Pipeline) WithStrategies(s []Strategy) *Pipeline {
	p.strategies = s
	return p
}

// Extract parses the rendered HTML and runs both phases.
func (p *Pipeline) Extract(page string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return Result{}, fmt.Errorf("parsing page snapshot: %w", err)
	}
	return p.ExtractDocument(doc), nil
}

// ExtractDocument runs the container phase and, only when it yields
// nothing, the fallback strategies in order.
func (p *Pipeline) ExtractDocument(doc *goquery.Document) Result {
	var res Result

	containers, scanned := p.containers(doc)
	res.Tried = append(res.Tried, Attempt{Strategy: ContainerStrategy, Elements: scanned, Candidates: len(containers)})
	p.logger.Debug("container scan", "containers", scanned, "candidates", len(containers))
	if len(containers) > 0 {
		res.Records = containers
		res.Phase = PhaseContainer
		res.Strategy = ContainerStrategy
		return res
	}

	for _, s := range p.strategies {
		records, elements := s.Extract(doc)
		res.Tried = append(res.Tried, Attempt{Strategy: s.Name, Elements: elements, Candidates: len(records)})
		p.logger.Debug("fallback strategy", "strategy", s.Name, "elements", elements, "candidates", len(records))
		if len(records) > 0 {
			res.Records = records
			res.Phase = PhaseFallback
			res.Strategy = s.Name
			return res
		}
	}

	res.Phase = PhaseNone
	return res
}

// containers scans whole-result nodes. A node becomes a candidate when its
// text yields a fare and its text or labels carry at least one itinerary
// signal. Wrappers around other priced containers are skipped.
func (p *Pipeline) containers(doc *goquery.Document) ([]types.PriceRecord, int) {
	var records []types.PriceRecord
	nodes := doc.Find(ContainerSelector)
	scanned := 0

	nodes.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= p.maxContainers {
			return false
		}
		scanned++
		if enclosesPricedContainer(s) {
			return true
		}

		text := visibleText(s)
		amount, ok := money.Parse(text)
		if !ok {
			return true
		}

		source := text
		if l := labels(s); l != "" {
			source = text + " | " + l
		}
		if !p.matcher.Match(source).Itinerary() {
			return true
		}

		records = append(records, types.PriceRecord{
			Amount:     amount,
			SourceText: source,
			Strategy:   ContainerStrategy,
		})
		p.logger.Debug("container candidate", "index", i, "amount", amount, "text", signal.Truncate(text, 100))
		return true
	})
	return records, scanned
}

// enclosesPricedContainer reports whether s holds another container with its
// own fare. Such a node spans several itineraries, and its first fare need
// not belong to the signals found elsewhere in its text.
func enclosesPricedContainer(s *goquery.Selection) bool {
	found := false
	s.Find(ContainerSelector).EachWithBreak(func(_ int, inner *goquery.Selection) bool {
		_, found = money.Parse(visibleText(inner))
		return !found
	})
	return found
}
