// Package fit sizes and positions marked elements so their box covers the
// parent's border box. The parent's computed padding (plus optional extra
// offsets declared on the element) is compensated with negative margins
// composed as CSS calc() text, leaving unit arithmetic to the consuming
// renderer.
package fit

import (
	"fmt"
	"log"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// DefaultMarkerSelector matches the class that opts an element in.
const DefaultMarkerSelector = ".overlay-fit"

// Data attributes appending extra terms to the offset sums.
const (
	attrAdditionalMT = "data-additional-mt"
	attrAdditionalML = "data-additional-ml"
)

// Fitter applies the overlay pass to documents. A single Fitter is safe to
// reuse across documents; it holds only the compiled selector.
type Fitter struct {
	selector cascadia.SelectorGroup
	logger   *log.Logger
}

// NewFitter compiles the marker selector. An empty selector uses
// DefaultMarkerSelector.
func NewFitter(selector string, logger *log.Logger) (*Fitter, error) {
	if strings.TrimSpace(selector) == "" {
		selector = DefaultMarkerSelector
	}
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("fitter: bad marker selector %q: %w", selector, err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Fitter{selector: group, logger: logger}, nil
}

// Targets returns the marker elements of a document in document order.
func (f *Fitter) Targets(doc *html.Node) []*html.Node {
	return elementsMatching(doc, f.selector)
}

// Fit runs the overlay pass once over the document: every marker element is
// given the width/height of its parent's border box and negative margins
// cancelling the parent's padding. Returns the number of elements adjusted.
//
// Elements are independent of each other and the pass recomputes everything
// from the parent's computed style, so re-running against an unchanged
// document writes identical values.
func (f *Fitter) Fit(doc *html.Node, m Measurer) (int, error) {
	targets := f.Targets(doc)
	if len(targets) == 0 {
		return 0, nil
	}
	measurements, err := m.Measure(doc, targets)
	if err != nil {
		return 0, err
	}
	if len(measurements) != len(targets) {
		return 0, fmt.Errorf("fitter: %d targets but %d measurements", len(targets), len(measurements))
	}
	for i, el := range targets {
		applyOverlay(el, measurements[i])
	}
	f.logger.Printf("fit: adjusted %d overlay element(s)", len(targets))
	return len(targets), nil
}

func applyOverlay(el *html.Node, m Measurement) {
	paddingTops := []string{m.PaddingTop}
	if v := strings.TrimSpace(getAttr(el, attrAdditionalMT)); v != "" {
		paddingTops = append(paddingTops, v)
	}
	paddingLefts := []string{m.PaddingLeft}
	if v := strings.TrimSpace(getAttr(el, attrAdditionalML)); v != "" {
		paddingLefts = append(paddingLefts, v)
	}

	setStyleProps(el, []styleProp{
		{"width", formatPx(m.Width)},
		{"height", formatPx(m.Height)},
		{"margin-top", negatedSum(paddingTops)},
		{"margin-left", negatedSum(paddingLefts)},
	})
}

// negatedSum composes the textual calc() expression negating the sum of the
// given length terms. Single terms stay wrapped: calc((10px) * -1).
func negatedSum(terms []string) string {
	return "calc((" + strings.Join(terms, " + ") + ") * -1)"
}
