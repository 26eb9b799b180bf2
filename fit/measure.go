package fit

import (
	"fmt"
	"log"
	"net/http"

	"golang.org/x/net/html"
)

// Measurement describes one overlay target's parent at fit time: the
// computed padding as formatted CSS length strings and the border-box
// geometry in pixels. The JSON shape matches what the headless-browser
// measurement script returns.
type Measurement struct {
	PaddingTop  string  `json:"paddingTop"`
	PaddingLeft string  `json:"paddingLeft"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
}

// Measurer produces one Measurement per overlay target, in the same order
// the targets were selected from the document.
type Measurer interface {
	Measure(doc *html.Node, targets []*html.Node) ([]Measurement, error)
}

// StaticMeasurer resolves parent geometry from the document's own
// stylesheets and the built-in block layout. Base, Header and Jar feed
// external stylesheet fetches; an empty Base keeps everything offline.
// A nil Logger falls back to log.Default().
type StaticMeasurer struct {
	Base   string
	Header http.Header
	Jar    http.CookieJar
	Opts   *Options
	Logger *log.Logger
}

func (m *StaticMeasurer) Measure(doc *html.Node, targets []*html.Node) ([]Measurement, error) {
	if doc == nil {
		return nil, fmt.Errorf("measure: nil document")
	}
	opts := m.Opts
	if opts == nil {
		opts = DefaultOptions()
	}
	ss := BuildStylesheet(doc, m.Base, m.Header, m.Jar, opts, m.Logger)
	boxes := layoutDocument(doc, ss, opts)

	out := make([]Measurement, 0, len(targets))
	for _, t := range targets {
		parent := parentElement(t)
		if parent == nil {
			return nil, fmt.Errorf("measure: overlay target <%s> has no parent element", nodeName(t))
		}
		box, ok := boxes[parent]
		if !ok {
			return nil, fmt.Errorf("measure: no geometry for <%s> parent <%s>", nodeName(t), nodeName(parent))
		}
		out = append(out, Measurement{
			PaddingTop:  formatPx(box.PaddingTop),
			PaddingLeft: formatPx(box.PaddingLeft),
			Width:       box.W,
			Height:      box.H,
		})
	}
	return out, nil
}

func nodeName(n *html.Node) string {
	if n == nil {
		return ""
	}
	return n.Data
}
