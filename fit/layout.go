package fit

import (
	"strings"

	"golang.org/x/net/html"
)

// Box is the rendered border-box of an element (content + padding + border)
// plus the resolved padding the fitter compensates for.
type Box struct {
	W           float64
	H           float64
	PaddingTop  float64
	PaddingLeft float64
}

// Geometry approximations. The fitter only consumes these numbers as text,
// so they need to be stable, not pixel-faithful.
const (
	textLineHeight    = 18.0
	bodyDefaultMargin = 8.0
)

var nonRenderedTags = map[string]struct{}{
	"head": {}, "script": {}, "style": {}, "meta": {}, "link": {},
	"title": {}, "noscript": {}, "template": {}, "base": {},
}

type layoutEngine struct {
	ss    *Stylesheet
	opts  *Options
	boxes map[*html.Node]Box
}

// layoutDocument runs a single block-layout pass over the document and
// returns the border-box of every rendered element. Widths flow top-down
// from the viewport, auto heights accumulate bottom-up from children and a
// fixed per-line text contribution. Floats, inline formatting and tables are
// out of scope.
func layoutDocument(doc *html.Node, ss *Stylesheet, opts *Options) map[*html.Node]Box {
	le := &layoutEngine{ss: ss, opts: opts, boxes: map[*html.Node]Box{}}
	vw, vh := opts.viewport()
	root := findElement(doc, "html")
	if root == nil {
		if doc != nil {
			for c := doc.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode {
					le.layoutBlock(c, float64(vw), float64(vh), true)
				}
			}
		}
		return le.boxes
	}
	le.layoutBlock(root, float64(vw), float64(vh), true)
	return le.boxes
}

// layoutBlock lays out one element given its containing block's content
// width (and height when determinate) and returns the element's margin-box
// height, the contribution it makes to an auto-height parent.
func (le *layoutEngine) layoutBlock(n *html.Node, cbW, cbH float64, cbHKnown bool) float64 {
	if n == nil || n.Type != html.ElementNode {
		return 0
	}
	tag := strings.ToLower(n.Data)
	if _, skip := nonRenderedTags[tag]; skip {
		le.boxes[n] = Box{}
		return 0
	}

	style := computeStyleFor(n, le.ss)
	if strings.EqualFold(strings.TrimSpace(style["display"]), "none") {
		le.boxes[n] = Box{}
		return 0
	}

	side := func(prop string, fallback float64) float64 {
		v, ok := style[prop]
		if !ok {
			return fallback
		}
		if px, ok := resolveLength(v, cbW, le.opts); ok {
			return px
		}
		return 0
	}
	borderSide := func(prop string) float64 {
		// border-*-width only applies with a border style present; the
		// shorthand `border: 1px solid x` is not expanded, so accept the
		// longhand or nothing.
		if px, ok := resolveLength(style[prop], 0, le.opts); ok {
			return px
		}
		return 0
	}

	marginDefault := 0.0
	if tag == "body" {
		marginDefault = bodyDefaultMargin
	}
	padT := side("padding-top", 0)
	padR := side("padding-right", 0)
	padB := side("padding-bottom", 0)
	padL := side("padding-left", 0)
	mT := side("margin-top", marginDefault)
	mR := side("margin-right", marginDefault)
	mB := side("margin-bottom", marginDefault)
	mL := side("margin-left", marginDefault)
	bT := borderSide("border-top-width")
	bR := borderSide("border-right-width")
	bB := borderSide("border-bottom-width")
	bL := borderSide("border-left-width")

	borderBox := strings.EqualFold(strings.TrimSpace(style["box-sizing"]), "border-box")

	contentW := cbW - mL - mR - padL - padR - bL - bR
	if wv, ok := resolveLength(style["width"], cbW, le.opts); ok {
		contentW = wv
		if borderBox {
			contentW = wv - padL - padR - bL - bR
		}
	}
	if contentW < 0 {
		contentW = 0
	}

	explicitH := -1.0
	hBase := 0.0
	if cbHKnown {
		hBase = cbH
	}
	if hv, ok := resolveLength(style["height"], hBase, le.opts); ok {
		explicitH = hv
		if borderBox {
			explicitH = hv - padT - padB - bT - bB
		}
		if explicitH < 0 {
			explicitH = 0
		}
	}

	childCBH := explicitH
	childH := 0.0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			childH += le.layoutBlock(c, contentW, childCBH, explicitH >= 0)
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				childH += textLineHeight
			}
		}
	}

	contentH := childH
	if explicitH >= 0 {
		contentH = explicitH
	}

	box := Box{
		W:           contentW + padL + padR + bL + bR,
		H:           contentH + padT + padB + bT + bB,
		PaddingTop:  padT,
		PaddingLeft: padL,
	}
	le.boxes[n] = box
	return box.H + mT + mB
}
