package fit

import (
	"testing"

	"golang.org/x/net/html"
)

func layoutFor(t *testing.T, page string, opts *Options) (map[*html.Node]Box, *html.Node) {
	t.Helper()
	doc := parseDoc(t, page)
	ss := BuildStylesheet(doc, "", nil, nil, opts, nil)
	return layoutDocument(doc, ss, opts), doc
}

func TestLayoutBorderBoxSizing(t *testing.T) {
	page := `<!DOCTYPE html><html><head><style>
.panel { box-sizing: border-box; width: 300px; height: 150px; padding: 10px 0 0 20px; }
</style></head><body><div class="panel"></div></body></html>`
	boxes, doc := layoutFor(t, page, DefaultOptions())
	panel := findElement(doc, "div")
	box := boxes[panel]
	if box.W != 300 || box.H != 150 {
		t.Fatalf("border-box = %vx%v, want 300x150", box.W, box.H)
	}
	if box.PaddingTop != 10 || box.PaddingLeft != 20 {
		t.Fatalf("padding = %v/%v, want 10/20", box.PaddingTop, box.PaddingLeft)
	}
}

func TestLayoutContentBoxSizing(t *testing.T) {
	page := `<!DOCTYPE html><html><head><style>
.panel { width: 300px; height: 150px; padding: 10px 0 0 20px; }
</style></head><body><div class="panel"></div></body></html>`
	boxes, doc := layoutFor(t, page, DefaultOptions())
	box := boxes[findElement(doc, "div")]
	if box.W != 320 || box.H != 160 {
		t.Fatalf("border-box = %vx%v, want 320x160", box.W, box.H)
	}
}

func TestLayoutPercentWidth(t *testing.T) {
	page := `<!DOCTYPE html><html><head><style>
body { margin: 0; }
.half { width: 50%; height: 10px; }
</style></head><body><div class="half"></div></body></html>`
	boxes, doc := layoutFor(t, page, &Options{ViewportW: 1000, ViewportH: 500})
	box := boxes[findElement(doc, "div")]
	if box.W != 500 {
		t.Fatalf("width = %v, want 500", box.W)
	}
}

func TestLayoutBodyDefaultMargin(t *testing.T) {
	page := `<!DOCTYPE html><html><head><style>
.full { height: 10px; }
</style></head><body><div class="full"></div></body></html>`
	boxes, doc := layoutFor(t, page, &Options{ViewportW: 1000, ViewportH: 500})
	box := boxes[findElement(doc, "div")]
	if box.W != 1000-2*bodyDefaultMargin {
		t.Fatalf("width = %v, want %v", box.W, 1000-2*bodyDefaultMargin)
	}
}

func TestLayoutDisplayNone(t *testing.T) {
	page := `<!DOCTYPE html><html><head><style>
.hidden { display: none; width: 300px; height: 100px; }
</style></head><body><div class="hidden"><p>gone</p></div></body></html>`
	boxes, doc := layoutFor(t, page, DefaultOptions())
	box := boxes[findElement(doc, "div")]
	if box.W != 0 || box.H != 0 {
		t.Fatalf("display:none box = %vx%v, want 0x0", box.W, box.H)
	}
}

func TestLayoutAutoHeightFromChildren(t *testing.T) {
	page := `<!DOCTYPE html><html><head><style>
.stack { width: 100px; padding: 5px; }
.item { height: 30px; margin: 2px 0; }
</style></head><body>
<div class="stack"><div class="item"></div><div class="item"></div></div>
</body></html>`
	boxes, doc := layoutFor(t, page, DefaultOptions())
	stack := findElement(doc, "div")
	box := boxes[stack]
	// two 30px children with 2px vertical margins each, plus 5px padding
	// top and bottom
	want := 2*(30+4) + 10.0
	if box.H != want {
		t.Fatalf("height = %v, want %v", box.H, want)
	}
}

func TestLayoutTextContributesLines(t *testing.T) {
	page := `<!DOCTYPE html><html><head><style>
.note { width: 100px; }
</style></head><body><div class="note">hello</div></body></html>`
	boxes, doc := layoutFor(t, page, DefaultOptions())
	box := boxes[findElement(doc, "div")]
	if box.H != textLineHeight {
		t.Fatalf("height = %v, want %v", box.H, textLineHeight)
	}
}
