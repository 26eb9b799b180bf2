package fit

import (
	"testing"

	"github.com/andybalholm/cascadia"
)

func TestResolveLength(t *testing.T) {
	t.Parallel()
	opts := &Options{ViewportW: 1000, ViewportH: 500}
	tests := []struct {
		name string
		in   string
		base float64
		want float64
		ok   bool
	}{
		{"px", "10px", 0, 10, true},
		{"px_fraction", "2.5px", 0, 2.5, true},
		{"percent", "50%", 300, 150, true},
		{"percent_no_base", "50%", 0, 0, false},
		{"em", "2em", 0, 32, true},
		{"rem", "1.5rem", 0, 24, true},
		{"vw", "10vw", 0, 100, true},
		{"vh", "50vh", 0, 250, true},
		{"bare_number", "12", 0, 12, true},
		{"thin", "thin", 0, 1, true},
		{"medium", "medium", 0, 3, true},
		{"thick", "thick", 0, 5, true},
		{"auto", "auto", 100, 0, false},
		{"empty", "", 100, 0, false},
		{"garbage", "banana", 100, 0, false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := resolveLength(tc.in, tc.base, opts)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("resolveLength(%q, %v) = (%v, %v), want (%v, %v)", tc.in, tc.base, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestFormatPx(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float64
		want string
	}{
		{300, "300px"},
		{19.2, "19.2px"},
		{10.005, "10.01px"},
		{0, "0px"},
	}
	for _, tc := range tests {
		if got := formatPx(tc.in); got != tc.want {
			t.Fatalf("formatPx(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestComputeStyleCascade(t *testing.T) {
	page := `<!DOCTYPE html><html><head><style>
div { color: blue; padding-top: 4px; }
.boxed { color: green; }
#main { color: purple; }
div { padding-top: 6px; }
.shout { color: red !important; }
</style></head><body>
<div id="main" class="boxed shout" style="margin-top: 2px"></div>
</body></html>`
	doc := parseDoc(t, page)
	n := findElement(doc, "div")
	ss := BuildStylesheet(doc, "", nil, nil, DefaultOptions(), nil)
	if ss == nil {
		t.Fatalf("expected stylesheet")
	}
	style := computeStyleFor(n, ss)

	// !important beats the higher-specificity id rule.
	if style["color"] != "red" {
		t.Fatalf("color = %q, want red", style["color"])
	}
	// later rule of equal specificity wins
	if style["padding-top"] != "6px" {
		t.Fatalf("padding-top = %q, want 6px", style["padding-top"])
	}
	if style["margin-top"] != "2px" {
		t.Fatalf("margin-top = %q, want 2px", style["margin-top"])
	}
}

func TestComputeStyleInlineBeatsSheet(t *testing.T) {
	page := `<!DOCTYPE html><html><head><style>
#main { padding-left: 40px; }
</style></head><body><div id="main" style="padding-left: 7px"></div></body></html>`
	doc := parseDoc(t, page)
	n := findElement(doc, "div")
	ss := BuildStylesheet(doc, "", nil, nil, DefaultOptions(), nil)
	style := computeStyleFor(n, ss)
	if style["padding-left"] != "7px" {
		t.Fatalf("padding-left = %q, want 7px", style["padding-left"])
	}
}

func TestShorthandExpansion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		value string
		top   string
		right string
		bot   string
		left  string
	}{
		{"one", "10px", "10px", "10px", "10px", "10px"},
		{"two", "10px 20px", "10px", "20px", "10px", "20px"},
		{"three", "1px 2px 3px", "1px", "2px", "3px", "2px"},
		{"four", "10px 0 0 20px", "10px", "0", "0", "20px"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			store := map[string]propState{}
			applyDeclaration(store, cssDeclaration{property: "padding", value: tc.value}, cascadia.Specificity{0, 1, 0}, 0)
			wants := map[string]string{
				"padding-top":    tc.top,
				"padding-right":  tc.right,
				"padding-bottom": tc.bot,
				"padding-left":   tc.left,
			}
			for prop, want := range wants {
				if got := store[prop].val; got != want {
					t.Fatalf("%s = %q, want %q", prop, got, want)
				}
			}
		})
	}
}
