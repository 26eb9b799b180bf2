package fit

import (
	"testing"

	"golang.org/x/net/html"
)

func TestSetStylePropsFreshAttribute(t *testing.T) {
	n := &html.Node{Type: html.ElementNode, Data: "div"}
	setStyleProps(n, []styleProp{{"width", "10px"}, {"height", "20px"}})
	if got := getAttr(n, "style"); got != "width: 10px; height: 20px" {
		t.Fatalf("style = %q", got)
	}
}

func TestSetStylePropsReplacesInPlace(t *testing.T) {
	n := &html.Node{Type: html.ElementNode, Data: "div"}
	setAttr(n, "style", "color: red; width: 1px; border: none")
	setStyleProps(n, []styleProp{{"width", "10px"}})
	want := "color: red; width: 10px; border: none"
	if got := getAttr(n, "style"); got != want {
		t.Fatalf("style = %q, want %q", got, want)
	}
}

func TestSetStylePropsDeterministic(t *testing.T) {
	n := &html.Node{Type: html.ElementNode, Data: "div"}
	props := []styleProp{
		{"width", "300px"},
		{"height", "150px"},
		{"margin-top", "calc((10px) * -1)"},
		{"margin-left", "calc((20px) * -1)"},
	}
	setStyleProps(n, props)
	first := getAttr(n, "style")
	setStyleProps(n, props)
	if got := getAttr(n, "style"); got != first {
		t.Fatalf("repeat write changed attribute:\n first: %q\nsecond: %q", first, got)
	}
}

func TestSetStylePropsKeepsCalcValues(t *testing.T) {
	n := &html.Node{Type: html.ElementNode, Data: "div"}
	setStyleProps(n, []styleProp{{"margin-top", "calc((10px + 5px) * -1)"}})
	if got := getAttr(n, "style"); got != "margin-top: calc((10px + 5px) * -1)" {
		t.Fatalf("style = %q", got)
	}
}
