package fit

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

func getAttr(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, name, val string) {
	if n == nil {
		return
	}
	for i := range n.Attr {
		if strings.EqualFold(n.Attr[i].Key, name) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: val})
}

// GetAttr exposes attribute lookup for debug tooling.
func GetAttr(n *html.Node, name string) string { return getAttr(n, name) }

// parentElement returns the nearest element ancestor, or nil for detached
// nodes and direct document children.
func parentElement(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

// elementsMatching collects element nodes matched by any selector in the
// group, in document order.
func elementsMatching(doc *html.Node, group cascadia.SelectorGroup) []*html.Node {
	if doc == nil || len(group) == 0 {
		return nil
	}
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, sel := range group {
				if sel != nil && sel.Match(n) {
					out = append(out, n)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return out
}

func findElement(doc *html.Node, tag string) *html.Node {
	if doc == nil {
		return nil
	}
	var found *html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return found
}
