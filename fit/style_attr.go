package fit

import (
	"strings"

	"golang.org/x/net/html"
)

type styleProp struct {
	name  string
	value string
}

// setStyleProps merges declarations into an element's style attribute.
// Declarations already present are replaced in place, new ones are appended
// in the given order, unrelated ones stay untouched. The output is
// deterministic so a repeated write yields byte-identical attributes.
func setStyleProps(n *html.Node, props []styleProp) {
	if n == nil || len(props) == 0 {
		return
	}
	existing := parseInlineStyle(getAttr(n, "style"))

	replaced := make(map[string]bool, len(props))
	for i := range existing {
		for _, p := range props {
			if existing[i].property == p.name {
				existing[i].value = p.value
				existing[i].important = false
				replaced[p.name] = true
				break
			}
		}
	}
	for _, p := range props {
		if !replaced[p.name] {
			existing = append(existing, cssDeclaration{property: p.name, value: p.value})
		}
	}

	var b strings.Builder
	for i, d := range existing {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(d.property)
		b.WriteString(": ")
		b.WriteString(d.value)
		if d.important {
			b.WriteString(" !important")
		}
	}
	setAttr(n, "style", b.String())
}
