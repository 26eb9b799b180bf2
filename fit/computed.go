package fit

import (
	"math"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

type propState struct {
	val       string
	spec      cascadia.Specificity
	order     int
	important bool
}

// inline declarations out-cascade any stylesheet rule
var inlineSpecificity = cascadia.Specificity{1 << 12, 0, 0}

// computeStyleFor resolves the post-cascade property map for an element:
// matched rules ordered by importance, specificity and source order, with the
// inline style attribute applied on top.
func computeStyleFor(n *html.Node, ss *Stylesheet) map[string]string {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}

	props := map[string]propState{}

	if ss != nil {
		for _, rule := range ss.rules {
			if rule.selector == nil || !rule.selector.Match(n) {
				continue
			}
			for _, decl := range rule.declarations {
				applyDeclaration(props, decl, rule.specificity, rule.order)
			}
		}
	}

	if inline := strings.TrimSpace(getAttr(n, "style")); inline != "" {
		for i, decl := range parseInlineStyle(inline) {
			applyDeclaration(props, decl, inlineSpecificity, (1<<30)+i)
		}
	}

	if len(props) == 0 {
		return nil
	}
	out := make(map[string]string, len(props))
	for k, st := range props {
		out[k] = st.val
	}
	return out
}

// parseInlineStyle parses a style attribute value, falling back to a naive
// split when the declaration parser rejects it.
func parseInlineStyle(inline string) []cssDeclaration {
	if decls, err := parser.ParseDeclarations(inline); err == nil {
		out := make([]cssDeclaration, 0, len(decls))
		for _, d := range decls {
			if d == nil {
				continue
			}
			prop := strings.ToLower(strings.TrimSpace(d.Property))
			val := strings.TrimSpace(d.Value)
			if prop == "" || val == "" {
				continue
			}
			out = append(out, cssDeclaration{property: prop, value: val, important: d.Important})
		}
		return out
	}
	var out []cssDeclaration
	for _, part := range strings.Split(inline, ";") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		value := strings.TrimSpace(kv[1])
		important := false
		if lower := strings.ToLower(value); strings.HasSuffix(lower, "!important") {
			important = true
			value = strings.TrimSpace(value[:len(value)-10])
		}
		prop := strings.ToLower(strings.TrimSpace(kv[0]))
		if prop == "" || value == "" {
			continue
		}
		out = append(out, cssDeclaration{property: prop, value: value, important: important})
	}
	return out
}

func applyDeclaration(store map[string]propState, decl cssDeclaration, spec cascadia.Specificity, order int) {
	prop := strings.ToLower(strings.TrimSpace(decl.property))
	if prop == "" {
		return
	}
	value := strings.TrimSpace(decl.value)
	if value == "" {
		return
	}

	if expanded := expandShorthand(prop, value); len(expanded) > 0 {
		for _, sub := range expanded {
			applyDeclaration(store, cssDeclaration{property: sub.property, value: sub.value, important: decl.important}, spec, order)
		}
		return
	}

	entry := propState{val: value, spec: spec, order: order, important: decl.important}
	if prev, ok := store[prop]; ok {
		if prev.important && !decl.important {
			return
		}
		if decl.important && !prev.important {
			store[prop] = entry
			return
		}
		if prev.spec.Less(spec) {
			store[prop] = entry
			return
		}
		if spec.Less(prev.spec) {
			return
		}
		if order >= prev.order {
			store[prop] = entry
		}
		return
	}
	store[prop] = entry
}

// expandShorthand turns box shorthands into per-side longhands using the CSS
// 1-to-4 value syntax. Non-shorthand properties return nil.
func expandShorthand(prop, value string) []cssDeclaration {
	var base string
	switch prop {
	case "padding":
		base = "padding"
	case "margin":
		base = "margin"
	case "border-width":
		base = "border"
	default:
		return nil
	}
	top, right, bottom, left, ok := splitBoxValues(value)
	if !ok {
		return nil
	}
	suffix := ""
	if base == "border" {
		suffix = "-width"
	}
	return []cssDeclaration{
		{property: base + "-top" + suffix, value: top},
		{property: base + "-right" + suffix, value: right},
		{property: base + "-bottom" + suffix, value: bottom},
		{property: base + "-left" + suffix, value: left},
	}
}

func splitBoxValues(value string) (top, right, bottom, left string, ok bool) {
	fields := strings.Fields(value)
	switch len(fields) {
	case 1:
		return fields[0], fields[0], fields[0], fields[0], true
	case 2:
		return fields[0], fields[1], fields[0], fields[1], true
	case 3:
		return fields[0], fields[1], fields[2], fields[1], true
	case 4:
		return fields[0], fields[1], fields[2], fields[3], true
	}
	return "", "", "", "", false
}

// resolveLength resolves a CSS length to float pixels. Percentages resolve
// against base; viewport units against opts. Keyword border widths map to
// their conventional pixel sizes.
func resolveLength(val string, base float64, opts *Options) (float64, bool) {
	v := strings.ToLower(strings.TrimSpace(val))
	if v == "" {
		return 0, false
	}
	vw, vh := opts.viewport()
	switch v {
	case "thin":
		return 1, true
	case "medium":
		return 3, true
	case "thick":
		return 5, true
	case "auto", "none", "normal", "inherit", "initial", "unset":
		return 0, false
	}
	parse := func(s string) (float64, bool) {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	switch {
	case strings.HasSuffix(v, "px"):
		if f, ok := parse(v[:len(v)-2]); ok {
			return f, true
		}
	case strings.HasSuffix(v, "%"):
		if base <= 0 {
			return 0, false
		}
		if f, ok := parse(v[:len(v)-1]); ok {
			return base * f / 100.0, true
		}
	case strings.HasSuffix(v, "rem"):
		if f, ok := parse(v[:len(v)-3]); ok {
			return f * 16.0, true
		}
	case strings.HasSuffix(v, "em"):
		if f, ok := parse(v[:len(v)-2]); ok {
			return f * 16.0, true
		}
	case strings.HasSuffix(v, "vw"):
		if f, ok := parse(v[:len(v)-2]); ok {
			return float64(vw) * f / 100.0, true
		}
	case strings.HasSuffix(v, "vh"):
		if f, ok := parse(v[:len(v)-2]); ok {
			return float64(vh) * f / 100.0, true
		}
	default:
		if f, ok := parse(v); ok {
			return f, true
		}
	}
	return 0, false
}

// formatPx renders a pixel value the way computed styles report lengths:
// rounded to hundredths with trailing zeros trimmed, e.g. "10px", "19.2px".
func formatPx(v float64) string {
	r := math.Round(v*100) / 100
	return strconv.FormatFloat(r, 'f', -1, 64) + "px"
}
