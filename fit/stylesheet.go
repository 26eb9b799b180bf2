package fit

import (
	"log"
	"net/http"
	"strings"

	"github.com/andybalholm/cascadia"
	cssast "github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

type cssDeclaration struct {
	property  string
	value     string
	important bool
}

type cssRule struct {
	selector     cascadia.Sel
	specificity  cascadia.Specificity
	declarations []cssDeclaration
	order        int
}

// Stylesheet holds the cascade-ready rule list collected from a document.
type Stylesheet struct {
	rules []cssRule
}

type cssParseContext struct {
	baseURL string
	hdr     http.Header
	jar     http.CookieJar
	opts    *Options
	logger  *log.Logger
	depth   int
	visited map[string]struct{}
	budget  *int
}

func (ctx *cssParseContext) child(newBase string) *cssParseContext {
	if ctx == nil {
		return &cssParseContext{baseURL: newBase}
	}
	next := *ctx
	next.baseURL = newBase
	next.depth = ctx.depth + 1
	return &next
}

// BuildStylesheet collects <style> blocks and linked sheets in document
// order. External fetches are bounded; a page without CSS yields nil.
// A nil logger falls back to log.Default().
func BuildStylesheet(doc *html.Node, base string, hdr http.Header, jar http.CookieJar, opts *Options, logger *log.Logger) *Stylesheet {
	if doc == nil {
		return nil
	}

	ss := &Stylesheet{}
	order := 0
	budget := 16

	ctx := &cssParseContext{
		baseURL: base,
		hdr:     hdr,
		jar:     jar,
		opts:    opts,
		logger:  logger,
		visited: map[string]struct{}{},
		budget:  &budget,
	}

	var collectInline func(*html.Node)
	collectInline = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "style") {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				if rs, ord := parseCSSText(n.FirstChild.Data, order, ctx); len(rs) > 0 {
					ss.rules = append(ss.rules, rs...)
					order = ord
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collectInline(c)
		}
	}
	collectInline(doc)

	var links []string
	var collectLinks func(*html.Node)
	collectLinks = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "link") {
			rel := strings.ToLower(strings.TrimSpace(getAttr(n, "rel")))
			if rel != "" && !strings.Contains(rel, "stylesheet") {
				// not a stylesheet link
			} else {
				typ := strings.ToLower(strings.TrimSpace(getAttr(n, "type")))
				if typ != "" && typ != "text/css" {
					// skip non-css types
				} else if href := strings.TrimSpace(getAttr(n, "href")); href != "" {
					links = append(links, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collectLinks(c)
		}
	}
	collectLinks(doc)

	const maxExternal = 12
	for _, link := range links {
		if len(ss.rules) >= maxExternal*64 {
			break
		}
		if ctx.budget != nil && *ctx.budget <= 0 {
			break
		}
		abs := resolveAbsURL(base, link)
		if abs == "" {
			continue
		}
		if ctx.visited != nil {
			if _, seen := ctx.visited[abs]; seen {
				continue
			}
			ctx.visited[abs] = struct{}{}
		}
		if ctx.budget != nil {
			*ctx.budget--
		}
		if b, ok := fetchText(abs, hdr, jar, "text/css"); ok {
			if rs, ord := parseCSSText(string(b), order, ctx.child(abs)); len(rs) > 0 {
				ss.rules = append(ss.rules, rs...)
				order = ord
			}
		}
	}

	if len(ss.rules) == 0 {
		return nil
	}
	return ss
}

func parseCSSText(txt string, startOrder int, ctx *cssParseContext) ([]cssRule, int) {
	trimmed := strings.TrimSpace(txt)
	if trimmed == "" {
		return nil, startOrder
	}
	if ctx != nil && ctx.depth >= 16 {
		return nil, startOrder
	}
	sheet, err := parser.Parse(trimmed)
	if err != nil {
		curLogger(ctx).Printf("css: parse error: %v", err)
		return nil, startOrder
	}

	rules := make([]cssRule, 0, len(sheet.Rules)*2)
	order := startOrder

	var walk func([]*cssast.Rule, *cssParseContext)
	walk = func(list []*cssast.Rule, cur *cssParseContext) {
		if cur != nil && cur.depth >= 16 {
			return
		}
		for _, rule := range list {
			if rule == nil {
				continue
			}
			switch rule.Kind {
			case cssast.AtRule:
				name := strings.ToLower(strings.TrimSpace(rule.Name))
				switch name {
				case "@media":
					if mediaRuleActive(rule.Prelude, curOpts(cur)) {
						walk(rule.Rules, cur)
					}
				case "@supports":
					walk(rule.Rules, cur)
				case "@import":
					importURL, media := extractImportTarget(rule.Prelude)
					if importURL == "" {
						continue
					}
					if media != "" && !mediaRuleActive(media, curOpts(cur)) {
						continue
					}
					abs := resolveAbsURL(curBase(cur), importURL)
					if abs == "" {
						abs = importURL
					}
					if cur != nil && cur.visited != nil {
						if _, seen := cur.visited[abs]; seen {
							continue
						}
						cur.visited[abs] = struct{}{}
					}
					if cur != nil && cur.budget != nil {
						if *cur.budget <= 0 {
							continue
						}
						*cur.budget--
					}
					if b, ok := fetchText(abs, curHeader(cur), curJar(cur), "text/css"); ok {
						child := cur.child(abs)
						if rs, ord := parseCSSText(string(b), order, child); len(rs) > 0 {
							rules = append(rules, rs...)
							order = ord
						}
					}
				default:
					if rule.EmbedsRules() {
						walk(rule.Rules, cur)
					}
				}
			case cssast.QualifiedRule:
				decls := convertDeclarations(rule.Declarations)
				if len(decls) == 0 || len(rule.Selectors) == 0 {
					continue
				}
				group, err := cascadia.ParseGroup(strings.Join(rule.Selectors, ","))
				if err != nil {
					curLogger(cur).Printf("css: selector group error: %v", err)
					continue
				}
				for _, sel := range group {
					if sel == nil || sel.PseudoElement() != "" {
						continue
					}
					rules = append(rules, cssRule{selector: sel, specificity: sel.Specificity(), declarations: cloneDecls(decls), order: order})
					order++
				}
			}
		}
	}

	walk(sheet.Rules, ctx)
	return rules, order
}

func cloneDecls(src []cssDeclaration) []cssDeclaration {
	out := make([]cssDeclaration, len(src))
	copy(out, src)
	return out
}

func convertDeclarations(list []*cssast.Declaration) []cssDeclaration {
	if len(list) == 0 {
		return nil
	}
	out := make([]cssDeclaration, 0, len(list))
	for _, decl := range list {
		if decl == nil {
			continue
		}
		prop := strings.ToLower(strings.TrimSpace(decl.Property))
		if prop == "" {
			continue
		}
		val := strings.TrimSpace(decl.Value)
		if val == "" {
			continue
		}
		out = append(out, cssDeclaration{property: prop, value: val, important: decl.Important})
	}
	return out
}

func curOpts(ctx *cssParseContext) *Options {
	if ctx == nil {
		return nil
	}
	return ctx.opts
}

func curHeader(ctx *cssParseContext) http.Header {
	if ctx == nil {
		return nil
	}
	return ctx.hdr
}

func curJar(ctx *cssParseContext) http.CookieJar {
	if ctx == nil {
		return nil
	}
	return ctx.jar
}

func curBase(ctx *cssParseContext) string {
	if ctx == nil {
		return ""
	}
	return ctx.baseURL
}

func curLogger(ctx *cssParseContext) *log.Logger {
	if ctx == nil || ctx.logger == nil {
		return log.Default()
	}
	return ctx.logger
}

func extractImportTarget(prelude string) (string, string) {
	s := strings.TrimSpace(prelude)
	if s == "" {
		return "", ""
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "url(") {
		end := strings.Index(s, ")")
		if end == -1 {
			return "", ""
		}
		inner := strings.TrimSpace(s[4:end])
		target := trimCSSString(inner)
		media := strings.TrimSpace(s[end+1:])
		return target, media
	}
	if (s[0] == '"' || s[0] == '\'') && len(s) > 1 {
		if idx := strings.IndexByte(s[1:], s[0]); idx != -1 {
			target := s[1 : idx+1]
			media := strings.TrimSpace(s[idx+2:])
			return target, media
		}
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", ""
	}
	target := trimCSSString(fields[0])
	media := strings.TrimSpace(strings.TrimPrefix(s, fields[0]))
	return target, media
}

func trimCSSString(v string) string {
	vv := strings.TrimSpace(v)
	if len(vv) >= 2 {
		if (vv[0] == '"' && vv[len(vv)-1] == '"') || (vv[0] == '\'' && vv[len(vv)-1] == '\'') {
			return vv[1 : len(vv)-1]
		}
	}
	return vv
}

func mediaRuleActive(prelude string, opts *Options) bool {
	if strings.TrimSpace(prelude) == "" {
		return true
	}

	queries := strings.Split(prelude, ",")
	for _, raw := range queries {
		query := strings.ToLower(strings.TrimSpace(raw))
		if query == "" {
			continue
		}

		mediaType := ""
		rest := query
		parts := strings.Fields(query)
		if len(parts) > 0 && !strings.HasPrefix(parts[0], "(") {
			mediaType = parts[0]
			rest = strings.TrimSpace(strings.TrimPrefix(query, mediaType))
		}

		switch mediaType {
		case "print", "speech", "aural", "braille", "embossed", "tty", "tv":
			continue
		}
		if evaluateMediaFeatures(rest, opts) {
			return true
		}
	}
	return false
}

func evaluateMediaFeatures(expr string, opts *Options) bool {
	width, height := opts.viewport()

	clauses := strings.Split(expr, "and")
	for _, clause := range clauses {
		c := strings.TrimSpace(clause)
		if c == "" {
			continue
		}
		if strings.HasPrefix(c, "(") && strings.HasSuffix(c, ")") {
			c = strings.TrimSpace(c[1 : len(c)-1])
		}
		parts := strings.SplitN(c, ":", 2)
		feature := strings.TrimSpace(parts[0])
		value := ""
		if len(parts) == 2 {
			value = strings.TrimSpace(parts[1])
		}

		switch feature {
		case "orientation":
			orientation := "portrait"
			if width > height {
				orientation = "landscape"
			}
			if value != "" && value != orientation {
				return false
			}
		case "min-width":
			if px, ok := resolveLength(value, float64(width), opts); ok && float64(width) < px {
				return false
			}
		case "max-width":
			if px, ok := resolveLength(value, float64(width), opts); ok && float64(width) > px {
				return false
			}
		case "min-height":
			if px, ok := resolveLength(value, float64(height), opts); ok && float64(height) < px {
				return false
			}
		case "max-height":
			if px, ok := resolveLength(value, float64(height), opts); ok && float64(height) > px {
				return false
			}
		default:
			// Unsupported feature, assume true for simplicity
		}
	}
	return true
}
