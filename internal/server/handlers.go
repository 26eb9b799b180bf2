package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"overlayfit/fit"
)

// fitParams is the per-request knob set, resolved from query, per-site
// config and server defaults, in that precedence order.
type fitParams struct {
	marker string
	opts   *fit.Options
	live   bool
	hdr    http.Header
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(s.cfg.IndexHTML)))
	io.WriteString(w, s.cfg.IndexHTML)
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "pong\n")
}

func (s *Server) handleFit(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleFitURL(w, r)
	case http.MethodPost:
		s.handleFitBody(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleFitURL(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.URL.Query().Get("url"))
	if target == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	target = normalizeTargetURL(target)
	p := s.fitParamsFor(r, target)
	s.logger.Printf("FIT %s marker=%q viewport=%dx%d live=%v", target, p.marker, p.opts.ViewportW, p.opts.ViewportH, p.live)

	key := cacheKey(target, p)
	if body, ok := s.cache.Get(key); ok {
		writeFittedHTML(w, body, -1)
		return
	}

	jar := s.jars.Get(deriveClientKey(r))
	doc, finalURL, err := fit.FetchDocument(target, p.hdr, jar)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	fitter, err := fit.NewFitter(p.marker, s.logger)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	measurer := s.measurerFor(r.Context(), p, finalURL, jar)

	count, err := fitter.Fit(doc, measurer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.cache.Store(key, buf.Bytes())
	writeFittedHTML(w, buf.Bytes(), count)
}

func (s *Server) handleFitBody(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	base := strings.TrimSpace(r.URL.Query().Get("base"))
	p := s.fitParamsFor(r, base)

	fitter, err := fit.NewFitter(p.marker, s.logger)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	measurer := &fit.StaticMeasurer{Base: base, Header: p.hdr, Opts: p.opts, Logger: s.logger}
	count, err := fitter.Fit(doc, measurer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeFittedHTML(w, buf.Bytes(), count)
}

// inspection report for one overlay target
type inspectEntry struct {
	Index       int             `json:"index"`
	Tag         string          `json:"tag"`
	ID          string          `json:"id,omitempty"`
	Class       string          `json:"class,omitempty"`
	Measurement fit.Measurement `json:"measurement"`
	Style       string          `json:"style"`
}

type inspectResult struct {
	URL     string         `json:"url"`
	Marker  string         `json:"marker"`
	Count   int            `json:"count"`
	Targets []inspectEntry `json:"targets"`
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.URL.Query().Get("url"))
	if target == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	target = normalizeTargetURL(target)
	p := s.fitParamsFor(r, target)

	jar := s.jars.Get(deriveClientKey(r))
	doc, finalURL, err := fit.FetchDocument(target, p.hdr, jar)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	fitter, err := fit.NewFitter(p.marker, s.logger)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	measurer := s.measurerFor(r.Context(), p, finalURL, jar)

	// Measure before fitting so the report shows the numbers the fitter
	// acts on, not boxes inflated by the rewrite itself.
	targets := fitter.Targets(doc)
	measurements, err := measurer.Measure(doc, targets)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if _, err := fitter.Fit(doc, measurer); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	res := inspectResult{URL: finalURL, Marker: p.marker, Count: len(targets)}
	for i, t := range targets {
		res.Targets = append(res.Targets, inspectEntry{
			Index:       i,
			Tag:         t.Data,
			ID:          fit.GetAttr(t, "id"),
			Class:       fit.GetAttr(t, "class"),
			Measurement: measurements[i],
			Style:       fit.GetAttr(t, "style"),
		})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.URL.Query().Get("url"))
	if target == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	target = normalizeTargetURL(target)
	p := s.fitParamsFor(r, target)
	outW := 0
	if v := r.URL.Query().Get("w"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			outW = n
		}
	}

	png, err := s.measurerBrowser().Preview(r.Context(), target, p.marker, p.hdr, p.opts, outW)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	_, _ = w.Write(png)
}

// measurerFor picks the measurement backend a request resolved to: the
// headless browser when live is on, the static engine otherwise. /fit and
// /inspect share it so the report always reflects the fitting path.
func (s *Server) measurerFor(ctx context.Context, p fitParams, base string, jar http.CookieJar) fit.Measurer {
	if p.live {
		return s.measurerBrowser().Live(ctx, base, p.marker, p.hdr, p.opts)
	}
	return &fit.StaticMeasurer{Base: base, Header: p.hdr, Jar: jar, Opts: p.opts, Logger: s.logger}
}

func (s *Server) fitParamsFor(r *http.Request, target string) fitParams {
	q := r.URL.Query()
	p := fitParams{
		marker: s.cfg.Marker,
		opts:   &fit.Options{ViewportW: s.cfg.ViewportW, ViewportH: s.cfg.ViewportH},
		hdr:    http.Header{},
	}

	if site := s.sites.Find(target); site != nil {
		if site.Marker != "" {
			p.marker = site.Marker
		}
		if site.ViewportW > 0 {
			p.opts.ViewportW = site.ViewportW
		}
		if site.ViewportH > 0 {
			p.opts.ViewportH = site.ViewportH
		}
		p.live = site.Live
		for k, v := range site.Headers {
			p.hdr.Set(k, v)
		}
	}

	if m := strings.TrimSpace(q.Get("marker")); m != "" {
		p.marker = m
	}
	if v := q.Get("w"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.opts.ViewportW = n
		}
	}
	if v := q.Get("h"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.opts.ViewportH = n
		}
	}
	switch strings.ToLower(strings.TrimSpace(q.Get("live"))) {
	case "":
	case "0", "false", "off", "no":
		p.live = false
	default:
		p.live = true
	}

	if ua := q.Get("ua"); ua != "" {
		p.hdr.Set("User-Agent", ua)
	}
	if lang := q.Get("lang"); lang != "" {
		p.hdr.Set("Accept-Language", lang)
	}
	if ck := r.Header.Get("Cookie"); ck != "" {
		p.hdr.Set("Cookie", ck)
	}
	return p
}

func cacheKey(target string, p fitParams) string {
	return target + "|" + p.marker +
		":w=" + strconv.Itoa(p.opts.ViewportW) +
		":h=" + strconv.Itoa(p.opts.ViewportH) +
		":live=" + strconv.FormatBool(p.live)
}

func writeFittedHTML(w http.ResponseWriter, body []byte, fitted int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if fitted >= 0 {
		w.Header().Set("X-Overlay-Fitted", strconv.Itoa(fitted))
	}
	_, _ = w.Write(body)
}

// normalizeTargetURL tolerates double-encoded and scheme-less targets.
func normalizeTargetURL(raw string) string {
	s := strings.TrimSpace(urlDecode(raw))
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	if !(strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")) {
		s = "http://" + s
	}
	return s
}
