package server

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"overlayfit/fit"
)

const defaultIndexHTML = `<!DOCTYPE html>
<html><body>
<h1>Overlayfit Server</h1>
<form action="/fit" method="get">
<h3>Fit overlays on a page</h3>
URL: <input name="url" size="60"><br>
Marker: <input name="marker" placeholder=".overlay-fit"><br>
Viewport: <input name="w" size="5" placeholder="1280"> x <input name="h" size="5" placeholder="800"><br>
Live (headless browser): <input name="live" size="2" placeholder="0"><br>
<button type="submit">Fit</button>
</form>
</body></html>`

const defaultSitesDir = "config/sites"

// Config describes server wiring and runtime behaviour.
type Config struct {
	IndexHTML string
	SitesDir  string
	Marker    string
	ViewportW int
	ViewportH int
	CacheTTL  time.Duration
	Logger    *log.Logger
	Clock     func() time.Time
}

// DefaultConfig populates configuration from environment variables.
func DefaultConfig() Config {
	cfg := Config{
		IndexHTML: defaultIndexHTML,
		Logger:    log.Default(),
		Clock:     time.Now,
		Marker:    strings.TrimSpace(os.Getenv("OVERLAYFIT_MARKER")),
		SitesDir:  strings.TrimSpace(os.Getenv("OVERLAYFIT_SITES_DIR")),
		CacheTTL:  5 * time.Minute,
	}
	if cfg.Marker == "" {
		cfg.Marker = fit.DefaultMarkerSelector
	}
	if cfg.SitesDir == "" {
		cfg.SitesDir = defaultSitesDir
	}
	if raw := strings.TrimSpace(os.Getenv("OVERLAYFIT_VIEWPORT")); raw != "" {
		if w, h, ok := parseViewport(raw); ok {
			cfg.ViewportW = w
			cfg.ViewportH = h
		}
	}
	if raw := strings.TrimSpace(os.Getenv("OVERLAYFIT_CACHE_TTL")); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
			cfg.CacheTTL = time.Duration(secs) * time.Second
		}
	}
	return cfg
}

// Server exposes the HTTP handlers wrapping the overlay fitter.
type Server struct {
	cfg     Config
	mux     *http.ServeMux
	handler http.Handler
	logger  *log.Logger
	jars    *jarStore
	cache   *resultCache
	sites   *siteConfigStore
	clock   func() time.Time

	browserOnce sync.Once
	browser     *browserMeasurer
}

// New wires a server with the provided configuration.
func New(cfg Config) *Server {
	if cfg.IndexHTML == "" {
		cfg.IndexHTML = defaultIndexHTML
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Marker == "" {
		cfg.Marker = fit.DefaultMarkerSelector
	}
	if cfg.SitesDir == "" {
		cfg.SitesDir = defaultSitesDir
	}
	s := &Server{
		cfg:    cfg,
		mux:    http.NewServeMux(),
		logger: cfg.Logger,
		jars:   newJarStore(),
		cache:  newResultCache(cfg.Clock, cfg.CacheTTL),
		sites:  newSiteConfigStore(cfg.SitesDir),
		clock:  cfg.Clock,
	}
	s.registerRoutes()
	s.handler = withLogging(s.logger, s.mux)
	return s
}

// NewServer wires a server from the environment-derived default config.
func NewServer() http.Handler {
	return New(DefaultConfig())
}

// Close releases the shared headless browser, if one was started.
func (s *Server) Close() {
	if s.browser != nil {
		s.browser.Close()
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/fit", s.handleFit)
	s.mux.HandleFunc("/inspect", s.handleInspect)
	s.mux.HandleFunc("/preview", s.handlePreview)
	s.mux.HandleFunc("/ping", s.handlePing)
}

// measurerBrowser lazily starts the shared headless browser.
func (s *Server) measurerBrowser() *browserMeasurer {
	s.browserOnce.Do(func() {
		s.browser = newBrowserMeasurer(s.logger)
	})
	return s.browser
}

func parseViewport(raw string) (int, int, bool) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(raw)), "x", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}
