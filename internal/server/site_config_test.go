package server

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSiteConfigSuffixMatch(t *testing.T) {
	dir := t.TempDir()
	cfgYAML := "marker: .cover\nviewport_width: 390\nviewport_height: 844\nlive: true\nheaders:\n  X-Custom: yes\n"
	if err := os.WriteFile(filepath.Join(dir, "example.com.yaml"), []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	store := newSiteConfigStore(dir)

	cfg := store.Find("http://www.example.com/page")
	if cfg == nil {
		t.Fatalf("expected config via suffix match")
	}
	if cfg.Marker != ".cover" || cfg.ViewportW != 390 || cfg.ViewportH != 844 || !cfg.Live {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Headers["X-Custom"] != "yes" {
		t.Fatalf("unexpected headers: %+v", cfg.Headers)
	}

	// cached result on second lookup
	if again := store.Find("http://www.example.com/other"); again != cfg {
		t.Fatalf("expected cached config pointer")
	}
}

func TestSiteConfigMiss(t *testing.T) {
	store := newSiteConfigStore(t.TempDir())
	if cfg := store.Find("http://unknown.test/"); cfg != nil {
		t.Fatalf("expected nil config, got %+v", cfg)
	}
	if cfg := store.Find("not a url"); cfg != nil {
		t.Fatalf("expected nil config for junk target")
	}
}

func TestSiteConfigBadYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.test.yaml"), []byte("{{{"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	store := newSiteConfigStore(dir)
	if cfg := store.Find("http://bad.test/"); cfg != nil {
		t.Fatalf("expected nil config for malformed yaml")
	}
}
