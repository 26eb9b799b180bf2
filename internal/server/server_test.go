package server

import (
	"testing"
	"time"
)

func TestParseViewport(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		w    int
		h    int
		ok   bool
	}{
		{"plain", "1280x800", 1280, 800, true},
		{"spaced", " 390 x 844 ", 390, 844, true},
		{"upper", "1024X768", 1024, 768, true},
		{"missing_h", "1280", 0, 0, false},
		{"zero", "0x800", 0, 0, false},
		{"junk", "widexhigh", 0, 0, false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w, h, ok := parseViewport(tc.in)
			if w != tc.w || h != tc.h || ok != tc.ok {
				t.Fatalf("parseViewport(%q) = (%d, %d, %v), want (%d, %d, %v)", tc.in, w, h, ok, tc.w, tc.h, tc.ok)
			}
		})
	}
}

func TestResultCacheTTL(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := newResultCache(clock, time.Minute)

	c.Store("k", []byte("body"))
	if got, ok := c.Get("k"); !ok || string(got) != "body" {
		t.Fatalf("expected fresh entry, got (%q, %v)", got, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry")
	}
}

func TestResultCacheDisabled(t *testing.T) {
	c := newResultCache(time.Now, 0)
	c.Store("k", []byte("body"))
	if _, ok := c.Get("k"); ok {
		t.Fatalf("zero TTL must disable caching")
	}
}

func TestURLDecode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a%2Fb", "a/b"},
		{"%68%74%74%70", "http"},
		{"trailing%2", "trailing%2"},
	}
	for _, tc := range tests {
		if got := urlDecode(tc.in); got != tc.want {
			t.Fatalf("urlDecode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
