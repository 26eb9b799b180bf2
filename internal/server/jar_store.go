package server

import (
	"net"
	"net/http"
	"net/http/cookiejar"
	"sync"
)

// jarStore keeps one upstream cookie jar per client so consecutive fits of
// session-gated pages reuse the session.
type jarStore struct {
	mu   sync.Mutex
	jars map[string]http.CookieJar
}

func newJarStore() *jarStore {
	return &jarStore{jars: make(map[string]http.CookieJar)}
}

func (s *jarStore) Get(key string) http.CookieJar {
	s.mu.Lock()
	defer s.mu.Unlock()
	if jar, ok := s.jars[key]; ok {
		return jar
	}
	jar, _ := cookiejar.New(nil)
	s.jars[key] = jar
	return jar
}

func deriveClientKey(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		return v + "|" + r.UserAgent()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		host = r.RemoteAddr
	}
	return host + "|" + r.UserAgent()
}
