package fit

import (
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const defaultFetchTimeout = 8 * time.Second

func resolveAbsURL(base, href string) string {
	bu, err := url.Parse(base)
	if err != nil {
		return ""
	}
	hu, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return bu.ResolveReference(hu).String()
}

// FetchDocument retrieves and parses an HTML page. The returned URL reflects
// redirects and is the base for resolving the page's stylesheet links.
func FetchDocument(target string, hdr http.Header, jar http.CookieJar) (*html.Node, string, error) {
	if strings.TrimSpace(target) == "" {
		return nil, "", fmt.Errorf("fetch document: empty target url")
	}
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch document: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	if hdr != nil {
		for k, vals := range hdr {
			if strings.EqualFold(k, "Accept") {
				continue
			}
			for _, v := range vals {
				req.Header.Add(k, v)
			}
		}
	}
	client := &http.Client{Timeout: defaultFetchTimeout}
	if jar != nil {
		client.Jar = jar
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	body := decodeBody(resp)
	doc, err := html.Parse(body)
	if err != nil {
		return nil, "", fmt.Errorf("parse document: %w", err)
	}
	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return doc, finalURL, nil
}

func decodeBody(resp *http.Response) io.Reader {
	rc := io.Reader(resp.Body)
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		if gr, err := gzip.NewReader(resp.Body); err == nil {
			rc = gr
		}
	case "deflate":
		if zr, err := zlib.NewReader(resp.Body); err == nil {
			rc = zr
		} else {
			rc = flate.NewReader(resp.Body)
		}
	}
	return rc
}

// fetchText grabs a text resource (stylesheets) with the request headers the
// page itself was fetched with.
func fetchText(absURL string, hdr http.Header, jar http.CookieJar, accept string) ([]byte, bool) {
	req, err := http.NewRequest(http.MethodGet, absURL, nil)
	if err != nil {
		return nil, false
	}
	if accept == "" {
		accept = "text/*"
	}
	req.Header.Set("Accept", accept)
	if hdr != nil {
		for k, vals := range hdr {
			for _, v := range vals {
				if strings.EqualFold(k, "accept") {
					continue
				}
				req.Header.Add(k, v)
			}
		}
	}
	client := &http.Client{Timeout: defaultFetchTimeout}
	if jar != nil {
		client.Jar = jar
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(decodeBody(resp))
	if err != nil {
		return nil, false
	}
	return body, true
}
