// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/met-search/internal/httputil"
)

var errHostNotAllowed = errors.New("image host not allowed")

// ImageProxy streams thumbnails from an allow-list of remote hosts so that
// result cards never load images from arbitrary origins.
type ImageProxy struct {
	Client    *http.Client
	UserAgent string
	hosts     map[string]bool
	log       *slog.Logger
}

// NewImageProxy returns a proxy that only fetches from hosts.
func NewImageProxy(client *http.Client, userAgent string, hosts []string, log *slog.Logger) *ImageProxy {
	if log == nil {
		log = slog.Default()
	}
	allowed := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		allowed[strings.ToLower(strings.TrimSpace(h))] = true
	}
	p := &ImageProxy{UserAgent: userAgent, hosts: allowed, log: log}

	if client == nil {
		client = http.DefaultClient
	}
	// Redirects must stay on allowed hosts too.
	c := *client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		if !p.Allowed(req.URL.String()) {
			return fmt.Errorf("redirect to %s: %w", req.URL.Host, errHostNotAllowed)
		}
		return nil
	}
	p.Client = &c
	return p
}

// Allowed reports whether src is an http(s) URL on an allowed host.
func (p *ImageProxy) Allowed(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	return p.hosts[strings.ToLower(u.Hostname())]
}

func (p *ImageProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")
	if !p.Allowed(src) {
		http.Error(w, "Image host not allowed", http.StatusBadRequest)
		return
	}

	resp, err := httputil.Get(r.Context(), p.Client, src, p.UserAgent)
	if err != nil {
		if errors.Is(err, errHostNotAllowed) {
			p.log.Warn("Image redirect refused", "src", src, "err", err)
			http.Error(w, "Image host not allowed", http.StatusBadRequest)
			return
		}
		var se *httputil.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			http.NotFound(w, r)
			return
		}
		p.log.Warn("Image fetch failed", "src", src, "err", err)
		http.Error(w, "Image unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		w.Header().Set("Content-Length", cl)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.log.Debug("Image copy interrupted", "src", src, "err", err)
	}
}
