// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package web serves the browser surface: the search form, the result grid
// and the page controls, a JSON view of the same session state, and a proxy
// for thumbnails on the allowed image hosts.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/met-search/internal/collection"
	"github.com/pdiddy/met-search/internal/session"
	"github.com/pdiddy/met-search/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

const sessionCookie = "met_session"

// Server handles browser and JSON requests for search sessions.
type Server struct {
	sessions *session.Store
	images   *ImageProxy
	tmpl     *template.Template
	log      *slog.Logger
}

type pageData struct {
	State session.State
}

// NewServer parses the embedded templates and returns a Server.
func NewServer(sessions *session.Store, images *ImageProxy, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"add":      func(a, b int) int { return a + b },
		"sub":      func(a, b int) int { return a - b },
		"imageURL": imageURL,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{sessions: sessions, images: images, tmpl: tmpl, log: log}, nil
}

// Routes returns the HTTP handler for all endpoints.
func (s *Server) Routes() http.Handler {
	static, _ := fs.Sub(staticFS, "static")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("POST /page", s.handlePage)
	mux.HandleFunc("POST /clear", s.handleClear)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/page", s.handlePage)
	mux.HandleFunc("POST /api/clear", s.handleClear)
	mux.Handle("GET /image", s.images)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			s.log.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	orch := s.sessionFor(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", pageData{State: orch.State()}); err != nil {
		s.log.Error("Unable to render page", "err", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.sessionFor(w, r).State())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	orch := s.sessionFor(w, r)
	query := r.FormValue("q")

	st, err := orch.Search(s.detach(r), query)
	switch {
	case errors.Is(err, collection.ErrEmptyQuery):
		s.fail(w, r, "Query is required", http.StatusBadRequest)
		return
	case err != nil && !errors.Is(err, session.ErrSuperseded):
		s.log.Warn("Search failed", "query", query, "err", err)
	}
	s.respond(w, r, st)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	orch := s.sessionFor(w, r)
	page, err := strconv.Atoi(r.FormValue("page"))
	if err != nil {
		s.fail(w, r, "Invalid page number", http.StatusBadRequest)
		return
	}

	st, err := orch.GoToPage(s.detach(r), page)
	switch {
	case errors.Is(err, session.ErrNoSearch), errors.Is(err, session.ErrPageOutOfRange):
		s.fail(w, r, err.Error(), http.StatusBadRequest)
		return
	case err != nil && !errors.Is(err, session.ErrSuperseded):
		s.log.Warn("Page fill failed", "page", page, "err", err)
	}
	s.respond(w, r, st)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, s.sessionFor(w, r).Clear())
}

// detach keeps request values but not request cancellation: an operation
// ends only when it completes or a newer one in the same session replaces it.
func (s *Server) detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// sessionFor returns the caller's session, creating one and setting the
// cookie when the request carries none or an expired one.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) *session.Orchestrator {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if orch, ok := s.sessions.Get(c.Value); ok {
			return orch
		}
	}
	id, orch := s.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return orch
}

// respond writes st as JSON for /api/ requests and redirects browsers back
// to the page otherwise.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, st session.State) {
	if isAPI(r) {
		s.writeJSON(w, st)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, message string, code int) {
	if isAPI(r) {
		s.writeError(w, message, code)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Response helpers
func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeError reports a rejected request. These are caller mistakes, so they
// log at Warn.
func (s *Server) writeError(w http.ResponseWriter, message string, code int) {
	s.log.Warn("Request rejected", "status", code, "reason", message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func imageURL(src string) string {
	return "/image?src=" + url.QueryEscape(src)
}

// NewHTTPServer wraps handler in an http.Server with the timeouts used by
// the serve command.
func NewHTTPServer(cfg types.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
