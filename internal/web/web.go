// Package web serves the projected timetable: JSON endpoints, the HTML
// timetable page and the last captured preview.
package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"weekgrid/internal/config"
	"weekgrid/internal/dataset"
	appLog "weekgrid/internal/log"
	"weekgrid/internal/view"
	"weekgrid/internal/weekday"
)

// layoutCacheTTL bounds how long a projection is reused for one dataset.
// The now-indicator and current-day highlight drift by at most this much.
const layoutCacheTTL = 30 * time.Second

// Server publishes the projected timetable as JSON and as an HTML page.
type Server struct {
	cfg   *config.Config
	store *dataset.Store
	mux   *http.ServeMux

	// Now is the clock; tests replace it.
	Now func() time.Time

	layoutMu    sync.RWMutex
	layoutCache *layoutCache
}

type layoutCache struct {
	view      view.View
	updatedAt time.Time
}

// NewServer constructs a new Server reading datasets from store.
func NewServer(cfg *config.Config, store *dataset.Store) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		mux:   http.NewServeMux(),
		Now:   time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. An empty
// username or password disables it.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="weekgrid", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves until ctx is cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, store *dataset.Store) error {
	s := NewServer(cfg, store)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/layout", s.handleLayout)
	s.mux.HandleFunc("GET /api/weekdays", s.handleWeekdays)
	s.mux.HandleFunc("GET /timetable", s.handleTimetable)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/timetable", http.StatusFound)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// currentView returns the projection of the current dataset, reusing the
// cached one while it belongs to the same dataset and is younger than
// layoutCacheTTL.
func (s *Server) currentView() (view.View, error) {
	ds := s.store.Get()
	now := s.Now()

	s.layoutMu.RLock()
	lc := s.layoutCache
	s.layoutMu.RUnlock()
	if lc != nil && lc.view.DatasetID == ds.ID && now.Sub(lc.updatedAt) < layoutCacheTTL {
		return lc.view, nil
	}

	v, err := view.Build(s.cfg, ds, now)
	if err != nil {
		return view.View{}, err
	}

	s.layoutMu.Lock()
	s.layoutCache = &layoutCache{view: v, updatedAt: now}
	s.layoutMu.Unlock()

	appLog.Debug("layout projected", "dataset_id", ds.ID, "events", len(v.Events))
	return v, nil
}

func (s *Server) handleLayout(w http.ResponseWriter, _ *http.Request) {
	v, err := s.currentView()
	if err != nil {
		appLog.Error("api layout: build failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build layout")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleWeekdays(w http.ResponseWriter, _ *http.Request) {
	labels, err := s.cfg.LabelStrategy()
	if err != nil {
		appLog.Error("api weekdays: label strategy", err)
		writeError(w, http.StatusInternalServerError, "invalid weekday label settings")
		return
	}
	now := s.Now().In(s.cfg.Location())
	writeJSON(w, http.StatusOK, weekday.Resolve(s.cfg.Grid.NumOfDays, now, labels))
}

func (s *Server) handleTimetable(w http.ResponseWriter, _ *http.Request) {
	v, err := s.currentView()
	if err != nil {
		appLog.Error("timetable: build failed", err)
		http.Error(w, "failed to build timetable", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := timetablePage.Execute(&buf, v); err != nil {
		appLog.Error("timetable: render failed", err)
		http.Error(w, "failed to render timetable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handlePreview serves the last captured PNG from disk; 404 until the
// first capture.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.PreviewPath)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
