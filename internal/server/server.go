// Package server exposes a loaded session over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/london-map/internal/session"
)

// Options configures a Server.
type Options struct {
	AllowedOrigins []string
	CacheSize      int
	CacheTTL       time.Duration
}

// Server routes API requests to the current session. Until a session is
// installed every /api route answers 503, carrying the load error once one
// has been recorded.
type Server struct {
	router  *chi.Mux
	current atomic.Pointer[session.Session]
	failure atomic.Pointer[loadFailure]
	styles  *StyleCache
	log     *zap.Logger
}

// New builds the router.
func New(opts Options) *Server {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s := &Server{
		router: chi.NewRouter(),
		styles: NewStyleCache(opts.CacheSize, opts.CacheTTL),
		log:    zap.L().With(zap.String("component", "server")),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/session", s.handleSession)
		r.Get("/selection", s.handleGetSelection)
		r.Put("/selection", s.handlePutSelection)
		r.Get("/styles/{level}", s.handleStyles)
		r.Get("/areas/{name}", s.handleArea)
		r.Post("/focus", s.handleFocus)
		r.Delete("/focus", s.handleClearFocus)
		r.Post("/zoom", s.handleZoom)
		r.Get("/legend", s.handleLegend)
		r.Get("/search", s.handleSearch)
		r.Get("/stats/cache", s.handleCacheStats)
		r.Get("/stats/population", s.handlePopulationStats)
	})
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetSession installs sess as the ready session, replacing any previous one
// and dropping its cached styles.
func (s *Server) SetSession(sess *session.Session) {
	s.failure.Store(nil)
	if old := s.current.Swap(sess); old != nil {
		s.styles.DropSession(old.ID)
	}
}

// SetLoadError records why the session could not be loaded. It has no
// effect on the routes once a session is installed.
func (s *Server) SetLoadError(err error) {
	if err == nil {
		s.failure.Store(nil)
		return
	}
	s.failure.Store(&loadFailure{err: err})
}

// LoadError returns the recorded load error, if any.
func (s *Server) LoadError() error {
	if f := s.failure.Load(); f != nil {
		return f.err
	}
	return nil
}

type loadFailure struct {
	err error
}

// Session returns the current session, or nil before ready.
func (s *Server) Session() *session.Session {
	return s.current.Load()
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.current.Load() == nil {
			msg := session.ErrNotReady.Error()
			if err := s.LoadError(); err != nil {
				msg = "session: load failed: " + err.Error()
			}
			writeError(w, http.StatusServiceUnavailable, msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
