package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"eventboard/internal/config"
	"eventboard/internal/datetime"
	"eventboard/internal/detail"
	"eventboard/internal/filter"
	"eventboard/internal/listing"
	appLog "eventboard/internal/log"
)

// Store is everything the web surface needs from the event store.
type Store interface {
	listing.Store
	detail.Store
}

// Server serves the event listing and detail pages plus a few machine
// endpoints (/api/events, /events.ics, /preview.png, /health).
type Server struct {
	cfg    *config.Config
	store  Store
	engine *filter.Engine
	format *datetime.Formatter
	pages  *pages
	router *mux.Router
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, st Store) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	format := resolveFormatter(cfg.Timezone)
	p, err := loadPages(format)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:    cfg,
		store:  st,
		engine: filter.New(cfg.DefaultCategoryID),
		format: format,
		pages:  p,
		router: mux.NewRouter(),
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return requestIDMiddleware(accessLogMiddleware(h))
}

func (s *Server) registerRoutes() {
	r := s.router
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleListing).Methods(http.MethodGet)
	r.HandleFunc("/events", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/event/{id}", s.handleDetail).Methods(http.MethodGet)
	r.HandleFunc("/event/{id}", s.handleEdit).Methods(http.MethodPost)
	r.HandleFunc("/event/{id}/delete", s.handleDelete).Methods(http.MethodPost)
	r.HandleFunc("/api/events", s.handleAPIEvents).Methods(http.MethodGet)
	r.HandleFunc("/events.ics", s.handleICS).Methods(http.MethodGet)
	r.HandleFunc("/preview.png", s.handlePreview).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(appLog.Logger().Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "api", s.cfg.APIBaseURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) listingController() *listing.Controller {
	return listing.New(s.store, listing.WithEngine(s.engine), listing.WithFormatter(s.format))
}

func (s *Server) detailController(nav detail.Navigator) *detail.Controller {
	return detail.New(s.store, nav, detail.WithFormatter(s.format))
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="Eventboard", charset="UTF-8"`)
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

type requestIDKey struct{}

// RequestIDHeader carries the per-request id on responses.
const RequestIDHeader = "X-Request-ID"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(started).String(),
			"request_id", requestID(r.Context()),
		)
	})
}

func resolveFormatter(zone string) *datetime.Formatter {
	f, err := datetime.New(zone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to default", err, "name", zone)
		return datetime.Default()
	}
	return f
}
