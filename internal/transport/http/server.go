package http

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"wordchain/internal/app"
	"wordchain/internal/config"
	"wordchain/internal/transport/auth"
	"wordchain/internal/transport/throttle"
	"wordchain/internal/transport/ws"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router chi.Router
	dir    *app.Directory
	auth   *auth.Authenticator
	config *config.Config
	limits *throttle.Limiters
	logger *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, dir *app.Directory, authn *auth.Authenticator, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		dir:    dir,
		auth:   authn,
		config: cfg,
		limits: throttle.New(cfg.Game.SubmitRate, cfg.Game.SubmitBurst),
		logger: logger,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.GetAddr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.middleware)
	r.Use(chimw.Recoverer)
	r.Use(s.auth.Identify)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))

		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Get("/policies", s.handlePolicies)
		r.Get("/where", s.handleWhere)

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", s.handleListRooms)
			r.Post("/", s.handleCreateRoom)

			r.Route("/{roomID}", func(r chi.Router) {
				r.Get("/", s.handleGetRoom)
				r.Get("/history", s.handleHistory)
				r.Post("/join", s.handleJoin)
				r.Post("/leave", s.handleLeave)
				r.Post("/words", s.handleSubmitWord)
				r.Post("/reset", s.handleReset)
				r.With(s.requireAdmin).Delete("/", s.handleRemoveRoom)
			})
		})

		if s.config.IsDevelopment() {
			r.Post("/dev/login", s.handleDevLogin)
		}
	})

	// WebSocket
	wsHandler := ws.NewHandler(s.dir, s.auth, ws.Options{
		SubmitRate:  s.config.Game.SubmitRate,
		SubmitBurst: s.config.Game.SubmitBurst,
		Limiters:    s.limits,
	}, s.logger)
	r.Method(http.MethodGet, "/ws", wsHandler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, http.StatusNotFound, "NOT_FOUND", "No route for "+r.URL.Path)
	})
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// middleware adds CORS headers and logs each request
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+auth.PlayerHeader+", "+auth.AdminHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		level := slog.LevelInfo
		if r.URL.Path == "/api/health" {
			level = slog.LevelDebug
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"requestID", chimw.GetReqID(r.Context()),
		)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker for WebSocket support
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		rw.statusCode = http.StatusSwitchingProtocols
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Flush implements http.Flusher
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
