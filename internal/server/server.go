// Package server exposes the dispatch operations over a versioned HTTP
// JSON API.
package server

import (
	"context"
	"crypto/subtle"
	"crypto/tls"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mqln/mcp-server-smtp/internal/audit"
	"github.com/mqln/mcp-server-smtp/internal/dispatch"
	"github.com/mqln/mcp-server-smtp/internal/relay"
)

const shutdownTimeout = 5 * time.Second

// Options holds configuration for the HTTP API server.
type Options struct {
	Addr string

	// APIKey enables bearer-token auth on the /api routes when set.
	APIKey string

	// TLSConfig enables HTTPS when non-nil.
	TLSConfig *tls.Config
}

// Server routes send, relay listing and log retrieval operations to the
// dispatch core.
type Server struct {
	opts       Options
	registry   *relay.Registry
	dispatcher *dispatch.Dispatcher
	engine     *dispatch.Engine
	log        *audit.Log
	server     *http.Server
}

// New creates the API server over its collaborators.
func New(opts Options, reg *relay.Registry, d *dispatch.Dispatcher, e *dispatch.Engine, log *audit.Log) *Server {
	return &Server{
		opts:       opts,
		registry:   reg,
		dispatcher: d,
		engine:     e,
		log:        log,
	}
}

// ListenAndServe starts the server and blocks until the context is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:      s.opts.Addr,
		Handler:   s.routes(),
		TLSConfig: s.opts.TLSConfig,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down HTTP API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			slog.Error("error shutting down HTTP API server", "error", err)
		}
	}()

	var err error
	if s.opts.TLSConfig != nil {
		// Certificates are already in TLSConfig.
		err = s.server.ListenAndServeTLS("", "")
	} else {
		err = s.server.ListenAndServe()
	}
	if err == http.ErrServerClosed || ctx.Err() != nil {
		return nil
	}
	return err
}

// routes configures all HTTP routes and middleware.
func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)

	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.authMiddleware)

	v1.HandleFunc("/send", s.handleSend).Methods("POST")
	v1.HandleFunc("/send-bulk", s.handleSendBulk).Methods("POST")
	v1.HandleFunc("/relays", s.handleListRelays).Methods("GET")
	v1.HandleFunc("/logs", s.handleGetLogs).Methods("GET")

	return router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}

// authMiddleware enforces bearer-token auth when an API key is
// configured. Comparison is constant-time.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.APIKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
