package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cbodonnell/wordchain/pkg/api/handlers"
	"github.com/cbodonnell/wordchain/pkg/api/middleware"
	"github.com/cbodonnell/wordchain/pkg/game"
	"github.com/cbodonnell/wordchain/pkg/log"
	"github.com/cbodonnell/wordchain/pkg/repositories"
	"github.com/gorilla/mux"
)

type APIServer struct {
	server *http.Server
	tls    *TLSConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewAPIServerOptions struct {
	Port       int
	TLS        *TLSConfig
	Registry   *game.Registry
	Repository repositories.Repository
	Counters   handlers.Counters
}

// NewAPIServer creates a new http.Server for the read-only status API
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: NewRouter(opts),
	}
	return &APIServer{
		server: server,
		tls:    opts.TLS,
	}
}

// NewRouter builds the API routes.
func NewRouter(opts NewAPIServerOptions) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Logging, middleware.CORS)

	r.HandleFunc("/health", handlers.HandleHealth()).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/scores", handlers.HandleScores(opts.Registry)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/players", handlers.HandlePlayers(opts.Registry)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/match", handlers.HandleMatch(opts.Registry)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/stats", handlers.HandleStats(opts.Registry, opts.Counters)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/turns", handlers.HandleListTurns(opts.Repository)).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/matches/{matchID}/turns", handlers.HandleListMatchTurns(opts.Repository)).Methods(http.MethodGet, http.MethodOptions)

	return r
}

// Start starts the APIServer
func (s *APIServer) Start() {
	var listenAndServe func() error
	if s.tls != nil {
		log.Info("API server listening on %s with TLS", s.server.Addr)
		listenAndServe = func() error {
			return s.server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("API server listening on %s", s.server.Addr)
		listenAndServe = s.server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("API server closed")
			return
		}
		log.Error("API server error: %v", err)
	}
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
