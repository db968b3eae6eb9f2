package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/cbodonnell/wordchain/pkg/log"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

// WSConnectionHandler serves one accepted WebSocket connection.
type WSConnectionHandler func(ctx context.Context, conn *websocket.Conn, remoteAddr string)

// WSServer represents a WebSocket server.
type WSServer struct {
	port    int
	tls     *TLSConfig
	limiter *rate.Limiter
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewWSServerOptions struct {
	Port    int
	TLS     *TLSConfig
	Limiter *rate.Limiter
}

// NewWSServer creates a new WebSocket server.
func NewWSServer(opts NewWSServerOptions) *WSServer {
	return &WSServer{
		port:    opts.Port,
		tls:     opts.TLS,
		limiter: opts.Limiter,
	}
}

// Handler upgrades requests and runs handler for the life of each connection.
func (s *WSServer) Handler(ctx context.Context, handler WSConnectionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil {
			if err := s.limiter.Wait(r.Context()); err != nil {
				return
			}
		}
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Error("Failed to upgrade to WebSocket: %v", err)
			return
		}
		log.Debug("New WebSocket connection from %s", r.RemoteAddr)
		handler(ctx, conn, r.RemoteAddr)
	})
}

// Start starts the WebSocket server.
func (s *WSServer) Start(ctx context.Context, handler WSConnectionHandler) error {
	addr := fmt.Sprintf(":%d", s.port)
	server := &http.Server{
		Addr:    addr,
		Handler: s.Handler(ctx, handler),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	var listenAndServe func() error
	if s.tls != nil {
		log.Info("WebSocket server listening on %s with TLS", addr)
		listenAndServe = func() error {
			return server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("WebSocket server listening on %s", addr)
		listenAndServe = server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("WebSocket server closed")
			return nil
		}
		return err
	}
	return nil
}
