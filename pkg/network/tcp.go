package network

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/cbodonnell/wordchain/pkg/log"
	"golang.org/x/time/rate"
)

// TCPConnectionHandler serves one accepted connection. It owns conn.
type TCPConnectionHandler func(ctx context.Context, conn net.Conn)

// TCPServer represents a TCP server.
type TCPServer struct {
	port    int
	limiter *rate.Limiter
}

type NewTCPServerOptions struct {
	Port int
	// Limiter paces accepted connections. Nil disables it.
	Limiter *rate.Limiter
}

// NewTCPServer creates a new TCP server.
func NewTCPServer(opts NewTCPServerOptions) *TCPServer {
	return &TCPServer{
		port:    opts.Port,
		limiter: opts.Limiter,
	}
}

// Start listens on the configured port and serves until ctx is done.
func (s *TCPServer) Start(ctx context.Context, handler TCPConnectionHandler) error {
	tcpAddr, err := net.ResolveTCPAddr("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to resolve TCP address: %w", err)
	}

	tcpListener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on TCP address: %w", err)
	}
	log.Info("TCP server listening on %s", tcpListener.Addr().String())

	return s.Serve(ctx, tcpListener, handler)
}

// Serve accepts connections on listener until ctx is done. It closes listener.
func (s *TCPServer) Serve(ctx context.Context, listener net.Listener, handler TCPConnectionHandler) error {
	stop := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	defer stop()
	defer listener.Close()

	for {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info("TCP server closed")
				return nil
			}
			log.Error("Failed to accept TCP connection: %v", err)
			continue
		}

		log.Debug("New TCP connection from %s", conn.RemoteAddr().String())
		go handler(ctx, conn)
	}
}
