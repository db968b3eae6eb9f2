package network

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/cbodonnell/wordchain/pkg/game"
	"github.com/cbodonnell/wordchain/pkg/log"
	"github.com/cbodonnell/wordchain/pkg/messages"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

// MatchRunner plays one match to completion.
type MatchRunner interface {
	Run(ctx context.Context) error
}

type NetworkManager struct {
	registry     *game.Registry
	broadcaster  *Broadcaster
	matchRunner  MatchRunner
	writeTimeout time.Duration
	queueSize    int
	rejected     atomic.Uint64
	TCPServer    *TCPServer
	WSServer     *WSServer
}

type NewNetworkManagerOptions struct {
	Registry     *game.Registry
	Broadcaster  *Broadcaster
	MatchRunner  MatchRunner
	TCPPort      int
	WSPort       int
	WSServerTLS  *TLSConfig
	WriteTimeout time.Duration
	SendQueue    int
	// AcceptRate limits new connections per second across transports. Zero disables it.
	AcceptRate  float64
	AcceptBurst int
}

func NewNetworkManager(opts NewNetworkManagerOptions) *NetworkManager {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = WriteTimeout
	}
	if opts.Broadcaster == nil {
		opts.Broadcaster = NewBroadcaster(opts.Registry)
	}

	var limiter *rate.Limiter
	if opts.AcceptRate > 0 {
		burst := opts.AcceptBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.AcceptRate), burst)
	}

	return &NetworkManager{
		registry:     opts.Registry,
		broadcaster:  opts.Broadcaster,
		matchRunner:  opts.MatchRunner,
		writeTimeout: opts.WriteTimeout,
		queueSize:    opts.SendQueue,
		TCPServer: NewTCPServer(NewTCPServerOptions{
			Port:    opts.TCPPort,
			Limiter: limiter,
		}),
		WSServer: NewWSServer(NewWSServerOptions{
			Port:    opts.WSPort,
			TLS:     opts.WSServerTLS,
			Limiter: limiter,
		}),
	}
}

// Start runs the TCP server and, if it has a port, the WebSocket server.
// It returns when ctx is done or the TCP listener fails.
func (n *NetworkManager) Start(ctx context.Context) error {
	if n.WSServer.port > 0 {
		go func() {
			if err := n.WSServer.Start(ctx, n.HandleWSConnection); err != nil {
				log.Error("WebSocket server error: %v", err)
			}
		}()
	}
	return n.TCPServer.Start(ctx, n.HandleTCPConnection)
}

// Broadcaster returns the broadcaster shared with the game loop.
func (n *NetworkManager) Broadcaster() *Broadcaster {
	return n.broadcaster
}

// Rejected returns the number of connections turned away because the server was full.
func (n *NetworkManager) Rejected() uint64 {
	return n.rejected.Load()
}

// Failures returns the number of lines the broadcaster failed to deliver.
func (n *NetworkManager) Failures() uint64 {
	return n.broadcaster.Failures()
}

// HandleTCPConnection serves one TCP client until it disconnects or ctx is done.
func (n *NetworkManager) HandleTCPConnection(ctx context.Context, netConn net.Conn) {
	conn := newConn(newConnOptions{
		RemoteAddr: netConn.RemoteAddr().String(),
		Write:      tcpLineWriter(netConn, n.writeTimeout),
		Close:      netConn.Close,
		OnFailure:  n.broadcaster.RecordFailure,
		QueueSize:  n.queueSize,
	})
	buf := make([]byte, 1024)
	n.serve(ctx, conn, func() ([]byte, error) {
		i, err := netConn.Read(buf)
		return buf[:i], err
	})
}

// HandleWSConnection serves one WebSocket client. Each text message is framed
// like TCP input, so it may hold several lines or part of one.
func (n *NetworkManager) HandleWSConnection(ctx context.Context, wsConn *websocket.Conn, remoteAddr string) {
	wsConn.SetReadLimit(4 * messages.MaxLineLength)
	conn := newConn(newConnOptions{
		RemoteAddr: remoteAddr,
		Write:      wsLineWriter(ctx, wsConn, n.writeTimeout),
		Close: func() error {
			return wsConn.Close(websocket.StatusNormalClosure, "")
		},
		OnFailure: n.broadcaster.RecordFailure,
		QueueSize: n.queueSize,
	})
	n.serve(ctx, conn, func() ([]byte, error) {
		_, data, err := wsConn.Read(ctx)
		return data, err
	})
}

func (n *NetworkManager) serve(ctx context.Context, conn *Conn, read func() ([]byte, error)) {
	player, err := n.registry.Accept(conn)
	if err != nil {
		if errors.Is(err, game.ErrServerFull) {
			n.rejected.Add(1)
			log.Info("Rejected connection from %s: server full", conn.RemoteAddr())
			n.broadcaster.SendTo(conn, messages.Info("Server full."))
		} else {
			log.Error("Failed to accept connection from %s: %v", conn.RemoteAddr(), err)
		}
		conn.Close()
		return
	}
	log.Info("Player %d connected from %s in slot %d", player.ID, conn.RemoteAddr(), player.Slot)

	session := newSession(n, player, conn)
	defer session.terminate()

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	framer := NewFramer(messages.MaxLineLength)
	for {
		data, err := read()
		if len(data) > 0 {
			lines, ferr := framer.Feed(data)
			for _, line := range lines {
				if !session.handleLine(ctx, line) {
					return
				}
			}
			if ferr != nil {
				log.Warn("Closing connection for player %d: %v", player.ID, ferr)
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || websocket.CloseStatus(err) != -1 {
				log.Debug("Player %d closed the connection", player.ID)
			} else {
				log.Debug("Failed to read from player %d: %v", player.ID, err)
			}
			return
		}
	}
}

func (n *NetworkManager) runMatch(ctx context.Context) {
	if err := n.matchRunner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Match ended with error: %v", err)
	}
}
