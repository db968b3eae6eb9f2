package network

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

const (
	// SendQueueSize is the default number of lines buffered per connection
	SendQueueSize = 64
	// WriteTimeout is the default deadline for writing one line
	WriteTimeout = 5 * time.Second
)

var (
	// ErrConnectionClosed is returned by Send after Close.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSendQueueFull is returned by Send when the peer is not keeping up.
	ErrSendQueueFull = errors.New("send queue full")
)

type lineWriter func(line string) error

// Conn is a client connection with a bounded outbound queue drained by its own
// writer goroutine, so a slow peer never blocks the sender.
type Conn struct {
	remoteAddr string
	out        chan string
	write      lineWriter
	close      func() error
	onFailure  func(addr string, err error)

	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{}
	closeErr  error
}

type newConnOptions struct {
	RemoteAddr string
	Write      lineWriter
	Close      func() error
	OnFailure  func(addr string, err error)
	QueueSize  int
}

func newConn(opts newConnOptions) *Conn {
	if opts.QueueSize <= 0 {
		opts.QueueSize = SendQueueSize
	}
	c := &Conn{
		remoteAddr: opts.RemoteAddr,
		out:        make(chan string, opts.QueueSize),
		write:      opts.Write,
		close:      opts.Close,
		onFailure:  opts.OnFailure,
		closing:    make(chan struct{}),
		done:       make(chan struct{}),
	}
	go c.run()
	return c
}

// tcpLineWriter writes one line per call with a write deadline.
func tcpLineWriter(conn net.Conn, timeout time.Duration) lineWriter {
	return func(line string) error {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
		_, err := conn.Write([]byte(line + "\n"))
		return err
	}
}

// wsLineWriter sends one text message per line, keeping the trailing newline
// so clients can frame WebSocket and TCP input the same way.
func wsLineWriter(ctx context.Context, conn *websocket.Conn, timeout time.Duration) lineWriter {
	return func(line string) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return conn.Write(ctx, websocket.MessageText, []byte(line+"\n"))
	}
}

// Send queues line for delivery.
func (c *Conn) Send(line string) error {
	select {
	case <-c.closing:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.out <- line:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close flushes queued lines, then closes the underlying connection.
// It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closing)
	})
	<-c.done
	return c.closeErr
}

func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

func (c *Conn) run() {
	defer close(c.done)
	for {
		select {
		case line := <-c.out:
			c.writeLine(line)
		case <-c.closing:
			for {
				select {
				case line := <-c.out:
					c.writeLine(line)
				default:
					c.closeErr = c.close()
					return
				}
			}
		}
	}
}

func (c *Conn) writeLine(line string) {
	if err := c.write(line); err != nil && c.onFailure != nil {
		c.onFailure(c.remoteAddr, err)
	}
}
