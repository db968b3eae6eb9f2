package game

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	addr   string
	lines  chan string
	mu     sync.Mutex
	closed bool
}

func newFakeConn(addr string) *fakeConn {
	return &fakeConn{
		addr:  addr,
		lines: make(chan string, 256),
	}
}

func (c *fakeConn) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	c.lines <- line
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) RemoteAddr() string {
	return c.addr
}

// expect reads lines until one starts with prefix.
func (c *fakeConn) expect(t *testing.T, prefix string) string {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line := <-c.lines:
			if strings.HasPrefix(line, prefix) {
				return line
			}
		case <-deadline:
			t.Fatalf("%s: timed out waiting for %q", c.addr, prefix)
			return ""
		}
	}
}

// drain returns every line received so far.
func (c *fakeConn) drain() []string {
	var lines []string
	for {
		select {
		case line := <-c.lines:
			lines = append(lines, line)
		default:
			return lines
		}
	}
}

type fakeBroadcaster struct {
	registry *Registry
}

func (b *fakeBroadcaster) Broadcast(line string) {
	for _, conn := range b.registry.Connections() {
		b.SendTo(conn, line)
	}
}

func (b *fakeBroadcaster) SendTo(conn Connection, line string) {
	_ = conn.Send(line)
}
