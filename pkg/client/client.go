package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cbodonnell/wordchain/pkg/log"
	"github.com/cbodonnell/wordchain/pkg/messages"
)

const (
	// LineBufferSize is the number of received lines buffered for the reader
	LineBufferSize = 256
)

// Client is a line-protocol client for a wordchain server.
type Client struct {
	conn  net.Conn
	lines chan string
	name  string

	done      chan struct{}
	closeOnce sync.Once
	readDone  chan struct{}

	writeLock sync.Mutex
	errLock   sync.Mutex
	err       error
}

// Dial connects to the server at addr and starts reading lines.
func Dial(ctx context.Context, addr string) (*Client, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}

	c := &Client{
		conn:  conn,
		lines:    make(chan string, LineBufferSize),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.readDone)
	defer close(c.lines)

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, messages.MaxLineLength), 4*messages.MaxLineLength)
	for scanner.Scan() {
		line := scanner.Text()
		log.Trace("Received line from server: %s", line)
		select {
		case c.lines <- line:
		case <-c.done:
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.setErr(err)
	}
}

// Lines returns the lines received from the server. It is closed on disconnect.
func (c *Client) Lines() <-chan string {
	return c.lines
}

// Err returns the read error that ended Lines, if any.
func (c *Client) Err() error {
	c.errLock.Lock()
	defer c.errLock.Unlock()
	return c.err
}

func (c *Client) setErr(err error) {
	c.errLock.Lock()
	defer c.errLock.Unlock()
	c.err = err
}

// Send writes one line.
func (c *Client) Send(line string) error {
	return c.SendRaw(line + "\n")
}

// SendRaw writes data as is, which may be part of a line or several lines.
func (c *Client) SendRaw(data string) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	if _, err := c.conn.Write([]byte(data)); err != nil {
		return fmt.Errorf("failed to write to server: %w", err)
	}
	return nil
}

// Register sends REGISTER and remembers the name for submissions.
func (c *Client) Register(name string, avatar string) error {
	c.name = name
	return c.Send(fmt.Sprintf("%s %s %s", messages.CommandRegister, name, avatar))
}

// Start asks the server to start a match.
func (c *Client) Start() error {
	return c.Send(messages.CommandStart)
}

// Chat sends a chat message.
func (c *Client) Chat(text string) error {
	return c.Send(messages.CommandChat + " " + text)
}

// Submit sends word as the answer to the current prompt.
func (c *Client) Submit(word string, cycle int) error {
	line, err := messages.EncodeTurnSubmission(&messages.TurnSubmission{
		Cycle:           messages.CycleOf(cycle),
		Player:          c.name,
		Word:            word,
		PlayerTimestamp: messages.FormatTimestamp(time.Now()),
	})
	if err != nil {
		return err
	}
	return c.Send(line)
}

// Close closes the connection and waits for the reader to exit.
// Lines that were never read are discarded.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	<-c.readDone
	return err
}
