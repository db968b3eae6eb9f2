package network

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrProtocol is returned for input that breaks the line protocol. It ends the session.
var ErrProtocol = errors.New("protocol error")

// Framer splits a byte stream into newline-terminated lines. Chunks may end
// mid-line; the remainder is kept for the next Feed.
type Framer struct {
	buf []byte
	max int
}

// NewFramer creates a framer that rejects lines longer than max bytes.
func NewFramer(max int) *Framer {
	return &Framer{max: max}
}

// Feed appends p and returns every line it completed, without the trailing
// "\n" or "\r\n". The returned lines are valid even when err is not nil.
func (f *Framer) Feed(p []byte) ([]string, error) {
	f.buf = append(f.buf, p...)

	var lines []string
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(f.buf[:i], []byte("\r"))
		if len(line) > f.max {
			f.buf = nil
			return lines, fmt.Errorf("%w: line of %d bytes exceeds %d", ErrProtocol, len(line), f.max)
		}
		lines = append(lines, string(line))
		f.buf = f.buf[i+1:]
	}

	if len(f.buf) > f.max+1 {
		n := len(f.buf)
		f.buf = nil
		return lines, fmt.Errorf("%w: unterminated line of %d bytes exceeds %d", ErrProtocol, n, f.max)
	}
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return lines, nil
}

// Buffered returns the number of bytes of an incomplete line.
func (f *Framer) Buffered() int {
	return len(f.buf)
}
