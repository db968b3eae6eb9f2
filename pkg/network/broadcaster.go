package network

import (
	"sync/atomic"

	"github.com/cbodonnell/wordchain/pkg/game"
	"github.com/cbodonnell/wordchain/pkg/log"
)

// Broadcaster fans lines out to every connection in the registry. Failed
// deliveries are counted and logged but never abort the fan-out.
type Broadcaster struct {
	registry *game.Registry
	failures atomic.Uint64
}

func NewBroadcaster(registry *game.Registry) *Broadcaster {
	return &Broadcaster{
		registry: registry,
	}
}

// Broadcast sends line to every connected client, registered or not.
func (b *Broadcaster) Broadcast(line string) {
	for _, conn := range b.registry.Connections() {
		b.SendTo(conn, line)
	}
}

// SendTo sends line to a single connection.
func (b *Broadcaster) SendTo(conn game.Connection, line string) {
	if err := conn.Send(line); err != nil {
		b.RecordFailure(conn.RemoteAddr(), err)
	}
}

// RecordFailure counts a delivery that did not make it to addr.
func (b *Broadcaster) RecordFailure(addr string, err error) {
	b.failures.Add(1)
	log.Warn("Failed to deliver message to %s: %v", addr, err)
}

// Failures returns the number of failed deliveries since start.
func (b *Broadcaster) Failures() uint64 {
	return b.failures.Load()
}
