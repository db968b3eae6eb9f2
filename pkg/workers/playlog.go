package workers

import (
	"context"
	"time"

	"github.com/cbodonnell/wordchain/pkg/log"
	"github.com/cbodonnell/wordchain/pkg/messages"
	"github.com/cbodonnell/wordchain/pkg/repositories"
	"github.com/cbodonnell/wordchain/pkg/repositories/models"
)

const (
	// PlayLogBufferSize is the capacity of the channel feeding the worker
	PlayLogBufferSize = 256
	// playLogDrainTimeout bounds the writes made after shutdown begins
	playLogDrainTimeout = 5 * time.Second
)

type PlayLogWorker struct {
	repository  repositories.Repository
	playLogChan <-chan PlayLogRequest
}

type NewPlayLogWorkerOptions struct {
	Repository  repositories.Repository
	PlayLogChan <-chan PlayLogRequest
}

type PlayLogRequest struct {
	MatchID string
	Turn    *messages.TurnResult
}

// NewPlayLogWorker creates a new PlayLogWorker.
// The worker appends the turns resolved by the game loop to the repository.
// Failures are logged and never reach the game.
func NewPlayLogWorker(opts NewPlayLogWorkerOptions) *PlayLogWorker {
	return &PlayLogWorker{
		repository:  opts.Repository,
		playLogChan: opts.PlayLogChan,
	}
}

// Start runs until ctx is done, then writes whatever is already queued.
func (w *PlayLogWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case req := <-w.playLogChan:
			w.appendTurn(ctx, req)
		}
	}
}

func (w *PlayLogWorker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), playLogDrainTimeout)
	defer cancel()

	n := 0
	for {
		select {
		case req := <-w.playLogChan:
			w.appendTurn(ctx, req)
			n++
		default:
			if n > 0 {
				log.Debug("Wrote %d queued play log records on shutdown", n)
			}
			return
		}
	}
}

func (w *PlayLogWorker) appendTurn(ctx context.Context, req PlayLogRequest) {
	if req.Turn == nil {
		return
	}
	record := &models.TurnRecord{
		TurnResult: *req.Turn,
		MatchID:    req.MatchID,
	}
	if err := w.repository.AppendTurn(ctx, record); err != nil {
		log.Error("Failed to append turn for %s in match %s: %v", req.Turn.Player, req.MatchID, err)
	}
}
