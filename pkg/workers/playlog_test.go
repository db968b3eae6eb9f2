package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cbodonnell/wordchain/pkg/messages"
	"github.com/cbodonnell/wordchain/pkg/repositories/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRepository) AppendTurn(ctx context.Context, record *models.TurnRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockRepository) ListTurns(ctx context.Context, limit int) ([]*models.TurnRecord, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*models.TurnRecord), args.Error(1)
}

func (m *mockRepository) ListMatchTurns(ctx context.Context, matchID string) ([]*models.TurnRecord, error) {
	args := m.Called(ctx, matchID)
	return args.Get(0).([]*models.TurnRecord), args.Error(1)
}

func turn(player string, word string) *messages.TurnResult {
	return &messages.TurnResult{
		Cycle:  messages.CycleOf(1),
		Player: player,
		Word:   word,
		State:  messages.TurnStateAccept,
	}
}

func matchesTurn(matchID string, word string) interface{} {
	return mock.MatchedBy(func(r *models.TurnRecord) bool {
		return r.MatchID == matchID && r.Word == word
	})
}

func TestPlayLogWorker_AppendsTurns(t *testing.T) {
	repo := &mockRepository{}
	written := make(chan struct{}, 2)
	repo.On("AppendTurn", mock.Anything, matchesTurn("m1", "apple")).Return(nil).Run(func(mock.Arguments) { written <- struct{}{} }).Once()
	repo.On("AppendTurn", mock.Anything, matchesTurn("m1", "elephant")).Return(errors.New("disk full")).Run(func(mock.Arguments) { written <- struct{}{} }).Once()

	ch := make(chan PlayLogRequest, 2)
	w := NewPlayLogWorker(NewPlayLogWorkerOptions{Repository: repo, PlayLogChan: ch})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	ch <- PlayLogRequest{MatchID: "m1", Turn: turn("alice", "apple")}
	ch <- PlayLogRequest{MatchID: "m1", Turn: turn("bob", "elephant")}
	for i := 0; i < 2; i++ {
		select {
		case <-written:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for append")
		}
	}

	cancel()
	<-done
	repo.AssertExpectations(t)
}

func TestPlayLogWorker_DrainsOnShutdown(t *testing.T) {
	repo := &mockRepository{}
	repo.On("AppendTurn", mock.Anything, mock.Anything).Return(nil).Times(3)

	ch := make(chan PlayLogRequest, 3)
	for _, word := range []string{"apple", "elephant", "tiger"} {
		ch <- PlayLogRequest{MatchID: "m2", Turn: turn("alice", word)}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := NewPlayLogWorker(NewPlayLogWorkerOptions{Repository: repo, PlayLogChan: ch})
	w.Start(ctx)

	repo.AssertExpectations(t)
	assert.Empty(t, ch)
}
