package game

import (
	"context"
	"math/rand"
	"time"

	"github.com/cbodonnell/wordchain/pkg/dictionary"
	"github.com/cbodonnell/wordchain/pkg/log"
	"github.com/cbodonnell/wordchain/pkg/messages"
	"github.com/cbodonnell/wordchain/pkg/workers"
	"github.com/google/uuid"
)

// Broadcaster delivers server lines to clients. Delivery is best effort.
type Broadcaster interface {
	Broadcast(line string)
	SendTo(conn Connection, line string)
}

// Loop runs matches: it prompts each player in turn, judges their word and
// keeps the scores until someone reaches the win score.
type Loop struct {
	registry     *Registry
	words        dictionary.WordSet
	broadcaster  Broadcaster
	playLogChan  chan<- workers.PlayLogRequest
	rules        Rules
	now          func() time.Time
	randomLetter func() rune
	newMatchID   func() string
}

// NewLoopOptions contains options for creating a new Loop.
type NewLoopOptions struct {
	Registry    *Registry
	Words       dictionary.WordSet
	Broadcaster Broadcaster
	// PlayLogChan receives every resolved turn. Optional.
	PlayLogChan chan<- workers.PlayLogRequest
	Rules       Rules
	// Now, RandomLetter and NewMatchID default to the real clock, a uniform a-z and uuid v4.
	Now          func() time.Time
	RandomLetter func() rune
	NewMatchID   func() string
}

func NewLoop(opts NewLoopOptions) *Loop {
	l := &Loop{
		registry:     opts.Registry,
		words:        opts.Words,
		broadcaster:  opts.Broadcaster,
		playLogChan:  opts.PlayLogChan,
		rules:        opts.Rules,
		now:          opts.Now,
		randomLetter: opts.RandomLetter,
		newMatchID:   opts.NewMatchID,
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.randomLetter == nil {
		l.randomLetter = func() rune {
			return rune('a' + rand.Intn(26))
		}
	}
	if l.newMatchID == nil {
		l.newMatchID = func() string {
			return uuid.New().String()
		}
	}
	return l
}

// Run plays one match to completion. The caller must have won Registry.TryStart.
// It returns ctx.Err() when the server shuts down mid-match.
func (l *Loop) Run(ctx context.Context) error {
	matchID := l.newMatchID()
	letter := l.randomLetter()
	order := l.registry.beginMatch(matchID, letter)
	log.Info("Match %s started with %d players, first letter %c", matchID, len(order), letter)
	l.broadcaster.Broadcast(messages.Info("Game starting! First letter: %c", letter))

	for {
		t, ok := l.registry.currentTurn()
		if !ok {
			l.registry.endMatch()
			log.Info("Match %s ended with no players left", matchID)
			l.broadcaster.Broadcast(messages.Info("All players left, game over."))
			return nil
		}

		over, err := l.playTurn(ctx, matchID, t)
		if err != nil {
			l.registry.endMatch()
			return err
		}
		if over {
			return nil
		}
		l.registry.advanceTurn()
	}
}

// playTurn prompts t's player and resolves their answer. It reports whether the match is over.
func (l *Loop) playTurn(ctx context.Context, matchID string, t turn) (bool, error) {
	if n := t.inbox.Clear(); n > 0 {
		log.Debug("Dropped %d stale submissions from %s", n, t.name)
	}
	l.broadcaster.SendTo(t.conn, messages.Prompt(t.letter))
	promptedAt := l.now()

	timer := time.NewTimer(l.rules.TurnTimeout)
	defer timer.Stop()

	var word string
	var state messages.TurnState
	var delta int
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-t.departed:
		log.Debug("Player %s left during their turn", t.name)
		state, delta = l.rules.Timeout()
	case <-timer.C:
		state, delta = l.rules.Timeout()
	case submission := <-t.inbox.Chan():
		elapsed := l.now().Sub(promptedAt)
		word = submission.Word
		valid := dictionary.Valid(word, t.letter, l.words, t.lastWord)
		state, delta = l.rules.Judge(word, valid, elapsed)
	}

	score, present := l.registry.resolveTurn(t, word, state, delta)
	result := &messages.TurnResult{
		Cycle:           messages.CycleOf(t.cycle),
		Player:          t.name,
		Word:            word,
		ServerTimestamp: messages.FormatTimestamp(l.now()),
		State:           state,
		ScoreChange:     delta,
		CurrentScore:    score,
	}
	log.Debug("Turn resolved: player=%s word=%q state=%s change=%d score=%d", t.name, word, state, delta, score)

	if present {
		line, err := messages.EncodeTurnResult(result)
		if err != nil {
			log.Error("Failed to encode turn result: %v", err)
		} else {
			l.broadcaster.SendTo(t.conn, line)
		}
	}
	l.logTurn(ctx, matchID, result)
	l.broadcaster.Broadcast(turnNotice(result))
	l.broadcaster.Broadcast(messages.Scores(l.registry.Scores()))

	if present && score >= l.rules.WinScore {
		standings := l.registry.endgame(t.playerID)
		log.Info("Match %s won by %s with %d points", matchID, t.name, score)
		l.broadcaster.Broadcast(messages.Endgame(standings))
		return true, nil
	}
	return false, nil
}

func (l *Loop) logTurn(ctx context.Context, matchID string, result *messages.TurnResult) {
	if l.playLogChan == nil {
		return
	}
	req := workers.PlayLogRequest{MatchID: matchID, Turn: result}
	select {
	case l.playLogChan <- req:
		return
	default:
	}
	select {
	case l.playLogChan <- req:
	case <-ctx.Done():
		log.Warn("Dropped play log record for %s: %v", result.Player, ctx.Err())
	}
}

func turnNotice(r *messages.TurnResult) string {
	switch r.State {
	case messages.TurnStateTimeout:
		return messages.Info("%s ran out of time (%d points)", r.Player, r.ScoreChange)
	case messages.TurnStateInvalid:
		return messages.Info("%s played '%s' (invalid, %d points)", r.Player, r.Word, r.ScoreChange)
	default:
		return messages.Info("%s played '%s' (%+d points)", r.Player, r.Word, r.ScoreChange)
	}
}
