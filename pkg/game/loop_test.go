package game

import (
	"context"
	"testing"
	"time"

	"github.com/cbodonnell/wordchain/pkg/dictionary"
	"github.com/cbodonnell/wordchain/pkg/messages"
	"github.com/cbodonnell/wordchain/pkg/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMatch struct {
	registry *Registry
	players  []Player
	conns    []*fakeConn
	playLog  chan workers.PlayLogRequest
	done     chan error
	cancel   context.CancelFunc
}

// startMatch registers names in order, has the first one start, and runs the loop.
func startMatch(t *testing.T, rules Rules, words *dictionary.Dictionary, names ...string) *testMatch {
	t.Helper()
	registry := NewRegistry(NewRegistryOptions{})
	m := &testMatch{
		registry: registry,
		playLog:  make(chan workers.PlayLogRequest, 64),
		done:     make(chan error, 1),
	}
	for _, name := range names {
		conn := newFakeConn(name)
		p, err := registry.Accept(conn)
		require.NoError(t, err)
		p, err = registry.Register(p.ID, name, name+".png")
		require.NoError(t, err)
		m.players = append(m.players, p)
		m.conns = append(m.conns, conn)
	}
	require.NoError(t, registry.TryStart(m.players[0].ID))

	loop := NewLoop(NewLoopOptions{
		Registry:     registry,
		Words:        words,
		Broadcaster:  &fakeBroadcaster{registry: registry},
		PlayLogChan:  m.playLog,
		Rules:        rules,
		RandomLetter: func() rune { return 'a' },
		NewMatchID:   func() string { return "match-1" },
	})
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	t.Cleanup(cancel)
	go func() {
		m.done <- loop.Run(ctx)
	}()
	return m
}

func (m *testMatch) submit(t *testing.T, i int, word string) {
	t.Helper()
	require.NoError(t, m.registry.Submit(m.players[i].ID, &messages.TurnSubmission{Player: m.players[i].Name, Word: word}))
}

func (m *testMatch) result(t *testing.T, i int) *messages.TurnResult {
	t.Helper()
	r, err := messages.DecodeTurnResult(m.conns[i].expect(t, `{"Cycle"`))
	require.NoError(t, err)
	return r
}

func (m *testMatch) logged(t *testing.T) workers.PlayLogRequest {
	t.Helper()
	select {
	case req := <-m.playLog:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for play log record")
		return workers.PlayLogRequest{}
	}
}

func (m *testMatch) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-m.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("match loop did not exit")
		return nil
	}
}

func TestLoop_AcceptedWordWithinBonusWindow(t *testing.T) {
	m := startMatch(t, DefaultRules(), dictionary.New("apple", "elephant", "tiger"), "alice", "bob")

	m.conns[1].expect(t, "INFO Game starting! First letter: a")
	assert.Equal(t, "PROMPT a", m.conns[0].expect(t, "PROMPT"))
	m.submit(t, 0, "apple")

	r := m.result(t, 0)
	assert.Equal(t, messages.Cycle("1"), r.Cycle)
	assert.Equal(t, "alice", r.Player)
	assert.Equal(t, "apple", r.Word)
	assert.Equal(t, messages.TurnStateBonus, r.State)
	assert.Equal(t, 10, r.ScoreChange)
	assert.Equal(t, 10, r.CurrentScore)
	_, err := time.Parse(messages.TimestampFormat, r.ServerTimestamp)
	assert.NoError(t, err)

	assert.Equal(t, "INFO alice played 'apple' (+10 points)", m.conns[1].expect(t, "INFO alice played"))
	assert.Equal(t, "SCORES alice:10,bob:0", m.conns[1].expect(t, "SCORES"))
	assert.Equal(t, "PROMPT e", m.conns[1].expect(t, "PROMPT"))

	req := m.logged(t)
	assert.Equal(t, "match-1", req.MatchID)
	assert.Equal(t, r, req.Turn)

	match := m.registry.Match()
	assert.Equal(t, "e", match.Letter)
	assert.Equal(t, []string{"apple"}, match.UsedWords)
	assert.Equal(t, "bob", match.CurrentPlayer)
}

func TestLoop_ImmediateRepeatIsInvalid(t *testing.T) {
	m := startMatch(t, DefaultRules(), dictionary.New("area", "apple"), "alice", "bob")

	m.conns[0].expect(t, "PROMPT a")
	m.submit(t, 0, "area")
	assert.Equal(t, messages.TurnStateBonus, m.result(t, 0).State)

	m.conns[1].expect(t, "PROMPT a")
	m.submit(t, 1, "area")
	r := m.result(t, 1)
	assert.Equal(t, messages.TurnStateInvalid, r.State)
	assert.Equal(t, -1, r.ScoreChange)
	assert.Equal(t, -1, r.CurrentScore)
	assert.Equal(t, "INFO bob played 'area' (invalid, -1 points)", m.conns[0].expect(t, "INFO bob played"))

	m.conns[0].expect(t, "PROMPT a")
	m.submit(t, 0, "apple")
	m.result(t, 0)
	m.conns[1].expect(t, "PROMPT e")
	m.submit(t, 1, "area")
	assert.Equal(t, messages.TurnStateInvalid, m.result(t, 1).State, "wrong letter")
}

func TestLoop_NonAdjacentRepeatAccepted(t *testing.T) {
	m := startMatch(t, DefaultRules(), dictionary.New("area", "alpha"), "alice", "bob")

	m.conns[0].expect(t, "PROMPT a")
	m.submit(t, 0, "area")
	m.result(t, 0)

	m.conns[1].expect(t, "PROMPT a")
	m.submit(t, 1, "alpha")
	m.result(t, 1)

	m.conns[0].expect(t, "PROMPT a")
	m.submit(t, 0, "area")
	r := m.result(t, 0)
	assert.Equal(t, messages.TurnStateBonus, r.State)
	assert.Equal(t, []string{"area", "alpha", "area"}, m.registry.Match().UsedWords)
}

func TestLoop_Timeout(t *testing.T) {
	rules := DefaultRules()
	rules.TurnTimeout = 50 * time.Millisecond
	m := startMatch(t, rules, dictionary.New("apple"), "alice", "bob")

	m.conns[0].expect(t, "PROMPT a")
	r := m.result(t, 0)
	assert.Equal(t, messages.TurnStateTimeout, r.State)
	assert.Equal(t, "", r.Word)
	assert.Equal(t, -2, r.ScoreChange)
	assert.Equal(t, -2, r.CurrentScore)
	assert.Equal(t, "INFO alice ran out of time (-2 points)", m.conns[1].expect(t, "INFO alice ran out"))

	assert.Equal(t, "PROMPT a", m.conns[1].expect(t, "PROMPT"), "letter is unchanged after a timeout")
	assert.Equal(t, "a", m.registry.Match().Letter)
}

func TestLoop_WinEndsMatch(t *testing.T) {
	rules := DefaultRules()
	rules.WinScore = 10
	m := startMatch(t, rules, dictionary.New("apple"), "alice", "bob", "carol")

	m.conns[0].expect(t, "PROMPT a")
	m.submit(t, 0, "apple")

	assert.Equal(t, "ENDGAME alice:10,bob:0,carol:0", m.conns[2].expect(t, "ENDGAME"))
	assert.NoError(t, m.wait(t))
	assert.False(t, m.registry.Match().Active)

	for i := range m.conns {
		for _, line := range m.conns[i].drain() {
			assert.NotContains(t, line, "PROMPT", "no prompt after the match ended")
		}
	}

	// the host can start another match
	assert.NoError(t, m.registry.TryStart(m.players[0].ID))
}

func TestLoop_WinnerListedFirst(t *testing.T) {
	rules := DefaultRules()
	rules.WinScore = 10
	m := startMatch(t, rules, dictionary.New("apple", "eagle"), "alice", "bob")

	m.conns[0].expect(t, "PROMPT a")
	m.submit(t, 0, "zebra")
	m.result(t, 0)
	m.conns[1].expect(t, "PROMPT a")
	m.submit(t, 1, "apple")

	assert.Equal(t, "ENDGAME bob:10,alice:-1", m.conns[0].expect(t, "ENDGAME"))
	assert.NoError(t, m.wait(t))
}

func TestLoop_DepartureDuringTurn(t *testing.T) {
	m := startMatch(t, DefaultRules(), dictionary.New("apple"), "alice", "bob", "carol")

	m.conns[0].expect(t, "PROMPT a")
	_, ok := m.registry.Remove(m.players[0].ID)
	require.True(t, ok)

	assert.Equal(t, "INFO alice ran out of time (-2 points)", m.conns[1].expect(t, "INFO alice"))
	assert.Equal(t, "PROMPT a", m.conns[1].expect(t, "PROMPT"))

	req := m.logged(t)
	assert.Equal(t, messages.TurnStateTimeout, req.Turn.State)
	assert.Equal(t, -2, req.Turn.CurrentScore)

	for _, line := range m.conns[0].drain() {
		assert.NotContains(t, line, `"Cycle"`, "no result is sent to a departed player")
	}
}

func TestLoop_LateSubmissionIgnored(t *testing.T) {
	rules := DefaultRules()
	rules.TurnTimeout = 200 * time.Millisecond
	m := startMatch(t, rules, dictionary.New("apple", "eagle", "elephant"), "alice", "bob")

	m.conns[0].expect(t, "PROMPT a")
	m.submit(t, 0, "apple")
	m.result(t, 0)

	m.conns[1].expect(t, "PROMPT e")
	m.submit(t, 0, "eagle")
	m.submit(t, 1, "elephant")
	assert.Equal(t, messages.TurnStateBonus, m.result(t, 1).State)

	m.conns[0].expect(t, "PROMPT t")
	r := m.result(t, 0)
	assert.Equal(t, messages.TurnStateTimeout, r.State, "the submission sent out of turn must not count")
}

func TestLoop_CyclesAndScoreConservation(t *testing.T) {
	rules := DefaultRules()
	rules.TurnTimeout = 30 * time.Millisecond
	m := startMatch(t, rules, dictionary.New("apple"), "alice", "bob")

	var records []*messages.TurnResult
	for i := 0; i < 5; i++ {
		records = append(records, m.logged(t).Turn)
	}
	m.cancel()
	assert.ErrorIs(t, m.wait(t), context.Canceled)
	for len(m.playLog) > 0 {
		records = append(records, (<-m.playLog).Turn)
	}

	players := []string{"alice", "bob", "alice", "bob", "alice"}
	cycles := []messages.Cycle{"1", "1", "2", "2", "3"}
	sums := map[string]int{}
	for i, r := range records {
		if i < len(players) {
			assert.Equal(t, players[i], r.Player)
			assert.Equal(t, cycles[i], r.Cycle)
		}
		sums[r.Player] += r.ScoreChange
		assert.Equal(t, sums[r.Player], r.CurrentScore)
	}

	final := map[string]int{}
	for _, e := range m.registry.Scores() {
		final[e.Name] = e.Score
	}
	assert.Equal(t, sums["alice"], final["alice"])
	assert.Equal(t, sums["bob"], final["bob"])
	assert.False(t, m.registry.Match().Active)
}

func TestLoop_EndsWhenEveryoneLeaves(t *testing.T) {
	m := startMatch(t, DefaultRules(), dictionary.New("apple"), "alice", "bob")

	m.conns[0].expect(t, "PROMPT a")
	m.registry.Remove(m.players[1].ID)
	m.registry.Remove(m.players[0].ID)

	assert.NoError(t, m.wait(t))
	assert.False(t, m.registry.Match().Active)
}
