package messages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 123456789, time.FixedZone("X", 3600))
	assert.Equal(t, "2024-03-09T13:05:07.123Z", FormatTimestamp(ts))
}

func TestDecodeTurnSubmission(t *testing.T) {
	s, err := DecodeTurnSubmission(`{"Cycle": "3", "player": "alice", "word": "apple", "player_timestamp": "2024-03-09T13:05:07.12Z"}`)
	require.NoError(t, err)
	assert.Equal(t, CycleOf(3), s.Cycle)
	assert.Equal(t, "alice", s.Player)
	assert.Equal(t, "apple", s.Word)

	s, err = DecodeTurnSubmission(`{"Cycle": 4, "word": "tiger"}`)
	require.NoError(t, err)
	assert.Equal(t, Cycle("4"), s.Cycle)

	_, err = DecodeTurnSubmission(`{"word": `)
	assert.Error(t, err)
	_, err = DecodeTurnSubmission(`{"Cycle": true}`)
	assert.Error(t, err)
}

func TestEncodeTurnResult(t *testing.T) {
	line, err := EncodeTurnResult(&TurnResult{
		Cycle:           CycleOf(1),
		Player:          "alice",
		Word:            "apple",
		ServerTimestamp: "2024-03-09T13:05:07.123Z",
		State:           TurnStateBonus,
		ScoreChange:     10,
		CurrentScore:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"Cycle":"1","player":"alice","word":"apple","server_timestamp":"2024-03-09T13:05:07.123Z","state":"bonus","score_change":10,"current_score":10}`, line)
}

func TestTurnState_Accepted(t *testing.T) {
	assert.True(t, TurnStateAccept.Accepted())
	assert.True(t, TurnStateBonus.Accepted())
	assert.False(t, TurnStateInvalid.Accepted())
	assert.False(t, TurnStateTimeout.Accepted())
}
