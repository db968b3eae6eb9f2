package messages

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TimestampFormat is the UTC timestamp layout used on the wire and in the play log.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampFormat.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// TurnState is the outcome of one resolved turn.
type TurnState string

const (
	TurnStateAccept  TurnState = "accept"
	TurnStateBonus   TurnState = "bonus"
	TurnStateInvalid TurnState = "invalid"
	TurnStateTimeout TurnState = "timeout"
)

// Accepted reports whether the word was taken into the chain.
func (s TurnState) Accepted() bool {
	return s == TurnStateAccept || s == TurnStateBonus
}

// Cycle is the round number. It is sent as a string but numbers are tolerated on input.
type Cycle string

func (c *Cycle) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = Cycle(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("cycle must be a string or a number: %w", err)
	}
	*c = Cycle(n.String())
	return nil
}

// CycleOf formats a cycle counter.
func CycleOf(n int) Cycle {
	return Cycle(strconv.Itoa(n))
}

// TurnSubmission is a player's answer to a PROMPT.
type TurnSubmission struct {
	Cycle           Cycle  `json:"Cycle"`
	Player          string `json:"player"`
	Word            string `json:"word"`
	PlayerTimestamp string `json:"player_timestamp"`
}

// DecodeTurnSubmission parses a JSON submission line.
func DecodeTurnSubmission(line string) (*TurnSubmission, error) {
	s := &TurnSubmission{}
	if err := json.Unmarshal([]byte(line), s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal turn submission: %w", err)
	}
	return s, nil
}

// EncodeTurnSubmission renders a submission as a protocol line.
func EncodeTurnSubmission(s *TurnSubmission) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal turn submission: %w", err)
	}
	return string(b), nil
}

// TurnResult is the outcome of one turn. It is sent to the acting player and
// appended to the play log unchanged.
type TurnResult struct {
	Cycle           Cycle     `json:"Cycle"`
	Player          string    `json:"player"`
	Word            string    `json:"word"`
	ServerTimestamp string    `json:"server_timestamp"`
	State           TurnState `json:"state"`
	ScoreChange     int       `json:"score_change"`
	CurrentScore    int       `json:"current_score"`
}

// EncodeTurnResult renders a turn result as a protocol line.
func EncodeTurnResult(r *TurnResult) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal turn result: %w", err)
	}
	return string(b), nil
}

// DecodeTurnResult parses a turn result line.
func DecodeTurnResult(line string) (*TurnResult, error) {
	r := &TurnResult{}
	if err := json.Unmarshal([]byte(line), r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal turn result: %w", err)
	}
	return r, nil
}
