package game

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/cbodonnell/wordchain/pkg/game/constants"
	"github.com/cbodonnell/wordchain/pkg/messages"
)

// Rules holds the scoring and timing parameters of a match.
type Rules struct {
	TurnTimeout    time.Duration
	BonusTime      time.Duration
	BonusPoints    int
	TimeoutPenalty int
	InvalidPenalty int
	WinScore       int
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		TurnTimeout:    constants.TurnTimeout,
		BonusTime:      constants.BonusTime,
		BonusPoints:    constants.BonusPoints,
		TimeoutPenalty: constants.TimeoutPenalty,
		InvalidPenalty: constants.InvalidPenalty,
		WinScore:       constants.WinScore,
	}
}

// Validate reports rule sets that cannot produce a playable match.
func (r Rules) Validate() error {
	if r.TurnTimeout <= 0 {
		return fmt.Errorf("turn timeout must be positive, got %s", r.TurnTimeout)
	}
	if r.BonusTime < 0 {
		return fmt.Errorf("bonus time must not be negative, got %s", r.BonusTime)
	}
	if r.WinScore <= 0 {
		return fmt.Errorf("win score must be positive, got %d", r.WinScore)
	}
	return nil
}

// Judge returns the state and score change of a submitted word.
func (r Rules) Judge(word string, valid bool, elapsed time.Duration) (messages.TurnState, int) {
	if !valid {
		return messages.TurnStateInvalid, r.InvalidPenalty
	}
	points := utf8.RuneCountInString(word)
	if elapsed <= r.BonusTime {
		return messages.TurnStateBonus, points + r.BonusPoints
	}
	return messages.TurnStateAccept, points
}

// Timeout returns the state and score change of an unanswered turn.
func (r Rules) Timeout() (messages.TurnState, int) {
	return messages.TurnStateTimeout, r.TimeoutPenalty
}
