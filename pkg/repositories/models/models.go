package models

import "github.com/cbodonnell/wordchain/pkg/messages"

// TurnRecord is one line of the play log: the turn result sent to the player
// plus the match it belongs to.
type TurnRecord struct {
	messages.TurnResult
	MatchID string `json:"match_id"`
}
