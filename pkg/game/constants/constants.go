package constants

import "time"

const (
	// MaxPlayers is the default number of concurrent connections a server accepts
	MaxPlayers int = 5
	// MinPlayers is the number of ready players required to start a match
	MinPlayers int = 2

	// TurnTimeout is how long a prompted player has to answer
	TurnTimeout time.Duration = 30 * time.Second
	// TimeoutPenalty is the score change for an unanswered turn
	TimeoutPenalty int = -2
	// InvalidPenalty is the score change for a rejected word
	InvalidPenalty int = -1

	// BonusTime is the window after a prompt in which an accepted word earns BonusPoints
	BonusTime time.Duration = 5 * time.Second
	// BonusPoints is added to the word length for a fast answer
	BonusPoints int = 5

	// WinScore ends the match once a player's score reaches it
	WinScore int = 50

	// InboxSize is the number of pending submissions kept per player
	InboxSize int = 8
)
