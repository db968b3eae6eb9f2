package game

import "errors"

var (
	// ErrServerFull is returned when a connection arrives at capacity.
	ErrServerFull = errors.New("server full")
	// ErrPlayerNotFound is returned for ids no longer in the registry.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrAlreadyRegistered is returned when a registered player registers again.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrNameTaken is returned when another registered player uses the name.
	ErrNameTaken = errors.New("name already taken")
	// ErrNotRegistered is returned for commands that need a registered player.
	ErrNotRegistered = errors.New("not registered")
	// ErrNotHost is returned when a non-host tries to start the match.
	ErrNotHost = errors.New("only the host can start the game")
	// ErrMatchActive is returned when a match is already in progress.
	ErrMatchActive = errors.New("game already in progress")
	// ErrNotEnoughPlayers is returned when fewer than two players are ready.
	ErrNotEnoughPlayers = errors.New("need at least 2 players")
)

// IsPermissionError reports whether err is a rejected request that leaves the session open.
func IsPermissionError(err error) bool {
	return errors.Is(err, ErrNotHost) ||
		errors.Is(err, ErrMatchActive) ||
		errors.Is(err, ErrNotEnoughPlayers) ||
		errors.Is(err, ErrNameTaken) ||
		errors.Is(err, ErrAlreadyRegistered)
}
