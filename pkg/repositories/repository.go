package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/cbodonnell/wordchain/pkg/repositories/models"
)

const (
	// DefaultListLimit is used when ListTurns is called with a non-positive limit
	DefaultListLimit = 50
	// MaxListLimit caps ListTurns
	MaxListLimit = 500
)

// Repository is an append-only play log.
type Repository interface {
	Close(ctx context.Context) error
	AppendTurn(ctx context.Context, record *models.TurnRecord) error
	// ListTurns returns up to limit of the most recent records, oldest first.
	ListTurns(ctx context.Context, limit int) ([]*models.TurnRecord, error)
	// ListMatchTurns returns every record of a match in play order, or ErrNotFound.
	ListMatchTurns(ctx context.Context, matchID string) ([]*models.TurnRecord, error)
}

// Open selects a repository by URL scheme: file://, sqlite:// or postgres(ql)://.
// A bare path is treated as file://.
func Open(ctx context.Context, url string) (Repository, error) {
	scheme, rest, found := strings.Cut(url, "://")
	if !found {
		return NewFileRepository(url)
	}

	switch scheme {
	case "file":
		return NewFileRepository(rest)
	case "sqlite", "sqlite3":
		return NewSQLiteRepository(ctx, rest)
	case "postgres", "postgresql":
		return NewPostgresRepository(ctx, url)
	default:
		return nil, fmt.Errorf("unsupported play log scheme: %s", scheme)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
