package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cbodonnell/wordchain/pkg/log"
	"github.com/cbodonnell/wordchain/pkg/messages"
	"github.com/cbodonnell/wordchain/pkg/repositories/models"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(ctx context.Context, path string) (Repository, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrate(ctx, db, "sqlite3"); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug("Opened sqlite play log %s", path)
	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) AppendTurn(ctx context.Context, record *models.TurnRecord) error {
	q := `
	INSERT INTO turns (match_id, cycle, player, word, server_timestamp, state, score_change, current_score)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err := r.db.ExecContext(ctx, q,
		record.MatchID, string(record.Cycle), record.Player, record.Word,
		record.ServerTimestamp, string(record.State), record.ScoreChange, record.CurrentScore)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListTurns(ctx context.Context, limit int) ([]*models.TurnRecord, error) {
	q := `
	SELECT match_id, cycle, player, word, server_timestamp, state, score_change, current_score
	FROM (SELECT * FROM turns ORDER BY id DESC LIMIT ?)
	ORDER BY id ASC;
	`
	rows, err := r.db.QueryContext(ctx, q, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()
	return scanSQLTurns(rows)
}

func (r *SQLiteRepository) ListMatchTurns(ctx context.Context, matchID string) ([]*models.TurnRecord, error) {
	q := `
	SELECT match_id, cycle, player, word, server_timestamp, state, score_change, current_score
	FROM turns WHERE match_id = ? ORDER BY id ASC;
	`
	rows, err := r.db.QueryContext(ctx, q, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	records, err := scanSQLTurns(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &ErrNotFound{}
	}
	return records, nil
}

func scanSQLTurns(rows *sql.Rows) ([]*models.TurnRecord, error) {
	records := []*models.TurnRecord{}
	for rows.Next() {
		record := &models.TurnRecord{}
		var cycle, state string
		if err := rows.Scan(&record.MatchID, &cycle, &record.Player, &record.Word,
			&record.ServerTimestamp, &state, &record.ScoreChange, &record.CurrentScore); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		record.Cycle = messages.Cycle(cycle)
		record.State = messages.TurnState(state)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}
	return records, nil
}
