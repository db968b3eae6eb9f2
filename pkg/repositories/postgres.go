package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cbodonnell/wordchain/pkg/log"
	"github.com/cbodonnell/wordchain/pkg/messages"
	"github.com/cbodonnell/wordchain/pkg/repositories/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to connStr and applies migrations.
// The caller is responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string) (Repository, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	var username string
	var database string
	err = pool.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to query database: %w", err)
	}

	if err := migratePostgres(ctx, connStr); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("Connected to %s as %s", database, username)
	return &PostgresRepository{
		pool: pool,
	}, nil
}

func migratePostgres(ctx context.Context, connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()
	return migrate(ctx, db, "postgres")
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) AppendTurn(ctx context.Context, record *models.TurnRecord) error {
	q := `
	INSERT INTO turns (match_id, cycle, player, word, server_timestamp, state, score_change, current_score)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.pool.Exec(ctx, q,
		record.MatchID, string(record.Cycle), record.Player, record.Word,
		record.ServerTimestamp, string(record.State), record.ScoreChange, record.CurrentScore)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListTurns(ctx context.Context, limit int) ([]*models.TurnRecord, error) {
	q := `
	SELECT match_id, cycle, player, word, server_timestamp, state, score_change, current_score
	FROM (SELECT * FROM turns ORDER BY id DESC LIMIT $1) AS recent
	ORDER BY id ASC;
	`
	rows, err := r.pool.Query(ctx, q, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	return scanPgTurns(rows)
}

func (r *PostgresRepository) ListMatchTurns(ctx context.Context, matchID string) ([]*models.TurnRecord, error) {
	q := `
	SELECT match_id, cycle, player, word, server_timestamp, state, score_change, current_score
	FROM turns WHERE match_id = $1 ORDER BY id ASC;
	`
	rows, err := r.pool.Query(ctx, q, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	records, err := scanPgTurns(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &ErrNotFound{}
	}
	return records, nil
}

func scanPgTurns(rows pgx.Rows) ([]*models.TurnRecord, error) {
	defer rows.Close()

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
