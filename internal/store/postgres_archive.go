package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/devrev/promptledger/internal/model"
)

// PostgresArchive implements Archive for PostgreSQL
type PostgresArchive struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

const createEventsTable = `
	CREATE TABLE IF NOT EXISTS ledger_events (
		seq            BIGINT PRIMARY KEY,
		event_type     TEXT NOT NULL,
		caller         TEXT NOT NULL,
		request_id     TEXT NOT NULL,
		session_id     TEXT NOT NULL,
		prompt_hash    TEXT NOT NULL,
		response_hash  TEXT NOT NULL,
		batch_len      INT NOT NULL,
		request_count  INT NOT NULL,
		paused         BOOLEAN NOT NULL,
		recorded_at    BIGINT NOT NULL
	)
`

// NewPostgresArchive creates a new PostgreSQL archive and ensures the
// events table exists
func NewPostgresArchive(ctx context.Context, connString string, logger *zap.Logger) (*PostgresArchive, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, createEventsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}

	return &PostgresArchive{
		pool:   pool,
		logger: logger,
	}, nil
}

// SaveEvent inserts an event. Re-inserting an already archived sequence
// marker is a no-op, which makes replay after recovery idempotent.
func (a *PostgresArchive) SaveEvent(ctx context.Context, event *model.Event) error {
	query := `
		INSERT INTO ledger_events
			(seq, event_type, caller, request_id, session_id, prompt_hash,
			 response_hash, batch_len, request_count, paused, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (seq) DO NOTHING
	`

	_, err := a.pool.Exec(ctx, query,
		int64(event.Seq),
		string(event.Type),
		event.Caller.String(),
		event.RequestID.String(),
		event.SessionID.String(),
		event.PromptHash.String(),
		event.ResponseHash.String(),
		event.BatchLen,
		event.RequestCount,
		event.Paused,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to archive event: %w", err)
	}
	return nil
}

// EventsSince returns up to limit events with a sequence marker greater than seq
func (a *PostgresArchive) EventsSince(ctx context.Context, seq uint64, limit int) ([]model.Event, error) {
	query := `
		SELECT seq, event_type, caller, request_id, session_id, prompt_hash,
		       response_hash, batch_len, request_count, paused, recorded_at
		FROM ledger_events
		WHERE seq > $1
		ORDER BY seq
		LIMIT $2
	`
	if limit <= 0 {
		limit = 1000
	}

	rows, err := a.pool.Query(ctx, query, int64(seq), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var (
			ev                                                  model.Event
			seqVal                                              int64
			evType, caller, requestID, sessionID, pHash, rHash string
		)
		if err := rows.Scan(&seqVal, &evType, &caller, &requestID, &sessionID,
			&pHash, &rHash, &ev.BatchLen, &ev.RequestCount, &ev.Paused, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		ev.Seq = uint64(seqVal)
		ev.Type = model.EventType(evType)
		if ev.Caller, err = model.ParseID(caller); err != nil {
			return nil, fmt.Errorf("corrupt caller in archive: %w", err)
		}
		if ev.RequestID, err = model.ParseID(requestID); err != nil {
			return nil, fmt.Errorf("corrupt request id in archive: %w", err)
		}
		if ev.SessionID, err = model.ParseID(sessionID); err != nil {
			return nil, fmt.Errorf("corrupt session id in archive: %w", err)
		}
		if ev.PromptHash, err = model.ParseID(pHash); err != nil {
			return nil, fmt.Errorf("corrupt prompt hash in archive: %w", err)
		}
		if ev.ResponseHash, err = model.ParseID(rHash); err != nil {
			return nil, fmt.Errorf("corrupt response hash in archive: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Ping checks database connectivity
func (a *PostgresArchive) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// Close closes the connection pool
func (a *PostgresArchive) Close() error {
	a.pool.Close()
	return nil
}
