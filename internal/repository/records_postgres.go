package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aimorme/dateplan-back/internal/domain"
)

// PostgresRecordStore persists job records in a dateplan_jobs table with the
// full record as JSONB. Expected schema:
//
//	CREATE TABLE dateplan_jobs (
//	    id           TEXT PRIMARY KEY,
//	    client_key   TEXT NOT NULL,
//	    status       TEXT NOT NULL,
//	    record       JSONB NOT NULL,
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    completed_at TIMESTAMPTZ
//	);
//	CREATE UNIQUE INDEX dateplan_jobs_single_flight
//	    ON dateplan_jobs (client_key)
//	    WHERE status IN ('queued', 'processing');
//
// The partial unique index makes check-and-create atomic: a concurrent
// second submission from the same client fails with a unique violation.
type PostgresRecordStore struct {
	pool      *pgxpool.Pool
	retention time.Duration
}

func NewPostgresRecordStore(ctx context.Context, databaseURL string, retention time.Duration) (*PostgresRecordStore, error) {
	if retention <= 0 {
		retention = DefaultRetentionWindow
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return &PostgresRecordStore{pool: pool, retention: retention}, nil
}

func (s *PostgresRecordStore) Close() {
	s.pool.Close()
}

func (s *PostgresRecordStore) CreateIfIdle(ctx context.Context, record *domain.JobRecord) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO dateplan_jobs (id, client_key, status, record, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, NULL)
	`, record.ID, record.ClientKey, string(record.Status), encoded, record.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrClientBusy
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *PostgresRecordStore) Get(ctx context.Context, id string) (*domain.JobRecord, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT record FROM dateplan_jobs WHERE id = $1
	`, id).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query record: %w", err)
	}

	var record domain.JobRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if record.Status == domain.JobStatusExpired {
		return nil, ErrExpired
	}
	return &record, nil
}

func (s *PostgresRecordStore) Update(
	ctx context.Context,
	id string,
	mutate func(*domain.JobRecord) error,
) (*domain.JobRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	var payload []byte
	err = tx.QueryRow(ctx, `
		SELECT record FROM dateplan_jobs WHERE id = $1 FOR UPDATE
	`, id).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock record: %w", err)
	}

	record := &domain.JobRecord{}
	if err := json.Unmarshal(payload, record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if err := mutate(record); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE dateplan_jobs
		SET status = $2, record = $3, completed_at = $4
		WHERE id = $1
	`, id, string(record.Status), encoded, record.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return record, nil
}

func (s *PostgresRecordStore) MarkExpired(ctx context.Context, id string) error {
	_, err := s.Update(ctx, id, func(record *domain.JobRecord) error {
		record.Status = domain.JobStatusExpired
		return nil
	})
	return err
}

func (s *PostgresRecordStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM dateplan_jobs
		WHERE status IN ('complete', 'error')
		  AND completed_at IS NOT NULL
		  AND completed_at <= $1
	`, now.Add(-s.retention))
	if err != nil {
		return 0, fmt.Errorf("query expirable records: %w", err)
	}

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan expirable id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate expirable records: %w", err)
	}

	expired := 0
	for _, id := range ids {
		if err := s.MarkExpired(ctx, id); err != nil && err != ErrNotFound {
			return expired, err
		}
		expired++
	}
	return expired, nil
}
