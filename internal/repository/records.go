package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aimorme/dateplan-back/internal/domain"
)

var (
	ErrNotFound = errors.New("job record not found")

	// ErrExpired distinguishes a reaped record from one that never existed,
	// for better caller diagnostics.
	ErrExpired = errors.New("job record expired")

	// ErrClientBusy signals the single-flight admission rule: the client
	// already owns a non-terminal, unexpired record.
	ErrClientBusy = errors.New("client already has an active job")
)

// DefaultRetentionWindow is how long terminal records stay retrievable
// after completion before the reaper expires them.
const DefaultRetentionWindow = 24 * time.Hour

// RecordStore persists job records. All mutation is scoped by per-id
// exclusivity: concurrent Update calls for the same id serialize, different
// ids never block each other.
type RecordStore interface {
	// CreateIfIdle atomically checks the single-flight rule for the record's
	// client key and persists the record. Returns ErrClientBusy when the
	// client already owns an active record.
	CreateIfIdle(ctx context.Context, record *domain.JobRecord) error

	// Get returns ErrNotFound for unknown ids and ErrExpired for reaped ones.
	Get(ctx context.Context, id string) (*domain.JobRecord, error)

	// Update applies mutate under per-id exclusivity and persists the result.
	Update(ctx context.Context, id string, mutate func(*domain.JobRecord) error) (*domain.JobRecord, error)

	// MarkExpired transitions a terminal record to expired.
	MarkExpired(ctx context.Context, id string) error

	// SweepExpired expires every terminal record whose retention window has
	// elapsed at now, returning how many records were transitioned.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}
