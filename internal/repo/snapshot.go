// Package repo contains all snapshot persistence for the storefront API.
// Each backend has its own file; all of them satisfy SnapshotRepo.
// No business logic lives here, only storage calls and error mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SnapshotRepo stores serialized cart and wishlist snapshots by key.
// Keys have the form "<namespace>:<owner>", e.g. "cart:3f2c...".
type SnapshotRepo interface {
	// Load returns the payload stored under key.
	// Returns domain.ErrNotFound if nothing is stored there.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save overwrites the payload stored under key.
	Save(ctx context.Context, key string, data []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// PGSnapshotRepo is the Postgres implementation of SnapshotRepo.
// Payloads live in the jsonb column of collection_snapshots.
type PGSnapshotRepo struct {
	db db
}

// NewSnapshotRepo constructs a Postgres-backed SnapshotRepo.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewSnapshotRepo(db db) *PGSnapshotRepo {
	return &PGSnapshotRepo{db: db}
}

// Load reads the payload for key.
func (r *PGSnapshotRepo) Load(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT payload FROM collection_snapshots WHERE key = @key`

	var payload []byte
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"key": key}).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("repo.SnapshotRepo.Load: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("repo.SnapshotRepo.Load: %w", err)
	}
	return payload, nil
}

// Save upserts the payload for key and bumps updated_at.
func (r *PGSnapshotRepo) Save(ctx context.Context, key string, data []byte) error {
	const q = `
		INSERT INTO collection_snapshots (key, payload)
		VALUES (@key, @payload)
		ON CONFLICT (key) DO UPDATE
		SET payload    = EXCLUDED.payload,
		    updated_at = now()`

	args := pgx.NamedArgs{
		"key":     key,
		"payload": string(data), // jsonb accepts the text form
	}
	if _, err := r.db.Exec(ctx, q, args); err != nil {
		return fmt.Errorf("repo.SnapshotRepo.Save: %w", err)
	}
	return nil
}

// Delete removes the row for key.
func (r *PGSnapshotRepo) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM collection_snapshots WHERE key = @key`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"key": key}); err != nil {
		return fmt.Errorf("repo.SnapshotRepo.Delete: %w", err)
	}
	return nil
}

// PurgeOlderThan deletes snapshots not updated since cutoff and returns how
// many rows were removed.
func (r *PGSnapshotRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM collection_snapshots WHERE updated_at < @cutoff`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"cutoff": cutoff})
	if err != nil {
		return 0, fmt.Errorf("repo.SnapshotRepo.PurgeOlderThan: %w", err)
	}
	return tag.RowsAffected(), nil
}
