package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no override exists for a bucket cell.
var ErrNotFound = errors.New("storage: override not found")

// Store defines the interface for override storage.
type Store interface {
	Upsert(ctx context.Context, o models.Override) (models.Override, error)
	Get(ctx context.Context, month string, entity models.EntityType) (models.Override, error)
	List(ctx context.Context) ([]models.Override, error)
	Delete(ctx context.Context, month string, entity models.EntityType) error
	Clear(ctx context.Context) (int64, error)
	Close() error
}

// SQLStore implements Store on a SQLite database.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLStore wraps an open database. See OpenDB.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// Open opens the database at path and returns a store over it.
func Open(path string) (*SQLStore, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(db), nil
}

// Close terminates the database connection.
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing override store: %w", err)
	}
	return nil
}

// Upsert stores the override for (month, entity type), replacing the count of an existing one.
// The ID and creation time of an existing override are kept.
func (s *SQLStore) Upsert(ctx context.Context, o models.Override) (models.Override, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return models.Override{}, fmt.Errorf("generating override id: %w", err)
	}
	now := s.now().UTC()

	query := `INSERT INTO chart_overrides (id, month, entity_type, count, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT (month, entity_type) DO UPDATE SET
                count = excluded.count,
                updated_at = excluded.updated_at;`
	if _, err := s.db.ExecContext(ctx, query, id.String(), o.Month, string(o.EntityType), o.Count, now, now); err != nil {
		return models.Override{}, fmt.Errorf("upserting override %s/%s: %w", o.Month, o.EntityType, err)
	}
	return s.Get(ctx, o.Month, o.EntityType)
}

// Get returns the override for one bucket cell.
func (s *SQLStore) Get(ctx context.Context, month string, entity models.EntityType) (models.Override, error) {
	var o models.Override
	query := `SELECT id, month, entity_type, count, created_at, updated_at
              FROM chart_overrides WHERE month = ? AND entity_type = ?`
	err := s.db.GetContext(ctx, &o, query, month, string(entity))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Override{}, fmt.Errorf("%w: %s/%s", ErrNotFound, month, entity)
	}
	if err != nil {
		return models.Override{}, fmt.Errorf("getting override %s/%s: %w", month, entity, err)
	}
	return o, nil
}

// List returns all overrides ordered by month, then entity type.
func (s *SQLStore) List(ctx context.Context) ([]models.Override, error) {
	overrides := []models.Override{}
	query := `SELECT id, month, entity_type, count, created_at, updated_at
              FROM chart_overrides ORDER BY month, entity_type`
	if err := s.db.SelectContext(ctx, &overrides, query); err != nil {
		return nil, fmt.Errorf("listing overrides: %w", err)
	}
	return overrides, nil
}

// Delete removes the override for one bucket cell.
func (s *SQLStore) Delete(ctx context.Context, month string, entity models.EntityType) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chart_overrides WHERE month = ? AND entity_type = ?`, month, string(entity))
	if err != nil {
		return fmt.Errorf("deleting override %s/%s: %w", month, entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, month, entity)
	}
	return nil
}

// Clear removes every override and returns how many were removed.
func (s *SQLStore) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chart_overrides`)
	if err != nil {
		return 0, fmt.Errorf("clearing overrides: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return n, nil
}
