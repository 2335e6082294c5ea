package workout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/myrjola/repcoach/internal/sqlite"
)

// sqliteProfileRepository stores the anonymous profiles every session is bound to.
type sqliteProfileRepository struct {
	baseRepository
}

func newSQLiteProfileRepository(db *sqlite.Database, logger *slog.Logger) *sqliteProfileRepository {
	return &sqliteProfileRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

// Create inserts a new profile and returns its ID.
func (r *sqliteProfileRepository) Create(ctx context.Context) (int, error) {
	var id int
	if err := r.db.ReadWrite.QueryRowContext(ctx,
		`INSERT INTO profiles DEFAULT VALUES RETURNING id`).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert profile: %w", err)
	}
	return id, nil
}

// Exists reports whether a profile with id exists.
func (r *sqliteProfileRepository) Exists(ctx context.Context, id int) (bool, error) {
	var exists bool
	if err := r.db.ReadOnly.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE id = ?)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("query profile: %w", err)
	}
	return exists, nil
}
