package uistate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/myrjola/repcoach/internal/contexthelpers"
	"github.com/myrjola/repcoach/internal/sqlite"
)

// sqliteFlagRepository stores the UI flags of the current profile.
type sqliteFlagRepository struct {
	db *sqlite.Database
}

func newSQLiteFlagRepository(db *sqlite.Database) *sqliteFlagRepository {
	return &sqliteFlagRepository{
		db: db,
	}
}

// Get retrieves a flag by name. Flags that were never set are returned disabled.
func (r *sqliteFlagRepository) Get(ctx context.Context, name string) (Flag, error) {
	flag := Flag{Name: name, Enabled: false}

	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT enabled
		FROM ui_flags
		WHERE profile_id = ? AND name = ?`, contexthelpers.ProfileID(ctx), name).Scan(&flag.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return flag, nil
	}
	if err != nil {
		return Flag{}, fmt.Errorf("query ui flag %s: %w", name, err)
	}
	return flag, nil
}

// Set updates or creates a flag.
func (r *sqliteFlagRepository) Set(ctx context.Context, flag Flag) error {
	_, err := r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO ui_flags (profile_id, name, enabled)
		VALUES (?, ?, ?)
		ON CONFLICT (profile_id, name) DO UPDATE SET enabled = excluded.enabled`,
		contexthelpers.ProfileID(ctx), flag.Name, flag.Enabled)
	if err != nil {
		return fmt.Errorf("save ui flag %s: %w", flag.Name, err)
	}
	return nil
}

// List retrieves all flags of the profile ordered by name.
func (r *sqliteFlagRepository) List(ctx context.Context) (_ []Flag, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT name, enabled
		FROM ui_flags
		WHERE profile_id = ?
		ORDER BY name`, contexthelpers.ProfileID(ctx))
	if err != nil {
		return nil, fmt.Errorf("query ui flags: %w", err)
	}
	defer func() {
		err = errors.Join(err, rows.Close())
	}()

	flags := []Flag{}
	for rows.Next() {
		var flag Flag
		if err = rows.Scan(&flag.Name, &flag.Enabled); err != nil {
			return nil, fmt.Errorf("scan ui flag: %w", err)
		}
		flags = append(flags, flag)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ui flags: %w", err)
	}
	return flags, nil
}
