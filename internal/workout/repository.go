package workout

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/myrjola/repcoach/internal/sqlite"
)

const (
	timestampFormat = "2006-01-02T15:04:05.000Z"
	dateFormat      = time.DateOnly
)

// isUniqueViolation reports whether err was caused by a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// baseRepository holds what every repository needs.
type baseRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newBaseRepository(db *sqlite.Database, logger *slog.Logger) baseRepository {
	return baseRepository{
		db:     db,
		logger: logger,
	}
}

// repository bundles the repositories of the workout domain.
type repository struct {
	profiles  *sqliteProfileRepository
	movements *sqliteMovementRepository
	prefs     *sqlitePreferencesRepository
	workouts  *sqliteWorkoutRepository
	plans     *sqlitePlanRepository
}

func newRepository(db *sqlite.Database, logger *slog.Logger) *repository {
	movements := newSQLiteMovementRepository(db, logger)
	workouts := newSQLiteWorkoutRepository(db, logger, movements)
	return &repository{
		profiles:  newSQLiteProfileRepository(db, logger),
		movements: movements,
		prefs:     newSQLitePreferencesRepository(db, logger),
		workouts:  workouts,
		plans:     newSQLitePlanRepository(db, logger, workouts),
	}
}

// closeRows closes rows and joins the close error into err.
func closeRows(rows *sql.Rows, err *error) {
	if closeErr := rows.Close(); closeErr != nil {
		*err = errors.Join(*err, fmt.Errorf("close rows: %w", closeErr))
	}
}

func formatDate(t time.Time) string {
	return t.Format(dateFormat)
}

func formatOptionalDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{String: "", Valid: false}
	}
	return sql.NullString{String: formatDate(*t), Valid: true}
}

func formatTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{String: "", Valid: false}
	}
	return sql.NullString{String: t.UTC().Format(timestampFormat), Valid: true}
}

func parseOptionalDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil //nolint:nilnil // NULL maps to a nil date.
	}
	t, err := time.Parse(dateFormat, s.String)
	if err != nil {
		return nil, fmt.Errorf("parse date: %w", err)
	}
	return &t, nil
}

func parseTimestamp(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil //nolint:nilnil // NULL maps to a nil timestamp.
	}
	t, err := time.Parse(timestampFormat, s.String)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	return &t, nil
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{Int64: 0, Valid: false}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Float64: 0, Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	return new(int(n.Int64))
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return new(n.Float64)
}
