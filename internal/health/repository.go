package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/myrjola/repcoach/internal/contexthelpers"
	"github.com/myrjola/repcoach/internal/sqlite"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Float64: 0, Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return new(n.Float64)
}

func closeRows(rows *sql.Rows, err *error) {
	*err = errors.Join(*err, rows.Close())
}

// sqliteWorkoutRepository stores external workouts of the current profile.
type sqliteWorkoutRepository struct {
	db *sqlite.Database
}

// InsertAll stores records in one transaction. A record is skipped when one with the same source, start time and
// activity type exists. It reports for each record whether it was stored.
func (r *sqliteWorkoutRepository) InsertAll(ctx context.Context, records []ExternalWorkout) ([]bool, error) {
	inserted := make([]bool, len(records))
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		for i, w := range records {
			result, err := tx.ExecContext(ctx, `
				INSERT INTO external_workouts (
					id, profile_id, activity_type, source_name, started_at, duration_seconds,
					avg_heart_rate, max_heart_rate, active_calories, distance_meters
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (profile_id, source_name, started_at, activity_type) DO NOTHING`,
				w.ID, contexthelpers.ProfileID(ctx), w.ActivityType, w.SourceName, formatTimestamp(w.StartedAt),
				w.DurationSeconds, nullFloat(w.AvgHeartRate), nullFloat(w.MaxHeartRate), nullFloat(w.ActiveCalories),
				nullFloat(w.DistanceMeters))
			if err != nil {
				return fmt.Errorf("insert external workout: %w", err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			inserted[i] = n == 1
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

const selectWorkouts = `
	SELECT id, activity_type, source_name, started_at, duration_seconds,
	       avg_heart_rate, max_heart_rate, active_calories, distance_meters, duplicate_of
	FROM external_workouts`

// List returns the records started at or after since in start order. Duplicates are left out unless
// includeDuplicates is set.
func (r *sqliteWorkoutRepository) List(
	ctx context.Context,
	since time.Time,
	includeDuplicates bool,
) ([]ExternalWorkout, error) {
	return r.query(ctx, selectWorkouts+`
		WHERE profile_id = ? AND started_at >= ? AND (? OR duplicate_of IS NULL)
		ORDER BY started_at, id`,
		contexthelpers.ProfileID(ctx), formatTimestamp(since), includeDuplicates)
}

// ListBetween returns the records started within [from, to] in start order, duplicates included.
func (r *sqliteWorkoutRepository) ListBetween(ctx context.Context, from, to time.Time) ([]ExternalWorkout, error) {
	return r.query(ctx, selectWorkouts+`
		WHERE profile_id = ? AND started_at >= ? AND started_at <= ?
		ORDER BY started_at, id`,
		contexthelpers.ProfileID(ctx), formatTimestamp(from), formatTimestamp(to))
}

func (r *sqliteWorkoutRepository) query(ctx context.Context, query string, args ...any) (_ []ExternalWorkout, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query external workouts: %w", err)
	}
	defer closeRows(rows, &err)

	workouts := []ExternalWorkout{}
	for rows.Next() {
		var (
			w                              ExternalWorkout
			startedAt                      string
			avgHR, maxHR, calories, meters sql.NullFloat64
			duplicateOf                    sql.NullString
		)
		if err = rows.Scan(&w.ID, &w.ActivityType, &w.SourceName, &startedAt, &w.DurationSeconds,
			&avgHR, &maxHR, &calories, &meters, &duplicateOf); err != nil {
			return nil, fmt.Errorf("scan external workout: %w", err)
		}
		if w.StartedAt, err = parseTimestamp(startedAt); err != nil {
			return nil, err
		}
		w.AvgHeartRate, w.MaxHeartRate = floatPtr(avgHR), floatPtr(maxHR)
		w.ActiveCalories, w.DistanceMeters = floatPtr(calories), floatPtr(meters)
		if duplicateOf.Valid {
			w.DuplicateOf = new(duplicateOf.String)
		}
		workouts = append(workouts, w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate external workouts: %w", err)
	}
	return workouts, nil
}

// MarkDuplicates sets duplicate_of for the records in marks. A nil value clears the mark.
func (r *sqliteWorkoutRepository) MarkDuplicates(ctx context.Context, marks map[string]*string) error {
	if len(marks) == 0 {
		return nil
	}
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		for id, duplicateOf := range marks {
			var value sql.NullString
			if duplicateOf != nil {
				value = sql.NullString{String: *duplicateOf, Valid: true}
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE external_workouts SET duplicate_of = ? WHERE profile_id = ? AND id = ?`,
				value, contexthelpers.ProfileID(ctx), id); err != nil {
				return fmt.Errorf("mark external workout %s: %w", id, err)
			}
		}
		return nil
	})
}

// ListProfileIDs returns every profile that has external workouts.
func (r *sqliteWorkoutRepository) ListProfileIDs(ctx context.Context) (_ []int, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx,
		`SELECT DISTINCT profile_id FROM external_workouts ORDER BY profile_id`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer closeRows(rows, &err)

	var ids []int
	for rows.Next() {
		var id int
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan profile id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return ids, nil
}

// sqliteVitalRepository stores vital samples of the current profile.
type sqliteVitalRepository struct {
	db *sqlite.Database
}

// Insert stores v unless a sample of the same kind, time and source exists. It reports whether v was stored.
func (r *sqliteVitalRepository) Insert(ctx context.Context, v Vital) (bool, error) {
	result, err := r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO vitals (profile_id, kind, recorded_at, source_name, value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		contexthelpers.ProfileID(ctx), v.Kind, formatTimestamp(v.RecordedAt), v.SourceName, v.Value)
	if err != nil {
		return false, fmt.Errorf("insert vital: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// List returns the samples recorded at or after since ordered by time. An empty kind matches all kinds.
func (r *sqliteVitalRepository) List(ctx context.Context, kind VitalKind, since time.Time) (_ []Vital, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT kind, recorded_at, source_name, value
		FROM vitals
		WHERE profile_id = ?1 AND recorded_at >= ?2 AND (?3 = '' OR kind = ?3)
		ORDER BY recorded_at, kind, source_name`,
		contexthelpers.ProfileID(ctx), formatTimestamp(since), string(kind))
	if err != nil {
		return nil, fmt.Errorf("query vitals: %w", err)
	}
	defer closeRows(rows, &err)

	vitals := []Vital{}
	for rows.Next() {
		var (
			v          Vital
			recordedAt string
		)
		if err = rows.Scan(&v.Kind, &recordedAt, &v.SourceName, &v.Value); err != nil {
			return nil, fmt.Errorf("scan vital: %w", err)
		}
		if v.RecordedAt, err = parseTimestamp(recordedAt); err != nil {
			return nil, err
		}
		vitals = append(vitals, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vitals: %w", err)
	}
	return vitals, nil
}

// DeleteBefore removes the samples of all profiles recorded before cutoff and returns how many were removed.
func (r *sqliteVitalRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ReadWrite.ExecContext(ctx,
		`DELETE FROM vitals WHERE recorded_at < ?`, formatTimestamp(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete vitals: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
