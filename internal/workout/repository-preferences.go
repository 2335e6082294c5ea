package workout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/myrjola/repcoach/internal/contexthelpers"
	"github.com/myrjola/repcoach/internal/sqlite"
)

// sqlitePreferencesRepository stores the plan preferences of the current profile.
type sqlitePreferencesRepository struct {
	baseRepository
}

func newSQLitePreferencesRepository(db *sqlite.Database, logger *slog.Logger) *sqlitePreferencesRepository {
	return &sqlitePreferencesRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

// Get retrieves the preferences of the current profile, or DefaultPreferences if none were saved.
func (r *sqlitePreferencesRepository) Get(ctx context.Context) (Preferences, error) {
	profileID := contexthelpers.ProfileID(ctx)

	var (
		prefs                      Preferences
		equipmentJSON, prioritiesJ string
	)
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT goal, days_per_week, session_minutes, split_style, experience, weeks, equipment, muscle_priorities
		FROM plan_preferences
		WHERE profile_id = ?`, profileID).Scan(
		&prefs.Goal, &prefs.DaysPerWeek, &prefs.SessionMinutes, &prefs.SplitStyle, &prefs.Experience, &prefs.Weeks,
		&equipmentJSON, &prioritiesJ,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("query plan preferences: %w", err)
	}

	if err = json.Unmarshal([]byte(equipmentJSON), &prefs.Equipment); err != nil {
		return Preferences{}, fmt.Errorf("unmarshal equipment: %w", err)
	}
	if err = json.Unmarshal([]byte(prioritiesJ), &prefs.MusclePriorities); err != nil {
		return Preferences{}, fmt.Errorf("unmarshal muscle priorities: %w", err)
	}
	return prefs, nil
}

// Set saves the preferences of the current profile.
func (r *sqlitePreferencesRepository) Set(ctx context.Context, prefs Preferences) error {
	profileID := contexthelpers.ProfileID(ctx)

	prefs = prefs.withDefaults()
	equipmentJSON, err := json.Marshal(prefs.Equipment)
	if err != nil {
		return fmt.Errorf("marshal equipment: %w", err)
	}
	prioritiesJSON, err := json.Marshal(prefs.MusclePriorities)
	if err != nil {
		return fmt.Errorf("marshal muscle priorities: %w", err)
	}

	_, err = r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO plan_preferences (
			profile_id, goal, days_per_week, session_minutes, split_style, experience, weeks, equipment,
			muscle_priorities
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile_id) DO UPDATE SET
			goal = excluded.goal,
			days_per_week = excluded.days_per_week,
			session_minutes = excluded.session_minutes,
			split_style = excluded.split_style,
			experience = excluded.experience,
			weeks = excluded.weeks,
			equipment = excluded.equipment,
			muscle_priorities = excluded.muscle_priorities`,
		profileID, prefs.Goal, prefs.DaysPerWeek, prefs.SessionMinutes, prefs.SplitStyle, prefs.Experience,
		prefs.Weeks, string(equipmentJSON), string(prioritiesJSON),
	)
	if err != nil {
		return fmt.Errorf("save plan preferences: %w", err)
	}
	return nil
}
