package workout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/repcoach/internal/contexthelpers"
	"github.com/myrjola/repcoach/internal/sqlite"
)

// sqlitePlanRepository stores generated plans. A profile has at most one active plan.
type sqlitePlanRepository struct {
	baseRepository
	workouts *sqliteWorkoutRepository
}

func newSQLitePlanRepository(
	db *sqlite.Database,
	logger *slog.Logger,
	workouts *sqliteWorkoutRepository,
) *sqlitePlanRepository {
	return &sqlitePlanRepository{
		baseRepository: newBaseRepository(db, logger),
		workouts:       workouts,
	}
}

// Create stores plan with its workouts and makes it the active plan of the profile.
//
// The previously active plan is deactivated and its workouts that were never started are removed. Started and
// completed workouts stay in the history.
func (r *sqlitePlanRepository) Create(ctx context.Context, plan Plan) (Plan, error) {
	profileID := contexthelpers.ProfileID(ctx)
	prefsJSON, err := json.Marshal(plan.Preferences)
	if err != nil {
		return Plan{}, fmt.Errorf("marshal preferences: %w", err)
	}

	err = r.db.InTx(ctx, func(tx *sql.Tx) error {
		var previousID sql.NullInt64
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM plans WHERE profile_id = ? AND is_active = 1`, profileID).Scan(&previousID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query active plan: %w", err)
		}
		if previousID.Valid {
			if _, err = tx.ExecContext(ctx,
				`UPDATE plans SET is_active = 0 WHERE id = ?`, previousID.Int64); err != nil {
				return fmt.Errorf("deactivate plan: %w", err)
			}
			if err = r.workouts.deleteUnstartedByPlan(ctx, tx, int(previousID.Int64)); err != nil {
				return err
			}
		}

		var createdAt string
		if err = tx.QueryRowContext(ctx, `
			INSERT INTO plans (profile_id, name, start_date, weeks, preferences)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id, created_at`,
			profileID, plan.Name, formatDate(plan.StartDate), plan.Weeks, string(prefsJSON),
		).Scan(&plan.ID, &createdAt); err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}
		if plan.CreatedAt, err = time.Parse(timestampFormat, createdAt); err != nil {
			return fmt.Errorf("parse created_at: %w", err)
		}

		for i := range plan.Workouts {
			plan.Workouts[i].PlanID = new(plan.ID)
			if plan.Workouts[i].ID, err = r.workouts.insert(ctx, tx, plan.Workouts[i]); err != nil {
				return fmt.Errorf("insert workout %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return Plan{}, fmt.Errorf("create plan: %w", err)
	}
	return plan, nil
}

// GetActive returns the active plan of the current profile with all its remaining workouts.
func (r *sqlitePlanRepository) GetActive(ctx context.Context) (Plan, error) {
	var (
		plan                            Plan
		startDate, createdAt, prefsJSON string
	)
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT id, name, start_date, weeks, preferences, created_at
		FROM plans
		WHERE profile_id = ? AND is_active = 1`, contexthelpers.ProfileID(ctx)).
		Scan(&plan.ID, &plan.Name, &startDate, &plan.Weeks, &prefsJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, ErrNotFound
	}
	if err != nil {
		return Plan{}, fmt.Errorf("query active plan: %w", err)
	}

	if plan.StartDate, err = time.Parse(dateFormat, startDate); err != nil {
		return Plan{}, fmt.Errorf("parse start_date: %w", err)
	}
	if plan.CreatedAt, err = time.Parse(timestampFormat, createdAt); err != nil {
		return Plan{}, fmt.Errorf("parse created_at: %w", err)
	}
	if err = json.Unmarshal([]byte(prefsJSON), &plan.Preferences); err != nil {
		return Plan{}, fmt.Errorf("unmarshal preferences: %w", err)
	}
	if plan.Workouts, err = r.workouts.ListByPlan(ctx, plan.ID); err != nil {
		return Plan{}, fmt.Errorf("list workouts: %w", err)
	}
	if plan.Workouts == nil {
		plan.Workouts = []Workout{}
	}
	return plan, nil
}
