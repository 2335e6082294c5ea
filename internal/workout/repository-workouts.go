package workout

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/repcoach/internal/contexthelpers"
	"github.com/myrjola/repcoach/internal/sqlite"
)

// sqliteWorkoutRepository stores workouts with their exercises and sets.
type sqliteWorkoutRepository struct {
	baseRepository
	movements *sqliteMovementRepository
}

func newSQLiteWorkoutRepository(
	db *sqlite.Database,
	logger *slog.Logger,
	movements *sqliteMovementRepository,
) *sqliteWorkoutRepository {
	return &sqliteWorkoutRepository{
		baseRepository: newBaseRepository(db, logger),
		movements:      movements,
	}
}

const selectWorkout = `
	SELECT id, plan_id, name, focus, scheduled_date, started_at, completed_at, difficulty_rating
	FROM workouts`

// Get retrieves a workout of the current profile.
func (r *sqliteWorkoutRepository) Get(ctx context.Context, id int) (Workout, error) {
	workouts, err := r.query(ctx, selectWorkout+` WHERE profile_id = ? AND id = ?`,
		contexthelpers.ProfileID(ctx), id)
	if err != nil {
		return Workout{}, err
	}
	if len(workouts) == 0 {
		return Workout{}, ErrNotFound
	}
	return workouts[0], nil
}

// ListCompleted returns the workouts completed at or after since, oldest first.
func (r *sqliteWorkoutRepository) ListCompleted(ctx context.Context, since time.Time) ([]Workout, error) {
	return r.query(ctx, selectWorkout+`
		WHERE profile_id = ? AND completed_at IS NOT NULL AND completed_at >= ?
		ORDER BY completed_at, id`,
		contexthelpers.ProfileID(ctx), formatTimestamp(&since))
}

// ListByPlan returns the workouts of a plan in schedule order.
func (r *sqliteWorkoutRepository) ListByPlan(ctx context.Context, planID int) ([]Workout, error) {
	return r.query(ctx, selectWorkout+`
		WHERE profile_id = ? AND plan_id = ?
		ORDER BY scheduled_date, id`,
		contexthelpers.ProfileID(ctx), planID)
}

func (r *sqliteWorkoutRepository) query(ctx context.Context, query string, args ...any) (_ []Workout, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query workouts: %w", err)
	}
	defer closeRows(rows, &err)

	var workouts []Workout
	for rows.Next() {
		var (
			w                               Workout
			planID, difficulty              sql.NullInt64
			scheduled, started, completedAt sql.NullString
		)
		if err = rows.Scan(&w.ID, &planID, &w.Name, &w.Focus, &scheduled, &started, &completedAt,
			&difficulty); err != nil {
			return nil, fmt.Errorf("scan workout: %w", err)
		}
		w.PlanID = intPtr(planID)
		w.DifficultyRating = intPtr(difficulty)
		if w.ScheduledDate, err = parseOptionalDate(scheduled); err != nil {
			return nil, fmt.Errorf("parse scheduled_date: %w", err)
		}
		if w.StartedAt, err = parseTimestamp(started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if w.CompletedAt, err = parseTimestamp(completedAt); err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		workouts = append(workouts, w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	movementCache := make(map[int]Movement)
	for i := range workouts {
		if workouts[i].Exercises, err = r.loadExercises(ctx, workouts[i].ID, movementCache); err != nil {
			return nil, fmt.Errorf("load exercises of workout %d: %w", workouts[i].ID, err)
		}
	}
	return workouts, nil
}

type exerciseRow struct {
	movementID int
	set        *ExerciseSet
}

// loadExercises fetches the exercises of a workout in position order. Movements are resolved through cache.
func (r *sqliteWorkoutRepository) loadExercises(
	ctx context.Context,
	workoutID int,
	cache map[int]Movement,
) ([]ExerciseInstance, error) {
	exerciseRows, err := r.queryExerciseRows(ctx, workoutID)
	if err != nil {
		return nil, err
	}

	exercises := []ExerciseInstance{}
	for _, row := range exerciseRows {
		if n := len(exercises); n == 0 || exercises[n-1].Movement.ID != row.movementID {
			m, ok := cache[row.movementID]
			if !ok {
				if m, err = r.movements.Get(ctx, row.movementID); err != nil {
					return nil, fmt.Errorf("fetch movement %d: %w", row.movementID, err)
				}
				cache[row.movementID] = m
			}
			exercises = append(exercises, ExerciseInstance{Movement: m, Sets: []ExerciseSet{}})
		}
		if row.set != nil {
			last := &exercises[len(exercises)-1]
			last.Sets = append(last.Sets, *row.set)
		}
	}
	return exercises, nil
}

func (r *sqliteWorkoutRepository) queryExerciseRows(ctx context.Context, workoutID int) (_ []exerciseRow, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT ei.movement_id, es.set_number, es.target_reps, es.target_weight_kg,
		       es.completed_reps, es.completed_weight_kg
		FROM exercise_instances ei
		LEFT JOIN exercise_sets es ON es.exercise_instance_id = ei.id
		WHERE ei.workout_id = ?
		ORDER BY ei.position, es.set_number`, workoutID)
	if err != nil {
		return nil, fmt.Errorf("query exercise sets: %w", err)
	}
	defer closeRows(rows, &err)

	var result []exerciseRow
	for rows.Next() {
		var (
			row                                  exerciseRow
			setNumber, targetReps, completedReps sql.NullInt64
			targetWeightKg, completedWeightKg    sql.NullFloat64
		)
		if err = rows.Scan(&row.movementID, &setNumber, &targetReps, &targetWeightKg, &completedReps,
			&completedWeightKg); err != nil {
			return nil, fmt.Errorf("scan exercise set: %w", err)
		}
		if setNumber.Valid {
			row.set = &ExerciseSet{
				TargetReps:        int(targetReps.Int64),
				TargetWeightKg:    floatPtr(targetWeightKg),
				CompletedReps:     intPtr(completedReps),
				CompletedWeightKg: floatPtr(completedWeightKg),
			}
		}
		result = append(result, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

// Create inserts an unscheduled or planned workout for the current profile.
func (r *sqliteWorkoutRepository) Create(ctx context.Context, w Workout) (Workout, error) {
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		id, err := r.insert(ctx, tx, w)
		w.ID = id
		return err
	})
	if err != nil {
		return Workout{}, fmt.Errorf("create workout: %w", err)
	}
	return w, nil
}

// insert writes w and its exercises inside tx and returns the new workout ID.
func (r *sqliteWorkoutRepository) insert(ctx context.Context, tx *sql.Tx, w Workout) (int, error) {
	var id int
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO workouts (
			profile_id, plan_id, name, focus, scheduled_date, started_at, completed_at, difficulty_rating
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		contexthelpers.ProfileID(ctx), nullInt(w.PlanID), w.Name, w.Focus, formatOptionalDate(w.ScheduledDate),
		formatTimestamp(w.StartedAt), formatTimestamp(w.CompletedAt), nullInt(w.DifficultyRating),
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert workout: %w", err)
	}
	if err := r.insertExercises(ctx, tx, id, w.Exercises); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *sqliteWorkoutRepository) insertExercises(
	ctx context.Context,
	tx *sql.Tx,
	workoutID int,
	exercises []ExerciseInstance,
) error {
	for position, ex := range exercises {
		var instanceID int
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO exercise_instances (workout_id, position, movement_id)
			VALUES (?, ?, ?)
			RETURNING id`, workoutID, position, ex.Movement.ID).Scan(&instanceID); err != nil {
			return fmt.Errorf("insert exercise instance: %w", err)
		}
		for i, set := range ex.Sets {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO exercise_sets (
					exercise_instance_id, set_number, target_reps, target_weight_kg, completed_reps,
					completed_weight_kg
				) VALUES (?, ?, ?, ?, ?, ?)`,
				instanceID, i, set.TargetReps, nullFloat(set.TargetWeightKg), nullInt(set.CompletedReps),
				nullFloat(set.CompletedWeightKg)); err != nil {
				return fmt.Errorf("insert exercise set: %w", err)
			}
		}
	}
	return nil
}

// Update applies updateFn to the workout and persists the result when updateFn reports a change.
// Exercises are deleted and reinserted.
func (r *sqliteWorkoutRepository) Update(
	ctx context.Context,
	id int,
	updateFn func(w *Workout) (bool, error),
) error {
	w, err := r.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get workout for update: %w", err)
	}
	updated, err := updateFn(&w)
	if err != nil {
		return fmt.Errorf("update function: %w", err)
	}
	if !updated {
		return nil
	}

	err = r.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err = tx.ExecContext(ctx, `
			UPDATE workouts
			SET name = ?, focus = ?, scheduled_date = ?, started_at = ?, completed_at = ?, difficulty_rating = ?
			WHERE profile_id = ? AND id = ?`,
			w.Name, w.Focus, formatOptionalDate(w.ScheduledDate), formatTimestamp(w.StartedAt),
			formatTimestamp(w.CompletedAt), nullInt(w.DifficultyRating), contexthelpers.ProfileID(ctx), id,
		); err != nil {
			return fmt.Errorf("update workout: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM exercise_instances WHERE workout_id = ?`, id); err != nil {
			return fmt.Errorf("delete exercises: %w", err)
		}
		return r.insertExercises(ctx, tx, id, w.Exercises)
	})
	if err != nil {
		return fmt.Errorf("save updated workout: %w", err)
	}
	return nil
}

// deleteUnstartedByPlan removes the workouts of a plan that were never started.
func (r *sqliteWorkoutRepository) deleteUnstartedByPlan(ctx context.Context, tx *sql.Tx, planID int) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM workouts
		WHERE profile_id = ? AND plan_id = ? AND started_at IS NULL`,
		contexthelpers.ProfileID(ctx), planID); err != nil {
		return fmt.Errorf("delete unstarted workouts: %w", err)
	}
	return nil
}
