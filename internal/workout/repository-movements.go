package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/myrjola/repcoach/internal/sqlite"
)

// sqliteMovementRepository reads and writes the movement library.
type sqliteMovementRepository struct {
	baseRepository
}

func newSQLiteMovementRepository(db *sqlite.Database, logger *slog.Logger) *sqliteMovementRepository {
	return &sqliteMovementRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

// Get retrieves a single movement by ID.
func (r *sqliteMovementRepository) Get(ctx context.Context, id int) (Movement, error) {
	var m Movement
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT id, name, equipment, category, description_markdown
		FROM movements
		WHERE id = ?`, id).Scan(&m.ID, &m.Name, &m.Equipment, &m.Category, &m.DescriptionMarkdown)
	if errors.Is(err, sql.ErrNoRows) {
		return Movement{}, ErrNotFound
	}
	if err != nil {
		return Movement{}, fmt.Errorf("query movement: %w", err)
	}

	muscles, err := r.fetchMuscleGroups(ctx, &id)
	if err != nil {
		return Movement{}, fmt.Errorf("fetch muscle groups for movement %d: %w", id, err)
	}
	m.PrimaryMuscleGroups, m.SecondaryMuscleGroups = muscles[id].primary, muscles[id].secondary
	return m, nil
}

// List returns the library ordered by ID. A non-empty equipment filter keeps movements that need only bodyweight or
// one of the given kinds of equipment.
func (r *sqliteMovementRepository) List(ctx context.Context, equipment []Equipment) (_ []Movement, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT id, name, equipment, category, description_markdown
		FROM movements
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", err)
	}
	defer closeRows(rows, &err)

	var movements []Movement
	for rows.Next() {
		var m Movement
		if err = rows.Scan(&m.ID, &m.Name, &m.Equipment, &m.Category, &m.DescriptionMarkdown); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		if len(equipment) > 0 && m.Equipment != EquipmentBodyweight && !slices.Contains(equipment, m.Equipment) {
			continue
		}
		movements = append(movements, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	muscles, err := r.fetchMuscleGroups(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch muscle groups: %w", err)
	}
	for i := range movements {
		mg := muscles[movements[i].ID]
		movements[i].PrimaryMuscleGroups, movements[i].SecondaryMuscleGroups = mg.primary, mg.secondary
	}
	return movements, nil
}

type movementMuscles struct {
	primary   []string
	secondary []string
}

// fetchMuscleGroups loads the muscle groups of one movement, or of all movements when movementID is nil.
func (r *sqliteMovementRepository) fetchMuscleGroups(
	ctx context.Context,
	movementID *int,
) (_ map[int]movementMuscles, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT movement_id, muscle_group_name, is_primary
		FROM movement_muscle_groups
		WHERE ?1 IS NULL OR movement_id = ?1
		ORDER BY movement_id, muscle_group_name`, nullInt(movementID))
	if err != nil {
		return nil, fmt.Errorf("query muscle groups: %w", err)
	}
	defer closeRows(rows, &err)

	result := make(map[int]movementMuscles)
	for rows.Next() {
		var (
			id        int
			name      string
			isPrimary bool
		)
		if err = rows.Scan(&id, &name, &isPrimary); err != nil {
			return nil, fmt.Errorf("scan muscle group row: %w", err)
		}
		mg := result[id]
		if isPrimary {
			mg.primary = append(mg.primary, name)
		} else {
			mg.secondary = append(mg.secondary, name)
		}
		result[id] = mg
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate muscle group rows: %w", err)
	}
	return result, nil
}

// Create adds a new movement and returns it with its assigned ID.
func (r *sqliteMovementRepository) Create(ctx context.Context, m Movement) (Movement, error) {
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO movements (name, equipment, category, description_markdown)
			VALUES (?, ?, ?, ?)
			RETURNING id`,
			m.Name, m.Equipment, m.Category, m.DescriptionMarkdown).Scan(&m.ID); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: movement %q already exists", ErrInvalidInput, m.Name)
			}
			return fmt.Errorf("insert movement: %w", err)
		}
		return r.insertMuscleGroups(ctx, tx, m)
	})
	if err != nil {
		return Movement{}, fmt.Errorf("create movement: %w", err)
	}
	return m, nil
}

// Update modifies an existing movement. Muscle groups are replaced wholesale.
func (r *sqliteMovementRepository) Update(
	ctx context.Context,
	id int,
	updateFn func(m *Movement) (bool, error),
) error {
	m, err := r.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get movement for update: %w", err)
	}
	updated, err := updateFn(&m)
	if err != nil {
		return fmt.Errorf("update function: %w", err)
	}
	if !updated {
		return nil
	}
	m.ID = id

	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err = tx.ExecContext(ctx, `
			UPDATE movements
			SET name = ?, equipment = ?, category = ?, description_markdown = ?
			WHERE id = ?`,
			m.Name, m.Equipment, m.Category, m.DescriptionMarkdown, m.ID); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: movement %q already exists", ErrInvalidInput, m.Name)
			}
			return fmt.Errorf("update movement: %w", err)
		}
		if _, err = tx.ExecContext(ctx,
			`DELETE FROM movement_muscle_groups WHERE movement_id = ?`, m.ID); err != nil {
			return fmt.Errorf("delete muscle groups: %w", err)
		}
		return r.insertMuscleGroups(ctx, tx, m)
	})
}

func (r *sqliteMovementRepository) insertMuscleGroups(ctx context.Context, tx *sql.Tx, m Movement) error {
	insert := func(groups []string, isPrimary bool) error {
		for _, mg := range groups {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO movement_muscle_groups (movement_id, muscle_group_name, is_primary)
				VALUES (?, ?, ?)`, m.ID, mg, isPrimary); err != nil {
				return fmt.Errorf("insert muscle group %s: %w", mg, err)
			}
		}
		return nil
	}
	if err := insert(m.PrimaryMuscleGroups, true); err != nil {
		return fmt.Errorf("insert primary muscle groups: %w", err)
	}
	if err := insert(m.SecondaryMuscleGroups, false); err != nil {
		return fmt.Errorf("insert secondary muscle groups: %w", err)
	}
	return nil
}

// ListMuscleGroups retrieves all muscle group names in alphabetical order.
func (r *sqliteMovementRepository) ListMuscleGroups(ctx context.Context) (_ []string, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `SELECT name FROM muscle_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query muscle groups: %w", err)
	}
	defer closeRows(rows, &err)

	var groups []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan muscle group: %w", err)
		}
		groups = append(groups, name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return groups, nil
}
