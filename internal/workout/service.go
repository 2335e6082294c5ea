package workout

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/myrjola/repcoach/internal/sqlite"
	"github.com/openai/openai-go/v3/option"
)

// historyWindow is how far back completed workouts are considered for target weights.
const historyWindow = 3 * 30 * 24 * time.Hour

// Service handles the business logic for plans, workouts and the movement library.
type Service struct {
	repo         *repository
	logger       *slog.Logger
	openaiAPIKey string
	openaiOpts   []option.RequestOption
	now          func() time.Time
}

// NewService creates a new workout service. Movement generation is disabled when openaiAPIKey is empty.
func NewService(db *sqlite.Database, logger *slog.Logger, openaiAPIKey string) *Service {
	return &Service{
		repo:         newRepository(db, logger),
		logger:       logger,
		openaiAPIKey: openaiAPIKey,
		openaiOpts:   nil,
		now:          time.Now,
	}
}

// CreateProfile creates a new anonymous profile and returns its ID.
func (s *Service) CreateProfile(ctx context.Context) (int, error) {
	id, err := s.repo.profiles.Create(ctx)
	if err != nil {
		return 0, fmt.Errorf("create profile: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "created profile", slog.Int("profile_id", id))
	return id, nil
}

// ProfileExists reports whether the profile with id exists.
func (s *Service) ProfileExists(ctx context.Context, id int) (bool, error) {
	exists, err := s.repo.profiles.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check profile %d: %w", id, err)
	}
	return exists, nil
}

// GetPreferences retrieves the plan preferences of the current profile.
func (s *Service) GetPreferences(ctx context.Context) (Preferences, error) {
	prefs, err := s.repo.prefs.Get(ctx)
	if err != nil {
		return Preferences{}, fmt.Errorf("get preferences: %w", err)
	}
	return prefs, nil
}

// SavePreferences validates and saves the plan preferences of the current profile.
func (s *Service) SavePreferences(ctx context.Context, prefs Preferences) error {
	prefs = prefs.withDefaults()
	if err := prefs.Validate(); err != nil {
		return err
	}
	if err := s.repo.prefs.Set(ctx, prefs); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// GeneratePlan generates a plan from the saved preferences starting on the first Monday on or after start and
// makes it the active plan.
func (s *Service) GeneratePlan(ctx context.Context, start time.Time) (Plan, error) {
	prefs, err := s.repo.prefs.Get(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("get preferences: %w", err)
	}
	library, err := s.repo.movements.List(ctx, nil)
	if err != nil {
		return Plan{}, fmt.Errorf("list movements: %w", err)
	}
	history, err := s.repo.workouts.ListCompleted(ctx, s.now().Add(-historyWindow))
	if err != nil {
		return Plan{}, fmt.Errorf("list history: %w", err)
	}

	gen, err := newGenerator(prefs, library, history)
	if err != nil {
		return Plan{}, fmt.Errorf("initialize plan generator: %w", err)
	}
	plan, err := s.repo.plans.Create(ctx, gen.Generate(start))
	if err != nil {
		return Plan{}, fmt.Errorf("store plan: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "generated plan",
		slog.Int("plan_id", plan.ID), slog.Int("workouts", len(plan.Workouts)))
	return plan, nil
}

// ActivePlan returns the active plan of the current profile.
func (s *Service) ActivePlan(ctx context.Context) (Plan, error) {
	plan, err := s.repo.plans.GetActive(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("get active plan: %w", err)
	}
	return plan, nil
}

// GetWorkout retrieves a workout of the current profile.
func (s *Service) GetWorkout(ctx context.Context, id int) (Workout, error) {
	w, err := s.repo.workouts.Get(ctx, id)
	if err != nil {
		return Workout{}, fmt.Errorf("get workout %d: %w", id, err)
	}
	return w, nil
}

// History returns the workouts completed since the given time, oldest first.
func (s *Service) History(ctx context.Context, since time.Time) ([]Workout, error) {
	workouts, err := s.repo.workouts.ListCompleted(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list completed workouts: %w", err)
	}
	return workouts, nil
}

// StartWorkout records the start time of a workout. Starting twice keeps the first start time.
func (s *Service) StartWorkout(ctx context.Context, id int) error {
	if err := s.repo.workouts.Update(ctx, id, func(w *Workout) (bool, error) {
		if w.StartedAt != nil {
			return false, nil
		}
		w.StartedAt = new(s.now())
		return true, nil
	}); err != nil {
		return fmt.Errorf("start workout %d: %w", id, err)
	}
	return nil
}

// CompleteWorkout marks a workout as completed. A workout that was never started is started at the same time.
func (s *Service) CompleteWorkout(ctx context.Context, id int) error {
	if err := s.repo.workouts.Update(ctx, id, func(w *Workout) (bool, error) {
		if w.CompletedAt != nil {
			return false, nil
		}
		now := s.now()
		if w.StartedAt == nil {
			w.StartedAt = new(now)
		}
		w.CompletedAt = new(now)
		return true, nil
	}); err != nil {
		return fmt.Errorf("complete workout %d: %w", id, err)
	}
	return nil
}

// Difficulty ratings.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// SaveFeedback stores the perceived difficulty of a workout on a scale from 1 to 5.
func (s *Service) SaveFeedback(ctx context.Context, id int, difficulty int) error {
	if difficulty < MinDifficulty || difficulty > MaxDifficulty {
		return fmt.Errorf("%w: difficulty %d not in %d..%d", ErrInvalidInput, difficulty, MinDifficulty, MaxDifficulty)
	}
	if err := s.repo.workouts.Update(ctx, id, func(w *Workout) (bool, error) {
		w.DifficultyRating = &difficulty
		return true, nil
	}); err != nil {
		return fmt.Errorf("save feedback for workout %d: %w", id, err)
	}
	return nil
}

// UpdateSet logs the performed reps and weight of one set.
func (s *Service) UpdateSet(ctx context.Context, id int, movementID int, setIndex int, update SetUpdate) error {
	if update.CompletedReps != nil && *update.CompletedReps < 0 {
		return fmt.Errorf("%w: negative reps", ErrInvalidInput)
	}
	if update.CompletedWeightKg != nil && *update.CompletedWeightKg < 0 {
		return fmt.Errorf("%w: negative weight", ErrInvalidInput)
	}
	if err := s.repo.workouts.Update(ctx, id, func(w *Workout) (bool, error) {
		ex, ok := w.exercise(movementID)
		if !ok {
			return false, fmt.Errorf("movement %d: %w", movementID, ErrNotFound)
		}
		if setIndex < 0 || setIndex >= len(ex.Sets) {
			return false, fmt.Errorf("%w: set index %d out of bounds", ErrInvalidInput, setIndex)
		}
		set := &ex.Sets[setIndex]
		if update.CompletedReps != nil {
			set.CompletedReps = update.CompletedReps
		}
		if update.CompletedWeightKg != nil {
			set.CompletedWeightKg = update.CompletedWeightKg
		}
		return true, nil
	}); err != nil {
		return fmt.Errorf("update set of workout %d: %w", id, err)
	}
	return nil
}

// SwapMovement replaces a movement in a workout.
//
// The sets of the most recent completed workout containing the new movement are copied with their performed
// weights as targets. Without history the current set structure is kept with the weights cleared.
func (s *Service) SwapMovement(ctx context.Context, id int, currentMovementID int, newMovementID int) error {
	newMovement, err := s.repo.movements.Get(ctx, newMovementID)
	if err != nil {
		return fmt.Errorf("get new movement %d: %w", newMovementID, err)
	}
	history, err := s.repo.workouts.ListCompleted(ctx, s.now().Add(-historyWindow))
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	historicalSets := lastPerformedSets(history, id, newMovementID)

	if err = s.repo.workouts.Update(ctx, id, func(w *Workout) (bool, error) {
		if _, exists := w.exercise(newMovementID); exists {
			return false, fmt.Errorf("%w: movement %d already in workout", ErrInvalidInput, newMovementID)
		}
		ex, ok := w.exercise(currentMovementID)
		if !ok {
			return false, fmt.Errorf("movement %d: %w", currentMovementID, ErrNotFound)
		}
		ex.Movement = newMovement
		if historicalSets != nil {
			ex.Sets = historicalSets
		} else {
			ex.Sets = clearedSets(ex.Sets)
		}
		return true, nil
	}); err != nil {
		return fmt.Errorf("swap movement in workout %d: %w", id, err)
	}
	return nil
}

// lastPerformedSets returns fresh sets modelled on the most recent performance of movementID outside the workout
// skipWorkoutID, or nil when there is none.
func lastPerformedSets(history []Workout, skipWorkoutID int, movementID int) []ExerciseSet {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ID == skipWorkoutID {
			continue
		}
		ex, ok := history[i].exercise(movementID)
		if !ok {
			continue
		}
		sets := make([]ExerciseSet, len(ex.Sets))
		for j, set := range ex.Sets {
			sets[j] = ExerciseSet{
				TargetReps:        set.TargetReps,
				TargetWeightKg:    nil,
				CompletedReps:     nil,
				CompletedWeightKg: nil,
			}
			if w := set.PerformedWeightKg(); w > 0 {
				sets[j].TargetWeightKg = new(w)
			}
		}
		return sets
	}
	return nil
}

func clearedSets(template []ExerciseSet) []ExerciseSet {
	sets := make([]ExerciseSet, len(template))
	for i, set := range template {
		sets[i] = ExerciseSet{
			TargetReps:        set.TargetReps,
			TargetWeightKg:    nil,
			CompletedReps:     nil,
			CompletedWeightKg: nil,
		}
	}
	return sets
}

// AddAdHocWorkout creates an unscheduled workout from movementIDs, prescribed like plan workouts.
func (s *Service) AddAdHocWorkout(ctx context.Context, name string, movementIDs []int) (Workout, error) {
	if len(movementIDs) == 0 {
		return Workout{}, fmt.Errorf("%w: no movements", ErrInvalidInput)
	}
	if name == "" {
		name = "Ad hoc workout"
	}
	prefs, err := s.repo.prefs.Get(ctx)
	if err != nil {
		return Workout{}, fmt.Errorf("get preferences: %w", err)
	}
	history, err := s.repo.workouts.ListCompleted(ctx, s.now().Add(-historyWindow))
	if err != nil {
		return Workout{}, fmt.Errorf("list history: %w", err)
	}
	gen, err := newGenerator(prefs, nil, history)
	if err != nil {
		return Workout{}, fmt.Errorf("initialize plan generator: %w", err)
	}
	presc := setsAndReps(prefs.Goal, prefs.Experience)

	w := Workout{
		ID:               0,
		PlanID:           nil,
		Name:             name,
		Focus:            "",
		ScheduledDate:    nil,
		StartedAt:        nil,
		CompletedAt:      nil,
		DifficultyRating: nil,
		Exercises:        make([]ExerciseInstance, 0, len(movementIDs)),
	}
	for _, movementID := range movementIDs {
		if _, exists := w.exercise(movementID); exists {
			return Workout{}, fmt.Errorf("%w: duplicate movement %d", ErrInvalidInput, movementID)
		}
		var m Movement
		if m, err = s.repo.movements.Get(ctx, movementID); err != nil {
			return Workout{}, fmt.Errorf("get movement %d: %w", movementID, err)
		}
		w.Exercises = append(w.Exercises, ExerciseInstance{Movement: m, Sets: gen.prescribeSets(m.ID, presc)})
	}

	if w, err = s.repo.workouts.Create(ctx, w); err != nil {
		return Workout{}, fmt.Errorf("create workout: %w", err)
	}
	return w, nil
}

// ListMovements returns the movement library, optionally limited to movements doable with equipment.
func (s *Service) ListMovements(ctx context.Context, equipment []Equipment) ([]Movement, error) {
	movements, err := s.repo.movements.List(ctx, equipment)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movements, nil
}

// GetMovement retrieves a movement by ID.
func (s *Service) GetMovement(ctx context.Context, id int) (Movement, error) {
	m, err := s.repo.movements.Get(ctx, id)
	if err != nil {
		return Movement{}, fmt.Errorf("get movement %d: %w", id, err)
	}
	return m, nil
}

// ListMuscleGroups retrieves all muscle groups.
func (s *Service) ListMuscleGroups(ctx context.Context) ([]string, error) {
	groups, err := s.repo.movements.ListMuscleGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list muscle groups: %w", err)
	}
	return groups, nil
}

// GenerateMovement adds a movement called name to the library.
//
// The details are generated with OpenAI when an API key is configured. Generation failures are logged and a minimal
// movement is stored instead.
func (s *Service) GenerateMovement(ctx context.Context, name string) (Movement, error) {
	if err := validateMovementName(name); err != nil {
		return Movement{}, err
	}
	m, err := s.repo.movements.Create(ctx, s.describeMovement(ctx, name))
	if err != nil {
		return Movement{}, fmt.Errorf("create movement: %w", err)
	}
	return m, nil
}

// UpdateMovement replaces the name, equipment, category, description and muscle groups of movement id.
func (s *Service) UpdateMovement(ctx context.Context, id int, update Movement) (Movement, error) {
	muscleGroups, err := s.repo.movements.ListMuscleGroups(ctx)
	if err != nil {
		return Movement{}, fmt.Errorf("list muscle groups: %w", err)
	}
	if err = validateMovement(update, muscleGroups); err != nil {
		return Movement{}, err
	}
	if err = s.repo.movements.Update(ctx, id, func(m *Movement) (bool, error) {
		m.Name = update.Name
		m.Equipment = update.Equipment
		m.Category = update.Category
		m.DescriptionMarkdown = update.DescriptionMarkdown
		m.PrimaryMuscleGroups = update.PrimaryMuscleGroups
		m.SecondaryMuscleGroups = update.SecondaryMuscleGroups
		return true, nil
	}); err != nil {
		return Movement{}, fmt.Errorf("update movement %d: %w", id, err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "updated movement", slog.Int("movement_id", id))
	return s.GetMovement(ctx, id)
}

// maxMovementNameLength is the longest movement name in characters the database accepts.
const maxMovementNameLength = 127

func validateMovementName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty movement name", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxMovementNameLength {
		return fmt.Errorf("%w: movement name longer than %d characters", ErrInvalidInput, maxMovementNameLength)
	}
	return nil
}

// validateMovement wraps ErrInvalidInput with the first problem of m.
func validateMovement(m Movement, muscleGroups []string) error {
	if err := validateMovementName(m.Name); err != nil {
		return err
	}
	if !m.Equipment.Valid() {
		return fmt.Errorf("%w: unknown equipment %q", ErrInvalidInput, m.Equipment)
	}
	switch m.Category {
	case CategoryFullBody, CategoryUpper, CategoryLower:
	default:
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, m.Category)
	}
	if len(m.PrimaryMuscleGroups) == 0 {
		return fmt.Errorf("%w: no primary muscle groups", ErrInvalidInput)
	}
	for _, mg := range slices.Concat(m.PrimaryMuscleGroups, m.SecondaryMuscleGroups) {
		if !slices.Contains(muscleGroups, mg) {
			return fmt.Errorf("%w: unknown muscle group %q", ErrInvalidInput, mg)
		}
	}
	return nil
}

func (s *Service) describeMovement(ctx context.Context, name string) Movement {
	if s.openaiAPIKey == "" {
		return minimalMovement(name)
	}
	muscleGroups, err := s.repo.movements.ListMuscleGroups(ctx)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to list muscle groups", slog.Any("error", err))
		return minimalMovement(name)
	}
	generated, err := newMovementGenerator(s.openaiAPIKey, muscleGroups, s.openaiOpts...).Generate(ctx, name)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to generate movement details",
			slog.Any("error", err), slog.String("name", name))
		return minimalMovement(name)
	}
	return generated
}
