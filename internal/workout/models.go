package workout

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity does not exist for the profile.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPreferences is returned when preferences fall outside their allowed ranges.
	ErrInvalidPreferences = errors.New("invalid preferences")
	// ErrInvalidInput is returned for malformed requests such as an out of range set index.
	ErrInvalidInput = errors.New("invalid input")
)

// Equipment is a piece of training equipment a movement requires.
type Equipment string

const (
	EquipmentBodyweight Equipment = "bodyweight"
	EquipmentDumbbell   Equipment = "dumbbell"
	EquipmentBarbell    Equipment = "barbell"
	EquipmentKettlebell Equipment = "kettlebell"
	EquipmentCable      Equipment = "cable"
	EquipmentMachine    Equipment = "machine"
	EquipmentBand       Equipment = "band"
	EquipmentPullupBar  Equipment = "pullup_bar"
)

// AllEquipment lists every supported kind of equipment.
func AllEquipment() []Equipment {
	return []Equipment{
		EquipmentBodyweight, EquipmentDumbbell, EquipmentBarbell, EquipmentKettlebell,
		EquipmentCable, EquipmentMachine, EquipmentBand, EquipmentPullupBar,
	}
}

// Valid reports whether e is a known kind of equipment.
func (e Equipment) Valid() bool {
	return slices.Contains(AllEquipment(), e)
}

// Category groups movements by the half of the body they train.
type Category string

const (
	CategoryFullBody Category = "full_body"
	CategoryUpper    Category = "upper"
	CategoryLower    Category = "lower"
)

// minCompoundMuscles is the number of primary muscle groups that makes a movement compound.
const minCompoundMuscles = 2

// Movement is a single exercise in the library, e.g. Barbell Back Squat.
type Movement struct {
	ID                    int       `json:"id"`
	Name                  string    `json:"name"`
	Equipment             Equipment `json:"equipment"`
	Category              Category  `json:"category"`
	DescriptionMarkdown   string    `json:"description_markdown"`
	PrimaryMuscleGroups   []string  `json:"primary_muscle_groups"`
	SecondaryMuscleGroups []string  `json:"secondary_muscle_groups"`
}

// IsCompound reports whether the movement trains several primary muscle groups.
func (m Movement) IsCompound() bool {
	return len(m.PrimaryMuscleGroups) >= minCompoundMuscles
}

// Goal is what the trainee wants to get out of the plan.
type Goal string

const (
	GoalStrength    Goal = "strength"
	GoalHypertrophy Goal = "hypertrophy"
	GoalEndurance   Goal = "endurance"
	GoalGeneral     Goal = "general"
)

// SplitStyle decides how muscle groups are distributed over the training days.
type SplitStyle string

const (
	SplitFullBody     SplitStyle = "full_body"
	SplitUpperLower   SplitStyle = "upper_lower"
	SplitPushPullLegs SplitStyle = "push_pull_legs"
	SplitBodyPart     SplitStyle = "body_part"
)

// Experience is the self-reported training experience.
type Experience string

const (
	ExperienceBeginner     Experience = "beginner"
	ExperienceIntermediate Experience = "intermediate"
	ExperienceAdvanced     Experience = "advanced"
)

// Focus is the muscle group emphasis of a single workout.
type Focus string

const (
	FocusFull      Focus = "full"
	FocusUpper     Focus = "upper"
	FocusLower     Focus = "lower"
	FocusPush      Focus = "push"
	FocusPull      Focus = "pull"
	FocusLegs      Focus = "legs"
	FocusChest     Focus = "chest"
	FocusBack      Focus = "back"
	FocusShoulders Focus = "shoulders"
	FocusArms      Focus = "arms"
)

// Preference limits.
const (
	MinDaysPerWeek    = 1
	MaxDaysPerWeek    = 7
	MinSessionMinutes = 15
	MaxSessionMinutes = 180
	MinPlanWeeks      = 1
	MaxPlanWeeks      = 12
	DefaultPlanWeeks  = 4
)

// Preferences is the structured questionnaire a plan is generated from.
type Preferences struct {
	Goal             Goal        `json:"goal"`
	DaysPerWeek      int         `json:"days_per_week"`
	SessionMinutes   int         `json:"session_minutes"`
	Equipment        []Equipment `json:"equipment"`
	SplitStyle       SplitStyle  `json:"split_style"`
	Experience       Experience  `json:"experience"`
	MusclePriorities []string    `json:"muscle_priorities"`
	Weeks            int         `json:"weeks"`
}

// DefaultPreferences is used until the profile saves its own.
func DefaultPreferences() Preferences {
	return Preferences{
		Goal:             GoalGeneral,
		DaysPerWeek:      3,  //nolint:mnd // three full body days is the classic beginner template.
		SessionMinutes:   45, //nolint:mnd // typical session length.
		Equipment:        []Equipment{EquipmentBodyweight},
		SplitStyle:       SplitFullBody,
		Experience:       ExperienceBeginner,
		MusclePriorities: []string{},
		Weeks:            DefaultPlanWeeks,
	}
}

// withDefaults fills in optional fields that were left empty.
func (p Preferences) withDefaults() Preferences {
	if p.Weeks == 0 {
		p.Weeks = DefaultPlanWeeks
	}
	if p.Equipment == nil {
		p.Equipment = []Equipment{}
	}
	if p.MusclePriorities == nil {
		p.MusclePriorities = []string{}
	}
	return p
}

// Validate checks every field of p and wraps ErrInvalidPreferences with the first offending one.
func (p Preferences) Validate() error {
	switch p.Goal {
	case GoalStrength, GoalHypertrophy, GoalEndurance, GoalGeneral:
	default:
		return fmt.Errorf("%w: unknown goal %q", ErrInvalidPreferences, p.Goal)
	}
	switch p.SplitStyle {
	case SplitFullBody, SplitUpperLower, SplitPushPullLegs, SplitBodyPart:
	default:
		return fmt.Errorf("%w: unknown split style %q", ErrInvalidPreferences, p.SplitStyle)
	}
	switch p.Experience {
	case ExperienceBeginner, ExperienceIntermediate, ExperienceAdvanced:
	default:
		return fmt.Errorf("%w: unknown experience %q", ErrInvalidPreferences, p.Experience)
	}
	if p.DaysPerWeek < MinDaysPerWeek || p.DaysPerWeek > MaxDaysPerWeek {
		return fmt.Errorf("%w: days per week %d not in %d..%d",
			ErrInvalidPreferences, p.DaysPerWeek, MinDaysPerWeek, MaxDaysPerWeek)
	}
	if p.SessionMinutes < MinSessionMinutes || p.SessionMinutes > MaxSessionMinutes {
		return fmt.Errorf("%w: session minutes %d not in %d..%d",
			ErrInvalidPreferences, p.SessionMinutes, MinSessionMinutes, MaxSessionMinutes)
	}
	if p.Weeks < MinPlanWeeks || p.Weeks > MaxPlanWeeks {
		return fmt.Errorf("%w: weeks %d not in %d..%d", ErrInvalidPreferences, p.Weeks, MinPlanWeeks, MaxPlanWeeks)
	}
	for _, e := range p.Equipment {
		if !e.Valid() {
			return fmt.Errorf("%w: unknown equipment %q", ErrInvalidPreferences, e)
		}
	}
	return nil
}

// Plan is a generated multi-week training block.
type Plan struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	StartDate   time.Time   `json:"start_date"`
	Weeks       int         `json:"weeks"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `json:"created_at"`
	Workouts    []Workout   `json:"workouts"`
}

// Workout is a single training session, either scheduled by a plan or added ad hoc.
type Workout struct {
	ID               int                `json:"id"`
	PlanID           *int               `json:"plan_id,omitempty"`
	Name             string             `json:"name"`
	Focus            Focus              `json:"focus,omitempty"`
	ScheduledDate    *time.Time         `json:"scheduled_date,omitempty"`
	StartedAt        *time.Time         `json:"started_at,omitempty"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
	DifficultyRating *int               `json:"difficulty_rating,omitempty"`
	Exercises        []ExerciseInstance `json:"exercises"`
}

// IsCompleted reports whether the workout has been finished.
func (w Workout) IsCompleted() bool {
	return w.CompletedAt != nil
}

// exercise returns the exercise instance for movementID.
func (w *Workout) exercise(movementID int) (*ExerciseInstance, bool) {
	for i := range w.Exercises {
		if w.Exercises[i].Movement.ID == movementID {
			return &w.Exercises[i], true
		}
	}
	return nil, false
}

// ExerciseInstance is a movement with its prescribed sets inside a workout.
type ExerciseInstance struct {
	Movement Movement      `json:"movement"`
	Sets     []ExerciseSet `json:"sets"`
}

// ExerciseSet holds the target and the actual performance of one set.
type ExerciseSet struct {
	TargetReps        int      `json:"target_reps"`
	TargetWeightKg    *float64 `json:"target_weight_kg,omitempty"`
	CompletedReps     *int     `json:"completed_reps,omitempty"`
	CompletedWeightKg *float64 `json:"completed_weight_kg,omitempty"`
}

// IsCompleted reports whether at least one rep was logged for the set.
func (s ExerciseSet) IsCompleted() bool {
	return s.CompletedReps != nil && *s.CompletedReps > 0
}

// PerformedWeightKg is the logged weight, falling back to the target weight.
func (s ExerciseSet) PerformedWeightKg() float64 {
	switch {
	case s.CompletedWeightKg != nil:
		return *s.CompletedWeightKg
	case s.TargetWeightKg != nil:
		return *s.TargetWeightKg
	default:
		return 0
	}
}

// SetUpdate carries the fields of a set the trainee may log. Nil fields are left unchanged.
type SetUpdate struct {
	CompletedReps     *int     `json:"completed_reps"`
	CompletedWeightKg *float64 `json:"completed_weight_kg"`
}

// movementJSONSchema is the structured output schema for generated movements.
type movementJSONSchema struct {
	muscleGroups []string
}

func (s movementJSONSchema) MarshalJSON() ([]byte, error) {
	muscleGroups := s.muscleGroups
	if muscleGroups == nil {
		muscleGroups = []string{}
	}
	equipment := AllEquipment()
	schema := map[string]any{
		"type": "object",
		"required": []string{
			"name", "equipment", "category", "description_markdown",
			"primary_muscle_groups", "secondary_muscle_groups",
		},
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "description": "Name of the movement"},
			"equipment": map[string]any{
				"type":        "string",
				"description": "Equipment the movement requires",
				"enum":        equipment,
			},
			"category": map[string]any{
				"type":        "string",
				"description": "Body half the movement trains",
				"enum":        []Category{CategoryFullBody, CategoryUpper, CategoryLower},
			},
			"description_markdown": map[string]any{
				"type":        "string",
				"description": "Markdown description of the movement",
			},
			"primary_muscle_groups": map[string]any{
				"type":        "array",
				"description": "Primary muscle groups targeted by the movement",
				"items":       map[string]any{"type": "string", "enum": muscleGroups},
			},
			"secondary_muscle_groups": map[string]any{
				"type":        "array",
				"description": "Secondary muscle groups targeted by the movement",
				"items":       map[string]any{"type": "string", "enum": muscleGroups},
			},
		},
		"additionalProperties": false,
	}
	out, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal movement schema: %w", err)
	}
	return out, nil
}
