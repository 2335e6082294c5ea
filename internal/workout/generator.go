// Package workout generates training plans from preferences and tracks the workouts performed from them.
package workout

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Generator limits.
const (
	minutesPerExercise = 10
	minExercisesPerDay = 2
	maxExercisesPerDay = 8
	minDeloadPlanWeeks = 4
	minSetsPerExercise = 2
)

// trainingWeekdays spreads the training days of a week as evenly as possible. Index is days per week.
//
//nolint:gochecknoglobals // lookup table.
var trainingWeekdays = [][]time.Weekday{
	1: {time.Monday},
	2: {time.Monday, time.Thursday},
	3: {time.Monday, time.Wednesday, time.Friday},
	4: {time.Monday, time.Tuesday, time.Thursday, time.Friday},
	5: {time.Monday, time.Tuesday, time.Wednesday, time.Friday, time.Saturday},
	6: {time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
	7: {time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday},
}

// focusRotation returns the sequence of workout foci a split cycles through.
func focusRotation(split SplitStyle) []Focus {
	switch split {
	case SplitUpperLower:
		return []Focus{FocusUpper, FocusLower}
	case SplitPushPullLegs:
		return []Focus{FocusPush, FocusPull, FocusLegs}
	case SplitBodyPart:
		return []Focus{FocusChest, FocusBack, FocusLegs, FocusShoulders, FocusArms}
	case SplitFullBody:
		return []Focus{FocusFull}
	}
	return []Focus{FocusFull}
}

// FocusMuscleGroups returns the muscle groups a workout with the given focus should train.
func FocusMuscleGroups(focus Focus) []string {
	switch focus {
	case FocusFull:
		return []string{"Chest", "Upper Back", "Lats", "Shoulders", "Quads", "Hamstrings", "Glutes", "Abs"}
	case FocusUpper:
		return []string{"Chest", "Upper Back", "Lats", "Shoulders", "Biceps", "Triceps"}
	case FocusLower:
		return []string{"Quads", "Hamstrings", "Glutes", "Calves", "Abs", "Lower Back"}
	case FocusPush:
		return []string{"Chest", "Shoulders", "Triceps"}
	case FocusPull:
		return []string{"Upper Back", "Lats", "Biceps", "Forearms"}
	case FocusLegs:
		return []string{"Quads", "Hamstrings", "Glutes", "Calves"}
	case FocusChest:
		return []string{"Chest", "Triceps"}
	case FocusBack:
		return []string{"Upper Back", "Lats", "Lower Back"}
	case FocusShoulders:
		return []string{"Shoulders"}
	case FocusArms:
		return []string{"Biceps", "Triceps", "Forearms"}
	}
	return nil
}

// prescription is the number of sets and reps per exercise.
type prescription struct {
	sets int
	reps int
}

// setsAndReps returns the prescription for goal and experience.
func setsAndReps(goal Goal, experience Experience) prescription {
	level := 0
	switch experience {
	case ExperienceBeginner:
		level = 0
	case ExperienceIntermediate:
		level = 1
	case ExperienceAdvanced:
		level = 2
	}
	//nolint:mnd // rep schemes per goal for beginner, intermediate and advanced.
	table := map[Goal][3]prescription{
		GoalStrength:    {{3, 5}, {4, 5}, {5, 3}},
		GoalHypertrophy: {{3, 10}, {4, 10}, {4, 8}},
		GoalEndurance:   {{2, 15}, {3, 15}, {3, 20}},
		GoalGeneral:     {{3, 8}, {3, 10}, {4, 8}},
	}
	schemes, ok := table[goal]
	if !ok {
		schemes = table[GoalGeneral]
	}
	return schemes[level]
}

// goalIntensity scales the Epley derived working weight so that sets end a few reps short of failure.
func goalIntensity(goal Goal) float64 {
	switch goal {
	case GoalStrength:
		return 0.9 //nolint:mnd // heavy but repeatable.
	case GoalHypertrophy:
		return 0.85 //nolint:mnd // two to three reps in reserve.
	case GoalEndurance:
		return 0.75 //nolint:mnd // light for high reps.
	case GoalGeneral:
		return 0.8 //nolint:mnd // moderate.
	}
	return 0.8 //nolint:mnd // moderate.
}

// generator deterministically turns preferences and the movement library into a plan.
type generator struct {
	// preferences provided by the trainee.
	preferences Preferences
	// library of movements to choose from.
	library []Movement
	// oneRepMaxes is the best estimated one-rep max per movement in recent history.
	oneRepMaxes map[int]float64
	// useCount tracks how often each movement has been picked in the plan so far.
	useCount map[int]int
}

// newGenerator validates the preferences and constructs a generator.
func newGenerator(prefs Preferences, library []Movement, history []Workout) (*generator, error) {
	prefs = prefs.withDefaults()
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	sorted := slices.Clone(library)
	slices.SortFunc(sorted, func(a, b Movement) int { return a.ID - b.ID })
	return &generator{
		preferences: prefs,
		library:     sorted,
		oneRepMaxes: bestOneRepMaxes(history),
		useCount:    make(map[int]int),
	}, nil
}

// planStart returns the first Monday on or after start, truncated to a UTC date.
func planStart(start time.Time) time.Time {
	day := normalizeDate(start)
	offset := (int(time.Monday) - int(day.Weekday()) + 7) % 7 //nolint:mnd // days per week.
	return day.AddDate(0, 0, offset)
}

// normalizeDate normalizes a date to midnight UTC.
func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Generate creates the plan starting on the first Monday on or after start.
func (g *generator) Generate(start time.Time) Plan {
	monday := planStart(start)
	weekdays := trainingWeekdays[g.preferences.DaysPerWeek]
	rotation := focusRotation(g.preferences.SplitStyle)

	plan := Plan{
		ID:          0,
		Name:        planName(g.preferences),
		StartDate:   monday,
		Weeks:       g.preferences.Weeks,
		Preferences: g.preferences,
		CreatedAt:   time.Time{},
		Workouts:    make([]Workout, 0, g.preferences.Weeks*len(weekdays)),
	}

	index := 0
	for week := range g.preferences.Weeks {
		deload := g.preferences.Weeks >= minDeloadPlanWeeks && week == g.preferences.Weeks-1
		for _, weekday := range weekdays {
			focus := rotation[index%len(rotation)]
			date := monday.AddDate(0, 0, week*7+int(weekday+6)%7) //nolint:mnd // Monday is the first day.
			plan.Workouts = append(plan.Workouts, g.generateWorkout(week, date, focus, deload))
			index++
		}
	}
	return plan
}

func (g *generator) generateWorkout(week int, date time.Time, focus Focus, deload bool) Workout {
	presc := setsAndReps(g.preferences.Goal, g.preferences.Experience)
	if deload {
		presc.sets = max(presc.sets-1, minSetsPerExercise)
	}

	movements := g.selectMovements(focus)
	exercises := make([]ExerciseInstance, 0, len(movements))
	for _, m := range movements {
		exercises = append(exercises, ExerciseInstance{
			Movement: m,
			Sets:     g.prescribeSets(m.ID, presc),
		})
	}

	return Workout{
		ID:               0,
		PlanID:           nil,
		Name:             fmt.Sprintf("Week %d %s", week+1, focusTitle(focus)),
		Focus:            focus,
		ScheduledDate:    &date,
		StartedAt:        nil,
		CompletedAt:      nil,
		DifficultyRating: nil,
		Exercises:        exercises,
	}
}

// exercisesPerWorkout derives the exercise count from the session length.
func exercisesPerWorkout(sessionMinutes int) int {
	return min(max(sessionMinutes/minutesPerExercise, minExercisesPerDay), maxExercisesPerDay)
}

// candidates returns the movements that fit the available equipment and train at least one focus muscle.
func (g *generator) candidates(focusMuscles []string) []Movement {
	var result []Movement
	for _, m := range g.library {
		if !g.equipmentAvailable(m.Equipment) {
			continue
		}
		if !slices.ContainsFunc(m.PrimaryMuscleGroups, func(mg string) bool {
			return slices.Contains(focusMuscles, mg)
		}) {
			continue
		}
		result = append(result, m)
	}
	return result
}

func (g *generator) equipmentAvailable(e Equipment) bool {
	return e == EquipmentBodyweight || slices.Contains(g.preferences.Equipment, e)
}

// selectMovements greedily picks the movements of one workout.
//
// Each round picks the candidate that covers a focus muscle not yet covered, then one that trains a prioritised
// muscle, then a compound one, then the least used one in the plan so far and finally the one with the lowest ID.
func (g *generator) selectMovements(focus Focus) []Movement {
	focusMuscles := FocusMuscleGroups(focus)
	pool := g.candidates(focusMuscles)
	count := min(exercisesPerWorkout(g.preferences.SessionMinutes), len(pool))

	covered := make(map[string]bool)
	selected := make([]Movement, 0, count)
	for range count {
		bestIdx := -1
		for i, m := range pool {
			if bestIdx == -1 || g.preferable(m, pool[bestIdx], covered, focusMuscles) {
				bestIdx = i
			}
		}
		best := pool[bestIdx]
		pool = slices.Delete(pool, bestIdx, bestIdx+1)

		selected = append(selected, best)
		g.useCount[best.ID]++
		for _, mg := range best.PrimaryMuscleGroups {
			covered[mg] = true
		}
	}
	return selected
}

// preferable reports whether a should be picked over b.
func (g *generator) preferable(a, b Movement, covered map[string]bool, focusMuscles []string) bool {
	coversNew := func(m Movement) bool {
		return slices.ContainsFunc(m.PrimaryMuscleGroups, func(mg string) bool {
			return !covered[mg] && slices.Contains(focusMuscles, mg)
		})
	}
	prioritised := func(m Movement) bool {
		return slices.ContainsFunc(m.PrimaryMuscleGroups, func(mg string) bool {
			return slices.Contains(g.preferences.MusclePriorities, mg)
		})
	}

	if ca, cb := coversNew(a), coversNew(b); ca != cb {
		return ca
	}
	if pa, pb := prioritised(a), prioritised(b); pa != pb {
		return pa
	}
	if a.IsCompound() != b.IsCompound() {
		return a.IsCompound()
	}
	if g.useCount[a.ID] != g.useCount[b.ID] {
		return g.useCount[a.ID] < g.useCount[b.ID]
	}
	return a.ID < b.ID
}

// prescribeSets creates the sets of one exercise with a target weight derived from history.
func (g *generator) prescribeSets(movementID int, presc prescription) []ExerciseSet {
	sets := make([]ExerciseSet, presc.sets)
	weight := g.targetWeight(movementID, presc.reps)
	for i := range sets {
		sets[i] = ExerciseSet{
			TargetReps:        presc.reps,
			TargetWeightKg:    nil,
			CompletedReps:     nil,
			CompletedWeightKg: nil,
		}
		if weight > 0 {
			sets[i].TargetWeightKg = new(weight)
		}
	}
	return sets
}

// targetWeight inverts the best one-rep max for reps, scales it by the goal intensity and rounds down.
// It returns 0 when the movement has no history.
func (g *generator) targetWeight(movementID int, reps int) float64 {
	oneRepMax, ok := g.oneRepMaxes[movementID]
	if !ok {
		return 0
	}
	return roundDownToIncrement(weightForReps(oneRepMax, reps) * goalIntensity(g.preferences.Goal))
}

func planName(prefs Preferences) string {
	split := strings.ReplaceAll(string(prefs.SplitStyle), "_", " ")
	return fmt.Sprintf("%d-week %s %s", prefs.Weeks, split, prefs.Goal)
}

func focusTitle(focus Focus) string {
	if focus == FocusFull {
		return "Full body"
	}
	s := string(focus)
	return strings.ToUpper(s[:1]) + s[1:]
}
