package workout

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func movement(id int, equipment Equipment, primary ...string) Movement {
	return Movement{
		ID:                    id,
		Name:                  fmt.Sprintf("Movement %d", id),
		Equipment:             equipment,
		Category:              CategoryFullBody,
		DescriptionMarkdown:   "",
		PrimaryMuscleGroups:   primary,
		SecondaryMuscleGroups: nil,
	}
}

func testLibrary() []Movement {
	return []Movement{
		movement(1, EquipmentBarbell, "Quads", "Glutes"),
		movement(2, EquipmentBarbell, "Chest", "Triceps"),
		movement(3, EquipmentBarbell, "Upper Back", "Lats"),
		movement(4, EquipmentBodyweight, "Chest", "Triceps"),
		movement(5, EquipmentBodyweight, "Quads", "Glutes"),
		movement(6, EquipmentDumbbell, "Biceps"),
		movement(7, EquipmentBodyweight, "Abs"),
	}
}

func testPreferences() Preferences {
	return Preferences{
		Goal:             GoalGeneral,
		DaysPerWeek:      2,
		SessionMinutes:   20,
		Equipment:        []Equipment{},
		SplitStyle:       SplitFullBody,
		Experience:       ExperienceBeginner,
		MusclePriorities: []string{},
		Weeks:            1,
	}
}

func movementIDs(w Workout) []int {
	ids := make([]int, 0, len(w.Exercises))
	for _, ex := range w.Exercises {
		ids = append(ids, ex.Movement.ID)
	}
	return ids
}

// Wednesday.
var testStart = time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC) //nolint:gochecknoglobals // test fixture.

func mustGenerate(t *testing.T, prefs Preferences, library []Movement, history []Workout) Plan {
	t.Helper()
	gen, err := newGenerator(prefs, library, history)
	if err != nil {
		t.Fatalf("newGenerator: %v", err)
	}
	return gen.Generate(testStart)
}

func TestGenerate_Selection(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		modify func(p *Preferences)
		want   [][]int
	}{
		{
			name:   "bodyweight only prefers compound movements",
			modify: func(_ *Preferences) {},
			want:   [][]int{{4, 5}, {4, 5}},
		},
		{
			name:   "prioritised muscle first and rotation by use count",
			modify: func(p *Preferences) { p.MusclePriorities = []string{"Abs"} },
			want:   [][]int{{7, 4}, {7, 5}},
		},
		{
			name:   "barbell rotates least used movements",
			modify: func(p *Preferences) { p.Equipment = []Equipment{EquipmentBarbell} },
			want:   [][]int{{1, 2}, {3, 4}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prefs := testPreferences()
			tt.modify(&prefs)
			plan := mustGenerate(t, prefs, testLibrary(), nil)

			got := make([][]int, 0, len(plan.Workouts))
			for _, w := range plan.Workouts {
				got = append(got, movementIDs(w))
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("selected movements mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerate_Schedule(t *testing.T) {
	t.Parallel()
	prefs := testPreferences()
	prefs.DaysPerWeek = 3
	prefs.SplitStyle = SplitPushPullLegs
	prefs.Weeks = 2
	plan := mustGenerate(t, prefs, testLibrary(), nil)

	type scheduled struct {
		Date  string
		Focus Focus
		Name  string
	}
	var got []scheduled
	for _, w := range plan.Workouts {
		got = append(got, scheduled{Date: formatDate(*w.ScheduledDate), Focus: w.Focus, Name: w.Name})
	}
	want := []scheduled{
		{"2026-10-19", FocusPush, "Week 1 Push"},
		{"2026-10-21", FocusPull, "Week 1 Pull"},
		{"2026-10-23", FocusLegs, "Week 1 Legs"},
		{"2026-10-26", FocusPush, "Week 2 Push"},
		{"2026-10-28", FocusPull, "Week 2 Pull"},
		{"2026-10-30", FocusLegs, "Week 2 Legs"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("schedule mismatch (-want +got):\n%s", diff)
	}
	if got, want := formatDate(plan.StartDate), "2026-10-19"; got != want {
		t.Errorf("start date = %s, want %s", got, want)
	}
}

func TestGenerate_Deload(t *testing.T) {
	t.Parallel()
	prefs := testPreferences()
	prefs.Weeks = 4
	prefs.DaysPerWeek = 1
	prefs.Goal = GoalStrength
	plan := mustGenerate(t, prefs, testLibrary(), nil)

	var got []int
	for _, w := range plan.Workouts {
		got = append(got, len(w.Exercises[0].Sets))
	}
	if diff := cmp.Diff([]int{3, 3, 3, 2}, got); diff != "" {
		t.Errorf("sets per week mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_TargetWeightFromHistory(t *testing.T) {
	t.Parallel()
	prefs := testPreferences()
	prefs.Goal = GoalStrength
	prefs.Equipment = []Equipment{EquipmentBarbell}

	completedAt := testStart.AddDate(0, 0, -7)
	history := []Workout{{
		ID:          1,
		Name:        "Old",
		CompletedAt: &completedAt,
		Exercises: []ExerciseInstance{{
			Movement: movement(1, EquipmentBarbell, "Quads", "Glutes"),
			Sets: []ExerciseSet{
				{TargetReps: 5, CompletedReps: new(5), CompletedWeightKg: new(100.0)},
				{TargetReps: 5, CompletedReps: new(3), CompletedWeightKg: new(100.0)},
			},
		}},
	}} //nolint:exhaustruct // only relevant fields.
	plan := mustGenerate(t, prefs, testLibrary(), history)

	first := plan.Workouts[0]
	if first.Exercises[0].Movement.ID != 1 {
		t.Fatalf("first movement = %d, want 1", first.Exercises[0].Movement.ID)
	}
	for i, set := range first.Exercises[0].Sets {
		// 100 kg × 5 → e1RM 116.67, inverted for 5 reps is 100 kg, 90 % intensity is 90 kg.
		if set.TargetWeightKg == nil || *set.TargetWeightKg != 90 {
			t.Errorf("set %d target weight = %v, want 90", i, set.TargetWeightKg)
		}
		if set.TargetReps != 5 {
			t.Errorf("set %d target reps = %d, want 5", i, set.TargetReps)
		}
	}
	for _, set := range first.Exercises[1].Sets {
		if set.TargetWeightKg != nil {
			t.Errorf("movement without history got target weight %v", *set.TargetWeightKg)
		}
	}
}

func TestGenerate_EmptyLibrary(t *testing.T) {
	t.Parallel()
	prefs := testPreferences()
	prefs.DaysPerWeek = 4
	prefs.Weeks = 2
	plan := mustGenerate(t, prefs, nil, nil)

	if len(plan.Workouts) != 8 {
		t.Fatalf("got %d workouts, want 8", len(plan.Workouts))
	}
	for _, w := range plan.Workouts {
		if len(w.Exercises) != 0 {
			t.Errorf("workout %s has %d exercises, want 0", w.Name, len(w.Exercises))
		}
	}
}

func TestGenerate_InvalidPreferences(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		modify func(p *Preferences)
	}{
		{"zero days", func(p *Preferences) { p.DaysPerWeek = 0 }},
		{"eight days", func(p *Preferences) { p.DaysPerWeek = 8 }},
		{"short session", func(p *Preferences) { p.SessionMinutes = 14 }},
		{"long session", func(p *Preferences) { p.SessionMinutes = 181 }},
		{"too many weeks", func(p *Preferences) { p.Weeks = 13 }},
		{"unknown goal", func(p *Preferences) { p.Goal = "bulk" }},
		{"unknown split", func(p *Preferences) { p.SplitStyle = "bro" }},
		{"unknown experience", func(p *Preferences) { p.Experience = "elite" }},
		{"unknown equipment", func(p *Preferences) { p.Equipment = []Equipment{"sled"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prefs := testPreferences()
			tt.modify(&prefs)
			if _, err := newGenerator(prefs, testLibrary(), nil); !errors.Is(err, ErrInvalidPreferences) {
				t.Errorf("newGenerator error = %v, want ErrInvalidPreferences", err)
			}
		})
	}
}

// The number of exercises of a workout never exceeds the movements that match its equipment and focus.
func TestGenerate_ExercisesBoundedByCandidates(t *testing.T) {
	t.Parallel()
	library := testLibrary()
	equipmentSets := [][]Equipment{{}, {EquipmentBarbell}, {EquipmentDumbbell}, AllEquipment()}
	splits := []SplitStyle{SplitFullBody, SplitUpperLower, SplitPushPullLegs, SplitBodyPart}

	for _, split := range splits {
		for _, equipment := range equipmentSets {
			for _, minutes := range []int{MinSessionMinutes, 45, 90, MaxSessionMinutes} {
				prefs := testPreferences()
				prefs.SplitStyle = split
				prefs.Equipment = equipment
				prefs.SessionMinutes = minutes
				prefs.DaysPerWeek = 5
				prefs.Weeks = 2
				gen, err := newGenerator(prefs, library, nil)
				if err != nil {
					t.Fatalf("newGenerator: %v", err)
				}
				plan := gen.Generate(testStart)
				for _, w := range plan.Workouts {
					available := len(gen.candidates(FocusMuscleGroups(w.Focus)))
					want := min(exercisesPerWorkout(minutes), available)
					if len(w.Exercises) != want {
						t.Errorf("%s/%v/%d min: workout %q has %d exercises, want %d",
							split, equipment, minutes, w.Name, len(w.Exercises), want)
					}
					seen := make(map[int]bool)
					for _, id := range movementIDs(w) {
						if seen[id] {
							t.Errorf("workout %q repeats movement %d", w.Name, id)
						}
						seen[id] = true
					}
				}
			}
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()
	prefs := testPreferences()
	prefs.SplitStyle = SplitUpperLower
	prefs.Equipment = AllEquipment()
	prefs.Weeks = 6
	first := mustGenerate(t, prefs, testLibrary(), nil)
	second := mustGenerate(t, prefs, testLibrary(), nil)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("plans differ (-first +second):\n%s", diff)
	}
}

func TestExercisesPerWorkout(t *testing.T) {
	t.Parallel()
	tests := []struct{ minutes, want int }{
		{15, 2}, {29, 2}, {30, 3}, {45, 4}, {60, 6}, {80, 8}, {180, 8},
	}
	for _, tt := range tests {
		if got := exercisesPerWorkout(tt.minutes); got != tt.want {
			t.Errorf("exercisesPerWorkout(%d) = %d, want %d", tt.minutes, got, tt.want)
		}
	}
}

func TestRoundDownToIncrement(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want float64 }{
		{0, 0}, {-5, 0}, {2.4, 0}, {2.5, 2.5}, {61.2, 60}, {99.99, 97.5},
	}
	for _, tt := range tests {
		if got := roundDownToIncrement(tt.in); got != tt.want {
			t.Errorf("roundDownToIncrement(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
