// Package stats folds completed workout history into chart series.
//
// All functions are pure. Workouts that are not completed are ignored and empty input yields empty output.
package stats

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/myrjola/repcoach/internal/workout"
)

// ErrInvalidPeriod is returned for an unknown aggregation period.
var ErrInvalidPeriod = errors.New("invalid period")

// Period is the bucket size of an aggregation.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod parses s, defaulting to PeriodWeek when s is empty.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodWeek:
		return PeriodWeek, nil
	case PeriodMonth:
		return PeriodMonth, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// periodStart returns the start of the period t falls in. Weeks start on Monday, all dates are UTC.
func periodStart(t time.Time, period Period) time.Time {
	t = t.UTC()
	switch period {
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case PeriodWeek:
	}
	return weekStart(t)
}

func weekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 //nolint:mnd // days since Monday.
	return day.AddDate(0, 0, -offset)
}

// MuscleSetCount is the number of completed sets a muscle group received in one period.
type MuscleSetCount struct {
	PeriodStart time.Time `json:"period_start"`
	MuscleGroup string    `json:"muscle_group"`
	Sets        int       `json:"sets"`
}

// MuscleSetCounts counts completed sets per primary muscle group and period, sorted by period and muscle group.
// A set is completed when at least one rep was logged.
func MuscleSetCounts(history []workout.Workout, period Period) []MuscleSetCount {
	type key struct {
		start  time.Time
		muscle string
	}
	counts := make(map[key]int)
	for _, w := range history {
		if !w.IsCompleted() {
			continue
		}
		start := periodStart(*w.CompletedAt, period)
		for _, ex := range w.Exercises {
			completed := 0
			for _, set := range ex.Sets {
				if set.IsCompleted() {
					completed++
				}
			}
			if completed == 0 {
				continue
			}
			for _, mg := range ex.Movement.PrimaryMuscleGroups {
				counts[key{start: start, muscle: mg}] += completed
			}
		}
	}

	result := make([]MuscleSetCount, 0, len(counts))
	for k, sets := range counts {
		result = append(result, MuscleSetCount{PeriodStart: k.start, MuscleGroup: k.muscle, Sets: sets})
	}
	slices.SortFunc(result, func(a, b MuscleSetCount) int {
		if c := a.PeriodStart.Compare(b.PeriodStart); c != 0 {
			return c
		}
		return strings.Compare(a.MuscleGroup, b.MuscleGroup)
	})
	return result
}

// OneRepMaxPoint is the best estimated one-rep max of a movement in one workout.
type OneRepMaxPoint struct {
	WorkoutID   int       `json:"workout_id"`
	Date        time.Time `json:"date"`
	OneRepMaxKg float64   `json:"one_rep_max_kg"`
}

// OneRepMaxProgress is the e1RM progression of a movement.
type OneRepMaxProgress struct {
	MovementID int              `json:"movement_id"`
	Points     []OneRepMaxPoint `json:"points"`
	// PersonalRecord is the highest point, nil when there are none.
	PersonalRecord *OneRepMaxPoint `json:"personal_record"`
}

// OneRepMaxSeries returns per completed workout the best Epley estimate for movementID in completion order.
func OneRepMaxSeries(history []workout.Workout, movementID int) OneRepMaxProgress {
	series := OneRepMaxProgress{MovementID: movementID, Points: []OneRepMaxPoint{}, PersonalRecord: nil}
	for _, w := range history {
		if !w.IsCompleted() {
			continue
		}
		best := 0.0
		for _, ex := range w.Exercises {
			if ex.Movement.ID != movementID {
				continue
			}
			for _, set := range ex.Sets {
				if !set.IsCompleted() {
					continue
				}
				best = max(best, workout.EstimateOneRepMax(set.PerformedWeightKg(), *set.CompletedReps))
			}
		}
		if best > 0 {
			series.Points = append(series.Points, OneRepMaxPoint{
				WorkoutID:   w.ID,
				Date:        w.CompletedAt.UTC(),
				OneRepMaxKg: best,
			})
		}
	}
	slices.SortStableFunc(series.Points, func(a, b OneRepMaxPoint) int { return a.Date.Compare(b.Date) })

	for i := range series.Points {
		if series.PersonalRecord == nil || series.Points[i].OneRepMaxKg > series.PersonalRecord.OneRepMaxKg {
			series.PersonalRecord = &series.Points[i]
		}
	}
	return series
}

// VolumePoint is the training volume of one week.
type VolumePoint struct {
	WeekStart time.Time `json:"week_start"`
	VolumeKg  float64   `json:"volume_kg"`
	Sets      int       `json:"sets"`
}

// WeeklyVolume sums weight × reps over the completed sets of each week.
func WeeklyVolume(history []workout.Workout) []VolumePoint {
	byWeek := make(map[time.Time]*VolumePoint)
	for _, w := range history {
		if !w.IsCompleted() {
			continue
		}
		start := weekStart(*w.CompletedAt)
		point, ok := byWeek[start]
		if !ok {
			point = &VolumePoint{WeekStart: start, VolumeKg: 0, Sets: 0}
			byWeek[start] = point
		}
		for _, ex := range w.Exercises {
			for _, set := range ex.Sets {
				if !set.IsCompleted() {
					continue
				}
				point.VolumeKg += set.PerformedWeightKg() * float64(*set.CompletedReps)
				point.Sets++
			}
		}
	}

	result := make([]VolumePoint, 0, len(byWeek))
	for _, point := range byWeek {
		result = append(result, *point)
	}
	slices.SortFunc(result, func(a, b VolumePoint) int { return a.WeekStart.Compare(b.WeekStart) })
	return result
}
