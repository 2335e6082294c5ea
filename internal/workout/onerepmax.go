package workout

import "math"

// epleyRepDivisor is the denominator of the Epley formula.
const epleyRepDivisor = 30

// WeightIncrementKg is the smallest plate jump target weights are rounded down to.
const WeightIncrementKg = 2.5

// roundingTolerance absorbs floating point error so that e.g. 89.99999999 still rounds to 90.
const roundingTolerance = 1e-9

// EstimateOneRepMax estimates the one-repetition maximum with the Epley formula weight × (1 + reps/30).
// It returns 0 when no reps were performed.
func EstimateOneRepMax(weightKg float64, reps int) float64 {
	if reps <= 0 {
		return 0
	}
	return weightKg * (1 + float64(reps)/epleyRepDivisor)
}

// weightForReps inverts the Epley formula, returning the weight that can be lifted for reps given oneRepMax.
func weightForReps(oneRepMax float64, reps int) float64 {
	if reps <= 0 || oneRepMax <= 0 {
		return 0
	}
	return oneRepMax / (1 + float64(reps)/epleyRepDivisor)
}

// roundDownToIncrement rounds weightKg down to the nearest WeightIncrementKg.
func roundDownToIncrement(weightKg float64) float64 {
	if weightKg <= 0 {
		return 0
	}
	return math.Floor(weightKg/WeightIncrementKg+roundingTolerance) * WeightIncrementKg
}

// bestOneRepMaxes returns the best estimated one-rep max per movement over the completed sets of history.
func bestOneRepMaxes(history []Workout) map[int]float64 {
	best := make(map[int]float64)
	for _, w := range history {
		if !w.IsCompleted() {
			continue
		}
		for _, ex := range w.Exercises {
			for _, set := range ex.Sets {
				if !set.IsCompleted() {
					continue
				}
				e1rm := EstimateOneRepMax(set.PerformedWeightKg(), *set.CompletedReps)
				if e1rm > best[ex.Movement.ID] {
					best[ex.Movement.ID] = e1rm
				}
			}
		}
	}
	return best
}
