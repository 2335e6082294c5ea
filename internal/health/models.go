package health

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput is returned for records that cannot be imported.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidSources is returned when the sources configuration cannot be used.
	ErrInvalidSources = errors.New("invalid sources configuration")
)

// ExternalWorkout is a workout recorded by another app or device.
type ExternalWorkout struct {
	ID              string    `json:"id"`
	ActivityType    string    `json:"activity_type"`
	SourceName      string    `json:"source_name"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds int       `json:"duration_seconds"`
	AvgHeartRate    *float64  `json:"avg_heart_rate,omitempty"`
	MaxHeartRate    *float64  `json:"max_heart_rate,omitempty"`
	ActiveCalories  *float64  `json:"active_calories,omitempty"`
	DistanceMeters  *float64  `json:"distance_meters,omitempty"`
	// DuplicateOf is the ID of the record that was kept in favour of this one.
	DuplicateOf *string `json:"duplicate_of,omitempty"`
}

// richness counts the optional measurements the record carries.
func (w ExternalWorkout) richness() int {
	n := 0
	for _, v := range []*float64{w.AvgHeartRate, w.MaxHeartRate, w.ActiveCalories, w.DistanceMeters} {
		if v != nil {
			n++
		}
	}
	return n
}

const (
	maxActivityTypeLength = 63
	maxSourceNameLength   = 127
)

func (w ExternalWorkout) validate() error {
	if w.ActivityType == "" || len(w.ActivityType) > maxActivityTypeLength {
		return fmt.Errorf("%w: activity type %q", ErrInvalidInput, w.ActivityType)
	}
	if w.SourceName == "" || len(w.SourceName) > maxSourceNameLength {
		return fmt.Errorf("%w: source name %q", ErrInvalidInput, w.SourceName)
	}
	if w.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidInput)
	}
	if w.DurationSeconds < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidInput)
	}
	for _, v := range []*float64{w.AvgHeartRate, w.MaxHeartRate, w.ActiveCalories, w.DistanceMeters} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: negative measurement", ErrInvalidInput)
		}
	}
	return nil
}

// VitalKind is the kind of a vital sample.
type VitalKind string

const (
	VitalHRV          VitalKind = "hrv_ms"
	VitalRestingHR    VitalKind = "resting_hr_bpm"
	VitalSleepMinutes VitalKind = "sleep_minutes"
)

// Valid reports whether k is a known kind.
func (k VitalKind) Valid() bool {
	switch k {
	case VitalHRV, VitalRestingHR, VitalSleepMinutes:
		return true
	}
	return false
}

// Vital is one sample of a vital sign.
type Vital struct {
	Kind       VitalKind `json:"kind"`
	RecordedAt time.Time `json:"recorded_at"`
	SourceName string    `json:"source_name"`
	Value      float64   `json:"value"`
}

func (v Vital) validate() error {
	if !v.Kind.Valid() {
		return fmt.Errorf("%w: unknown vital kind %q", ErrInvalidInput, v.Kind)
	}
	if v.SourceName == "" || len(v.SourceName) > maxSourceNameLength {
		return fmt.Errorf("%w: source name %q", ErrInvalidInput, v.SourceName)
	}
	if v.RecordedAt.IsZero() {
		return fmt.Errorf("%w: missing recording time", ErrInvalidInput)
	}
	return nil
}

// ImportResult tells how many records of an import were new.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
