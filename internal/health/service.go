// Package health imports workouts and vitals recorded by other apps and devices and reconciles duplicates.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/repcoach/internal/contexthelpers"
	"github.com/myrjola/repcoach/internal/metrics"
	"github.com/myrjola/repcoach/internal/sqlite"
	"github.com/myrjola/repcoach/internal/stats"
	"github.com/myrjola/repcoach/internal/workout"
)

const (
	// reconcileWindow bounds how far back the scheduled job regroups records.
	reconcileWindow = 90 * 24 * time.Hour
	// summaryWindow covers the vitals SummarizeVitals looks at.
	summaryWindow = 28 * 24 * time.Hour
	// appActivityType is the activity type of workouts logged in the app.
	appActivityType = "strength_training"
)

// appWorkoutNamespace derives stable record IDs for workouts logged in the app.
var appWorkoutNamespace = uuid.MustParse("6f1c1f3e-2d0a-4c55-9a59-5c2b8f0e7d41") //nolint:gochecknoglobals // constant.

// AppWorkouts lists the workouts logged in the app. [workout.Service] implements it.
type AppWorkouts interface {
	History(ctx context.Context, since time.Time) ([]workout.Workout, error)
}

// Service imports and reconciles data recorded outside the app.
type Service struct {
	workouts   *sqliteWorkoutRepository
	vitals     *sqliteVitalRepository
	logger     *slog.Logger
	metrics    *metrics.Manager
	sources    Sources
	reconciler Reconciler
	app        AppWorkouts
	now        func() time.Time
}

// NewService creates a new health service.
func NewService(
	db *sqlite.Database,
	logger *slog.Logger,
	metricsManager *metrics.Manager,
	sources Sources,
	app AppWorkouts,
) *Service {
	return &Service{
		workouts:   &sqliteWorkoutRepository{db: db},
		vitals:     &sqliteVitalRepository{db: db},
		logger:     logger,
		metrics:    metricsManager,
		sources:    sources,
		reconciler: NewReconciler(sources),
		app:        app,
		now:        time.Now,
	}
}

// ImportWorkouts stores new records and reconciles duplicates. Records already imported are skipped.
// Nothing is stored when any record is invalid.
func (s *Service) ImportWorkouts(ctx context.Context, records []ExternalWorkout) (ImportResult, error) {
	for i, w := range records {
		if err := w.validate(); err != nil {
			return ImportResult{}, fmt.Errorf("record %d: %w", i, err)
		}
	}

	batch := make([]ExternalWorkout, len(records))
	for i, w := range records {
		w.ID = uuid.NewString()
		w.DuplicateOf = nil
		batch[i] = w
	}
	inserted, err := s.workouts.InsertAll(ctx, batch)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import workouts: %w", err)
	}

	result := ImportResult{Imported: 0, Skipped: 0}
	var from, to time.Time
	for i, ok := range inserted {
		if !ok {
			result.Skipped++
			continue
		}
		result.Imported++
		start := batch[i].StartedAt
		if from.IsZero() || start.Before(from) {
			from = start
		}
		if start.After(to) {
			to = start
		}
	}
	s.metrics.CounterImportedWorkouts.Add(float64(result.Imported))
	s.logger.LogAttrs(ctx, slog.LevelInfo, "imported external workouts",
		slog.Int("imported", result.Imported), slog.Int("skipped", result.Skipped))

	if result.Imported > 0 {
		if _, err = s.reconcileBetween(ctx, from, to); err != nil {
			return result, err
		}
	}
	return result, nil
}

// ListWorkouts returns the external workouts started since the given time that are not duplicates.
func (s *Service) ListWorkouts(ctx context.Context, since time.Time) ([]ExternalWorkout, error) {
	workouts, err := s.workouts.List(ctx, since, false)
	if err != nil {
		return nil, fmt.Errorf("list external workouts: %w", err)
	}
	return workouts, nil
}

// Reconcile regroups the records of the current profile started within the reconcile window, together with the
// workouts completed in the app, and persists which records are duplicates. It returns the number of records whose
// mark changed.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	now := s.now()
	return s.reconcileBetween(ctx, now.Add(-reconcileWindow), now)
}

// reconcileBetween regroups the records started within [from, to]. The span grows until no record outside it is
// within tolerance of a record inside, so groups crossing its edges are regrouped whole.
func (s *Service) reconcileBetween(ctx context.Context, from, to time.Time) (int, error) {
	tolerance := max(s.reconciler.Tolerance, 0)
	var stored, appRecords []ExternalWorkout
	for {
		var err error
		if stored, err = s.workouts.ListBetween(ctx, from.Add(-tolerance), to.Add(tolerance)); err != nil {
			return 0, fmt.Errorf("list external workouts: %w", err)
		}
		if appRecords, err = s.appRecords(ctx, from.Add(-tolerance), to.Add(tolerance)); err != nil {
			return 0, err
		}
		lo, hi := from, to
		for _, w := range slices.Concat(stored, appRecords) {
			if w.StartedAt.Before(lo) {
				lo = w.StartedAt
			}
			if w.StartedAt.After(hi) {
				hi = w.StartedAt
			}
		}
		if lo.Equal(from) && hi.Equal(to) {
			break
		}
		from, to = lo, hi
	}

	current := make(map[string]*string, len(stored))
	for _, w := range stored {
		current[w.ID] = w.DuplicateOf
	}

	marks := make(map[string]*string)
	newDuplicates := 0
	for _, g := range s.reconciler.Reconcile(slices.Concat(stored, appRecords)) {
		if previous, ok := current[g.Best.ID]; ok && previous != nil {
			marks[g.Best.ID] = nil
		}
		for _, d := range g.Duplicates {
			previous, ok := current[d.ID]
			if !ok || (previous != nil && *previous == g.Best.ID) {
				continue
			}
			if previous == nil {
				newDuplicates++
			}
			marks[d.ID] = new(g.Best.ID)
		}
	}

	if err := s.workouts.MarkDuplicates(ctx, marks); err != nil {
		return 0, fmt.Errorf("mark duplicates: %w", err)
	}
	s.metrics.CounterDuplicateWorkouts.Add(float64(newDuplicates))
	if len(marks) > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "reconciled external workouts",
			slog.Int("changed", len(marks)), slog.Int("new_duplicates", newDuplicates))
	}
	return len(marks), nil
}

// appRecords converts the workouts completed in the app and started within [from, to] to records of the app source.
func (s *Service) appRecords(ctx context.Context, from, to time.Time) ([]ExternalWorkout, error) {
	if s.app == nil {
		return nil, nil
	}
	history, err := s.app.History(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("list app workouts: %w", err)
	}
	profileID := contexthelpers.ProfileID(ctx)
	records := make([]ExternalWorkout, 0, len(history))
	for _, w := range history {
		if w.StartedAt == nil || w.CompletedAt == nil || w.StartedAt.Before(from) || w.StartedAt.After(to) {
			continue
		}
		records = append(records, ExternalWorkout{
			ID:              uuid.NewSHA1(appWorkoutNamespace, fmt.Appendf(nil, "%d/%d", profileID, w.ID)).String(),
			ActivityType:    appActivityType,
			SourceName:      s.sources.AppSource,
			StartedAt:       *w.StartedAt,
			DurationSeconds: int(w.CompletedAt.Sub(*w.StartedAt).Seconds()),
			AvgHeartRate:    nil,
			MaxHeartRate:    nil,
			ActiveCalories:  nil,
			DistanceMeters:  nil,
			DuplicateOf:     nil,
		})
	}
	return records, nil
}

// ReconcileAll reconciles the records of every profile that has imported workouts. A failing profile is logged and
// the rest are still reconciled.
func (s *Service) ReconcileAll(ctx context.Context) error {
	profileIDs, err := s.workouts.ListProfileIDs(ctx)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	var errs []error
	for _, id := range profileIDs {
		if _, err = s.Reconcile(contexthelpers.WithProfileID(ctx, id)); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "reconcile profile failed",
				slog.Int("profile_id", id), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("reconcile profile %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// ImportVitals stores new vital samples. Samples already imported are skipped.
// Nothing is stored when any sample is invalid.
func (s *Service) ImportVitals(ctx context.Context, samples []Vital) (ImportResult, error) {
	for i, v := range samples {
		if err := v.validate(); err != nil {
			return ImportResult{}, fmt.Errorf("sample %d: %w", i, err)
		}
	}
	result := ImportResult{Imported: 0, Skipped: 0}
	for _, v := range samples {
		inserted, err := s.vitals.Insert(ctx, v)
		if err != nil {
			return result, fmt.Errorf("import vital: %w", err)
		}
		if inserted {
			result.Imported++
		} else {
			result.Skipped++
		}
	}
	s.metrics.CounterImportedVitals.Add(float64(result.Imported))
	return result, nil
}

// ListVitals returns the samples of kind recorded since the given time. An empty kind lists all kinds.
func (s *Service) ListVitals(ctx context.Context, kind VitalKind, since time.Time) ([]Vital, error) {
	if kind != "" && !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown vital kind %q", ErrInvalidInput, kind)
	}
	vitals, err := s.vitals.List(ctx, kind, since)
	if err != nil {
		return nil, fmt.Errorf("list vitals: %w", err)
	}
	return vitals, nil
}

// SummarizeVitals compares the recent vitals of the current profile with their baseline.
func (s *Service) SummarizeVitals(ctx context.Context) ([]stats.VitalSummary, error) {
	now := s.now()
	vitals, err := s.vitals.List(ctx, "", now.Add(-summaryWindow))
	if err != nil {
		return nil, fmt.Errorf("list vitals: %w", err)
	}
	samples := make([]stats.VitalSample, 0, len(vitals))
	for _, v := range vitals {
		samples = append(samples, stats.VitalSample{Kind: string(v.Kind), RecordedAt: v.RecordedAt, Value: v.Value})
	}
	return stats.SummarizeVitals(samples, now), nil
}

// PruneVitals removes the samples of all profiles older than retention.
func (s *Service) PruneVitals(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.vitals.DeleteBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune vitals: %w", err)
	}
	s.metrics.CounterPrunedVitals.Add(float64(n))
	if n > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "pruned vitals", slog.Int64("deleted", n))
	}
	return n, nil
}
