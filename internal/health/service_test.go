package health_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/repcoach/internal/contexthelpers"
	"github.com/myrjola/repcoach/internal/health"
	"github.com/myrjola/repcoach/internal/metrics"
	"github.com/myrjola/repcoach/internal/sqlite"
	"github.com/myrjola/repcoach/internal/testhelpers"
	"github.com/myrjola/repcoach/internal/workout"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type testEnv struct {
	ctx      context.Context
	health   *health.Service
	workouts *workout.Service
	metrics  *metrics.Manager
	db       *sqlite.Database
}

func newTestEnv(ctx context.Context, t *testing.T) testEnv {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(ctx, ":memory:", logger)
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	workouts := workout.NewService(db, logger, "")
	profileID, err := workouts.CreateProfile(ctx)
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	m := metrics.NewTestManager()
	return testEnv{
		ctx:      contexthelpers.WithProfileID(ctx, profileID),
		health:   health.NewService(db, logger, m, health.DefaultSources(), workouts),
		workouts: workouts,
		metrics:  m,
		db:       db,
	}
}

func externalWorkout(source string, startedAt time.Time, heartRate *float64) health.ExternalWorkout {
	return health.ExternalWorkout{
		ID:              "",
		ActivityType:    "strength_training",
		SourceName:      source,
		StartedAt:       startedAt,
		DurationSeconds: 3000,
		AvgHeartRate:    heartRate,
		MaxHeartRate:    nil,
		ActiveCalories:  nil,
		DistanceMeters:  nil,
		DuplicateOf:     nil,
	}
}

func sources(workouts []health.ExternalWorkout) []string {
	out := make([]string, 0, len(workouts))
	for _, w := range workouts {
		out = append(out, w.SourceName)
	}
	return out
}

func TestService_ImportWorkouts(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t.Context(), t)
	start := time.Now().Add(-24 * time.Hour).Truncate(time.Millisecond)

	records := []health.ExternalWorkout{
		externalWorkout("Strava", start, new(130.0)),
		externalWorkout("Apple Watch", start.Add(2*time.Minute), nil),
		externalWorkout("Strava", start.Add(6*time.Hour), nil),
	}
	result, err := env.health.ImportWorkouts(env.ctx, records)
	if err != nil {
		t.Fatalf("ImportWorkouts: %v", err)
	}
	if diff := cmp.Diff(health.ImportResult{Imported: 3, Skipped: 0}, result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	listed, err := env.health.ListWorkouts(env.ctx, start.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListWorkouts: %v", err)
	}
	if diff := cmp.Diff([]string{"Apple Watch", "Strava"}, sources(listed)); diff != "" {
		t.Errorf("listed sources mismatch (-want +got):\n%s", diff)
	}
	if !listed[0].StartedAt.Equal(start.Add(2 * time.Minute)) {
		t.Errorf("started at = %v, want %v", listed[0].StartedAt, start.Add(2*time.Minute))
	}

	// Importing the same records again changes nothing.
	if result, err = env.health.ImportWorkouts(env.ctx, records); err != nil {
		t.Fatalf("ImportWorkouts again: %v", err)
	}
	if diff := cmp.Diff(health.ImportResult{Imported: 0, Skipped: 3}, result); diff != "" {
		t.Errorf("second result mismatch (-want +got):\n%s", diff)
	}

	if got := testutil.ToFloat64(env.metrics.CounterImportedWorkouts); got != 3 {
		t.Errorf("imported counter = %v, want 3", got)
	}
	if got := testutil.ToFloat64(env.metrics.CounterDuplicateWorkouts); got != 1 {
		t.Errorf("duplicate counter = %v, want 1", got)
	}
}

func TestService_ImportWorkouts_Invalid(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t.Context(), t)
	start := time.Now().Add(-time.Hour)

	tests := []struct {
		name   string
		modify func(w *health.ExternalWorkout)
	}{
		{"missing source", func(w *health.ExternalWorkout) { w.SourceName = "" }},
		{"missing activity type", func(w *health.ExternalWorkout) { w.ActivityType = "" }},
		{"missing start", func(w *health.ExternalWorkout) { w.StartedAt = time.Time{} }},
		{"negative duration", func(w *health.ExternalWorkout) { w.DurationSeconds = -1 }},
		{"negative calories", func(w *health.ExternalWorkout) { w.ActiveCalories = new(-5.0) }},
	}
	for _, tt := range tests {
		invalid := externalWorkout("Garmin Connect", start, nil)
		tt.modify(&invalid)
		valid := externalWorkout("Garmin Connect", start.Add(-time.Hour), nil)
		_, err := env.health.ImportWorkouts(env.ctx, []health.ExternalWorkout{valid, invalid})
		if !errors.Is(err, health.ErrInvalidInput) {
			t.Errorf("%s: error = %v, want ErrInvalidInput", tt.name, err)
		}
	}

	listed, err := env.health.ListWorkouts(env.ctx, time.Time{})
	if err != nil {
		t.Fatalf("ListWorkouts: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("invalid batches stored %d records", len(listed))
	}
}

func TestService_AppWorkoutsWinReconciliation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t.Context(), t)

	w, err := env.workouts.AddAdHocWorkout(env.ctx, "", []int{17})
	if err != nil {
		t.Fatalf("AddAdHocWorkout: %v", err)
	}
	if err = env.workouts.StartWorkout(env.ctx, w.ID); err != nil {
		t.Fatalf("StartWorkout: %v", err)
	}
	if err = env.workouts.CompleteWorkout(env.ctx, w.ID); err != nil {
		t.Fatalf("CompleteWorkout: %v", err)
	}

	watch := externalWorkout("Apple Watch", time.Now().Add(-time.Minute), new(120.0))
	if _, err = env.health.ImportWorkouts(env.ctx, []health.ExternalWorkout{watch}); err != nil {
		t.Fatalf("ImportWorkouts: %v", err)
	}

	listed, err := env.health.ListWorkouts(env.ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListWorkouts: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("watch record listed although the app workout covers it: %+v", listed)
	}

	// Reconciling again is a no-op.
	changed, err := env.health.Reconcile(env.ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if changed != 0 {
		t.Errorf("second reconciliation changed %d records", changed)
	}
}

// duplicateMarks maps the source of every stored record to the source of the record it duplicates. Records that
// are kept map to "" and duplicates of workouts logged in the app map to the app source.
func duplicateMarks(t *testing.T, env testEnv) map[string]string {
	t.Helper()
	rows, err := env.db.ReadOnly.QueryContext(env.ctx, `
		SELECT w.source_name,
		       CASE WHEN w.duplicate_of IS NULL THEN '' ELSE COALESCE(b.source_name, ?) END
		FROM external_workouts w
		LEFT JOIN external_workouts b ON b.id = w.duplicate_of
		WHERE w.profile_id = ?`,
		health.DefaultAppSource, contexthelpers.ProfileID(env.ctx))
	if err != nil {
		t.Fatalf("query duplicate marks: %v", err)
	}
	defer func() { _ = rows.Close() }()

	marks := map[string]string{}
	for rows.Next() {
		var source, duplicateOf string
		if err = rows.Scan(&source, &duplicateOf); err != nil {
			t.Fatalf("scan duplicate mark: %v", err)
		}
		marks[source] = duplicateOf
	}
	if err = rows.Err(); err != nil {
		t.Fatalf("iterate duplicate marks: %v", err)
	}
	return marks
}

func completeAppWorkout(t *testing.T, env testEnv) {
	t.Helper()
	w, err := env.workouts.AddAdHocWorkout(env.ctx, "", []int{17})
	if err != nil {
		t.Fatalf("AddAdHocWorkout: %v", err)
	}
	if err = env.workouts.StartWorkout(env.ctx, w.ID); err != nil {
		t.Fatalf("StartWorkout: %v", err)
	}
	if err = env.workouts.CompleteWorkout(env.ctx, w.ID); err != nil {
		t.Fatalf("CompleteWorkout: %v", err)
	}
}

func TestService_ImportWorkouts_Remarks(t *testing.T) {
	t.Parallel()
	base := time.Now().Add(-2 * time.Minute).Truncate(time.Millisecond)
	at := func(source string, offset time.Duration) health.ExternalWorkout {
		return externalWorkout(source, base.Add(offset), nil)
	}

	tests := []struct {
		name       string
		appWorkout bool
		imports    [][]health.ExternalWorkout
		wantListed []string
		wantMarks  map[string]string
	}{
		{
			name: "later import displaces the best record",
			imports: [][]health.ExternalWorkout{
				{at("Strava", 0), at("Garmin Connect", time.Minute)},
				{at("Apple Watch", 2*time.Minute)},
			},
			wantListed: []string{"Apple Watch"},
			wantMarks:  map[string]string{"Strava": "Apple Watch", "Garmin Connect": "Apple Watch", "Apple Watch": ""},
		},
		{
			name: "group grows past the imported records",
			imports: [][]health.ExternalWorkout{
				{at("Strava", 0), at("Garmin Connect", 4*time.Minute)},
				{at("Apple Watch", 8*time.Minute)},
			},
			wantListed: []string{"Apple Watch"},
			wantMarks:  map[string]string{"Strava": "Apple Watch", "Garmin Connect": "Apple Watch", "Apple Watch": ""},
		},
		{
			name: "less trusted import joins as duplicate",
			imports: [][]health.ExternalWorkout{
				{at("Apple Watch", 0)},
				{at("Strava", time.Minute)},
			},
			wantListed: []string{"Apple Watch"},
			wantMarks:  map[string]string{"Apple Watch": "", "Strava": "Apple Watch"},
		},
		{
			name:       "app workout is the best record",
			appWorkout: true,
			imports: [][]health.ExternalWorkout{
				{at("Apple Watch", time.Minute)},
				{at("Strava", 90*time.Second)},
			},
			wantListed: []string{},
			wantMarks:  map[string]string{"Apple Watch": health.DefaultAppSource, "Strava": health.DefaultAppSource},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t.Context(), t)
			if tt.appWorkout {
				completeAppWorkout(t, env)
			}
			for _, batch := range tt.imports {
				if _, err := env.health.ImportWorkouts(env.ctx, batch); err != nil {
					t.Fatalf("ImportWorkouts: %v", err)
				}
			}

			listed, err := env.health.ListWorkouts(env.ctx, time.Time{})
			if err != nil {
				t.Fatalf("ListWorkouts: %v", err)
			}
			if diff := cmp.Diff(tt.wantListed, sources(listed)); diff != "" {
				t.Errorf("listed sources mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantMarks, duplicateMarks(t, env)); diff != "" {
				t.Errorf("duplicate marks mismatch (-want +got):\n%s", diff)
			}

			changed, err := env.health.Reconcile(env.ctx)
			if err != nil {
				t.Fatalf("Reconcile: %v", err)
			}
			if changed != 0 {
				t.Errorf("reconciling again changed %d records", changed)
			}
		})
	}
}

func TestService_ImportWorkouts_OldHistory(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t.Context(), t)
	start := time.Now().Add(-120 * 24 * time.Hour).Truncate(time.Millisecond)

	if _, err := env.health.ImportWorkouts(env.ctx, []health.ExternalWorkout{
		externalWorkout("Strava", start, nil),
	}); err != nil {
		t.Fatalf("ImportWorkouts: %v", err)
	}
	if _, err := env.health.ImportWorkouts(env.ctx, []health.ExternalWorkout{
		externalWorkout("Garmin Connect", start.Add(time.Minute), nil),
		externalWorkout("Polar Flow", start.Add(-200*24*time.Hour), nil),
		externalWorkout("Strava", start.Add(-200*24*time.Hour+time.Minute), nil),
	}); err != nil {
		t.Fatalf("ImportWorkouts: %v", err)
	}

	listed, err := env.health.ListWorkouts(env.ctx, time.Time{})
	if err != nil {
		t.Fatalf("ListWorkouts: %v", err)
	}
	if diff := cmp.Diff([]string{"Polar Flow", "Garmin Connect"}, sources(listed)); diff != "" {
		t.Errorf("listed sources mismatch (-want +got):\n%s", diff)
	}

	// The scheduled reconciliation only looks at recent records and leaves older marks alone.
	changed, err := env.health.Reconcile(env.ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if changed != 0 {
		t.Errorf("Reconcile changed %d records", changed)
	}
}

var errHistoryUnavailable = errors.New("history unavailable")

// brokenHistory fails to list the app workouts of one profile.
type brokenHistory struct {
	profileID int
}

func (b brokenHistory) History(ctx context.Context, _ time.Time) ([]workout.Workout, error) {
	if contexthelpers.ProfileID(ctx) == b.profileID {
		return nil, errHistoryUnavailable
	}
	return nil, nil
}

func TestService_ReconcileAll_ContinuesAfterFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t.Context(), t)
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	otherProfileID, err := env.workouts.CreateProfile(t.Context())
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	other := contexthelpers.WithProfileID(t.Context(), otherProfileID)

	// Without tolerance nothing is grouped on import, so both profiles are left for ReconcileAll.
	exact := health.DefaultSources()
	exact.Tolerance = 0
	importer := health.NewService(env.db, logger, metrics.NewTestManager(), exact, nil)
	start := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	for _, ctx := range []context.Context{env.ctx, other} {
		if _, err = importer.ImportWorkouts(ctx, []health.ExternalWorkout{
			externalWorkout("Strava", start, nil),
			externalWorkout("Garmin Connect", start.Add(time.Minute), nil),
		}); err != nil {
			t.Fatalf("ImportWorkouts: %v", err)
		}
	}

	svc := health.NewService(env.db, logger, metrics.NewTestManager(), health.DefaultSources(),
		brokenHistory{profileID: contexthelpers.ProfileID(env.ctx)})
	if err = svc.ReconcileAll(t.Context()); !errors.Is(err, errHistoryUnavailable) {
		t.Errorf("ReconcileAll error = %v, want errHistoryUnavailable", err)
	}

	listed, err := svc.ListWorkouts(other, time.Time{})
	if err != nil {
		t.Fatalf("ListWorkouts: %v", err)
	}
	if diff := cmp.Diff([]string{"Garmin Connect"}, sources(listed)); diff != "" {
		t.Errorf("profile after the failing one was not reconciled (-want +got):\n%s", diff)
	}
}

func TestService_Vitals(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t.Context(), t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	samples := []health.Vital{
		{Kind: health.VitalHRV, RecordedAt: now.Add(-2 * 24 * time.Hour), SourceName: "Apple Watch", Value: 60},
		{Kind: health.VitalHRV, RecordedAt: now.Add(-10 * 24 * time.Hour), SourceName: "Apple Watch", Value: 40},
		{Kind: health.VitalRestingHR, RecordedAt: now.Add(-24 * time.Hour), SourceName: "Apple Watch", Value: 52},
		{Kind: health.VitalSleepMinutes, RecordedAt: now.Add(-40 * 24 * time.Hour), SourceName: "Oura", Value: 420},
	}
	result, err := env.health.ImportVitals(env.ctx, samples)
	if err != nil {
		t.Fatalf("ImportVitals: %v", err)
	}
	if result.Imported != 4 {
		t.Errorf("imported %d samples, want 4", result.Imported)
	}
	if result, err = env.health.ImportVitals(env.ctx, samples[:1]); err != nil {
		t.Fatalf("ImportVitals again: %v", err)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped %d samples, want 1", result.Skipped)
	}

	invalid := health.Vital{Kind: "steps", RecordedAt: now, SourceName: "Apple Watch", Value: 1000}
	if _, err = env.health.ImportVitals(env.ctx, []health.Vital{invalid}); !errors.Is(err, health.ErrInvalidInput) {
		t.Errorf("ImportVitals(steps) error = %v, want ErrInvalidInput", err)
	}
	if _, err = env.health.ListVitals(env.ctx, "steps", time.Time{}); !errors.Is(err, health.ErrInvalidInput) {
		t.Errorf("ListVitals(steps) error = %v, want ErrInvalidInput", err)
	}

	hrv, err := env.health.ListVitals(env.ctx, health.VitalHRV, time.Time{})
	if err != nil {
		t.Fatalf("ListVitals: %v", err)
	}
	if diff := cmp.Diff([]health.Vital{samples[1], samples[0]}, hrv); diff != "" {
		t.Errorf("hrv samples mismatch (-want +got):\n%s", diff)
	}

	summaries, err := env.health.SummarizeVitals(env.ctx)
	if err != nil {
		t.Fatalf("SummarizeVitals: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want hrv and resting heart rate", len(summaries))
	}
	if s := summaries[0]; s.Kind != "hrv_ms" || s.RecentMean == nil || *s.RecentMean != 60 ||
		s.Baseline == nil || *s.Baseline != 50 {
		t.Errorf("hrv summary = %+v", s)
	}

	pruned, err := env.health.PruneVitals(env.ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("PruneVitals: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned %d samples, want 1", pruned)
	}
	all, err := env.health.ListVitals(env.ctx, "", time.Time{})
	if err != nil {
		t.Fatalf("ListVitals: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d samples after pruning, want 3", len(all))
	}
}
