package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/myrjola/repcoach/internal/e2etest"
	"github.com/myrjola/repcoach/internal/health"
	"github.com/myrjola/repcoach/internal/logging"
	"github.com/myrjola/repcoach/internal/testhelpers"
	"github.com/myrjola/repcoach/internal/workout"
	"golang.org/x/sync/errgroup"
)

const (
	numProfiles             = 20
	scenarioTimeout         = 30 * time.Second
	maxConcurrentOperations = 10
	successRateThreshold    = 95.0
	expectedArgsCount       = 2
	percentageMultiplier    = 100
	importedWorkouts        = 20
)

// ProfileScenario drives one anonymous profile through a training week and a health import.
func ProfileScenario(ctx context.Context, client *e2etest.Client, faker *gofakeit.Faker) error {
	prefs := workout.DefaultPreferences()
	prefs.Equipment = []workout.Equipment{workout.EquipmentBarbell, workout.EquipmentDumbbell}
	prefs.DaysPerWeek = faker.IntRange(workout.MinDaysPerWeek, workout.MaxDaysPerWeek)
	if err := client.JSON(ctx, http.MethodPut, "/api/preferences", prefs, nil); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}

	var plan workout.Plan
	if err := client.JSON(ctx, http.MethodPost, "/api/plans", nil, &plan); err != nil {
		return fmt.Errorf("generate plan: %w", err)
	}
	for _, wo := range plan.Workouts[:prefs.DaysPerWeek] {
		if err := logWorkout(ctx, client, faker, wo); err != nil {
			return fmt.Errorf("log workout %d: %w", wo.ID, err)
		}
	}

	records := make([]health.ExternalWorkout, 0, importedWorkouts)
	end := time.Now()
	for range importedWorkouts {
		records = append(records, health.ExternalWorkout{
			ID:              "",
			ActivityType:    faker.RandomString([]string{"running", "cycling", "strength_training"}),
			SourceName:      faker.RandomString([]string{"Apple Watch", "Garmin Connect", "Strava"}),
			StartedAt:       faker.DateRange(end.AddDate(0, -1, 0), end).UTC().Truncate(time.Minute),
			DurationSeconds: faker.IntRange(600, 7200),         //nolint:mnd // 10 minutes to 2 hours.
			AvgHeartRate:    new(faker.Float64Range(100, 170)), //nolint:mnd // plausible heart rate.
			MaxHeartRate:    nil,
			ActiveCalories:  nil,
			DistanceMeters:  nil,
			DuplicateOf:     nil,
		})
	}
	if err := client.JSON(ctx, http.MethodPost, "/api/health/workouts", records, nil); err != nil {
		return fmt.Errorf("import health workouts: %w", err)
	}

	if err := client.JSON(ctx, http.MethodGet, "/api/stats/muscles?period=week", nil, nil); err != nil {
		return fmt.Errorf("get muscle stats: %w", err)
	}
	return nil
}

func logWorkout(ctx context.Context, client *e2etest.Client, faker *gofakeit.Faker, wo workout.Workout) error {
	base := fmt.Sprintf("/api/workouts/%d", wo.ID)
	if err := client.JSON(ctx, http.MethodPost, base+"/start", nil, nil); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	for _, ex := range wo.Exercises {
		for i, set := range ex.Sets {
			weight := math.Round(faker.Float64Range(20, 100)) //nolint:mnd // plausible working weights.
			if set.TargetWeightKg != nil {
				weight = *set.TargetWeightKg
			}
			update := workout.SetUpdate{
				CompletedReps:     new(max(1, set.TargetReps-faker.IntRange(0, 2))), //nolint:mnd // missed reps.
				CompletedWeightKg: &weight,
			}
			path := fmt.Sprintf("%s/exercises/%d/sets/%d", base, ex.Movement.ID, i)
			if err := client.JSON(ctx, http.MethodPut, path, update, nil); err != nil {
				return fmt.Errorf("update set: %w", err)
			}
		}
	}
	difficulty := faker.IntRange(workout.MinDifficulty, workout.MaxDifficulty)
	if err := client.JSON(ctx, http.MethodPost, fmt.Sprintf("%s/feedback/%d", base, difficulty), nil, nil); err != nil {
		return fmt.Errorf("feedback: %w", err)
	}
	if err := client.JSON(ctx, http.MethodPost, base+"/complete", nil, nil); err != nil {
		return fmt.Errorf("complete: %w", err)
	}
	return nil
}

// RunLoadTest runs the scenario for numProfiles profiles concurrently.
func RunLoadTest(ctx context.Context, url string, logger *slog.Logger) error {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_profiles", numProfiles))

	var successCount, failureCount int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)

	for i := range numProfiles {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()

			client, err := e2etest.NewClient(url)
			if err != nil {
				return fmt.Errorf("new client: %w", err)
			}
			if err = ProfileScenario(scenarioCtx, client, gofakeit.New(int64(i))); err != nil {
				atomic.AddInt64(&failureCount, 1)
				// Failures are counted, the other scenarios keep going.
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.Int("scenario", i), slog.Any("error", err))
				return nil
			}
			atomic.AddInt64(&successCount, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount) / float64(numProfiles) * percentageMultiplier
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount),
		slog.Int64("failed", failureCount),
		slog.Float64("success_rate", successRate))

	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != expectedArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	client, err := e2etest.NewClient(url)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}

	if err = RunLoadTest(ctx, url, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully",
		slog.Duration("total_duration", time.Since(start)))
}
