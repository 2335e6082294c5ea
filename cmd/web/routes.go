package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	var (
		shared    = app.routeMiddleware
		noSession = func(next http.Handler) http.Handler {
			return shared(timeout(defaultTimeout)(next))
		}
		session = func(next http.Handler) http.Handler {
			return shared(app.sessionManager.LoadAndSave(app.profile(timeout(defaultTimeout)(next))))
		}
		slowSession = func(next http.Handler) http.Handler {
			return shared(app.sessionManager.LoadAndSave(app.profile(timeout(slowTimeout)(next))))
		}
	)

	mux.Handle("GET /api/healthy", noSession(http.HandlerFunc(app.healthy)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{})) //nolint:exhaustruct // defaults.

	mux.Handle("GET /api/preferences", session(http.HandlerFunc(app.preferencesGET)))
	mux.Handle("PUT /api/preferences", session(http.HandlerFunc(app.preferencesPUT)))

	mux.Handle("POST /api/plans", session(http.HandlerFunc(app.plansPOST)))
	mux.Handle("GET /api/plans/active", session(http.HandlerFunc(app.activePlanGET)))

	mux.Handle("GET /api/workouts", session(http.HandlerFunc(app.workoutsGET)))
	mux.Handle("POST /api/workouts", session(http.HandlerFunc(app.workoutsPOST)))
	mux.Handle("GET /api/workouts/{id}", session(http.HandlerFunc(app.workoutGET)))
	mux.Handle("POST /api/workouts/{id}/start", session(http.HandlerFunc(app.workoutStartPOST)))
	mux.Handle("POST /api/workouts/{id}/complete", session(http.HandlerFunc(app.workoutCompletePOST)))
	mux.Handle("POST /api/workouts/{id}/feedback/{difficulty}", session(http.HandlerFunc(app.workoutFeedbackPOST)))
	mux.Handle("PUT /api/workouts/{id}/exercises/{movementID}/sets/{setIndex}",
		session(http.HandlerFunc(app.exerciseSetPUT)))
	mux.Handle("POST /api/workouts/{id}/exercises/{movementID}/swap", session(http.HandlerFunc(app.exerciseSwapPOST)))

	mux.Handle("GET /api/movements", session(http.HandlerFunc(app.movementsGET)))
	mux.Handle("GET /api/movements/{id}", session(http.HandlerFunc(app.movementGET)))
	mux.Handle("PUT /api/movements/{id}", session(http.HandlerFunc(app.movementPUT)))
	mux.Handle("POST /api/movements/generate", slowSession(http.HandlerFunc(app.movementGeneratePOST)))
	mux.Handle("GET /api/muscle-groups", session(http.HandlerFunc(app.muscleGroupsGET)))

	mux.Handle("GET /api/stats/muscles", session(http.HandlerFunc(app.statsMusclesGET)))
	mux.Handle("GET /api/stats/volume", session(http.HandlerFunc(app.statsVolumeGET)))
	mux.Handle("GET /api/stats/one-rep-max/{movementID}", session(http.HandlerFunc(app.statsOneRepMaxGET)))

	mux.Handle("POST /api/health/workouts", session(http.HandlerFunc(app.healthWorkoutsPOST)))
	mux.Handle("GET /api/health/workouts", session(http.HandlerFunc(app.healthWorkoutsGET)))
	mux.Handle("POST /api/health/vitals", session(http.HandlerFunc(app.healthVitalsPOST)))
	mux.Handle("GET /api/health/vitals", session(http.HandlerFunc(app.healthVitalsGET)))
	mux.Handle("GET /api/health/vitals/summary", session(http.HandlerFunc(app.healthVitalsSummaryGET)))

	mux.Handle("GET /api/ui-flags", session(http.HandlerFunc(app.uiFlagsGET)))
	mux.Handle("PUT /api/ui-flags/{name}", session(http.HandlerFunc(app.uiFlagPUT)))

	mux.Handle("/", noSession(http.HandlerFunc(app.notFound)))

	return mux
}

// routeMiddleware wraps every route. Requests recovered from a panic are counted as 500s.
func (app *application) routeMiddleware(next http.Handler) http.Handler {
	return app.logAndTraceRequest(app.requestMetrics(app.recoverPanic(secureHeaders(
		app.crossOriginProtection(noCache(next))))))
}
