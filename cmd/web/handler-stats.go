package main

import (
	"net/http"

	"github.com/myrjola/repcoach/internal/stats"
	"github.com/myrjola/repcoach/internal/workout"
)

// history loads the completed workouts the statistics are computed from.
func (app *application) history(r *http.Request) ([]workout.Workout, error) {
	since, err := sinceQuery(r)
	if err != nil {
		return nil, err
	}
	return app.workoutService.History(r.Context(), since) //nolint:wrapcheck // already wrapped by the service.
}

func (app *application) statsMusclesGET(w http.ResponseWriter, r *http.Request) {
	period, err := stats.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	history, err := app.history(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, stats.MuscleSetCounts(history, period))
}

func (app *application) statsVolumeGET(w http.ResponseWriter, r *http.Request) {
	history, err := app.history(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, stats.WeeklyVolume(history))
}

func (app *application) statsOneRepMaxGET(w http.ResponseWriter, r *http.Request) {
	movementID, err := intPathValue(r, "movementID")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if _, err = app.workoutService.GetMovement(r.Context(), movementID); err != nil {
		app.handleError(w, r, err)
		return
	}
	history, err := app.history(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, stats.OneRepMaxSeries(history, movementID))
}
