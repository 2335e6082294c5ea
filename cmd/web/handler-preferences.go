package main

import (
	"net/http"

	"github.com/myrjola/repcoach/internal/workout"
)

func (app *application) preferencesGET(w http.ResponseWriter, r *http.Request) {
	prefs, err := app.workoutService.GetPreferences(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, prefs)
}

func (app *application) preferencesPUT(w http.ResponseWriter, r *http.Request) {
	var prefs workout.Preferences
	if err := readJSON(w, r, &prefs); err != nil {
		app.handleError(w, r, err)
		return
	}
	if err := app.workoutService.SavePreferences(r.Context(), prefs); err != nil {
		app.handleError(w, r, err)
		return
	}
	app.preferencesGET(w, r)
}
