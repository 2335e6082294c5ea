package main

import (
	"net/http"

	"github.com/myrjola/repcoach/internal/health"
)

func (app *application) healthWorkoutsPOST(w http.ResponseWriter, r *http.Request) {
	var records []health.ExternalWorkout
	if err := readJSON(w, r, &records); err != nil {
		app.handleError(w, r, err)
		return
	}
	result, err := app.healthService.ImportWorkouts(r.Context(), records)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, result)
}

func (app *application) healthWorkoutsGET(w http.ResponseWriter, r *http.Request) {
	since, err := sinceQuery(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	records, err := app.healthService.ListWorkouts(r.Context(), since)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, records)
}

func (app *application) healthVitalsPOST(w http.ResponseWriter, r *http.Request) {
	var samples []health.Vital
	if err := readJSON(w, r, &samples); err != nil {
		app.handleError(w, r, err)
		return
	}
	result, err := app.healthService.ImportVitals(r.Context(), samples)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, result)
}

func (app *application) healthVitalsGET(w http.ResponseWriter, r *http.Request) {
	since, err := sinceQuery(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	samples, err := app.healthService.ListVitals(r.Context(), health.VitalKind(r.URL.Query().Get("kind")), since)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, samples)
}

func (app *application) healthVitalsSummaryGET(w http.ResponseWriter, r *http.Request) {
	summary, err := app.healthService.SummarizeVitals(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, summary)
}
