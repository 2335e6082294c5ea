package main

import (
	"fmt"
	"net/http"
	"time"
)

type planRequest struct {
	// StartDate is YYYY-MM-DD. The plan starts on the first Monday on or after it, today when empty.
	StartDate string `json:"start_date"`
}

func (app *application) plansPOST(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &req); err != nil {
			app.handleError(w, r, err)
			return
		}
	}
	start := time.Now().UTC()
	if req.StartDate != "" {
		var err error
		if start, err = time.Parse(dateLayout, req.StartDate); err != nil {
			app.handleError(w, r, fmt.Errorf("%w: start date %q: %w", errBadRequest, req.StartDate, err))
			return
		}
	}
	plan, err := app.workoutService.GeneratePlan(r.Context(), start)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, plan)
}

func (app *application) activePlanGET(w http.ResponseWriter, r *http.Request) {
	plan, err := app.workoutService.ActivePlan(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, plan)
}
