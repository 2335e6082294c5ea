package main

import (
	"net/http"
	"strings"

	"github.com/myrjola/repcoach/internal/workout"
)

func (app *application) movementsGET(w http.ResponseWriter, r *http.Request) {
	var equipment []workout.Equipment
	if raw := r.URL.Query().Get("equipment"); raw != "" {
		for e := range strings.SplitSeq(raw, ",") {
			equipment = append(equipment, workout.Equipment(strings.TrimSpace(e)))
		}
	}
	movements, err := app.workoutService.ListMovements(r.Context(), equipment)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, movements)
}

type movementResponse struct {
	workout.Movement

	DescriptionHTML string `json:"description_html"`
}

func (app *application) movementGET(w http.ResponseWriter, r *http.Request) {
	id, err := intPathValue(r, "id")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	m, err := app.workoutService.GetMovement(r.Context(), id)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	html, err := workout.RenderDescription(m)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, movementResponse{Movement: m, DescriptionHTML: html})
}

func (app *application) movementPUT(w http.ResponseWriter, r *http.Request) {
	id, err := intPathValue(r, "id")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	var update workout.Movement
	if err = readJSON(w, r, &update); err != nil {
		app.handleError(w, r, err)
		return
	}
	m, err := app.workoutService.UpdateMovement(r.Context(), id, update)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, m)
}

type generateMovementRequest struct {
	Name string `json:"name"`
}

func (app *application) movementGeneratePOST(w http.ResponseWriter, r *http.Request) {
	var req generateMovementRequest
	if err := readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	m, err := app.workoutService.GenerateMovement(r.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, m)
}

func (app *application) muscleGroupsGET(w http.ResponseWriter, r *http.Request) {
	groups, err := app.workoutService.ListMuscleGroups(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, groups)
}
