package main

import (
	"net/http"

	"github.com/myrjola/repcoach/internal/workout"
)

func (app *application) workoutsGET(w http.ResponseWriter, r *http.Request) {
	since, err := sinceQuery(r)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	history, err := app.workoutService.History(r.Context(), since)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, history)
}

type adHocWorkoutRequest struct {
	Name        string `json:"name"`
	MovementIDs []int  `json:"movement_ids"`
}

func (app *application) workoutsPOST(w http.ResponseWriter, r *http.Request) {
	var req adHocWorkoutRequest
	if err := readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	created, err := app.workoutService.AddAdHocWorkout(r.Context(), req.Name, req.MovementIDs)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, created)
}

func (app *application) workoutGET(w http.ResponseWriter, r *http.Request) {
	id, err := intPathValue(r, "id")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.respondWithWorkout(w, r, id)
}

// respondWithWorkout writes the current state of workout id.
func (app *application) respondWithWorkout(w http.ResponseWriter, r *http.Request, id int) {
	wo, err := app.workoutService.GetWorkout(r.Context(), id)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, wo)
}

func (app *application) workoutStartPOST(w http.ResponseWriter, r *http.Request) {
	id, err := intPathValue(r, "id")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if err = app.workoutService.StartWorkout(r.Context(), id); err != nil {
		app.handleError(w, r, err)
		return
	}
	app.respondWithWorkout(w, r, id)
}

func (app *application) workoutCompletePOST(w http.ResponseWriter, r *http.Request) {
	id, err := intPathValue(r, "id")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if err = app.workoutService.CompleteWorkout(r.Context(), id); err != nil {
		app.handleError(w, r, err)
		return
	}
	app.respondWithWorkout(w, r, id)
}

func (app *application) workoutFeedbackPOST(w http.ResponseWriter, r *http.Request) {
	id, err := intPathValue(r, "id")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	difficulty, err := intPathValue(r, "difficulty")
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	if err = app.workoutService.SaveFeedback(r.Context(), id, difficulty); err != nil {
		app.handleError(w, r, err)
		return
	}
	app.respondWithWorkout(w, r, id)
}

func (app *application) exerciseSetPUT(w http.ResponseWriter, r *http.Request) {
	var (
		id, movementID, setIndex int
		err                      error
	)
	if id, err = intPathValue(r, "id"); err != nil {
		app.handleError(w, r, err)
		return
	}
	if movementID, err = intPathValue(r, "movementID"); err != nil {
		app.handleError(w, r, err)
		return
	}
	if setIndex, err = intPathValue(r, "setIndex"); err != nil {
		app.handleError(w, r, err)
		return
	}
	var update workout.SetUpdate
	if err = readJSON(w, r, &update); err != nil {
		app.handleError(w, r, err)
		return
	}
	if err = app.workoutService.UpdateSet(r.Context(), id, movementID, setIndex, update); err != nil {
		app.handleError(w, r, err)
		return
	}
	app.respondWithWorkout(w, r, id)
}

type swapRequest struct {
	NewMovementID int `json:"new_movement_id"`
}

func (app *application) exerciseSwapPOST(w http.ResponseWriter, r *http.Request) {
	var (
		id, movementID int
		err            error
	)
	if id, err = intPathValue(r, "id"); err != nil {
		app.handleError(w, r, err)
		return
	}
	if movementID, err = intPathValue(r, "movementID"); err != nil {
		app.handleError(w, r, err)
		return
	}
	var req swapRequest
	if err = readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	if err = app.workoutService.SwapMovement(r.Context(), id, movementID, req.NewMovementID); err != nil {
		app.handleError(w, r, err)
		return
	}
	app.respondWithWorkout(w, r, id)
}
