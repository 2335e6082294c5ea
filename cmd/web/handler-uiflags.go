package main

import (
	"net/http"
)

func (app *application) uiFlagsGET(w http.ResponseWriter, r *http.Request) {
	flags, err := app.uiStateService.List(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, flags)
}

type uiFlagRequest struct {
	Enabled bool `json:"enabled"`
}

func (app *application) uiFlagPUT(w http.ResponseWriter, r *http.Request) {
	var req uiFlagRequest
	if err := readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	name := r.PathValue("name")
	if err := app.uiStateService.Set(r.Context(), name, req.Enabled); err != nil {
		app.handleError(w, r, err)
		return
	}
	flag, err := app.uiStateService.Get(r.Context(), name)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, flag)
}
