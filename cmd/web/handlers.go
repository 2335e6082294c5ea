package main

import (
	"net/http"
)

type healthyResponse struct {
	Status string `json:"status"`
}

// healthy responds with a JSON object indicating that the server is healthy.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, healthyResponse{Status: "ok"})
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.writeError(w, r, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}
