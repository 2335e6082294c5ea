package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/myrjola/repcoach/internal/contexthelpers"
	"github.com/myrjola/repcoach/internal/errors"
	"github.com/myrjola/repcoach/internal/health"
	"github.com/myrjola/repcoach/internal/stats"
	"github.com/myrjola/repcoach/internal/uistate"
	"github.com/myrjola/repcoach/internal/workout"
)

const (
	dateLayout = "2006-01-02"
	// maxBodyBytes limits request bodies. Health exports arrive in batches, so the limit is generous.
	maxBodyBytes = 8 << 20
)

var errBadRequest = errors.NewSentinel("bad request")

type errorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		app.serverError(w, r, fmt.Errorf("marshal response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// readJSON decodes the request body into dst and rejects unknown fields.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %w", errBadRequest, err)
	}
	return nil
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.writeError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func (app *application) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body, _ := json.Marshal(errorResponse{Error: msg, TraceID: contexthelpers.TraceID(r.Context())})
	_, _ = w.Write(body)
}

// handleError maps domain errors to client errors. Anything unexpected is logged and becomes a 500.
func (app *application) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, workout.ErrNotFound):
		app.writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, errBadRequest),
		errors.Is(err, workout.ErrInvalidInput),
		errors.Is(err, workout.ErrInvalidPreferences),
		errors.Is(err, health.ErrInvalidInput),
		errors.Is(err, stats.ErrInvalidPeriod),
		errors.Is(err, uistate.ErrInvalidName):
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "bad request", errors.SlogError(err))
		app.writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		app.serverError(w, r, err)
	}
}

func intPathValue(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, fmt.Errorf("%w: path value %s: %w", workout.ErrNotFound, name, err)
	}
	return v, nil
}

// sinceQuery parses the optional since date. A missing value means the beginning of time.
func sinceQuery(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return time.Time{}, nil
	}
	since, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: since %q: %w", errBadRequest, raw, err)
	}
	return since, nil
}
