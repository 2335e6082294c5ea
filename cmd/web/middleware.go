package main

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/myrjola/repcoach/internal/contexthelpers"
	"github.com/myrjola/repcoach/internal/errors"
	"github.com/myrjola/repcoach/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

const profileIDSessionKey = "profile_id"

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode    int
	headerWritten bool
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		headerWritten:  false,
	}
}

func (mw *statusResponseWriter) WriteHeader(statusCode int) {
	mw.ResponseWriter.WriteHeader(statusCode)

	if !mw.headerWritten {
		mw.statusCode = statusCode
		mw.headerWritten = true
	}
}

func (mw *statusResponseWriter) Write(b []byte) (int, error) {
	mw.headerWritten = true
	written, err := mw.ResponseWriter.Write(b)
	if err != nil {
		return written, fmt.Errorf("write response: %w", err)
	}
	return written, nil
}

func (mw *statusResponseWriter) Unwrap() http.ResponseWriter {
	return mw.ResponseWriter
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none';")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Cross-Origin-Resource-Policy", "same-origin")
		w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")

		next.ServeHTTP(w, r)
	})
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}

func (app *application) logAndTraceRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := rand.Text()
		ctx := logging.WithAttrs(
			r.Context(),
			slog.String("trace_id", traceID),
			slog.String("proto", r.Proto),
			slog.String("method", r.Method),
			slog.String("uri", r.URL.RequestURI()),
		)
		r = contexthelpers.SetTraceID(r.WithContext(ctx), traceID)
		w.Header().Set("X-Trace-Id", traceID)

		start := time.Now()
		app.logger.LogAttrs(ctx, slog.LevelDebug, "received request")

		sw := newStatusResponseWriter(w)
		next.ServeHTTP(sw, r)

		level := slog.LevelInfo
		if sw.statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		app.logger.LogAttrs(ctx, level, "request completed",
			slog.Int("status_code", sw.statusCode), slog.Duration("duration", time.Since(start)))
	})
}

// requestMetrics counts requests per route pattern and observes their duration.
func (app *application) requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.metrics.GaugeRequests.Inc()
		defer app.metrics.GaugeRequests.Dec()
		defer func(begin time.Time) {
			app.metrics.HistRequestDuration.With(prometheus.Labels{
				"method":  r.Method,
				"pattern": r.Pattern,
			}).Observe(time.Since(begin).Seconds())
		}(time.Now())

		sw := newStatusResponseWriter(w)
		next.ServeHTTP(sw, r)

		app.metrics.CounterRequests.With(prometheus.Labels{
			"method":  r.Method,
			"pattern": r.Pattern,
			"status":  strconv.Itoa(sw.statusCode),
		}).Inc()
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if excp := recover(); excp != nil {
				if excp == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value.
					panic(excp)
				}
				app.metrics.CounterHandleRequestPanic.Inc()
				app.serverError(w, r, errors.DecoratePanic(excp))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// profile scopes the request to the profile stored in the session. Visitors without one get a new anonymous
// profile, so the session middleware must run first.
func (app *application) profile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		profileID := app.sessionManager.GetInt(ctx, profileIDSessionKey)
		if profileID != 0 {
			exists, err := app.workoutService.ProfileExists(ctx, profileID)
			if err != nil {
				app.serverError(w, r, err)
				return
			}
			if !exists {
				profileID = 0
			}
		}
		if profileID == 0 {
			var err error
			if profileID, err = app.workoutService.CreateProfile(ctx); err != nil {
				app.serverError(w, r, err)
				return
			}
			if err = app.sessionManager.RenewToken(ctx); err != nil {
				app.serverError(w, r, fmt.Errorf("renew session token: %w", err))
				return
			}
			app.sessionManager.Put(ctx, profileIDSessionKey, profileID)
		}

		r = contexthelpers.SetProfileID(r, profileID)
		r = r.WithContext(logging.WithAttrs(r.Context(), slog.Int("profile_id", profileID)))
		next.ServeHTTP(w, r)
	})
}

// crossOriginProtection rejects unsafe cross-origin browser requests.
func (app *application) crossOriginProtection(next http.Handler) http.Handler {
	protection := http.NewCrossOriginProtection()
	return protection.Handler(next)
}

// timeout cancels the request context and responds with 503 Service Unavailable when the handler does not finish
// within d.
func timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"timed out"}`)
	}
}
