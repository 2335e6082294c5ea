package main

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/myrjola/repcoach/internal/e2etest"
)

func Test_application_healthy(t *testing.T) {
	var (
		ctx    = t.Context()
		server = startServer(t)
		client = server.Client()
	)

	var got healthyResponse
	if err := client.JSON(ctx, http.MethodGet, "/api/healthy", nil, &got); err != nil {
		t.Fatalf("Failed to get health: %v", err)
	}
	if got.Status != "ok" {
		t.Errorf("Expected status ok, got %q", got.Status)
	}

	resp, err := client.Do(ctx, http.MethodGet, "/metrics", nil)
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics: %v", err)
	}
	if !strings.Contains(string(body), `repcoach_web_requests_total{method="GET",pattern="GET /api/healthy",status="200"}`) {
		t.Errorf("Expected request counter for the health check in metrics, got:\n%s", body)
	}
}

func Test_application_notFound(t *testing.T) {
	var (
		ctx    = t.Context()
		server = startServer(t)
		client = server.Client()
	)

	tests := []struct {
		name string
		path string
	}{
		{"unknown route", "/does-not-exist"},
		{"invalid workout id", "/api/workouts/not-a-number"},
		{"missing workout", "/api/workouts/999999"},
		{"missing movement", "/api/movements/999999"},
		{"no active plan", "/api/plans/active"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorResponse
			err := client.JSON(ctx, http.MethodGet, tt.path, nil, &body)
			if status := e2etest.Status(err); status != http.StatusNotFound {
				t.Errorf("Expected status %d, got %d (%v)", http.StatusNotFound, status, err)
			}
		})
	}
}

func Test_application_securityHeaders(t *testing.T) {
	var (
		ctx    = t.Context()
		server = startServer(t)
	)

	resp, err := server.Client().Do(ctx, http.MethodGet, "/api/preferences", nil)
	if err != nil {
		t.Fatalf("Failed to get preferences: %v", err)
	}
	_ = resp.Body.Close()

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "deny",
		"Cache-Control":          "no-cache, no-store, must-revalidate",
		"Content-Type":           "application/json",
	} {
		if got := resp.Header.Get(header); got != want {
			t.Errorf("Expected header %s = %q, got %q", header, want, got)
		}
	}
	if resp.Header.Get("X-Trace-Id") == "" {
		t.Error("Expected a trace id header")
	}
	var hasSession bool
	for _, c := range resp.Cookies() {
		if c.Name == "repcoach_session" {
			hasSession = true
			if !c.HttpOnly || !c.Secure {
				t.Errorf("Expected a secure HTTP only session cookie, got %+v", c)
			}
		}
	}
	if !hasSession {
		t.Error("Expected the first request to create a session")
	}
}
