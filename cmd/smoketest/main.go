package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/myrjola/repcoach/internal/e2etest"
	"github.com/myrjola/repcoach/internal/logging"
	"github.com/myrjola/repcoach/internal/testhelpers"
	"github.com/myrjola/repcoach/internal/workout"
)

// TestProfile checks that an anonymous profile is created and keeps its state between requests.
func TestProfile(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	var prefs workout.Preferences
	if err := client.JSON(ctx, http.MethodGet, "/api/preferences", nil, &prefs); err != nil {
		return fmt.Errorf("get preferences: %w", err)
	}
	flag := map[string]bool{"enabled": true}
	if err := client.JSON(ctx, http.MethodPut, "/api/ui-flags/smoketest", flag, nil); err != nil {
		return fmt.Errorf("set ui flag: %w", err)
	}
	var flags []struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
	}
	if err := client.JSON(ctx, http.MethodGet, "/api/ui-flags", nil, &flags); err != nil {
		return fmt.Errorf("list ui flags: %w", err)
	}
	if len(flags) != 1 || !flags[0].Enabled {
		return fmt.Errorf("session not kept between requests, got flags %+v", flags)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		client   *e2etest.Client
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}
	if err = TestProfile(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing profile", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful", slog.Duration("duration", time.Since(start)))
	os.Exit(0)
}
