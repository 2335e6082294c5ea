package health_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/repcoach/internal/health"
)

func writeSources(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write sources file: %v", err)
	}
	return path
}

func TestLoadSources(t *testing.T) {
	t.Parallel()

	defaults, err := health.LoadSources("")
	if err != nil {
		t.Fatalf("LoadSources without file: %v", err)
	}
	if diff := cmp.Diff(health.DefaultSources(), defaults); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}

	path := writeSources(t, `
tolerance = "90s"
priority = ["Garmin Connect", "repcoach"]
`)
	got, err := health.LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	want := health.Sources{
		AppSource: health.DefaultAppSource,
		Tolerance: 90 * time.Second,
		Priority:  []string{"Garmin Connect", "repcoach"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSources_Invalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", `tolerence = "5m"`},
		{"negative tolerance", `tolerance = "-1m"`},
		{"empty app source", `app_source = ""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := health.LoadSources(writeSources(t, tt.content)); !errors.Is(err, health.ErrInvalidSources) {
				t.Errorf("LoadSources error = %v, want ErrInvalidSources", err)
			}
		})
	}

	if _, err := health.LoadSources(writeSources(t, `priority = [`)); err == nil {
		t.Error("LoadSources accepted malformed TOML")
	}
	if _, err := health.LoadSources(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadSources accepted a missing file")
	}
}
