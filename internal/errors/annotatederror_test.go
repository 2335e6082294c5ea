package errors_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/repcoach/internal/errors"
	"github.com/myrjola/repcoach/internal/testhelpers"
)

func TestAnnotatedError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "sentinel",
			err:  errors.NewSentinel("movement not found"),
			want: "movement not found",
		},
		{
			name: "new with attributes",
			err:  errors.New("invalid plan", slog.Int("weeks", 0)),
			want: "invalid plan",
		},
		{
			name: "wrapped",
			err:  errors.Wrap(errors.NewSentinel("root cause"), "import vitals", slog.String("source", "watch")),
			want: "import vitals: root cause",
		},
		{
			name: "nested",
			err: errors.Wrap(
				errors.Wrap(errors.NewSentinel("root cause"), "reconcile"),
				"scheduled job",
			),
			want: "scheduled job: reconcile: root cause",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if err := errors.Wrap(nil, "nothing to wrap"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestIsAndAs(t *testing.T) {
	rootErr := errors.NewSentinel("root error")
	wrappedErr := errors.Wrap(fmt.Errorf("context: %w", rootErr), "outer")

	if !errors.Is(wrappedErr, rootErr) {
		t.Errorf("Is() = false, want true for wrapped error")
	}
	if errors.Is(wrappedErr, errors.NewSentinel("root error")) {
		t.Errorf("Is() = true, want false for a different sentinel with the same text")
	}

	custom := &customError{"custom error"}
	var target *customError
	if !errors.As(errors.Wrap(custom, "context"), &target) {
		t.Fatal("As() = false, want true")
	}
	if target != custom {
		t.Errorf("As() target = %v, want %v", target, custom)
	}

	if unwrapped := errors.Unwrap(errors.Wrap(rootErr, "context")); unwrapped != rootErr { //nolint:errorlint // identity.
		t.Errorf("Unwrap() = %v, want %v", unwrapped, rootErr)
	}
}

func TestSlogError(t *testing.T) {
	_, _, line, _ := runtime.Caller(0)
	err := errors.Wrap(errors.NewSentinel("root cause"), "context",
		slog.String("key", "value"), slog.Duration("duration", time.Second))
	var buf bytes.Buffer
	l := testhelpers.NewLogger(&buf)
	l.Info("test", errors.SlogError(err))
	logLine := buf.String()
	expectedContent := []string{
		"error.message=\"context: root cause\"",
		"error.annotations.key=value",
		"error.annotations.duration=1s",
		"annotatederror_test.go:" + strconv.Itoa(line+1),
	}
	for _, content := range expectedContent {
		if !strings.Contains(logLine, content) {
			t.Errorf("expected log line %s to contain %s", logLine, content)
		}
	}
	if strings.Contains(logLine, "annotatederror.go") {
		t.Fatal("expected annotatederror.go NOT to be in log line")
	}

	// None of these may panic.
	errors.SlogError(errors.Join(nil, nil, errors.NewSentinel("sentinel"), errors.New("test")))
	errors.SlogError(nil)
	errors.SlogError(fmt.Errorf("test: %w", errors.NewSentinel("sentinel")))
	errors.SlogError(errors.Wrap(errors.Join(nil, nil), "wrap error"))
}

type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}

func TestDecoratePanic(t *testing.T) {
	var line int
	defer func() {
		err := errors.DecoratePanic(recover())
		if err == nil {
			t.Fatal("expected error")
		}
		if got, want := err.Error(), "panic: test"; got != want {
			t.Errorf("err.Error(): got %q, want %q", got, want)
		}
		attr := errors.SlogError(err)
		if got, contains := attr.String(), "annotatederror_test.go:"+strconv.Itoa(line+1); !strings.Contains(got, contains) {
			t.Errorf("attr.String(): expected %q to contain %q", got, contains)
		}
	}()
	_, _, line, _ = runtime.Caller(0)
	panic("test")
}

func TestDecoratePanicNil(t *testing.T) {
	if err := errors.DecoratePanic(nil); err != nil {
		t.Errorf("DecoratePanic(nil) = %v, want nil", err)
	}
}
