package envstruct_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/repcoach/internal/envstruct"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

type serverConfig struct {
	Addr      string        `env:"ADDR"`
	Workers   int           `env:"WORKERS" envDefault:"2"`
	Debug     bool          `env:"DEBUG" envDefault:"false"`
	Retention time.Duration `env:"RETENTION" envDefault:"24h"`
	Untagged  string
}

func TestPopulate(t *testing.T) {
	tests := []struct {
		name      string
		v         any
		lookupEnv func(string) (string, bool)
		want      any
		wantErr   error
	}{
		{
			name:      "nil",
			v:         nil,
			lookupEnv: env(nil),
			want:      nil,
			wantErr:   envstruct.ErrInvalidValue,
		},
		{
			name:      "not pointer",
			v:         struct{}{},
			lookupEnv: env(nil),
			want:      nil,
			wantErr:   envstruct.ErrInvalidValue,
		},
		{
			name:      "empty struct",
			v:         &struct{}{},
			lookupEnv: env(nil),
			want:      &struct{}{},
			wantErr:   nil,
		},
		{
			name:      "required variable missing",
			v:         &serverConfig{}, //nolint:exhaustruct // populated later
			lookupEnv: env(nil),
			want:      nil,
			wantErr:   envstruct.ErrEnvNotSet,
		},
		{
			name:      "defaults",
			v:         &serverConfig{}, //nolint:exhaustruct // populated later
			lookupEnv: env(map[string]string{"ADDR": "localhost:0"}),
			want: &serverConfig{
				Addr:      "localhost:0",
				Workers:   2,
				Debug:     false,
				Retention: 24 * time.Hour,
				Untagged:  "",
			},
			wantErr: nil,
		},
		{
			name: "overrides",
			v:    &serverConfig{}, //nolint:exhaustruct // populated later
			lookupEnv: env(map[string]string{
				"ADDR":      ":8080",
				"WORKERS":   "8",
				"DEBUG":     "true",
				"RETENTION": "90m",
			}),
			want: &serverConfig{
				Addr:      ":8080",
				Workers:   8,
				Debug:     true,
				Retention: 90 * time.Minute,
				Untagged:  "",
			},
			wantErr: nil,
		},
		{
			name:      "unparsable int",
			v:         &serverConfig{}, //nolint:exhaustruct // populated later
			lookupEnv: env(map[string]string{"ADDR": "x", "WORKERS": "many"}),
			want:      nil,
			wantErr:   envstruct.ErrParse,
		},
		{
			name: "unsupported type",
			v: &struct { //nolint:exhaustruct // populated later
				Ratio float64 `env:"RATIO" envDefault:"0.5"`
			}{},
			lookupEnv: env(nil),
			want:      nil,
			wantErr:   envstruct.ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := envstruct.Populate(tt.v, tt.lookupEnv)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Populate() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Populate() unexpected error = %v", err)
			}
			if diff := cmp.Diff(tt.want, tt.v); diff != "" {
				t.Errorf("Populate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
