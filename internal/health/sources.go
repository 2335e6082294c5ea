package health

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultTolerance is how far apart two records may start and still describe the same workout.
const DefaultTolerance = 5 * time.Minute

// DefaultAppSource is the source name workouts logged in this app are reconciled under.
const DefaultAppSource = "repcoach"

// Sources configures how records from different sources are reconciled.
//
// Example file:
//
//	app_source = "repcoach"
//	tolerance = "5m"
//	priority = ["repcoach", "Apple Watch", "Garmin Connect", "Strava"]
type Sources struct {
	AppSource string        `toml:"app_source"`
	Tolerance time.Duration `toml:"tolerance"`
	// Priority lists source names from most to least trusted.
	Priority []string `toml:"priority"`
}

// DefaultSources trusts the app first and wearables before aggregators.
func DefaultSources() Sources {
	return Sources{
		AppSource: DefaultAppSource,
		Tolerance: DefaultTolerance,
		Priority:  []string{DefaultAppSource, "Apple Watch", "Garmin Connect", "Polar Flow", "Strava"},
	}
}

// LoadSources reads the sources file at path. Fields missing from the file keep their defaults and an empty path
// returns DefaultSources.
func LoadSources(path string) (Sources, error) {
	sources := DefaultSources()
	if path == "" {
		return sources, nil
	}
	meta, err := toml.DecodeFile(path, &sources)
	if err != nil {
		return Sources{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Sources{}, fmt.Errorf("%w: unknown keys %v in %s", ErrInvalidSources, undecoded, path)
	}
	if err = sources.validate(); err != nil {
		return Sources{}, err
	}
	return sources, nil
}

func (s Sources) validate() error {
	if s.AppSource == "" {
		return fmt.Errorf("%w: empty app_source", ErrInvalidSources)
	}
	if s.Tolerance < 0 {
		return fmt.Errorf("%w: negative tolerance %s", ErrInvalidSources, s.Tolerance)
	}
	return nil
}
