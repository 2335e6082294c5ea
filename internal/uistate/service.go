// Package uistate remembers small per-profile UI facts such as whether onboarding was completed.
package uistate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/myrjola/repcoach/internal/sqlite"
)

// ErrInvalidName is returned for flag names that are empty or too long.
var ErrInvalidName = errors.New("invalid flag name")

const maxNameLength = 63

// Flag is a named boolean.
type Flag struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Service reads and writes UI flags of the profile in the context.
type Service struct {
	repo   *sqliteFlagRepository
	logger *slog.Logger
}

// NewService creates a new UI state service.
func NewService(db *sqlite.Database, logger *slog.Logger) *Service {
	return &Service{
		repo:   newSQLiteFlagRepository(db),
		logger: logger,
	}
}

func validateName(name string) error {
	if name == "" || len(name) > maxNameLength {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Get returns the flag called name, disabled when never set.
func (s *Service) Get(ctx context.Context, name string) (Flag, error) {
	if err := validateName(name); err != nil {
		return Flag{}, err
	}
	flag, err := s.repo.Get(ctx, name)
	if err != nil {
		return Flag{}, fmt.Errorf("get flag: %w", err)
	}
	return flag, nil
}

// Set enables or disables the flag called name.
func (s *Service) Set(ctx context.Context, name string, enabled bool) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := s.repo.Set(ctx, Flag{Name: name, Enabled: enabled}); err != nil {
		return fmt.Errorf("set flag: %w", err)
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "ui flag set", slog.String("name", name), slog.Bool("enabled", enabled))
	return nil
}

// List returns every flag the profile has set.
func (s *Service) List(ctx context.Context) ([]Flag, error) {
	flags, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}
	return flags, nil
}
