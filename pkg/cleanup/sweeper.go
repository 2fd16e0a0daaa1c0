// Package cleanup removes stale temporary upload files on a schedule.
//
// Downloaded documents are staged in a temp directory before ingestion and
// deleted afterwards; a crash between the two leaves orphans behind. The
// sweeper reaps anything older than the configured age.
package cleanup

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSchedule runs the sweep at the top of every hour.
const DefaultSchedule = "0 * * * *"

// DefaultMaxAge is how old a staged file must be before it is reaped.
const DefaultMaxAge = time.Hour

// Sweeper deletes stale files from a staging directory.
type Sweeper struct {
	dir      string
	maxAge   time.Duration
	schedule string
	cron     *cron.Cron
	logger   zerolog.Logger
}

// Config holds sweeper configuration.
type Config struct {
	Dir      string
	MaxAge   time.Duration // defaults to DefaultMaxAge
	Schedule string        // cron expression, defaults to DefaultSchedule
	Logger   zerolog.Logger
}

// New creates a sweeper.
func New(cfg Config) (*Sweeper, error) {
	if cfg.Dir == "" {
		return nil, errors.New("directory is required")
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = DefaultSchedule
	}

	return &Sweeper{
		dir:      cfg.Dir,
		maxAge:   maxAge,
		schedule: schedule,
		cron:     cron.New(),
		logger:   cfg.Logger,
	}, nil
}

// Start schedules the periodic sweep.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		removed, err := s.SweepOnce()
		if err != nil {
			s.logger.Error().Err(err).Msg("Sweep failed")
			return
		}
		if removed > 0 {
			s.logger.Info().Int("removed", removed).Msg("Stale upload files removed")
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Debug().
		Str("dir", s.dir).
		Str("schedule", s.schedule).
		Dur("maxAge", s.maxAge).
		Msg("Cleanup sweeper started")
	return nil
}

// Stop halts the schedule. Running sweeps finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// SweepOnce removes files older than the max age and reports how many were
// deleted. A missing directory is not an error.
func (s *Sweeper) SweepOnce() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-s.maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn().Str("file", entry.Name()).Err(err).Msg("Failed to remove stale file")
			continue
		}
		removed++
	}

	return removed, nil
}
