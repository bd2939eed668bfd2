package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"orgie/pkg/logger"
)

// DefaultArchiveSweepSpec runs right after midnight, when terms of the
// previous day become archived
const DefaultArchiveSweepSpec = "0 0 * * *"

// Scheduler runs periodic maintenance jobs
type Scheduler struct {
	cron   *cron.Cron
	cache  StatsCache
	logger *logger.Logger
}

// NewScheduler registers the archive sweep on spec
func NewScheduler(spec string, cache StatsCache, log *logger.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultArchiveSweepSpec
	}
	if log == nil {
		log = logger.NewNop()
	}

	s := &Scheduler{cron: cron.New(), cache: cache, logger: log}
	if _, err := s.cron.AddFunc(spec, s.SweepArchiveBoundary); err != nil {
		return nil, fmt.Errorf("invalid archive sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SweepArchiveBoundary drops every cached statistics aggregate. Yesterday's
// terms just moved into the archive, so every cached summary is stale.
func (s *Scheduler) SweepArchiveBoundary() {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := s.cache.InvalidateAll(ctx)
	if err != nil {
		s.logger.Error("Archive sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("Archive sweep completed", zap.Int("stats_invalidated", removed))
}
