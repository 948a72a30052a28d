// Package idletick schedules a periodic idle-screen recapture using a
// cron expression, so the Canvas Mapper's zone set doesn't grow stale
// purely because the screen hasn't changed enough to trigger Tier 1/2
// analysis on its own.
package idletick

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// TickFunc is invoked on every scheduled tick.
type TickFunc func(ctx context.Context)

// Scheduler fires TickFunc on a cron schedule until stopped.
type Scheduler struct {
	cronExpr string
	fn       TickFunc
	logger   *slog.Logger

	cr *cron.Cron
}

// New validates cronExpr and builds a Scheduler. An empty cronExpr
// disables idle ticking: Start becomes a no-op.
func New(cronExpr string, fn TickFunc, logger *slog.Logger) (*Scheduler, error) {
	cronExpr = strings.TrimSpace(cronExpr)
	if cronExpr != "" {
		if _, err := parser.Parse(cronExpr); err != nil {
			return nil, fmt.Errorf("idletick: invalid cron expression %q: %w", cronExpr, err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{cronExpr: cronExpr, fn: fn, logger: logger.With("component", "idletick")}, nil
}

// Start begins firing fn on the configured schedule. It returns
// immediately; the schedule runs on cron's internal goroutine until Stop
// is called. Safe to call when the Scheduler was built with an empty
// cron expression; it simply does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	if s.cronExpr == "" {
		return
	}
	s.cr = cron.New(cron.WithParser(parser))
	_, err := s.cr.AddFunc(s.cronExpr, func() {
		s.logger.Debug("idle tick fired")
		s.fn(ctx)
	})
	if err != nil {
		s.logger.Warn("idletick: failed to register schedule", "error", err)
		return
	}
	s.cr.Start()
}

// Stop halts the schedule and waits for any in-flight tick to finish.
func (s *Scheduler) Stop() {
	if s.cr == nil {
		return
	}
	<-s.cr.Stop().Done()
}
