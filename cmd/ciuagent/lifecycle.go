package main

import (
	"context"
	"fmt"
)

// Startup performs the one initial vision call the spec requires complete
// before any run_task, then starts the background capture loop and the
// idle-tick scheduler. It is not itself idempotent — call it exactly once
// per agent.
func (a *agent) Startup(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	a.mu.Unlock()

	frame, err := a.adapter.CaptureFrame(ctx)
	if err != nil {
		return fmt.Errorf("startup: capture initial frame: %w", err)
	}
	outcome := a.mapper.Recapture(ctx, frame, "startup")
	a.logger.Info("startup complete", "zone_count", outcome.ZoneCount, "degraded", outcome.Degraded)

	a.capture.Start(ctx)
	a.idle.Start(ctx)
	if a.watcher != nil {
		a.watcher.Start(ctx)
	}
	return nil
}

// Shutdown is idempotent: it stops the capture loop, stops the idle-tick
// scheduler, and closes the history store, leaving no background work.
// Safe to call any number of times, including before Startup.
func (a *agent) Shutdown() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.mu.Unlock()

	a.capture.Stop()
	a.idle.Stop()
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("shutdown: close history store", "error", err)
		}
	}
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(context.Background()); err != nil {
			a.logger.Warn("shutdown: flush tracer", "error", err)
		}
	}
}

// idleRecapture is the idle-tick scheduler's TickFunc: a synchronous
// recapture so the Zone Registry doesn't grow stale purely because the
// screen hasn't changed enough to cross a classifier tier on its own.
func (a *agent) idleRecapture(ctx context.Context) {
	frame, err := a.adapter.CaptureFrame(ctx)
	if err != nil {
		a.logger.Warn("idle recapture: capture failed", "error", err)
		return
	}
	outcome := a.mapper.Recapture(ctx, frame, "idle tick")
	a.logger.Debug("idle recapture complete", "zone_count", outcome.ZoneCount, "degraded", outcome.Degraded)
}
