// Package capture runs the producer side of the perception pipeline: a
// bounded-rate loop that pulls frames and cursor samples from the Platform
// Adapter into a drop-oldest ring buffer.
package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ciuagent/ciuagent/internal/ratelimit"
	"github.com/ciuagent/ciuagent/model"
	"github.com/ciuagent/ciuagent/platform"
)

// Loop periodically captures frames from a platform.Adapter into a bounded
// ring, pacing itself between Settings.TargetFPS and Settings.MaxFPS with a
// token-bucket rate limiter.
type Loop struct {
	adapter platform.Adapter
	logger  *slog.Logger
	bucket  *ratelimit.Bucket

	mu       sync.Mutex
	ring     []model.Frame
	capacity int
	head     int
	size     int

	consecutiveFailures int
	backoffBase          time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a Loop with the given capacity (number of frames retained).
func New(adapter platform.Adapter, logger *slog.Logger, targetFPS, maxFPS float64, capacity int, backoffBase time.Duration) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity < 1 {
		capacity = 1
	}
	bucket := ratelimit.NewBucket(ratelimit.Config{
		RequestsPerSecond: targetFPS,
		BurstSize:         int(maxFPS),
		Enabled:           true,
	})
	return &Loop{
		adapter:     adapter,
		logger:      logger.With("component", "capture"),
		bucket:      bucket,
		ring:        make([]model.Frame, capacity),
		capacity:    capacity,
		backoffBase: backoffBase,
	}
}

// CaptureOnce synchronously captures and stores a single frame, independent
// of the running loop's pacing. Used by the Canvas Mapper's recapture path.
func (l *Loop) CaptureOnce(ctx context.Context) (model.Frame, error) {
	f, err := l.adapter.CaptureFrame(ctx)
	if err != nil {
		return model.Frame{}, err
	}
	if w, werr := l.adapter.ActiveWindow(ctx); werr == nil {
		f.Window = w
	}
	l.push(f)
	return f, nil
}

// Start begins the paced capture loop in a background goroutine. Stop must
// be called to release it.
func (l *Loop) Start(ctx context.Context) {
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	go l.run(ctx)
}

// Stop halts the capture loop and waits for it to exit. Idempotent: safe to
// call any number of times, including before Start.
func (l *Loop) Stop() {
	if l.stopCh == nil {
		return
	}
	l.stopOnce.Do(func() {
		close(l.stopCh)
		<-l.doneCh
	})
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		default:
		}

		wait := l.bucket.WaitTime()
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			case <-l.stopCh:
				return
			}
			continue
		}
		if !l.bucket.Allow() {
			continue
		}

		if _, err := l.CaptureOnce(ctx); err != nil {
			l.consecutiveFailures++
			l.logger.Warn("capture failed", "error", err, "consecutive_failures", l.consecutiveFailures)
			if l.consecutiveFailures >= 3 {
				select {
				case <-time.After(l.backoffBase):
				case <-ctx.Done():
					return
				case <-l.stopCh:
					return
				}
				l.consecutiveFailures = 0
			}
			continue
		}
		l.consecutiveFailures = 0
	}
}

func (l *Loop) push(f model.Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := (l.head + l.size) % l.capacity
	if l.size == l.capacity {
		// Ring full: drop oldest by advancing head.
		l.ring[l.head] = model.Frame{}
		l.head = (l.head + 1) % l.capacity
	} else {
		l.size++
	}
	l.ring[idx] = f
}

// Latest returns the most recently captured frame, if any.
func (l *Loop) Latest() (model.Frame, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.size == 0 {
		return model.Frame{}, false
	}
	idx := (l.head + l.size - 1) % l.capacity
	return l.ring[idx], true
}

// Range returns every buffered frame whose timestamp falls within
// [from, to], in chronological order.
func (l *Loop) Range(from, to time.Time) []model.Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Frame, 0, l.size)
	for i := 0; i < l.size; i++ {
		f := l.ring[(l.head+i)%l.capacity]
		if !f.Timestamp.Before(from) && !f.Timestamp.After(to) {
			out = append(out, f)
		}
	}
	return out
}
