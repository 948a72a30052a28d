package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ciuagent/ciuagent/action"
	"github.com/ciuagent/ciuagent/brush"
	"github.com/ciuagent/ciuagent/canvasmapper"
	"github.com/ciuagent/ciuagent/capture"
	"github.com/ciuagent/ciuagent/classify"
	"github.com/ciuagent/ciuagent/director"
	"github.com/ciuagent/ciuagent/internal/history"
	"github.com/ciuagent/ciuagent/internal/idletick"
	"github.com/ciuagent/ciuagent/internal/observability"
	"github.com/ciuagent/ciuagent/internal/providers/anthropic"
	"github.com/ciuagent/ciuagent/internal/providers/bedrock"
	"github.com/ciuagent/ciuagent/internal/providers/gemini"
	"github.com/ciuagent/ciuagent/internal/providers/openaicompat"
	"github.com/ciuagent/ciuagent/platform"
	"github.com/ciuagent/ciuagent/region"
	"github.com/ciuagent/ciuagent/settings"
	"github.com/ciuagent/ciuagent/stepexecutor"
	"github.com/ciuagent/ciuagent/taskplanner"
	"github.com/ciuagent/ciuagent/vision"
	"github.com/ciuagent/ciuagent/zoneregistry"
	"github.com/ciuagent/ciuagent/zonetracker"
)

// agent bundles every constructed component a task run needs, plus the two
// background contexts (capture loop, idle-tick scheduler) the Director
// shares with them. Startup/Shutdown give it the lifecycle the spec pins at
// the agent-build boundary rather than inside the Director itself.
type agent struct {
	settings       *settings.Settings
	adapter        platform.Adapter
	registry       *zoneregistry.Registry
	mapper         *canvasmapper.Mapper
	planner        *taskplanner.Planner
	director       *director.Director
	capture        *capture.Loop
	idle           *idletick.Scheduler
	watcher        *settings.Watcher
	history        *history.Store
	logger         *slog.Logger
	events         observability.EventStore
	shutdownTracer func(context.Context) error

	mu      sync.Mutex
	started bool
	stopped bool
}

func buildAgent(ctx context.Context, s *settings.Settings, settingsPath string) (*agent, error) {
	obsLogger := observability.NewLogger(observability.LogConfig{
		Level:  s.LogLevel,
		Format: s.LogFormat,
	})
	logger := obsLogger.Raw("agent")
	eventStore := observability.NewMemoryEventStore(0)
	eventRecorder := observability.NewEventRecorder(eventStore, obsLogger)
	metrics := observability.NewMetrics()
	tracer, shutdownTracer := observability.NewTracer(observability.TraceConfig{
		ServiceName: "ciuagent",
		Endpoint:    s.OTLPEndpoint,
	})

	adapter, err := platform.Create("mock")
	if err != nil {
		return nil, fmt.Errorf("create platform adapter: %w", err)
	}

	visionProvider, err := newVisionProvider(ctx, s)
	if err != nil {
		return nil, err
	}
	plannerProvider, err := newPlannerProvider(ctx, s)
	if err != nil {
		return nil, err
	}

	registry := zoneregistry.New()
	classifier := classify.New(s.DiffThresholdPercent, s.Tier2ThresholdPercent, s.StabilityWaitMs)
	regionAnalyzer := region.New(nil, s.MinZoneConfidence) // OCR/contour primitives are a pinned out-of-scope capability
	visionAnalyzer := vision.New(visionProvider, logger, time.Duration(s.APITimeoutVisionSeconds*float64(time.Second)), s.APIMaxRetries, s.APIBackoffBaseSeconds)
	mapper := canvasmapper.New(registry, classifier, regionAnalyzer, visionAnalyzer, logger, time.Duration(s.ZoneExpirySeconds)*time.Second, s.StabilityWaitMs)

	planner := taskplanner.New(plannerProvider, logger, time.Duration(s.APITimeoutTextSeconds*float64(time.Second)), s.APIMaxRetries, s.APIBackoffBaseSeconds)

	actionExecutor := action.New(registry, adapter)
	tracker := zonetracker.New(registry, time.Duration(s.HoverThresholdMs)*time.Millisecond)
	painter := brush.New(adapter, actionExecutor, tracker, s.MotionSpeedPixelsPerSec)
	steps := stepexecutor.New(registry, painter, actionExecutor)

	var historyStore *history.Store
	if s.HistoryDBPath != "" {
		historyStore, err = history.Open(ctx, s.HistoryDBPath)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
	}

	dir := director.New(s, adapter, mapper, planner, steps, historyRecorder(historyStore), logger)
	dir.SetEventRecorder(eventRecorder)
	dir.SetMetrics(metrics)
	dir.SetTracer(tracer)
	mapper.SetMetrics(metrics)
	mapper.SetTracer(tracer)

	captureLoop := capture.New(adapter, logger, s.TargetFPS, s.MaxFPS, int(s.BufferSeconds*s.TargetFPS), time.Duration(s.APIBackoffBaseSeconds*float64(time.Second)))

	a := &agent{
		settings:       s,
		adapter:        adapter,
		registry:       registry,
		mapper:         mapper,
		planner:        planner,
		director:       dir,
		capture:        captureLoop,
		history:        historyStore,
		logger:         logger,
		events:         eventStore,
		shutdownTracer: shutdownTracer,
	}

	idle, err := idletick.New(s.IdleTickCron, a.idleRecapture, logger)
	if err != nil {
		return nil, fmt.Errorf("build idle-tick scheduler: %w", err)
	}
	a.idle = idle

	if settingsPath != "" {
		w, err := settings.NewWatcher(settingsPath, logger, a.onSettingsReload)
		if err != nil {
			a.logger.Debug("settings hot-reload disabled", "path", settingsPath, "error", err)
		} else {
			a.watcher = w
		}
	}

	return a, nil
}

// onSettingsReload is settings.Watcher's onReload callback. It swaps the
// agent's own Settings reference so introspection reflects the file's
// current contents; the Director, capture loop, and idle-tick scheduler
// keep the *Settings snapshot they were built with, since none of them
// re-reads a.settings after construction — a reload never mutates an
// already-running task or background loop mid-flight.
func (a *agent) onSettingsReload(s *settings.Settings) {
	a.mu.Lock()
	a.settings = s
	a.mu.Unlock()
}

// historyRecorder adapts a possibly-nil *history.Store to
// director.HistoryRecorder, since a nil *history.Store is not itself a
// nil interface value.
func historyRecorder(s *history.Store) director.HistoryRecorder {
	if s == nil {
		return nil
	}
	return s
}

func newVisionProvider(ctx context.Context, s *settings.Settings) (vision.Provider, error) {
	switch s.VisionProvider {
	case "", "anthropic":
		return anthropic.New(anthropic.Config{}), nil
	case "openai", "openaicompat":
		return openaicompat.New(openaicompat.Config{}), nil
	case "gemini":
		return gemini.New(ctx, gemini.Config{})
	case "bedrock":
		return bedrock.New(ctx, bedrock.Config{})
	default:
		return nil, fmt.Errorf("unknown vision_provider %q", s.VisionProvider)
	}
}

func newPlannerProvider(ctx context.Context, s *settings.Settings) (taskplanner.Provider, error) {
	switch s.TaskPlannerProvider {
	case "", "anthropic":
		return anthropic.New(anthropic.Config{}), nil
	case "openai", "openaicompat":
		return openaicompat.New(openaicompat.Config{}), nil
	case "gemini":
		return gemini.New(ctx, gemini.Config{})
	case "bedrock":
		return bedrock.New(ctx, bedrock.Config{})
	default:
		return nil, fmt.Errorf("unknown task_planner_provider %q", s.TaskPlannerProvider)
	}
}
