// Package canvasmapper implements the Canvas Mapper: the component that
// routes each captured frame through the Change Classifier, Region
// Analyzer, and Vision Analyzer according to the tiering policy, and
// maintains the Zone Registry's contents as a result.
package canvasmapper

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ciuagent/ciuagent/classify"
	"github.com/ciuagent/ciuagent/internal/debounce"
	"github.com/ciuagent/ciuagent/internal/observability"
	"github.com/ciuagent/ciuagent/model"
	"github.com/ciuagent/ciuagent/region"
	"github.com/ciuagent/ciuagent/vision"
	"github.com/ciuagent/ciuagent/zoneregistry"
)

// Outcome is the result of one process_frame pass.
type Outcome struct {
	Classification classify.Outcome
	ZoneCount      int
	Degraded       bool // true when a vision call failed or returned empty and prior zones were preserved
}

// Mapper ties the perception tiers together and owns the Zone Registry.
type Mapper struct {
	registry  *zoneregistry.Registry
	classifier *classify.Classifier
	regionAnalyzer *region.Analyzer
	visionAnalyzer *vision.Analyzer
	logger    *slog.Logger

	zoneExpiry time.Duration

	debouncer *debounce.Debouncer[model.Frame]
	pending   chan transitionResult

	metrics *observability.Metrics
	tracer  *observability.Tracer
}

type transitionResult struct {
	outcome Outcome
}

// New builds a Mapper around a shared Zone Registry.
func New(registry *zoneregistry.Registry, classifier *classify.Classifier, regionAnalyzer *region.Analyzer, visionAnalyzer *vision.Analyzer, logger *slog.Logger, zoneExpiry time.Duration, stabilityWaitMs int) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mapper{
		registry:       registry,
		classifier:     classifier,
		regionAnalyzer: regionAnalyzer,
		visionAnalyzer: visionAnalyzer,
		logger:         logger.With("component", "canvasmapper"),
		zoneExpiry:     zoneExpiry,
	}
	m.debouncer = debounce.NewDebouncer[model.Frame](
		debounce.WithDebounceMs[model.Frame](stabilityWaitMs),
		debounce.WithBuildKey[model.Frame](func(*model.Frame) string { return "transition" }),
		debounce.WithOnFlush[model.Frame](func(items []*model.Frame) error {
			if len(items) == 0 {
				return nil
			}
			settled := *items[len(items)-1]
			m.handleTier2(context.Background(), settled, "screen finished transitioning")
			m.expireStale()
			return nil
		}),
	)
	return m
}

// SetMetrics attaches a Metrics collector that handleTier2 uses to record
// vision API request histograms/counters. Nil is a valid no-op value.
func (m *Mapper) SetMetrics(metrics *observability.Metrics) {
	m.metrics = metrics
}

// SetTracer attaches a Tracer that handleTier2 uses to emit one span per
// vision API request. Nil is a valid no-op value.
func (m *Mapper) SetTracer(tracer *observability.Tracer) {
	m.tracer = tracer
}

// Registry exposes the underlying Zone Registry for read access by other
// components (Zone Tracker, Brush Controller, Action Executor).
func (m *Mapper) Registry() *zoneregistry.Registry { return m.registry }

// ProcessFrame runs one frame through classify -> stability-check ->
// tier-route -> expire-stale -> finalize, mirroring the five-step algorithm
// of the original canvas mapper. previous may be the zero Frame for the
// very first call of a session.
func (m *Mapper) ProcessFrame(ctx context.Context, previous, current model.Frame) Outcome {
	result := m.classifier.Classify(previous, current)

	switch result.Outcome {
	case classify.Idle, classify.CursorOnly:
		return Outcome{Classification: result.Outcome, ZoneCount: m.registry.Count()}

	case classify.Transitioning:
		m.debouncer.Enqueue(&current)
		return Outcome{Classification: classify.Transitioning, ZoneCount: m.registry.Count()}

	case classify.MinorUpdate:
		outcome := m.handleTier1(ctx, current, result.BBox)
		m.expireStale()
		return outcome

	case classify.ContentChange:
		outcome := m.handleTier2(ctx, current, contextHintFor(result))
		m.expireStale()
		return outcome

	default:
		return Outcome{Classification: result.Outcome, ZoneCount: m.registry.Count()}
	}
}

func (m *Mapper) handleTier1(ctx context.Context, frame model.Frame, bbox model.Rectangle) Outcome {
	zones := m.regionAnalyzer.Analyze(ctx, frame, bbox)
	for _, z := range zones {
		m.registry.Register(z)
	}
	return Outcome{Classification: classify.MinorUpdate, ZoneCount: m.registry.Count()}
}

func (m *Mapper) handleTier2(ctx context.Context, frame model.Frame, contextHint string) Outcome {
	if m.tracer != nil {
		var span trace.Span
		ctx, span = m.tracer.TraceAPIRequest(ctx, "vision")
		defer span.End()
	}
	start := time.Now()
	outcome := m.visionAnalyzer.Analyze(ctx, frame, frame.Width, frame.Height, contextHint)
	if m.metrics != nil {
		status := "success"
		if !outcome.Success {
			status = "error"
		}
		m.metrics.RecordAPIRequest("vision", status, time.Since(start).Seconds())
	}
	if !outcome.Success {
		m.logger.Warn("vision analysis failed; preserving existing zones", "error", outcome.Error)
		if m.metrics != nil {
			m.metrics.RecordError("vision", outcome.Error)
		}
		return Outcome{Classification: classify.ContentChange, ZoneCount: m.registry.Count(), Degraded: true}
	}
	if len(outcome.Zones) == 0 {
		m.logger.Warn("vision analysis succeeded with zero zones; preserving existing zones", "prior_zone_count", m.registry.Count())
		return Outcome{Classification: classify.ContentChange, ZoneCount: m.registry.Count(), Degraded: true}
	}
	m.registry.ReplaceAll(outcome.Zones)
	return Outcome{Classification: classify.ContentChange, ZoneCount: m.registry.Count()}
}

// Recapture unconditionally invokes the Vision Analyzer, applying the same
// preservation rule as handleTier2. Used by the Director at planned
// transition points.
func (m *Mapper) Recapture(ctx context.Context, frame model.Frame, contextHint string) Outcome {
	outcome := m.handleTier2(ctx, frame, contextHint)
	m.expireStale()
	return outcome
}

func (m *Mapper) expireStale() {
	removed := m.registry.ExpireStale(time.Now(), m.zoneExpiry)
	if len(removed) > 0 {
		m.logger.Debug("expired stale zones", "count", len(removed))
	}
}

func contextHintFor(r classify.Result) string {
	if r.BBox.Empty() {
		return "full screen changed"
	}
	return "region changed"
}
