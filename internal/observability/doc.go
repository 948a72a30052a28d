// Package observability provides monitoring and debugging capabilities for
// the agent through metrics, structured logging, distributed tracing, and
// a per-run event timeline.
//
// # Overview
//
// The package implements four pillars of observability:
//
//  1. Metrics - Quantitative measurements using Prometheus
//  2. Logging - Structured logs with sensitive data redaction
//  3. Tracing - Distributed request tracing with OpenTelemetry
//  4. Events - A recorded timeline of one task run
//
// # Metrics
//
// Metrics are implemented using Prometheus client libraries and track:
//   - Vision/task-planner API request latency and status
//   - Step execution performance by action type
//   - Error rates by component and error kind
//   - Replan outcomes
//
// Example usage:
//
//	metrics := observability.NewMetrics()
//
//	start := time.Now()
//	plan := planner.Plan(ctx, req)
//	status := "success"
//	if !plan.Success {
//	    status = "error"
//	}
//	metrics.RecordAPIRequest("task_planner", status, time.Since(start).Seconds())
//
// # Logging
//
// Logging is built on Go's slog package with enhancements for:
//   - Automatic run ID correlation from context
//   - Sensitive data redaction (API keys, tokens)
//   - JSON output for production, text for development
//   - Configurable log levels
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    AddSource: true,
//	})
//
//	ctx := observability.AddRunID(ctx, runID)
//
//	logger.Info(ctx, "executing step",
//	    "zone_id", step.ZoneID,
//	    "action_type", step.ActionType,
//	)
//
//	logger.Error(ctx, "vision request failed",
//	    "error", err,
//	    "provider", "anthropic",
//	    "api_key", apiKey, // Automatically redacted
//	)
//
// # Tracing
//
// Distributed tracing uses OpenTelemetry to track one task run across its
// plan/step/replan calls:
//   - End-to-end run visualization
//   - Performance bottleneck identification (which step or API call is slow)
//   - Error correlation across a run
//
// Example usage:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName: "ciuagent",
//	    Endpoint:    "localhost:4317", // OTLP collector
//	    SamplingRate: 0.1,
//	})
//	defer shutdown(context.Background())
//
//	ctx, runSpan := tracer.TraceRun(ctx, runID)
//	defer runSpan.End()
//
//	ctx, apiSpan := tracer.TraceAPIRequest(ctx, "vision")
//	defer apiSpan.End()
//
//	ctx, stepSpan := tracer.TraceStep(ctx, "CLICK", zoneID)
//	defer stepSpan.End()
//	if err != nil {
//	    tracer.RecordError(stepSpan, err)
//	}
//
// # Events
//
// EventRecorder populates the per-run timeline consumed by `run --timeline`:
// run start/end, step start/end, replan requested/resolved, API
// request/response/error, and zone enter/exit/hover. See events.go.
//
// # Context Propagation
//
// Logging and tracing integrate with Go's context for automatic correlation:
//
//	ctx = observability.AddRunID(ctx, runID)
//	logger.Info(ctx, "plan accepted") // includes run_id
//
//	ctx, span := tracer.Start(ctx, "operation")
//	// trace context propagates to child spans
//
// # Security Considerations
//
// The logging component automatically redacts:
//   - API keys (Anthropic, OpenAI, Gemini, Bedrock, generic)
//   - Passwords and secrets
//   - Bearer tokens
//   - Custom patterns via configuration
//
// # Testing
//
//   - Metrics can be verified using prometheus/testutil
//   - Logging can write to bytes.Buffer for assertions
//   - Tracing works with a no-op exporter (empty Endpoint) in tests
package observability
