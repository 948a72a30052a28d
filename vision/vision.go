// Package vision implements the Vision Analyzer: the top tier of the
// perception pipeline, escalating to a remote vision-capable LLM for a full
// zone inventory of one frame.
package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ciuagent/ciuagent/internal/backoff"
	"github.com/ciuagent/ciuagent/internal/retry"
	"github.com/ciuagent/ciuagent/internal/wireschema"
	"github.com/ciuagent/ciuagent/model"
)

// Provider is the out-of-scope remote vision wire contract. Concrete
// providers (internal/providers/anthropic, openaicompat, gemini, bedrock)
// each implement this by encoding a frame and issuing one provider-specific
// API call.
type Provider interface {
	// AnalyzeFrame sends the frame plus a context hint and returns the raw
	// JSON text of the provider's reply (expected to decode to a JSON array
	// of zone records, see internal/wireschema).
	AnalyzeFrame(ctx context.Context, frame model.Frame, screenW, screenH int, contextHint string) (rawJSON string, err error)
}

// Outcome is the structured result of one AnalyzeFrame call, distinguishing
// transport failure from a parse-success-empty reply.
type Outcome struct {
	Zones      []model.Zone
	RawResponse string
	LatencyMs   int64
	Success     bool
	Error       string
}

// Analyzer drives a Provider with the spec's timeout and retry/backoff
// policy.
type Analyzer struct {
	provider      Provider
	logger        *slog.Logger
	timeout       time.Duration
	maxRetries    int
	backoffBaseMs float64
}

// New builds an Analyzer.
func New(provider Provider, logger *slog.Logger, timeout time.Duration, maxRetries int, backoffBaseSeconds float64) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		provider:      provider,
		logger:        logger.With("component", "vision"),
		timeout:       timeout,
		maxRetries:    maxRetries,
		backoffBaseMs: backoffBaseSeconds * 1000,
	}
}

// Analyze performs one vision call, retrying transient failures with
// exponential backoff, and returns a structured Outcome distinguishing
// transport failure from a parse-success-empty reply.
func (a *Analyzer) Analyze(ctx context.Context, frame model.Frame, screenW, screenH int, contextHint string) Outcome {
	start := time.Now()
	policy := backoff.BackoffPolicy{
		InitialMs: a.backoffBaseMs,
		MaxMs:     a.backoffBaseMs * 16,
		Factor:    2,
		Jitter:    0.1,
	}

	var rawJSON string
	var zones []model.Zone
	attempt := 0
	result := retry.Do(ctx, retry.Config{
		MaxAttempts:  a.maxRetries + 1,
		InitialDelay: time.Duration(a.backoffBaseMs) * time.Millisecond,
		MaxDelay:     time.Duration(policy.MaxMs) * time.Millisecond,
		Factor:       policy.Factor,
		Jitter:       true,
	}, func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		raw, err := a.provider.AnalyzeFrame(callCtx, frame, screenW, screenH, contextHint)
		if err != nil {
			a.logger.Warn("vision call failed", "attempt", attempt, "error", err)
			return err
		}
		parsed, err := parseZones(raw)
		if err != nil {
			a.logger.Warn("vision reply failed to parse; retrying", "attempt", attempt, "error", err)
			return err
		}
		rawJSON = raw
		zones = parsed
		return nil
	})

	latency := time.Since(start).Milliseconds()
	if result.Err != nil {
		return Outcome{Success: false, Error: result.Err.Error(), LatencyMs: latency}
	}
	return Outcome{Success: true, Zones: zones, RawResponse: rawJSON, LatencyMs: latency}
}

// parseZones decodes the provider's raw reply, schema-validates it, and
// converts it to model.Zone values. A reply that parses to a JSON array with
// zero elements is a valid, distinct outcome (preservation case) — it
// returns (nil, nil), not an error.
func parseZones(raw string) ([]model.Zone, error) {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("vision: decode reply: %w", err)
	}
	if err := wireschema.ValidateZoneReply(decoded); err != nil {
		return nil, err
	}

	type wireZone struct {
		ID         string  `json:"id"`
		Label      string  `json:"label"`
		Kind       string  `json:"kind"`
		State      string  `json:"state"`
		Confidence float64 `json:"confidence"`
		Bounds     struct {
			X int `json:"x"`
			Y int `json:"y"`
			W int `json:"w"`
			H int `json:"h"`
		} `json:"bounds"`
		ParentID string `json:"parent_id,omitempty"`
	}
	var wire []wireZone
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("vision: decode zone list: %w", err)
	}

	now := time.Now()
	zones := make([]model.Zone, 0, len(wire))
	for _, w := range wire {
		zones = append(zones, model.Zone{
			ID:         w.ID,
			Label:      w.Label,
			Kind:       model.ZoneKind(w.Kind),
			State:      model.ZoneState(w.State),
			Confidence: w.Confidence,
			ParentID:   w.ParentID,
			Bounds:     model.Rectangle{X: w.Bounds.X, Y: w.Bounds.Y, Width: w.Bounds.W, Height: w.Bounds.H},
			LastSeen:   now,
		})
	}
	return zones, nil
}
