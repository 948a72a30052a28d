// Package taskplanner implements the Task Planner external contract: given
// a task description, the current zone inventory, and the completed-step
// history, ask a remote text/vision LLM for an ordered TaskPlan.
package taskplanner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ciuagent/ciuagent/internal/retry"
	"github.com/ciuagent/ciuagent/internal/wireschema"
	"github.com/ciuagent/ciuagent/model"
)

// ZoneSummary is the reduced zone shape sent to the planner: just enough to
// let it choose a target without leaking internal bookkeeping fields.
type ZoneSummary struct {
	ID     string
	Label  string
	Kind   model.ZoneKind
	State  model.ZoneState
	CenterX, CenterY int
}

// Request is everything the planner needs to produce one plan.
type Request struct {
	TaskDescription   string
	PlatformName      string
	Zones             []ZoneSummary
	CompletedSteps    []string
}

// Provider is the out-of-scope remote text LLM wire contract.
type Provider interface {
	// Plan sends the rendered prompt and returns the raw JSON text of the
	// provider's reply (expected to decode to a JSON array of step records,
	// see internal/wireschema).
	Plan(ctx context.Context, systemPrompt, userPrompt string) (rawJSON string, err error)
}

// Planner drives a Provider with the spec's timeout and retry policy and
// enforces the five planning rules from the wire contract at parse time.
type Planner struct {
	provider   Provider
	logger     *slog.Logger
	timeout    time.Duration
	maxRetries int
	backoffMs  float64
}

// New builds a Planner.
func New(provider Provider, logger *slog.Logger, timeout time.Duration, maxRetries int, backoffBaseSeconds float64) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		provider:   provider,
		logger:     logger.With("component", "taskplanner"),
		timeout:    timeout,
		maxRetries: maxRetries,
		backoffMs:  backoffBaseSeconds * 1000,
	}
}

// systemPrompt mirrors the original task_planner.py's rule set: the planner
// must prefer real zone ids, never CLICK __global__, pair text entry as
// CLICK-then-TYPE_TEXT, reserve __global__ for invisible-target shortcuts,
// and append __replan__ after any step whose expected_change implies a
// major transition.
const systemPrompt = `You are the planning component of a GUI automation agent.
Given a task description, the current inventory of on-screen zones, and the
steps already completed in this attempt, produce an ordered JSON array of
steps. Rules:
1. If a zone in the supplied list matches your intended target, use that
   zone's id.
2. Every CLICK step must carry a real zone id, never "__global__".
3. Typing into a visible field is a two-step pair: CLICK that field's zone,
   then a "__global__" TYPE_TEXT step.
4. "__global__" is reserved for keyboard shortcuts with no visible target,
   or typing into a field that is already focused.
5. After any step whose expected_change implies a major UI transition
   (a new window, dialog, or application appearing), append a step with
   zone_id "__replan__".
Respond with only the JSON array, no surrounding prose.`

// BuildPrompt renders the user-turn prompt for one planning request.
func BuildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", req.TaskDescription)
	fmt.Fprintf(&b, "Platform: %s\n", req.PlatformName)
	b.WriteString("Current zones:\n")
	for _, z := range req.Zones {
		fmt.Fprintf(&b, "- id=%s label=%q kind=%s state=%s center=(%d,%d)\n", z.ID, z.Label, z.Kind, z.State, z.CenterX, z.CenterY)
	}
	if len(req.CompletedSteps) > 0 {
		b.WriteString("Already completed in this attempt:\n")
		for _, s := range req.CompletedSteps {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	return b.String()
}

// Plan produces one TaskPlan, retrying transient provider failures with
// exponential backoff. Every invocation consumes exactly one API call slot
// regardless of outcome — the caller (Director) is responsible for
// accounting that against its budget.
func (p *Planner) Plan(ctx context.Context, req Request) model.TaskPlan {
	start := time.Now()
	userPrompt := BuildPrompt(req)

	var rawJSON string
	result := retry.Do(ctx, retry.Config{
		MaxAttempts:  p.maxRetries + 1,
		InitialDelay: time.Duration(p.backoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(p.backoffMs*16) * time.Millisecond,
		Factor:       2,
		Jitter:       true,
	}, func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		raw, err := p.provider.Plan(callCtx, systemPrompt, userPrompt)
		if err != nil {
			return err
		}
		rawJSON = raw
		return nil
	})

	latency := time.Since(start).Milliseconds()
	if result.Err != nil {
		return model.TaskPlan{TaskDescription: req.TaskDescription, Success: false, Error: result.Err.Error(), LatencyMs: latency}
	}

	steps, err := parseSteps(rawJSON)
	if err != nil {
		return model.TaskPlan{TaskDescription: req.TaskDescription, Success: false, Error: err.Error(), RawResponse: rawJSON, LatencyMs: latency}
	}
	if len(steps) == 0 {
		return model.TaskPlan{TaskDescription: req.TaskDescription, Success: false, Error: "planner returned an empty plan", RawResponse: rawJSON, LatencyMs: latency}
	}
	if err := validateRules(steps); err != nil {
		return model.TaskPlan{TaskDescription: req.TaskDescription, Success: false, Error: err.Error(), RawResponse: rawJSON, LatencyMs: latency}
	}

	return model.TaskPlan{
		TaskDescription: req.TaskDescription,
		Steps:           steps,
		RawResponse:     rawJSON,
		Success:         true,
		LatencyMs:       latency,
	}
}

// parseSteps handles the same tolerant-decoding contract as the original
// task_planner.py's _extract_json: the reply may be a bare JSON array, or an
// object carrying the array under a "steps" key; either is accepted.
func parseSteps(raw string) ([]model.TaskStep, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return nil, fmt.Errorf("taskplanner: decode reply: %w", err)
	}

	arr, ok := decoded.([]any)
	if !ok {
		if obj, ok := decoded.(map[string]any); ok {
			if stepsVal, ok := obj["steps"].([]any); ok {
				arr = stepsVal
			}
		}
	}
	if arr == nil {
		return nil, fmt.Errorf("taskplanner: reply did not decode to a step array or {\"steps\": [...]}")
	}
	if err := wireschema.ValidatePlanReply(arr); err != nil {
		return nil, err
	}

	reencoded, err := json.Marshal(arr)
	if err != nil {
		return nil, fmt.Errorf("taskplanner: re-encode step array: %w", err)
	}

	type wireStep struct {
		ZoneID         string         `json:"zone_id"`
		ZoneLabel      string         `json:"zone_label,omitempty"`
		ActionType     string         `json:"action_type"`
		Parameters     map[string]any `json:"parameters,omitempty"`
		ExpectedChange string         `json:"expected_change,omitempty"`
		Description    string         `json:"description,omitempty"`
	}
	var wire []wireStep
	if err := json.Unmarshal(reencoded, &wire); err != nil {
		return nil, fmt.Errorf("taskplanner: decode step array: %w", err)
	}

	steps := make([]model.TaskStep, 0, len(wire))
	for i, w := range wire {
		steps = append(steps, model.TaskStep{
			StepNumber:     i,
			ZoneID:         w.ZoneID,
			ZoneLabel:      w.ZoneLabel,
			ActionType:     model.ActionKind(w.ActionType),
			Parameters:     w.Parameters,
			ExpectedChange: w.ExpectedChange,
			Description:    w.Description,
		})
	}
	return steps, nil
}

// validateRules enforces rule 2 of the wire contract at parse time: a
// planner that emits a CLICK with no real zone id has produced an invalid
// plan. Violations are surfaced to the Director as plan_invalid via the
// TaskPlan's Error field by the caller.
func validateRules(steps []model.TaskStep) error {
	for _, s := range steps {
		if s.ActionType == model.ActionClick && (s.ZoneID == "" || s.ZoneID == model.ZoneGlobal) {
			return fmt.Errorf("taskplanner: CLICK step %d carries no real zone id", s.StepNumber)
		}
	}
	return nil
}
