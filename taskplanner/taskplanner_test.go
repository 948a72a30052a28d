package taskplanner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ciuagent/ciuagent/model"
)

type fakeProvider struct {
	calls int
	reply string
	err   error
}

func (f *fakeProvider) Plan(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestPlanBareArrayReply(t *testing.T) {
	p := &fakeProvider{reply: `[{"zone_id":"z1","action_type":"CLICK"}]`}
	planner := New(p, nil, time.Second, 0, 0.001)

	plan := planner.Plan(context.Background(), Request{TaskDescription: "click the button"})
	if !plan.Success {
		t.Fatalf("expected success, got %+v", plan)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].ZoneID != "z1" {
		t.Fatalf("Steps = %+v, want one step targeting z1", plan.Steps)
	}
}

func TestPlanWrappedStepsObjectReply(t *testing.T) {
	p := &fakeProvider{reply: `{"steps":[{"zone_id":"z1","action_type":"CLICK"}]}`}
	planner := New(p, nil, time.Second, 0, 0.001)

	plan := planner.Plan(context.Background(), Request{TaskDescription: "click the button"})
	if !plan.Success {
		t.Fatalf("expected success for a {steps:[...]} wrapped reply, got %+v", plan)
	}
}

func TestPlanStripsMarkdownCodeFence(t *testing.T) {
	p := &fakeProvider{reply: "```json\n[{\"zone_id\":\"z1\",\"action_type\":\"CLICK\"}]\n```"}
	planner := New(p, nil, time.Second, 0, 0.001)

	plan := planner.Plan(context.Background(), Request{TaskDescription: "click the button"})
	if !plan.Success {
		t.Fatalf("expected success after stripping a markdown code fence, got %+v", plan)
	}
}

func TestPlanRejectsClickWithoutRealZoneID(t *testing.T) {
	p := &fakeProvider{reply: `[{"zone_id":"__global__","action_type":"CLICK"}]`}
	planner := New(p, nil, time.Second, 0, 0.001)

	plan := planner.Plan(context.Background(), Request{TaskDescription: "do something"})
	if plan.Success {
		t.Fatalf("a CLICK on __global__ should be rejected by rule 2, got %+v", plan)
	}
}

func TestPlanEmptyStepArrayIsFailure(t *testing.T) {
	p := &fakeProvider{reply: `[]`}
	planner := New(p, nil, time.Second, 0, 0.001)

	plan := planner.Plan(context.Background(), Request{TaskDescription: "do something"})
	if plan.Success {
		t.Fatalf("an empty plan should be reported as failure, got %+v", plan)
	}
}

func TestPlanProviderErrorIsFailure(t *testing.T) {
	p := &fakeProvider{err: errors.New("provider down")}
	planner := New(p, nil, time.Second, 1, 0.001)

	plan := planner.Plan(context.Background(), Request{TaskDescription: "do something"})
	if plan.Success {
		t.Fatalf("expected failure when the provider errors on every attempt, got %+v", plan)
	}
	if p.calls != 2 {
		t.Errorf("calls = %d, want 2 (maxRetries=1 means 2 attempts)", p.calls)
	}
}

func TestBuildPromptIncludesZonesAndCompletedSteps(t *testing.T) {
	req := Request{
		TaskDescription: "open settings",
		PlatformName:    "macos",
		Zones:           []ZoneSummary{{ID: "z1", Label: "Settings", Kind: model.ZoneKindButton, State: model.ZoneStateEnabled, CenterX: 10, CenterY: 20}},
		CompletedSteps:  []string{"clicked z0"},
	}
	prompt := BuildPrompt(req)
	for _, want := range []string{"open settings", "macos", "z1", "Settings", "clicked z0"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("BuildPrompt() missing %q in:\n%s", want, prompt)
		}
	}
}
