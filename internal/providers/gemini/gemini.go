// Package gemini adapts Google's Gemini API (google.golang.org/genai) to the
// vision.Provider and taskplanner.Provider contracts.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/ciuagent/ciuagent/model"
)

// Config configures the Gemini-backed provider.
type Config struct {
	APIKey string
	Model  string
}

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// Client implements both vision.Provider and taskplanner.Provider against
// the Gemini API.
type Client struct {
	api   *genai.Client
	model string
}

// New builds a Client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	api, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &Client{api: api, model: model}, nil
}

// AnalyzeFrame satisfies vision.Provider.
func (c *Client) AnalyzeFrame(ctx context.Context, frame model.Frame, screenW, screenH int, contextHint string) (string, error) {
	if len(frame.Pixels) == 0 {
		return "", fmt.Errorf("gemini: empty frame")
	}
	prompt := fmt.Sprintf(
		"Screen is %dx%d logical pixels. %s\nReturn a JSON array of zone records with fields "+
			"{id, label, kind, state, bounds:{x,y,w,h}, confidence, parent_id?}. "+
			"Respond with only the JSON array.",
		screenW, screenH, contextHint,
	)

	parts := []*genai.Part{
		genai.NewPartFromBytes(frame.Pixels, "image/png"),
		genai.NewPartFromText(prompt),
	}
	resp, err := c.api.Models.GenerateContent(ctx, c.model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini: vision call: %w", err)
	}
	return resp.Text(), nil
}

// Plan satisfies taskplanner.Provider.
func (c *Client) Plan(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	resp, err := c.api.Models.GenerateContent(ctx, c.model, []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: plan call: %w", err)
	}
	return resp.Text(), nil
}
