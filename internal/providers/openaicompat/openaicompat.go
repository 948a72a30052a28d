// Package openaicompat adapts OpenAI and OpenAI-compatible chat-completion
// APIs (OpenAI itself, or any self-hosted/proxy endpoint speaking the same
// wire format) to the vision.Provider and taskplanner.Provider contracts.
// Adapted from the teacher's Venice provider, which wrapped the same
// go-openai client around a privacy-focused OpenAI-compatible proxy; this
// version generalizes that wrapper to any compatible base URL.
package openaicompat

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ciuagent/ciuagent/model"
)

// Config configures the OpenAI-compatible provider.
type Config struct {
	// APIKey is the bearer token for the endpoint.
	APIKey string
	// BaseURL overrides the default https://api.openai.com/v1 endpoint,
	// e.g. to point at a self-hosted or proxy-compatible service.
	BaseURL string
	// Model is the chat model to request.
	Model string
}

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o"

// Client implements both vision.Provider and taskplanner.Provider against
// any OpenAI-compatible chat completion endpoint.
type Client struct {
	api   *openai.Client
	model string
}

// New builds a Client.
func New(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	oaiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(oaiCfg),
		model: model,
	}
}

// AnalyzeFrame satisfies vision.Provider.
func (c *Client) AnalyzeFrame(ctx context.Context, frame model.Frame, screenW, screenH int, contextHint string) (string, error) {
	if len(frame.Pixels) == 0 {
		return "", fmt.Errorf("openaicompat: empty frame")
	}
	encoded := base64.StdEncoding.EncodeToString(frame.Pixels)
	dataURL := "data:image/png;base64," + encoded

	prompt := fmt.Sprintf(
		"Screen is %dx%d logical pixels. %s\nReturn a JSON array of zone records with fields "+
			"{id, label, kind, state, bounds:{x,y,w,h}, confidence, parent_id?}. "+
			"Respond with only the JSON array.",
		screenW, screenH, contextHint,
	)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openaicompat: vision call: %w", err)
	}
	return firstChoice(resp), nil
}

// Plan satisfies taskplanner.Provider.
func (c *Client) Plan(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openaicompat: plan call: %w", err)
	}
	return firstChoice(resp), nil
}

func firstChoice(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}
