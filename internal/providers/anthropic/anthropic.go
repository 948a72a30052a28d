// Package anthropic adapts the Anthropic Messages API to the vision.Provider
// and taskplanner.Provider wire contracts.
package anthropic

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ciuagent/ciuagent/model"
)

// Config configures the Anthropic-backed provider.
type Config struct {
	APIKey string
	Model  string
}

// Client implements both vision.Provider and taskplanner.Provider against
// Anthropic's Messages API.
type Client struct {
	api   anthropic.Client
	model string
}

// New builds a Client.
func New(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	return &Client{
		api:   anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model: model,
	}
}

// AnalyzeFrame satisfies vision.Provider.
func (c *Client) AnalyzeFrame(ctx context.Context, frame model.Frame, screenW, screenH int, contextHint string) (string, error) {
	encoded, mediaType, err := encodeFrame(frame)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(
		"Screen is %dx%d logical pixels. %s\nReturn a JSON array of zone records with fields "+
			"{id, label, kind, state, bounds:{x,y,w,h}, confidence, parent_id?}. "+
			"Respond with only the JSON array.",
		screenW, screenH, contextHint,
	)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlock(anthropic.Base64ImageSourceParam{
					Data:      encoded,
					MediaType: anthropic.Base64ImageSourceMediaType(mediaType),
				}),
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: vision call: %w", err)
	}
	return textOf(msg), nil
}

// Plan satisfies taskplanner.Provider.
func (c *Client) Plan(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: plan call: %w", err)
	}
	return textOf(msg), nil
}

func textOf(msg *anthropic.Message) string {
	var out string
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			out += text.Text
		}
	}
	return out
}

func encodeFrame(f model.Frame) (data, mediaType string, err error) {
	if len(f.Pixels) == 0 {
		return "", "", fmt.Errorf("anthropic: empty frame")
	}
	return base64.StdEncoding.EncodeToString(f.Pixels), "image/png", nil
}
