// Package bedrock adapts AWS Bedrock's InvokeModel API to the
// vision.Provider and taskplanner.Provider contracts. Credential and region
// resolution follows the teacher's bedrock discovery client: explicit
// static credentials if supplied, otherwise the default AWS credential
// chain.
package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/ciuagent/ciuagent/model"
)

// Config configures the Bedrock-backed provider.
type Config struct {
	Region          string
	ModelID         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// DefaultModelID is used when Config.ModelID is empty.
const DefaultModelID = "anthropic.claude-3-5-sonnet-20241022-v2:0"

// Client implements both vision.Provider and taskplanner.Provider against
// Bedrock-hosted Anthropic models via the Messages-compatible InvokeModel
// body.
type Client struct {
	api     *bedrockruntime.Client
	modelID string
}

// New builds a Client, resolving AWS credentials the way the teacher's
// discovery client does: explicit static keys when supplied, otherwise the
// default provider chain (environment, shared config, instance role).
func New(ctx context.Context, cfg Config) (*Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = DefaultModelID
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: load AWS config: %w", err)
	}

	return &Client{
		api:     bedrockruntime.NewFromConfig(awsCfg),
		modelID: modelID,
	}, nil
}

// anthropicInvokeBody mirrors Bedrock's Anthropic Messages-compatible
// request body.
type anthropicInvokeBody struct {
	AnthropicVersion string                   `json:"anthropic_version"`
	MaxTokens        int                      `json:"max_tokens"`
	System           string                   `json:"system,omitempty"`
	Messages         []map[string]any         `json:"messages"`
}

type anthropicInvokeReply struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// AnalyzeFrame satisfies vision.Provider.
func (c *Client) AnalyzeFrame(ctx context.Context, frame model.Frame, screenW, screenH int, contextHint string) (string, error) {
	if len(frame.Pixels) == 0 {
		return "", fmt.Errorf("bedrock: empty frame")
	}
	prompt := fmt.Sprintf(
		"Screen is %dx%d logical pixels. %s\nReturn a JSON array of zone records with fields "+
			"{id, label, kind, state, bounds:{x,y,w,h}, confidence, parent_id?}. "+
			"Respond with only the JSON array.",
		screenW, screenH, contextHint,
	)
	encoded := base64.StdEncoding.EncodeToString(frame.Pixels)

	body := anthropicInvokeBody{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        4096,
		Messages: []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "image", "source": map[string]any{"type": "base64", "media_type": "image/png", "data": encoded}},
					{"type": "text", "text": prompt},
				},
			},
		},
	}
	return c.invoke(ctx, body)
}

// Plan satisfies taskplanner.Provider.
func (c *Client) Plan(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body := anthropicInvokeBody{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        4096,
		System:           systemPrompt,
		Messages: []map[string]any{
			{"role": "user", "content": userPrompt},
		},
	}
	return c.invoke(ctx, body)
}

func (c *Client) invoke(ctx context.Context, body anthropicInvokeBody) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		ContentType: strPtr("application/json"),
		Body:        payload,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke model: %w", err)
	}

	var reply anthropicInvokeReply
	if err := json.Unmarshal(out.Body, &reply); err != nil {
		return "", fmt.Errorf("bedrock: decode reply: %w", err)
	}
	var text string
	for _, block := range reply.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

func strPtr(s string) *string { return &s }
