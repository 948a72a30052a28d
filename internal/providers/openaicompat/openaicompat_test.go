package openaicompat

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestFirstChoiceReturnsContentOfFirstChoice(t *testing.T) {
	resp := openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "first"}},
			{Message: openai.ChatCompletionMessage{Content: "second"}},
		},
	}
	if got := firstChoice(resp); got != "first" {
		t.Errorf("firstChoice() = %q, want %q", got, "first")
	}
}

func TestFirstChoiceEmptyChoicesReturnsEmptyString(t *testing.T) {
	if got := firstChoice(openai.ChatCompletionResponse{}); got != "" {
		t.Errorf("firstChoice() on no choices = %q, want empty string", got)
	}
}

func TestNewDefaultsModelWhenUnset(t *testing.T) {
	c := New(Config{APIKey: "test-key"})
	if c.model != DefaultModel {
		t.Errorf("model = %q, want default %q", c.model, DefaultModel)
	}
}

func TestNewHonorsExplicitModel(t *testing.T) {
	c := New(Config{APIKey: "test-key", Model: "gpt-4o-mini"})
	if c.model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", c.model)
	}
}
