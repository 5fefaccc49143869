package extractor

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/intelligrit/wingstack/internal/metrics"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClient completes prompts with the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates an OpenAIClient using the OPENAI_API_KEY env var.
// baseURL overrides the API host when non-empty.
func NewOpenAIClient(model, baseURL string) (*OpenAIClient, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (o *OpenAIClient) Complete(ctx context.Context, p Prompt) (string, error) {
	temperature := float32(p.Temperature)
	if temperature == 0 {
		// The request field is omitempty; a zero would fall back to the
		// server default of 1.
		temperature = math.SmallestNonzeroFloat32
	}

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: temperature,
		MaxTokens:   p.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
	}
	if p.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from OpenAI")
	}

	metrics.TokensUsed.WithLabelValues("openai", "input").Add(float64(resp.Usage.PromptTokens))
	metrics.TokensUsed.WithLabelValues("openai", "output").Add(float64(resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}
