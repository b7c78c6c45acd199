// Package formatter produces draft notes from visit transcripts using the
// OpenAI API, seeding the prompt with rules the revisor has learned from the
// clinician's past edits.
package formatter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/clinscribe/revisor/internal/advisor"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

type Client struct {
	client oai.Client
	model  string
}

// New constructs a formatter client.
func New(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("formatter: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	client := oai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
	)
	return &Client{client: client, model: model}, nil
}

// Format turns a raw transcript into a structured draft note. Advice from
// learned rules is injected as clinician formatting preferences.
func (c *Client) Format(ctx context.Context, transcript string, advice []advisor.SectionAdvice) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(buildPrompt(transcript, advice)),
		},
		Temperature: param.NewOpt(0.2),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("formatter: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("formatter: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
