package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	cfg "github.com/maheshrc27/walk-gallery/configs"
	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIService writes poems with the chat completions API. The SDK's own
// retries are off; a failed call is retried on a later render, if at all.
type OpenAIService struct {
	client openaigo.Client
	model  string
}

func NewOpenAIService(c cfg.Generation) *OpenAIService {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(c.OpenAI.APIKey)),
		option.WithMaxRetries(0),
	}
	if c.OpenAI.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(c.OpenAI.BaseURL, "/")))
	}
	if c.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(c.Timeout))
	} else {
		opts = append(opts, option.WithRequestTimeout(30*time.Second))
	}

	model := strings.TrimSpace(c.OpenAI.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIService{client: openaigo.NewClient(opts...), model: model}
}

func (s *OpenAIService) Generate(ctx context.Context, words []string) (string, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(s.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(poemSystemPrompt),
			openaigo.UserMessage(buildPoemPrompt(words)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: no choices returned")
	}
	return cleanPoem(resp.Choices[0].Message.Content)
}
