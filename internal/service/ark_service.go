package service

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	cfg "github.com/maheshrc27/walk-gallery/configs"
)

// ArkService writes poems with a Volcengine Ark chat model.
type ArkService struct {
	chatModel model.BaseChatModel
}

func NewArkService(ctx context.Context, c cfg.Generation) (*ArkService, error) {
	timeout := c.Timeout
	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:   c.Ark.BaseURL,
		Region:    c.Ark.Region,
		APIKey:    c.Ark.APIKey,
		AccessKey: c.Ark.AccessKey,
		SecretKey: c.Ark.SecretKey,
		Model:     c.Ark.Model,
		Timeout:   &timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ark chat model: %w", err)
	}
	return &ArkService{chatModel: chatModel}, nil
}

func NewArkServiceWithModel(chatModel model.BaseChatModel) *ArkService {
	return &ArkService{chatModel: chatModel}
}

func (s *ArkService) Generate(ctx context.Context, words []string) (string, error) {
	msg, err := s.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(poemSystemPrompt),
		schema.UserMessage(buildPoemPrompt(words)),
	})
	if err != nil {
		return "", fmt.Errorf("ark generate: %w", err)
	}
	if msg == nil {
		return "", fmt.Errorf("ark generate: empty response")
	}
	return cleanPoem(msg.Content)
}
