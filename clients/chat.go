package clients

import (
	"context"
	"log/slog"

	"voxchat/models"

	"github.com/sashabaranov/go-openai"
)

type Chat struct {
	logger    *slog.Logger
	client    *openai.Client
	Model     string
	MaxTokens int
	SysPrompt string
}

func NewChat(logger *slog.Logger, opts Options, model string, maxTokens int, sysPrompt string) *Chat {
	if model == "" {
		model = models.DefaultChatModel
	}
	if maxTokens <= 0 {
		maxTokens = models.DefaultMaxTokens
	}
	return &Chat{
		logger:    logger,
		client:    newOpenAIClient(opts),
		Model:     model,
		MaxTokens: maxTokens,
		SysPrompt: sysPrompt,
	}
}

func (c *Chat) buildMessages(message string, history []models.Entry) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if c.SysPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.SysPrompt})
	}
	for _, e := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(e.Role), Content: e.Content})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})
}

// Complete sends message (after the optional history) and returns the first
// choice. A nil history is a stateless single-turn request.
func (c *Chat) Complete(ctx context.Context, message string, history []models.Entry) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.Model,
		Messages:  c.buildMessages(message, history),
		MaxTokens: c.MaxTokens,
	})
	if err != nil {
		c.logger.Error("fn: Complete", "error", err, "model", c.Model)
		return "", stageError(models.ErrCompletionFailed, err)
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn("no choices in response", "model", c.Model, "id", resp.ID)
		return "", &models.StageError{Kind: models.ErrCompletionFailed, Message: "no choices in response"}
	}
	text := resp.Choices[0].Message.Content
	c.logger.Debug("completion", "text-len", len(text), "finish_reason", resp.Choices[0].FinishReason,
		"total_tokens", resp.Usage.TotalTokens)
	return text, nil
}
