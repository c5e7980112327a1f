package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/clauselens/backend/config"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrGenerationUnavailable is the single opaque condition every gateway
// failure maps to. Callers decide whether and how to retry.
var ErrGenerationUnavailable = errors.New("generation service unavailable")

// Generator sends a conversation to the hosted text-generation backend and
// returns the textual reply. Implementations perform no retries and no JSON
// handling; that belongs to the caller.
type Generator interface {
	Generate(ctx context.Context, system string, turns []ChatTurn, maxTokens int64) (string, error)
}

// OpenAIGenerator is the chat-completions implementation of Generator.
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

func NewOpenAIGenerator(cfg *config.LLMConfig) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, system string, turns []ChatTurn, maxTokens int64) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, turn := range turns {
		switch turn.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(g.model),
		Messages:  messages,
		MaxTokens: openai.Int(maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in reply", ErrGenerationUnavailable)
	}

	return completion.Choices[0].Message.Content, nil
}
