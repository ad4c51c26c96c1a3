// Package ai hosts the language-model backend behind the classifier's model
// pass and the final answer generation. Everything here is best-effort: the
// rest of the service keeps working when the model is unreachable.
package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/wayfinderhq/wayfinder/backend/internal/config"
	"github.com/wayfinderhq/wayfinder/backend/internal/model/travel"
)

// Service wraps an eino chat chain for prompt-in, text-out reasoning.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	timeout   time.Duration
}

// NewService compiles the chat chain from configuration.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chat chain: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Service{chatModel: chatModel, chain: runnable, timeout: timeout}, nil
}

// Reason sends a raw prompt to the model and returns its text. The call is
// bounded by the configured timeout; callers treat any error as the model
// being unavailable for this turn.
func (s *Service) Reason(ctx context.Context, promptText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	response, err := s.chain.Invoke(ctx, map[string]any{
		"system": "You are a precise assistant. Follow the instructions exactly.",
		"query":  promptText,
	})
	if err != nil {
		return "", fmt.Errorf("run reasoning chain: %w", err)
	}
	return response.Content, nil
}

// Respond turns a resolved response plan into the user-facing answer using
// the per-intent prompt builders.
func (s *Service) Respond(ctx context.Context, plan travel.ResponsePlan) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	response, err := s.chain.Invoke(ctx, map[string]any{
		"system": systemPromptFor(plan.Intent),
		"query":  BuildResponsePrompt(plan),
	})
	if err != nil {
		return "", fmt.Errorf("run answer chain: %w", err)
	}

	log.Printf("[ai] generated answer for session=%s intent=%s length=%d",
		plan.SessionID, plan.Intent, len(response.Content))
	return response.Content, nil
}
