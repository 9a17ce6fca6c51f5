package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// invitationalFallback is substituted when the completion call succeeds but
// stripping the echoed prompt leaves nothing.
const invitationalFallback = "I'm here to support you. Could you share more about what you're experiencing?"

// OpenModel is the adapter for the hosted open-model backend, reached through
// an OpenAI-compatible inference API. It tries a single-prompt text completion
// first and falls back once to a multi-turn chat completion.
type OpenModel struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenModel creates the open-model adapter. A nil client is returned as an
// unconfigured adapter when the credential is absent.
func NewOpenModel(apiKey, model, baseURL string, timeout time.Duration) *OpenModel {
	m := &OpenModel{
		model:   model,
		timeout: timeout,
	}
	if apiKey == "" {
		return m
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	m.client = openai.NewClientWithConfig(cfg)
	return m
}

// Configured reports whether a credential was provided.
func (m *OpenModel) Configured() bool {
	return m.client != nil
}

// Name returns the provider name.
func (m *OpenModel) Name() string {
	return "open_model"
}

// Attempt runs the two call styles in order and returns a tagged result.
// Errors never propagate past this boundary; both styles failing yields a
// failed result so the orchestrator generates directly via the next provider.
func (m *OpenModel) Attempt(ctx context.Context, req Request) Result {
	if !m.Configured() {
		return Unavailable()
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	text, primaryErr := m.complete(ctx, req)
	if primaryErr == nil {
		return Success(text)
	}

	text, chatErr := m.chatComplete(ctx, req)
	if chatErr != nil {
		return Failed(fmt.Errorf("completion: %v; chat completion: %w", primaryErr, chatErr))
	}
	return Success(text)
}

func (m *OpenModel) complete(ctx context.Context, req Request) (string, error) {
	prompt := completionPrompt(req)

	resp, err := m.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       m.model,
		Prompt:      prompt,
		MaxTokens:   500,
		Temperature: 0.7,
		TopP:        0.95,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Text == "" {
		return "", errors.New("no generated text in completion response")
	}

	// Completion-style endpoints echo the prompt; keep only the remainder.
	generated := strings.TrimSpace(strings.TrimPrefix(resp.Choices[0].Text, prompt))
	if generated == "" {
		return invitationalFallback, nil
	}
	return generated, nil
}

func (m *OpenModel) chatComplete(ctx context.Context, req Request) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: supportInstructions},
			{Role: openai.ChatMessageRoleUser, Content: chatUserContent(req)},
		},
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("no generated text in chat response")
	}
	return resp.Choices[0].Message.Content, nil
}
