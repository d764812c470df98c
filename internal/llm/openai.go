package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIOracle implements the Oracle interface over the Chat Completions API.
// Also serves OpenAI-compatible endpoints (Ollama, vLLM) via BaseURL.
type OpenAIOracle struct {
	client *openai.Client
	config Config
}

// NewOpenAIOracle creates a new OpenAI-backed oracle
func NewOpenAIOracle(config Config) (*OpenAIOracle, error) {
	if config.APIKey == "" && config.BaseURL == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIOracle{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Name returns the provider name
func (o *OpenAIOracle) Name() string {
	return "openai"
}

// Classify decomposes one assertion via the chat API
func (o *OpenAIOracle) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	content, err := o.complete(ctx, BuildClassifyPrompt(req),
		"You are a precise taxonomy classifier. Respond with JSON only.")
	if err != nil {
		return nil, err
	}

	var resp ClassifyResponse
	if err := json.Unmarshal([]byte(stripFences(content)), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &resp, nil
}

// Verify checks one claim via the chat API
func (o *OpenAIOracle) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	content, err := o.complete(ctx, BuildVerifyPrompt(req),
		"You are a strict grounding verifier. Respond with JSON only.")
	if err != nil {
		return nil, err
	}

	var resp VerifyResponse
	if err := json.Unmarshal([]byte(stripFences(content)), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &resp, nil
}

// complete runs one chat completion with deterministic parameters
func (o *OpenAIOracle) complete(ctx context.Context, prompt, system string) (string, error) {
	model := o.config.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	timeout := o.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		// Temperature 0 and seeded sampling: oracle calls must be as
		// deterministic as the provider allows (idempotent re-runs).
		Temperature: 0,
		Seed:        intPtr(0),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctxWithTimeout.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrOracleTimeout, err)
		}
		return "", fmt.Errorf("oracle API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON in one
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

func intPtr(v int) *int {
	return &v
}
