package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"LuminCredit/internal/model"
)

const (
	defaultChatBaseURL = "https://api.tokenfactory.nebius.com/v1"
	defaultChatModel   = "meta-llama/Llama-3.3-70B-Instruct-fast"
)

// ChatResolver talks to any OpenAI-compatible chat completions endpoint.
type ChatResolver struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxRetries  int
	Client      *http.Client

	fallback model.ImpactWeightSet
}

// NewChatResolver creates a resolver with optional proxy support.
func NewChatResolver(opts Options, policy model.Policy) (*ChatResolver, error) {
	client, err := httpClient(opts)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	base := opts.BaseURL
	if base == "" {
		base = defaultChatBaseURL
	}
	name := opts.Model
	if name == "" {
		name = defaultChatModel
	}
	return &ChatResolver{
		BaseURL:     strings.TrimRight(base, "/"),
		APIKey:      opts.APIKey,
		Model:       name,
		Temperature: opts.Temperature,
		MaxRetries:  opts.MaxRetries,
		Client:      client,
		fallback:    policy.Weights,
	}, nil
}

func (c *ChatResolver) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float32           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// retryableError marks failures worth another attempt.
type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

func (c *ChatResolver) Resolve(ctx context.Context, rec *model.UserFinancialRecord, provisional int) (model.ImpactWeightSet, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(rec, provisional)},
		},
		Temperature:    c.Temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return model.ImpactWeightSet{}, fmt.Errorf("chat: marshal request: %w", err)
	}

	var content string
	for attempt := 0; ; attempt++ {
		content, err = c.complete(ctx, body)
		if err == nil {
			break
		}
		var re retryableError
		if !errors.As(err, &re) || attempt >= c.MaxRetries {
			return model.ImpactWeightSet{}, err
		}
		backoff := time.Duration(1<<uint(attempt)) * 500 * time.Millisecond
		select {
		case <-ctx.Done():
			return model.ImpactWeightSet{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return parseWeights(content, c.fallback)
}

func (c *ChatResolver) complete(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chat: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", retryableError{fmt.Errorf("chat: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("chat: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("chat: status %d: %s", resp.StatusCode, string(raw))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", retryableError{err}
		}
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("chat: %w: %v", ErrMalformedReply, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat: %w: no choices", ErrMalformedReply)
	}
	return parsed.Choices[0].Message.Content, nil
}
