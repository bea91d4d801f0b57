package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vnykmshr/ideaflow/pkg/common/errors"
	"github.com/vnykmshr/ideaflow/pkg/common/validation"
)

// Completer sends a conversation to a chat model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error)
}

// CompleteOptions contains options for completion requests.
type CompleteOptions struct {
	Temperature float64
	MaxTokens   int
}

// DefaultCompleteOptions returns default options.
func DefaultCompleteOptions() CompleteOptions {
	return CompleteOptions{
		Temperature: 0.7,
		MaxTokens:   150,
	}
}

// ClientConfig configures a ChatClient.
type ClientConfig struct {
	// BaseURL is the API root; requests go to BaseURL + "/chat/completions".
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Model is passed through in every request.
	Model string

	// HTTPClient defaults to a client with a 60s timeout.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// ChatClient calls an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

// NewChatClient validates config and creates a ChatClient.
func NewChatClient(config ClientConfig) (*ChatClient, error) {
	if err := validation.ValidateNotEmpty("enrich", "base_url", config.BaseURL); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotEmpty("enrich", "model", config.Model); err != nil {
		return nil, err
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &ChatClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		model:   config.Model,
		client:  config.HTTPClient,
		logger:  config.Logger.With("model", config.Model),
	}, nil
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends messages and returns the trimmed content of the first choice.
func (c *ChatClient) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", errors.NewOperationError("enrich", "Complete", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errors.NewOperationError("enrich", "Complete", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.NewOperationError("enrich", "Complete", fmt.Errorf("%w: %w", errors.ErrEnrichment, err))
	}
	defer resp.Body.Close()

	c.logger.Debug("chat completion", "status", resp.StatusCode, "messages", len(messages), "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		cause := fmt.Errorf("%w: status %d", errors.ErrEnrichment, resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests {
			cause = fmt.Errorf("%w: %w", cause, errors.ErrRateLimited)
		}
		return "", errors.NewOperationError("enrich", "Complete", cause).
			WithContext(strings.TrimSpace(string(detail)))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.NewOperationError("enrich", "Complete", fmt.Errorf("%w: decode: %w", errors.ErrEnrichment, err))
	}
	if len(result.Choices) == 0 {
		return "", errors.NewOperationError("enrich", "Complete", fmt.Errorf("%w: no choices", errors.ErrEnrichment))
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
