package textgen

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
)

const (
	// maxResponseSize bounds how much of an upstream body is read (2MB).
	maxResponseSize = 2 * 1024 * 1024

	// DefaultTimeout is the default per-request timeout.
	DefaultTimeout = 2 * time.Minute

	// DefaultMaxTokens caps output length per generation call.
	DefaultMaxTokens = 1024
)

// Config holds configuration for the HTTP generation client.
type Config struct {
	Name       string
	BaseURL    string
	APIKey     string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
}

// HTTPGenerator talks to an OpenAI-style chat-completions endpoint.
type HTTPGenerator struct {
	cfg        Config
	httpClient *http.Client

	// backoffFunc is replaceable for tests.
	backoffFunc func(attempt int) time.Duration
}

// NewHTTPGenerator creates a generator from configuration.
func NewHTTPGenerator(cfg Config) *HTTPGenerator {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &HTTPGenerator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		backoffFunc: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
	}
}

// Name returns the generator identifier.
func (g *HTTPGenerator) Name() string {
	return g.cfg.Name
}

// Available reports whether the client has an endpoint configured.
func (g *HTTPGenerator) Available() bool {
	return g.cfg.BaseURL != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends one prompt and returns the trimmed response text.
// Transient upstream failures (429, 5xx, network errors) are retried with
// exponential backoff up to MaxRetries.
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.Available() {
		return "", &ServiceError{Service: g.cfg.Name, Message: "no endpoint configured"}
	}

	body, err := json.Marshal(chatRequest{
		Model:     g.cfg.Model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: g.cfg.MaxTokens,
	})
	if err != nil {
		return "", &ServiceError{Service: g.cfg.Name, Message: "failed to encode request", Err: err}
	}

	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := g.backoffFunc(attempt)
			slog.Info("Retrying generation after backoff",
				"service", g.cfg.Name,
				"attempt", attempt+1,
				"backoff", backoff,
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := g.generateOnce(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !isRetriable(err) {
			return "", err
		}
		slog.Warn("Generation failed, will retry",
			"service", g.cfg.Name,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return "", fmt.Errorf("failed after %d attempts: %w", g.cfg.MaxRetries+1, lastErr)
}

func (g *HTTPGenerator) generateOnce(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &ServiceError{Service: g.cfg.Name, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &ServiceError{Service: g.cfg.Name, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &ServiceError{Service: g.cfg.Name, StatusCode: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ServiceError{
			Service:    g.cfg.Name,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, truncate(string(data), 200)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &ServiceError{Service: g.cfg.Name, StatusCode: resp.StatusCode, Message: "failed to decode response", Err: err}
	}
	if parsed.Error != nil {
		return "", &ServiceError{Service: g.cfg.Name, StatusCode: resp.StatusCode, Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return "", &ServiceError{Service: g.cfg.Name, StatusCode: resp.StatusCode, Message: "response contained no choices"}
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// isRetriable checks if an error is worth retrying.
func isRetriable(err error) bool {
	serviceErr, ok := err.(*ServiceError)
	if !ok {
		return false
	}
	if serviceErr.StatusCode == http.StatusTooManyRequests || serviceErr.StatusCode >= 500 {
		return true
	}
	// Network-level failures have no status code
	return serviceErr.StatusCode == 0 && serviceErr.Err != nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
