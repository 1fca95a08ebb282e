// Package apiclient is an HTTP client for the channelchat debate API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/channelchat/channelchat/internal/core"
)

// DefaultTimeout is the default HTTP request timeout. Turn requests
// block on text generation so this needs headroom.
const DefaultTimeout = 3 * time.Minute

// Client talks to a running channelchat server.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a new Client for the given server base URL.
func New(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    baseURL,
	}
}

// NewWithHTTPClient creates a Client with a custom http.Client (for testing).
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// DebateResponse is the server's reply for debate operations.
type DebateResponse struct {
	Debate *core.Debate       `json:"debate"`
	Turns  []*core.DebateTurn `json:"turns,omitempty"`
}

type actionRequest struct {
	Action     string `json:"action"`
	DebateID   string `json:"debateId,omitempty"`
	ChannelID1 string `json:"channelId1,omitempty"`
	ChannelID2 string `json:"channelId2,omitempty"`
	Topic      string `json:"topic,omitempty"`
	Content    string `json:"content,omitempty"`
}

// Initialize creates a new debate between two channels.
func (c *Client) Initialize(ctx context.Context, channelID1, channelID2, topic string) (*DebateResponse, error) {
	return c.postAction(ctx, actionRequest{
		Action:     "initialize",
		ChannelID1: channelID1,
		ChannelID2: channelID2,
		Topic:      topic,
	})
}

// Turn advances the debate by one generated turn. Content is optional
// steering text for the next speaker.
func (c *Client) Turn(ctx context.Context, debateID, content string) (*DebateResponse, error) {
	return c.postAction(ctx, actionRequest{
		Action:   "turn",
		DebateID: debateID,
		Content:  content,
	})
}

// Conclude generates closing summaries for both channels.
func (c *Client) Conclude(ctx context.Context, debateID string) (*DebateResponse, error) {
	return c.postAction(ctx, actionRequest{
		Action:   "conclude",
		DebateID: debateID,
	})
}

// GenerateTopics asks the server for debate topic suggestions.
func (c *Client) GenerateTopics(ctx context.Context, channelID1, channelID2 string) ([]core.Topic, error) {
	body, err := json.Marshal(actionRequest{
		Action:     "generateTopics",
		ChannelID1: channelID1,
		ChannelID2: channelID2,
	})
	if err != nil {
		return nil, fmt.Errorf("apiclient: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, "/api/debate", body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Topics []core.Topic `json:"topics"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("apiclient: %w", err)
	}
	return resp.Topics, nil
}

// GetDebate fetches the current debate state and its turns.
func (c *Client) GetDebate(ctx context.Context, debateID string) (*DebateResponse, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/debate?id="+url.QueryEscape(debateID), nil)
	if err != nil {
		return nil, err
	}

	var resp DebateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("apiclient: %w", err)
	}
	return &resp, nil
}

func (c *Client) postAction(ctx context.Context, req actionRequest) (*DebateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("apiclient: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, "/api/debate", body)
	if err != nil {
		return nil, err
	}

	var resp DebateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("apiclient: %w", err)
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("apiclient: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apiclient: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("apiclient: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, data)
	}
	return data, nil
}

// statusError maps HTTP status codes back onto the service error
// sentinels so callers can use errors.Is across the wire.
func statusError(code int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	message := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		message = payload.Error
	}
	if message == "" {
		message = http.StatusText(code)
	}

	switch code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", core.ErrNotFound, message)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", core.ErrInvalidParameters, message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", core.ErrInvalidState, message)
	case http.StatusBadGateway:
		return fmt.Errorf("%w: %s", core.ErrGenerationFailed, message)
	default:
		return fmt.Errorf("apiclient: server returned %d: %s", code, message)
	}
}
