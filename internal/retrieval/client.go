// Package retrieval is the client for the transcript chunk-retrieval
// service. The service ranks transcript snippets for a channel against a
// free-text query; callers treat it as a black box and degrade to empty
// context when it fails.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout is the per-request timeout for chunk retrieval.
const DefaultTimeout = 30 * time.Second

// Chunk is one ranked transcript snippet.
type Chunk struct {
	MainChunk string `json:"main_chunk"`
}

// Retriever is the interface consumed by the engine; satisfied by Client
// and stubbed in tests.
type Retriever interface {
	RelevantChunks(ctx context.Context, query, channelID string, limit, contextWindow int) ([]Chunk, error)
}

// Client is an HTTP client for the retrieval service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type chunksRequest struct {
	Query         string `json:"query"`
	ChannelID     string `json:"channel_id"`
	Limit         int    `json:"limit"`
	ContextWindow int    `json:"context_window"`
}

type chunksResponse struct {
	Chunks []Chunk `json:"chunks"`
}

// RelevantChunks returns up to limit ranked snippets for the query.
func (c *Client) RelevantChunks(ctx context.Context, query, channelID string, limit, contextWindow int) ([]Chunk, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("retrieval: no endpoint configured")
	}

	body, err := json.Marshal(chunksRequest{
		Query:         query,
		ChannelID:     channelID,
		Limit:         limit,
		ContextWindow: contextWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chunks", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("retrieval: unexpected status %d: %s", resp.StatusCode, data)
	}

	var parsed chunksResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}

	return parsed.Chunks, nil
}
