// Package openai is a minimal client for the OpenAI chat completions and
// embeddings endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultTimeout        = 120 * time.Second
)

// ErrMissingAPIKey is returned on first use when no key was configured.
var ErrMissingAPIKey = errors.New("openai: API key is not set")

// Config holds configuration for the OpenAI client.
type Config struct {
	// APIKey is sent as a bearer token. An empty key fails at request time, not here.
	APIKey string

	// BaseURL is the API base URL. Can point at any compatible server.
	BaseURL string

	// HTTPClient overrides the default client, e.g. to add request logging.
	HTTPClient *http.Client

	Timeout time.Duration
}

// Client talks to the OpenAI HTTP API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// apiError is the error envelope OpenAI returns.
type apiError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewClient creates a client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{http: hc, baseURL: cfg.BaseURL, apiKey: cfg.APIKey}
}

// post sends body as JSON to path and decodes the reply into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e apiError
		if json.Unmarshal(data, &e) == nil && e.Error != nil {
			return fmt.Errorf("openai error (status %d): %s", resp.StatusCode, e.Error.Message)
		}
		return fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
