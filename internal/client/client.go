// Package client talks to a running docchat server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docchat/docchat/internal/chat"
	"github.com/docchat/docchat/internal/documents"
)

// Message is one stored chat message
type Message struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// UploadResult is the server's answer to an upload
type UploadResult struct {
	Success    bool      `json:"success"`
	DocumentID uuid.UUID `json:"documentId"`
	Chunks     int       `json:"chunks"`
	Skipped    bool      `json:"skipped"`
}

// Document is a stored document summary
type Document struct {
	ID         uuid.UUID      `json:"id"`
	Title      string         `json:"title"`
	Metadata   map[string]any `json:"metadata"`
	ChunkCount int            `json:"chunkCount"`
}

// Client wraps the HTTP interface
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. A nil httpClient gets a five minute timeout, long
// enough for a tool-augmented completion.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Complete sends a message. A nil conversationID starts a new conversation.
func (c *Client) Complete(ctx context.Context, message string, conversationID uuid.UUID) (*chat.Completion, error) {
	form := url.Values{}
	form.Set("message", message)
	if conversationID != uuid.Nil {
		form.Set("conversationId", conversationID.String())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out chat.Completion
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages lists a conversation's messages, oldest first
func (c *Client) Messages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/conversation/%s/messages", c.baseURL, conversationID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Upload sends a file for ingestion
func (c *Client) Upload(ctx context.Context, path string) (*UploadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	if mt := documents.MIMEType(path); mt != "" {
		h.Set("Content-Type", mt)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-file", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out UploadResult
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConversation removes a conversation and its messages
func (c *Client) DeleteConversation(ctx context.Context, conversationID uuid.UUID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/api/conversation/%s/delete", c.baseURL, conversationID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, nil)
}

// Documents lists the stored documents
func (c *Client) Documents(ctx context.Context) ([]Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/documents", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var out []Document
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
