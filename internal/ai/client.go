// Package ai is the client for the external chat/generation service. The
// service is opaque: one endpoint carries a clarification dialogue, the
// other returns a full form suggestion that internal/wire decodes.
package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// APIError reports a non-2xx response from the AI service.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ai %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Client talks to the AI service. The base URL is read through a getter so
// a config reload takes effect on the next request.
type Client struct {
	baseURL func() string
	http    *http.Client
}

// New creates a client.
func New(baseURL func() string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// ChatReply is one turn of the clarification dialogue.
type ChatReply struct {
	ConversationID string `json:"conversation_id"`
	Question       string `json:"question"`
}

type chatRequest struct {
	ConversationID string          `json:"conversation_id,omitempty"`
	Prompt         string          `json:"prompt,omitempty"`
	Context        string          `json:"context,omitempty"`
	CurrentForm    json.RawMessage `json:"currentForm,omitempty"`
}

func (c *Client) post(ctx context.Context, op, path string, body chatRequest) ([]byte, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ai %s: encoding body: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+path, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("ai %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ai %s: %w", op, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ai %s: reading response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

// Chat sends one dialogue turn. An empty conversationID starts a new
// conversation; currentForm, when non-nil, gives the service the form being
// edited as context.
func (c *Client) Chat(ctx context.Context, conversationID, prompt string, currentForm json.RawMessage) (ChatReply, error) {
	data, err := c.post(ctx, "chat", "/chat", chatRequest{
		ConversationID: conversationID,
		Prompt:         prompt,
		CurrentForm:    currentForm,
	})
	if err != nil {
		return ChatReply{}, err
	}
	var reply ChatReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return ChatReply{}, fmt.Errorf("ai chat: decoding response: %w", err)
	}
	return reply, nil
}

// Generate asks the service for a full form suggestion. The raw payload is
// returned so the wire decode path sees it byte for byte.
func (c *Client) Generate(ctx context.Context, conversationID, context_ string, currentForm json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, "generate", "/generate", chatRequest{
		ConversationID: conversationID,
		Context:        context_,
		CurrentForm:    currentForm,
	})
}
