package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dealerscloud/dcbev"
)

// Interface compliance check.
var _ dcbev.Source = (*Client)(nil)

// Client talks to the DCBEV assistant backend. Authentication itself is
// handled elsewhere; the client only attaches an already-obtained bearer
// token to each request.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. Connection and read timeouts
// belong to its transport; the default transport bounds only the wait for
// response headers so streams can stay open indefinitely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a Client for the given base URL. An empty baseURL falls back
// to the local development backend.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: defaultHeaderTimeout},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stream opens a streaming chat turn and returns a [dcbev.Stream] of
// content fragments. A non-success status terminates before any fragment
// is produced, with a [*dcbev.StatusError] carrying the status and message.
func (c *Client) Stream(ctx context.Context, req dcbev.ChatRequest) (dcbev.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}

	body, err := json.Marshal(chatPayload{
		Message:        req.Message,
		ConversationID: req.ConversationID,
		Context:        req.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatStreamPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	return newStream(ctx, resp.Body), nil
}

// Chat sends a single-shot, non-streaming chat turn.
func (c *Client) Chat(ctx context.Context, req dcbev.ChatRequest) (dcbev.Message, error) {
	if err := req.Validate(); err != nil {
		return dcbev.Message{}, fmt.Errorf("backend: %w", err)
	}

	var out chatResponse
	payload := chatPayload{Message: req.Message, ConversationID: req.ConversationID, Context: req.Context}
	if err := c.do(ctx, http.MethodPost, chatPath, payload, &out); err != nil {
		return dcbev.Message{}, err
	}

	msg := dcbev.NewAssistantMessage(out.ConversationID)
	msg.Content = out.Response
	msg.Streaming = false
	if ts, err := time.Parse(time.RFC3339, out.Timestamp); err == nil {
		msg.CreatedAt = ts
	}
	return msg, nil
}

// Health fetches the backend health document.
func (c *Client) Health(ctx context.Context) (status, version string, err error) {
	var out healthResponse
	if err := c.do(ctx, http.MethodGet, healthPath, nil, &out); err != nil {
		return "", "", err
	}
	return out.Status, out.Version, nil
}

// Healthy reports whether the backend answers its health endpoint with a
// healthy status. Transport errors read as "not healthy".
func (c *Client) Healthy(ctx context.Context) bool {
	status, _, err := c.Health(ctx)
	return err == nil && status == "healthy"
}

// Conversation fetches the message history of one conversation.
func (c *Client) Conversation(ctx context.Context, conversationID string) ([]dcbev.Message, error) {
	var out conversationResponse
	if err := c.do(ctx, http.MethodGet, conversationsPath+"/"+conversationID, nil, &out); err != nil {
		return nil, err
	}
	return convertMessages(out), nil
}

// Conversations lists the ids and titles of all stored conversations.
func (c *Client) Conversations(ctx context.Context) (map[string]string, error) {
	var out []conversationResponse
	if err := c.do(ctx, http.MethodGet, conversationsPath, nil, &out); err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(out))
	for _, conv := range out {
		titles[conv.ID] = conv.Title
	}
	return titles, nil
}

// do runs one JSON request/response round trip.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("backend: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseHTTPError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func convertMessages(conv conversationResponse) []dcbev.Message {
	msgs := make([]dcbev.Message, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		sender, ok := dcbev.ParseSender(m.Sender)
		if !ok {
			sender = dcbev.SenderSystem
		}
		msg := dcbev.Message{
			ID:             m.ID,
			ConversationID: conv.ID,
			Content:        m.Content,
			Sender:         sender,
			Tokens:         m.Tokens,
			Model:          m.Model,
		}
		if ts, err := time.Parse(time.RFC3339, m.Timestamp); err == nil {
			msg.CreatedAt = ts
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backend: %w", &dcbev.StatusError{Code: resp.StatusCode, Message: "failed to read error body"})
	}
	var apiErr errorResponse
	if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Detail != "" {
		return fmt.Errorf("backend: %w", &dcbev.StatusError{Code: resp.StatusCode, Message: apiErr.Detail})
	}
	return fmt.Errorf("backend: %w", &dcbev.StatusError{Code: resp.StatusCode, Message: string(bytes.TrimSpace(body))})
}
