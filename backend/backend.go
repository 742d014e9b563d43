// Package backend implements [dcbev.Source] for the DCBEV assistant
// backend. Chat replies arrive over a text/event-stream HTTP response;
// each data line carries a JSON content fragment, and the reserved token
// [DONE] marks normal end-of-stream. The line reader turns the response
// body into the pull-based [dcbev.Stream] interface.
package backend

import "time"

const (
	defaultBaseURL = "http://localhost:8000"

	chatPath          = "/api/ai/chat"
	chatStreamPath    = "/api/ai/chat/stream"
	healthPath        = "/api/ai/health"
	conversationsPath = "/api/ai/conversations"

	dataPrefix   = "data: "
	doneSentinel = "[DONE]"

	// The stream itself may stay open for minutes; only the wait for
	// response headers is bounded by default.
	defaultHeaderTimeout = 30 * time.Second
)

// chatPayload is the JSON body sent to the chat endpoints.
type chatPayload struct {
	Message        string         `json:"message"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Context        map[string]any `json:"dealership_context,omitempty"`
}

// streamChunk is the JSON payload of one SSE data line.
type streamChunk struct {
	Content string `json:"content"`
	Done    bool   `json:"done,omitempty"`
}

// chatResponse is the non-streaming chat reply.
type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
	Timestamp      string `json:"timestamp"`
}

// healthResponse is returned by the health endpoint.
type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

type conversationResponse struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
	Messages  []messageResponse `json:"messages"`
}

type messageResponse struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
	Tokens    int    `json:"tokens,omitempty"`
	Model     string `json:"model,omitempty"`
}

// errorResponse is the JSON body returned on non-2xx HTTP responses.
type errorResponse struct {
	Detail string `json:"detail"`
}
