package dcbev

import (
	"fmt"
	"strings"
)

// ChatRequest carries one user turn to the backend.
type ChatRequest struct {
	Message        string
	ConversationID string         // "" = backend starts a new conversation
	Context        map[string]any // optional dealership context, passed through verbatim
}

// Validate checks universal constraints on ChatRequest. Blank message
// content is rejected before any network or state work happens.
func (r ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("message must not be blank: %w", ErrValidation)
	}
	return nil
}
