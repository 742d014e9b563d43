// Package json persists conversation transcripts as versioned JSON files.
package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dealerscloud/dcbev"
)

// envelope is the v1 wire format for a persisted transcript.
type envelope struct {
	Version        int          `json:"version"`
	ConversationID string       `json:"conversation_id"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	Messages       []messageDTO `json:"messages"`
}

type messageDTO struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Feedback  string    `json:"feedback,omitempty"`
	Tokens    int       `json:"tokens,omitempty"`
	Model     string    `json:"model,omitempty"`
}

// MarshalTranscript serializes a Transcript to JSON in v1 envelope format.
func MarshalTranscript(t dcbev.Transcript) ([]byte, error) {
	env := envelope{
		Version:        1,
		ConversationID: t.ConversationID,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		Messages:       make([]messageDTO, len(t.Messages)),
	}
	for i, msg := range t.Messages {
		env.Messages[i] = messageDTO{
			ID:        msg.ID,
			Sender:    string(msg.Sender),
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
			Feedback:  msg.Feedback,
			Tokens:    msg.Tokens,
			Model:     msg.Model,
		}
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalTranscript deserializes a Transcript from JSON in v1 envelope format.
func UnmarshalTranscript(data []byte) (dcbev.Transcript, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return dcbev.Transcript{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return dcbev.Transcript{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	msgs := make([]dcbev.Message, len(env.Messages))
	for i, dto := range env.Messages {
		sender, ok := dcbev.ParseSender(dto.Sender)
		if !ok {
			return dcbev.Transcript{}, fmt.Errorf("message %d: unknown sender %q", i, dto.Sender)
		}
		msgs[i] = dcbev.Message{
			ID:             dto.ID,
			ConversationID: env.ConversationID,
			Sender:         sender,
			Content:        dto.Content,
			CreatedAt:      dto.CreatedAt,
			Feedback:       dto.Feedback,
			Tokens:         dto.Tokens,
			Model:          dto.Model,
		}
	}
	return dcbev.Transcript{
		ConversationID: env.ConversationID,
		CreatedAt:      env.CreatedAt,
		UpdatedAt:      env.UpdatedAt,
		Messages:       msgs,
	}, nil
}

// Save writes a Transcript to a JSON file, creating parent directories as
// needed. The write goes through a temp file so a crash never leaves a
// half-written transcript behind.
func Save(path string, t dcbev.Transcript) error {
	data, err := MarshalTranscript(t)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a Transcript from a JSON file.
func Load(path string) (dcbev.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dcbev.Transcript{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalTranscript(data)
}
