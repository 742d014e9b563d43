package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dealerscloud/dcbev"
)

// stream implements [dcbev.Stream] by reading SSE data lines from an HTTP
// response body.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	ctx     context.Context
	state   dcbev.StreamState
	err     error // terminal error, if any
}

// Interface compliance check.
var _ dcbev.Stream = (*stream)(nil)

func newStream(ctx context.Context, body io.ReadCloser) *stream {
	return &stream{
		body:    body,
		scanner: bufio.NewScanner(body),
		ctx:     ctx,
		state:   dcbev.StreamStateNew,
	}
}

// Next reads the next content fragment from the stream. It returns io.EOF
// on normal completion: the [DONE] sentinel or plain end of the response
// body. Empty fragments are never returned.
func (s *stream) Next() (string, error) {
	switch s.state {
	case dcbev.StreamStateComplete:
		return "", io.EOF
	case dcbev.StreamStateError:
		return "", s.err
	case dcbev.StreamStateClosed:
		return "", fmt.Errorf("backend: %w", dcbev.ErrStreamClosed)
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// Only data lines matter; comments, heartbeats and event-type
		// lines pass through silently.
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		s.state = dcbev.StreamStateStreaming

		data := strings.TrimPrefix(line, dataPrefix)
		if data == doneSentinel {
			s.state = dcbev.StreamStateComplete
			return "", io.EOF
		}
		if data == "" {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Unparseable payload is surfaced verbatim rather than
			// dropped; the backend occasionally emits plain text.
			return data, nil
		}
		if chunk.Done {
			s.state = dcbev.StreamStateComplete
			if chunk.Content != "" {
				return chunk.Content, nil
			}
			return "", io.EOF
		}
		if chunk.Content == "" {
			continue
		}
		return chunk.Content, nil
	}

	if err := s.scanner.Err(); err != nil {
		s.state = dcbev.StreamStateError
		if s.ctx.Err() != nil {
			s.err = fmt.Errorf("backend: %w", s.ctx.Err())
		} else {
			s.err = fmt.Errorf("backend: %w", err)
		}
		return "", s.err
	}

	// Body exhausted without the sentinel: the backend closed the
	// response cleanly, which also ends the turn.
	s.state = dcbev.StreamStateComplete
	return "", io.EOF
}

// State returns the current stream state.
func (s *stream) State() dcbev.StreamState {
	return s.state
}

// Close releases the underlying response body. It is called on every exit
// path: completion, sentinel, error, and external cancellation.
func (s *stream) Close() error {
	if s.state != dcbev.StreamStateComplete && s.state != dcbev.StreamStateError {
		s.state = dcbev.StreamStateClosed
	}
	return s.body.Close()
}
