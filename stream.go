package dcbev

import "context"

// StreamState indicates the current state of a Stream.
type StreamState int

const (
	StreamStateNew       StreamState = iota // Before Next() is ever called.
	StreamStateStreaming                    // Mid-stream, receiving deltas.
	StreamStateComplete                     // Next() returned io.EOF.
	StreamStateError                        // Next() returned non-EOF error.
	StreamStateClosed                       // Close() called before terminal state.
)

// Stream is a lazy, single-pass, forward-only sequence of content deltas
// using a pull-based iterator pattern. Cancellation flows through the
// context passed to Source.Stream().
//
// Next() returns the next non-empty fragment, io.EOF on normal completion
// (end-of-stream sentinel or socket exhaustion), or a terminal error for
// transport failures. After a terminal result every subsequent Next()
// repeats it.
//
// Close() releases the underlying connection and is safe to call on every
// exit path, including after a terminal state.
type Stream interface {
	Next() (string, error)
	State() StreamState
	Close() error
}

// Source opens streaming chat turns. It is a strategy interface so the
// reconciler can be driven by the HTTP backend or by test doubles.
type Source interface {
	Stream(ctx context.Context, req ChatRequest) (Stream, error)
}
