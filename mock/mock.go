// Package mock provides test doubles for dcbev interfaces using function
// fields.
package mock

import (
	"context"

	"github.com/dealerscloud/dcbev"
)

// Interface compliance checks.
var (
	_ dcbev.Source = (*Source)(nil)
	_ dcbev.Stream = (*Stream)(nil)
)

// Source is a test double for dcbev.Source.
// Set StreamFn before calling Stream.
type Source struct {
	StreamFn func(ctx context.Context, req dcbev.ChatRequest) (dcbev.Stream, error)
}

// Stream delegates to StreamFn.
func (s *Source) Stream(ctx context.Context, req dcbev.ChatRequest) (dcbev.Stream, error) {
	return s.StreamFn(ctx, req)
}

// Stream is a test double for dcbev.Stream.
// Set the function fields for the methods you need. NextFn panics when nil
// to catch missing setup. StateFn and CloseFn are nil-safe (zero value and
// no-op) because test code commonly calls defer stream.Close() and these
// methods rarely need custom behavior.
type Stream struct {
	NextFn  func() (string, error)
	StateFn func() dcbev.StreamState
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (string, error) {
	return s.NextFn()
}

// State delegates to StateFn. Returns StreamStateNew when StateFn is nil.
func (s *Stream) State() dcbev.StreamState {
	if s.StateFn == nil {
		return dcbev.StreamStateNew
	}
	return s.StateFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}
