// Package chat reconciles streaming replies against conversation state.
// The Controller drives one turn at a time: it appends the user message,
// begins an assistant message, applies stream fragments in order, and
// settles the terminal state (completed, failed, or cancelled). All
// retries are explicit user actions; nothing retries automatically.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dealerscloud/dcbev"
	"github.com/dealerscloud/dcbev/store"
)

// Controller owns the single active stream for one conversation. A second
// Send while a stream is in flight is rejected with dcbev.ErrBusy; the
// store is only ever mutated from the active stream's consumption path.
type Controller struct {
	store   *store.Store
	source  dcbev.Source
	context map[string]any

	mu     sync.Mutex
	cancel context.CancelFunc // non-nil while a stream is in flight
}

// Option configures a [Controller].
type Option func(*Controller)

// WithDealershipContext attaches a context map to every chat request.
func WithDealershipContext(ctx map[string]any) Option {
	return func(c *Controller) { c.context = ctx }
}

// New creates a Controller mutating the given store and reading replies
// from the given source.
func New(st *store.Store, source dcbev.Source, opts ...Option) *Controller {
	c := &Controller{store: st, source: source}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Streaming reports whether a reply stream is currently in flight.
func (c *Controller) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Send submits user content and blocks until the reply stream settles.
// Blank content is rejected with dcbev.ErrValidation before any state
// change; a send during an in-flight stream is rejected with
// dcbev.ErrBusy. Transport failures freeze the partial reply and surface
// the error on the store; cancellation freezes it silently. The returned
// error mirrors what the store already records, for non-UI callers.
func (c *Controller) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("chat: message must not be blank: %w", dcbev.ErrValidation)
	}

	streamCtx, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer c.end()

	c.store.AppendUser(content)
	req := dcbev.ChatRequest{
		Message:        content,
		ConversationID: c.store.ConversationID(),
		Context:        c.context,
	}

	c.store.BeginAssistant()

	stream, err := c.source.Stream(streamCtx, req)
	if err != nil {
		c.settle(streamCtx, err)
		return err
	}
	defer stream.Close()

	var streamErr error
	for {
		delta, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			streamErr = err
			break
		}
		c.store.AppendDelta(delta)
	}

	c.settle(streamCtx, streamErr)
	return streamErr
}

// begin registers the in-flight stream, enforcing at most one at a time.
func (c *Controller) begin(ctx context.Context) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil, fmt.Errorf("chat: %w", dcbev.ErrBusy)
	}
	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	return streamCtx, nil
}

func (c *Controller) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// settle freezes the assistant message and records the terminal outcome.
// Whatever partial content was received stays visible; cancellation sets
// no error.
func (c *Controller) settle(streamCtx context.Context, streamErr error) {
	c.store.CompleteAssistant()
	if streamErr == nil {
		return
	}
	if streamCtx.Err() != nil || errors.Is(streamErr, context.Canceled) {
		return
	}
	c.store.SetError(fmt.Sprintf("failed to get response: %v", streamErr))
}

// Cancel aborts the in-flight stream, if any. The consumption path in
// Send observes the cancellation, closes the connection, and freezes the
// partial reply without an error.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// RetryLast re-submits the most recent user message. It only applies when
// the last message is an assistant message, i.e. the previous turn
// completed or failed; otherwise dcbev.ErrNothingToResend is returned
// with no state change.
func (c *Controller) RetryLast(ctx context.Context) error {
	snap := c.store.Snapshot()
	last, ok := snap.Last()
	if !ok || last.Sender != dcbev.SenderAssistant {
		return fmt.Errorf("chat: %w", dcbev.ErrNothingToResend)
	}
	user, ok := snap.LastUser()
	if !ok {
		return fmt.Errorf("chat: %w", dcbev.ErrNothingToResend)
	}
	return c.Send(ctx, user.Content)
}

// Regenerate re-sends the user message immediately preceding the message
// with the given id, producing a fresh assistant reply. The original pair
// is left untouched. It is a no-op (dcbev.ErrNothingToResend) when the
// target is unknown, first, or not preceded by a user message.
func (c *Controller) Regenerate(ctx context.Context, messageID string) error {
	snap := c.store.Snapshot()
	idx := snap.ByID(messageID)
	if idx <= 0 {
		return fmt.Errorf("chat: %w", dcbev.ErrNothingToResend)
	}
	prev := snap.Messages[idx-1]
	if prev.Sender != dcbev.SenderUser {
		return fmt.Errorf("chat: %w", dcbev.ErrNothingToResend)
	}
	return c.Send(ctx, prev.Content)
}

// Clear resets the conversation. Rejected while a stream is in flight.
func (c *Controller) Clear() error {
	c.mu.Lock()
	busy := c.cancel != nil
	c.mu.Unlock()
	if busy {
		return fmt.Errorf("chat: %w", dcbev.ErrBusy)
	}
	c.store.Clear()
	return nil
}

// Dispatch maps a UI event onto the corresponding operation.
func (c *Controller) Dispatch(ctx context.Context, ev dcbev.Event) error {
	switch e := ev.(type) {
	case dcbev.SendMessage:
		return c.Send(ctx, e.Content)
	case dcbev.RetryLast:
		return c.RetryLast(ctx)
	case dcbev.Regenerate:
		return c.Regenerate(ctx, e.MessageID)
	case dcbev.ClearConversation:
		return c.Clear()
	default:
		return fmt.Errorf("chat: unknown event type %T", ev)
	}
}
