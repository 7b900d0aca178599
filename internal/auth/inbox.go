package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Message is what a finished popup or handoff delivers to the waiting
// attempt. On success Fields holds the redirect parameters (code, state, or
// error and error_description). On host failure only Storage is set to the
// provider key, so nothing from the host SDK leaks through.
type Message struct {
	Fields  map[string]string
	Storage string
}

// Failed reports whether m is the bare provider-key failure message.
func (m Message) Failed() bool {
	return len(m.Fields) == 0
}

// Inbox is the in-process stand-in for a same-origin cross-window message
// channel. Each attempt registers under its correlation id before the popup
// opens, so a message can never arrive before its reader.
type Inbox struct {
	mu      sync.Mutex
	waiters map[string]chan Message
	logger  *slog.Logger
}

// NewInbox creates an empty Inbox.
func NewInbox(logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}

	return &Inbox{waiters: make(map[string]chan Message), logger: logger}
}

// Waiter receives the single message for one correlation id.
type Waiter struct {
	inbox *Inbox
	state string
	ch    chan Message
}

// Expect registers a reader for state. Call Close when done.
func (in *Inbox) Expect(state string) *Waiter {
	ch := make(chan Message, 1)

	in.mu.Lock()
	in.waiters[state] = ch
	in.mu.Unlock()

	return &Waiter{inbox: in, state: state, ch: ch}
}

// Post delivers msg to the attempt registered under state. It never blocks:
// messages for unknown attempts and duplicates are dropped, and Post reports
// whether the message was accepted.
func (in *Inbox) Post(state string, msg Message) bool {
	in.mu.Lock()
	ch, ok := in.waiters[state]
	in.mu.Unlock()

	if !ok {
		in.logger.Warn("dropping auth message for unknown attempt", slog.String("state", state))
		return false
	}

	select {
	case ch <- msg:
		return true
	default:
		in.logger.Warn("dropping duplicate auth message", slog.String("state", state))
		return false
	}
}

// Await blocks until the message arrives or ctx is done.
func (w *Waiter) Await(ctx context.Context) (Message, error) {
	select {
	case msg := <-w.ch:
		return msg, nil
	case <-ctx.Done():
		return Message{}, fmt.Errorf("auth: waiting for authorization result: %w", ctx.Err())
	}
}

// Close unregisters the waiter.
func (w *Waiter) Close() {
	w.inbox.mu.Lock()
	if w.inbox.waiters[w.state] == w.ch {
		delete(w.inbox.waiters, w.state)
	}
	w.inbox.mu.Unlock()
}
