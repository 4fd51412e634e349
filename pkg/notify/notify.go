// Package notify delivers outbound messages for the ticket agent.
// Delivery is fire-and-forget: a failed send is logged and swallowed so
// the orchestration loop never crashes on a mail problem.
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Message is one outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier sends a message to an address.
type Notifier interface {
	Send(ctx context.Context, msg Message)
}

// LogNotifier writes notifications to the log instead of delivering
// them. Used when no mail transport is configured.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Send implements Notifier.
func (n *LogNotifier) Send(ctx context.Context, msg Message) {
	n.Logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("body_bytes", len(msg.Body)).
		Msg("Notification (log only)")
}

// Recorder captures notifications in memory for tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
}

// Send implements Notifier.
func (r *Recorder) Send(ctx context.Context, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
}

// Sent returns a copy of everything recorded so far.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}

// Reset clears the recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}
