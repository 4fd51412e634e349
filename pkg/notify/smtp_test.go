package notify

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSMTPNotifier_Send tests message assembly and delivery through the transport
func TestSMTPNotifier_Send(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	n := NewSMTP(SMTPConfig{
		Host: "mail.example.com",
		Port: 587,
		From: "desk@example.com",
	}, zerolog.Nop())
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	n.Send(context.Background(), Message{
		To:      "dana@example.com",
		Subject: "Update on Ticket T1",
		Body:    "All done.",
	})

	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Equal(t, "desk@example.com", gotFrom)
	require.Equal(t, []string{"dana@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Update on Ticket T1")
	assert.Contains(t, string(gotMsg), "All done.")
}

// TestSMTPNotifier_Send_EmptyRecipient tests that a blank recipient is dropped
func TestSMTPNotifier_Send_EmptyRecipient(t *testing.T) {
	called := false
	n := NewSMTP(SMTPConfig{Host: "mail.example.com", Port: 587}, zerolog.Nop())
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		called = true
		return nil
	}

	n.Send(context.Background(), Message{To: "  ", Subject: "x", Body: "y"})
	assert.False(t, called)
}

// TestSMTPNotifier_Send_DeliveryFailureSwallowed tests fire-and-forget semantics
func TestSMTPNotifier_Send_DeliveryFailureSwallowed(t *testing.T) {
	n := NewSMTP(SMTPConfig{Host: "mail.example.com", Port: 587}, zerolog.Nop())
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return assert.AnError
	}

	// Must not panic or surface the error.
	n.Send(context.Background(), Message{To: "dana@example.com", Subject: "x", Body: "y"})
}

// TestRecorder tests the in-memory notifier used by other packages' tests
func TestRecorder(t *testing.T) {
	r := &Recorder{}
	r.Send(context.Background(), Message{To: "a@example.com"})
	r.Send(context.Background(), Message{To: "b@example.com"})

	sent := r.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "a@example.com", sent[0].To)

	r.Reset()
	assert.Empty(t, r.Sent())
}
