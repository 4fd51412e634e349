// Package approval mints and verifies the deterministic tokens embedded
// in manager approval links.
package approval

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/querydesk/querydesk/pkg/ticket"
)

// Tokens derives per-ticket approval tokens from a shared secret. The
// same (ticket id, secret) pair always yields the same token so that
// approve/reject callbacks can be verified later without storage.
type Tokens struct {
	secret string
}

// NewTokens creates a token generator bound to the shared secret.
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: secret}
}

// Generate returns the hex-encoded token for a ticket id.
func (tk *Tokens) Generate(ticketID string) string {
	sum := sha256.Sum256([]byte(ticketID + ":" + tk.secret))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the token matches the ticket id. Comparison is
// timing-safe.
func (tk *Tokens) Verify(ticketID, token string) bool {
	expected := tk.Generate(ticketID)
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

// Links holds the approve and reject callback URLs for one ticket.
type Links struct {
	Approve string
	Reject  string
}

// Links builds the callback URLs embedding the ticket's token.
func (tk *Tokens) Links(baseURL, ticketID string) Links {
	token := tk.Generate(ticketID)
	return Links{
		Approve: fmt.Sprintf("%s/ticket/approve/%s?token=%s", baseURL, ticketID, token),
		Reject:  fmt.Sprintf("%s/ticket/reject/%s?token=%s", baseURL, ticketID, token),
	}
}

// ApplyDecision records a manager's approve or reject callback. The
// token must verify against the ticket id; an invalid token leaves the
// record untouched. Approve closes the ticket, reject reopens it for
// human handling. Only a ticket still awaiting manager approval can be
// decided: tokens are deterministic and never expire, so a stale link
// must not reopen or re-close a ticket already decided.
func (tk *Tokens) ApplyDecision(ctx context.Context, store ticket.Store, ticketID, token string, approve bool) (bool, error) {
	if !tk.Verify(ticketID, token) {
		return false, fmt.Errorf("invalid approval token for ticket %s", ticketID)
	}

	matches, err := store.FetchTickets(ctx, ticket.Filters{"id": ticketID})
	if err != nil {
		return false, fmt.Errorf("failed to fetch ticket %s: %w", ticketID, err)
	}
	if len(matches) == 0 {
		return false, nil
	}
	if !strings.EqualFold(string(matches[0].Status), string(ticket.StatusPendingApproval)) {
		return false, fmt.Errorf("ticket %s is not awaiting approval", ticketID)
	}

	updates := map[string]any{
		"admin_review": false,
	}
	if approve {
		updates["status"] = string(ticket.StatusClosed)
	} else {
		updates["status"] = string(ticket.StatusOpen)
		updates["auto_solved"] = false
	}

	ok, err := store.UpdateTicket(ctx, ticketID, updates)
	if err != nil {
		return false, fmt.Errorf("failed to apply approval decision: %w", err)
	}
	return ok, nil
}
