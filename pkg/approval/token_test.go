package approval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querydesk/querydesk/pkg/ticket"
)

// fakeStore serves seeded tickets and records UpdateTicket calls for
// decision tests.
type fakeStore struct {
	tickets []ticket.Ticket
	updates map[string]map[string]any
}

func newFakeStore(tickets ...ticket.Ticket) *fakeStore {
	return &fakeStore{tickets: tickets, updates: map[string]map[string]any{}}
}

func (s *fakeStore) FetchTickets(ctx context.Context, f ticket.Filters) ([]ticket.Ticket, error) {
	return f.SelectTickets(s.tickets), nil
}

func (s *fakeStore) FetchInvoices(ctx context.Context, f ticket.Filters) ([]ticket.Invoice, error) {
	return nil, nil
}

func (s *fakeStore) UpdateTicket(ctx context.Context, id string, updates map[string]any) (bool, error) {
	for _, t := range s.tickets {
		if t.ID == id {
			s.updates[id] = updates
			return true, nil
		}
	}
	return false, nil
}

func pendingTicket(id string) ticket.Ticket {
	return ticket.Ticket{ID: id, Status: ticket.StatusPendingApproval, Team: "Finance"}
}

// TestTokens_Generate_Deterministic tests that the token derivation matches its definition
func TestTokens_Generate_Deterministic(t *testing.T) {
	tokens := NewTokens("secret")

	sum := sha256.Sum256([]byte("TCK-1:secret"))
	want := hex.EncodeToString(sum[:])

	assert.Equal(t, want, tokens.Generate("TCK-1"))
	assert.Equal(t, tokens.Generate("TCK-1"), tokens.Generate("TCK-1"))
	assert.NotEqual(t, tokens.Generate("TCK-1"), tokens.Generate("TCK-2"))
	assert.NotEqual(t, tokens.Generate("TCK-1"), NewTokens("other").Generate("TCK-1"))
}

// TestTokens_Verify tests acceptance and rejection
func TestTokens_Verify(t *testing.T) {
	tokens := NewTokens("secret")
	good := tokens.Generate("TCK-1")

	assert.True(t, tokens.Verify("TCK-1", good))
	assert.False(t, tokens.Verify("TCK-2", good))
	assert.False(t, tokens.Verify("TCK-1", "deadbeef"))
	assert.False(t, tokens.Verify("TCK-1", ""))
}

// TestTokens_Links tests the approve and reject URL shapes
func TestTokens_Links(t *testing.T) {
	tokens := NewTokens("secret")
	links := tokens.Links("http://desk.local:5000", "TCK-9")

	token := tokens.Generate("TCK-9")
	assert.Equal(t, fmt.Sprintf("http://desk.local:5000/ticket/approve/TCK-9?token=%s", token), links.Approve)
	assert.Equal(t, fmt.Sprintf("http://desk.local:5000/ticket/reject/TCK-9?token=%s", token), links.Reject)
}

// TestTokens_ApplyDecision_Approve tests the approval side effects
func TestTokens_ApplyDecision_Approve(t *testing.T) {
	tokens := NewTokens("secret")
	store := newFakeStore(pendingTicket("TCK-1"))

	ok, err := tokens.ApplyDecision(context.Background(), store, "TCK-1", tokens.Generate("TCK-1"), true)
	require.NoError(t, err)
	assert.True(t, ok)

	updates := store.updates["TCK-1"]
	require.NotNil(t, updates)
	assert.Equal(t, string(ticket.StatusClosed), updates["status"])
	assert.Equal(t, false, updates["admin_review"])
}

// TestTokens_ApplyDecision_Reject tests the rejection side effects
func TestTokens_ApplyDecision_Reject(t *testing.T) {
	tokens := NewTokens("secret")
	store := newFakeStore(pendingTicket("TCK-1"))

	ok, err := tokens.ApplyDecision(context.Background(), store, "TCK-1", tokens.Generate("TCK-1"), false)
	require.NoError(t, err)
	assert.True(t, ok)

	updates := store.updates["TCK-1"]
	require.NotNil(t, updates)
	assert.Equal(t, string(ticket.StatusOpen), updates["status"])
	assert.Equal(t, false, updates["admin_review"])
	assert.Equal(t, false, updates["auto_solved"])
}

// TestTokens_ApplyDecision_InvalidToken tests that a bad token never mutates
func TestTokens_ApplyDecision_InvalidToken(t *testing.T) {
	tokens := NewTokens("secret")
	store := newFakeStore(pendingTicket("TCK-1"))

	_, err := tokens.ApplyDecision(context.Background(), store, "TCK-1", "wrong", true)
	require.Error(t, err)
	assert.Empty(t, store.updates)
}

// TestTokens_ApplyDecision_MissingTicket tests the not-found result
func TestTokens_ApplyDecision_MissingTicket(t *testing.T) {
	tokens := NewTokens("secret")
	store := newFakeStore()

	ok, err := tokens.ApplyDecision(context.Background(), store, "TCK-1", tokens.Generate("TCK-1"), true)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, store.updates)
}

// TestTokens_ApplyDecision_NotPending tests that a decided ticket stays
// decided even though its links remain valid forever
func TestTokens_ApplyDecision_NotPending(t *testing.T) {
	tokens := NewTokens("secret")
	store := newFakeStore(
		ticket.Ticket{ID: "TCK-1", Status: ticket.StatusClosed, Team: "Finance"},
		ticket.Ticket{ID: "TCK-2", Status: ticket.StatusOpen, Team: "Finance"},
	)

	ok, err := tokens.ApplyDecision(context.Background(), store, "TCK-1", tokens.Generate("TCK-1"), false)
	require.Error(t, err)
	assert.False(t, ok)

	ok, err = tokens.ApplyDecision(context.Background(), store, "TCK-2", tokens.Generate("TCK-2"), true)
	require.Error(t, err)
	assert.False(t, ok)

	assert.Empty(t, store.updates)
}
