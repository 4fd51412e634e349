package resolution

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querydesk/querydesk/pkg/agent"
	"github.com/querydesk/querydesk/pkg/notify"
	"github.com/querydesk/querydesk/pkg/ticket"
)

// TestNewSweeper_RejectsBadSchedule tests cron expression validation
func TestNewSweeper_RejectsBadSchedule(t *testing.T) {
	store := newResolverStore(t)
	r := newTestResolver(t, store, store, &scriptedProvider{}, &notify.Recorder{})

	_, err := NewSweeper(r, "not a cron line", zerolog.Nop())
	assert.Error(t, err)

	_, err = NewSweeper(nil, "* * * * *", zerolog.Nop())
	assert.Error(t, err)

	s, err := NewSweeper(r, "*/15 * * * *", zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, s)
}

// TestSweeper_SweepProcessesBacklog tests one manual sweep end to end
func TestSweeper_SweepProcessesBacklog(t *testing.T) {
	store := newResolverStore(t)
	require.NoError(t, store.InsertTicket(context.Background(), openTicket()))

	provider := &scriptedProvider{responses: []agent.Response{
		{ToolCalls: []agent.ToolCall{toolCall("resolve_ticket",
			`{"ticket_id":"T1","ai_response":"done","auto_solved":true,"closure_type":"without_document"}`)}},
	}}
	recorder := &notify.Recorder{}
	r := newTestResolver(t, store, store, provider, recorder)

	s, err := NewSweeper(r, "* * * * *", zerolog.Nop())
	require.NoError(t, err)

	s.sweep()

	assert.Equal(t, ticket.StatusClosed, fetchTicket(t, store, "T1").Status)
	assert.Len(t, recorder.Sent(), 1)
}
