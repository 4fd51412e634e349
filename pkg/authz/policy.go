// Package authz holds the single authorization decision point for the
// ticket agent. Every mutating or filtering action routes through
// Policy; tool handlers never carry their own role branches.
package authz

import (
	"strings"

	"github.com/querydesk/querydesk/pkg/ticket"
)

// Action enumerates what an identity can ask to do with a ticket.
type Action string

const (
	ActionView     Action = "view"
	ActionUpdate   Action = "update"
	ActionReassign Action = "reassign"
)

// Policy decides allow/deny for (identity, action, ticket) triples.
// Decisions are pure: same inputs, same answer, no side effects.
type Policy struct{}

// New creates a Policy.
func New() *Policy {
	return &Policy{}
}

// CanPerform reports whether the identity may perform the action on the
// ticket. It never returns an error; denial is the normal outcome for
// out-of-scope requests.
func (p *Policy) CanPerform(id ticket.Identity, action Action, t ticket.Ticket) bool {
	switch id.Role {
	case ticket.RoleAdmin:
		return true
	case ticket.RoleManager:
		return id.HasTeam(t.Team)
	case ticket.RoleEmployee:
		if action == ActionReassign {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(t.AssignedTo), strings.TrimSpace(id.Name))
	default:
		return false
	}
}

// VisibleTickets narrows a ticket list to what the identity may see.
// This runs before any model-supplied filter; model filters can only
// narrow further within this boundary.
func (p *Policy) VisibleTickets(id ticket.Identity, tickets []ticket.Ticket) []ticket.Ticket {
	if id.Role == ticket.RoleAdmin {
		return tickets
	}
	out := make([]ticket.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if p.CanPerform(id, ActionView, t) {
			out = append(out, t)
		}
	}
	return out
}

// ScopeTeam resolves the team an analytics or assignment request should
// target. Non-admins are pinned to their own team set when they name no
// team or a team outside it; admins may target anything, including the
// whole organization (empty team).
func (p *Policy) ScopeTeam(id ticket.Identity, requested string) []string {
	if id.Role == ticket.RoleAdmin {
		if strings.TrimSpace(requested) == "" {
			return nil
		}
		return []string{requested}
	}
	if requested != "" && id.HasTeam(requested) {
		return []string{requested}
	}
	return id.Teams
}
