package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/querydesk/querydesk/pkg/agent"
	"github.com/querydesk/querydesk/pkg/authz"
	"github.com/querydesk/querydesk/pkg/ticket"
)

const maxListedTickets = 50

// toolHandler executes one decoded tool call and returns the
// serialized result text appended to the transcript.
type toolHandler func(ctx context.Context, args map[string]any) (string, error)

// registerTools declares the interactive tool set. Analytics,
// resource listing, and auto-assignment are visible to managers and
// admins only.
func registerTools(reg *agent.Registry) error {
	defs := []agent.ToolDefinition{
		{
			Name:        "list_tickets",
			Description: "Retrieve tickets with optional filters.",
			Parameters: []agent.Parameter{
				{Name: "assigned_to", Type: "string", Description: "Filter by person name"},
				{Name: "team", Type: "string", Description: "Filter by team name"},
				{Name: "status", Type: "string", Description: "Filter by status (Open/Pending Manager Approval/Closed)"},
			},
		},
		{
			Name:        "update_ticket_properties",
			Description: "Update specific fields of a ticket record.",
			Parameters: []agent.Parameter{
				{Name: "ticket_id", Type: "string", Description: "Ticket ID to update", Required: true},
				{
					Name:     "updates",
					Required: true,
					Schema: map[string]any{
						"type":        "object",
						"description": "Field updates to apply",
						"properties": map[string]any{
							"status":      map[string]any{"type": "string", "enum": []string{"Open", "Closed"}},
							"priority":    map[string]any{"type": "string", "enum": []string{"High", "Medium", "Low"}},
							"assigned_to": map[string]any{"type": "string", "description": "Assign to person"},
							"team":        map[string]any{"type": "string", "description": "Assign to team"},
							"category":    map[string]any{"type": "string", "description": "Ticket category"},
						},
					},
				},
			},
		},
		{
			Name:        "search_invoices",
			Description: "Search the invoice/PO records for specific details.",
			Parameters: []agent.Parameter{
				{Name: "invoice_number", Type: "string", Description: "Invoice number"},
				{Name: "customer_name", Type: "string", Description: "Customer name"},
				{Name: "vendor_name", Type: "string", Description: "Vendor name"},
				{Name: "payment_status", Type: "string", Description: "Payment status"},
				{Name: "po_number", Type: "string", Description: "Purchase order number"},
			},
		},
		{
			Name:        "get_analytics_report",
			Description: "Get KPI metrics and performance data for a team.",
			Parameters: []agent.Parameter{
				{Name: "team_name", Type: "string", Description: "Optional team name to filter metrics"},
			},
			Roles: []ticket.Role{ticket.RoleManager, ticket.RoleAdmin},
		},
		{
			Name:        "get_available_resources",
			Description: "List available teams or employees for reassignment.",
			Parameters: []agent.Parameter{
				{Name: "team_name", Type: "string", Description: "Optional team to see members of"},
			},
			Roles: []ticket.Role{ticket.RoleManager, ticket.RoleAdmin},
		},
		{
			Name:        "auto_assign_tickets",
			Description: "Automatically assign unassigned open tickets to employees to balance workload.",
			Parameters: []agent.Parameter{
				{Name: "team_name", Type: "string", Description: "Optional team name to balance workload for"},
			},
			Roles: []ticket.Role{ticket.RoleManager, ticket.RoleAdmin},
		},
	}

	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// handlers binds tool names to their identity-scoped implementations.
func (a *Assistant) handlers() map[string]toolHandler {
	return map[string]toolHandler{
		"list_tickets":             a.listTickets,
		"update_ticket_properties": a.updateTicketProperties,
		"search_invoices":          a.searchInvoices,
		"get_analytics_report":     a.analyticsReport,
		"get_available_resources":  a.availableResources,
		"auto_assign_tickets":      a.autoAssignTickets,
	}
}

// listTickets applies the role-mandatory visibility boundary before any
// model-supplied filter. The ordering is a correctness requirement, not
// an optimization: model filters narrow within the boundary, never
// around it.
func (a *Assistant) listTickets(ctx context.Context, args map[string]any) (string, error) {
	tickets, err := a.store.FetchTickets(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch tickets: %w", err)
	}

	visible := a.policy.VisibleTickets(a.identity, tickets)

	modelFilters := ticket.Filters{}
	for _, field := range []string{"assigned_to", "team", "status"} {
		if v := stringArg(args, field); v != "" {
			modelFilters[field] = v
		}
	}
	matched := modelFilters.SelectTickets(visible)

	if len(matched) > maxListedTickets {
		matched = matched[:maxListedTickets]
	}

	a.logger.Debug().Int("count", len(matched)).Msg("list_tickets")
	return marshalResult(matched)
}

// updateTicketProperties re-fetches the target, evaluates the policy
// against the current record, and only then applies the change.
func (a *Assistant) updateTicketProperties(ctx context.Context, args map[string]any) (string, error) {
	id := strings.TrimSpace(stringArg(args, "ticket_id"))
	if id == "" {
		return "Error: ticket_id is required.", nil
	}

	matches, err := a.store.FetchTickets(ctx, ticket.Filters{"id": id})
	if err != nil {
		return "", fmt.Errorf("failed to fetch ticket %s: %w", id, err)
	}
	if len(matches) == 0 {
		return "Error: Ticket not found.", nil
	}
	current := matches[0]

	updates, _ := args["updates"].(map[string]any)
	if len(updates) == 0 {
		return "Error: no updates supplied.", nil
	}

	// The store honors legacy update keys, so policy checks must see
	// the same canonical view it will apply.
	canonical := make(map[string]any, len(updates))
	for field, value := range updates {
		canonical[ticket.CanonicalField(field)] = value
	}

	action := authz.ActionUpdate
	for field := range canonical {
		switch field {
		case "team", "assigned_to":
			action = authz.ActionReassign
		}
	}

	if !a.policy.CanPerform(a.identity, action, current) {
		a.logger.Info().Str("ticket_id", id).Str("action", string(action)).Msg("Update denied by policy")
		return "Error: You do not have permission to modify this ticket.", nil
	}

	// A manager may move tickets only between their own teams.
	if target := stringArg(canonical, "team"); target != "" && a.identity.Role == ticket.RoleManager {
		if !a.identity.HasTeam(target) {
			return "Error: You do not have permission to move this ticket outside your team.", nil
		}
	}

	ok, err := a.store.UpdateTicket(ctx, id, updates)
	if err != nil {
		return "", fmt.Errorf("failed to update ticket %s: %w", id, err)
	}
	if !ok {
		return "Failed to update.", nil
	}
	return "Success", nil
}

func (a *Assistant) searchInvoices(ctx context.Context, args map[string]any) (string, error) {
	filters := ticket.Filters{}
	for _, field := range []string{"invoice_number", "customer_name", "vendor_name", "payment_status", "po_number"} {
		if v := stringArg(args, field); v != "" {
			filters[field] = v
		}
	}

	invoices, err := a.store.FetchInvoices(ctx, filters)
	if err != nil {
		return "", fmt.Errorf("failed to search invoices: %w", err)
	}
	return marshalResult(invoices)
}

// teamReport is the per-team KPI block of an analytics result.
type teamReport struct {
	Team             string `json:"team"`
	Total            int    `json:"total"`
	Open             int    `json:"open"`
	Closed           int    `json:"closed"`
	PendingApproval  int    `json:"pending_approval"`
	AutoSolved       int    `json:"auto_solved"`
	HighPriorityOpen int    `json:"high_priority_open"`
	Unassigned       int    `json:"unassigned"`
}

func (a *Assistant) analyticsReport(ctx context.Context, args map[string]any) (string, error) {
	scope := a.policy.ScopeTeam(a.identity, stringArg(args, "team_name"))

	tickets, err := a.store.FetchTickets(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch tickets: %w", err)
	}

	byTeam := map[string]*teamReport{}
	for _, t := range tickets {
		if !teamInScope(t.Team, scope) {
			continue
		}
		key := strings.ToLower(t.Team)
		rep := byTeam[key]
		if rep == nil {
			rep = &teamReport{Team: t.Team}
			byTeam[key] = rep
		}
		rep.Total++
		switch t.Status {
		case ticket.StatusClosed:
			rep.Closed++
		case ticket.StatusPendingApproval:
			rep.PendingApproval++
		default:
			rep.Open++
			if t.Priority == ticket.PriorityHigh {
				rep.HighPriorityOpen++
			}
		}
		if t.AutoSolved {
			rep.AutoSolved++
		}
		if strings.TrimSpace(t.AssignedTo) == "" && !t.IsClosed() {
			rep.Unassigned++
		}
	}

	reports := make([]teamReport, 0, len(byTeam))
	for _, rep := range byTeam {
		reports = append(reports, *rep)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Team < reports[j].Team })

	return marshalResult(reports)
}

func (a *Assistant) availableResources(ctx context.Context, args map[string]any) (string, error) {
	scope := a.policy.ScopeTeam(a.identity, stringArg(args, "team_name"))

	tickets, err := a.store.FetchTickets(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch tickets: %w", err)
	}

	members := map[string]map[string]bool{}
	for _, t := range tickets {
		if !teamInScope(t.Team, scope) || strings.TrimSpace(t.AssignedTo) == "" {
			continue
		}
		key := t.Team
		if members[key] == nil {
			members[key] = map[string]bool{}
		}
		members[key][t.AssignedTo] = true
	}

	type teamResources struct {
		Team    string   `json:"team"`
		Members []string `json:"members"`
	}
	out := make([]teamResources, 0, len(members))
	for team, set := range members {
		names := make([]string, 0, len(set))
		for name := range set {
			names = append(names, name)
		}
		sort.Strings(names)
		out = append(out, teamResources{Team: team, Members: names})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Team < out[j].Team })

	return marshalResult(out)
}

// autoAssignTickets distributes unassigned open tickets to the team
// member with the lightest open workload. Every assignment goes through
// the same authorized update path as a manual change.
func (a *Assistant) autoAssignTickets(ctx context.Context, args map[string]any) (string, error) {
	scope := a.policy.ScopeTeam(a.identity, stringArg(args, "team_name"))

	tickets, err := a.store.FetchTickets(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch tickets: %w", err)
	}

	// Open-ticket load per member, and the unassigned backlog, per team.
	load := map[string]map[string]int{}
	var backlog []ticket.Ticket
	for _, t := range tickets {
		if !teamInScope(t.Team, scope) || t.IsClosed() {
			continue
		}
		if strings.TrimSpace(t.AssignedTo) == "" {
			backlog = append(backlog, t)
			continue
		}
		if load[t.Team] == nil {
			load[t.Team] = map[string]int{}
		}
		load[t.Team][t.AssignedTo]++
	}

	assigned := map[string]string{}
	for _, t := range backlog {
		members := load[t.Team]
		if len(members) == 0 {
			continue
		}
		names := make([]string, 0, len(members))
		for name := range members {
			names = append(names, name)
		}
		sort.Strings(names)
		best := names[0]
		for _, name := range names[1:] {
			if members[name] < members[best] {
				best = name
			}
		}

		if !a.policy.CanPerform(a.identity, authz.ActionReassign, t) {
			continue
		}
		ok, err := a.store.UpdateTicket(ctx, t.ID, map[string]any{"assigned_to": best})
		if err != nil {
			return "", fmt.Errorf("failed to assign ticket %s: %w", t.ID, err)
		}
		if ok {
			assigned[t.ID] = best
			members[best]++
		}
	}

	return marshalResult(map[string]any{
		"assigned_count": len(assigned),
		"assignments":    assigned,
	})
}

func teamInScope(team string, scope []string) bool {
	if len(scope) == 0 {
		return true
	}
	for _, s := range scope {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(team)) {
			return true
		}
	}
	return false
}

func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return s
}

// marshalResult serializes a tool result for the transcript. Time
// values render as RFC 3339 through encoding/json.
func marshalResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize tool result: %w", err)
	}
	return string(data), nil
}
