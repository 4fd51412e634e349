// Package resolution runs the autonomous batch variant of the
// orchestration loop: one bounded model exchange per ticket, ending in
// exactly one of four closure categories or an unresolved report.
package resolution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/querydesk/querydesk/internal/metrics"
	"github.com/querydesk/querydesk/pkg/agent"
	"github.com/querydesk/querydesk/pkg/approval"
	"github.com/querydesk/querydesk/pkg/notify"
	"github.com/querydesk/querydesk/pkg/ticket"
)

// maxTurns bounds one ticket's exchange.
const maxTurns = 6

// Closure is one of the four mutually exclusive resolution categories.
type Closure string

const (
	ClosureWithoutDocument Closure = "without_document"
	ClosureWithDocument    Closure = "with_document"
	ClosureNeedsApproval   Closure = "needs_approval"
	ClosureReassignBilling Closure = "reassign_billing"
)

// Outcome reports what happened to one ticket.
type Outcome struct {
	TicketID string  `json:"ticket_id"`
	Resolved bool    `json:"resolved"`
	Closure  Closure `json:"closure,omitempty"`
	Summary  string  `json:"summary"`
}

// Config assembles a Resolver.
type Config struct {
	Store     ticket.Store
	Directory ticket.Directory
	Notifier  notify.Notifier
	Tokens    *approval.Tokens
	Provider  agent.Provider
	Model     string
	BaseURL   string
	Logger    zerolog.Logger

	// Metrics is optional; nil disables collection.
	Metrics *metrics.Metrics
}

// Resolver processes tickets unattended with full authority. Each
// ProcessTicket run owns its ticket exclusively for the duration of the
// run; tickets are handed to it one at a time.
type Resolver struct {
	store     ticket.Store
	directory ticket.Directory
	notifier  notify.Notifier
	tokens    *approval.Tokens
	provider  agent.Provider
	registry  *agent.Registry
	model     string
	baseURL   string
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// New creates a Resolver.
func New(cfg Config) (*Resolver, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token generator is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:5000"
	}

	registry := agent.NewRegistry()
	if err := registerTools(registry); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return &Resolver{
		store:     cfg.Store,
		directory: cfg.Directory,
		notifier:  cfg.Notifier,
		tokens:    cfg.Tokens,
		provider:  cfg.Provider,
		registry:  registry,
		model:     cfg.Model,
		baseURL:   cfg.BaseURL,
		logger:    cfg.Logger.With().Str("component", "resolution").Logger(),
		metrics:   cfg.Metrics,
	}, nil
}

func registerTools(reg *agent.Registry) error {
	defs := []agent.ToolDefinition{
		{
			Name:        "search_invoices",
			Description: "Search the invoice records for matching entries.",
			Parameters: []agent.Parameter{
				{Name: "invoice_number", Type: "string", Description: "Invoice number"},
				{Name: "customer_name", Type: "string", Description: "Customer name"},
				{Name: "vendor_name", Type: "string", Description: "Vendor name"},
				{Name: "payment_status", Type: "string", Description: "Payment status"},
				{Name: "po_number", Type: "string", Description: "Purchase order number"},
				{Name: "vendor_id", Type: "string", Description: "Vendor ID"},
				{Name: "customer_id", Type: "string", Description: "Customer ID"},
			},
		},
		{
			Name:        "resolve_ticket",
			Description: "Resolve the ticket using closure category 1, 2 or 3.",
			Parameters: []agent.Parameter{
				{Name: "ticket_id", Type: "string", Description: "Ticket to resolve", Required: true},
				{Name: "ai_response", Type: "string", Description: "Explanation of the chosen handling", Required: true},
				{Name: "auto_solved", Type: "boolean", Description: "Whether the ticket was solved automatically", Required: true},
				{Name: "closure_type", Type: "string", Description: "Closure category", Required: true,
					Enum: []string{string(ClosureWithoutDocument), string(ClosureWithDocument), string(ClosureNeedsApproval)}},
			},
		},
		{
			Name:        "reassign_ticket_and_notify",
			Description: "Reassign the ticket to a billing specialist team (category 4).",
			Parameters: []agent.Parameter{
				{Name: "ticket_id", Type: "string", Description: "Ticket to reassign", Required: true},
				{Name: "target_team", Type: "string", Description: "Specialist team", Required: true, Enum: []string{"AP", "AR"}},
				{Name: "reason", Type: "string", Description: "Why specialist handling is needed", Required: true},
				{Name: "ai_response", Type: "string", Description: "Summary for the audit trail", Required: true},
			},
		},
	}
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// ProcessTicket drives one ticket through resolution. Closed tickets
// are skipped; a decode failure or an exhausted budget leaves the
// ticket unchanged and reports it unresolved.
func (r *Resolver) ProcessTicket(ctx context.Context, t ticket.Ticket) (Outcome, error) {
	logger := r.logger.With().Str("ticket_id", t.ID).Logger()

	if t.IsClosed() {
		logger.Debug().Msg("Skipping closed ticket")
		return Outcome{TicketID: t.ID, Summary: "Ticket is already closed."}, nil
	}

	logger.Info().Str("team", t.Team).Msg("Processing ticket")

	transcript := []agent.Message{
		agent.UserMessage(fmt.Sprintf("Ticket ID: %s\nDescription: %s\nCurrent Team: %s",
			t.ID, t.Description, t.Team)),
	}

	for turn := 0; turn < maxTurns; turn++ {
		resp, err := r.provider.Generate(ctx, agent.Request{
			Model:    r.model,
			System:   resolutionPrompt,
			Messages: transcript,
			Tools:    r.registry.Specs(ticket.RoleAdmin),
		})
		r.metrics.RecordModelCall(r.provider.Name(), err)
		if err != nil {
			return Outcome{TicketID: t.ID}, fmt.Errorf("model call failed for ticket %s: %w", t.ID, err)
		}

		transcript = append(transcript, agent.Message{
			Role:      agent.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		if len(resp.ToolCalls) == 0 {
			logger.Info().Msg("Model answered without a terminal tool; ticket left unchanged")
			return Outcome{TicketID: t.ID, Summary: firstNonEmpty(resp.Content, "No resolution reached.")}, nil
		}

		for _, call := range resp.ToolCalls {
			args, err := call.DecodeArgs()
			if err != nil {
				if errors.Is(err, agent.ErrMalformedToolArgs) {
					logger.Error().Err(err).Str("tool", call.Name).Msg("Undecodable tool arguments; ticket unresolved")
					return Outcome{TicketID: t.ID, Summary: "Tool arguments could not be decoded."}, nil
				}
				return Outcome{TicketID: t.ID}, err
			}
			if err := r.registry.Validate(call.Name, args); err != nil {
				transcript = append(transcript, agent.ToolResultMessage(call, fmt.Sprintf("Error: %v", err)))
				continue
			}

			switch call.Name {
			case "search_invoices":
				result, err := r.searchInvoices(ctx, args)
				if err != nil {
					return Outcome{TicketID: t.ID}, err
				}
				transcript = append(transcript, agent.ToolResultMessage(call, result))

			case "resolve_ticket":
				return r.resolveTicket(ctx, t, args)

			case "reassign_ticket_and_notify":
				return r.reassignTicket(ctx, t, args)

			default:
				transcript = append(transcript, agent.ToolResultMessage(call,
					fmt.Sprintf("Error: tool %q is not available.", call.Name)))
			}
		}
	}

	logger.Warn().Msg("Turn budget exhausted without a terminal tool")
	return Outcome{TicketID: t.ID, Summary: "Agent reached maximum turns without resolving."}, nil
}

// ProcessOpenTickets runs the resolver over every non-closed ticket,
// sequentially. A failed ticket is reported and does not stop the rest.
func (r *Resolver) ProcessOpenTickets(ctx context.Context) ([]Outcome, error) {
	tickets, err := r.store.FetchTickets(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickets: %w", err)
	}

	outcomes := []Outcome{}
	for _, t := range tickets {
		if t.IsClosed() {
			continue
		}
		outcome, err := r.ProcessTicket(ctx, t)
		if err != nil {
			r.logger.Error().Err(err).Str("ticket_id", t.ID).Msg("Ticket processing failed")
			outcome = Outcome{TicketID: t.ID, Summary: fmt.Sprintf("Processing failed: %v", err)}
		}
		r.metrics.RecordOutcome(string(outcome.Closure), outcome.Resolved)
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// send delivers one notification and counts it.
func (r *Resolver) send(ctx context.Context, msg notify.Message) {
	r.notifier.Send(ctx, msg)
	r.metrics.RecordNotification()
}

func (r *Resolver) searchInvoices(ctx context.Context, args map[string]any) (string, error) {
	filters := ticket.Filters{}
	for _, field := range []string{"invoice_number", "customer_name", "vendor_name", "payment_status", "po_number", "vendor_id", "customer_id"} {
		if v, ok := args[field].(string); ok && v != "" {
			filters[field] = v
		}
	}
	invoices, err := r.store.FetchInvoices(ctx, filters)
	if err != nil {
		return "", fmt.Errorf("invoice search failed: %w", err)
	}
	r.logger.Debug().Int("count", len(invoices)).Msg("search_invoices")
	return marshalResult(invoices)
}

// resolveTicket applies closure categories 1-3. The protocol commits to
// exactly the category the model selected; no reclassification happens
// here. Notifications go out only after the record update succeeds.
func (r *Resolver) resolveTicket(ctx context.Context, t ticket.Ticket, args map[string]any) (Outcome, error) {
	closure := Closure(stringArg(args, "closure_type"))
	aiResponse := firstNonEmpty(stringArg(args, "ai_response"), "Ticket processed automatically.")
	autoSolved, _ := args["auto_solved"].(bool)

	updates := map[string]any{
		"auto_solved": autoSolved,
		"ai_response": aiResponse,
	}

	var message *notify.Message

	switch closure {
	case ClosureNeedsApproval:
		updates["status"] = string(ticket.StatusPendingApproval)
		updates["admin_review"] = true

		if manager, ok := r.teamManager(ctx, t.Team); ok {
			links := r.tokens.Links(r.baseURL, t.ID)
			message = &notify.Message{
				To:      manager.Email,
				Subject: fmt.Sprintf("Approval Required: Ticket %s", t.ID),
				Body:    approvalBody(manager, t, aiResponse, links),
			}
		} else {
			r.logger.Warn().Str("ticket_id", t.ID).Str("team", t.Team).Msg("No manager found for approval notification")
		}

	case ClosureWithoutDocument, ClosureWithDocument:
		updates["status"] = string(ticket.StatusClosed)

		body := aiResponse
		if closure == ClosureWithDocument {
			body += documentUnavailableNotice
		}
		if email, ok := r.requesterEmail(ctx, t); ok {
			message = &notify.Message{
				To:      email,
				Subject: fmt.Sprintf("Update on Ticket %s", t.ID),
				Body:    body,
			}
		} else {
			r.logger.Warn().Str("ticket_id", t.ID).Msg("No requester email found")
		}

	default:
		return Outcome{TicketID: t.ID, Summary: fmt.Sprintf("Unknown closure type %q.", closure)}, nil
	}

	ok, err := r.store.UpdateTicket(ctx, t.ID, updates)
	if err != nil {
		return Outcome{TicketID: t.ID}, fmt.Errorf("failed to persist resolution for %s: %w", t.ID, err)
	}
	if !ok {
		r.logger.Error().Str("ticket_id", t.ID).Msg("Resolution update matched no record; notification suppressed")
		return Outcome{TicketID: t.ID, Summary: "Failed to update ticket record."}, nil
	}

	if message != nil {
		r.send(ctx, *message)
	}

	summary := fmt.Sprintf("Ticket %s processed: %s | %s", t.ID, closure, aiResponse)
	if closure == ClosureNeedsApproval && message == nil {
		// Nobody holds an approval link for this ticket; make the
		// batch report say so instead of burying it in a log line.
		summary = fmt.Sprintf("Ticket %s pending approval, no manager notified | %s", t.ID, aiResponse)
	}

	r.logger.Info().Str("ticket_id", t.ID).Str("closure", string(closure)).Msg("Ticket resolved")
	return Outcome{
		TicketID: t.ID,
		Resolved: true,
		Closure:  closure,
		Summary:  summary,
	}, nil
}

// reassignTicket applies closure category 4: the ticket stays open,
// moves to the specialist team with the assigned person cleared, and
// both the requester and the target team's manager are notified.
func (r *Resolver) reassignTicket(ctx context.Context, t ticket.Ticket, args map[string]any) (Outcome, error) {
	targetTeam := strings.ToUpper(stringArg(args, "target_team"))
	reason := firstNonEmpty(stringArg(args, "reason"), "Billing specialist handling required")
	aiResponse := firstNonEmpty(stringArg(args, "ai_response"), fmt.Sprintf("Reassigned to %s team.", targetTeam))

	updates := map[string]any{
		"team":        targetTeam,
		"status":      string(ticket.StatusOpen),
		"assigned_to": nil,
		"ai_response": aiResponse,
		"auto_solved": false,
	}

	ok, err := r.store.UpdateTicket(ctx, t.ID, updates)
	if err != nil {
		return Outcome{TicketID: t.ID}, fmt.Errorf("failed to persist reassignment for %s: %w", t.ID, err)
	}
	if !ok {
		return Outcome{TicketID: t.ID, Summary: "Failed to reassign ticket."}, nil
	}

	if email, found := r.requesterEmail(ctx, t); found {
		r.send(ctx, notify.Message{
			To:      email,
			Subject: fmt.Sprintf("Ticket %s - Reassigned for Specialist Review", t.ID),
			Body:    reassignRequesterBody(t, targetTeam, reason),
		})
	}
	if manager, found := r.teamManager(ctx, targetTeam); found {
		r.send(ctx, notify.Message{
			To:      manager.Email,
			Subject: fmt.Sprintf("New Ticket Assigned: %s (%s)", t.ID, targetTeam),
			Body:    reassignManagerBody(manager, t, targetTeam, reason),
		})
	}

	r.logger.Info().Str("ticket_id", t.ID).Str("target_team", targetTeam).Msg("Ticket reassigned")
	return Outcome{
		TicketID: t.ID,
		Resolved: true,
		Closure:  ClosureReassignBilling,
		Summary:  fmt.Sprintf("Ticket %s reassigned to %s | %s", t.ID, targetTeam, aiResponse),
	}, nil
}

// requesterEmail finds the best address to notify about the ticket.
func (r *Resolver) requesterEmail(ctx context.Context, t ticket.Ticket) (string, bool) {
	if email := strings.TrimSpace(t.RequesterEmail); email != "" {
		return email, true
	}
	if r.directory == nil {
		return "", false
	}
	for _, name := range []string{t.Requester, t.AssignedTo} {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if email, ok := r.directory.UserEmail(ctx, name); ok {
			return email, true
		}
	}
	return "", false
}

func (r *Resolver) teamManager(ctx context.Context, team string) (ticket.Manager, bool) {
	if r.directory == nil {
		return ticket.Manager{}, false
	}
	return r.directory.TeamManager(ctx, team)
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func marshalResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize tool result: %w", err)
	}
	return string(data), nil
}
