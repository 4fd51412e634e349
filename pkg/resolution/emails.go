package resolution

import (
	"fmt"
	"strings"

	"github.com/querydesk/querydesk/pkg/approval"
	"github.com/querydesk/querydesk/pkg/ticket"
)

// resolutionPrompt instructs the model to classify every ticket into
// exactly one of the four closure categories and to finish by calling
// a terminal tool.
const resolutionPrompt = `You are an autonomous support agent for an internal finance helpdesk.
You are given one ticket at a time. Decide how to handle it and then call
exactly one terminal tool. Never answer with plain text only.

Classify the ticket into one of four categories:

1. WITHOUT DOCUMENT: the request can be answered directly from the ticket
   description or from invoice records, and no document needs to be
   attached. Call resolve_ticket with closure_type "without_document" and
   auto_solved true. Put the full answer for the requester in ai_response.

2. WITH DOCUMENT: the requester asks for a copy of an invoice, receipt or
   similar document. Documents cannot be attached by this system. Answer
   the question from the records where possible, then call resolve_ticket
   with closure_type "with_document" and auto_solved true.

3. NEEDS APPROVAL: the request asks for a change with financial impact,
   such as adjusting an invoice amount, waiving a fee, changing payment
   terms or anything a manager must sign off on. Do NOT make the change.
   Call resolve_ticket with closure_type "needs_approval" and auto_solved
   false, and describe the proposed action in ai_response.

4. REASSIGN BILLING: the request concerns a vendor payment dispute or a
   customer billing dispute that needs a specialist. Call
   reassign_ticket_and_notify with target_team "AP" for vendor payment
   issues or "AR" for customer billing issues.

Use search_invoices to look up invoice records before deciding when the
ticket references an invoice, PO, vendor or customer. Keep ai_response
professional and self-contained; it is sent to people verbatim.`

// documentUnavailableNotice is appended to the requester email when the
// ticket asked for a document the system cannot attach.
const documentUnavailableNotice = "\n\nPlease note: the requested document could not be attached automatically. " +
	"If you still need a copy, reply to this message and a team member will send it to you."

func approvalBody(manager ticket.Manager, t ticket.Ticket, aiResponse string, links approval.Links) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", manager.Name)
	fmt.Fprintf(&b, "Ticket %s requires your approval before it can be closed.\n\n", t.ID)
	fmt.Fprintf(&b, "Requester: %s\n", t.Requester)
	fmt.Fprintf(&b, "Team: %s\n", t.Team)
	fmt.Fprintf(&b, "Description: %s\n\n", t.Description)
	fmt.Fprintf(&b, "Proposed handling:\n%s\n\n", aiResponse)
	fmt.Fprintf(&b, "Approve: %s\n", links.Approve)
	fmt.Fprintf(&b, "Reject:  %s\n", links.Reject)
	b.WriteString("\nThis ticket stays in Pending Manager Approval until you decide.\n")
	return b.String()
}

func reassignRequesterBody(t ticket.Ticket, targetTeam, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", firstNonEmpty(t.Requester, "there"))
	fmt.Fprintf(&b, "Your ticket %s has been forwarded to our %s specialist team for review.\n\n", t.ID, targetTeam)
	fmt.Fprintf(&b, "Reason: %s\n\n", reason)
	b.WriteString("A specialist will follow up with you directly. No action is needed from your side.\n")
	return b.String()
}

func reassignManagerBody(manager ticket.Manager, t ticket.Ticket, targetTeam, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", manager.Name)
	fmt.Fprintf(&b, "Ticket %s has been assigned to the %s team and needs a specialist.\n\n", t.ID, targetTeam)
	fmt.Fprintf(&b, "Requester: %s\n", t.Requester)
	fmt.Fprintf(&b, "Description: %s\n", t.Description)
	fmt.Fprintf(&b, "Reason for reassignment: %s\n\n", reason)
	b.WriteString("The ticket is open and unassigned; please route it to a team member.\n")
	return b.String()
}
