package ticket

import (
	"context"
	"strings"
)

// Filters maps a field name to a requested value. String values match
// by case-insensitive substring except for the fields listed in
// exactMatchFields, which compare whole values. Unknown fields are
// ignored.
type Filters map[string]string

var exactMatchFields = map[string]bool{
	"id":          true,
	"status":      true,
	"assigned_to": true,
}

// Matches reports whether the filter value accepts the given field value.
func (f Filters) Matches(field, value string) bool {
	want, ok := f[field]
	if !ok {
		return true
	}
	if exactMatchFields[field] {
		return strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(want))
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(want))
}

// SelectTickets returns the tickets accepted by every filter entry.
// Filtering only ever narrows: callers that must enforce a visibility
// boundary apply it before handing the slice here.
func (f Filters) SelectTickets(in []Ticket) []Ticket {
	if len(f) == 0 {
		return in
	}
	out := make([]Ticket, 0, len(in))
	for _, t := range in {
		if f.Matches("id", t.ID) &&
			f.Matches("status", string(t.Status)) &&
			f.Matches("assigned_to", t.AssignedTo) &&
			f.Matches("team", t.Team) &&
			f.Matches("category", t.Category) &&
			f.Matches("priority", string(t.Priority)) &&
			f.Matches("requester", t.Requester) &&
			f.Matches("description", t.Description) {
			out = append(out, t)
		}
	}
	return out
}

// SelectInvoices returns the invoices accepted by every filter entry.
func (f Filters) SelectInvoices(in []Invoice) []Invoice {
	if len(f) == 0 {
		return in
	}
	out := make([]Invoice, 0, len(in))
	for _, inv := range in {
		if f.Matches("invoice_number", inv.Number) &&
			f.Matches("po_number", inv.PONumber) &&
			f.Matches("customer_name", inv.Customer) &&
			f.Matches("customer_id", inv.CustomerID) &&
			f.Matches("vendor_name", inv.Vendor) &&
			f.Matches("vendor_id", inv.VendorID) &&
			f.Matches("payment_status", inv.PaymentStatus) {
			out = append(out, inv)
		}
	}
	return out
}

// Store is the record store collaborator. Implementations own all
// persistence concerns; the orchestration core only queries and
// requests field updates.
type Store interface {
	// FetchTickets returns tickets matching the filters.
	FetchTickets(ctx context.Context, f Filters) ([]Ticket, error)

	// FetchInvoices returns invoices matching the filters.
	FetchInvoices(ctx context.Context, f Filters) ([]Invoice, error)

	// UpdateTicket applies the field updates to one ticket. The update
	// is all-or-nothing for the supplied set. Unknown target fields are
	// silently ignored after legacy-name remapping. Returns false when
	// no ticket has the given id.
	UpdateTicket(ctx context.Context, id string, updates map[string]any) (bool, error)
}

// Directory resolves people and team contacts for notifications.
type Directory interface {
	// UserEmail returns the email for a person by display name.
	UserEmail(ctx context.Context, name string) (string, bool)

	// TeamManager returns the manager responsible for a team.
	TeamManager(ctx context.Context, team string) (Manager, bool)
}

// legacyFieldMap remaps historical update keys to canonical column
// names. This table is a fixed external contract carried over from the
// system that owned the records before this service; do not extend it
// ad hoc.
var legacyFieldMap = map[string]string{
	"Team Name":           "team",
	"Assigned Team":       "team",
	"Person Name":         "assigned_to",
	"Person ID":           "assigned_to",
	"User Name":           "assigned_to",
	"Ticket Status":       "status",
	"Ticket Priority":     "priority",
	"Priority":            "priority",
	"Category":            "category",
	"AI Response":         "ai_response",
	"Auto Solved":         "auto_solved",
	"Admin Review Needed": "admin_review",
}

// CanonicalField resolves an update key to its canonical field name.
func CanonicalField(field string) string {
	if mapped, ok := legacyFieldMap[field]; ok {
		return mapped
	}
	return strings.ToLower(strings.TrimSpace(field))
}
