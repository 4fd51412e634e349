package ticket

import (
	"strings"
	"time"
)

// Role identifies the authority level of an identity.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// ParseRole normalizes a role string, defaulting to employee.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleManager):
		return RoleManager
	default:
		return RoleEmployee
	}
}

// Identity describes the user a session or batch run acts on behalf of.
// It is immutable for the lifetime of one run.
type Identity struct {
	Name  string   `json:"name"`
	Role  Role     `json:"role"`
	Teams []string `json:"teams"`
}

// HasTeam reports whether the identity belongs to the given team.
// Comparison is case-insensitive.
func (id Identity) HasTeam(team string) bool {
	for _, t := range id.Teams {
		if strings.EqualFold(t, team) {
			return true
		}
	}
	return false
}

// TeamLabel renders the identity's teams for prompts and logs.
func (id Identity) TeamLabel() string {
	return strings.Join(id.Teams, ", ")
}

// Status enumerates ticket lifecycle states.
type Status string

const (
	StatusOpen            Status = "Open"
	StatusPendingApproval Status = "Pending Manager Approval"
	StatusClosed          Status = "Closed"
)

// Priority enumerates ticket urgency.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Ticket is a support request record. The orchestration core never
// mutates tickets directly; every change goes through Store.UpdateTicket
// after an authorization decision.
type Ticket struct {
	ID             string    `json:"id"`
	Requester      string    `json:"requester"`
	RequesterEmail string    `json:"requester_email,omitempty"`
	AssignedTo     string    `json:"assigned_to"`
	Team           string    `json:"team"`
	Category       string    `json:"category"`
	Priority       Priority  `json:"priority"`
	Status         Status    `json:"status"`
	Description    string    `json:"description"`
	AutoSolved     bool      `json:"auto_solved"`
	AIResponse     string    `json:"ai_response,omitempty"`
	AdminReview    bool      `json:"admin_review"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsClosed reports whether the ticket has reached its terminal state.
func (t Ticket) IsClosed() bool {
	return strings.EqualFold(string(t.Status), string(StatusClosed))
}

// Invoice is a finance record. Read-only to the core; there is no
// mutation path.
type Invoice struct {
	Number        string    `json:"invoice_number"`
	PONumber      string    `json:"po_number,omitempty"`
	Customer      string    `json:"customer_name,omitempty"`
	CustomerID    string    `json:"customer_id,omitempty"`
	Vendor        string    `json:"vendor_name,omitempty"`
	VendorID      string    `json:"vendor_id,omitempty"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency,omitempty"`
	PaymentStatus string    `json:"payment_status"`
	InvoiceDate   time.Time `json:"invoice_date"`
	DueDate       time.Time `json:"due_date"`
	ClearingDate  time.Time `json:"clearing_date,omitempty"`
}

// Manager is the resolved contact for a team.
type Manager struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
