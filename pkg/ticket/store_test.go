package ticket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFilters_Matches_SubstringFields tests case-insensitive substring matching
func TestFilters_Matches_SubstringFields(t *testing.T) {
	f := Filters{"team": "fin"}

	assert.True(t, f.Matches("team", "Finance"))
	assert.True(t, f.Matches("team", "FINANCE"))
	assert.False(t, f.Matches("team", "HR"))
}

// TestFilters_Matches_ExactFields tests that id, status and assigned_to match whole values
func TestFilters_Matches_ExactFields(t *testing.T) {
	f := Filters{"status": "Open", "assigned_to": "Ana", "id": "TCK-1"}

	assert.True(t, f.Matches("status", "open"))
	assert.False(t, f.Matches("status", "Reopened"))

	assert.True(t, f.Matches("assigned_to", "ana"))
	assert.False(t, f.Matches("assigned_to", "Ananya"))

	assert.True(t, f.Matches("id", " TCK-1 "))
	assert.False(t, f.Matches("id", "TCK-10"))
}

// TestFilters_Matches_AbsentField tests that a field with no filter always matches
func TestFilters_Matches_AbsentField(t *testing.T) {
	f := Filters{}
	assert.True(t, f.Matches("team", "anything"))
}

// TestFilters_SelectTickets tests combined narrowing over a ticket list
func TestFilters_SelectTickets(t *testing.T) {
	tickets := []Ticket{
		{ID: "T1", Team: "Finance", Status: StatusOpen, AssignedTo: "Ana"},
		{ID: "T2", Team: "Finance", Status: StatusClosed, AssignedTo: "Ana"},
		{ID: "T3", Team: "HR", Status: StatusOpen, AssignedTo: "Ben"},
	}

	open := Filters{"status": "Open"}.SelectTickets(tickets)
	require.Len(t, open, 2)
	assert.Equal(t, "T1", open[0].ID)
	assert.Equal(t, "T3", open[1].ID)

	anaOpen := Filters{"status": "Open", "assigned_to": "ana"}.SelectTickets(tickets)
	require.Len(t, anaOpen, 1)
	assert.Equal(t, "T1", anaOpen[0].ID)

	assert.Len(t, Filters{}.SelectTickets(tickets), 3)
}

// TestFilters_SelectInvoices tests invoice narrowing
func TestFilters_SelectInvoices(t *testing.T) {
	invoices := []Invoice{
		{Number: "INV-100", Vendor: "Acme Corp", PaymentStatus: "Paid"},
		{Number: "INV-101", Vendor: "Globex", PaymentStatus: "Pending"},
	}

	got := Filters{"vendor_name": "acme"}.SelectInvoices(invoices)
	require.Len(t, got, 1)
	assert.Equal(t, "INV-100", got[0].Number)

	got = Filters{"payment_status": "Pending"}.SelectInvoices(invoices)
	require.Len(t, got, 1)
	assert.Equal(t, "INV-101", got[0].Number)
}

// TestCanonicalField_LegacyNames tests the fixed legacy remap table
func TestCanonicalField_LegacyNames(t *testing.T) {
	cases := map[string]string{
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
	for legacy, want := range cases {
		assert.Equal(t, want, CanonicalField(legacy), "remap of %q", legacy)
	}
}

// TestCanonicalField_Passthrough tests lowercasing of already-canonical names
func TestCanonicalField_Passthrough(t *testing.T) {
	assert.Equal(t, "status", CanonicalField("status"))
	assert.Equal(t, "team", CanonicalField(" Team "))
	assert.Equal(t, "some_unknown", CanonicalField("Some_Unknown"))
}

// TestIdentity_HasTeam tests case-insensitive team membership
func TestIdentity_HasTeam(t *testing.T) {
	id := Identity{Name: "Maria", Role: RoleManager, Teams: []string{"Finance", "AP"}}

	assert.True(t, id.HasTeam("finance"))
	assert.True(t, id.HasTeam("AP"))
	assert.False(t, id.HasTeam("HR"))
	assert.False(t, Identity{}.HasTeam("Finance"))
}

// TestParseRole tests role normalization and the employee default
func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("Admin"))
	assert.Equal(t, RoleManager, ParseRole(" MANAGER "))
	assert.Equal(t, RoleEmployee, ParseRole("employee"))
	assert.Equal(t, RoleEmployee, ParseRole("something else"))
}
