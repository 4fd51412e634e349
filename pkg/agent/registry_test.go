package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querydesk/querydesk/pkg/ticket"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register(ToolDefinition{
		Name:        "list_items",
		Description: "List items.",
		Parameters: []Parameter{
			{Name: "status", Type: "string", Description: "status filter", Enum: []string{"Open", "Closed"}},
		},
	}))
	require.NoError(t, reg.Register(ToolDefinition{
		Name:        "run_report",
		Description: "Run a report.",
		Parameters: []Parameter{
			{Name: "team", Type: "string", Description: "team", Required: true},
		},
		Roles: []ticket.Role{ticket.RoleManager, ticket.RoleAdmin},
	}))
	return reg
}

// TestRegistry_Register_RejectsInvalidDefinitions tests definition validation
func TestRegistry_Register_RejectsInvalidDefinitions(t *testing.T) {
	reg := NewRegistry()

	assert.Error(t, reg.Register(ToolDefinition{Description: "no name"}))
	assert.Error(t, reg.Register(ToolDefinition{Name: "x"}))
	assert.Error(t, reg.Register(ToolDefinition{
		Name:        "x",
		Description: "d",
		Parameters:  []Parameter{{Name: "p"}},
	}))
}

// TestRegistry_ForRole tests role visibility
func TestRegistry_ForRole(t *testing.T) {
	reg := testRegistry(t)

	employee := reg.ForRole(ticket.RoleEmployee)
	require.Len(t, employee, 1)
	assert.Equal(t, "list_items", employee[0].Name)

	manager := reg.ForRole(ticket.RoleManager)
	require.Len(t, manager, 2)

	admin := reg.ForRole(ticket.RoleAdmin)
	require.Len(t, admin, 2)
}

// TestRegistry_Specs tests the wire-format payload
func TestRegistry_Specs(t *testing.T) {
	reg := testRegistry(t)

	specs := reg.Specs(ticket.RoleManager)
	require.Len(t, specs, 2)
	assert.Equal(t, "list_items", specs[0].Name)
	assert.Equal(t, "List items.", specs[0].Description)

	props, ok := specs[0].InputSchema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "status")

	required, ok := specs[1].InputSchema["required"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"team"}, required)
}

// TestRegistry_Validate tests argument schema enforcement
func TestRegistry_Validate(t *testing.T) {
	reg := testRegistry(t)

	assert.NoError(t, reg.Validate("list_items", map[string]any{"status": "Open"}))
	assert.NoError(t, reg.Validate("list_items", map[string]any{}))

	assert.Error(t, reg.Validate("list_items", map[string]any{"status": "Reopened"}), "enum violation")
	assert.Error(t, reg.Validate("list_items", map[string]any{"status": 7}), "type violation")
	assert.Error(t, reg.Validate("run_report", map[string]any{}), "missing required")
	assert.Error(t, reg.Validate("no_such_tool", map[string]any{}))
}

// TestToolCall_DecodeArgs tests payload decoding and the fatal sentinel
func TestToolCall_DecodeArgs(t *testing.T) {
	args, err := ToolCall{Name: "x", Arguments: `{"a":1,"b":"two"}`}.DecodeArgs()
	require.NoError(t, err)
	assert.Equal(t, 1.0, args["a"])
	assert.Equal(t, "two", args["b"])

	args, err = ToolCall{Name: "x"}.DecodeArgs()
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = ToolCall{Name: "x", Arguments: `{not json`}.DecodeArgs()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedToolArgs))
}

// TestTokenUsage_Total tests usage accumulation
func TestTokenUsage_Total(t *testing.T) {
	assert.Equal(t, 0, TokenUsage{}.Total())
	assert.Equal(t, 30, TokenUsage{InputTokens: 10, OutputTokens: 20}.Total())
}
