package agent

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message roles used in transcripts.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ErrMalformedToolArgs marks a tool-call payload that could not be
// decoded. The orchestration loops treat it as fatal for the current
// run, unlike ordinary tool errors which flow back to the model.
var ErrMalformedToolArgs = errors.New("malformed tool arguments")

// Message is one entry in a run's transcript. The transcript is
// append-only and owned exclusively by its run.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a structured action request emitted by the model. The
// argument payload stays opaque until decoded against the tool's schema.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// DecodeArgs parses the argument payload into a map.
func (tc ToolCall) DecodeArgs() (map[string]any, error) {
	args := map[string]any{}
	if tc.Arguments == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrMalformedToolArgs, tc.Name, err)
	}
	return args, nil
}

// TokenUsage tracks token consumption reported by the model API.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total is the combined token count for one call.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// SystemMessage builds a system transcript entry.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user transcript entry.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ToolResultMessage builds the tool-result entry answering one call.
func ToolResultMessage(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: call.ID, Name: call.Name}
}
