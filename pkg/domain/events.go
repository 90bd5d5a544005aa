package domain

import (
	"context"
	"time"
)

// AgentEventType defines the category of an upstream agent event.
type AgentEventType string

const (
	EventContentDelta AgentEventType = "content_delta"
	EventToolStart    AgentEventType = "tool_start"
	EventToolEnd      AgentEventType = "tool_end"
	EventStreamError  AgentEventType = "stream_error"
	EventStreamEnd    AgentEventType = "stream_end"
)

// UndefinedTool is the placeholder name some runtimes emit for unresolved tools.
const UndefinedTool = "undefined"

// ContentPart is one element of a multi-part content delta.
type ContentPart struct {
	Type string  `json:"type,omitempty"`
	Text *string `json:"text,omitempty"`
}

// AgentEvent is one item of the agent's execution event sequence.
// Exactly one payload is meaningful for a given Type.
type AgentEvent struct {
	Type AgentEventType `json:"type"`

	// Content delta payloads. Text and Parts are already decoded;
	// Bytes may end in the middle of a UTF-8 sequence.
	Text  string        `json:"text,omitempty"`
	Parts []ContentPart `json:"parts,omitempty"`
	Bytes []byte        `json:"bytes,omitempty"`

	// Tool is the tool identifier of a tool start or end.
	Tool string `json:"tool,omitempty"`
	// Result is the optional output carried by a tool end.
	Result any `json:"result,omitempty"`

	// Error describes a stream error.
	Error string `json:"error,omitempty"`
}

// ContentDelta builds a text content event.
func ContentDelta(text string) AgentEvent {
	return AgentEvent{Type: EventContentDelta, Text: text}
}

// ToolStart builds a tool start event.
func ToolStart(tool string) AgentEvent {
	return AgentEvent{Type: EventToolStart, Tool: tool}
}

// ToolEnd builds a tool end event.
func ToolEnd(tool string, result any) AgentEvent {
	return AgentEvent{Type: EventToolEnd, Tool: tool, Result: result}
}

// StreamError builds a stream error event.
func StreamError(msg string) AgentEvent {
	return AgentEvent{Type: EventStreamError, Error: msg}
}

// StreamEnd builds the normal completion event.
func StreamEnd() AgentEvent {
	return AgentEvent{Type: EventStreamEnd}
}

// RunEvent describes the start or end of a single worker execution.
type RunEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	GraphID   string        `json:"graph_id"`
	NodeID    string        `json:"node_id"`
	ToolName  string        `json:"tool_name"`
	Streaming bool          `json:"streaming"`
	Outcome   NodeStatus    `json:"outcome,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// ToolEvent is emitted when the relay announces a tool.
type ToolEvent struct {
	Timestamp time.Time `json:"timestamp"`
	ToolName  string    `json:"tool_name"`
	TxHash    string    `json:"tx_hash,omitempty"`
}

// LifecycleHooks defines callbacks for execution observability.
type LifecycleHooks struct {
	OnRunStart   func(context.Context, *RunEvent)
	OnRunEnd     func(context.Context, *RunEvent)
	OnToolStart  func(context.Context, *ToolEvent)
	OnToolResult func(context.Context, *ToolEvent)
}
