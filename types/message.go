package types

import (
	"strings"
	"time"
)

// Role represents the role of a message participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents one conversation turn: a role, an optional participant
// name, and an ordered sequence of content blocks. Messages are treated as
// immutable after construction.
type Message struct {
	Role      Role           `json:"role"`
	Name      string         `json:"name,omitempty"`
	Blocks    Blocks         `json:"blocks"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
}

// NewMessage creates a message with the given role and blocks.
func NewMessage(role Role, blocks ...ContentBlock) Message {
	return Message{
		Role:      role,
		Blocks:    blocks,
		Timestamp: time.Now(),
	}
}

// NewSystemMessage creates a system message with a single text block.
func NewSystemMessage(text string) Message {
	return NewMessage(RoleSystem, TextBlock{Text: text})
}

// NewUserMessage creates a user message with a single text block.
func NewUserMessage(text string) Message {
	return NewMessage(RoleUser, TextBlock{Text: text})
}

// NewAssistantMessage creates an assistant message with a single text block.
func NewAssistantMessage(text string) Message {
	return NewMessage(RoleAssistant, TextBlock{Text: text})
}

// NewToolMessage creates a tool-role message carrying one tool result.
func NewToolMessage(toolID, name string, output ...ContentBlock) Message {
	return NewMessage(RoleTool, ToolResultBlock{ToolID: toolID, Name: name, Output: output})
}

// WithName returns a copy of the message with the participant name set.
func (m Message) WithName(name string) Message {
	m.Name = name
	return m
}

// WithMetadata returns a copy of the message with metadata attached.
func (m Message) WithMetadata(metadata map[string]any) Message {
	m.Metadata = metadata
	return m
}

// Text joins the message's text blocks with newlines. Thinking, media, and
// tool blocks do not contribute.
func (m Message) Text() string {
	var parts []string
	for _, b := range m.Blocks {
		if t, ok := b.(TextBlock); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ToolUses returns the message's complete (non-fragment) tool-use blocks.
func (m Message) ToolUses() []ToolUseBlock {
	var out []ToolUseBlock
	for _, b := range m.Blocks {
		if tu, ok := b.(ToolUseBlock); ok && !tu.Fragment {
			out = append(out, tu)
		}
	}
	return out
}

// ToolResults returns the message's tool-result blocks.
func (m Message) ToolResults() []ToolResultBlock {
	var out []ToolResultBlock
	for _, b := range m.Blocks {
		if tr, ok := b.(ToolResultBlock); ok {
			out = append(out, tr)
		}
	}
	return out
}

// IsToolRelated reports whether the message is part of a tool exchange:
// a tool-role message, or an assistant message carrying tool calls.
func (m Message) IsToolRelated() bool {
	if m.Role == RoleTool {
		return true
	}
	for _, b := range m.Blocks {
		if _, ok := b.(ToolUseBlock); ok {
			return true
		}
	}
	return false
}
