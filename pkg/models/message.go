// Package models defines the shared data types exchanged between the
// conversation store, the model backend client, and the orchestrator.
package models

import (
	"encoding/json"
	"time"
)

// Role identifies who produced a conversation message.
type Role string

const (
	// RoleUser is a message typed by the end user.
	RoleUser Role = "user"

	// RoleAssistant is a model turn, possibly carrying tool calls.
	RoleAssistant Role = "assistant"

	// RoleToolResult is the serialized output of an executed tool call.
	RoleToolResult Role = "tool_result"
)

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult is the output of a tool execution, paired with the call it answers.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// ConversationMessage is one entry in a conversation history. Messages are
// append-only; once stored they are never mutated.
type ConversationMessage struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`
}

// UserMessage builds a plain text user message.
func UserMessage(text string) ConversationMessage {
	return ConversationMessage{
		Role:      RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	}
}

// ToolResultMessage builds a tool_result message answering callID.
func ToolResultMessage(callID, content string, isError bool) ConversationMessage {
	return ConversationMessage{
		Role: RoleToolResult,
		ToolResults: []ToolResult{{
			ToolCallID: callID,
			Content:    content,
			IsError:    isError,
		}},
		CreatedAt: time.Now(),
	}
}
