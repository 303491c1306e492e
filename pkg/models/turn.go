package models

// StopReason is the model backend's reason for ending a turn.
type StopReason string

const (
	// StopEndTurn means the model finished its answer.
	StopEndTurn StopReason = "end_turn"

	// StopToolUse means the model is requesting tool execution.
	StopToolUse StopReason = "tool_use"

	// StopMaxTokens means the response hit the output token limit.
	StopMaxTokens StopReason = "max_tokens"

	// StopStopSequence means a configured stop sequence was produced.
	StopStopSequence StopReason = "stop_sequence"
)

// BlockType discriminates the content blocks of a turn.
type BlockType string

const (
	BlockText    BlockType = "text"
	BlockToolUse BlockType = "tool_use"
)

// Block is a single ordered content block within a model turn.
type Block struct {
	Type     BlockType `json:"type"`
	Text     string    `json:"text,omitempty"`
	ToolCall *ToolCall `json:"tool_call,omitempty"`
}

// Usage holds token consumption counters for one or more model calls.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add returns the element-wise sum of two usage counters.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

// Turn is the result of one model backend exchange. It is transient: the
// caller derives conversation messages from it and then discards it.
type Turn struct {
	Blocks     []Block    `json:"blocks"`
	StopReason StopReason `json:"stop_reason"`
	Usage      Usage      `json:"usage"`
}

// FirstText returns the first text block of the turn, if any.
func (t *Turn) FirstText() (string, bool) {
	for _, b := range t.Blocks {
		if b.Type == BlockText {
			return b.Text, true
		}
	}
	return "", false
}

// FirstToolCall returns the first tool invocation block of the turn, if any.
// When a turn carries several tool calls only the first is honored; the rest
// are ignored.
func (t *Turn) FirstToolCall() (*ToolCall, bool) {
	for _, b := range t.Blocks {
		if b.Type == BlockToolUse && b.ToolCall != nil {
			return b.ToolCall, true
		}
	}
	return nil, false
}

// ToolCalls returns every tool invocation block of the turn in order.
func (t *Turn) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, b := range t.Blocks {
		if b.Type == BlockToolUse && b.ToolCall != nil {
			calls = append(calls, *b.ToolCall)
		}
	}
	return calls
}

// AssistantMessage converts the turn into the assistant history entry that
// was presented to the backend, preserving text and tool call blocks.
func (t *Turn) AssistantMessage() ConversationMessage {
	msg := ConversationMessage{Role: RoleAssistant}
	for _, b := range t.Blocks {
		switch b.Type {
		case BlockText:
			if msg.Content == "" {
				msg.Content = b.Text
			} else {
				msg.Content += "\n" + b.Text
			}
		case BlockToolUse:
			if b.ToolCall != nil {
				msg.ToolCalls = append(msg.ToolCalls, *b.ToolCall)
			}
		}
	}
	return msg
}
