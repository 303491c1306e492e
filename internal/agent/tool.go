package agent

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/relay/pkg/models"
)

// Tool is an executable capability the model can request by name.
//
// Implementations declare a JSON Schema for their input; the registry
// validates every invocation against it before dispatching. Execution has no
// implicit timeout at this layer — long-running tools are bounded by the
// task's cancellation context or their own deadlines.
type Tool interface {
	// Name returns the tool name used for model function calling.
	Name() string

	// Description explains to the model what the tool does.
	Description() string

	// Schema returns the JSON Schema for the tool's input payload.
	Schema() json.RawMessage

	// Execute runs the tool with schema-valid input and returns the
	// serialized result payload.
	Execute(ctx context.Context, input json.RawMessage) (string, error)
}

// ToolDeclaration is the immutable description of a tool as presented to the
// model backend on every call.
type ToolDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"input_schema"`
}

// ModelClient performs one request/response exchange with the model backend.
//
// Implementations must not retry internally: each call may have side effects
// (token billing), so retrying is a conscious caller decision. The call must
// honor ctx cancellation so an in-flight request is abandoned promptly.
type ModelClient interface {
	Complete(ctx context.Context, history []models.ConversationMessage, tools []ToolDeclaration) (*models.Turn, error)
}
