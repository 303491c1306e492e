package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/haasonsaas/relay/internal/agent"
	"github.com/haasonsaas/relay/internal/config"
	"github.com/haasonsaas/relay/internal/notify"
	"github.com/haasonsaas/relay/internal/providers"
)

// ErrConversationBusy is returned by Process when the conversation already
// has an in-flight task.
var ErrConversationBusy = errors.New("conversation already has an in-flight task")

// Category buckets a pipeline failure for user-facing messaging. Categorize
// is the single place that decides which bucket an error lands in.
type Category string

const (
	CategoryUnknown       Category = "unknown"
	CategoryConfiguration Category = "configuration"
	CategoryDelivery      Category = "delivery"
	CategoryBackend       Category = "backend"
	CategoryUnknownTool   Category = "unknown_tool"
	CategoryToolExecution Category = "tool_execution"
	CategoryInterrupted   Category = "interrupted"
)

// Categorize maps a pipeline error onto its category. Auth failures from the
// backend count as misconfiguration since they mean a bad credential, not a
// transient service problem.
func Categorize(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	if errors.Is(err, context.Canceled) {
		return CategoryInterrupted
	}

	var validationErr *config.ValidationError
	if errors.As(err, &validationErr) {
		return CategoryConfiguration
	}

	var unknownTool *agent.UnknownToolError
	if errors.As(err, &unknownTool) {
		return CategoryUnknownTool
	}

	var toolErr *agent.ToolExecutionError
	if errors.As(err, &toolErr) {
		return CategoryToolExecution
	}

	var backendErr *providers.BackendError
	if errors.As(err, &backendErr) {
		if backendErr.Reason == providers.ReasonAuth {
			return CategoryConfiguration
		}
		return CategoryBackend
	}

	var deliveryErr *notify.DeliveryError
	if errors.As(err, &deliveryErr) {
		return CategoryDelivery
	}

	return CategoryUnknown
}

// UserMessage renders the user-facing failure notice for a categorized error.
func UserMessage(category Category, err error) string {
	switch category {
	case CategoryConfiguration:
		return "Sorry, the server is misconfigured. The operator has been notified."
	case CategoryBackend:
		return "The AI service is currently unavailable. Please try again later."
	case CategoryUnknownTool, CategoryToolExecution:
		if name := failedToolName(err); name != "" {
			return fmt.Sprintf("Sorry, the tool %q failed.", name)
		}
		return "Sorry, a tool failed."
	case CategoryInterrupted:
		return "Operation cancelled."
	default:
		return "Sorry, something went wrong while processing your request."
	}
}

func failedToolName(err error) string {
	var unknownTool *agent.UnknownToolError
	if errors.As(err, &unknownTool) {
		return unknownTool.Name
	}
	var toolErr *agent.ToolExecutionError
	if errors.As(err, &toolErr) {
		return toolErr.Name
	}
	return ""
}
