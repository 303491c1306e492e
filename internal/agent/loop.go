// Package agent implements the bounded tool-use loop that alternates model
// backend calls and tool executions until the model signals completion or the
// iteration cap is hit.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/haasonsaas/relay/internal/conversation"
	"github.com/haasonsaas/relay/pkg/models"
)

// Phase is a distinct state of the tool-use loop.
type Phase string

const (
	// PhaseAwaitingModel is the state while a backend call is in flight.
	PhaseAwaitingModel Phase = "awaiting_model"

	// PhaseExecutingTool is the state while a requested tool is running.
	PhaseExecutingTool Phase = "executing_tool"

	// PhaseDone is the terminal state.
	PhaseDone Phase = "done"
)

// LoopError wraps a failure from the loop with the phase and iteration it
// occurred in. The cause is preserved for errors.As categorization.
type LoopError struct {
	Phase     Phase
	Iteration int
	Cause     error
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("loop error at %s (iteration %d): %v", e.Phase, e.Iteration, e.Cause)
}

func (e *LoopError) Unwrap() error {
	return e.Cause
}

// DefaultMaxToolIterations bounds tool executions per processing task.
const DefaultMaxToolIterations = 10

// DefaultFallbackText is delivered when a terminal turn carries no text block.
const DefaultFallbackText = "(no response)"

// LoopConfig configures the tool-use loop.
type LoopConfig struct {
	// MaxToolIterations limits tool executions per run. Default: 10.
	MaxToolIterations int

	// FallbackText is used when the terminal turn has no text block.
	FallbackText string

	// Logger receives per-iteration debug logging. Defaults to slog.Default.
	Logger *slog.Logger
}

func (c LoopConfig) withDefaults() LoopConfig {
	if c.MaxToolIterations <= 0 {
		c.MaxToolIterations = DefaultMaxToolIterations
	}
	if c.FallbackText == "" {
		c.FallbackText = DefaultFallbackText
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Loop drives the request/response cycle against the model backend for one
// processing task at a time.
//
//	AWAITING_MODEL --(tool_use && iter < max)--> EXECUTING_TOOL --> AWAITING_MODEL
//	AWAITING_MODEL --(end_turn || iter == max)--> DONE
type Loop struct {
	client   ModelClient
	registry *Registry
	config   LoopConfig
}

// NewLoop creates a tool-use loop over the given backend client and registry.
func NewLoop(client ModelClient, registry *Registry, config LoopConfig) *Loop {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Loop{
		client:   client,
		registry: registry,
		config:   config.withDefaults(),
	}
}

// Result is the outcome of a completed loop run.
type Result struct {
	// Text is the final answer extracted from the terminal turn.
	Text string

	// Usage is the summed token usage across all backend calls.
	Usage models.Usage

	// ToolCalls is the number of tool executions performed.
	ToolCalls int

	// ModelCalls is the number of backend exchanges performed.
	ModelCalls int

	// Truncated is true when the iteration cap forced termination.
	Truncated bool
}

// Run appends the user message to the store and drives the loop to a terminal
// state. Tool and backend errors are not handled here — they propagate to the
// orchestrator, which owns user-facing error categorization. Cancellation is
// cooperative: the context is checked before each backend call and propagates
// into the call itself.
func (l *Loop) Run(ctx context.Context, store *conversation.Store, text string) (*Result, error) {
	store.Append(models.UserMessage(text))

	result := &Result{}
	var lastTurn *models.Turn

	for {
		if err := ctx.Err(); err != nil {
			return nil, &LoopError{Phase: PhaseAwaitingModel, Iteration: result.ToolCalls, Cause: err}
		}

		turn, err := l.client.Complete(ctx, store.History(), l.registry.Declarations())
		if err != nil {
			return nil, &LoopError{Phase: PhaseAwaitingModel, Iteration: result.ToolCalls, Cause: err}
		}
		result.ModelCalls++
		result.Usage = result.Usage.Add(turn.Usage)
		lastTurn = turn

		// The assistant turn is appended exactly once, tool-invocation
		// blocks included, so history reflects the true sequence
		// presented to the backend.
		store.Append(turn.AssistantMessage())

		call, hasCall := turn.FirstToolCall()
		if turn.StopReason != models.StopToolUse || !hasCall {
			break
		}

		if all := turn.ToolCalls(); len(all) > 1 {
			l.config.Logger.Warn("turn carries multiple tool calls, executing only the first",
				"tool", call.Name,
				"ignored", len(all)-1)
		}

		result.ToolCalls++
		l.config.Logger.Debug("executing tool",
			"tool", call.Name,
			"call_id", call.ID,
			"iteration", result.ToolCalls)

		output, err := l.registry.Execute(ctx, call.Name, call.Input)
		if err != nil {
			return nil, &LoopError{Phase: PhaseExecutingTool, Iteration: result.ToolCalls, Cause: err}
		}
		store.Append(models.ToolResultMessage(call.ID, output, false))

		if result.ToolCalls >= l.config.MaxToolIterations {
			// Forced termination: the last available turn supplies the
			// (possibly empty) final answer, without a further backend call.
			result.Truncated = true
			l.config.Logger.Warn("tool iteration cap reached, terminating loop",
				"max", l.config.MaxToolIterations)
			break
		}
	}

	if text, ok := lastTurn.FirstText(); ok {
		result.Text = text
	} else {
		result.Text = l.config.FallbackText
	}
	return result, nil
}
