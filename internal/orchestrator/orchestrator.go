// Package orchestrator ties the pipeline together: it sends the processing
// placeholder, forks the tool-use loop as a cancellable task, awaits its
// outcome, and reconciles the placeholder with exactly one outcome message.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/relay/internal/agent"
	"github.com/haasonsaas/relay/internal/conversation"
	"github.com/haasonsaas/relay/internal/observability"
	"github.com/haasonsaas/relay/internal/tasks"
	"github.com/haasonsaas/relay/internal/usage"
)

const (
	placeholderText = "Processing your request..."
	completedText   = "Done."
	cancelledText   = "Operation cancelled."
	busyText        = "Still working on your previous message. Cancel it or wait for it to finish."
	previewLinkText = "Open preview"
)

// Notifier is the outbound delivery surface the orchestrator needs.
// Implemented by notify.Channel.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string)
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	SendWithControl(ctx context.Context, chatID int64, text, controlToken string) (int, error)
	SendWithLink(ctx context.Context, chatID int64, text, linkText, url string) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string) error
	AcknowledgeControl(ctx context.Context, callbackQueryID string) error
	Typing(ctx context.Context, chatID int64)
}

// PipelineRunner drives the bounded tool-use loop. Implemented by agent.Loop.
type PipelineRunner interface {
	Run(ctx context.Context, store *conversation.Store, text string) (*agent.Result, error)
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Conversations *conversation.Manager
	Loop          PipelineRunner
	Notify        Notifier
	Tasks         *tasks.Registry
	Tracker       *usage.Tracker
	Pricing       usage.Pricing
	Logger        *slog.Logger
	Metrics       *observability.Metrics
}

// Orchestrator handles inbound messages and interrupt requests.
type Orchestrator struct {
	conversations *conversation.Manager
	loop          PipelineRunner
	notify        Notifier
	tasks         *tasks.Registry
	tracker       *usage.Tracker
	pricing       usage.Pricing
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// New creates an orchestrator.
func New(config Config) *Orchestrator {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracker := config.Tracker
	if tracker == nil {
		tracker = usage.NewTracker()
	}
	return &Orchestrator{
		conversations: config.Conversations,
		loop:          config.Loop,
		notify:        config.Notify,
		tasks:         config.Tasks,
		tracker:       tracker,
		pricing:       config.Pricing,
		logger:        logger.With("component", "orchestrator"),
		metrics:       config.Metrics,
	}
}

// Process runs the full pipeline for one inbound message and blocks until the
// task reaches a terminal state. The caller runs it on its own goroutine so
// unrelated inbound events (interrupts in particular) are serviced without
// delay. Exactly one outbound message or edit communicates the outcome.
func (o *Orchestrator) Process(ctx context.Context, chatID int64, text string) (tasks.Outcome, error) {
	o.metrics.RecordMessage("inbound")

	taskID := newTaskID(chatID)
	logger := o.logger.With("chat_id", chatID, "task_id", taskID)

	if !o.conversations.Acquire(chatID, taskID) {
		logger.Info("conversation busy, rejecting message")
		o.notify.Send(ctx, chatID, busyText)
		return tasks.Outcome{}, fmt.Errorf("%w: chat %d", ErrConversationBusy, chatID)
	}
	defer o.conversations.Release(chatID, taskID)

	statusID, err := o.notify.SendWithControl(ctx, chatID, placeholderText, taskID)
	if err != nil {
		logger.Error("placeholder delivery failed", "error", err)
		o.notify.Send(ctx, chatID, UserMessage(CategoryDelivery, err))
		return tasks.Outcome{}, err
	}

	store := o.conversations.Get(chatID)
	start := time.Now()
	o.metrics.TaskStarted()
	defer func() { o.metrics.TaskFinished(time.Since(start).Seconds()) }()

	err = o.tasks.Fork(ctx, taskID, func(taskCtx context.Context) (string, error) {
		return o.runPipeline(taskCtx, chatID, statusID, store, text)
	})
	if err != nil {
		logger.Error("task fork failed", "error", err)
		o.reconcileFailure(ctx, chatID, statusID, err, logger)
		return tasks.Outcome{}, err
	}

	outcome, err := o.tasks.Await(taskID)
	if err != nil {
		return tasks.Outcome{}, err
	}
	o.metrics.RecordTaskOutcome(outcome.State.String())

	switch outcome.State {
	case tasks.StateInterrupted:
		logger.Info("task interrupted", "duration", time.Since(start))
		if err := o.notify.Edit(ctx, chatID, statusID, cancelledText); err != nil {
			logger.Warn("cancellation notice edit failed", "error", err)
			o.notify.Send(ctx, chatID, cancelledText)
		}
		return outcome, nil

	case tasks.StateFailed:
		logger.Error("task failed", "error", outcome.Err, "duration", time.Since(start))
		o.reconcileFailure(ctx, chatID, statusID, outcome.Err, logger)
		return outcome, outcome.Err

	default:
		logger.Info("task completed", "duration", time.Since(start))
		return outcome, nil
	}
}

// runPipeline is the forked unit of work: tool-use loop, usage accounting,
// completion marker, final delivery. Errors propagate untouched so the
// reconciliation path categorizes them in one place.
func (o *Orchestrator) runPipeline(ctx context.Context, chatID int64, statusID int, store *conversation.Store, text string) (string, error) {
	o.notify.Typing(ctx, chatID)

	result, err := o.loop.Run(ctx, store, text)
	if err != nil {
		return "", err
	}

	o.tracker.Record(result.Usage)
	o.metrics.RecordModelRequest("success", result.Usage.InputTokens, result.Usage.OutputTokens)

	final := result.Text
	if annotation := usage.Annotation(result.Usage, o.pricing); annotation != "" {
		final += "\n\n" + annotation
	}

	if err := o.notify.Edit(ctx, chatID, statusID, completedText); err != nil {
		// The answer still goes out; a stale placeholder is cosmetic.
		o.logger.Warn("completion marker edit failed", "chat_id", chatID, "error", err)
	}

	if previewURL, stripped, found := ExtractPreviewURL(final); found {
		if _, err := o.notify.SendWithLink(ctx, chatID, stripped, previewLinkText, previewURL); err != nil {
			return "", err
		}
	} else {
		if _, err := o.notify.SendText(ctx, chatID, final); err != nil {
			return "", err
		}
	}
	o.metrics.RecordMessage("outbound")

	return result.Text, nil
}

// reconcileFailure edits the placeholder to the categorized notice, falling
// back to a best-effort plain send when the edit itself fails.
func (o *Orchestrator) reconcileFailure(ctx context.Context, chatID int64, statusID int, cause error, logger *slog.Logger) {
	category := Categorize(cause)
	notice := UserMessage(category, cause)
	logger.Error("pipeline failure", "category", category, "error", cause)

	if err := o.notify.Edit(ctx, chatID, statusID, notice); err != nil {
		logger.Warn("failure notice edit failed", "error", err)
		o.notify.Send(ctx, chatID, notice)
	}
}

// HandleInterrupt requests cooperative cancellation of the task. The await
// path in Process edits the placeholder once the pipeline actually unwinds.
func (o *Orchestrator) HandleInterrupt(taskID string) bool {
	found := o.tasks.Cancel(taskID)
	o.logger.Info("interrupt requested", "task_id", taskID, "found", found)
	return found
}

// HandleInterruptAndAcknowledge cancels the task referenced by a control
// token and acknowledges the control activation.
func (o *Orchestrator) HandleInterruptAndAcknowledge(ctx context.Context, controlToken, controlID string) bool {
	found := o.HandleInterrupt(controlToken)
	if err := o.notify.AcknowledgeControl(ctx, controlID); err != nil {
		o.logger.Warn("control acknowledgement failed", "control_id", controlID, "error", err)
	}
	return found
}

// Reset clears the conversation history. Wired to the /reset command.
func (o *Orchestrator) Reset(chatID int64) {
	o.conversations.Get(chatID).Clear()
	o.logger.Info("conversation reset", "chat_id", chatID)
}

// newTaskID derives a task id from the conversation id plus a unique suffix.
// The full id doubles as the control token on the cancel button.
func newTaskID(chatID int64) string {
	return fmt.Sprintf("%d-%s", chatID, uuid.NewString()[:8])
}
