package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haasonsaas/relay/internal/agent"
	"github.com/haasonsaas/relay/internal/conversation"
	"github.com/haasonsaas/relay/internal/providers"
	"github.com/haasonsaas/relay/internal/tasks"
	"github.com/haasonsaas/relay/pkg/models"
)

type sentMessage struct {
	text  string
	token string
	url   string
}

type fakeNotifier struct {
	mu          sync.Mutex
	sends       []sentMessage
	controls    []sentMessage
	links       []sentMessage
	edits       []sentMessage
	acks        []string
	editErr     error
	controlSent chan string
	nextID      int
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{controlSent: make(chan string, 1)}
}

func (f *fakeNotifier) Send(ctx context.Context, chatID int64, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sentMessage{text: text})
}

func (f *fakeNotifier) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sentMessage{text: text})
	f.nextID++
	return f.nextID, nil
}

func (f *fakeNotifier) SendWithControl(ctx context.Context, chatID int64, text, controlToken string) (int, error) {
	f.mu.Lock()
	f.controls = append(f.controls, sentMessage{text: text, token: controlToken})
	f.nextID++
	id := f.nextID
	f.mu.Unlock()
	select {
	case f.controlSent <- controlToken:
	default:
	}
	return id, nil
}

func (f *fakeNotifier) SendWithLink(ctx context.Context, chatID int64, text, linkText, url string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = append(f.links, sentMessage{text: text, url: url})
	f.nextID++
	return f.nextID, nil
}

func (f *fakeNotifier) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, sentMessage{text: text})
	return nil
}

func (f *fakeNotifier) AcknowledgeControl(ctx context.Context, callbackQueryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, callbackQueryID)
	return nil
}

func (f *fakeNotifier) Typing(ctx context.Context, chatID int64) {}

func (f *fakeNotifier) snapshot() (sends, controls, links, edits []sentMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sends...),
		append([]sentMessage(nil), f.controls...),
		append([]sentMessage(nil), f.links...),
		append([]sentMessage(nil), f.edits...)
}

type fakeRunner struct {
	result *agent.Result
	err    error
	block  bool
}

func (f *fakeRunner) Run(ctx context.Context, store *conversation.Store, text string) (*agent.Result, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newOrchestrator(runner PipelineRunner, notifier Notifier) *Orchestrator {
	return New(Config{
		Conversations: conversation.NewManager(),
		Loop:          runner,
		Notify:        notifier,
		Tasks:         tasks.NewRegistry(nil),
	})
}

func TestProcessCompletedDeliversAnswer(t *testing.T) {
	notifier := newFakeNotifier()
	runner := &fakeRunner{result: &agent.Result{
		Text:  "The answer is 42.",
		Usage: models.Usage{InputTokens: 10, OutputTokens: 5},
	}}
	orch := newOrchestrator(runner, notifier)

	outcome, err := orch.Process(context.Background(), 7, "question")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if outcome.State != tasks.StateCompleted {
		t.Errorf("State = %v, want completed", outcome.State)
	}

	sends, controls, links, edits := notifier.snapshot()
	if len(controls) != 1 || controls[0].text != placeholderText {
		t.Fatalf("controls = %+v, want one placeholder", controls)
	}
	if len(edits) != 1 || edits[0].text != completedText {
		t.Errorf("edits = %+v, want one completion marker", edits)
	}
	if len(links) != 0 {
		t.Errorf("links = %+v, want none", links)
	}
	if len(sends) != 1 {
		t.Fatalf("sends = %+v, want exactly one outcome message", sends)
	}
	if !strings.HasPrefix(sends[0].text, "The answer is 42.") {
		t.Errorf("final text = %q", sends[0].text)
	}
	if !strings.Contains(sends[0].text, "tokens: 10 in / 5 out") {
		t.Errorf("final text %q should carry the usage annotation", sends[0].text)
	}
}

func TestProcessExtractsPreviewURL(t *testing.T) {
	notifier := newFakeNotifier()
	runner := &fakeRunner{result: &agent.Result{
		Text: "Deployed! Visit https://myapp-preview.example.com/build/1 to check.",
	}}
	orch := newOrchestrator(runner, notifier)

	if _, err := orch.Process(context.Background(), 7, "deploy"); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	sends, _, links, _ := notifier.snapshot()
	if len(sends) != 0 {
		t.Errorf("sends = %+v, want none when a preview link exists", sends)
	}
	if len(links) != 1 {
		t.Fatalf("links = %+v, want one", links)
	}
	if links[0].url != "https://myapp-preview.example.com/build/1" {
		t.Errorf("link url = %q", links[0].url)
	}
	if strings.Contains(links[0].text, "https://") {
		t.Errorf("displayed text %q should have the URL stripped", links[0].text)
	}
}

func TestProcessBackendFailureEditsPlaceholder(t *testing.T) {
	notifier := newFakeNotifier()
	runner := &fakeRunner{err: &providers.BackendError{
		Reason:   providers.ReasonServerError,
		Provider: "anthropic",
		Message:  "overload",
	}}
	orch := newOrchestrator(runner, notifier)

	outcome, err := orch.Process(context.Background(), 7, "question")
	if err == nil {
		t.Fatal("Process() should return the pipeline error")
	}
	if outcome.State != tasks.StateFailed {
		t.Errorf("State = %v, want failed", outcome.State)
	}

	var backendErr *providers.BackendError
	if !errors.As(err, &backendErr) {
		t.Errorf("error = %v, want BackendError", err)
	}

	sends, _, _, edits := notifier.snapshot()
	if len(edits) != 1 || !strings.Contains(edits[0].text, "AI service") {
		t.Errorf("edits = %+v, want one backend failure notice", edits)
	}
	if len(sends) != 0 {
		t.Errorf("sends = %+v, want none (edit carried the outcome)", sends)
	}
}

func TestProcessFailureEditFallsBackToSend(t *testing.T) {
	notifier := newFakeNotifier()
	notifier.editErr = errors.New("edit rejected")
	runner := &fakeRunner{err: errors.New("pipeline exploded")}
	orch := newOrchestrator(runner, notifier)

	if _, err := orch.Process(context.Background(), 7, "question"); err == nil {
		t.Fatal("Process() should return the pipeline error")
	}

	sends, _, _, _ := notifier.snapshot()
	if len(sends) != 1 {
		t.Fatalf("sends = %+v, want one fallback notice", sends)
	}
	if !strings.Contains(sends[0].text, "something went wrong") {
		t.Errorf("fallback notice = %q", sends[0].text)
	}
}

func TestProcessInterrupt(t *testing.T) {
	notifier := newFakeNotifier()
	runner := &fakeRunner{block: true}
	orch := newOrchestrator(runner, notifier)

	type processResult struct {
		outcome tasks.Outcome
		err     error
	}
	done := make(chan processResult, 1)
	go func() {
		outcome, err := orch.Process(context.Background(), 7, "long job")
		done <- processResult{outcome, err}
	}()

	var taskID string
	select {
	case taskID = <-notifier.controlSent:
	case <-time.After(5 * time.Second):
		t.Fatal("placeholder was never sent")
	}

	if !orch.HandleInterrupt(taskID) {
		t.Error("HandleInterrupt() = false, want true for a running task")
	}

	result := <-done
	if result.err != nil {
		t.Fatalf("Process() error = %v", result.err)
	}
	if result.outcome.State != tasks.StateInterrupted {
		t.Errorf("State = %v, want interrupted", result.outcome.State)
	}

	sends, _, _, edits := notifier.snapshot()
	if len(edits) != 1 || edits[0].text != cancelledText {
		t.Errorf("edits = %+v, want one cancellation notice", edits)
	}
	if len(sends) != 0 {
		t.Errorf("sends = %+v, want none", sends)
	}
}

func TestProcessRejectsBusyConversation(t *testing.T) {
	notifier := newFakeNotifier()
	runner := &fakeRunner{block: true}
	orch := newOrchestrator(runner, notifier)

	go orch.Process(context.Background(), 7, "first") //nolint:errcheck

	var taskID string
	select {
	case taskID = <-notifier.controlSent:
	case <-time.After(5 * time.Second):
		t.Fatal("first task never started")
	}

	_, err := orch.Process(context.Background(), 7, "second")
	if !errors.Is(err, ErrConversationBusy) {
		t.Errorf("Process() error = %v, want ErrConversationBusy", err)
	}

	sends, _, _, _ := notifier.snapshot()
	if len(sends) != 1 || !strings.Contains(sends[0].text, "Still working") {
		t.Errorf("sends = %+v, want one busy notice", sends)
	}

	orch.HandleInterrupt(taskID)
}

func TestHandleInterruptUnknownTask(t *testing.T) {
	orch := newOrchestrator(&fakeRunner{}, newFakeNotifier())
	if orch.HandleInterrupt("7-deadbeef") {
		t.Error("HandleInterrupt() on unknown task = true, want false")
	}
}

func TestHandleInterruptAndAcknowledge(t *testing.T) {
	notifier := newFakeNotifier()
	orch := newOrchestrator(&fakeRunner{}, notifier)

	orch.HandleInterruptAndAcknowledge(context.Background(), "7-deadbeef", "cb-1")

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.acks) != 1 || notifier.acks[0] != "cb-1" {
		t.Errorf("acks = %v, want [cb-1]", notifier.acks)
	}
}

func TestCategorize(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Category
	}{
		{"backend", &providers.BackendError{Reason: providers.ReasonRateLimit}, CategoryBackend},
		{"backend auth is config", &providers.BackendError{Reason: providers.ReasonAuth}, CategoryConfiguration},
		{"unknown tool", &agent.UnknownToolError{Name: "nope"}, CategoryUnknownTool},
		{"tool execution", &agent.ToolExecutionError{Name: "read_file", Cause: errors.New("boom")}, CategoryToolExecution},
		{"cancelled", context.Canceled, CategoryInterrupted},
		{"anything else", errors.New("mystery"), CategoryUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Categorize(tc.err); got != tc.want {
				t.Errorf("Categorize() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCategorizeUnwrapsLoopErrors(t *testing.T) {
	wrapped := &agent.LoopError{
		Phase:     agent.PhaseExecutingTool,
		Iteration: 3,
		Cause:     &agent.ToolExecutionError{Name: "fetch_url", Cause: errors.New("timeout")},
	}
	if got := Categorize(wrapped); got != CategoryToolExecution {
		t.Errorf("Categorize() = %v, want tool_execution", got)
	}
	if msg := UserMessage(CategoryToolExecution, wrapped); !strings.Contains(msg, "fetch_url") {
		t.Errorf("UserMessage() = %q, want tool name included", msg)
	}
}
