// Package providers implements model backend clients. The only backend is
// Anthropic's Messages API; the client performs exactly one exchange per call
// and leaves retries to the caller.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/haasonsaas/relay/internal/agent"
	"github.com/haasonsaas/relay/pkg/models"
)

// AnthropicConfig holds configuration for the Anthropic client.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL overrides the default API base URL.
	BaseURL string

	// Model is used for every request. Default: "claude-sonnet-4-20250514".
	Model string

	// System is the system prompt sent with every request.
	System string

	// MaxTokens limits response length. Default: 4096.
	MaxTokens int

	// RequestTimeout bounds a single exchange. Default: 120s. The caller's
	// cancellation context is honored independently of this timeout.
	RequestTimeout time.Duration

	// Logger is an optional slog.Logger instance.
	Logger *slog.Logger
}

// AnthropicClient implements agent.ModelClient over the official SDK.
// Each Complete call is one non-streaming exchange: no internal retry, since
// every request bills tokens and the caller owns retry decisions.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	system    string
	maxTokens int64
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAnthropicClient creates a client from the given configuration.
func NewAnthropicClient(config AnthropicConfig) (*AnthropicClient, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if config.Model == "" {
		config.Model = "claude-sonnet-4-20250514"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 120 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(options...),
		model:     config.Model,
		system:    config.System,
		maxTokens: int64(config.MaxTokens),
		timeout:   config.RequestTimeout,
		logger:    config.Logger.With("provider", "anthropic"),
	}, nil
}

// Complete performs one request/response exchange. The context propagates
// cooperative cancellation into the underlying HTTP call; the configured
// request timeout bounds the call independently.
func (c *AnthropicClient) Complete(ctx context.Context, history []models.ConversationMessage, tools []agent.ToolDeclaration) (*models.Turn, error) {
	messages, err := convertHistory(history)
	if err != nil {
		return nil, &BackendError{
			Reason:   ReasonInvalidRequest,
			Provider: "anthropic",
			Model:    c.model,
			Message:  "failed to convert history",
			Cause:    err,
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		Messages:  messages,
		MaxTokens: c.maxTokens,
	}
	if c.system != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: c.system}}
	}
	if len(tools) > 0 {
		converted, err := convertTools(tools)
		if err != nil {
			return nil, &BackendError{
				Reason:   ReasonInvalidRequest,
				Provider: "anthropic",
				Model:    c.model,
				Message:  "failed to convert tools",
				Cause:    err,
			}
		}
		params.Tools = converted
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	msg, err := c.client.Messages.New(callCtx, params)
	if err != nil {
		// Cooperative cancellation surfaces as the caller's context error,
		// not as a backend failure.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, c.wrapError(err)
	}

	turn := convertMessage(msg)
	c.logger.Debug("model exchange complete",
		"stop_reason", turn.StopReason,
		"input_tokens", turn.Usage.InputTokens,
		"output_tokens", turn.Usage.OutputTokens,
		"duration", time.Since(start))
	return turn, nil
}

// convertHistory maps conversation messages onto Anthropic message params.
// tool_result messages map to user-role messages per the Messages API.
func convertHistory(history []models.ConversationMessage) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(history))

	for _, msg := range history {
		var content []anthropic.ContentBlockParamUnion

		if msg.Content != "" {
			content = append(content, anthropic.NewTextBlock(msg.Content))
		}
		for _, tr := range msg.ToolResults {
			content = append(content, anthropic.NewToolResultBlock(tr.ToolCallID, tr.Content, tr.IsError))
		}
		for _, tc := range msg.ToolCalls {
			var input map[string]any
			if len(tc.Input) > 0 {
				if err := json.Unmarshal(tc.Input, &input); err != nil {
					return nil, fmt.Errorf("invalid tool call input for %s: %w", tc.Name, err)
				}
			}
			if input == nil {
				input = map[string]any{}
			}
			content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
		}

		if len(content) == 0 {
			continue
		}
		if msg.Role == models.RoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(content...))
		} else {
			result = append(result, anthropic.NewUserMessage(content...))
		}
	}

	return result, nil
}

func convertTools(tools []agent.ToolDeclaration) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, decl := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(decl.Schema, &schema); err != nil {
			return nil, fmt.Errorf("invalid schema for tool %s: %w", decl.Name, err)
		}
		param := anthropic.ToolUnionParamOfTool(schema, decl.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("invalid tool definition for %s", decl.Name)
		}
		param.OfTool.Description = anthropic.String(decl.Description)
		result = append(result, param)
	}
	return result, nil
}

func convertMessage(msg *anthropic.Message) *models.Turn {
	turn := &models.Turn{
		StopReason: models.StopReason(msg.StopReason),
		Usage: models.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}

	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			turn.Blocks = append(turn.Blocks, models.Block{
				Type: models.BlockText,
				Text: block.AsText().Text,
			})
		case "tool_use":
			toolUse := block.AsToolUse()
			turn.Blocks = append(turn.Blocks, models.Block{
				Type: models.BlockToolUse,
				ToolCall: &models.ToolCall{
					ID:    toolUse.ID,
					Name:  toolUse.Name,
					Input: json.RawMessage(toolUse.Input),
				},
			})
		}
	}

	return turn
}

type anthropicErrorPayload struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicClient) wrapError(err error) error {
	backendErr := &BackendError{
		Provider: "anthropic",
		Model:    c.model,
		Cause:    err,
		Reason:   classifyCause(err),
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		backendErr.Status = apiErr.StatusCode
		backendErr.Reason = classifyStatus(apiErr.StatusCode)
		if raw := apiErr.RawJSON(); raw != "" {
			var payload anthropicErrorPayload
			if json.Unmarshal([]byte(raw), &payload) == nil {
				backendErr.Message = payload.Error.Message
				backendErr.Code = payload.Error.Type
			}
		}
	}

	if backendErr.Message == "" {
		backendErr.Message = "anthropic request failed"
	}
	return backendErr
}
