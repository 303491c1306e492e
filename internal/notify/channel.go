// Package notify delivers outbound messages to Telegram with per-call
// timeouts and bounded retries. Delivery is the last hop of the pipeline, so
// every entry point reports a typed DeliveryError when retries are spent.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/haasonsaas/relay/internal/backoff"
	"github.com/haasonsaas/relay/internal/observability"
)

// ControlCallbackPrefix tags callback data carrying an interrupt request.
const ControlCallbackPrefix = "cancel:"

// maxCallbackData is Telegram's limit on callback_data bytes.
const maxCallbackData = 64

// BotAPI is the subset of Telegram bot operations the channel needs.
// Declared here so tests can inject a fake.
type BotAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*tgmodels.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

// Config tunes the delivery channel.
type Config struct {
	// CallTimeout bounds one network attempt. Default: 10s.
	CallTimeout time.Duration

	// MaxAttempts is the total number of tries per operation, including the
	// first. Default: 3 (two retries).
	MaxAttempts int

	// Policy is the backoff curve between attempts. Zero value means the
	// default policy (1s initial, doubling).
	Policy backoff.Policy

	// Logger is an optional slog.Logger instance.
	Logger *slog.Logger

	// Metrics is an optional metrics sink.
	Metrics *observability.Metrics
}

// Channel sends messages, placeholders, and edits to Telegram chats.
type Channel struct {
	api     BotAPI
	timeout time.Duration
	tries   int
	policy  backoff.Policy
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewChannel creates a delivery channel over the given bot API.
func NewChannel(api BotAPI, config Config) *Channel {
	if config.CallTimeout <= 0 {
		config.CallTimeout = 10 * time.Second
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Policy == (backoff.Policy{}) {
		config.Policy = backoff.DefaultPolicy()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Channel{
		api:     api,
		timeout: config.CallTimeout,
		tries:   config.MaxAttempts,
		policy:  config.Policy,
		logger:  config.Logger.With("component", "notify"),
		metrics: config.Metrics,
	}
}

// ControlData builds the callback payload for an interrupt button. Tokens that
// would exceed Telegram's callback data limit are truncated; callers keep
// tokens short enough that this never loses information in practice.
func ControlData(token string) string {
	data := ControlCallbackPrefix + token
	if len(data) > maxCallbackData {
		data = data[:maxCallbackData]
	}
	return data
}

// SendText delivers a plain text message and returns its message id.
func (c *Channel) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	return c.send(ctx, "send", &bot.SendMessageParams{ChatID: chatID, Text: text})
}

// Send delivers a plain text message on a best-effort basis. Exhausted
// retries are logged and swallowed; callers use this for advisory notices
// where a lost message must not fail the pipeline.
func (c *Channel) Send(ctx context.Context, chatID int64, text string) {
	if _, err := c.SendText(ctx, chatID, text); err != nil {
		c.logger.Warn("best-effort delivery dropped", "chat_id", chatID, "error", err)
	}
}

// SendWithControl delivers text with an inline button that lets the user
// interrupt the task identified by controlToken. Returns the message id so
// the caller can edit the message later.
func (c *Channel) SendWithControl(ctx context.Context, chatID int64, text, controlToken string) (int, error) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
		ReplyMarkup: &tgmodels.InlineKeyboardMarkup{
			InlineKeyboard: [][]tgmodels.InlineKeyboardButton{{
				{Text: "Cancel", CallbackData: ControlData(controlToken)},
			}},
		},
	}
	return c.send(ctx, "send_with_control", params)
}

// SendWithLink delivers text with a URL button attached.
func (c *Channel) SendWithLink(ctx context.Context, chatID int64, text, linkText, url string) (int, error) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
		ReplyMarkup: &tgmodels.InlineKeyboardMarkup{
			InlineKeyboard: [][]tgmodels.InlineKeyboardButton{{
				{Text: linkText, URL: url},
			}},
		},
	}
	return c.send(ctx, "send_with_link", params)
}

// Edit replaces the text of a previously sent message and removes any inline
// keyboard it carried.
func (c *Channel) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	_, err := retry(ctx, c, "edit", chatID, func(callCtx context.Context) (*tgmodels.Message, error) {
		return c.api.EditMessageText(callCtx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   messageID,
			Text:        text,
			ReplyMarkup: &tgmodels.InlineKeyboardMarkup{InlineKeyboard: [][]tgmodels.InlineKeyboardButton{}},
		})
	})
	return err
}

// AcknowledgeControl answers a callback query so the client stops showing a
// progress spinner on the pressed button.
func (c *Channel) AcknowledgeControl(ctx context.Context, callbackQueryID string) error {
	_, err := retry(ctx, c, "ack", 0, func(callCtx context.Context) (bool, error) {
		return c.api.AnswerCallbackQuery(callCtx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: callbackQueryID,
		})
	})
	return err
}

// Typing shows a typing indicator in the chat. Best effort, no retries:
// the indicator expires on its own and a missed one is harmless.
func (c *Channel) Typing(ctx context.Context, chatID int64) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, err := c.api.SendChatAction(callCtx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: tgmodels.ChatActionTyping,
	}); err != nil {
		c.logger.Debug("typing indicator failed", "chat_id", chatID, "error", err)
	}
}

func (c *Channel) send(ctx context.Context, op string, params *bot.SendMessageParams) (int, error) {
	chatID, _ := params.ChatID.(int64)
	msg, err := retry(ctx, c, op, chatID, func(callCtx context.Context) (*tgmodels.Message, error) {
		return c.api.SendMessage(callCtx, params)
	})
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// retry runs fn with a per-attempt timeout under the channel's backoff
// policy. Exhausted attempts come back as a DeliveryError carrying the
// inferred status of the last failure.
func retry[T any](ctx context.Context, c *Channel, op string, chatID int64, fn func(ctx context.Context) (T, error)) (T, error) {
	value, err := backoff.Do(ctx, c.policy, c.tries, func(attempt int) (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		v, callErr := fn(callCtx)
		if callErr != nil {
			c.metrics.RecordDeliveryAttempt(op, "error")
			c.logger.Debug("delivery attempt failed",
				"op", op, "chat_id", chatID, "attempt", attempt, "error", callErr)
			return v, callErr
		}
		c.metrics.RecordDeliveryAttempt(op, "success")
		return v, nil
	})
	if err != nil {
		return value, &DeliveryError{Op: op, ChatID: chatID, Status: statusOf(err), Cause: err}
	}
	return value, nil
}
