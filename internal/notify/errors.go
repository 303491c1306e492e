package notify

import (
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
)

// DeliveryError reports a failed outbound operation after all retry attempts
// were spent. Status carries the HTTP status inferred from the Telegram API
// error when one is recognizable.
type DeliveryError struct {
	// Op names the failed operation (send, send_with_control, edit, ack, typing).
	Op string

	// ChatID is the destination chat.
	ChatID int64

	// Status is the inferred HTTP status code, 0 if unknown.
	Status int

	// Cause is the underlying transport error.
	Cause error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("delivery %s to chat %d failed (status %d): %v", e.Op, e.ChatID, e.Status, e.Cause)
	}
	return fmt.Sprintf("delivery %s to chat %d failed: %v", e.Op, e.ChatID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// statusOf maps the bot library's sentinel errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, bot.ErrorBadRequest):
		return 400
	case errors.Is(err, bot.ErrorUnauthorized):
		return 401
	case errors.Is(err, bot.ErrorForbidden):
		return 403
	case errors.Is(err, bot.ErrorNotFound):
		return 404
	case errors.Is(err, bot.ErrorTooManyRequests):
		return 429
	default:
		return 0
	}
}
