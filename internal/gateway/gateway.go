// Package gateway connects the Telegram transport to the orchestrator. It
// registers the inbound handlers and runs the long-polling loop; the handlers
// fork processing and return immediately so interrupts for other tasks are
// never queued behind a running pipeline.
package gateway

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/haasonsaas/relay/internal/notify"
	"github.com/haasonsaas/relay/internal/orchestrator"
)

// Gateway routes Telegram updates to the orchestrator.
type Gateway struct {
	bot    *bot.Bot
	orch   *orchestrator.Orchestrator
	notify *notify.Channel
	logger *slog.Logger
}

// Config wires the gateway.
type Config struct {
	Bot          *bot.Bot
	Orchestrator *orchestrator.Orchestrator
	Notify       *notify.Channel
	Logger       *slog.Logger
}

// New creates a gateway and registers its update handlers on the bot.
func New(config Config) *Gateway {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		bot:    config.Bot,
		orch:   config.Orchestrator,
		notify: config.Notify,
		logger: logger.With("component", "gateway"),
	}

	g.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, g.handleMessage)
	g.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, notify.ControlCallbackPrefix, bot.MatchTypePrefix, g.handleControl)

	return g
}

// Run starts long polling. Blocks until the context is cancelled.
func (g *Gateway) Run(ctx context.Context) {
	g.logger.Info("starting long polling")
	g.bot.Start(ctx)
	g.logger.Info("long polling stopped")
}

// handleMessage dispatches one inbound text message. Processing runs on its
// own goroutine; this handler must not block the update loop.
func (g *Gateway) handleMessage(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	g.logger.Debug("received message", "chat_id", chatID, "length", len(text))

	switch {
	case text == "/start":
		g.notify.Send(ctx, chatID, "Hi! Send me a message and I will work on it. You can cancel a running request at any time.")
	case text == "/reset":
		g.orch.Reset(chatID)
		g.notify.Send(ctx, chatID, "Conversation history cleared.")
	default:
		go func() {
			// The update context ends with the handler; processing needs
			// its own lifetime.
			if _, err := g.orch.Process(context.WithoutCancel(ctx), chatID, text); err != nil {
				g.logger.Warn("processing ended with error", "chat_id", chatID, "error", err)
			}
		}()
	}
}

// handleControl dispatches a cancel button press.
func (g *Gateway) handleControl(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	if update.CallbackQuery == nil {
		return
	}
	token := strings.TrimPrefix(update.CallbackQuery.Data, notify.ControlCallbackPrefix)
	found := g.orch.HandleInterruptAndAcknowledge(ctx, token, update.CallbackQuery.ID)
	g.logger.Info("cancel control activated", "token", token, "found", found)
}
