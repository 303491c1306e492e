// Package main provides the CLI entry point for the relay.
//
// The relay connects Telegram chats to Anthropic's Messages API with tool
// execution, user-initiated cancellation, and resilient outbound delivery.
//
// Start the server:
//
//	relay serve --config relay.yaml
//
// Secrets can be provided via environment variables:
//
//   - TELEGRAM_BOT_TOKEN: Telegram bot token
//   - ANTHROPIC_API_KEY: Anthropic API key
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/relay/internal/agent"
	"github.com/haasonsaas/relay/internal/config"
	"github.com/haasonsaas/relay/internal/conversation"
	"github.com/haasonsaas/relay/internal/gateway"
	"github.com/haasonsaas/relay/internal/notify"
	"github.com/haasonsaas/relay/internal/observability"
	"github.com/haasonsaas/relay/internal/orchestrator"
	"github.com/haasonsaas/relay/internal/providers"
	"github.com/haasonsaas/relay/internal/tasks"
	"github.com/haasonsaas/relay/internal/tools"
	"github.com/haasonsaas/relay/internal/usage"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "relay",
		Short: "Telegram to Anthropic conversational relay",
	}

	var configPath string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("relay %s (%s)\n", version, commit)
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)
	return rootCmd
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := buildLogger(cfg.Logging)
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(registry)
	}

	b, err := bot.New(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}

	channel := notify.NewChannel(b, notify.Config{
		Logger:  logger,
		Metrics: metrics,
	})

	toolRegistry := agent.NewRegistry()
	filesConfig := tools.FilesConfig{
		Workspace:    cfg.Tools.Workspace,
		MaxReadBytes: cfg.Tools.MaxReadBytes,
	}
	builtins := []agent.Tool{
		tools.NewListFilesTool(filesConfig),
		tools.NewReadFileTool(filesConfig),
		tools.NewFetchURLTool(tools.FetchConfig{
			MaxBytes: cfg.Tools.FetchMaxBytes,
			Timeout:  cfg.Tools.FetchTimeout,
		}),
		tools.NewCurrentTimeTool(),
	}
	for _, tool := range builtins {
		if err := toolRegistry.Register(tool); err != nil {
			return fmt.Errorf("register tool %s: %w", tool.Name(), err)
		}
	}

	client, err := providers.NewAnthropicClient(providers.AnthropicConfig{
		APIKey:         cfg.Model.APIKey,
		BaseURL:        cfg.Model.BaseURL,
		Model:          cfg.Model.Model,
		System:         cfg.Agent.SystemPrompt,
		MaxTokens:      cfg.Model.MaxTokens,
		RequestTimeout: cfg.Model.RequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	loop := agent.NewLoop(client, toolRegistry, agent.LoopConfig{
		MaxToolIterations: cfg.Agent.MaxToolIterations,
		Logger:            logger,
	})

	orch := orchestrator.New(orchestrator.Config{
		Conversations: conversation.NewManager(),
		Loop:          loop,
		Notify:        channel,
		Tasks:         tasks.NewRegistry(logger),
		Tracker:       usage.NewTracker(),
		Pricing:       cfg.Pricing,
		Logger:        logger,
		Metrics:       metrics,
	})

	gw := gateway.New(gateway.Config{
		Bot:          b,
		Orchestrator: orch,
		Notify:       channel,
		Logger:       logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", "addr", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	logger.Info("relay started", "version", version, "model", cfg.Model.Model)
	gw.Run(ctx)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}

	logger.Info("relay stopped")
	return nil
}

func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
