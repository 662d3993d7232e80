package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/campaign-assistant/internal/adapters/mcp"
	"github.com/kirillkom/campaign-assistant/internal/bootstrap"
	"github.com/kirillkom/campaign-assistant/internal/config"
	"github.com/kirillkom/campaign-assistant/internal/observability/logging"
)

const serviceName = "mcp"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	mcpServer := mcpadapter.NewServer(mcpadapter.NewTools(app.Retriever, app.Synthesizer))

	switch cfg.MCPTransport {
	case config.MCPTransportHTTP:
		httpServer := server.NewStreamableHTTPServer(mcpServer)
		go func() {
			slog.Info("mcp_listening", "transport", cfg.MCPTransport, "port", cfg.MCPPort)
			if err := httpServer.Start(":" + cfg.MCPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("mcp_server_failed", "error", err)
				stop()
			}
		}()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("mcp_shutdown_failed", "error", err)
		}
	default:
		slog.Info("mcp_listening", "transport", config.MCPTransportStdio)
		stdio := server.NewStdioServer(mcpServer)
		if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("mcp_server_failed", "error", err)
			os.Exit(1)
		}
	}
}
