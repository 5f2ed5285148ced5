package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/academate/internal/api"
	"github.com/kalambet/academate/internal/config"
	"github.com/kalambet/academate/internal/dataset"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server with the chat UI, REST API and MCP endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the lookup tools over MCP on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStdioMCP()
	},
}

func loadConfig() (config.Config, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, setupLogging(cfg.Log), nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "academate version %s\n", version)

	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printStep("Loading datasets from %s", cfg.Data.Dir)
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	printStatus("Datasets", "%d loaded from %s", len(dataset.Names()), a.loader.Dir())
	printStatus("Tools", "%d registered", len(a.registry.Names()))

	var asker api.Asker
	if a.runner != nil {
		asker = a.runner
		printStatus("Agent", "%s", cfg.Agent.Model)
	} else {
		printWarning("GOOGLE_API_KEY is not set; /api/chat will answer 503")
	}
	if cfg.Server.APIToken == "" {
		printStatus("Auth", "disabled")
	}

	mcpSrv := api.NewMCPServer(api.MCPDeps{Tools: a.registry, Sessions: a.sessions})
	handler := api.NewHandler(api.Deps{
		Agent:    asker,
		Tools:    a.registry,
		Sessions: a.sessions,
		Token:    cfg.Server.APIToken,
		MCP:      api.NewMCPHTTPHandler(mcpSrv),
	})

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		printSuccess("academate listening on http://%s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runStdioMCP() error {
	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	mcpSrv := api.NewMCPServer(api.MCPDeps{Tools: a.registry, Sessions: a.sessions})
	slog.Info("MCP server started (stdio transport)")
	if err := server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}
