package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/config"
	"github.com/ekaya-inc/ekaya-relate/pkg/handlers"
	"github.com/ekaya-inc/ekaya-relate/pkg/mcp"
	"github.com/ekaya-inc/ekaya-relate/pkg/mcp/tools"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		features featureFlags
		stdio    bool
		bindAddr string
		port     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and MCP endpoint",
		Long: `Serve the relationship inference HTTP API and the MCP streamable HTTP endpoint
at /mcp. With --stdio the MCP server speaks over stdin/stdout instead, for use
as a local MCP subprocess.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			features.apply(cfg)
			if bindAddr != "" {
				cfg.BindAddr = bindAddr
			}
			if port != "" {
				cfg.Port = port
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			mcpServer := newMCPServer(cfg, a, logger)
			if stdio {
				logger.Info("Serving MCP over stdio", zap.String("version", cfg.Version))
				return mcpServer.NewStdioServer().Listen(ctx, os.Stdin, cmd.OutOrStdout())
			}
			return serveHTTP(ctx, cfg, a, mcpServer, logger)
		},
	}

	features.register(cmd)
	cmd.Flags().BoolVar(&stdio, "stdio", false, "serve MCP over stdin/stdout instead of HTTP")
	cmd.Flags().StringVar(&bindAddr, "bind", "", "bind address (overrides bind_addr)")
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides port)")
	return cmd
}

// newMCPServer registers the tools backed by the app's analysis service.
func newMCPServer(cfg *config.Config, a *app, logger *zap.Logger) *mcp.Server {
	s := mcp.NewServer(appName, cfg.Version, logger)
	tools.RegisterHealthTool(s.MCP(), tools.HealthInfo{
		Version:    cfg.Version,
		Store:      a.analysis.StoreEnabled(),
		Embeddings: cfg.Embedding.Enabled,
		Validation: cfg.LLM.Validate,
	})
	tools.RegisterRelationshipTools(s.MCP(), &tools.RelationshipToolDeps{
		Analysis: a.analysis,
		Tiers:    a.tiers,
		Logger:   logger,
	})
	return s
}

// serveHTTP runs the HTTP server until ctx is cancelled, then drains it.
func serveHTTP(ctx context.Context, cfg *config.Config, a *app, mcpServer *mcp.Server, logger *zap.Logger) error {
	router := handlers.NewRouter(logger,
		handlers.NewHealthHandler(cfg, a.backends, logger),
		handlers.NewAnalysisHandler(a.analysis, a.tiers, logger),
		handlers.NewMCPHandler(mcpServer, logger),
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Analyses run up to the engine request timeout.
		WriteTimeout: cfg.Engine.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version),
			zap.Bool("store", a.analysis.StoreEnabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
