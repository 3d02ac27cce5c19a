package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/plotline"
	"github.com/aretw0/plotline/internal/config"
	"github.com/aretw0/plotline/pkg/adapters/mcp"
	"github.com/aretw0/plotline/pkg/allocator"
)

// MCPOptions configure the MCP server.
type MCPOptions struct {
	// Transport is "stdio" or "sse".
	Transport string
	Port      int
	Debug     bool
	Logger    *slog.Logger
}

// RunMCP exposes the pipeline as MCP tools and resources.
func RunMCP(ctx context.Context, cfg *config.Config, opts MCPOptions) error {
	if opts.Transport != "stdio" && opts.Transport != "sse" {
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", opts.Transport)
	}

	svc, err := Build(ctx, cfg, BuildOptions{
		DefaultStrategy: allocator.StrategyToken,
		Debug:           opts.Debug,
		Logger:          opts.Logger,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := mcp.NewServer(svc.Engine, plotline.Version,
		mcp.WithResultStore(svc.Results),
		mcp.WithConverter(svc.Converter),
		mcp.WithLogger(opts.Logger),
	)

	if opts.Transport == "stdio" {
		opts.Logger.Info("Starting plotline MCP server (stdio)")
		return srv.ServeStdio()
	}

	opts.Logger.Info("Starting plotline MCP server (SSE)", "port", opts.Port)
	if err := srv.ServeSSE(ctx, opts.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	opts.Logger.Info("MCP server stopped gracefully")
	return nil
}
