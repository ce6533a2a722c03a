package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/storeflow/internal/config"
	"github.com/aretw0/storeflow/internal/logging"
	"github.com/aretw0/storeflow/pkg/adapters/mcp"
	"github.com/aretw0/storeflow/pkg/ports"
)

// MCPOptions configures RunMCP.
type MCPOptions struct {
	// Transport is "stdio" or "sse".
	Transport string
	Addr      string
	BaseURL   string
}

// NewMCPServer opens the configured flow and wraps it in an MCP simulator.
// The caller closes the returned App.
func NewMCPServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*mcp.Server, *App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	app, err := Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	srv := mcp.NewServer(app.Config, func(t ports.Transport) mcp.Engine {
		return app.Engine(t)
	}, mcp.WithLogger(logger))
	return srv, app, nil
}

// RunMCP serves the flow simulator until ctx is done or stdin closes.
func RunMCP(ctx context.Context, cfg config.Config, opts MCPOptions, logger *slog.Logger) error {
	srv, app, err := NewMCPServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	switch opts.Transport {
	case "", "stdio":
		return srv.ServeStdio()
	case "sse":
		base := opts.BaseURL
		if base == "" {
			base = "http://localhost" + opts.Addr
		}
		return srv.ServeSSE(ctx, opts.Addr, base)
	default:
		return fmt.Errorf("unknown transport %q, supported: stdio, sse", opts.Transport)
	}
}
