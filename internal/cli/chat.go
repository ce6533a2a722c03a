package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/aretw0/storeflow"
	"github.com/aretw0/storeflow/internal/config"
	"github.com/aretw0/storeflow/internal/logging"
	"github.com/aretw0/storeflow/internal/presentation/tui"
	"github.com/aretw0/storeflow/pkg/adapters/console"
	"github.com/aretw0/storeflow/pkg/observability"
)

// ChatOptions configures RunChat.
type ChatOptions struct {
	UserID   string
	Banner   bool
	Markdown *bool
}

// RunChat plays a conversation in the terminal as opts.UserID.
func RunChat(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer, opts ChatOptions, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	app, err := Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if opts.UserID == "" {
		opts.UserID = "console"
	}
	if opts.Banner {
		tui.PrintBanner(out, storeflow.Version)
	}

	trOpts := []console.Option{console.WithUser(opts.UserID)}
	if opts.Markdown != nil {
		trOpts = append(trOpts, console.WithMarkdown(*opts.Markdown))
	}
	tr := console.New(out, trOpts...)

	eng := app.Engine(tr, storeflow.WithLifecycleHooks(observability.LogHooks(logger)))
	return console.Chat(ctx, in, tr, eng, opts.UserID)
}
