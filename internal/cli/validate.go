package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/storeflow/internal/config"
	"github.com/aretw0/storeflow/internal/presentation/graph"
	"github.com/aretw0/storeflow/internal/validator"
)

// RunValidate checks the configured flows and prints the report to out.
// With mermaid set it prints the flow graph instead and only fails on
// load errors.
func RunValidate(ctx context.Context, cfg config.Config, out io.Writer, mermaid bool, logger *slog.Logger) error {
	app, err := Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if mermaid {
		nodes, err := app.Config.ListEnabledNodes(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(out, graph.GenerateMermaid(nodes, app.StartNode))
		return nil
	}

	report, err := validator.Validate(ctx, app.Config, app.StartNode)
	if err != nil {
		return err
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	for _, e := range report.Errors {
		fmt.Fprintf(out, "error: %s\n", e)
	}
	return report.Err()
}
