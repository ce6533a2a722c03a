package main

import (
	"fmt"

	"github.com/aretw0/storeflow/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the flow for consistency",
	Long:  `Reports dangling targets, invalid nodes, unreachable nodes and rules pointing to missing presets.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cli.RunValidate(cmd.Context(), cfg, cmd.OutOrStdout(), false, cli.NewLogger(cfg.LogLevel)); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Flow is valid! ✅")
		return nil
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the flow graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the enabled nodes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return cli.RunValidate(cmd.Context(), cfg, cmd.OutOrStdout(), true, cli.NewLogger(cfg.LogLevel))
	},
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a starter flow as Markdown documents",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "flows"
		if len(args) > 0 {
			dir = args[0]
		}
		if err := cli.Scaffold(cmd.Context(), dir); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Starter flow written to %s. Try: storeflow chat --dir %s\n", dir, dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd, graphCmd, initCmd)
}
