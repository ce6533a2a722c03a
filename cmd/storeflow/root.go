package main

import (
	"fmt"
	"os"

	"github.com/aretw0/storeflow/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storeflow",
	Short: "Storeflow runs conversational storefront flows",
	Long: `Storeflow serves chat flows built from MESSAGE, INPUT, CONDITION, SUBSCRIPTION
and ACTION nodes, and reacts to web app orders with automation rules.

Settings come from the environment (STOREFLOW_*, TWILIO_*) and an optional .env file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a .env file")
	rootCmd.PersistentFlags().String("flow", "", "YAML flow bundle (overrides STOREFLOW_FLOW_FILE)")
	rootCmd.PersistentFlags().String("dir", "", "Directory of Markdown node documents (overrides STOREFLOW_FLOWS_DIR)")
	rootCmd.PersistentFlags().String("db", "", "SQLite path or postgres:// URL (overrides STOREFLOW_DB_DSN)")
	rootCmd.PersistentFlags().String("start", "", "Start node code (overrides STOREFLOW_START_NODE)")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error (overrides STOREFLOW_LOG_LEVEL)")
}

// loadConfig reads the environment and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return cfg, err
	}

	override := func(flag string, dst *string) {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			*dst = v
		}
	}
	override("flow", &cfg.FlowFile)
	override("dir", &cfg.FlowsDir)
	override("db", &cfg.DBDSN)
	override("start", &cfg.StartNode)
	override("log-level", &cfg.LogLevel)
	return cfg, nil
}
