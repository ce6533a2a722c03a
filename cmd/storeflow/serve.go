package main

import (
	"github.com/aretw0/storeflow/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long: `Starts the HTTP server: user and order webhooks, server-sent event streams,
Prometheus metrics and, when TWILIO_* is set, the WhatsApp webhook.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTPAddr = addr
		}
		logger := cli.NewLogger(cfg.LogLevel)

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		srv, err := cli.NewServer(sigCtx, cfg, logger)
		if err != nil {
			return err
		}
		if err := srv.Run(sigCtx); err != nil {
			return err
		}
		if sig := sigCtx.Signal(); sig != nil {
			logger.Info("Stopped by signal", "signal", sig)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides STOREFLOW_HTTP_ADDR)")
}
