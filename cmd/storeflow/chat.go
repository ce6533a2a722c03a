package main

import (
	"os"

	"github.com/aretw0/storeflow/internal/cli"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Play a flow in the terminal",
	Long: `Starts a local conversation with the configured flow. Type a number to press a
button, /start to go home, /go CODE to jump to a node, /contact PHONE to share
a contact and /quit to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		user, _ := cmd.Flags().GetString("user")
		quiet, _ := cmd.Flags().GetBool("quiet")

		opts := cli.ChatOptions{UserID: user, Banner: !quiet}
		if cmd.Flags().Changed("markdown") {
			md, _ := cmd.Flags().GetBool("markdown")
			opts.Markdown = &md
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		// Logs go to stderr so they do not mix with the conversation.
		return cli.RunChat(sigCtx, cfg, os.Stdin, os.Stdout, opts, cli.NewLogger(cfg.LogLevel))
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("user", "u", "console", "User id to chat as")
	chatCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
	chatCmd.Flags().Bool("markdown", false, "Force Markdown rendering on or off")
}
