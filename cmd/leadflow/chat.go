package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/leadflow/internal/cli"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the bot in the terminal",
	Long:  `Runs the configured flow interactively. Answer menus with the option number or its text.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		session, _ := cmd.Flags().GetString("session")
		headless, _ := cmd.Flags().GetBool("headless")
		watch, _ := cmd.Flags().GetBool("watch")
		fresh, _ := cmd.Flags().GetBool("fresh")
		if cmd.Flags().Changed("session-dir") {
			cfg.Sessions.Dir, _ = cmd.Flags().GetString("session-dir")
		}

		return cli.RunChat(cfg, cli.ChatOptions{
			SessionID: session,
			Headless:  headless,
			Watch:     watch,
			Fresh:     fresh,
		}, cli.NewLogger(cfg.LogLevel, true))
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "cli-local", "Session id to chat as")
	chatCmd.Flags().String("session-dir", "", "Persist the session under this directory")
	chatCmd.Flags().Bool("headless", false, "No banner or prompts, for scripted IO")
	chatCmd.Flags().BoolP("watch", "w", false, "Reload the flow file when it changes")
	chatCmd.Flags().Bool("fresh", false, "Start the session over")
}
