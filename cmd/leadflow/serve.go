package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/leadflow/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Serves the chat, agent takeover, lead and analytics endpoints over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("listen") {
			cfg.Listen, _ = cmd.Flags().GetString("listen")
		}
		if cmd.Flags().Changed("admin-token") {
			cfg.AdminToken, _ = cmd.Flags().GetString("admin-token")
		}
		watch, _ := cmd.Flags().GetBool("watch")
		delay, _ := cmd.Flags().GetDuration("chunk-delay")

		return cli.Serve(cfg, cli.ServeOptions{Watch: watch, ChunkDelay: delay}, cli.NewLogger(cfg.LogLevel, false))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", ":8080", "Address to listen on")
	serveCmd.Flags().String("admin-token", "", "Bearer token for agent, lead and analytics routes")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the flow file when it changes")
	serveCmd.Flags().Duration("chunk-delay", 0, "Pause between streamed reply chunks")
}
