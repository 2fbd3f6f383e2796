package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/leadflow"
	"github.com/aretw0/leadflow/internal/cli"
	"github.com/aretw0/leadflow/pkg/flow"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flow]",
	Short: "Check a flow for consistency",
	Long:  `Reports missing targets, unknown actions and nodes unreachable from the start node.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.FlowPath = args[0]
		}

		def, err := cli.LoadFlow(cfg)
		if err != nil {
			return err
		}
		bot, err := leadflow.New(leadflow.WithFlow(def))
		if err != nil {
			return err
		}

		issues := flow.Validate(def, bot.KnownAction)
		out := cmd.OutOrStdout()
		for _, issue := range issues {
			fmt.Fprintln(out, issue.String())
		}
		if err := flow.Summarize(issues); err != nil {
			return err
		}
		fmt.Fprintf(out, "Flow is valid! ✅ (%d nodes, start %q)\n", len(def.Nodes), def.Start)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
