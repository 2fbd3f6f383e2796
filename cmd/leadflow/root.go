package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/leadflow/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "leadflow",
	Short:         "Leadflow is a lead-qualification chatbot",
	Long:          `Leadflow walks website visitors through a scripted flow, captures their answers and scores them as leads.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default leadflow.yaml when present)")
	rootCmd.PersistentFlags().String("flow", "", "Flow file (JSON or YAML); the bundled flow when empty")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("no-contact-first", false, "Do not ask for contact details before the flow")
}

// loadConfig resolves the configuration and applies flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if cmd.Flags().Changed("flow") {
		cfg.FlowPath, _ = cmd.Flags().GetString("flow")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if off, _ := cmd.Flags().GetBool("no-contact-first"); off {
		cfg.EnforceContactFirst = false
	}
	return cfg, nil
}
