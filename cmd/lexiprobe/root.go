package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexiprobe",
		Short: "Lexiprobe - scheduled probing of chat models with lexical drift metrics",
		Long: `Lexiprobe automates repeated probes of a chat-completion API with a
rotating schedule of prompt conditions, persists every exchange with
content-addressed integrity metadata, and computes lexical metrics
(coupling rate, light score, escape/refusal classification) over the
accumulated corpus.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().String("study", "", "Path to study.yaml (default: built-in study)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newProbeCommand())
	cmd.AddCommand(newReportCommand())
	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newVerifyCommand())
	cmd.AddCommand(newArchiveCommand())
	cmd.AddCommand(newInitCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}

func studyPathFromFlags(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("study")
	return path
}
