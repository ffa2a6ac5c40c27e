package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/probelab/lexiprobe/internal/config"
	"github.com/probelab/lexiprobe/internal/ledger"
	"github.com/probelab/lexiprobe/internal/metrics"
	"github.com/probelab/lexiprobe/internal/report"
)

var (
	reportJSONPath     string
	reportMarkdownPath string
	reportHTMLPath     string
)

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute lexical metrics over the ledger",
		Long: `Scan the full ledger and compute the per-group metrics snapshot:
coupling rate, light score with bootstrap CI, escape/refusal rates, mean
reasoning tokens and basin classification. The snapshot is derived state,
recomputed from scratch on every run.`,
		Args: cobra.NoArgs,
		RunE: reportCommandE,
	}

	cmd.Flags().StringVar(&reportJSONPath, "json", "", "Write the snapshot as JSON to this path")
	cmd.Flags().StringVar(&reportMarkdownPath, "markdown", "", "Write a markdown report to this path")
	cmd.Flags().StringVar(&reportHTMLPath, "html", "", "Write an HTML report to this path")

	return cmd
}

func reportCommandE(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadLocal(studyPathFromFlags(cmd))
	if err != nil {
		return err
	}

	rows, err := ledger.Read(cfg.Paths.Ledger)
	if err != nil {
		return err
	}
	snap := metrics.Compute(rows, &cfg.Study.Lexicon)

	// Sample responses only make sense on an interactive terminal.
	withSamples := term.IsTerminal(int(os.Stdout.Fd()))
	report.WriteTable(os.Stdout, snap, withSamples)

	if reportJSONPath != "" {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		if err := os.WriteFile(reportJSONPath, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", reportJSONPath, err)
		}
		fmt.Printf("\nSnapshot saved to: %s\n", reportJSONPath)
	}

	if reportMarkdownPath != "" {
		if err := os.WriteFile(reportMarkdownPath, report.RenderMarkdown(cfg.Study.Name, snap), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", reportMarkdownPath, err)
		}
		fmt.Printf("Markdown report saved to: %s\n", reportMarkdownPath)
	}

	if reportHTMLPath != "" {
		html, err := report.RenderHTML(cfg.Study.Name, snap)
		if err != nil {
			return err
		}
		if err := os.WriteFile(reportHTMLPath, html, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", reportHTMLPath, err)
		}
		fmt.Printf("HTML report saved to: %s\n", reportHTMLPath)
	}

	return nil
}
