package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/probelab/lexiprobe/internal/config"
	"github.com/probelab/lexiprobe/internal/eventlog"
	"github.com/probelab/lexiprobe/internal/probe"
)

var useMockEngine bool

func newProbeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe [prompt|file]",
		Short: "Issue the next scheduled probe",
		Long: `Issue exactly one probe: select the next schedule slot from the
persisted cursor, call the chat-completion API, file the raw response with
its SHA-256 digest, append the ledger row and advance the cursor.

With an argument, the prompt is taken literally (or read from the file if
the argument names one) and recorded under the ADHOC group without touching
the cursor.`,
		Args: cobra.MaximumNArgs(1),
		RunE: probeCommandE,
	}

	cmd.Flags().BoolVar(&useMockEngine, "mock", false, "Use the offline mock engine (no API calls)")

	return cmd
}

func probeCommandE(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	var err error
	if useMockEngine {
		cfg, err = config.LoadLocal(studyPathFromFlags(cmd))
	} else {
		cfg, err = config.Load(studyPathFromFlags(cmd))
	}
	if err != nil {
		return err
	}

	events, err := eventlog.NewJSONLogger(eventlog.DefaultPath(cfg.Paths.EventDir))
	if err != nil {
		return err
	}
	defer events.Close() //nolint:errcheck

	opts := []probe.RunnerOption{probe.WithEventLogger(events)}
	if useMockEngine {
		opts = append(opts, probe.WithCompleter(&probe.MockCompleter{Model: cfg.Study.Model}))
	}

	runner, err := probe.NewRunner(cfg, opts...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if len(args) == 1 {
		prompt, err := resolvePrompt(args[0])
		if err != nil {
			return err
		}
		out, err := runner.RunAdhoc(ctx, prompt)
		if err != nil {
			return err
		}
		printOutcome(out)
		return nil
	}

	out, err := runner.RunOnce(ctx)
	if err != nil {
		return err
	}
	if out.Exhausted {
		fmt.Printf("Schedule exhausted at cursor %d; reset %s to restart.\n",
			out.Cursor, cfg.Paths.Cursor)
		return nil
	}
	printOutcome(out)
	return nil
}

// resolvePrompt treats the argument as a file path when one exists, a
// literal prompt otherwise.
func resolvePrompt(arg string) (string, error) {
	st, err := os.Stat(arg)
	if err == nil && !st.IsDir() {
		data, err := os.ReadFile(arg)
		if err != nil {
			return "", fmt.Errorf("reading prompt file %s: %w", arg, err)
		}
		return string(data), nil
	}
	return arg, nil
}

func printOutcome(out *probe.Outcome) {
	fmt.Printf("Probe %s\n", out.UID)
	fmt.Printf("  group:     %s (rotation %d)\n", out.Group, out.Rotation)
	fmt.Printf("  sha256:    %s\n", out.SHA256)
	fmt.Printf("  reasoning: %d tokens\n", out.ReasoningTokens)
	fmt.Printf("  duration:  %dms\n", out.DurationMs)
	fmt.Printf("  response:  %s\n", truncate(out.Response, 200))
}

// truncate shortens s to the given display width, appending "..." if
// truncated. Responses carry wide and multibyte glyphs, so byte slicing
// would split them.
func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}
