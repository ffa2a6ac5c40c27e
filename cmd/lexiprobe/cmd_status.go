package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/probelab/lexiprobe/internal/config"
	"github.com/probelab/lexiprobe/internal/ledger"
	"github.com/probelab/lexiprobe/internal/probe"
	"github.com/probelab/lexiprobe/internal/schedule"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the schedule position",
		Args:  cobra.NoArgs,
		RunE:  statusCommandE,
	}
}

func statusCommandE(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadLocal(studyPathFromFlags(cmd))
	if err != nil {
		return err
	}

	groups := make([]schedule.Group, 0, len(cfg.Study.Groups))
	for _, g := range cfg.Study.Groups {
		groups = append(groups, schedule.Group{Name: g.Name, Prompts: g.Prompts})
	}
	sched, err := schedule.New(groups, cfg.Study.Quota)
	if err != nil {
		return err
	}

	cursor, err := schedule.LoadCursor(cfg.Paths.Cursor)
	if err != nil {
		return err
	}
	rows, err := ledger.Count(cfg.Paths.Ledger)
	if err != nil {
		return err
	}
	scheduled, err := ledger.ScheduledRows(cfg.Paths.Ledger, probe.AdhocGroup)
	if err != nil {
		return err
	}
	cursor = schedule.Reconcile(cursor, scheduled)

	fmt.Printf("Study:   %s\n", cfg.Study.Name)
	fmt.Printf("Model:   %s\n", cfg.Study.Model)
	fmt.Printf("Cursor:  %d / %d\n", cursor, sched.Total())
	fmt.Printf("Ledger:  %d rows (%s)\n", rows, cfg.Paths.Ledger)

	sel, err := sched.Select(cursor)
	if err == schedule.ErrExhausted {
		fmt.Println("State:   EXHAUSTED — reset the cursor file to restart")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Next:    %s rotation %d\n", sel.Group, sel.Rotation)
	fmt.Printf("Prompt:  %s\n", truncate(sel.Prompt, 120))
	return nil
}
