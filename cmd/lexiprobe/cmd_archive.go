package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/probelab/lexiprobe/internal/archive"
	"github.com/probelab/lexiprobe/internal/config"
	"github.com/probelab/lexiprobe/internal/ledger"
)

var (
	archiveOutPath string
	archivePrune   bool
)

func newArchiveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Pack raw artifacts into a compressed tarball",
		Long: `Pack the raw body and metadata files of every ledgered probe into a
zstd-compressed tar. Only artifacts referenced by the ledger are archived;
--prune removes the loose files afterwards.`,
		Args: cobra.NoArgs,
		RunE: archiveCommandE,
	}

	cmd.Flags().StringVarP(&archiveOutPath, "output", "o", "", "Archive path (default: <data>/raw-<timestamp>.tar.zst)")
	cmd.Flags().BoolVar(&archivePrune, "prune", false, "Remove archived files after packing")

	return cmd
}

func archiveCommandE(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadLocal(studyPathFromFlags(cmd))
	if err != nil {
		return err
	}

	rows, err := ledger.Read(cfg.Paths.Ledger)
	if err != nil {
		return err
	}
	if len(rows.Records) == 0 {
		fmt.Println("Ledger is empty; nothing to archive.")
		return nil
	}

	uids := make([]string, 0, len(rows.Records))
	for _, rec := range rows.Records {
		uids = append(uids, rec.UID)
	}

	outPath := archiveOutPath
	if outPath == "" {
		outPath = archive.DefaultPath(cfg.Study.DataDir)
	}

	sum, err := archive.Pack(cfg.Paths.RawDir, outPath, uids, archivePrune)
	if err != nil {
		return err
	}

	fmt.Printf("Archived %d file(s), %d bytes -> %s\n", sum.Files, sum.Bytes, sum.Path)
	if sum.Skipped > 0 {
		fmt.Printf("Skipped %d missing artifact(s)\n", sum.Skipped)
	}
	if archivePrune {
		fmt.Printf("Pruned %d loose file(s)\n", sum.Pruned)
	}
	return nil
}
