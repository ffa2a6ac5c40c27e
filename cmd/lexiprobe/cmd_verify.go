package main

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/probelab/lexiprobe/internal/config"
	"github.com/probelab/lexiprobe/internal/ledger"
	"github.com/probelab/lexiprobe/internal/store"
)

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Re-hash raw artifacts against the ledger",
		Long: `Re-compute the SHA-256 digest of every raw body file and compare it
against the sha256 column of the corresponding ledger row. Verification is
read-only and safe to run while probes execute.`,
		Args: cobra.NoArgs,
		RunE: verifyCommandE,
	}
}

func verifyCommandE(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadLocal(studyPathFromFlags(cmd))
	if err != nil {
		return err
	}

	rows, err := ledger.Read(cfg.Paths.Ledger)
	if err != nil {
		return err
	}
	if len(rows.Records) == 0 {
		fmt.Println("Ledger is empty; nothing to verify.")
		return nil
	}

	st := store.New(cfg.Paths.RawDir)

	var ok, missing, mismatched atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())

	for _, rec := range rows.Records {
		g.Go(func() error {
			match, err := st.VerifyBody(rec.UID, rec.SHA256)
			switch {
			case err != nil:
				missing.Add(1)
				fmt.Printf("  ✗ %s: %v\n", rec.UID, err)
			case !match:
				mismatched.Add(1)
				fmt.Printf("  ✗ %s: digest mismatch\n", rec.UID)
			default:
				ok.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("Verified %d artifact(s): %d ok, %d missing, %d mismatched\n",
		len(rows.Records), ok.Load(), missing.Load(), mismatched.Load())
	if rows.Unparsed > 0 {
		fmt.Printf("Skipped %d unparsed ledger row(s)\n", rows.Unparsed)
	}

	if missing.Load() > 0 || mismatched.Load() > 0 {
		return fmt.Errorf("verify: %d artifact(s) failed integrity check",
			missing.Load()+mismatched.Load())
	}
	return nil
}
