package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/output"
)

// progressEvery throttles non-terminal progress lines.
const progressEvery = 100

func newReindexCmd(a *app) *cobra.Command {
	var (
		workers     int
		interactive bool
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the index for every document",
		Long: `Reindex rebuilds every index record with a pool of workers while holding
the maintenance lock in the data directory. Documents whose embedding fails
are indexed with a zero vector so they stay searchable by text.

With --interactive, documents are indexed one at a time and embedding
failures are reported as failures instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			out := output.NewAuto(cmd.OutOrStdout())
			var report *index.ReindexReport
			if interactive {
				indexer, ierr := index.NewInteractiveIndexer(rt.deps())
				if ierr != nil {
					return ierr
				}
				report, err = indexer.ReindexAll(ctx)
			} else {
				if workers <= 0 {
					workers = a.cfg.Index.Workers
				}
				lastDraw := time.Time{}
				progress := func(done, total int) {
					if jsonOut {
						return
					}
					if done == total || done%progressEvery == 0 || (output.IsTTY(cmd.OutOrStdout()) && time.Since(lastDraw) > 100*time.Millisecond) {
						lastDraw = time.Now()
						out.Progress(done, total, "documents")
					}
				}
				b, berr := index.NewBatchMaintenanceIndexer(rt.deps(),
					index.WithWorkers(workers),
					index.WithLockDir(a.cfg.Index.DataDir),
					index.WithProgress(progress),
				)
				if berr != nil {
					return berr
				}
				report, err = b.Run(ctx)
			}
			if report != nil {
				if jsonOut {
					if jerr := out.JSON(report); jerr != nil {
						return jerr
					}
				} else {
					out.ReindexReport(report)
				}
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker pool size (default index.workers)")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Index sequentially without the zero-vector fallback")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the report as JSON")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare documents with index records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			checker := index.NewConsistencyChecker(rt.docs, rt.index, a.logger)
			result, err := checker.Check(ctx)
			if err != nil {
				return err
			}
			out := output.NewAuto(cmd.OutOrStdout())
			out.CheckResult(result)

			if repair && !result.Consistent() {
				indexer, err := index.NewInteractiveIndexer(rt.deps())
				if err != nil {
					return err
				}
				fixed := checker.Repair(ctx, result.Inconsistencies, indexer)
				if fixed == len(result.Inconsistencies) {
					out.Successf("Repaired %d inconsistencies", fixed)
				} else {
					out.Warningf("Repaired %d of %d inconsistencies", fixed, len(result.Inconsistencies))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "Index missing records and drop orphans")
	return cmd
}

func newWarmupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "warmup",
		Short: "Load the embedding model and report its readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			start := time.Now()
			if err := rt.provider.WarmUp(ctx); err != nil {
				return err
			}
			output.NewAuto(cmd.OutOrStdout()).Successf("Embedding model %s ready (%d dimensions) in %s",
				rt.provider.ModelName(), rt.provider.Dimensions(), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
