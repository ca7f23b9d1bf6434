package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/model"
)

var (
	batchEvent            string
	batchIncludeCompleted bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Enrich every pending contact of an event",
	Long:  "Enriches PENDING and FAILED contacts of an event in bounded chunks, printing progress after every chunk. Ctrl-C interrupts the job.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx, "enrichment")
		if err != nil {
			return err
		}
		defer env.Close()

		job, err := env.Pipeline.StartBatch(ctx, env.Batches, batchEvent, batchIncludeCompleted)
		if err != nil {
			return eris.Wrap(err, "start batch")
		}
		updates, cancel := job.Subscribe()
		defer cancel()

		out := cmd.OutOrStdout()
		var last model.BatchJobProgress
		for p := range updates {
			printProgress(out, p)
			last = p
		}
		env.Batches.Wait()

		zap.L().Info("batch complete",
			zap.String("job_id", last.JobID),
			zap.String("status", string(last.Status)),
			zap.Int("succeeded", last.SuccessfulItems),
			zap.Int("failed", last.FailedItems),
		)
		if last.Status == model.JobFailed {
			return eris.Errorf("batch %s failed: %s", last.JobID, last.Error)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchEvent, "event", "", "event id whose contacts to enrich (empty = all events)")
	batchCmd.Flags().BoolVar(&batchIncludeCompleted, "include-completed", false, "re-enrich contacts that already completed")
	rootCmd.AddCommand(batchCmd)
}

func printProgress(w io.Writer, p model.BatchJobProgress) {
	line := fmt.Sprintf("[%3d%%] %s %d/%d (ok %d, failed %d)",
		p.PercentComplete, p.Status, p.ProcessedItems, p.TotalItems, p.SuccessfulItems, p.FailedItems)
	switch {
	case p.Error != "":
		line += " error: " + p.Error
	case p.Aborted:
		line += " aborted"
	case p.CurrentItem != "":
		line += " " + p.CurrentItem
	}
	fmt.Fprintln(w, line)
}
