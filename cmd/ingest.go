package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk, embed and index the transcript corpus",
	Long: `Reads every transcript under corpus.transcripts_dir, splits it into
overlapping line windows and loads the embedded chunks into the index.
A completed run writes a marker; later runs skip ingestion.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int("batch-size", 0, "chunks per embedding call (overrides config)")
	ingestCmd.Flags().Int("concurrency", 0, "parallel embedding batches (overrides config)")
	ingestCmd.Flags().String("dir", "", "transcripts directory (overrides config)")
	ingestCmd.Flags().Bool("no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := ingestOptions(a.cfg)
	if n, _ := cmd.Flags().GetInt("batch-size"); n > 0 {
		opts.BatchSize = n
	}
	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		opts.Concurrency = n
	}
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		opts.CorpusDir = dir
	}
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	fmt.Fprintf(os.Stderr, "Ingesting %s into %s index %q...\n", opts.CorpusDir, a.cfg.Index.Backend, a.index.Name())

	result, err := a.ingest(ctx, opts, !noProgress)
	if err != nil {
		return describeIngestError(err, a.cfg)
	}

	if result.Skipped {
		fmt.Printf("Ingestion skipped: %s\n", result.SkipReason)
		if result.CorpusStale {
			fmt.Fprintln(os.Stderr, "Warning: transcripts changed since that run. Delete the index to reload them.")
		}
		return nil
	}

	fmt.Printf("\nIngestion complete!\n")
	fmt.Printf("  Run:        %s\n", result.RunID)
	fmt.Printf("  Documents:  %d\n", result.Documents)
	fmt.Printf("  Chunks:     %d\n", result.Units)
	fmt.Printf("  Batches:    %d\n", result.Batches)
	fmt.Printf("  Duration:   %s\n", result.Duration.Round(time.Millisecond))

	if len(result.SkippedFiles) > 0 {
		fmt.Fprintf(os.Stderr, "\nUnreadable transcripts (%d):\n", len(result.SkippedFiles))
		for _, f := range result.SkippedFiles {
			fmt.Fprintf(os.Stderr, "  - %s\n", f)
		}
	}
	return nil
}
