package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docstage/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Store and process a file or folder",
	Long: `Stores each file by content hash and runs extraction and chunking.

A folder is scanned recursively. Hidden files, empty files, files over the
size limit and files with extensions outside the allowed list are reported
as rejected. Files whose content is already stored are reported as
duplicates unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var processCmd = &cobra.Command{
	Use:   "process [hash]",
	Short: "Process stored pending files",
	Long: `Processes one pending file, or every pending file when no hash is given.
Use it after "ingest --store-only".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProcess,
}

var retryCmd = &cobra.Command{
	Use:   "retry [hash]",
	Short: "Retry a failed file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRetry,
}

var reextractCmd = &cobra.Command{
	Use:   "reextract [hash]",
	Short: "Run extraction again for a completed file",
	Long: `Runs the extraction backends again for a completed file. New elements are
stored next to the previous ones; chunks are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runReextract,
}

var rechunkCmd = &cobra.Command{
	Use:   "rechunk [hash]",
	Short: "Rebuild chunks from stored elements",
	Args:  cobra.ExactArgs(1),
	RunE:  runRechunk,
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Mark files left in processing by a crashed run as failed",
	Args:  cobra.NoArgs,
	RunE:  runRecover,
}

// Flags shared by ingest and reextract.
var (
	ingestForce      bool
	ingestStoreOnly  bool
	ingestExtractors []string
	chunkSize        int
	chunkOverlap     int
)

func init() {
	for _, c := range []*cobra.Command{ingestCmd, reextractCmd} {
		c.Flags().StringSliceVarP(&ingestExtractors, "extractor", "e", nil, "Extraction backend to use (repeatable)")
		c.Flags().IntVar(&chunkSize, "size", 0, "Chunk size in characters (0 = configured)")
		c.Flags().IntVar(&chunkOverlap, "overlap", -1, "Chunk overlap in characters (-1 = configured)")
	}
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "Reprocess files that are already stored")
	ingestCmd.Flags().BoolVar(&ingestStoreOnly, "store-only", false, "Store files as pending without processing")

	rechunkCmd.Flags().IntVar(&chunkSize, "size", 0, "Chunk size in characters (0 = configured)")
	rechunkCmd.Flags().IntVar(&chunkOverlap, "overlap", -1, "Chunk overlap in characters (-1 = configured)")

	rootCmd.AddCommand(ingestCmd, processCmd, retryCmd, reextractCmd, rechunkCmd, recoverCmd)
}

func ingestOptions() domain.IngestOptions {
	return domain.IngestOptions{
		Force:      ingestForce,
		StoreOnly:  ingestStoreOnly,
		Extractors: ingestExtractors,
		TargetSize: chunkSize,
		Overlap:    chunkOverlap,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	svc, err := requireIngestion()
	if err != nil {
		return err
	}

	report, err := svc.IngestPath(cmd.Context(), args[0], ingestOptions())
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	if n := failures(report); n > 0 {
		return fmt.Errorf("%d file(s) failed", n)
	}
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	svc, err := requireIngestion()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		outcome, err := svc.Process(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("process failed: %w", err)
		}
		printOutcome(cmd, outcome)
		return outcomeError(outcome)
	}

	report, err := svc.ProcessPending(cmd.Context())
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("process failed: %w", err)
	}
	if n := failures(report); n > 0 {
		return fmt.Errorf("%d file(s) failed", n)
	}
	return nil
}

func runRetry(cmd *cobra.Command, args []string) error {
	svc, err := requireIngestion()
	if err != nil {
		return err
	}

	outcome, err := svc.Retry(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("retry failed: %w", err)
	}
	printOutcome(cmd, outcome)
	return outcomeError(outcome)
}

func runReextract(cmd *cobra.Command, args []string) error {
	svc, err := requireIngestion()
	if err != nil {
		return err
	}

	outcome, err := svc.Reextract(cmd.Context(), args[0], ingestOptions())
	if err != nil {
		return fmt.Errorf("reextract failed: %w", err)
	}
	printOutcome(cmd, outcome)
	return outcomeError(outcome)
}

func runRechunk(cmd *cobra.Command, args []string) error {
	svc, err := requireIngestion()
	if err != nil {
		return err
	}

	n, err := svc.Rechunk(cmd.Context(), args[0], chunkSize, chunkOverlap)
	if err != nil {
		return fmt.Errorf("rechunk failed: %w", err)
	}
	cmd.Printf("Rebuilt %d chunks for %s\n", n, shortHash(args[0]))
	return nil
}

func runRecover(cmd *cobra.Command, _ []string) error {
	svc, err := requireIngestion()
	if err != nil {
		return err
	}

	n, err := svc.RecoverStale(cmd.Context())
	if err != nil {
		return fmt.Errorf("recover failed: %w", err)
	}
	if n == 0 {
		cmd.Println("No interrupted files found.")
		return nil
	}
	cmd.Printf("Marked %d interrupted file(s) as failed. Run 'docstage retry <hash>' to process them again.\n", n)
	return nil
}

// outcomeError turns a failed outcome into a command error.
func outcomeError(o *domain.IngestOutcome) error {
	if o != nil && o.Action == domain.ActionFailed {
		return fmt.Errorf("processing failed: %s", o.Error)
	}
	return nil
}
