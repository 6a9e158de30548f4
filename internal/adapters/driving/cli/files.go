package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/services"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored files",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show [hash]",
	Short: "Show file metadata and elements",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var chunksCmd = &cobra.Command{
	Use:   "chunks [hash]",
	Short: "Print the chunks of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunks,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [hash]",
	Short: "Delete a file with its elements and chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var extractorsCmd = &cobra.Command{
	Use:   "extractors",
	Short: "List extraction backends",
	Args:  cobra.NoArgs,
	RunE:  runExtractors,
}

var (
	listStatus   string
	showElements bool
)

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Only list files with this status")
	showCmd.Flags().BoolVarP(&showElements, "elements", "e", false, "Also print stored elements")

	rootCmd.AddCommand(listCmd, showCmd, chunksCmd, deleteCmd, statsCmd, extractorsCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	svc, err := requireIngestion()
	if err != nil {
		return err
	}

	files, err := svc.List(cmd.Context(), domain.FileStatus(listStatus))
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}
	if len(files) == 0 {
		cmd.Println("No files found.")
		return nil
	}

	for i := range files {
		f := &files[i]
		status := string(f.Status)
		pad := strings.Repeat(" ", max(0, 11-len(status)))
		cmd.Printf("%s  %s%s %6d  %10s  %s\n",
			label(cmd, shortHash(f.Hash)), state(cmd, status), pad, f.ChunkCount, services.FormatSize(f.Size), f.Path)
	}
	cmd.Printf("\nTotal: %d files\n", len(files))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	svc, err := requireIngestion()
	if err != nil {
		return err
	}

	file, err := svc.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}
	printFile(cmd, file)

	if !showElements {
		return nil
	}
	elements, err := svc.Elements(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get elements: %w", err)
	}
	cmd.Println()
	cmd.Println(heading(cmd, fmt.Sprintf("Elements (%d)", len(elements))))
	for _, el := range elements {
		content := strings.ReplaceAll(el.Content(), "\n", " ")
		if len(content) > 80 {
			content = content[:77] + "..."
		}
		cmd.Printf("  #%-5d %-8s %-10s %s\n", el.ID, el.Kind, el.ExtractorName, content)
	}
	return nil
}

func runChunks(cmd *cobra.Command, args []string) error {
	svc, err := requireIngestion()
	if err != nil {
		return err
	}

	chunks, err := svc.Chunks(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}
	if len(chunks) == 0 {
		cmd.Println("No chunks stored.")
		return nil
	}

	for i, c := range chunks {
		if i > 0 {
			cmd.Println()
		}
		cmd.Println(heading(cmd, fmt.Sprintf("Chunk %d", c.Index)) + "  " + label(cmd, c.ID))
		cmd.Println(c.Text)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	svc, err := requireIngestion()
	if err != nil {
		return err
	}

	if err := svc.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	cmd.Printf("Deleted %s\n", shortHash(args[0]))
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	svc, err := requireIngestion()
	if err != nil {
		return err
	}

	stats, err := svc.Statistics(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	cmd.Println(heading(cmd, "Store"))
	cmd.Printf("  Files:    %d (%.2f MB)\n", stats.TotalFiles, stats.TotalSizeMB())
	cmd.Printf("  Elements: %d\n", stats.TotalElements)
	cmd.Printf("  Chunks:   %d\n", stats.TotalChunks)
	cmd.Println()
	cmd.Println(heading(cmd, "Status"))
	for _, status := range domain.AllStatuses() {
		name := string(status)
		pad := strings.Repeat(" ", max(0, 11-len(name)))
		cmd.Printf("  %s%s %d\n", state(cmd, name), pad, stats.StatusCounts[status])
	}
	return nil
}

func runExtractors(cmd *cobra.Command, _ []string) error {
	svc, err := requireIngestion()
	if err != nil {
		return err
	}

	infos := svc.Extractors()
	if len(infos) == 0 {
		cmd.Println("No extractors registered.")
		return nil
	}
	for _, info := range infos {
		cmd.Printf("%s %s\n", heading(cmd, info.Name), label(cmd, "v"+info.Version))
		cmd.Printf("  Formats: %s\n", strings.Join(info.SupportedFormats, ", "))
		last := "never"
		if !info.LastExtraction.IsZero() {
			last = info.LastExtraction.Local().Format(time.DateTime)
		}
		cmd.Printf("  Runs:    %d (last: %s)\n", info.ExtractionCount, last)
	}
	return nil
}
