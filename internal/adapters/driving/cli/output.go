package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/services"
)

// shortHash abbreviates a content hash for tables.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func printOutcome(cmd *cobra.Command, o *domain.IngestOutcome) {
	action := string(o.Action)
	pad := strings.Repeat(" ", max(0, 10-len(action)))
	line := fmt.Sprintf("%s%s %s", state(cmd, action), pad, o.Path)
	if o.Hash != "" {
		line += "  " + label(cmd, shortHash(o.Hash))
	}
	cmd.Println(line)

	switch o.Action {
	case domain.ActionCompleted:
		cmd.Printf("           %d elements, %d chunks via %s\n", o.Elements, o.Chunks, o.Extractor)
	case domain.ActionFailed, domain.ActionRejected, domain.ActionSkipped:
		if o.Error != "" {
			cmd.Printf("           %s\n", o.Error)
		}
	}
	names := make([]string, 0, len(o.BackendErrors))
	for name := range o.BackendErrors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd.Printf("           %s %s: %s\n", label(cmd, "backend"), name, o.BackendErrors[name])
	}
}

func printReport(cmd *cobra.Command, r *domain.BatchReport) {
	for i := range r.Outcomes {
		printOutcome(cmd, &r.Outcomes[i])
	}
	if r.Total() == 0 {
		cmd.Println("No files to process.")
		return
	}

	var parts []string
	for _, action := range domain.AllActions() {
		if n := r.Counts[action]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, state(cmd, string(action))))
		}
	}
	cmd.Println()
	cmd.Printf("%s %d files (%s) in %s: %s\n",
		heading(cmd, "Processed"), r.Total(), services.FormatSize(r.Bytes),
		r.Duration.Round(time.Millisecond), strings.Join(parts, ", "))
}

func printFile(cmd *cobra.Command, f *domain.FileRecord) {
	cmd.Println(heading(cmd, f.Name))
	row := func(key, value string) {
		cmd.Printf("  %s %s\n", label(cmd, fmt.Sprintf("%-12s", key)), value)
	}
	row("Hash", f.Hash)
	row("Path", f.Path)
	row("Extension", f.Extension)
	row("Size", services.FormatSize(f.Size))
	row("Status", state(cmd, string(f.Status)))
	if f.ErrorMessage != "" {
		row("Error", f.ErrorMessage)
	}
	row("Chunks", fmt.Sprint(f.ChunkCount))
	if f.ExtractorConfig != "" {
		row("Config", f.ExtractorConfig)
	}
	row("Created", f.CreatedAt.Local().Format(time.DateTime))
	row("Updated", f.UpdatedAt.Local().Format(time.DateTime))

	if len(f.Metadata) == 0 {
		return
	}
	keys := make([]string, 0, len(f.Metadata))
	for k := range f.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cmd.Println(label(cmd, "  Metadata"))
	for _, k := range keys {
		cmd.Printf("    %s: %v\n", k, f.Metadata[k])
	}
}

// failures counts failed outcomes of a report.
func failures(r *domain.BatchReport) int {
	if r == nil {
		return 0
	}
	return r.Counts[domain.ActionFailed]
}
