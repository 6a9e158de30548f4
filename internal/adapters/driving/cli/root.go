// Package cli provides the docstage command line built on cobra.
package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docstage/internal/core/ports/driven"
	"github.com/custodia-labs/docstage/internal/core/ports/driving"
	"github.com/custodia-labs/docstage/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// Services injected by main before Execute.
var (
	ingestionService driving.IngestionService
	settingsService  driving.SettingsService
	configStore      driven.ConfigStore
	log              = logger.Nop()
)

// verbose is the global --verbose flag.
var verbose bool

// Dependencies holds what the commands need. Nil fields make the commands
// that use them fail with a "not configured" error.
type Dependencies struct {
	Ingestion driving.IngestionService
	Settings  driving.SettingsService
	Config    driven.ConfigStore
	Logger    *logger.Logger
}

// SetDependencies wires the services used by the commands.
func SetDependencies(deps Dependencies) {
	ingestionService = deps.Ingestion
	settingsService = deps.Settings
	configStore = deps.Config
	if deps.Logger != nil {
		log = deps.Logger
	}
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "docstage",
	Short: "Staged document ingestion: store, extract, chunk",
	Long: `docstage stores raw documents by content hash, extracts typed elements
with one or more backends and splits them into overlapping chunks.

Every file moves through pending, processing and completed (or failed).
Nothing is lost when a backend fails: the file can be retried later.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			log.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every pipeline stage")
}

// Execute runs the root command with ctx. Command output goes to stdout.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func requireIngestion() (driving.IngestionService, error) {
	if ingestionService == nil {
		return nil, errors.New("ingestion service not configured")
	}
	return ingestionService, nil
}

// ==================== Styling ====================

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Faint(true)
	statusStyles = map[string]lipgloss.Style{
		"completed":  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		"stored":     lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		"pending":    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		"processing": lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"duplicate":  lipgloss.NewStyle().Faint(true),
		"skipped":    lipgloss.NewStyle().Faint(true),
		"failed":     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		"rejected":   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

// styled reports whether w is an interactive terminal.
func styled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func render(cmd *cobra.Command, style lipgloss.Style, s string) string {
	if !styled(cmd.OutOrStdout()) {
		return s
	}
	return style.Render(s)
}

func heading(cmd *cobra.Command, s string) string {
	return render(cmd, headingStyle, s)
}

func label(cmd *cobra.Command, s string) string {
	return render(cmd, labelStyle, s)
}

// state colours a status or action name.
func state(cmd *cobra.Command, s string) string {
	style, ok := statusStyles[s]
	if !ok {
		return s
	}
	return render(cmd, style, s)
}
