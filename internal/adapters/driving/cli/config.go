package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docstage/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and change settings",
	Long: `Settings live in a TOML file (see "docstage config path").
Lists are given comma separated, for example:

  docstage config set extractors markdown,plaintext
  docstage config set chunk.target_size 800`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting, or all settings with defaults applied",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Validate and store a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	allowed := "(all supported formats)"
	if len(settings.Ingest.AllowedExtensions) > 0 {
		allowed = strings.Join(settings.Ingest.AllowedExtensions, ",")
	}
	values := map[string]string{
		services.KeyDataDir:           settings.DataDir,
		services.KeyChunkTargetSize:   fmt.Sprint(settings.Chunk.TargetSize),
		services.KeyChunkOverlap:      fmt.Sprint(settings.Chunk.Overlap),
		services.KeyExtractors:        strings.Join(settings.Extractors, ","),
		services.KeyAllowedExtensions: allowed,
		services.KeyMaxFileSizeMB:     fmt.Sprint(settings.Ingest.MaxFileSizeMB),
		services.KeyWorkers:           fmt.Sprint(settings.Ingest.Workers),
		services.KeyVLMBaseURL:        settings.VLM.BaseURL,
		services.KeyVLMModel:          settings.VLM.Model,
		services.KeyVLMTimeout:        fmt.Sprint(settings.VLM.TimeoutSeconds),
		services.KeyVLMRate:           fmt.Sprint(settings.VLM.RequestsPerSecond),
	}

	if len(args) == 1 {
		v, ok := values[args[0]]
		if !ok {
			return fmt.Errorf("unknown key %q (known: %s)", args[0], strings.Join(services.KnownKeys(), ", "))
		}
		cmd.Println(v)
		return nil
	}

	for _, key := range services.KnownKeys() {
		v := values[key]
		if v == "" {
			v = label(cmd, "(default)")
		}
		cmd.Printf("%-28s %s\n", key, v)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("Set %s = %s\n", args[0], args[1])
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}
	cmd.Println(configStore.Path())
	return nil
}
