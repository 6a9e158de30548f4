// Command docstage is the command line entry point of the staged document
// ingestion pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/custodia-labs/docstage/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docstage/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docstage/internal/adapters/driving/cli"
	"github.com/custodia-labs/docstage/internal/core/services"
	"github.com/custodia-labs/docstage/internal/extractors"
	"github.com/custodia-labs/docstage/internal/logger"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	log := logger.New(os.Stderr, slices.Contains(args, "--verbose") || slices.Contains(args, "-v"))

	configDir, err := file.DefaultDir()
	if err != nil {
		return err
	}
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return err
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		log.Warn("invalid configuration, using defaults", "error", err)
		defaults := settingsService.Defaults()
		settings = &defaults
	}

	store, err := sqlite.NewStore(settings.DataDir, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return err
	}
	registry := extractors.NewRegistry()
	extractors.RegisterDefaults(registry, settings.VLM, prompts)

	ingestion, err := services.NewIngestionService(store, registry, *settings, services.WithLogger(log))
	if err != nil {
		return err
	}
	defer ingestion.Release()

	cli.SetVersion(version)
	cli.SetDependencies(cli.Dependencies{
		Ingestion: ingestion,
		Settings:  settingsService,
		Config:    configStore,
		Logger:    log,
	})

	return cli.Execute(ctx)
}
