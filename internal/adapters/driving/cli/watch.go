package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/ports/driving"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest files as they appear in a folder",
	Long: `Ingests the folder once, then watches it and its subfolders and ingests
every file that is created or written. Events for one file are collected
until it has been quiet for the debounce interval. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchDebounce    time.Duration
	watchSkipInitial bool
)

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period before a changed file is ingested")
	watchCmd.Flags().StringSliceVarP(&ingestExtractors, "extractor", "e", nil, "Extraction backend to use (repeatable)")
	watchCmd.Flags().BoolVar(&watchSkipInitial, "skip-initial", false, "Do not ingest existing files on start")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	svc, err := requireIngestion()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: not a directory: %s", domain.ErrInvalidInput, root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, root); err != nil {
		return err
	}

	opts := domain.IngestOptions{Extractors: ingestExtractors}
	if !watchSkipInitial {
		report, err := svc.IngestPath(ctx, root, opts)
		if report != nil {
			printReport(cmd, report)
		}
		if err != nil && domain.IsFatal(err) {
			return err
		}
	}
	cmd.Printf("Watching %s\n", root)

	pending := newPendingSet(watchDebounce)
	ticker := time.NewTicker(max(watchDebounce/2, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() && !isHidden(ev.Name) {
					if err := addTree(watcher, ev.Name); err != nil {
						log.Warn("watch subfolder", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if path, ok := changedFile(ev); ok {
				pending.touch(path, time.Now())
				log.Debug("queued", "path", path, "pending", pending.size())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		case now := <-ticker.C:
			if err := ingestDue(cmd, svc, pending, now, opts); err != nil {
				return err
			}
		}
	}
}

// ingestDue ingests the files that have been quiet long enough. Only fatal
// errors are returned.
func ingestDue(
	cmd *cobra.Command, svc driving.IngestionService, pending *pendingSet, now time.Time, opts domain.IngestOptions,
) error {
	ready := pending.due(now)
	if len(ready) == 0 {
		return nil
	}
	log.Info("ingesting changes", "files", len(ready), "still_pending", pending.size())
	for _, path := range ready {
		outcome, err := svc.IngestFile(cmd.Context(), path, opts)
		if outcome != nil {
			printOutcome(cmd, outcome)
		}
		if err != nil {
			if domain.IsFatal(err) {
				return err
			}
			log.Warn("ingest", "path", path, "error", err)
		}
	}
	return nil
}

// addTree watches dir and every non-hidden folder below it.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(path) {
			return fs.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// changedFile returns the path of a created or written regular file.
// Removals, renames and permission changes are ignored; stored content is
// never removed by the watcher.
func changedFile(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	if isHidden(ev.Name) {
		return "", false
	}
	fi, err := os.Stat(ev.Name)
	if err != nil || !fi.Mode().IsRegular() {
		return "", false
	}
	return ev.Name, true
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// pendingSet collects changed paths until they have been quiet long enough.
type pendingSet struct {
	quiet time.Duration
	last  map[string]time.Time
}

func newPendingSet(quiet time.Duration) *pendingSet {
	return &pendingSet{quiet: quiet, last: make(map[string]time.Time)}
}

func (p *pendingSet) touch(path string, now time.Time) {
	p.last[path] = now
}

// due removes and returns, sorted, the paths quiet since now-quiet.
func (p *pendingSet) due(now time.Time) []string {
	var ready []string
	for path, t := range p.last {
		if now.Sub(t) >= p.quiet {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(p.last, path)
	}
	sort.Strings(ready)
	return ready
}

func (p *pendingSet) size() int {
	return len(p.last)
}
