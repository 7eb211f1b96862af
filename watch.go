package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/cat-xierluo/locsmith/config"
)

// ---------------------------------------------------------------------------
// watch (filesystem watcher, read-only re-scan)
// ---------------------------------------------------------------------------

// Quiet period after the last filesystem event before re-scanning.
// Editors fire bursts of writes for a single save.
const watchDebounce = 300 * time.Millisecond

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the scan report whenever sources change",
		Long: `Watch the configured source directories and re-run the read-only
scan report after each change, with a short debounce so a burst of
editor writes triggers a single re-scan. Never modifies any files.
Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch()
		},
	}

	return cmd
}

func runWatch() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	watched := 0
	for _, dir := range cfg.SourceDirs {
		n, err := watchRecursive(watcher, dir)
		if err != nil {
			return err
		}
		watched += n
	}
	for _, f := range cfg.SourceFiles {
		if err := watcher.Add(filepath.Dir(f)); err == nil {
			watched++
		}
	}
	if watched == 0 {
		return fmt.Errorf("nothing to watch")
	}

	logInfo("Watching %d directories. Press Ctrl-C to stop.", watched)
	rescan(cfg)

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(cfg, ev) {
				continue
			}
			// A new directory must be picked up so files created
			// inside it are seen too.
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					watchRecursive(watcher, ev.Name)
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case <-pending:
			rescan(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logWarning("watch: %v", err)
		}
	}
}

// watchRecursive adds dir and every subdirectory, skipping the same
// directories the scanner skips.
func watchRecursive(w *fsnotify.Watcher, dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") && path != dir {
			return filepath.SkipDir
		}
		if skipName(base) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		count++
		return nil
	})
	return count, err
}

func skipName(base string) bool {
	switch base {
	case "Pods", "Carthage", "DerivedData", ".build", "build", "vendor", "node_modules":
		return true
	}
	return false
}

// relevantEvent reports whether the event concerns a file the scan
// would read. Backup files and the manifest are ignored so an applied
// rewrite does not retrigger the watcher.
func relevantEvent(cfg *config.Config, ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if strings.HasSuffix(ev.Name, cfg.BackupSuffix) {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		return true
	}
	ext := filepath.Ext(ev.Name)
	for _, want := range cfg.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

func rescan(cfg *config.Config) {
	res, err := runScan(cfg)
	if err != nil {
		logError("%v", err)
		return
	}
	fmt.Fprintf(os.Stderr, "\n%s[%s]%s\n", colorBlue, time.Now().Format("15:04:05"), colorReset)
	printScanReport(res, false)
}
