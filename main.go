// locsmith — hardcoded UI string extractor and locale store synchronizer.
//
// locsmith scans a source tree for user-facing string literals, wraps the
// localizable ones in NSLocalizedString calls under a backup/rollback
// discipline, and keeps per-locale .strings files in sync with the keys
// the code actually references.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cat-xierluo/locsmith/config"
	"github.com/cat-xierluo/locsmith/i18n"
	"github.com/cat-xierluo/locsmith/langmeta"
	"github.com/cat-xierluo/locsmith/rewrite"
	"github.com/cat-xierluo/locsmith/scan"
	"github.com/cat-xierluo/locsmith/stringsfile"
	"github.com/cat-xierluo/locsmith/syncer"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

var rootDir string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "locsmith",
		Short: "Extract hardcoded UI strings and sync locale stores",
		Long: `locsmith — hardcoded UI string extractor and locale store synchronizer.

Finds raw string literals in UI contexts (Text, Button, alerts, titles),
wraps them in NSLocalizedString calls with per-file backups, and keeps
every .strings locale file converged to the master store's key set.

Commands:
  status      Show store key counts, sync gaps, and retained backups
  scan        Report localizable literals (read-only)
  rewrite     Wrap localizable literals in NSLocalizedString calls
  sync        Add code-referenced keys to the master and derived stores
  rollback    Restore files from their backups
  cleanup     Delete retained backup files
  watch       Re-run the scan report whenever sources change`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Inherited by every subcommand
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")

	root.AddCommand(
		newStatusCmd(),
		newScanCmd(),
		newRewriteCmd(),
		newSyncCmd(),
		newRollbackCmd(),
		newCleanupCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// loadConfig loads .locsmith.yaml or falls back to layout auto-detection.
// Configuration problems are fatal before any file is touched.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Detect(rootDir)
	}
	if cfg.MasterStrings == "" {
		return nil, fmt.Errorf("no master .strings store found; create %s or a *.lproj/Localizable.strings layout", config.FileName)
	}
	return cfg, nil
}

// resolveFiles expands the configured file set, warning about entries
// the walk could not read.
func resolveFiles(cfg *config.Config) []string {
	fs := scan.FileSet{
		Files:      cfg.SourceFiles,
		Dirs:       cfg.SourceDirs,
		Extensions: cfg.Extensions,
		Excludes:   cfg.ExcludeFiles,
	}
	files, skipped := fs.Resolve()
	for _, s := range skipped {
		logWarning("skipping %s: %v", s.Path, s.Err)
	}
	return files
}

// loadMaster parses the master store, surfacing parse warnings.
func loadMaster(cfg *config.Config) (*stringsfile.File, error) {
	master, warns, err := stringsfile.ParseFile(cfg.MasterStrings)
	if err != nil {
		return nil, fmt.Errorf("master store: %w", err)
	}
	for _, w := range warns {
		logWarning("%s:%d: %s", cfg.MasterStrings, w.Line, w.Reason)
	}
	return master, nil
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("locsmith version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// status
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store key counts, sync gaps, and retained backups",
		Long: `Show per-store key counts, keys referenced by code, orphan and
missing keys per derived store, and any backups retained from earlier
rewrite sessions. Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}

	return cmd
}

func runStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n%sProject%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	absRoot, _ := filepath.Abs(rootDir)
	fmt.Fprintf(os.Stderr, "  Root:    %s\n", absRoot)
	fmt.Fprintf(os.Stderr, "  Master:  %s\n", cfg.MasterStrings)

	master, err := loadMaster(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "  Keys:    %d\n", master.Len())
	fmt.Fprintln(os.Stderr)

	if len(cfg.DerivedStrings) > 0 {
		fmt.Fprintf(os.Stderr, "%sDerived Stores%s\n", colorBlue, colorReset)
		fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
		fmt.Fprintf(os.Stderr, "%-28s %-8s %-8s %-8s\n", "Locale", "Keys", "Missing", "Orphans")
		fmt.Fprintln(os.Stderr, strings.Repeat("─", 56))

		for _, lang := range cfg.Languages() {
			path := cfg.DerivedStrings[lang]
			store, warns, err := stringsfile.ParseFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%-28s %-8s %-8s %-8s\n", langmeta.Display(lang), "absent", "-", "-")
				continue
			}
			for _, w := range warns {
				logWarning("%s:%d: %s", path, w.Line, w.Reason)
			}
			missing, orphans := stringsfile.Diff(master, store)
			fmt.Fprintf(os.Stderr, "%-28s %-8d %-8d %-8d\n", langmeta.Display(lang), store.Len(), len(missing), len(orphans))
		}
		fmt.Fprintln(os.Stderr)
	}

	files := resolveFiles(cfg)
	used, skipped := scan.CollectUsedKeys(files)
	for _, s := range skipped {
		logWarning("skipping %s: %v", s.Path, s.Err)
	}
	newKeys := 0
	for k := range used {
		if !master.Has(k) {
			newKeys++
		}
	}
	fmt.Fprintf(os.Stderr, "%sCode%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Source files:     %d\n", len(files))
	fmt.Fprintf(os.Stderr, "  Referenced keys:  %d\n", len(used))
	fmt.Fprintf(os.Stderr, "  Not in master:    %d\n", newKeys)
	fmt.Fprintln(os.Stderr)

	manifest, err := rewrite.LoadManifest(rootDir)
	if err != nil {
		logWarning("%v", err)
	} else if manifest.Len() > 0 {
		fmt.Fprintf(os.Stderr, "%sRetained Backups%s\n", colorBlue, colorReset)
		fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
		for _, p := range manifest.Originals() {
			r, _ := manifest.Lookup(p)
			state := "ok"
			if err := manifest.Verify(p); err != nil {
				state = "damaged"
			}
			fmt.Fprintf(os.Stderr, "  %s → %s (%s)\n", p, r.Backup, state)
		}
		fmt.Fprintln(os.Stderr)
	}

	if newKeys > 0 {
		logInfo("Run 'locsmith sync' to add %d new keys to the stores.", newKeys)
	}
	return nil
}

// ---------------------------------------------------------------------------
// scan
// ---------------------------------------------------------------------------

func newScanCmd() *cobra.Command {
	var showRejected bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Report localizable literals (read-only)",
		Long: `Scan the source file set for string literals in UI contexts and
report the ones that classify as localizable. Literals already present
as keys in the master store are excluded. Running scan twice with no
edits in between yields identical findings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			res, err := runScan(cfg)
			if err != nil {
				return err
			}
			logInfo(i18n.N("Found %d file", "Found %d files", len(res.Files)), len(res.Files))
			printScanReport(res, showRejected)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showRejected, "rejected", false, "Also list rejected occurrences with reasons")

	return cmd
}

func runScan(cfg *config.Config) (*scan.Result, error) {
	master, err := loadMaster(cfg)
	if err != nil {
		return nil, err
	}
	rules, err := cfg.Ruleset()
	if err != nil {
		return nil, err
	}
	files := resolveFiles(cfg)

	scanner := scan.New(rules, master.KeySet())
	return scanner.Scan(files), nil
}

func printScanReport(res *scan.Result, showRejected bool) {
	for _, s := range res.Skipped {
		logWarning("skipping %s: %v", s.Path, s.Err)
	}

	var paths []string
	for p := range res.Findings {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		fmt.Fprintf(os.Stderr, "\n%s%s%s (%d)\n", colorBlue, p, colorReset, len(res.Findings[p]))
		for _, f := range res.Findings[p] {
			fmt.Fprintf(os.Stderr, "  %4d: %q\n", f.Line, f.Literal)
			fmt.Fprintf(os.Stderr, "        pattern: %s\n", f.Pattern)
		}
	}

	if showRejected {
		var rpaths []string
		for p := range res.Rejections {
			rpaths = append(rpaths, p)
		}
		sort.Strings(rpaths)
		for _, p := range rpaths {
			fmt.Fprintf(os.Stderr, "\n%s%s%s rejected (%d)\n", colorYellow, p, colorReset, len(res.Rejections[p]))
			for _, r := range res.Rejections[p] {
				fmt.Fprintf(os.Stderr, "  %4d: %q [%s]\n", r.Line, r.Literal, r.Reason)
			}
		}
	}

	fmt.Fprintln(os.Stderr)
	if res.TotalFindings() == 0 {
		logInfo("%s", i18n.T("Nothing to change"))
		return
	}
	logSuccess("%s: %d localizable literals in %d files",
		i18n.T("Scan complete"), res.TotalFindings(), len(res.Findings))
}

// ---------------------------------------------------------------------------
// rewrite
// ---------------------------------------------------------------------------

func newRewriteCmd() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "rewrite",
		Short: "Wrap localizable literals in NSLocalizedString calls",
		Long: `Plan and apply source rewrites: every localizable literal becomes
NSLocalizedString("<literal>", comment: "<literal>") so the literal text
is both the initial key and the displayed value.

Without --apply this is a preview: no file is modified. With --apply each
changed file is first copied to <file>` + rewrite.DefaultBackupSuffix + ` and then rewritten
atomically; 'locsmith rollback' restores the pre-edit content.

When a literal repeats verbatim on one line only the first occurrence is
wrapped; the repeat is reported as a skipped conflict and left for a
manual edit (a rewritten line is excluded from later scans).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRewrite(!apply)
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Apply the rewrites (default is a dry-run preview)")

	return cmd
}

func runRewrite(dryRun bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	res, err := runScan(cfg)
	if err != nil {
		return err
	}

	entries, conflicts := rewrite.Plan(res.Findings)
	for _, c := range conflicts {
		logWarning("%s:%d: skipped %q: %s", c.Path, c.Line, c.Literal, c.Reason)
	}
	if len(entries) == 0 {
		logInfo("%s", i18n.T("Nothing to change"))
		return nil
	}

	manifest, err := rewrite.LoadManifest(rootDir)
	if err != nil {
		return err
	}
	rw := &rewrite.Rewriter{BackupSuffix: cfg.BackupSuffix, Manifest: manifest}

	// Files are independent; an IO failure on one never aborts the rest.
	byFile := make(map[string][]rewrite.PlanEntry)
	var paths []string
	for _, e := range entries {
		if _, ok := byFile[e.Path]; !ok {
			paths = append(paths, e.Path)
		}
		byFile[e.Path] = append(byFile[e.Path], e)
	}
	sort.Strings(paths)

	totalChanged, filesChanged, filesFailed := 0, 0, 0
	for _, p := range paths {
		result, err := rw.Apply(p, byFile[p], dryRun)
		if err != nil {
			logError("%s: %v", p, err)
			filesFailed++
			continue
		}
		for _, st := range result.Stale {
			logWarning("%s:%d: line changed since scan, skipped", p, st.Line)
		}
		if result.Changed == 0 {
			continue
		}
		filesChanged++
		totalChanged += result.Changed
		if dryRun {
			fmt.Fprintf(os.Stderr, "\n%s%s%s (%d changes)\n", colorBlue, p, colorReset, result.Changed)
			for _, ch := range result.Changes {
				fmt.Fprintf(os.Stderr, "  %4d: - %s\n", ch.Line, strings.TrimSpace(ch.Original))
				fmt.Fprintf(os.Stderr, "        + %s\n", strings.TrimSpace(ch.Rewritten))
			}
		} else {
			logSuccess("%s: %d lines rewritten (backup: %s)", p, result.Changed, result.BackupPath)
		}
	}

	if !dryRun && filesChanged > 0 {
		if err := manifest.Save(); err != nil {
			logWarning("%v", err)
		}
	}

	fmt.Fprintln(os.Stderr)
	if totalChanged == 0 {
		logInfo("%s", i18n.T("Nothing to change"))
		return nil
	}
	if dryRun {
		logInfo("Preview: %d lines across %d files would change. Rerun with --apply.", totalChanged, filesChanged)
	} else {
		logSuccess("Rewrote %d lines across %d files.", totalChanged, filesChanged)
	}
	if filesFailed > 0 {
		logWarning("%d files failed and were left untouched.", filesFailed)
	}
	return nil
}

// ---------------------------------------------------------------------------
// sync
// ---------------------------------------------------------------------------

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Add code-referenced keys to the master and derived stores",
		Long: `Collect every key referenced by NSLocalizedString call sites, add the
ones missing from the master store (value = key), and bring every
derived store up to the master's key set using glossary placeholders or
a "needs translation" marker.

Orphan keys (in a derived store but not the master) are reported and
never removed. Running sync twice in a row adds zero keys the second
time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync()
		},
	}

	return cmd
}

func runSync() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	master, err := loadMaster(cfg)
	if err != nil {
		return err
	}
	files := resolveFiles(cfg)

	used, skipped := scan.CollectUsedKeys(files)
	for _, s := range skipped {
		logWarning("skipping %s: %v", s.Path, s.Err)
	}
	logInfo("Collected %d referenced keys from %d files.", len(used), len(files))

	derived := make(map[string]*stringsfile.File)
	for _, lang := range cfg.Languages() {
		path := cfg.DerivedStrings[lang]
		store, warns, err := stringsfile.ParseFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				store = stringsfile.New()
			} else {
				logError("%s store: %v", lang, err)
				continue
			}
		}
		for _, w := range warns {
			logWarning("%s:%d: %s", path, w.Line, w.Reason)
		}
		derived[lang] = store
	}

	report := syncer.Sync(master, derived, used)

	if !report.Changed() {
		logInfo("All stores are up to date; nothing added.")
	} else {
		// Master is written first; a derived store whose write fails is
		// reported and left as it was on disk.
		if report.AddedMaster > 0 {
			if err := master.WriteFile(cfg.MasterStrings); err != nil {
				return fmt.Errorf("master store not updated: %w", err)
			}
			logSuccess("Master: +%d keys (%s)", report.AddedMaster, cfg.MasterStrings)
		}
		for _, lang := range cfg.Languages() {
			store, ok := derived[lang]
			if !ok {
				continue
			}
			if report.AddedDerived[lang] == 0 {
				logInfo("%s: up to date", langmeta.Display(lang))
				continue
			}
			path := cfg.DerivedStrings[lang]
			if err := store.WriteFile(path); err != nil {
				logError("%s store not updated: %v", lang, err)
				continue
			}
			logSuccess("%s: +%d keys (%s)", langmeta.Display(lang), report.AddedDerived[lang], path)
		}
	}

	for lang, orphans := range report.Orphans {
		logWarning("%s: %d orphan keys not in master (left untouched): %s",
			lang, len(orphans), previewKeys(orphans))
	}

	logSuccess("%s", i18n.T("Sync complete"))
	return nil
}

// previewKeys shows the first few keys of a list.
func previewKeys(keys []string) string {
	const max = 5
	if len(keys) <= max {
		return strings.Join(keys, ", ")
	}
	return strings.Join(keys[:max], ", ") + fmt.Sprintf(", … (%d more)", len(keys)-max)
}

// ---------------------------------------------------------------------------
// rollback
// ---------------------------------------------------------------------------

func newRollbackCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Restore files from their backups",
		Long: `Restore every file recorded in the backup manifest (or a single file
with --file) to its pre-rewrite content, then discard the backups.
A file without a backup is skipped silently.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollback(file)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Restore only this file")

	return cmd
}

func runRollback(file string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manifest, err := rewrite.LoadManifest(rootDir)
	if err != nil {
		return err
	}
	rw := &rewrite.Rewriter{BackupSuffix: cfg.BackupSuffix, Manifest: manifest}

	targets := manifest.Originals()
	if file != "" {
		targets = []string{file}
	}
	if len(targets) == 0 {
		logInfo("No backups to restore.")
		return nil
	}

	restored := 0
	for _, p := range targets {
		ok, err := rw.Rollback(p)
		if err != nil {
			logError("%s: %v", p, err)
			continue
		}
		if ok {
			logSuccess("Restored %s", p)
			restored++
		}
	}
	if err := manifest.Save(); err != nil {
		logWarning("%v", err)
	}
	logInfo("Restored %d files.", restored)
	return nil
}

// ---------------------------------------------------------------------------
// cleanup
// ---------------------------------------------------------------------------

func newCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete retained backup files",
		Long: `Delete every backup recorded in the manifest and clear the manifest.
Use after reviewing an applied rewrite session; rollback is impossible
afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup()
		},
	}

	return cmd
}

func runCleanup() error {
	manifest, err := rewrite.LoadManifest(rootDir)
	if err != nil {
		return err
	}
	if manifest.Len() == 0 {
		logInfo("No backups to clean up.")
		return nil
	}

	removed := 0
	for _, p := range manifest.Originals() {
		r, _ := manifest.Lookup(p)
		if err := os.Remove(r.Backup); err != nil && !os.IsNotExist(err) {
			logError("removing %s: %v", r.Backup, err)
			continue
		}
		manifest.Remove(p)
		removed++
	}
	if err := manifest.Save(); err != nil {
		return err
	}
	logSuccess("Removed %d backup files.", removed)
	return nil
}
