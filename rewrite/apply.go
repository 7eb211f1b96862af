package rewrite

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultBackupSuffix is appended to a file's path to form its backup path.
const DefaultBackupSuffix = ".backup"

// LineChange records one applied (or would-be applied) line rewrite.
type LineChange struct {
	Line      int
	Original  string
	Rewritten string
}

// ApplyResult is the per-file outcome of Apply.
type ApplyResult struct {
	Path       string
	Changed    int
	BackupPath string // empty on dry run or no-op
	DryRun     bool
	Changes    []LineChange
	// Stale lists entries skipped because the on-disk line no longer
	// matches the planned original (the plan was computed against an
	// older version of the file).
	Stale []LineChange
}

// Rewriter applies plan entries to files, one file at a time. Every real
// apply takes a verbatim backup first and writes the result atomically, so
// a failed write leaves the original file intact and the backup in place.
//
// Concurrent runs are not supported: a run owns the corpus for its
// duration. That is a convention of the callers, not enforced here.
type Rewriter struct {
	// BackupSuffix forms the backup path; empty means DefaultBackupSuffix.
	BackupSuffix string
	// Manifest, when set, records a BackupRecord per backed-up file.
	Manifest *Manifest
}

func (rw *Rewriter) suffix() string {
	if rw.BackupSuffix == "" {
		return DefaultBackupSuffix
	}
	return rw.BackupSuffix
}

// BackupPath returns the backup path for a source file.
func (rw *Rewriter) BackupPath(path string) string {
	return path + rw.suffix()
}

// Apply applies the entries for a single file. With dryRun the file is
// only read and the would-be changes are returned. Otherwise the flow is:
// back up the file verbatim, patch lines in descending order, write the
// whole file back atomically, and delete the backup again if nothing
// actually changed (a no-op session leaves no residue).
func (rw *Rewriter) Apply(path string, entries []PlanEntry, dryRun bool) (*ApplyResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	content := string(data)
	hadTrailingNewline := strings.HasSuffix(content, "\n")
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")

	// Strictly descending line order; later application must not
	// invalidate earlier indices.
	sorted := make([]PlanEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Line > sorted[j].Line })

	res := &ApplyResult{Path: path, DryRun: dryRun}
	for _, e := range sorted {
		idx := e.Line - 1
		if idx < 0 || idx >= len(lines) {
			res.Stale = append(res.Stale, LineChange{Line: e.Line, Original: e.Original})
			continue
		}
		switch lines[idx] {
		case e.Rewritten:
			// Already applied — rerunning a plan is idempotent.
			continue
		case e.Original:
			lines[idx] = e.Rewritten
			res.Changed++
			res.Changes = append(res.Changes, LineChange{Line: e.Line, Original: e.Original, Rewritten: e.Rewritten})
		default:
			res.Stale = append(res.Stale, LineChange{Line: e.Line, Original: e.Original, Rewritten: lines[idx]})
		}
	}

	if dryRun || res.Changed == 0 {
		return res, nil
	}

	backupPath := rw.BackupPath(path)
	if err := writeFileAtomic(backupPath, data); err != nil {
		return nil, fmt.Errorf("creating backup %s: %w", backupPath, err)
	}
	if rw.Manifest != nil {
		rw.Manifest.Add(path, backupPath, data)
	}

	out := strings.Join(lines, "\n")
	if hadTrailingNewline {
		out += "\n"
	}
	if err := writeFileAtomic(path, []byte(out)); err != nil {
		// Original is intact (atomic write failed before rename); the
		// backup stays for inspection.
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	res.BackupPath = backupPath
	return res, nil
}

// Rollback restores a file from its most recent backup and discards the
// backup. A file with no backup is a no-op, not an error; the returned
// bool reports whether anything was restored.
func (rw *Rewriter) Rollback(path string) (bool, error) {
	backupPath := rw.BackupPath(path)
	data, err := os.ReadFile(backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading backup %s: %w", backupPath, err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return false, fmt.Errorf("restoring %s: %w", path, err)
	}
	if err := os.Remove(backupPath); err != nil {
		return true, fmt.Errorf("removing backup %s: %w", backupPath, err)
	}
	if rw.Manifest != nil {
		rw.Manifest.Remove(path)
	}
	return true, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place, fsyncing before the rename. An existing
// destination keeps its permission bits; a new file gets 0644. A failure
// at any step removes the temp file and leaves the destination untouched.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
