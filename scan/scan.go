// Package scan walks a source file set, finds string literal occurrences
// with the configured UI patterns, and classifies each one.
//
// Scanning is strictly lexical and line-based: literals spanning multiple
// lines, interpolated strings, and computed strings are not seen. That is
// a documented limitation of the pattern approach, not a defect — the
// engine deliberately avoids parsing the host language.
//
// A scan pass is read-only and idempotent: running it twice with no edits
// in between yields identical findings.
package scan

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cat-xierluo/locsmith/classify"
)

// ---------------------------------------------------------------------------
// File set resolution
// ---------------------------------------------------------------------------

// skipDirs contains directory names never descended into.
var skipDirs = map[string]bool{
	".git":          true,
	".hg":           true,
	".svn":          true,
	"node_modules":  true,
	"Pods":          true,
	"Carthage":      true,
	"DerivedData":   true,
	".build":        true,
	"build":         true,
	"vendor":        true,
	"localizations": true,
}

// FileSet describes which files a scan covers: an explicit list, or
// directories walked recursively with extension and exclude-glob filters.
type FileSet struct {
	// Files are explicit paths, used as-is.
	Files []string
	// Dirs are roots to walk recursively.
	Dirs []string
	// Extensions filter walked files (e.g. ".swift"). Empty means ".swift".
	Extensions []string
	// Excludes are glob patterns matched against the slash path and the
	// base name; matching files are dropped.
	Excludes []string
}

// Resolve expands the file set into a sorted, deduplicated path list.
// Unreadable entries (a typo'd source dir included) are reported back
// as skipped with their cause instead of silently shrinking the set.
func (fs FileSet) Resolve() ([]string, []SkippedFile) {
	exts := fs.Extensions
	if len(exts) == 0 {
		exts = []string{".swift"}
	}
	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[e] = true
	}

	seen := make(map[string]bool)
	var files []string
	var skipped []SkippedFile
	add := func(p string) {
		if !seen[p] && !fs.excluded(p) {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, f := range fs.Files {
		add(f)
	}
	for _, dir := range fs.Dirs {
		filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				skipped = append(skipped, SkippedFile{Path: p, Err: err})
				return nil
			}
			if info.IsDir() {
				if skipDirs[info.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if extSet[filepath.Ext(p)] {
				add(p)
			}
			return nil
		})
	}

	sort.Strings(files)
	return files, skipped
}

func (fs FileSet) excluded(p string) bool {
	slash := filepath.ToSlash(p)
	base := filepath.Base(p)
	for _, pat := range fs.Excludes {
		if ok, _ := path.Match(pat, slash); ok {
			return true
		}
		if ok, _ := path.Match(pat, base); ok {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Findings
// ---------------------------------------------------------------------------

// Finding is a literal occurrence that passed classification.
type Finding struct {
	classify.Occurrence
	// Pattern is the UI pattern that matched (diagnostics).
	Pattern string
}

// Rejection is a literal occurrence that failed classification, kept for
// reporting.
type Rejection struct {
	classify.Occurrence
	Reason  string
	Pattern string
}

// Reason for occurrences dropped because the master store already has them.
const ReasonAlreadyLocalized = "already-localized"

// SkippedFile records a file dropped from the scan with its cause.
// IO errors on one file never abort the batch.
type SkippedFile struct {
	Path string
	Err  error
}

// Result is the outcome of one scan pass.
type Result struct {
	// Files is the resolved scan order.
	Files []string
	// Findings maps file path to accepted findings in line order.
	Findings map[string][]Finding
	// Rejections maps file path to rejected occurrences in line order.
	Rejections map[string][]Rejection
	// Skipped lists unreadable files.
	Skipped []SkippedFile
}

// TotalFindings returns the number of accepted findings across all files.
func (r *Result) TotalFindings() int {
	n := 0
	for _, fs := range r.Findings {
		n += len(fs)
	}
	return n
}

// ---------------------------------------------------------------------------
// Scanner
// ---------------------------------------------------------------------------

// Scanner applies a classification rule set to a file set.
type Scanner struct {
	rules *classify.Ruleset
	// master holds keys already present in the master locale store; literals
	// equal to a master key are considered already localized.
	master map[string]bool
}

// New returns a Scanner. master may be nil when no master store exists yet.
func New(rules *classify.Ruleset, master map[string]bool) *Scanner {
	return &Scanner{rules: rules, master: master}
}

// Scan runs ScanFile over every file and collects the results. Unreadable
// files are recorded in Result.Skipped and do not abort the pass.
func (s *Scanner) Scan(files []string) *Result {
	res := &Result{
		Files:      files,
		Findings:   make(map[string][]Finding),
		Rejections: make(map[string][]Rejection),
	}
	for _, f := range files {
		findings, rejections, err := s.ScanFile(f)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedFile{Path: f, Err: err})
			continue
		}
		if len(findings) > 0 {
			res.Findings[f] = findings
		}
		if len(rejections) > 0 {
			res.Rejections[f] = rejections
		}
	}
	return res
}

// ScanFile extracts and classifies all literal occurrences in one file.
func (s *Scanner) ScanFile(path string) ([]Finding, []Rejection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var findings []Finding
	var rejections []Rejection
	seen := make(map[string]bool) // file:line:literal dedupe

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	inBlock := false
	for i, line := range lines {
		num := i + 1
		trimmed := strings.TrimSpace(line)

		// Skip pure comment lines; a lexical scanner cannot see through them.
		if inBlock {
			if strings.Contains(trimmed, "*/") {
				inBlock = false
			}
			continue
		}
		if strings.HasPrefix(trimmed, "//") {
			continue
		}
		if strings.HasPrefix(trimmed, "/*") {
			if !strings.Contains(trimmed[2:], "*/") {
				inBlock = true
			}
			continue
		}

		for _, re := range s.rules.UIPatterns() {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				literal := m[1]
				key := fmt.Sprintf("%d\x00%s", num, literal)
				if seen[key] {
					continue
				}
				seen[key] = true

				occ := classify.Occurrence{
					Literal: literal,
					Path:    path,
					Line:    num,
					Context: line,
				}
				if s.master != nil && s.master[literal] {
					rejections = append(rejections, Rejection{Occurrence: occ, Reason: ReasonAlreadyLocalized})
					continue
				}
				v := s.rules.Classify(occ)
				if v.Accepted {
					findings = append(findings, Finding{Occurrence: occ, Pattern: v.Pattern})
				} else {
					rejections = append(rejections, Rejection{Occurrence: occ, Reason: v.Reason, Pattern: v.Pattern})
				}
			}
		}
	}

	return findings, rejections, nil
}

// ---------------------------------------------------------------------------
// Used-key collection
// ---------------------------------------------------------------------------

// wrappedCallRe matches NSLocalizedString("<key>", comment: ...) call sites
// and captures the key argument.
var wrappedCallRe = regexp.MustCompile(`NSLocalizedString\(\s*"((?:[^"\\]|\\.)*)"\s*,\s*comment:`)

// CollectUsedKeys scans for wrapped-call sites across the file set and
// returns the set of keys the code actually references. Unreadable files
// are reported back and skipped.
func CollectUsedKeys(files []string) (map[string]bool, []SkippedFile) {
	used := make(map[string]bool)
	var skipped []SkippedFile

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			skipped = append(skipped, SkippedFile{Path: f, Err: err})
			continue
		}
		for _, m := range wrappedCallRe.FindAllStringSubmatch(string(data), -1) {
			used[m[1]] = true
		}
	}
	return used, skipped
}
