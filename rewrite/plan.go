// Package rewrite converts scan findings into concrete line rewrites and
// applies them to source files under a backup/rollback discipline.
//
// Replacement policy: on each line, the first textual occurrence of the
// quoted literal is wrapped. If the same literal repeats verbatim on one
// line, only the first is wrapped; the repeat is surfaced as a Conflict
// and stays unwrapped — once the line carries an NSLocalizedString call
// it is excluded from later scans, so the leftover occurrence is a
// manual edit, not a second pass. Plan entries are applied strictly in
// descending line order so earlier line indices stay valid.
package rewrite

import (
	"sort"
	"strings"

	"github.com/cat-xierluo/locsmith/scan"
)

// ---------------------------------------------------------------------------
// Plan model
// ---------------------------------------------------------------------------

// PlanEntry is one concrete line rewrite. Rewritten is identical to
// Original except that each literal in Literals is wrapped once; nothing
// else on the line changes.
type PlanEntry struct {
	Path      string
	Line      int // 1-based
	Original  string
	Rewritten string
	Literals  []string
}

// Conflict records a finding that could not be planned because its quoted
// literal span was already consumed by an earlier replacement on the same
// line. Conflicts are reported, never applied.
type Conflict struct {
	Path    string
	Line    int
	Literal string
	Reason  string
}

// Plan groups findings by (file, line) and produces one combined rewrite
// per line, ordered by path and then by descending line number.
func Plan(findings map[string][]scan.Finding) ([]PlanEntry, []Conflict) {
	var entries []PlanEntry
	var conflicts []Conflict

	var paths []string
	for p := range findings {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		byLine := make(map[int][]scan.Finding)
		var lineNums []int
		for _, f := range findings[path] {
			if _, ok := byLine[f.Line]; !ok {
				lineNums = append(lineNums, f.Line)
			}
			byLine[f.Line] = append(byLine[f.Line], f)
		}
		// Descending line order keeps earlier indices valid during apply.
		sort.Sort(sort.Reverse(sort.IntSlice(lineNums)))

		for _, num := range lineNums {
			group := byLine[num]
			entry, lineConflicts := planLine(path, num, group)
			conflicts = append(conflicts, lineConflicts...)
			if entry != nil {
				entries = append(entries, *entry)
			}
		}
	}

	return entries, conflicts
}

// planLine builds a single combined rewrite for all findings on one line.
// Returns nil when every replacement conflicted.
func planLine(path string, num int, group []scan.Finding) (*PlanEntry, []Conflict) {
	original := group[0].Context
	rewritten := original
	var applied []string
	var conflicts []Conflict
	done := make(map[string]bool)

	for _, f := range group {
		if done[f.Literal] {
			// Same literal reported twice on this line (e.g. by two
			// patterns after dedupe misses): first replacement covers it.
			conflicts = append(conflicts, Conflict{
				Path: path, Line: num, Literal: f.Literal,
				Reason: "literal already wrapped on this line",
			})
			continue
		}
		next, ok := replaceFirst(rewritten, f.Literal)
		if !ok {
			conflicts = append(conflicts, Conflict{
				Path: path, Line: num, Literal: f.Literal,
				Reason: "quoted literal not found on line",
			})
			continue
		}
		rewritten = next
		applied = append(applied, f.Literal)
		done[f.Literal] = true
	}

	if len(applied) == 0 {
		return nil, conflicts
	}
	return &PlanEntry{
		Path:      path,
		Line:      num,
		Original:  original,
		Rewritten: rewritten,
		Literals:  applied,
	}, conflicts
}

// WrapCall builds the wrapped form for a literal. The literal text is used
// verbatim (it is already source-escaped) as both the key and the comment —
// the pass-through key policy keeps lookups working before any human or
// machine translation exists.
func WrapCall(literal string) string {
	return `NSLocalizedString("` + literal + `", comment: "` + literal + `")`
}

// replaceFirst wraps the first occurrence of the quoted literal in s,
// skipping occurrences that are already inside a wrapped call.
func replaceFirst(s, literal string) (string, bool) {
	quoted := `"` + literal + `"`
	idx := indexOutsideWrap(s, quoted)
	if idx < 0 {
		return s, false
	}
	return s[:idx] + WrapCall(literal) + s[idx+len(quoted):], true
}

// indexOutsideWrap finds the first occurrence of quoted in s that is not
// part of an NSLocalizedString argument list inserted by a prior rewrite.
func indexOutsideWrap(s, quoted string) int {
	const wrapPrefix = "NSLocalizedString("
	from := 0
	for {
		rel := strings.Index(s[from:], quoted)
		if rel < 0 {
			return -1
		}
		idx := from + rel
		if !insideWrap(s, idx, wrapPrefix) {
			return idx
		}
		from = idx + len(quoted)
	}
}

// insideWrap reports whether position pos sits within the parentheses of
// an NSLocalizedString call that opens before pos on the same string.
func insideWrap(s string, pos int, wrapPrefix string) bool {
	open := -1
	for i := 0; i+len(wrapPrefix) <= pos; i++ {
		if s[i:i+len(wrapPrefix)] == wrapPrefix {
			open = i + len(wrapPrefix)
		}
	}
	if open < 0 {
		return false
	}
	// Between the opening paren and pos there must be no closing paren
	// for pos to be inside the call.
	depth := 1
	for i := open; i < pos; i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	return depth > 0
}
