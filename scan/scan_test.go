package scan

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cat-xierluo/locsmith/classify"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func testRules(t *testing.T) *classify.Ruleset {
	t.Helper()
	rs, err := classify.NewRuleset(classify.Options{})
	if err != nil {
		t.Fatalf("NewRuleset: %v", err)
	}
	return rs
}

const sampleSwift = `import SwiftUI

struct RecorderView: View {
    let defaultsKey = "recorder.lastModel"

    var body: some View {
        VStack {
            Text("Recording saved")
            Button("Save") { save() }
            Button("Copy to Clipboard") { copy() }
        }
        .navigationTitle("Recorder")
    }
}
`

func TestScanFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "RecorderView.swift")
	writeFile(t, path, sampleSwift)

	// "Save" is already a master key; it must be excluded, not re-reported.
	master := map[string]bool{"Save": true}
	s := New(testRules(t), master)

	findings, rejections, err := s.ScanFile(path)
	if err != nil {
		t.Fatalf("ScanFile: %v", err)
	}

	var got []string
	for _, f := range findings {
		got = append(got, f.Literal)
	}
	want := []string{"Recording saved", "Copy to Clipboard", "Recorder"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("findings = %v, want %v", got, want)
	}

	// The let-binding literal and the master key both show up as rejections.
	reasons := make(map[string]string)
	for _, r := range rejections {
		reasons[r.Literal] = r.Reason
	}
	if reasons["recorder.lastModel"] != classify.ReasonAvoided {
		t.Errorf("recorder.lastModel reason = %q, want %q", reasons["recorder.lastModel"], classify.ReasonAvoided)
	}
	if reasons["Save"] != ReasonAlreadyLocalized {
		t.Errorf("Save reason = %q, want %q", reasons["Save"], ReasonAlreadyLocalized)
	}
}

func TestScanSkipsCommentLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.swift")
	writeFile(t, path, `// Text("commented out")
/* Text("block one") */
/*
Text("inside block")
*/
Text("real one")
`)

	s := New(testRules(t), nil)
	findings, _, err := s.ScanFile(path)
	if err != nil {
		t.Fatalf("ScanFile: %v", err)
	}
	if len(findings) != 1 || findings[0].Literal != "real one" {
		t.Errorf("findings = %+v, want only %q", findings, "real one")
	}
}

func TestScanDedupesSameLineLiteral(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.swift")
	// Two patterns match the same literal on one line (Text + title:).
	writeFile(t, path, `present(Text("Shared title"), title: "Shared title")
`)

	s := New(testRules(t), nil)
	findings, _, err := s.ScanFile(path)
	if err != nil {
		t.Fatalf("ScanFile: %v", err)
	}
	if len(findings) != 1 {
		t.Errorf("findings = %d, want 1 (deduped)", len(findings))
	}
}

// A line that already carries an NSLocalizedString call is excluded
// wholesale: a raw literal left next to the wrapped one (the repeated-
// literal conflict case) is rejected, never re-found by a later scan.
func TestScanExcludesRewrittenLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.swift")
	writeFile(t, path, `choose(Text(NSLocalizedString("Retry", comment: "Retry")), fallback: Text("Retry"))
`)

	s := New(testRules(t), nil)
	findings, rejections, err := s.ScanFile(path)
	if err != nil {
		t.Fatalf("ScanFile: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("findings = %+v, want none", findings)
	}
	found := false
	for _, r := range rejections {
		if r.Literal == "Retry" && r.Reason == classify.ReasonAvoided {
			found = true
		}
	}
	if !found {
		t.Errorf("rejections = %+v, want Retry rejected as %s", rejections, classify.ReasonAvoided)
	}
}

func TestScanIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.swift")
	writeFile(t, path, sampleSwift)

	s := New(testRules(t), nil)
	first := s.Scan([]string{path})
	second := s.Scan([]string{path})
	if !reflect.DeepEqual(first.Findings, second.Findings) {
		t.Error("two scans over unchanged input differ")
	}
}

func TestScanUnreadableFileSkipped(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.swift")
	writeFile(t, good, `Text("Still scanned")`+"\n")
	missing := filepath.Join(dir, "gone.swift")

	s := New(testRules(t), nil)
	res := s.Scan([]string{missing, good})

	if len(res.Skipped) != 1 || res.Skipped[0].Path != missing {
		t.Errorf("Skipped = %+v, want the missing file", res.Skipped)
	}
	if res.TotalFindings() != 1 {
		t.Errorf("TotalFindings = %d, want 1 (good file still scanned)", res.TotalFindings())
	}
}

func TestFileSetResolve(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "A.swift"), "")
	writeFile(t, filepath.Join(dir, "src", "B.swift"), "")
	writeFile(t, filepath.Join(dir, "src", "notes.md"), "")
	writeFile(t, filepath.Join(dir, "src", "Pods", "Dep.swift"), "")
	writeFile(t, filepath.Join(dir, "src", "ATests.swift"), "")

	fs := FileSet{
		Dirs:     []string{dir},
		Excludes: []string{"*Tests.swift"},
	}
	files, skipped := fs.Resolve()
	if len(skipped) != 0 {
		t.Fatalf("skipped = %+v, want none", skipped)
	}

	want := []string{
		filepath.Join(dir, "src", "A.swift"),
		filepath.Join(dir, "src", "B.swift"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Resolve = %v, want %v", files, want)
	}
}

// A misspelled source dir must not silently collapse into an empty file
// set; the walk failure comes back as a skipped entry with its cause.
func TestFileSetResolveReportsUnreadableDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "A.swift"), "")
	missing := filepath.Join(dir, "Sourcs") // typo'd on purpose

	fs := FileSet{Dirs: []string{dir, missing}}
	files, skipped := fs.Resolve()

	if len(files) != 1 {
		t.Errorf("files = %v, want the one readable entry", files)
	}
	if len(skipped) != 1 {
		t.Fatalf("skipped = %+v, want 1 entry", skipped)
	}
	if skipped[0].Path != missing {
		t.Errorf("skipped path = %q, want %q", skipped[0].Path, missing)
	}
	if skipped[0].Err == nil {
		t.Error("skipped entry has no error")
	}
}

func TestFileSetResolveDedupes(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "A.swift")
	writeFile(t, p, "")

	fs := FileSet{Files: []string{p}, Dirs: []string{dir}}
	files, _ := fs.Resolve()
	if len(files) != 1 {
		t.Errorf("Resolve = %v, want a single entry", files)
	}
}

func TestCollectUsedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.swift")
	writeFile(t, path, `Text(NSLocalizedString("Recording saved", comment: "Recording saved"))
label = NSLocalizedString("Copy to Clipboard", comment: "copy action")
other = NSLocalizedString("He said \"hi\"", comment: "quoted")
plain = "not a call site"
`)

	used, skipped := CollectUsedKeys([]string{path, filepath.Join(dir, "gone.swift")})
	if len(skipped) != 1 {
		t.Errorf("skipped = %+v, want 1 entry", skipped)
	}

	want := []string{"Recording saved", "Copy to Clipboard", `He said \"hi\"`}
	if len(used) != len(want) {
		t.Fatalf("used = %v, want %d keys", used, len(want))
	}
	for _, k := range want {
		if !used[k] {
			t.Errorf("used missing %q", k)
		}
	}
}
