package rewrite

import (
	"os"
	"path/filepath"
	"testing"
)

func TestManifestLoadMissing(t *testing.T) {
	m, err := LoadManifest(t.TempDir())
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
	if m.Version != ManifestVersion {
		t.Errorf("Version = %d, want %d", m.Version, ManifestVersion)
	}
}

func TestManifestSaveAndReload(t *testing.T) {
	dir := t.TempDir()

	m, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	m.Add("Sources/A.swift", "Sources/A.swift.backup", []byte("content a"))
	m.Add("Sources/B.swift", "Sources/B.swift.backup", []byte("content b"))
	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("Len = %d, want 2", loaded.Len())
	}
	r, ok := loaded.Lookup("Sources/A.swift")
	if !ok {
		t.Fatal("record for A.swift lost on reload")
	}
	if r.Backup != "Sources/A.swift.backup" {
		t.Errorf("Backup = %q", r.Backup)
	}
	if r.Checksum != Hash([]byte("content a")) {
		t.Errorf("Checksum = %q", r.Checksum)
	}

	want := []string{"Sources/A.swift", "Sources/B.swift"}
	got := loaded.Originals()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Originals[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestManifestVerify(t *testing.T) {
	dir := t.TempDir()
	backup := filepath.Join(dir, "A.swift.backup")
	content := []byte("pre-edit content")
	if err := os.WriteFile(backup, content, 0644); err != nil {
		t.Fatal(err)
	}

	m, _ := LoadManifest(dir)
	m.Add("A.swift", backup, content)

	if err := m.Verify("A.swift"); err != nil {
		t.Errorf("Verify on intact backup: %v", err)
	}

	// Tampered backup fails the checksum.
	if err := os.WriteFile(backup, []byte("tampered"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := m.Verify("A.swift"); err == nil {
		t.Error("Verify accepted a tampered backup")
	}

	// Deleted backup fails too.
	os.Remove(backup)
	if err := m.Verify("A.swift"); err == nil {
		t.Error("Verify accepted a missing backup")
	}

	if err := m.Verify("unknown.swift"); err == nil {
		t.Error("Verify accepted an unrecorded file")
	}
}

func TestManifestAddOverwrites(t *testing.T) {
	m, _ := LoadManifest(t.TempDir())
	m.Add("A.swift", "A.swift.backup", []byte("first"))
	m.Add("A.swift", "A.swift.backup", []byte("second"))

	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}
	r, _ := m.Lookup("A.swift")
	if r.Checksum != Hash([]byte("second")) {
		t.Error("rerun did not overwrite the record")
	}

	m.Remove("A.swift")
	if m.Len() != 0 {
		t.Error("Remove left the record behind")
	}
}
