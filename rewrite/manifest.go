// Backup manifest — locsmith.manifest tracks which files were backed up
// during the current edit session, where the backup lives, and an MD5
// checksum of the pre-edit content. External rollback tooling can use it
// to restore a batch, and Verify catches backups that were tampered with
// or truncated after the fact.
//
// One record per file per session; rerunning a session overwrites the
// record along with the backup itself.
package rewrite

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestName is the default manifest file name.
const ManifestName = "locsmith.manifest"

// ManifestVersion is the manifest format version.
const ManifestVersion = 1

// Record is one BackupRecord: the pre-edit copy of a single file.
type Record struct {
	Original  string    `yaml:"original"`
	Backup    string    `yaml:"backup"`
	Checksum  string    `yaml:"checksum"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Manifest is the locsmith.manifest file structure.
type Manifest struct {
	Version int               `yaml:"version"`
	Records map[string]Record `yaml:"records"` // original path → record

	path string `yaml:"-"`
}

// LoadManifest reads the manifest from the given directory. A missing
// file yields an empty manifest.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	m := &Manifest{
		Version: ManifestVersion,
		Records: make(map[string]Record),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	m.path = path
	if m.Records == nil {
		m.Records = make(map[string]Record)
	}
	return m, nil
}

// Save writes the manifest to disk.
func (m *Manifest) Save() error {
	if m.path == "" {
		return fmt.Errorf("manifest path not set")
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := writeFileAtomic(m.path, data); err != nil {
		return fmt.Errorf("writing %s: %w", m.path, err)
	}
	return nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return m.path
}

// Hash computes the MD5 hex digest of file content.
func Hash(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

// Add records a backup for original, overwriting any earlier record from
// a previous session.
func (m *Manifest) Add(original, backup string, preEdit []byte) {
	m.Records[filepath.ToSlash(original)] = Record{
		Original:  original,
		Backup:    backup,
		Checksum:  Hash(preEdit),
		CreatedAt: time.Now(),
	}
}

// Remove drops the record for original.
func (m *Manifest) Remove(original string) {
	delete(m.Records, filepath.ToSlash(original))
}

// Lookup returns the record for original, if any.
func (m *Manifest) Lookup(original string) (Record, bool) {
	r, ok := m.Records[filepath.ToSlash(original)]
	return r, ok
}

// Len returns the number of records.
func (m *Manifest) Len() int {
	return len(m.Records)
}

// Originals returns the recorded original paths, sorted.
func (m *Manifest) Originals() []string {
	paths := make([]string, 0, len(m.Records))
	for p := range m.Records {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Verify checks that the backup for original still exists and matches the
// checksum captured when it was taken.
func (m *Manifest) Verify(original string) error {
	r, ok := m.Lookup(original)
	if !ok {
		return fmt.Errorf("no backup record for %s", original)
	}
	data, err := os.ReadFile(r.Backup)
	if err != nil {
		return fmt.Errorf("reading backup %s: %w", r.Backup, err)
	}
	if got := Hash(data); got != r.Checksum {
		return fmt.Errorf("backup %s checksum mismatch: recorded %s, got %s", r.Backup, r.Checksum, got)
	}
	return nil
}
