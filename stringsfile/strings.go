// Package stringsfile implements reading and writing of Apple-style
// .strings localization files.
//
// Format: one record per line, `"key" = "value";`. Comment lines start
// with `//` or are enclosed in `/* ... */` and are preserved verbatim in
// the output, as are blank lines. Keys and values may contain escaped
// double quotes (\") and backslashes (\\); \n and \t are decoded too.
//
// File naming convention: each locale is stored as a separate file:
//
//	zh-Hans.lproj/Localizable.strings  (master)
//	en.lproj/Localizable.strings       (derived)
//
// The File type maintains the original line order so that round-trip
// serialization reproduces the source structure byte for byte.
package stringsfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// File model
// ---------------------------------------------------------------------------

// lineKind classifies each line in the file.
type lineKind int

const (
	lineBlank   lineKind = iota // blank / whitespace-only line
	lineComment                 // comment line (// or /* ... */), kept verbatim
	lineEntry                   // "key" = "value"; record
)

// line is a single line in the .strings file. Entry lines keep their raw
// source text so an unmodified entry re-serializes byte for byte, escape
// spellings (\U0001F600, octal) and indentation included; raw is cleared
// when the entry is changed in memory and the line is then synthesized
// canonically.
type line struct {
	kind  lineKind
	raw   string // original text; empty for entries created or changed in memory
	key   string // decoded key, only for lineEntry
	value string // decoded value, only for lineEntry
}

// File represents a parsed .strings file.
type File struct {
	// lines stores all lines in document order.
	lines []line
	// index maps key → index in lines for fast lookup.
	index map[string]int
}

// ParseWarning describes a line that did not match the record grammar
// and was skipped (preserved as a comment-like raw line).
type ParseWarning struct {
	Line   int
	Text   string
	Reason string
}

// New returns an empty File.
func New() *File {
	return &File{index: make(map[string]int)}
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a .strings file from disk.
func ParseFile(path string) (*File, []ParseWarning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, warns := Parse(data)
	return f, warns, nil
}

// Parse parses .strings content from a byte slice. Malformed record lines
// are kept verbatim (so they survive a round trip) and reported as warnings;
// parsing never fails.
func Parse(data []byte) (*File, []ParseWarning) {
	f := New()
	var warns []ParseWarning

	text := string(data)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	rawLines := strings.Split(text, "\n")

	// Drop trailing empty element from a file that ends with \n.
	if len(rawLines) > 0 && rawLines[len(rawLines)-1] == "" {
		rawLines = rawLines[:len(rawLines)-1]
	}

	inBlock := false
	for i, raw := range rawLines {
		trimmed := strings.TrimSpace(raw)
		num := i + 1

		switch {
		case inBlock:
			f.lines = append(f.lines, line{kind: lineComment, raw: raw})
			if strings.Contains(trimmed, "*/") {
				inBlock = false
			}

		case trimmed == "":
			f.lines = append(f.lines, line{kind: lineBlank, raw: raw})

		case strings.HasPrefix(trimmed, "//"):
			f.lines = append(f.lines, line{kind: lineComment, raw: raw})

		case strings.HasPrefix(trimmed, "/*"):
			f.lines = append(f.lines, line{kind: lineComment, raw: raw})
			if !strings.Contains(trimmed[2:], "*/") {
				inBlock = true
			}

		default:
			k, v, ok := parseRecord(trimmed)
			if !ok {
				// Malformed line — keep it verbatim so it round-trips.
				f.lines = append(f.lines, line{kind: lineComment, raw: raw})
				warns = append(warns, ParseWarning{Line: num, Text: raw, Reason: "line does not match \"key\" = \"value\"; grammar"})
				continue
			}
			if _, exists := f.index[k]; exists {
				// Duplicate key: first occurrence wins, line dropped.
				warns = append(warns, ParseWarning{Line: num, Text: raw, Reason: "duplicate key " + strconvQuote(k)})
				continue
			}
			idx := len(f.lines)
			f.lines = append(f.lines, line{kind: lineEntry, raw: raw, key: k, value: v})
			f.index[k] = idx
		}
	}

	return f, warns
}

// parseRecord parses a trimmed `"key" = "value";` line into decoded key
// and value. Returns ok=false when the line does not match the grammar.
func parseRecord(s string) (key, value string, ok bool) {
	key, rest, ok := readQuoted(s)
	if !ok {
		return "", "", false
	}
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, "=") {
		return "", "", false
	}
	rest = strings.TrimLeft(rest[1:], " \t")
	value, rest, ok = readQuoted(rest)
	if !ok {
		return "", "", false
	}
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, ";") {
		return "", "", false
	}
	if strings.TrimSpace(rest[1:]) != "" {
		return "", "", false
	}
	return key, value, true
}

// readQuoted consumes a leading double-quoted string with backslash
// escapes and returns the decoded text plus the remainder of the input.
func readQuoted(s string) (text, rest string, ok bool) {
	if !strings.HasPrefix(s, `"`) {
		return "", "", false
	}
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		switch c {
		case '\\':
			if i+1 >= len(s) {
				return "", "", false
			}
			switch s[i+1] {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				// Unknown escape — keep it as-is.
				b.WriteByte('\\')
				b.WriteByte(s[i+1])
			}
			i += 2
		case '"':
			return b.String(), s[i+1:], true
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", "", false
}

// escape encodes a decoded key or value for serialization.
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func strconvQuote(s string) string {
	return `"` + escape(s) + `"`
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Keys returns all keys in document order.
func (f *File) Keys() []string {
	keys := make([]string, 0, len(f.index))
	for _, ln := range f.lines {
		if ln.kind == lineEntry {
			keys = append(keys, ln.key)
		}
	}
	return keys
}

// KeySet returns the keys as a lookup set.
func (f *File) KeySet() map[string]bool {
	set := make(map[string]bool, len(f.index))
	for k := range f.index {
		set[k] = true
	}
	return set
}

// Len returns the number of entries.
func (f *File) Len() int {
	return len(f.index)
}

// Has reports whether key exists.
func (f *File) Has(key string) bool {
	_, ok := f.index[key]
	return ok
}

// Get returns the value for key and whether it was found.
func (f *File) Get(key string) (string, bool) {
	if idx, ok := f.index[key]; ok {
		return f.lines[idx].value, true
	}
	return "", false
}

// Set sets the value for an existing key. Returns true on success,
// false if the key does not exist.
func (f *File) Set(key, value string) bool {
	idx, ok := f.index[key]
	if !ok {
		return false
	}
	f.lines[idx].value = value
	f.lines[idx].raw = ""
	return true
}

// Append adds a new entry at the end of the file. Existing entries are
// never reordered or overwritten; appending a duplicate key is refused.
func (f *File) Append(key, value string) bool {
	if _, exists := f.index[key]; exists {
		return false
	}
	idx := len(f.lines)
	f.lines = append(f.lines, line{kind: lineEntry, key: key, value: value})
	f.index[key] = idx
	return true
}

// AppendComment adds a comment line at the end of the file.
func (f *File) AppendComment(text string) {
	f.lines = append(f.lines, line{kind: lineComment, raw: text})
}

// AppendBlank adds a blank line at the end of the file.
func (f *File) AppendBlank() {
	f.lines = append(f.lines, line{kind: lineBlank})
}

// ---------------------------------------------------------------------------
// Diff and merge
// ---------------------------------------------------------------------------

// Diff compares two stores and returns the keys present in a but not in b,
// and the keys present in b but not in a, each in document order.
func Diff(a, b *File) (missingInB, extraInB []string) {
	for _, k := range a.Keys() {
		if !b.Has(k) {
			missingInB = append(missingInB, k)
		}
	}
	for _, k := range b.Keys() {
		if !a.Has(k) {
			extraInB = append(extraInB, k)
		}
	}
	return missingInB, extraInB
}

// MergeMissing appends one entry per master key missing from f, with the
// value computed by valueFn(key). New entries land under a dated section
// comment; existing entries are never touched. Returns the number of keys
// added.
func (f *File) MergeMissing(masterKeys []string, valueFn func(string) string) int {
	var missing []string
	for _, k := range masterKeys {
		if !f.Has(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return 0
	}

	if len(f.lines) > 0 {
		f.AppendBlank()
	}
	f.AppendComment(fmt.Sprintf("/* Added by locsmith — %s */", time.Now().Format("2006-01-02")))
	for _, k := range missing {
		f.Append(k, valueFn(k))
	}
	return len(missing)
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal serializes the file back to .strings format. On a freshly parsed,
// unmodified file this is the identity transform.
func (f *File) Marshal() []byte {
	var buf bytes.Buffer
	for _, ln := range f.lines {
		switch ln.kind {
		case lineBlank:
			buf.WriteString(ln.raw)
			buf.WriteByte('\n')
		case lineComment:
			buf.WriteString(ln.raw)
			buf.WriteByte('\n')
		case lineEntry:
			if ln.raw != "" {
				// Unmodified entry: re-emit the source line verbatim so
				// escape spellings and indentation survive the round trip.
				buf.WriteString(ln.raw)
				buf.WriteByte('\n')
				continue
			}
			buf.WriteByte('"')
			buf.WriteString(escape(ln.key))
			buf.WriteString(`" = "`)
			buf.WriteString(escape(ln.value))
			buf.WriteString("\";\n")
		}
	}
	return buf.Bytes()
}

// WriteFile serializes and writes to path atomically (temp file + rename),
// creating parent directories with 0755 permissions. An existing file
// keeps its permission bits; a new file gets 0644. On failure the
// previous on-disk content is left untouched.
func (f *File) WriteFile(path string) error {
	data := f.Marshal()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("setting mode on %s: %w", tmpPath, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
