package stringsfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleStrings = `/*
  Localizable.strings
  App UI strings
*/

// General
"Save" = "保存";
"Cancel" = "取消";

"Copy to Clipboard" = "复制到剪贴板";
`

func TestParseBasic(t *testing.T) {
	f, warns := Parse([]byte(sampleStrings))
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	if f.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", f.Len())
	}

	tests := []struct {
		key, value string
	}{
		{"Save", "保存"},
		{"Cancel", "取消"},
		{"Copy to Clipboard", "复制到剪贴板"},
	}
	for _, tt := range tests {
		v, ok := f.Get(tt.key)
		if !ok {
			t.Errorf("Get(%q): not found", tt.key)
			continue
		}
		if v != tt.value {
			t.Errorf("Get(%q) = %q, want %q", tt.key, v, tt.value)
		}
	}

	wantKeys := []string{"Save", "Cancel", "Copy to Clipboard"}
	got := f.Keys()
	if len(got) != len(wantKeys) {
		t.Fatalf("Keys() = %v, want %v", got, wantKeys)
	}
	for i := range wantKeys {
		if got[i] != wantKeys[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], wantKeys[i])
		}
	}
}

func TestRoundTripIdentity(t *testing.T) {
	// serialize(parse(text)) must reproduce well-formed input byte for byte,
	// comments and blank lines included.
	inputs := []string{
		sampleStrings,
		"",
		"// only a comment\n",
		"\"a\" = \"b\";\n",
		"/* block\n   spanning\n   lines */\n\"k\" = \"v\";\n",
		"\"quote \\\"inside\\\"\" = \"line\\nbreak\";\n",
		// Escape spellings we do not decode and whitespace quirks
		// must survive untouched too.
		"\"emoji\" = \"\\U0001F600\";\n",
		"\"octal\" = \"\\101\";\n",
		"    \"Save\" = \"Save\";\n",
		"\"k\"   =   \"v\"  ;\n",
	}
	for _, in := range inputs {
		f, _ := Parse([]byte(in))
		out := string(f.Marshal())
		if out != in {
			t.Errorf("round trip changed content:\n in: %q\nout: %q", in, out)
		}
	}
}

// Editing an entry gives up its source spelling: the changed line is
// re-synthesized canonically while untouched neighbours stay verbatim.
func TestSetSynthesizesChangedLineOnly(t *testing.T) {
	in := "    \"emoji\" = \"\\U0001F600\";\n    \"Save\" = \"Save\";\n"
	f, _ := Parse([]byte(in))
	if !f.Set("Save", "保存") {
		t.Fatal("Set returned false for existing key")
	}

	want := "    \"emoji\" = \"\\U0001F600\";\n\"Save\" = \"保存\";\n"
	if got := string(f.Marshal()); got != want {
		t.Errorf("Marshal after Set:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestParseEscapes(t *testing.T) {
	tests := []struct {
		line       string
		key, value string
	}{
		{`"He said \"hi\"" = "ok";`, `He said "hi"`, "ok"},
		{`"tab" = "a\tb";`, "tab", "a\tb"},
		{`"nl" = "a\nb";`, "nl", "a\nb"},
		{`"back" = "a\\b";`, "back", `a\b`},
	}
	for _, tt := range tests {
		f, warns := Parse([]byte(tt.line + "\n"))
		if len(warns) != 0 {
			t.Errorf("%q: unexpected warnings %v", tt.line, warns)
			continue
		}
		v, ok := f.Get(tt.key)
		if !ok {
			t.Errorf("%q: key %q not found", tt.line, tt.key)
			continue
		}
		if v != tt.value {
			t.Errorf("%q: value = %q, want %q", tt.line, v, tt.value)
		}
	}
}

func TestParseMalformedLineWarnsAndSurvives(t *testing.T) {
	in := "\"good\" = \"ok\";\n\"broken = nope\n\"also good\" = \"yes\";\n"
	f, warns := Parse([]byte(in))

	if len(warns) != 1 {
		t.Fatalf("warnings = %d, want 1 (%v)", len(warns), warns)
	}
	if warns[0].Line != 2 {
		t.Errorf("warning line = %d, want 2", warns[0].Line)
	}
	if f.Len() != 2 {
		t.Errorf("Len() = %d, want 2", f.Len())
	}

	// The malformed line is preserved verbatim in the output.
	out := string(f.Marshal())
	if out != in {
		t.Errorf("malformed line did not round-trip:\n in: %q\nout: %q", in, out)
	}
}

func TestParseDuplicateKeyFirstWins(t *testing.T) {
	in := "\"k\" = \"first\";\n\"k\" = \"second\";\n"
	f, warns := Parse([]byte(in))

	if len(warns) != 1 {
		t.Fatalf("warnings = %d, want 1", len(warns))
	}
	if !strings.Contains(warns[0].Reason, "duplicate key") {
		t.Errorf("warning reason = %q, want duplicate key", warns[0].Reason)
	}
	v, _ := f.Get("k")
	if v != "first" {
		t.Errorf("Get(k) = %q, want first occurrence", v)
	}
}

func TestSetAndAppend(t *testing.T) {
	f, _ := Parse([]byte("\"a\" = \"1\";\n"))

	if !f.Set("a", "2") {
		t.Fatal("Set on existing key returned false")
	}
	if v, _ := f.Get("a"); v != "2" {
		t.Errorf("Get(a) = %q after Set, want 2", v)
	}
	if f.Set("missing", "x") {
		t.Error("Set on missing key returned true")
	}

	if !f.Append("b", "3") {
		t.Fatal("Append of new key returned false")
	}
	if f.Append("a", "dup") {
		t.Error("Append of existing key returned true")
	}
	if f.Len() != 2 {
		t.Errorf("Len() = %d, want 2", f.Len())
	}
}

func TestDiff(t *testing.T) {
	a, _ := Parse([]byte("\"one\" = \"1\";\n\"two\" = \"2\";\n\"three\" = \"3\";\n"))
	b, _ := Parse([]byte("\"two\" = \"2\";\n\"four\" = \"4\";\n"))

	missing, extra := Diff(a, b)
	if len(missing) != 2 || missing[0] != "one" || missing[1] != "three" {
		t.Errorf("missingInB = %v, want [one three]", missing)
	}
	if len(extra) != 1 || extra[0] != "four" {
		t.Errorf("extraInB = %v, want [four]", extra)
	}
}

func TestMergeMissing(t *testing.T) {
	f, _ := Parse([]byte("\"Save\" = \"保存\";\n"))

	added := f.MergeMissing([]string{"Save", "Cancel", "Done"}, func(k string) string {
		return "[x] " + k
	})
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}

	// New entries land under a dated section comment, existing entries
	// stay untouched.
	out := string(f.Marshal())
	if !strings.Contains(out, "/* Added by locsmith") {
		t.Errorf("output missing section comment:\n%s", out)
	}
	if v, _ := f.Get("Save"); v != "保存" {
		t.Errorf("existing entry changed: %q", v)
	}
	if v, _ := f.Get("Cancel"); v != "[x] Cancel" {
		t.Errorf("Get(Cancel) = %q", v)
	}

	// Idempotent: a second merge with the same master adds nothing.
	if again := f.MergeMissing([]string{"Save", "Cancel", "Done"}, func(k string) string { return k }); again != 0 {
		t.Errorf("second merge added %d, want 0", again)
	}
}

func TestWriteFileAndParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "en.lproj", "Localizable.strings")

	f := New()
	f.AppendComment("// test store")
	f.Append("Hello", "你好")

	if err := f.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, warns, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	if v, _ := got.Get("Hello"); v != "你好" {
		t.Errorf("Get(Hello) = %q", v)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestWriteFileKeepsPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Localizable.strings")

	f := New()
	f.Append("Hello", "你好")
	if err := f.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		t.Fatalf("Chmod: %v", err)
	}

	f.Set("Hello", "您好")
	if err := f.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if got := info.Mode().Perm(); got != 0600 {
		t.Errorf("mode after rewrite = %o, want 0600", got)
	}
}

func TestParseFileMissing(t *testing.T) {
	_, _, err := ParseFile(filepath.Join(t.TempDir(), "nope.strings"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCRLFNormalized(t *testing.T) {
	f, warns := Parse([]byte("\"a\" = \"1\";\r\n\"b\" = \"2\";\r\n"))
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	if f.Len() != 2 {
		t.Errorf("Len() = %d, want 2", f.Len())
	}
}
