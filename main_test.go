package main

import "testing"

func TestPreviewKeys(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want string
	}{
		{
			name: "short list verbatim",
			keys: []string{"Save", "Cancel"},
			want: "Save, Cancel",
		},
		{
			name: "long list truncated",
			keys: []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7"},
			want: "k1, k2, k3, k4, k5, … (2 more)",
		},
	}

	for _, tc := range tests {
		if got := previewKeys(tc.keys); got != tc.want {
			t.Fatalf("%s: previewKeys() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	want := []string{"status", "scan", "rewrite", "sync", "rollback", "cleanup", "watch", "version"}
	have := make(map[string]bool)
	for _, c := range root.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("command %q not registered", name)
		}
	}

	if f := root.PersistentFlags().Lookup("root"); f == nil {
		t.Error("persistent --root flag not registered")
	}
	for _, c := range root.Commands() {
		if c.Name() == "rewrite" {
			if f := c.Flags().Lookup("apply"); f == nil {
				t.Error("rewrite --apply flag not registered")
			}
		}
	}
}
