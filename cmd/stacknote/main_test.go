package main

import (
	"reflect"
	"testing"
)

func TestRewriteOpenShortcutArgs(t *testing.T) {
	t.Parallel()

	commands := map[string]bool{"open": true, "state": true, "docs": true}
	isCommand := func(s string) bool { return commands[s] }
	paths := map[string]bool{"notes.md": true, "src": true, "docs": true}
	exists := func(s string) bool { return paths[s] }

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"stacknote"},
			want: []string{"stacknote"},
		},
		{
			name: "path first token",
			in:   []string{"stacknote", "notes.md", "src"},
			want: []string{"stacknote", "open", "notes.md", "src"},
		},
		{
			name: "path after value flag",
			in:   []string{"stacknote", "--state-dir", "./tmp", "notes.md"},
			want: []string{"stacknote", "--state-dir", "./tmp", "open", "notes.md"},
		},
		{
			name: "path after equals flag",
			in:   []string{"stacknote", "--format=text", "notes.md"},
			want: []string{"stacknote", "--format=text", "open", "notes.md"},
		},
		{
			name: "path after bool flag",
			in:   []string{"stacknote", "--pretty", "notes.md"},
			want: []string{"stacknote", "--pretty", "open", "notes.md"},
		},
		{
			name: "subcommand wins over same-named path",
			in:   []string{"stacknote", "docs", "keys"},
			want: []string{"stacknote", "docs", "keys"},
		},
		{
			name: "unknown token left for cobra to reject",
			in:   []string{"stacknote", "missing.md"},
			want: []string{"stacknote", "missing.md"},
		},
		{
			name: "double dash",
			in:   []string{"stacknote", "--", "notes.md"},
			want: []string{"stacknote", "open", "--", "notes.md"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteOpenShortcutArgs(append([]string{}, tt.in...), isCommand, exists)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteOpenShortcutArgs(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
