package sanitize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Save File", "Save File"},
		{"collapse whitespace", "Save \t  File", "Save File"},
		{"curly quotes", "“Don’t Save”", `"Don't Save"`},
		{"strip brackets", "[Save]", "Save"},
		{"strip pipes and bullets", "| Save •", "Save"},
		{"trim", "  Save  ", "Save"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestKeep(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  bool
	}{
		{"normal label", "Save File", true},
		{"too short", "Sav", false},
		{"no letters", "12:34", false},
		{"pure numeric", "3.14159", false},
		{"mojibake marker", "Sâve File", false},
		{"replacement char", "Save�File", false},
		{"digit heavy", "a1234567", false},
		{"symbol heavy", "S@#$%ave!!", false},
		{"stray tilde", "Save~File", false},
		{"stray caret", "Save^File", false},
		{"backtick", "Save`File", false},
		{"quoted survives trim", `"Save File"`, true},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Keep(tt.label); got != tt.want {
				t.Errorf("Keep(%q) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}

func TestClean(t *testing.T) {
	raw := []string{
		"  Save   File ",
		"[Open]",
		"save file", // case-insensitive duplicate of the first
		"ab",        // too short
		"12345",     // numeric
		"Settings",
	}
	want := []string{"Save File", "Open", "Settings"}
	got := Clean(raw)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Clean mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanFirstOccurrenceWins(t *testing.T) {
	got := Clean([]string{"Cancel", "CANCEL", "cancel"})
	want := []string{"Cancel"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dedupe mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanIdempotent(t *testing.T) {
	raw := []string{
		" [Save File] ",
		"“Options”",
		`"[Open]"`,       // quotes wrapping brackets
		`[ "Menu Bar" ]`, // brackets wrapping quotes
		"Open Folder",
		"x1y2z3w4",
	}
	once := Clean(raw)
	twice := Clean(once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("Clean is not idempotent (-once +twice):\n%s", diff)
	}
}

func TestCleanUnwrapsLayeredWrapping(t *testing.T) {
	got := Clean([]string{`"[Open]"`, `[ "Menu Bar" ]`})
	want := []string{"Open", "Menu Bar"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Clean mismatch (-want +got):\n%s", diff)
	}
}
