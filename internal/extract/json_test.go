package extract

import "testing"

func TestJSONSpan(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "clean object",
			in:   `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "object with prose",
			in:   `Sure! Here is the JSON: {"a": 1} Hope that helps.`,
			want: `{"a": 1}`,
		},
		{
			name: "code fence",
			in:   "```json\n{\"a\": 1}\n```",
			want: "{\"a\": 1}",
		},
		{
			name: "bare array",
			in:   `The labels are ["Save", "Open"] as requested.`,
			want: `["Save", "Open"]`,
		},
		{
			name: "array before object",
			in:   `[{"label": "Save"}]`,
			want: `[{"label": "Save"}]`,
		},
		{
			name: "no json at all",
			in:   "I cannot see any elements.",
			want: "{}",
		},
		{
			name: "unterminated object",
			in:   `{"a": 1`,
			want: `{"a": 1`,
		},
		{
			name: "nested braces cut at last closer",
			in:   `{"a": {"b": 2}} trailing`,
			want: `{"a": {"b": 2}}`,
		},
		{
			name: "empty",
			in:   "",
			want: "{}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JSONSpan(tt.in); got != tt.want {
				t.Errorf("JSONSpan(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
