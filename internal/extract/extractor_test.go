package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dancherbu/physical-visual-tester/internal/ollama"
)

// fakeGenerator replays canned responses and records the prompts it saw.
type fakeGenerator struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
	models    []string
}

func (f *fakeGenerator) next() (string, error) {
	i := f.calls
	f.calls++
	var resp string
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return resp, err
}

func (f *fakeGenerator) Generate(ctx context.Context, model, prompt string, opts ollama.GenerateOptions) (string, error) {
	f.models = append(f.models, model)
	f.prompts = append(f.prompts, prompt)
	return f.next()
}

func (f *fakeGenerator) GenerateWithImage(ctx context.Context, model, prompt string, image []byte, opts ollama.GenerateOptions) (string, error) {
	f.models = append(f.models, model)
	f.prompts = append(f.prompts, prompt)
	return f.next()
}

func TestExtractStructured(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{
		"screen_summary": "Text editor with an open file",
		"elements": [
			{"label": "Save", "role": "button", "purpose": "Saves the file", "confidence": 0.9},
			{"label": "Edit", "role": "menu", "confidence": 0.7}
		]
	}`}}
	e := NewExtractor(gen, "moondream", 192, 20, nil)

	res := e.Extract(context.Background(), []byte{1})
	assert.Equal(t, "Text editor with an open file", res.ScreenSummary)
	require.Len(t, res.Elements, 2)
	assert.Equal(t, Element{
		Label: "Save", Role: RoleButton, Purpose: "Saves the file",
		Confidence: 0.9, Source: SourceVision,
	}, res.Elements[0])
	assert.Equal(t, RoleMenu, res.Elements[1].Role)
	assert.Equal(t, 1, gen.calls, "structured parse must not trigger fallbacks")
}

func TestExtractPromptCarriesMinimum(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{"elements": [{"label": "Save", "role": "button", "confidence": 0.9}]}`,
	}}
	e := NewExtractor(gen, "moondream", 192, 20, nil)

	e.Extract(context.Background(), []byte{1})
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "at least 20 elements")
}

func TestExtractLegacyItemsKeyAndSynonyms(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{
		"items": [
			{"text": "Open Folder", "type": "button", "description": "Opens a folder picker", "confidence": "0.8"}
		]
	}`}}
	e := NewExtractor(gen, "moondream", 192, 20, nil)

	res := e.Extract(context.Background(), []byte{1})
	require.Len(t, res.Elements, 1)
	el := res.Elements[0]
	assert.Equal(t, "Open Folder", el.Label)
	assert.Equal(t, RoleButton, el.Role)
	assert.Equal(t, "Opens a folder picker", el.Purpose)
	assert.Equal(t, 0.8, el.Confidence)
}

func TestExtractSalvagesLabelKeys(t *testing.T) {
	// Truncated JSON that will not decode, but still carries label keys.
	gen := &fakeGenerator{responses: []string{
		`{"elements": [{"label": "Save", "role": "butt`,
	}}
	e := NewExtractor(gen, "moondream", 192, 20, nil)

	res := e.Extract(context.Background(), []byte{1})
	require.Len(t, res.Elements, 1)
	assert.Equal(t, "Save", res.Elements[0].Label)
	assert.Equal(t, RoleOther, res.Elements[0].Role)
	assert.Equal(t, salvageConfidence, res.Elements[0].Confidence)
	assert.Equal(t, 1, gen.calls, "salvage must not call the model again")
}

func TestExtractFallsBackToLabelList(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"I see a user interface.", // no JSON, no label keys
		"Save File, Open Folder, Settings",
	}}
	e := NewExtractor(gen, "moondream", 192, 20, nil)

	res := e.Extract(context.Background(), []byte{1})
	require.Equal(t, 2, gen.calls)
	require.Len(t, res.Elements, 3)
	assert.Equal(t, "Save File", res.Elements[0].Label)
	assert.Equal(t, SourceFallbackText, res.Elements[0].Source)
	assert.Equal(t, salvageConfidence, res.Elements[0].Confidence)
}

func TestExtractPrimaryErrorStillRunsFallback(t *testing.T) {
	gen := &fakeGenerator{
		responses: []string{"", "Settings, Preferences"},
		errs:      []error{errors.New("connection refused"), nil},
	}
	e := NewExtractor(gen, "moondream", 192, 20, nil)

	res := e.Extract(context.Background(), []byte{1})
	require.Len(t, res.Elements, 2)
	assert.Equal(t, "Settings", res.Elements[0].Label)
}

func TestParseLabelList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "comma separated",
			in:   "Save File, Open Folder, Settings",
			want: []string{"Save File", "Open Folder", "Settings"},
		},
		{
			name: "newline separated",
			in:   "Save File\nOpen Folder\nSettings",
			want: []string{"Save File", "Open Folder", "Settings"},
		},
		{
			name: "numbered list on one line",
			in:   "1. Save File 2. Open Folder 3. Settings",
			want: []string{"Save File", "Open Folder", "Settings"},
		},
		{
			name: "json array",
			in:   `["Save File", "Open Folder"]`,
			want: []string{"Save File", "Open Folder"},
		},
		{
			// Stray symbols make every raw part fail sanitizing, so only
			// the quoted-string salvage recovers anything.
			name: "quoted strings salvage",
			in:   "~ \"Save File\" ~\n~ \"Open Folder\" ~",
			want: []string{"Save File", "Open Folder"},
		},
		{
			name: "short and numeric entries dropped",
			in:   "OK, 12345, Save File",
			want: []string{"Save File"},
		},
		{
			name: "nothing usable",
			in:   "??",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLabelList(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseLabelList mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"button", RoleButton},
		{" Button ", RoleButton},
		{"FOLDER", RoleFolder},
		{"checkbox", RoleOther},
		{"button | purpose", RoleOther},
		{"", RoleOther},
	}
	for _, tt := range tests {
		if got := NormalizeRole(tt.in); got != tt.want {
			t.Errorf("NormalizeRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
