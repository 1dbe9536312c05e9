package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveVisionPipeTriplets(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"Save File | button | Saves the current file\n" +
			"Edit | menu | Opens the edit menu\n" +
			"not a triplet line",
	}}
	r := NewResolver(gen, "moondream", "llama3.2:3b", 192, nil)

	items := r.Resolve(context.Background(), []byte{1}, []string{"Save File", "Edit"})
	require.Len(t, items, 2)
	assert.Equal(t, Element{
		Label: "Save File", Role: RoleButton, Purpose: "Saves the current file",
		Confidence: visionTripletConfidence, Source: SourceOCR,
	}, items[0])
	assert.Equal(t, 1, gen.calls, "vision success must not hit the text model")
}

func TestResolveStructuredItemsResponse(t *testing.T) {
	// Some models answer the triplet prompt with JSON anyway.
	gen := &fakeGenerator{responses: []string{
		`{"items": [{"label": "Save", "role": "button", "purpose": "Saves", "confidence": 0.9}]}`,
	}}
	r := NewResolver(gen, "moondream", "llama3.2:3b", 192, nil)

	items := r.Resolve(context.Background(), []byte{1}, []string{"Save"})
	require.Len(t, items, 1)
	assert.Equal(t, "Save", items[0].Label)
	assert.Equal(t, RoleButton, items[0].Role)
}

func TestResolveTextModelFallback(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"I cannot help with that.", // vision yields nothing parseable
		"Save File | button | Saves the file",
	}}
	r := NewResolver(gen, "moondream", "llama3.2:3b", 192, nil)

	items := r.Resolve(context.Background(), []byte{1}, []string{"Save File"})
	require.Equal(t, 2, gen.calls)
	require.Len(t, items, 1)
	assert.Equal(t, textTripletConfidence, items[0].Confidence)
	assert.Equal(t, "llama3.2:3b", gen.models[1])
}

func TestResolveTripleArrayFallback(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"no pipes here",
		`Here you go: ["Save File", "button", "Saves the file"] ["Edit", "menu", "Edit menu"]`,
	}}
	r := NewResolver(gen, "moondream", "llama3.2:3b", 192, nil)

	items := r.Resolve(context.Background(), []byte{1}, []string{"Save File", "Edit"})
	require.Len(t, items, 2)
	assert.Equal(t, "Save File", items[0].Label)
	assert.Equal(t, RoleButton, items[0].Role)
	assert.Equal(t, RoleMenu, items[1].Role)
}

func TestResolveQuotedTripletFallback(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"nothing",
		"\"Save File\" \"button\" \"Saves the file\"\n\"orphan\" \"pair\"",
	}}
	r := NewResolver(gen, "moondream", "llama3.2:3b", 192, nil)

	items := r.Resolve(context.Background(), []byte{1}, []string{"Save File"})
	require.Len(t, items, 1)
	assert.Equal(t, "Save File", items[0].Label)
	assert.Equal(t, "Saves the file", items[0].Purpose)
}

func TestResolveNoTextModel(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"nothing parseable"}}
	r := NewResolver(gen, "moondream", "", 192, nil)

	items := r.Resolve(context.Background(), []byte{1}, []string{"Save File"})
	assert.Empty(t, items)
	assert.Equal(t, 1, gen.calls, "empty text model disables the fallback tier")
}

func TestResolveEmptyLabels(t *testing.T) {
	gen := &fakeGenerator{}
	r := NewResolver(gen, "moondream", "llama3.2:3b", 192, nil)

	assert.Nil(t, r.Resolve(context.Background(), []byte{1}, nil))
	assert.Zero(t, gen.calls)
}

func TestResolveExtraPipesFoldIntoPurpose(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"Save | button | writes to disk | overwrites silently",
	}}
	r := NewResolver(gen, "moondream", "", 192, nil)

	items := r.Resolve(context.Background(), []byte{1}, []string{"Save"})
	require.Len(t, items, 1)
	assert.Equal(t, "writes to disk | overwrites silently", items[0].Purpose)
}

func TestResolveInvalidRoleCoerced(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"Save | clicky-thing | does something",
	}}
	r := NewResolver(gen, "moondream", "", 192, nil)

	items := r.Resolve(context.Background(), []byte{1}, []string{"Save"})
	require.Len(t, items, 1)
	assert.Equal(t, RoleOther, items[0].Role)
}

func TestResolveVisionErrorFallsThrough(t *testing.T) {
	gen := &fakeGenerator{
		responses: []string{"", "Save | button | Saves"},
		errs:      []error{errors.New("timeout"), nil},
	}
	r := NewResolver(gen, "moondream", "llama3.2:3b", 192, nil)

	items := r.Resolve(context.Background(), []byte{1}, []string{"Save"})
	require.Len(t, items, 1)
	assert.Equal(t, textTripletConfidence, items[0].Confidence)
}
