package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile_NoFrontmatter(t *testing.T) {
	doc, body, err := ParseFile([]byte("just a body, no fences"))
	require.NoError(t, err)
	assert.Equal(t, "just a body, no fences", body)
	assert.Empty(t, doc.Title)
}

func TestParseFile_BasicFields(t *testing.T) {
	content := []byte(`---
title: My Note
tags: [a, b]
aliases: [Other Name]
date_created: 2024-01-01
date_updated: 2024-06-15
---

Body text here.`)
	doc, body, err := ParseFile(content)
	require.NoError(t, err)
	assert.Equal(t, "My Note", doc.Title)
	assert.Equal(t, []string{"a", "b"}, doc.Tags)
	assert.Equal(t, []string{"Other Name"}, doc.Aliases)
	assert.Equal(t, "Body text here.", body)
	assert.Equal(t, 2024, doc.Created.Year())
	assert.Equal(t, 2024, doc.Updated.Year())
}

func TestParseFile_RejectsIDInFrontmatter(t *testing.T) {
	content := []byte(`---
id: 01ARZ3NDEKTSV4RRFFQ69G5FAV
title: x
---

body`)
	_, _, err := ParseFile(content)
	assert.Error(t, err)
}

func TestParseFile_RejectsInvalidUTF8(t *testing.T) {
	_, _, err := ParseFile([]byte{0xff, 0xfe, 0x00})
	assert.Error(t, err)
}

func TestParseFile_UnterminatedFrontmatterFence(t *testing.T) {
	_, _, err := ParseFile([]byte("---\ntitle: x\n"))
	assert.Error(t, err)
}

func TestParseFile_PreservesUnknownKeysInExtra(t *testing.T) {
	content := []byte(`---
title: x
custom_field: hello
---

body`)
	doc, _, err := ParseFile(content)
	require.NoError(t, err)
	require.Contains(t, doc.Extra, "custom_field")
	assert.Equal(t, "hello", doc.Extra["custom_field"])
}

func TestRenderParseRoundTrip(t *testing.T) {
	original := &Document{
		Title:   "Round Trip",
		Tags:    []string{"x", "y"},
		Aliases: []string{"alt"},
		Body:    "some body content\n",
		Extra:   map[string]any{"custom": "value"},
	}
	original.Created = mustParseDate(t, "2024-03-01")
	original.Updated = mustParseDate(t, "2024-03-02")

	rendered, err := Render(original)
	require.NoError(t, err)

	parsed, body, err := ParseFile(rendered)
	require.NoError(t, err)
	assert.Equal(t, original.Title, parsed.Title)
	assert.Equal(t, original.Tags, parsed.Tags)
	assert.Equal(t, original.Aliases, parsed.Aliases)
	assert.Equal(t, "some body content", body)
	assert.Equal(t, "value", parsed.Extra["custom"])
}

func TestRender_NeverWritesID(t *testing.T) {
	doc := &Document{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Title: "x"}
	out, err := Render(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "id:")
}

func mustParseDate(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := parseDate(s)
	require.NoError(t, err)
	return parsed
}
