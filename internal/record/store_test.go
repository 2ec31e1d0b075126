package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	doc := &Document{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Title: "hello"}
	require.NoError(t, s.Save(doc))

	got, err := s.Load(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, doc.ID, got.ID)
}

func TestStore_LoadAll_SkipsFailedRecords(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	require.NoError(t, s.Save(&Document{ID: "good1", Title: "a"}))
	require.NoError(t, s.Save(&Document{ID: "good2", Title: "b"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))

	docs, failed, err := s.LoadAll()
	require.NoError(t, err)
	assert.Contains(t, failed, "bad")
	assert.Len(t, docs, 2)
}

func TestStore_LoadAll_MissingDirReturnsNilWithoutError(t *testing.T) {
	s := NewStore(t.TempDir() + "/does-not-exist")
	docs, failed, err := s.LoadAll()
	require.NoError(t, err)
	assert.Nil(t, docs)
	assert.Nil(t, failed)
}

func TestMergeTagProposal_UnionsTagsAndCategory(t *testing.T) {
	doc := &Document{Tags: []string{"existing"}}
	MergeTagProposal(doc, TagProposal{Tags: []string{"existing", "new"}, Category: "topic-x"})

	assert.ElementsMatch(t, []string{"existing", "new"}, doc.Tags)
	assert.Contains(t, doc.Categories, "topic-x")
}

func TestMergeTagProposal_IsIdempotent(t *testing.T) {
	doc := &Document{}
	proposal := TagProposal{Tags: []string{"a", "b"}, Category: "cat"}
	MergeTagProposal(doc, proposal)
	first := append([]string(nil), doc.Tags...)
	MergeTagProposal(doc, proposal)
	assert.Equal(t, first, doc.Tags)
}

func TestConsolidate_MarksLoserArchived(t *testing.T) {
	loser := &Document{ID: "loser-id"}
	Consolidate(loser, "winner-id")
	assert.Equal(t, "winner-id", loser.Status.ConsolidatedInto)
	assert.True(t, loser.Status.Archived)
}

func TestDocument_ValidRejectsCreatedAfterUpdated(t *testing.T) {
	doc := &Document{}
	doc.Created = mustParseDate(t, "2024-06-01")
	doc.Updated = mustParseDate(t, "2024-01-01")
	assert.Error(t, doc.Valid())
}

func TestDocument_ValidAcceptsEqualDates(t *testing.T) {
	doc := &Document{}
	ts := mustParseDate(t, "2024-01-01")
	doc.Created = ts
	doc.Updated = ts
	assert.NoError(t, doc.Valid())
}
