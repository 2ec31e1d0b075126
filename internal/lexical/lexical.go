// Package lexical implements the BM25 inverted index over chunk text
// (spec.md §4.4), backed by Bleve.
package lexical

import (
	"context"
	"os"
	"regexp"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"

	pkmserr "github.com/t0bybr/pkms/internal/errors"
)

// Hit is one lexical search result.
type Hit struct {
	ChunkID    string
	DocID      string
	Score      float64
	Section    string
	ChunkIndex int
}

// Index wraps a Bleve index keyed by chunk_id, with a single analyzed
// "text" field. Safe for concurrent use.
type Index struct {
	mu   sync.RWMutex
	idx  bleve.Index
	path string
}

// bleveDoc is the document shape stored in Bleve; section and
// chunk_index are stored (not analyzed) so search hits can report them
// without a round trip to the chunk store.
type bleveDoc struct {
	Text       string `json:"text"`
	DocID      string `json:"doc_id"`
	Section    string `json:"section"`
	ChunkIndex int    `json:"chunk_index"`
}

// wikiLinkPattern matches [[target]] or [[target|display]].
var wikiLinkPattern = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)

// StripWikiLinks replaces wiki-link syntax with its display text before
// indexing, so link targets never become spuriously searchable terms
// (spec.md §4.4): [[target]] -> "", [[target|display]] -> "display".
func StripWikiLinks(text string) string {
	return wikiLinkPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := wikiLinkPattern.FindStringSubmatch(m)
		if sub[2] != "" {
			return sub[2]
		}
		return ""
	})
}

// Open creates or opens an index at path ("" for an in-memory index).
func Open(path string) (*Index, error) {
	m := bleve.NewIndexMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, pkmserr.Wrap(pkmserr.ErrCodeLexicalIndexCorrupt, err)
	}
	return &Index{idx: idx, path: path}, nil
}

// Upsert indexes or reindexes one chunk; idempotent by chunk_id
// (spec.md §4.4).
func (i *Index) Upsert(chunkID, docID, text, section string, chunkIndex int) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	doc := bleveDoc{
		Text:       StripWikiLinks(text),
		DocID:      docID,
		Section:    section,
		ChunkIndex: chunkIndex,
	}
	if err := i.idx.Index(chunkID, doc); err != nil {
		return pkmserr.Wrap(pkmserr.ErrCodeLexicalIndexCorrupt, err)
	}
	return nil
}

// UpsertBatch indexes many chunks in one writer commit.
func (i *Index) UpsertBatch(entries []UpsertEntry) error {
	if len(entries) == 0 {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.idx.NewBatch()
	for _, e := range entries {
		doc := bleveDoc{
			Text:       StripWikiLinks(e.Text),
			DocID:      e.DocID,
			Section:    e.Section,
			ChunkIndex: e.ChunkIndex,
		}
		if err := batch.Index(e.ChunkID, doc); err != nil {
			return pkmserr.Wrap(pkmserr.ErrCodeLexicalIndexCorrupt, err)
		}
	}
	if err := i.idx.Batch(batch); err != nil {
		return pkmserr.Wrap(pkmserr.ErrCodeLexicalIndexCorrupt, err)
	}
	return nil
}

// UpsertEntry is one chunk destined for UpsertBatch.
type UpsertEntry struct {
	ChunkID    string
	DocID      string
	Text       string
	Section    string
	ChunkIndex int
}

// ExistingChunkIDs returns every chunk_id currently present in the
// index, for incremental-update diffing (spec.md §4.4).
func (i *Index) ExistingChunkIDs(ctx context.Context) (map[string]struct{}, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	count, err := i.idx.DocCount()
	if err != nil {
		return nil, pkmserr.Wrap(pkmserr.ErrCodeLexicalIndexCorrupt, err)
	}
	if count == 0 {
		return map[string]struct{}{}, nil
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	req.Fields = nil

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, pkmserr.Wrap(pkmserr.ErrCodeLexicalIndexCorrupt, err)
	}

	ids := make(map[string]struct{}, len(res.Hits))
	for _, hit := range res.Hits {
		ids[hit.ID] = struct{}{}
	}
	return ids, nil
}

// Search runs a BM25 match query over the "text" field, ordered list of
// Hit (spec.md §4.4).
func (i *Index) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	q := bleve.NewMatchQuery(query)
	q.SetField("text")

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"doc_id", "section", "chunk_index"}

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, pkmserr.Wrap(pkmserr.ErrCodeLexicalIndexCorrupt, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{
			ChunkID:    h.ID,
			DocID:      fieldString(h.Fields["doc_id"]),
			Score:      h.Score,
			Section:    fieldString(h.Fields["section"]),
			ChunkIndex: fieldInt(h.Fields["chunk_index"]),
		})
	}
	return hits, nil
}

func fieldString(v any) string {
	s, _ := v.(string)
	return s
}

func fieldInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}

// Close releases index resources.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.idx.Close()
}

// RebuildFrom performs a full rebuild from entries, swapping in a fresh
// index; concurrent readers may observe the old index until the swap
// (spec.md §4.4). entries lists (chunk_id, doc_id, text, section,
// chunk_index) for every chunk in the corpus.
func (i *Index) RebuildFrom(entries []UpsertEntry) error {
	m := bleve.NewIndexMapping()
	var fresh bleve.Index
	var err error

	if i.path == "" {
		fresh, err = bleve.NewMemOnly(m)
	} else {
		tmpPath := i.path + ".rebuild"
		os.RemoveAll(tmpPath)
		fresh, err = bleve.New(tmpPath, m)
	}
	if err != nil {
		return pkmserr.Wrap(pkmserr.ErrCodeLexicalIndexCorrupt, err)
	}

	batch := fresh.NewBatch()
	for _, e := range entries {
		doc := bleveDoc{
			Text:       StripWikiLinks(e.Text),
			DocID:      e.DocID,
			Section:    e.Section,
			ChunkIndex: e.ChunkIndex,
		}
		if err := batch.Index(e.ChunkID, doc); err != nil {
			fresh.Close()
			return pkmserr.Wrap(pkmserr.ErrCodeLexicalIndexCorrupt, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		fresh.Close()
		return pkmserr.Wrap(pkmserr.ErrCodeLexicalIndexCorrupt, err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	old := i.idx
	oldPath := i.path
	i.idx = fresh

	old.Close()
	if oldPath != "" {
		os.RemoveAll(oldPath)
		os.Rename(oldPath+".rebuild", oldPath)
		reopened, reopenErr := bleve.Open(oldPath)
		if reopenErr == nil {
			i.idx.Close()
			i.idx = reopened
		}
	}
	return nil
}
