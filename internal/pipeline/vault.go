// Package pipeline wires the core components (chunker, stores, indexes,
// search engine, relevance scorer, link graph) into the end-to-end
// vault → record → chunk → embed → index → search flow described in
// spec.md §6, grounded on the teacher's cmd/amanmcp indexing pipeline
// and internal/index package.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/t0bybr/pkms/internal/chunk"
	"github.com/t0bybr/pkms/internal/config"
	"github.com/t0bybr/pkms/internal/embed"
	pkmserr "github.com/t0bybr/pkms/internal/errors"
	"github.com/t0bybr/pkms/internal/hashing"
	"github.com/t0bybr/pkms/internal/ids"
	"github.com/t0bybr/pkms/internal/lexical"
	"github.com/t0bybr/pkms/internal/linkgraph"
	"github.com/t0bybr/pkms/internal/locking"
	"github.com/t0bybr/pkms/internal/record"
	"github.com/t0bybr/pkms/internal/relevance"
	"github.com/t0bybr/pkms/internal/search"
	"github.com/t0bybr/pkms/internal/store"
	"github.com/t0bybr/pkms/internal/vector"
)

// Vault bundles every persisted component rooted at one project
// directory and provides the pipeline operations the CLI verbs invoke.
type Vault struct {
	Root string
	Cfg  config.Config

	Records *record.Store
	Chunks  *store.ChunkStore
	Embeds  *store.EmbedStore
	Lexical *lexical.Index

	Embedder embed.Embedder
	vector   *vector.Index

	log *slog.Logger
}

// Open resolves cfg's paths relative to root and opens every store. The
// lexical index is persisted under cfg.Paths.Index; the vector index is
// rebuilt in memory from the embedding store on demand (spec.md §1
// Non-goal: no ANN, so there is nothing to persist but the raw vectors).
func Open(root string, cfg config.Config, embedder embed.Embedder, logger *slog.Logger) (*Vault, error) {
	if logger == nil {
		logger = slog.Default()
	}

	lex, err := lexical.Open(filepath.Join(root, cfg.Paths.Index, "lexical.bleve"))
	if err != nil {
		return nil, err
	}

	return &Vault{
		Root:     root,
		Cfg:      cfg,
		Records:  record.NewStore(filepath.Join(root, cfg.Paths.Metadata)),
		Chunks:   store.NewChunkStore(filepath.Join(root, cfg.Paths.Chunks)),
		Embeds:   store.NewEmbedStore(filepath.Join(root, cfg.Paths.Embeddings)),
		Lexical:  lex,
		Embedder: embedder,
		log:      logger,
	}, nil
}

// Close releases any open handles.
func (v *Vault) Close() error {
	return v.Lexical.Close()
}

// vaultDir is the directory WalkMarkdown walks for markdown files.
func (v *Vault) vaultDir() string {
	return filepath.Join(v.Root, v.Cfg.Paths.Vault)
}

// IngestFile parses, chunks and persists one markdown file, assigning a
// new ULID if the filename does not already carry one (spec.md §3's
// create lifecycle). It acquires the document's write lock so the
// single-writer-per-document invariant holds (spec.md §5).
func (v *Vault) IngestFile(path string) (*record.Document, []chunk.Chunk, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, pkmserr.Wrap(pkmserr.ErrCodeChunkStoreRead, err)
	}

	name := filepath.Base(path)
	slug, ulidStr, ext, ok := ids.ParseFilename(name)
	isNew := false
	if !ok {
		if strings.Contains(strings.TrimSuffix(name, filepath.Ext(name)), "--") {
			return nil, nil, pkmserr.New(pkmserr.ErrCodeULIDInvalid, "filename ulid is malformed", nil).WithDoc(name)
		}
		slug = ids.Slugify(strings.TrimSuffix(name, filepath.Ext(name)))
		ulidStr = ids.NewULID(time.Now())
		ext = strings.TrimPrefix(filepath.Ext(name), ".")
		isNew = true
	}
	if !ids.IsValidULID(ulidStr) {
		return nil, nil, pkmserr.New(pkmserr.ErrCodeULIDInvalid, "filename ulid is malformed", nil).WithDoc(name)
	}

	lock := locking.NewDocLock(filepath.Join(v.Root, v.Cfg.Paths.Metadata), ulidStr)
	if err := lock.Lock(); err != nil {
		return nil, nil, err
	}
	defer lock.Unlock()

	doc, body, err := record.ParseFile(content)
	if err != nil {
		return nil, nil, err
	}
	doc.ID = ulidStr
	doc.Slug = slug
	doc.Ext = ext
	doc.FileHash = hashFile(content)
	doc.ContentHash = hashFile([]byte(body))

	now := time.Now().UTC()
	if isNew || doc.Created.IsZero() {
		doc.Created = now
	}
	doc.Updated = now

	chunks, err := chunk.New(chunk.Options{
		MaxTokens:      v.Cfg.Chunking.ChunkSize,
		MinChunkTokens: v.Cfg.Chunking.MinChunkTokens,
	}).Chunk(doc.ID, body, doc.Language)
	if err != nil {
		return nil, nil, err
	}

	if err := v.Chunks.Write(doc.ID, chunks); err != nil {
		return nil, nil, err
	}

	entries := make([]lexical.UpsertEntry, 0, len(chunks))
	for _, c := range chunks {
		entries = append(entries, lexical.UpsertEntry{
			ChunkID:    c.ID(),
			DocID:      c.DocID,
			Text:       lexical.StripWikiLinks(c.Text),
			Section:    c.Section,
			ChunkIndex: c.ChunkIndex,
		})
	}
	if err := v.Lexical.UpsertBatch(entries); err != nil {
		return nil, nil, err
	}

	if err := v.Records.Save(doc); err != nil {
		return nil, nil, err
	}

	return doc, chunks, nil
}

func hashFile(b []byte) string {
	return hashing.SHA256Hex(b)
}

// EmbedDocument embeds every chunk of docID whose chunk_hash has no
// stored vector yet, per the embedding model currently configured
// (spec.md §4.3: content-addressed, so re-embedding is idempotent).
func (v *Vault) EmbedDocument(ctx context.Context, docID string) (int, error) {
	if v.Embedder == nil {
		return 0, pkmserr.New(pkmserr.ErrCodeEmbedProviderDown, "no embedding provider configured", nil).WithDoc(docID)
	}

	chunks, err := v.Chunks.Read(docID)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	model := v.Embedder.ModelName()
	hashes := make([]string, len(chunks))
	for i, c := range chunks {
		hashes[i] = c.ChunkHash
	}
	missing := v.Embeds.MissingHashes(model, hashes)
	if len(missing) == 0 {
		return 0, nil
	}

	missingSet := make(map[string]struct{}, len(missing))
	for _, h := range missing {
		missingSet[h] = struct{}{}
	}

	texts := make([]string, 0, len(missing))
	order := make([]string, 0, len(missing))
	for _, c := range chunks {
		if _, ok := missingSet[c.ChunkHash]; ok {
			texts = append(texts, c.Text)
			order = append(order, c.ChunkHash)
		}
	}

	vecs, err := v.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, pkmserr.Wrap(pkmserr.ErrCodeEmbedProviderDown, err)
	}

	written := 0
	for i, vec := range vecs {
		if len(vec) == 0 {
			continue
		}
		if err := v.Embeds.Write(model, order[i], vec); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// RebuildLexical rebuilds the BM25 index from every chunk on disk,
// replacing prior content. Per-document chunk-store read failures are
// skipped rather than aborting the rebuild (spec.md §7).
func (v *Vault) RebuildLexical() (failed map[string]error, err error) {
	chunks, failed, err := v.Chunks.IterAll()
	if err != nil {
		return nil, err
	}

	entries := make([]lexical.UpsertEntry, 0, len(chunks))
	for _, c := range chunks {
		entries = append(entries, lexical.UpsertEntry{
			ChunkID:    c.ID(),
			DocID:      c.DocID,
			Text:       lexical.StripWikiLinks(c.Text),
			Section:    c.Section,
			ChunkIndex: c.ChunkIndex,
		})
	}
	if err := v.Lexical.RebuildFrom(entries); err != nil {
		return failed, err
	}
	return failed, nil
}

// RebuildVector reloads every stored embedding for the embedder's
// current model into a fresh flat vector index.
func (v *Vault) RebuildVector() error {
	if v.Embedder == nil {
		v.vector = nil
		return nil
	}
	hashes, vecs, err := v.Embeds.LoadAllNormalized(v.Embedder.ModelName())
	if err != nil {
		return err
	}
	if len(hashes) == 0 {
		v.vector = nil
		return nil
	}

	chunkIDByHash, err := v.buildChunkIDIndex()
	if err != nil {
		return err
	}

	idx, err := vector.Build(hashes, vecs, chunkIDByHash)
	if err != nil {
		return err
	}
	v.vector = idx
	return nil
}

// buildChunkIDIndex maps every chunk_hash on disk to its full chunk_id.
func (v *Vault) buildChunkIDIndex() (map[string]string, error) {
	chunks, _, err := v.Chunks.IterAll()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(chunks))
	for _, c := range chunks {
		out[c.ChunkHash] = c.ID()
	}
	return out, nil
}

// RebuildLinks rebuilds the bidirectional wiki-link graph over every
// document record and persists the updated Links/Backlinks fields
// (spec.md §4.8, idempotent full rebuild).
func (v *Vault) RebuildLinks() (failed map[string]error, err error) {
	docs, failed, err := v.Records.LoadAll()
	if err != nil {
		return nil, err
	}
	linkgraph.Rebuild(docs)
	for _, d := range docs {
		if err := v.Records.Save(d); err != nil {
			return failed, err
		}
	}
	return failed, nil
}

// RecomputeRelevance recomputes and persists each document's relevance
// score, archiving any that fall at or below threshold (spec.md §4.7).
func (v *Vault) RecomputeRelevance(now time.Time, archive relevance.ArchivePolicy) (failed map[string]error, err error) {
	docs, failed, err := v.Records.LoadAll()
	if err != nil {
		return nil, err
	}
	if failed == nil {
		failed = make(map[string]error)
	}

	for _, d := range docs {
		chunks, readErr := v.Chunks.Read(d.ID)
		if readErr != nil {
			failed[d.ID] = readErr
			continue
		}
		words := 0
		for _, c := range chunks {
			words += len(strings.Fields(c.Text))
		}
		score := relevance.Score(d, words, now, v.Cfg.Relevance)
		d.Status.RelevanceScore = score
		if archive.ShouldArchive(score) {
			d.Status.Archived = true
		}
		if err := v.Records.Save(d); err != nil {
			return failed, err
		}
	}
	return failed, nil
}

// Engine builds a search.Engine over the currently loaded lexical and
// vector indexes, suitable for reuse across multiple queries (e.g. the
// MCP server).
func (v *Vault) Engine() *search.Engine {
	return search.New(v.Lexical, v.vector, v.Embedder, v.Cfg.Search, v.chunkText)
}

// Search runs the hybrid search engine over the currently loaded
// lexical and vector indexes.
func (v *Vault) Search(ctx context.Context, query string, k int, mode search.Mode) ([]search.Hit, error) {
	return v.Engine().Search(ctx, query, k, mode)
}

func (v *Vault) chunkText(chunkID string) string {
	i := strings.LastIndex(chunkID, ":")
	if i < 0 {
		return ""
	}
	docID, hash := chunkID[:i], chunkID[i+1:]
	chunks, err := v.Chunks.Read(docID)
	if err != nil {
		return ""
	}
	for _, c := range chunks {
		if c.ChunkHash == hash {
			return c.Text
		}
	}
	return ""
}

// WalkMarkdown returns every markdown file path under the vault
// directory, sorted for deterministic processing order.
func (v *Vault) WalkMarkdown() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(v.vaultDir(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// UpdateAll ingests every markdown file in the vault, embeds new
// chunks, and rebuilds the lexical index, link graph and relevance
// scores — the full pipeline spec.md §6 names as the "update" verb.
func (v *Vault) UpdateAll(ctx context.Context) (Summary, error) {
	var sum Summary

	paths, err := v.WalkMarkdown()
	if err != nil {
		return sum, err
	}

	for _, p := range paths {
		doc, _, err := v.IngestFile(p)
		if err != nil {
			sum.Failed = append(sum.Failed, fmt.Sprintf("%s: %v", p, err))
			continue
		}
		sum.Ingested++
		if v.Embedder != nil {
			n, err := v.EmbedDocument(ctx, doc.ID)
			if err != nil {
				sum.Failed = append(sum.Failed, fmt.Sprintf("%s: embed: %v", doc.ID, err))
				continue
			}
			sum.Embedded += n
		}
	}

	if _, err := v.RebuildLexical(); err != nil {
		return sum, err
	}
	if err := v.RebuildVector(); err != nil {
		return sum, err
	}
	if _, err := v.RebuildLinks(); err != nil {
		return sum, err
	}
	if _, err := v.RecomputeRelevance(time.Now().UTC(), relevance.NewArchivePolicy(relevance.DefaultArchiveThreshold)); err != nil {
		return sum, err
	}

	return sum, nil
}

// Summary reports the outcome of a full vault update.
type Summary struct {
	Ingested int
	Embedded int
	Failed   []string
}
