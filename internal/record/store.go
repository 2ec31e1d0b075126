package record

import (
	"encoding/json"
	"os"
	"path/filepath"

	pkmserr "github.com/t0bybr/pkms/internal/errors"
)

// Store persists Document records at data/metadata/{ulid}.json
// (spec.md §6). Writes are temp-file + rename, so a reader never
// observes a partial record (I8/P8).
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes doc atomically.
func (s *Store) Save(doc *Document) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return pkmserr.Wrap(pkmserr.ErrCodeRecordWrite, err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return pkmserr.Wrap(pkmserr.ErrCodeRecordWrite, err)
	}

	final := s.path(doc.ID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return pkmserr.Wrap(pkmserr.ErrCodeRecordWrite, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return pkmserr.Wrap(pkmserr.ErrCodeRecordWrite, err)
	}
	return nil
}

// Load reads the record for id.
func (s *Store) Load(id string) (*Document, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, pkmserr.Wrap(pkmserr.ErrCodeChunkStoreRead, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, pkmserr.Wrap(pkmserr.ErrCodeChunkStoreRead, err)
	}
	doc.ID = id
	return &doc, nil
}

// LoadAll reads every record in the store, skipping (and returning
// separately) any document whose load failed so a single bad record
// cannot abort a batch (spec.md §7).
func (s *Store) LoadAll() (docs []*Document, failed map[string]error, err error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, pkmserr.Wrap(pkmserr.ErrCodeChunkStoreRead, err)
	}

	failed = make(map[string]error)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".json" {
			continue
		}
		id := name[:len(name)-len(ext)]
		doc, loadErr := s.Load(id)
		if loadErr != nil {
			failed[id] = loadErr
			continue
		}
		docs = append(docs, doc)
	}
	return docs, failed, nil
}

// MergeTagProposal applies an accepted TagProposal to doc, idempotently
// (re-applying the same proposal is a no-op). Grounded on
// original_source .pkms/tools/taxonomy_tag.py's accept-and-merge step.
func MergeTagProposal(doc *Document, proposal TagProposal) {
	doc.Tags = unionStrings(doc.Tags, proposal.Tags)
	if proposal.Category != "" {
		doc.Categories = unionStrings(doc.Categories, []string{proposal.Category})
	}
}

func unionStrings(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing))
	out := append([]string(nil), existing...)
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	for _, v := range added {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// Consolidate marks loser as consolidated into winner and archives it,
// per original_source pkms/tools/synth.py. Links are not changed: the
// link-graph rebuild does not read ConsolidatedInto, so links naming
// loser still resolve to loser.
func Consolidate(loser *Document, winnerID string) {
	loser.Status.ConsolidatedInto = winnerID
	loser.Status.Archived = true
}
