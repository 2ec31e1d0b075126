package store

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"

	pkmserr "github.com/t0bybr/pkms/internal/errors"
)

// EmbedStore persists content-addressed embedding vectors at
// embeddings/{model}/{chunk_hash}, little-endian float32 (spec.md §4.3).
// A vector's identity is (model, chunk_hash): the same text embedded by
// the same model always resolves to the same file.
type EmbedStore struct {
	root string
}

// NewEmbedStore returns an EmbedStore rooted at root.
func NewEmbedStore(root string) *EmbedStore {
	return &EmbedStore{root: root}
}

func (s *EmbedStore) dir(model string) string {
	return filepath.Join(s.root, model)
}

func (s *EmbedStore) path(model, chunkHash string) string {
	return filepath.Join(s.dir(model), chunkHash)
}

// Has reports whether an embedding already exists for (model, chunkHash).
func (s *EmbedStore) Has(model, chunkHash string) bool {
	_, err := os.Stat(s.path(model, chunkHash))
	return err == nil
}

// MissingHashes returns the subset of hashes that have no embedding on
// disk yet for model — the set the caller must still embed (spec.md
// §4.3: "embed only chunks whose hash has no corresponding file").
func (s *EmbedStore) MissingHashes(model string, hashes []string) []string {
	var missing []string
	for _, h := range hashes {
		if !s.Has(model, h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// Write persists vec for (model, chunkHash), atomically (temp + rename).
func (s *EmbedStore) Write(model, chunkHash string, vec []float32) error {
	if err := os.MkdirAll(s.dir(model), 0o755); err != nil {
		return pkmserr.Wrap(pkmserr.ErrCodeRecordWrite, err)
	}

	final := s.path(model, chunkHash)
	tmp := final + ".tmp"

	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}

	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return pkmserr.Wrap(pkmserr.ErrCodeRecordWrite, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return pkmserr.Wrap(pkmserr.ErrCodeRecordWrite, err)
	}
	return nil
}

// Read loads the raw (non-normalized) vector for (model, chunkHash).
func (s *EmbedStore) Read(model, chunkHash string) ([]float32, error) {
	buf, err := os.ReadFile(s.path(model, chunkHash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pkmserr.Wrap(pkmserr.ErrCodeChunkStoreRead, err)
	}
	if len(buf)%4 != 0 {
		return nil, pkmserr.New(pkmserr.ErrCodeVectorDimMismatch, "embedding file length not a multiple of 4 bytes", nil)
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}

// LoadAllNormalized reads every stored vector for model, L2-normalizing
// each (zero vectors are preserved as zero rather than divided by zero),
// and verifies all vectors share one dimension — a mismatch is a fatal
// ERR_402 error (spec.md §4.3, §4.5).
func (s *EmbedStore) LoadAllNormalized(model string) (hashes []string, vectors [][]float32, err error) {
	entries, err := os.ReadDir(s.dir(model))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, pkmserr.Wrap(pkmserr.ErrCodeChunkStoreRead, err)
	}

	dim := -1
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) == ".tmp" {
			continue
		}
		vec, readErr := s.Read(model, name)
		if readErr != nil {
			return nil, nil, readErr
		}
		if dim == -1 {
			dim = len(vec)
		} else if len(vec) != dim {
			return nil, nil, pkmserr.New(pkmserr.ErrCodeVectorDimMismatch,
				"embedding dimension mismatch across stored vectors", nil).WithDetail("hash", name)
		}
		hashes = append(hashes, name)
		vectors = append(vectors, normalize(vec))
	}
	return hashes, vectors, nil
}

// normalize L2-normalizes vec, preserving an all-zero vector as-is.
func normalize(vec []float32) []float32 {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return vec
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
