// Package hashing provides the content-addressing primitives the core
// relies on: SHA-256 for documents and files, xxhash64 for chunks.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChunkHashLen is the number of hex characters kept from the xxhash64
// digest; 12 hex chars is 48 bits, assumed collision-free at 2^48
// distinct chunks (spec.md §3).
const ChunkHashLen = 12

// ChunkHash derives chunk_hash from chunk text (spec.md I2: depends only
// on text). It always uses xxhash64; the SHA-256 variant is the separate
// function ChunkHashSHA256Fallback.
func ChunkHash(text string) string {
	sum := xxhash.Sum64String(text)
	full := hex.EncodeToString(uint64ToBytes(sum))
	return full[:ChunkHashLen]
}

// ChunkHashSHA256Fallback computes the chunk hash using SHA-256 instead
// of xxhash64, truncated to ChunkHashLen hex chars. Nothing in the
// pipeline calls it; chunk identities come from ChunkHash.
func ChunkHashSHA256Fallback(text string) string {
	full := SHA256Hex([]byte(text))
	return full[:ChunkHashLen]
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}
