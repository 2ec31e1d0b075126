package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkHash_DependsOnlyOnText(t *testing.T) {
	a := ChunkHash("bei 300°C")
	b := ChunkHash("bei 300°C")
	assert.Equal(t, a, b)
	assert.Len(t, a, ChunkHashLen)
}

func TestChunkHash_DifferentTextDifferentHash(t *testing.T) {
	a := ChunkHash("hello world")
	b := ChunkHash("hello there")
	assert.NotEqual(t, a, b)
}

func TestSHA256Hex_Deterministic(t *testing.T) {
	a := SHA256Hex([]byte("content"))
	b := SHA256Hex([]byte("content"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestChunkHashSHA256Fallback_SameLength(t *testing.T) {
	h := ChunkHashSHA256Fallback("some text")
	assert.Len(t, h, ChunkHashLen)
}
