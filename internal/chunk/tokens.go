package chunk

import (
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// CountTokens estimates the token count of text. When a GPT-style BPE
// tokenizer is available it is used directly; otherwise CountTokens
// falls back to a pinned whitespace/punctuation approximation (spec.md
// §4.1). The chosen function must stay pinned for a given installation
// since chunk identity (via chunk_hash) depends on text, not on token
// count directly — but the chunker's size decisions, and therefore
// which chunks exist, do depend on this function.
func CountTokens(text string) int {
	if enc := bpeEncoder(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return approximateTokens(text)
}

var (
	bpeOnce sync.Once
	bpeEnc  *tiktoken.Tiktoken
)

// bpeEncoder lazily loads the cl100k_base BPE encoding. tiktoken-go may
// fail to load its vocabulary file (offline, no cache) — in that case
// bpeEncoder returns nil and callers use the fallback formula.
func bpeEncoder() *tiktoken.Tiktoken {
	bpeOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			bpeEnc = enc
		}
	})
	return bpeEnc
}

var punctuationPattern = regexp.MustCompile(`[.,!?;:()\[\]{}'"]`)

// approximateTokens implements the fallback: ceil(0.75 * words + 0.25 *
// punctuation tokens), per spec.md §4.1.
func approximateTokens(text string) int {
	words := len(strings.Fields(text))
	punct := len(punctuationPattern.FindAllString(text, -1))
	return int(math.Ceil(0.75*float64(words) + 0.25*float64(punct)))
}
