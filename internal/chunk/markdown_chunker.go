package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"

	pkmserr "github.com/t0bybr/pkms/internal/errors"
	"github.com/t0bybr/pkms/internal/hashing"
)

// headingPattern matches ATX headings (spec.md §4.1).
var headingPattern = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.+?)[ \t]*$`)

// blankLinePattern splits paragraphs on blank-line boundaries.
var blankLinePattern = regexp.MustCompile(`\n[ \t]*\n+`)

// sentencePattern splits on sentence terminators followed by whitespace.
var sentencePattern = regexp.MustCompile(`[.!?]+[ \t\n]+`)

// Chunker implements the two-level, hierarchy-first markdown chunking
// algorithm (spec.md §4.1). It is stateless and safe for concurrent use.
type Chunker struct {
	opts Options
}

// New returns a Chunker with the given options (zero fields get
// spec.md defaults).
func New(opts Options) *Chunker {
	return &Chunker{opts: opts.WithDefaults()}
}

// heading is one ATX heading occurrence.
type heading struct {
	level int
	title string
	start int // byte offset of the heading line start
}

// rawSection is a content span between two headings (or doc bounds).
type rawSection struct {
	headingLevel int // 0 if this span precedes any heading
	title        string
	content      string
}

// Chunk splits text into ordered, content-addressed chunks. Equal
// (text, opts.MaxTokens) always yields byte-equal chunks with equal
// hashes (P1, P2).
func (c *Chunker) Chunk(docID, text, language string) ([]Chunk, error) {
	if !utf8.ValidString(text) {
		return nil, pkmserr.New(pkmserr.ErrCodeUTF8Invalid, "document body is not valid UTF-8", nil).WithDoc(docID)
	}

	trimmedWhole := strings.TrimSpace(text)
	if trimmedWhole == "" {
		return nil, nil
	}

	// Whole-document floor: if the entire document is below the
	// token floor, it produces a single chunk regardless of headings.
	if CountTokens(trimmedWhole) < c.opts.MinChunkTokens {
		return []Chunk{{
			DocID:      docID,
			ChunkIndex: 0,
			Text:       trimmedWhole,
			Tokens:     CountTokens(trimmedWhole),
			Modality:   "text",
			Language:   language,
			ChunkHash:  chunkHash(trimmedWhole),
		}}, nil
	}

	sections := splitSections(text)

	var candidates []Chunk
	curSection, curSubsection := "", ""
	for _, sec := range sections {
		switch sec.headingLevel {
		case 1:
			curSection = sec.title
			curSubsection = ""
		case 2:
			curSubsection = sec.title
		}

		secChunks := c.chunkSection(sec.content, curSection, curSubsection, language)
		candidates = append(candidates, secChunks...)
	}

	filtered := applyFloor(candidates, c.opts.MinChunkTokens)

	for i := range filtered {
		filtered[i].DocID = docID
		filtered[i].ChunkIndex = i
	}
	return filtered, nil
}

// splitSections partitions text into heading-delimited spans. If no
// headings exist, the whole document is one section with level 0.
func splitSections(text string) []rawSection {
	locs := headingPattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return []rawSection{{headingLevel: 0, content: text}}
	}

	var sections []rawSection
	if locs[0][0] > 0 {
		pre := text[:locs[0][0]]
		if strings.TrimSpace(pre) != "" {
			sections = append(sections, rawSection{headingLevel: 0, content: pre})
		}
	}

	for i, loc := range locs {
		start := loc[0]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		level := loc[3] - loc[2]
		title := text[loc[4]:loc[5]]
		sections = append(sections, rawSection{
			headingLevel: level,
			title:        strings.TrimSpace(title),
			content:      text[start:end],
		})
	}
	return sections
}

// chunkSection applies size enforcement to one section's content,
// producing one chunk if it fits, or greedily packed + overlapping
// chunks otherwise (spec.md §4.1 step 2).
func (c *Chunker) chunkSection(content, section, subsection, language string) []Chunk {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}

	tokens := CountTokens(trimmed)
	if tokens <= c.opts.MaxTokens {
		return []Chunk{newChunk(trimmed, tokens, section, subsection, language)}
	}

	paragraphs := splitNonEmpty(content, blankLinePattern)
	return c.packUnits(paragraphs, section, subsection, language, c.splitOversizeParagraph)
}

// splitOversizeParagraph further splits a single paragraph that alone
// exceeds MaxTokens, on sentence terminators, using the same
// greedy-pack-and-overlap rule (spec.md §4.1 step 2).
func (c *Chunker) splitOversizeParagraph(paragraph, section, subsection, language string) []Chunk {
	sentences := splitNonEmpty(paragraph, sentencePattern)
	if len(sentences) <= 1 {
		// No sentence boundary found; emit as a single oversized chunk
		// rather than silently dropping content.
		trimmed := strings.TrimSpace(paragraph)
		return []Chunk{newChunk(trimmed, CountTokens(trimmed), section, subsection, language)}
	}
	return c.packUnits(sentences, section, subsection, language, nil)
}

// packUnits greedily packs units (paragraphs or sentences) into chunks
// bounded by MaxTokens, retaining the last unit of a flushed buffer as
// overlap for the next chunk when the buffer held >= 2 units (spec.md
// §4.1 step 2, "providing ~10-20% overlap"). A unit that alone exceeds
// MaxTokens is handed to oversizeSplitter (nil for the sentence level,
// since sentences are not split further).
func (c *Chunker) packUnits(units []string, section, subsection, language string, oversizeSplitter func(string, string, string, string) []Chunk) []Chunk {
	var out []Chunk
	var buffer []string
	bufferTokens := 0

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		text := strings.Join(buffer, "\n\n")
		out = append(out, newChunk(text, CountTokens(text), section, subsection, language))

		if len(buffer) >= 2 {
			overlap := buffer[len(buffer)-1]
			buffer = []string{overlap}
			bufferTokens = CountTokens(overlap)
		} else {
			buffer = nil
			bufferTokens = 0
		}
	}

	for _, unit := range units {
		unitTokens := CountTokens(unit)

		if unitTokens > c.opts.MaxTokens && oversizeSplitter != nil {
			flush()
			buffer = nil
			bufferTokens = 0
			out = append(out, oversizeSplitter(unit, section, subsection, language)...)
			continue
		}

		if len(buffer) > 0 && bufferTokens+unitTokens > c.opts.MaxTokens {
			flush()
		}
		buffer = append(buffer, unit)
		bufferTokens += unitTokens
	}
	flush()

	return out
}

func newChunk(text string, tokens int, section, subsection, language string) Chunk {
	trimmed := strings.TrimSpace(text)
	return Chunk{
		Text:       trimmed,
		Tokens:     tokens,
		Section:    nullToEmpty(section),
		Subsection: nullToEmpty(subsection),
		Modality:   "text",
		Language:   language,
		ChunkHash:  chunkHash(trimmed),
	}
}

func nullToEmpty(s string) string { return s }

// splitNonEmpty splits text on sep and trims/drops empty results.
func splitNonEmpty(text string, sep *regexp.Regexp) []string {
	parts := sep.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// applyFloor drops chunks below MinChunkTokens unless doing so would
// empty the document (spec.md §4.1 step 3).
func applyFloor(chunks []Chunk, floor int) []Chunk {
	if len(chunks) == 0 {
		return chunks
	}
	var kept []Chunk
	for _, ch := range chunks {
		if ch.Tokens >= floor {
			kept = append(kept, ch)
		}
	}
	if len(kept) == 0 {
		return chunks
	}
	return kept
}

// chunkHash computes chunk_hash per spec.md §3 (I2: depends only on text).
func chunkHash(text string) string {
	return hashing.ChunkHash(text)
}
