// Package linkgraph implements wiki-link extraction, four-tier
// resolution, and bidirectional backlink construction (spec.md §4.8).
package linkgraph

import (
	"regexp"
	"strings"

	"github.com/t0bybr/pkms/internal/ids"
	"github.com/t0bybr/pkms/internal/record"
)

// contextWindow is the number of characters retained on each side of a
// link occurrence (spec.md §4.8).
const contextWindow = 50

var linkPattern = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)

// rawLink is one [[target]] or [[target|display]] occurrence with its
// surrounding context, before resolution.
type rawLink struct {
	raw     string
	target  string
	context string
}

// Extract finds every wiki-link occurrence in text, with a 50-char
// context window on each side (newlines collapsed) (spec.md §4.8).
func Extract(text string) []rawLink {
	locs := linkPattern.FindAllStringSubmatchIndex(text, -1)
	out := make([]rawLink, 0, len(locs))
	for _, loc := range locs {
		raw := text[loc[0]:loc[1]]
		target := text[loc[2]:loc[3]]

		start := loc[0] - contextWindow
		if start < 0 {
			start = 0
		}
		end := loc[1] + contextWindow
		if end > len(text) {
			end = len(text)
		}
		ctx := collapseNewlines(text[start:end])

		out = append(out, rawLink{raw: raw, target: strings.TrimSpace(target), context: ctx})
	}
	return out
}

func collapseNewlines(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\n", " ")), " ")
}

// nameService resolves a link target against the corpus, four tiers,
// first hit wins (spec.md §4.8).
type nameService struct {
	byID    map[string]*record.Document
	bySlug  map[string]*record.Document
	byAlias map[string]*record.Document // lowercased alias -> doc
	byTitle map[string]*record.Document // lowercased title -> doc
}

func buildNameService(docs []*record.Document) *nameService {
	ns := &nameService{
		byID:    make(map[string]*record.Document),
		bySlug:  make(map[string]*record.Document),
		byAlias: make(map[string]*record.Document),
		byTitle: make(map[string]*record.Document),
	}
	for _, d := range docs {
		ns.byID[d.ID] = d
		ns.bySlug[d.Slug] = d
		for _, a := range d.Aliases {
			ns.byAlias[strings.ToLower(a)] = d
		}
		ns.byTitle[strings.ToLower(d.Title)] = d
	}
	return ns
}

// resolve implements the four-tier lookup. Unresolved links default to
// type=slug, target="" (spec.md §4.8).
func (ns *nameService) resolve(target string) record.Link {
	if ids.IsValidULID(target) {
		if _, ok := ns.byID[target]; ok {
			return record.Link{Type: record.LinkTypeID, Target: target, Resolved: true}
		}
	}
	if d, ok := ns.bySlug[target]; ok {
		return record.Link{Type: record.LinkTypeSlug, Target: d.ID, Resolved: true}
	}
	if d, ok := ns.byAlias[strings.ToLower(target)]; ok {
		return record.Link{Type: record.LinkTypeAlias, Target: d.ID, Resolved: true}
	}
	if d, ok := ns.byTitle[strings.ToLower(target)]; ok {
		return record.Link{Type: record.LinkTypeTitle, Target: d.ID, Resolved: true}
	}
	return record.Link{Type: record.LinkTypeSlug, Resolved: false}
}

// Rebuild clears links/backlinks on every document, re-extracts
// outgoing links, resolves them against the corpus, and reconstructs
// backlinks. The process is idempotent (spec.md §4.8). Documents whose
// body is empty are still name-service entries (they can be link
// targets) but contribute no outgoing links.
func Rebuild(docs []*record.Document) {
	ns := buildNameService(docs)

	for _, d := range docs {
		d.Links = nil
		d.Backlinks = nil
	}

	backlinksByTarget := make(map[string][]record.Backlink)

	for _, d := range docs {
		raws := Extract(d.Body)
		links := make([]record.Link, 0, len(raws))
		for _, rl := range raws {
			link := ns.resolve(rl.target)
			link.Raw = rl.raw
			link.Context = truncate(rl.context, 200)
			links = append(links, link)

			if link.Resolved {
				backlinksByTarget[link.Target] = append(backlinksByTarget[link.Target], record.Backlink{Target: d.ID})
			}
		}
		d.Links = links
	}

	for _, d := range docs {
		d.Backlinks = backlinksByTarget[d.ID]
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
