package record

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	pkmserr "github.com/t0bybr/pkms/internal/errors"
)

var errInvalidDates = errors.New("created must be <= updated")

// frontmatterKeys are the recognized frontmatter keys (spec.md §6).
// Anything else lands in Document.Extra and is preserved verbatim.
var frontmatterKeys = map[string]struct{}{
	"title":         {},
	"aliases":       {},
	"tags":          {},
	"categories":    {},
	"language":      {},
	"date_created":  {},
	"date_updated":  {},
	"date_semantic": {},
}

// frontmatterFields mirrors the recognized keys for YAML decoding.
type frontmatterFields struct {
	Title        string   `yaml:"title"`
	Aliases      []string `yaml:"aliases"`
	Tags         []string `yaml:"tags"`
	Categories   []string `yaml:"categories"`
	Language     string   `yaml:"language"`
	DateCreated  string   `yaml:"date_created"`
	DateUpdated  string   `yaml:"date_updated"`
	DateSemantic string   `yaml:"date_semantic"`
}

const dateLayout = "2006-01-02T15:04:05Z07:00"
const dateLayoutShort = "2006-01-02"

// ParseFile splits a vault markdown file into its frontmatter-derived
// Document (without ID/Slug/Ext, which come from the filename) and body
// text. Frontmatter never stores the ULID (I4); if it does, this is an
// IdentityConflict (ERR_204).
func ParseFile(content []byte) (*Document, string, error) {
	if !utf8Valid(content) {
		return nil, "", pkmserr.New(pkmserr.ErrCodeUTF8Invalid, "file is not valid UTF-8", nil)
	}

	fm, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, "", pkmserr.Wrap(pkmserr.ErrCodeFrontmatterInvalid, err)
	}

	var raw map[string]any
	if len(fm) > 0 {
		if err := yaml.Unmarshal(fm, &raw); err != nil {
			return nil, "", pkmserr.Wrap(pkmserr.ErrCodeFrontmatterInvalid, err)
		}
	}

	if _, hasID := raw["id"]; hasID {
		return nil, "", pkmserr.New(pkmserr.ErrCodeFrontmatterULID, "frontmatter must not store the document id", nil).WithDetail("key", "id")
	}

	var fields frontmatterFields
	if len(fm) > 0 {
		if err := yaml.Unmarshal(fm, &fields); err != nil {
			return nil, "", pkmserr.Wrap(pkmserr.ErrCodeFrontmatterInvalid, err)
		}
	}

	doc := &Document{
		Title:      fields.Title,
		Aliases:    fields.Aliases,
		Tags:       fields.Tags,
		Categories: fields.Categories,
		Language:   fields.Language,
		Body:       body,
	}

	if fields.DateCreated != "" {
		t, err := parseDate(fields.DateCreated)
		if err != nil {
			return nil, "", pkmserr.Wrap(pkmserr.ErrCodeFrontmatterInvalid, fmt.Errorf("date_created: %w", err))
		}
		doc.Created = t
	}
	if fields.DateUpdated != "" {
		t, err := parseDate(fields.DateUpdated)
		if err != nil {
			return nil, "", pkmserr.Wrap(pkmserr.ErrCodeFrontmatterInvalid, fmt.Errorf("date_updated: %w", err))
		}
		doc.Updated = t
	}
	if fields.DateSemantic != "" {
		t, err := parseDate(fields.DateSemantic)
		if err != nil {
			return nil, "", pkmserr.Wrap(pkmserr.ErrCodeFrontmatterInvalid, fmt.Errorf("date_semantic: %w", err))
		}
		doc.DateSemantic = &t
	}

	doc.Extra = extraKeys(raw)

	return doc, body, nil
}

// extraKeys returns the subset of raw frontmatter not in the recognized
// set, preserved on round-trip (spec.md §6).
func extraKeys(raw map[string]any) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	extra := make(map[string]any)
	for k, v := range raw {
		if _, recognized := frontmatterKeys[k]; !recognized {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayoutShort, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

var frontmatterFence = []byte("---")

// splitFrontmatter separates the `---`-delimited YAML block from the
// body. Returns an empty frontmatter slice if no fence is present.
func splitFrontmatter(content []byte) (fm []byte, body string, err error) {
	trimmed := bytes.TrimLeft(content, "\n")
	if !bytes.HasPrefix(trimmed, frontmatterFence) {
		return nil, string(content), nil
	}

	rest := trimmed[len(frontmatterFence):]
	rest = bytes.TrimPrefix(rest, []byte("\n"))

	idx := bytes.Index(rest, []byte("\n---"))
	if idx == -1 {
		return nil, "", errors.New("unterminated frontmatter fence")
	}

	fm = rest[:idx]
	after := rest[idx+len("\n---"):]
	after = bytes.TrimSpace(after)
	return fm, string(after), nil
}

// Render serializes doc's frontmatter and body back into a markdown
// file. Unknown keys from Extra are round-tripped. The ULID is never
// written into frontmatter (I4).
func Render(doc *Document) ([]byte, error) {
	fields := map[string]any{}
	if doc.Title != "" {
		fields["title"] = doc.Title
	}
	if len(doc.Aliases) > 0 {
		fields["aliases"] = doc.Aliases
	}
	if len(doc.Tags) > 0 {
		fields["tags"] = doc.Tags
	}
	if len(doc.Categories) > 0 {
		fields["categories"] = doc.Categories
	}
	if doc.Language != "" {
		fields["language"] = doc.Language
	}
	if !doc.Created.IsZero() {
		fields["date_created"] = doc.Created.UTC().Format(dateLayout)
	}
	if !doc.Updated.IsZero() {
		fields["date_updated"] = doc.Updated.UTC().Format(dateLayout)
	}
	if doc.DateSemantic != nil {
		fields["date_semantic"] = doc.DateSemantic.UTC().Format(dateLayout)
	}
	for k, v := range doc.Extra {
		fields[k] = v
	}

	out, err := yaml.Marshal(fields)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(out)
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimLeft(doc.Body, "\n"))
	return b.Bytes(), nil
}

func utf8Valid(b []byte) bool {
	return utf8.Valid(b)
}
