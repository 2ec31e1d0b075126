// Package ids generates the identifiers the data model relies on: the
// ULID that is a document's single source of truth (spec.md §3) and the
// slug used in its filename.
package ids

import (
	"math/rand"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
)

// ulidPattern matches a valid Crockford-Base32 ULID (spec.md §6).
var ulidPattern = regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{26}$`)

// entropySource is process-local; ULIDs only need monotonic-within-ms
// ordering, not cryptographic unpredictability.
var entropySource = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)

// NewULID returns a new 26-character lexicographically sortable ULID
// timestamped at t.
func NewULID(t time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(t), entropySource)
	return id.String()
}

// IsValidULID reports whether s is a syntactically valid ULID.
func IsValidULID(s string) bool {
	return ulidPattern.MatchString(s)
}

// slugPattern matches the filename convention's slug charset.
var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// MaxSlugLen is the maximum slug length (spec.md §3, §6).
const MaxSlugLen = 60

// Slugify transliterates a title into a lowercase hyphenated slug no
// longer than MaxSlugLen, matching the filename convention
// `[a-z0-9-]{1,60}`.
func Slugify(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r) || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	slug := slugPattern.ReplaceAllString(b.String(), "-")
	slug = strings.Trim(slug, "-")
	slug = collapseHyphens(slug)
	if len(slug) > MaxSlugLen {
		slug = strings.Trim(slug[:MaxSlugLen], "-")
	}
	if slug == "" {
		slug = "untitled"
	}
	return slug
}

func collapseHyphens(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return s
}

// FilenamePattern describes the document filename convention
// `{slug}--{ulid}.{ext}` (spec.md §6).
var FilenamePattern = regexp.MustCompile(`^([a-z0-9-]{1,60})--([0-9A-HJKMNP-TV-Z]{26})\.([a-zA-Z0-9]+)$`)

// ParseFilename extracts (slug, ulid, ext) from a document filename. It
// returns ok=false if the filename does not match the convention.
func ParseFilename(name string) (slug, ulidStr, ext string, ok bool) {
	m := FilenamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}

// Filename builds a document filename from its slug, ulid and extension.
func Filename(slug, ulidStr, ext string) string {
	return slug + "--" + ulidStr + "." + ext
}
