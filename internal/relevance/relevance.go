// Package relevance implements the deterministic per-document scoring
// formula (spec.md §4.7) and the archival-policy threshold supplemented
// from original_source/pkms/tools/archive.py (SPEC_FULL.md E3).
package relevance

import (
	"math"
	"time"

	"github.com/t0bybr/pkms/internal/config"
	"github.com/t0bybr/pkms/internal/record"
)

// DefaultArchiveThreshold is the typical archival cutoff named in
// spec.md §4.7 ("typical 0.15"), confirmed against the source's
// archive.py default.
const DefaultArchiveThreshold = 0.15

// mediaScore is a reserved placeholder until a media analyzer exists
// (spec.md §4.7).
const mediaScore = 0.5

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Score computes score(doc, now) in [0,1] (spec.md §4.7).
func Score(doc *record.Document, wordCount int, now time.Time, cfg config.RelevanceConfig) float64 {
	halfLife := cfg.RecencyHalfLifeDays
	if halfLife <= 0 {
		halfLife = 90
	}

	ageDays := now.Sub(doc.Updated).Hours() / 24
	r := clamp01(math.Exp(-ageDays / halfLife))

	l := clamp01(math.Log(1+float64(len(doc.Backlinks))) / math.Log(101))

	quality := 0.5*math.Min(1, float64(wordCount)/2000) + 0.2*mediaScore
	if len(doc.Links) > 0 {
		quality += 0.3
	}
	q := clamp01(quality)

	u := 0.0
	if doc.Status.HumanEdited {
		u += 0.5
	}
	if doc.Status.AgentReviewed {
		u += 0.3
	}
	u = clamp01(u)

	score := cfg.WeightRecency*r + cfg.WeightLinks*l + cfg.WeightQuality*q + cfg.WeightUser*u
	return clamp01(score)
}

// ArchivePolicy decides whether a document should be archived given its
// current relevance score, grounded on the source's archive.py
// threshold comparison (SPEC_FULL.md E3). The core itself never
// archives; this is the higher-layer policy spec.md §4.7 alludes to.
type ArchivePolicy struct {
	Threshold float64
}

// NewArchivePolicy returns a policy at threshold (<=0 uses
// DefaultArchiveThreshold).
func NewArchivePolicy(threshold float64) ArchivePolicy {
	if threshold <= 0 {
		threshold = DefaultArchiveThreshold
	}
	return ArchivePolicy{Threshold: threshold}
}

// ShouldArchive reports whether score falls at or below the policy's
// threshold.
func (p ArchivePolicy) ShouldArchive(score float64) bool {
	return score <= p.Threshold
}
