package relevance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/t0bybr/pkms/internal/config"
	"github.com/t0bybr/pkms/internal/record"
)

func defaultCfg() config.RelevanceConfig {
	return config.RelevanceConfig{
		WeightRecency:       0.4,
		WeightLinks:         0.3,
		WeightQuality:       0.2,
		WeightUser:          0.1,
		RecencyHalfLifeDays: 90,
	}
}

func TestScore_FreshUnlinkedDocument(t *testing.T) {
	now := time.Now().UTC()
	doc := &record.Document{Updated: now}
	score := Score(doc, 100, now, defaultCfg())
	assert.InDelta(t, 0.425, score, 0.01)
}

func TestScore_ClampedToUnitInterval(t *testing.T) {
	now := time.Now().UTC()
	doc := &record.Document{
		Updated:   now,
		Links:     []record.Link{{Raw: "[[x]]"}},
		Backlinks: make([]record.Backlink, 50),
		Status:    record.Status{HumanEdited: true, AgentReviewed: true},
	}
	score := Score(doc, 10000, now, defaultCfg())
	assert.LessOrEqual(t, score, 1.0)
	assert.GreaterOrEqual(t, score, 0.0)
}

func TestScore_OldDocumentDecaysTowardZero(t *testing.T) {
	now := time.Now().UTC()
	doc := &record.Document{Updated: now.AddDate(-5, 0, 0)}
	score := Score(doc, 0, now, defaultCfg())
	assert.Less(t, score, 0.05)
}

func TestArchivePolicy_DefaultThreshold(t *testing.T) {
	p := NewArchivePolicy(0)
	assert.Equal(t, DefaultArchiveThreshold, p.Threshold)
	assert.True(t, p.ShouldArchive(0.1))
	assert.False(t, p.ShouldArchive(0.2))
}

func TestArchivePolicy_CustomThreshold(t *testing.T) {
	p := NewArchivePolicy(0.5)
	assert.True(t, p.ShouldArchive(0.5))
	assert.False(t, p.ShouldArchive(0.51))
}
