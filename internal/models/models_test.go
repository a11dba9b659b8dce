package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeContentHash(t *testing.T) {
	h1 := ComputeContentHash("Missile strike in Kharkiv", "https://example.com/a1")
	h2 := ComputeContentHash("Missile strike in Kharkiv", "https://example.com/a1")
	assert.Equal(t, h1, h2, "hash must be deterministic")

	// whitespace and case variations of the same entry collapse
	h3 := ComputeContentHash("  Missile   Strike in KHARKIV ", "HTTPS://EXAMPLE.COM/A1")
	assert.Equal(t, h1, h3)

	h4 := ComputeContentHash("Missile strike in Kharkiv", "https://example.com/a2")
	assert.NotEqual(t, h1, h4, "different urls must hash differently")
}

func TestRiskLevelForScore(t *testing.T) {
	cases := []struct {
		score float64
		level string
	}{
		{0.0, RiskLow},
		{0.39, RiskLow},
		{0.4, RiskMedium},
		{0.59, RiskMedium},
		{0.6, RiskHigh},
		{0.79, RiskHigh},
		{0.8, RiskCritical},
		{1.0, RiskCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, RiskLevelForScore(tc.score), "score %.2f", tc.score)
	}
}

func TestHasCoordinates(t *testing.T) {
	lat, lon := 48.5, 37.5
	assert.False(t, (&Article{}).HasCoordinates())
	assert.False(t, (&Article{Latitude: &lat}).HasCoordinates())
	assert.True(t, (&Article{Latitude: &lat, Longitude: &lon}).HasCoordinates())
}

func TestEnrichmentComplete(t *testing.T) {
	sentiment := -0.4
	score := 0.7
	level := RiskHigh

	assert.False(t, (&Enrichment{}).Complete())
	assert.False(t, (&Enrichment{OriginalLanguage: "en", SentimentScore: &sentiment}).Complete())

	full := &Enrichment{
		OriginalLanguage: "en",
		SentimentScore:   &sentiment,
		RiskLevel:        &level,
		RiskScore:        &score,
	}
	assert.True(t, full.Complete())
}

func TestLevelForGPR(t *testing.T) {
	assert.Equal(t, "very_high", LevelForGPR(250))
	assert.Equal(t, "high", LevelForGPR(180))
	assert.Equal(t, "medium", LevelForGPR(120))
	assert.Equal(t, "low", LevelForGPR(80))
}

func TestMonitoringFrequencyForLevel(t *testing.T) {
	assert.Equal(t, "daily", MonitoringFrequencyForLevel(RiskCritical))
	assert.Equal(t, "weekly", MonitoringFrequencyForLevel(RiskHigh))
	assert.Equal(t, "monthly", MonitoringFrequencyForLevel(RiskMedium))
	assert.Equal(t, "monthly", MonitoringFrequencyForLevel(RiskLow))
}
