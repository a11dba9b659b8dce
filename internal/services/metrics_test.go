package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetricsService()

	m.RecordFetch("BBC World", true)
	m.RecordFetch("BBC World", true)
	m.RecordFetch("Meduza", false)
	m.RecordArticles(5, 2)

	m.RecordTranslation("libretranslate", false)
	m.RecordTranslation("primary-llm", true)
	m.SetBreakerState("libretranslate", "open")

	m.RecordEnrichment(true)
	m.RecordEnrichment(true)
	m.RecordEnrichment(false)

	m.RecordIntegratorRun("events", true)
	m.RecordIntegratorRun("tone", false)

	m.RecordConsolidation(1500*time.Millisecond, 12, true)

	s := m.Snapshot(42)

	assert.Equal(t, int64(2), s.Fetch.SuccessBySource["BBC World"])
	assert.Equal(t, int64(1), s.Fetch.FailureBySource["Meduza"])
	assert.Equal(t, int64(5), s.Fetch.ArticlesStored)
	assert.Equal(t, int64(2), s.Fetch.Duplicates)

	assert.Equal(t, int64(1), s.Translation.FailureByProvider["libretranslate"])
	assert.Equal(t, int64(1), s.Translation.SuccessByProvider["primary-llm"])
	assert.Equal(t, "open", s.Translation.BreakerStates["libretranslate"])

	assert.Equal(t, int64(2), s.Enrichment.Succeeded)
	assert.Equal(t, int64(1), s.Enrichment.Failed)
	assert.Equal(t, 42, s.Enrichment.QueueDepth)

	require.Contains(t, s.Integrators, "events")
	assert.True(t, s.Integrators["events"].LastRunOK)
	assert.NotNil(t, s.Integrators["events"].LastSuccess)
	assert.False(t, s.Integrators["tone"].LastRunOK)
	assert.Nil(t, s.Integrators["tone"].LastSuccess)

	require.NotNil(t, s.Consolidator.LastRun)
	assert.Equal(t, int64(1500), s.Consolidator.LastDurationMS)
	assert.Equal(t, 12, s.Consolidator.LastZoneCount)
	assert.True(t, s.Consolidator.LastRunOK)
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewMetricsService()
	m.RecordFetch("BBC World", true)

	s := m.Snapshot(0)
	s.Fetch.SuccessBySource["BBC World"] = 99

	assert.Equal(t, int64(1), m.Snapshot(0).Fetch.SuccessBySource["BBC World"])
}
