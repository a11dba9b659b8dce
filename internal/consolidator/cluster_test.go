package consolidator

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskmap/internal/models"
)

func newsSignal(id int64, lat, lon, score float64, at time.Time) models.ConflictSignal {
	return models.ConflictSignal{
		Latitude:   lat,
		Longitude:  lon,
		SourceKind: models.SignalNews,
		Score:      score,
		Weight:     models.SignalWeights[models.SignalNews],
		Country:    "Ukraine",
		Location:   "Donetsk Oblast",
		EventCount: 1,
		LatestAt:   at,
		ArticleID:  id,
	}
}

func TestClusterScenario(t *testing.T) {
	now := time.Now().UTC()
	var signals []models.ConflictSignal

	// 10 articles clustered within 0.3 degrees of (48.5, 37.5)
	for i := 0; i < 10; i++ {
		offset := float64(i) * 0.03
		score := 0.6 + float64(i)*0.033 // spread over [0.6, 0.9]
		signals = append(signals, newsSignal(int64(i+1), 48.5+offset, 37.5-offset, score, now))
	}

	// 20 event records at the same coordinates, 75 fatalities total
	signals = append(signals, models.ConflictSignal{
		Latitude:   48.5,
		Longitude:  37.5,
		SourceKind: models.SignalEvents,
		Score:      1.0,
		Weight:     models.SignalWeights[models.SignalEvents],
		Location:   "Donetsk Oblast",
		Country:    "Ukraine",
		EventCount: 20,
		Fatalities: 75,
		Actors:     []string{"Military Forces A", "Armed Group B"},
		EventTypes: []string{"Battles"},
		LatestAt:   now,
	})

	zones := Cluster(signals, 0.5)
	require.Len(t, zones, 1, "all signals must collapse into one zone")

	z := zones[0]
	gpr := models.RiskIndexContext{RiskLevel: "medium", Trend: "stable"}
	z.FinalScore = FinalScore(z, gpr, now)

	assert.GreaterOrEqual(t, z.FinalScore, 0.9)
	assert.Equal(t, 75, z.TotalFatalities)
	assert.Equal(t, 30, z.TotalEvents)
	assert.True(t, z.Sources[models.SignalNews])
	assert.True(t, z.Sources[models.SignalEvents])
	assert.Len(t, z.MemberArticles, 10)

	persisted := z.ToModel(now)
	assert.Equal(t, models.RiskCritical, persisted.RiskLevel)
	assert.Equal(t, "daily", persisted.MonitoringFrequency)
	assert.Len(t, persisted.MemberArticleIDs, 10)

	// every contributing signal is within the proximity radius of the centroid
	for _, sig := range signals {
		assert.LessOrEqual(t, distanceDegrees(sig.Latitude, sig.Longitude, z.CentroidLat, z.CentroidLon), 0.5)
	}
}

func TestDistantSignalsStaySeparate(t *testing.T) {
	now := time.Now().UTC()
	signals := []models.ConflictSignal{
		newsSignal(1, 48.5, 37.5, 0.8, now),
		newsSignal(2, 31.5, 34.4, 0.7, now), // ~20 degrees away
	}
	zones := Cluster(signals, 0.5)
	assert.Len(t, zones, 2)
}

func TestHighScoreSignalsSeedClusters(t *testing.T) {
	now := time.Now().UTC()
	// the 0.9 signal must become a centroid, with the weaker one merged in
	signals := []models.ConflictSignal{
		newsSignal(1, 48.9, 37.5, 0.3, now),
		newsSignal(2, 48.5, 37.5, 0.9, now),
	}
	zones := Cluster(signals, 0.5)
	require.Len(t, zones, 1)
	assert.Equal(t, 48.5, zones[0].CentroidLat)
}

func TestFinalScoreBounds(t *testing.T) {
	now := time.Now().UTC()
	for i := 0; i < 50; i++ {
		z := newZone(newsSignal(1, 48.5, 37.5, float64(i)/50.0, now))
		z.TotalEvents = i * 10
		z.TotalFatalities = i * 20
		score := FinalScore(z, models.RiskIndexContext{RiskLevel: "very_high"}, now)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestFinalScoreMonotoneInSignals(t *testing.T) {
	now := time.Now().UTC()
	gpr := models.RiskIndexContext{RiskLevel: "medium"}

	z := newZone(newsSignal(1, 48.5, 37.5, 0.5, now))
	prev := FinalScore(z, gpr, now)

	// adding signals under fixed context and recency never lowers the score
	for i := 2; i <= 12; i++ {
		z.merge(models.ConflictSignal{
			Latitude:   48.5,
			Longitude:  37.5,
			SourceKind: models.SignalEvents,
			Score:      0.5,
			EventCount: 2,
			Fatalities: 3,
			LatestAt:   now,
			ArticleID:  0,
		})
		score := FinalScore(z, gpr, now)
		assert.GreaterOrEqual(t, score, prev, "score dropped after adding signal %d", i)
		prev = score
	}
}

func TestPredictions(t *testing.T) {
	now := time.Now().UTC()
	z := newZone(newsSignal(1, 48.5, 37.5, 0.8, now))
	z.merge(models.ConflictSignal{
		Latitude: 48.6, Longitude: 37.6, SourceKind: models.SignalEvents,
		Score: 0.7, EventCount: 5, LatestAt: now,
	})
	z.FinalScore = 0.7

	predictions := Predict([]*Zone{z}, 5)
	require.Len(t, predictions, 1)

	p := predictions[0]
	assert.True(t, p.IsPrediction)
	assert.InDelta(t, 48.6, p.CentroidLat, 1e-9)
	assert.InDelta(t, 37.6, p.CentroidLon, 1e-9)
	assert.InDelta(t, 0.42, p.FinalScore, 1e-9)
	assert.True(t, p.Sources[models.SignalPrediction])
}

func TestPredictionsRequireMultipleSources(t *testing.T) {
	now := time.Now().UTC()
	z := newZone(newsSignal(1, 48.5, 37.5, 0.9, now))
	z.FinalScore = 0.9

	assert.Empty(t, Predict([]*Zone{z}, 5), "single-source zones never spawn predictions")
}

func TestPredictionLimit(t *testing.T) {
	now := time.Now().UTC()
	var zones []*Zone
	for i := 0; i < 10; i++ {
		z := newZone(newsSignal(int64(i), 40.0+float64(i)*2, 30.0, 0.8, now))
		z.merge(models.ConflictSignal{
			Latitude: 40.0 + float64(i)*2, Longitude: 30.0,
			SourceKind: models.SignalEvents, Score: 0.6, EventCount: 1, LatestAt: now,
		})
		z.FinalScore = 0.5 + float64(i)*0.04
		zones = append(zones, z)
	}
	assert.Len(t, Predict(zones, 5), 5)
}

func TestToModelBBoxCoversMembers(t *testing.T) {
	now := time.Now().UTC()
	z := newZone(newsSignal(1, 48.5, 37.5, 0.8, now))
	z.merge(newsSignal(2, 48.8, 37.2, 0.6, now))

	m := z.ToModel(now)
	assert.LessOrEqual(t, m.BBoxMinLat, 48.5)
	assert.GreaterOrEqual(t, m.BBoxMaxLat, 48.8)
	assert.LessOrEqual(t, m.BBoxMinLon, 37.2)
	assert.GreaterOrEqual(t, m.BBoxMaxLon, 37.5)
	assert.NotEmpty(t, m.ZoneID)
}

func TestRecencyDecay(t *testing.T) {
	now := time.Now().UTC()
	gpr := models.RiskIndexContext{RiskLevel: "low"}

	fresh := newZone(newsSignal(1, 48.5, 37.5, 0.5, now))
	stale := newZone(newsSignal(1, 48.5, 37.5, 0.5, now.AddDate(0, 0, -20)))

	freshScore := FinalScore(fresh, gpr, now)
	staleScore := FinalScore(stale, gpr, now)
	assert.Greater(t, freshScore, staleScore)
	assert.InDelta(t, 0.1, freshScore-staleScore, 1e-9, "recency bonus tops out at 0.1")
}

func TestWeightedBaseUsesSourceWeights(t *testing.T) {
	now := time.Now().UTC()
	z := newZone(models.ConflictSignal{
		Latitude: 10, Longitude: 10, SourceKind: models.SignalNews,
		Score: 1.0, EventCount: 1, LatestAt: now,
	})
	z.merge(models.ConflictSignal{
		Latitude: 10, Longitude: 10, SourceKind: models.SignalTone,
		Score: 0.0, EventCount: 1, LatestAt: now,
	})

	// base = (1.0*0.4 + 0.0*0.2) / 0.6
	gpr := models.RiskIndexContext{RiskLevel: "low"}
	got := FinalScore(z, gpr, now)
	expectedBase := (1.0*0.4 + 0.0*0.2) / 0.6
	// + multi-source 0.1 + volume 0.1 + recency 0.1
	expected := math.Min(1.0, expectedBase+0.1+0.1+0.1)
	assert.InDelta(t, expected, got, 1e-9, fmt.Sprintf("base %.3f", expectedBase))
}
