package consolidator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskmap/internal/models"
)

func TestWarmingUpCollection(t *testing.T) {
	collection := BuildFeatureCollection(nil, true, time.Now().UTC())

	assert.Equal(t, "FeatureCollection", collection.Type)
	assert.Equal(t, "warming_up", collection.Metadata.Status)
	assert.Empty(t, collection.Features)
	assert.Equal(t, 0, collection.Metadata.TotalZones)
	assert.Equal(t, []float64{-180, -90, 180, 90}, collection.Metadata.BBoxGlobal)
}

func TestFeatureCollectionShape(t *testing.T) {
	country := "Ukraine"
	zones := []models.ConflictZone{
		{
			ZoneID:              "z-1",
			CentroidLat:         48.5,
			CentroidLon:         37.5,
			BBoxMinLon:          37.4,
			BBoxMinLat:          48.4,
			BBoxMaxLon:          37.6,
			BBoxMaxLat:          48.6,
			LocationLabel:       "Donetsk Oblast",
			Country:             &country,
			Sources:             []string{"events", "news"},
			TotalEvents:         30,
			TotalFatalities:     75,
			Actors:              []string{"Military Forces A"},
			EventTypes:          []string{"Battles"},
			LatestEventAt:       time.Now().UTC(),
			FinalRiskScore:      0.92,
			RiskLevel:           models.RiskCritical,
			MonitoringFrequency: "daily",
		},
		{
			ZoneID:              "z-2",
			CentroidLat:         31.5,
			CentroidLon:         34.4,
			LocationLabel:       "Gaza",
			Sources:             []string{"news"},
			LatestEventAt:       time.Now().UTC(),
			FinalRiskScore:      0.45,
			RiskLevel:           models.RiskMedium,
			MonitoringFrequency: "monthly",
		},
	}

	collection := BuildFeatureCollection(zones, false, time.Now().UTC())

	assert.Empty(t, collection.Metadata.Status)
	assert.Equal(t, 2, collection.Metadata.TotalZones)
	assert.Equal(t, 1, collection.Metadata.PriorityZones)
	require.Len(t, collection.Features, 2)

	f := collection.Features[0]
	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, "Point", f.Geometry.Type)
	// GeoJSON coordinate order is [lon, lat]
	assert.Equal(t, []float64{37.5, 48.5}, f.Geometry.Coordinates)
	assert.Equal(t, "z-1", f.Properties.ZoneID)
	assert.Equal(t, models.RiskCritical, f.Properties.RiskLevel)
	assert.Equal(t, []float64{37.4, 48.4, 37.6, 48.6}, f.Properties.BBox)
	assert.Equal(t, 75, f.Properties.TotalFatalities)

	// global bbox spans both zones
	bbox := collection.Metadata.BBoxGlobal
	assert.InDelta(t, 34.4, bbox[0], 1e-9)
	assert.InDelta(t, 31.5, bbox[1], 1e-9)
	assert.InDelta(t, 37.5, bbox[2], 1e-9)
	assert.InDelta(t, 48.5, bbox[3], 1e-9)

	// the collection must serialize as valid GeoJSON
	raw, err := json.Marshal(collection)
	require.NoError(t, err)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, "FeatureCollection", parsed["type"])
}
