// internal/consolidator/geojson.go
// Projection of the stored zone collection into the GeoJSON feature
// collection consumed by satellite tasking and map dashboards.

package consolidator

import (
	"time"

	"riskmap/internal/models"
)

// BuildFeatureCollection converts stored zones into the outbound GeoJSON
// document. warmingUp marks the cold-start case before the first
// consolidation run.
func BuildFeatureCollection(zones []models.ConflictZone, warmingUp bool, generatedAt time.Time) models.FeatureCollection {
	features := make([]models.Feature, 0, len(zones))
	priority := 0

	minLon, minLat := 180.0, 90.0
	maxLon, maxLat := -180.0, -90.0

	for _, z := range zones {
		if z.RiskLevel == models.RiskCritical || z.RiskLevel == models.RiskHigh {
			priority++
		}
		if z.CentroidLon < minLon {
			minLon = z.CentroidLon
		}
		if z.CentroidLon > maxLon {
			maxLon = z.CentroidLon
		}
		if z.CentroidLat < minLat {
			minLat = z.CentroidLat
		}
		if z.CentroidLat > maxLat {
			maxLat = z.CentroidLat
		}

		features = append(features, models.Feature{
			Type: "Feature",
			Geometry: models.Geometry{
				Type:        "Point",
				Coordinates: []float64{z.CentroidLon, z.CentroidLat},
			},
			Properties: models.FeatureProperties{
				ZoneID:              z.ZoneID,
				LocationLabel:       z.LocationLabel,
				Country:             z.Country,
				RiskScore:           z.FinalRiskScore,
				RiskLevel:           z.RiskLevel,
				Sources:             z.Sources,
				TotalEvents:         z.TotalEvents,
				TotalFatalities:     z.TotalFatalities,
				Actors:              z.Actors,
				EventTypes:          z.EventTypes,
				LatestEventAt:       z.LatestEventAt,
				MonitoringFrequency: z.MonitoringFrequency,
				IsPrediction:        z.IsPrediction,
				BBox:                []float64{z.BBoxMinLon, z.BBoxMinLat, z.BBoxMaxLon, z.BBoxMaxLat},
			},
		})
	}

	bboxGlobal := []float64{minLon, minLat, maxLon, maxLat}
	if len(zones) == 0 {
		bboxGlobal = []float64{-180, -90, 180, 90}
	}

	meta := models.CollectionMeta{
		GeneratedAt:   generatedAt,
		TotalZones:    len(features),
		PriorityZones: priority,
		DataSources: []string{
			models.SignalNews, models.SignalEvents, models.SignalTone,
			models.SignalRiskIndex, models.SignalPrediction,
		},
		BBoxGlobal: bboxGlobal,
		MonitoringStrategy: models.MonitoringStrategy{
			CriticalZonesFrequency: "daily",
			HighZonesFrequency:     "weekly",
			MediumZonesFrequency:   "monthly",
		},
	}
	if warmingUp {
		meta.Status = "warming_up"
	}

	return models.FeatureCollection{
		Type:     "FeatureCollection",
		Metadata: meta,
		Features: features,
	}
}
