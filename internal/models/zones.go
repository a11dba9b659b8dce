// internal/models/zones.go
// Conflict zones, the signals that feed them, and the GeoJSON projection
// consumed by satellite tasking and map dashboards.

package models

import (
	"time"

	"github.com/lib/pq"
)

// Signal source kinds and their fusion weights.
const (
	SignalNews       = "news"
	SignalEvents     = "events"
	SignalTone       = "tone"
	SignalRiskIndex  = "risk_index"
	SignalPrediction = "prediction"
)

// SignalWeights is the fixed per-source weight table used by the
// consolidator's weighted base score.
var SignalWeights = map[string]float64{
	SignalNews:      0.4,
	SignalEvents:    0.3,
	SignalTone:      0.2,
	SignalRiskIndex: 0.1,
}

// ConflictSignal is the common normalized form every consolidator input is
// cast to before clustering.
type ConflictSignal struct {
	Latitude   float64
	Longitude  float64
	SourceKind string
	Score      float64 // [0,1]
	Weight     float64

	Location   string
	Country    string
	Region     string
	EventCount int
	Fatalities int
	Actors     []string
	EventTypes []string
	LatestAt   time.Time
	ArticleID  int64 // set for news signals only
}

// ConflictZone is a clustered aggregation of spatially co-located signals.
type ConflictZone struct {
	ZoneID        string         `db:"zone_id" json:"zone_id"`
	CentroidLat   float64        `db:"centroid_lat" json:"centroid_lat"`
	CentroidLon   float64        `db:"centroid_lon" json:"centroid_lon"`
	BBoxMinLon    float64        `db:"bbox_min_lon" json:"bbox_min_lon"`
	BBoxMinLat    float64        `db:"bbox_min_lat" json:"bbox_min_lat"`
	BBoxMaxLon    float64        `db:"bbox_max_lon" json:"bbox_max_lon"`
	BBoxMaxLat    float64        `db:"bbox_max_lat" json:"bbox_max_lat"`
	LocationLabel string         `db:"location_label" json:"location_label"`
	Country       *string        `db:"country" json:"country,omitempty"`
	Region        *string        `db:"region" json:"region,omitempty"`
	Sources       pq.StringArray `db:"sources" json:"sources"`
	SourceScores  ScoreMap       `db:"source_scores" json:"source_scores"`

	TotalEvents     int            `db:"total_events" json:"total_events"`
	TotalFatalities int            `db:"total_fatalities" json:"total_fatalities"`
	Actors          pq.StringArray `db:"actors" json:"actors"`
	EventTypes      pq.StringArray `db:"event_types" json:"event_types"`
	LatestEventAt   time.Time      `db:"latest_event_at" json:"latest_event_at"`

	FinalRiskScore      float64        `db:"final_risk_score" json:"final_risk_score"`
	RiskLevel           string         `db:"risk_level" json:"risk_level"`
	MonitoringFrequency string         `db:"monitoring_frequency" json:"monitoring_frequency"`
	MemberArticleIDs    pq.Int64Array  `db:"member_article_ids" json:"member_article_ids"`
	IsPrediction        bool           `db:"is_prediction" json:"is_prediction"`
	AIAssessment        *string        `db:"ai_assessment" json:"ai_assessment,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
}

// MonitoringFrequencyForLevel derives the satellite tasking cadence.
func MonitoringFrequencyForLevel(level string) string {
	switch level {
	case RiskCritical:
		return "daily"
	case RiskHigh:
		return "weekly"
	default:
		return "monthly"
	}
}

// GeoJSON projection ------------------------------------------------------

// FeatureCollection is the /zones.geojson payload.
type FeatureCollection struct {
	Type     string        `json:"type"`
	Metadata CollectionMeta `json:"metadata"`
	Features []Feature     `json:"features"`
}

// CollectionMeta is the top-level metadata block of the feature collection.
type CollectionMeta struct {
	GeneratedAt        time.Time          `json:"generated_at"`
	Status             string             `json:"status,omitempty"` // "warming_up" on cold start
	TotalZones         int                `json:"total_zones"`
	PriorityZones      int                `json:"priority_zones"`
	DataSources        []string           `json:"data_sources"`
	BBoxGlobal         []float64          `json:"bbox_global"`
	MonitoringStrategy MonitoringStrategy `json:"monitoring_strategy"`
}

// MonitoringStrategy summarizes tasking cadence per risk tier.
type MonitoringStrategy struct {
	CriticalZonesFrequency string `json:"critical_zones_frequency"`
	HighZonesFrequency     string `json:"high_zones_frequency"`
	MediumZonesFrequency   string `json:"medium_zones_frequency"`
}

// Feature is one zone as a GeoJSON point feature.
type Feature struct {
	Type       string            `json:"type"`
	Geometry   Geometry          `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// Geometry is a GeoJSON point ([lon, lat]).
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// FeatureProperties carries the zone attributes downstream consumers read.
type FeatureProperties struct {
	ZoneID              string    `json:"zone_id"`
	LocationLabel       string    `json:"location_label"`
	Country             *string   `json:"country,omitempty"`
	RiskScore           float64   `json:"risk_score"`
	RiskLevel           string    `json:"risk_level"`
	Sources             []string  `json:"sources"`
	TotalEvents         int       `json:"total_events"`
	TotalFatalities     int       `json:"total_fatalities"`
	Actors              []string  `json:"actors"`
	EventTypes          []string  `json:"event_types"`
	LatestEventAt       time.Time `json:"latest_event_at"`
	MonitoringFrequency string    `json:"monitoring_frequency"`
	IsPrediction        bool      `json:"is_prediction"`
	BBox                []float64 `json:"bbox"`
}
