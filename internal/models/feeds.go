// internal/models/feeds.go
// External dataset records: conflict events, global event tone, risk index.

package models

import "time"

// EventRecord is one row of the external conflict events dataset.
// Identity is (EventID, EventDate); re-importing the same window is a no-op.
type EventRecord struct {
	ID           int64     `db:"id" json:"id"`
	EventID      string    `db:"event_id" json:"event_id"`
	EventDate    time.Time `db:"event_date" json:"event_date"`
	Country      string    `db:"country" json:"country"`
	Region       string    `db:"region" json:"region"`
	Location     string    `db:"location" json:"location"`
	Latitude     float64   `db:"latitude" json:"latitude"`
	Longitude    float64   `db:"longitude" json:"longitude"`
	EventType    string    `db:"event_type" json:"event_type"`
	SubEventType string    `db:"sub_event_type" json:"sub_event_type"`
	Actor1       string    `db:"actor1" json:"actor1"`
	Actor2       string    `db:"actor2" json:"actor2"`
	Fatalities   int       `db:"fatalities" json:"fatalities"`
	Notes        string    `db:"notes" json:"notes"`
	ImportedAt   time.Time `db:"imported_at" json:"imported_at"`
}

// ToneEvent is one row of the global event-tone dataset, reduced to the
// columns the consolidator reads from the 58-column daily export.
type ToneEvent struct {
	ID             int64     `db:"id" json:"id"`
	GlobalEventID  int64     `db:"global_event_id" json:"global_event_id"`
	SQLDate        int       `db:"sql_date" json:"sql_date"`
	EventCode      string    `db:"event_code" json:"event_code"`
	EventRootCode  string    `db:"event_root_code" json:"event_root_code"`
	GoldsteinScale float64   `db:"goldstein_scale" json:"goldstein_scale"`
	AvgTone        float64   `db:"avg_tone" json:"avg_tone"`
	NumMentions    int       `db:"num_mentions" json:"num_mentions"`
	NumSources     int       `db:"num_sources" json:"num_sources"`
	NumArticles    int       `db:"num_articles" json:"num_articles"`
	Actor1Name     string    `db:"actor1_name" json:"actor1_name"`
	Actor2Name     string    `db:"actor2_name" json:"actor2_name"`
	LocationName   string    `db:"location_name" json:"location_name"`
	CountryCode    string    `db:"country_code" json:"country_code"`
	Latitude       float64   `db:"latitude" json:"latitude"`
	Longitude      float64   `db:"longitude" json:"longitude"`
	SourceURL      string    `db:"source_url" json:"source_url"`
	ImportedAt     time.Time `db:"imported_at" json:"imported_at"`
}

// RiskIndexPoint is one monthly observation of the geopolitical risk index.
type RiskIndexPoint struct {
	Date       string    `db:"date" json:"date"`
	GPR        float64   `db:"gpr" json:"gpr"`
	GPRThreats float64   `db:"gpr_threats" json:"gpr_threats"`
	GPRActs    float64   `db:"gpr_acts" json:"gpr_acts"`
	ImportedAt time.Time `db:"imported_at" json:"imported_at"`
}

// RiskIndexContext is the current global risk posture derived from the
// latest risk index points: level from the absolute value, trend from the
// latest observation against the one before it.
type RiskIndexContext struct {
	CurrentGPR float64 `json:"current_gpr"`
	Trend      string  `json:"trend"`      // increasing | stable | decreasing
	RiskLevel  string  `json:"risk_level"` // very_high | high | medium | low
}

// Risk index level thresholds (index value, not [0,1] score)
const (
	GPRVeryHighThreshold = 200.0
	GPRHighThreshold     = 150.0
	GPRMediumThreshold   = 100.0
)

// LevelForGPR maps an index value to a global risk level.
func LevelForGPR(gpr float64) string {
	switch {
	case gpr > GPRVeryHighThreshold:
		return "very_high"
	case gpr > GPRHighThreshold:
		return "high"
	case gpr > GPRMediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

// FeedUpdateLog records one integrator run, success or failure.
type FeedUpdateLog struct {
	ID              int64     `db:"id" json:"id"`
	Source          string    `db:"source" json:"source"`
	StartedAt       time.Time `db:"started_at" json:"started_at"`
	EndedAt         time.Time `db:"ended_at" json:"ended_at"`
	RecordsIngested int       `db:"records_ingested" json:"records_ingested"`
	Status          string    `db:"status" json:"status"` // success | error
	ErrorMessage    *string   `db:"error_message" json:"error_message,omitempty"`
	DataDateRange   string    `db:"data_date_range" json:"data_date_range"`
}
