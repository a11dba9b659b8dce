// internal/models/models.go
// Core entities of the ingestion-enrichment-fusion pipeline.

package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Processing states for an article's enrichment lifecycle.
// Transitions: raw -> enriching -> (enriched | failed); failed rows re-enter
// raw after a cooldown until the retry budget is spent.
const (
	StateRaw       = "raw"
	StateEnriching = "enriching"
	StateEnriched  = "enriched"
	StateFailed    = "failed"
)

// Risk levels shared by articles and conflict zones.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Source priorities
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityStandard = "standard"
)

// Feed protocols
const (
	ProtocolRSS     = "rss"
	ProtocolAtom    = "atom"
	ProtocolJSONAPI = "json-api"
)

// Article is a single news item. Raw fields are written by the fetcher pool;
// enrichment fields are written exactly once by the enricher (plus scheduled
// re-enrichment).
type Article struct {
	ID          int64     `db:"id" json:"id"`
	URL         string    `db:"url" json:"url"`
	ContentHash string    `db:"content_hash" json:"content_hash"`
	Title       string    `db:"title" json:"title"`
	Content     string    `db:"content" json:"content"`
	Summary     *string   `db:"summary" json:"summary,omitempty"`
	SourceName  string    `db:"source_name" json:"source_name"`
	SourceURL   string    `db:"source_url" json:"source_url"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	FetchedAt   time.Time `db:"fetched_at" json:"fetched_at"`
	ImageURL    *string   `db:"image_url" json:"image_url,omitempty"`

	OriginalLanguage  string  `db:"original_language" json:"original_language"`
	CanonicalLanguage string  `db:"canonical_language" json:"canonical_language"`
	TranslatedTitle   *string `db:"translated_title" json:"translated_title,omitempty"`
	TranslatedContent *string `db:"translated_content" json:"translated_content,omitempty"`

	Country   *string  `db:"country" json:"country,omitempty"`
	Region    *string  `db:"region" json:"region,omitempty"`
	Latitude  *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64 `db:"longitude" json:"longitude,omitempty"`

	RiskLevel      *string  `db:"risk_level" json:"risk_level,omitempty"`
	RiskScore      *float64 `db:"risk_score" json:"risk_score,omitempty"`
	SentimentScore *float64 `db:"sentiment_score" json:"sentiment_score,omitempty"`
	Category       *string  `db:"category" json:"category,omitempty"`

	Persons       pq.StringArray `db:"persons" json:"persons,omitempty"`
	Organizations pq.StringArray `db:"organizations" json:"organizations,omitempty"`
	Locations     pq.StringArray `db:"locations" json:"locations,omitempty"`
	MiscEntities  pq.StringArray `db:"misc_entities" json:"misc_entities,omitempty"`

	ProcessingState string     `db:"processing_state" json:"processing_state"`
	RetryCount      int        `db:"retry_count" json:"retry_count"`
	FailedReason    *string    `db:"failed_reason" json:"failed_reason,omitempty"`
	FailedAt        *time.Time `db:"failed_at" json:"failed_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasCoordinates reports whether both coordinates are set.
// The schema enforces that they are either both set or both null.
func (a *Article) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// ComputeContentHash builds the deduplication key over the normalized
// (title, url) pair. Lowercased and whitespace-collapsed so trivial feed
// reformatting does not defeat deduplication.
func ComputeContentHash(title, url string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(title), " ")) + "|" + strings.TrimSpace(strings.ToLower(url))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

// Enrichment carries the output of one enricher pass over a claimed article.
// Nil fields mean the corresponding step produced nothing.
type Enrichment struct {
	OriginalLanguage  string
	TranslatedTitle   *string
	TranslatedContent *string
	Country           *string
	Region            *string
	Latitude          *float64
	Longitude         *float64
	RiskLevel         *string
	RiskScore         *float64
	SentimentScore    *float64
	Category          *string
	Persons           []string
	Organizations     []string
	Locations         []string
	MiscEntities      []string
}

// Complete reports whether the minimum enrichment (language, sentiment,
// risk) was produced, which is what separates enriched from failed.
func (e *Enrichment) Complete() bool {
	return e.OriginalLanguage != "" && e.SentimentScore != nil && e.RiskLevel != nil && e.RiskScore != nil
}

// Source is one configured feed endpoint from the static registry.
type Source struct {
	Name            string `db:"name" json:"name"`
	FeedURL         string `db:"feed_url" json:"feed_url"`
	Protocol        string `db:"protocol" json:"protocol"`
	Language        string `db:"language" json:"language"`
	Country         string `db:"country" json:"country"`
	Region          string `db:"region" json:"region"`
	Priority        string `db:"priority" json:"priority"`
	ConflictZoneTag string `db:"conflict_zone_tag" json:"conflict_zone_tag,omitempty"`
	Enabled         bool   `db:"enabled" json:"enabled"`
}

// ArticleFilter narrows list_articles queries. Zero values mean "no filter".
// Since/Until are parsed from RFC3339 query params by the handler.
type ArticleFilter struct {
	Language  string     `query:"language" validate:"omitempty,len=2"`
	Country   string     `query:"country" validate:"omitempty,max=100"`
	RiskLevel string     `query:"risk_level" validate:"omitempty,oneof=low medium high critical"`
	State     string     `query:"state" validate:"omitempty,oneof=raw enriching enriched failed"`
	Since     *time.Time `query:"-"`
	Until     *time.Time `query:"-"`
	Limit     int        `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset    int        `query:"offset" validate:"omitempty,min=0"`
}

// ZoneFilter narrows list_zones queries.
type ZoneFilter struct {
	RiskLevel string     `query:"risk_level" validate:"omitempty,oneof=low medium high critical"`
	Since     *time.Time `query:"-"`
	MinScore  float64    `query:"min_score" validate:"omitempty,min=0,max=1"`
	Limit     int        `query:"limit" validate:"omitempty,min=1,max=500"`
}

// RiskLevelForScore maps a score in [0,1] to a risk level using the shared
// thresholds. Boundary values map to the higher level (0.8 is critical).
func RiskLevelForScore(score float64) string {
	switch {
	case score >= 0.8:
		return RiskCritical
	case score >= 0.6:
		return RiskHigh
	case score >= 0.4:
		return RiskMedium
	default:
		return RiskLow
	}
}
