// internal/repository/event_repository.go
// Storage for the external intelligence feeds: conflict events, global
// event tone, and the geopolitical risk index, plus the per-run feed log.

package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"riskmap/internal/models"
	apperrors "riskmap/pkg/errors"
)

// EventRepository handles external feed tables
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// UpsertEventRecords inserts event records idempotently on
// (event_id, event_date). Returns the number of new rows.
func (r *EventRepository) UpsertEventRecords(records []models.EventRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var inserted int
	err := withRetry("upsert_event_records", func() error {
		inserted = 0
		tx, err := r.db.Beginx()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		query := `
			INSERT INTO conflict_events (
				event_id, event_date, country, region, location, latitude, longitude,
				event_type, sub_event_type, actor1, actor2, fatalities, notes
			) VALUES (
				:event_id, :event_date, :country, :region, :location, :latitude, :longitude,
				:event_type, :sub_event_type, :actor1, :actor2, :fatalities, :notes
			) ON CONFLICT (event_id, event_date) DO NOTHING`

		for i := range records {
			res, err := tx.NamedExec(query, records[i])
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return tx.Commit()
	})
	return inserted, err
}

// UpsertToneEvents inserts tone records idempotently on global_event_id.
func (r *EventRepository) UpsertToneEvents(records []models.ToneEvent) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var inserted int
	err := withRetry("upsert_tone_events", func() error {
		inserted = 0
		tx, err := r.db.Beginx()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		query := `
			INSERT INTO tone_events (
				global_event_id, sql_date, event_code, event_root_code,
				goldstein_scale, avg_tone, num_mentions, num_sources, num_articles,
				actor1_name, actor2_name, location_name, country_code,
				latitude, longitude, source_url
			) VALUES (
				:global_event_id, :sql_date, :event_code, :event_root_code,
				:goldstein_scale, :avg_tone, :num_mentions, :num_sources, :num_articles,
				:actor1_name, :actor2_name, :location_name, :country_code,
				:latitude, :longitude, :source_url
			) ON CONFLICT (global_event_id) DO NOTHING`

		for i := range records {
			res, err := tx.NamedExec(query, records[i])
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return tx.Commit()
	})
	return inserted, err
}

// ReplaceRiskIndex swaps the whole risk index series in one transaction.
func (r *EventRepository) ReplaceRiskIndex(points []models.RiskIndexPoint) error {
	return withRetry("replace_risk_index", func() error {
		tx, err := r.db.Beginx()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM risk_index`); err != nil {
			return err
		}

		query := `
			INSERT INTO risk_index (date, gpr, gpr_threats, gpr_acts)
			VALUES (:date, :gpr, :gpr_threats, :gpr_acts)
			ON CONFLICT (date) DO NOTHING`

		for i := range points {
			if _, err := tx.NamedExec(query, points[i]); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// LatestRiskContext derives the global risk posture from the latest index
// observations: level from the current value, trend from a ±10% move of the
// current value against the one before it.
func (r *EventRepository) LatestRiskContext() (models.RiskIndexContext, error) {
	ctx := models.RiskIndexContext{Trend: "stable", RiskLevel: "medium"}

	var values []float64
	err := r.db.Select(&values, `SELECT gpr FROM risk_index ORDER BY date DESC LIMIT 3`)
	if err != nil {
		return ctx, apperrors.NewStorageError("latest_risk_context", err)
	}
	if len(values) == 0 {
		return ctx, nil
	}

	ctx.CurrentGPR = values[0]
	ctx.RiskLevel = models.LevelForGPR(values[0])
	if len(values) >= 2 {
		switch {
		case values[0] > values[1]*1.1:
			ctx.Trend = "increasing"
		case values[0] < values[1]*0.9:
			ctx.Trend = "decreasing"
		}
	}
	return ctx, nil
}

// EventCluster is a per-location aggregation of conflict events feeding the
// consolidator.
type EventCluster struct {
	Location   string    `db:"location"`
	Country    string    `db:"country"`
	Region     string    `db:"region"`
	Latitude   float64   `db:"latitude"`
	Longitude  float64   `db:"longitude"`
	EventType  string    `db:"event_type"`
	EventCount int       `db:"event_count"`
	Fatalities int       `db:"fatalities"`
	LatestDate time.Time `db:"latest_date"`
	Actor1     string    `db:"actor1"`
	Actor2     string    `db:"actor2"`
}

// EventClustersSince groups conflict-typed events by location within the
// lookback window.
func (r *EventRepository) EventClustersSince(cutoff time.Time, conflictTypes []string) ([]EventCluster, error) {
	query, args, err := sqlx.In(`
		SELECT location, country, region, latitude, longitude,
		       MIN(event_type) AS event_type,
		       COUNT(*) AS event_count,
		       COALESCE(SUM(fatalities), 0) AS fatalities,
		       MAX(event_date) AS latest_date,
		       MIN(actor1) AS actor1,
		       MIN(actor2) AS actor2
		FROM conflict_events
		WHERE event_date >= ?
		AND event_type IN (?)
		GROUP BY location, country, region, latitude, longitude
		ORDER BY event_count DESC, fatalities DESC`, cutoff, conflictTypes)
	if err != nil {
		return nil, fmt.Errorf("building event cluster query: %w", err)
	}

	var clusters []EventCluster
	if err := r.db.Select(&clusters, r.db.Rebind(query), args...); err != nil {
		return nil, apperrors.NewStorageError("event_clusters", err)
	}
	return clusters, nil
}

// ToneCluster is a per-location aggregation of negative-tone events.
type ToneCluster struct {
	Location     string  `db:"location"`
	CountryCode  string  `db:"country_code"`
	Latitude     float64 `db:"latitude"`
	Longitude    float64 `db:"longitude"`
	AvgTone      float64 `db:"avg_tone"`
	MinTone      float64 `db:"min_tone"`
	AvgGoldstein float64 `db:"avg_goldstein"`
	EventCount   int     `db:"event_count"`
	LatestDate   int     `db:"latest_date"`
}

// ToneClustersSince groups negative-tone events by location. Only clusters
// with at least minEvents events qualify as signals.
func (r *EventRepository) ToneClustersSince(cutoffSQLDate, minEvents int) ([]ToneCluster, error) {
	query := `
		SELECT location_name AS location, country_code,
		       latitude, longitude,
		       AVG(avg_tone) AS avg_tone,
		       MIN(avg_tone) AS min_tone,
		       AVG(goldstein_scale) AS avg_goldstein,
		       COUNT(*) AS event_count,
		       MAX(sql_date) AS latest_date
		FROM tone_events
		WHERE sql_date >= $1
		AND latitude IS NOT NULL AND longitude IS NOT NULL
		GROUP BY location_name, country_code, latitude, longitude
		HAVING COUNT(*) >= $2 AND AVG(avg_tone) < 0
		ORDER BY event_count DESC, avg_tone ASC`

	var clusters []ToneCluster
	if err := r.db.Select(&clusters, query, cutoffSQLDate, minEvents); err != nil {
		return nil, apperrors.NewStorageError("tone_clusters", err)
	}
	return clusters, nil
}

// LogFeedUpdate records one integrator run.
func (r *EventRepository) LogFeedUpdate(entry models.FeedUpdateLog) error {
	return withRetry("log_feed_update", func() error {
		_, err := r.db.NamedExec(`
			INSERT INTO feed_updates (source, started_at, ended_at, records_ingested, status, error_message, data_date_range)
			VALUES (:source, :started_at, :ended_at, :records_ingested, :status, :error_message, :data_date_range)`, entry)
		return err
	})
}

// LastSuccessfulUpdate returns the most recent successful run per feed.
func (r *EventRepository) LastSuccessfulUpdate(source string) (*models.FeedUpdateLog, error) {
	var entry models.FeedUpdateLog
	err := r.db.Get(&entry, `
		SELECT id, source, started_at, ended_at, records_ingested, status, error_message, data_date_range
		FROM feed_updates
		WHERE source = $1 AND status = 'success'
		ORDER BY ended_at DESC LIMIT 1`, source)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError("last_successful_update", err)
	}
	return &entry, nil
}
