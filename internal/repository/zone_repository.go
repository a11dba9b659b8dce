// internal/repository/zone_repository.go
// Conflict zone storage. Only the consolidator writes zones, always through
// ReplaceZones, so readers observe either the old or the new collection.

package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"riskmap/internal/models"
	apperrors "riskmap/pkg/errors"
)

// ZoneRepository handles conflict zone and consolidation-run storage
type ZoneRepository struct {
	db *sqlx.DB
}

// NewZoneRepository creates a new zone repository
func NewZoneRepository(db *sqlx.DB) *ZoneRepository {
	return &ZoneRepository{db: db}
}

// ReplaceZones swaps the entire zone collection in one transaction.
func (r *ZoneRepository) ReplaceZones(zones []models.ConflictZone) error {
	return withRetry("replace_zones", func() error {
		tx, err := r.db.Beginx()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM conflict_zones`); err != nil {
			return err
		}

		query := `
			INSERT INTO conflict_zones (
				zone_id, centroid_lat, centroid_lon,
				bbox_min_lon, bbox_min_lat, bbox_max_lon, bbox_max_lat,
				location_label, country, region, sources, source_scores,
				total_events, total_fatalities, actors, event_types, latest_event_at,
				final_risk_score, risk_level, monitoring_frequency,
				member_article_ids, is_prediction, ai_assessment
			) VALUES (
				:zone_id, :centroid_lat, :centroid_lon,
				:bbox_min_lon, :bbox_min_lat, :bbox_max_lon, :bbox_max_lat,
				:location_label, :country, :region, :sources, :source_scores,
				:total_events, :total_fatalities, :actors, :event_types, :latest_event_at,
				:final_risk_score, :risk_level, :monitoring_frequency,
				:member_article_ids, :is_prediction, :ai_assessment
			)`

		for i := range zones {
			if _, err := tx.NamedExec(query, zones[i]); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// QueryZones returns zones matching the filter, highest risk first.
func (r *ZoneRepository) QueryZones(f models.ZoneFilter) ([]models.ConflictZone, error) {
	conds := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if f.RiskLevel != "" {
		conds = append(conds, fmt.Sprintf("risk_level = $%d", idx))
		args = append(args, f.RiskLevel)
		idx++
	}
	if f.Since != nil {
		conds = append(conds, fmt.Sprintf("latest_event_at >= $%d", idx))
		args = append(args, *f.Since)
		idx++
	}
	if f.MinScore > 0 {
		conds = append(conds, fmt.Sprintf("final_risk_score >= $%d", idx))
		args = append(args, f.MinScore)
		idx++
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}

	query := fmt.Sprintf(`
		SELECT zone_id, centroid_lat, centroid_lon,
		       bbox_min_lon, bbox_min_lat, bbox_max_lon, bbox_max_lat,
		       location_label, country, region, sources, source_scores,
		       total_events, total_fatalities, actors, event_types, latest_event_at,
		       final_risk_score, risk_level, monitoring_frequency,
		       member_article_ids, is_prediction, ai_assessment, created_at
		FROM conflict_zones
		WHERE %s
		ORDER BY final_risk_score DESC
		LIMIT %d`, strings.Join(conds, " AND "), limit)

	var zones []models.ConflictZone
	if err := r.db.Select(&zones, query, args...); err != nil {
		return nil, apperrors.NewStorageError("query_zones", err)
	}
	return zones, nil
}

// ConsolidationRun records one consolidator pass.
type ConsolidationRun struct {
	ID           int64     `db:"id"`
	StartedAt    time.Time `db:"started_at"`
	DurationMS   int64     `db:"duration_ms"`
	ZoneCount    int       `db:"zone_count"`
	SignalCount  int       `db:"signal_count"`
	Status       string    `db:"status"`
	ErrorMessage *string   `db:"error_message"`
}

// RecordRun persists consolidation run bookkeeping.
func (r *ZoneRepository) RecordRun(run ConsolidationRun) error {
	return withRetry("record_consolidation_run", func() error {
		_, err := r.db.NamedExec(`
			INSERT INTO consolidation_runs (started_at, duration_ms, zone_count, signal_count, status, error_message)
			VALUES (:started_at, :duration_ms, :zone_count, :signal_count, :status, :error_message)`, run)
		return err
	})
}

// LatestRun returns the most recent consolidation run, or nil before the
// first one (the cold-start "warming_up" case).
func (r *ZoneRepository) LatestRun() (*ConsolidationRun, error) {
	var run ConsolidationRun
	err := r.db.Get(&run, `
		SELECT id, started_at, duration_ms, zone_count, signal_count, status, error_message
		FROM consolidation_runs
		ORDER BY started_at DESC LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError("latest_consolidation_run", err)
	}
	return &run, nil
}
