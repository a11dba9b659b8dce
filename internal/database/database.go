package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Connect establishes a connection to PostgreSQL
func Connect(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ConnectRedis establishes a connection to Redis
func ConnectRedis(redisURL string) *redis.Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 5
	opt.PoolTimeout = 10 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
	opt.ConnMaxLifetime = 30 * time.Minute

	return redis.NewClient(opt)
}

// Migrate runs database migrations. Statements are idempotent and additive;
// schema versions only ever grow.
func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Articles table (raw + enrichment columns)
		`CREATE TABLE IF NOT EXISTS articles (
			id BIGSERIAL PRIMARY KEY,
			url VARCHAR(1000) NOT NULL UNIQUE,
			content_hash VARCHAR(64) NOT NULL,
			title VARCHAR(1000) NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			summary TEXT,
			source_name VARCHAR(200) NOT NULL,
			source_url VARCHAR(1000) NOT NULL DEFAULT '',
			published_at TIMESTAMP WITH TIME ZONE NOT NULL,
			fetched_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			image_url VARCHAR(1000),

			original_language VARCHAR(8) NOT NULL DEFAULT '',
			canonical_language VARCHAR(8) NOT NULL DEFAULT '',
			translated_title TEXT,
			translated_content TEXT,

			country VARCHAR(100),
			region VARCHAR(100),
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,

			risk_level VARCHAR(10) CHECK (risk_level IN ('low', 'medium', 'high', 'critical')),
			risk_score DOUBLE PRECISION CHECK (risk_score >= 0 AND risk_score <= 1),
			sentiment_score DOUBLE PRECISION CHECK (sentiment_score >= -1 AND sentiment_score <= 1),
			category VARCHAR(100),

			persons TEXT[] DEFAULT '{}',
			organizations TEXT[] DEFAULT '{}',
			locations TEXT[] DEFAULT '{}',
			misc_entities TEXT[] DEFAULT '{}',

			processing_state VARCHAR(10) NOT NULL DEFAULT 'raw'
				CHECK (processing_state IN ('raw', 'enriching', 'enriched', 'failed')),
			retry_count INTEGER NOT NULL DEFAULT 0,
			failed_reason TEXT,
			failed_at TIMESTAMP WITH TIME ZONE,

			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),

			-- risk_score set iff risk_level set; coordinates both or neither
			CHECK ((risk_level IS NULL) = (risk_score IS NULL)),
			CHECK ((latitude IS NULL) = (longitude IS NULL))
		)`,

		// Sources table (mirror of the in-memory registry, for observability)
		`CREATE TABLE IF NOT EXISTS sources (
			name VARCHAR(200) PRIMARY KEY,
			feed_url VARCHAR(1000) NOT NULL UNIQUE,
			protocol VARCHAR(10) NOT NULL DEFAULT 'rss',
			language VARCHAR(8) NOT NULL,
			country VARCHAR(100) NOT NULL DEFAULT '',
			region VARCHAR(100) NOT NULL DEFAULT '',
			priority VARCHAR(10) NOT NULL DEFAULT 'standard',
			conflict_zone_tag VARCHAR(100) NOT NULL DEFAULT '',
			enabled BOOLEAN NOT NULL DEFAULT true
		)`,

		// External conflict events (ACLED-shaped)
		`CREATE TABLE IF NOT EXISTS conflict_events (
			id BIGSERIAL PRIMARY KEY,
			event_id VARCHAR(100) NOT NULL,
			event_date DATE NOT NULL,
			country VARCHAR(100) NOT NULL DEFAULT '',
			region VARCHAR(100) NOT NULL DEFAULT '',
			location VARCHAR(300) NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			event_type VARCHAR(100) NOT NULL DEFAULT '',
			sub_event_type VARCHAR(100) NOT NULL DEFAULT '',
			actor1 VARCHAR(300) NOT NULL DEFAULT '',
			actor2 VARCHAR(300) NOT NULL DEFAULT '',
			fatalities INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			imported_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE(event_id, event_date)
		)`,

		// Global event-tone records (58-column export reduced to what we read)
		`CREATE TABLE IF NOT EXISTS tone_events (
			id BIGSERIAL PRIMARY KEY,
			global_event_id BIGINT NOT NULL UNIQUE,
			sql_date INTEGER NOT NULL,
			event_code VARCHAR(10) NOT NULL DEFAULT '',
			event_root_code VARCHAR(10) NOT NULL DEFAULT '',
			goldstein_scale DOUBLE PRECISION NOT NULL DEFAULT 0,
			avg_tone DOUBLE PRECISION NOT NULL DEFAULT 0,
			num_mentions INTEGER NOT NULL DEFAULT 0,
			num_sources INTEGER NOT NULL DEFAULT 0,
			num_articles INTEGER NOT NULL DEFAULT 0,
			actor1_name VARCHAR(300) NOT NULL DEFAULT '',
			actor2_name VARCHAR(300) NOT NULL DEFAULT '',
			location_name VARCHAR(300) NOT NULL DEFAULT '',
			country_code VARCHAR(10) NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			source_url VARCHAR(1000) NOT NULL DEFAULT '',
			imported_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,

		// Geopolitical risk index (monthly series, replaced wholesale)
		`CREATE TABLE IF NOT EXISTS risk_index (
			date VARCHAR(20) PRIMARY KEY,
			gpr DOUBLE PRECISION NOT NULL,
			gpr_threats DOUBLE PRECISION NOT NULL DEFAULT 0,
			gpr_acts DOUBLE PRECISION NOT NULL DEFAULT 0,
			imported_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,

		// Consolidated conflict zones (written only by replace_zones)
		`CREATE TABLE IF NOT EXISTS conflict_zones (
			zone_id UUID PRIMARY KEY,
			centroid_lat DOUBLE PRECISION NOT NULL,
			centroid_lon DOUBLE PRECISION NOT NULL,
			bbox_min_lon DOUBLE PRECISION NOT NULL,
			bbox_min_lat DOUBLE PRECISION NOT NULL,
			bbox_max_lon DOUBLE PRECISION NOT NULL,
			bbox_max_lat DOUBLE PRECISION NOT NULL,
			location_label VARCHAR(300) NOT NULL,
			country VARCHAR(100),
			region VARCHAR(100),
			sources TEXT[] NOT NULL DEFAULT '{}',
			source_scores JSONB NOT NULL DEFAULT '{}',
			total_events INTEGER NOT NULL DEFAULT 0,
			total_fatalities INTEGER NOT NULL DEFAULT 0,
			actors TEXT[] NOT NULL DEFAULT '{}',
			event_types TEXT[] NOT NULL DEFAULT '{}',
			latest_event_at TIMESTAMP WITH TIME ZONE NOT NULL,
			final_risk_score DOUBLE PRECISION NOT NULL CHECK (final_risk_score >= 0 AND final_risk_score <= 1),
			risk_level VARCHAR(10) NOT NULL CHECK (risk_level IN ('low', 'medium', 'high', 'critical')),
			monitoring_frequency VARCHAR(10) NOT NULL,
			member_article_ids BIGINT[] NOT NULL DEFAULT '{}',
			is_prediction BOOLEAN NOT NULL DEFAULT false,
			ai_assessment TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,

		// Integrator run log
		`CREATE TABLE IF NOT EXISTS feed_updates (
			id BIGSERIAL PRIMARY KEY,
			source VARCHAR(50) NOT NULL,
			started_at TIMESTAMP WITH TIME ZONE NOT NULL,
			ended_at TIMESTAMP WITH TIME ZONE NOT NULL,
			records_ingested INTEGER NOT NULL DEFAULT 0,
			status VARCHAR(10) NOT NULL DEFAULT 'success',
			error_message TEXT,
			data_date_range VARCHAR(100) NOT NULL DEFAULT ''
		)`,

		// Consolidator run bookkeeping (metrics + cold-start detection)
		`CREATE TABLE IF NOT EXISTS consolidation_runs (
			id BIGSERIAL PRIMARY KEY,
			started_at TIMESTAMP WITH TIME ZONE NOT NULL,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			zone_count INTEGER NOT NULL DEFAULT 0,
			signal_count INTEGER NOT NULL DEFAULT 0,
			status VARCHAR(10) NOT NULL DEFAULT 'success',
			error_message TEXT
		)`,

		// Indexes for Articles
		`CREATE INDEX IF NOT EXISTS idx_articles_state_fetched ON articles(processing_state, fetched_at)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_country_published ON articles(country, published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_coords ON articles(latitude, longitude)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_risk ON articles(risk_level, published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_hash ON articles(content_hash)`,

		// Indexes for external feeds
		`CREATE INDEX IF NOT EXISTS idx_conflict_events_date ON conflict_events(event_date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_conflict_events_coords ON conflict_events(latitude, longitude)`,
		`CREATE INDEX IF NOT EXISTS idx_tone_events_sqldate ON tone_events(sql_date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_feed_updates_source ON feed_updates(source, started_at DESC)`,

		// Indexes for zones
		`CREATE INDEX IF NOT EXISTS idx_zones_risk_level ON conflict_zones(risk_level)`,
		`CREATE INDEX IF NOT EXISTS idx_zones_score ON conflict_zones(final_risk_score DESC)`,

		// updated_at trigger
		`CREATE OR REPLACE FUNCTION update_updated_at_column()
		RETURNS TRIGGER AS $$
		BEGIN
			NEW.updated_at = NOW();
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`,

		`DROP TRIGGER IF EXISTS update_articles_updated_at ON articles`,
		`CREATE TRIGGER update_articles_updated_at
		 BEFORE UPDATE ON articles
		 FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", i+1, err)
		}
	}

	return nil
}
