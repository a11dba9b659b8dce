// internal/repository/article_repository.go
// Article store: deduplicated inserts, enrichment claim/commit lifecycle,
// and the read projections behind the query API.

package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"riskmap/internal/models"
	apperrors "riskmap/pkg/errors"
)

// articleColumns is the full column list used by claim/list queries so that
// StructScan stays aligned with the model.
const articleColumns = `
	id, url, content_hash, title, content, summary, source_name, source_url,
	published_at, fetched_at, image_url,
	original_language, canonical_language, translated_title, translated_content,
	country, region, latitude, longitude,
	risk_level, risk_score, sentiment_score, category,
	persons, organizations, locations, misc_entities,
	processing_state, retry_count, failed_reason, failed_at,
	created_at, updated_at`

// ArticleRepository handles article database operations
type ArticleRepository struct {
	db *sqlx.DB
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// withRetry runs a storage operation with exponential backoff. Beyond the
// budget the error surfaces as a StorageError so the caller can go unhealthy.
func withRetry(op string, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 10 * time.Second

	err := backoff.Retry(fn, bo)
	if err != nil {
		return apperrors.NewStorageError(op, err)
	}
	return nil
}

// InsertRawArticle inserts a fetched article if neither its URL nor its
// content hash is already present. Returns true when a row was inserted,
// false for a duplicate.
func (r *ArticleRepository) InsertRawArticle(a *models.Article) (bool, error) {
	query := `
		INSERT INTO articles (
			url, content_hash, title, content, summary, source_name, source_url,
			published_at, fetched_at, image_url, original_language, canonical_language,
			processing_state
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 'raw'
		WHERE NOT EXISTS (SELECT 1 FROM articles WHERE content_hash = $2)
		ON CONFLICT (url) DO NOTHING`

	var inserted bool
	err := withRetry("insert_raw_article", func() error {
		res, err := r.db.Exec(query,
			a.URL, a.ContentHash, a.Title, a.Content, a.Summary, a.SourceName, a.SourceURL,
			a.PublishedAt, a.FetchedAt, a.ImageURL, a.OriginalLanguage, a.CanonicalLanguage,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = n > 0
		return nil
	})
	return inserted, err
}

// ClaimForEnrichment atomically transitions up to batchSize raw rows fetched
// before olderThan into 'enriching' and returns them. SKIP LOCKED guarantees
// at-most-one concurrent enrichment per article across workers.
func (r *ArticleRepository) ClaimForEnrichment(batchSize int, olderThan time.Time) ([]models.Article, error) {
	query := fmt.Sprintf(`
		UPDATE articles SET processing_state = 'enriching'
		WHERE id IN (
			SELECT id FROM articles
			WHERE processing_state = 'raw' AND fetched_at <= $1
			ORDER BY fetched_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s`, articleColumns)

	var claimed []models.Article
	err := withRetry("claim_for_enrichment", func() error {
		claimed = claimed[:0]
		return r.db.Select(&claimed, query, olderThan, batchSize)
	})
	return claimed, err
}

// CommitEnrichment transitions an enriching article to enriched, writing the
// produced enrichment fields in one statement. Returns ErrStaleClaim when
// the row is no longer 'enriching' (a concurrent retry already committed).
func (r *ArticleRepository) CommitEnrichment(articleID int64, e *models.Enrichment) error {
	query := `
		UPDATE articles SET
			processing_state = 'enriched',
			original_language = $2,
			translated_title = $3,
			translated_content = $4,
			country = $5,
			region = $6,
			latitude = $7,
			longitude = $8,
			risk_level = $9,
			risk_score = $10,
			sentiment_score = $11,
			category = $12,
			persons = $13,
			organizations = $14,
			locations = $15,
			misc_entities = $16,
			failed_reason = NULL,
			failed_at = NULL
		WHERE id = $1 AND processing_state = 'enriching'`

	var rows int64
	err := withRetry("commit_enrichment", func() error {
		res, err := r.db.Exec(query, articleID,
			e.OriginalLanguage, e.TranslatedTitle, e.TranslatedContent,
			e.Country, e.Region, e.Latitude, e.Longitude,
			e.RiskLevel, e.RiskScore, e.SentimentScore, e.Category,
			pq.Array(e.Persons), pq.Array(e.Organizations), pq.Array(e.Locations), pq.Array(e.MiscEntities),
		)
		if err != nil {
			return err
		}
		rows, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.ErrStaleClaim
	}
	return nil
}

// MarkFailed transitions an enriching article to failed with a structured
// reason and bumps its retry counter.
func (r *ArticleRepository) MarkFailed(articleID int64, reason string) error {
	query := `
		UPDATE articles SET
			processing_state = 'failed',
			failed_reason = $2,
			failed_at = NOW(),
			retry_count = retry_count + 1
		WHERE id = $1 AND processing_state = 'enriching'`

	return withRetry("mark_failed", func() error {
		_, err := r.db.Exec(query, articleID, reason)
		return err
	})
}

// RequeueFailed returns failed articles to 'raw' once their cooldown has
// passed, as long as they still have retry budget. Returns the number of
// rows requeued.
func (r *ArticleRepository) RequeueFailed(maxRetries int, cooldown time.Duration) (int64, error) {
	query := `
		UPDATE articles SET processing_state = 'raw'
		WHERE processing_state = 'failed'
		AND retry_count < $1
		AND failed_at < NOW() - $2::interval`

	var requeued int64
	err := withRetry("requeue_failed", func() error {
		res, err := r.db.Exec(query, maxRetries, fmt.Sprintf("%d seconds", int(cooldown.Seconds())))
		if err != nil {
			return err
		}
		requeued, err = res.RowsAffected()
		return err
	})
	return requeued, err
}

// QueueDepth returns the number of raw articles awaiting enrichment.
func (r *ArticleRepository) QueueDepth() (int, error) {
	var depth int
	err := r.db.Get(&depth, `SELECT COUNT(*) FROM articles WHERE processing_state = 'raw'`)
	if err != nil {
		return 0, apperrors.NewStorageError("queue_depth", err)
	}
	return depth, nil
}

// GetArticleByID retrieves a single article by id.
func (r *ArticleRepository) GetArticleByID(id int64) (*models.Article, error) {
	var a models.Article
	query := fmt.Sprintf(`SELECT %s FROM articles WHERE id = $1`, articleColumns)
	if err := r.db.Get(&a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrArticleNotFound
		}
		return nil, apperrors.NewStorageError("get_article", err)
	}
	return &a, nil
}

// ListArticles returns articles matching the filter, newest first.
func (r *ArticleRepository) ListArticles(f models.ArticleFilter) ([]models.Article, error) {
	conds := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	add := func(cond string, val interface{}) {
		conds = append(conds, fmt.Sprintf(cond, idx))
		args = append(args, val)
		idx++
	}

	if f.Language != "" {
		add("original_language = $%d", f.Language)
	}
	if f.Country != "" {
		add("country = $%d", f.Country)
	}
	if f.RiskLevel != "" {
		add("risk_level = $%d", f.RiskLevel)
	}
	if f.State != "" {
		add("processing_state = $%d", f.State)
	}
	if f.Since != nil {
		add("published_at >= $%d", *f.Since)
	}
	if f.Until != nil {
		add("published_at <= $%d", *f.Until)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM articles
		WHERE %s
		ORDER BY published_at DESC
		LIMIT %d OFFSET %d`, articleColumns, strings.Join(conds, " AND "), limit, f.Offset)

	var articles []models.Article
	if err := r.db.Select(&articles, query, args...); err != nil {
		return nil, apperrors.NewStorageError("list_articles", err)
	}
	return articles, nil
}

// NewsSignalRow is one enriched, geolocated, risk-bearing article projected
// for the consolidator.
type NewsSignalRow struct {
	ID             int64     `db:"id"`
	Title          string    `db:"title"`
	Country        *string   `db:"country"`
	Region         *string   `db:"region"`
	Latitude       float64   `db:"latitude"`
	Longitude      float64   `db:"longitude"`
	RiskScore      float64   `db:"risk_score"`
	SentimentScore float64   `db:"sentiment_score"`
	PublishedAt    time.Time `db:"published_at"`
}

// NewsConflictsSince returns enriched articles with coordinates whose risk
// or sentiment marks them as conflict signals.
func (r *ArticleRepository) NewsConflictsSince(cutoff time.Time, riskThreshold, sentimentThreshold float64) ([]NewsSignalRow, error) {
	query := `
		SELECT id, title, country, region, latitude, longitude,
		       COALESCE(risk_score, 0) AS risk_score,
		       COALESCE(sentiment_score, 0) AS sentiment_score,
		       published_at
		FROM articles
		WHERE processing_state = 'enriched'
		AND published_at >= $1
		AND latitude IS NOT NULL AND longitude IS NOT NULL
		AND (risk_score >= $2 OR sentiment_score <= $3)
		ORDER BY risk_score DESC`

	var rows []NewsSignalRow
	if err := r.db.Select(&rows, query, cutoff, riskThreshold, sentimentThreshold); err != nil {
		return nil, apperrors.NewStorageError("news_conflicts", err)
	}
	return rows, nil
}

// CountRow is one bucket of an aggregate_counts projection.
type CountRow struct {
	Key   string `db:"key" json:"key"`
	Count int    `db:"count" json:"count"`
}

// AggregateCounts groups enriched articles by country, category, or
// language within the window.
func (r *ArticleRepository) AggregateCounts(by string, since time.Time) ([]CountRow, error) {
	var column string
	switch by {
	case "country":
		column = "country"
	case "category":
		column = "category"
	case "language":
		column = "original_language"
	default:
		return nil, fmt.Errorf("unsupported aggregation key %q", by)
	}

	query := fmt.Sprintf(`
		SELECT COALESCE(%s, 'unknown') AS key, COUNT(*) AS count
		FROM articles
		WHERE processing_state = 'enriched'
		AND published_at >= $1
		GROUP BY key
		ORDER BY count DESC`, column)

	var rows []CountRow
	if err := r.db.Select(&rows, query, since); err != nil {
		return nil, apperrors.NewStorageError("aggregate_counts", err)
	}
	return rows, nil
}

// RiskByCountry returns the mean risk score of enriched articles per
// country within the window.
func (r *ArticleRepository) RiskByCountry(since time.Time) (map[string]float64, error) {
	query := `
		SELECT country AS key, AVG(risk_score) AS score
		FROM articles
		WHERE processing_state = 'enriched'
		AND country IS NOT NULL AND risk_score IS NOT NULL
		AND published_at >= $1
		GROUP BY country`

	rows, err := r.db.Query(query, since)
	if err != nil {
		return nil, apperrors.NewStorageError("risk_by_country", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var country string
		var score float64
		if err := rows.Scan(&country, &score); err != nil {
			return nil, apperrors.NewStorageError("risk_by_country", err)
		}
		out[country] = score
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("risk_by_country", err)
	}
	return out, nil
}

// CountByState returns article counts per processing state.
func (r *ArticleRepository) CountByState() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT processing_state, COUNT(*) FROM articles GROUP BY processing_state`)
	if err != nil {
		return nil, apperrors.NewStorageError("count_by_state", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, apperrors.NewStorageError("count_by_state", err)
		}
		out[state] = count
	}
	return out, rows.Err()
}

// UpsertSources mirrors the registry catalog into the sources table so
// operators can inspect it with plain SQL.
func (r *ArticleRepository) UpsertSources(sources []models.Source) error {
	return withRetry("upsert_sources", func() error {
		tx, err := r.db.Beginx()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		query := `
			INSERT INTO sources (name, feed_url, protocol, language, country, region, priority, conflict_zone_tag, enabled)
			VALUES (:name, :feed_url, :protocol, :language, :country, :region, :priority, :conflict_zone_tag, :enabled)
			ON CONFLICT (name) DO UPDATE SET
				feed_url = EXCLUDED.feed_url,
				priority = EXCLUDED.priority,
				enabled = EXCLUDED.enabled`

		for i := range sources {
			if _, err := tx.NamedExec(query, sources[i]); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}
