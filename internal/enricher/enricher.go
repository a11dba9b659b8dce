// internal/enricher/enricher.go
// Cooperative enrichment worker pool. Each claimed article flows through
// language detection, canonical translation, entity extraction, geolocation,
// sentiment, and risk classification. Steps fail independently; the article
// commits as enriched when at least language, sentiment, and risk were
// produced, otherwise it is marked failed with a structured reason.

package enricher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"

	"riskmap/internal/config"
	"riskmap/internal/geocode"
	"riskmap/internal/models"
	apperrors "riskmap/pkg/errors"
	"riskmap/pkg/logger"
)

// ArticleStore is the slice of the repository the enricher drives.
type ArticleStore interface {
	ClaimForEnrichment(batchSize int, olderThan time.Time) ([]models.Article, error)
	CommitEnrichment(articleID int64, e *models.Enrichment) error
	MarkFailed(articleID int64, reason string) error
	RequeueFailed(maxRetries int, cooldown time.Duration) (int64, error)
}

// Translator is the translation gateway surface the enricher needs.
type Translator interface {
	Translate(ctx context.Context, text, srcLang, dstLang string) (string, error)
}

// Metrics receives enrichment outcomes.
type Metrics interface {
	RecordEnrichment(ok bool)
}

// Pool pulls claimed articles and enriches them with bounded concurrency.
type Pool struct {
	cfg        *config.Config
	store      ArticleStore
	translator Translator
	analyzer   Analyzer
	fallback   Analyzer
	geocoder   geocode.Geocoder
	metrics    Metrics
	logger     *logger.Logger
}

// NewPool creates an enricher pool. analyzer may be nil, in which case the
// keyword fallback carries the full analysis load.
func NewPool(cfg *config.Config, store ArticleStore, translator Translator, analyzer Analyzer, geocoder geocode.Geocoder, metrics Metrics, log *logger.Logger) *Pool {
	return &Pool{
		cfg:        cfg,
		store:      store,
		translator: translator,
		analyzer:   analyzer,
		fallback:   NewKeywordAnalyzer(),
		geocoder:   geocoder,
		metrics:    metrics,
		logger:     log.With("component", "enricher"),
	}
}

// RunOnce requeues cooled-down failures, claims one batch, and enriches it
// with EnricherWorkers parallel workers. Returns the number of articles
// processed.
func (p *Pool) RunOnce(ctx context.Context) (int, error) {
	if requeued, err := p.store.RequeueFailed(p.cfg.EnrichmentRetries, p.cfg.EnrichmentCooldown); err != nil {
		p.logger.Error("requeue of failed articles errored", "error", err.Error())
	} else if requeued > 0 {
		p.logger.Info("requeued failed articles", "count", requeued)
	}

	claimed, err := p.store.ClaimForEnrichment(p.cfg.EnricherBatchSize, time.Now())
	if err != nil {
		return 0, err
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	jobs := make(chan models.Article)
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.EnricherWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for article := range jobs {
				p.enrichOne(ctx, article)
			}
		}()
	}

	for _, a := range claimed {
		select {
		case <-ctx.Done():
			// claimed-but-unprocessed rows go back through mark_failed so
			// the cooldown requeue returns them to raw
			p.failArticle(a.ID, "shutdown")
		case jobs <- a:
		}
	}
	close(jobs)
	wg.Wait()

	return len(claimed), nil
}

// enrichOne runs the full step sequence for one article under the
// per-article deadline.
func (p *Pool) enrichOne(ctx context.Context, article models.Article) {
	artCtx, cancel := context.WithTimeout(ctx, p.cfg.EnricherTimeout)
	defer cancel()

	enrichment := p.runSteps(artCtx, &article)

	if artCtx.Err() != nil && !enrichment.Complete() {
		p.failArticle(article.ID, "timeout")
		return
	}
	if !enrichment.Complete() {
		p.failArticle(article.ID, "incomplete: language, sentiment, or risk missing")
		return
	}

	if err := p.store.CommitEnrichment(article.ID, enrichment); err != nil {
		if errors.Is(err, apperrors.ErrStaleClaim) {
			p.logger.Debug("stale claim, another worker committed", "article_id", article.ID)
			return
		}
		p.logger.Error("enrichment commit failed", "article_id", article.ID, "error", err.Error())
		return
	}
	p.metrics.RecordEnrichment(true)
}

func (p *Pool) failArticle(id int64, reason string) {
	p.metrics.RecordEnrichment(false)
	if err := p.store.MarkFailed(id, reason); err != nil {
		p.logger.Error("mark_failed errored", "article_id", id, "error", err.Error())
	}
}

// runSteps executes the ordered enrichment steps, accumulating whatever
// each step produces. A step failure logs and moves on.
func (p *Pool) runSteps(ctx context.Context, article *models.Article) *models.Enrichment {
	e := &models.Enrichment{}

	// 1. Language detection. Trust a pre-set original language.
	e.OriginalLanguage = p.detectLanguage(article)

	// 2. Canonical translation.
	canonicalTitle, canonicalBody := p.translateStep(ctx, article, e)

	// 3-5. Entities, sentiment, and the model's conflict probability come
	// from one analysis pass over the canonical text.
	analysis := p.analyzeStep(ctx, canonicalTitle, canonicalBody)
	if analysis != nil {
		e.Persons = analysis.Persons
		e.Organizations = analysis.Organizations
		e.Locations = analysis.Locations
		e.MiscEntities = analysis.Misc
		sentiment := analysis.Sentiment
		e.SentimentScore = &sentiment
		if analysis.Category != "" {
			category := analysis.Category
			e.Category = &category
		}
	}

	// 4. Geolocation from the extracted location entities. The source's
	// home country is never used as the event location.
	if analysis != nil && len(analysis.Locations) > 0 {
		if loc, err := p.resolveLocation(ctx, analysis.Locations, canonicalTitle, canonicalBody); err != nil {
			p.logger.Debug("geolocation failed", "article_id", article.ID, "error", err.Error())
		} else if loc != nil {
			e.Country = &loc.Country
			e.Region = &loc.Region
			e.Latitude = &loc.Latitude
			e.Longitude = &loc.Longitude
		}
	}

	// 6. Risk classification.
	if analysis != nil {
		score := p.riskScore(canonicalTitle+" "+canonicalBody, analysis)
		level := models.RiskLevelForScore(score)
		e.RiskScore = &score
		e.RiskLevel = &level
	}

	return e
}

// detectLanguage returns the article's original language. A value already
// set on the article (the fetcher stores the source's configured language
// there) is trusted; otherwise the language is detected from title and body.
// A low-confidence detection returns the deployment's canonical language;
// the source catalog is not consulted here.
func (p *Pool) detectLanguage(article *models.Article) string {
	if article.OriginalLanguage != "" {
		return article.OriginalLanguage
	}

	text := article.Title + " " + article.Content
	info := whatlanggo.Detect(text)
	if info.IsReliable() {
		return info.Lang.Iso6391()
	}
	return p.cfg.CanonicalLanguage
}

// translateStep fills translated fields when the original language differs
// from the canonical one, and returns the canonical-language texts the
// remaining steps operate on.
func (p *Pool) translateStep(ctx context.Context, article *models.Article, e *models.Enrichment) (string, string) {
	title, body := article.Title, article.Content
	if len(body) > p.cfg.TranslationBodyCap {
		body = body[:p.cfg.TranslationBodyCap]
	}

	if e.OriginalLanguage == p.cfg.CanonicalLanguage {
		return title, body
	}

	translatedTitle, err := p.translator.Translate(ctx, title, e.OriginalLanguage, p.cfg.CanonicalLanguage)
	if err != nil {
		p.logger.Debug("title translation failed", "article_id", article.ID, "error", err.Error())
		return title, body
	}
	e.TranslatedTitle = &translatedTitle

	translatedBody, err := p.translator.Translate(ctx, body, e.OriginalLanguage, p.cfg.CanonicalLanguage)
	if err != nil {
		p.logger.Debug("body translation failed", "article_id", article.ID, "error", err.Error())
		return translatedTitle, body
	}
	e.TranslatedContent = &translatedBody

	return translatedTitle, translatedBody
}

// analyzeStep prefers the LLM analyzer and falls back to keywords.
func (p *Pool) analyzeStep(ctx context.Context, title, body string) *TextAnalysis {
	if p.analyzer != nil {
		if analysis, err := p.analyzer.Analyze(ctx, title, body); err == nil {
			return analysis
		} else {
			p.logger.Debug("llm analysis failed, using keyword fallback", "error", err.Error())
		}
	}
	analysis, err := p.fallback.Analyze(ctx, title, body)
	if err != nil {
		return nil
	}
	return analysis
}

// riskScore combines the model's conflict probability, lexicon hits,
// negative sentiment strength, and conflict-entity presence into [0,1].
func (p *Pool) riskScore(text string, analysis *TextAnalysis) float64 {
	lower := strings.ToLower(text)
	keywordScore := keywordConflictScore(lower)
	negSentiment := 0.0
	if analysis.Sentiment < 0 {
		negSentiment = -analysis.Sentiment
	}
	entityFactor := 0.0
	if len(analysis.Locations) > 0 && (keywordScore > 0 || analysis.ConflictProbability > 0.3) {
		entityFactor = 1.0
	}

	score := 0.5*maxFloat(analysis.ConflictProbability, keywordScore) +
		0.3*negSentiment +
		0.1*keywordScore +
		0.1*entityFactor
	return clamp(score, 0, 1)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
