// internal/fetcher/fetcher.go
// Concurrent retrieval of RSS/Atom feeds: bounded worker pool, per-host
// token buckets, retry with backoff and jitter, and batch-local dedup so
// duplicates inside one run never reach storage.

package fetcher

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"riskmap/internal/config"
	"riskmap/internal/models"
	apperrors "riskmap/pkg/errors"
	"riskmap/pkg/logger"
)

// ArticleStore is the slice of the article repository the pool writes to.
type ArticleStore interface {
	InsertRawArticle(a *models.Article) (bool, error)
}

// Metrics receives per-source fetch outcomes.
type Metrics interface {
	RecordFetch(source string, ok bool)
	RecordArticles(inserted, duplicates int)
}

// Pool fetches batches of sources with bounded concurrency.
type Pool struct {
	cfg     *config.Config
	store   ArticleStore
	metrics Metrics
	logger  *logger.Logger

	parser *gofeed.Parser

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewPool creates a fetcher pool.
func NewPool(cfg *config.Config, store ArticleStore, metrics Metrics, log *logger.Logger) *Pool {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: cfg.FetcherTimeout}
	parser.UserAgent = "riskmap/1.0 (+geopolitical intelligence pipeline)"

	return &Pool{
		cfg:      cfg,
		store:    store,
		metrics:  metrics,
		logger:   log.With("component", "fetcher"),
		parser:   parser,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Result summarizes one pool run.
type Result struct {
	Sources    int
	Fetched    int
	Inserted   int
	Duplicates int
	Failures   int
}

// Run polls the given sources with FetcherWorkers workers. A cancelled
// context drains in-flight requests; queued sources are skipped.
func (p *Pool) Run(ctx context.Context, sources []models.Source) Result {
	var (
		result Result
		mu     sync.Mutex
		wg     sync.WaitGroup
	)
	result.Sources = len(sources)

	// run-local dedup filter: drops same-batch duplicates before storage
	seen := NewDeduper(p.cfg.TitleSimilarityThreshold, p.cfg.DedupTimeWindow)

	jobs := make(chan models.Source)

	for i := 0; i < p.cfg.FetcherWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				fetched, inserted, dups, err := p.fetchSource(ctx, src, seen)
				mu.Lock()
				result.Fetched += fetched
				result.Inserted += inserted
				result.Duplicates += dups
				if err != nil {
					result.Failures++
				}
				mu.Unlock()
			}
		}()
	}

	for _, src := range sources {
		select {
		case <-ctx.Done():
			// stop feeding; workers drain what they already hold
			goto done
		case jobs <- src:
		}
	}
done:
	close(jobs)
	wg.Wait()

	p.logger.Info("fetch run completed",
		"sources", result.Sources,
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"duplicates", result.Duplicates,
		"failures", result.Failures,
	)
	return result
}

// fetchSource retrieves one feed and offers its entries to the store.
func (p *Pool) fetchSource(ctx context.Context, src models.Source, seen *Deduper) (fetched, inserted, duplicates int, err error) {
	host := hostOf(src.FeedURL)

	if err := p.limiterFor(host).Wait(ctx); err != nil {
		return 0, 0, 0, err
	}

	feed, err := p.fetchWithRetry(ctx, src, host)
	if err != nil {
		p.metrics.RecordFetch(src.Name, false)
		p.logger.Warn("feed fetch failed", "source", src.Name, "error", err.Error())
		return 0, 0, 0, err
	}
	p.metrics.RecordFetch(src.Name, true)

	now := time.Now().UTC()
	for i, item := range feed.Items {
		if i >= p.cfg.MaxEntriesPerFeed {
			break
		}
		article := p.normalizeItem(item, src, now)
		if article == nil {
			continue
		}
		fetched++

		if seen.IsDuplicate(article) {
			duplicates++
			continue
		}

		ok, err := p.store.InsertRawArticle(article)
		if err != nil {
			p.logger.Error("insert failed", "source", src.Name, "url", article.URL, "error", err.Error())
			continue
		}
		if ok {
			inserted++
		} else {
			duplicates++
		}
	}

	p.metrics.RecordArticles(inserted, duplicates)
	return fetched, inserted, duplicates, nil
}

// fetchWithRetry retries transient failures with exponential backoff and
// jitter. 4xx responses are permanent; 429 waits out Retry-After semantics
// through the backoff instead.
func (p *Pool) fetchWithRetry(ctx context.Context, src models.Source, host string) (*gofeed.Feed, error) {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(p.cfg.FetcherRetries)), ctx)

	var feed *gofeed.Feed
	operation := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, p.cfg.FetcherTimeout)
		defer cancel()

		f, err := p.parser.ParseURLWithContext(src.FeedURL, reqCtx)
		if err != nil {
			if httpErr, ok := err.(gofeed.HTTPError); ok {
				if httpErr.StatusCode == http.StatusTooManyRequests {
					return apperrors.NewRateLimitedError(host, time.Minute)
				}
				if httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
					return backoff.Permanent(apperrors.NewFetchError(host, err))
				}
				return apperrors.NewFetchError(host, err)
			}
			if strings.Contains(err.Error(), "Failed to detect feed type") {
				return backoff.Permanent(apperrors.NewParseError(src.Name, err))
			}
			return apperrors.NewFetchError(host, err)
		}
		feed = f
		return nil
	}

	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return feed, nil
}

// normalizeItem converts a feed entry to a candidate raw article.
// Entries without a link or a title are useless downstream and are dropped.
func (p *Pool) normalizeItem(item *gofeed.Item, src models.Source, now time.Time) *models.Article {
	if item == nil || item.Link == "" || strings.TrimSpace(item.Title) == "" {
		return nil
	}

	published := now
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.UTC()
	}
	// feeds occasionally stamp entries in the future; clamp so
	// fetched_at never trails published_at by more than clock skew
	if published.After(now.Add(5 * time.Minute)) {
		published = now
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}

	article := &models.Article{
		URL:               item.Link,
		ContentHash:       models.ComputeContentHash(item.Title, item.Link),
		Title:             strings.TrimSpace(item.Title),
		Content:           strings.TrimSpace(content),
		SourceName:        src.Name,
		SourceURL:         src.FeedURL,
		PublishedAt:       published,
		FetchedAt:         now,
		OriginalLanguage:  src.Language,
		CanonicalLanguage: p.cfg.CanonicalLanguage,
		ProcessingState:   models.StateRaw,
	}

	if item.Image != nil && item.Image.URL != "" {
		imageURL := item.Image.URL
		article.ImageURL = &imageURL
	}
	return article
}

// limiterFor returns the per-host token bucket, creating it on first use.
func (p *Pool) limiterFor(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.limiters[host]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(p.cfg.FetcherQPSPerHost), 1)
	p.limiters[host] = l
	return l
}

func hostOf(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return feedURL
	}
	return u.Host
}
