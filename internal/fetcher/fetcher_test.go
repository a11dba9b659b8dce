package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskmap/internal/config"
	"riskmap/internal/models"
	"riskmap/pkg/logger"
)

type memoryStore struct {
	mu       sync.Mutex
	articles map[string]*models.Article
	inserted int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{articles: make(map[string]*models.Article)}
}

func (s *memoryStore) InsertRawArticle(a *models.Article) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.articles[a.URL]; dup {
		return false, nil
	}
	for _, existing := range s.articles {
		if existing.ContentHash == a.ContentHash {
			return false, nil
		}
	}
	s.articles[a.URL] = a
	s.inserted++
	return true, nil
}

type noopMetrics struct{}

func (noopMetrics) RecordFetch(string, bool) {}
func (noopMetrics) RecordArticles(int, int)  {}

func fetcherConfig() *config.Config {
	return &config.Config{
		CanonicalLanguage:        "en",
		FetcherWorkers:           4,
		FetcherQPSPerHost:        100,
		FetcherTimeout:           5 * time.Second,
		FetcherRetries:           1,
		MaxEntriesPerFeed:        50,
		TitleSimilarityThreshold: 0.85,
		DedupTimeWindow:          48 * time.Hour,
	}
}

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Test Feed</title>
<link>https://example.com</link>
<item>
  <title>Missile strike reported near border</title>
  <link>https://example.com/articles/1</link>
  <description>Details of the strike.</description>
  <pubDate>Tue, 28 Jul 2026 10:00:00 GMT</pubDate>
</item>
<item>
  <title>Peace talks resume</title>
  <link>https://example.com/articles/2</link>
  <description>Negotiators returned to the table.</description>
  <pubDate>Tue, 28 Jul 2026 11:00:00 GMT</pubDate>
</item>
</channel>
</rss>`

func TestDedupOnRefetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFixture))
	}))
	defer server.Close()

	store := newMemoryStore()
	pool := NewPool(fetcherConfig(), store, noopMetrics{}, logger.NewLogger())
	src := models.Source{Name: "Test Feed", FeedURL: server.URL, Language: "en", Enabled: true}

	first := pool.Run(context.Background(), []models.Source{src})
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 0, first.Duplicates)

	second := pool.Run(context.Background(), []models.Source{src})
	assert.Equal(t, 0, second.Inserted, "identical refetch must insert nothing")
	assert.Equal(t, 2, second.Duplicates)
	assert.Equal(t, 2, store.inserted)
}

func TestFourOhFourIsNotRetried(t *testing.T) {
	var hits int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	pool := NewPool(fetcherConfig(), newMemoryStore(), noopMetrics{}, logger.NewLogger())
	src := models.Source{Name: "Gone Feed", FeedURL: server.URL, Language: "en", Enabled: true}

	result := pool.Run(context.Background(), []models.Source{src})
	assert.Equal(t, 1, result.Failures)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits, "4xx responses must not be retried")
}

func TestNormalizeItemDropsUnusableEntries(t *testing.T) {
	pool := NewPool(fetcherConfig(), newMemoryStore(), noopMetrics{}, logger.NewLogger())
	src := models.Source{Name: "S", FeedURL: "https://example.com/rss", Language: "uk"}
	now := time.Now().UTC()

	assert.Nil(t, pool.normalizeItem(nil, src, now))
	assert.Nil(t, pool.normalizeItem(&gofeed.Item{Title: "no link"}, src, now))
	assert.Nil(t, pool.normalizeItem(&gofeed.Item{Link: "https://x.com/a", Title: "   "}, src, now))

	published := now.Add(-2 * time.Hour)
	article := pool.normalizeItem(&gofeed.Item{
		Title:           " Headline ",
		Link:            "https://x.com/a",
		Description:     "summary text",
		PublishedParsed: &published,
	}, src, now)
	require.NotNil(t, article)
	assert.Equal(t, "Headline", article.Title)
	assert.Equal(t, "summary text", article.Content)
	assert.Equal(t, "uk", article.OriginalLanguage)
	assert.Equal(t, "en", article.CanonicalLanguage)
	assert.Equal(t, models.StateRaw, article.ProcessingState)
	assert.Equal(t, published.UTC(), article.PublishedAt)
	assert.NotEmpty(t, article.ContentHash)
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool(fetcherConfig(), newMemoryStore(), noopMetrics{}, logger.NewLogger())
	sources := make([]models.Source, 20)
	for i := range sources {
		sources[i] = models.Source{Name: "s", FeedURL: "https://example.invalid/rss", Language: "en"}
	}

	result := pool.Run(ctx, sources)
	assert.Equal(t, 0, result.Inserted)
}

func TestDeduperContentHash(t *testing.T) {
	d := NewDeduper(0.85, 48*time.Hour)
	now := time.Now().UTC()

	a := &models.Article{URL: "https://a.com/1", Title: "Strike hits depot", ContentHash: "h1", PublishedAt: now}
	assert.False(t, d.IsDuplicate(a))
	assert.True(t, d.IsDuplicate(a))
}

func TestDeduperNormalizedURL(t *testing.T) {
	d := NewDeduper(0.85, 48*time.Hour)
	now := time.Now().UTC()

	a := &models.Article{URL: "https://a.com/story", Title: "One headline here", ContentHash: "h1", PublishedAt: now}
	b := &models.Article{URL: "https://A.com/story/?utm_source=rss&fbclid=xyz", Title: "Completely different words", ContentHash: "h2", PublishedAt: now}
	assert.False(t, d.IsDuplicate(a))
	assert.True(t, d.IsDuplicate(b), "tracking-parameter variants of one url must collapse")
}

func TestDeduperTitleSimilarity(t *testing.T) {
	d := NewDeduper(0.85, 48*time.Hour)
	now := time.Now().UTC()

	a := &models.Article{URL: "https://a.com/1", Title: "Missile strike kills 12 in Kharkiv", ContentHash: "h1", PublishedAt: now}
	nearDup := &models.Article{URL: "https://b.com/99", Title: "Missile strike kills 12 in Kharkiv!", ContentHash: "h2", PublishedAt: now.Add(time.Hour)}
	other := &models.Article{URL: "https://c.com/5", Title: "Grain exports resume from Odesa port", ContentHash: "h3", PublishedAt: now}

	assert.False(t, d.IsDuplicate(a))
	assert.True(t, d.IsDuplicate(nearDup), "near-identical titles inside the window must collapse")
	assert.False(t, d.IsDuplicate(other))
}

func TestDeduperTimeWindow(t *testing.T) {
	d := NewDeduper(0.85, 2*time.Hour)
	now := time.Now().UTC()

	a := &models.Article{URL: "https://a.com/1", Title: "Missile strike kills 12 in Kharkiv", ContentHash: "h1", PublishedAt: now}
	later := &models.Article{URL: "https://b.com/99", Title: "Missile strike kills 12 in Kharkiv", ContentHash: "h2", PublishedAt: now.Add(72 * time.Hour)}

	assert.False(t, d.IsDuplicate(a))
	assert.False(t, d.IsDuplicate(later), "same title far outside the window is a new story")
}

func TestTitleSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, titleSimilarity("abc", "abc"))
	assert.Equal(t, 0.0, titleSimilarity("", "abc"))
	assert.Greater(t, titleSimilarity(normalizeTitle("Missile strike kills 12"), normalizeTitle("Missile strike kills 12!")), 0.9)
	assert.Equal(t, 0.0, titleSimilarity("ab", "abcdefghij"), "large length gap short-circuits")
}
