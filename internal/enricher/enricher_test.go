package enricher

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskmap/internal/config"
	"riskmap/internal/geocode"
	"riskmap/internal/models"
	"riskmap/pkg/logger"
)

type fakeStore struct {
	mu       sync.Mutex
	claimed  []models.Article
	commits  map[int64]*models.Enrichment
	failures map[int64]string
}

func newFakeStore(articles ...models.Article) *fakeStore {
	return &fakeStore{
		claimed:  articles,
		commits:  make(map[int64]*models.Enrichment),
		failures: make(map[int64]string),
	}
}

func (s *fakeStore) ClaimForEnrichment(batchSize int, _ time.Time) ([]models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.claimed) > batchSize {
		return s.claimed[:batchSize], nil
	}
	out := s.claimed
	s.claimed = nil
	return out, nil
}

func (s *fakeStore) CommitEnrichment(id int64, e *models.Enrichment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits[id] = e
	return nil
}

func (s *fakeStore) MarkFailed(id int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id] = reason
	return nil
}

func (s *fakeStore) RequeueFailed(int, time.Duration) (int64, error) { return 0, nil }

type identityTranslator struct{}

func (identityTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

type fakeGeocoder struct {
	places map[string]geocode.Result
}

func (g *fakeGeocoder) Geocode(_ context.Context, name string) (geocode.Result, error) {
	if res, ok := g.places[strings.ToLower(name)]; ok {
		return res, nil
	}
	return geocode.Result{}, nil
}

type noopMetrics struct{}

func (noopMetrics) RecordEnrichment(bool) {}

func testConfig() *config.Config {
	return &config.Config{
		CanonicalLanguage:  "en",
		EnricherWorkers:    2,
		EnricherBatchSize:  10,
		EnricherTimeout:    10 * time.Second,
		EnrichmentRetries:  3,
		EnrichmentCooldown: time.Minute,
		TranslationBodyCap: 3000,
	}
}

func TestEnrichmentHappyPath(t *testing.T) {
	article := models.Article{
		ID:      1,
		Title:   "Missile strike in Kharkiv kills 12",
		Content: "A missile strike hit Kharkiv on Tuesday, killing 12 people. Officials in Kharkiv reported heavy damage across Ukraine's second city.",
	}
	store := newFakeStore(article)
	geocoder := &fakeGeocoder{places: map[string]geocode.Result{
		"kharkiv": {Latitude: 49.99, Longitude: 36.23, Country: "Ukraine", Region: "Kharkiv Oblast", Found: true},
		"ukraine": {Latitude: 48.38, Longitude: 31.17, Country: "Ukraine", Found: true},
	}}

	pool := NewPool(testConfig(), store, identityTranslator{}, nil, geocoder, noopMetrics{}, logger.NewLogger())
	processed, err := pool.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	e, ok := store.commits[1]
	require.True(t, ok, "article must be committed, got failures: %v", store.failures)

	assert.Equal(t, "en", e.OriginalLanguage)
	require.NotNil(t, e.Country)
	assert.Equal(t, "Ukraine", *e.Country)
	require.NotNil(t, e.Latitude)
	require.NotNil(t, e.Longitude)
	assert.InDelta(t, 49.99, *e.Latitude, 0.01)

	require.NotNil(t, e.SentimentScore)
	assert.Less(t, *e.SentimentScore, 0.0)

	require.NotNil(t, e.RiskScore)
	require.NotNil(t, e.RiskLevel)
	assert.GreaterOrEqual(t, *e.RiskScore, 0.6)
	assert.Contains(t, []string{models.RiskHigh, models.RiskCritical}, *e.RiskLevel)
}

func TestRiskLevelScoreInvariant(t *testing.T) {
	// for every committed article the level must match the score thresholds
	texts := []string{
		"Missile strike kills dozens in border region of Sudan",
		"Protest march through Bogota ends peacefully",
		"New trade agreement signed between Kenya and Ethiopia",
		"Artillery shelling and drone attack reported near Kharkiv frontline, casualties feared",
	}
	pool := NewPool(testConfig(), newFakeStore(), identityTranslator{}, nil, &fakeGeocoder{}, noopMetrics{}, logger.NewLogger())

	for _, text := range texts {
		analysis, err := pool.fallback.Analyze(context.Background(), text, text)
		require.NoError(t, err)
		score := pool.riskScore(text, analysis)
		level := models.RiskLevelForScore(score)

		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
		switch level {
		case models.RiskCritical:
			assert.GreaterOrEqual(t, score, 0.8)
		case models.RiskHigh:
			assert.GreaterOrEqual(t, score, 0.6)
		case models.RiskMedium:
			assert.GreaterOrEqual(t, score, 0.4)
		default:
			assert.Less(t, score, 0.4)
		}
	}
}

func TestPickPrimaryLocation(t *testing.T) {
	title := "Clashes continue in Bakhmut"
	body := "Fighting raged in Bakhmut today. Bakhmut has seen months of combat. Reinforcements arrived from Kyiv."

	// rule (i): highest frequency in body wins
	assert.Equal(t, "Bakhmut", pickPrimaryLocation([]string{"Kyiv", "Bakhmut"}, title, body))

	// rule (ii): on a frequency tie, the title mention wins
	tieBody := "Units moved between Kyiv and Bakhmut."
	assert.Equal(t, "Bakhmut", pickPrimaryLocation([]string{"Kyiv", "Bakhmut"}, title, tieBody))

	// rule (iii): otherwise the first extracted location
	assert.Equal(t, "Odesa", pickPrimaryLocation([]string{"Odesa", "Lviv"}, "Weekly roundup", "No city named here."))
}

func TestIncompleteEnrichmentFails(t *testing.T) {
	store := newFakeStore(models.Article{ID: 7, Title: "x", Content: "y"})

	// an analyzer chain that produces nothing marks the article failed
	pool := NewPool(testConfig(), store, identityTranslator{}, nil, &fakeGeocoder{}, noopMetrics{}, logger.NewLogger())
	pool.fallback = brokenAnalyzer{}

	_, err := pool.RunOnce(context.Background())
	require.NoError(t, err)

	_, committed := store.commits[7]
	assert.False(t, committed)
	assert.Contains(t, store.failures[7], "incomplete")
}

type brokenAnalyzer struct{}

func (brokenAnalyzer) Analyze(context.Context, string, string) (*TextAnalysis, error) {
	return nil, assert.AnError
}
