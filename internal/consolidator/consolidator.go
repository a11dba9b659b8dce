// internal/consolidator/consolidator.go
// The fusion service: reads every signal source within the lookback window,
// clusters and scores zones, optionally amplifies with the LLM, emits
// predictions, and publishes the whole collection atomically.

package consolidator

import (
	"context"
	"math"
	"strconv"
	"time"

	"riskmap/internal/config"
	"riskmap/internal/models"
	"riskmap/internal/repository"
	"riskmap/pkg/logger"
)

// conflictEventTypes is the subset of event types treated as conflict, with
// a severity weight per type feeding the events signal score.
var conflictEventTypes = map[string]float64{
	"Violence against civilians": 1.0,
	"Battles":                    0.9,
	"Explosions/Remote violence": 0.8,
	"Riots":                      0.6,
	"Strategic developments":     0.4,
}

// minToneClusterEvents is the minimum event count for a tone location to
// qualify as a signal.
const minToneClusterEvents = 3

// ArticleSource provides news-based conflict signals.
type ArticleSource interface {
	NewsConflictsSince(cutoff time.Time, riskThreshold, sentimentThreshold float64) ([]repository.NewsSignalRow, error)
}

// FeedSource provides event, tone, and risk index inputs.
type FeedSource interface {
	EventClustersSince(cutoff time.Time, conflictTypes []string) ([]repository.EventCluster, error)
	ToneClustersSince(cutoffSQLDate, minEvents int) ([]repository.ToneCluster, error)
	LatestRiskContext() (models.RiskIndexContext, error)
}

// ZoneStore persists the consolidated collection.
type ZoneStore interface {
	ReplaceZones(zones []models.ConflictZone) error
	RecordRun(run repository.ConsolidationRun) error
}

// Metrics receives consolidation outcomes.
type Metrics interface {
	RecordConsolidation(duration time.Duration, zones int, ok bool)
}

// Consolidator fuses all signal sources into the zone collection.
type Consolidator struct {
	cfg      *config.Config
	articles ArticleSource
	feeds    FeedSource
	zones    ZoneStore
	analyzer ZoneAnalyzer
	metrics  Metrics
	logger   *logger.Logger
}

// New creates a consolidator. analyzer may be nil to disable AI amplification.
func New(cfg *config.Config, articles ArticleSource, feeds FeedSource, zones ZoneStore, analyzer ZoneAnalyzer, metrics Metrics, log *logger.Logger) *Consolidator {
	return &Consolidator{
		cfg:      cfg,
		articles: articles,
		feeds:    feeds,
		zones:    zones,
		analyzer: analyzer,
		metrics:  metrics,
		logger:   log.With("component", "consolidator"),
	}
}

// Run executes one consolidation pass and publishes the result atomically.
func (c *Consolidator) Run(ctx context.Context) error {
	started := time.Now().UTC()

	signals, gprCtx, err := c.gatherSignals()
	if err != nil {
		c.recordRun(started, 0, 0, err)
		return err
	}

	zones := Cluster(signals, c.cfg.ProximityRadiusDegrees)
	now := time.Now().UTC()
	for _, z := range zones {
		z.FinalScore = FinalScore(z, gprCtx, now)
	}

	if c.cfg.AIAmplificationEnabled && c.analyzer != nil {
		c.amplify(ctx, zones)
	}

	if c.cfg.PredictionsEnabled {
		zones = append(zones, Predict(zones, c.cfg.MaxPredictions)...)
	}

	persisted := make([]models.ConflictZone, 0, len(zones))
	for _, z := range zones {
		persisted = append(persisted, z.ToModel(now))
	}

	if err := c.zones.ReplaceZones(persisted); err != nil {
		c.recordRun(started, len(signals), 0, err)
		return err
	}

	c.recordRun(started, len(signals), len(persisted), nil)
	c.logger.Info("consolidation completed",
		"signals", len(signals),
		"zones", len(persisted),
		"duration", time.Since(started).String(),
		"gpr_level", gprCtx.RiskLevel,
	)
	return nil
}

func (c *Consolidator) recordRun(started time.Time, signals, zoneCount int, runErr error) {
	duration := time.Since(started)
	run := repository.ConsolidationRun{
		StartedAt:   started,
		DurationMS:  duration.Milliseconds(),
		ZoneCount:   zoneCount,
		SignalCount: signals,
		Status:      "success",
	}
	if runErr != nil {
		run.Status = "error"
		msg := runErr.Error()
		run.ErrorMessage = &msg
	}
	if err := c.zones.RecordRun(run); err != nil {
		c.logger.Error("consolidation run bookkeeping failed", "error", err.Error())
	}
	c.metrics.RecordConsolidation(duration, zoneCount, runErr == nil)
}

// gatherSignals reads every input source and normalizes to ConflictSignal.
func (c *Consolidator) gatherSignals() ([]models.ConflictSignal, models.RiskIndexContext, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -c.cfg.ConsolidationLookbackDays)

	gprCtx, err := c.feeds.LatestRiskContext()
	if err != nil {
		c.logger.Warn("risk context unavailable, using defaults", "error", err.Error())
		gprCtx = models.RiskIndexContext{Trend: "stable", RiskLevel: "medium"}
	}

	var signals []models.ConflictSignal

	// News-based conflicts
	news, err := c.articles.NewsConflictsSince(cutoff, c.cfg.NewsRiskThreshold, c.cfg.NewsSentimentThreshold)
	if err != nil {
		return nil, gprCtx, err
	}
	for _, row := range news {
		sig := models.ConflictSignal{
			Latitude:   row.Latitude,
			Longitude:  row.Longitude,
			SourceKind: models.SignalNews,
			Score:      row.RiskScore,
			Weight:     models.SignalWeights[models.SignalNews],
			Location:   derefOr(row.Country, ""),
			Country:    derefOr(row.Country, ""),
			Region:     derefOr(row.Region, ""),
			EventCount: 1,
			LatestAt:   row.PublishedAt,
			ArticleID:  row.ID,
		}
		signals = append(signals, sig)
	}

	// Event records
	types := make([]string, 0, len(conflictEventTypes))
	for t := range conflictEventTypes {
		types = append(types, t)
	}
	events, err := c.feeds.EventClustersSince(cutoff, types)
	if err != nil {
		return nil, gprCtx, err
	}
	for _, ev := range events {
		severity, ok := conflictEventTypes[ev.EventType]
		if !ok {
			severity = 0.5
		}
		score := math.Min(1.0, (float64(ev.Fatalities)*0.1+float64(ev.EventCount)*0.2+severity)/3)

		signals = append(signals, models.ConflictSignal{
			Latitude:   ev.Latitude,
			Longitude:  ev.Longitude,
			SourceKind: models.SignalEvents,
			Score:      score,
			Weight:     models.SignalWeights[models.SignalEvents],
			Location:   ev.Location,
			Country:    ev.Country,
			Region:     ev.Region,
			EventCount: ev.EventCount,
			Fatalities: ev.Fatalities,
			Actors:     actorsPair(ev.Actor1, ev.Actor2),
			EventTypes: []string{ev.EventType},
			LatestAt:   ev.LatestDate,
		})
	}

	// Tone clusters
	sqlCutoff, _ := strconv.Atoi(cutoff.Format("20060102"))
	tones, err := c.feeds.ToneClustersSince(sqlCutoff, minToneClusterEvents)
	if err != nil {
		return nil, gprCtx, err
	}
	for _, t := range tones {
		toneRisk := math.Min(1.0, math.Abs(t.MinTone)/20.0)
		goldsteinRisk := math.Max(0, (t.AvgGoldstein+10)/20.0)
		volumeRisk := math.Min(1.0, float64(t.EventCount)/50.0)
		score := toneRisk*0.5 + goldsteinRisk*0.3 + volumeRisk*0.2

		latest := time.Now().UTC()
		if parsed, err := time.Parse("20060102", strconv.Itoa(t.LatestDate)); err == nil {
			latest = parsed
		}

		signals = append(signals, models.ConflictSignal{
			Latitude:   t.Latitude,
			Longitude:  t.Longitude,
			SourceKind: models.SignalTone,
			Score:      score,
			Weight:     models.SignalWeights[models.SignalTone],
			Location:   t.Location,
			Country:    t.CountryCode,
			EventCount: t.EventCount,
			LatestAt:   latest,
		})
	}

	return signals, gprCtx, nil
}

// amplify asks the LLM about the highest-risk zones. A critical verdict
// adds 0.1, an escalating one 0.05, capped at 1.0; failures change nothing.
func (c *Consolidator) amplify(ctx context.Context, zones []*Zone) {
	assessed := 0
	for _, z := range zones {
		if z.FinalScore < 0.6 {
			continue
		}
		if assessed >= 10 { // bound LLM spend per run
			break
		}
		assessed++

		assessment, err := c.analyzer.AssessZone(ctx, zoneContext(z))
		if err != nil {
			c.logger.Debug("zone assessment failed", "zone", z.LocationLabel, "error", err.Error())
			continue
		}

		z.AIAssessment = assessment.RiskAssessment
		switch {
		case assessment.RiskAssessment == "critical":
			z.FinalScore = math.Min(1.0, z.FinalScore+0.1)
		case assessment.EscalationProbability == "high" || assessment.TrendAnalysis == "deteriorating":
			z.FinalScore = math.Min(1.0, z.FinalScore+0.05)
		}
	}
}

func actorsPair(a1, a2 string) []string {
	var out []string
	if a1 != "" {
		out = append(out, a1)
	}
	if a2 != "" && a2 != a1 {
		out = append(out, a2)
	}
	return out
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
