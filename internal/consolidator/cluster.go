// internal/consolidator/cluster.go
// Pure fusion core: proximity clustering of conflict signals and the final
// risk score arithmetic. No I/O here so the algorithm is testable on its own.

package consolidator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"riskmap/internal/models"
)

// Zone is a cluster of signals under construction, before persistence.
type Zone struct {
	CentroidLat   float64
	CentroidLon   float64
	LocationLabel string
	Country       string
	Region        string

	Sources      map[string]bool
	SourceScores map[string]float64

	TotalEvents     int
	TotalFatalities int
	Actors          []string
	EventTypes      []string
	LatestEventAt   time.Time
	MemberArticles  []int64

	memberCoords [][2]float64 // lat, lon of every member signal

	FinalScore   float64
	IsPrediction bool
	AIAssessment string
}

// Cluster agglomerates signals by geographic proximity. Signals are
// processed in descending score order so high-risk signals seed clusters;
// a signal joins the first existing zone within radius degrees.
func Cluster(signals []models.ConflictSignal, radius float64) []*Zone {
	sorted := make([]models.ConflictSignal, len(signals))
	copy(sorted, signals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	var zones []*Zone
	for _, sig := range sorted {
		var target *Zone
		for _, z := range zones {
			if distanceDegrees(sig.Latitude, sig.Longitude, z.CentroidLat, z.CentroidLon) <= radius {
				target = z
				break
			}
		}
		if target == nil {
			target = newZone(sig)
			zones = append(zones, target)
		} else {
			target.merge(sig)
		}
	}
	return zones
}

func newZone(sig models.ConflictSignal) *Zone {
	z := &Zone{
		CentroidLat:   sig.Latitude,
		CentroidLon:   sig.Longitude,
		LocationLabel: sig.Location,
		Country:       sig.Country,
		Region:        sig.Region,
		Sources:       map[string]bool{sig.SourceKind: true},
		SourceScores:  map[string]float64{sig.SourceKind: sig.Score},
		LatestEventAt: sig.LatestAt,
	}
	z.absorb(sig)
	return z
}

func (z *Zone) merge(sig models.ConflictSignal) {
	z.Sources[sig.SourceKind] = true
	if sig.Score > z.SourceScores[sig.SourceKind] {
		z.SourceScores[sig.SourceKind] = sig.Score
	}
	if sig.LatestAt.After(z.LatestEventAt) {
		z.LatestEventAt = sig.LatestAt
	}
	if z.LocationLabel == "" {
		z.LocationLabel = sig.Location
	}
	if z.Country == "" {
		z.Country = sig.Country
	}
	if z.Region == "" {
		z.Region = sig.Region
	}
	z.absorb(sig)
}

// absorb accumulates the per-signal quantities shared by seed and merge.
func (z *Zone) absorb(sig models.ConflictSignal) {
	count := sig.EventCount
	if count == 0 {
		count = 1
	}
	z.TotalEvents += count
	z.TotalFatalities += sig.Fatalities
	z.Actors = appendUnique(z.Actors, sig.Actors)
	z.EventTypes = appendUnique(z.EventTypes, sig.EventTypes)
	if sig.ArticleID != 0 {
		z.MemberArticles = append(z.MemberArticles, sig.ArticleID)
	}
	z.memberCoords = append(z.memberCoords, [2]float64{sig.Latitude, sig.Longitude})
}

// FinalScore combines the weighted base with the amplification factors:
// source diversity, event volume, fatalities, global risk context, and
// recency. Clamped to [0,1].
func FinalScore(z *Zone, gpr models.RiskIndexContext, now time.Time) float64 {
	var weighted, totalWeight float64
	for kind, score := range z.SourceScores {
		w, ok := models.SignalWeights[kind]
		if !ok {
			w = 0.1
		}
		weighted += score * w
		totalWeight += w
	}
	base := 0.0
	if totalWeight > 0 {
		base = weighted / totalWeight
	}

	multiSource := math.Min(0.2, 0.05*float64(len(z.Sources)))
	volume := math.Min(0.3, float64(z.TotalEvents)/20.0)
	fatality := math.Min(0.2, float64(z.TotalFatalities)/50.0)

	var globalCtx float64
	switch gpr.RiskLevel {
	case "very_high":
		globalCtx = 0.15
	case "high":
		globalCtx = 0.10
	case "medium":
		globalCtx = 0.05
	}

	daysSince := now.Sub(z.LatestEventAt).Hours() / 24
	if daysSince < 0 {
		daysSince = 0
	}
	recency := math.Max(0, 0.1-0.01*daysSince)

	return math.Min(1.0, base+multiSource+volume+fatality+globalCtx+recency)
}

// Predict derives adjacent spillover zones for consolidated zones that are
// both risky and multi-source corroborated. At most limit predictions, the
// strongest bases first.
func Predict(zones []*Zone, limit int) []*Zone {
	bases := make([]*Zone, 0, len(zones))
	for _, z := range zones {
		if !z.IsPrediction && z.FinalScore > 0.4 && len(z.Sources) >= 2 {
			bases = append(bases, z)
		}
	}
	sort.SliceStable(bases, func(i, j int) bool { return bases[i].FinalScore > bases[j].FinalScore })
	if len(bases) > limit {
		bases = bases[:limit]
	}

	predictions := make([]*Zone, 0, len(bases))
	for _, base := range bases {
		p := &Zone{
			CentroidLat:   base.CentroidLat + 0.1,
			CentroidLon:   base.CentroidLon + 0.1,
			LocationLabel: fmt.Sprintf("Spillover area - %s", base.LocationLabel),
			Country:       base.Country,
			Region:        base.Region,
			Sources:       map[string]bool{models.SignalPrediction: true},
			SourceScores:  map[string]float64{models.SignalPrediction: base.FinalScore * 0.7},
			EventTypes:    []string{"Risk spillover"},
			LatestEventAt: base.LatestEventAt,
			FinalScore:    math.Round(base.FinalScore*0.6*1000) / 1000,
			IsPrediction:  true,
		}
		p.memberCoords = [][2]float64{{p.CentroidLat, p.CentroidLon}}
		predictions = append(predictions, p)
	}
	return predictions
}

// ToModel converts an assembled zone into its persisted form.
func (z *Zone) ToModel(now time.Time) models.ConflictZone {
	minLon, minLat := z.CentroidLon, z.CentroidLat
	maxLon, maxLat := z.CentroidLon, z.CentroidLat
	for _, c := range z.memberCoords {
		minLat = math.Min(minLat, c[0])
		maxLat = math.Max(maxLat, c[0])
		minLon = math.Min(minLon, c[1])
		maxLon = math.Max(maxLon, c[1])
	}
	// pad so single-point zones still describe a taskable footprint
	const pad = 0.05
	minLon, minLat, maxLon, maxLat = minLon-pad, minLat-pad, maxLon+pad, maxLat+pad

	level := models.RiskLevelForScore(z.FinalScore)

	sources := make([]string, 0, len(z.Sources))
	for s := range z.Sources {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	var country, region *string
	if z.Country != "" {
		country = &z.Country
	}
	if z.Region != "" {
		region = &z.Region
	}
	var assessment *string
	if z.AIAssessment != "" {
		assessment = &z.AIAssessment
	}

	label := z.LocationLabel
	if label == "" {
		label = fmt.Sprintf("%.2f, %.2f", z.CentroidLat, z.CentroidLon)
	}

	return models.ConflictZone{
		ZoneID:              uuid.NewString(),
		CentroidLat:         z.CentroidLat,
		CentroidLon:         z.CentroidLon,
		BBoxMinLon:          minLon,
		BBoxMinLat:          minLat,
		BBoxMaxLon:          maxLon,
		BBoxMaxLat:          maxLat,
		LocationLabel:       label,
		Country:             country,
		Region:              region,
		Sources:             sources,
		SourceScores:        models.ScoreMap(z.SourceScores),
		TotalEvents:         z.TotalEvents,
		TotalFatalities:     z.TotalFatalities,
		Actors:              z.Actors,
		EventTypes:          z.EventTypes,
		LatestEventAt:       z.LatestEventAt,
		FinalRiskScore:      z.FinalScore,
		RiskLevel:           level,
		MonitoringFrequency: models.MonitoringFrequencyForLevel(level),
		MemberArticleIDs:    z.MemberArticles,
		IsPrediction:        z.IsPrediction,
		AIAssessment:        assessment,
		CreatedAt:           now,
	}
}

func distanceDegrees(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat1 - lat2
	dLon := lon1 - lon2
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

func appendUnique(dst []string, src []string) []string {
	for _, s := range src {
		if s == "" {
			continue
		}
		found := false
		for _, existing := range dst {
			if existing == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}
