// internal/services/metrics.go
// In-process health and metrics: per-source fetch rates, per-provider
// translation success and breaker states, enrichment counters, integrator
// last-success timestamps, and consolidator run stats.

package services

import (
	"sync"
	"time"
)

// MetricsService collects component counters. All methods are safe for
// concurrent use; the snapshot is what /metrics serves.
type MetricsService struct {
	mu sync.RWMutex

	startedAt time.Time

	fetchSuccess map[string]int64
	fetchFailure map[string]int64
	inserted     int64
	duplicates   int64

	translationSuccess map[string]int64
	translationFailure map[string]int64
	breakerStates      map[string]string

	enrichmentSuccess int64
	enrichmentFailure int64

	integratorLastSuccess map[string]time.Time
	integratorLastStatus  map[string]bool

	consolidatorLastRun      time.Time
	consolidatorLastDuration time.Duration
	consolidatorLastZones    int
	consolidatorLastOK       bool
}

// NewMetricsService creates the metrics collector.
func NewMetricsService() *MetricsService {
	return &MetricsService{
		startedAt:             time.Now().UTC(),
		fetchSuccess:          make(map[string]int64),
		fetchFailure:          make(map[string]int64),
		translationSuccess:    make(map[string]int64),
		translationFailure:    make(map[string]int64),
		breakerStates:         make(map[string]string),
		integratorLastSuccess: make(map[string]time.Time),
		integratorLastStatus:  make(map[string]bool),
	}
}

// RecordFetch counts one feed fetch outcome per source.
func (m *MetricsService) RecordFetch(source string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.fetchSuccess[source]++
	} else {
		m.fetchFailure[source]++
	}
}

// RecordArticles counts inserted and duplicate articles.
func (m *MetricsService) RecordArticles(inserted, duplicates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted += int64(inserted)
	m.duplicates += int64(duplicates)
}

// RecordTranslation counts one provider call outcome.
func (m *MetricsService) RecordTranslation(provider string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.translationSuccess[provider]++
	} else {
		m.translationFailure[provider]++
	}
}

// SetBreakerState records a circuit breaker state change.
func (m *MetricsService) SetBreakerState(provider, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakerStates[provider] = state
}

// RecordEnrichment counts one enrichment outcome.
func (m *MetricsService) RecordEnrichment(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.enrichmentSuccess++
	} else {
		m.enrichmentFailure++
	}
}

// RecordIntegratorRun records one integrator run outcome.
func (m *MetricsService) RecordIntegratorRun(name string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.integratorLastStatus[name] = ok
	if ok {
		m.integratorLastSuccess[name] = time.Now().UTC()
	}
}

// RecordConsolidation records one consolidator run.
func (m *MetricsService) RecordConsolidation(duration time.Duration, zones int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consolidatorLastRun = time.Now().UTC()
	m.consolidatorLastDuration = duration
	m.consolidatorLastZones = zones
	m.consolidatorLastOK = ok
}

// Snapshot is the serializable view served by /metrics.
type Snapshot struct {
	UptimeSeconds int64 `json:"uptime_seconds"`

	Fetch struct {
		SuccessBySource map[string]int64 `json:"success_by_source"`
		FailureBySource map[string]int64 `json:"failure_by_source"`
		ArticlesStored  int64            `json:"articles_stored"`
		Duplicates      int64            `json:"duplicates"`
	} `json:"fetch"`

	Translation struct {
		SuccessByProvider map[string]int64  `json:"success_by_provider"`
		FailureByProvider map[string]int64  `json:"failure_by_provider"`
		BreakerStates     map[string]string `json:"breaker_states"`
	} `json:"translation"`

	Enrichment struct {
		Succeeded  int64 `json:"succeeded"`
		Failed     int64 `json:"failed"`
		QueueDepth int   `json:"queue_depth"`
	} `json:"enrichment"`

	Integrators map[string]IntegratorStatus `json:"integrators"`

	Consolidator struct {
		LastRun        *time.Time `json:"last_run,omitempty"`
		LastDurationMS int64      `json:"last_duration_ms"`
		LastZoneCount  int        `json:"last_zone_count"`
		LastRunOK      bool       `json:"last_run_ok"`
	} `json:"consolidator"`
}

// IntegratorStatus is the per-feed slice of the snapshot.
type IntegratorStatus struct {
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastRunOK   bool       `json:"last_run_ok"`
}

// Snapshot returns a copy of all counters. queueDepth is passed in because
// it lives in storage, not in this process.
func (m *MetricsService) Snapshot(queueDepth int) Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s Snapshot
	s.UptimeSeconds = int64(time.Since(m.startedAt).Seconds())

	s.Fetch.SuccessBySource = copyMap(m.fetchSuccess)
	s.Fetch.FailureBySource = copyMap(m.fetchFailure)
	s.Fetch.ArticlesStored = m.inserted
	s.Fetch.Duplicates = m.duplicates

	s.Translation.SuccessByProvider = copyMap(m.translationSuccess)
	s.Translation.FailureByProvider = copyMap(m.translationFailure)
	s.Translation.BreakerStates = copyStringMap(m.breakerStates)

	s.Enrichment.Succeeded = m.enrichmentSuccess
	s.Enrichment.Failed = m.enrichmentFailure
	s.Enrichment.QueueDepth = queueDepth

	s.Integrators = make(map[string]IntegratorStatus)
	for name, ok := range m.integratorLastStatus {
		status := IntegratorStatus{LastRunOK: ok}
		if ts, found := m.integratorLastSuccess[name]; found {
			t := ts
			status.LastSuccess = &t
		}
		s.Integrators[name] = status
	}

	if !m.consolidatorLastRun.IsZero() {
		t := m.consolidatorLastRun
		s.Consolidator.LastRun = &t
	}
	s.Consolidator.LastDurationMS = m.consolidatorLastDuration.Milliseconds()
	s.Consolidator.LastZoneCount = m.consolidatorLastZones
	s.Consolidator.LastRunOK = m.consolidatorLastOK

	return s
}

func copyMap(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyStringMap(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
