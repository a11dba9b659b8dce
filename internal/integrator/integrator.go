// Package integrator pulls the external intelligence datasets on their own
// schedules: conflict events (daily), global event tone (daily), and the
// geopolitical risk index (monthly). Every run writes exactly one feed
// update log entry; a failed run never leaves partial data behind.
package integrator

import (
	"net/http"
	"time"

	"riskmap/internal/models"
	"riskmap/pkg/logger"
)

// FeedStore is the slice of the event repository integrators write to.
type FeedStore interface {
	UpsertEventRecords(records []models.EventRecord) (int, error)
	UpsertToneEvents(records []models.ToneEvent) (int, error)
	ReplaceRiskIndex(points []models.RiskIndexPoint) error
	LogFeedUpdate(entry models.FeedUpdateLog) error
}

// Metrics receives integrator outcomes.
type Metrics interface {
	RecordIntegratorRun(name string, ok bool)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// logRun records the run outcome in the feed update log and the metrics.
func logRun(store FeedStore, metrics Metrics, log *logger.Logger, source string, startedAt time.Time, records int, dateRange string, runErr error) {
	entry := models.FeedUpdateLog{
		Source:          source,
		StartedAt:       startedAt,
		EndedAt:         time.Now().UTC(),
		RecordsIngested: records,
		Status:          "success",
		DataDateRange:   dateRange,
	}
	if runErr != nil {
		entry.Status = "error"
		msg := runErr.Error()
		entry.ErrorMessage = &msg
	}

	if err := store.LogFeedUpdate(entry); err != nil {
		log.Error("feed update log write failed", "source", source, "error", err.Error())
	}
	metrics.RecordIntegratorRun(source, runErr == nil)
}
