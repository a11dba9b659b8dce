// internal/integrator/events.go
// Conflict events integrator: fetches a rolling window of armed-conflict
// event records as CSV from the authenticated events API and upserts them
// idempotently.

package integrator

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"riskmap/internal/config"
	"riskmap/internal/models"
	apperrors "riskmap/pkg/errors"
	"riskmap/pkg/logger"
)

// eventsRequiredColumns must all be present in the CSV header. A missing
// column is a SchemaError and aborts the run before any insert.
var eventsRequiredColumns = []string{
	"event_id_cnty", "event_date", "country", "latitude", "longitude",
	"event_type", "sub_event_type", "actor1", "actor2", "fatalities",
}

// EventsIntegrator pulls the conflict events dataset.
type EventsIntegrator struct {
	cfg     *config.Config
	store   FeedStore
	metrics Metrics
	logger  *logger.Logger
	client  *http.Client
}

// NewEventsIntegrator creates the events integrator.
func NewEventsIntegrator(cfg *config.Config, store FeedStore, metrics Metrics, log *logger.Logger) *EventsIntegrator {
	return &EventsIntegrator{
		cfg:     cfg,
		store:   store,
		metrics: metrics,
		logger:  log.With("component", "events-integrator"),
		client:  newHTTPClient(60 * time.Second),
	}
}

// Name returns the integrator's feed name.
func (i *EventsIntegrator) Name() string { return "events" }

// Run fetches the rolling window and upserts it. One FeedUpdateLog entry
// per run, success or failure.
func (i *EventsIntegrator) Run(ctx context.Context) error {
	if i.cfg.EventsAPIKey == "" {
		i.logger.Warn("events API key not configured, skipping run")
		return nil
	}

	startedAt := time.Now().UTC()
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -i.cfg.EventsWindowDays)
	dateRange := fmt.Sprintf("%s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))

	records, err := i.fetch(ctx, start, end)
	if err != nil {
		logRun(i.store, i.metrics, i.logger, i.Name(), startedAt, 0, dateRange, err)
		return err
	}

	inserted, err := i.store.UpsertEventRecords(records)
	logRun(i.store, i.metrics, i.logger, i.Name(), startedAt, inserted, dateRange, err)
	if err != nil {
		return err
	}

	i.logger.Info("events run completed", "fetched", len(records), "inserted", inserted, "range", dateRange)
	return nil
}

func (i *EventsIntegrator) fetch(ctx context.Context, start, end time.Time) ([]models.EventRecord, error) {
	params := url.Values{}
	params.Set("key", i.cfg.EventsAPIKey)
	params.Set("event_date", fmt.Sprintf("%s:%s", start.Format("2006-01-02"), end.Format("2006-01-02")))
	params.Set("_format", "csv")
	params.Set("limit", "10000")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.cfg.EventsAPIURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, apperrors.NewFetchError(i.cfg.EventsAPIURL, err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, apperrors.NewFetchError(i.cfg.EventsAPIURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewFetchError(i.cfg.EventsAPIURL, fmt.Errorf("status %d", resp.StatusCode))
	}

	return ParseEventsCSV(resp.Body)
}

// ParseEventsCSV validates the header against the required schema and
// parses rows into event records. Rows without coordinates are dropped:
// they cannot contribute to zone clustering.
func ParseEventsCSV(r io.Reader) ([]models.EventRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewParseError("events", err)
	}

	cols := make(map[string]int, len(header))
	for idx, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = idx
	}

	var missing []string
	for _, required := range eventsRequiredColumns {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewSchemaError("events", missing)
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var records []models.EventRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParseError("events", err)
		}

		lat, latErr := strconv.ParseFloat(field(row, "latitude"), 64)
		lon, lonErr := strconv.ParseFloat(field(row, "longitude"), 64)
		if latErr != nil || lonErr != nil {
			continue
		}

		eventDate, err := time.Parse("2006-01-02", field(row, "event_date"))
		if err != nil {
			continue
		}

		fatalities, _ := strconv.Atoi(field(row, "fatalities"))

		records = append(records, models.EventRecord{
			EventID:      field(row, "event_id_cnty"),
			EventDate:    eventDate,
			Country:      field(row, "country"),
			Region:       field(row, "region"),
			Location:     field(row, "location"),
			Latitude:     lat,
			Longitude:    lon,
			EventType:    field(row, "event_type"),
			SubEventType: field(row, "sub_event_type"),
			Actor1:       field(row, "actor1"),
			Actor2:       field(row, "actor2"),
			Fatalities:   fatalities,
			Notes:        field(row, "notes"),
		})
	}
	return records, nil
}
