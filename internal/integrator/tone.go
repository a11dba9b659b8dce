// internal/integrator/tone.go
// Global event-tone integrator: downloads the previous day's export (a zip
// archive holding one tab-separated file with the 58 canonical columns),
// keeps the conflict-associated event root codes, and upserts the reduced
// records.

package integrator

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"riskmap/internal/config"
	"riskmap/internal/models"
	apperrors "riskmap/pkg/errors"
	"riskmap/pkg/logger"
)

// toneColumnCount is the fixed width of the daily export.
const toneColumnCount = 58

// Column indexes into the 58-column export. The file carries no header;
// the ordering is part of the dataset's published format.
const (
	colGlobalEventID  = 0
	colSQLDate        = 1
	colActor1Name     = 6
	colActor2Name     = 16
	colEventCode      = 26
	colEventRootCode  = 28
	colGoldsteinScale = 30
	colNumMentions    = 31
	colNumSources     = 32
	colNumArticles    = 33
	colAvgTone        = 34
	colActionGeoName  = 50
	colActionGeoCC    = 51
	colActionGeoLat   = 53
	colActionGeoLon   = 54
	colSourceURL      = 57
)

// conflictRootCodes are the event root codes associated with conflict:
// protest through mass violence.
var conflictRootCodes = map[string]bool{
	"14": true, "15": true, "16": true, "17": true, "18": true, "19": true, "20": true,
}

// ToneIntegrator pulls the daily event-tone export.
type ToneIntegrator struct {
	cfg     *config.Config
	store   FeedStore
	metrics Metrics
	logger  *logger.Logger
	client  *http.Client
}

// NewToneIntegrator creates the tone integrator.
func NewToneIntegrator(cfg *config.Config, store FeedStore, metrics Metrics, log *logger.Logger) *ToneIntegrator {
	return &ToneIntegrator{
		cfg:     cfg,
		store:   store,
		metrics: metrics,
		logger:  log.With("component", "tone-integrator"),
		client:  newHTTPClient(120 * time.Second),
	}
}

// Name returns the integrator's feed name.
func (i *ToneIntegrator) Name() string { return "tone" }

// Run downloads the previous day's export and upserts the conflict slice.
func (i *ToneIntegrator) Run(ctx context.Context) error {
	startedAt := time.Now().UTC()
	target := time.Now().UTC().AddDate(0, 0, -1)
	dateRange := target.Format("2006-01-02")

	records, err := i.fetch(ctx, target)
	if err != nil {
		logRun(i.store, i.metrics, i.logger, i.Name(), startedAt, 0, dateRange, err)
		return err
	}

	inserted, err := i.store.UpsertToneEvents(records)
	logRun(i.store, i.metrics, i.logger, i.Name(), startedAt, inserted, dateRange, err)
	if err != nil {
		return err
	}

	i.logger.Info("tone run completed", "fetched", len(records), "inserted", inserted, "date", dateRange)
	return nil
}

func (i *ToneIntegrator) fetch(ctx context.Context, target time.Time) ([]models.ToneEvent, error) {
	exportURL := fmt.Sprintf("%s/%s.export.CSV.zip", strings.TrimRight(i.cfg.ToneBaseURL, "/"), target.Format("20060102"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return nil, apperrors.NewFetchError(exportURL, err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, apperrors.NewFetchError(exportURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewFetchError(exportURL, fmt.Errorf("status %d", resp.StatusCode))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewFetchError(exportURL, err)
	}

	archive, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, apperrors.NewParseError("tone", err)
	}
	if len(archive.File) == 0 {
		return nil, apperrors.NewParseError("tone", fmt.Errorf("empty archive"))
	}

	file, err := archive.File[0].Open()
	if err != nil {
		return nil, apperrors.NewParseError("tone", err)
	}
	defer file.Close()

	return ParseToneExport(file)
}

// ParseToneExport reads the tab-separated daily export and keeps
// conflict-coded rows that carry action-geo coordinates.
func ParseToneExport(r io.Reader) ([]models.ToneEvent, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var records []models.ToneEvent
	line := 0
	for scanner.Scan() {
		line++
		row := strings.Split(scanner.Text(), "\t")
		if len(row) != toneColumnCount {
			return nil, apperrors.NewSchemaError("tone", []string{
				fmt.Sprintf("line %d has %d columns, want %d", line, len(row), toneColumnCount),
			})
		}

		if !conflictRootCodes[row[colEventRootCode]] {
			continue
		}

		lat, latErr := strconv.ParseFloat(row[colActionGeoLat], 64)
		lon, lonErr := strconv.ParseFloat(row[colActionGeoLon], 64)
		if latErr != nil || lonErr != nil {
			continue
		}

		globalEventID, err := strconv.ParseInt(row[colGlobalEventID], 10, 64)
		if err != nil {
			continue
		}
		sqlDate, _ := strconv.Atoi(row[colSQLDate])
		goldstein, _ := strconv.ParseFloat(row[colGoldsteinScale], 64)
		avgTone, _ := strconv.ParseFloat(row[colAvgTone], 64)
		mentions, _ := strconv.Atoi(row[colNumMentions])
		sources, _ := strconv.Atoi(row[colNumSources])
		articles, _ := strconv.Atoi(row[colNumArticles])

		records = append(records, models.ToneEvent{
			GlobalEventID:  globalEventID,
			SQLDate:        sqlDate,
			EventCode:      row[colEventCode],
			EventRootCode:  row[colEventRootCode],
			GoldsteinScale: goldstein,
			AvgTone:        avgTone,
			NumMentions:    mentions,
			NumSources:     sources,
			NumArticles:    articles,
			Actor1Name:     row[colActor1Name],
			Actor2Name:     row[colActor2Name],
			LocationName:   row[colActionGeoName],
			CountryCode:    row[colActionGeoCC],
			Latitude:       lat,
			Longitude:      lon,
			SourceURL:      row[colSourceURL],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewParseError("tone", err)
	}
	return records, nil
}
