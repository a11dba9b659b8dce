// internal/integrator/riskindex.go
// Risk index integrator: fetches the full historical geopolitical risk
// index CSV and replaces the stored series atomically.

package integrator

import (
	"context"
	"encoding/csv"
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

var riskIndexRequiredColumns = []string{"date", "gpr", "gpr_threats", "gpr_acts"}

// RiskIndexIntegrator pulls the monthly geopolitical risk index.
type RiskIndexIntegrator struct {
	cfg     *config.Config
	store   FeedStore
	metrics Metrics
	logger  *logger.Logger
	client  *http.Client
}

// NewRiskIndexIntegrator creates the risk index integrator.
func NewRiskIndexIntegrator(cfg *config.Config, store FeedStore, metrics Metrics, log *logger.Logger) *RiskIndexIntegrator {
	return &RiskIndexIntegrator{
		cfg:     cfg,
		store:   store,
		metrics: metrics,
		logger:  log.With("component", "riskindex-integrator"),
		client:  newHTTPClient(60 * time.Second),
	}
}

// Name returns the integrator's feed name.
func (i *RiskIndexIntegrator) Name() string { return "risk_index" }

// Run fetches the historical series and swaps the table in one transaction.
func (i *RiskIndexIntegrator) Run(ctx context.Context) error {
	startedAt := time.Now().UTC()

	points, err := i.fetch(ctx)
	if err != nil {
		logRun(i.store, i.metrics, i.logger, i.Name(), startedAt, 0, "", err)
		return err
	}

	dateRange := ""
	if len(points) > 0 {
		dateRange = fmt.Sprintf("historical through %s", points[len(points)-1].Date)
	}

	err = i.store.ReplaceRiskIndex(points)
	records := 0
	if err == nil {
		records = len(points)
	}
	logRun(i.store, i.metrics, i.logger, i.Name(), startedAt, records, dateRange, err)
	if err != nil {
		return err
	}

	i.logger.Info("risk index run completed", "points", len(points), "range", dateRange)
	return nil
}

func (i *RiskIndexIntegrator) fetch(ctx context.Context) ([]models.RiskIndexPoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.cfg.RiskIndexURL, nil)
	if err != nil {
		return nil, apperrors.NewFetchError(i.cfg.RiskIndexURL, err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, apperrors.NewFetchError(i.cfg.RiskIndexURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewFetchError(i.cfg.RiskIndexURL, fmt.Errorf("status %d", resp.StatusCode))
	}

	return ParseRiskIndexCSV(resp.Body)
}

// ParseRiskIndexCSV validates the header and parses the full series.
func ParseRiskIndexCSV(r io.Reader) ([]models.RiskIndexPoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewParseError("risk_index", err)
	}

	cols := make(map[string]int, len(header))
	for idx, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = idx
	}

	var missing []string
	for _, required := range riskIndexRequiredColumns {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewSchemaError("risk_index", missing)
	}

	var points []models.RiskIndexPoint
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParseError("risk_index", err)
		}

		get := func(name string) string {
			idx := cols[name]
			if idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		gpr, err := strconv.ParseFloat(get("gpr"), 64)
		if err != nil {
			continue
		}
		threats, _ := strconv.ParseFloat(get("gpr_threats"), 64)
		acts, _ := strconv.ParseFloat(get("gpr_acts"), 64)

		date := get("date")
		if date == "" {
			continue
		}

		points = append(points, models.RiskIndexPoint{
			Date:       date,
			GPR:        gpr,
			GPRThreats: threats,
			GPRActs:    acts,
		})
	}
	return points, nil
}
